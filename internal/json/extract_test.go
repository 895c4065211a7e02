package json

import (
	"errors"
	"testing"
)

type labelled struct {
	Intent     string  `json:"intent"`
	Confidence float64 `json:"confidence"`
}

func TestExtractTiers(t *testing.T) {
	tests := []struct {
		name     string
		response string
		intent   string
		tier     Tier
	}{
		{"pure", `{"intent": "greeting", "confidence": 0.9}`, "greeting", TierStrict},
		{"fenced with tag", "```json\n{\"intent\": \"data_query\", \"confidence\": 0.8}\n```", "data_query", TierStrict},
		{"fenced without tag", "```\n{\"intent\": \"metadata_query\"}\n```", "metadata_query", TierStrict},
		{"prefix", `Here you go: {"intent": "greeting"}`, "greeting", TierBalanced},
		{"suffix", `{"intent": "greeting"} hope that helps {not json}`, "greeting", TierBalanced},
		{"nested", `Result: {"intent": "data_query", "meta": {"a": 1}} done`, "data_query", TierBalanced},
		{"brace in string", `x {"intent": "greeting", "reasoning": "a } b"} y`, "greeting", TierBalanced},
		{"skips broken first object", `{oops} then {"intent": "greeting"}`, "greeting", TierBalanced},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, tier, err := ExtractJSONFromResponse[labelled](tt.response)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Intent != tt.intent {
				t.Errorf("intent = %q, want %q", got.Intent, tt.intent)
			}
			if tier != tt.tier {
				t.Errorf("tier = %s, want %s", tier, tt.tier)
			}
		})
	}
}

func TestExtractNoJSON(t *testing.T) {
	for _, response := range []string{
		"This is just plain text without any JSON.",
		"",
		"{unterminated",
		`["an", "array"]`,
	} {
		_, tier, err := Extract(response)
		if !errors.Is(err, ErrNoJSON) {
			t.Errorf("Extract(%q) err = %v, want ErrNoJSON", response, err)
		}
		if tier != TierNone {
			t.Errorf("Extract(%q) tier = %s, want none", response, tier)
		}
	}
}

func TestStripCodeFence(t *testing.T) {
	tests := map[string]string{
		"```sql\nSELECT 1\n```": "SELECT 1",
		"```\nSELECT 1\n```":    "SELECT 1",
		"```SELECT 1```":        "SELECT 1",
		"  SELECT 1  ":          "SELECT 1",
		"```json{\"a\":1}```":   `{"a":1}`,
		"```{\"a\":1}\n```":     `{"a":1}`,
	}
	for in, want := range tests {
		if got := StripCodeFence(in); got != want {
			t.Errorf("StripCodeFence(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFirstBalancedObject(t *testing.T) {
	got, ok := FirstBalancedObject(`a {"k": "{"} b {"z": 1}`)
	if !ok || got != `{"k": "{"}` {
		t.Errorf("got %q, %v", got, ok)
	}

	if _, ok := FirstBalancedObject("no braces"); ok {
		t.Error("expected no match")
	}
}
