package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richinex/feedsage/model"
)

// chatServer serves the OpenAI chat completions endpoint with a fixed reply.
func chatServer(t *testing.T, status int, reply string) (*httptest.Server, *atomic.Value) {
	t.Helper()
	var lastBody atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		lastBody.Store(body)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			_, _ = w.Write([]byte(`{"error":{"message":"invalid api key","type":"invalid_request_error"}}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"choices": []map[string]any{{"index": 0, "message": map[string]any{"role": "assistant", "content": reply}, "finish_reason": "stop"}},
			"usage":   map[string]any{"prompt_tokens": 7, "completion_tokens": 3, "total_tokens": 10},
		})
	}))
	t.Cleanup(srv.Close)
	return srv, &lastBody
}

func TestOpenAICompatibleChat(t *testing.T) {
	srv, lastBody := chatServer(t, http.StatusOK, `{"intent":"greeting"}`)
	provider := NewOpenAICompatibleProvider("gateway", "sk-test", srv.URL, "gpt-4o-mini", 100, 0)

	resp, err := provider.ChatWithFormat(context.Background(), []ChatMessage{
		SystemMessage("classify"),
		UserMessage("hello"),
	}, NewJSONObjectFormat())
	require.NoError(t, err)

	assert.Equal(t, `{"intent":"greeting"}`, resp.Content)
	require.NotNil(t, resp.Usage)
	assert.Equal(t, uint32(10), resp.Usage.TotalTokens)
	assert.Equal(t, "gateway", provider.Name())

	body := lastBody.Load().(map[string]any)
	assert.Equal(t, "gpt-4o-mini", body["model"])
	assert.Len(t, body["messages"], 2)
	assert.Contains(t, body, "response_format")
}

func TestOpenAIErrorNoAPIKeyLeak(t *testing.T) {
	srv, _ := chatServer(t, http.StatusUnauthorized, "")
	testKey := "sk-test-invalid-key-12345xyz"
	provider := NewOpenAICompatibleProvider("openai", testKey, srv.URL, "gpt-4o", 100, 0)

	_, err := provider.Chat(context.Background(), []ChatMessage{UserMessage("test")})
	require.Error(t, err)
	assert.NotContains(t, err.Error(), testKey)
	assert.NotContains(t, err.Error(), "Authorization:")
}

func TestDeepSeekProviderName(t *testing.T) {
	provider := NewDeepSeekProvider("sk-test", ModelDeepSeekChat, 100, 0)
	assert.Equal(t, "deepseek", provider.Name())
	assert.Equal(t, ModelDeepSeekChat, provider.Model())
}

func TestGeminiInitErrorPreserved(t *testing.T) {
	t.Setenv("GOOGLE_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "")
	provider := NewGeminiProvider("", ModelGeminiFlash2, 100, 0)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := provider.Chat(ctx, []ChatMessage{UserMessage("test")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to initialize")
}

func TestConvertToAnthropicMessagesJoinsSystem(t *testing.T) {
	msgs, system := convertToAnthropicMessages([]ChatMessage{
		SystemMessage("a"),
		UserMessage("q"),
		SystemMessage("b"),
		AssistantMessage("r"),
	})
	assert.Equal(t, "a\n\nb", system)
	assert.Len(t, msgs, 2)
}

func TestFromMessagesPreservesOrder(t *testing.T) {
	out := FromMessages([]model.Message{
		model.UserMessage("one"),
		model.AssistantMessage("two"),
	})
	require.Len(t, out, 2)
	assert.Equal(t, ChatMessage{Role: RoleUser, Content: "one"}, out[0])
	assert.Equal(t, ChatMessage{Role: RoleAssistant, Content: "two"}, out[1])
}

func TestParseProviderType(t *testing.T) {
	cases := map[string]ProviderType{
		"openai":   ProviderOpenAI,
		" Claude":  ProviderAnthropic,
		"deepseek": ProviderDeepSeek,
		"google":   ProviderGemini,
	}
	for in, want := range cases {
		got, err := ParseProviderType(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseProviderType("mistral")
	assert.Error(t, err)
}

func TestBuilderFromEnvMissingKey(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	_, err := ProviderAnthropic.FromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ANTHROPIC_API_KEY")
}

func TestBuilderDefaults(t *testing.T) {
	provider, err := ProviderOpenAI.APIKey("sk-test")
	require.NoError(t, err)
	assert.Equal(t, ModelOpenAIGPT4oMini, provider.Model())

	provider, err = ProviderDeepSeek.Model("deepseek-reasoner").BaseURL("http://localhost:1/v1").APIKey("sk-test")
	require.NoError(t, err)
	assert.Equal(t, "deepseek", provider.Name())
	assert.Equal(t, "deepseek-reasoner", provider.Model())
}

// blockingProvider waits for the context to end.
type blockingProvider struct{}

func (blockingProvider) Name() string  { return "blocking" }
func (blockingProvider) Model() string { return "none" }
func (p blockingProvider) Chat(ctx context.Context, messages []ChatMessage) (LLMResponse, error) {
	return p.ChatWithFormat(ctx, messages, nil)
}
func (blockingProvider) ChatWithFormat(ctx context.Context, _ []ChatMessage, _ *ResponseFormat) (LLMResponse, error) {
	<-ctx.Done()
	return LLMResponse{}, ctx.Err()
}

func TestClientTimeout(t *testing.T) {
	client := NewClient(blockingProvider{}).WithTimeout(20 * time.Millisecond).WithLogger(zerolog.Nop())

	start := time.Now()
	_, err := client.Chat(context.Background(), []ChatMessage{UserMessage("hi")})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.True(t, strings.HasPrefix(err.Error(), "blocking: "))
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestClientCompleteUsage(t *testing.T) {
	srv, _ := chatServer(t, http.StatusOK, "hello there")
	client := NewClient(NewOpenAICompatibleProvider("openai", "sk-test", srv.URL, "gpt-4o-mini", 100, 0))

	out, usage, err := client.Complete(context.Background(), []ChatMessage{UserMessage("hi")}, NewJSONObjectFormat())
	require.NoError(t, err)
	assert.Equal(t, "hello there", out)
	require.NotNil(t, usage)
	assert.Equal(t, uint32(10), usage.TotalTokens)

	total := &TokenUsage{}
	total.Add(usage)
	total.Add(nil)
	total.Add(usage)
	assert.Equal(t, uint32(14), total.PromptTokens)
	assert.Equal(t, uint32(20), total.TotalTokens)
}
