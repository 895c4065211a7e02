package orchestration

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	jsonx "github.com/richinex/feedsage/internal/json"
	"github.com/richinex/feedsage/llm"
	"github.com/richinex/feedsage/model"
)

// FallbackConfidence is assigned when the classifier output cannot be parsed.
const FallbackConfidence = 0.5

// Classifier maps a user query onto the closed intent set with one model call.
type Classifier struct {
	client *llm.Client
}

// NewClassifier creates a classifier.
func NewClassifier(client *llm.Client) *Classifier {
	return &Classifier{client: client}
}

type rawIntent struct {
	Intent     string   `json:"intent"`
	Confidence *float64 `json:"confidence"`
	Reasoning  string   `json:"reasoning"`
}

// Classify returns the intent for query. Unparseable output falls back to
// metadata_query; only a failed model call is an error.
func (c *Classifier) Classify(ctx context.Context, query string) (model.Intent, model.CallRecord, error) {
	messages := []llm.ChatMessage{llm.UserMessage(classifierInstruction(query))}

	content, call, err := complete(ctx, c.client, "classifier", messages, llm.NewJSONObjectFormat())
	if err != nil {
		return model.Intent{}, call, completionFailure(LabelClassifier, err)
	}

	return ParseIntent(ctx, content), call, nil
}

// ParseIntent reads a classifier completion. It never fails: output with no
// recognizable object yields metadata_query at FallbackConfidence, and a
// recognizable object naming an unsupported intent yields unknown.
func ParseIntent(ctx context.Context, content string) model.Intent {
	logger := zerolog.Ctx(ctx)

	raw, tier, err := jsonx.ExtractJSONFromResponse[rawIntent](content)
	if err != nil || raw.Intent == "" {
		if err == nil {
			err = errors.New("missing intent field")
		}
		parseErr := &ParseError{Stage: LabelClassifier, Detail: err.Error()}
		logger.Debug().Err(parseErr).Msg("classifier output unparseable, using fallback")
		return model.Intent{
			Kind:       model.IntentMetadataQuery,
			Confidence: FallbackConfidence,
			Reasoning:  "classifier output could not be parsed",
		}
	}

	intent := model.Intent{
		Kind:       model.ParseIntentKind(raw.Intent),
		Confidence: FallbackConfidence,
		Reasoning:  raw.Reasoning,
	}
	if raw.Confidence != nil {
		intent.Confidence = clampConfidence(*raw.Confidence)
	}

	logger.Debug().Str("tier", tier.String()).Str("raw_intent", raw.Intent).Stringer("intent", intent).Msg("query classified")
	return intent
}

func clampConfidence(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
