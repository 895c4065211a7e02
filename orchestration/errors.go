// Error taxonomy for a single turn.
//
// Every failure inside the graph becomes answer text through AnswerText.
// The types stay distinguishable with errors.As for logging and tests.

package orchestration

import (
	"errors"
	"fmt"

	"github.com/richinex/feedsage/model"
)

// Labels used in user-facing failure text.
const (
	LabelRetrieval  = "RAG"
	LabelQuery      = "SQL"
	LabelSummarizer = "Summarizer"
	LabelClassifier = "Classifier"
	LabelQueryGen   = "Query Generator"
	LabelSynthesis  = "Synthesizer"
)

// ErrUnknownIntent marks a classification outside the supported set.
var ErrUnknownIntent = errors.New("unknown intent")

// ParseError reports model output that is not in the expected shape.
type ParseError struct {
	Stage  string
	Detail string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s Error: %s", e.Stage, e.Detail)
}

// ToolCommunicationError reports a transport-level failure reaching a tool
// or the language model.
type ToolCommunicationError struct {
	Tool   string
	Detail string
}

func (e *ToolCommunicationError) Error() string {
	return fmt.Sprintf("%s Error: %s", e.Tool, e.Detail)
}

// ToolReportedError reports a well-formed failure returned by the tool.
type ToolReportedError struct {
	Tool   string
	Detail string
}

func (e *ToolReportedError) Error() string {
	return fmt.Sprintf("%s Query Error: %s", e.Tool, e.Detail)
}

// toolFailure converts a failed tool result into the matching error type.
func toolFailure(label string, result model.ToolCallResult) error {
	if result.Err == nil {
		return nil
	}
	if result.Err.Kind == model.ToolErrReported {
		return &ToolReportedError{Tool: label, Detail: result.Err.Detail}
	}
	return &ToolCommunicationError{Tool: label, Detail: result.Err.Detail}
}

// completionFailure wraps a language-model failure for the given stage.
func completionFailure(label string, err error) error {
	return &ToolCommunicationError{Tool: label, Detail: err.Error()}
}

// AnswerText renders err as the user-visible answer for a failed turn.
func AnswerText(err error) string {
	var (
		parseErr    *ParseError
		commErr     *ToolCommunicationError
		reportedErr *ToolReportedError
	)
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnknownIntent):
		return UnknownIntentReply
	case errors.As(err, &reportedErr):
		return reportedErr.Error()
	case errors.As(err, &commErr):
		return commErr.Error()
	case errors.As(err, &parseErr):
		return parseErr.Error()
	default:
		return "Error: " + err.Error()
	}
}
