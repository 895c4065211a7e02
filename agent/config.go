// Agent configuration types.
//
// Information Hiding:
// - Default values hidden

package agent

import (
	"time"

	"github.com/richinex/feedsage/conversation"
	"github.com/richinex/feedsage/orchestration"
	"github.com/richinex/feedsage/tools"
)

// Config holds the tunables of the conversation engine.
type Config struct {
	// MaxHistory caps stored messages per thread.
	MaxHistory int

	// LLMTimeout bounds each completion. Zero means no deadline.
	LLMTimeout time.Duration

	// Tool holds the per-call tool deadline.
	Tool tools.ToolConfig

	// Engine holds summarization thresholds and tool names.
	Engine orchestration.EngineConfig
}

// DefaultConfig returns the standard configuration.
func DefaultConfig() Config {
	return Config{
		MaxHistory: conversation.DefaultMaxHistory,
		Tool:       tools.DefaultToolConfig(),
		Engine:     orchestration.DefaultEngineConfig(),
	}
}
