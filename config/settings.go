// Package config provides application settings.
//
// Settings are created via Load() which handles:
// - Defaults for every key
// - An optional YAML file
// - FEEDSAGE_* environment overrides and provider API-key lookup
// - Validation

package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/richinex/feedsage/llm"
)

// EnvPrefix prefixes every environment override, e.g. FEEDSAGE_LLM_PROVIDER.
const EnvPrefix = "FEEDSAGE"

// Tool transports.
const (
	TransportHTTP  = "http"
	TransportStdio = "stdio"
)

// Settings holds all application configuration.
type Settings struct {
	LLM          LLMConfig          `mapstructure:"llm"`
	Tools        ToolsConfig        `mapstructure:"tools"`
	Conversation ConversationConfig `mapstructure:"conversation"`
	Server       ServerConfig       `mapstructure:"server"`
}

// LLMConfig holds LLM provider configuration.
type LLMConfig struct {
	Provider    string        `mapstructure:"provider"`
	Model       string        `mapstructure:"model"`
	MaxTokens   uint32        `mapstructure:"max_tokens"`
	Temperature float64       `mapstructure:"temperature"`
	Timeout     time.Duration `mapstructure:"timeout"`
	BaseURL     string        `mapstructure:"base_url"`
}

// ToolsConfig holds the tool transport configuration.
type ToolsConfig struct {
	Transport string `mapstructure:"transport"`
	Endpoint  string `mapstructure:"endpoint"`
	// Command launches a stdio tool server, e.g. "python -m feed_tools".
	Command string `mapstructure:"command"`
	// ServersFile is an mcpServers JSON file; Server picks one entry.
	ServersFile   string        `mapstructure:"servers_file"`
	Server        string        `mapstructure:"server"`
	Timeout       time.Duration `mapstructure:"timeout"`
	RetrievalName string        `mapstructure:"retrieval_name"`
	QueryName     string        `mapstructure:"query_name"`
	TopK          int           `mapstructure:"top_k"`
}

// ConversationConfig holds memory and summarization settings.
type ConversationConfig struct {
	MaxHistory       int    `mapstructure:"max_history"`
	SummarizeAfter   int    `mapstructure:"summarize_after"`
	KeepAfterSummary int    `mapstructure:"keep_after_summary"`
	DBPath           string `mapstructure:"db_path"`
}

// ServerConfig holds the HTTP surface settings.
type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.model", "")
	v.SetDefault("llm.max_tokens", 1024)
	v.SetDefault("llm.temperature", 0.0)
	v.SetDefault("llm.timeout", time.Duration(0))
	v.SetDefault("llm.base_url", "")

	v.SetDefault("tools.transport", TransportHTTP)
	v.SetDefault("tools.endpoint", "http://localhost:8001")
	v.SetDefault("tools.command", "")
	v.SetDefault("tools.servers_file", "")
	v.SetDefault("tools.server", "")
	v.SetDefault("tools.timeout", 30*time.Second)
	v.SetDefault("tools.retrieval_name", "rag_query_tool")
	v.SetDefault("tools.query_name", "sql_query_tool")
	v.SetDefault("tools.top_k", 5)

	v.SetDefault("conversation.max_history", 50)
	v.SetDefault("conversation.summarize_after", 5)
	v.SetDefault("conversation.keep_after_summary", 2)
	v.SetDefault("conversation.db_path", "")

	v.SetDefault("server.addr", ":8000")
}

// Load reads settings from defaults, the YAML file at path and the
// environment, in increasing precedence. An empty path looks for an
// optional feedsage.yaml in the working directory.
func Load(path string) (Settings, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Settings{}, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("feedsage")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Settings{}, fmt.Errorf("reading config: %w", err)
			}
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return Settings{}, fmt.Errorf("decoding config: %w", err)
	}

	provider, err := llm.ParseProviderType(s.LLM.Provider)
	if err != nil {
		return Settings{}, err
	}
	s.LLM.Provider = provider.String()
	if s.LLM.Model == "" {
		s.LLM.Model = ModelFor(provider)
	}

	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// MustLoad loads settings and panics on error.
// Use this only when configuration errors should be fatal.
func MustLoad(path string) Settings {
	s, err := Load(path)
	if err != nil {
		panic(fmt.Sprintf("config: %v", err))
	}
	return s
}

// Validate checks cross-field constraints.
func (s Settings) Validate() error {
	var errs []error

	switch s.Tools.Transport {
	case TransportHTTP:
		if s.Tools.Endpoint == "" {
			errs = append(errs, errors.New("tools.endpoint is required for the http transport"))
		}
	case TransportStdio:
		if s.Tools.Command == "" && s.Tools.ServersFile == "" {
			errs = append(errs, errors.New("tools.command or tools.servers_file is required for the stdio transport"))
		}
	default:
		errs = append(errs, fmt.Errorf("tools.transport must be %q or %q, got %q", TransportHTTP, TransportStdio, s.Tools.Transport))
	}
	if s.Tools.Timeout <= 0 {
		errs = append(errs, errors.New("tools.timeout must be positive"))
	}
	if s.Tools.TopK <= 0 {
		errs = append(errs, errors.New("tools.top_k must be positive"))
	}
	if s.LLM.Timeout < 0 {
		errs = append(errs, errors.New("llm.timeout must not be negative"))
	}
	if s.Conversation.MaxHistory <= 0 {
		errs = append(errs, errors.New("conversation.max_history must be positive"))
	}
	if s.Conversation.SummarizeAfter <= 0 {
		errs = append(errs, errors.New("conversation.summarize_after must be positive"))
	}
	if k := s.Conversation.KeepAfterSummary; k <= 0 || k > s.Conversation.SummarizeAfter {
		errs = append(errs, errors.New("conversation.keep_after_summary must be between 1 and conversation.summarize_after"))
	}

	return errors.Join(errs...)
}

// ModelFor returns the model for a provider: <PROVIDER>_MODEL from the
// environment when set, the provider default otherwise.
func ModelFor(provider llm.ProviderType) string {
	if val := os.Getenv(strings.ToUpper(provider.String()) + "_MODEL"); val != "" {
		return val
	}
	return provider.DefaultModel()
}

// APIKeyFor returns the API key for a provider from environment variables.
func APIKeyFor(provider llm.ProviderType) (string, error) {
	key := os.Getenv(provider.EnvVar())
	if key == "" {
		return "", fmt.Errorf("%s environment variable not set", provider.EnvVar())
	}
	return key, nil
}

// NewProvider builds the configured LLM provider.
func (s Settings) NewProvider() (llm.Provider, error) {
	providerType, err := llm.ParseProviderType(s.LLM.Provider)
	if err != nil {
		return nil, err
	}
	key, err := APIKeyFor(providerType)
	if err != nil {
		return nil, err
	}
	return providerType.Model(s.LLM.Model).
		MaxTokens(s.LLM.MaxTokens).
		Temperature(float32(s.LLM.Temperature)).
		BaseURL(s.LLM.BaseURL).
		APIKey(key)
}

// SupportedProviders returns the list of supported provider names.
func SupportedProviders() []string {
	return []string{
		llm.ProviderOpenAI.String(),
		llm.ProviderAnthropic.String(),
		llm.ProviderDeepSeek.String(),
		llm.ProviderGemini.String(),
	}
}
