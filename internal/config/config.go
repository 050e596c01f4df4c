package config

import (
	"errors"
	"os"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

// ErrMissingAPIKey is returned when no API key is present after all
// configuration sources have been read. Load checks this before any client
// is constructed.
var ErrMissingAPIKey = errors.New("OPENAI_API_KEY not found; set it in the environment or a local .env file")

// Config holds the application configuration
type Config struct {
	LLM        LLMConfig         `mapstructure:"llm"`
	Logging    LoggingConfig     `mapstructure:"logging"`
	History    HistoryConfig     `mapstructure:"history"`
	MCPServers []MCPServerConfig `mapstructure:"mcp_servers"`
}

// LLMConfig holds the LLM configuration
type LLMConfig struct {
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
}

// LoggingConfig holds the logging configuration
type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

// HistoryConfig holds the session history configuration. An empty Path
// disables persistence entirely.
type HistoryConfig struct {
	Path string `mapstructure:"path"`
}

// ClientType selects the transport used to reach an MCP server.
type ClientType string

const (
	ClientTypeSSE            ClientType = "sse"
	ClientTypeStreamableHTTP ClientType = "streamable_http"
	ClientTypeStdio          ClientType = "stdio"
)

// MCPServerConfig describes one MCP server the agent runner may draw tools from.
type MCPServerConfig struct {
	Name    string            `mapstructure:"name"`
	Type    ClientType        `mapstructure:"type"`
	URL     string            `mapstructure:"url"`
	Headers map[string]string `mapstructure:"headers"`
	Command string            `mapstructure:"command"`
	Args    []string          `mapstructure:"args"`
	Env     map[string]string `mapstructure:"env"`
}

// Load reads configuration once, in order: a local .env file overlaid onto the
// process environment (existing variables win), then an optional config.yaml
// (or the file named by CONFIG_PATH), then environment variable bindings on
// top. It validates that an API key is present and returns the result.
//
// Load builds a fresh viper instance on every call, so repeated calls with the
// same environment yield the same configuration.
func Load() (*Config, error) {
	if err := overlayDotEnv(".env"); err != nil {
		return nil, err
	}

	v := viper.New()

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, err
			}
		}
	}

	for key, envVar := range envBindings {
		if err := v.BindEnv(key, envVar); err != nil {
			return nil, err
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	if config.LLM.APIKey == "" {
		return nil, ErrMissingAPIKey
	}

	return &config, nil
}

// envBindings maps config keys to the environment variables that override them.
var envBindings = map[string]string{
	"llm.api_key":   "OPENAI_API_KEY",
	"llm.base_url":  "OPENAI_BASE_URL",
	"llm.model":     "OPENAI_MODEL",
	"logging.level": "LOG_LEVEL",
	"history.path":  "HISTORY_DB_PATH",
}

// overlayDotEnv loads the given dotenv file into the process environment
// without clobbering variables that are already set. A missing file is not an
// error; the overlay is optional.
func overlayDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return gotenv.Load(path)
}
