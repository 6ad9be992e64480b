package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	DefaultSentioHost = "https://app.sentio.xyz"
	DefaultServeAddr  = ":3000"
	DefaultServer     = "sentio"
	DefaultServerURL  = "http://localhost:3000/sse"
	DefaultTransport  = "sse"
	DefaultModel      = "openai:gpt-4.1"
	DefaultQuery      = "list all the coins and their price?"
	DefaultLabel      = "Price Response:"
)

type Config struct {
	Sentio  SentioConfig          `toml:"sentio"`
	Serve   ServeConfig           `toml:"serve"`
	Runner  RunnerConfig          `toml:"runner"`
	LLMs    map[string]*LLMConfig `toml:"llm"`
	History HistoryConfig         `toml:"history"`
	Trace   TraceConfig           `toml:"trace"`
}

type SentioConfig struct {
	Host   string `toml:"host"`
	APIKey string `toml:"api_key"`
	Token  string `toml:"token"`
}

type ServeConfig struct {
	Addr string `toml:"addr"`
}

type RunnerConfig struct {
	Model         string                   `toml:"model"`
	Query         string                   `toml:"query"`
	Label         string                   `toml:"label"`
	Timeout       Duration                 `toml:"timeout"`
	SystemPrompt  string                   `toml:"system_prompt"`
	MaxIterations int                      `toml:"max_iterations"` // 0 keeps the agent default
	Servers       map[string]*ServerConfig `toml:"servers"`
}

// ServerConfig describes how to reach one MCP server.
type ServerConfig struct {
	URL       string            `toml:"url"`
	Transport string            `toml:"transport"` // sse, streamable_http or stdio
	Command   string            `toml:"command"`   // stdio only
	Args      []string          `toml:"args"`      // stdio only
	Headers   map[string]string `toml:"headers"`
}

type LLMConfig struct {
	BaseURL   string `toml:"base_url"`
	APIKey    string `toml:"api_key"`
	MaxTokens int64  `toml:"max_tokens"`
}

type HistoryConfig struct {
	Path string `toml:"path"` // empty disables run history
}

type TraceConfig struct {
	Enabled  bool   `toml:"enabled"`
	Endpoint string `toml:"endpoint"`
	URLPath  string `toml:"url_path"`
	APIKey   string `toml:"api_key"`
}

// Duration decodes TOML strings such as "30s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("parsing duration %q: %w", text, err)
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Sentio: SentioConfig{
			Host: DefaultSentioHost,
		},
		Serve: ServeConfig{
			Addr: DefaultServeAddr,
		},
		Runner: RunnerConfig{
			Model: DefaultModel,
			Query: DefaultQuery,
			Label: DefaultLabel,
			Servers: map[string]*ServerConfig{
				DefaultServer: {
					URL:       DefaultServerURL,
					Transport: DefaultTransport,
				},
			},
		},
		LLMs: map[string]*LLMConfig{
			"openai":    {},
			"anthropic": {MaxTokens: 4096},
		},
	}
}

// Load reads the config file if it exists and fills unset secrets from the
// environment.
func Load() (*Config, error) {
	return LoadFile(Path())
}

func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if _, err := os.Stat(path); err == nil {
		// An explicit servers table replaces the default endpoint.
		cfg.Runner.Servers = nil
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("decoding %s: %w", path, err)
		}
		if len(cfg.Runner.Servers) == 0 {
			cfg.Runner.Servers = Default().Runner.Servers
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if c.Sentio.APIKey == "" {
		c.Sentio.APIKey = os.Getenv("SENTIO_API_KEY")
	}
	if c.LLMs == nil {
		c.LLMs = make(map[string]*LLMConfig)
	}
	for name, env := range map[string]string{
		"openai":    "OPENAI_API_KEY",
		"anthropic": "ANTHROPIC_API_KEY",
	} {
		lc, ok := c.LLMs[name]
		if !ok || lc == nil {
			lc = &LLMConfig{}
			c.LLMs[name] = lc
		}
		if lc.APIKey == "" {
			lc.APIKey = os.Getenv(env)
		}
	}
}

// Path returns the location of config.toml. SENTIOMCP_CONFIG overrides it.
func Path() string {
	if p := os.Getenv("SENTIOMCP_CONFIG"); p != "" {
		return p
	}
	dir, _ := os.UserConfigDir()
	return filepath.Join(dir, "sentiomcp", "config.toml")
}
