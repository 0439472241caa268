package internal

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/moonshine/internal/embedding"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// MCP transports.
const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"
)

// Environment overrides applied when no config file is present.
const (
	EnvDBPath   = "MOONSHINE_DB_PATH"
	EnvReadOnly = "MOONSHINE_READ_ONLY"
)

// Config represents the application configuration.
type Config struct {
	App       ApplicationConfig `yaml:"app"`
	SQLite    SQLiteConfig      `yaml:"sqlite"`
	MCP       MCPConfig         `yaml:"mcp"`
	Auth      AuthConfig        `yaml:"auth"`
	Embedding EmbeddingConfig   `yaml:"embedding"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
	}
	if err := c.MCP.Validate(); err != nil {
		return err
	}
	if c.MCP.Transport == TransportHTTP && !c.App.HTTP.Enabled {
		return fmt.Errorf("mcp: transport %q requires app.http.enabled", TransportHTTP)
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	return c.Embedding.Validate()
}

// ApplyEnv overrides the database settings from the environment.
func (c *Config) ApplyEnv() error {
	if p := os.Getenv(EnvDBPath); p != "" {
		c.SQLite.Path = p
	}
	if v := os.Getenv(EnvReadOnly); v != "" {
		ro, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvReadOnly, err)
		}
		c.SQLite.ReadOnly = ro
	}
	return nil
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration. The server hosts the REST API,
// the SSE stream and, with the http transport, the MCP endpoint.
type HTTPConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path     string `yaml:"path"`
	ReadOnly bool   `yaml:"read_only"`
	Watch    bool   `yaml:"watch"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// MCPConfig selects how the MCP server is exposed.
type MCPConfig struct {
	Transport string `yaml:"transport"`
}

// Validate validates the MCP configuration.
func (c *MCPConfig) Validate() error {
	if c.Transport == "" {
		c.Transport = TransportStdio
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Transport, validation.Required, validation.In(TransportStdio, TransportHTTP)),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// EmbeddingConfig holds embedding provider transport settings. Provider,
// API keys and model live in the database settings table.
type EmbeddingConfig struct {
	OpenAIBaseURL string        `yaml:"openai_base_url"`
	GeminiBaseURL string        `yaml:"gemini_base_url"`
	Timeout       time.Duration `yaml:"timeout"`
	// RateLimit is in requests per second; zero disables limiting.
	RateLimit float64 `yaml:"rate_limit"`
}

// Validate validates the embedding configuration.
func (c *EmbeddingConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.OpenAIBaseURL, validation.Required),
		validation.Field(&c.GeminiBaseURL, validation.Required),
		validation.Field(&c.Timeout, validation.Min(time.Duration(0))),
		validation.Field(&c.RateLimit, validation.Min(0.0)),
	)
}

// DefaultDBPath returns the database location under the user's data directory.
func DefaultDBPath() string {
	base := os.Getenv("XDG_DATA_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "moonshine.db"
		}
		base = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(base, "com.moonshine.app", "moonshine.db")
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Enabled: false,
				Port:    8080,
			},
		},
		SQLite: SQLiteConfig{
			Path:  DefaultDBPath(),
			Watch: true,
		},
		MCP: MCPConfig{
			Transport: TransportStdio,
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Embedding: EmbeddingConfig{
			OpenAIBaseURL: embedding.DefaultOpenAIBaseURL,
			GeminiBaseURL: embedding.DefaultGeminiBaseURL,
			Timeout:       30 * time.Second,
		},
	}
}
