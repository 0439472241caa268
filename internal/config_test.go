package internal

import (
	"strings"
	"testing"
)

func TestAuthConfig_DisabledMode(t *testing.T) {
	cfg := AuthConfig{Mode: "disabled", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled mode should pass: %v", err)
	}
	if cfg.AuthEnabled() {
		t.Error("disabled mode should not be enabled")
	}
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{Mode: "", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled {
		t.Errorf("mode = %q, want %q", cfg.Mode, AuthModeDisabled)
	}
}

func TestAuthConfig_TokenModeValid(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: "mysecret"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("token mode with token should pass: %v", err)
	}
	if !cfg.AuthEnabled() {
		t.Error("token mode should be enabled")
	}
}

func TestAuthConfig_TokenModeEmptyToken(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: ""}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("token mode with empty token should fail")
	}
	if !strings.Contains(err.Error(), "token is empty") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAuthConfig_InvalidMode(t *testing.T) {
	cfg := AuthConfig{Mode: "magic", Token: "x"}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("invalid mode should fail validation")
	}
}

func TestFullConfig_AuthValidationCalled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Auth.Mode = "token"
	cfg.Auth.Token = ""
	err := cfg.Validate()
	if err == nil {
		t.Fatal("full config validate should catch auth error")
	}
}

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	if cfg.MCP.Transport != TransportStdio || cfg.App.HTTP.Enabled {
		t.Errorf("defaults = %+v", cfg)
	}
	if !strings.HasSuffix(cfg.SQLite.Path, "com.moonshine.app/moonshine.db") {
		t.Errorf("db path = %q", cfg.SQLite.Path)
	}
}

func TestDefaultDBPath_XDG(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/data")
	if got := DefaultDBPath(); got != "/data/com.moonshine.app/moonshine.db" {
		t.Errorf("DefaultDBPath = %q", got)
	}
}

func TestMCPConfig_Transport(t *testing.T) {
	cfg := MCPConfig{}
	if err := cfg.Validate(); err != nil || cfg.Transport != TransportStdio {
		t.Fatalf("empty transport: err=%v transport=%q", err, cfg.Transport)
	}
	cfg.Transport = "grpc"
	if err := cfg.Validate(); err == nil {
		t.Error("unknown transport should fail")
	}
}

func TestFullConfig_HTTPTransportNeedsServer(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.MCP.Transport = TransportHTTP
	if err := cfg.Validate(); err == nil {
		t.Fatal("http transport without http server should fail")
	}
	cfg.App.HTTP.Enabled = true
	if err := cfg.Validate(); err != nil {
		t.Fatalf("http transport with server: %v", err)
	}
}

func TestHTTPConfig_PortCheckedOnlyWhenEnabled(t *testing.T) {
	cfg := HTTPConfig{Port: 70000}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled server should skip port check: %v", err)
	}
	cfg.Enabled = true
	if err := cfg.Validate(); err == nil {
		t.Error("out-of-range port should fail")
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv(EnvDBPath, "/tmp/other.db")
	t.Setenv(EnvReadOnly, "true")
	cfg := NewDefaultConfig()
	if err := cfg.ApplyEnv(); err != nil {
		t.Fatal(err)
	}
	if cfg.SQLite.Path != "/tmp/other.db" || !cfg.SQLite.ReadOnly {
		t.Errorf("sqlite = %+v", cfg.SQLite)
	}

	t.Setenv(EnvReadOnly, "sometimes")
	if err := NewDefaultConfig().ApplyEnv(); err == nil {
		t.Error("unparsable read-only flag should fail")
	}
}

func TestEmbeddingConfig_Validate(t *testing.T) {
	cfg := NewDefaultConfig().Embedding
	cfg.RateLimit = -1
	if err := cfg.Validate(); err == nil {
		t.Error("negative rate limit should fail")
	}
}
