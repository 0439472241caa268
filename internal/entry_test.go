package internal

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/starford/moonshine/internal/api"
	"github.com/starford/moonshine/internal/embedding"
	"github.com/starford/moonshine/internal/graph"
	"github.com/starford/moonshine/internal/mashservice"
	"github.com/starford/moonshine/internal/retrieval"
	"github.com/starford/moonshine/internal/testutil"
)

func testHandler(t *testing.T, cfg *Config, mcpHandler http.Handler) http.Handler {
	t.Helper()
	st, _ := testutil.TestStore(t)
	h := api.NewHandler(
		mashservice.NewService(st, nil, nil),
		graph.New(st, nil, nil),
		retrieval.New(st, embedding.NewGateway(st), nil),
	)
	return newHTTPHandler(cfg, st, h, nil, mcpHandler)
}

func TestHealthEndpoints(t *testing.T) {
	router := testHandler(t, NewDefaultConfig(), nil)

	for _, path := range []string{"/health/live", "/health/ready"} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		if w.Code != http.StatusOK {
			t.Errorf("%s = %d", path, w.Code)
		}
		if !strings.Contains(w.Body.String(), `"status":"ok"`) {
			t.Errorf("%s body = %s", path, w.Body.String())
		}
	}
}

func TestAPIMountedUnderPrefix(t *testing.T) {
	router := testHandler(t, NewDefaultConfig(), nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/stats", nil))
	if w.Code != http.StatusOK {
		t.Errorf("/api/stats = %d", w.Code)
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/mcp", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("/mcp without http transport = %d, want 404", w.Code)
	}
}

func TestMCPEndpointRequiresToken(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Auth = AuthConfig{Mode: AuthModeToken, Token: "tok"}
	mcpStub := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})
	router := testHandler(t, cfg, mcpStub)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/mcp", nil))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("/mcp without token = %d, want 401", w.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/mcp", nil)
	req.Header.Set("Authorization", "Bearer tok")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusAccepted {
		t.Errorf("/mcp with token = %d, want 202", w.Code)
	}
}

func TestRun_RequiresConfig(t *testing.T) {
	if err := Run(context.Background()); err == nil {
		t.Fatal("Run without config should fail")
	}
}

func TestRun_StdioExitsOnEOF(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.SQLite.Path = filepath.Join(t.TempDir(), "data", "moonshine.db")
	cfg.SQLite.Watch = false

	done := make(chan error, 1)
	go func() {
		var out bytes.Buffer
		done <- Run(context.Background(),
			WithConfig(cfg),
			WithVersion("test"),
			WithStdio(strings.NewReader(""), &out),
		)
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after stdin closed")
	}
}
