package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/moonshine/internal/apperr"
	"github.com/starford/moonshine/internal/store"
)

type mapSettings map[string]string

func (m mapSettings) Setting(_ context.Context, key string) (string, bool, error) {
	v, ok := m[key]
	return v, ok, nil
}

func TestEmbed_OpenAIRequestShape(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "hello", body["input"])
		assert.Equal(t, "text-embedding-3-small", body["model"])

		_, _ = io.WriteString(w, `{"data":[{"embedding":[0.1,0.2,0.3]}]}`)
	}))
	defer srv.Close()

	g := NewGateway(mapSettings{store.SettingOpenAIAPIKey: "sk-test"}, WithOpenAIBaseURL(srv.URL))
	vec, err := g.Embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vec)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestEmbed_GeminiRequestShape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1beta/models/custom-model:embedContent", r.URL.Path)
		assert.Equal(t, "g-key", r.URL.Query().Get("key"))
		assert.Empty(t, r.Header.Get("Authorization"))

		var body struct {
			Model   string `json:"model"`
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
			TaskType string `json:"taskType"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "models/custom-model", body.Model)
		require.Len(t, body.Content.Parts, 1)
		assert.Equal(t, "질문", body.Content.Parts[0].Text)
		assert.Equal(t, "RETRIEVAL_QUERY", body.TaskType)

		_, _ = io.WriteString(w, `{"embedding":{"values":[1,0]}}`)
	}))
	defer srv.Close()

	g := NewGateway(mapSettings{
		store.SettingEmbeddingProvider: "gemini",
		store.SettingGeminiAPIKey:      "g-key",
		store.SettingEmbeddingModel:    "custom-model",
	}, WithGeminiBaseURL(srv.URL))

	vec, err := g.Embed(context.Background(), "질문")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0}, vec)
}

func TestEmbed_GeminiDefaultModel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1beta/models/gemini-embedding-001:embedContent", r.URL.Path)
		_, _ = io.WriteString(w, `{"embedding":{"values":[1]}}`)
	}))
	defer srv.Close()

	g := NewGateway(mapSettings{
		store.SettingEmbeddingProvider: "gemini",
		store.SettingGeminiAPIKey:      "g-key",
	}, WithGeminiBaseURL(srv.URL))
	_, err := g.Embed(context.Background(), "x")
	require.NoError(t, err)
}

func TestEmbed_MissingKeyMakesNoCall(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer srv.Close()

	tests := []struct {
		name     string
		settings mapSettings
		wantMsg  string
	}{
		{"openai default", mapSettings{}, "No API key configured for provider: openai"},
		{"gemini", mapSettings{store.SettingEmbeddingProvider: "gemini", store.SettingOpenAIAPIKey: "sk"}, "No API key configured for provider: gemini"},
		{"empty key", mapSettings{store.SettingOpenAIAPIKey: ""}, "No API key configured for provider: openai"},
		{"unknown provider", mapSettings{store.SettingEmbeddingProvider: "cohere"}, "No API key configured for provider: cohere"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewGateway(tt.settings, WithOpenAIBaseURL(srv.URL), WithGeminiBaseURL(srv.URL))
			_, err := g.Embed(context.Background(), "q")
			require.Error(t, err)
			assert.True(t, errors.Is(err, apperr.ErrConfig))
			assert.Equal(t, tt.wantMsg, err.Error())
		})
	}
	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestEmbed_UnknownProviderFallsBackToOpenAI(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/embeddings", r.URL.Path)
		_, _ = io.WriteString(w, `{"data":[{"embedding":[1]}]}`)
	}))
	defer srv.Close()

	g := NewGateway(mapSettings{
		store.SettingEmbeddingProvider: "cohere",
		store.SettingOpenAIAPIKey:      "sk",
	}, WithOpenAIBaseURL(srv.URL))
	_, err := g.Embed(context.Background(), "q")
	require.NoError(t, err)
}

func TestEmbed_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, "invalid key")
	}))
	defer srv.Close()

	g := NewGateway(mapSettings{store.SettingOpenAIAPIKey: "bad"}, WithOpenAIBaseURL(srv.URL))
	_, err := g.Embed(context.Background(), "q")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrUpstream))
	assert.Equal(t, "OpenAI embedding API error: 401 invalid key", err.Error())

	gg := NewGateway(mapSettings{store.SettingEmbeddingProvider: "gemini", store.SettingGeminiAPIKey: "bad"}, WithGeminiBaseURL(srv.URL))
	_, err = gg.Embed(context.Background(), "q")
	require.Error(t, err)
	assert.Equal(t, "Gemini embedding API error: 401 invalid key", err.Error())
}

func TestEmbed_RateLimitedStillOneCall(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		_, _ = io.WriteString(w, `{"data":[{"embedding":[1]}]}`)
	}))
	defer srv.Close()

	g := NewGateway(mapSettings{store.SettingOpenAIAPIKey: "sk"}, WithOpenAIBaseURL(srv.URL), WithRateLimit(100))
	for i := 0; i < 3; i++ {
		_, err := g.Embed(context.Background(), "q")
		require.NoError(t, err)
	}
	assert.EqualValues(t, 3, atomic.LoadInt32(&calls))
}

type stubProvider struct {
	name  string
	calls int
}

func (s *stubProvider) Name() string         { return s.name }
func (s *stubProvider) DefaultModel() string { return s.name + "-model" }
func (s *stubProvider) Embed(_ context.Context, apiKey, model, _ string) ([]float32, error) {
	s.calls++
	if apiKey == "" || model == "" {
		return nil, errors.New("missing key or model")
	}
	return []float32{1}, nil
}

func TestEmbed_SettingsReReadEachCall(t *testing.T) {
	oa := &stubProvider{name: ProviderOpenAI}
	gm := &stubProvider{name: ProviderGemini}
	settings := mapSettings{store.SettingOpenAIAPIKey: "sk", store.SettingGeminiAPIKey: "gk"}
	g := NewGateway(settings, WithProviders(oa, gm))

	_, err := g.Embed(context.Background(), "q")
	require.NoError(t, err)
	settings[store.SettingEmbeddingProvider] = ProviderGemini
	_, err = g.Embed(context.Background(), "q")
	require.NoError(t, err)

	assert.Equal(t, 1, oa.calls)
	assert.Equal(t, 1, gm.calls)
}
