package embedding

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/starford/moonshine/internal/apperr"
	"github.com/starford/moonshine/internal/store"
)

// SettingsReader reads settings by exact key.
type SettingsReader interface {
	Setting(ctx context.Context, key string) (string, bool, error)
}

// Gateway resolves provider, key and model from settings on every call and
// dispatches to the matching provider. Nothing is cached between calls.
type Gateway struct {
	settings SettingsReader
	openai   Provider
	gemini   Provider
	limiter  *rate.Limiter
	log      *slog.Logger
}

type gatewayConfig struct {
	openAIBaseURL string
	geminiBaseURL string
	client        *http.Client
	timeout       time.Duration
	rateLimit     float64
	logger        *slog.Logger
	openai        Provider
	gemini        Provider
}

// Option configures a Gateway.
type Option func(*gatewayConfig)

// WithOpenAIBaseURL overrides the OpenAI endpoint root.
func WithOpenAIBaseURL(u string) Option { return func(c *gatewayConfig) { c.openAIBaseURL = u } }

// WithGeminiBaseURL overrides the Gemini endpoint root.
func WithGeminiBaseURL(u string) Option { return func(c *gatewayConfig) { c.geminiBaseURL = u } }

// WithHTTPClient sets the client used by the built-in providers.
func WithHTTPClient(hc *http.Client) Option { return func(c *gatewayConfig) { c.client = hc } }

// WithTimeout bounds each outbound request. Ignored when WithHTTPClient is set.
func WithTimeout(d time.Duration) Option { return func(c *gatewayConfig) { c.timeout = d } }

// WithRateLimit caps outbound calls at rps requests per second. Zero disables it.
func WithRateLimit(rps float64) Option { return func(c *gatewayConfig) { c.rateLimit = rps } }

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option { return func(c *gatewayConfig) { c.logger = l } }

// WithProviders replaces the built-in providers.
func WithProviders(openai, gemini Provider) Option {
	return func(c *gatewayConfig) {
		c.openai = openai
		c.gemini = gemini
	}
}

// NewGateway creates a Gateway reading its settings from settings.
func NewGateway(settings SettingsReader, opts ...Option) *Gateway {
	cfg := gatewayConfig{timeout: 30 * time.Second, logger: slog.Default()}
	for _, o := range opts {
		o(&cfg)
	}
	if cfg.client == nil {
		cfg.client = &http.Client{Timeout: cfg.timeout}
	}
	if cfg.openai == nil {
		cfg.openai = NewOpenAI(cfg.openAIBaseURL, cfg.client)
	}
	if cfg.gemini == nil {
		cfg.gemini = NewGemini(cfg.geminiBaseURL, cfg.client)
	}

	g := &Gateway{
		settings: settings,
		openai:   cfg.openai,
		gemini:   cfg.gemini,
		log:      cfg.logger,
	}
	if cfg.rateLimit > 0 {
		g.limiter = rate.NewLimiter(rate.Limit(cfg.rateLimit), 1)
	}
	return g
}

// resolved is the provider selection for one call.
type resolved struct {
	provider Provider
	apiKey   string
	model    string
}

func (g *Gateway) resolve(ctx context.Context) (*resolved, error) {
	get := func(key string) (string, error) {
		v, _, err := g.settings.Setting(ctx, key)
		return v, err
	}

	name, err := get(store.SettingEmbeddingProvider)
	if err != nil {
		return nil, fmt.Errorf("embedding: read provider: %w", err)
	}
	// Any value other than gemini selects OpenAI.
	r := &resolved{provider: g.openai}
	keyName := store.SettingOpenAIAPIKey
	if name == ProviderGemini {
		r.provider = g.gemini
		keyName = store.SettingGeminiAPIKey
	}

	if r.apiKey, err = get(keyName); err != nil {
		return nil, fmt.Errorf("embedding: read api key: %w", err)
	}
	if r.apiKey == "" {
		if name == "" {
			name = ProviderOpenAI
		}
		return nil, apperr.Config("No API key configured for provider: %s", name)
	}

	if r.model, err = get(store.SettingEmbeddingModel); err != nil {
		return nil, fmt.Errorf("embedding: read model: %w", err)
	}
	if r.model == "" {
		r.model = r.provider.DefaultModel()
	}
	return r, nil
}

// Embed returns the embedding of text. It issues at most one outbound request
// and never retries.
func (g *Gateway) Embed(ctx context.Context, text string) ([]float32, error) {
	r, err := g.resolve(ctx)
	if err != nil {
		return nil, err
	}
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("embedding: rate limit: %w", err)
		}
	}

	g.log.Debug("generating embedding", "provider", r.provider.Name(), "model", r.model)
	start := time.Now()
	vec, err := r.provider.Embed(ctx, r.apiKey, r.model, text)
	if err != nil {
		return nil, err
	}
	g.log.Debug("embedding generated", "provider", r.provider.Name(), "dims", len(vec), "duration", time.Since(start))
	return vec, nil
}
