// Package retrieval implements keyword and semantic search over mashes.
//
// Semantic search is a full scan: every stored embedding is decoded and
// compared with the query vector on each call. There is no nearest-neighbor
// index, so cost grows linearly with the number of embedded mashes.
package retrieval

import (
	"context"
	"log/slog"
	"strconv"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/moonshine/internal/apperr"
	"github.com/starford/moonshine/internal/models"
	"github.com/starford/moonshine/internal/store"
	"github.com/starford/moonshine/internal/validate"
)

// Defaults used when the call omits a value and settings hold none.
const (
	DefaultKeywordLimit = 20
	MaxKeywordLimit     = 100
	DefaultThreshold    = 0.3
	DefaultTopK         = 5
	MaxTopK             = 50
)

// Store is the storage surface retrieval needs.
type Store interface {
	SearchKeyword(ctx context.Context, query string, limit int) ([]models.Mash, error)
	EmbeddedMashes(ctx context.Context) ([]models.EmbeddedMash, error)
	Setting(ctx context.Context, key string) (string, bool, error)
}

// Embedder produces a query vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Service runs searches.
type Service struct {
	store    Store
	embedder Embedder
	log      *slog.Logger
}

// New creates a retrieval Service.
func New(s Store, e Embedder, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{store: s, embedder: e, log: log}
}

// KeywordParams are the inputs of a keyword search. A nil Limit means the default.
type KeywordParams struct {
	Query string `json:"query"`
	Limit *int   `json:"limit"`
}

func (p *KeywordParams) validate() error {
	return validate.Struct(p,
		validation.Field(&p.Query, validation.Required),
		validation.Field(&p.Limit, validate.IntBetween(1, MaxKeywordLimit)),
	)
}

// SearchKeyword delegates to the storage full-text index. Ordering is the
// index's relevance order.
func (s *Service) SearchKeyword(ctx context.Context, p KeywordParams) ([]models.Mash, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	limit := DefaultKeywordLimit
	if p.Limit != nil {
		limit = *p.Limit
	}
	res, err := s.store.SearchKeyword(ctx, p.Query, limit)
	if err != nil {
		return nil, err
	}
	if res == nil {
		res = []models.Mash{}
	}
	return res, nil
}

// SemanticParams are the inputs of a semantic search. Nil fields take their
// defaults from settings.
type SemanticParams struct {
	Query     string   `json:"query"`
	Threshold *float64 `json:"threshold"`
	TopK      *int     `json:"top_k"`
}

func (p *SemanticParams) validate() error {
	return validate.Struct(p,
		validation.Field(&p.Query, validation.Required),
		validation.Field(&p.Threshold, validate.FloatBetween(0, 1)),
		validation.Field(&p.TopK, validate.IntBetween(1, MaxTopK)),
	)
}

// SearchSemantic embeds the query, scans every stored embedding and returns
// the top matches at or above the threshold, most similar first.
//
// An embedding failure is returned before any candidate is loaded.
func (s *Service) SearchSemantic(ctx context.Context, p SemanticParams) ([]models.SimilarResult, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}

	threshold, topK := s.defaults(ctx)
	if p.Threshold != nil {
		threshold = *p.Threshold
	}
	if p.TopK != nil {
		topK = *p.TopK
	}

	query, err := s.embedder.Embed(ctx, p.Query)
	if err != nil {
		s.log.Error("embedding generation failed", "error", err)
		kind := apperr.KindOf(err)
		if kind == nil {
			kind = apperr.ErrUpstream
		}
		return nil, apperr.New(kind, "Embedding generation failed: %s", err.Error())
	}

	candidates, err := s.store.EmbeddedMashes(ctx)
	if err != nil {
		return nil, err
	}
	return Rank(query, candidates, threshold, topK), nil
}

// defaults reads pipeline_threshold and pipeline_top_k. Missing or
// unparsable values fall back to the built-in defaults.
func (s *Service) defaults(ctx context.Context) (float64, int) {
	threshold, topK := DefaultThreshold, DefaultTopK

	if v, ok, err := s.store.Setting(ctx, store.SettingPipelineThreshold); err != nil {
		s.log.Warn("read setting failed", "key", store.SettingPipelineThreshold, "error", err)
	} else if ok && v != "" {
		if f, perr := strconv.ParseFloat(v, 64); perr == nil {
			threshold = f
		} else {
			s.log.Warn("invalid setting, using default", "key", store.SettingPipelineThreshold, "value", v)
		}
	}

	if v, ok, err := s.store.Setting(ctx, store.SettingPipelineTopK); err != nil {
		s.log.Warn("read setting failed", "key", store.SettingPipelineTopK, "error", err)
	} else if ok && v != "" {
		if n, perr := strconv.Atoi(v); perr == nil {
			topK = n
		} else {
			s.log.Warn("invalid setting, using default", "key", store.SettingPipelineTopK, "value", v)
		}
	}
	return threshold, topK
}
