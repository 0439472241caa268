// Package graph materializes the published knowledge graph and edits edges.
package graph

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/moonshine/internal/apperr"
	"github.com/starford/moonshine/internal/models"
	"github.com/starford/moonshine/internal/validate"
)

// Change events published after successful edge mutations.
const (
	EventEdgeUpserted = "edge.upserted"
	EventEdgeUpdated  = "edge.updated"
	EventEdgeDeleted  = "edge.deleted"
)

// Store is the storage surface the graph needs.
type Store interface {
	ReadOnly() bool
	MashExists(ctx context.Context, id string) (bool, error)
	NodesByStatus(ctx context.Context, status string, types []string) ([]models.GraphNode, error)
	EdgesBetweenStatus(ctx context.Context, status string, relationTypes, sources []string) ([]models.GraphEdge, error)
	GraphNode(ctx context.Context, id string) (*models.GraphNode, error)
	GraphNodes(ctx context.Context, ids []string) ([]models.GraphNode, error)
	IncidentEdges(ctx context.Context, id string) ([]models.GraphEdge, error)
	UpsertEdge(ctx context.Context, e models.Edge) (*models.Edge, error)
	GetEdge(ctx context.Context, id int64) (*models.Edge, error)
	UpdateEdge(ctx context.Context, id int64, p models.EdgePatch, updatedAt int64) (*models.Edge, error)
	DeleteEdge(ctx context.Context, id int64) error
}

// Notifier receives change events. A nil Notifier is allowed.
type Notifier interface {
	PublishChange(event, id string)
}

// Service serves graph reads and edge writes.
type Service struct {
	store    Store
	notifier Notifier
	log      *slog.Logger
	now      func() time.Time
}

// New creates a graph Service.
func New(s Store, n Notifier, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{store: s, notifier: n, log: log, now: time.Now}
}

func (s *Service) publish(event, id string) {
	if s.notifier != nil {
		s.notifier.PublishChange(event, id)
	}
}

// Filter narrows the graph view. Empty slices mean no restriction.
type Filter struct {
	MashTypes     []string `json:"mash_types"`
	RelationTypes []string `json:"relation_types"`
	Sources       []string `json:"sources"`
}

func (f *Filter) validate() error {
	return validate.Struct(f,
		validation.Field(&f.RelationTypes, validation.Each(validate.OneOf(models.RelationTypes))),
		validation.Field(&f.Sources, validation.Each(validate.OneOf(models.EdgeSources))),
	)
}

// Graph returns the JARRED mashes and the edges among them.
//
// With a type filter, edges are further limited to those whose endpoints
// both survived it, so no edge references a node missing from the result.
func (s *Service) Graph(ctx context.Context, f Filter) (*models.GraphData, error) {
	if err := f.validate(); err != nil {
		return nil, err
	}

	nodes, err := s.store.NodesByStatus(ctx, models.StatusJarred, f.MashTypes)
	if err != nil {
		return nil, err
	}
	edges, err := s.store.EdgesBetweenStatus(ctx, models.StatusJarred, f.RelationTypes, f.Sources)
	if err != nil {
		return nil, err
	}

	if len(f.MashTypes) > 0 {
		ids := make(map[string]struct{}, len(nodes))
		for _, n := range nodes {
			ids[n.ID] = struct{}{}
		}
		kept := edges[:0]
		for _, e := range edges {
			_, okS := ids[e.SourceID]
			_, okT := ids[e.TargetID]
			if okS && okT {
				kept = append(kept, e)
			}
		}
		edges = kept
	}

	return &models.GraphData{Nodes: nonNil(nodes), Edges: nonNil(edges)}, nil
}

// NodeDetail returns a mash with every edge touching it and the mashes at
// the other ends, regardless of their status.
func (s *Service) NodeDetail(ctx context.Context, id string) (*models.NodeDetail, error) {
	node, err := s.store.GraphNode(ctx, id)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, apperr.NotFound("Node not found: %s", id)
	}
	if err != nil {
		return nil, err
	}

	edges, err := s.store.IncidentEdges(ctx, id)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	var neighborIDs []string
	add := func(other string) {
		if other == id {
			return
		}
		if _, ok := seen[other]; ok {
			return
		}
		seen[other] = struct{}{}
		neighborIDs = append(neighborIDs, other)
	}
	for _, e := range edges {
		add(e.SourceID)
		add(e.TargetID)
	}

	var neighbors []models.GraphNode
	if len(neighborIDs) > 0 {
		if neighbors, err = s.store.GraphNodes(ctx, neighborIDs); err != nil {
			return nil, err
		}
	}

	return &models.NodeDetail{Node: *node, Neighbors: nonNil(neighbors), Edges: nonNil(edges)}, nil
}

// AddEdgeParams are the inputs of AddEdge. Empty Source means human; nil
// Confidence means 0.
type AddEdgeParams struct {
	SourceID     string   `json:"source_id"`
	TargetID     string   `json:"target_id"`
	RelationType string   `json:"relation_type"`
	Source       string   `json:"source"`
	Confidence   *float64 `json:"confidence"`
}

func (p *AddEdgeParams) validate() error {
	return validate.Struct(p,
		validation.Field(&p.SourceID, validation.Required),
		validation.Field(&p.TargetID, validation.Required),
		validation.Field(&p.RelationType, validation.Required, validate.OneOf(models.RelationTypes)),
		validation.Field(&p.Source, validate.OneOf(models.EdgeSources)),
		validation.Field(&p.Confidence, validate.FloatBetween(0, 1)),
	)
}

// AddEdge creates the edge source->target or, if that ordered pair already
// exists, overwrites its relation type, source and confidence. id and
// created_at of an existing edge are kept.
func (s *Service) AddEdge(ctx context.Context, p AddEdgeParams) (*models.Edge, error) {
	if s.store.ReadOnly() {
		return nil, apperr.ReadOnly("Cannot add edge: database is in read-only mode")
	}
	if err := p.validate(); err != nil {
		return nil, err
	}
	if p.Source == "" {
		p.Source = models.SourceHuman
	}
	var confidence float64
	if p.Confidence != nil {
		confidence = *p.Confidence
	}

	ok, err := s.store.MashExists(ctx, p.SourceID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.NotFound("Source mash not found: %s", p.SourceID)
	}
	if ok, err = s.store.MashExists(ctx, p.TargetID); err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.NotFound("Target mash not found: %s", p.TargetID)
	}

	now := s.now().UnixMilli()
	edge, err := s.store.UpsertEdge(ctx, models.Edge{
		SourceID:     p.SourceID,
		TargetID:     p.TargetID,
		RelationType: p.RelationType,
		Source:       p.Source,
		Confidence:   confidence,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("edge upserted", "id", edge.ID, "source_id", edge.SourceID, "target_id", edge.TargetID)
	s.publish(EventEdgeUpserted, idString(edge.ID))
	return edge, nil
}

// UpdateEdgeParams are the inputs of UpdateEdge. Nil fields are left unchanged.
type UpdateEdgeParams struct {
	ID           int64    `json:"id"`
	RelationType *string  `json:"relation_type"`
	Confidence   *float64 `json:"confidence"`
}

func (p *UpdateEdgeParams) validate() error {
	return validate.Struct(p,
		validation.Field(&p.RelationType, validation.NilOrNotEmpty, validate.OneOf(models.RelationTypes)),
		validation.Field(&p.Confidence, validate.FloatBetween(0, 1)),
	)
}

// UpdateEdge changes relation type and/or confidence of an existing edge.
func (s *Service) UpdateEdge(ctx context.Context, p UpdateEdgeParams) (*models.Edge, error) {
	if s.store.ReadOnly() {
		return nil, apperr.ReadOnly("Cannot update edge: database is in read-only mode")
	}
	if err := p.validate(); err != nil {
		return nil, err
	}
	if _, err := s.store.GetEdge(ctx, p.ID); err != nil {
		return nil, edgeNotFound(err, p.ID)
	}
	if p.RelationType == nil && p.Confidence == nil {
		return nil, apperr.Validation("No fields to update")
	}

	edge, err := s.store.UpdateEdge(ctx, p.ID, models.EdgePatch{
		RelationType: p.RelationType,
		Confidence:   p.Confidence,
	}, s.now().UnixMilli())
	if err != nil {
		return nil, edgeNotFound(err, p.ID)
	}
	s.publish(EventEdgeUpdated, idString(edge.ID))
	return edge, nil
}

// DeleteEdge removes an edge by id.
func (s *Service) DeleteEdge(ctx context.Context, id int64) error {
	if s.store.ReadOnly() {
		return apperr.ReadOnly("Cannot delete edge: database is in read-only mode")
	}
	if err := s.store.DeleteEdge(ctx, id); err != nil {
		return edgeNotFound(err, id)
	}
	s.log.Info("edge deleted", "id", id)
	s.publish(EventEdgeDeleted, idString(id))
	return nil
}

func edgeNotFound(err error, id int64) error {
	if errors.Is(err, apperr.ErrNotFound) {
		return apperr.NotFound("Edge not found: %d", id)
	}
	return err
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func idString(id int64) string { return strconv.FormatInt(id, 10) }
