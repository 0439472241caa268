// Package mashservice implements CRUD and statistics over mashes.
package mashservice

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"github.com/starford/moonshine/internal/apperr"
	"github.com/starford/moonshine/internal/checksum"
	"github.com/starford/moonshine/internal/models"
	"github.com/starford/moonshine/internal/store"
	"github.com/starford/moonshine/internal/validate"
)

// Change events published after successful mash mutations.
const (
	EventMashCreated = "mash.created"
	EventMashUpdated = "mash.updated"
	EventMashDeleted = "mash.deleted"
)

// List bounds.
const (
	DefaultListLimit = 50
	MaxListLimit     = 200
)

// Store is the storage surface the service needs.
type Store interface {
	ReadOnly() bool
	Stats(ctx context.Context) (*models.Stats, error)
	ListMashes(ctx context.Context, f store.ListFilter) ([]models.Mash, error)
	GetMash(ctx context.Context, id string) (*models.Mash, error)
	InsertMash(ctx context.Context, m models.Mash) error
	UpdateMash(ctx context.Context, id string, p models.MashPatch, updatedAt int64) error
	DeleteMash(ctx context.Context, id string) error
}

// Notifier receives change events. A nil Notifier is allowed.
type Notifier interface {
	PublishChange(event, id string)
}

// Service coordinates mash storage and change notification.
type Service struct {
	store    Store
	notifier Notifier
	log      *slog.Logger
	now      func() time.Time
	newID    func() string
}

// NewService creates a new mash service.
func NewService(s Store, n Notifier, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{store: s, notifier: n, log: log, now: time.Now, newID: uuid.NewString}
}

func (s *Service) publish(event, id string) {
	if s.notifier != nil {
		s.notifier.PublishChange(event, id)
	}
}

// Stats returns counts by status and type plus the edge total.
func (s *Service) Stats(ctx context.Context) (*models.Stats, error) {
	return s.store.Stats(ctx)
}

// ListParams filter and paginate List. Nil Limit/Offset take defaults.
type ListParams struct {
	Status string `json:"status"`
	Type   string `json:"type"`
	Limit  *int   `json:"limit"`
	Offset *int   `json:"offset"`
}

func (p *ListParams) validate() error {
	return validate.Struct(p,
		validation.Field(&p.Status, validate.OneOf(models.MashStatuses)),
		validation.Field(&p.Type, validate.OneOf(models.MashTypes)),
		validation.Field(&p.Limit, validate.IntBetween(1, MaxListLimit)),
		validation.Field(&p.Offset, validate.IntBetween(0, math.MaxInt)),
	)
}

// List returns mashes newest first.
func (s *Service) List(ctx context.Context, p ListParams) ([]models.Mash, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	f := store.ListFilter{Status: p.Status, Type: p.Type, Limit: DefaultListLimit}
	if p.Limit != nil {
		f.Limit = *p.Limit
	}
	if p.Offset != nil {
		f.Offset = *p.Offset
	}
	return s.store.ListMashes(ctx, f)
}

// Get returns one mash.
func (s *Service) Get(ctx context.Context, id string) (*models.Mash, error) {
	m, err := s.store.GetMash(ctx, id)
	if err != nil {
		return nil, mashNotFound(err, id)
	}
	return m, nil
}

// CreateParams are the inputs of Create.
type CreateParams struct {
	Type    string `json:"type"`
	Summary string `json:"summary"`
	Context string `json:"context"`
	Memo    string `json:"memo"`
}

func (p *CreateParams) validate() error {
	return validate.Struct(p,
		validation.Field(&p.Type, validation.Required, validate.OneOf(models.MashTypes)),
		validation.Field(&p.Summary, validation.Required),
	)
}

// Create inserts a new mash in the MASH_TUN status with a fresh UUID.
func (s *Service) Create(ctx context.Context, p CreateParams) (*models.Mash, error) {
	if s.store.ReadOnly() {
		return nil, apperr.ReadOnly("Cannot create: database is in read-only mode")
	}
	if err := p.validate(); err != nil {
		return nil, err
	}

	now := s.now().UnixMilli()
	m := models.Mash{
		ID:        s.newID(),
		Type:      p.Type,
		Status:    models.StatusMashTun,
		Summary:   p.Summary,
		Context:   p.Context,
		Memo:      p.Memo,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.InsertMash(ctx, m); err != nil {
		return nil, err
	}
	s.log.Info("mash created", "id", m.ID, "type", m.Type)
	s.publish(EventMashCreated, m.ID)
	return s.store.GetMash(ctx, m.ID)
}

// UpdateParams are the inputs of Update. Nil fields are left unchanged.
// Status is only set by the REST surface; no transition rules apply.
type UpdateParams struct {
	ID      string  `json:"id"`
	Type    *string `json:"type"`
	Status  *string `json:"status"`
	Summary *string `json:"summary"`
	Context *string `json:"context"`
	Memo    *string `json:"memo"`
	// IfMatch, when set, must equal the checksum of the stored mash.
	IfMatch string `json:"-"`
}

func (p *UpdateParams) validate() error {
	return validate.Struct(p,
		validation.Field(&p.ID, validation.Required),
		validation.Field(&p.Type, validation.NilOrNotEmpty, validate.OneOf(models.MashTypes)),
		validation.Field(&p.Status, validation.NilOrNotEmpty, validate.OneOf(models.MashStatuses)),
		validation.Field(&p.Summary, validation.NilOrNotEmpty),
	)
}

// Update applies a partial update and returns the resulting mash.
func (s *Service) Update(ctx context.Context, p UpdateParams) (*models.Mash, error) {
	if s.store.ReadOnly() {
		return nil, apperr.ReadOnly("Cannot update: database is in read-only mode")
	}
	if err := p.validate(); err != nil {
		return nil, err
	}
	cur, err := s.store.GetMash(ctx, p.ID)
	if err != nil {
		return nil, mashNotFound(err, p.ID)
	}
	if p.IfMatch != "" && checksum.Mash(*cur) != p.IfMatch {
		return nil, apperr.Conflict("Mash was modified: checksum mismatch")
	}

	patch := models.MashPatch{Type: p.Type, Status: p.Status, Summary: p.Summary, Context: p.Context, Memo: p.Memo}
	if patch.Empty() {
		return nil, apperr.Validation("No fields to update")
	}
	if err := s.store.UpdateMash(ctx, p.ID, patch, s.now().UnixMilli()); err != nil {
		return nil, mashNotFound(err, p.ID)
	}
	s.publish(EventMashUpdated, p.ID)
	return s.store.GetMash(ctx, p.ID)
}

// Delete removes a mash and, by cascade, its edges.
func (s *Service) Delete(ctx context.Context, id string) error {
	if s.store.ReadOnly() {
		return apperr.ReadOnly("Cannot delete: database is in read-only mode")
	}
	if err := s.store.DeleteMash(ctx, id); err != nil {
		return mashNotFound(err, id)
	}
	s.log.Info("mash deleted", "id", id)
	s.publish(EventMashDeleted, id)
	return nil
}

func mashNotFound(err error, id string) error {
	if errors.Is(err, apperr.ErrNotFound) {
		return apperr.NotFound("Mash not found: %s", id)
	}
	return err
}
