package mashservice

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/starford/moonshine/internal/apperr"
	"github.com/starford/moonshine/internal/checksum"
	"github.com/starford/moonshine/internal/models"
	"github.com/starford/moonshine/internal/store"
	"github.com/starford/moonshine/internal/testutil"
)

type recorder struct{ events []string }

func (r *recorder) PublishChange(event, id string) { r.events = append(r.events, event+":"+id) }

func ptr[T any](v T) *T { return &v }

func newService(t *testing.T) (*Service, *store.Store, *recorder) {
	t.Helper()
	s, _ := testutil.TestStore(t)
	rec := &recorder{}
	svc := NewService(s, rec, nil)
	svc.now = func() time.Time { return time.UnixMilli(1_700_000_000_000) }
	return svc, s, rec
}

func TestCreateAndGet(t *testing.T) {
	svc, _, rec := newService(t)
	ctx := context.Background()

	m, err := svc.Create(ctx, CreateParams{Type: models.TypeDecision, Summary: "use sqlite"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if m.Status != models.StatusMashTun {
		t.Errorf("status = %q, want MASH_TUN", m.Status)
	}
	if len(m.ID) != 36 {
		t.Errorf("id %q is not a UUID", m.ID)
	}
	if m.CreatedAt != 1_700_000_000_000 || m.UpdatedAt != m.CreatedAt {
		t.Errorf("timestamps = %d/%d", m.CreatedAt, m.UpdatedAt)
	}
	if m.Context != "" || m.Memo != "" {
		t.Errorf("context/memo should default to empty: %+v", m)
	}

	got, err := svc.Get(ctx, m.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Summary != "use sqlite" {
		t.Errorf("summary = %q", got.Summary)
	}
	if len(rec.events) != 1 || rec.events[0] != EventMashCreated+":"+m.ID {
		t.Errorf("events = %v", rec.events)
	}
}

func TestCreate_Validation(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()
	for _, p := range []CreateParams{
		{Type: "memo", Summary: "x"},
		{Type: models.TypeDecision, Summary: ""},
		{Summary: "x"},
	} {
		if _, err := svc.Create(ctx, p); !errors.Is(err, apperr.ErrValidation) {
			t.Errorf("Create(%+v) err = %v, want validation", p, err)
		}
	}
}

func TestGet_NotFound(t *testing.T) {
	svc, _, _ := newService(t)
	_, err := svc.Get(context.Background(), "missing-id")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("err = %v", err)
	}
	if err.Error() != "Mash not found: missing-id" {
		t.Errorf("message = %q", err.Error())
	}
}

func TestList(t *testing.T) {
	svc, s, _ := newService(t)
	ctx := context.Background()
	testutil.Mash(t, s, "a", models.TypeProblem, models.StatusJarred, "a")
	testutil.Mash(t, s, "b", models.TypeInsight, models.StatusMashTun, "b")

	all, err := svc.List(ctx, ListParams{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("len = %d", len(all))
	}

	jarred, _ := svc.List(ctx, ListParams{Status: models.StatusJarred})
	if len(jarred) != 1 || jarred[0].ID != "a" {
		t.Errorf("jarred = %+v", jarred)
	}

	for _, p := range []ListParams{
		{Status: "BOTTLED"},
		{Type: "memo"},
		{Limit: ptr(0)},
		{Limit: ptr(201)},
		{Offset: ptr(-1)},
	} {
		if _, err := svc.List(ctx, p); !errors.Is(err, apperr.ErrValidation) {
			t.Errorf("List(%+v) err = %v, want validation", p, err)
		}
	}
}

func TestUpdate(t *testing.T) {
	svc, s, rec := newService(t)
	ctx := context.Background()
	testutil.Mash(t, s, "m", models.TypeProblem, models.StatusMashTun, "before")

	got, err := svc.Update(ctx, UpdateParams{ID: "m", Summary: ptr("after"), Memo: ptr("")})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got.Summary != "after" || got.Type != models.TypeProblem || got.UpdatedAt != 1_700_000_000_000 {
		t.Errorf("updated = %+v", got)
	}

	got, err = svc.Update(ctx, UpdateParams{ID: "m", Status: ptr(models.StatusJarred)})
	if err != nil {
		t.Fatalf("Update status: %v", err)
	}
	if got.Status != models.StatusJarred {
		t.Errorf("status = %q", got.Status)
	}
	if len(rec.events) != 2 {
		t.Errorf("events = %v", rec.events)
	}
}

func TestUpdate_Errors(t *testing.T) {
	svc, s, _ := newService(t)
	ctx := context.Background()
	testutil.Mash(t, s, "m", models.TypeProblem, models.StatusMashTun, "x")

	_, err := svc.Update(ctx, UpdateParams{ID: "m"})
	if err == nil || err.Error() != "No fields to update" {
		t.Errorf("empty patch err = %v", err)
	}
	_, err = svc.Update(ctx, UpdateParams{ID: "ghost", Memo: ptr("x")})
	if err == nil || err.Error() != "Mash not found: ghost" {
		t.Errorf("missing err = %v", err)
	}
	_, err = svc.Update(ctx, UpdateParams{ID: "m", Summary: ptr("")})
	if !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("empty summary err = %v", err)
	}
	_, err = svc.Update(ctx, UpdateParams{ID: "m", Status: ptr("BOTTLED")})
	if !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("bad status err = %v", err)
	}
}

func TestDelete_CascadesEdges(t *testing.T) {
	svc, s, _ := newService(t)
	ctx := context.Background()
	testutil.Mash(t, s, "a", models.TypeProblem, models.StatusJarred, "")
	testutil.Mash(t, s, "b", models.TypeProblem, models.StatusJarred, "")
	testutil.Edge(t, s, "a", "b", models.RelationSupports, 0)

	if err := svc.Delete(ctx, "a"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	st, _ := svc.Stats(ctx)
	if st.TotalMashes != 1 || st.TotalEdges != 0 {
		t.Errorf("stats after delete = %+v", st)
	}
	if err := svc.Delete(ctx, "a"); err == nil || err.Error() != "Mash not found: a" {
		t.Errorf("second delete err = %v", err)
	}
}

func TestReadOnlyRefusesMashWrites(t *testing.T) {
	s := testutil.ReadOnlyStore(t, func(w *store.Store) {
		testutil.Mash(t, w, "m", models.TypeProblem, models.StatusJarred, "kept")
	})
	rec := &recorder{}
	svc := NewService(s, rec, nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateParams{Type: models.TypeProblem, Summary: "x"})
	if !errors.Is(err, apperr.ErrReadOnly) || err.Error() != "Cannot create: database is in read-only mode" {
		t.Errorf("create err = %v", err)
	}
	_, err = svc.Update(ctx, UpdateParams{ID: "m", Summary: ptr("changed")})
	if !errors.Is(err, apperr.ErrReadOnly) || err.Error() != "Cannot update: database is in read-only mode" {
		t.Errorf("update err = %v", err)
	}
	err = svc.Delete(ctx, "m")
	if !errors.Is(err, apperr.ErrReadOnly) || err.Error() != "Cannot delete: database is in read-only mode" {
		t.Errorf("delete err = %v", err)
	}

	m, err := svc.Get(ctx, "m")
	if err != nil || m.Summary != "kept" {
		t.Errorf("mash changed in read-only mode: %+v, %v", m, err)
	}
	if len(rec.events) != 0 {
		t.Errorf("events = %v", rec.events)
	}
}

func TestUpdate_IfMatch(t *testing.T) {
	svc, s, _ := newService(t)
	m := testutil.Mash(t, s, "m1", models.TypeProblem, models.StatusMashTun, "v1")

	summary := "v2"
	if _, err := svc.Update(context.Background(), UpdateParams{ID: "m1", Summary: &summary, IfMatch: "bogus"}); !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("stale checksum err = %v, want conflict", err)
	}

	got, err := svc.Update(context.Background(), UpdateParams{ID: "m1", Summary: &summary, IfMatch: checksum.Mash(m)})
	if err != nil {
		t.Fatalf("matching checksum: %v", err)
	}
	if got.Summary != "v2" {
		t.Errorf("summary = %q", got.Summary)
	}
}
