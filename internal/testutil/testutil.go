// Package testutil provides shared test helpers for setting up databases and seed data.
package testutil

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/moonshine/internal/models"
	"github.com/starford/moonshine/internal/store"
)

// TestStore creates a temporary writable SQLite store that is automatically cleaned up.
// It also returns the database path so callers can reopen it.
func TestStore(t *testing.T) (*store.Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "moonshine-test.db")
	s, err := store.Open(path, store.Options{})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s, path
}

// ReadOnlyStore seeds a database with seed, closes it and reopens it read-only.
func ReadOnlyStore(t *testing.T, seed func(s *store.Store)) *store.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "moonshine-ro.db")
	w, err := store.Open(path, store.Options{})
	if err != nil {
		t.Fatal(err)
	}
	if seed != nil {
		seed(w)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatal(err)
	}

	s, err := store.Open(path, store.Options{ReadOnly: true})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// Mash inserts a mash with the given fields and fixed timestamps.
func Mash(t *testing.T, s *store.Store, id, typ, status, summary string) models.Mash {
	t.Helper()
	m := models.Mash{ID: id, Type: typ, Status: status, Summary: summary, CreatedAt: 1000, UpdatedAt: 1000}
	if err := s.InsertMash(context.Background(), m); err != nil {
		t.Fatal(err)
	}
	return m
}

// Edge upserts an edge between two existing mashes.
func Edge(t *testing.T, s *store.Store, source, target, relation string, confidence float64) *models.Edge {
	t.Helper()
	e, err := s.UpsertEdge(context.Background(), models.Edge{
		SourceID:     source,
		TargetID:     target,
		RelationType: relation,
		Source:       models.SourceAI,
		Confidence:   confidence,
		CreatedAt:    1000,
		UpdatedAt:    1000,
	})
	if err != nil {
		t.Fatal(err)
	}
	return e
}
