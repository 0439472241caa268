package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/starford/moonshine/internal/models"
)

func TestFTS5_TableExists(t *testing.T) {
	s, _ := testStore(t)
	var count int
	if err := s.conn.QueryRow(`SELECT count(*) FROM mashes_fts`).Scan(&count); err != nil {
		t.Fatalf("mashes_fts table missing: %v", err)
	}
}

func TestFTS5_UpdateReplacesContent(t *testing.T) {
	s, _ := testStore(t)
	ctx := context.Background()
	insert(t, s, "evo", models.TypeInsight, models.StatusJarred, "original wording", 1)

	summary := "replacement wording"
	if err := s.UpdateMash(ctx, "evo", models.MashPatch{Summary: &summary}, 2); err != nil {
		t.Fatal(err)
	}

	results, _ := s.SearchKeyword(ctx, "original", 10)
	if len(results) != 0 {
		t.Error("old FTS content should be gone")
	}
	results, _ = s.SearchKeyword(ctx, "replacement", 10)
	if len(results) != 1 || results[0].ID != "evo" {
		t.Errorf("FTS not updated: %+v", results)
	}
}

func TestFTS5_DeleteRemovesFromIndex(t *testing.T) {
	s, _ := testStore(t)
	ctx := context.Background()
	insert(t, s, "gone", models.TypeInsight, models.StatusJarred, "vanishing content", 1)
	_ = s.DeleteMash(ctx, "gone")

	results, _ := s.SearchKeyword(ctx, "vanishing", 10)
	if len(results) != 0 {
		t.Errorf("deleted mash still in FTS index: %+v", results)
	}
}

func TestFTS5_TrigramMatchesInsideWords(t *testing.T) {
	s, _ := testStore(t)
	insert(t, s, "ko", models.TypeInsight, models.StatusJarred, "지식베이스검색", 1)

	results, err := s.SearchKeyword(context.Background(), "베이스", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 {
		t.Errorf("trigram substring match failed: %+v", results)
	}
}

func TestFTS5_DriverCompiledIn(t *testing.T) {
	s, _ := testStore(t)
	var used int
	if err := s.conn.QueryRow(`SELECT sqlite_compileoption_used('ENABLE_FTS5')`).Scan(&used); err != nil {
		t.Fatal(err)
	}
	if used != 1 {
		t.Fatal("sqlite driver built without FTS5")
	}
}

// A database created by another client already carries the FTS table and
// triggers; writes and ranked search must work against it.
func TestFTS5_ExistingIndexedDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shared.db")
	raw, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := raw.Exec(coreSchemaSQL); err != nil {
		t.Fatal(err)
	}
	if _, err := raw.Exec(ftsSchemaSQL); err != nil {
		t.Fatalf("create fts schema: %v", err)
	}
	raw.Close()

	s, err := Open(path, Options{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	insert(t, s, "a", models.TypeInsight, models.StatusJarred, "증류 공정의 핵심", 1)
	summary := "증류 공정의 핵심 온도"
	if err := s.UpdateMash(ctx, "a", models.MashPatch{Summary: &summary}, 2); err != nil {
		t.Fatalf("UpdateMash: %v", err)
	}

	results, err := s.SearchKeyword(ctx, "공정의", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].Summary != summary {
		t.Fatalf("results = %+v", results)
	}

	if err := s.DeleteMash(ctx, "a"); err != nil {
		t.Fatalf("DeleteMash: %v", err)
	}
}
