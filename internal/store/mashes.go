package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/starford/moonshine/internal/apperr"
	"github.com/starford/moonshine/internal/models"
)

const mashColumns = `id, type, status, summary, context, memo, created_at, updated_at`

// ListFilter narrows ListMashes. Empty strings mean no filter.
type ListFilter struct {
	Status string
	Type   string
	Limit  int
	Offset int
}

func scanMashes(rows *sql.Rows) ([]models.Mash, error) {
	out := []models.Mash{}
	for rows.Next() {
		var m models.Mash
		if err := rows.Scan(&m.ID, &m.Type, &m.Status, &m.Summary, &m.Context, &m.Memo, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// ListMashes returns mashes newest first.
func (s *Store) ListMashes(ctx context.Context, f ListFilter) ([]models.Mash, error) {
	var conds []string
	var args []any
	if f.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, f.Status)
	}
	if f.Type != "" {
		conds = append(conds, "type = ?")
		args = append(args, f.Type)
	}
	where := ""
	if len(conds) > 0 {
		where = "WHERE " + strings.Join(conds, " AND ")
	}
	args = append(args, f.Limit, f.Offset)

	rows, err := s.conn.QueryContext(ctx,
		`SELECT `+mashColumns+` FROM mashes `+where+` ORDER BY created_at DESC LIMIT ? OFFSET ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("store: list mashes: %w", err)
	}
	defer rows.Close()
	return scanMashes(rows)
}

// GetMash returns one mash. A missing id yields an error matching apperr.ErrNotFound.
func (s *Store) GetMash(ctx context.Context, id string) (*models.Mash, error) {
	var m models.Mash
	err := s.conn.QueryRowContext(ctx, `SELECT `+mashColumns+` FROM mashes WHERE id = ?`, id).
		Scan(&m.ID, &m.Type, &m.Status, &m.Summary, &m.Context, &m.Memo, &m.CreatedAt, &m.UpdatedAt)
	if notFound(err) {
		return nil, fmt.Errorf("store: mash %s: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("store: get mash: %w", err)
	}
	return &m, nil
}

// MashExists reports whether a mash with id is stored.
func (s *Store) MashExists(ctx context.Context, id string) (bool, error) {
	var one int
	err := s.conn.QueryRowContext(ctx, `SELECT 1 FROM mashes WHERE id = ?`, id).Scan(&one)
	if notFound(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("store: mash exists: %w", err)
	}
	return true, nil
}

// InsertMash stores a new mash.
func (s *Store) InsertMash(ctx context.Context, m models.Mash) error {
	_, err := s.conn.ExecContext(ctx, `
		INSERT INTO mashes (id, type, status, summary, context, memo, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, m.ID, m.Type, m.Status, m.Summary, m.Context, m.Memo, m.CreatedAt, m.UpdatedAt)
	if err != nil {
		return fmt.Errorf("store: insert mash: %w", err)
	}
	return nil
}

// UpdateMash applies a partial update and bumps updated_at. The patch must
// not be empty.
func (s *Store) UpdateMash(ctx context.Context, id string, p models.MashPatch, updatedAt int64) error {
	var sets []string
	var args []any
	add := func(col string, v *string) {
		if v != nil {
			sets = append(sets, col+" = ?")
			args = append(args, *v)
		}
	}
	add("type", p.Type)
	add("status", p.Status)
	add("summary", p.Summary)
	add("context", p.Context)
	add("memo", p.Memo)
	if len(sets) == 0 {
		return fmt.Errorf("store: update mash: empty patch")
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, updatedAt, id)

	res, err := s.conn.ExecContext(ctx, `UPDATE mashes SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return fmt.Errorf("store: update mash: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("store: mash %s: %w", id, apperr.ErrNotFound)
	}
	return nil
}

// DeleteMash removes a mash; its edges go with it via ON DELETE CASCADE.
func (s *Store) DeleteMash(ctx context.Context, id string) error {
	res, err := s.conn.ExecContext(ctx, `DELETE FROM mashes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("store: delete mash: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("store: mash %s: %w", id, apperr.ErrNotFound)
	}
	return nil
}

// SetEmbedding stores the raw embedding blob of a mash. A nil blob clears it.
func (s *Store) SetEmbedding(ctx context.Context, id string, blob []byte) error {
	res, err := s.conn.ExecContext(ctx, `UPDATE mashes SET embedding = ? WHERE id = ?`, blob, id)
	if err != nil {
		return fmt.Errorf("store: set embedding: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("store: mash %s: %w", id, apperr.ErrNotFound)
	}
	return nil
}

// EmbeddedMashes loads every mash that has an embedding, in rowid order.
// This is a full scan; there is no nearest-neighbor index.
func (s *Store) EmbeddedMashes(ctx context.Context) ([]models.EmbeddedMash, error) {
	rows, err := s.conn.QueryContext(ctx, `
		SELECT id, type, summary, context, memo, embedding
		FROM mashes
		WHERE embedding IS NOT NULL
		ORDER BY rowid
	`)
	if err != nil {
		return nil, fmt.Errorf("store: embedded mashes: %w", err)
	}
	defer rows.Close()

	var out []models.EmbeddedMash
	for rows.Next() {
		var m models.EmbeddedMash
		if err := rows.Scan(&m.ID, &m.Type, &m.Summary, &m.Context, &m.Memo, &m.Embedding); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Stats counts mashes by status and type, and edges.
func (s *Store) Stats(ctx context.Context) (*models.Stats, error) {
	st := &models.Stats{ByStatus: map[string]int{}, ByType: map[string]int{}}

	count := func(query string, into map[string]int) error {
		rows, err := s.conn.QueryContext(ctx, query)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var k string
			var n int
			if err := rows.Scan(&k, &n); err != nil {
				return err
			}
			into[k] = n
		}
		return rows.Err()
	}

	if err := count(`SELECT status, COUNT(*) FROM mashes GROUP BY status`, st.ByStatus); err != nil {
		return nil, fmt.Errorf("store: stats by status: %w", err)
	}
	if err := count(`SELECT type, COUNT(*) FROM mashes GROUP BY type`, st.ByType); err != nil {
		return nil, fmt.Errorf("store: stats by type: %w", err)
	}
	if err := s.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM mashes`).Scan(&st.TotalMashes); err != nil {
		return nil, fmt.Errorf("store: count mashes: %w", err)
	}
	if err := s.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM edges`).Scan(&st.TotalEdges); err != nil {
		return nil, fmt.Errorf("store: count edges: %w", err)
	}
	return st, nil
}
