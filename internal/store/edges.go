package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/starford/moonshine/internal/apperr"
	"github.com/starford/moonshine/internal/models"
)

const edgeColumns = `id, source_id, target_id, relation_type, source, confidence, created_at, updated_at`

func scanEdge(row interface{ Scan(...any) error }) (*models.Edge, error) {
	var e models.Edge
	if err := row.Scan(&e.ID, &e.SourceID, &e.TargetID, &e.RelationType, &e.Source, &e.Confidence, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return nil, err
	}
	return &e, nil
}

// UpsertEdge inserts the edge or, when the ordered (source_id, target_id)
// pair already exists, overwrites relation_type, source, confidence and
// updated_at. id and created_at of an existing row are kept.
func (s *Store) UpsertEdge(ctx context.Context, e models.Edge) (*models.Edge, error) {
	_, err := s.conn.ExecContext(ctx, `
		INSERT INTO edges (source_id, target_id, relation_type, source, confidence, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(source_id, target_id) DO UPDATE SET
			relation_type = excluded.relation_type,
			source        = excluded.source,
			confidence    = excluded.confidence,
			updated_at    = excluded.updated_at
	`, e.SourceID, e.TargetID, e.RelationType, e.Source, e.Confidence, e.CreatedAt, e.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("store: upsert edge: %w", err)
	}

	row := s.conn.QueryRowContext(ctx,
		`SELECT `+edgeColumns+` FROM edges WHERE source_id = ? AND target_id = ?`, e.SourceID, e.TargetID)
	out, err := scanEdge(row)
	if err != nil {
		return nil, fmt.Errorf("store: reload edge: %w", err)
	}
	return out, nil
}

// GetEdge returns one edge. A missing id yields an error matching apperr.ErrNotFound.
func (s *Store) GetEdge(ctx context.Context, id int64) (*models.Edge, error) {
	e, err := scanEdge(s.conn.QueryRowContext(ctx, `SELECT `+edgeColumns+` FROM edges WHERE id = ?`, id))
	if notFound(err) {
		return nil, fmt.Errorf("store: edge %d: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("store: get edge: %w", err)
	}
	return e, nil
}

// UpdateEdge applies a partial update and returns the resulting row.
func (s *Store) UpdateEdge(ctx context.Context, id int64, p models.EdgePatch, updatedAt int64) (*models.Edge, error) {
	var sets []string
	var args []any
	if p.RelationType != nil {
		sets = append(sets, "relation_type = ?")
		args = append(args, *p.RelationType)
	}
	if p.Confidence != nil {
		sets = append(sets, "confidence = ?")
		args = append(args, *p.Confidence)
	}
	if len(sets) == 0 {
		return nil, fmt.Errorf("store: update edge: empty patch")
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, updatedAt, id)

	res, err := s.conn.ExecContext(ctx, `UPDATE edges SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("store: update edge: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("store: edge %d: %w", id, apperr.ErrNotFound)
	}
	return s.GetEdge(ctx, id)
}

// DeleteEdge removes an edge by id.
func (s *Store) DeleteEdge(ctx context.Context, id int64) error {
	res, err := s.conn.ExecContext(ctx, `DELETE FROM edges WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("store: delete edge: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("store: edge %d: %w", id, apperr.ErrNotFound)
	}
	return nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func stringArgs(vals []string) []any {
	out := make([]any, len(vals))
	for i, v := range vals {
		out[i] = v
	}
	return out
}

func scanGraphNodes(rows *sql.Rows) ([]models.GraphNode, error) {
	out := []models.GraphNode{}
	for rows.Next() {
		var n models.GraphNode
		if err := rows.Scan(&n.ID, &n.Type, &n.Summary, &n.Context, &n.Memo, &n.CreatedAt, &n.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func scanGraphEdges(rows *sql.Rows) ([]models.GraphEdge, error) {
	out := []models.GraphEdge{}
	for rows.Next() {
		var e models.GraphEdge
		if err := rows.Scan(&e.ID, &e.SourceID, &e.TargetID, &e.RelationType, &e.Source, &e.Confidence); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

const graphNodeColumns = `id, type, summary, context, memo, created_at, updated_at`
const graphEdgeColumns = `id, source_id, target_id, relation_type, source, confidence`

// NodesByStatus returns the mashes with the given status, optionally limited
// to a set of types, in rowid order.
func (s *Store) NodesByStatus(ctx context.Context, status string, types []string) ([]models.GraphNode, error) {
	query := `SELECT ` + graphNodeColumns + ` FROM mashes WHERE status = ?`
	args := []any{status}
	if len(types) > 0 {
		query += ` AND type IN (` + placeholders(len(types)) + `)`
		args = append(args, stringArgs(types)...)
	}
	query += ` ORDER BY rowid`

	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: nodes by status: %w", err)
	}
	defer rows.Close()
	return scanGraphNodes(rows)
}

// EdgesBetweenStatus returns edges whose endpoints both have the given
// status, optionally limited by relation type and provenance source.
func (s *Store) EdgesBetweenStatus(ctx context.Context, status string, relationTypes, sources []string) ([]models.GraphEdge, error) {
	query := `SELECT ` + graphEdgeColumns + ` FROM edges
		WHERE source_id IN (SELECT id FROM mashes WHERE status = ?)
		AND target_id IN (SELECT id FROM mashes WHERE status = ?)`
	args := []any{status, status}
	if len(relationTypes) > 0 {
		query += ` AND relation_type IN (` + placeholders(len(relationTypes)) + `)`
		args = append(args, stringArgs(relationTypes)...)
	}
	if len(sources) > 0 {
		query += ` AND source IN (` + placeholders(len(sources)) + `)`
		args = append(args, stringArgs(sources)...)
	}
	query += ` ORDER BY id`

	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: edges between status: %w", err)
	}
	defer rows.Close()
	return scanGraphEdges(rows)
}

// GraphNode returns one mash in graph form.
func (s *Store) GraphNode(ctx context.Context, id string) (*models.GraphNode, error) {
	var n models.GraphNode
	err := s.conn.QueryRowContext(ctx, `SELECT `+graphNodeColumns+` FROM mashes WHERE id = ?`, id).
		Scan(&n.ID, &n.Type, &n.Summary, &n.Context, &n.Memo, &n.CreatedAt, &n.UpdatedAt)
	if notFound(err) {
		return nil, fmt.Errorf("store: mash %s: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("store: graph node: %w", err)
	}
	return &n, nil
}

// GraphNodes returns the mashes with the given ids in rowid order. Unknown ids are skipped.
func (s *Store) GraphNodes(ctx context.Context, ids []string) ([]models.GraphNode, error) {
	if len(ids) == 0 {
		return []models.GraphNode{}, nil
	}
	rows, err := s.conn.QueryContext(ctx,
		`SELECT `+graphNodeColumns+` FROM mashes WHERE id IN (`+placeholders(len(ids))+`) ORDER BY rowid`,
		stringArgs(ids)...)
	if err != nil {
		return nil, fmt.Errorf("store: graph nodes: %w", err)
	}
	defer rows.Close()
	return scanGraphNodes(rows)
}

// IncidentEdges returns every edge where id is the source or the target.
func (s *Store) IncidentEdges(ctx context.Context, id string) ([]models.GraphEdge, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT `+graphEdgeColumns+` FROM edges WHERE source_id = ? OR target_id = ? ORDER BY id`, id, id)
	if err != nil {
		return nil, fmt.Errorf("store: incident edges: %w", err)
	}
	defer rows.Close()
	return scanGraphEdges(rows)
}
