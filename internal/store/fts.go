package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/starford/moonshine/internal/models"
)

// The trigram tokenizer matches substrings, which suits Korean text that has
// no reliable whitespace word boundaries.
const ftsSchemaSQL = `
CREATE VIRTUAL TABLE IF NOT EXISTS mashes_fts USING fts5(
	summary,
	context,
	memo,
	content = 'mashes',
	content_rowid = 'rowid',
	tokenize = 'trigram'
);

CREATE TRIGGER IF NOT EXISTS mashes_fts_ai AFTER INSERT ON mashes BEGIN
	INSERT INTO mashes_fts (rowid, summary, context, memo)
	VALUES (new.rowid, new.summary, new.context, new.memo);
END;

CREATE TRIGGER IF NOT EXISTS mashes_fts_ad AFTER DELETE ON mashes BEGIN
	INSERT INTO mashes_fts (mashes_fts, rowid, summary, context, memo)
	VALUES ('delete', old.rowid, old.summary, old.context, old.memo);
END;

CREATE TRIGGER IF NOT EXISTS mashes_fts_au AFTER UPDATE OF summary, context, memo ON mashes BEGIN
	INSERT INTO mashes_fts (mashes_fts, rowid, summary, context, memo)
	VALUES ('delete', old.rowid, old.summary, old.context, old.memo);
	INSERT INTO mashes_fts (rowid, summary, context, memo)
	VALUES (new.rowid, new.summary, new.context, new.memo);
END;
`

func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(ftsSchemaSQL)
	return err
}

// SearchKeyword runs an FTS5 trigram MATCH and returns mashes in rank order.
func (s *Store) SearchKeyword(ctx context.Context, query string, limit int) ([]models.Mash, error) {
	rows, err := s.conn.QueryContext(ctx, `
		SELECT m.id, m.type, m.status, m.summary, m.context, m.memo, m.created_at, m.updated_at
		FROM mashes_fts
		JOIN mashes m ON m.rowid = mashes_fts.rowid
		WHERE mashes_fts MATCH ?
		ORDER BY rank
		LIMIT ?
	`, query, limit)
	if err != nil {
		return nil, fmt.Errorf("store: search: %w", err)
	}
	defer rows.Close()
	return scanMashes(rows)
}
