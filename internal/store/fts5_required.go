//go:build !sqlite_fts5 && !fts5

package store

// Moonshine shares its database with clients that keep an FTS5 index on
// mashes; every write fires FTS5 triggers. The driver must be built with
// FTS5: go build -tags sqlite_fts5 ./...
var _ = sqliteDriverBuiltWithoutFTS5TagSqliteFts5Required
