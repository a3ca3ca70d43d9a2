package sqldb

import (
	"strconv"
	"strings"
)

// Dialect captures the differences between the supported databases.
type Dialect struct {
	Name string
	// Driver is the database/sql driver name.
	Driver string
	// Numbered placeholders ($1, $2) instead of '?'.
	Numbered bool
}

var (
	// SQLite is the embedded dialect backed by github.com/ncruces/go-sqlite3.
	SQLite = Dialect{Name: "sqlite", Driver: "sqlite3"}
	// Postgres is backed by github.com/lib/pq.
	Postgres = Dialect{Name: "postgres", Driver: "postgres", Numbered: true}
)

// Rebind rewrites '?' placeholders for the dialect.
func (d Dialect) Rebind(query string) string {
	if !d.Numbered {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

const schema = `
CREATE TABLE IF NOT EXISTS reel_folders (
	id        TEXT PRIMARY KEY,
	name      TEXT NOT NULL,
	position  INTEGER NOT NULL,
	collapsed INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS reel_slides (
	id          TEXT PRIMARY KEY,
	title       TEXT NOT NULL DEFAULT '',
	position    INTEGER NOT NULL,
	folder_id   TEXT NOT NULL DEFAULT '',
	connections TEXT NOT NULL DEFAULT '',
	elements    TEXT NOT NULL DEFAULT '',
	revision    BIGINT NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_reel_slides_position ON reel_slides(position);
`
