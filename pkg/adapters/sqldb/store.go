package sqldb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aretw0/reel/pkg/domain"
	_ "github.com/lib/pq"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// Store implements ports.SlideStore on a relational database.
// Slide revisions are checked inside a transaction and the UPDATE is guarded
// by the revision it read, so concurrent writers cannot both win.
type Store struct {
	db      *sql.DB
	dialect Dialect
}

// OpenSQLite opens (or creates) a SQLite database file and migrates it.
func OpenSQLite(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}
	db, err := sql.Open(SQLite.Driver, "file:"+path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	return newStore(db, SQLite)
}

// OpenPostgres connects to Postgres using a lib/pq DSN and migrates it.
func OpenPostgres(dsn string) (*Store, error) {
	db, err := sql.Open(Postgres.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}
	return newStore(db, Postgres)
}

// New wraps an open database. The schema is created if missing.
func New(db *sql.DB, dialect Dialect) (*Store, error) {
	return newStore(db, dialect)
}

func newStore(db *sql.DB, dialect Dialect) (*Store, error) {
	s := &Store{db: db, dialect: dialect}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate %s: %w", dialect.Name, err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) q(query string) string {
	return s.dialect.Rebind(query)
}

// Seed replaces every folder and slide.
func (s *Store) Seed(ctx context.Context, deck *domain.Deck) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin seed: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM reel_slides`); err != nil {
		return fmt.Errorf("clear slides: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM reel_folders`); err != nil {
		return fmt.Errorf("clear folders: %w", err)
	}
	for _, f := range deck.Folders {
		if _, err := tx.ExecContext(ctx,
			s.q(`INSERT INTO reel_folders (id, name, position, collapsed) VALUES (?, ?, ?, ?)`),
			f.ID, f.Name, f.Order, boolToInt(f.Collapsed),
		); err != nil {
			return fmt.Errorf("insert folder %s: %w", f.ID, err)
		}
	}
	for _, sl := range deck.Slides {
		conns, err := encodeJSON(sl.Connections)
		if err != nil {
			return fmt.Errorf("encode connections of %s: %w", sl.ID, err)
		}
		elements, err := encodeJSON(sl.Elements)
		if err != nil {
			return fmt.Errorf("encode elements of %s: %w", sl.ID, err)
		}
		if _, err := tx.ExecContext(ctx,
			s.q(`INSERT INTO reel_slides (id, title, position, folder_id, connections, elements, revision) VALUES (?, ?, ?, ?, ?, ?, ?)`),
			sl.ID, sl.Title, sl.Order, sl.FolderID, conns, elements, sl.Revision,
		); err != nil {
			return fmt.Errorf("insert slide %s: %w", sl.ID, err)
		}
	}
	return tx.Commit()
}

// LoadDeck implements ports.SlideStore.
func (s *Store) LoadDeck(ctx context.Context) (*domain.Deck, error) {
	deck := &domain.Deck{}

	frows, err := s.db.QueryContext(ctx, `SELECT id, name, position, collapsed FROM reel_folders ORDER BY position, id`)
	if err != nil {
		return nil, fmt.Errorf("query folders: %w", err)
	}
	defer frows.Close()
	for frows.Next() {
		var f domain.Folder
		var collapsed int
		if err := frows.Scan(&f.ID, &f.Name, &f.Order, &collapsed); err != nil {
			return nil, fmt.Errorf("scan folder: %w", err)
		}
		f.Collapsed = collapsed != 0
		deck.Folders = append(deck.Folders, f)
	}
	if err := frows.Err(); err != nil {
		return nil, fmt.Errorf("iterate folders: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT id, title, position, folder_id, connections, elements, revision FROM reel_slides ORDER BY position, id`)
	if err != nil {
		return nil, fmt.Errorf("query slides: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var sl domain.Slide
		var conns, elements string
		if err := rows.Scan(&sl.ID, &sl.Title, &sl.Order, &sl.FolderID, &conns, &elements, &sl.Revision); err != nil {
			return nil, fmt.Errorf("scan slide: %w", err)
		}
		if err := decodeJSON(conns, &sl.Connections); err != nil {
			return nil, fmt.Errorf("decode connections of %s: %w", sl.ID, err)
		}
		if err := decodeJSON(elements, &sl.Elements); err != nil {
			return nil, fmt.Errorf("decode elements of %s: %w", sl.ID, err)
		}
		deck.Slides = append(deck.Slides, sl)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate slides: %w", err)
	}
	return deck, nil
}

// SetOrder implements ports.SlideStore.
func (s *Store) SetOrder(ctx context.Context, slideID string, order int, revision int64) (int64, error) {
	return s.update(ctx, slideID, revision,
		func(sl *domain.Slide) bool { return sl.Order == order },
		`UPDATE reel_slides SET position = ?, revision = revision + 1 WHERE id = ? AND revision = ?`,
		order,
	)
}

// SetConnections implements ports.SlideStore.
func (s *Store) SetConnections(ctx context.Context, slideID string, conns domain.Connections, revision int64) (int64, error) {
	encoded, err := encodeJSON(conns.Clone())
	if err != nil {
		return 0, fmt.Errorf("encode connections: %w", err)
	}
	return s.update(ctx, slideID, revision,
		func(sl *domain.Slide) bool { return sl.Connections.Equal(&conns) },
		`UPDATE reel_slides SET connections = ?, revision = revision + 1 WHERE id = ? AND revision = ?`,
		encoded,
	)
}

func (s *Store) update(ctx context.Context, slideID string, revision int64, unchanged func(*domain.Slide) bool, stmt string, value any) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin update: %w", err)
	}
	defer tx.Rollback()

	var sl domain.Slide
	var conns string
	err = tx.QueryRowContext(ctx,
		s.q(`SELECT position, connections, revision FROM reel_slides WHERE id = ?`), slideID,
	).Scan(&sl.Order, &conns, &sl.Revision)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%w: %s", domain.ErrSlideNotFound, slideID)
	}
	if err != nil {
		return 0, fmt.Errorf("read slide %s: %w", slideID, err)
	}
	if err := decodeJSON(conns, &sl.Connections); err != nil {
		return 0, fmt.Errorf("decode connections of %s: %w", slideID, err)
	}

	if unchanged(&sl) {
		return sl.Revision, nil
	}
	if err := domain.CheckRevision(slideID, revision, sl.Revision); err != nil {
		return 0, err
	}

	res, err := tx.ExecContext(ctx, s.q(stmt), value, slideID, revision)
	if err != nil {
		return 0, fmt.Errorf("update slide %s: %w", slideID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("update slide %s: %w", slideID, err)
	}
	if n == 0 {
		var actual int64
		if err := tx.QueryRowContext(ctx,
			s.q(`SELECT revision FROM reel_slides WHERE id = ?`), slideID,
		).Scan(&actual); err != nil {
			return 0, fmt.Errorf("read revision of %s: %w", slideID, err)
		}
		return 0, &domain.ConflictError{SlideID: slideID, Expected: revision, Actual: actual}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit slide %s: %w", slideID, err)
	}
	return revision + 1, nil
}

func encodeJSON(v any) (string, error) {
	switch x := v.(type) {
	case *domain.Connections:
		if x.IsEmpty() {
			return "", nil
		}
	case []domain.GatingElement:
		if len(x) == 0 {
			return "", nil
		}
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func decodeJSON(raw string, v any) error {
	if raw == "" {
		return nil
	}
	return json.Unmarshal([]byte(raw), v)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
