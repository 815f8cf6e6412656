package content

import (
	"context"
	"database/sql"

	"github.com/FocuswithJustin/versefinder/core/errors"
	"github.com/FocuswithJustin/versefinder/core/refparse"
	"github.com/FocuswithJustin/versefinder/core/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS verses (
	book    TEXT    NOT NULL,
	chapter INTEGER NOT NULL,
	verse   INTEGER NOT NULL,
	text    TEXT    NOT NULL,
	PRIMARY KEY (book, chapter, verse)
);
CREATE TABLE IF NOT EXISTS imports (
	fingerprint TEXT PRIMARY KEY,
	path        TEXT NOT NULL,
	rows        INTEGER NOT NULL,
	imported_at TEXT NOT NULL
);
`

// Store is a SQLite-backed verse store.
type Store struct {
	db   *sql.DB
	path string
}

// OpenStore opens (and if needed creates) the verse store at path.
func OpenStore(ctx context.Context, path string) (*Store, error) {
	db, err := sqlite.Open(path)
	if err != nil {
		return nil, errors.NewIO("open", path, err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, errors.NewIO("initialize", path, err)
	}
	return &Store{db: db, path: path}, nil
}

// OpenStoreReadOnly opens an existing verse store for lookups. It fails if
// the database does not exist.
func OpenStoreReadOnly(ctx context.Context, path string) (*Store, error) {
	db, err := sqlite.OpenReadOnly(path)
	if err != nil {
		return nil, errors.NewIO("open", path, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.NewIO("open", path, err)
	}
	return &Store{db: db, path: path}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Name implements Provider.
func (s *Store) Name() string { return "sqlite" }

// Lookup implements Provider. A reference with no stored verses is
// reported as not found.
func (s *Store) Lookup(ctx context.Context, ref refparse.Reference) ([]string, error) {
	r := ref.Ref()

	var (
		rows *sql.Rows
		err  error
	)
	if r.IsChapter() {
		rows, err = s.db.QueryContext(ctx,
			`SELECT text FROM verses WHERE book = ? AND chapter = ? ORDER BY verse`,
			r.Book, r.Chapter)
	} else {
		rows, err = s.db.QueryContext(ctx,
			`SELECT text FROM verses WHERE book = ? AND chapter = ? AND verse BETWEEN ? AND ? ORDER BY verse`,
			r.Book, r.Chapter, r.VerseStart, r.VerseEnd)
	}
	if err != nil {
		return nil, errors.NewProvider(s.Name(), ref.String(), err)
	}
	defer rows.Close()

	var lines []string
	for rows.Next() {
		var text string
		if err := rows.Scan(&text); err != nil {
			return nil, errors.NewProvider(s.Name(), ref.String(), err)
		}
		lines = append(lines, text)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewProvider(s.Name(), ref.String(), err)
	}
	if len(lines) == 0 {
		return nil, errors.NewNotFound("verses", ref.String())
	}

	return lines, nil
}

// Count returns the number of stored verses.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM verses`).Scan(&n)
	return n, err
}
