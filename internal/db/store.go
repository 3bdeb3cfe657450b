package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"blog/internal/store"
)

var _ store.Store = (*Store)(nil)

// Store is the sqlite implementation of store.Store. Posts keep their
// comment and up-voter references in the comments and post_votes tables.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// OpenStore creates the parent directory of path if needed, opens the
// database and applies the schema.
func OpenStore(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}
	dbc, err := Open(path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := Migrate(dbc); err != nil {
		dbc.Close()
		return nil, err
	}
	return New(dbc), nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
