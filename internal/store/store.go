package store

import (
	"database/sql"
	"os"
	"path/filepath"

	"codeberg.org/mutker/axemon/internal/errors"
	"codeberg.org/mutker/axemon/internal/logger"
	_ "github.com/mattn/go-sqlite3"
)

const defaultDirPerm = 0o755

// Store wraps the SQLite database. Appends from concurrent pollers are
// serialized by the driver; readers run alongside writers under WAL.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and applies pending
// migrations. Foreign keys are enforced so appends referencing unknown
// devices or configurations are rejected by the engine itself.
func Open(path string) (*Store, error) {
	errFactory := errors.New()

	if path == "" {
		return nil, errFactory.New(ErrInvalidDBPath)
	}

	if dir := filepath.Dir(path); dir != "." && path != ":memory:" {
		if err := os.MkdirAll(dir, defaultDirPerm); err != nil {
			return nil, errFactory.Wrap(ErrStorageInit, err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, errFactory.Wrap(ErrStorageInit, err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, errFactory.Wrap(ErrSchemaInitFailed, err)
	}

	logger.Info().
		Str("path", path).
		Int("schema_version", SchemaVersion).
		Msg("Store opened")

	return s, nil
}

// migrate applies pending schema migrations.
func (s *Store) migrate() error {
	var currentVersion int
	err := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&currentVersion)
	if err != nil {
		// Fresh database: run the initial schema.
		if _, err := s.db.Exec(Schema); err != nil {
			return err
		}
		_, err = s.db.Exec("INSERT INTO schema_version (version) VALUES (?)", SchemaVersion)
		return err
	}

	for v := currentVersion + 1; v <= SchemaVersion; v++ {
		migration, ok := Migrations[v]
		if !ok {
			continue
		}
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
		if _, err := s.db.Exec("INSERT INTO schema_version (version) VALUES (?)", v); err != nil {
			return err
		}
	}

	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return errors.New().Wrap(ErrStorageClose, err)
	}

	return nil
}

// DB returns the underlying connection for advanced queries.
func (s *Store) DB() *sql.DB {
	return s.db
}
