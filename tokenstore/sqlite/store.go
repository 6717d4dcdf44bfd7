package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/jrsteele09/go-jwt-session/internal/errors"
	"github.com/jrsteele09/go-jwt-session/tokenstore"

	// register sqlite3 for database/sql
	_ "github.com/mattn/go-sqlite3"
)

var _ tokenstore.Store = (*Store)(nil)

// Store keeps tokens in a SQLite file. It backs the durable tier.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrapf(err, "sqlite.Open %s", path)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS token (
			Key       TEXT PRIMARY KEY,
			Value     TEXT NOT NULL,
			UpdatedAt DATETIME
		);
	`)
	return errors.Wrapf(err, "sqlite.migrate")
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	var value string
	row := s.db.QueryRowContext(ctx, `SELECT Value FROM token WHERE Key = ?`, key)
	if err := row.Scan(&value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", errors.ErrNotFound
		}
		return "", errors.Wrapf(err, "sqlite.Get %s", key)
	}
	return value, nil
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO token (Key, Value, UpdatedAt) VALUES (?, ?, ?)
		ON CONFLICT(Key) DO UPDATE SET Value = excluded.Value, UpdatedAt = excluded.UpdatedAt`,
		key, value, time.Now().UTC())
	return errors.Wrapf(err, "sqlite.Set %s", key)
}

func (s *Store) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM token WHERE Key = ?`, key)
	return errors.Wrapf(err, "sqlite.Delete %s", key)
}

func (s *Store) Close() error {
	return s.db.Close()
}
