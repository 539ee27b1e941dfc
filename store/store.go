// Package store keeps submitted forms in an append-only SQLite table.
package store

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"github.com/maimai/spacetarot"
)

const driverName = "sqlite"

const createUsersTable = `CREATE TABLE IF NOT EXISTS users (
	name text,
	birth_date text,
	favorite_color text,
	spirit_animal text,
	mood text,
	email text
)`

const insertUser = `INSERT INTO users (name, birth_date, favorite_color, spirit_animal, mood, email) VALUES (?, ?, ?, ?, ?, ?)`

// Store appends one row per submission. It never reads, updates or deletes.
type Store struct {
	db     *sql.DB
	logger logrus.FieldLogger
}

// Open opens the database file at path, creating its directory if needed.
func Open(ctx context.Context, path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrap(err, "failed to create data dir")
		}
	}

	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s", path)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errors.Wrapf(err, "failed to connect to %s", path)
	}

	return New(db), nil
}

func New(db *sql.DB) *Store {
	return &Store{db: db, logger: logrus.StandardLogger()}
}

func (s *Store) WithLogger(logger logrus.FieldLogger) *Store {
	s.logger = logger
	return s
}

// Initialize creates the users table. Safe to call on every start.
func (s *Store) Initialize(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, createUsersTable); err != nil {
		return errors.Wrap(err, "failed to create users table")
	}
	s.logger.Debug("users table created/verified")

	return nil
}

// Append inserts the submission as a new row. Duplicates are allowed.
func (s *Store) Append(ctx context.Context, sub tarot.Submission) error {
	_, err := s.db.ExecContext(ctx, insertUser,
		sub.Name,
		sub.BirthDate,
		sub.FavoriteColor,
		sub.SpiritAnimal,
		sub.Mood,
		sub.Email,
	)
	if err != nil {
		return errors.Wrap(err, "failed to insert user")
	}

	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
