package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver registration.

	"boosty_rss/internal/model"
	"boosty_rss/migrations"
)

const timeLayout = "2006-01-02T15:04:05Z"

// SQLite implements CredentialStore backed by a SQLite database.
// The credentials table holds at most one row.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at dsn and runs pending migrations.
func NewSQLite(dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if err := migrations.Run(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLite{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// Load returns the stored credentials.
func (s *SQLite) Load(ctx context.Context) (*model.Credentials, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT uuid, phone_number, access_token, refresh_token, expires
		 FROM credentials WHERE id = 1`,
	)

	var c model.Credentials
	var access, refresh sql.NullString
	var expires sql.NullInt64
	err := row.Scan(&c.DeviceID, &c.PhoneNumber, &access, &refresh, &expires)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: scan credentials: %w", ErrConfigRead, err)
	}
	c.AccessToken = access.String
	c.RefreshToken = refresh.String
	c.Expires = expires.Int64

	if err := validate(&c); err != nil {
		return nil, err
	}
	return &c, nil
}

// Save replaces the stored credentials row.
func (s *SQLite) Save(ctx context.Context, c *model.Credentials) error {
	now := time.Now().UTC().Format(timeLayout)
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO credentials
		   (id, uuid, phone_number, access_token, refresh_token, expires, updated_at)
		 VALUES (1, ?, ?, ?, ?, ?, ?)`,
		c.DeviceID, c.PhoneNumber, nullString(c.AccessToken), nullString(c.RefreshToken), nullInt(c.Expires), now,
	)
	if err != nil {
		return fmt.Errorf("save credentials: %w", err)
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt(v int64) sql.NullInt64 {
	return sql.NullInt64{Int64: v, Valid: v != 0}
}
