// Package storage defines the credential persistence interface and its implementations.
package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"boosty_rss/internal/model"
)

var (
	// ErrNotFound is returned by Load when no credentials have been saved yet.
	ErrNotFound = errors.New("credentials not found")
	// ErrConfigRead is returned when stored credentials cannot be decoded.
	ErrConfigRead = errors.New("read credentials")
)

// CredentialStore is the interface for credential persistence.
type CredentialStore interface {
	Load(ctx context.Context) (*model.Credentials, error)
	// Save replaces the stored record entirely.
	Save(ctx context.Context, c *model.Credentials) error
	Close() error
}

// Open returns a store for path. Paths with a SQLite extension are backed by
// a database, everything else by a JSON file.
func Open(path string) (CredentialStore, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".sqlite", ".sqlite3":
		return NewSQLite(path)
	default:
		return NewJSONFile(path), nil
	}
}

func validate(c *model.Credentials) error {
	if c.AccessToken != "" && c.RefreshToken == "" {
		return fmt.Errorf("%w: access_token present without refresh_token", ErrConfigRead)
	}
	return nil
}
