package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"boosty_rss/internal/model"
)

// JSONFile implements CredentialStore as a flat JSON document on disk.
type JSONFile struct {
	path string
}

// NewJSONFile creates a store for the JSON document at path.
func NewJSONFile(path string) *JSONFile {
	return &JSONFile{path: path}
}

// Path returns the file location.
func (f *JSONFile) Path() string {
	return f.path
}

// Load reads and decodes the credentials file.
func (f *JSONFile) Load(_ context.Context) (*model.Credentials, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %w", ErrConfigRead, err)
	}

	var c model.Credentials
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %w", ErrConfigRead, f.path, err)
	}
	if err := validate(&c); err != nil {
		return nil, err
	}
	return &c, nil
}

// Save overwrites the credentials file with c.
func (f *JSONFile) Save(_ context.Context, c *model.Credentials) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("encode credentials: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".credentials-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write credentials: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("replace %s: %w", f.path, err)
	}
	return nil
}

// Close is a no-op; the file is not held open between calls.
func (f *JSONFile) Close() error {
	return nil
}
