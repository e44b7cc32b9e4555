package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/Sternrassler/boba-gallery/internal/fsutil"
)

// DefaultFilePath is where the build keeps its image metadata.
const DefaultFilePath = ".github/data/image-metadata.json"

// Store persists the full key -> entry mapping.
// Load reads everything; Save replaces everything. Save must be atomic with
// respect to concurrent Loads. A Load that fails with ErrInvalidEntry may
// also return the entries it could read.
type Store interface {
	Load(ctx context.Context) (map[string]Entry, error)
	Save(ctx context.Context, entries map[string]Entry) error
}

// PersistenceError reports a failed store read or write.
type PersistenceError struct {
	Op  string // "load" or "save"
	Err error
}

// Error implements the error interface.
func (e *PersistenceError) Error() string {
	return fmt.Sprintf("cache %s: %v", e.Op, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// FileStore keeps the mapping in a single JSON file.
type FileStore struct {
	path string
}

// NewFileStore returns a store backed by the file at path.
func NewFileStore(path string) *FileStore {
	if path == "" {
		path = DefaultFilePath
	}
	return &FileStore{path: path}
}

// Path returns the canonical file location.
func (s *FileStore) Path() string {
	return s.path
}

// Load reads the file. A missing file is an empty mapping.
func (s *FileStore) Load(ctx context.Context) (map[string]Entry, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]Entry{}, nil
		}
		return nil, &PersistenceError{Op: "load", Err: err}
	}

	entries := map[string]Entry{}
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, &PersistenceError{Op: "load", Err: fmt.Errorf("%w: %v", ErrInvalidEntry, err)}
	}
	return entries, nil
}

// Save writes the mapping to a temporary file and renames it over the
// canonical path.
func (s *FileStore) Save(ctx context.Context, entries map[string]Entry) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return &PersistenceError{Op: "save", Err: fmt.Errorf("marshal entries: %w", err)}
	}
	if err := fsutil.WriteFileAtomic(s.path, data, 0o644); err != nil {
		return &PersistenceError{Op: "save", Err: err}
	}
	return nil
}
