package storage

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pfrederiksen/connpass-notify/internal/event"
)

// DefaultPath is the notified-ID file used when none is configured.
const DefaultPath = "notified_event_ids.txt"

// Backend names a Store implementation.
type Backend string

const (
	BackendFile   Backend = "file"
	BackendSQLite Backend = "sqlite"
)

// Store loads and saves the set of notified identifiers.
type Store interface {
	// Load returns every identifier recorded so far. A store that does not exist yet is empty.
	Load(ctx context.Context) (*event.IDSet, error)
	// Save records ids. Identifiers already stored are kept.
	Save(ctx context.Context, ids *event.IDSet) error
	Close() error
}

// Open returns the store for backend at path.
func Open(backend Backend, path string) (Store, error) {
	switch backend {
	case BackendFile, "":
		return NewFileStore(path)
	case BackendSQLite:
		return NewSQLiteStore(path)
	default:
		return nil, fmt.Errorf("unknown store backend %q", backend)
	}
}

// FileStore keeps identifiers in a plain text file
type FileStore struct {
	path string
}

// NewFileStore creates a FileStore at path, expanding a leading ~/.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		path = DefaultPath
	}
	path, err := expandHome(path)
	if err != nil {
		return nil, err
	}
	return &FileStore{path: path}, nil
}

// Path returns the file location.
func (s *FileStore) Path() string {
	return s.path
}

// Load reads the identifier file. Blank lines are skipped and surrounding whitespace trimmed.
func (s *FileStore) Load(_ context.Context) (*event.IDSet, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			// First run
			return event.NewIDSet(), nil
		}
		return nil, fmt.Errorf("reading notified IDs: %w", err)
	}

	ids := event.NewIDSet()
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		ids.Add(strings.TrimSpace(scanner.Text()))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("parsing notified IDs: %w", err)
	}
	return ids, nil
}

// Save rewrites the file with ids in store order, one per line.
func (s *FileStore) Save(_ context.Context, ids *event.IDSet) error {
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating store directory: %w", err)
		}
	}

	var buf bytes.Buffer
	for _, id := range ids.Sorted() {
		buf.WriteString(id)
		buf.WriteByte('\n')
	}

	if err := os.WriteFile(s.path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("writing notified IDs: %w", err)
	}
	return nil
}

// Close is a no-op.
func (s *FileStore) Close() error {
	return nil
}

func expandHome(path string) (string, error) {
	if !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, path[2:]), nil
}

// ReadOnly wraps s so that Save does nothing.
func ReadOnly(s Store) Store {
	return readOnly{s}
}

type readOnly struct {
	Store
}

func (readOnly) Save(context.Context, *event.IDSet) error {
	return nil
}
