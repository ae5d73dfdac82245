// Package store persists finished scan sessions as key-addressed JSON
// records. Three backends implement the same contract: local disk, Redis,
// and Postgres. Writes are idempotent overwrites; there are no transactional
// guarantees beyond at-least-once.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/mplacona/ThreadScout/internal/model"
)

var (
	ErrNotFound   = errors.New("session not found")
	ErrInvalidKey = errors.New("invalid session key")
)

// SessionStore is the persistence contract for scan session records.
type SessionStore interface {
	Write(ctx context.Context, key string, record *model.SessionRecord) error
	Read(ctx context.Context, key string) (*model.SessionRecord, error)
	List(ctx context.Context, prefix string) ([]string, error)
}

// keyRegex keeps session keys filesystem- and keyspace-safe.
var keyRegex = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ValidateKey rejects keys that are not safe to use across all backends.
func ValidateKey(key string) error {
	if key == "" || !keyRegex.MatchString(key) {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}

// LocalSessionStore keeps one JSON file per session under a root directory.
type LocalSessionStore struct {
	rootDir string
}

func NewLocalSessionStore(rootDir string) (*LocalSessionStore, error) {
	if rootDir == "" {
		return nil, fmt.Errorf("session root directory is required")
	}
	if err := os.MkdirAll(rootDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating session root directory: %w", err)
	}
	return &LocalSessionStore{rootDir: rootDir}, nil
}

// Write stores the record atomically: temp file then rename, so a crashed
// write never leaves a truncated record behind.
func (s *LocalSessionStore) Write(ctx context.Context, key string, record *model.SessionRecord) error {
	if err := ValidateKey(key); err != nil {
		return err
	}

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal session record: %w", err)
	}

	fullPath := filepath.Join(s.rootDir, key+".json")
	tmpPath := fullPath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("writing temp session record: %w", err)
	}
	if err := os.Rename(tmpPath, fullPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming session record: %w", err)
	}
	return nil
}

func (s *LocalSessionStore) Read(ctx context.Context, key string) (*model.SessionRecord, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filepath.Join(s.rootDir, key+".json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("reading session record: %w", err)
	}

	var record model.SessionRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("unmarshal session record: %w", err)
	}
	return &record, nil
}

func (s *LocalSessionStore) List(ctx context.Context, prefix string) ([]string, error) {
	entries, err := os.ReadDir(s.rootDir)
	if err != nil {
		return nil, fmt.Errorf("listing session records: %w", err)
	}

	var keys []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		key := strings.TrimSuffix(name, ".json")
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}
