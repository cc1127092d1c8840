// Package filerepo keeps storage slots in a single JSON file, rewritten atomically on every
// change.
package filerepo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/jrsteele09/go-auth-session/storage"
)

var _ storage.Repo = (*FileRepo)(nil)

type fileEntry struct {
	Value     string     `json:"value"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

type fileContents struct {
	Entries map[string]fileEntry `json:"entries"`
}

// FileRepo stores slots in a 0600 JSON file.
type FileRepo struct {
	path    string
	nowFunc func() time.Time
	mu      sync.Mutex
}

type Option func(*FileRepo)

func WithNowFunc(now func() time.Time) Option {
	return func(r *FileRepo) {
		r.nowFunc = now
	}
}

func New(path string, options ...Option) *FileRepo {
	r := &FileRepo{path: path, nowFunc: time.Now}
	for _, opt := range options {
		opt(r)
	}
	return r
}

// DefaultPath returns ~/.authsession/session.json.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("find home directory: %w", err)
	}
	return filepath.Join(home, ".authsession", "session.json"), nil
}

func (r *FileRepo) Get(_ context.Context, key string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	contents, err := r.read()
	if err != nil {
		return "", err
	}
	e, ok := contents.Entries[key]
	if !ok || r.expired(e) {
		return "", storage.ErrNotFound
	}
	return e.Value, nil
}

func (r *FileRepo) Put(_ context.Context, entries map[string]string, ttl time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	contents, err := r.read()
	if err != nil {
		return err
	}
	var expiresAt *time.Time
	if ttl > 0 {
		t := r.nowFunc().Add(ttl).UTC()
		expiresAt = &t
	}
	for k, v := range entries {
		contents.Entries[k] = fileEntry{Value: v, ExpiresAt: expiresAt}
	}
	return r.write(contents)
}

func (r *FileRepo) Delete(_ context.Context, keys ...string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	contents, err := r.read()
	if err != nil {
		return err
	}
	for _, k := range keys {
		delete(contents.Entries, k)
	}
	return r.write(contents)
}

func (r *FileRepo) read() (*fileContents, error) {
	contents := &fileContents{Entries: make(map[string]fileEntry)}

	data, err := os.ReadFile(r.path)
	if errors.Is(err, fs.ErrNotExist) {
		return contents, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", r.path, err)
	}
	if err := json.Unmarshal(data, contents); err != nil {
		return nil, fmt.Errorf("decode %s: %w", r.path, err)
	}
	if contents.Entries == nil {
		contents.Entries = make(map[string]fileEntry)
	}

	// Expired slots are dropped on the next write.
	for k, e := range contents.Entries {
		if r.expired(e) {
			delete(contents.Entries, k)
		}
	}
	return contents, nil
}

// write replaces the file through a rename so readers never see a partial write.
func (r *FileRepo) write(contents *fileContents) error {
	if err := os.MkdirAll(filepath.Dir(r.path), 0700); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	data, err := json.MarshalIndent(contents, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal slots: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(r.path), ".session-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), r.path); err != nil {
		return fmt.Errorf("replace %s: %w", r.path, err)
	}
	return nil
}

func (r *FileRepo) expired(e fileEntry) bool {
	return e.ExpiresAt != nil && !r.nowFunc().Before(*e.ExpiresAt)
}
