package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gold_debts/internal/models"

	"go.uber.org/zap"
)

// CorruptError reports a cache file that exists but does not hold a JSON array.
type CorruptError struct {
	Path string
	Err  error
}

func (e *CorruptError) Error() string {
	return fmt.Sprintf("local cache %s is corrupt: %v", e.Path, e.Err)
}

func (e *CorruptError) Unwrap() error { return e.Err }

// FileStore keeps the collection as an indented JSON array on local disk.
type FileStore struct {
	path   string
	logger *zap.Logger

	mu sync.Mutex
}

func NewFileStore(path string, logger *zap.Logger) *FileStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileStore{path: path, logger: logger}
}

func (s *FileStore) Path() string { return s.path }

// EnsureFile creates the cache file holding an empty array when it is missing.
func (s *FileStore) EnsureFile() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ensureLocked()
}

func (s *FileStore) ensureLocked() error {
	if _, err := os.Stat(s.path); err == nil {
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("stat local cache: %w", err)
	}

	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create cache dir: %w", err)
		}
	}
	if err := os.WriteFile(s.path, []byte("[]"), 0o644); err != nil {
		return fmt.Errorf("create local cache: %w", err)
	}
	s.logger.Info("local cache created", zap.String("path", s.path))
	return nil
}

func (s *FileStore) Load(ctx context.Context) ([]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLocked(); err != nil {
		return nil, err
	}
	b, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read local cache: %w", err)
	}

	var raw any
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, &CorruptError{Path: s.path, Err: err}
	}
	list, ok := raw.([]any)
	if !ok {
		return nil, &CorruptError{Path: s.path, Err: errors.New("top-level value is not an array")}
	}
	return list, nil
}

// Save replaces the file contents through a temp file and rename, so readers
// never observe a partial write.
func (s *FileStore) Save(ctx context.Context, debts []models.Debt) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if debts == nil {
		debts = []models.Debt{}
	}

	b, err := json.MarshalIndent(debts, "", "  ")
	if err != nil {
		return fmt.Errorf("encode local cache: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp cache file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp cache file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp cache file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace local cache: %w", err)
	}
	return nil
}
