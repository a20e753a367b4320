package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterbourgon/diskv/v3"
)

// Disk is the diskv-backed persisted store. Every key maps to one file under
// the base path, so a second haven process sharing the path sees the same
// collections and can watch them for changes.
type Disk struct {
	d        *diskv.Diskv
	basePath string
}

var _ KV = (*Disk)(nil)

// Open creates a Disk rooted at the config's base path.
func Open(cfg Config) (*Disk, error) {
	if cfg == nil {
		var err error
		cfg, err = LoadConfig()
		if err != nil {
			return nil, err
		}
	}

	basePath := cfg.BasePath()
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("store: ensure base path: %w", err)
	}
	return &Disk{d: diskv.New(diskv.Options{
		BasePath:     basePath,
		CacheSizeMax: 1024 * 1024, // 1MB
	}), basePath: basePath}, nil
}

func (s *Disk) Read(key string) (string, bool) {
	val, err := s.d.Read(key)
	if err != nil {
		return "", false
	}
	return string(val), true
}

func (s *Disk) Write(key, value string) error {
	if err := s.d.Write(key, []byte(value)); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrWriteFailed, key, err)
	}
	return nil
}

func (s *Disk) Remove(key string) error {
	if err := s.d.Erase(key); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("store: remove %s: %w", key, err)
	}
	return nil
}

func (s *Disk) Keys() []string {
	keys := make([]string, 0)
	for key := range s.d.Keys(context.Background().Done()) {
		keys = append(keys, key)
	}
	return keys
}

// keyForPath derives the store key for a file the watcher reported.
func (s *Disk) keyForPath(path string) string {
	rel, err := filepath.Rel(s.basePath, path)
	if err != nil || rel == "." {
		return ""
	}
	if strings.Contains(rel, string(os.PathSeparator)) {
		return ""
	}
	return rel
}
