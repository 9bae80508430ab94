// Package jsonfile implements the local-file Store: one indented JSON array
// per collection, rewritten atomically on every save.
package jsonfile

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/recipebox/pkg/types"
)

// Store keeps each collection in DataDir/<collection>.json.
type Store struct {
	mu      sync.Mutex
	dataDir string
	logger  *zap.Logger
	closed  bool
}

// Open creates dataDir if needed and returns a Store rooted there.
func Open(dataDir string, logger *zap.Logger) (*Store, error) {
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data dir: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{dataDir: dataDir, logger: logger}, nil
}

// Path returns the file backing a collection.
func (s *Store) Path(collection string) string {
	return filepath.Join(s.dataDir, collection+".json")
}

// Load reads a collection. A missing file is an empty collection.
func (s *Store) Load(ctx context.Context, collection string) ([]*types.Recipe, error) {
	if err := s.check(ctx, collection); err != nil {
		return nil, err
	}
	path := s.Path(collection)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		s.logger.Debug("collection file missing", zap.String("path", path))
		return []*types.Recipe{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	recipes, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	s.logger.Debug("collection loaded", zap.String("path", path), zap.Int("recipes", len(recipes)))
	return recipes, nil
}

// Save overwrites a collection file.
func (s *Store) Save(ctx context.Context, collection string, recipes []*types.Recipe) error {
	if err := s.check(ctx, collection); err != nil {
		return err
	}
	data, err := Encode(recipes)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := writeFileAtomic(s.Path(collection), data); err != nil {
		return err
	}
	s.logger.Debug("collection saved", zap.String("collection", collection), zap.Int("recipes", len(recipes)))
	return nil
}

// Close marks the store closed. Idempotent.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *Store) check(ctx context.Context, collection string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !types.ValidCollection(collection) {
		return fmt.Errorf("%w: %q", types.ErrUnknownCollection, collection)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return types.ErrStoreClosed
	}
	return nil
}

// Encode renders recipes as the persisted format: a two-space indented JSON
// array followed by a newline. A nil slice encodes as [].
func Encode(recipes []*types.Recipe) ([]byte, error) {
	if recipes == nil {
		recipes = []*types.Recipe{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(recipes); err != nil {
		return nil, fmt.Errorf("encoding recipes: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode parses a persisted JSON array. Empty input decodes as an empty
// collection; null entries are skipped.
func Decode(data []byte) ([]*types.Recipe, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return []*types.Recipe{}, nil
	}
	var raw []*types.Recipe
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	out := make([]*types.Recipe, 0, len(raw))
	for _, r := range raw {
		if r != nil {
			out = append(out, r)
		}
	}
	return out, nil
}

// writeFileAtomic writes data using the temp-file, fsync, rename pattern so
// readers never observe a partial file.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".recipes-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}
