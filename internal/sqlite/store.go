// Package sqlite implements a Store on a local SQLite database. Each
// recipe is stored as its JSON record plus the columns needed to order and
// look it up; Save replaces a whole collection in one transaction.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/recipebox/pkg/types"
)

// DBFileName is the database file created in the data directory.
const DBFileName = "recipebox.db"

// Store is a SQLite-backed types.Store.
type Store struct {
	mu     sync.Mutex
	db     *sql.DB
	logger *zap.Logger
	closed bool
}

// Open creates dataDir if needed, opens DataDir/recipebox.db, and applies
// the schema.
func Open(dataDir string, logger *zap.Logger) (*Store, error) {
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data dir: %w", err)
	}
	db, err := sql.Open("sqlite", filepath.Join(dataDir, DBFileName))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// One connection keeps writers serialized inside the process.
	db.SetMaxOpenConns(1)

	s, err := NewWithDB(db, logger)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewWithDB wraps an open database and applies the schema.
func NewWithDB(db *sql.DB, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	for _, ddl := range schemaDDL {
		if _, err := db.Exec(ddl); err != nil {
			return nil, fmt.Errorf("applying schema: %w", err)
		}
	}
	return &Store{db: db, logger: logger}, nil
}

// Load returns a collection in stored order. Rows whose body no longer
// parses are skipped and logged.
func (s *Store) Load(ctx context.Context, collection string) ([]*types.Recipe, error) {
	if err := s.check(collection); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT recipe_id, body FROM recipes WHERE collection = ? ORDER BY position", collection)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", collection, err)
	}
	defer rows.Close()

	recipes := []*types.Recipe{}
	for rows.Next() {
		var id, body string
		if err := rows.Scan(&id, &body); err != nil {
			return nil, fmt.Errorf("scanning recipe: %w", err)
		}
		var r types.Recipe
		if err := json.Unmarshal([]byte(body), &r); err != nil {
			s.logger.Warn("skipping malformed recipe row",
				zap.String("collection", collection), zap.String("recipe_id", id), zap.Error(err))
			continue
		}
		recipes = append(recipes, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", collection, err)
	}
	return recipes, nil
}

// Save replaces every row of the collection inside one transaction.
func (s *Store) Save(ctx context.Context, collection string, recipes []*types.Recipe) error {
	if err := s.check(collection); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning save transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM recipes WHERE collection = ?", collection); err != nil {
		return fmt.Errorf("clearing %s: %w", collection, err)
	}
	for i, r := range recipes {
		body, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("encoding recipe %q: %w", r.Title, err)
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO recipes (collection, position, recipe_id, title, body) VALUES (?, ?, ?, ?, ?)",
			collection, i, r.ID, r.Title, string(body)); err != nil {
			return fmt.Errorf("inserting recipe %q: %w", r.Title, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing %s: %w", collection, err)
	}
	s.logger.Debug("collection saved", zap.String("collection", collection), zap.Int("recipes", len(recipes)))
	return nil
}

// Close closes the database. Idempotent.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

func (s *Store) check(collection string) error {
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
