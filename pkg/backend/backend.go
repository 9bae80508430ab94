// Package backend provides the public factory for recipe stores. It selects
// the implementation named by types.Config.Backend while keeping the
// implementations internal.
//
// Example:
//
//	store, err := backend.Open(types.Config{
//	    Backend: types.BackendFile,
//	    DataDir: ".recipebox-data",
//	}, logger)
//	defer store.Close()
package backend

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/recipebox/internal/github"
	"github.com/mesh-intelligence/recipebox/internal/jsonfile"
	"github.com/mesh-intelligence/recipebox/internal/sqlite"
	"github.com/mesh-intelligence/recipebox/pkg/types"
)

// Open validates cfg and returns the store it names. The caller owns the
// store and must Close it.
func Open(cfg types.Config, logger *zap.Logger) (types.Store, error) {
	if cfg.Backend == types.BackendGitHub {
		cfg.GitHub = cfg.GitHub.WithDefaults()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("backend", cfg.Backend))

	switch cfg.Backend {
	case types.BackendFile:
		s, err := jsonfile.Open(cfg.DataDir, logger)
		if err != nil {
			return nil, fmt.Errorf("open file store: %w", err)
		}
		return s, nil
	case types.BackendSQLite:
		s, err := sqlite.Open(cfg.DataDir, logger)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return s, nil
	case types.BackendGitHub:
		s, err := github.New(cfg.GitHub, github.WithLogger(logger))
		if err != nil {
			return nil, fmt.Errorf("open github store: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("%w: %s", types.ErrBackendUnknown, cfg.Backend)
	}
}
