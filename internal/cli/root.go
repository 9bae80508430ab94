// Package cli implements the recipebox command-line interface.
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/recipebox/internal/cookbook"
	"github.com/mesh-intelligence/recipebox/internal/logging"
	"github.com/mesh-intelligence/recipebox/pkg/backend"
	"github.com/mesh-intelligence/recipebox/pkg/recipebox"
	"github.com/mesh-intelligence/recipebox/pkg/types"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// rootFlags holds global flag values accessible to all subcommands.
type rootFlags struct {
	configDir string
	dataDir   string
	backend   string
	jsonMode  bool
	verbose   bool
}

// session carries what PersistentPreRunE resolves for one invocation.
type session struct {
	flags     rootFlags
	configDir string
	settings  settings
	logger    *zap.Logger
}

// NewRootCmd creates the top-level "recipebox" command with global flags
// and all subcommands registered.
func NewRootCmd() *cobra.Command {
	s := &session{logger: zap.NewNop()}

	root := &cobra.Command{
		Use:     "recipebox",
		Short:   "A single-user recipe box",
		Long:    "recipebox keeps a list of recipes in local JSON files, a SQLite database,\nor a GitHub repository, and serves them as a web page.",
		Version: recipebox.Version,
		// Do not print usage on errors returned by subcommands.
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			return s.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = s.logger.Sync()
		},
	}

	root.PersistentFlags().StringVar(&s.flags.configDir, "config-dir", "", "configuration directory (default: platform config dir, or $RECIPEBOX_CONFIG_DIR)")
	root.PersistentFlags().StringVar(&s.flags.dataDir, "data-dir", "", "data directory (default: .recipebox-data)")
	root.PersistentFlags().StringVar(&s.flags.backend, "backend", "", "storage backend: file, sqlite, or github")
	root.PersistentFlags().BoolVar(&s.flags.jsonMode, "json", false, "output in JSON format")
	root.PersistentFlags().BoolVarP(&s.flags.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		newVersionCmd(),
		newInitCmd(s),
		newListCmd(s),
		newBinCmd(s),
		newShowCmd(s),
		newAddCmd(s),
		newDeleteCmd(s),
		newRestoreCmd(s),
		newPurgeCmd(s),
		newRateCmd(s),
		newServeCmd(s),
	)

	return root
}

// Execute runs the root command and exits with the appropriate code.
func Execute() {
	root := NewRootCmd()
	if err := root.Execute(); err != nil {
		os.Exit(exitCode(err))
	}
}

// exitCode maps an error to exitUserError for mistakes the user can fix and
// exitSysError for everything else.
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitSuccess
	case errors.Is(err, types.ErrNotFound),
		errors.Is(err, types.ErrInvalidID),
		errors.Is(err, types.ErrInvalidTitle),
		errors.Is(err, types.ErrNoIngredients),
		errors.Is(err, types.ErrNoInstructions),
		errors.Is(err, types.ErrInvalidRating),
		errors.Is(err, types.ErrInvalidTransition),
		errors.Is(err, types.ErrBackendEmpty),
		errors.Is(err, types.ErrBackendUnknown),
		errors.Is(err, types.ErrGitHubRepoEmpty),
		errors.Is(err, types.ErrGitHubTokenEmpty),
		errors.Is(err, types.ErrGitHubPathEmpty),
		errors.Is(err, errUsage):
		return exitUserError
	default:
		return exitSysError
	}
}

// errUsage marks malformed arguments.
var errUsage = errors.New("invalid arguments")

// setup resolves directories, reads config.yaml, and builds the logger.
func (s *session) setup(cmd *cobra.Command) error {
	configDir, err := resolveConfigDir(s.flags.configDir)
	if err != nil {
		return fmt.Errorf("resolve config dir: %w", err)
	}
	s.configDir = configDir

	v, err := loadConfig(configDir)
	if err != nil {
		return err
	}
	st, err := resolveSettings(v, s.flags)
	if err != nil {
		return err
	}
	s.settings = st

	format := logging.FormatConsole
	if cmd.Name() == "serve" {
		format = logging.FormatJSON
	}
	logger, err := logging.New(logging.Options{
		Level:   st.LogLevel,
		Verbose: s.flags.verbose,
		Format:  format,
		Output:  cmd.ErrOrStderr(),
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	s.logger = logger
	s.logger.Debug("configuration loaded",
		zap.String("config_dir", configDir),
		zap.String("backend", st.Store.Backend),
		zap.String("data_dir", st.Store.DataDir),
	)
	return nil
}

// openCookbook opens the configured store and loads both collections. A
// collection that cannot be read is reported on stderr and treated as empty.
// The returned func closes the store.
func (s *session) openCookbook(cmd *cobra.Command) (*cookbook.Cookbook, func(), error) {
	store, closeFn, err := s.openStore()
	if err != nil {
		return nil, nil, err
	}
	cb := cookbook.New(store, s.logger)
	if err := cb.Load(cmd.Context()); err != nil {
		warn(cmd.ErrOrStderr(), err)
	}
	return cb, closeFn, nil
}

// openCookbookForWrite is openCookbook for commands that save. Saving a
// collection that failed to load would overwrite it with an empty list, so
// a load failure is fatal here.
func (s *session) openCookbookForWrite(cmd *cobra.Command) (*cookbook.Cookbook, func(), error) {
	store, closeFn, err := s.openStore()
	if err != nil {
		return nil, nil, err
	}
	cb := cookbook.New(store, s.logger)
	if err := cb.Load(cmd.Context()); err != nil {
		closeFn()
		return nil, nil, fmt.Errorf("refusing to modify recipes: %w", err)
	}
	return cb, closeFn, nil
}

func (s *session) openStore() (types.Store, func(), error) {
	store, err := backend.Open(s.settings.Store, s.logger)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		if err := store.Close(); err != nil {
			s.logger.Warn("close store", zap.Error(err))
		}
	}
	return store, closeFn, nil
}

func warn(w io.Writer, err error) {
	fmt.Fprintln(w, styles(w).warning.Render("warning: "+err.Error()))
}
