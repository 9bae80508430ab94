package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/recipebox/pkg/types"
)

// configFile holds the structure written to config.yaml. The GitHub token is
// never written; supply it through RECIPEBOX_GITHUB_TOKEN.
type configFile struct {
	Backend  string              `yaml:"backend"`
	DataDir  string              `yaml:"data_dir,omitempty"`
	Listen   string              `yaml:"listen,omitempty"`
	LogLevel string              `yaml:"log_level,omitempty"`
	Title    string              `yaml:"title,omitempty"`
	GitHub   *types.GitHubConfig `yaml:"github,omitempty"`
}

func newInitCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create config.yaml and the data directory",
		Long: `Init writes config.yaml to the configuration directory if it does not exist
yet, then opens the configured backend once so its files are created.

An existing config.yaml is left unchanged.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(cmd, s)
		},
	}
}

func runInit(cmd *cobra.Command, s *session) error {
	if err := os.MkdirAll(s.configDir, 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	configPath := filepath.Join(s.configDir, configFileExt)
	written, err := writeConfigIfMissing(configPath, s.settings, s.flags.dataDir != "")
	if err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	_, closeFn, err := s.openStore()
	switch {
	case err == nil:
		closeFn()
	case s.settings.Store.Backend == types.BackendGitHub:
		// The token usually arrives later through the environment.
		fmt.Fprintf(cmd.ErrOrStderr(), "note: github backend not usable yet: %s\n", err)
	default:
		return fmt.Errorf("initialize storage: %w", err)
	}

	out := cmd.OutOrStdout()
	if written {
		fmt.Fprintf(out, "Wrote %s\n", configPath)
	} else {
		fmt.Fprintf(out, "%s already exists; left unchanged\n", configPath)
	}
	fmt.Fprintf(out, "recipebox initialized (backend: %s)\n", s.settings.Store.Backend)
	return nil
}

// writeConfigIfMissing creates config.yaml from st if the file does not exist.
// It reports whether a file was written.
func writeConfigIfMissing(path string, st settings, includeDataDir bool) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	}

	cfg := configFile{
		Backend:  st.Store.Backend,
		Listen:   st.Listen,
		LogLevel: st.LogLevel,
		Title:    st.Title,
	}
	if includeDataDir {
		cfg.DataDir = st.Store.DataDir
	}
	if st.Store.Backend == types.BackendGitHub {
		gh := st.Store.GitHub.WithDefaults()
		cfg.GitHub = &gh
	}

	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return false, fmt.Errorf("marshal config: %w", err)
	}
	return true, os.WriteFile(path, data, 0o644)
}
