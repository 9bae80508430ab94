package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/mesh-intelligence/recipebox/internal/paths"
	"github.com/mesh-intelligence/recipebox/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	configFileExt  = "config.yaml"

	// envPrefix scopes environment overrides, e.g. RECIPEBOX_GITHUB_TOKEN.
	envPrefix = "RECIPEBOX"
)

// Config keys.
const (
	cfgKeyBackend       = "backend"
	cfgKeyDataDir       = "data_dir"
	cfgKeyListen        = "listen"
	cfgKeyLogLevel      = "log_level"
	cfgKeyTitle         = "title"
	cfgKeyGitHubRepo    = "github.repo"
	cfgKeyGitHubBranch  = "github.branch"
	cfgKeyGitHubToken   = "github.token"
	cfgKeyGitHubRecipes = "github.recipes_path"
	cfgKeyGitHubDeleted = "github.deleted_path"
	cfgKeyGitHubAPIURL  = "github.api_url"
	cfgKeyGitHubRawURL  = "github.raw_url"
	cfgKeyGitHubRate    = "github.requests_per_second"
	cfgKeyGitHubMessage = "github.commit_message"
)

// Defaults for keys config.yaml may leave out.
const (
	defaultBackend  = types.BackendFile
	defaultListen   = "127.0.0.1:8080"
	defaultLogLevel = "info"
)

// envKeys are the keys that RECIPEBOX_* variables may override. data_dir is
// left out; RECIPEBOX_DATA_DIR ranks below config.yaml and is handled by
// paths.ResolveDataDir.
var envKeys = []string{
	cfgKeyBackend,
	cfgKeyListen,
	cfgKeyLogLevel,
	cfgKeyTitle,
	cfgKeyGitHubRepo,
	cfgKeyGitHubBranch,
	cfgKeyGitHubToken,
	cfgKeyGitHubRecipes,
	cfgKeyGitHubDeleted,
	cfgKeyGitHubAPIURL,
	cfgKeyGitHubRawURL,
	cfgKeyGitHubRate,
	cfgKeyGitHubMessage,
}

// settings is the resolved configuration for one invocation.
type settings struct {
	Store    types.Config
	Listen   string
	LogLevel string
	Title    string
}

// envName returns the environment variable that overrides key.
func envName(key string) string {
	return envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// loadConfig reads config.yaml from configDir using Viper. A missing
// config.yaml is not an error; defaults and environment still apply.
func loadConfig(configDir string) (*viper.Viper, error) {
	v := viper.New()
	v.SetDefault(cfgKeyBackend, defaultBackend)
	v.SetDefault(cfgKeyListen, defaultListen)
	v.SetDefault(cfgKeyLogLevel, defaultLogLevel)
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)

	for _, key := range envKeys {
		if err := v.BindEnv(key, envName(key)); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return v, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	return v, nil
}

// resolveSettings combines config values with flag overrides.
func resolveSettings(v *viper.Viper, flags rootFlags) (settings, error) {
	dataDir, err := paths.ResolveDataDir(flags.dataDir, v.GetString(cfgKeyDataDir))
	if err != nil {
		return settings{}, fmt.Errorf("resolve data dir: %w", err)
	}

	backendName := v.GetString(cfgKeyBackend)
	if flags.backend != "" {
		backendName = flags.backend
	}

	return settings{
		Store: types.Config{
			Backend: backendName,
			DataDir: dataDir,
			GitHub: types.GitHubConfig{
				Repo:              v.GetString(cfgKeyGitHubRepo),
				Branch:            v.GetString(cfgKeyGitHubBranch),
				Token:             v.GetString(cfgKeyGitHubToken),
				RecipesPath:       v.GetString(cfgKeyGitHubRecipes),
				DeletedPath:       v.GetString(cfgKeyGitHubDeleted),
				APIURL:            v.GetString(cfgKeyGitHubAPIURL),
				RawURL:            v.GetString(cfgKeyGitHubRawURL),
				CommitMessage:     v.GetString(cfgKeyGitHubMessage),
				RequestsPerSecond: v.GetFloat64(cfgKeyGitHubRate),
			},
		},
		Listen:   v.GetString(cfgKeyListen),
		LogLevel: v.GetString(cfgKeyLogLevel),
		Title:    v.GetString(cfgKeyTitle),
	}, nil
}

// resolveConfigDir returns the configuration directory following the
// precedence --config-dir flag > RECIPEBOX_CONFIG_DIR env > platform default.
func resolveConfigDir(flag string) (string, error) {
	return paths.ResolveConfigDir(flag)
}
