package types

import "errors"

// Supported backend names.
const (
	BackendFile   = "file"
	BackendGitHub = "github"
	BackendSQLite = "sqlite"
)

// GitHub defaults, matching the public GitHub endpoints.
const (
	DefaultGitHubAPIURL   = "https://api.github.com"
	DefaultGitHubRawURL   = "https://raw.githubusercontent.com"
	DefaultGitHubBranch   = "main"
	DefaultCommitMessage  = "Update %s from recipebox"
	DefaultRequestsPerSec = 5.0
)

// Config holds backend selection and parameters.
type Config struct {
	Backend string       `json:"backend" yaml:"backend"`
	DataDir string       `json:"data_dir" yaml:"data_dir"`
	GitHub  GitHubConfig `json:"github" yaml:"github"`
}

// GitHubConfig describes a repository file pair reached through the GitHub
// Contents API. Token is never written to config.yaml by recipebox itself.
type GitHubConfig struct {
	Repo              string  `json:"repo" yaml:"repo"`
	Branch            string  `json:"branch" yaml:"branch"`
	Token             string  `json:"-" yaml:"-"`
	RecipesPath       string  `json:"recipes_path" yaml:"recipes_path"`
	DeletedPath       string  `json:"deleted_path" yaml:"deleted_path"`
	APIURL            string  `json:"api_url" yaml:"api_url"`
	RawURL            string  `json:"raw_url" yaml:"raw_url"`
	CommitMessage     string  `json:"commit_message" yaml:"commit_message"`
	RequestsPerSecond float64 `json:"requests_per_second" yaml:"requests_per_second"`
}

// Config validation errors.
var (
	ErrBackendEmpty     = errors.New("backend must not be empty")
	ErrBackendUnknown   = errors.New("unknown backend")
	ErrGitHubRepoEmpty  = errors.New("github repo must not be empty")
	ErrGitHubTokenEmpty = errors.New("github token must not be empty")
	ErrGitHubPathEmpty  = errors.New("github file paths must not be empty")
)

// knownBackends lists the backends that Validate accepts.
var knownBackends = map[string]bool{
	BackendFile:   true,
	BackendGitHub: true,
	BackendSQLite: true,
}

// Validate checks that the Config is well-formed. It returns a sentinel error
// from this package on failure.
func (c Config) Validate() error {
	if c.Backend == "" {
		return ErrBackendEmpty
	}
	if !knownBackends[c.Backend] {
		return ErrBackendUnknown
	}
	if c.Backend == BackendGitHub {
		return c.GitHub.Validate()
	}
	return nil
}

// Validate checks the settings required to talk to GitHub.
func (g GitHubConfig) Validate() error {
	if g.Repo == "" {
		return ErrGitHubRepoEmpty
	}
	if g.Token == "" {
		return ErrGitHubTokenEmpty
	}
	if g.RecipesPath == "" || g.DeletedPath == "" {
		return ErrGitHubPathEmpty
	}
	return nil
}

// WithDefaults fills unset optional fields.
func (g GitHubConfig) WithDefaults() GitHubConfig {
	if g.Branch == "" {
		g.Branch = DefaultGitHubBranch
	}
	if g.RecipesPath == "" {
		g.RecipesPath = CollectionActive + ".json"
	}
	if g.DeletedPath == "" {
		g.DeletedPath = CollectionDeleted + ".json"
	}
	if g.APIURL == "" {
		g.APIURL = DefaultGitHubAPIURL
	}
	if g.RawURL == "" {
		g.RawURL = DefaultGitHubRawURL
	}
	if g.CommitMessage == "" {
		g.CommitMessage = DefaultCommitMessage
	}
	if g.RequestsPerSecond <= 0 {
		g.RequestsPerSecond = DefaultRequestsPerSec
	}
	return g
}
