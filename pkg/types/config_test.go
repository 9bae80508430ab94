package types

import (
	"errors"
	"testing"
)

func TestConfigValidate(t *testing.T) {
	gh := GitHubConfig{
		Repo:        "someone/cookbook",
		Token:       "secret",
		RecipesPath: "recipes.json",
		DeletedPath: "deleted_recipes.json",
	}

	tests := []struct {
		name    string
		config  Config
		wantErr error
	}{
		{
			name:    "empty backend returns ErrBackendEmpty",
			config:  Config{Backend: "", DataDir: "/tmp/data"},
			wantErr: ErrBackendEmpty,
		},
		{
			name:    "unknown backend returns ErrBackendUnknown",
			config:  Config{Backend: "postgres", DataDir: "/tmp/data"},
			wantErr: ErrBackendUnknown,
		},
		{
			name:    "valid file config",
			config:  Config{Backend: BackendFile, DataDir: "/tmp/data"},
			wantErr: nil,
		},
		{
			name:    "sqlite with empty DataDir is valid at config level",
			config:  Config{Backend: BackendSQLite, DataDir: ""},
			wantErr: nil,
		},
		{
			name:    "valid github config",
			config:  Config{Backend: BackendGitHub, GitHub: gh},
			wantErr: nil,
		},
		{
			name:    "github without repo",
			config:  Config{Backend: BackendGitHub, GitHub: GitHubConfig{Token: "x", RecipesPath: "a", DeletedPath: "b"}},
			wantErr: ErrGitHubRepoEmpty,
		},
		{
			name:    "github without token",
			config:  Config{Backend: BackendGitHub, GitHub: GitHubConfig{Repo: "a/b", RecipesPath: "a", DeletedPath: "b"}},
			wantErr: ErrGitHubTokenEmpty,
		},
		{
			name:    "github without paths",
			config:  Config{Backend: BackendGitHub, GitHub: GitHubConfig{Repo: "a/b", Token: "x"}},
			wantErr: ErrGitHubPathEmpty,
		},
		{
			name:    "github settings ignored for file backend",
			config:  Config{Backend: BackendFile, GitHub: GitHubConfig{Repo: ""}},
			wantErr: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("expected nil error, got %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error %v, got nil", tt.wantErr)
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected error %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestGitHubConfigWithDefaults(t *testing.T) {
	g := GitHubConfig{Repo: "a/b"}.WithDefaults()
	if g.Branch != "main" || g.RecipesPath != "recipes.json" || g.DeletedPath != "deleted_recipes.json" {
		t.Fatalf("unexpected defaults: %+v", g)
	}
	if g.APIURL != DefaultGitHubAPIURL || g.RawURL != DefaultGitHubRawURL {
		t.Fatalf("unexpected endpoints: %+v", g)
	}
	if g.RequestsPerSecond != DefaultRequestsPerSec {
		t.Fatalf("expected default rate, got %v", g.RequestsPerSecond)
	}

	kept := GitHubConfig{Branch: "dev", RecipesPath: "data/r.json"}.WithDefaults()
	if kept.Branch != "dev" || kept.RecipesPath != "data/r.json" {
		t.Fatalf("explicit values overwritten: %+v", kept)
	}
}
