// Package github implements a Store backed by JSON files in a GitHub
// repository. Reads go through the raw content host with a cache-busting
// query parameter; writes go through the Contents API and require the
// current blob sha. There is no optimistic-concurrency retry: the last
// writer wins.
package github

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/mesh-intelligence/recipebox/internal/jsonfile"
	"github.com/mesh-intelligence/recipebox/pkg/types"
)

// maxBodyBytes caps how much of any response is read.
const maxBodyBytes = 16 << 20

const (
	acceptHeader   = "application/vnd.github+json"
	apiVersion     = "2022-11-28"
	userAgent      = "recipebox"
	defaultTimeout = 30 * time.Second
)

// Store talks to one repository and branch.
type Store struct {
	cfg     types.GitHubConfig
	client  *http.Client
	limiter *rate.Limiter
	logger  *zap.Logger
	now     func() time.Time
	closed  atomic.Bool
}

// Option configures a Store.
type Option func(*Store)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Store) { s.client = c }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithClock overrides the clock used for cache-busting timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New validates cfg, fills defaults, and returns a Store.
func New(cfg types.GitHubConfig, opts ...Option) (*Store, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	burst := int(cfg.RequestsPerSecond)
	if burst < 1 {
		burst = 1
	}
	s := &Store{
		cfg:     cfg,
		client:  &http.Client{Timeout: defaultTimeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst),
		logger:  zap.NewNop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// StatusError reports an unexpected HTTP status from GitHub.
type StatusError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	body := strings.TrimSpace(e.Body)
	if body == "" {
		return fmt.Sprintf("%s: github returned %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: github returned %d: %s", e.Op, e.StatusCode, body)
}

// path maps a collection to its repository path.
func (s *Store) path(collection string) (string, error) {
	switch collection {
	case types.CollectionActive:
		return s.cfg.RecipesPath, nil
	case types.CollectionDeleted:
		return s.cfg.DeletedPath, nil
	default:
		return "", fmt.Errorf("%w: %q", types.ErrUnknownCollection, collection)
	}
}

// Load fetches the raw file with the same bearer token as writes, so private
// repositories work. 404 is an empty collection.
func (s *Store) Load(ctx context.Context, collection string) ([]*types.Recipe, error) {
	if s.closed.Load() {
		return nil, types.ErrStoreClosed
	}
	path, err := s.path(collection)
	if err != nil {
		return nil, err
	}

	u := fmt.Sprintf("%s/%s/%s/%s?nocache=%d",
		strings.TrimRight(s.cfg.RawURL, "/"), s.cfg.Repo, s.cfg.Branch,
		strings.TrimLeft(path, "/"), s.now().Unix())
	req, err := s.newRequest(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Cache-Control", "no-cache")

	status, body, err := s.do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", path, err)
	}
	switch status {
	case http.StatusOK:
	case http.StatusNotFound:
		s.logger.Debug("remote collection missing", zap.String("path", path))
		return []*types.Recipe{}, nil
	default:
		return nil, &StatusError{Op: "fetch " + path, StatusCode: status, Body: string(body)}
	}

	recipes, err := jsonfile.Decode(body)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	s.logger.Debug("remote collection loaded", zap.String("path", path), zap.Int("recipes", len(recipes)))
	return recipes, nil
}

// putPayload is the Contents API request body.
type putPayload struct {
	Message string `json:"message"`
	Content string `json:"content"`
	Branch  string `json:"branch"`
	SHA     string `json:"sha,omitempty"`
}

// Save replaces the remote file with a new commit.
func (s *Store) Save(ctx context.Context, collection string, recipes []*types.Recipe) error {
	if s.closed.Load() {
		return types.ErrStoreClosed
	}
	path, err := s.path(collection)
	if err != nil {
		return err
	}

	sha, err := s.fileSHA(ctx, path)
	if err != nil {
		return err
	}

	data, err := jsonfile.Encode(recipes)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(putPayload{
		Message: s.commitMessage(path),
		Content: base64.StdEncoding.EncodeToString(data),
		Branch:  s.cfg.Branch,
		SHA:     sha,
	})
	if err != nil {
		return fmt.Errorf("encoding payload: %w", err)
	}

	req, err := s.newRequest(ctx, http.MethodPut, s.contentsURL(path), bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	status, body, err := s.do(req)
	if err != nil {
		return fmt.Errorf("saving %s: %w", path, err)
	}
	if status != http.StatusOK && status != http.StatusCreated {
		return &StatusError{Op: "save " + path, StatusCode: status, Body: string(body)}
	}

	s.logger.Info("remote collection saved",
		zap.String("path", path),
		zap.Int("recipes", len(recipes)),
		zap.String("commit", gjson.GetBytes(body, "commit.sha").String()),
		zap.Bool("created", sha == ""))
	return nil
}

// Close marks the store closed. Idempotent.
func (s *Store) Close() error {
	s.closed.Store(true)
	return nil
}

// fileSHA returns the current blob sha, or "" when the file does not exist yet.
func (s *Store) fileSHA(ctx context.Context, path string) (string, error) {
	u := s.contentsURL(path) + "?ref=" + url.QueryEscape(s.cfg.Branch)
	req, err := s.newRequest(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", err
	}
	status, body, err := s.do(req)
	if err != nil {
		return "", fmt.Errorf("could not fetch file sha for %s: %w", path, err)
	}
	switch status {
	case http.StatusOK:
		sha := gjson.GetBytes(body, "sha")
		if !sha.Exists() || sha.String() == "" {
			return "", fmt.Errorf("could not fetch file sha for %s: response has no sha", path)
		}
		return sha.String(), nil
	case http.StatusNotFound:
		return "", nil
	default:
		return "", &StatusError{Op: "could not fetch file sha for " + path, StatusCode: status, Body: string(body)}
	}
}

func (s *Store) contentsURL(path string) string {
	return fmt.Sprintf("%s/repos/%s/contents/%s",
		strings.TrimRight(s.cfg.APIURL, "/"), s.cfg.Repo, strings.TrimLeft(path, "/"))
}

func (s *Store) commitMessage(path string) string {
	if strings.Contains(s.cfg.CommitMessage, "%s") {
		return fmt.Sprintf(s.cfg.CommitMessage, path)
	}
	return s.cfg.CommitMessage
}

func (s *Store) newRequest(ctx context.Context, method, u string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.cfg.Token)
	req.Header.Set("Accept", acceptHeader)
	req.Header.Set("X-GitHub-Api-Version", apiVersion)
	req.Header.Set("User-Agent", userAgent)
	return req, nil
}

// do waits for the limiter, sends req, and reads the (capped) body.
func (s *Store) do(req *http.Request) (int, []byte, error) {
	if err := s.limiter.Wait(req.Context()); err != nil {
		return 0, nil, err
	}
	start := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("reading response: %w", err)
	}
	s.logger.Debug("github request",
		zap.String("method", req.Method),
		zap.String("url", req.URL.Redacted()),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))
	return resp.StatusCode, body, nil
}
