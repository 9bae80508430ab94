// Package web serves the recipe box page, its form actions, and a small
// read-only JSON API over a cookbook.Cookbook.
//
// Every request reloads the cookbook from its store before reading or
// mutating, so the page always reflects the persisted collections. Form
// posts answer with a redirect back to the page carrying a flash message.
package web

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mesh-intelligence/recipebox/internal/cookbook"
	"github.com/mesh-intelligence/recipebox/internal/metrics"
)

// DefaultTitle is the page heading when none is configured.
const DefaultTitle = "Recipe Box"

const (
	readHeaderTimeout = 10 * time.Second
	writeTimeout      = 30 * time.Second
	idleTimeout       = 120 * time.Second
	shutdownTimeout   = 15 * time.Second

	// maxFormBytes caps add-form bodies.
	maxFormBytes = 1 << 20
)

//go:embed templates/*.html
var templateFS embed.FS

// Server is the HTTP front end.
type Server struct {
	// mu serializes reload-then-act so two requests never interleave
	// between loading and saving.
	mu       sync.Mutex
	cookbook *cookbook.Cookbook
	logger   *zap.Logger
	metrics  *metrics.Collector
	title    string
	version  string
	tmpl     *template.Template
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithMetrics enables HTTP instrumentation and the /metrics endpoint.
func WithMetrics(c *metrics.Collector) Option {
	return func(s *Server) { s.metrics = c }
}

// WithTitle sets the page heading.
func WithTitle(title string) Option {
	return func(s *Server) {
		if title != "" {
			s.title = title
		}
	}
}

// WithVersion sets the version reported by /healthz and the page footer.
func WithVersion(v string) Option {
	return func(s *Server) { s.version = v }
}

// New returns a Server for cb.
func New(cb *cookbook.Cookbook, opts ...Option) (*Server, error) {
	s := &Server{
		cookbook: cb,
		logger:   zap.NewNop(),
		title:    DefaultTitle,
	}
	for _, opt := range opts {
		opt(s)
	}
	tmpl, err := template.New("page.html").Funcs(templateFuncs).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	s.tmpl = tmpl
	return s, nil
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(s.recoverMiddleware, s.loggingMiddleware)
	if s.metrics != nil {
		r.Use(s.metrics.Middleware())
		r.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)
	}

	r.HandleFunc("/", s.handlePage).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/recipes", s.handleAdd).Methods(http.MethodPost)
	r.HandleFunc("/recipes/{id}/rating", s.handleRate).Methods(http.MethodPost)
	r.HandleFunc("/recipes/{id}/delete", s.handleDelete).Methods(http.MethodPost)
	r.HandleFunc("/bin/{id}/restore", s.handleRestore).Methods(http.MethodPost)
	r.HandleFunc("/bin/{id}/purge", s.handlePurge).Methods(http.MethodPost)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/recipes", s.handleAPIList).Methods(http.MethodGet)
	api.HandleFunc("/recipes/{id}", s.handleAPIGet).Methods(http.MethodGet)
	api.HandleFunc("/bin", s.handleAPIBin).Methods(http.MethodGet)
	api.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		jsonError(w, "not found", http.StatusNotFound)
	})

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	return r
}

// Run listens on addr and serves until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled. ln is closed on return.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ErrorLog:          zap.NewStdLog(s.logger),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("listening", zap.String("addr", ln.Addr().String()))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		s.logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// reload refreshes the cookbook. Load failures are not fatal; they come back
// as messages for the page.
func (s *Server) reload(ctx context.Context) []string {
	err := s.cookbook.Load(ctx)
	if err == nil {
		return nil
	}
	s.logger.Warn("reload incomplete", zap.Error(err))
	return unwrapJoined(err)
}

// errStaleLoad marks a mutation refused because a collection could not be
// read; saving the partial view would overwrite what is stored.
var errStaleLoad = errors.New("refusing to modify recipes")

// reloadForWrite reloads the cookbook and fails unless every collection was
// read. Caller holds s.mu.
func (s *Server) reloadForWrite(ctx context.Context) error {
	err := s.cookbook.Load(ctx)
	if err == nil {
		return nil
	}
	s.logger.Warn("mutation refused after failed reload", zap.Error(err))
	return fmt.Errorf("%w: %s", errStaleLoad, strings.Join(unwrapJoined(err), "; "))
}

// unwrapJoined flattens an errors.Join result into one message per error.
func unwrapJoined(err error) []string {
	if j, ok := err.(interface{ Unwrap() []error }); ok {
		var out []string
		for _, e := range j.Unwrap() {
			out = append(out, e.Error())
		}
		return out
	}
	return []string{err.Error()}
}
