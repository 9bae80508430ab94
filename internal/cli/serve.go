package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/recipebox/internal/cookbook"
	"github.com/mesh-intelligence/recipebox/internal/metrics"
	"github.com/mesh-intelligence/recipebox/internal/web"
	"github.com/mesh-intelligence/recipebox/pkg/recipebox"
)

func newServeCmd(s *session) *cobra.Command {
	var listen string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the recipe box web page",
		Long: `Serve starts the web page and its JSON API. It runs until interrupted
(SIGINT or SIGTERM) and then shuts down gracefully.

Endpoints:
  /               recipe page
  /api/recipes    active recipes as JSON (?q= filters)
  /api/bin        recycle bin as JSON
  /healthz        liveness
  /metrics        Prometheus metrics`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if listen == "" {
				listen = s.settings.Listen
			}

			store, closeFn, err := s.openStore()
			if err != nil {
				return err
			}
			defer closeFn()

			m := metrics.NewCollector("")
			cb := cookbook.New(m.InstrumentStore(s.settings.Store.Backend, store), s.logger)
			srv, err := web.New(cb,
				web.WithLogger(s.logger),
				web.WithMetrics(m),
				web.WithTitle(s.settings.Title),
				web.WithVersion(recipebox.Version),
			)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			s.logger.Info("starting recipebox",
				zap.String("version", recipebox.Version),
				zap.String("backend", s.settings.Store.Backend),
				zap.String("listen", listen),
			)
			return srv.Run(ctx, listen)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "address to listen on (default from config, 127.0.0.1:8080)")
	return cmd
}
