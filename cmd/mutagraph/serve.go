package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hanpama/mutagraph/internal/config"
	"github.com/hanpama/mutagraph/internal/demo"
	"github.com/hanpama/mutagraph/internal/di"
	"github.com/hanpama/mutagraph/internal/entity"
	"github.com/hanpama/mutagraph/internal/eventbus"
	"github.com/hanpama/mutagraph/internal/logging"
	"github.com/hanpama/mutagraph/internal/metrics"
	"github.com/hanpama/mutagraph/internal/otel"
	"github.com/hanpama/mutagraph/internal/server"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP GraphQL server over the demo directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cmd.Flags())
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
	config.RegisterFlags(cmd.Flags())
	return cmd
}

func serve(ctx context.Context, cfg *config.Config) error {
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	eventbus.Use(eventbus.New())
	shutdown, err := otel.Setup(cfg.OTel.Endpoint, cfg.OTel.Service)
	if err != nil {
		return fmt.Errorf("otel setup: %w", err)
	}
	defer func() { _ = shutdown(context.Background()) }()

	var collector *metrics.Collector
	if cfg.Metrics.Enabled {
		collector = metrics.New(true)
		defer collector.Subscribe()()
	}

	router, err := newRouter(cfg, logger, demo.NewStore(), collector)
	if err != nil {
		return err
	}
	srv := &http.Server{Addr: cfg.Server.Addr, Handler: router, ReadHeaderTimeout: 5 * time.Second}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("GraphQL server listening", zap.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		logger.Info("shutting down")
		return srv.Shutdown(sctx)
	})
	return g.Wait()
}

// newRouter mounts the GraphQL handler over store, health checks and, when
// collector is non-nil, the metrics endpoint.
func newRouter(cfg *config.Config, logger *zap.Logger, store *demo.Store, collector *metrics.Collector) (http.Handler, error) {
	s, err := demo.NewSchema(logger)
	if err != nil {
		return nil, err
	}
	services := di.New()
	if err := services.Supply(demo.NewNotifier(logger)); err != nil {
		return nil, err
	}
	rt := entity.NewRuntime(s,
		entity.WithServices(services),
		entity.WithAuthorizer(demo.Admins{}),
		entity.WithLogger(logger))

	opts := []server.Option{
		server.WithTimeout(cfg.Server.Timeout),
		server.WithMaxBodyBytes(cfg.Server.MaxBodyBytes),
		server.WithGraphiQL(cfg.Server.GraphiQL),
		server.WithRoot(func(*http.Request) any { return store }),
		server.WithLogger(logger),
	}
	if cfg.Server.Pretty {
		opts = append(opts, server.WithPretty())
	}
	if len(cfg.Server.CORSOrigins) > 0 {
		opts = append(opts, server.WithCORS(cfg.Server.CORSOrigins...))
	}
	if len(cfg.Server.MetadataHeaders) > 0 {
		opts = append(opts, server.WithMetadataHeaders(cfg.Server.MetadataHeaders...))
	}
	h, err := server.New(rt, s.Definition(), opts...)
	if err != nil {
		return nil, fmt.Errorf("server init: %w", err)
	}

	r := chi.NewRouter()
	r.Use(middleware.RealIP, middleware.Recoverer)
	r.Handle("/graphql", h)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if collector != nil {
		r.Handle("/metrics", collector.Handler())
	}
	return r, nil
}
