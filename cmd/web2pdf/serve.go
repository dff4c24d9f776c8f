package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	flag "github.com/spf13/pflag"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/alnah/go-web2pdf/internal/httpapi"
	"github.com/alnah/go-web2pdf/internal/metrics"
)

const readHeaderTimeout = 10 * time.Second

// runServe starts the HTTP service and blocks until ctx is done or the
// listener fails. In-flight renders get the configured shutdown timeout
// to finish.
func runServe(ctx context.Context, args []string, env *Environment) error {
	f, fs, err := parseServeFlags(args, env.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		return nil
	}
	if err != nil {
		return err
	}

	cfg, err := loadBaseConfig(f.common.config)
	if err != nil {
		return err
	}
	applyServeFlags(fs, f, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
	}

	renderer, err := newRenderer(cfg, logger, env, recorderOf(m))
	if err != nil {
		return err
	}

	api := httpapi.New(renderer, httpapi.Config{
		MaxBodyBytes:   cfg.Server.MaxBodyBytes,
		RequestTimeout: cfg.Server.RequestTimeout.Std(),
		MetricsPath:    cfg.Metrics.Path,
	}, logger, m)

	srv := &http.Server{
		Handler:           api.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
		ErrorLog:          zap.NewStdLog(logger),
	}

	ln, err := env.Listen("tcp", cfg.Server.Addr)
	if err != nil {
		return fmt.Errorf("%w: listening on %s: %v", ErrServe, cfg.Server.Addr, err)
	}

	logger.Info("listening",
		zap.String("addr", ln.Addr().String()),
		zap.String("version", Version),
		zap.Bool("metrics", cfg.Metrics.Enabled),
	)
	if env.Ready != nil {
		env.Ready(ln.Addr())
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("%w: %v", ErrServe, err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down", zap.Duration("timeout", cfg.Server.ShutdownTimeout.Std()))

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Std())
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			// Closing the connections cancels the remaining request
			// contexts, which aborts their renders.
			_ = srv.Close()
			logger.Warn("shutdown timed out, connections closed", zap.Error(err))
		}
		return nil
	})

	err = g.Wait()
	logger.Info("stopped")
	return err
}
