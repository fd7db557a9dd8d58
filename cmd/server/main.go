package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/RenatoCabral2022/binaural-studio/internal/config"
	"github.com/RenatoCabral2022/binaural-studio/internal/diagnostics"
	"github.com/RenatoCabral2022/binaural-studio/internal/handler"
	"github.com/RenatoCabral2022/binaural-studio/internal/processing"
	"github.com/RenatoCabral2022/binaural-studio/internal/studio"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid config", zap.Error(err))
	}
	logger.Info("binaural-studio starting",
		zap.String("port", cfg.Port),
		zap.String("processUrl", cfg.ProcessURL),
		zap.Duration("processTimeout", cfg.ProcessTimeout),
		zap.Int("maxVisitors", cfg.MaxVisitors),
		zap.Duration("visitorTtl", cfg.VisitorTTL),
		zap.Bool("diagnostics", cfg.DiagnosticsToken != ""),
	)

	diag := diagnostics.New(cfg.DiagnosticsSize)
	client := processing.NewClient(cfg.ProcessURL, logger)
	s := studio.New(studio.Config{
		MaxVisitors:    cfg.MaxVisitors,
		ProcessTimeout: cfg.ProcessTimeout,
		VisitorTTL:     cfg.VisitorTTL,
	}, client, diag, logger)
	h := handler.NewHandlers(s, diag, cfg.MaxUploadBytes, logger)

	// No WriteTimeout: a cold processing service can take minutes to answer.
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler.NewRouter(h, handler.RouterOptions{
			AllowedOrigins:   cfg.AllowedOrigins,
			DiagnosticsToken: cfg.DiagnosticsToken,
		}, logger),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       2 * time.Minute,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("http listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		s.Shutdown()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server stopped with error", zap.Error(err))
		os.Exit(1)
	}
}
