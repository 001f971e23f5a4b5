package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"pollsterHook/internal/config"
	"pollsterHook/internal/delivery"
	"pollsterHook/internal/pollster"
	"pollsterHook/internal/server"
	"pollsterHook/internal/state"
	"pollsterHook/internal/storage"
	"pollsterHook/internal/storage/postgres"
)

func runServe(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadServe(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var sinks []storage.Storage
	if cfg.Out != "" {
		deliveryLog := storage.NewJsonlStorage(cfg.Out)
		defer deliveryLog.Close()
		sinks = append(sinks, deliveryLog)
	}

	var cursor state.Store
	if cfg.PGDSN != "" {
		store, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer store.Close()
		if err := store.EnsureSchema(ctx); err != nil {
			return err
		}
		sinks = append(sinks, store)
		cursor = &state.DBStore{Store: store}
	} else if cfg.StateFile != "" {
		cursor = &state.FileStore{Path: cfg.StateFile}
	}

	recorder := delivery.NewRecorder(delivery.Config{
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
	}, sinks, cursor, logger)

	processor := pollster.NewProcessor(
		pollster.NewExtractor(logger),
		pollster.NewDispatcher(pollster.DispatchConfig{
			StopOnHandlerError: cfg.StopOnHandlerError,
		}, pollster.NewLogHandlers(logger), logger),
		recorder,
		logger,
	)

	if cfg.Environment != "development" {
		gin.SetMode(gin.ReleaseMode)
	}

	var cursorReader server.CursorReader
	if cursor != nil {
		cursorReader = recorder
	}

	srv := server.New(server.Config{
		Environment:     cfg.Environment,
		Network:         cfg.Network,
		ContractAddress: cfg.ContractAddress,
		ContractName:    cfg.ContractName,
		WebhookPath:     cfg.WebhookPath,
		WebhookToken:    cfg.WebhookToken,
		BodyLimit:       cfg.BodyLimit,
	}, processor, cursorReader, logger)

	httpServer := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      srv.Router(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	logger.Info("server start",
		zap.String("addr", cfg.Addr()),
		zap.String("environment", cfg.Environment),
		zap.String("network", cfg.Network),
		zap.String("contract", cfg.Contract()),
		zap.String("webhook_path", cfg.WebhookPath),
		zap.Bool("webhook_token", cfg.WebhookToken != ""),
		zap.Bool("stop_on_handler_error", cfg.StopOnHandlerError),
		zap.String("out", cfg.Out),
		zap.String("pg_dsn", redactDSN(cfg.PGDSN)),
		zap.String("state_file", cfg.StateFile),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down gracefully")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("server stopped")
	return nil
}

func redactDSN(dsn string) string {
	if dsn == "" {
		return dsn
	}
	return "***"
}
