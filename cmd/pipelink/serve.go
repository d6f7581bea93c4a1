package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pipelink/pipelink-go/internal/pipe"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Listen on a pipe endpoint and echo client data until disconnect",
		RunE:  runServe,
	}
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if cfg.Endpoint == "" {
		return fmt.Errorf("an endpoint is required (--endpoint)")
	}
	logger, err := setupLogger(cfg)
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}
	defer func() { _ = logger.Sync() }()
	metrics := setupMetrics(cfg, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv, err := pipe.NewServer(cfg.Endpoint, &pipe.ServerOptions{
		Direction:          parseDirection(cfg.Direction),
		Mode:               parseMode(cfg.Mode),
		MaxInstances:       cfg.MaxInstances,
		InputBufferSize:    cfg.InputBufferSize,
		OutputBufferSize:   cfg.OutputBufferSize,
		SecurityDescriptor: cfg.SecurityDescriptor,
		AllowReaccept:      cfg.AllowReaccept,
		Logger:             logger,
		Metrics:            metrics,
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	defer func() { _ = srv.Close() }()

	logger.Info("waiting for client", zap.String("endpoint", cfg.Endpoint))
	if err := srv.AcceptContext(ctx); err != nil {
		if errors.Is(err, pipe.ErrCanceled) {
			return nil
		}
		return fmt.Errorf("accept failed: %w", err)
	}
	logger.Info("client connected")

	buf := make([]byte, 64*1024)
	for {
		n, err := srv.ReadContext(ctx, buf)
		if err != nil {
			if errors.Is(err, pipe.ErrCanceled) {
				return nil
			}
			return fmt.Errorf("read failed: %w", err)
		}
		if n == 0 {
			logger.Info("client disconnected")
			return nil
		}
		if _, err := srv.WriteContext(ctx, buf[:n]); err != nil {
			if errors.Is(err, pipe.ErrBrokenPipe) || errors.Is(err, pipe.ErrCanceled) {
				logger.Info("client disconnected")
				return nil
			}
			return fmt.Errorf("write failed: %w", err)
		}
	}
}
