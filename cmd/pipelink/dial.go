package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pipelink/pipelink-go/internal/pipe"
)

var sendPayload string

func dialCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dial",
		Short: "Connect to a pipe endpoint, send a payload, and print the reply",
		RunE:  runDial,
	}
	cmd.Flags().StringVar(&sendPayload, "send", "ping", "Payload to send")
	return cmd
}

func runDial(_ *cobra.Command, _ []string) error {
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
	if cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
	}

	cli, err := pipe.NewClient(cfg.Endpoint, &pipe.ClientOptions{
		Direction: parseDirection(cfg.Direction),
		Mode:      parseMode(cfg.Mode),
		Logger:    logger,
		Metrics:   metrics,
	})
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}
	defer func() { _ = cli.Close() }()

	if err := cli.ConnectContext(ctx); err != nil {
		return fmt.Errorf("connect failed: %w", err)
	}
	logger.Debug("connected", zap.String("endpoint", cfg.Endpoint))

	if _, err := cli.WriteContext(ctx, []byte(sendPayload)); err != nil {
		return fmt.Errorf("write failed: %w", err)
	}
	buf := make([]byte, 64*1024)
	n, err := cli.ReadContext(ctx, buf)
	if err != nil {
		return fmt.Errorf("read failed: %w", err)
	}
	fmt.Println(string(buf[:n]))
	return nil
}
