package main

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/pipelink/pipelink-go/internal/pipe"
)

var (
	benchSize  int
	benchCount int
)

func benchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Measure round-trip throughput over a self-contained channel",
		RunE:  runBench,
	}
	cmd.Flags().IntVar(&benchSize, "size", 64*1024, "Message size in bytes")
	cmd.Flags().IntVar(&benchCount, "count", 1000, "Number of round trips")
	return cmd
}

func runBench(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	logger, err := setupLogger(cfg)
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	ch, err := pipe.NewChannel(pipe.ChannelOptions{
		Endpoint:  cfg.Endpoint,
		Direction: pipe.DirectionInOut,
		Mode:      parseMode(cfg.Mode),
		Writer:    pipe.WriterClient,
		Logger:    logger,
	})
	if err != nil {
		return fmt.Errorf("failed to establish channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	payload := bytes.Repeat([]byte{0xA5}, benchSize)
	echoDone := make(chan error, 1)
	go func() {
		buf := make([]byte, benchSize)
		for i := 0; i < benchCount; i++ {
			if _, err := io.ReadFull(ch.Server(), buf); err != nil {
				echoDone <- err
				return
			}
			if _, err := ch.Server().Write(buf); err != nil {
				echoDone <- err
				return
			}
		}
		echoDone <- nil
	}()

	buf := make([]byte, benchSize)
	start := time.Now()
	for i := 0; i < benchCount; i++ {
		if _, err := ch.Client().Write(payload); err != nil {
			return fmt.Errorf("write failed: %w", err)
		}
		if _, err := io.ReadFull(ch.Client(), buf); err != nil {
			return fmt.Errorf("read failed: %w", err)
		}
	}
	elapsed := time.Since(start)
	if err := <-echoDone; err != nil {
		return fmt.Errorf("echo side failed: %w", err)
	}

	total := int64(benchSize) * int64(benchCount) * 2
	fmt.Printf("%d round trips of %d bytes in %v (%.1f MB/s)\n",
		benchCount, benchSize, elapsed.Round(time.Millisecond),
		float64(total)/elapsed.Seconds()/(1<<20))
	return nil
}
