package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pipelink/pipelink-go/internal/config"
	"github.com/pipelink/pipelink-go/internal/logs"
	"github.com/pipelink/pipelink-go/internal/observability"
	"github.com/pipelink/pipelink-go/internal/pipe"
)

var (
	configFile string
	endpoint   string
	direction  string
	mode       string
	logLevel   string
	logToFile  bool
	logDir     string

	version = "v0.1.0" // injected by -ldflags during build
)

func main() {
	rootCmd := &cobra.Command{
		Use:     "pipelink",
		Short:   "pipelink - duplex named-pipe communication between local processes",
		Version: version,
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().StringVarP(&endpoint, "endpoint", "e", "", "Pipe endpoint (name, unix://path, or npipe://path)")
	rootCmd.PersistentFlags().StringVar(&direction, "direction", "", "Pipe direction: in, out, inout")
	rootCmd.PersistentFlags().StringVar(&mode, "mode", "", "Transmission mode: byte or message")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&logToFile, "log-to-file", false, "Enable logging to file")
	rootCmd.PersistentFlags().StringVar(&logDir, "log-dir", "", "Custom log directory path")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(dialCmd())
	rootCmd.AddCommand(benchCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig merges the config file, environment, and command line.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}
	if endpoint != "" {
		cfg.Endpoint = endpoint
	}
	if direction != "" {
		cfg.Direction = direction
	}
	if mode != "" {
		cfg.Mode = mode
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setupLogger(cfg *config.Config) (*zap.Logger, error) {
	logCfg := cfg.Logging
	if logCfg == nil {
		logCfg = logs.DefaultLogConfig()
	}
	logCfg.Level = logLevel
	logCfg.EnableFile = logToFile
	if logDir != "" {
		logCfg.LogDir = logDir
	}
	return logs.SetupLogger(logCfg)
}

// setupMetrics starts the Prometheus scrape endpoint when configured and
// returns the sink to attach to endpoints.
func setupMetrics(cfg *config.Config, logger *zap.Logger) pipe.MetricsSink {
	if cfg.Metrics == nil || !cfg.Metrics.Enabled {
		return nil
	}
	m := observability.NewPipeMetrics(logger.Sugar())
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	go func() {
		if err := http.ListenAndServe(cfg.Metrics.Listen, mux); err != nil {
			logger.Warn("metrics endpoint stopped", zap.Error(err))
		}
	}()
	logger.Info("metrics endpoint listening", zap.String("listen", cfg.Metrics.Listen))
	return m
}

func parseDirection(s string) pipe.Direction {
	switch s {
	case "in":
		return pipe.DirectionIn
	case "out":
		return pipe.DirectionOut
	default:
		return pipe.DirectionInOut
	}
}

func parseMode(s string) pipe.TransmissionMode {
	if s == "message" {
		return pipe.ModeMessage
	}
	return pipe.ModeByte
}
