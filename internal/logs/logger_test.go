package logs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pipelink/pipelink-go/internal/config"
)

// TestDefaultLogConfig tests the console-only defaults
func TestDefaultLogConfig(t *testing.T) {
	cfg := DefaultLogConfig()
	assert.Equal(t, LogLevelInfo, cfg.Level)
	assert.True(t, cfg.EnableConsole)
	assert.False(t, cfg.EnableFile)
	assert.Equal(t, "pipelink.log", cfg.Filename)
}

// TestSetupLogger_ConsoleOnly tests building a console logger at each level
func TestSetupLogger_ConsoleOnly(t *testing.T) {
	for _, level := range []string{LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError, "bogus"} {
		t.Run(level, func(t *testing.T) {
			logger, err := SetupLogger(&config.LogConfig{
				Level:         level,
				EnableConsole: true,
			})
			require.NoError(t, err)
			require.NotNil(t, logger)
			logger.Info("test message")
			_ = logger.Sync()
		})
	}
}

// TestSetupLogger_NilConfig tests that nil selects the defaults
func TestSetupLogger_NilConfig(t *testing.T) {
	logger, err := SetupLogger(nil)
	require.NoError(t, err)
	require.NotNil(t, logger)
}

// TestSetupLogger_NoOutputs tests that a config with every sink disabled is rejected
func TestSetupLogger_NoOutputs(t *testing.T) {
	_, err := SetupLogger(&config.LogConfig{Level: LogLevelInfo})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no log outputs")
}

// TestSetupLogger_FileOutput tests that the file core writes to the configured directory
func TestSetupLogger_FileOutput(t *testing.T) {
	dir := t.TempDir()
	logger, err := SetupLogger(&config.LogConfig{
		Level:      LogLevelDebug,
		EnableFile: true,
		LogDir:     dir,
		Filename:   "test.log",
		MaxSize:    1,
	})
	require.NoError(t, err)

	logger.Info("written to file")
	_ = logger.Sync()

	data, err := os.ReadFile(filepath.Join(dir, "test.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "written to file")
}

// TestSetupLogger_JSONFile tests the structured file format
func TestSetupLogger_JSONFile(t *testing.T) {
	dir := t.TempDir()
	logger, err := SetupLogger(&config.LogConfig{
		Level:      LogLevelInfo,
		EnableFile: true,
		LogDir:     dir,
		Filename:   "test.json",
		JSONFormat: true,
	})
	require.NoError(t, err)

	logger.Info("structured entry")
	_ = logger.Sync()

	data, err := os.ReadFile(filepath.Join(dir, "test.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"structured entry"`)
}

// TestLogFilePath tests directory creation and filename defaulting
func TestLogFilePath(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "logs")
	path, err := LogFilePath(dir, "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "pipelink.log"), path)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
