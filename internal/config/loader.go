package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

const envPrefix = "PIPELINK"

// Load reads configuration from an optional file plus PIPELINK_*
// environment variables, over the defaults. An empty path skips the
// file layer entirely.
func Load(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		if _, err := os.Stat(configPath); err != nil {
			return nil, fmt.Errorf("config file %s: %w", configPath, err)
		}
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
		}
	}

	bindKeys(v)
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// bindKeys makes AutomaticEnv see keys that never appear in a config
// file; viper only consults the environment for keys it knows about.
func bindKeys(v *viper.Viper) {
	for _, key := range []string{
		"endpoint",
		"direction",
		"mode",
		"max-instances",
		"input-buffer-size",
		"output-buffer-size",
		"connect-timeout",
		"security-descriptor",
		"logging.level",
		"logging.enable-file",
		"logging.enable-console",
		"logging.log-dir",
		"metrics.enabled",
		"metrics.listen",
	} {
		_ = v.BindEnv(key)
	}
}
