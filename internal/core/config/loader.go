package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// Load reads configuration from a YAML file.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg AppConfig
	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Set defaults if necessary
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Engine.MaxRetries == 0 {
		cfg.Engine.MaxRetries = 3
	}
	if cfg.Engine.BreakerThreshold == 0 {
		cfg.Engine.BreakerThreshold = 5
	}
	if cfg.Engine.BreakerTimeoutSeconds == 0 {
		cfg.Engine.BreakerTimeoutSeconds = 300
	}
	if cfg.Engine.DefaultRetryDelaySecs == 0 {
		cfg.Engine.DefaultRetryDelaySecs = 5
	}
	if cfg.Engine.HistoryCap == 0 {
		cfg.Engine.HistoryCap = 10000
	}

	return &cfg, nil
}
