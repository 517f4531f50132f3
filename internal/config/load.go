package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
)

// Load resolves the effective configuration: defaults, then the JSON config
// file at path (if it exists — a missing file is not an error, matching a
// fresh install with no config yet), then environment overrides. Env always
// wins.
func Load(path string, logger *slog.Logger) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		path = DefaultConfigPath()
	}

	if path != "" {
		if err := decodeFile(path, cfg, logger); err != nil {
			return nil, err
		}
	}

	ApplyEnvOverrides(cfg, logger)

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	logger.Debug("config resolved",
		slog.String("s3_bucket", cfg.S3Bucket),
		slog.String("aws_region", cfg.AWSRegion),
	)

	return cfg, nil
}

// decodeFile reads and JSON-decodes the config file into cfg, leaving
// defaults in place for any field the file doesn't mention. A missing file
// is silently ignored; any other read or parse error is fatal.
func decodeFile(path string, cfg *Config, logger *slog.Logger) error {
	logger.Debug("loading config file", slog.String("path", path))

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Debug("no config file found, using defaults", slog.String("path", path))

			return nil
		}

		return fmt.Errorf("config: reading %s: %w", path, err)
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("config: parsing %s: %w", path, err)
	}

	return nil
}
