package config

import (
	"log/slog"
	"os"
)

// Environment variable names for overrides: MODAQ_ plus the uppercase
// config key.
const (
	EnvAWSProfile          = "MODAQ_AWS_PROFILE"
	EnvAWSRegion           = "MODAQ_AWS_REGION"
	EnvS3Bucket            = "MODAQ_S3_BUCKET"
	EnvDefaultUploadFolder = "MODAQ_DEFAULT_UPLOAD_FOLDER"
	EnvDisplayName         = "MODAQ_DISPLAY_NAME"
	EnvLogDirectory        = "MODAQ_LOG_DIRECTORY"
)

// ApplyEnvOverrides mutates cfg in place, replacing any field whose
// corresponding MODAQ_ environment variable is set. Env always wins over
// the config file.
func ApplyEnvOverrides(cfg *Config, logger *slog.Logger) {
	applyIfSet(&cfg.AWSProfile, EnvAWSProfile, logger)
	applyIfSet(&cfg.AWSRegion, EnvAWSRegion, logger)
	applyIfSet(&cfg.S3Bucket, EnvS3Bucket, logger)
	applyIfSet(&cfg.DefaultUploadFolder, EnvDefaultUploadFolder, logger)
	applyIfSet(&cfg.DisplayName, EnvDisplayName, logger)
	applyIfSet(&cfg.LogDirectory, EnvLogDirectory, logger)
}

// applyIfSet overwrites *field with the named environment variable's value
// when that variable is present in the environment (even if set to "").
func applyIfSet(field *string, envVar string, logger *slog.Logger) {
	val, ok := os.LookupEnv(envVar)
	if !ok {
		return
	}

	logger.Debug("env override applied", slog.String("var", envVar))

	*field = val
}
