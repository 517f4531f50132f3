package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError + 100}))
}

func TestDefaultConfig_PassesValidationOnceBucketSet(t *testing.T) {
	cfg := DefaultConfig()
	require.Error(t, Validate(cfg), "bucket is required")

	cfg.S3Bucket = "recordings"
	assert.NoError(t, Validate(cfg))
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(EnvS3Bucket, "recordings")

	cfg, err := Load(filepath.Join(dir, "does-not-exist.json"), discardLogger())
	require.NoError(t, err)
	assert.Equal(t, "recordings", cfg.S3Bucket)
	assert.Equal(t, defaultAWSRegion, cfg.AWSRegion)
}

func TestLoad_FileThenEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")

	written := &Config{S3Bucket: "from-file", AWSRegion: "eu-west-1"}
	require.NoError(t, Write(written, path))

	t.Setenv(EnvAWSRegion, "us-west-2")

	cfg, err := Load(path, discardLogger())
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.S3Bucket)
	assert.Equal(t, "us-west-2", cfg.AWSRegion, "env must win over file")
}

func TestLoad_InvalidJSONIsFatal(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := Load(path, discardLogger())
	require.Error(t, err)
}

func TestWriteThenLoad_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")

	original := &Config{
		AWSProfile:          "prod",
		AWSRegion:           "us-east-2",
		S3Bucket:            "recordings",
		DefaultUploadFolder: "/mnt/recordings",
		DisplayName:         "ops-workstation-1",
		LogDirectory:        dir,
	}
	require.NoError(t, Write(original, path))

	loaded, err := Load(path, discardLogger())
	require.NoError(t, err)
	assert.Equal(t, original, loaded)
}
