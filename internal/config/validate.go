package config

import "fmt"

// Validate checks a fully-resolved Config for internal consistency. Called
// after defaults + file + env have all been merged.
func Validate(cfg *Config) error {
	if cfg.S3Bucket == "" {
		return fmt.Errorf("config: s3_bucket is required (set it in the config file or %s)", EnvS3Bucket)
	}

	if cfg.AWSRegion == "" {
		return fmt.Errorf("config: aws_region is required (set it in the config file or %s)", EnvAWSRegion)
	}

	return nil
}
