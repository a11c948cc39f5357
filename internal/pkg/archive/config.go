package archive

import (
	"errors"
	"fmt"
	"time"

	"github.com/ManuelReschke/PayFox/internal/pkg/env"
)

// Config holds the payload-archive S3 configuration.
type Config struct {
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	BucketName      string
	EndpointURL     string // optional, for S3-compatible services
	Enabled         bool
}

// LoadConfig reads the archive configuration from environment variables.
func LoadConfig() (*Config, error) {
	config := &Config{
		AccessKeyID:     env.GetEnv("ARCHIVE_S3_ACCESS_KEY_ID", ""),
		SecretAccessKey: env.GetEnv("ARCHIVE_S3_SECRET_ACCESS_KEY", ""),
		Region:          env.GetEnv("ARCHIVE_S3_REGION", "us-west-001"),
		BucketName:      env.GetEnv("ARCHIVE_S3_BUCKET_NAME", ""),
		EndpointURL:     env.GetEnv("ARCHIVE_S3_ENDPOINT_URL", ""),
		Enabled:         env.GetEnv("ARCHIVE_ENABLED", "false") == "true",
	}

	if config.Enabled {
		if config.AccessKeyID == "" {
			return nil, errors.New("ARCHIVE_S3_ACCESS_KEY_ID is required when payload archiving is enabled")
		}
		if config.SecretAccessKey == "" {
			return nil, errors.New("ARCHIVE_S3_SECRET_ACCESS_KEY is required when payload archiving is enabled")
		}
		if config.BucketName == "" {
			return nil, errors.New("ARCHIVE_S3_BUCKET_NAME is required when payload archiving is enabled")
		}
	}

	return config, nil
}

// IsEnabled returns true when payload archiving is switched on.
func (c *Config) IsEnabled() bool {
	return c.Enabled
}

// ObjectKey builds the S3 key a payload is archived under:
// webhooks/<provider>/YYYY/MM/DD/<deliveryID>.json
func (c *Config) ObjectKey(provider, deliveryID string, receivedAt time.Time) string {
	return fmt.Sprintf("webhooks/%s/%04d/%02d/%02d/%s.json",
		provider, receivedAt.Year(), receivedAt.Month(), receivedAt.Day(), deliveryID)
}
