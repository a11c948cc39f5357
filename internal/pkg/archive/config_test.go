package archive

import (
	"testing"
	"time"

	"github.com/ManuelReschke/PayFox/internal/pkg/env"
)

func TestLoadConfig_DisabledNeedsNothing(t *testing.T) {
	env.Env = map[string]string{}

	config, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig with archiving off: %v", err)
	}
	if config.IsEnabled() {
		t.Fatalf("archiving must default to disabled")
	}
	if config.Region != "us-west-001" {
		t.Fatalf("default region = %s", config.Region)
	}
}

func TestLoadConfig_EnabledValidatesCredentials(t *testing.T) {
	tests := []struct {
		name    string
		missing string
	}{
		{"missing access key", "ARCHIVE_S3_ACCESS_KEY_ID"},
		{"missing secret key", "ARCHIVE_S3_SECRET_ACCESS_KEY"},
		{"missing bucket", "ARCHIVE_S3_BUCKET_NAME"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env.Env = map[string]string{
				"ARCHIVE_ENABLED":              "true",
				"ARCHIVE_S3_ACCESS_KEY_ID":     "key",
				"ARCHIVE_S3_SECRET_ACCESS_KEY": "secret",
				"ARCHIVE_S3_BUCKET_NAME":       "payfox-webhooks",
			}
			delete(env.Env, tt.missing)

			if _, err := LoadConfig(); err == nil {
				t.Fatalf("expected error when %s is unset", tt.missing)
			}
		})
	}

	env.Env = map[string]string{
		"ARCHIVE_ENABLED":              "true",
		"ARCHIVE_S3_ACCESS_KEY_ID":     "key",
		"ARCHIVE_S3_SECRET_ACCESS_KEY": "secret",
		"ARCHIVE_S3_BUCKET_NAME":       "payfox-webhooks",
		"ARCHIVE_S3_ENDPOINT_URL":      "https://s3.example.com",
	}
	config, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if !config.IsEnabled() || config.EndpointURL != "https://s3.example.com" {
		t.Fatalf("unexpected config: %+v", config)
	}
}

func TestObjectKey(t *testing.T) {
	config := &Config{}
	receivedAt := time.Date(2025, time.March, 7, 9, 30, 0, 0, time.UTC)

	got := config.ObjectKey("acmepay", "3f2a9c", receivedAt)
	want := "webhooks/acmepay/2025/03/07/3f2a9c.json"
	if got != want {
		t.Fatalf("ObjectKey = %s, want %s", got, want)
	}
}
