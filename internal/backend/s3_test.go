package backend_test

import (
	"testing"

	"dsync/internal/backend"
)

func TestNewS3Backend(t *testing.T) {
	t.Parallel()

	t.Run("bucket only", func(t *testing.T) {
		if _, err := backend.NewS3Backend("s3://my-bucket", nil); err != nil {
			t.Errorf("NewS3Backend() error = %v", err)
		}
	})

	t.Run("bucket and prefix", func(t *testing.T) {
		if _, err := backend.NewS3Backend("s3://my-bucket/configs/prod", nil); err != nil {
			t.Errorf("NewS3Backend() error = %v", err)
		}
	})

	t.Run("all recognized parameters", func(t *testing.T) {
		params := map[string]string{
			"region":            "us-east-1",
			"endpoint":          "http://localhost:9000",
			"access_key_id":     "AKIA123",
			"secret_access_key": "secret",
		}
		if _, err := backend.NewS3Backend("s3://my-bucket", params); err != nil {
			t.Errorf("NewS3Backend() error = %v", err)
		}
	})

	t.Run("non-s3 scheme is rejected", func(t *testing.T) {
		if _, err := backend.NewS3Backend("https://my-bucket.s3.amazonaws.com", nil); err == nil {
			t.Error("NewS3Backend() expected error for non-s3 URL")
		}
	})

	t.Run("missing bucket is rejected", func(t *testing.T) {
		if _, err := backend.NewS3Backend("s3:///prefix-only", nil); err == nil {
			t.Error("NewS3Backend() expected error for URL without bucket")
		}
	})

	t.Run("unknown parameter is rejected", func(t *testing.T) {
		params := map[string]string{"storage_class": "GLACIER"}
		if _, err := backend.NewS3Backend("s3://my-bucket", params); err == nil {
			t.Error("NewS3Backend() expected error for unknown parameter")
		}
	})
}
