package app

import (
	"os"
	"path/filepath"
	"testing"
)

func TestGetDefaults(t *testing.T) {
	t.Run("environment overrides", func(t *testing.T) {
		t.Setenv("DSYNC_CONFIG_PATH", "/etc/dsync/dsync.toml")
		t.Setenv("DSYNC_HOME", "/var/lib/dsync")

		defaults, err := GetDefaults()
		if err != nil {
			t.Fatalf("GetDefaults() error = %v", err)
		}
		if defaults["config_path"] != "/etc/dsync/dsync.toml" {
			t.Errorf("config_path = %s", defaults["config_path"])
		}
		if defaults["base_dir"] != "/var/lib/dsync" {
			t.Errorf("base_dir = %s", defaults["base_dir"])
		}
		if defaults["log_dir"] != filepath.Join("/var/lib/dsync", "log") {
			t.Errorf("log_dir = %s", defaults["log_dir"])
		}
	})

	t.Run("falls back to home directory", func(t *testing.T) {
		t.Setenv("DSYNC_CONFIG_PATH", "")
		t.Setenv("DSYNC_HOME", "")

		home, err := os.UserHomeDir()
		if err != nil {
			t.Skipf("no home directory: %v", err)
		}

		defaults, err := GetDefaults()
		if err != nil {
			t.Fatalf("GetDefaults() error = %v", err)
		}
		if want := filepath.Join(home, ".config", "dsync.toml"); defaults["config_path"] != want {
			t.Errorf("config_path = %s, want %s", defaults["config_path"], want)
		}
		if want := filepath.Join(home, ".local", "share", "dsync"); defaults["base_dir"] != want {
			t.Errorf("base_dir = %s, want %s", defaults["base_dir"], want)
		}
	})
}
