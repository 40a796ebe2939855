package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.BackupRoot != "/backup" {
		t.Errorf("BackupRoot = %q, expected /backup", cfg.BackupRoot)
	}
	if cfg.SourcePath != "/" {
		t.Errorf("SourcePath = %q, expected /", cfg.SourcePath)
	}
	if cfg.FullBackupWeekday != "sunday" {
		t.Errorf("FullBackupWeekday = %q, expected sunday", cfg.FullBackupWeekday)
	}
	if cfg.MinRetain != 0 {
		t.Errorf("MinRetain = %d, expected 0 (cleanup disabled)", cfg.MinRetain)
	}
	if cfg.CleanupPolicy != "directory" {
		t.Errorf("CleanupPolicy = %q, expected directory", cfg.CleanupPolicy)
	}
	if filepath.Ext(cfg.ImageName) != ".img" {
		t.Errorf("ImageName = %q, expected an .img name", cfg.ImageName)
	}
}

func TestLoad(t *testing.T) {
	t.Run("missing file returns defaults", func(t *testing.T) {
		t.Setenv(EnvConfigPath, filepath.Join(t.TempDir(), "absent.yaml"))

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load failed for missing config: %v", err)
		}
		if cfg.BackupRoot != "/backup" {
			t.Errorf("expected defaults, got BackupRoot %q", cfg.BackupRoot)
		}
	})

	t.Run("file values override defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		content := `backup_root: /mnt/backup
source_path: /
tool_path: /opt/image-backup
min_retain: 4
initial_size_hint: 8192
pass_through_options:
  - bs=4M
  - sync
cleanup_policy: file
`
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
		t.Setenv(EnvConfigPath, path)

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if cfg.BackupRoot != "/mnt/backup" {
			t.Errorf("BackupRoot = %q", cfg.BackupRoot)
		}
		if cfg.MinRetain != 4 {
			t.Errorf("MinRetain = %d", cfg.MinRetain)
		}
		if len(cfg.PassThroughOptions) != 2 || cfg.PassThroughOptions[0] != "bs=4M" {
			t.Errorf("PassThroughOptions = %v", cfg.PassThroughOptions)
		}
		if cfg.CleanupPolicy != "file" {
			t.Errorf("CleanupPolicy = %q", cfg.CleanupPolicy)
		}
		// Untouched keys keep their defaults.
		if cfg.FullBackupWeekday != "sunday" {
			t.Errorf("FullBackupWeekday = %q, expected default", cfg.FullBackupWeekday)
		}
	})

	t.Run("malformed yaml fails", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		if err := os.WriteFile(path, []byte("backup_root: [broken"), 0644); err != nil {
			t.Fatal(err)
		}
		t.Setenv(EnvConfigPath, path)

		if _, err := Load(); err == nil {
			t.Fatal("expected error for malformed yaml")
		}
	})
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	t.Setenv(EnvConfigPath, path)

	cfg := DefaultConfig()
	cfg.BackupRoot = "/mnt/backup"
	cfg.MinRetain = 3
	if err := cfg.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.BackupRoot != "/mnt/backup" || loaded.MinRetain != 3 {
		t.Errorf("round trip = %+v", loaded)
	}
}

func TestWeekday(t *testing.T) {
	cfg := DefaultConfig()

	cfg.FullBackupWeekday = "Sunday"
	if d, err := cfg.Weekday(); err != nil || d != time.Sunday {
		t.Errorf("Weekday(Sunday) = %v, %v", d, err)
	}

	cfg.FullBackupWeekday = "wednesday"
	if d, err := cfg.Weekday(); err != nil || d != time.Wednesday {
		t.Errorf("Weekday(wednesday) = %v, %v", d, err)
	}

	cfg.FullBackupWeekday = "someday"
	if _, err := cfg.Weekday(); err == nil {
		t.Error("expected error for unknown weekday")
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := DefaultConfig()
		cfg.ToolPath = "/usr/local/bin/image-backup"
		return cfg
	}

	if err := valid().Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"empty backup root", func(c *Config) { c.BackupRoot = "" }, "backup_root"},
		{"relative backup root", func(c *Config) { c.BackupRoot = "backup" }, "backup_root"},
		{"root as backup root", func(c *Config) { c.BackupRoot = "/" }, "backup_root"},
		{"empty source", func(c *Config) { c.SourcePath = "" }, "source_path"},
		{"empty tool path", func(c *Config) { c.ToolPath = "" }, "tool_path"},
		{"image name with path", func(c *Config) { c.ImageName = "a/b.img" }, "image_name"},
		{"bad weekday", func(c *Config) { c.FullBackupWeekday = "caturday" }, "full_backup_weekday"},
		{"negative retain", func(c *Config) { c.MinRetain = -1 }, "min_retain"},
		{"negative size hint", func(c *Config) { c.InitialSizeHint = -1 }, "initial_size_hint"},
		{"extra hint without size hint", func(c *Config) { c.ExtraSizeHint = 100 }, "extra_size_hint"},
		{"unknown policy", func(c *Config) { c.CleanupPolicy = "weekly" }, "cleanup_policy"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)

			err := cfg.Validate()
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected *ValidationError, got %v", err)
			}
			if ve.Field != tt.field {
				t.Errorf("Field = %q, expected %q", ve.Field, tt.field)
			}
		})
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home dir")
	}
	if got := ExpandPath("~/backups"); got != filepath.Join(home, "backups") {
		t.Errorf("ExpandPath(~/backups) = %q", got)
	}
	if got := ExpandPath("/abs/path"); got != "/abs/path" {
		t.Errorf("ExpandPath(/abs/path) = %q", got)
	}
}
