// Package config handles loading, saving, and validating the application
// configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvConfigPath overrides the default config file location when set.
const EnvConfigPath = "RPI_BACKUP_CONFIG"

type Config struct {
	// BackupRoot is the mount point of the destination volume. All
	// period directories live beneath it, and it is the only tree the
	// retention cleaner is allowed to delete from.
	BackupRoot string `yaml:"backup_root"`

	// SourcePath is the filesystem whose usage sizes the space budget.
	SourcePath string `yaml:"source_path"`

	// ToolPath is the external image capture/update program.
	ToolPath string `yaml:"tool_path"`

	// ImageName is the canonical image file name within a period directory.
	ImageName string `yaml:"image_name"`

	// FullBackupWeekday names the weekday on which a full backup is
	// always taken, e.g. "sunday".
	FullBackupWeekday string `yaml:"full_backup_weekday"`

	// MinRetain is the retention floor: automated cleanup never reduces
	// the retained backup count below it. Zero disables auto-cleanup.
	MinRetain int `yaml:"min_retain"`

	// InitialSizeHint and ExtraSizeHint are optional MB hints forwarded
	// to the image tool on full backups. Zero means unset.
	InitialSizeHint int `yaml:"initial_size_hint"`
	ExtraSizeHint   int `yaml:"extra_size_hint"`

	// PassThroughOptions are handed to the image tool verbatim.
	PassThroughOptions []string `yaml:"pass_through_options"`

	// CleanupPolicy selects the retention granularity: "directory"
	// deletes whole period directories' images, "file" deletes the
	// minimal set of oldest files.
	CleanupPolicy string `yaml:"cleanup_policy"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	name := "backup.img"
	if host, err := os.Hostname(); err == nil && host != "" {
		name = host + ".img"
	}
	return &Config{
		BackupRoot:        "/backup",
		SourcePath:        "/",
		ToolPath:          "/usr/local/bin/image-backup",
		ImageName:         name,
		FullBackupWeekday: "sunday",
		MinRetain:         0,
		CleanupPolicy:     "directory",
	}
}

// ConfigPath returns the config file location.
func ConfigPath() string {
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".rpi-backup", "config.yaml")
}

// Load reads the config file, falling back to defaults when it is missing.
func Load() (*Config, error) {
	cfg := DefaultConfig()

	path := ConfigPath()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Use defaults
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	return cfg, nil
}

// Save writes the config to its file, creating parent directories.
func (c *Config) Save() error {
	path := ConfigPath()

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) string {
	if len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return path // Return unexpanded if home unavailable
		}
		return filepath.Join(home, path[1:])
	}
	return path
}

// ValidationError describes a rejected configuration value. Validation
// always runs before any destructive action.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Msg)
}

// Weekday parses FullBackupWeekday into a time.Weekday.
func (c *Config) Weekday() (time.Weekday, error) {
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.EqualFold(d.String(), c.FullBackupWeekday) {
			return d, nil
		}
	}
	return 0, &ValidationError{Field: "full_backup_weekday", Msg: fmt.Sprintf("unknown weekday %q", c.FullBackupWeekday)}
}

// Validate checks the configuration for use by a backup run.
func (c *Config) Validate() error {
	if c.BackupRoot == "" {
		return &ValidationError{Field: "backup_root", Msg: "required"}
	}
	if !filepath.IsAbs(c.BackupRoot) || filepath.Clean(c.BackupRoot) == "/" {
		return &ValidationError{Field: "backup_root", Msg: "must be an absolute path below /"}
	}
	if c.SourcePath == "" {
		return &ValidationError{Field: "source_path", Msg: "required"}
	}
	if c.ToolPath == "" {
		return &ValidationError{Field: "tool_path", Msg: "required"}
	}
	if c.ImageName == "" || c.ImageName != filepath.Base(c.ImageName) {
		return &ValidationError{Field: "image_name", Msg: "must be a bare file name"}
	}
	if _, err := c.Weekday(); err != nil {
		return err
	}
	if c.MinRetain < 0 {
		return &ValidationError{Field: "min_retain", Msg: "must not be negative"}
	}
	if c.InitialSizeHint < 0 {
		return &ValidationError{Field: "initial_size_hint", Msg: "must not be negative"}
	}
	if c.ExtraSizeHint < 0 {
		return &ValidationError{Field: "extra_size_hint", Msg: "must not be negative"}
	}
	if c.ExtraSizeHint > 0 && c.InitialSizeHint == 0 {
		return &ValidationError{Field: "extra_size_hint", Msg: "requires initial_size_hint"}
	}
	switch c.CleanupPolicy {
	case "directory", "file":
	default:
		return &ValidationError{Field: "cleanup_policy", Msg: fmt.Sprintf("unknown policy %q", c.CleanupPolicy)}
	}
	return nil
}
