// Package cli provides the command-line interface with injectable io.Writer for testing.
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/maxivhuber/rpi-backup/internal/adapters/execimagetool"
	"github.com/maxivhuber/rpi-backup/internal/adapters/osfs"
	"github.com/maxivhuber/rpi-backup/internal/adapters/reflinkclone"
	"github.com/maxivhuber/rpi-backup/internal/adapters/statfsprobe"
	"github.com/maxivhuber/rpi-backup/internal/adapters/sysmount"
	"github.com/maxivhuber/rpi-backup/internal/backup"
	"github.com/maxivhuber/rpi-backup/internal/config"
	"github.com/maxivhuber/rpi-backup/internal/logging"
	"github.com/maxivhuber/rpi-backup/internal/retention"
	"github.com/maxivhuber/rpi-backup/internal/spaceguard"
)

// ConfigService provides configuration operations for the CLI.
type ConfigService interface {
	Load() (*config.Config, error)
	Save(cfg *config.Config) error
	ConfigPath() string
	DefaultConfig() *config.Config
}

// BackupService provides the backup run for the CLI.
type BackupService interface {
	Run(cfg *config.Config) (*backup.Result, error)
}

// InventoryService lists the destination volume's contents for the CLI.
type InventoryService interface {
	Scan(cfg *config.Config) ([]backup.PeriodInfo, error)
	Available(cfg *config.Config) (uint64, error)
}

// CLI represents the command-line interface with injectable dependencies.
type CLI struct {
	Out     io.Writer // Standard output
	Err     io.Writer // Standard error
	Version string    // Application version
	Args    []string  // Command arguments (like os.Args)

	// Exit function for testability (defaults to os.Exit)
	Exit func(code int)

	// Injectable dependencies (nil means use defaults)
	ConfigSvc    ConfigService
	BackupSvc    BackupService
	InventorySvc InventoryService

	// Color functions (can be disabled for testing)
	green  func(a ...interface{}) string
	yellow func(a ...interface{}) string
	cyan   func(a ...interface{}) string
	gray   func(a ...interface{}) string
	red    func(a ...interface{}) string
}

// New creates a new CLI with default settings.
func New(version string) *CLI {
	return &CLI{
		Out:     os.Stdout,
		Err:     os.Stderr,
		Version: version,
		Args:    os.Args,
		Exit:    os.Exit,
		green:   color.New(color.FgGreen, color.Bold).SprintFunc(),
		yellow:  color.New(color.FgYellow).SprintFunc(),
		cyan:    color.New(color.FgCyan).SprintFunc(),
		gray:    color.New(color.FgHiBlack).SprintFunc(),
		red:     color.New(color.FgRed).SprintFunc(),
	}
}

// NewForTesting creates a CLI configured for testing (no colors, captured output).
func NewForTesting(out, errOut io.Writer, args []string) *CLI {
	noColor := func(a ...interface{}) string { return fmt.Sprint(a...) }
	return &CLI{
		Out:     out,
		Err:     errOut,
		Version: "test",
		Args:    args,
		Exit:    func(code int) {},
		green:   noColor,
		yellow:  noColor,
		cyan:    noColor,
		gray:    noColor,
		red:     noColor,
	}
}

// defaultConfigService wraps the config package functions.
type defaultConfigService struct{}

func (d *defaultConfigService) Load() (*config.Config, error) { return config.Load() }
func (d *defaultConfigService) Save(cfg *config.Config) error { return cfg.Save() }
func (d *defaultConfigService) ConfigPath() string            { return config.ConfigPath() }
func (d *defaultConfigService) DefaultConfig() *config.Config { return config.DefaultConfig() }

// defaultBackupService wires the production adapters into a runner.
type defaultBackupService struct{}

func (d *defaultBackupService) Run(cfg *config.Config) (*backup.Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	policy, err := retention.ParsePolicy(cfg.CleanupPolicy)
	if err != nil {
		return nil, err
	}

	fs := osfs.New()
	probe := statfsprobe.New()
	log := logging.StdLogger{}
	cleaner := retention.New(fs, probe, log, policy)
	guard := spaceguard.New(probe, cleaner, log)
	tool := execimagetool.New(execimagetool.WithToolPath(cfg.ToolPath))
	runner := backup.NewRunner(fs, probe, tool, reflinkclone.New(), sysmount.New(), guard, log)

	return runner.Run(cfg)
}

// defaultInventoryService scans the destination, mounting it when needed.
type defaultInventoryService struct{}

func (d *defaultInventoryService) Scan(cfg *config.Config) ([]backup.PeriodInfo, error) {
	fs := osfs.New()
	mounter := sysmount.New()

	mounted, err := mounter.IsMounted(cfg.BackupRoot)
	if err != nil {
		return nil, err
	}
	if !mounted {
		if err := mounter.Mount(cfg.BackupRoot); err != nil {
			return nil, err
		}
		defer func() { _ = mounter.Unmount(cfg.BackupRoot) }()
	}

	return backup.ScanPeriods(fs, cfg.BackupRoot, cfg.ImageName)
}

func (d *defaultInventoryService) Available(cfg *config.Config) (uint64, error) {
	return statfsprobe.New().Available(cfg.BackupRoot)
}

// Helper methods to get the service or default
func (c *CLI) configSvc() ConfigService {
	if c.ConfigSvc != nil {
		return c.ConfigSvc
	}
	return &defaultConfigService{}
}

func (c *CLI) backupSvc() BackupService {
	if c.BackupSvc != nil {
		return c.BackupSvc
	}
	return &defaultBackupService{}
}

func (c *CLI) inventorySvc() InventoryService {
	if c.InventorySvc != nil {
		return c.InventorySvc
	}
	return &defaultInventoryService{}
}

// Run executes the CLI with the configured arguments.
func (c *CLI) Run() {
	if len(c.Args) < 2 {
		fmt.Fprintln(c.Out, "No command specified. Use 'rpi-backup help' for usage.")
		return
	}

	switch c.Args[1] {
	case "run":
		c.RunBackup()
	case "list":
		c.ListBackups()
	case "init":
		c.InitConfig()
	case "config":
		c.ShowConfig()
	case "version", "-v", "--version":
		fmt.Fprintf(c.Out, "rpi-backup v%s\n", c.Version)
	case "help", "-h", "--help":
		c.PrintUsage()
	default:
		fmt.Fprintf(c.Err, "Unknown command: %s\n", c.Args[1])
		c.PrintUsage()
		c.Exit(1)
	}
}

// PrintUsage prints the help message.
func (c *CLI) PrintUsage() {
	fmt.Fprintln(c.Out, `rpi-backup - Rotating Disk Image Backup Tool

Usage:
  rpi-backup                Launch interactive TUI
  rpi-backup ui             Launch interactive TUI
  rpi-backup run            Perform today's backup (full or incremental)
  rpi-backup list           List retained backup periods and images
  rpi-backup config         Show the active configuration
  rpi-backup init           Create default config file
  rpi-backup version, -v    Show version
  rpi-backup help, -h       Show this help

Config: ~/.rpi-backup/config.yaml (or $RPI_BACKUP_CONFIG)`)
}

// InitConfig creates the default config file.
func (c *CLI) InitConfig() {
	svc := c.configSvc()
	if err := svc.Save(svc.DefaultConfig()); err != nil {
		fmt.Fprintf(c.Err, "Error saving config: %v\n", err)
		c.Exit(1)
		return
	}
	fmt.Fprintf(c.Out, "Created config at %s\n", svc.ConfigPath())
}

// ShowConfig prints the active configuration.
func (c *CLI) ShowConfig() {
	cfg, err := c.configSvc().Load()
	if err != nil {
		fmt.Fprintf(c.Err, "Error loading config: %v\n", err)
		c.Exit(1)
		return
	}

	fmt.Fprintf(c.Out, "%s %s\n\n", c.cyan("config:"), c.configSvc().ConfigPath())
	fmt.Fprintf(c.Out, "  backup_root:          %s\n", cfg.BackupRoot)
	fmt.Fprintf(c.Out, "  source_path:          %s\n", cfg.SourcePath)
	fmt.Fprintf(c.Out, "  tool_path:            %s\n", cfg.ToolPath)
	fmt.Fprintf(c.Out, "  image_name:           %s\n", cfg.ImageName)
	fmt.Fprintf(c.Out, "  full_backup_weekday:  %s\n", cfg.FullBackupWeekday)
	if cfg.MinRetain > 0 {
		fmt.Fprintf(c.Out, "  min_retain:           %d (%s policy)\n", cfg.MinRetain, cfg.CleanupPolicy)
	} else {
		fmt.Fprintf(c.Out, "  min_retain:           %s\n", c.gray("unset (auto-cleanup disabled)"))
	}
	if cfg.InitialSizeHint > 0 {
		fmt.Fprintf(c.Out, "  initial_size_hint:    %d MB\n", cfg.InitialSizeHint)
	}
	if cfg.ExtraSizeHint > 0 {
		fmt.Fprintf(c.Out, "  extra_size_hint:      %d MB\n", cfg.ExtraSizeHint)
	}
	if len(cfg.PassThroughOptions) > 0 {
		fmt.Fprintf(c.Out, "  pass_through_options: %v\n", cfg.PassThroughOptions)
	}
}

// RunBackup runs the backup command.
func (c *CLI) RunBackup() {
	cfg, err := c.configSvc().Load()
	if err != nil {
		fmt.Fprintf(c.Err, "Error loading config: %v\n", err)
		c.Exit(1)
		return
	}

	fmt.Fprintf(c.Out, "%s Backing up %s to %s...\n", c.cyan("=>"), cfg.SourcePath, cfg.BackupRoot)

	result, err := c.backupSvc().Run(cfg)
	if err != nil {
		fmt.Fprintf(c.Err, "%s %v\n", c.red("Error:"), err)
		c.Exit(1)
		return
	}

	fmt.Fprintln(c.Out)
	if result.SnapshotPath != "" {
		fmt.Fprintf(c.Out, "  %s snapshot %s\n", c.gray("-"), c.gray(result.SnapshotPath))
	}
	fmt.Fprintf(c.Out, "  %s %s backup %s (%s)\n",
		c.green("*"),
		result.Mode,
		result.ImagePath,
		c.yellow(result.Period.String()))
}

// ListBackups lists the retained periods and their images.
func (c *CLI) ListBackups() {
	cfg, err := c.configSvc().Load()
	if err != nil {
		fmt.Fprintf(c.Err, "Error loading config: %v\n", err)
		c.Exit(1)
		return
	}

	svc := c.inventorySvc()
	periods, err := svc.Scan(cfg)
	if err != nil {
		fmt.Fprintf(c.Err, "%s %v\n", c.red("Error:"), err)
		c.Exit(1)
		return
	}

	if avail, err := svc.Available(cfg); err == nil {
		fmt.Fprintf(c.Out, "%s %s free on %s\n\n", c.cyan("=>"), backup.FormatSize(int64(avail)), cfg.BackupRoot)
	}

	if len(periods) == 0 {
		fmt.Fprintln(c.Out, "No backups found.")
		return
	}

	for _, p := range periods {
		fmt.Fprintf(c.Out, "%s  %s, %d images (%d snapshots)\n",
			c.green(p.Period.String()),
			c.yellow(backup.FormatSize(p.TotalSize)),
			len(p.Images),
			p.Snapshots())
		for _, img := range p.Images {
			marker := c.gray("-")
			if !img.Snapshot {
				marker = c.green("*")
			}
			fmt.Fprintf(c.Out, "  %s %s %s %s\n",
				marker,
				img.Name,
				c.yellow(backup.FormatSize(img.Size)),
				c.gray(img.ModTime.Format("2006-01-02 15:04")))
		}
	}
}
