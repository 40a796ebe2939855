package cli

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/maxivhuber/rpi-backup/internal/backup"
	"github.com/maxivhuber/rpi-backup/internal/config"
	"github.com/maxivhuber/rpi-backup/internal/schedule"
)

// mockConfigService implements ConfigService for testing.
type mockConfigService struct {
	cfg     *config.Config
	loadErr error
	saveErr error
	saved   *config.Config
}

func (m *mockConfigService) Load() (*config.Config, error) {
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	if m.cfg != nil {
		return m.cfg, nil
	}
	return config.DefaultConfig(), nil
}

func (m *mockConfigService) Save(cfg *config.Config) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saved = cfg
	return nil
}

func (m *mockConfigService) ConfigPath() string            { return "/home/pi/.rpi-backup/config.yaml" }
func (m *mockConfigService) DefaultConfig() *config.Config { return config.DefaultConfig() }

// mockBackupService implements BackupService for testing.
type mockBackupService struct {
	result *backup.Result
	err    error
	calls  int
}

func (m *mockBackupService) Run(cfg *config.Config) (*backup.Result, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

// mockInventoryService implements InventoryService for testing.
type mockInventoryService struct {
	periods []backup.PeriodInfo
	scanErr error
	avail   uint64
}

func (m *mockInventoryService) Scan(cfg *config.Config) ([]backup.PeriodInfo, error) {
	if m.scanErr != nil {
		return nil, m.scanErr
	}
	return m.periods, nil
}

func (m *mockInventoryService) Available(cfg *config.Config) (uint64, error) {
	return m.avail, nil
}

func newTestCLI(args ...string) (*CLI, *bytes.Buffer, *bytes.Buffer, *int) {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	c := NewForTesting(out, errOut, append([]string{"rpi-backup"}, args...))
	exitCode := -1
	c.Exit = func(code int) { exitCode = code }
	return c, out, errOut, &exitCode
}

func TestRunNoArgs(t *testing.T) {
	c, out, _, _ := newTestCLI()
	c.Run()
	if !strings.Contains(out.String(), "No command specified") {
		t.Errorf("output = %q", out.String())
	}
}

func TestRunUnknownCommand(t *testing.T) {
	c, _, errOut, exitCode := newTestCLI("bogus")
	c.Run()
	if !strings.Contains(errOut.String(), "Unknown command: bogus") {
		t.Errorf("stderr = %q", errOut.String())
	}
	if *exitCode != 1 {
		t.Errorf("exit code = %d, expected 1", *exitCode)
	}
}

func TestVersionCommand(t *testing.T) {
	for _, arg := range []string{"version", "-v", "--version"} {
		c, out, _, _ := newTestCLI(arg)
		c.Run()
		if !strings.Contains(out.String(), "rpi-backup vtest") {
			t.Errorf("%s: output = %q", arg, out.String())
		}
	}
}

func TestHelpCommand(t *testing.T) {
	c, out, _, _ := newTestCLI("help")
	c.Run()
	for _, want := range []string{"run", "list", "config", "init"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("usage missing %q", want)
		}
	}
}

func TestInitCommand(t *testing.T) {
	t.Run("writes default config", func(t *testing.T) {
		c, out, _, _ := newTestCLI("init")
		svc := &mockConfigService{}
		c.ConfigSvc = svc
		c.Run()

		if svc.saved == nil {
			t.Fatal("config was not saved")
		}
		if svc.saved.BackupRoot != "/backup" {
			t.Errorf("saved BackupRoot = %q", svc.saved.BackupRoot)
		}
		if !strings.Contains(out.String(), "Created config at") {
			t.Errorf("output = %q", out.String())
		}
	})

	t.Run("save failure exits 1", func(t *testing.T) {
		c, _, errOut, exitCode := newTestCLI("init")
		c.ConfigSvc = &mockConfigService{saveErr: errors.New("read-only filesystem")}
		c.Run()

		if *exitCode != 1 {
			t.Errorf("exit code = %d, expected 1", *exitCode)
		}
		if !strings.Contains(errOut.String(), "read-only filesystem") {
			t.Errorf("stderr = %q", errOut.String())
		}
	})
}

func TestConfigCommand(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.BackupRoot = "/mnt/usb"
	cfg.MinRetain = 4
	cfg.InitialSizeHint = 8192

	c, out, _, _ := newTestCLI("config")
	c.ConfigSvc = &mockConfigService{cfg: cfg}
	c.Run()

	got := out.String()
	for _, want := range []string{"/mnt/usb", "4 (directory policy)", "8192 MB"} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
}

func TestRunCommand(t *testing.T) {
	period := schedule.Period{Week: 35, Year: 2026}

	t.Run("reports incremental result", func(t *testing.T) {
		c, out, _, exitCode := newTestCLI("run")
		c.ConfigSvc = &mockConfigService{}
		svc := &mockBackupService{result: &backup.Result{
			Mode:         schedule.NeedsIncremental,
			Period:       period,
			ImagePath:    "/backup/35/2026/pi.img",
			SnapshotPath: "/backup/35/2026/pi_2026-08-24_0300.img",
		}}
		c.BackupSvc = svc
		c.Run()

		if svc.calls != 1 {
			t.Fatalf("backup service called %d times", svc.calls)
		}
		if *exitCode != -1 {
			t.Errorf("exit code = %d, expected no exit", *exitCode)
		}
		got := out.String()
		for _, want := range []string{"incremental", "/backup/35/2026/pi.img", "snapshot", "week 35/2026"} {
			if !strings.Contains(got, want) {
				t.Errorf("output missing %q:\n%s", want, got)
			}
		}
	})

	t.Run("initial result has no snapshot line", func(t *testing.T) {
		c, out, _, _ := newTestCLI("run")
		c.ConfigSvc = &mockConfigService{}
		c.BackupSvc = &mockBackupService{result: &backup.Result{
			Mode:      schedule.NeedsInitial,
			Period:    period,
			ImagePath: "/backup/35/2026/pi.img",
		}}
		c.Run()

		if strings.Contains(out.String(), "snapshot") {
			t.Errorf("unexpected snapshot line:\n%s", out.String())
		}
	})

	t.Run("backup failure exits 1", func(t *testing.T) {
		c, _, errOut, exitCode := newTestCLI("run")
		c.ConfigSvc = &mockConfigService{}
		c.BackupSvc = &mockBackupService{err: errors.New("space exhausted")}
		c.Run()

		if *exitCode != 1 {
			t.Errorf("exit code = %d, expected 1", *exitCode)
		}
		if !strings.Contains(errOut.String(), "space exhausted") {
			t.Errorf("stderr = %q", errOut.String())
		}
	})

	t.Run("config load failure exits 1", func(t *testing.T) {
		c, _, _, exitCode := newTestCLI("run")
		c.ConfigSvc = &mockConfigService{loadErr: errors.New("bad yaml")}
		svc := &mockBackupService{}
		c.BackupSvc = svc
		c.Run()

		if *exitCode != 1 {
			t.Errorf("exit code = %d, expected 1", *exitCode)
		}
		if svc.calls != 0 {
			t.Errorf("backup ran despite config failure")
		}
	})
}

func TestListCommand(t *testing.T) {
	mtime := time.Date(2026, 8, 17, 3, 0, 0, 0, time.UTC)

	t.Run("lists periods and images", func(t *testing.T) {
		c, out, _, _ := newTestCLI("list")
		c.ConfigSvc = &mockConfigService{}
		c.InventorySvc = &mockInventoryService{
			avail: 5 * 1024 * 1024 * 1024,
			periods: []backup.PeriodInfo{
				{
					Period:    schedule.Period{Week: 34, Year: 2026},
					Dir:       "/backup/34/2026",
					TotalSize: 220 * 1024 * 1024,
					Images: []backup.ImageInfo{
						{Name: "pi.img", Size: 120 * 1024 * 1024, ModTime: mtime},
						{Name: "pi_2026-08-18_0300.img", Size: 100 * 1024 * 1024, ModTime: mtime, Snapshot: true},
					},
				},
			},
		}
		c.Run()

		got := out.String()
		for _, want := range []string{"5.0 GB free", "week 34/2026", "2 images (1 snapshots)", "pi.img", "pi_2026-08-18_0300.img"} {
			if !strings.Contains(got, want) {
				t.Errorf("output missing %q:\n%s", want, got)
			}
		}
	})

	t.Run("empty destination", func(t *testing.T) {
		c, out, _, _ := newTestCLI("list")
		c.ConfigSvc = &mockConfigService{}
		c.InventorySvc = &mockInventoryService{avail: 1024}
		c.Run()

		if !strings.Contains(out.String(), "No backups found.") {
			t.Errorf("output = %q", out.String())
		}
	})

	t.Run("scan failure exits 1", func(t *testing.T) {
		c, _, errOut, exitCode := newTestCLI("list")
		c.ConfigSvc = &mockConfigService{}
		c.InventorySvc = &mockInventoryService{scanErr: errors.New("mount failed")}
		c.Run()

		if *exitCode != 1 {
			t.Errorf("exit code = %d, expected 1", *exitCode)
		}
		if !strings.Contains(errOut.String(), "mount failed") {
			t.Errorf("stderr = %q", errOut.String())
		}
	})
}
