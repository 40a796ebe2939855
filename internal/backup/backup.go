// Package backup orchestrates a single backup run: acquire the
// destination mount, prove sufficient space, decide the mode, snapshot
// when incremental, and invoke the external image tool.
package backup

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/maxivhuber/rpi-backup/internal/config"
	"github.com/maxivhuber/rpi-backup/internal/logging"
	"github.com/maxivhuber/rpi-backup/internal/ports"
	"github.com/maxivhuber/rpi-backup/internal/schedule"
	"github.com/maxivhuber/rpi-backup/internal/spaceguard"
)

// Budget computes the destination space requirement for backing up a
// source with the given used byte count: the used bytes plus 6.25%
// slack. The slack is rounded up so that any nonzero source demands
// strictly more space than it occupies.
func Budget(used uint64) uint64 {
	return used + (used+15)/16
}

// Result summarizes a completed run.
type Result struct {
	Mode         schedule.Mode
	Period       schedule.Period
	ImagePath    string
	SnapshotPath string // set when a snapshot was taken
	NeededBytes  uint64
}

// Runner performs backup runs. It owns the only mutable run state, the
// mount-acquired flag; everything else is passed in per run.
type Runner struct {
	fs      ports.FileSystem
	probe   ports.SpaceProber
	tool    ports.ImageTool
	cloner  ports.Cloner
	mounter ports.Mounter
	guard   *spaceguard.Guard
	log     logging.Logger

	// Now returns the current time. Overridable for testing.
	Now func() time.Time

	acquired bool
}

// NewRunner creates a runner with the given collaborators.
func NewRunner(fs ports.FileSystem, probe ports.SpaceProber, tool ports.ImageTool, cloner ports.Cloner, mounter ports.Mounter, guard *spaceguard.Guard, log logging.Logger) *Runner {
	return &Runner{
		fs:      fs,
		probe:   probe,
		tool:    tool,
		cloner:  cloner,
		mounter: mounter,
		guard:   guard,
		log:     log,
		Now:     time.Now,
	}
}

// Run performs one backup according to cfg. At most one run may be
// active at a time; overlapping invocations are the scheduler's problem.
func (r *Runner) Run(cfg *config.Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	weekday, err := cfg.Weekday()
	if err != nil {
		return nil, err
	}

	root := cfg.BackupRoot
	if err := r.acquire(root); err != nil {
		return nil, err
	}
	defer r.release(root)

	used, err := r.probe.Used(cfg.SourcePath)
	if err != nil {
		return nil, err
	}
	needed := Budget(used)
	r.log.Info("backup: source %s uses %d bytes, requiring %d on %s", cfg.SourcePath, used, needed, root)

	if err := r.guard.Ensure(root, needed, cfg.MinRetain); err != nil {
		return nil, err
	}

	dec := schedule.New(r.fs, weekday).Decide(r.Now(), root, cfg.ImageName)
	if err := r.fs.MkdirAll(dec.PeriodDir, 0755); err != nil {
		return nil, fmt.Errorf("creating period directory: %w", err)
	}

	result := &Result{
		Mode:        dec.Mode,
		Period:      dec.Period,
		ImagePath:   dec.ImagePath,
		NeededBytes: needed,
	}

	if dec.Mode == schedule.NeedsIncremental {
		// Snapshot before touching the image, so the previous state
		// stays recoverable. A failed snapshot aborts the run: silently
		// skipping it would break the version-history guarantee.
		r.log.Info("backup: snapshotting %s -> %s", dec.ImagePath, dec.SnapshotPath)
		if err := r.cloner.Clone(dec.ImagePath, dec.SnapshotPath); err != nil {
			return nil, fmt.Errorf("snapshotting image: %w", err)
		}
		result.SnapshotPath = dec.SnapshotPath
	}

	r.log.Info("backup: %s backup of %s (%s)", dec.Mode, dec.ImagePath, dec.Period)
	if err := r.invoke(cfg, dec); err != nil {
		// Space freed by the guard's cleanup stays freed. Say so, or the
		// operator is left wondering why old backups vanished with no
		// new one to show for it.
		r.log.Error("backup: image tool failed; any backups deleted to free space remain deleted: %v", err)
		return nil, err
	}

	return result, nil
}

func (r *Runner) invoke(cfg *config.Config, dec schedule.Decision) error {
	if dec.Mode == schedule.NeedsInitial {
		desc := ports.Descriptor{
			Path:    dec.ImagePath,
			SizeMB:  cfg.InitialSizeHint,
			ExtraMB: cfg.ExtraSizeHint,
		}
		return r.tool.Initial(desc, cfg.PassThroughOptions)
	}
	return r.tool.Incremental(dec.ImagePath, cfg.PassThroughOptions)
}

// acquire mounts the destination volume unless it already is mounted.
func (r *Runner) acquire(root string) error {
	mounted, err := r.mounter.IsMounted(root)
	if err != nil {
		return err
	}
	if !mounted {
		r.log.Info("backup: mounting %s", root)
		if err := r.mounter.Mount(root); err != nil {
			return err
		}
	}
	r.acquired = true
	return nil
}

// release undoes acquire on every exit path: prune empty period
// directories, then unmount, so a failed run never leaves the volume
// mounted.
func (r *Runner) release(root string) {
	if !r.acquired {
		return
	}
	r.pruneEmptyDirs(root)
	if err := r.mounter.Unmount(root); err != nil {
		r.log.Error("backup: unmounting %s: %v", root, err)
	}
	r.acquired = false
}

// pruneEmptyDirs removes period/year directories that hold no files,
// e.g. left behind by a run that failed before capturing an image.
// Non-empty directories are left alone; Remove refuses them.
func (r *Runner) pruneEmptyDirs(root string) {
	top, err := r.fs.ReadDir(root)
	if err != nil {
		return
	}
	for _, periodEntry := range top {
		if !periodEntry.IsDir() {
			continue
		}
		periodPath := filepath.Join(root, periodEntry.Name())
		years, err := r.fs.ReadDir(periodPath)
		if err != nil {
			continue
		}
		for _, yearEntry := range years {
			if yearEntry.IsDir() {
				_ = r.fs.Remove(filepath.Join(periodPath, yearEntry.Name()))
			}
		}
		_ = r.fs.Remove(periodPath)
	}
}
