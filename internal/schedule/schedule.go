// Package schedule decides, per invocation, whether a full or incremental
// backup is due and where the period's image and snapshots live. Nothing
// is persisted: the decision is re-derived from the filesystem and the
// current date on every run.
package schedule

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/maxivhuber/rpi-backup/internal/ports"
)

// ImageSuffix identifies backup image files on the destination volume.
const ImageSuffix = ".img"

// snapshotTimeFormat is the timestamp suffix of snapshot file names.
const snapshotTimeFormat = "2006-01-02_1504"

// Mode is the backup mode selected for a run.
type Mode int

const (
	// NeedsInitial means a full-image capture creating a new backup unit.
	NeedsInitial Mode = iota
	// NeedsIncremental means an in-place update of the period's image.
	NeedsIncremental
)

func (m Mode) String() string {
	if m == NeedsInitial {
		return "initial"
	}
	return "incremental"
}

// Period is the calendar grouping key for one canonical image.
type Period struct {
	Week int
	Year int
}

// PeriodOf returns the ISO week period containing t.
func PeriodOf(t time.Time) Period {
	year, week := t.ISOWeek()
	return Period{Week: week, Year: year}
}

// Dir returns the period's directory under mount: <mount>/<week>/<year>.
func (p Period) Dir(mount string) string {
	return filepath.Join(mount, fmt.Sprintf("%02d", p.Week), fmt.Sprintf("%d", p.Year))
}

func (p Period) String() string {
	return fmt.Sprintf("week %02d/%d", p.Week, p.Year)
}

// Decision describes what a run must do and where.
type Decision struct {
	Mode         Mode
	Period       Period
	PeriodDir    string
	ImagePath    string
	SnapshotPath string
}

// Decider selects the backup mode from calendar and on-disk state.
type Decider struct {
	fs      ports.FileSystem
	weekday time.Weekday
}

// New creates a decider that schedules full backups on weekday.
func New(fs ports.FileSystem, weekday time.Weekday) *Decider {
	return &Decider{fs: fs, weekday: weekday}
}

// Decide evaluates the transition rule once: the designated weekday or a
// missing canonical image selects NeedsInitial, anything else
// NeedsIncremental.
func (d *Decider) Decide(now time.Time, mount, imageName string) Decision {
	period := PeriodOf(now)
	dir := period.Dir(mount)
	imagePath := filepath.Join(dir, imageName)

	dec := Decision{
		Mode:         NeedsIncremental,
		Period:       period,
		PeriodDir:    dir,
		ImagePath:    imagePath,
		SnapshotPath: SnapshotPath(imagePath, now),
	}

	if now.Weekday() == d.weekday || !d.imageExists(imagePath) {
		dec.Mode = NeedsInitial
	}
	return dec
}

func (d *Decider) imageExists(path string) bool {
	info, err := d.fs.Stat(path)
	return err == nil && !info.IsDir()
}

// SnapshotPath returns the timestamped snapshot name for an image:
// <dir>/<name>_<YYYY-MM-DD_HHMM>.img.
func SnapshotPath(imagePath string, now time.Time) string {
	stem := strings.TrimSuffix(imagePath, ImageSuffix)
	return stem + "_" + now.Format(snapshotTimeFormat) + ImageSuffix
}

// IsSnapshot reports whether name is a timestamped snapshot of image.
func IsSnapshot(name, imageName string) bool {
	if name == imageName || !strings.HasSuffix(name, ImageSuffix) {
		return false
	}
	stem := strings.TrimSuffix(imageName, ImageSuffix)
	rest := strings.TrimPrefix(name, stem+"_")
	if rest == name {
		return false
	}
	_, err := time.Parse(snapshotTimeFormat, strings.TrimSuffix(rest, ImageSuffix))
	return err == nil
}
