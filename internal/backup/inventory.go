package backup

import (
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/maxivhuber/rpi-backup/internal/ports"
	"github.com/maxivhuber/rpi-backup/internal/schedule"
)

// PeriodInfo describes one retention period on the destination volume.
type PeriodInfo struct {
	Period       schedule.Period
	Dir          string
	Images       []ImageInfo
	TotalSize    int64
	LastModified time.Time
}

// ImageInfo describes one image file within a period directory.
type ImageInfo struct {
	Name     string
	Path     string
	Size     int64
	ModTime  time.Time
	Snapshot bool
}

// Snapshots counts the snapshot images in the period.
func (p PeriodInfo) Snapshots() int {
	n := 0
	for _, img := range p.Images {
		if img.Snapshot {
			n++
		}
	}
	return n
}

// ScanPeriods reads the destination layout (<mount>/<week>/<year>) and
// returns all periods holding image files, newest period first. The
// inventory is derived entirely from the filesystem; there is no other
// state to consult.
func ScanPeriods(fs ports.FileSystem, mount, imageName string) ([]PeriodInfo, error) {
	top, err := fs.ReadDir(mount)
	if err != nil {
		return nil, fmt.Errorf("reading backup root: %w", err)
	}

	var periods []PeriodInfo
	for _, periodEntry := range top {
		week, ok := numericName(periodEntry)
		if !ok || !periodEntry.IsDir() {
			continue
		}
		periodPath := filepath.Join(mount, periodEntry.Name())
		years, err := fs.ReadDir(periodPath)
		if err != nil {
			return nil, err
		}
		for _, yearEntry := range years {
			year, ok := numericName(yearEntry)
			if !ok || !yearEntry.IsDir() {
				continue
			}
			dir := filepath.Join(periodPath, yearEntry.Name())
			info, err := scanPeriodDir(fs, dir, imageName)
			if err != nil {
				return nil, err
			}
			if len(info.Images) == 0 {
				continue
			}
			info.Period = schedule.Period{Week: week, Year: year}
			periods = append(periods, info)
		}
	}

	sort.Slice(periods, func(i, j int) bool {
		if periods[i].Period.Year != periods[j].Period.Year {
			return periods[i].Period.Year > periods[j].Period.Year
		}
		return periods[i].Period.Week > periods[j].Period.Week
	})
	return periods, nil
}

func scanPeriodDir(fs ports.FileSystem, dir, imageName string) (PeriodInfo, error) {
	entries, err := fs.ReadDir(dir)
	if err != nil {
		return PeriodInfo{}, err
	}

	info := PeriodInfo{Dir: dir}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), schedule.ImageSuffix) {
			continue
		}
		fi, err := entry.Info()
		if err != nil {
			return PeriodInfo{}, err
		}
		img := ImageInfo{
			Name:     entry.Name(),
			Path:     filepath.Join(dir, entry.Name()),
			Size:     fi.Size(),
			ModTime:  fi.ModTime(),
			Snapshot: schedule.IsSnapshot(entry.Name(), imageName),
		}
		info.Images = append(info.Images, img)
		info.TotalSize += img.Size
		if img.ModTime.After(info.LastModified) {
			info.LastModified = img.ModTime
		}
	}

	sort.Slice(info.Images, func(i, j int) bool {
		return info.Images[i].Name < info.Images[j].Name
	})
	return info, nil
}

func numericName(entry interface{ Name() string }) (int, bool) {
	n, err := strconv.Atoi(entry.Name())
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// FormatSize formats bytes as human-readable.
func FormatSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
