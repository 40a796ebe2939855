// Package retention frees space on the destination volume by deleting the
// oldest retained backups, never going below the configured retention
// floor. It is the only component that removes backup artifacts, and it
// logs every path before deleting it.
package retention

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/maxivhuber/rpi-backup/internal/logging"
	"github.com/maxivhuber/rpi-backup/internal/ports"
	"github.com/maxivhuber/rpi-backup/internal/schedule"
)

// Policy selects the cleanup granularity.
type Policy int

const (
	// PolicyDirectory deletes all images in the oldest period directory
	// at a time, re-probing after each directory. Progressive: space
	// freed before a floor hit stays freed.
	PolicyDirectory Policy = iota
	// PolicyFile deletes the minimal oldest-first set of files covering
	// the deficit. All-or-nothing: if the goal is unreachable within the
	// floor, nothing is deleted.
	PolicyFile
)

// ParsePolicy maps a config string to a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "directory":
		return PolicyDirectory, nil
	case "file":
		return PolicyFile, nil
	}
	return 0, fmt.Errorf("unknown cleanup policy %q", s)
}

// InsufficientError means cleanup could not reach the space target
// without violating the retention floor.
type InsufficientError struct {
	Mount     string
	Needed    uint64
	Available uint64
	Retained  int
	MinRetain int
	Reason    string
}

func (e *InsufficientError) Error() string {
	return fmt.Sprintf("retention: cannot free %d bytes on %s (%d available, %d units retained, floor %d): %s",
		e.Needed, e.Mount, e.Available, e.Retained, e.MinRetain, e.Reason)
}

// Cleaner frees destination space subject to a retention floor.
type Cleaner struct {
	fs     ports.FileSystem
	probe  ports.SpaceProber
	log    logging.Logger
	policy Policy
}

// New creates a cleaner using the given policy.
func New(fs ports.FileSystem, probe ports.SpaceProber, log logging.Logger, policy Policy) *Cleaner {
	return &Cleaner{fs: fs, probe: probe, log: log, policy: policy}
}

// Clean deletes the oldest backups under mount until needed bytes are
// available, keeping at least minRetain units. Calling it when space is
// already sufficient deletes nothing. Callers must not invoke Clean when
// retention is disabled; the space guard enforces that.
func (c *Cleaner) Clean(mount string, minRetain int, needed uint64) error {
	switch c.policy {
	case PolicyFile:
		return c.cleanFiles(mount, minRetain, needed)
	default:
		return c.cleanDirectories(mount, minRetain, needed)
	}
}

// unit is one deletable backup unit: a period directory or a single file.
type unit struct {
	path    string
	size    int64
	modTime time.Time
}

// cleanDirectories implements the directory-grained policy: delete all
// image files in the oldest period directory, sync, re-probe, repeat.
// The deficit is recomputed after every deletion round because deletions
// change block accounting (reflink sharing can make freed bytes smaller
// than file sizes suggest).
func (c *Cleaner) cleanDirectories(mount string, minRetain int, needed uint64) error {
	units, err := c.periodDirs(mount)
	if err != nil {
		return err
	}

	for {
		avail, err := c.probe.Available(mount)
		if err != nil {
			return err
		}
		if avail >= needed {
			return nil
		}
		if len(units) == 0 {
			return &InsufficientError{
				Mount: mount, Needed: needed, Available: avail,
				MinRetain: minRetain, Reason: "nothing to delete",
			}
		}
		if len(units) <= minRetain {
			return &InsufficientError{
				Mount: mount, Needed: needed, Available: avail,
				Retained: len(units), MinRetain: minRetain,
				Reason: "retention floor reached",
			}
		}

		oldest := units[0]
		units = units[1:]
		if err := c.deleteImages(oldest.path); err != nil {
			return err
		}
		c.fs.Sync()
	}
}

// periodDirs enumerates the second-level directories under mount
// (<mount>/<period>/<year>), sorted ascending by modification time.
func (c *Cleaner) periodDirs(mount string) ([]unit, error) {
	top, err := c.fs.ReadDir(mount)
	if err != nil {
		return nil, fmt.Errorf("reading backup root: %w", err)
	}

	var units []unit
	for _, periodEntry := range top {
		if !periodEntry.IsDir() {
			continue
		}
		periodPath := filepath.Join(mount, periodEntry.Name())
		years, err := c.fs.ReadDir(periodPath)
		if err != nil {
			return nil, fmt.Errorf("reading period directory %s: %w", periodPath, err)
		}
		for _, yearEntry := range years {
			if !yearEntry.IsDir() {
				continue
			}
			dir := filepath.Join(periodPath, yearEntry.Name())
			// A directory without images is not a retained unit: an
			// interrupted cleanup can leave one behind, and it must not
			// count toward the floor.
			hasImages, err := c.hasImages(dir)
			if err != nil {
				return nil, err
			}
			if !hasImages {
				continue
			}
			info, err := yearEntry.Info()
			if err != nil {
				return nil, err
			}
			units = append(units, unit{
				path:    dir,
				modTime: info.ModTime(),
			})
		}
	}

	sort.Slice(units, func(i, j int) bool {
		if !units[i].modTime.Equal(units[j].modTime) {
			return units[i].modTime.Before(units[j].modTime)
		}
		return units[i].path < units[j].path
	})
	return units, nil
}

// hasImages reports whether dir holds at least one image file.
func (c *Cleaner) hasImages(dir string) (bool, error) {
	entries, err := c.fs.ReadDir(dir)
	if err != nil {
		return false, fmt.Errorf("reading unit directory %s: %w", dir, err)
	}
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), schedule.ImageSuffix) {
			return true, nil
		}
	}
	return false, nil
}

// deleteImages removes every image file inside dir, logging each path
// before it is deleted.
func (c *Cleaner) deleteImages(dir string) error {
	entries, err := c.fs.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("reading unit directory %s: %w", dir, err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), schedule.ImageSuffix) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		c.log.Info("retention: deleting %s", path)
		if err := c.fs.Remove(path); err != nil {
			return fmt.Errorf("deleting %s: %w", path, err)
		}
	}
	return nil
}

// cleanFiles implements the file-grained policy: compute the minimal
// oldest-first prefix of files covering the deficit and delete exactly
// that, or nothing at all.
func (c *Cleaner) cleanFiles(mount string, minRetain int, needed uint64) error {
	avail, err := c.probe.Available(mount)
	if err != nil {
		return err
	}
	if avail >= needed {
		return nil
	}
	deficit := needed - avail

	files, err := c.regularFiles(mount)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return &InsufficientError{
			Mount: mount, Needed: needed, Available: avail,
			MinRetain: minRetain, Reason: "nothing to delete",
		}
	}

	maxDeletable := len(files) - minRetain
	if maxDeletable <= 0 {
		return &InsufficientError{
			Mount: mount, Needed: needed, Available: avail,
			Retained: len(files), MinRetain: minRetain,
			Reason: "retention floor reached",
		}
	}

	var freed uint64
	count := 0
	for i := 0; i < maxDeletable && freed < deficit; i++ {
		freed += uint64(files[i].size)
		count = i + 1
	}
	if freed < deficit {
		return &InsufficientError{
			Mount: mount, Needed: needed, Available: avail,
			Retained: minRetain, MinRetain: minRetain,
			Reason: fmt.Sprintf("deleting %d files would free only %d of %d bytes", maxDeletable, freed, deficit),
		}
	}

	for _, f := range files[:count] {
		c.log.Info("retention: deleting %s", f.path)
		if err := c.fs.Remove(f.path); err != nil {
			return fmt.Errorf("deleting %s: %w", f.path, err)
		}
	}
	c.fs.Sync()
	return nil
}

// regularFiles enumerates all regular files under mount, sorted by
// modification time ascending with ties broken by path.
func (c *Cleaner) regularFiles(mount string) ([]unit, error) {
	var files []unit
	err := c.fs.Walk(mount, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.Mode().IsRegular() {
			files = append(files, unit{path: path, size: info.Size(), modTime: info.ModTime()})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", mount, err)
	}

	sort.Slice(files, func(i, j int) bool {
		if !files[i].modTime.Equal(files[j].modTime) {
			return files[i].modTime.Before(files[j].modTime)
		}
		return files[i].path < files[j].path
	})
	return files, nil
}
