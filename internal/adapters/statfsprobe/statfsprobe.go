// Package statfsprobe provides a space prober backed by the statfs syscall.
package statfsprobe

import (
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/maxivhuber/rpi-backup/internal/ports"
)

// ProbeError reports a path that is not on a queryable filesystem.
type ProbeError struct {
	Path string
	Err  error
}

func (e *ProbeError) Error() string {
	return fmt.Sprintf("probing filesystem at %s: %v", e.Path, e.Err)
}

func (e *ProbeError) Unwrap() error { return e.Err }

// StatfsProber implements ports.SpaceProber using unix.Statfs.
type StatfsProber struct{}

// New creates a new StatfsProber adapter.
func New() *StatfsProber {
	return &StatfsProber{}
}

// Available returns the bytes available to unprivileged writers on the
// filesystem containing path. Reported in raw bytes: Bavail * Bsize.
func (p *StatfsProber) Available(path string) (uint64, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return 0, &ProbeError{Path: path, Err: err}
	}
	return st.Bavail * uint64(st.Bsize), nil
}

// Used returns the bytes in use on the filesystem containing path.
func (p *StatfsProber) Used(path string) (uint64, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return 0, &ProbeError{Path: path, Err: err}
	}
	return (st.Blocks - st.Bfree) * uint64(st.Bsize), nil
}

// Compile-time check that StatfsProber implements ports.SpaceProber.
var _ ports.SpaceProber = (*StatfsProber)(nil)
