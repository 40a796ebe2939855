// Package reflinkclone provides a copy-on-write cloner using the
// FICLONE ioctl. The destination filesystem must support reflinks
// (btrfs, xfs with reflink=1).
package reflinkclone

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"github.com/maxivhuber/rpi-backup/internal/ports"
)

// ReflinkCloner implements ports.Cloner using unix.IoctlFileClone.
type ReflinkCloner struct{}

// New creates a new ReflinkCloner adapter.
func New() *ReflinkCloner {
	return &ReflinkCloner{}
}

// Clone creates dst sharing storage blocks with src. dst must not exist;
// a partially written dst is removed on failure so a failed clone never
// leaves a truncated copy behind.
func (c *ReflinkCloner) Clone(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("opening clone source: %w", err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return fmt.Errorf("creating clone target: %w", err)
	}

	if err := unix.IoctlFileClone(int(out.Fd()), int(in.Fd())); err != nil {
		out.Close()
		os.Remove(dst)
		return fmt.Errorf("reflink %s -> %s: %w", src, dst, err)
	}

	return out.Close()
}

// Compile-time check that ReflinkCloner implements ports.Cloner.
var _ ports.Cloner = (*ReflinkCloner)(nil)
