// Package sysmount provides a mount adapter using the system mount and
// umount commands. Mounting by target path relies on an fstab entry for
// the backup volume.
package sysmount

import (
	"bufio"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/maxivhuber/rpi-backup/internal/ports"
)

// SysMounter implements ports.Mounter via exec.Command.
type SysMounter struct {
	// mountsFile is the mount table consulted by IsMounted.
	// Defaults to /proc/mounts.
	mountsFile string
}

// Option is a functional option for configuring SysMounter.
type Option func(*SysMounter)

// WithMountsFile sets an alternative mount table, used by tests.
func WithMountsFile(path string) Option {
	return func(m *SysMounter) {
		m.mountsFile = path
	}
}

// New creates a new SysMounter adapter.
func New(opts ...Option) *SysMounter {
	m := &SysMounter{
		mountsFile: "/proc/mounts",
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Mount mounts the filesystem configured in fstab for target.
func (m *SysMounter) Mount(target string) error {
	out, err := exec.Command("mount", target).CombinedOutput()
	if err != nil {
		return fmt.Errorf("mount %s: %w: %s", target, err, strings.TrimSpace(string(out)))
	}
	return nil
}

// Unmount unmounts the filesystem at target.
func (m *SysMounter) Unmount(target string) error {
	out, err := exec.Command("umount", target).CombinedOutput()
	if err != nil {
		return fmt.Errorf("umount %s: %w: %s", target, err, strings.TrimSpace(string(out)))
	}
	return nil
}

// IsMounted reports whether a filesystem is mounted at target.
func (m *SysMounter) IsMounted(target string) (bool, error) {
	f, err := os.Open(m.mountsFile)
	if err != nil {
		return false, fmt.Errorf("reading mount table: %w", err)
	}
	defer f.Close()

	want := filepath.Clean(target)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		// device mountpoint fstype options dump pass
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			continue
		}
		if unescapeMountPath(fields[1]) == want {
			return true, nil
		}
	}
	return false, scanner.Err()
}

// unescapeMountPath decodes the octal escapes (\040 etc.) used by the
// kernel for spaces and special characters in mount points.
func unescapeMountPath(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+3 < len(s) {
			var c byte
			for _, d := range []byte(s[i+1 : i+4]) {
				if d < '0' || d > '7' {
					c = 0
					break
				}
				c = c<<3 | (d - '0')
			}
			if c != 0 {
				b.WriteByte(c)
				i += 3
				continue
			}
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

// Compile-time check that SysMounter implements ports.Mounter.
var _ ports.Mounter = (*SysMounter)(nil)
