package mocks

import (
	"os"

	"github.com/maxivhuber/rpi-backup/internal/ports"
)

// MockSpaceProber implements ports.SpaceProber for testing.
type MockSpaceProber struct {
	// AvailableBytes and UsedBytes map paths to probe results.
	AvailableBytes map[string]uint64
	UsedBytes      map[string]uint64
	// AvailableFn, when set, overrides AvailableBytes. Tests use it to
	// model space that grows as files are deleted.
	AvailableFn func(path string) (uint64, error)
	// Errors allows simulating probe failures.
	Errors struct {
		Available error
		Used      error
	}
}

// NewMockSpaceProber creates a new mock space prober.
func NewMockSpaceProber() *MockSpaceProber {
	return &MockSpaceProber{
		AvailableBytes: make(map[string]uint64),
		UsedBytes:      make(map[string]uint64),
	}
}

// Available returns the configured available byte count for path.
func (m *MockSpaceProber) Available(path string) (uint64, error) {
	if m.Errors.Available != nil {
		return 0, m.Errors.Available
	}
	if m.AvailableFn != nil {
		return m.AvailableFn(path)
	}
	if avail, ok := m.AvailableBytes[path]; ok {
		return avail, nil
	}
	return 0, &os.PathError{Op: "statfs", Path: path, Err: os.ErrNotExist}
}

// Used returns the configured used byte count for path.
func (m *MockSpaceProber) Used(path string) (uint64, error) {
	if m.Errors.Used != nil {
		return 0, m.Errors.Used
	}
	if used, ok := m.UsedBytes[path]; ok {
		return used, nil
	}
	return 0, &os.PathError{Op: "statfs", Path: path, Err: os.ErrNotExist}
}

// Compile-time check that MockSpaceProber implements ports.SpaceProber.
var _ ports.SpaceProber = (*MockSpaceProber)(nil)
