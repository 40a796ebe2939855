package mocks

import (
	"github.com/maxivhuber/rpi-backup/internal/ports"
)

// MockMounter implements ports.Mounter for testing.
type MockMounter struct {
	// Mounted tracks which targets are currently mounted.
	Mounted map[string]bool
	// MountCalls and UnmountCalls record targets in call order.
	MountCalls   []string
	UnmountCalls []string
	// Errors allows simulating mount failures.
	Errors struct {
		Mount     error
		Unmount   error
		IsMounted error
	}
}

// NewMockMounter creates a new mock mounter.
func NewMockMounter() *MockMounter {
	return &MockMounter{
		Mounted: make(map[string]bool),
	}
}

// Mount marks target as mounted.
func (m *MockMounter) Mount(target string) error {
	m.MountCalls = append(m.MountCalls, target)
	if m.Errors.Mount != nil {
		return m.Errors.Mount
	}
	m.Mounted[target] = true
	return nil
}

// Unmount marks target as unmounted.
func (m *MockMounter) Unmount(target string) error {
	m.UnmountCalls = append(m.UnmountCalls, target)
	if m.Errors.Unmount != nil {
		return m.Errors.Unmount
	}
	m.Mounted[target] = false
	return nil
}

// IsMounted reports the tracked mount state.
func (m *MockMounter) IsMounted(target string) (bool, error) {
	if m.Errors.IsMounted != nil {
		return false, m.Errors.IsMounted
	}
	return m.Mounted[target], nil
}

// Compile-time check that MockMounter implements ports.Mounter.
var _ ports.Mounter = (*MockMounter)(nil)
