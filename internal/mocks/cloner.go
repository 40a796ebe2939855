package mocks

import (
	"github.com/maxivhuber/rpi-backup/internal/ports"
)

// CloneCall records one clone operation.
type CloneCall struct {
	Src string
	Dst string
}

// MockCloner implements ports.Cloner for testing.
type MockCloner struct {
	// Calls records every clone in order.
	Calls []CloneCall
	// Err is returned by Clone when set.
	Err error
	// OnClone, when set, runs after a successful clone is recorded.
	// Tests use it to materialize the clone in a MockFileSystem.
	OnClone func(src, dst string)
}

// NewMockCloner creates a new mock cloner.
func NewMockCloner() *MockCloner {
	return &MockCloner{}
}

// Clone records the operation.
func (m *MockCloner) Clone(src, dst string) error {
	if m.Err != nil {
		return m.Err
	}
	m.Calls = append(m.Calls, CloneCall{Src: src, Dst: dst})
	if m.OnClone != nil {
		m.OnClone(src, dst)
	}
	return nil
}

// Compile-time check that MockCloner implements ports.Cloner.
var _ ports.Cloner = (*MockCloner)(nil)
