package mocks

import (
	"github.com/maxivhuber/rpi-backup/internal/ports"
)

// ImageToolCall records one invocation of the mock image tool.
type ImageToolCall struct {
	// Mode is "initial" or "incremental".
	Mode string
	Desc ports.Descriptor
	Path string
	Opts []string
}

// MockImageTool implements ports.ImageTool for testing.
type MockImageTool struct {
	// Calls records every invocation in order.
	Calls []ImageToolCall
	// Errors allows simulating tool failures.
	Errors struct {
		Initial     error
		Incremental error
	}
}

// NewMockImageTool creates a new mock image tool.
func NewMockImageTool() *MockImageTool {
	return &MockImageTool{}
}

// Initial records a full-capture invocation.
func (m *MockImageTool) Initial(desc ports.Descriptor, opts []string) error {
	m.Calls = append(m.Calls, ImageToolCall{Mode: "initial", Desc: desc, Opts: opts})
	return m.Errors.Initial
}

// Incremental records an in-place update invocation.
func (m *MockImageTool) Incremental(path string, opts []string) error {
	m.Calls = append(m.Calls, ImageToolCall{Mode: "incremental", Path: path, Opts: opts})
	return m.Errors.Incremental
}

// Compile-time check that MockImageTool implements ports.ImageTool.
var _ ports.ImageTool = (*MockImageTool)(nil)
