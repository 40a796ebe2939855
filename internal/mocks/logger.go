package mocks

import (
	"fmt"

	"github.com/maxivhuber/rpi-backup/internal/logging"
)

// MockLogger implements logging.Logger and captures formatted lines, so
// tests can assert on the deletion audit trail.
type MockLogger struct {
	Infos  []string
	Errors []string
}

// NewMockLogger creates a new capturing logger.
func NewMockLogger() *MockLogger {
	return &MockLogger{}
}

func (m *MockLogger) Info(format string, args ...any) {
	m.Infos = append(m.Infos, fmt.Sprintf(format, args...))
}

func (m *MockLogger) Error(format string, args ...any) {
	m.Errors = append(m.Errors, fmt.Sprintf(format, args...))
}

// Compile-time check that MockLogger implements logging.Logger.
var _ logging.Logger = (*MockLogger)(nil)
