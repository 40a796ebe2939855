// Package execimagetool provides an image tool adapter using exec.Command.
package execimagetool

import (
	"bytes"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/maxivhuber/rpi-backup/internal/ports"
)

// InvokeErrorKind classifies invocation failures.
type InvokeErrorKind int

const (
	// ScriptMissing means the external tool could not be found before
	// invocation.
	ScriptMissing InvokeErrorKind = iota
	// NonZeroExit means the external tool ran and failed.
	NonZeroExit
)

// InvokeError reports a failed invocation of the external image tool.
// Invocations are never retried; the caller decides whether to re-run
// the whole backup later.
type InvokeError struct {
	Kind     InvokeErrorKind
	Tool     string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *InvokeError) Error() string {
	switch e.Kind {
	case ScriptMissing:
		return fmt.Sprintf("image tool not found: %s: %v", e.Tool, e.Err)
	default:
		return fmt.Sprintf("image tool %s exited with status %d: %s", e.Tool, e.ExitCode, strings.TrimSpace(e.Stderr))
	}
}

func (e *InvokeError) Unwrap() error { return e.Err }

// ExecImageTool implements ports.ImageTool using exec.Command.
type ExecImageTool struct {
	// toolPath is the path to the image tool binary. Defaults to "image-backup".
	toolPath string
}

// Option is a functional option for configuring ExecImageTool.
type Option func(*ExecImageTool)

// WithToolPath sets a custom path to the image tool binary.
func WithToolPath(path string) Option {
	return func(t *ExecImageTool) {
		t.toolPath = path
	}
}

// New creates a new ExecImageTool adapter.
func New(opts ...Option) *ExecImageTool {
	t := &ExecImageTool{
		toolPath: "image-backup",
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// EncodeDescriptor renders desc as the tool's positional descriptor:
// path, path,size or path,size,extra. An extra hint without a size hint
// is not expressible and is dropped.
func EncodeDescriptor(desc ports.Descriptor) string {
	s := desc.Path
	if desc.SizeMB > 0 {
		s += "," + strconv.Itoa(desc.SizeMB)
		if desc.ExtraMB > 0 {
			s += "," + strconv.Itoa(desc.ExtraMB)
		}
	}
	return s
}

// ParseDescriptor splits an encoded descriptor back into its fields.
func ParseDescriptor(s string) (ports.Descriptor, error) {
	parts := strings.SplitN(s, ",", 3)
	desc := ports.Descriptor{Path: parts[0]}
	if desc.Path == "" {
		return ports.Descriptor{}, fmt.Errorf("descriptor %q has no path", s)
	}
	if len(parts) > 1 {
		size, err := strconv.Atoi(parts[1])
		if err != nil {
			return ports.Descriptor{}, fmt.Errorf("descriptor %q: bad size: %w", s, err)
		}
		desc.SizeMB = size
	}
	if len(parts) > 2 {
		extra, err := strconv.Atoi(parts[2])
		if err != nil {
			return ports.Descriptor{}, fmt.Errorf("descriptor %q: bad extra size: %w", s, err)
		}
		desc.ExtraMB = extra
	}
	return desc, nil
}

// Initial performs a full image capture: tool -i "<desc>" [-o "<opts>"].
func (t *ExecImageTool) Initial(desc ports.Descriptor, opts []string) error {
	args := []string{"-i", EncodeDescriptor(desc)}
	args = appendOptions(args, opts)
	return t.run(args)
}

// Incremental updates an existing image in place: tool "<path>" [-o "<opts>"].
func (t *ExecImageTool) Incremental(path string, opts []string) error {
	args := []string{path}
	args = appendOptions(args, opts)
	return t.run(args)
}

func appendOptions(args, opts []string) []string {
	if len(opts) > 0 {
		args = append(args, "-o", strings.Join(opts, ","))
	}
	return args
}

func (t *ExecImageTool) run(args []string) error {
	bin, err := exec.LookPath(t.toolPath)
	if err != nil {
		return &InvokeError{Kind: ScriptMissing, Tool: t.toolPath, Err: err}
	}

	cmd := exec.Command(bin, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		code := -1
		if exitErr, ok := err.(*exec.ExitError); ok {
			code = exitErr.ExitCode()
		}
		return &InvokeError{
			Kind:     NonZeroExit,
			Tool:     t.toolPath,
			ExitCode: code,
			Stderr:   stderr.String(),
			Err:      err,
		}
	}
	return nil
}

// Compile-time check that ExecImageTool implements ports.ImageTool.
var _ ports.ImageTool = (*ExecImageTool)(nil)
