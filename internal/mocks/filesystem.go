// Package mocks provides mock implementations for testing.
package mocks

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/maxivhuber/rpi-backup/internal/ports"
)

// MockFileSystem implements ports.FileSystem for testing. Populate it
// with AddDir/AddFile; Remove records every deletion in RemovedPaths.
type MockFileSystem struct {
	// Files maps file paths to their metadata.
	Files map[string]MockFile
	// Dirs maps directory paths to their modification time.
	Dirs map[string]time.Time
	// Errors maps paths to errors (for simulating failures).
	Errors map[string]error
	// RemovedPaths records every successful Remove in call order.
	RemovedPaths []string
	// SyncCalls counts Sync invocations.
	SyncCalls int
}

// MockFile holds the metadata the backup system reads from a file.
type MockFile struct {
	Size    int64
	ModTime time.Time
}

// NewMockFileSystem creates an empty mock filesystem.
func NewMockFileSystem() *MockFileSystem {
	return &MockFileSystem{
		Files:  make(map[string]MockFile),
		Dirs:   make(map[string]time.Time),
		Errors: make(map[string]error),
	}
}

// AddDir registers a directory and all its parents.
func (m *MockFileSystem) AddDir(path string, modTime time.Time) {
	path = filepath.Clean(path)
	for path != "/" && path != "." {
		if _, ok := m.Dirs[path]; !ok {
			m.Dirs[path] = modTime
		}
		path = filepath.Dir(path)
	}
}

// AddFile registers a file, creating parent directories as needed.
func (m *MockFileSystem) AddFile(path string, size int64, modTime time.Time) {
	path = filepath.Clean(path)
	m.Files[path] = MockFile{Size: size, ModTime: modTime}
	m.AddDir(filepath.Dir(path), modTime)
}

// ReadDir reads the named directory and returns directory entries.
func (m *MockFileSystem) ReadDir(name string) ([]os.DirEntry, error) {
	name = filepath.Clean(name)
	if err, ok := m.Errors[name]; ok {
		return nil, err
	}
	if _, ok := m.Dirs[name]; !ok {
		return nil, &os.PathError{Op: "open", Path: name, Err: os.ErrNotExist}
	}

	var entries []os.DirEntry
	for dir, mtime := range m.Dirs {
		if filepath.Dir(dir) == name && dir != name {
			entries = append(entries, fs.FileInfoToDirEntry(&mockFileInfo{
				name: filepath.Base(dir), isDir: true, modTime: mtime,
			}))
		}
	}
	for file, meta := range m.Files {
		if filepath.Dir(file) == name {
			entries = append(entries, fs.FileInfoToDirEntry(&mockFileInfo{
				name: filepath.Base(file), size: meta.Size, modTime: meta.ModTime,
			}))
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
	return entries, nil
}

// Stat returns file info for the named file.
func (m *MockFileSystem) Stat(name string) (os.FileInfo, error) {
	name = filepath.Clean(name)
	if err, ok := m.Errors[name]; ok {
		return nil, err
	}
	if meta, ok := m.Files[name]; ok {
		return &mockFileInfo{name: filepath.Base(name), size: meta.Size, modTime: meta.ModTime}, nil
	}
	if mtime, ok := m.Dirs[name]; ok {
		return &mockFileInfo{name: filepath.Base(name), isDir: true, modTime: mtime}, nil
	}
	return nil, &os.PathError{Op: "stat", Path: name, Err: os.ErrNotExist}
}

// MkdirAll creates a directory along with any necessary parents.
func (m *MockFileSystem) MkdirAll(path string, perm os.FileMode) error {
	path = filepath.Clean(path)
	if err, ok := m.Errors[path]; ok {
		return err
	}
	m.AddDir(path, time.Now())
	return nil
}

// Remove removes the named file or empty directory.
func (m *MockFileSystem) Remove(name string) error {
	name = filepath.Clean(name)
	if err, ok := m.Errors[name]; ok {
		return err
	}
	if _, ok := m.Files[name]; ok {
		delete(m.Files, name)
		m.RemovedPaths = append(m.RemovedPaths, name)
		return nil
	}
	if _, ok := m.Dirs[name]; ok {
		entries, _ := m.ReadDir(name)
		if len(entries) > 0 {
			return &os.PathError{Op: "remove", Path: name, Err: os.ErrExist}
		}
		delete(m.Dirs, name)
		m.RemovedPaths = append(m.RemovedPaths, name)
		return nil
	}
	return &os.PathError{Op: "remove", Path: name, Err: os.ErrNotExist}
}

// Walk walks the tree rooted at root in sorted path order.
func (m *MockFileSystem) Walk(root string, fn ports.WalkFunc) error {
	root = filepath.Clean(root)
	if err, ok := m.Errors[root]; ok {
		return fn(root, nil, err)
	}
	if _, ok := m.Dirs[root]; !ok {
		return fn(root, nil, &os.PathError{Op: "lstat", Path: root, Err: os.ErrNotExist})
	}

	var paths []string
	for dir := range m.Dirs {
		if dir == root || strings.HasPrefix(dir, root+string(filepath.Separator)) {
			paths = append(paths, dir)
		}
	}
	for file := range m.Files {
		if strings.HasPrefix(file, root+string(filepath.Separator)) {
			paths = append(paths, file)
		}
	}
	sort.Strings(paths)

	for _, path := range paths {
		info, err := m.Stat(path)
		if err := fn(path, info, err); err != nil {
			if err == filepath.SkipDir || err == filepath.SkipAll {
				return nil
			}
			return err
		}
	}
	return nil
}

// Sync counts the call; the mock has no caches to flush.
func (m *MockFileSystem) Sync() {
	m.SyncCalls++
}

// TotalFileSize returns the combined size of all files, for wiring mock
// space probes to mock deletions.
func (m *MockFileSystem) TotalFileSize() int64 {
	var total int64
	for _, f := range m.Files {
		total += f.Size
	}
	return total
}

// mockFileInfo implements os.FileInfo for mock entries.
type mockFileInfo struct {
	name    string
	size    int64
	isDir   bool
	modTime time.Time
}

func (fi *mockFileInfo) Name() string       { return fi.name }
func (fi *mockFileInfo) Size() int64        { return fi.size }
func (fi *mockFileInfo) Mode() os.FileMode  { return fi.mode() }
func (fi *mockFileInfo) ModTime() time.Time { return fi.modTime }
func (fi *mockFileInfo) IsDir() bool        { return fi.isDir }
func (fi *mockFileInfo) Sys() interface{}   { return nil }

func (fi *mockFileInfo) mode() os.FileMode {
	if fi.isDir {
		return os.ModeDir | 0755
	}
	return 0644
}

// Compile-time check that MockFileSystem implements ports.FileSystem.
var _ ports.FileSystem = (*MockFileSystem)(nil)
