// Package fsops abstracts the file access of the CLI so commands can run against memory in tests.
package fsops

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// FS is an abstract filesystem used across the app and tests.
type FS interface {
	ReadFile(name string) ([]byte, error)
	WriteFile(name string, data []byte, perm os.FileMode) error
	MkdirAll(path string, perm os.FileMode) error
}

// ---------- OS-backed implementation ----------

type OS struct{}

func NewOS() OS { return OS{} }

func (OS) ReadFile(name string) ([]byte, error) { return os.ReadFile(filepath.Clean(name)) }
func (OS) WriteFile(name string, b []byte, p os.FileMode) error {
	return os.WriteFile(filepath.Clean(name), b, p)
}
func (OS) MkdirAll(path string, p os.FileMode) error { return os.MkdirAll(filepath.Clean(path), p) }

// ---------- In-memory implementation (for tests) ----------

type Mem struct{ Fs afero.Fs }

func NewMem() Mem { return Mem{Fs: afero.NewMemMapFs()} }

func (m Mem) ReadFile(name string) ([]byte, error) { return afero.ReadFile(m.Fs, filepath.Clean(name)) }
func (m Mem) WriteFile(name string, b []byte, p os.FileMode) error {
	return afero.WriteFile(m.Fs, filepath.Clean(name), b, p)
}
func (m Mem) MkdirAll(path string, p os.FileMode) error {
	return m.Fs.MkdirAll(filepath.Clean(path), p)
}

// ---------- Artifact helpers used by commands ----------

const (
	artifactDirectoryPermissions = 0o755
	artifactFilePermissions      = 0o644
)

type Ops struct{ FS FS }

func NewOps(fs FS) Ops { return Ops{FS: fs} }

// ReadText reads a whole file and trims surrounding whitespace. An empty file is an error.
func (o Ops) ReadText(path string) (string, error) {
	data, err := o.FS.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", fmt.Errorf("read %s: file is empty", path)
	}
	return text, nil
}

// WriteText writes text with a trailing newline, creating parent directories.
func (o Ops) WriteText(path string, text string) error {
	if err := o.FS.MkdirAll(filepath.Dir(path), artifactDirectoryPermissions); err != nil {
		return fmt.Errorf("create directory for %s: %w", path, err)
	}
	content := strings.TrimRight(text, "\n") + "\n"
	if err := o.FS.WriteFile(path, []byte(content), artifactFilePermissions); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
