// Package safeio opens pipeline inputs relative to a fixed working root and
// refuses paths that escape it.
package safeio

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

var (
	ErrEscapesRoot = errors.New("safeio: path escapes root")
	ErrIsDir       = errors.New("safeio: path is a directory")
)

// Root resolves user-supplied input paths under an absolute, symlink-free directory.
type Root struct {
	abs string
}

func NewRoot(dir string) (*Root, error) {
	if strings.TrimSpace(dir) == "" {
		dir = "."
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	abs, err = filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("safeio: root %s is not a directory", abs)
	}
	return &Root{abs: abs}, nil
}

func (r *Root) Dir() string {
	if r == nil {
		return ""
	}
	return r.abs
}

// Open opens a regular file for reading.
func (r *Root) Open(userPath string) (*os.File, error) {
	p, err := r.Resolve(userPath)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(p)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, ErrIsDir
	}
	return os.Open(p)
}

func (r *Root) ReadFile(userPath string) ([]byte, error) {
	f, err := r.Open(userPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// Resolve returns the absolute, symlink-resolved form of userPath, which must
// stay under the root. Absolute paths are accepted when they do.
func (r *Root) Resolve(userPath string) (string, error) {
	if r == nil {
		return "", errors.New("safeio: root not configured")
	}
	if strings.TrimSpace(userPath) == "" {
		return "", errors.New("safeio: empty path")
	}
	clean := filepath.Clean(userPath)
	isAbs := filepath.IsAbs(clean) || (runtime.GOOS == "windows" && filepath.VolumeName(clean) != "")
	if !isAbs && (clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator))) {
		return "", fmt.Errorf("%w: %s", ErrEscapesRoot, userPath)
	}
	joined := clean
	if !isAbs {
		joined = filepath.Join(r.abs, clean)
	}
	resolved, err := filepath.EvalSymlinks(joined)
	if err != nil {
		return "", err
	}
	if !within(resolved, r.abs) {
		return "", fmt.Errorf("%w: %s", ErrEscapesRoot, resolved)
	}
	return resolved, nil
}

func within(path, root string) bool {
	path = filepath.Clean(path)
	root = filepath.Clean(root)
	if runtime.GOOS == "windows" {
		path = strings.ToLower(path)
		root = strings.ToLower(root)
	}
	if path == root {
		return true
	}
	sep := string(os.PathSeparator)
	if !strings.HasSuffix(root, sep) {
		root += sep
	}
	return strings.HasPrefix(path, root)
}
