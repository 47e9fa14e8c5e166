// Package workspace guards the work directory and hands out per-post scratch
// directories.
//
// One process owns the work directory at a time through an exclusive file
// lock. Each post gets a fresh UUID-named subdirectory, so two posts whose
// titles sanitize to the same filename can never collide on disk.
package workspace

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
)

const (
	lockFileName  = ".feedrelay.lock"
	postDirPrefix = "post-"
)

// ErrLocked reports that another process holds the work directory.
var ErrLocked = errors.New("work directory is in use by another feedrelay process")

// Workspace is an exclusively locked work directory.
type Workspace struct {
	root string
	lock *flock.Flock
}

// Open creates root if needed, verifies it is writable, and takes the lock.
func Open(root string) (*Workspace, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, errors.New("work directory required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create work directory: %w", err)
	}
	if err := checkWritable(root); err != nil {
		return nil, fmt.Errorf("work directory %s not writable: %w", root, err)
	}

	lock := flock.New(filepath.Join(root, lockFileName))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock work directory: %w", err)
	}
	if !locked {
		return nil, ErrLocked
	}
	return &Workspace{root: root, lock: lock}, nil
}

// Root returns the work directory path.
func (w *Workspace) Root() string {
	return w.root
}

// Close releases the lock.
func (w *Workspace) Close() error {
	if w == nil || w.lock == nil {
		return nil
	}
	return w.lock.Unlock()
}

// PostDir is a scratch directory owned by one post.
type PostDir struct {
	Path string
}

// NewPostDir creates a unique scratch directory for the post at index.
func (w *Workspace) NewPostDir(index int) (*PostDir, error) {
	name := fmt.Sprintf("%s%03d-%s", postDirPrefix, index, uuid.NewString())
	path := filepath.Join(w.root, name)
	if err := os.Mkdir(path, 0o755); err != nil {
		return nil, fmt.Errorf("create post directory: %w", err)
	}
	return &PostDir{Path: path}, nil
}

// Join returns a path inside the post directory.
func (d *PostDir) Join(name string) string {
	return filepath.Join(d.Path, name)
}

// Release removes the directory and everything in it.
func (d *PostDir) Release() error {
	if d == nil || d.Path == "" {
		return nil
	}
	return os.RemoveAll(d.Path)
}

// Sweep removes post directories left behind by an interrupted run. It must
// only be called while the lock is held.
func (w *Workspace) Sweep() ([]string, error) {
	entries, err := os.ReadDir(w.root)
	if err != nil {
		return nil, fmt.Errorf("read work directory: %w", err)
	}
	var removed []string
	var errs []error
	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), postDirPrefix) {
			continue
		}
		path := filepath.Join(w.root, entry.Name())
		if err := os.RemoveAll(path); err != nil {
			errs = append(errs, fmt.Errorf("remove %s: %w", path, err))
			continue
		}
		removed = append(removed, path)
	}
	return removed, errors.Join(errs...)
}
