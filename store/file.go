package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// File is a Store persisted as a single JSON document with 0600 permissions.
// The host app points it at platform-protected storage; the package itself
// does not attempt OS keychain integration.
type File struct {
	path string

	mu     sync.Mutex
	values map[string]string
}

// NewFile loads (or initializes) the store at path. The parent directory must
// exist.
func NewFile(path string) (*File, error) {
	f := &File{path: path, values: map[string]string{}}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		// First run; the file is created on the first Set.
	case err != nil:
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	default:
		if err := json.Unmarshal(data, &f.values); err != nil {
			return nil, fmt.Errorf("%w: corrupt store file: %v", ErrUnavailable, err)
		}
	}
	return f, nil
}

// Get implements Store.
func (f *File) Get(_ context.Context, key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.values[key]
	return v, ok, nil
}

// Set implements Store.
func (f *File) Set(_ context.Context, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values[key] = value
	return f.flushLocked()
}

// Delete implements Store.
func (f *File) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.values[key]; !ok {
		return nil
	}
	delete(f.values, key)
	return f.flushLocked()
}

func (f *File) flushLocked() error {
	data, err := json.Marshal(f.values)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	// Write-then-rename so a crash mid-write never leaves a truncated store.
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Path returns the backing file location.
func (f *File) Path() string {
	return filepath.Clean(f.path)
}
