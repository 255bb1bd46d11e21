// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package download

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// maxSuffix bounds the collision counter for one stem.
const maxSuffix = 10000

// FileRegistry hands out unique filenames inside one output directory.
// It is safe for concurrent use.
//
// A reserved name is backed by an empty placeholder created with O_EXCL,
// so names are unique against files already on disk and against other
// processes writing to the same directory.
type FileRegistry struct {
	dir string

	mu    sync.Mutex
	taken map[string]bool
}

// NewFileRegistry returns a registry for dir.
func NewFileRegistry(dir string) *FileRegistry {
	return &FileRegistry{dir: dir, taken: make(map[string]bool)}
}

// Reserve claims stem+ext, or stem_1+ext, stem_2+ext and so on for the
// first name not yet used. It returns the full path of the placeholder.
func (r *FileRegistry) Reserve(stem, ext string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for n := 0; n < maxSuffix; n++ {
		name := stem + ext
		if n > 0 {
			name = fmt.Sprintf("%s_%d%s", stem, n, ext)
		}
		if r.taken[name] {
			continue
		}

		path := filepath.Join(r.dir, name)
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("reserving %s: %w", name, err)
		}
		if err := f.Close(); err != nil {
			os.Remove(path)
			return "", fmt.Errorf("reserving %s: %w", name, err)
		}
		r.taken[name] = true
		return path, nil
	}
	return "", fmt.Errorf("no free filename for %s%s after %d attempts", stem, ext, maxSuffix)
}

// Release removes the placeholder at path and frees its name.
func (r *FileRegistry) Release(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	os.Remove(path)
	delete(r.taken, filepath.Base(path))
}

// Reserved returns the number of names handed out.
func (r *FileRegistry) Reserved() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.taken)
}
