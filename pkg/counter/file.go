package counter

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
)

// File is a durable counter backed by one file.
type File struct {
	mu   sync.Mutex
	path string
}

// NewFile returns a counter stored at path. Nothing is read or created until
// the first call.
func NewFile(path string) *File {
	return &File{path: path}
}

// Path returns the backing file path.
func (f *File) Path() string {
	return f.path
}

// Count returns the persisted count. A missing file, or one whose content
// is not a non-negative integer, counts as zero. So does a file that cannot
// be read, since Count has no error to report; Increment refuses to write
// over it.
func (f *File) Count() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	n, _ := f.read()
	return n
}

// Increment adds one to the persisted count and returns the new value. The
// returned value is on disk when Increment returns nil.
func (f *File) Increment() (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	current, err := f.read()
	if err != nil {
		return 0, fmt.Errorf("read count: %w", err)
	}
	next := current + 1
	if err := f.write(next); err != nil {
		return 0, fmt.Errorf("persist count %d: %w", next, err)
	}
	return next, nil
}

// read returns zero for a missing file or unparseable content. Any other
// read failure is returned so the stored value is never overwritten blind.
func (f *File) read() (uint64, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseUint(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return 0, nil
	}
	return n, nil
}

func (f *File) write(n uint64) error {
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.WriteString(strconv.FormatUint(n, 10)); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}

	// Atomic rename
	if err := os.Rename(tmpName, f.path); err != nil {
		return err
	}
	committed = true
	syncDir(dir)
	return nil
}

// syncDir flushes the directory entry after a rename. Not every platform
// allows opening a directory for sync, so failures are ignored.
func syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}
	_ = d.Sync()
	_ = d.Close()
}
