package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
)

var keyPattern = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

// FileSlot stores each key as <dir>/<key>.json. Writes go to a temp file in
// the same directory followed by a rename, so readers never see a partial
// value.
type FileSlot struct {
	dir string
}

// NewFileSlot creates a FileSlot rooted at dir. The directory is created on
// first write.
func NewFileSlot(dir string) *FileSlot {
	return &FileSlot{dir: dir}
}

// Path returns the file that backs key.
func (s *FileSlot) Path(key string) string {
	return filepath.Join(s.dir, key+".json")
}

func (s *FileSlot) Get(ctx context.Context, key string) (string, bool, error) {
	if err := checkKey(key); err != nil {
		return "", false, err
	}
	if err := ctx.Err(); err != nil {
		return "", false, err
	}

	data, err := os.ReadFile(s.Path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("reading slot %s: %w", key, err)
	}
	return string(data), true, nil
}

func (s *FileSlot) Set(ctx context.Context, key, value string) error {
	if err := checkKey(key); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0700); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, "."+key+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.WriteString(value); err != nil {
		tmp.Close()
		return fmt.Errorf("writing slot %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0600); err != nil {
		return fmt.Errorf("setting permissions: %w", err)
	}
	if err := os.Rename(tmpName, s.Path(key)); err != nil {
		return fmt.Errorf("replacing slot %s: %w", key, err)
	}
	return nil
}

// Ping checks that the directory exists or can be created.
func (s *FileSlot) Ping(context.Context) error {
	return os.MkdirAll(s.dir, 0700)
}

func (s *FileSlot) Close() error { return nil }

func (s *FileSlot) Name() string { return BackendFile }

func checkKey(key string) error {
	if !keyPattern.MatchString(key) {
		return fmt.Errorf("invalid slot key %q", key)
	}
	return nil
}
