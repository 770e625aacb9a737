// Package workspace holds the filesystem primitives used by exports and
// publishes.
package workspace

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

const tempPrefix = "streampack-"

// MakeDir creates dir and its parents. Existing directories are fine.
func MakeDir(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create directory %s: %w", dir, err)
	}
	return nil
}

// TempDir creates a fresh scratch directory owned by the caller.
func TempDir() (string, error) {
	dir, err := os.MkdirTemp("", tempPrefix+"*")
	if err != nil {
		return "", fmt.Errorf("create temp directory: %w", err)
	}
	return dir, nil
}

// TempFile reserves a new empty file in the system temp directory and
// returns its path.
func TempFile(ext string) (string, error) {
	f, err := os.CreateTemp("", tempPrefix+"*"+ext)
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	name := f.Name()
	if err := f.Close(); err != nil {
		os.Remove(name)
		return "", fmt.Errorf("close temp file: %w", err)
	}
	return name, nil
}

// RemoveDir deletes dir recursively.
func RemoveDir(dir string) error {
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("remove directory %s: %w", dir, err)
	}
	return nil
}

// RemoveFile deletes a single file. A file that is already gone is not an
// error.
func RemoveFile(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove file %s: %w", path, err)
	}
	return nil
}

// MoveDir moves the contents of src into dst, creating dst when needed and
// replacing files with the same name, then removes src. Entries that cannot
// be renamed, typically because dst is on another device, are copied.
func MoveDir(src, dst string) error {
	if err := MakeDir(dst); err != nil {
		return err
	}

	entries, err := os.ReadDir(src)
	if err != nil {
		return fmt.Errorf("read directory %s: %w", src, err)
	}

	for _, entry := range entries {
		from := filepath.Join(src, entry.Name())
		to := filepath.Join(dst, entry.Name())

		if err := move(from, to, entry.IsDir()); err != nil {
			return err
		}
	}

	return RemoveDir(src)
}

func move(from, to string, isDir bool) error {
	if isDir {
		if fi, err := os.Stat(to); err == nil && fi.IsDir() {
			return MoveDir(from, to)
		}
	}

	if err := os.Rename(from, to); err == nil {
		return nil
	}

	if isDir {
		if err := copyDir(from, to); err != nil {
			return err
		}
		return RemoveDir(from)
	}

	if err := copyFile(from, to); err != nil {
		return err
	}
	return RemoveFile(from)
}

func copyDir(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return MakeDir(target)
		}
		return copyFile(path, target)
	})
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer in.Close()

	fi, err := in.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", src, err)
	}

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, fi.Mode().Perm())
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copy %s: %w", src, err)
	}
	if err := out.Sync(); err != nil {
		out.Close()
		return fmt.Errorf("sync %s: %w", dst, err)
	}
	return out.Close()
}
