// Package pathres decides where an export writes its manifest.
package pathres

import (
	"errors"
	"path"
	"path/filepath"
	"strings"

	"github.com/eleven-am/streampack/internal/domain"
	"github.com/eleven-am/streampack/internal/workspace"
)

var ErrPathRequired = errors.New("an output path is required when the source is a temporary file")

// Source is the media being exported.
type Source interface {
	Path() string
	IsTemp() bool
}

// Suffixer returns the manifest name for a resolved filename.
type Suffixer func(filename string) (string, error)

// RemoveFunc deletes a consumed temporary source.
type RemoveFunc func(path string) error

// Resolver turns the caller's requested path into the manifest path the
// transcoder writes.
type Resolver struct {
	Remove RemoveFunc
	// Failed receives a failed source deletion. It never changes the
	// outcome of Resolve.
	Failed func(path string, err error)
}

func New(remove RemoveFunc) *Resolver {
	if remove == nil {
		remove = workspace.RemoveFile
	}
	return &Resolver{Remove: remove}
}

// Resolve returns the effective PathInfo and the full manifest path. A
// non-empty callerPath replaces current. When there is no callerPath and the
// source is temporary the source is deleted and ErrPathRequired returned.
func (r *Resolver) Resolve(current domain.PathInfo, callerPath string, src Source, suffix Suffixer) (domain.PathInfo, string, error) {
	if callerPath == "" && src.IsTemp() {
		if err := r.Remove(src.Path()); err != nil && r.Failed != nil {
			r.Failed(src.Path(), err)
		}
		return current, "", ErrPathRequired
	}

	info := current
	if callerPath != "" {
		info = Split(callerPath)
	}
	info = Normalize(info)

	name, err := suffix(info.Filename)
	if err != nil {
		return info, "", err
	}

	if err := workspace.MakeDir(filepath.FromSlash(info.Dir)); err != nil {
		return info, "", err
	}

	return info, path.Join(info.Dir, name), nil
}

// Split breaks p into directory, filename without extension and extension.
func Split(p string) domain.PathInfo {
	p = ToSlash(p)
	dir, base := path.Split(p)
	ext := path.Ext(base)

	dir = strings.TrimSuffix(dir, "/")
	switch {
	case dir == "" && strings.HasPrefix(p, "/"):
		dir = "/"
	case dir == "":
		dir = "."
	}

	return domain.PathInfo{
		Dir:      dir,
		Filename: strings.TrimSuffix(base, ext),
		Ext:      strings.TrimPrefix(ext, "."),
	}
}

// Normalize converts the directory to forward slashes and keeps the last
// MaxFilenameLen characters of the filename.
func Normalize(info domain.PathInfo) domain.PathInfo {
	info.Dir = ToSlash(info.Dir)
	if runes := []rune(info.Filename); len(runes) > domain.MaxFilenameLen {
		info.Filename = string(runes[len(runes)-domain.MaxFilenameLen:])
	}
	return info
}

func ToSlash(p string) string {
	return strings.ReplaceAll(p, `\`, "/")
}
