package pathres

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/eleven-am/streampack/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type source struct {
	path string
	temp bool
}

func (s source) Path() string { return s.path }
func (s source) IsTemp() bool { return s.temp }

func mpd(filename string) (string, error) { return filename + ".mpd", nil }

func TestResolveTempSourceWithoutPathDeletesSource(t *testing.T) {
	src := filepath.Join(t.TempDir(), "download.mp4")
	require.NoError(t, os.WriteFile(src, []byte("x"), 0644))

	calls := 0
	r := New(func(p string) error {
		calls++
		return os.Remove(p)
	})

	_, out, err := r.Resolve(Split(src), "", source{path: src, temp: true}, mpd)
	require.ErrorIs(t, err, ErrPathRequired)
	assert.Empty(t, out)
	assert.Equal(t, 1, calls)
	assert.NoFileExists(t, src)
}

func TestResolveReportsRemoveFailureWithoutReturningIt(t *testing.T) {
	removeErr := errors.New("busy")
	r := New(func(string) error { return removeErr })

	var reported []error
	r.Failed = func(path string, err error) {
		assert.Equal(t, "/tmp/x.mp4", path)
		reported = append(reported, err)
	}

	_, _, err := r.Resolve(domain.PathInfo{}, "", source{path: "/tmp/x.mp4", temp: true}, mpd)
	assert.Equal(t, ErrPathRequired, err)
	assert.Equal(t, []error{removeErr}, reported)
}

func TestResolveCallerPathSupersedesSourcePath(t *testing.T) {
	root := filepath.ToSlash(t.TempDir())
	current := Split(root + "/in/source.mkv")

	info, out, err := New(nil).Resolve(current, root+"/out/movie", source{path: root + "/in/source.mkv"}, mpd)
	require.NoError(t, err)
	assert.Equal(t, root+"/out", info.Dir)
	assert.Equal(t, "movie", info.Filename)
	assert.Equal(t, root+"/out/movie.mpd", out)
	assert.DirExists(t, root+"/out")
}

func TestResolveWithoutPathUsesSourceLocation(t *testing.T) {
	root := filepath.ToSlash(t.TempDir())
	src := root + "/source.mkv"

	info, out, err := New(nil).Resolve(Split(src), "", source{path: src}, mpd)
	require.NoError(t, err)
	assert.Equal(t, "source", info.Filename)
	assert.Equal(t, root+"/source.mpd", out)
}

func TestResolveIsIdempotentForExistingDirectory(t *testing.T) {
	root := filepath.ToSlash(t.TempDir())
	r := New(nil)
	for range 2 {
		_, _, err := r.Resolve(domain.PathInfo{}, root+"/out/movie", source{}, mpd)
		require.NoError(t, err)
	}
	assert.DirExists(t, root+"/out")
}

func TestResolvePropagatesSuffixError(t *testing.T) {
	bad := errors.New("unsorted")
	_, _, err := New(nil).Resolve(domain.PathInfo{}, t.TempDir()+"/m", source{}, func(string) (string, error) {
		return "", bad
	})
	assert.ErrorIs(t, err, bad)
}

func TestSplit(t *testing.T) {
	assert.Equal(t, domain.PathInfo{Dir: "/out", Filename: "movie", Ext: "mp4"}, Split("/out/movie.mp4"))
	assert.Equal(t, domain.PathInfo{Dir: "C:/videos", Filename: "clip", Ext: ""}, Split(`C:\videos\clip`))
	assert.Equal(t, domain.PathInfo{Dir: ".", Filename: "movie", Ext: "m3u8"}, Split("movie.m3u8"))
	assert.Equal(t, domain.PathInfo{Dir: "/", Filename: "movie", Ext: ""}, Split("/movie"))
}

func TestNormalizeKeepsLastCharacters(t *testing.T) {
	long := strings.Repeat("a", 20) + strings.Repeat("b", 50)
	info := Normalize(domain.PathInfo{Dir: `out\sub`, Filename: long})
	assert.Equal(t, "out/sub", info.Dir)
	assert.Equal(t, strings.Repeat("b", 50), info.Filename)
}
