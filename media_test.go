package streampack

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func videoServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/videos/clip.mp4" {
			http.NotFound(w, r)
			return
		}
		io.WriteString(w, "mp4 bytes")
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFromURLWithoutTargetIsTemporary(t *testing.T) {
	h := newHarness(t)
	srv := videoServer(t)

	media, err := h.packager.FromURL(context.Background(), srv.URL+"/videos/clip.mp4", "", nil)
	require.NoError(t, err)
	t.Cleanup(func() { media.Close() })

	assert.True(t, media.IsTemp())
	assert.True(t, strings.HasSuffix(media.Path(), ".mp4"))
	data, err := os.ReadFile(media.Path())
	require.NoError(t, err)
	assert.Equal(t, "mp4 bytes", string(data))

	require.NoError(t, media.Close())
	assert.NoFileExists(t, media.Path())
}

func TestFromURLWithTargetIsKept(t *testing.T) {
	h := newHarness(t)
	srv := videoServer(t)
	target := filepath.Join(t.TempDir(), "input.mp4")

	media, err := h.packager.FromURL(context.Background(), srv.URL+"/videos/clip.mp4", target, nil)
	require.NoError(t, err)
	assert.False(t, media.IsTemp())
	assert.Equal(t, target, media.Path())

	require.NoError(t, media.Close())
	assert.FileExists(t, target)
}

func TestFromURLFailureRemovesTemporaryFile(t *testing.T) {
	h := newHarness(t)
	srv := videoServer(t)

	before, _ := filepath.Glob(filepath.Join(os.TempDir(), "streampack-*.mp4"))
	_, err := h.packager.FromURL(context.Background(), srv.URL+"/videos/missing.mp4", "", nil)
	require.Error(t, err)
	after, _ := filepath.Glob(filepath.Join(os.TempDir(), "streampack-*.mp4"))

	assert.Equal(t, len(before), len(after))
}

func TestDownloadedTemporaryMediaNeedsAnOutputPath(t *testing.T) {
	h := newHarness(t)
	srv := videoServer(t)

	media, err := h.packager.FromURL(context.Background(), srv.URL+"/videos/clip.mp4", "", nil)
	require.NoError(t, err)

	_, err = NewHLS(media, HLSOptions{}).SetRepresentations(ladder...).Save(context.Background(), "", false)
	assert.ErrorIs(t, err, ErrPathRequired)
	assert.NoFileExists(t, media.Path())
}
