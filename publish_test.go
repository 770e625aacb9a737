package streampack

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureDestination records what was in the workspace when it was uploaded.
type captureDestination struct {
	err   error
	dir   string
	files []string
}

func (c *captureDestination) Upload(ctx context.Context, localDir string) error {
	c.dir = localDir
	err := filepath.WalkDir(localDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, _ := filepath.Rel(localDir, p)
		c.files = append(c.files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return err
	}
	sort.Strings(c.files)
	return c.err
}

func listDir(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

var hlsArtifacts = []string{
	"movie.m3u8",
	"movie_360p.m3u8",
	"movie_360p_0000.ts",
	"movie_720p.m3u8",
	"movie_720p_0000.ts",
}

func TestPublishWithPathUploadsAndKeepsLocalCopy(t *testing.T) {
	h := newHarness(t)
	export := NewHLS(h.open(t, false), HLSOptions{}).SetRepresentations(ladder...)
	out := filepath.Join(t.TempDir(), "archive")
	dest := &captureDestination{}

	res, err := export.Publish(context.Background(), dest, filepath.Join(out, "movie"), true)
	require.NoError(t, err)

	assert.Equal(t, hlsArtifacts, dest.files)
	assert.NoDirExists(t, dest.dir)
	assert.ElementsMatch(t, hlsArtifacts, listDir(t, out))

	assert.Equal(t, filepath.ToSlash(out), export.PathInfo().Dir)
	assert.Equal(t, filepath.ToSlash(filepath.Join(out, "movie_720p.m3u8")), export.ManifestPath())
	assert.Equal(t, export.ManifestPath(), res.Report.ManifestPath)
}

func TestPublishWithoutPathLeavesNothingBehind(t *testing.T) {
	h := newHarness(t)
	media := h.open(t, false)
	export := NewDASH(media, DASHOptions{}).SetRepresentations(ladder...)
	dest := &captureDestination{}

	res, err := export.Publish(context.Background(), dest, "", false)
	require.NoError(t, err)
	assert.Same(t, export, res.Export)

	require.Len(t, dest.files, 2)
	base := export.PathInfo().Filename
	_, err = uuid.Parse(base)
	assert.NoError(t, err, "basename %q should be a random uuid", base)
	assert.Equal(t, []string{base + ".mpd", base + "_chunk_0_00001.m4s"}, dest.files)

	assert.NoDirExists(t, dest.dir)
	assert.Equal(t, []string{"source.mkv"}, listDir(t, filepath.Dir(media.Path())))
}

func TestPublishWithoutPathClearsLocalLocation(t *testing.T) {
	h := newHarness(t)
	export := NewHLS(h.open(t, false), HLSOptions{}).SetRepresentations(ladder...)
	dest := &captureDestination{}

	res, err := export.Publish(context.Background(), dest, "", true)
	require.NoError(t, err)
	require.NotNil(t, res.Report)

	assert.NoDirExists(t, dest.dir)
	assert.Empty(t, export.PathInfo().Dir)
	assert.NotEmpty(t, export.PathInfo().Filename)
	assert.Empty(t, export.ManifestPath())
	assert.Empty(t, res.Report.ManifestPath)
}

func TestPublishUploadFailureStillKeepsLocalCopy(t *testing.T) {
	h := newHarness(t)
	export := NewHLS(h.open(t, false), HLSOptions{}).SetRepresentations(ladder...)
	out := filepath.Join(t.TempDir(), "archive")
	dest := &captureDestination{err: errors.New("503 service unavailable")}

	res, err := export.Publish(context.Background(), dest, filepath.Join(out, "movie"), false)
	require.ErrorIs(t, err, dest.err)
	require.NotNil(t, res)

	assert.NoDirExists(t, dest.dir)
	assert.ElementsMatch(t, hlsArtifacts, listDir(t, out))
}

func TestPublishUploadFailureWithoutPathRemovesWorkspace(t *testing.T) {
	h := newHarness(t)
	export := NewHLS(h.open(t, false), HLSOptions{}).SetRepresentations(ladder...)
	dest := &captureDestination{err: errors.New("denied")}

	_, err := export.Publish(context.Background(), dest, "", false)
	require.ErrorIs(t, err, dest.err)
	assert.NoDirExists(t, dest.dir)
}

func TestPublishSaveFailureRemovesWorkspace(t *testing.T) {
	h := newHarness(t)
	h.transcoder.err = errors.New("encoder crashed")
	export := NewHLS(h.open(t, false), HLSOptions{}).SetRepresentations(ladder...)
	dest := &captureDestination{}

	_, err := export.Publish(context.Background(), dest, "", false)
	require.ErrorIs(t, err, h.transcoder.err)

	require.Equal(t, 1, h.transcoder.callCount())
	ws := filepath.Dir(h.transcoder.calls[0].output)
	assert.NoDirExists(t, ws)
	assert.Empty(t, dest.dir, "nothing is uploaded after a failed save")
}

func TestPublishHLSWithSegmentSubDirIsRejectedUpFront(t *testing.T) {
	h := newHarness(t)
	export := NewHLS(h.open(t, false), HLSOptions{SegmentSubDir: "ts"}).SetRepresentations(ladder...)
	dest := &captureDestination{}

	_, err := export.Publish(context.Background(), dest, "", false)
	require.ErrorIs(t, err, ErrCloudSubDirectory)
	assert.Zero(t, h.transcoder.callCount())
	assert.Empty(t, dest.dir)

	_, err = export.SaveToS3(context.Background(), S3Config{Bucket: "media"}, "out", "", false)
	assert.ErrorIs(t, err, ErrCloudSubDirectory)
	_, err = export.SaveToGCS(context.Background(), GCSConfig{Bucket: "media"}, "out", "", false)
	assert.ErrorIs(t, err, ErrCloudSubDirectory)
	assert.Zero(t, h.transcoder.callCount())
}

func TestPublishTemporarySourceWithPath(t *testing.T) {
	h := newHarness(t)
	media := h.open(t, true)
	export := NewDASH(media, DASHOptions{}).SetRepresentations(ladder...)
	out := filepath.Join(t.TempDir(), "movie")

	_, err := export.Publish(context.Background(), &captureDestination{}, out, false)
	require.NoError(t, err)
	assert.NoFileExists(t, media.Path())
	assert.FileExists(t, out+".mpd")
}

func TestSaveToCloudUploadsOverHTTP(t *testing.T) {
	var (
		mu    sync.Mutex
		parts []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Token") != "secret" {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		mr, err := r.MultipartReader()
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		for {
			part, err := mr.NextPart()
			if err == io.EOF {
				break
			}
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			mu.Lock()
			parts = append(parts, part.FormName())
			mu.Unlock()
		}
	}))
	defer srv.Close()

	h := newHarness(t)
	export := NewDASH(h.open(t, false), DASHOptions{}).SetRepresentations(ladder...)

	_, err := export.SaveToCloud(context.Background(), CloudConfig{
		URL:     srv.URL,
		Method:  http.MethodPost,
		Field:   "video",
		Headers: map[string]string{"X-Token": "secret"},
	}, "", false)
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"video", "video"}, parts)
}
