package format

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/eleven-am/streampack/internal/domain"
	"github.com/eleven-am/streampack/internal/ffmpeg"
	"github.com/eleven-am/streampack/internal/hwaccel"
	"github.com/eleven-am/streampack/internal/rendition"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ladder = []domain.Representation{
	{Width: 640, Height: 360, Bitrate: 800000},
	{Width: 1280, Height: 720, Bitrate: 2500000},
}

func params(dir string) Params {
	return Params{
		Builder:         ffmpeg.NewCommandBuilder(hwaccel.NewConfig(domain.AccelNone)),
		Dir:             dir,
		Filename:        "movie",
		Representations: ladder,
		Audio:           true,
	}
}

func TestHLSSuffixUsesLastHeight(t *testing.T) {
	name, err := NewHLS(HLSOptions{}).ResolveSuffix("movie", ladder)
	require.NoError(t, err)
	assert.Equal(t, "movie_720p.m3u8", name)
}

func TestHLSSuffixRejectsUnsortedLadder(t *testing.T) {
	_, err := NewHLS(HLSOptions{}).ResolveSuffix("movie", []domain.Representation{ladder[1], ladder[0]})
	assert.ErrorIs(t, err, rendition.ErrLadderOrder)

	_, err = NewHLS(HLSOptions{}).ResolveSuffix("movie", nil)
	assert.ErrorIs(t, err, rendition.ErrEmptyLadder)
}

func TestHLSFilterAndMasterPlaylist(t *testing.T) {
	dir := t.TempDir()
	h := NewHLS(HLSOptions{})
	assert.Equal(t, DefaultSegmentDuration, h.Options.SegmentDuration)
	assert.Equal(t, domain.FormatHLS, h.Format())

	filter := h.BuildFilter(params(dir))
	joined := strings.Join(filter.Args, " ")
	assert.Contains(t, joined, "-hls_time 10")
	assert.Contains(t, joined, dir+"/movie_360p.m3u8")

	require.NoError(t, h.PostEncode(params(dir)))
	data, err := os.ReadFile(filepath.Join(dir, "movie.m3u8"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "movie_360p.m3u8\n")
	assert.Contains(t, string(data), "movie_720p.m3u8\n")
}

func TestHLSPostEncodeFailsWithoutDirectory(t *testing.T) {
	err := NewHLS(HLSOptions{}).PostEncode(params(filepath.Join(t.TempDir(), "missing")))
	assert.Error(t, err)
}

func TestHLSCloudPublishable(t *testing.T) {
	assert.NoError(t, NewHLS(HLSOptions{}).CloudPublishable())
	assert.ErrorIs(t, NewHLS(HLSOptions{SegmentSubDir: "ts"}).CloudPublishable(), ErrCloudSubDirectory)
}

func TestDASHVariant(t *testing.T) {
	d := NewDASH(DASHOptions{UseTimeline: true})
	assert.Equal(t, domain.FormatDASH, d.Format())

	name, err := d.ResolveSuffix("movie", ladder)
	require.NoError(t, err)
	assert.Equal(t, "movie.mpd", name)

	_, err = d.ResolveSuffix("movie", nil)
	assert.ErrorIs(t, err, rendition.ErrEmptyLadder)

	filter := d.BuildFilter(params(t.TempDir()))
	joined := strings.Join(filter.Args, " ")
	assert.Contains(t, joined, "-use_timeline 1")
	assert.Contains(t, joined, "-seg_duration 10")
	assert.True(t, strings.HasSuffix(joined, "-f dash"))

	assert.NoError(t, d.PostEncode(params(t.TempDir())))
	assert.NoError(t, d.CloudPublishable())
}

func TestHLSPreEncodeCreatesSegmentSubDir(t *testing.T) {
	dir := t.TempDir()
	assert.NoError(t, NewHLS(HLSOptions{}).PreEncode(params(dir)))
	assert.Equal(t, []string{}, entries(t, dir))

	h := NewHLS(HLSOptions{SegmentSubDir: "ts"})
	require.NoError(t, h.PreEncode(params(dir)))
	require.NoError(t, h.PreEncode(params(dir)))
	assert.DirExists(t, filepath.Join(dir, "ts"))

	assert.NoError(t, NewDASH(DASHOptions{}).PreEncode(params(dir)))
}

func entries(t *testing.T, dir string) []string {
	t.Helper()
	list, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := []string{}
	for _, e := range list {
		names = append(names, e.Name())
	}
	return names
}
