package probe

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eleven-am/streampack/internal/domain"
)

func fakeFFprobe(t *testing.T) string {
	t.Helper()
	script := filepath.Join(t.TempDir(), "ffprobe")
	require.NoError(t, os.WriteFile(script, []byte(ffprobeScript), 0755))
	return script
}

func TestProbe_ParsesStreams(t *testing.T) {
	p := NewProber(fakeFFprobe(t))

	meta, err := p.Probe(context.Background(), "/input.mkv")
	require.NoError(t, err)

	assert.Equal(t, 12.5, meta.Duration)
	assert.Equal(t, int64(1048576), meta.Size)
	assert.Equal(t, 6_640_000, meta.Bitrate)

	assert.Equal(t, "h264", meta.Video.Codec)
	assert.Equal(t, 1920, meta.Video.Width)
	assert.Equal(t, 1080, meta.Video.Height)
	assert.Equal(t, 6_000_000, meta.Video.Bitrate, "falls back to the BPS tag")
	assert.InDelta(t, 29.97, meta.Video.FrameRate, 0.01)

	require.Len(t, meta.Audios, 1)
	assert.Equal(t, domain.AudioStream{Index: 1, Codec: "ac3", Language: "eng", Channels: 6, Bitrate: 640000}, meta.Audios[0])
	assert.True(t, meta.HasAudio())

	require.Len(t, meta.Subtitles, 1)
	assert.True(t, meta.Subtitles[0].Forced)
}

func TestProbe_FailureIsWrapped(t *testing.T) {
	p := NewProber(fakeFFprobe(t))

	_, err := p.Probe(context.Background(), "--fail")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ffprobe --fail")
}

type stubTarget struct {
	dir string
}

func (s stubTarget) SourcePath() string { return "/input.mkv" }
func (s stubTarget) PathInfo() domain.PathInfo {
	return domain.PathInfo{Dir: s.dir, Filename: "movie", Ext: "m3u8"}
}
func (s stubTarget) ManifestPath() string  { return s.dir + "/movie.m3u8" }
func (s stubTarget) Format() domain.Format { return domain.FormatHLS }
func (s stubTarget) Representations() []domain.Representation {
	return []domain.Representation{{Width: 640, Height: 360, Bitrate: 800_000}}
}

func TestAnalyze_ReportsSourceAndArtifacts(t *testing.T) {
	dir := t.TempDir()
	for name, body := range map[string]string{
		"movie.m3u8":             "#EXTM3U\n",
		"movie_360p.m3u8":        "#EXTM3U\n",
		"movie_360p_0000.ts":     "0123456789",
		"segments/movie_360p.ts": "xx",
		"movies_other.m3u8":      "ignored",
		"unrelated.txt":          "ignored",
	} {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	}

	a := NewAnalyzer(NewProber(fakeFFprobe(t)), nil)
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	a.now = func() time.Time { return fixed }

	report, err := a.Analyze(context.Background(), stubTarget{dir: dir})
	require.NoError(t, err)

	assert.Equal(t, domain.FormatHLS, report.Format)
	assert.Equal(t, dir+"/movie.m3u8", report.ManifestPath)
	assert.Equal(t, 1920, report.Source.Video.Width)
	assert.Equal(t, fixed, report.CreatedAt)
	assert.Len(t, report.Representations, 1)

	var names []string
	for _, f := range report.Files {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"movie.m3u8", "movie_360p.m3u8", "movie_360p_0000.ts", "segments/movie_360p.ts"}, names)
	assert.Equal(t, int64(8+8+10+2), report.TotalSize)
}

func TestAnalyze_ProbeFailure(t *testing.T) {
	a := NewAnalyzer(NewProber(filepath.Join(t.TempDir(), "missing")), nil)

	_, err := a.Analyze(context.Background(), stubTarget{dir: t.TempDir()})
	assert.ErrorContains(t, err, "probe source")
}

const ffprobeScript = `#!/bin/sh
for last; do :; done
if [ "$last" = "--fail" ]; then
  echo "no such file" >&2
  exit 1
fi
cat <<'EOF'
{"streams":[{"index":0,"codec_name":"h264","codec_type":"video","width":1920,"height":1080,"r_frame_rate":"30000/1001","tags":{"BPS":"6000000"}},{"index":1,"codec_name":"ac3","codec_type":"audio","channels":6,"bit_rate":"640000","tags":{"language":"eng"}},{"index":2,"codec_name":"subrip","codec_type":"subtitle","tags":{"language":"eng"},"disposition":{"forced":1}}],"format":{"duration":"12.5","size":"1048576","bit_rate":"6640000"}}
EOF
`
