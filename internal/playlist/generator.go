// Package playlist writes the HLS master playlist that ties the per
// representation playlists produced by the transcoder together.
package playlist

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/eleven-am/streampack/internal/domain"
)

const version = 3

// VariantName is the file name of the media playlist the transcoder writes
// for one representation.
func VariantName(filename string, rep domain.Representation) string {
	return fmt.Sprintf("%s_%s.m3u8", filename, rep.Name())
}

// MasterName is the file name of the master playlist for an export.
func MasterName(filename string) string {
	return filename + ".m3u8"
}

// Master renders the master playlist listing every representation in
// ladder order.
func Master(filename string, reps []domain.Representation, withAudio bool) string {
	var b strings.Builder

	b.WriteString("#EXTM3U\n")
	b.WriteString(fmt.Sprintf("#EXT-X-VERSION:%d\n", version))

	for _, rep := range reps {
		codecs := videoCodecString(rep)
		if withAudio {
			codecs += "," + audioCodecString()
		}
		b.WriteString(fmt.Sprintf(
			"#EXT-X-STREAM-INF:BANDWIDTH=%d,RESOLUTION=%s,CODECS=\"%s\"\n",
			rep.Bandwidth(),
			rep.Resolution(),
			codecs,
		))
		b.WriteString(VariantName(filename, rep) + "\n")
	}

	return b.String()
}

// WriteMaster writes {dir}/{filename}.m3u8. The content goes to a temp file
// in dir first and is renamed into place, so a reader never sees a
// truncated playlist.
func WriteMaster(dir, filename string, reps []domain.Representation, withAudio bool) (string, error) {
	if len(reps) == 0 {
		return "", fmt.Errorf("write master playlist: no representations")
	}

	target := filepath.Join(dir, MasterName(filename))

	tmp, err := os.CreateTemp(dir, ".master-*.m3u8")
	if err != nil {
		return "", fmt.Errorf("create master playlist: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.WriteString(Master(filename, reps, withAudio)); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", fmt.Errorf("write master playlist: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("close master playlist: %w", err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("chmod master playlist: %w", err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("rename master playlist: %w", err)
	}

	return target, nil
}

func videoCodecString(rep domain.Representation) string {
	switch {
	case rep.Height >= 2160:
		return "avc1.640033"
	case rep.Height >= 1080:
		return "avc1.640028"
	case rep.Height >= 720:
		return "avc1.64001f"
	case rep.Height >= 480:
		return "avc1.64001e"
	default:
		return "avc1.640015"
	}
}

func audioCodecString() string {
	return "mp4a.40.2"
}
