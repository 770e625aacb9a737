package probe

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/eleven-am/streampack/internal/domain"
)

// Prober reads stream metadata with ffprobe.
type Prober struct {
	binary string
}

func NewProber(binary string) *Prober {
	if binary == "" {
		binary = "ffprobe"
	}
	return &Prober{binary: binary}
}

type ffprobeOutput struct {
	Streams []ffprobeStream `json:"streams"`
	Format  ffprobeFormat   `json:"format"`
}

type ffprobeStream struct {
	Index       int               `json:"index"`
	CodecName   string            `json:"codec_name"`
	CodecType   string            `json:"codec_type"`
	Width       int               `json:"width"`
	Height      int               `json:"height"`
	RFrameRate  string            `json:"r_frame_rate"`
	Channels    int               `json:"channels"`
	BitRate     string            `json:"bit_rate"`
	Tags        map[string]string `json:"tags"`
	Disposition ffprobeDisp       `json:"disposition"`
}

type ffprobeFormat struct {
	Duration string `json:"duration"`
	Size     string `json:"size"`
	BitRate  string `json:"bit_rate"`
}

type ffprobeDisp struct {
	Forced int `json:"forced"`
}

func (p *Prober) Probe(ctx context.Context, path string) (*domain.Metadata, error) {
	cmd := exec.CommandContext(ctx, p.binary,
		"-v", "error",
		"-show_format",
		"-show_streams",
		"-of", "json",
		path,
	)

	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffprobe %s: %w", path, err)
	}

	var ff ffprobeOutput
	if err := json.Unmarshal(output, &ff); err != nil {
		return nil, fmt.Errorf("decode ffprobe output: %w", err)
	}

	metadata := &domain.Metadata{
		Bitrate: parseBitrate(ff.Format.BitRate),
	}
	if dur, err := strconv.ParseFloat(ff.Format.Duration, 64); err == nil {
		metadata.Duration = dur
	}
	if size, err := strconv.ParseInt(ff.Format.Size, 10, 64); err == nil {
		metadata.Size = size
	}

	var haveVideo bool
	for _, s := range ff.Streams {
		switch s.CodecType {
		case "video":
			if haveVideo {
				continue
			}
			haveVideo = true
			bitrate := parseBitrate(s.BitRate)
			if bitrate == 0 {
				bitrate = parseBitrate(s.Tags["BPS"])
			}
			metadata.Video = domain.VideoStream{
				Index:     s.Index,
				Codec:     s.CodecName,
				Width:     s.Width,
				Height:    s.Height,
				Bitrate:   bitrate,
				FrameRate: parseFrameRate(s.RFrameRate),
			}
		case "audio":
			metadata.Audios = append(metadata.Audios, domain.AudioStream{
				Index:    s.Index,
				Codec:    s.CodecName,
				Language: s.Tags["language"],
				Channels: s.Channels,
				Bitrate:  parseBitrate(s.BitRate),
			})
		case "subtitle":
			metadata.Subtitles = append(metadata.Subtitles, domain.SubtitleStream{
				Index:    s.Index,
				Codec:    s.CodecName,
				Language: s.Tags["language"],
				Forced:   s.Disposition.Forced == 1,
			})
		}
	}

	return metadata, nil
}

func parseBitrate(s string) int {
	if s == "" {
		return 0
	}
	v, _ := strconv.Atoi(s)
	return v
}

func parseFrameRate(s string) float64 {
	parts := strings.Split(s, "/")
	if len(parts) != 2 {
		return 0
	}
	num, _ := strconv.ParseFloat(parts[0], 64)
	den, _ := strconv.ParseFloat(parts[1], 64)
	if den == 0 {
		return 0
	}
	return num / den
}
