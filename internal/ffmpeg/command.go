package ffmpeg

import (
	"fmt"
	"path"
	"strconv"

	"github.com/eleven-am/streampack/internal/domain"
)

// DefaultStrict matches ffmpeg's "experimental" compliance level, which older
// builds need for the native aac encoder.
const DefaultStrict = "-2"

type SegmentType string

const (
	SegmentMPEGTS SegmentType = "mpegts"
	SegmentFMP4   SegmentType = "fmp4"
)

type CommandBuilder struct {
	HWAccel *domain.HWAccelConfig
}

func NewCommandBuilder(hwAccel *domain.HWAccelConfig) *CommandBuilder {
	return &CommandBuilder{HWAccel: hwAccel}
}

type HLSParams struct {
	Representations []domain.Representation
	Dir             string
	Filename        string
	SegmentDuration int
	SegmentSubDir   string
	SegmentType     SegmentType
	PlaylistType    string
	Strict          string
	Audio           bool
}

type DASHParams struct {
	Representations []domain.Representation
	Filename        string
	SegmentDuration int
	UseTimeline     bool
	UseTemplate     bool
	Strict          string
	Audio           bool
}

// HLS builds one hls output per representation. Every output except the
// last carries its own playlist path; the last playlist path is the one the
// transcoder is asked to write.
func (b *CommandBuilder) HLS(p HLSParams) domain.Filter {
	filter := domain.Filter{InputArgs: b.inputArgs()}
	if len(p.Representations) == 0 {
		return filter
	}

	segDir := p.Dir
	if p.SegmentSubDir != "" {
		segDir = path.Join(p.Dir, p.SegmentSubDir)
	}

	ext := "ts"
	if p.SegmentType == SegmentFMP4 {
		ext = "m4s"
	}

	last := len(p.Representations) - 1
	for i, rep := range p.Representations {
		args := []string{"-map", "0:v:0"}
		if p.Audio {
			args = append(args, "-map", "0:a:0?")
		}

		args = append(args, b.videoArgs(rep, "")...)
		if p.Audio {
			args = append(args, audioArgs(rep, "")...)
		}
		args = append(args, "-strict", strictOrDefault(p.Strict))

		base := fmt.Sprintf("%s_%s", p.Filename, rep.Name())
		args = append(args,
			"-f", "hls",
			"-hls_time", strconv.Itoa(p.SegmentDuration),
			"-hls_list_size", "0",
			"-hls_playlist_type", playlistTypeOrDefault(p.PlaylistType),
			"-hls_segment_type", string(segmentTypeOrDefault(p.SegmentType)),
			"-hls_segment_filename", path.Join(segDir, base+"_%04d."+ext),
		)
		if p.SegmentType == SegmentFMP4 {
			args = append(args, "-hls_fmp4_init_filename", base+"_init.mp4")
		}
		if p.SegmentSubDir != "" {
			args = append(args, "-hls_base_url", p.SegmentSubDir+"/")
		}

		if i != last {
			args = append(args, path.Join(p.Dir, base+".m3u8"))
		}
		filter.Args = append(filter.Args, args...)
	}

	return filter
}

// DASH builds a single dash output carrying every representation as its
// own video stream, plus one audio stream when the source has audio.
func (b *CommandBuilder) DASH(p DASHParams) domain.Filter {
	filter := domain.Filter{InputArgs: b.inputArgs()}
	if len(p.Representations) == 0 {
		return filter
	}

	for range p.Representations {
		filter.Args = append(filter.Args, "-map", "0:v:0")
	}
	if p.Audio {
		filter.Args = append(filter.Args, "-map", "0:a:0?")
	}

	for i, rep := range p.Representations {
		filter.Args = append(filter.Args, b.videoArgs(rep, fmt.Sprintf(":v:%d", i))...)
	}

	adaptationSets := "id=0,streams=v"
	if p.Audio {
		top := p.Representations[len(p.Representations)-1]
		filter.Args = append(filter.Args, audioArgs(top, ":a")...)
		adaptationSets += " id=1,streams=a"
	}

	filter.Args = append(filter.Args,
		"-strict", strictOrDefault(p.Strict),
		"-use_timeline", boolFlag(p.UseTimeline),
		"-use_template", boolFlag(p.UseTemplate),
		"-seg_duration", strconv.Itoa(p.SegmentDuration),
		"-adaptation_sets", adaptationSets,
	)
	if p.Filename != "" {
		filter.Args = append(filter.Args,
			"-init_seg_name", p.Filename+"_init_$RepresentationID$.$ext$",
			"-media_seg_name", p.Filename+"_chunk_$RepresentationID$_$Number%05d$.$ext$",
		)
	}
	filter.Args = append(filter.Args, "-f", "dash")

	return filter
}

func (b *CommandBuilder) inputArgs() []string {
	return append([]string(nil), b.HWAccel.DecodeFlags...)
}

// videoArgs encodes one representation. spec is an ffmpeg stream specifier
// suffix such as ":v:1", empty when the output has a single video stream.
func (b *CommandBuilder) videoArgs(rep domain.Representation, spec string) []string {
	args := []string{"-c" + orV(spec), b.HWAccel.Encoder}
	args = append(args, b.HWAccel.EncoderArgs...)

	args = append(args,
		"-filter"+orV(spec), fmt.Sprintf(b.HWAccel.ScaleFilter, rep.Width, rep.Height),
		"-b"+orV(spec), strconv.Itoa(rep.Bitrate),
	)
	if rep.MaxRate > 0 {
		args = append(args, "-maxrate"+orV(spec), strconv.Itoa(rep.MaxRate))
	}
	if rep.BufSize > 0 {
		args = append(args, "-bufsize"+orV(spec), strconv.Itoa(rep.BufSize))
	}
	return args
}

func audioArgs(rep domain.Representation, spec string) []string {
	if spec == "" {
		spec = ":a"
	}
	args := []string{"-c" + spec, "aac"}
	if rep.AudioBitrate > 0 {
		args = append(args, "-b"+spec, strconv.Itoa(rep.AudioBitrate))
	}
	return args
}

func orV(spec string) string {
	if spec == "" {
		return ":v"
	}
	return spec
}

func strictOrDefault(s string) string {
	if s == "" {
		return DefaultStrict
	}
	return s
}

func playlistTypeOrDefault(s string) string {
	if s == "" {
		return "vod"
	}
	return s
}

func segmentTypeOrDefault(t SegmentType) SegmentType {
	if t == "" {
		return SegmentMPEGTS
	}
	return t
}

func boolFlag(v bool) string {
	if v {
		return "1"
	}
	return "0"
}
