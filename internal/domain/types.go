package domain

import "fmt"

// Format selects the adaptive streaming packaging.
type Format string

const (
	FormatHLS  Format = "hls"
	FormatDASH Format = "dash"
)

func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatHLS, FormatDASH:
		return Format(s), nil
	default:
		return "", fmt.Errorf("unknown format %q", s)
	}
}

// Filter is the set of transcoder directives built for a single save.
// InputArgs go before the input, Args after it and before the output path.
type Filter struct {
	InputArgs []string
	Args      []string
}

// PathInfo describes where an export writes its top-level manifest.
// Dir always uses forward slashes and Filename is capped at MaxFilenameLen.
type PathInfo struct {
	Dir      string
	Filename string
	Ext      string
}

const MaxFilenameLen = 50

type Metadata struct {
	Duration  float64
	Size      int64
	Bitrate   int
	Video     VideoStream
	Audios    []AudioStream
	Subtitles []SubtitleStream
}

func (m *Metadata) HasAudio() bool {
	return len(m.Audios) > 0
}

type VideoStream struct {
	Index     int
	Codec     string
	Width     int
	Height    int
	Bitrate   int
	FrameRate float64
}

type AudioStream struct {
	Index    int
	Codec    string
	Language string
	Channels int
	Bitrate  int
}

type SubtitleStream struct {
	Index    int
	Codec    string
	Language string
	Forced   bool
}
