package domain

import "fmt"

// Representation is one encode target of an adaptive bitrate ladder.
// Bitrates are in bits per second.
type Representation struct {
	Width        int
	Height       int
	Bitrate      int
	AudioBitrate int
	MaxRate      int
	BufSize      int
}

func (r Representation) Name() string {
	return fmt.Sprintf("%dp", r.Height)
}

func (r Representation) Resolution() string {
	return fmt.Sprintf("%dx%d", r.Width, r.Height)
}

// Bandwidth is the peak bandwidth advertised for the variant stream.
func (r Representation) Bandwidth() int {
	video := r.MaxRate
	if video == 0 {
		video = r.Bitrate
	}
	return video + r.AudioBitrate
}
