package domain

type Accelerator string

const (
	AccelNone         Accelerator = "none"
	AccelCUDA         Accelerator = "cuda"
	AccelVideoToolbox Accelerator = "videotoolbox"
	AccelVAAPI        Accelerator = "vaapi"
	AccelQSV          Accelerator = "qsv"
)

// HWAccelConfig is the encoder profile used when building filters.
// ScaleFilter is a format string taking width and height.
type HWAccelConfig struct {
	Accelerator Accelerator
	DecodeFlags []string
	EncoderArgs []string
	Encoder     string
	ScaleFilter string
}
