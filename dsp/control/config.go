package control

import (
	"fmt"

	"github.com/cwbudde/algo-stereodelay/dsp/core"
	"github.com/cwbudde/algo-stereodelay/dsp/effects"
	"github.com/cwbudde/algo-stereodelay/dsp/tempo"
)

// Config is the full startup configuration of a Gateway. The json tags match
// the configuration file layout used by the host application.
type Config struct {
	SampleRate   int               `json:"sample_rate"`
	BufferSize   int               `json:"buffer_size"`
	InputDevice  string            `json:"input_device,omitempty"`
	OutputDevice string            `json:"output_device,omitempty"`
	StereoDelay  StereoDelayConfig `json:"stereo_delay"`
	Distortion   DistortionConfig  `json:"distortion"`
}

// StereoDelayConfig holds the delay section. A non-nil BPM overrides
// LeftDelay and RightDelay with quarter and half note times.
type StereoDelayConfig struct {
	LeftDelay     float64  `json:"left_delay"`
	RightDelay    float64  `json:"right_delay"`
	BPM           *float64 `json:"bpm,omitempty"`
	Feedback      float64  `json:"feedback"`
	WetMix        float64  `json:"wet_mix"`
	PingPong      bool     `json:"ping_pong"`
	StereoWidth   float64  `json:"stereo_width"`
	CrossFeedback float64  `json:"cross_feedback"`
}

// DistortionConfig holds the cross-feedback distortion section.
type DistortionConfig struct {
	Enabled           bool    `json:"enabled"`
	Type              string  `json:"distortion_type"`
	Drive             float64 `json:"drive"`
	Mix               float64 `json:"mix"`
	FeedbackIntensity float64 `json:"feedback_intensity"`
}

// DefaultConfig returns 44.1 kHz, 4096-frame buffers and the stock delay
// voicing: 300/600 ms ping-pong with soft-clipped cross-feedback.
func DefaultConfig() Config {
	pc := core.DefaultProcessorConfig()
	return Config{
		SampleRate: int(pc.SampleRate),
		BufferSize: pc.BlockSize,
		StereoDelay: StereoDelayConfig{
			LeftDelay:     0.3,
			RightDelay:    0.6,
			Feedback:      0.3,
			WetMix:        0.6,
			PingPong:      true,
			StereoWidth:   0.5,
			CrossFeedback: 0.2,
		},
		Distortion: DistortionConfig{
			Enabled:           true,
			Type:              effects.DistortionSoftClip.String(),
			Drive:             0.3,
			Mix:               0.7,
			FeedbackIntensity: 0.5,
		},
	}
}

// WithSampleRate returns the default configuration at sampleRate Hz.
func WithSampleRate(sampleRate int) Config {
	cfg := DefaultConfig()
	cfg.SampleRate = sampleRate
	return cfg
}

// Validate checks every field against its domain. Unlike the runtime
// setters, which clamp, validation rejects out-of-range values.
func (c Config) Validate() error {
	pc := core.ProcessorConfig{SampleRate: float64(c.SampleRate), BlockSize: c.BufferSize}
	if err := pc.Validate(); err != nil {
		return fmt.Errorf("control: %w", err)
	}
	if err := c.StereoDelay.Validate(); err != nil {
		return err
	}
	return c.Distortion.Validate()
}

// Validate checks the delay section.
func (c StereoDelayConfig) Validate() error {
	if err := checkRange("left_delay", c.LeftDelay, effects.MinDelaySeconds, effects.MaxDelaySeconds); err != nil {
		return err
	}
	if err := checkRange("right_delay", c.RightDelay, effects.MinDelaySeconds, effects.MaxDelaySeconds); err != nil {
		return err
	}
	if c.BPM != nil {
		if err := checkRange("bpm", *c.BPM, tempo.MinBPM, tempo.MaxBPM); err != nil {
			return err
		}
	}
	if err := checkRange("feedback", c.Feedback, 0, effects.MaxFeedback); err != nil {
		return err
	}
	if err := checkRange("wet_mix", c.WetMix, 0, 1); err != nil {
		return err
	}
	if err := checkRange("stereo_width", c.StereoWidth, 0, 1); err != nil {
		return err
	}
	return checkRange("cross_feedback", c.CrossFeedback, 0, effects.MaxCrossFeedback)
}

// Validate checks the distortion section. Unknown type names are not an
// error; they select no distortion.
func (c DistortionConfig) Validate() error {
	if err := checkRange("drive", c.Drive, 0, 1); err != nil {
		return err
	}
	if err := checkRange("mix", c.Mix, 0, 1); err != nil {
		return err
	}
	return checkRange("feedback_intensity", c.FeedbackIntensity, 0, 1)
}

func (c Config) engineOptions(distOpts ...effects.DistortionOption) []effects.StereoDelayOption {
	sd := c.StereoDelay
	d := c.Distortion

	distOpts = append([]effects.DistortionOption{
		effects.WithDistortionType(effects.ParseDistortionType(d.Type)),
		effects.WithDistortionDrive(d.Drive),
		effects.WithDistortionMix(d.Mix),
	}, distOpts...)

	return []effects.StereoDelayOption{
		effects.WithDelayTimes(sd.LeftDelay, sd.RightDelay),
		effects.WithFeedback(sd.Feedback),
		effects.WithWetMix(sd.WetMix),
		effects.WithPingPong(sd.PingPong),
		effects.WithStereoWidth(sd.StereoWidth),
		effects.WithCrossFeedback(sd.CrossFeedback),
		effects.WithCrossFeedbackDistortion(d.Enabled, d.FeedbackIntensity, distOpts...),
	}
}
