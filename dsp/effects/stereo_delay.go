package effects

import (
	"fmt"

	"github.com/cwbudde/algo-stereodelay/dsp/core"
	"github.com/cwbudde/algo-stereodelay/dsp/delay"
	"github.com/cwbudde/algo-stereodelay/dsp/tempo"
)

// Parameter domains. Setters clamp into these ranges.
const (
	MinDelaySeconds   = 0.001
	MaxDelaySeconds   = 4.0
	MaxFeedback       = 0.9
	MaxCrossFeedback  = 0.5
	defaultLeftDelay  = 0.3
	defaultRightDelay = 0.6
	defaultFeedback   = 0.3
	defaultWetMix     = 0.6
	defaultWidth      = 0.5
	defaultCross      = 0.2
)

// Frame is one stereo sample pair.
type Frame struct {
	Left, Right float64
}

// StereoDelayOption mutates construction-time parameters. Values are clamped.
type StereoDelayOption func(*stereoDelayConfig)

type stereoDelayConfig struct {
	leftDelay  float64
	rightDelay float64
	feedback   float64
	wetMix     float64
	pingPong   bool
	width      float64
	cross      float64

	distEnabled   bool
	distIntensity float64
	distOpts      []DistortionOption
}

func defaultStereoDelayConfig() stereoDelayConfig {
	return stereoDelayConfig{
		leftDelay:     defaultLeftDelay,
		rightDelay:    defaultRightDelay,
		feedback:      defaultFeedback,
		wetMix:        defaultWetMix,
		pingPong:      true,
		width:         defaultWidth,
		cross:         defaultCross,
		distEnabled:   true,
		distIntensity: defaultFeedbackIntensity,
	}
}

// WithDelayTimes sets the left and right delay in seconds, each in [0.001, 4].
func WithDelayTimes(left, right float64) StereoDelayOption {
	return func(cfg *stereoDelayConfig) {
		cfg.leftDelay = clampDelay(left)
		cfg.rightDelay = clampDelay(right)
	}
}

// WithFeedback sets delay feedback in [0, 0.9].
func WithFeedback(feedback float64) StereoDelayOption {
	return func(cfg *stereoDelayConfig) {
		cfg.feedback = core.Clamp(feedback, 0, MaxFeedback)
	}
}

// WithWetMix sets the wet amount in [0, 1]; dry is 1 - wet.
func WithWetMix(wet float64) StereoDelayOption {
	return func(cfg *stereoDelayConfig) {
		cfg.wetMix = core.Clamp(wet, 0, 1)
	}
}

// WithPingPong enables swapped channel routing.
func WithPingPong(enabled bool) StereoDelayOption {
	return func(cfg *stereoDelayConfig) {
		cfg.pingPong = enabled
	}
}

// WithStereoWidth sets mid/side enhancement in [0, 1]. Zero disables it.
func WithStereoWidth(width float64) StereoDelayOption {
	return func(cfg *stereoDelayConfig) {
		cfg.width = core.Clamp(width, 0, 1)
	}
}

// WithCrossFeedback sets inter-channel feedback in [0, 0.5].
func WithCrossFeedback(cross float64) StereoDelayOption {
	return func(cfg *stereoDelayConfig) {
		cfg.cross = core.Clamp(cross, 0, MaxCrossFeedback)
	}
}

// WithCrossFeedbackDistortion configures the feedback distortion stage.
func WithCrossFeedbackDistortion(enabled bool, intensity float64, opts ...DistortionOption) StereoDelayOption {
	return func(cfg *stereoDelayConfig) {
		cfg.distEnabled = enabled
		cfg.distIntensity = core.Clamp(intensity, 0, 1)
		cfg.distOpts = append(cfg.distOpts[:0:0], opts...)
	}
}

// StereoDelay is a two-line delay with ping-pong routing, mid/side width
// enhancement and distorted cross-channel feedback.
//
// Each channel owns a delay line whose capacity equals its delay time in
// samples. Changing a delay time to a different sample count reallocates that
// line and discards its contents. Per-sample processing never allocates.
//
// StereoDelay is not safe for concurrent use; see control.Gateway.
type StereoDelay struct {
	sampleRate float64

	leftDelay    float64
	rightDelay   float64
	leftSamples  int
	rightSamples int
	bpm          float64

	feedback float64
	wetMix   float64
	dryMix   float64
	pingPong bool
	width    float64
	cross    float64

	left  *delay.Line
	right *delay.Line

	crossFeedback *CrossFeedback
}

// NewStereoDelay creates a stereo delay at sampleRate, which must lie in
// [8000, 192000] Hz.
func NewStereoDelay(sampleRate float64, opts ...StereoDelayOption) (*StereoDelay, error) {
	if err := core.ValidateSampleRate(sampleRate); err != nil {
		return nil, fmt.Errorf("stereo delay: %w", err)
	}

	cfg := defaultStereoDelayConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	s := &StereoDelay{
		sampleRate: sampleRate,
		leftDelay:  cfg.leftDelay,
		rightDelay: cfg.rightDelay,
		feedback:   cfg.feedback,
		wetMix:     cfg.wetMix,
		dryMix:     1 - cfg.wetMix,
		pingPong:   cfg.pingPong,
		width:      cfg.width,
		cross:      cfg.cross,
	}
	s.leftSamples = delay.Capacity(s.leftDelay, sampleRate)
	s.rightSamples = delay.Capacity(s.rightDelay, sampleRate)

	var err error
	if s.left, err = delay.New(s.leftSamples); err != nil {
		return nil, fmt.Errorf("stereo delay: %w", err)
	}
	if s.right, err = delay.New(s.rightSamples); err != nil {
		return nil, fmt.Errorf("stereo delay: %w", err)
	}

	s.crossFeedback = NewCrossFeedback(cfg.distEnabled, cfg.distIntensity, NewDistortion(cfg.distOpts...))

	return s, nil
}

// DelayCapacity returns the line capacity a delay of seconds needs at
// sampleRate after clamping seconds into [0.001, 4].
func DelayCapacity(seconds, sampleRate float64) int {
	return delay.Capacity(clampDelay(seconds), sampleRate)
}

// Name identifies the effect.
func (s *StereoDelay) Name() string { return "Stereo Delay" }

// ProcessStereo processes one stereo sample pair.
func (s *StereoDelay) ProcessStereo(leftIn, rightIn float64) (float64, float64) {
	l := s.left.Read(s.leftSamples)
	r := s.right.Read(s.rightSamples)

	if s.pingPong {
		l, r = r, l
	}

	if s.width > 0 {
		mid := (l + r) * 0.5
		side := (l - r) * 0.5 * (1 + s.width)
		l, r = mid+side, mid-side
	}

	outL := s.dryMix*leftIn + s.wetMix*l
	outR := s.dryMix*rightIn + s.wetMix*r

	fbL := leftIn + s.feedback*l
	fbR := rightIn + s.feedback*r

	crossL := fbL + s.cross*fbR
	crossR := fbR + s.cross*fbL

	finalL, finalR := s.crossFeedback.Process(crossL, crossR)

	s.left.Write(core.FlushDenormals(finalL))
	s.right.Write(core.FlushDenormals(finalR))

	return outL, outR
}

// ProcessSample feeds a mono sample to both channels.
func (s *StereoDelay) ProcessSample(input float64) (float64, float64) {
	return s.ProcessStereo(input, input)
}

// ProcessBuffer feeds each mono input sample to both channels and appends
// the stereo output to dst. No allocation happens when dst has room.
func (s *StereoDelay) ProcessBuffer(dst []Frame, input []float64) []Frame {
	for _, x := range input {
		l, r := s.ProcessStereo(x, x)
		dst = append(dst, Frame{Left: l, Right: r})
	}
	return dst
}

// ProcessStereoInPlace processes paired left/right buffers in place. Both
// buffers must have the same length.
func (s *StereoDelay) ProcessStereoInPlace(left, right []float64) error {
	if len(left) != len(right) {
		return fmt.Errorf("stereo delay: left and right buffers must have equal length: %d != %d",
			len(left), len(right))
	}

	for i := range left {
		left[i], right[i] = s.ProcessStereo(left[i], right[i])
	}

	return nil
}

// ProcessInterleavedInPlace processes an interleaved stereo buffer
// (L, R, L, R, ...) in place. The buffer length must be even.
func (s *StereoDelay) ProcessInterleavedInPlace(buf []float64) error {
	if len(buf)%2 != 0 {
		return fmt.Errorf("stereo delay: interleaved buffer length must be even: %d", len(buf))
	}

	for i := 0; i < len(buf); i += 2 {
		buf[i], buf[i+1] = s.ProcessStereo(buf[i], buf[i+1])
	}

	return nil
}

// Reset zeroes both lines and the distortion state without reallocating.
func (s *StereoDelay) Reset() {
	s.left.Reset()
	s.right.Reset()
	s.crossFeedback.Reset()
}

// SetLeftDelay sets the left delay, clamped to [0.001, 4] seconds.
func (s *StereoDelay) SetLeftDelay(seconds float64) { s.SetLeftDelayWith(seconds, nil) }

// SetRightDelay sets the right delay, clamped to [0.001, 4] seconds.
func (s *StereoDelay) SetRightDelay(seconds float64) { s.SetRightDelayWith(seconds, nil) }

// SetLeftDelayWith is SetLeftDelay with caller-provided line storage. buf is
// adopted only if a resize is needed and len(buf) matches the new capacity;
// otherwise the line allocates itself.
func (s *StereoDelay) SetLeftDelayWith(seconds float64, buf []float64) {
	s.bpm = 0
	s.leftDelay, s.leftSamples = s.setLine(s.left, seconds, buf)
}

// SetRightDelayWith is SetRightDelay with caller-provided line storage.
func (s *StereoDelay) SetRightDelayWith(seconds float64, buf []float64) {
	s.bpm = 0
	s.rightDelay, s.rightSamples = s.setLine(s.right, seconds, buf)
}

// SetDelayTime sets both channels to the same delay.
func (s *StereoDelay) SetDelayTime(seconds float64) {
	s.SetLeftDelay(seconds)
	s.SetRightDelay(seconds)
}

// SetTempo clamps bpm to [20, 300] and sets the left delay to a quarter
// note and the right delay to a half note.
func (s *StereoDelay) SetTempo(bpm float64) { s.SetTempoWith(bpm, nil, nil) }

// SetTempoWith is SetTempo with caller-provided storage for both lines.
func (s *StereoDelay) SetTempoWith(bpm float64, leftBuf, rightBuf []float64) {
	bpm = core.Clamp(bpm, tempo.MinBPM, tempo.MaxBPM)
	left, right := tempo.StereoDelays(bpm)
	s.leftDelay, s.leftSamples = s.setLine(s.left, left, leftBuf)
	s.rightDelay, s.rightSamples = s.setLine(s.right, right, rightBuf)
	s.bpm = bpm
}

// SetFeedback sets delay feedback, clamped to [0, 0.9].
func (s *StereoDelay) SetFeedback(feedback float64) {
	s.feedback = core.Clamp(feedback, 0, MaxFeedback)
}

// SetWetMix sets the wet amount, clamped to [0, 1], and dry = 1 - wet.
func (s *StereoDelay) SetWetMix(wet float64) {
	s.wetMix = core.Clamp(wet, 0, 1)
	s.dryMix = 1 - s.wetMix
}

// SetPingPong toggles swapped channel routing.
func (s *StereoDelay) SetPingPong(enabled bool) { s.pingPong = enabled }

// SetStereoWidth sets mid/side enhancement, clamped to [0, 1].
func (s *StereoDelay) SetStereoWidth(width float64) { s.width = core.Clamp(width, 0, 1) }

// SetCrossFeedback sets inter-channel feedback, clamped to [0, 0.5].
func (s *StereoDelay) SetCrossFeedback(cross float64) {
	s.cross = core.Clamp(cross, 0, MaxCrossFeedback)
}

// SetDistortionEnabled toggles the cross-feedback distortion.
func (s *StereoDelay) SetDistortionEnabled(enabled bool) { s.crossFeedback.SetEnabled(enabled) }

// SetDistortionType selects the cross-feedback transfer function.
func (s *StereoDelay) SetDistortionType(typ DistortionType) {
	s.crossFeedback.Distortion().SetType(typ)
}

// SetDistortionDrive sets the cross-feedback drive, clamped to [0, 1].
func (s *StereoDelay) SetDistortionDrive(drive float64) {
	s.crossFeedback.Distortion().SetDrive(drive)
}

// SetDistortionMix sets the distortion dry/wet mix, clamped to [0, 1].
func (s *StereoDelay) SetDistortionMix(mix float64) {
	s.crossFeedback.Distortion().SetMix(mix)
}

// SetDistortionFeedbackIntensity sets the distorted/clean feedback blend.
func (s *StereoDelay) SetDistortionFeedbackIntensity(intensity float64) {
	s.crossFeedback.SetIntensity(intensity)
}

// SetBitCrushParameters configures the bit-crush distortion.
func (s *StereoDelay) SetBitCrushParameters(bitDepth int, holdProbability float64) {
	s.crossFeedback.Distortion().SetBitCrushParameters(bitDepth, holdProbability)
}

// SampleRate returns the sample rate in Hz.
func (s *StereoDelay) SampleRate() float64 { return s.sampleRate }

// LeftDelay returns the left delay in seconds.
func (s *StereoDelay) LeftDelay() float64 { return s.leftDelay }

// RightDelay returns the right delay in seconds.
func (s *StereoDelay) RightDelay() float64 { return s.rightDelay }

// LeftCapacity returns the left line length in samples.
func (s *StereoDelay) LeftCapacity() int { return s.left.Len() }

// RightCapacity returns the right line length in samples.
func (s *StereoDelay) RightCapacity() int { return s.right.Len() }

// Tempo returns the last tempo applied with SetTempo and whether the delay
// times still follow it.
func (s *StereoDelay) Tempo() (float64, bool) { return s.bpm, s.bpm > 0 }

// Feedback returns delay feedback.
func (s *StereoDelay) Feedback() float64 { return s.feedback }

// WetMix returns the wet amount.
func (s *StereoDelay) WetMix() float64 { return s.wetMix }

// DryMix returns the dry amount, 1 - WetMix.
func (s *StereoDelay) DryMix() float64 { return s.dryMix }

// PingPong reports whether channel routing is swapped.
func (s *StereoDelay) PingPong() bool { return s.pingPong }

// StereoWidth returns mid/side enhancement.
func (s *StereoDelay) StereoWidth() float64 { return s.width }

// CrossFeedback returns inter-channel feedback.
func (s *StereoDelay) CrossFeedback() float64 { return s.cross }

// CrossFeedbackProcessor returns the feedback distortion stage.
func (s *StereoDelay) CrossFeedbackProcessor() *CrossFeedback { return s.crossFeedback }

// Info returns a short human-readable summary.
func (s *StereoDelay) Info() string {
	return fmt.Sprintf("%s: L=%.0fms, R=%.0fms, Feedback=%.0f%%, Wet=%.0f%%",
		s.Name(), s.leftDelay*1000, s.rightDelay*1000, s.feedback*100, s.wetMix*100)
}

// StereoInfo describes routing, width and the distortion stage.
func (s *StereoDelay) StereoInfo() string {
	pp := "Off"
	if s.pingPong {
		pp = "On"
	}
	return fmt.Sprintf("Left: %.0fms, Right: %.0fms, Ping-pong: %s, Width: %.0f%% | %s",
		s.leftDelay*1000, s.rightDelay*1000, pp, s.width*100, s.crossFeedback.Info())
}

func (s *StereoDelay) setLine(line *delay.Line, seconds float64, buf []float64) (float64, int) {
	seconds = clampDelay(seconds)
	n := delay.Capacity(seconds, s.sampleRate)
	if n != line.Len() {
		if len(buf) == n {
			_ = line.ResizeWith(buf)
		} else {
			_ = line.Resize(n)
		}
	}
	return seconds, n
}

func clampDelay(seconds float64) float64 {
	return core.Clamp(seconds, MinDelaySeconds, MaxDelaySeconds)
}
