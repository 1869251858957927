package effects

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-stereodelay/dsp/core"
	"github.com/cwbudde/algo-stereodelay/dsp/delay"
)

const (
	defaultSimpleDelaySeconds = 0.5
	defaultMaxDelaySeconds    = 2.0
)

// Delay is the capability shared by the mono and stereo delay effects: mono
// input, stereo output.
type Delay interface {
	Name() string
	ProcessSample(input float64) (float64, float64)
	ProcessBuffer(dst []Frame, input []float64) []Frame
	Reset()
	SetDelayTime(seconds float64)
	SetFeedback(feedback float64)
	SetWetMix(wet float64)
}

var (
	_ Delay = (*SimpleDelay)(nil)
	_ Delay = (*StereoDelay)(nil)
)

// SimpleDelay is a mono feedback delay with optional sinusoidal modulation of
// the delay time. Its line is sized once for the maximum delay, so changing
// the delay time never reallocates.
type SimpleDelay struct {
	sampleRate   float64
	maxDelay     float64
	delaySeconds float64
	delaySamples int

	feedback float64
	wetMix   float64
	dryMix   float64

	modRate  float64
	modDepth float64
	modPhase float64

	line *delay.Line
}

// NewSimpleDelay creates a mono delay holding up to maxDelaySeconds
// (at most 4 s). The initial delay is 500 ms, or maxDelaySeconds if shorter.
func NewSimpleDelay(sampleRate, maxDelaySeconds, feedback, wetMix float64) (*SimpleDelay, error) {
	if err := core.ValidateSampleRate(sampleRate); err != nil {
		return nil, fmt.Errorf("simple delay: %w", err)
	}
	if !core.IsFinite(maxDelaySeconds) || maxDelaySeconds < MinDelaySeconds || maxDelaySeconds > MaxDelaySeconds {
		return nil, fmt.Errorf("simple delay: max delay must be in [%g, %g]: %f",
			MinDelaySeconds, MaxDelaySeconds, maxDelaySeconds)
	}

	line, err := delay.New(delay.Capacity(maxDelaySeconds, sampleRate))
	if err != nil {
		return nil, fmt.Errorf("simple delay: %w", err)
	}

	d := &SimpleDelay{
		sampleRate: sampleRate,
		maxDelay:   maxDelaySeconds,
		line:       line,
	}
	d.SetFeedback(feedback)
	d.SetWetMix(wetMix)
	d.SetDelayTime(math.Min(defaultSimpleDelaySeconds, maxDelaySeconds))

	return d, nil
}

// Name identifies the effect.
func (d *SimpleDelay) Name() string { return "Simple Delay" }

// SetDelayTime sets the delay, clamped to [0.001, max delay] seconds.
func (d *SimpleDelay) SetDelayTime(seconds float64) {
	d.delaySeconds = core.Clamp(seconds, MinDelaySeconds, d.maxDelay)
	d.delaySamples = delay.Capacity(d.delaySeconds, d.sampleRate)
}

// SetFeedback sets feedback, clamped to [0, 0.9].
func (d *SimpleDelay) SetFeedback(feedback float64) {
	d.feedback = core.Clamp(feedback, 0, MaxFeedback)
}

// SetWetMix sets the wet amount, clamped to [0, 1].
func (d *SimpleDelay) SetWetMix(wet float64) {
	d.wetMix = core.Clamp(wet, 0, 1)
	d.dryMix = 1 - d.wetMix
}

// SetModulation sets the LFO rate in Hz and depth in samples. Zero for
// either disables modulation.
func (d *SimpleDelay) SetModulation(rate, depth float64) {
	d.modRate = math.Max(rate, 0)
	d.modDepth = math.Max(depth, 0)
}

// ProcessSample processes one sample and returns it on both channels.
func (d *SimpleDelay) ProcessSample(input float64) (float64, float64) {
	delayed := d.line.Read(d.currentDelay())

	out := d.dryMix*input + d.wetMix*delayed
	d.line.Write(core.FlushDenormals(input + d.feedback*delayed))

	if d.modRate > 0 {
		d.modPhase += d.modRate / d.sampleRate
		if d.modPhase >= 1 {
			d.modPhase--
		}
	}

	return out, out
}

// ProcessBuffer processes input and appends stereo output frames to dst.
func (d *SimpleDelay) ProcessBuffer(dst []Frame, input []float64) []Frame {
	for _, x := range input {
		l, r := d.ProcessSample(x)
		dst = append(dst, Frame{Left: l, Right: r})
	}
	return dst
}

// ProcessInPlace applies the delay to buf in place.
func (d *SimpleDelay) ProcessInPlace(buf []float64) {
	for i := range buf {
		buf[i], _ = d.ProcessSample(buf[i])
	}
}

// Reset clears the line and the modulation phase.
func (d *SimpleDelay) Reset() {
	d.line.Reset()
	d.modPhase = 0
}

// DelayTime returns the delay in seconds.
func (d *SimpleDelay) DelayTime() float64 { return d.delaySeconds }

// Feedback returns feedback.
func (d *SimpleDelay) Feedback() float64 { return d.feedback }

// WetMix returns the wet amount.
func (d *SimpleDelay) WetMix() float64 { return d.wetMix }

// Info returns a short human-readable summary.
func (d *SimpleDelay) Info() string {
	return fmt.Sprintf("%s: %.0fms, Feedback=%.0f%%, Wet=%.0f%%",
		d.Name(), d.delaySeconds*1000, d.feedback*100, d.wetMix*100)
}

func (d *SimpleDelay) currentDelay() int {
	if d.modRate <= 0 || d.modDepth <= 0 {
		return d.delaySamples
	}

	offset := d.modDepth * math.Sin(2*math.Pi*d.modPhase)
	modulated := core.Clamp(float64(d.delaySamples)+offset, 1, float64(d.line.Len()-1))
	return int(modulated)
}
