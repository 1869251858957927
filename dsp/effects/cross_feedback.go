package effects

import "github.com/cwbudde/algo-stereodelay/dsp/core"

const defaultFeedbackIntensity = 0.5

// CrossFeedback shapes the inter-channel feedback of a stereo delay.
//
// When enabled, each channel runs through a shared Distortion and the result
// is blended with the clean signal by the feedback intensity: 0 keeps the
// clean feedback, 1 replaces it with the distorted one.
//
// Both channels share one Distortion, processed left then right. With
// DistortionBitCrush the sample-and-hold value and the random stream carry
// from one channel to the other, so a cross-feedback amount of zero does not
// fully isolate the channels for that type.
type CrossFeedback struct {
	enabled    bool
	intensity  float64
	distortion *Distortion
}

// NewCrossFeedback wraps dist. A nil dist gets a default Distortion.
func NewCrossFeedback(enabled bool, intensity float64, dist *Distortion) *CrossFeedback {
	if dist == nil {
		dist = NewDistortion()
	}
	return &CrossFeedback{
		enabled:    enabled,
		intensity:  core.Clamp(intensity, 0, 1),
		distortion: dist,
	}
}

// Process returns the shaped feedback pair. Disabled processors pass the
// input through unchanged.
func (c *CrossFeedback) Process(left, right float64) (float64, float64) {
	if !c.enabled {
		return left, right
	}

	distortedL := c.distortion.ProcessSample(left)
	distortedR := c.distortion.ProcessSample(right)

	outL := left*(1-c.intensity) + distortedL*c.intensity
	outR := right*(1-c.intensity) + distortedR*c.intensity

	return outL, outR
}

// SetEnabled toggles the distortion stage.
func (c *CrossFeedback) SetEnabled(enabled bool) { c.enabled = enabled }

// SetIntensity sets the distorted/clean blend, clamped to [0, 1].
func (c *CrossFeedback) SetIntensity(intensity float64) {
	c.intensity = core.Clamp(intensity, 0, 1)
}

// Enabled reports whether the distortion stage is active.
func (c *CrossFeedback) Enabled() bool { return c.enabled }

// Intensity returns the distorted/clean blend.
func (c *CrossFeedback) Intensity() float64 { return c.intensity }

// Distortion returns the owned distortion unit.
func (c *CrossFeedback) Distortion() *Distortion { return c.distortion }

// Reset clears the distortion state.
func (c *CrossFeedback) Reset() { c.distortion.Reset() }

// Info returns a short human-readable summary.
func (c *CrossFeedback) Info() string {
	if !c.enabled {
		return "Cross-feedback Distortion: Disabled"
	}
	return "Cross-feedback " + c.distortion.Info()
}
