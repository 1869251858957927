package effects

import (
	"fmt"
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/cwbudde/algo-stereodelay/dsp/core"
)

const (
	defaultDistortionDrive    = 0.3
	defaultDistortionMix      = 0.7
	defaultBitCrushDepth      = 8
	defaultBitCrushHoldChance = 0.5

	minBitCrushDepth = 1
	maxBitCrushDepth = 16

	// Shared pre-gain applied before every transfer function.
	distortionPreGain = 5.0
	fuzzKnee          = 0.8
	tubeNegativeScale = 0.7
)

// DistortionType selects the transfer function used by Distortion.
type DistortionType int

const (
	DistortionSoftClip DistortionType = iota
	DistortionHardClip
	DistortionTube
	DistortionFuzz
	DistortionBitCrush
	DistortionWaveshaper
	DistortionNone
)

var distortionNames = [...]string{
	DistortionSoftClip:   "soft_clip",
	DistortionHardClip:   "hard_clip",
	DistortionTube:       "tube",
	DistortionFuzz:       "fuzz",
	DistortionBitCrush:   "bit_crush",
	DistortionWaveshaper: "waveshaper",
	DistortionNone:       "none",
}

// String returns the wire name of the type, e.g. "soft_clip".
func (t DistortionType) String() string {
	if t < 0 || int(t) >= len(distortionNames) {
		return distortionNames[DistortionNone]
	}
	return distortionNames[t]
}

// normalize maps values outside the declared range to DistortionNone.
func (t DistortionType) normalize() DistortionType {
	if t < 0 || int(t) >= len(distortionNames) {
		return DistortionNone
	}
	return t
}

// ParseDistortionType maps a wire name to a DistortionType. Matching ignores
// case; unrecognized names select DistortionNone.
func ParseDistortionType(name string) DistortionType {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, n := range distortionNames {
		if n == name {
			return DistortionType(i)
		}
	}
	return DistortionNone
}

// DistortionTypes lists every type in declaration order.
func DistortionTypes() []DistortionType {
	out := make([]DistortionType, len(distortionNames))
	for i := range out {
		out[i] = DistortionType(i)
	}
	return out
}

// DistortionOption mutates construction-time parameters. Values are clamped
// to their domains.
type DistortionOption func(*distortionConfig)

type distortionConfig struct {
	typ             DistortionType
	drive           float64
	mix             float64
	bitDepth        int
	holdProbability float64
	rng             *rand.Rand
}

func defaultDistortionConfig() distortionConfig {
	return distortionConfig{
		typ:             DistortionSoftClip,
		drive:           defaultDistortionDrive,
		mix:             defaultDistortionMix,
		bitDepth:        defaultBitCrushDepth,
		holdProbability: defaultBitCrushHoldChance,
	}
}

// WithDistortionType selects the transfer function. Unknown values select
// DistortionNone.
func WithDistortionType(typ DistortionType) DistortionOption {
	return func(cfg *distortionConfig) {
		cfg.typ = typ.normalize()
	}
}

// WithDistortionDrive sets input drive in [0, 1].
func WithDistortionDrive(drive float64) DistortionOption {
	return func(cfg *distortionConfig) {
		cfg.drive = core.Clamp(drive, 0, 1)
	}
}

// WithDistortionMix sets dry/wet mix in [0, 1].
func WithDistortionMix(mix float64) DistortionOption {
	return func(cfg *distortionConfig) {
		cfg.mix = core.Clamp(mix, 0, 1)
	}
}

// WithBitCrush sets the bit-crush depth in [1, 16] and the per-sample
// probability in [0, 1] that a new quantized value is taken.
func WithBitCrush(bitDepth int, holdProbability float64) DistortionOption {
	return func(cfg *distortionConfig) {
		cfg.bitDepth = clampBitDepth(bitDepth)
		cfg.holdProbability = core.Clamp(holdProbability, 0, 1)
	}
}

// WithDistortionRand injects the random source used by the bit-crush
// sample-and-hold.
func WithDistortionRand(rng *rand.Rand) DistortionOption {
	return func(cfg *distortionConfig) {
		cfg.rng = rng
	}
}

// WithDistortionSeed seeds a private random source for reproducible output.
func WithDistortionSeed(seed int64) DistortionOption {
	return func(cfg *distortionConfig) {
		cfg.rng = rand.New(rand.NewSource(seed))
	}
}

// Distortion applies one of six nonlinear transfer functions to a signal.
//
// Every type except DistortionBitCrush is stateless per sample. The
// bit-crusher quantizes to a reduced bit depth and randomly holds the
// previous output, simulating a lower effective sample rate. Its random
// source belongs to the Distortion and can be injected for deterministic
// output.
//
// Distortion is not safe for concurrent use.
type Distortion struct {
	typ   DistortionType
	drive float64
	mix   float64

	bitDepth        int
	holdProbability float64
	quantMax        float64
	lastSample      float64

	rng *rand.Rand
}

// NewDistortion creates a distortion unit. Without options it is a soft
// clipper with drive 0.3 and mix 0.7.
func NewDistortion(opts ...DistortionOption) *Distortion {
	cfg := defaultDistortionConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	if cfg.rng == nil {
		cfg.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	d := &Distortion{
		typ:             cfg.typ,
		drive:           cfg.drive,
		mix:             cfg.mix,
		bitDepth:        cfg.bitDepth,
		holdProbability: cfg.holdProbability,
		rng:             cfg.rng,
	}
	d.updateQuantMax()
	return d
}

// SetType selects the transfer function. Unknown values select
// DistortionNone.
func (d *Distortion) SetType(typ DistortionType) { d.typ = typ.normalize() }

// SetDrive sets drive, clamped to [0, 1].
func (d *Distortion) SetDrive(drive float64) { d.drive = core.Clamp(drive, 0, 1) }

// SetMix sets dry/wet mix, clamped to [0, 1].
func (d *Distortion) SetMix(mix float64) { d.mix = core.Clamp(mix, 0, 1) }

// SetBitCrushParameters sets the bit depth, clamped to [1, 16], and the
// hold probability, clamped to [0, 1].
func (d *Distortion) SetBitCrushParameters(bitDepth int, holdProbability float64) {
	d.bitDepth = clampBitDepth(bitDepth)
	d.holdProbability = core.Clamp(holdProbability, 0, 1)
	d.updateQuantMax()
}

// Reset clears the sample-and-hold state.
func (d *Distortion) Reset() {
	d.lastSample = 0
}

// ProcessSample distorts one sample. DistortionNone returns x unchanged.
func (d *Distortion) ProcessSample(x float64) float64 {
	if d.typ == DistortionNone {
		return x
	}

	driven := x * (1 + distortionPreGain*d.drive)

	var distorted float64
	switch d.typ {
	case DistortionSoftClip:
		distorted = softClip(driven, d.drive)
	case DistortionHardClip:
		distorted = hardClip(driven, d.drive)
	case DistortionTube:
		distorted = tube(driven, d.drive)
	case DistortionFuzz:
		distorted = fuzz(driven, d.drive)
	case DistortionBitCrush:
		distorted = d.bitCrush(driven)
	case DistortionWaveshaper:
		distorted = waveshaper(driven, d.drive)
	default:
		return x
	}

	return x*(1-d.mix) + distorted*d.mix
}

// ProcessInPlace distorts buf in place.
func (d *Distortion) ProcessInPlace(buf []float64) {
	for i := range buf {
		buf[i] = d.ProcessSample(buf[i])
	}
}

// Type returns the selected transfer function.
func (d *Distortion) Type() DistortionType { return d.typ }

// Drive returns drive in [0, 1].
func (d *Distortion) Drive() float64 { return d.drive }

// Mix returns dry/wet mix in [0, 1].
func (d *Distortion) Mix() float64 { return d.mix }

// BitDepth returns the bit-crush depth.
func (d *Distortion) BitDepth() int { return d.bitDepth }

// HoldProbability returns the bit-crush sample-take probability.
func (d *Distortion) HoldProbability() float64 { return d.holdProbability }

// Info returns a short human-readable summary.
func (d *Distortion) Info() string {
	return fmt.Sprintf("Distortion: %s, Drive: %.0f%%, Mix: %.0f%%", d.typ, d.drive*100, d.mix*100)
}

func (d *Distortion) updateQuantMax() {
	d.quantMax = math.Exp2(float64(d.bitDepth-1)) - 1
	// One bit leaves no positive levels; keep the sign so output stays finite.
	if d.quantMax < 1 {
		d.quantMax = 1
	}
}

func (d *Distortion) bitCrush(x float64) float64 {
	q := math.Round(x*d.quantMax) / d.quantMax
	if d.rng.Float64() < d.holdProbability {
		d.lastSample = q
		return q
	}
	return d.lastSample
}

func softClip(x, drive float64) float64 {
	return math.Tanh(x) / (1 + 10*drive)
}

func hardClip(x, drive float64) float64 {
	threshold := 1 - drive
	if math.Abs(x) > threshold {
		return math.Copysign(threshold, x)
	}
	return x
}

// tube is an asymmetric soft clipper; the negative half is driven harder.
func tube(x, drive float64) float64 {
	f := 1 + 5*drive
	if x > 0 {
		return math.Tanh(x) / f
	}
	return -math.Tanh(-x) / (f * tubeNegativeScale)
}

func fuzz(x, drive float64) float64 {
	y := x * (1 + 20*drive)
	a := math.Abs(y)
	if a > fuzzKnee {
		return math.Copysign(fuzzKnee+0.2*math.Tanh((a-fuzzKnee)*5), y)
	}
	return y
}

func waveshaper(x, drive float64) float64 {
	y := x * (1 + 3*drive)
	return y - y*y*y/3
}

func clampBitDepth(bits int) int {
	if bits < minBitCrushDepth {
		return minBitCrushDepth
	}
	if bits > maxBitCrushDepth {
		return maxBitCrushDepth
	}
	return bits
}
