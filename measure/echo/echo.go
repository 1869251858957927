package echo

import (
	"errors"
	"fmt"
	"math"

	algofft "github.com/MeKo-Christian/algo-fft"
	"github.com/cwbudde/algo-vecmath"
)

// Errors returned by echo analysis.
var (
	ErrEmptyIR           = errors.New("echo: impulse response is empty")
	ErrInvalidSampleRate = errors.New("echo: sample rate must be positive")
	ErrInvalidLength     = errors.New("echo: render length must be positive")
	ErrInvalidFFTSize    = errors.New("echo: fft size must be a positive power of two")
	ErrTooFewTaps        = errors.New("echo: need at least two taps")
)

// DefaultThreshold is the tap detection level, -60 dB below unity.
const DefaultThreshold = 1e-3

// StereoProcessor is the render capability Render needs.
type StereoProcessor interface {
	ProcessStereo(left, right float64) (float64, float64)
	Reset()
}

// Render resets proc, feeds a unit impulse followed by n-1 zeros on both
// channels and returns the left and right responses.
func Render(proc StereoProcessor, n int) (left, right []float64, err error) {
	if n <= 0 {
		return nil, nil, fmt.Errorf("%w: %d", ErrInvalidLength, n)
	}

	proc.Reset()

	left = make([]float64, n)
	right = make([]float64, n)
	in := 1.0
	for i := range left {
		left[i], right[i] = proc.ProcessStereo(in, in)
		in = 0
	}

	return left, right, nil
}

// Tap is one detected repeat.
type Tap struct {
	Index     int     // sample index of the repeat's peak
	Time      float64 // seconds
	Amplitude float64 // signed peak value
	Level     float64 // dB relative to unity
}

// Analyzer extracts echo metrics from impulse responses.
type Analyzer struct {
	SampleRate float64
	// Threshold is the absolute level a sample must reach to count as part
	// of a tap. Zero or negative selects DefaultThreshold.
	Threshold float64
}

// NewAnalyzer creates an analyzer with DefaultThreshold.
func NewAnalyzer(sampleRate float64) *Analyzer {
	return &Analyzer{SampleRate: sampleRate, Threshold: DefaultThreshold}
}

func (a *Analyzer) threshold() float64 {
	if a.Threshold > 0 {
		return a.Threshold
	}
	return DefaultThreshold
}

// Taps returns one Tap per contiguous run of samples at or above the
// threshold, located at the run's absolute peak.
func (a *Analyzer) Taps(ir []float64) ([]Tap, error) {
	if len(ir) == 0 {
		return nil, ErrEmptyIR
	}
	if a.SampleRate <= 0 {
		return nil, ErrInvalidSampleRate
	}

	th := a.threshold()

	var (
		taps   []Tap
		inRun  bool
		peakAt int
	)
	flush := func() {
		v := ir[peakAt]
		taps = append(taps, Tap{
			Index:     peakAt,
			Time:      float64(peakAt) / a.SampleRate,
			Amplitude: v,
			Level:     amplitudeToDB(math.Abs(v)),
		})
	}

	for i, v := range ir {
		if math.Abs(v) < th {
			if inRun {
				flush()
				inRun = false
			}
			continue
		}
		if !inRun || math.Abs(v) > math.Abs(ir[peakAt]) {
			peakAt = i
		}
		inRun = true
	}
	if inRun {
		flush()
	}

	return taps, nil
}

// DecayPerRepeat returns the mean level change in dB from one tap to the
// next. A feedback of 0.5 gives about -6.02 dB.
func (a *Analyzer) DecayPerRepeat(taps []Tap) (float64, error) {
	if len(taps) < 2 {
		return 0, ErrTooFewTaps
	}
	first := taps[0].Level
	last := taps[len(taps)-1].Level
	return (last - first) / float64(len(taps)-1), nil
}

// Energy returns the sum of squared samples.
func (a *Analyzer) Energy(ir []float64) (float64, error) {
	if len(ir) == 0 {
		return 0, ErrEmptyIR
	}

	power := make([]float64, len(ir))
	vecmath.Power(power, ir, make([]float64, len(ir)))

	var sum float64
	for _, p := range power {
		sum += p
	}
	return sum, nil
}

// MagnitudeResponse returns |H(k)| for bins 0..fftSize/2 of ir, zero padded
// or truncated to fftSize.
func (a *Analyzer) MagnitudeResponse(ir []float64, fftSize int) ([]float64, error) {
	if len(ir) == 0 {
		return nil, ErrEmptyIR
	}
	if fftSize <= 0 || fftSize&(fftSize-1) != 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidFFTSize, fftSize)
	}

	in := make([]complex128, fftSize)
	for i := 0; i < fftSize && i < len(ir); i++ {
		in[i] = complex(ir[i], 0)
	}

	plan, err := algofft.NewPlan64(fftSize)
	if err != nil {
		return nil, fmt.Errorf("echo: fft plan: %w", err)
	}

	out := make([]complex128, fftSize)
	if err := plan.Forward(out, in); err != nil {
		return nil, fmt.Errorf("echo: fft: %w", err)
	}

	bins := fftSize/2 + 1
	re := make([]float64, bins)
	im := make([]float64, bins)
	for k := range bins {
		re[k] = real(out[k])
		im[k] = imag(out[k])
	}

	mag := make([]float64, bins)
	vecmath.Magnitude(mag, re, im)

	return mag, nil
}

// MagnitudeResponseDB is MagnitudeResponse in dB, floored at -200 dB.
func (a *Analyzer) MagnitudeResponseDB(ir []float64, fftSize int) ([]float64, error) {
	mag, err := a.MagnitudeResponse(ir, fftSize)
	if err != nil {
		return nil, err
	}
	for i, m := range mag {
		mag[i] = amplitudeToDB(m)
	}
	return mag, nil
}

// BinFrequency returns the centre frequency of bin k for fftSize.
func (a *Analyzer) BinFrequency(k, fftSize int) float64 {
	return float64(k) * a.SampleRate / float64(fftSize)
}
