package echo

import "math"

// Levels summarizes the amplitude of a rendered response.
type Levels struct {
	Peak    float64 // max |x|
	PeakPos int
	PeakDB  float64
	RMS     float64
	RMSDB   float64
	// CrestDB is the peak to RMS ratio in dB. Echo trains are sparse, so it
	// grows with response length.
	CrestDB float64
	DC      float64
}

// Levels returns peak, RMS, crest factor and DC offset of ir.
func (a *Analyzer) Levels(ir []float64) (Levels, error) {
	if len(ir) == 0 {
		return Levels{}, ErrEmptyIR
	}

	var (
		l        Levels
		sum, c   float64
		sumSq    float64
		peakAbs  float64
		position int
	)
	for i, x := range ir {
		// Kahan summation for the mean.
		y := x - c
		t := sum + y
		c = (t - sum) - y
		sum = t

		sumSq += x * x
		if ax := math.Abs(x); ax > peakAbs {
			peakAbs, position = ax, i
		}
	}

	n := float64(len(ir))
	l.Peak = peakAbs
	l.PeakPos = position
	l.RMS = math.Sqrt(sumSq / n)
	l.DC = sum / n
	l.PeakDB = amplitudeToDB(l.Peak)
	l.RMSDB = amplitudeToDB(l.RMS)
	if l.RMS > 0 {
		l.CrestDB = l.PeakDB - l.RMSDB
	}

	return l, nil
}
