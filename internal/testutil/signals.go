package testutil

import (
	"math"
	"math/rand"
)

// DeterministicSine generates a deterministic sine wave.
func DeterministicSine(freqHz, sampleRate, amplitude float64, length int) []float64 {
	out := make([]float64, length)
	step := 2 * math.Pi * freqHz / sampleRate
	for i := range out {
		out[i] = amplitude * math.Sin(step*float64(i))
	}
	return out
}

// DeterministicNoise generates white noise with a fixed seed for reproducibility.
func DeterministicNoise(seed int64, amplitude float64, length int) []float64 {
	out := make([]float64, length)
	rng := rand.New(rand.NewSource(seed))
	for i := range out {
		out[i] = (rng.Float64()*2 - 1) * amplitude
	}
	return out
}

// Impulse generates a unit impulse at the given position.
func Impulse(length, pos int) []float64 {
	out := make([]float64, length)
	if pos >= 0 && pos < length {
		out[pos] = 1
	}
	return out
}

// EchoTrain is the impulse response of an ideal feedback delay: a unit echo
// at first, then one echo every spacing samples, each gain times the
// previous one. Echoes past length are dropped.
func EchoTrain(length, first, spacing int, gain float64) []float64 {
	out := make([]float64, length)
	if first < 0 || spacing <= 0 {
		return out
	}
	amp := 1.0
	for pos := first; pos < length; pos += spacing {
		out[pos] = amp
		amp *= gain
		if amp == 0 {
			break
		}
	}
	return out
}
