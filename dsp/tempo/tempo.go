// Package tempo converts musical tempo and note divisions into delay times.
package tempo

import (
	"strings"

	"github.com/cwbudde/algo-stereodelay/dsp/core"
)

// MinDelaySeconds is returned for non-positive tempos.
const MinDelaySeconds = 0.001

// Tempo range accepted by the control layer.
const (
	MinBPM = 20.0
	MaxBPM = 300.0
)

// Divisions applied to the two channels when a tempo is set.
const (
	LeftDivision  = 0.25
	RightDivision = 0.5
)

// Division names a fraction of a beat-length delay.
type Division struct {
	Name     string
	Fraction float64
}

// Timing is a division resolved to seconds at a given tempo.
type Timing struct {
	Division
	Seconds float64
}

var divisions = [...]Division{
	{"1/4 note", 0.25},
	{"1/2 note", 0.5},
	{"1/8 note", 0.125},
	{"1/16 note", 0.0625},
	{"1/3 note", 1.0 / 3.0},
	{"1/6 note", 1.0 / 6.0},
}

// BPMToDelaySeconds returns (60/bpm)*noteDivision. Tempos <= 0 map to
// MinDelaySeconds.
func BPMToDelaySeconds(bpm, noteDivision float64) float64 {
	if bpm <= 0 {
		return MinDelaySeconds
	}
	return (60 / bpm) * noteDivision
}

// StereoDelays returns the left (1/4 note) and right (1/2 note) delay times
// for bpm.
func StereoDelays(bpm float64) (left, right float64) {
	return BPMToDelaySeconds(bpm, LeftDivision), BPMToDelaySeconds(bpm, RightDivision)
}

// NoteDivisions returns the fixed division table in display order.
func NoteDivisions() []Division {
	out := make([]Division, len(divisions))
	copy(out, divisions[:])
	return out
}

// Lookup finds a division by name, ignoring case and surrounding space.
func Lookup(name string) (Division, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, d := range divisions {
		if d.Name == name {
			return d, true
		}
	}
	return Division{}, false
}

// Match returns the first division whose delay at bpm lies within eps
// seconds of seconds.
func Match(bpm, seconds, eps float64) (Division, bool) {
	for _, d := range divisions {
		if core.NearlyEqual(BPMToDelaySeconds(bpm, d.Fraction), seconds, eps) {
			return d, true
		}
	}
	return Division{}, false
}

// DelayTimes resolves every table entry at bpm.
func DelayTimes(bpm float64) []Timing {
	out := make([]Timing, len(divisions))
	for i, d := range divisions {
		out[i] = Timing{Division: d, Seconds: BPMToDelaySeconds(bpm, d.Fraction)}
	}
	return out
}
