//go:build !fastmath

package echo

import (
	"math"

	"github.com/cwbudde/algo-stereodelay/dsp/core"
)

const minDB = -200.0

// amplitudeToDB converts a linear magnitude to dB, floored at minDB.
func amplitudeToDB(x float64) float64 {
	if x <= 0 {
		return minDB
	}
	return math.Max(core.LinearToDB(x), minDB)
}
