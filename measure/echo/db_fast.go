//go:build fastmath

package echo

import (
	"math"

	"github.com/meko-christian/algo-approx"
)

const minDB = -200.0

// 20 / ln(10)
const dbPerNeper = 8.685889638065036553

// amplitudeToDB converts a linear magnitude to dB using a fast natural log.
func amplitudeToDB(x float64) float64 {
	if x <= 0 {
		return minDB
	}
	return math.Max(dbPerNeper*approx.FastLog(x), minDB)
}
