package piano

import (
	"math"

	"github.com/cwbudde/algo-approx"
)

// keyToFreq converts a key index (0 = A0) to its equal-tempered frequency.
func keyToFreq(key int) float32 {
	const a0Freq = 27.5
	return a0Freq * pow2Approx(float32(key)/12.0)
}

func pow2Approx(x float32) float32 {
	const ln2 = 0.69314718055994530942
	return approx.FastExp(x * ln2)
}

func isFinite(x float32) bool {
	return !math.IsNaN(float64(x)) && !math.IsInf(float64(x), 0)
}
