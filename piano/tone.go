package piano

import (
	"math"

	"github.com/cwbudde/algo-dsp/dsp/filter/biquad"
	"github.com/cwbudde/algo-dsp/dsp/filter/design"
)

// soften low-passes buf in place at cutoff Hz with a Butterworth-Q biquad.
// Cutoffs at or above 0.45 of the sample rate leave buf untouched.
func soften(buf []float64, cutoff float64, sampleRate int) {
	if cutoff <= 0 || cutoff >= 0.45*float64(sampleRate) {
		return
	}
	c := design.Lowpass(cutoff, math.Sqrt2/2, float64(sampleRate))
	biquad.NewSection(c).ProcessBlock(buf)
}
