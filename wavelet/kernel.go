package wavelet

import (
	"math"

	dspcore "github.com/cwbudde/algo-dsp/dsp/core"
)

// kernel is the sampled complex wavelet of one row.
type kernel struct {
	period float64 // T, in samples
	width  float64 // s = T*beta
	half   int     // undersampling distance floor(s)/2
	re, im []float64
}

// length returns N = floor(s)*8+1.
func (k *kernel) length() int { return len(k.re) }

// mid returns the center tap (N-1)/2, equal to N>>1 for odd N.
func (k *kernel) mid() int { return (len(k.re) - 1) / 2 }

// rowPeriod returns the period in samples of row y, where row 0 is the
// highest frequency and row height-1 is BaseFrequency.
func rowPeriod(sampleRate float64, y, height int) float64 {
	e := float64(height-1-y) / float64(height) * SemitoneRange / 12
	return sampleRate / (BaseFrequency * math.Pow(2, e))
}

func newKernel(sampleRate float64, y, height int, beta float64) *kernel {
	T := rowPeriod(sampleRate, y, height)
	s := T * beta
	fs := int(s)
	n := fs*8 + 1
	mid := (n - 1) / 2

	k := &kernel{
		period: T,
		width:  s,
		half:   fs >> 1,
		re:     make([]float64, n),
		im:     make([]float64, n),
	}
	amp := 1 / s
	w := 2 * math.Pi / T
	for i := 0; i < n; i++ {
		d := float64(i - mid)
		env := amp * math.Exp(-d*d/(s*s))
		k.re[i] = dspcore.FlushDenormals(env * math.Cos(w*d))
		k.im[i] = dspcore.FlushDenormals(env * math.Sin(w*d))
	}
	return k
}

// reversed returns the taps in reverse order, for use as a convolution
// impulse response that performs correlation.
func reversed(x []float64) []float64 {
	out := make([]float64, len(x))
	for i, v := range x {
		out[len(x)-1-i] = v
	}
	return out
}
