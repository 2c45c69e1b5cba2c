package piano

import (
	"fmt"
	"math"
	"runtime"
	"sync"

	"github.com/cwbudde/algo-approx"
)

// SynthOptions shapes the synthetic note library.
type SynthOptions struct {
	SampleRate int
	Keys       int
	// Partials is the maximum number of harmonics per note.
	Partials int
	// Peak is the peak amplitude as a fraction of 16-bit full scale.
	Peak float64
	// Decay is the fundamental's decay time constant in seconds at A0.
	Decay float64
	// Brightness sets the lowpass cutoff as a multiple of the fundamental.
	// Zero disables the filter.
	Brightness float64
}

// DefaultSynthOptions returns a bright, slowly decaying 88-key set.
func DefaultSynthOptions(sampleRate int) SynthOptions {
	return SynthOptions{
		SampleRate: sampleRate,
		Keys:       88,
		Partials:   8,
		Peak:       0.25,
		Decay:      4,
		Brightness: 6,
	}
}

// Synthesize builds a library of additive piano-like tones laid out like
// real recordings: RecordingSeconds long, silent until OnsetSeconds, then a
// 5 ms attack into exponentially decaying harmonics. Higher partials and
// higher keys decay faster. Each note is low-passed by Brightness and then
// scaled so its peak sits at Peak.
func Synthesize(opts SynthOptions) (*Library, error) {
	if opts.SampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate %d", opts.SampleRate)
	}
	if opts.Keys <= 0 || opts.Partials <= 0 {
		return nil, fmt.Errorf("keys and partials must be >= 1")
	}
	if !(opts.Peak > 0 && opts.Peak <= 1) || !(opts.Decay > 0) {
		return nil, fmt.Errorf("peak must be in (0,1] and decay > 0")
	}
	if !(opts.Brightness >= 0) {
		return nil, fmt.Errorf("invalid brightness %v", opts.Brightness)
	}

	notes := make([][]int, opts.Keys)
	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < runtime.GOMAXPROCS(0); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for k := range jobs {
				notes[k] = synthNote(k, opts)
			}
		}()
	}
	for k := range notes {
		jobs <- k
	}
	close(jobs)
	wg.Wait()
	return NewLibrary(opts.SampleRate, 16, notes)
}

func synthNote(key int, opts SynthOptions) []int {
	sr := opts.SampleRate
	out := make([]int, sr*RecordingSeconds)
	f0 := float64(keyToFreq(key))
	nyquist := float64(sr) / 2

	type partial struct {
		w, amp float64
		rate   float32 // decay per second
	}
	var parts []partial
	var norm float64
	for h := 1; h <= opts.Partials; h++ {
		f := f0 * float64(h)
		if f >= nyquist {
			break
		}
		tau := opts.Decay / (1 + f/500)
		amp := 1 / float64(h)
		parts = append(parts, partial{w: 2 * math.Pi * f / float64(sr), amp: amp, rate: float32(1 / tau)})
		norm += amp
	}
	if len(parts) == 0 {
		return out
	}

	attack := sr / 200
	onset := sr * OnsetSeconds
	buf := make([]float64, len(out)-onset)
	for n := range buf {
		t := float32(n) / float32(sr)
		var v float64
		for _, p := range parts {
			env := approx.FastExp(-t * p.rate)
			if !isFinite(env) {
				continue
			}
			v += p.amp * float64(env) * math.Sin(p.w*float64(n))
		}
		if n < attack {
			v *= float64(n) / float64(attack)
		}
		buf[n] = v / norm
	}
	if opts.Brightness > 0 {
		soften(buf, f0*opts.Brightness, sr)
	}

	var peak float64
	for _, v := range buf {
		peak = math.Max(peak, math.Abs(v))
	}
	if peak == 0 {
		return out
	}
	scale := opts.Peak * 32767 / peak
	for n, v := range buf {
		out[onset+n] = int(math.Round(v * scale))
	}
	return out
}
