package wavelet

import (
	"fmt"
	"math"
	"runtime"
	"sync"

	dspconv "github.com/cwbudde/algo-dsp/dsp/conv"
	vecmath "github.com/cwbudde/algo-vecmath"
)

// Transformer holds the precomputed row kernels for one sample rate and
// parameter set. It is safe for concurrent use.
type Transformer struct {
	sampleRate int
	params     Params
	kernels    []*kernel
}

// NewTransformer validates p and builds every row kernel.
func NewTransformer(sampleRate int, p Params) (*Transformer, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("%w: sample rate must be > 0, got %d", ErrInvalidParams, sampleRate)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	t := &Transformer{
		sampleRate: sampleRate,
		params:     p,
		kernels:    make([]*kernel, p.Height),
	}
	for y := 0; y < p.Height; y++ {
		t.kernels[y] = newKernel(float64(sampleRate), y, p.Height, p.Beta)
	}
	return t, nil
}

// Params returns the configured parameters.
func (t *Transformer) Params() Params { return t.params }

// SampleRate returns the sample rate the kernels were built for.
func (t *Transformer) SampleRate() int { return t.sampleRate }

// WithWorkers returns a transformer sharing the same kernels with a
// different row parallelism.
func (t *Transformer) WithWorkers(n int) *Transformer {
	c := *t
	c.params.Workers = n
	return &c
}

// Frequency returns the analysed frequency of row y in Hz.
func (t *Transformer) Frequency(y int) float64 {
	return float64(t.sampleRate) / t.kernels[y].period
}

// KernelLength returns the tap count of row y.
func (t *Transformer) KernelLength(y int) int {
	return t.kernels[y].length()
}

// Columns returns the sample index evaluated by every column for a signal
// of n samples, after clamping the window to the signal.
func (t *Transformer) Columns(n int) []int {
	start, end := t.params.ClampWindow(float64(n) / float64(t.sampleRate))
	return columnIndices(t.params.Width, start, end, float64(t.sampleRate))
}

func columnIndices(width int, start, end, sampleRate float64) []int {
	idx := make([]int, width)
	for x := 0; x < width; x++ {
		idx[x] = int(math.Round((float64(x)*(end-start)/float64(width) + start) * sampleRate))
	}
	return idx
}

// Transform analyses an integer signal.
func (t *Transformer) Transform(signal []int) (*Grid, error) {
	sig := make([]float64, len(signal))
	for i, v := range signal {
		sig[i] = float64(v)
	}
	return t.TransformFloat(sig)
}

// TransformFloat analyses a signal already converted to float64. The grid
// is normalized so its largest magnitude is exactly 1; a silent signal
// yields an all-zero grid.
func (t *Transformer) TransformFloat(signal []float64) (*Grid, error) {
	p := t.params
	start, end := p.ClampWindow(float64(len(signal)) / float64(t.sampleRate))
	g := &Grid{
		Height:    p.Height,
		Width:     p.Width,
		StartTime: start,
		EndTime:   end,
		Mag:       make([]float64, p.Height*p.Width),
	}
	if p.Phase {
		g.Phase = make([]float64, p.Height*p.Width)
	}
	cols := columnIndices(p.Width, start, end, float64(t.sampleRate))

	workers := p.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > p.Height {
		workers = p.Height
	}

	rows := make(chan int)
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			re := make([]float64, p.Width)
			im := make([]float64, p.Width)
			for y := range rows {
				if errs[workerID] != nil {
					continue
				}
				if err := t.row(g, y, signal, cols, re, im); err != nil {
					errs[workerID] = fmt.Errorf("row %d: %w", y, err)
				}
			}
		}(w)
	}
	for y := 0; y < p.Height; y++ {
		rows <- y
	}
	close(rows)
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	g.normalize()
	return g, nil
}

// row fills grid row y. re and im are scratch buffers of length Width.
func (t *Transformer) row(g *Grid, y int, signal []float64, cols []int, re, im []float64) error {
	k := t.kernels[y]
	us := t.params.Undersample

	var sample func(i int) (float64, float64)
	switch t.params.Method {
	case MethodOverlapAdd:
		fullRe, fullIm, err := correlateFull(k, signal)
		if err != nil {
			return err
		}
		mid := k.mid()
		sample = func(i int) (float64, float64) {
			n := i + mid
			if n < 0 || n >= len(fullRe) || n >= len(fullIm) {
				return 0, 0
			}
			return fullRe[n], fullIm[n]
		}
	default:
		sample = func(i int) (float64, float64) {
			return correlateAt(k, signal, i)
		}
	}

	// Undersampled columns repeat the components of column x-1, so their
	// magnitude and phase repeat too.
	last, haveLast := 0, false
	for x, i := range cols {
		if us && haveLast && absInt(i-last) <= k.half {
			re[x], im[x] = re[x-1], im[x-1]
			continue
		}
		re[x], im[x] = sample(i)
		last, haveLast = i, true
	}

	vecmath.Magnitude(g.Row(y), re, im)
	if g.Phase != nil {
		ph := g.Phase[y*g.Width : (y+1)*g.Width]
		for x := range cols {
			ph[x] = math.Atan2(im[x], re[x])
		}
	}
	return nil
}

// correlateAt evaluates the kernel centred on sample i, skipping taps that
// fall outside the signal.
func correlateAt(k *kernel, signal []float64, i int) (float64, float64) {
	n := k.length()
	base := i - (n >> 1)
	lo, hi := 0, n
	if base < 0 {
		lo = -base
	}
	if base+hi > len(signal) {
		hi = len(signal) - base
	}
	if lo >= hi {
		return 0, 0
	}
	seg := signal[base+lo : base+hi]
	return vecmath.DotProduct(k.re[lo:hi], seg), vecmath.DotProduct(k.im[lo:hi], seg)
}

// correlateFull returns the full correlation of signal with both kernel
// components. The value centred on sample i is at index i + mid.
func correlateFull(k *kernel, signal []float64) ([]float64, []float64, error) {
	if len(signal) == 0 {
		return nil, nil, nil
	}
	part := olaPartSize(k.length())
	olaRe, err := dspconv.NewOverlapAdd(reversed(k.re), part)
	if err != nil {
		return nil, nil, err
	}
	olaIm, err := dspconv.NewOverlapAdd(reversed(k.im), part)
	if err != nil {
		return nil, nil, err
	}
	fullRe, err := olaRe.Process(signal)
	if err != nil {
		return nil, nil, err
	}
	fullIm, err := olaIm.Process(signal)
	if err != nil {
		return nil, nil, err
	}
	return fullRe, fullIm, nil
}

func olaPartSize(n int) int {
	part := 128
	for part < n && part < 1<<16 {
		part <<= 1
	}
	return part
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
