package transcriber

import (
	"fmt"

	"github.com/cwbudde/algo-transcribe/analysis"
	"github.com/cwbudde/algo-transcribe/piano"
	"github.com/cwbudde/algo-transcribe/song"
	"github.com/cwbudde/algo-transcribe/wavelet"
)

// Scorer renders songs with a note library and scores their transforms
// against a fixed target transform. It is safe for concurrent use as long
// as every goroutine passes its own render buffer.
type Scorer struct {
	lib    *piano.Library
	full   *wavelet.Transformer
	single *wavelet.Transformer
	target *wavelet.Grid
	scale  float64
	length int
}

// NewScorer transforms target once and derives the fitness scale for
// noteCount notes. target must be sampled at the library's rate.
func NewScorer(lib *piano.Library, p wavelet.Params, target []int, noteCount int) (*Scorer, error) {
	if lib == nil {
		return nil, fmt.Errorf("nil note library")
	}
	if len(target) == 0 {
		return nil, fmt.Errorf("empty target signal")
	}
	tr, err := wavelet.NewTransformer(lib.SampleRate, p)
	if err != nil {
		return nil, err
	}
	tg, err := tr.Transform(target)
	if err != nil {
		return nil, fmt.Errorf("transform target: %w", err)
	}
	c, err := analysis.ScaleConstant(tg.Mag, noteCount)
	if err != nil {
		return nil, err
	}
	return &Scorer{
		lib:    lib,
		full:   tr,
		single: tr.WithWorkers(1),
		target: tg,
		scale:  c,
		length: len(target),
	}, nil
}

// Target returns the target transform. It must not be modified.
func (s *Scorer) Target() *wavelet.Grid { return s.target }

// Scale returns the fitness scale constant c.
func (s *Scorer) Scale() float64 { return s.scale }

// SignalLength returns the target length in samples.
func (s *Scorer) SignalLength() int { return s.length }

// Library returns the note library.
func (s *Scorer) Library() *piano.Library { return s.lib }

// NewBuffer returns a render buffer sized for the target.
func (s *Scorer) NewBuffer() []int { return make([]int, s.length) }

// Render returns the rendered signal of sg.
func (s *Scorer) Render(sg *song.Song) ([]int, error) {
	return s.lib.Render(sg, s.length)
}

// Grid renders sg and transforms it using all row workers.
func (s *Scorer) Grid(sg *song.Song) (*wavelet.Grid, error) {
	buf, err := s.Render(sg)
	if err != nil {
		return nil, err
	}
	return s.full.Transform(buf)
}

// Error renders sg into buf and returns c*SSE against the target, the
// negated log of its fitness. buf must have SignalLength samples.
func (s *Scorer) Error(buf []int, sg *song.Song) (float64, error) {
	if len(buf) != s.length {
		return 0, fmt.Errorf("render buffer has %d samples, want %d", len(buf), s.length)
	}
	if err := s.lib.RenderInto(buf, sg); err != nil {
		return 0, err
	}
	g, err := s.single.Transform(buf)
	if err != nil {
		return 0, err
	}
	if !g.SameShape(s.target) {
		return 0, fmt.Errorf("%w: grid %dx%d, target %dx%d",
			analysis.ErrShapeMismatch, g.Height, g.Width, s.target.Height, s.target.Width)
	}
	sse, err := analysis.SumSquaredError(g.Mag, s.target.Mag)
	if err != nil {
		return 0, err
	}
	return s.scale * sse, nil
}

// Fitness renders sg into buf and returns exp(-c*SSE).
func (s *Scorer) Fitness(buf []int, sg *song.Song) (float64, error) {
	e, err := s.Error(buf, sg)
	if err != nil {
		return 0, err
	}
	return analysis.FitnessFromError(e, 1), nil
}
