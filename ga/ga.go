// Package ga evolves populations of songs by roulette selection, note-list
// crossover and per-note bit mutation.
package ga

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/cwbudde/algo-transcribe/song"
)

var (
	// ErrZeroFitness is returned when selection finds no positive fitness mass.
	ErrZeroFitness = errors.New("population has no positive fitness")
	// ErrPopulationSize is returned for population sizes that are not a
	// positive multiple of 4.
	ErrPopulationSize = errors.New("population size must be a positive multiple of 4")
)

// Source is the random stream consumed by the engine. *rand.Rand from
// math/rand/v2 satisfies it.
type Source interface {
	IntN(n int) int
	Float64() float64
}

// NewSource returns a PCG-backed source. Seed 0 picks a random seed.
func NewSource(seed uint64) *rand.Rand {
	if seed == 0 {
		return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return rand.New(rand.NewPCG(seed, seed))
}

// Config holds the evolution constants.
type Config struct {
	PopSize int
	// NoteCount is the number of notes in every generation-0 song.
	NoteCount int
	// SignalLength is the target length in samples; note ends are kept
	// within it.
	SignalLength int
	// SampleRate bounds random note durations to under one second.
	SampleRate int
	KeyCount   int
}

// DefaultConfig returns the stock settings for a signal of length samples.
func DefaultConfig(length, sampleRate int) Config {
	return Config{
		PopSize:      100,
		NoteCount:    15,
		SignalLength: length,
		SampleRate:   sampleRate,
		KeyCount:     song.KeyCount,
	}
}

func (c Config) validate() error {
	if c.PopSize <= 0 || c.PopSize%4 != 0 {
		return fmt.Errorf("%w, got %d", ErrPopulationSize, c.PopSize)
	}
	if c.NoteCount < 0 {
		return fmt.Errorf("note count must be >= 0, got %d", c.NoteCount)
	}
	if c.SignalLength <= 0 {
		return fmt.Errorf("signal length must be > 0, got %d", c.SignalLength)
	}
	if c.SampleRate <= 0 {
		return fmt.Errorf("sample rate must be > 0, got %d", c.SampleRate)
	}
	if c.KeyCount <= 24 {
		return fmt.Errorf("key count must be > 24, got %d", c.KeyCount)
	}
	return nil
}

// Engine applies the genetic operators. It is not safe for concurrent use;
// the random stream is consumed in a fixed order so a seeded source
// reproduces a run.
type Engine struct {
	cfg Config
	rng Source
}

// New validates cfg and returns an engine drawing from rng.
func New(cfg Config, rng Source) (*Engine, error) {
	if cfg.KeyCount == 0 {
		cfg.KeyCount = song.KeyCount
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if rng == nil {
		return nil, fmt.Errorf("nil random source")
	}
	return &Engine{cfg: cfg, rng: rng}, nil
}

// Config returns the engine configuration.
func (e *Engine) Config() Config { return e.cfg }

// Initialize returns PopSize songs of NoteCount random notes each, with
// zero fitness and no parents.
func (e *Engine) Initialize() song.Population {
	pop := make(song.Population, e.cfg.PopSize)
	for i := range pop {
		s := song.New()
		s.Notes = make([]song.Note, 0, e.cfg.NoteCount)
		for j := 0; j < e.cfg.NoteCount; j++ {
			s.Add(e.RandomNote())
		}
		pop[i] = s
	}
	return pop
}

// RandomNote draws pitch, start, duration and volume in that order and
// repairs the note into the signal range.
func (e *Engine) RandomNote() song.Note {
	n := song.Note{
		Pitch:    e.rng.IntN(e.cfg.KeyCount),
		Start:    e.rng.IntN(e.cfg.SignalLength),
		Duration: e.rng.IntN(e.cfg.SampleRate),
		Volume:   e.rng.IntN(256),
	}
	e.repairRange(&n)
	return n
}

// Select draws one index by roulette wheel: a uniform value in
// [0, total fitness) is reduced by successive fitness values until it is no
// longer positive.
func (e *Engine) Select(pop song.Population) (int, error) {
	total := 0.0
	for i := range pop {
		total += pop[i].Fitness
	}
	if !(total > 0) || math.IsInf(total, 0) {
		return 0, fmt.Errorf("%w: total %g over %d songs", ErrZeroFitness, total, len(pop))
	}
	r := e.rng.Float64() * total
	sel := 0
	r -= pop[sel].Fitness
	for r > 0 && sel < len(pop)-1 {
		sel++
		r -= pop[sel].Fitness
	}
	return sel, nil
}

// Splice crosses two parents at a point p in [0, min(len)]: the first child
// takes a's notes before p and b's from p on, the second the reverse.
func (e *Engine) Splice(a, b *song.Song) (song.Song, song.Song) {
	shorter := len(a.Notes)
	if len(b.Notes) < shorter {
		shorter = len(b.Notes)
	}
	p := e.rng.IntN(shorter + 1)

	c1, c2 := song.New(), song.New()
	c1.Notes = make([]song.Note, 0, len(b.Notes))
	c2.Notes = make([]song.Note, 0, len(a.Notes))
	c1.Notes = append(c1.Notes, a.Notes[:p]...)
	c1.Notes = append(c1.Notes, b.Notes[p:]...)
	c2.Notes = append(c2.Notes, b.Notes[:p]...)
	c2.Notes = append(c2.Notes, a.Notes[p:]...)
	return c1, c2
}

// Next produces the following generation. PopSize/2 parents are selected,
// each consecutive pair is spliced twice into four children, and every
// child is mutated. The input population is not modified.
func (e *Engine) Next(pop song.Population) (song.Population, error) {
	if len(pop) != e.cfg.PopSize {
		return nil, fmt.Errorf("population has %d songs, want %d", len(pop), e.cfg.PopSize)
	}
	parents := make([]int, e.cfg.PopSize/2)
	for i := range parents {
		sel, err := e.Select(pop)
		if err != nil {
			return nil, err
		}
		parents[i] = sel
	}

	next := make(song.Population, 0, e.cfg.PopSize)
	for i := 0; i < len(parents); i += 2 {
		p1, p2 := parents[i], parents[i+1]
		s1, s2 := e.Splice(&pop[p1], &pop[p2])
		s3, s4 := e.Splice(&pop[p1], &pop[p2])
		for _, child := range []song.Song{s1, s2, s3, s4} {
			child.Parent1 = p1
			child.Parent2 = p2
			e.MutateSong(&child)
			next = append(next, child)
		}
	}
	return next, nil
}

// MutateSong mutates every note, then may append one random note
// (probability 1/16) and may remove one note (probability 1/16).
func (e *Engine) MutateSong(s *song.Song) {
	for k := range s.Notes {
		e.MutateNote(&s.Notes[k])
	}
	if e.rng.IntN(16) == 0 {
		s.Add(e.RandomNote())
	}
	if e.rng.IntN(16) == 0 && len(s.Notes) != 0 {
		s.Remove(e.rng.IntN(len(s.Notes)))
	}
}

// MutateNote applies harmonic pitch jumps, a possible random re-pitch,
// bit flips on start and duration, range repair and volume bit flips.
func (e *Engine) MutateNote(n *song.Note) {
	keys := e.cfg.KeyCount
	for _, h := range harmonicJumps {
		if e.rng.IntN(h.odds) == 0 && n.Pitch < keys-h.keys {
			n.Pitch += h.keys
		}
		if e.rng.IntN(h.odds) == 0 && n.Pitch >= h.keys {
			n.Pitch -= h.keys
		}
	}
	if e.rng.IntN(16) == 0 {
		n.Pitch = e.rng.IntN(keys)
	}

	start, dur := uint32(n.Start), uint32(n.Duration)
	for i := 0; i < 32; i++ {
		mask := uint32(1) << i
		if e.rng.IntN(4<<(i/3)) == 0 {
			start ^= mask
		}
		if e.rng.IntN(4<<(i/2)) == 0 {
			dur ^= mask
		}
	}
	n.Start, n.Duration = int(start), int(dur)
	e.repairRange(n)

	vol := uint8(n.Volume)
	for i := 0; i < 8; i++ {
		if e.rng.IntN(4<<i) == 0 {
			vol ^= uint8(1) << i
		}
	}
	n.Volume = int(vol)
}

// harmonicJumps are the octave, octave-plus-fifth and double-octave shifts
// with their 1-in-odds chances.
var harmonicJumps = []struct {
	keys int
	odds int
}{
	{12, 8},
	{19, 16},
	{24, 32},
}

// repairRange keeps the note inside [0, SignalLength]: the duration is
// clamped first, then a note running past the end is moved back.
func (e *Engine) repairRange(n *song.Note) {
	l := e.cfg.SignalLength
	if n.Duration < 0 {
		n.Duration = 0
	}
	if n.Duration > l {
		n.Duration = l
	}
	if n.Start < 0 {
		n.Start = 0
	}
	if n.Start+n.Duration > l {
		n.Start = l - n.Duration
	}
}
