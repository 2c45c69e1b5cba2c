package transcriber

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/cwbudde/mayfly"

	"github.com/cwbudde/algo-transcribe/internal/fitcommon"
	"github.com/cwbudde/algo-transcribe/song"
)

// RefineConfig controls the mayfly polish of a finished song.
type RefineConfig struct {
	// MaxEvals is the total objective budget; 0 disables refinement.
	MaxEvals int
	// Variant is one of ma, desma, olce, eobbma, gsasma, mpma, aoblmoa.
	Variant string
	Pop     int
	// RoundEvals is the budget of one mayfly run before it is restarted.
	RoundEvals int
	Seed       int64
	// Workers run independent mayfly rounds concurrently; results then
	// depend on scheduling. <= 0 means 1.
	Workers int
}

// DefaultRefineConfig returns a single-worker setup for maxEvals
// evaluations.
func DefaultRefineConfig(maxEvals int, seed int64) RefineConfig {
	return RefineConfig{
		MaxEvals:   maxEvals,
		Variant:    "desma",
		Pop:        10,
		RoundEvals: 400,
		Seed:       seed,
		Workers:    1,
	}
}

// RefineResult reports what the polish achieved.
type RefineResult struct {
	Song     song.Song
	Improved bool
	Evals    int
}

type refineState struct {
	mu    sync.Mutex
	best  song.Song
	score float64
}

func (st *refineState) bestScore() float64 {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.score
}

// Refine tunes the start and volume of every note of s with mayfly
// optimization, keeping pitches and durations. Each note contributes two
// dimensions normalized to [0,1]: volume over 0..255 and start over
// 0..SignalLength-duration. The objective is c*SSE, minimized. The returned
// song is s unless a strictly better one was found.
func Refine(ctx context.Context, sc *Scorer, s song.Song, cfg RefineConfig) (*RefineResult, error) {
	base := s.Clone()
	buf := sc.NewBuffer()
	score, err := sc.Error(buf, &base)
	if err != nil {
		return nil, fmt.Errorf("initial evaluation failed: %w", err)
	}
	base.Fitness = math.Exp(-score)
	if cfg.MaxEvals <= 0 || base.Len() == 0 {
		return &RefineResult{Song: base, Evals: 1}, nil
	}
	if cfg.Pop < 2 {
		return nil, fmt.Errorf("mayfly population must be >= 2, got %d", cfg.Pop)
	}
	variant := strings.ToLower(cfg.Variant)
	if _, err := newMayflyConfig(variant, cfg.Pop, 2, 1); err != nil {
		return nil, err
	}

	state := &refineState{best: base.Clone(), score: score}
	var evals int64 = 1
	var rounds int64
	var improves int64

	workers := fitcommon.MaxOf(cfg.Workers, 1)
	dims := 2 * base.Len()
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			scratch := sc.NewBuffer()
			for {
				if ctx.Err() != nil || atomic.LoadInt64(&evals) >= int64(cfg.MaxEvals) {
					return
				}
				round := atomic.AddInt64(&rounds, 1)
				remaining := cfg.MaxEvals - int(atomic.LoadInt64(&evals))
				if remaining <= 0 {
					return
				}
				budget := fitcommon.MinOf(fitcommon.MaxOf(cfg.RoundEvals, 2*cfg.Pop), remaining)
				iters := fitcommon.MaxOf(1, budget/(2*cfg.Pop))

				mcfg, err := newMayflyConfig(variant, cfg.Pop, dims, iters)
				if err != nil {
					return
				}
				mcfg.Rand = rand.New(rand.NewSource(cfg.Seed + round*7919))
				mcfg.ObjectiveFunc = func(pos []float64) float64 {
					if ctx.Err() != nil {
						return state.bestScore() + 1
					}
					if _, ok := reserveEval(&evals, cfg.MaxEvals); !ok {
						return state.bestScore() + 1
					}
					cand := fromNormalized(pos, base, sc.SignalLength())
					e, err := sc.Error(scratch, &cand)
					if err != nil {
						return state.bestScore() + 0.8
					}
					state.mu.Lock()
					if e < state.score {
						state.best = cand
						state.score = e
						atomic.AddInt64(&improves, 1)
					}
					state.mu.Unlock()
					return e
				}
				if _, err := runMayfly(mcfg); err != nil {
					return
				}
			}
		}()
	}
	wg.Wait()

	state.mu.Lock()
	defer state.mu.Unlock()
	out := state.best.Clone()
	out.Fitness = math.Exp(-state.score)
	return &RefineResult{
		Song:     out,
		Improved: atomic.LoadInt64(&improves) > 0,
		Evals:    int(atomic.LoadInt64(&evals)),
	}, ctx.Err()
}

// fromNormalized maps a mayfly position onto a copy of base.
func fromNormalized(pos []float64, base song.Song, length int) song.Song {
	out := base.Clone()
	for i := range out.Notes {
		n := &out.Notes[i]
		vol := fitcommon.Clamp(pos[2*i], 0, 1)
		st := fitcommon.Clamp(pos[2*i+1], 0, 1)
		n.Volume = int(math.Round(vol * 255))
		n.Start = int(math.Round(st * float64(fitcommon.MaxOf(length-n.Duration, 0))))
	}
	return out
}

// mayflyVariants maps the refine variant names to their base configs.
var mayflyVariants = map[string]func() *mayfly.Config{
	"ma":      mayfly.NewDefaultConfig,
	"desma":   mayfly.NewDESMAConfig,
	"olce":    mayfly.NewOLCEConfig,
	"eobbma":  mayfly.NewEOBBMAConfig,
	"gsasma":  mayfly.NewGSASMAConfig,
	"mpma":    mayfly.NewMPMAConfig,
	"aoblmoa": mayfly.NewAOBLMOAConfig,
}

// newMayflyConfig returns a config over the unit cube with dims dimensions.
func newMayflyConfig(variant string, pop int, dims int, iters int) (*mayfly.Config, error) {
	base, ok := mayflyVariants[variant]
	if !ok {
		return nil, fmt.Errorf("unsupported mayfly variant %q", variant)
	}
	cfg := base()
	cfg.ProblemSize, cfg.MaxIterations = dims, iters
	cfg.LowerBound, cfg.UpperBound = 0, 1
	cfg.NPop, cfg.NPopF, cfg.NC = pop, pop, 2*pop
	cfg.NM = fitcommon.MaxOf(1, int(math.Round(0.05*float64(pop))))
	return cfg, nil
}

func runMayfly(cfg *mayfly.Config) (_ *mayfly.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("mayfly panic: %v", r)
		}
	}()
	return mayfly.Optimize(cfg)
}

func reserveEval(evals *int64, maxEvals int) (int64, bool) {
	for {
		cur := atomic.LoadInt64(evals)
		if cur >= int64(maxEvals) {
			return 0, false
		}
		if atomic.CompareAndSwapInt64(evals, cur, cur+1) {
			return cur + 1, true
		}
	}
}
