// Package transcriber drives the genetic search for the song whose rendered
// transform best matches a recording.
package transcriber

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/cwbudde/algo-transcribe/analysis"
	"github.com/cwbudde/algo-transcribe/ga"
	"github.com/cwbudde/algo-transcribe/piano"
	"github.com/cwbudde/algo-transcribe/song"
	"github.com/cwbudde/algo-transcribe/wavelet"
)

// Config controls a transcription run.
type Config struct {
	Transform   wavelet.Params
	PopSize     int
	NoteCount   int
	Generations int
	// Seed 0 picks a random seed.
	Seed uint64
	// Workers bounds how many songs are evaluated at once; <= 0 uses
	// GOMAXPROCS.
	Workers int
	// OnGeneration, if set, is called after every evaluated generation from
	// the goroutine running Run.
	OnGeneration func(GenerationReport)
}

// GenerationReport describes one evaluated generation.
type GenerationReport struct {
	Generation int
	Stats      analysis.Stats
	// Best is a copy of the generation's fittest song.
	Best song.Song
}

// Result is the outcome of a run.
type Result struct {
	// Best is the fittest song seen in any generation.
	Best           song.Song
	BestGeneration int
	// History holds the stats of every evaluated generation.
	History []analysis.Stats
	Scorer  *Scorer
}

// Run evolves songs towards target, which must be sampled at the library's
// rate. When ctx is cancelled between generations Run returns the result so
// far together with ctx.Err().
func Run(ctx context.Context, cfg Config, lib *piano.Library, target []int) (*Result, error) {
	if cfg.Generations < 1 {
		return nil, fmt.Errorf("generations must be >= 1, got %d", cfg.Generations)
	}
	sc, err := NewScorer(lib, cfg.Transform, target, cfg.NoteCount)
	if err != nil {
		return nil, err
	}
	eng, err := ga.New(ga.Config{
		PopSize:      cfg.PopSize,
		NoteCount:    cfg.NoteCount,
		SignalLength: len(target),
		SampleRate:   lib.SampleRate,
		KeyCount:     lib.KeyCount(),
	}, ga.NewSource(cfg.Seed))
	if err != nil {
		return nil, err
	}

	res := &Result{Best: song.New(), BestGeneration: -1, Scorer: sc}
	pop := eng.Initialize()
	for gen := 0; gen < cfg.Generations; gen++ {
		if gen > 0 {
			if err := ctx.Err(); err != nil {
				return res, err
			}
			next, err := eng.Next(pop)
			if err != nil {
				return res, fmt.Errorf("generation %d: %w", gen, err)
			}
			pop = next
		}
		if err := Evaluate(ctx, sc, pop, cfg.Workers); err != nil {
			return res, fmt.Errorf("generation %d: %w", gen, err)
		}

		st := analysis.Summarize(pop.Fitnesses())
		res.History = append(res.History, st)
		best := pop[st.BestIndex].Clone()
		if res.BestGeneration < 0 || best.Fitness > res.Best.Fitness {
			res.Best = best.Clone()
			res.BestGeneration = gen
		}
		if cfg.OnGeneration != nil {
			cfg.OnGeneration(GenerationReport{Generation: gen, Stats: st, Best: best})
		}
	}
	return res, nil
}

// Evaluate sets the fitness of every song in pop. Songs are scored on a
// bounded worker pool, each worker owning its render buffer; Evaluate
// returns only after every fitness is final.
func Evaluate(ctx context.Context, sc *Scorer, pop song.Population, workers int) error {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > len(pop) {
		workers = len(pop)
	}

	jobs := make(chan int)
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			buf := sc.NewBuffer()
			for i := range jobs {
				if errs[workerID] != nil {
					continue
				}
				f, err := sc.Fitness(buf, &pop[i])
				if err != nil {
					errs[workerID] = fmt.Errorf("song %d: %w", i, err)
					continue
				}
				pop[i].Fitness = f
			}
		}(w)
	}
	var cancelled error
	for i := range pop {
		if cancelled = ctx.Err(); cancelled != nil {
			break
		}
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	if cancelled != nil {
		return cancelled
	}
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
