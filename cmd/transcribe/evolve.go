package main

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"

	"github.com/cwbudde/algo-transcribe/analysis"
	"github.com/cwbudde/algo-transcribe/bitmap"
	"github.com/cwbudde/algo-transcribe/internal/fitcommon"
	"github.com/cwbudde/algo-transcribe/internal/monitor"
	"github.com/cwbudde/algo-transcribe/preset"
	"github.com/cwbudde/algo-transcribe/report"
	"github.com/cwbudde/algo-transcribe/song"
	"github.com/cwbudde/algo-transcribe/transcriber"
)

func newEvolveCmd() *cobra.Command {
	var rf runFlags
	cmd := &cobra.Command{
		Use:   "evolve [flags] <in.wav> <out-dir>",
		Short: "Evolve a note list that reproduces a recording",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := rf.config(cmd)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return runEvolve(ctx, cfg, &rf, args[0], args[1])
		},
	}
	addRunFlags(cmd, &rf)
	return cmd
}

func runEvolve(ctx context.Context, cfg *preset.Config, rf *runFlags, inPath, outDir string) error {
	sig, err := fitcommon.ReadWAV(inPath)
	if err != nil {
		return err
	}
	fmt.Printf("Input: %s (%d Hz, %d-bit, %.2fs)\n", inPath, sig.SampleRate, sig.BitDepth, sig.Duration())

	lib, err := openLibrary(cfg.LibraryDir, sig.SampleRate)
	if err != nil {
		return err
	}
	defer lib.Close()
	target, err := fitcommon.ResampleIfNeeded(sig.Samples, sig.SampleRate, lib.SampleRate)
	if err != nil {
		return fmt.Errorf("resample input: %w", err)
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}

	runID := report.NewRunID()
	fmt.Printf("Run %s: pop=%d notes=%d generations=%d seed=%d\n",
		runID, cfg.PopSize, cfg.NoteCount, cfg.Generations, cfg.Seed)

	mon := monitor.New(runID, cfg.Generations)
	if rf.monitorAddr != "" {
		addr, err := mon.Start(rf.monitorAddr)
		if err != nil {
			return fmt.Errorf("start monitor: %w", err)
		}
		fmt.Printf("Monitor listening on http://%s\n", addr)
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = mon.Shutdown(sctx)
		}()
	}

	ckpt := report.NewCheckpointer(filepath.Join(outDir, "best.txt"), lib.SampleRate, 2*time.Second)

	var progress *mpb.Progress
	var bar *mpb.Bar
	var bestBits atomic.Uint64
	if rf.progress {
		progress = mpb.New(mpb.WithWidth(64))
		bar = progress.AddBar(int64(cfg.Generations),
			mpb.PrependDecorators(
				decor.Name("Generations: "),
				decor.CountersNoUnit("%d / %d"),
			),
			mpb.AppendDecorators(
				decor.Percentage(),
				decor.Name(" "),
				decor.Elapsed(decor.ET_STYLE_GO),
				decor.Any(func(decor.Statistics) string {
					return fmt.Sprintf(" best=%.4e", math.Float64frombits(bestBits.Load()))
				}),
			),
		)
	}

	bestSoFar := -1.0
	tcfg := transcriber.Config{
		Transform:   cfg.Transform,
		PopSize:     cfg.PopSize,
		NoteCount:   cfg.NoteCount,
		Generations: cfg.Generations,
		Seed:        cfg.Seed,
		Workers:     cfg.Transform.Workers,
		OnGeneration: func(r transcriber.GenerationReport) {
			mon.Observe(r)
			if r.Best.Fitness > bestSoFar {
				bestSoFar = r.Best.Fitness
				ckpt.Update(r.Best)
			}
			if bar != nil {
				bestBits.Store(math.Float64bits(bestSoFar))
				bar.Increment()
				return
			}
			fmt.Printf("Generation %d: best=%.6e mean=%.6e std=%.3e\n",
				r.Generation, r.Stats.Best, r.Stats.Mean, r.Stats.StdDev)
		},
	}
	start := time.Now()
	res, runErr := transcriber.Run(ctx, tcfg, lib, target)
	if bar != nil {
		if runErr != nil {
			bar.Abort(false)
		}
		progress.Wait()
	}
	cancelled := errors.Is(runErr, context.Canceled)
	if runErr != nil && (res == nil || res.BestGeneration < 0 || !cancelled) {
		return runErr
	}
	if cancelled {
		fmt.Printf("Interrupted after %d generation(s); writing best so far\n", len(res.History))
	}

	best := res.Best
	refined := false
	if cfg.RefineEvals > 0 && !cancelled {
		rcfg := transcriber.DefaultRefineConfig(cfg.RefineEvals, int64(cfg.Seed))
		rres, err := transcriber.Refine(ctx, res.Scorer, best, rcfg)
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("refine: %w", err)
		}
		if rres != nil && rres.Improved {
			fmt.Printf("Refined fitness %.6e -> %.6e in %d evaluations\n", best.Fitness, rres.Song.Fitness, rres.Evals)
			best = rres.Song
			refined = true
			mon.SetBest(best)
		}
	}
	ckpt.Update(best)
	if err := ckpt.Flush(); err != nil {
		return fmt.Errorf("write best.txt: %w", err)
	}
	mon.Finish()

	rendered, err := writeEvolveOutputs(outDir, res, best, lib.SampleRate, cfg.Transform.Phase)
	if err != nil {
		return err
	}
	audio := analysis.CompareAudio(toFloat64(target), toFloat64(rendered), lib.SampleRate)
	rep := report.Run{
		RunID:          runID,
		InputPath:      inPath,
		LibraryDir:     cfg.LibraryDir,
		SampleRate:     lib.SampleRate,
		Transform:      cfg.Transform,
		PopSize:        cfg.PopSize,
		NoteCount:      cfg.NoteCount,
		Generations:    len(res.History),
		Seed:           cfg.Seed,
		ElapsedSec:     time.Since(start).Seconds(),
		BestFitness:    best.Fitness,
		BestGeneration: res.BestGeneration,
		Refined:        refined,
		RefineEvals:    cfg.RefineEvals,
		Cancelled:      cancelled,
		History:        res.History,
		Audio:          audio,
		Best:           best,
	}
	if err := report.WriteJSON(filepath.Join(outDir, "report.json"), rep); err != nil {
		return err
	}
	printMetrics(audio)
	fmt.Printf("Best fitness %.6e (%d notes) written to %s\n", best.Fitness, best.Len(), outDir)
	return nil
}

func writeEvolveOutputs(outDir string, res *transcriber.Result, best song.Song, sampleRate int, phase bool) ([]int, error) {
	sc := res.Scorer
	if err := report.WriteMIDI(filepath.Join(outDir, "best.mid"), best, sampleRate); err != nil {
		return nil, fmt.Errorf("write best.mid: %w", err)
	}
	rendered, err := sc.Render(&best)
	if err != nil {
		return nil, err
	}
	if err := fitcommon.WriteMonoWAV(filepath.Join(outDir, "best.wav"), rendered, sampleRate, sc.Library().BitDepth); err != nil {
		return nil, fmt.Errorf("write best.wav: %w", err)
	}
	if err := bitmap.WriteFile(filepath.Join(outDir, "target.bmp"), sc.Target(), phase); err != nil {
		return nil, fmt.Errorf("write target.bmp: %w", err)
	}
	g, err := sc.Grid(&best)
	if err != nil {
		return nil, err
	}
	if err := bitmap.WriteFile(filepath.Join(outDir, "best.bmp"), g, phase); err != nil {
		return nil, fmt.Errorf("write best.bmp: %w", err)
	}
	if err := report.PlotHistory(filepath.Join(outDir, "history.png"), res.History); err != nil {
		return nil, fmt.Errorf("write history.png: %w", err)
	}
	return rendered, nil
}
