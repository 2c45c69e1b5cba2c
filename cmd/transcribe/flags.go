package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cwbudde/algo-transcribe/internal/fitcommon"
	"github.com/cwbudde/algo-transcribe/preset"
	"github.com/cwbudde/algo-transcribe/wavelet"
)

// transformFlags mirrors wavelet.Params on the command line.
type transformFlags struct {
	width   int
	height  int
	st      float64
	et      float64
	beta    float64
	beta2   float64
	sqrt    bool
	phase   bool
	us      bool
	method  string
	workers string
}

func addTransformFlags(cmd *cobra.Command, f *transformFlags) {
	def := wavelet.DefaultParams()
	fs := cmd.Flags()
	fs.IntVarP(&f.width, "width", "w", def.Width, "Number of time columns")
	fs.IntVar(&f.height, "height", def.Height, "Number of frequency rows")
	fs.Float64Var(&f.st, "st", def.StartTime, "Analysis start time in seconds")
	fs.Float64Var(&f.et, "et", def.EndTime, "Analysis end time in seconds (clamped to the signal)")
	fs.Float64VarP(&f.beta, "beta", "b", def.Beta, "Gaussian window width in periods")
	fs.Float64Var(&f.beta2, "b2", def.Beta2, "Secondary window factor (accepted, no effect)")
	fs.BoolVarP(&f.sqrt, "sqrt", "s", false, "Square-root magnitude scaling (accepted, no effect)")
	fs.BoolVarP(&f.phase, "phase", "p", false, "Compute phase and color images by phase")
	fs.BoolVar(&f.us, "us", false, "Undersample columns closer than half a window")
	fs.StringVar(&f.method, "method", "direct", "Correlation method: direct|ola")
	fs.StringVar(&f.workers, "workers", "auto", "Transform row workers (integer >= 1 or 'auto')")
}

// apply overrides p with every flag set on the command line.
func (f *transformFlags) apply(cmd *cobra.Command, p *wavelet.Params) error {
	fs := cmd.Flags()
	if fs.Changed("width") {
		p.Width = f.width
	}
	if fs.Changed("height") {
		p.Height = f.height
	}
	if fs.Changed("st") {
		p.StartTime = f.st
	}
	if fs.Changed("et") {
		p.EndTime = f.et
	}
	if fs.Changed("beta") {
		p.Beta = f.beta
	}
	if fs.Changed("b2") {
		p.Beta2 = f.beta2
	}
	if fs.Changed("sqrt") {
		p.Sqrt = f.sqrt
	}
	if fs.Changed("phase") {
		p.Phase = f.phase
	}
	if fs.Changed("us") {
		p.Undersample = f.us
	}
	if fs.Changed("method") {
		m, err := wavelet.ParseMethod(f.method)
		if err != nil {
			return err
		}
		p.Method = m
	}
	if fs.Changed("workers") {
		n, err := fitcommon.ParseWorkers(f.workers)
		if err != nil {
			return fmt.Errorf("invalid --workers: %w", err)
		}
		p.Workers = n
	}
	if fs.Changed("b2") || fs.Changed("sqrt") {
		fmt.Fprintln(os.Stderr, "Note: --b2 and --sqrt are recorded but do not change the transform")
	}
	return nil
}

// runFlags are the evolution settings of the evolve command.
type runFlags struct {
	transform   transformFlags
	notes       int
	pop         int
	generations int
	seed        uint64
	library     string
	presetPath  string
	refineEvals int
	monitorAddr string
	progress    bool
}

func addRunFlags(cmd *cobra.Command, f *runFlags) {
	addTransformFlags(cmd, &f.transform)
	def := preset.DefaultConfig()
	fs := cmd.Flags()
	fs.IntVar(&f.notes, "notes", def.NoteCount, "Notes per generation-0 song")
	fs.IntVar(&f.pop, "pop", def.PopSize, "Population size (multiple of 4)")
	fs.IntVar(&f.generations, "generations", def.Generations, "Number of generations")
	fs.Uint64Var(&f.seed, "seed", 0, "Random seed (0 = random)")
	fs.StringVar(&f.library, "library", "", "Directory with 0.wav..87.wav (default: synthetic library)")
	fs.StringVar(&f.presetPath, "config", "", "JSON preset with run settings")
	fs.IntVar(&f.refineEvals, "refine-evals", 0, "Mayfly evaluations to polish the best song (0 = off)")
	fs.StringVar(&f.monitorAddr, "monitor-addr", "", "Serve run status over HTTP on this address")
	fs.BoolVar(&f.progress, "progress", false, "Show a progress bar instead of per-generation lines")
}

// config resolves defaults, then the preset file, then changed flags.
func (f *runFlags) config(cmd *cobra.Command) (*preset.Config, error) {
	c := preset.DefaultConfig()
	if f.presetPath != "" {
		loaded, err := preset.LoadJSON(f.presetPath)
		if err != nil {
			return nil, fmt.Errorf("load config %q: %w", f.presetPath, err)
		}
		c = loaded
	}
	if err := f.transform.apply(cmd, &c.Transform); err != nil {
		return nil, err
	}
	fs := cmd.Flags()
	if fs.Changed("notes") {
		c.NoteCount = f.notes
	}
	if fs.Changed("pop") {
		c.PopSize = f.pop
	}
	if fs.Changed("generations") {
		c.Generations = f.generations
	}
	if fs.Changed("seed") {
		c.Seed = f.seed
	}
	if fs.Changed("library") {
		c.LibraryDir = f.library
	}
	if fs.Changed("refine-evals") {
		c.RefineEvals = f.refineEvals
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}
