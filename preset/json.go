// Package preset loads transcription run settings from JSON files.
package preset

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cwbudde/algo-transcribe/wavelet"
)

// Config is the complete set of run settings.
type Config struct {
	Transform wavelet.Params

	PopSize     int
	NoteCount   int
	Generations int
	// Seed 0 picks a random seed.
	Seed uint64
	// LibraryDir holds 0.wav..87.wav. Empty means a synthetic library.
	LibraryDir string
	// RefineEvals is the mayfly evaluation budget; 0 disables refinement.
	RefineEvals int
}

// DefaultConfig returns the stock run settings.
func DefaultConfig() *Config {
	return &Config{
		Transform:   wavelet.DefaultParams(),
		PopSize:     100,
		NoteCount:   15,
		Generations: 100,
	}
}

// Validate checks the settings that do not depend on the input signal.
func (c *Config) Validate() error {
	if err := c.Transform.Validate(); err != nil {
		return err
	}
	if c.PopSize <= 0 || c.PopSize%4 != 0 {
		return fmt.Errorf("population must be a positive multiple of 4, got %d", c.PopSize)
	}
	if c.NoteCount < 1 {
		return fmt.Errorf("notes must be >= 1, got %d", c.NoteCount)
	}
	if c.Generations < 1 {
		return fmt.Errorf("generations must be >= 1, got %d", c.Generations)
	}
	if c.RefineEvals < 0 {
		return fmt.Errorf("refine_evals must be >= 0, got %d", c.RefineEvals)
	}
	return nil
}

// File is the JSON schema for run presets. Absent fields keep their
// current value.
type File struct {
	Width       *int     `json:"width"`
	Height      *int     `json:"height"`
	StartTime   *float64 `json:"start_time"`
	EndTime     *float64 `json:"end_time"`
	Beta        *float64 `json:"beta"`
	Beta2       *float64 `json:"beta2"`
	Sqrt        *bool    `json:"sqrt"`
	Phase       *bool    `json:"phase"`
	Undersample *bool    `json:"undersample"`
	Method      string   `json:"method"`
	Workers     *int     `json:"workers"`

	Population  *int    `json:"population"`
	Notes       *int    `json:"notes"`
	Generations *int    `json:"generations"`
	Seed        *uint64 `json:"seed"`
	LibraryDir  string  `json:"library_dir"`
	RefineEvals *int    `json:"refine_evals"`
}

// LoadJSON loads a preset file and applies it on top of the defaults. A
// relative library_dir is resolved against the preset's directory.
func LoadJSON(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var f File
	if err := json.Unmarshal(b, &f); err != nil {
		return nil, err
	}

	c := DefaultConfig()
	if err := ApplyFile(c, &f); err != nil {
		return nil, err
	}

	if c.LibraryDir != "" && !filepath.IsAbs(c.LibraryDir) {
		base := filepath.Dir(path)
		c.LibraryDir = filepath.Clean(filepath.Join(base, c.LibraryDir))
	}
	return c, nil
}

// ApplyFile applies a parsed preset file onto an existing config.
func ApplyFile(dst *Config, f *File) error {
	if dst == nil {
		return fmt.Errorf("nil destination config")
	}
	if f == nil {
		return nil
	}

	tp := &dst.Transform
	if f.Width != nil {
		if *f.Width < 1 {
			return fmt.Errorf("width must be >= 1")
		}
		tp.Width = *f.Width
	}
	if f.Height != nil {
		if *f.Height < 1 {
			return fmt.Errorf("height must be >= 1")
		}
		tp.Height = *f.Height
	}
	if f.StartTime != nil {
		tp.StartTime = *f.StartTime
	}
	if f.EndTime != nil {
		tp.EndTime = *f.EndTime
	}
	if f.Beta != nil {
		if *f.Beta <= 0 {
			return fmt.Errorf("beta must be > 0")
		}
		tp.Beta = *f.Beta
	}
	if f.Beta2 != nil {
		tp.Beta2 = *f.Beta2
	}
	if f.Sqrt != nil {
		tp.Sqrt = *f.Sqrt
	}
	if f.Phase != nil {
		tp.Phase = *f.Phase
	}
	if f.Undersample != nil {
		tp.Undersample = *f.Undersample
	}
	if strings.TrimSpace(f.Method) != "" {
		m, err := wavelet.ParseMethod(f.Method)
		if err != nil {
			return err
		}
		tp.Method = m
	}
	if f.Workers != nil {
		tp.Workers = *f.Workers
	}

	if f.Population != nil {
		if *f.Population <= 0 || *f.Population%4 != 0 {
			return fmt.Errorf("population must be a positive multiple of 4")
		}
		dst.PopSize = *f.Population
	}
	if f.Notes != nil {
		if *f.Notes < 1 {
			return fmt.Errorf("notes must be >= 1")
		}
		dst.NoteCount = *f.Notes
	}
	if f.Generations != nil {
		if *f.Generations < 1 {
			return fmt.Errorf("generations must be >= 1")
		}
		dst.Generations = *f.Generations
	}
	if f.Seed != nil {
		dst.Seed = *f.Seed
	}
	if f.LibraryDir != "" {
		dst.LibraryDir = strings.TrimSpace(f.LibraryDir)
	}
	if f.RefineEvals != nil {
		if *f.RefineEvals < 0 {
			return fmt.Errorf("refine_evals must be >= 0")
		}
		dst.RefineEvals = *f.RefineEvals
	}
	return nil
}
