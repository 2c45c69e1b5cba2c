// Package report writes the artifacts of a transcription run.
package report

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/cwbudde/algo-transcribe/analysis"
	"github.com/cwbudde/algo-transcribe/song"
	"github.com/cwbudde/algo-transcribe/wavelet"
)

// Run is the JSON summary of a finished run.
type Run struct {
	RunID          string           `json:"run_id"`
	InputPath      string           `json:"input_path"`
	LibraryDir     string           `json:"library_dir,omitempty"`
	SampleRate     int              `json:"sample_rate"`
	Transform      wavelet.Params   `json:"transform"`
	PopSize        int              `json:"population"`
	NoteCount      int              `json:"notes"`
	Generations    int              `json:"generations"`
	Seed           uint64           `json:"seed"`
	ElapsedSec     float64          `json:"elapsed_seconds"`
	BestFitness    float64          `json:"best_fitness"`
	BestGeneration int              `json:"best_generation"`
	Refined        bool             `json:"refined"`
	RefineEvals    int              `json:"refine_evals,omitempty"`
	Cancelled      bool             `json:"cancelled,omitempty"`
	History        []analysis.Stats `json:"history"`
	// Audio compares the target with the rendered best song.
	Audio analysis.AudioMetrics `json:"audio"`
	Best  song.Song             `json:"best"`
}

// NewRunID returns a fresh random run identifier.
func NewRunID() string {
	return uuid.New().String()
}

// WriteJSON writes v as indented JSON with a trailing newline, creating the
// parent directory.
func WriteJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')
	return os.WriteFile(path, b, 0o644)
}

// ReadRun loads a run summary written by WriteJSON.
func ReadRun(path string) (*Run, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var r Run
	if err := json.Unmarshal(b, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// WriteSongText writes s in the plain-text song format.
func WriteSongText(path string, s song.Song, sampleRate int) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := song.WriteText(f, s, sampleRate); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
