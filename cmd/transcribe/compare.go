package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cwbudde/algo-transcribe/analysis"
	"github.com/cwbudde/algo-transcribe/internal/fitcommon"
)

func newCompareCmd() *cobra.Command {
	var songPath, libDir string
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "compare <reference.wav> [candidate.wav]",
		Short: "Compare a recording with a candidate rendering",
		Long: `compare measures how closely a candidate follows a reference recording.
The candidate is read from a WAV file or, with --song, rendered from a song
text file with the note library.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if (len(args) == 2) == (songPath != "") {
				return fmt.Errorf("give either a candidate WAV or --song")
			}
			cand := ""
			if len(args) == 2 {
				cand = args[1]
			}
			m, err := runCompare(args[0], cand, songPath, libDir)
			if err != nil {
				return err
			}
			if jsonOut {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(m)
			}
			printMetrics(m)
			return nil
		},
	}
	fs := cmd.Flags()
	fs.StringVar(&songPath, "song", "", "Render the candidate from this song text file")
	fs.StringVar(&libDir, "library", "", "Note library for --song (default: synthetic library)")
	fs.BoolVar(&jsonOut, "json", false, "Print metrics as JSON")
	return cmd
}

// runCompare measures candPath, or songPath rendered with the library in
// libDir, against refPath at the reference sample rate.
func runCompare(refPath, candPath, songPath, libDir string) (analysis.AudioMetrics, error) {
	ref, err := fitcommon.ReadWAV(refPath)
	if err != nil {
		return analysis.AudioMetrics{}, fmt.Errorf("read reference: %w", err)
	}
	var cand []int
	if songPath != "" {
		cand, err = renderSongFile(songPath, libDir, ref.SampleRate, len(ref.Samples))
	} else {
		cand, err = readAt(candPath, ref.SampleRate)
	}
	if err != nil {
		return analysis.AudioMetrics{}, err
	}
	return analysis.CompareAudio(toFloat64(ref.Samples), toFloat64(cand), ref.SampleRate), nil
}

func printMetrics(m analysis.AudioMetrics) {
	fmt.Printf("Frames:          %d at %d Hz\n", m.Frames, m.SampleRate)
	fmt.Printf("Time RMSE:       %.6f\n", m.TimeRMSE)
	fmt.Printf("Envelope RMSE:   %.1f dB\n", m.EnvelopeRMSDB)
	fmt.Printf("Spectral RMSE:   %.1f dB\n", m.SpectralRMSDB)
	fmt.Printf("Correlation:     %.4f\n", m.Correlation)
}

// readAt decodes path and resamples it to sampleRate.
func readAt(path string, sampleRate int) ([]int, error) {
	sig, err := fitcommon.ReadWAV(path)
	if err != nil {
		return nil, fmt.Errorf("read candidate: %w", err)
	}
	out, err := fitcommon.ResampleIfNeeded(sig.Samples, sig.SampleRate, sampleRate)
	if err != nil {
		return nil, fmt.Errorf("resample candidate: %w", err)
	}
	return out, nil
}

// renderSongFile renders a song text file at the library rate, then brings
// it to sampleRate.
func renderSongFile(path, libDir string, sampleRate, length int) ([]int, error) {
	lib, err := openLibrary(libDir, sampleRate)
	if err != nil {
		return nil, err
	}
	defer lib.Close()
	s, err := readSongFile(path, lib.SampleRate)
	if err != nil {
		return nil, err
	}
	n := int(int64(length) * int64(lib.SampleRate) / int64(sampleRate))
	out, err := lib.Render(&s, n)
	if err != nil {
		return nil, err
	}
	return fitcommon.ResampleIfNeeded(out, lib.SampleRate, sampleRate)
}

func toFloat64(in []int) []float64 {
	out := make([]float64, len(in))
	for i, v := range in {
		out[i] = float64(v)
	}
	return out
}
