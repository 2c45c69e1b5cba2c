package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cwbudde/algo-transcribe/piano"
	"github.com/cwbudde/algo-transcribe/song"
)

func newSynthLibraryCmd() *cobra.Command {
	var sampleRate, keys, partials int
	var peak, decay, brightness float64
	cmd := &cobra.Command{
		Use:   "synth-library <dir>",
		Short: "Write a synthetic note library (0.wav..87.wav)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := piano.DefaultSynthOptions(sampleRate)
			opts.Keys = keys
			opts.Partials = partials
			opts.Peak = peak
			opts.Decay = decay
			opts.Brightness = brightness
			lib, err := piano.Synthesize(opts)
			if err != nil {
				return err
			}
			defer lib.Close()
			if err := os.MkdirAll(args[0], 0o755); err != nil {
				return err
			}
			if err := lib.Save(args[0]); err != nil {
				return err
			}
			fmt.Printf("Wrote %d notes at %d Hz to %s\n", lib.KeyCount(), lib.SampleRate, args[0])
			return nil
		},
	}
	def := piano.DefaultSynthOptions(44100)
	fs := cmd.Flags()
	fs.IntVar(&sampleRate, "sample-rate", def.SampleRate, "Sample rate in Hz")
	fs.IntVar(&keys, "keys", song.KeyCount, "Number of keys")
	fs.IntVar(&partials, "partials", def.Partials, "Harmonics per note")
	fs.Float64Var(&peak, "peak", def.Peak, "Peak level as a fraction of full scale")
	fs.Float64Var(&decay, "decay", def.Decay, "Decay time constant of A0 in seconds")
	fs.Float64Var(&brightness, "brightness", def.Brightness, "Lowpass cutoff as a multiple of the fundamental (0 = off)")
	return cmd
}
