package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cwbudde/algo-transcribe/internal/fitcommon"
	"github.com/cwbudde/algo-transcribe/piano"
	"github.com/cwbudde/algo-transcribe/song"
)

func newRenderCmd() *cobra.Command {
	var libDir string
	var sampleRate int
	var seconds float64
	cmd := &cobra.Command{
		Use:   "render --library <dir> <song.txt> <out.wav>",
		Short: "Render a song text file with a note library",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			lib, err := openLibrary(libDir, sampleRate)
			if err != nil {
				return err
			}
			defer lib.Close()

			s, err := readSongFile(args[0], lib.SampleRate)
			if err != nil {
				return err
			}

			length := int(seconds * float64(lib.SampleRate))
			if length <= 0 {
				length = songLength(s, lib.SampleRate)
			}
			out, err := lib.Render(&s, length)
			if err != nil {
				return err
			}
			if err := fitcommon.WriteMonoWAV(args[1], out, lib.SampleRate, lib.BitDepth); err != nil {
				return err
			}
			fmt.Printf("Rendered %d notes, %.2fs to %s\n", s.Len(), float64(length)/float64(lib.SampleRate), args[1])
			return nil
		},
	}
	fs := cmd.Flags()
	fs.StringVar(&libDir, "library", "", "Directory with 0.wav..87.wav (default: synthetic library)")
	fs.IntVar(&sampleRate, "sample-rate", 44100, "Sample rate of the synthetic library")
	fs.Float64Var(&seconds, "seconds", 0, "Output length in seconds (0 = fit the song)")
	return cmd
}

func readSongFile(path string, sampleRate int) (song.Song, error) {
	f, err := os.Open(path)
	if err != nil {
		return song.Song{}, err
	}
	defer f.Close()
	s, err := song.ParseText(f, sampleRate)
	if err != nil {
		return song.Song{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return s, nil
}

// songLength returns a length that holds every note of s. Rendering never
// writes the final second of its output, so one second is added.
func songLength(s song.Song, sampleRate int) int {
	end := 0
	for _, n := range s.Notes {
		end = fitcommon.MaxOf(end, n.End())
	}
	return end + piano.OnsetSeconds*sampleRate
}

// openLibrary loads dir, or synthesizes a library at sampleRate when dir is
// empty.
func openLibrary(dir string, sampleRate int) (*piano.Library, error) {
	if dir == "" {
		fmt.Printf("Synthesizing note library at %d Hz\n", sampleRate)
		return piano.Synthesize(piano.DefaultSynthOptions(sampleRate))
	}
	lib, err := piano.LoadLibrary(dir)
	if err != nil {
		return nil, err
	}
	fmt.Printf("Loaded %d notes at %d Hz from %s\n", lib.KeyCount(), lib.SampleRate, dir)
	return lib, nil
}
