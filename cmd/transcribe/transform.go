package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/cwbudde/algo-transcribe/bitmap"
	"github.com/cwbudde/algo-transcribe/internal/fitcommon"
	"github.com/cwbudde/algo-transcribe/wavelet"
)

func newTransformCmd() *cobra.Command {
	var tf transformFlags
	cmd := &cobra.Command{
		Use:   "transform [flags] <in.wav> <out.bmp>",
		Short: "Render the wavelet transform of a recording as a bitmap",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := wavelet.DefaultParams()
			if err := tf.apply(cmd, &p); err != nil {
				return err
			}
			return runTransform(args[0], args[1], p)
		},
	}
	addTransformFlags(cmd, &tf)
	return cmd
}

func runTransform(inPath, outPath string, p wavelet.Params) error {
	sig, err := fitcommon.ReadWAV(inPath)
	if err != nil {
		return err
	}
	fmt.Printf("Input: %s (%d Hz, %d-bit, %d channel(s), %.2fs)\n",
		inPath, sig.SampleRate, sig.BitDepth, sig.Channels, sig.Duration())

	tr, err := wavelet.NewTransformer(sig.SampleRate, p)
	if err != nil {
		return err
	}
	start := time.Now()
	g, err := tr.Transform(sig.Samples)
	if err != nil {
		return err
	}
	fmt.Printf("Transform: %dx%d, %.3fs..%.3fs, beta=%g, method=%s, took %s\n",
		g.Width, g.Height, g.StartTime, g.EndTime, p.Beta, p.Method, time.Since(start).Round(time.Millisecond))

	if err := bitmap.WriteFile(outPath, g, p.Phase); err != nil {
		return fmt.Errorf("write %s: %w", outPath, err)
	}
	fmt.Printf("Wrote %s\n", outPath)
	return nil
}
