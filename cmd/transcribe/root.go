package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "transcribe",
	Short: "Evolutionary piano transcription",
	Long: `transcribe analyses piano recordings with a Gaussian-windowed wavelet
transform and evolves note lists whose rendering matches the recording.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(newTransformCmd())
	rootCmd.AddCommand(newEvolveCmd())
	rootCmd.AddCommand(newSynthLibraryCmd())
	rootCmd.AddCommand(newRenderCmd())
	rootCmd.AddCommand(newCompareCmd())
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		die("Error: %v", err)
	}
}

func die(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
