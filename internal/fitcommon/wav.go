package fitcommon

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	dspresample "github.com/cwbudde/algo-dsp/dsp/resample"
	"github.com/cwbudde/wav"
	"github.com/go-audio/audio"
)

// ErrUnsupportedFormat is returned for WAV files that are not uncompressed
// PCM at 8, 16, 24 or 32 bits.
var ErrUnsupportedFormat = errors.New("unsupported wav format")

// Signal is a decoded recording mixed down to one channel.
type Signal struct {
	// Samples holds the per-frame sum of all channels at the source scale.
	Samples    []int
	SampleRate int
	Channels   int
	BitDepth   int
}

// Duration returns the length in seconds.
func (s *Signal) Duration() float64 {
	if s.SampleRate <= 0 {
		return 0
	}
	return float64(len(s.Samples)) / float64(s.SampleRate)
}

// ReadWAV decodes an uncompressed PCM WAV file into signed integers at the
// source bit depth. Channels are summed, not averaged.
func ReadWAV(path string) (*Signal, error) {
	if !strings.EqualFold(filepath.Ext(path), ".wav") {
		return nil, fmt.Errorf("%s: input file must be a .wav file", path)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("invalid wav file: %s", path)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, err
	}
	if buf == nil || buf.Format == nil || buf.Format.NumChannels < 1 {
		return nil, fmt.Errorf("invalid wav buffer: %s", path)
	}
	if dec.WavAudioFormat != 1 {
		return nil, fmt.Errorf("%w: %s: compressed format %d", ErrUnsupportedFormat, path, dec.WavAudioFormat)
	}
	depth := buf.SourceBitDepth
	switch depth {
	case 8, 16, 24, 32:
	default:
		return nil, fmt.Errorf("%w: %s: %d-bit samples", ErrUnsupportedFormat, path, depth)
	}
	if buf.Format.SampleRate <= 0 {
		return nil, fmt.Errorf("invalid wav sample-rate: %d", buf.Format.SampleRate)
	}

	// The decoder yields [-1, 1] floats, 8-bit already centred.
	scale := float64(int64(1) << (depth - 1))
	ch := buf.Format.NumChannels
	frames := len(buf.Data) / ch
	out := make([]int, frames)
	for i := 0; i < frames; i++ {
		var sum int
		for c := 0; c < ch; c++ {
			sum += int(math.Round(float64(buf.Data[i*ch+c]) * scale))
		}
		out[i] = sum
	}
	return &Signal{
		Samples:    out,
		SampleRate: buf.Format.SampleRate,
		Channels:   ch,
		BitDepth:   depth,
	}, nil
}

// ResampleIfNeeded converts an integer signal between sample rates,
// rounding the result back to integers.
func ResampleIfNeeded(in []int, fromRate int, toRate int) ([]int, error) {
	if fromRate == toRate {
		return in, nil
	}
	r, err := dspresample.NewForRates(
		float64(fromRate),
		float64(toRate),
		dspresample.WithQuality(dspresample.QualityBest),
	)
	if err != nil {
		return nil, err
	}
	x := make([]float64, len(in))
	for i, v := range in {
		x[i] = float64(v)
	}
	y := r.Process(x)
	out := make([]int, len(y))
	for i, v := range y {
		out[i] = int(math.Round(v))
	}
	return out, nil
}

// WriteMonoWAV writes integer samples at the given source bit depth as a
// 16-bit mono WAV file. Samples beyond full scale are clipped.
func WriteMonoWAV(path string, data []int, sampleRate int, bitDepth int) error {
	if bitDepth < 8 || bitDepth > 32 {
		return fmt.Errorf("%w: %d-bit samples", ErrUnsupportedFormat, bitDepth)
	}
	scale := float64(int64(1) << (bitDepth - 1))
	samples := make([]float32, len(data))
	for i, v := range data {
		samples[i] = float32(Clamp(float64(v)/scale, -1, 1))
	}
	return WriteMonoFloatWAV(path, samples, sampleRate)
}

// WriteMonoFloatWAV writes full-scale [-1, 1] samples as a 16-bit mono WAV.
func WriteMonoFloatWAV(path string, data []float32, sampleRate int) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := wav.NewEncoder(f, sampleRate, 16, 1, 1)
	defer enc.Close()

	buf := &audio.Float32Buffer{
		Format: &audio.Format{
			SampleRate:  sampleRate,
			NumChannels: 1,
		},
		Data:           data,
		SourceBitDepth: 16,
	}
	return enc.Write(buf)
}
