// Package bitmap renders transform grids as 24-bit BMP images.
package bitmap

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"math"
	"os"

	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/bmp"

	"github.com/cwbudde/algo-transcribe/wavelet"
)

// ErrNoPhase is returned when phase coloring is requested for a grid
// computed without phase output.
var ErrNoPhase = errors.New("grid has no phase data")

// Image converts g to an RGBA image with one pixel per cell. Row 0 of the
// grid (highest frequency) is the top image row. Without phase the image is
// grayscale; with phase the hue encodes the phase and the lightness half the
// magnitude.
func Image(g *wavelet.Grid, phase bool) (*image.RGBA, error) {
	if g == nil || g.Width <= 0 || g.Height <= 0 || len(g.Mag) != g.Width*g.Height {
		return nil, fmt.Errorf("invalid grid")
	}
	if phase && len(g.Phase) != len(g.Mag) {
		return nil, ErrNoPhase
	}
	img := image.NewRGBA(image.Rect(0, 0, g.Width, g.Height))
	for y := 0; y < g.Height; y++ {
		for x := 0; x < g.Width; x++ {
			m := clampUnit(g.At(y, x))
			if !phase {
				v := uint8(255*m + 0.5)
				img.SetRGBA(x, y, color.RGBA{R: v, G: v, B: v, A: 255})
				continue
			}
			h := (g.PhaseAt(y, x) + math.Pi) / (2 * math.Pi) * 360
			r, gg, b := colorful.Hsl(h, 1, m/2).RGB255()
			img.SetRGBA(x, y, color.RGBA{R: r, G: gg, B: b, A: 255})
		}
	}
	return img, nil
}

// Write encodes g as a BMP to w.
func Write(w io.Writer, g *wavelet.Grid, phase bool) error {
	img, err := Image(g, phase)
	if err != nil {
		return err
	}
	return bmp.Encode(w, img)
}

// WriteFile encodes g as a BMP file at path.
func WriteFile(path string, g *wavelet.Grid, phase bool) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Write(f, g, phase); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func clampUnit(v float64) float64 {
	switch {
	case math.IsNaN(v) || v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
