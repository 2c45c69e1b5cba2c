package wavelet

import (
	vecmath "github.com/cwbudde/algo-vecmath"
)

// Grid is a row-major Height x Width transform result. Row 0 is the highest
// analysed frequency. Phase is nil unless phase output was requested.
type Grid struct {
	Height    int
	Width     int
	StartTime float64
	EndTime   float64
	Mag       []float64
	Phase     []float64
}

// At returns the magnitude of cell (y, x).
func (g *Grid) At(y, x int) float64 {
	return g.Mag[y*g.Width+x]
}

// PhaseAt returns the phase of cell (y, x) in (-pi, pi].
func (g *Grid) PhaseAt(y, x int) float64 {
	return g.Phase[y*g.Width+x]
}

// Row returns the magnitudes of row y, sharing storage with the grid.
func (g *Grid) Row(y int) []float64 {
	return g.Mag[y*g.Width : (y+1)*g.Width]
}

// Max returns the largest magnitude.
func (g *Grid) Max() float64 {
	return vecmath.MaxAbs(g.Mag)
}

// SameShape reports whether o has the same dimensions.
func (g *Grid) SameShape(o *Grid) bool {
	return o != nil && g.Height == o.Height && g.Width == o.Width && len(g.Mag) == len(o.Mag)
}

// normalize divides every magnitude by the maximum so the maximum becomes
// exactly 1. An all-zero grid is left unchanged.
func (g *Grid) normalize() {
	max := g.Max()
	if max == 0 {
		return
	}
	for i := range g.Mag {
		g.Mag[i] /= max
	}
}
