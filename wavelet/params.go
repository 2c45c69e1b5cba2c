// Package wavelet implements the Gaussian-windowed complex wavelet transform
// that turns a sampled signal into a pitch-by-time magnitude grid.
package wavelet

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

const (
	// BaseFrequency is the frequency of the lowest analysed row (A0).
	BaseFrequency = 27.5
	// SemitoneRange is the number of semitones spanned by the row set.
	SemitoneRange = 112
)

// ErrInvalidParams is returned for parameter sets that cannot be transformed.
var ErrInvalidParams = errors.New("invalid transform parameters")

// Method selects how the per-row correlation is evaluated.
type Method int

const (
	// MethodDirect evaluates one clipped dot product per grid cell.
	MethodDirect Method = iota
	// MethodOverlapAdd computes the full correlation of each row by
	// overlap-add convolution and samples it at the column positions.
	MethodOverlapAdd
)

func (m Method) String() string {
	switch m {
	case MethodDirect:
		return "direct"
	case MethodOverlapAdd:
		return "ola"
	default:
		return fmt.Sprintf("Method(%d)", int(m))
	}
}

// ParseMethod accepts "direct" or "ola" (alias "fft").
func ParseMethod(raw string) (Method, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "direct":
		return MethodDirect, nil
	case "ola", "fft":
		return MethodOverlapAdd, nil
	default:
		return 0, fmt.Errorf("unknown transform method %q (use direct or ola)", raw)
	}
}

// Params configures a transform.
type Params struct {
	Height    int     `json:"height"`
	Width     int     `json:"width"`
	StartTime float64 `json:"start_time"`
	EndTime   float64 `json:"end_time"`

	// Beta scales the Gaussian envelope width relative to the period.
	Beta float64 `json:"beta"`
	// Beta2 and Sqrt are accepted and carried but do not alter the result.
	Beta2 float64 `json:"beta2"`
	Sqrt  bool    `json:"sqrt"`

	Phase       bool   `json:"phase"`
	Undersample bool   `json:"undersample"`
	Method      Method `json:"method"`
	// Workers bounds row parallelism; <= 0 uses GOMAXPROCS.
	Workers int `json:"workers"`
}

// DefaultParams returns the stock transform configuration.
func DefaultParams() Params {
	return Params{
		Height:    112,
		Width:     1000,
		StartTime: 0,
		EndTime:   15,
		Beta:      16,
		Beta2:     1,
	}
}

// Validate checks the parameters that do not depend on the signal.
func (p Params) Validate() error {
	if p.Height < 1 {
		return fmt.Errorf("%w: height must be >= 1, got %d", ErrInvalidParams, p.Height)
	}
	if p.Width < 1 {
		return fmt.Errorf("%w: width must be >= 1, got %d", ErrInvalidParams, p.Width)
	}
	if !(p.Beta > 0) || math.IsInf(p.Beta, 0) {
		return fmt.Errorf("%w: beta must be > 0, got %g", ErrInvalidParams, p.Beta)
	}
	if math.IsNaN(p.StartTime) || math.IsNaN(p.EndTime) {
		return fmt.Errorf("%w: start/end time must be numbers", ErrInvalidParams)
	}
	if p.Method != MethodDirect && p.Method != MethodOverlapAdd {
		return fmt.Errorf("%w: unknown method %d", ErrInvalidParams, int(p.Method))
	}
	return nil
}

// ClampWindow returns the analysis window limited to [0, duration].
func (p Params) ClampWindow(duration float64) (start, end float64) {
	start, end = p.StartTime, p.EndTime
	if start < 0 {
		start = 0
	}
	if end > duration {
		end = duration
	}
	return start, end
}
