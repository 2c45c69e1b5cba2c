// Package analysis scores candidate transforms against the target transform.
package analysis

import (
	"errors"
	"fmt"
	"math"

	vecmath "github.com/cwbudde/algo-vecmath"
)

var (
	// ErrSilentTarget is returned when the target transform has no energy,
	// which makes the fitness scale undefined.
	ErrSilentTarget = errors.New("target transform is silent")
	// ErrShapeMismatch is returned when two grids differ in size.
	ErrShapeMismatch = errors.New("transform shapes differ")
)

// TargetEnergy returns the sum of squares of the target magnitudes.
func TargetEnergy(target []float64) float64 {
	return vecmath.DotProduct(target, target)
}

// ScaleConstant returns c = noteCount*ln(3)/sum(target^2). With this scale a
// candidate whose squared error equals the target energy scores
// 3^-noteCount.
func ScaleConstant(target []float64, noteCount int) (float64, error) {
	if noteCount <= 0 {
		return 0, fmt.Errorf("note count must be >= 1, got %d", noteCount)
	}
	e := TargetEnergy(target)
	if e == 0 || math.IsNaN(e) {
		return 0, ErrSilentTarget
	}
	return float64(noteCount) * math.Log(3) / e, nil
}

// SumSquaredError returns sum((a[i]-b[i])^2).
func SumSquaredError(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d vs %d cells", ErrShapeMismatch, len(a), len(b))
	}
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum, nil
}

// FitnessFromError maps a squared error to exp(-c*sse), in (0, 1].
func FitnessFromError(sse, c float64) float64 {
	return math.Exp(-c * sse)
}

// Fitness scores a candidate transform against the target.
func Fitness(candidate, target []float64, c float64) (float64, error) {
	sse, err := SumSquaredError(candidate, target)
	if err != nil {
		return 0, err
	}
	return FitnessFromError(sse, c), nil
}
