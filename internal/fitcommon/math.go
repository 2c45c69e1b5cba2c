package fitcommon

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/exp/constraints"
)

// Clamp limits v to [lo, hi].
func Clamp[T constraints.Ordered](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// MinOf returns the smaller of a and b.
func MinOf[T constraints.Ordered](a, b T) T {
	if a < b {
		return a
	}
	return b
}

// MaxOf returns the larger of a and b.
func MaxOf[T constraints.Ordered](a, b T) T {
	if a > b {
		return a
	}
	return b
}

// ParseWorkers parses a worker count flag. "auto" maps to 0, which callers
// treat as GOMAXPROCS.
func ParseWorkers(raw string) (int, error) {
	v := strings.ToLower(strings.TrimSpace(raw))
	if v == "" {
		return 0, fmt.Errorf("empty value (use integer >= 1 or 'auto')")
	}
	if v == "auto" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%q (use integer >= 1 or 'auto')", raw)
	}
	if n < 1 {
		return 0, fmt.Errorf("%d (must be >= 1 or 'auto')", n)
	}
	return n, nil
}
