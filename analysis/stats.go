package analysis

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Stats summarizes the fitness values of one generation.
type Stats struct {
	Best      float64 `json:"best"`
	BestIndex int     `json:"best_index"`
	Worst     float64 `json:"worst"`
	Mean      float64 `json:"mean"`
	StdDev    float64 `json:"std_dev"`
}

// Summarize computes Stats for fitness values. BestIndex is the lowest index
// holding the maximum, -1 for an empty slice.
func Summarize(fitness []float64) Stats {
	s := Stats{BestIndex: -1}
	if len(fitness) == 0 {
		return s
	}
	s.Best = math.Inf(-1)
	s.Worst = math.Inf(1)
	for i, f := range fitness {
		if f > s.Best {
			s.Best = f
			s.BestIndex = i
		}
		if f < s.Worst {
			s.Worst = f
		}
	}
	if len(fitness) == 1 {
		s.Mean = fitness[0]
		return s
	}
	s.Mean, s.StdDev = stat.MeanStdDev(fitness, nil)
	return s
}
