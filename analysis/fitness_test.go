package analysis

import (
	"errors"
	"math"
	"math/rand"
	"testing"
)

func randomGrid(n int, seed int64) []float64 {
	rng := rand.New(rand.NewSource(seed))
	out := make([]float64, n)
	for i := range out {
		out[i] = rng.Float64()
	}
	return out
}

func TestScaleConstant(t *testing.T) {
	target := []float64{1, 2, 2}
	c, err := ScaleConstant(target, 15)
	if err != nil {
		t.Fatalf("ScaleConstant: %v", err)
	}
	want := 15 * math.Log(3) / 9
	if math.Abs(c-want) > 1e-12 {
		t.Fatalf("ScaleConstant() = %v, want %v", c, want)
	}
}

func TestScaleConstantRejectsSilentTarget(t *testing.T) {
	if _, err := ScaleConstant(make([]float64, 32), 15); !errors.Is(err, ErrSilentTarget) {
		t.Fatalf("ScaleConstant() error = %v, want ErrSilentTarget", err)
	}
	if _, err := ScaleConstant([]float64{1}, 0); err == nil {
		t.Fatalf("expected error for zero note count")
	}
}

func TestFitnessIdenticalIsOne(t *testing.T) {
	target := randomGrid(256, 3)
	c, err := ScaleConstant(target, 15)
	if err != nil {
		t.Fatalf("ScaleConstant: %v", err)
	}
	f, err := Fitness(target, target, c)
	if err != nil {
		t.Fatalf("Fitness: %v", err)
	}
	if f != 1 {
		t.Fatalf("Fitness(target, target) = %v, want 1", f)
	}
}

func TestFitnessOfSilenceIsThreeToMinusNotes(t *testing.T) {
	const notes = 7
	target := randomGrid(300, 5)
	c, err := ScaleConstant(target, notes)
	if err != nil {
		t.Fatalf("ScaleConstant: %v", err)
	}
	f, err := Fitness(make([]float64, len(target)), target, c)
	if err != nil {
		t.Fatalf("Fitness: %v", err)
	}
	want := math.Pow(3, -notes)
	if math.Abs(f-want)/want > 1e-9 {
		t.Fatalf("Fitness(silence) = %v, want %v", f, want)
	}
}

func TestFitnessDecreasesWithError(t *testing.T) {
	target := randomGrid(128, 9)
	c, _ := ScaleConstant(target, 15)
	near := append([]float64(nil), target...)
	far := append([]float64(nil), target...)
	for i := range target {
		near[i] += 0.01
		far[i] += 0.2
	}
	fn, _ := Fitness(near, target, c)
	ff, _ := Fitness(far, target, c)
	if !(fn > ff && ff > 0 && fn < 1) {
		t.Fatalf("expected 1 > near(%v) > far(%v) > 0", fn, ff)
	}
}

func TestFitnessRejectsShapeMismatch(t *testing.T) {
	if _, err := Fitness(make([]float64, 3), make([]float64, 4), 1); !errors.Is(err, ErrShapeMismatch) {
		t.Fatalf("Fitness() error = %v, want ErrShapeMismatch", err)
	}
}

func TestSummarize(t *testing.T) {
	s := Summarize([]float64{0.1, 0.4, 0.4, 0.3})
	if s.Best != 0.4 || s.BestIndex != 1 || s.Worst != 0.1 {
		t.Fatalf("Summarize() = %+v", s)
	}
	if math.Abs(s.Mean-0.3) > 1e-12 {
		t.Fatalf("Mean = %v, want 0.3", s.Mean)
	}
	// sample standard deviation of {0.1,0.4,0.4,0.3}
	if math.Abs(s.StdDev-math.Sqrt(0.06/3)) > 1e-12 {
		t.Fatalf("StdDev = %v, want %v", s.StdDev, math.Sqrt(0.06/3))
	}
	if e := Summarize(nil); e.BestIndex != -1 {
		t.Fatalf("empty Summarize().BestIndex = %d, want -1", e.BestIndex)
	}
	if one := Summarize([]float64{0.5}); one.Mean != 0.5 || one.StdDev != 0 {
		t.Fatalf("single Summarize() = %+v", one)
	}
}

func TestCompareAudioIdenticalSignals(t *testing.T) {
	x := makeDecaySine(8000, 440, 1, 0.5)
	m := CompareAudio(x, x, 8000)
	if m.TimeRMSE > 1e-12 || m.EnvelopeRMSDB > 1e-9 || m.SpectralRMSDB > 1e-9 {
		t.Fatalf("identical signals gave %+v", m)
	}
	if math.Abs(m.Correlation-1) > 1e-9 {
		t.Fatalf("Correlation = %v, want 1", m.Correlation)
	}
}

func TestCompareAudioIgnoresLevel(t *testing.T) {
	x := makeDecaySine(8000, 330, 1, 0.4)
	y := make([]float64, len(x))
	for i := range x {
		y[i] = 3 * x[i]
	}
	m := CompareAudio(x, y, 8000)
	if m.TimeRMSE > 1e-9 {
		t.Fatalf("scaled copy gave TimeRMSE %v", m.TimeRMSE)
	}
}

func TestCompareAudioDifferentSignals(t *testing.T) {
	a := makeDecaySine(8000, 261.63, 1, 0.8)
	b := makeDecaySine(8000, 392, 1, 0.1)
	m := CompareAudio(a, b, 8000)
	if m.Correlation > 0.5 || m.TimeRMSE < 0.05 || m.SpectralRMSDB < 3 {
		t.Fatalf("different signals gave %+v", m)
	}
}

func TestSpectralDistanceShortSignal(t *testing.T) {
	a := makeDecaySine(8000, 440, 0.05, 1)
	if d := spectralDistance(a, a); d != 0 {
		t.Fatalf("spectralDistance(short, same) = %v, want 0", d)
	}
	b := makeDecaySine(8000, 1200, 0.05, 1)
	if d := spectralDistance(a, b); !(d > 3) {
		t.Fatalf("spectralDistance(short, different) = %v", d)
	}
}

func makeDecaySine(sr int, freq float64, seconds float64, decay float64) []float64 {
	n := int(float64(sr) * seconds)
	out := make([]float64, n)
	for i := range out {
		tm := float64(i) / float64(sr)
		out[i] = math.Exp(-tm/decay) * math.Sin(2*math.Pi*freq*tm)
	}
	return out
}
