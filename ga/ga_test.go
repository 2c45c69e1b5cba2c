package ga

import (
	"errors"
	"reflect"
	"testing"

	"github.com/cwbudde/algo-transcribe/song"
)

// constSource answers every IntN with n-1 (never zero unless n == 1) or,
// with zero set, always 0. Float64 pops scripted values.
type constSource struct {
	zero   bool
	floats []float64
	ints   []int
}

func (s *constSource) IntN(n int) int {
	if len(s.ints) > 0 {
		v := s.ints[0]
		s.ints = s.ints[1:]
		return v
	}
	if s.zero {
		return 0
	}
	return n - 1
}

func (s *constSource) Float64() float64 {
	if len(s.floats) == 0 {
		return 0
	}
	v := s.floats[0]
	s.floats = s.floats[1:]
	return v
}

func testConfig() Config {
	return Config{PopSize: 8, NoteCount: 5, SignalLength: 1000, SampleRate: 400, KeyCount: song.KeyCount}
}

func TestNewRejectsBadPopulationSize(t *testing.T) {
	for _, n := range []int{0, 6, 10, -4} {
		cfg := testConfig()
		cfg.PopSize = n
		if _, err := New(cfg, NewSource(1)); !errors.Is(err, ErrPopulationSize) {
			t.Fatalf("New(pop=%d) error = %v, want ErrPopulationSize", n, err)
		}
	}
	cfg := testConfig()
	cfg.SignalLength = 0
	if _, err := New(cfg, NewSource(1)); err == nil {
		t.Fatalf("expected error for zero signal length")
	}
}

func TestInitializeProducesValidSongs(t *testing.T) {
	e, err := New(testConfig(), NewSource(42))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	pop := e.Initialize()
	if len(pop) != 8 {
		t.Fatalf("len(pop) = %d, want 8", len(pop))
	}
	for i, s := range pop {
		if s.Len() != 5 || s.Fitness != 0 || s.Parent1 != -1 || s.Parent2 != -1 {
			t.Fatalf("song %d = %+v", i, s)
		}
		checkNotes(t, s, 1000)
	}
}

func TestSelectRoulette(t *testing.T) {
	pop := song.Population{{Fitness: 0.1}, {Fitness: 0.2}, {Fitness: 0.3}, {Fitness: 0.4}}
	cases := []struct {
		draw float64
		want int
	}{
		{0, 0},
		{0.05, 0},
		{0.25, 1},
		{0.55, 2},
		{0.99, 3},
	}
	for _, tc := range cases {
		e, _ := New(testConfig(), &constSource{floats: []float64{tc.draw}})
		got, err := e.Select(pop)
		if err != nil {
			t.Fatalf("Select: %v", err)
		}
		if got != tc.want {
			t.Fatalf("Select(draw=%v) = %d, want %d", tc.draw, got, tc.want)
		}
	}
}

func TestSelectIsUniformOverEqualFitness(t *testing.T) {
	e, err := New(testConfig(), NewSource(7))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	pop := song.Population{{Fitness: 1}, {Fitness: 1}, {Fitness: 1}, {Fitness: 1}}
	const draws = 40000
	counts := make([]int, len(pop))
	for i := 0; i < draws; i++ {
		sel, err := e.Select(pop)
		if err != nil {
			t.Fatalf("Select: %v", err)
		}
		counts[sel]++
	}
	want := draws / len(pop)
	for i, c := range counts {
		if c < want*97/100 || c > want*103/100 {
			t.Fatalf("counts = %v, index %d outside 3%% of %d", counts, i, want)
		}
	}
}

func TestSelectRejectsZeroFitness(t *testing.T) {
	e, _ := New(testConfig(), NewSource(3))
	pop := make(song.Population, 4)
	if _, err := e.Select(pop); !errors.Is(err, ErrZeroFitness) {
		t.Fatalf("Select() error = %v, want ErrZeroFitness", err)
	}
}

func TestSelectStaysInRangeOnRoundingDrift(t *testing.T) {
	pop := song.Population{{Fitness: 0.1}, {Fitness: 0.2}, {Fitness: 0.7}}
	e, _ := New(testConfig(), &constSource{floats: []float64{1}})
	got, err := e.Select(pop)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if got != 2 {
		t.Fatalf("Select() = %d, want 2", got)
	}
}

func TestSplice(t *testing.T) {
	a := song.New()
	b := song.New()
	for i := 0; i < 3; i++ {
		a.Add(song.Note{Pitch: i})
	}
	for i := 0; i < 4; i++ {
		b.Add(song.Note{Pitch: 10 + i})
	}
	e, _ := New(testConfig(), &constSource{ints: []int{2}})
	c1, c2 := e.Splice(&a, &b)
	if got := pitches(c1); !reflect.DeepEqual(got, []int{0, 1, 12, 13}) {
		t.Fatalf("child1 pitches = %v", got)
	}
	if got := pitches(c2); !reflect.DeepEqual(got, []int{10, 11, 2}) {
		t.Fatalf("child2 pitches = %v", got)
	}
	c1.Notes[0].Pitch = 99
	if a.Notes[0].Pitch != 0 {
		t.Fatalf("child shares storage with parent")
	}
}

func TestSpliceSingleNoteSongsSwapsWholeNotes(t *testing.T) {
	e, err := New(testConfig(), NewSource(11))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	a := song.New()
	a.Add(song.Note{Pitch: 1})
	b := song.New()
	b.Add(song.Note{Pitch: 2})
	seen := map[[2]int]int{}
	for i := 0; i < 1000; i++ {
		c1, c2 := e.Splice(&a, &b)
		if c1.Len() != 1 || c2.Len() != 1 {
			t.Fatalf("children have %d and %d notes", c1.Len(), c2.Len())
		}
		key := [2]int{c1.Notes[0].Pitch, c2.Notes[0].Pitch}
		if key != [2]int{1, 2} && key != [2]int{2, 1} {
			t.Fatalf("unexpected children %v", key)
		}
		seen[key]++
	}
	if seen[[2]int{1, 2}] < 400 || seen[[2]int{2, 1}] < 400 {
		t.Fatalf("split outcomes %v", seen)
	}
}

func TestSpliceConservesNotes(t *testing.T) {
	e, _ := New(testConfig(), NewSource(9))
	pop := e.Initialize()
	pop[1].Add(song.Note{Pitch: 1})
	for i := 0; i < 50; i++ {
		c1, c2 := e.Splice(&pop[0], &pop[1])
		if c1.Len()+c2.Len() != pop[0].Len()+pop[1].Len() {
			t.Fatalf("splice changed note total: %d+%d", c1.Len(), c2.Len())
		}
	}
}

func TestMutateNoteWithoutHitsKeepsNote(t *testing.T) {
	e, _ := New(testConfig(), &constSource{})
	n := song.Note{Pitch: 40, Start: 100, Duration: 50, Volume: 10}
	e.MutateNote(&n)
	if n != (song.Note{Pitch: 40, Start: 100, Duration: 50, Volume: 10}) {
		t.Fatalf("MutateNote() = %+v, want unchanged", n)
	}
}

func TestMutateNoteAllHits(t *testing.T) {
	e, _ := New(testConfig(), &constSource{zero: true})
	n := song.Note{Pitch: 40, Start: 100, Duration: 50, Volume: 10}
	e.MutateNote(&n)
	// Random re-pitch draws 0; every start and duration bit flips, so the
	// duration is clamped to the signal and the note moved to 0; every
	// volume bit flips.
	want := song.Note{Pitch: 0, Start: 0, Duration: 1000, Volume: 245}
	if n != want {
		t.Fatalf("MutateNote() = %+v, want %+v", n, want)
	}
}

func TestMutateNoteRepairsOverrun(t *testing.T) {
	e, _ := New(testConfig(), &constSource{})
	n := song.Note{Pitch: 40, Start: 990, Duration: 50, Volume: 10}
	e.MutateNote(&n)
	if n.Start != 950 || n.End() != 1000 {
		t.Fatalf("MutateNote() = %+v, want start 950", n)
	}
}

func TestMutateSongAddsThenRemoves(t *testing.T) {
	e, _ := New(testConfig(), &constSource{zero: true})
	s := song.New()
	s.Add(song.Note{Pitch: 30, Start: 10, Duration: 10, Volume: 1})
	s.Add(song.Note{Pitch: 50, Start: 20, Duration: 10, Volume: 2})
	e.MutateSong(&s)
	if s.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", s.Len())
	}
	if s.Notes[1] != (song.Note{}) {
		t.Fatalf("appended note = %+v, want zero note", s.Notes[1])
	}
}

func TestNextKeepsNotesInRange(t *testing.T) {
	cfg := testConfig()
	cfg.PopSize = 16
	e, err := New(cfg, NewSource(7))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	pop := e.Initialize()
	for gen := 0; gen < 30; gen++ {
		for i := range pop {
			pop[i].Fitness = 1 / float64(1+pop[i].Len()+i)
		}
		before := pop.Clone()
		next, err := e.Next(pop)
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if !reflect.DeepEqual(before, pop) {
			t.Fatalf("generation %d: Next modified its input", gen)
		}
		if len(next) != cfg.PopSize {
			t.Fatalf("len(next) = %d, want %d", len(next), cfg.PopSize)
		}
		for i, s := range next {
			if s.Parent1 < 0 || s.Parent1 >= cfg.PopSize || s.Parent2 < 0 || s.Parent2 >= cfg.PopSize {
				t.Fatalf("song %d parents %d,%d out of range", i, s.Parent1, s.Parent2)
			}
			if s.Fitness != 0 {
				t.Fatalf("song %d carries fitness %v", i, s.Fitness)
			}
			checkNotes(t, s, cfg.SignalLength)
		}
		for i := 0; i < cfg.PopSize; i += 4 {
			for j := 1; j < 4; j++ {
				if next[i+j].Parent1 != next[i].Parent1 || next[i+j].Parent2 != next[i].Parent2 {
					t.Fatalf("children %d..%d do not share parents", i, i+3)
				}
			}
		}
		pop = next
	}
}

func TestNextIsReproducibleForSeed(t *testing.T) {
	run := func() song.Population {
		e, _ := New(testConfig(), NewSource(1234))
		pop := e.Initialize()
		for g := 0; g < 5; g++ {
			for i := range pop {
				pop[i].Fitness = float64(i + 1)
			}
			next, err := e.Next(pop)
			if err != nil {
				t.Fatalf("Next: %v", err)
			}
			pop = next
		}
		return pop
	}
	if a, b := run(), run(); !reflect.DeepEqual(a, b) {
		t.Fatalf("same seed produced different populations")
	}
}

func TestNextRejectsZeroFitness(t *testing.T) {
	e, _ := New(testConfig(), NewSource(5))
	pop := e.Initialize()
	if _, err := e.Next(pop); !errors.Is(err, ErrZeroFitness) {
		t.Fatalf("Next() error = %v, want ErrZeroFitness", err)
	}
}

func checkNotes(t *testing.T, s song.Song, length int) {
	t.Helper()
	for j, n := range s.Notes {
		if n.Pitch < 0 || n.Pitch >= song.KeyCount {
			t.Fatalf("note %d pitch %d out of range", j, n.Pitch)
		}
		if n.Start < 0 || n.Duration < 0 || n.End() > length {
			t.Fatalf("note %d = %+v outside [0,%d]", j, n, length)
		}
		if n.Volume < 0 || n.Volume > 255 {
			t.Fatalf("note %d volume %d out of range", j, n.Volume)
		}
	}
}

func pitches(s song.Song) []int {
	out := make([]int, len(s.Notes))
	for i, n := range s.Notes {
		out[i] = n.Pitch
	}
	return out
}
