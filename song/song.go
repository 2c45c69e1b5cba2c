// Package song holds the note-event model evolved by the transcriber.
package song

// KeyCount is the number of piano keys. Pitch 0 is A0 (27.5 Hz).
const KeyCount = 88

// Note is a single piano note event. Start and Duration are in samples at the
// library sample rate, Volume is 0..255.
type Note struct {
	Pitch    int `json:"pitch"`
	Start    int `json:"start"`
	Duration int `json:"duration"`
	Volume   int `json:"volume"`
}

// End returns the sample index one past the note's nominal end.
func (n Note) End() int {
	return n.Start + n.Duration
}

// Song is an unordered collection of notes plus its evaluation state.
// Parent1 and Parent2 index the previous generation; -1 marks a random song.
type Song struct {
	Notes   []Note  `json:"notes"`
	Fitness float64 `json:"fitness"`
	Parent1 int     `json:"parent1"`
	Parent2 int     `json:"parent2"`
}

// New returns an empty song without parents.
func New() Song {
	return Song{Parent1: -1, Parent2: -1}
}

// Len returns the number of notes.
func (s *Song) Len() int {
	return len(s.Notes)
}

// Add appends a note.
func (s *Song) Add(n Note) {
	s.Notes = append(s.Notes, n)
}

// Remove deletes the note at index i, preserving the order of the others.
// Out-of-range indices are ignored.
func (s *Song) Remove(i int) {
	if i < 0 || i >= len(s.Notes) {
		return
	}
	s.Notes = append(s.Notes[:i], s.Notes[i+1:]...)
}

// Clone returns a deep copy.
func (s Song) Clone() Song {
	c := s
	if s.Notes != nil {
		c.Notes = make([]Note, len(s.Notes))
		copy(c.Notes, s.Notes)
	}
	return c
}

// Population is one generation of songs.
type Population []Song

// Clone returns a deep copy of every song.
func (p Population) Clone() Population {
	out := make(Population, len(p))
	for i := range p {
		out[i] = p[i].Clone()
	}
	return out
}

// Fitnesses returns the fitness of every member in order.
func (p Population) Fitnesses() []float64 {
	out := make([]float64, len(p))
	for i := range p {
		out[i] = p[i].Fitness
	}
	return out
}

// Best returns the index of the fittest song, the lowest index on ties.
// It returns -1 for an empty population.
func (p Population) Best() int {
	best := -1
	for i := range p {
		if best < 0 || p[i].Fitness > p[best].Fitness {
			best = i
		}
	}
	return best
}
