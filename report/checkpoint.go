package report

import (
	"sync"
	"time"

	"github.com/bep/debounce"

	"github.com/cwbudde/algo-transcribe/song"
)

// Checkpointer persists the best song so far as a text file. Updates are
// debounced so a burst of improvements produces one write.
type Checkpointer struct {
	path       string
	sampleRate int
	debounced  func(func())

	mu      sync.Mutex
	pending *song.Song
	writes  int
	err     error
}

// NewCheckpointer writes to path at most once per quiet period after.
func NewCheckpointer(path string, sampleRate int, after time.Duration) *Checkpointer {
	return &Checkpointer{
		path:       path,
		sampleRate: sampleRate,
		debounced:  debounce.New(after),
	}
}

// Update records s as the latest best song and schedules a write.
func (c *Checkpointer) Update(s song.Song) {
	cl := s.Clone()
	c.mu.Lock()
	c.pending = &cl
	c.mu.Unlock()
	c.debounced(func() { _ = c.write() })
}

// Flush writes any pending song synchronously and returns the first error
// seen by any write.
func (c *Checkpointer) Flush() error {
	_ = c.write()
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Writes returns how many files have been written.
func (c *Checkpointer) Writes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.writes
}

func (c *Checkpointer) write() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending == nil {
		return nil
	}
	err := WriteSongText(c.path, *c.pending, c.sampleRate)
	if err != nil {
		if c.err == nil {
			c.err = err
		}
		return err
	}
	c.pending = nil
	c.writes++
	return nil
}
