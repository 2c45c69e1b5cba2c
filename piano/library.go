// Package piano renders songs by mixing prerecorded single-note samples.
package piano

import (
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"strconv"
	"sync"

	"github.com/cwbudde/algo-transcribe/internal/fitcommon"
	"github.com/cwbudde/algo-transcribe/song"
)

const (
	// RecordingSeconds is the length of every note recording.
	RecordingSeconds = 10
	// OnsetSeconds is where the note starts sounding within its recording.
	OnsetSeconds = 1
)

var (
	// ErrMissingNote is returned when a note recording is absent or unusable.
	ErrMissingNote = errors.New("missing note recording")
	// ErrClosed is returned when rendering with a released library.
	ErrClosed = errors.New("note library closed")
)

// Library holds one recording per piano key, all at SampleRate.
type Library struct {
	SampleRate int
	// BitDepth is the sample scale of the recordings.
	BitDepth int

	mu     sync.RWMutex
	notes  [][]int
	closed bool
}

// NewLibrary wraps in-memory recordings. notes[k] is the recording of key k.
func NewLibrary(sampleRate, bitDepth int, notes [][]int) (*Library, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate %d", sampleRate)
	}
	if len(notes) == 0 {
		return nil, fmt.Errorf("%w: empty library", ErrMissingNote)
	}
	for k, rec := range notes {
		if len(rec) == 0 {
			return nil, fmt.Errorf("%w: key %d has no samples", ErrMissingNote, k)
		}
	}
	return &Library{SampleRate: sampleRate, BitDepth: bitDepth, notes: notes}, nil
}

// NotePath returns the file name of key k inside dir.
func NotePath(dir string, key int) string {
	return filepath.Join(dir, strconv.Itoa(key)+".wav")
}

// LoadLibrary reads 0.wav .. (song.KeyCount-1).wav from dir. Every file must
// share one sample rate.
func LoadLibrary(dir string) (*Library, error) {
	return LoadLibraryKeys(dir, song.KeyCount)
}

// LoadLibraryKeys reads keys 0..keys-1 from dir, decoding files in parallel.
func LoadLibraryKeys(dir string, keys int) (*Library, error) {
	if keys <= 0 {
		return nil, fmt.Errorf("invalid key count %d", keys)
	}
	sigs := make([]*fitcommon.Signal, keys)
	errs := make([]error, keys)

	jobs := make(chan int)
	var wg sync.WaitGroup
	workers := fitcommon.MinOf(runtime.GOMAXPROCS(0), keys)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for k := range jobs {
				sigs[k], errs[k] = fitcommon.ReadWAV(NotePath(dir, k))
			}
		}()
	}
	for k := 0; k < keys; k++ {
		jobs <- k
	}
	close(jobs)
	wg.Wait()

	notes := make([][]int, keys)
	for k := 0; k < keys; k++ {
		if errs[k] != nil {
			return nil, fmt.Errorf("%w: key %d: %v", ErrMissingNote, k, errs[k])
		}
		if sigs[k].SampleRate != sigs[0].SampleRate {
			return nil, fmt.Errorf("%w: key %d is %d Hz, key 0 is %d Hz",
				ErrMissingNote, k, sigs[k].SampleRate, sigs[0].SampleRate)
		}
		notes[k] = sigs[k].Samples
	}
	return NewLibrary(sigs[0].SampleRate, sigs[0].BitDepth, notes)
}

// Save writes every recording to dir as <key>.wav.
func (l *Library) Save(dir string) error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		return ErrClosed
	}
	for k, rec := range l.notes {
		if err := fitcommon.WriteMonoWAV(NotePath(dir, k), rec, l.SampleRate, l.BitDepth); err != nil {
			return fmt.Errorf("key %d: %w", k, err)
		}
	}
	return nil
}

// KeyCount returns the number of recordings.
func (l *Library) KeyCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.notes)
}

// Note returns the recording of key k, or nil if out of range or closed.
// The slice is shared and must not be modified.
func (l *Library) Note(k int) []int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed || k < 0 || k >= len(l.notes) {
		return nil
	}
	return l.notes[k]
}

// Close releases the recordings. Later renders fail with ErrClosed.
func (l *Library) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.notes = nil
	l.closed = true
	return nil
}
