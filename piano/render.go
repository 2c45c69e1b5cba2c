package piano

import (
	"fmt"

	"github.com/cwbudde/algo-transcribe/song"
)

// Render returns a length-sample signal with every note of s mixed in.
func (l *Library) Render(s *song.Song, length int) ([]int, error) {
	if length < 0 {
		return nil, fmt.Errorf("invalid render length %d", length)
	}
	out := make([]int, length)
	if err := l.RenderInto(out, s); err != nil {
		return nil, err
	}
	return out, nil
}

// RenderInto overwrites dst with the mix of s. Recording sample j of a note
// lands at start+j-SampleRate, so the onset one second into the recording
// aligns with the note start. At most duration plus one second of the
// recording is used, scaled by (volume+1)/256. Mixed values are not clipped.
func (l *Library) RenderInto(dst []int, s *song.Song) error {
	for i := range dst {
		dst[i] = 0
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		return ErrClosed
	}
	fs := l.SampleRate
	limit := fs * RecordingSeconds
	length := len(dst)
	for _, n := range s.Notes {
		if n.Pitch < 0 || n.Pitch >= len(l.notes) {
			return fmt.Errorf("%w: pitch %d outside 0..%d", ErrMissingNote, n.Pitch, len(l.notes)-1)
		}
		rec := l.notes[n.Pitch]
		gain := n.Volume + 1
		for j := 0; j < n.Duration+fs && j < limit && j < len(rec) && j+n.Start < length; j++ {
			offset := j + n.Start - fs
			if offset < 0 {
				continue
			}
			dst[offset] += (rec[j] * gain) >> 8
		}
	}
	return nil
}
