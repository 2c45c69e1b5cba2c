package report

import (
	"fmt"
	"math"
	"sort"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/cwbudde/algo-transcribe/internal/fitcommon"
	"github.com/cwbudde/algo-transcribe/song"
)

const (
	// TicksPerQuarter is the MIDI time resolution.
	TicksPerQuarter = 960
	// TempoBPM is the fixed tempo of exported files.
	TempoBPM = 120
	// KeyOffset maps pitch 0 (A0) to MIDI key 21.
	KeyOffset = 21
)

type midiEvent struct {
	tick uint32
	on   bool
	key  uint8
	vel  uint8
}

// WriteMIDI exports s as a single-track standard MIDI file. Note times are
// converted from samples at sampleRate; velocity is volume/2 clamped to
// 1..127.
func WriteMIDI(path string, s song.Song, sampleRate int) error {
	if sampleRate <= 0 {
		return fmt.Errorf("invalid sample rate %d", sampleRate)
	}
	events := midiEvents(s, sampleRate)

	var tr smf.Track
	tr.Add(0, smf.MetaTempo(TempoBPM))
	var last uint32
	for _, ev := range events {
		delta := ev.tick - last
		last = ev.tick
		if ev.on {
			tr.Add(delta, midi.NoteOn(0, ev.key, ev.vel))
		} else {
			tr.Add(delta, midi.NoteOff(0, ev.key))
		}
	}
	tr.Close(0)

	f := smf.New()
	f.TimeFormat = smf.MetricTicks(TicksPerQuarter)
	if err := f.Add(tr); err != nil {
		return err
	}
	return f.WriteFile(path)
}

// midiEvents returns note on/off events ordered by tick, note-offs first on
// equal ticks.
func midiEvents(s song.Song, sampleRate int) []midiEvent {
	ticksPerSample := float64(TicksPerQuarter) * TempoBPM / 60 / float64(sampleRate)
	toTick := func(samples int) uint32 {
		return uint32(math.Round(float64(fitcommon.MaxOf(samples, 0)) * ticksPerSample))
	}
	events := make([]midiEvent, 0, 2*len(s.Notes))
	for _, n := range s.Notes {
		key := uint8(fitcommon.Clamp(n.Pitch+KeyOffset, 0, 127))
		vel := uint8(fitcommon.Clamp(n.Volume/2, 1, 127))
		events = append(events,
			midiEvent{tick: toTick(n.Start), on: true, key: key, vel: vel},
			midiEvent{tick: toTick(n.End()), key: key},
		)
	}
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].tick != events[j].tick {
			return events[i].tick < events[j].tick
		}
		return !events[i].on && events[j].on
	})
	return events
}
