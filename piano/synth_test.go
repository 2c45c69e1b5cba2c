package piano

import (
	"testing"
)

func TestSynthesizeLayout(t *testing.T) {
	opts := DefaultSynthOptions(4000)
	opts.Keys = 40
	lib, err := Synthesize(opts)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if lib.KeyCount() != 40 || lib.BitDepth != 16 {
		t.Fatalf("keys=%d depth=%d", lib.KeyCount(), lib.BitDepth)
	}
	limit := int(opts.Peak*32767) + 1
	for _, k := range []int{0, 20, 39} {
		rec := lib.Note(k)
		if len(rec) != 4000*RecordingSeconds {
			t.Fatalf("key %d: len %d", k, len(rec))
		}
		for i := 0; i < 4000*OnsetSeconds; i++ {
			if rec[i] != 0 {
				t.Fatalf("key %d: sample %d = %d before onset", k, i, rec[i])
			}
		}
		var peak, early, late int
		for i, v := range rec {
			if v < 0 {
				v = -v
			}
			peak = max(peak, v)
			switch {
			case i >= 4000 && i < 6000:
				early = max(early, v)
			case i >= 36000:
				late = max(late, v)
			}
		}
		if peak == 0 || peak > limit {
			t.Fatalf("key %d: peak %d outside (0,%d]", k, peak, limit)
		}
		if late >= early {
			t.Fatalf("key %d: no decay (early %d, late %d)", k, early, late)
		}
	}
}

func TestSynthesizeAboveNyquistIsSilent(t *testing.T) {
	opts := DefaultSynthOptions(200)
	opts.Keys = 88
	lib, err := Synthesize(opts)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	// key 87 is about 4186 Hz, far above 100 Hz.
	for i, v := range lib.Note(87) {
		if v != 0 {
			t.Fatalf("sample %d = %d, want silence", i, v)
		}
	}
}

func TestSynthesizeRejectsBadOptions(t *testing.T) {
	bad := []SynthOptions{
		{SampleRate: 0, Keys: 1, Partials: 1, Peak: 0.5, Decay: 1},
		{SampleRate: 100, Keys: 0, Partials: 1, Peak: 0.5, Decay: 1},
		{SampleRate: 100, Keys: 1, Partials: 1, Peak: 2, Decay: 1},
		{SampleRate: 100, Keys: 1, Partials: 1, Peak: 0.5, Decay: 0},
		{SampleRate: 100, Keys: 1, Partials: 1, Peak: 0.5, Decay: 1, Brightness: -1},
	}
	for i, opts := range bad {
		if _, err := Synthesize(opts); err == nil {
			t.Fatalf("case %d: expected error", i)
		}
	}
}

func TestKeyToFreq(t *testing.T) {
	cases := []struct {
		key  int
		want float32
	}{
		{0, 27.5},
		{12, 55},
		{48, 440},
	}
	for _, tc := range cases {
		got := keyToFreq(tc.key)
		if d := got - tc.want; d > tc.want*0.02 || d < -tc.want*0.02 {
			t.Fatalf("keyToFreq(%d) = %v, want %v", tc.key, got, tc.want)
		}
	}
}
