package fitcommon

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/cwbudde/wav"
	"github.com/go-audio/audio"
)

func TestParseWorkers(t *testing.T) {
	cases := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"auto", 0, false},
		{" AUTO ", 0, false},
		{"4", 4, false},
		{"0", 0, true},
		{"-2", 0, true},
		{"", 0, true},
		{"many", 0, true},
	}
	for _, tc := range cases {
		got, err := ParseWorkers(tc.in)
		if (err != nil) != tc.wantErr || got != tc.want {
			t.Fatalf("ParseWorkers(%q) = %d, %v", tc.in, got, err)
		}
	}
}

func TestClamp(t *testing.T) {
	if got := Clamp(5, 0, 3); got != 3 {
		t.Fatalf("Clamp(5,0,3) = %d, want 3", got)
	}
	if got := Clamp(-0.5, 0.0, 1.0); got != 0 {
		t.Fatalf("Clamp(-0.5,0,1) = %v, want 0", got)
	}
	if MinOf(2, 7) != 2 || MaxOf(2, 7) != 7 {
		t.Fatalf("MinOf/MaxOf mismatch")
	}
}

func TestWriteReadMonoRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "tone.wav")
	const sr = 8000
	data := make([]int, sr/4)
	for i := range data {
		data[i] = int(math.Round(12000 * math.Sin(2*math.Pi*440*float64(i)/sr)))
	}
	if err := WriteMonoWAV(path, data, sr, 16); err != nil {
		t.Fatalf("WriteMonoWAV: %v", err)
	}
	sig, err := ReadWAV(path)
	if err != nil {
		t.Fatalf("ReadWAV: %v", err)
	}
	if sig.SampleRate != sr || sig.Channels != 1 || sig.BitDepth != 16 {
		t.Fatalf("header mismatch: %+v", sig)
	}
	if len(sig.Samples) != len(data) {
		t.Fatalf("len(Samples) = %d, want %d", len(sig.Samples), len(data))
	}
	for i := range data {
		if d := sig.Samples[i] - data[i]; d > 2 || d < -2 {
			t.Fatalf("sample %d = %d, want %d", i, sig.Samples[i], data[i])
		}
	}
	if math.Abs(sig.Duration()-0.25) > 1e-12 {
		t.Fatalf("Duration() = %v, want 0.25", sig.Duration())
	}
}

func TestReadWAVSumsChannelsAtSourceScale(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stereo.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	left := []float32{0.5, -0.25, 0, 0.125}
	right := []float32{0.25, -0.25, 0.5, 0}
	data := make([]float32, 0, 2*len(left))
	for i := range left {
		data = append(data, left[i], right[i])
	}
	enc := wav.NewEncoder(f, 8000, 16, 2, 1)
	buf := &audio.Float32Buffer{
		Format:         &audio.Format{SampleRate: 8000, NumChannels: 2},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	f.Close()

	sig, err := ReadWAV(path)
	if err != nil {
		t.Fatalf("ReadWAV: %v", err)
	}
	if sig.Channels != 2 || len(sig.Samples) != len(left) {
		t.Fatalf("channels=%d frames=%d", sig.Channels, len(sig.Samples))
	}
	for i := range left {
		want := int(math.Round(float64(left[i]+right[i]) * 32768))
		if d := sig.Samples[i] - want; d > 2 || d < -2 {
			t.Fatalf("frame %d = %d, want %d", i, sig.Samples[i], want)
		}
	}
}

func TestReadWAVRejectsExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tone.mp3")
	if err := os.WriteFile(path, []byte("RIFF"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := ReadWAV(path); err == nil {
		t.Fatalf("expected error for non-wav extension")
	}
}

func TestReadWAVRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "junk.wav")
	if err := os.WriteFile(path, []byte("definitely not a riff file"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := ReadWAV(path); err == nil {
		t.Fatalf("expected error for invalid wav")
	}
}

func TestWriteMonoWAVRejectsDepth(t *testing.T) {
	err := WriteMonoWAV(filepath.Join(t.TempDir(), "x.wav"), []int{1}, 8000, 4)
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("WriteMonoWAV() error = %v, want ErrUnsupportedFormat", err)
	}
}

func TestResampleIfNeededSameRate(t *testing.T) {
	in := []int{1, 2, 3}
	out, err := ResampleIfNeeded(in, 8000, 8000)
	if err != nil {
		t.Fatalf("ResampleIfNeeded: %v", err)
	}
	if &out[0] != &in[0] {
		t.Fatalf("same-rate resample copied the signal")
	}
}

func TestResampleIfNeededChangesLength(t *testing.T) {
	in := make([]int, 8000)
	for i := range in {
		in[i] = int(1000 * math.Sin(2*math.Pi*100*float64(i)/8000))
	}
	out, err := ResampleIfNeeded(in, 8000, 16000)
	if err != nil {
		t.Fatalf("ResampleIfNeeded: %v", err)
	}
	if len(out) < 15000 || len(out) > 17000 {
		t.Fatalf("len(out) = %d, want about 16000", len(out))
	}
}
