package song

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// WriteText writes the human-readable song report. Times are printed in
// seconds at sampleRate with millisecond precision.
func WriteText(w io.Writer, s Song, sampleRate int) error {
	if sampleRate <= 0 {
		return fmt.Errorf("invalid sample rate %d", sampleRate)
	}
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "Parents: %d, %d\r\n", s.Parent1, s.Parent2)
	fmt.Fprintf(bw, "Fitness: %E\r\n", s.Fitness)
	fmt.Fprintf(bw, "Size: %d\r\n", len(s.Notes))
	sr := float64(sampleRate)
	for _, n := range s.Notes {
		fmt.Fprintf(bw, "[pitch=%d, start=%.3f, dur = %.3f, volume=%d]\r\n",
			n.Pitch, float64(n.Start)/sr, float64(n.Duration)/sr, n.Volume)
	}
	return bw.Flush()
}

// ParseText reads a report produced by WriteText. Start and duration are
// converted back to samples at sampleRate, so they are only as exact as the
// printed millisecond values.
func ParseText(r io.Reader, sampleRate int) (Song, error) {
	if sampleRate <= 0 {
		return Song{}, fmt.Errorf("invalid sample rate %d", sampleRate)
	}
	s := New()
	size := -1
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		switch {
		case strings.HasPrefix(text, "Parents:"):
			parts := strings.Split(strings.TrimPrefix(text, "Parents:"), ",")
			if len(parts) != 2 {
				return Song{}, fmt.Errorf("line %d: malformed parents %q", line, text)
			}
			p1, err1 := strconv.Atoi(strings.TrimSpace(parts[0]))
			p2, err2 := strconv.Atoi(strings.TrimSpace(parts[1]))
			if err1 != nil || err2 != nil {
				return Song{}, fmt.Errorf("line %d: malformed parents %q", line, text)
			}
			s.Parent1, s.Parent2 = p1, p2
		case strings.HasPrefix(text, "Fitness:"):
			f, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimPrefix(text, "Fitness:")), 64)
			if err != nil {
				return Song{}, fmt.Errorf("line %d: malformed fitness: %w", line, err)
			}
			s.Fitness = f
		case strings.HasPrefix(text, "Size:"):
			n, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(text, "Size:")))
			if err != nil || n < 0 {
				return Song{}, fmt.Errorf("line %d: malformed size %q", line, text)
			}
			size = n
		case strings.HasPrefix(text, "["):
			n, err := parseNote(text, sampleRate)
			if err != nil {
				return Song{}, fmt.Errorf("line %d: %w", line, err)
			}
			s.Add(n)
		default:
			return Song{}, fmt.Errorf("line %d: unexpected content %q", line, text)
		}
	}
	if err := sc.Err(); err != nil {
		return Song{}, err
	}
	if size >= 0 && size != len(s.Notes) {
		return Song{}, fmt.Errorf("size header says %d notes, found %d", size, len(s.Notes))
	}
	return s, nil
}

func parseNote(text string, sampleRate int) (Note, error) {
	if !strings.HasSuffix(text, "]") {
		return Note{}, fmt.Errorf("unterminated note %q", text)
	}
	body := strings.TrimSuffix(strings.TrimPrefix(text, "["), "]")
	var n Note
	seen := 0
	for _, field := range strings.Split(body, ",") {
		key, val, ok := strings.Cut(field, "=")
		if !ok {
			return Note{}, fmt.Errorf("malformed note field %q", field)
		}
		key = strings.TrimSpace(key)
		val = strings.TrimSpace(val)
		switch key {
		case "pitch", "volume":
			v, err := strconv.Atoi(val)
			if err != nil {
				return Note{}, fmt.Errorf("note %s: %w", key, err)
			}
			if key == "pitch" {
				n.Pitch = v
			} else {
				n.Volume = v
			}
		case "start", "dur":
			sec, err := strconv.ParseFloat(val, 64)
			if err != nil {
				return Note{}, fmt.Errorf("note %s: %w", key, err)
			}
			samples := int(math.Round(sec * float64(sampleRate)))
			if key == "start" {
				n.Start = samples
			} else {
				n.Duration = samples
			}
		default:
			return Note{}, fmt.Errorf("unknown note field %q", key)
		}
		seen++
	}
	if seen != 4 {
		return Note{}, fmt.Errorf("note %q: want 4 fields, got %d", text, seen)
	}
	return n, nil
}
