package profiler

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestFrameStatsAdd(t *testing.T) {
	var s FrameStats
	s.Add(FrameStats{Visible: 2, Draws: 2, Rebuilds: 1, EntityCapacity: 4, LightCapacity: 1, Duration: time.Millisecond})
	s.Add(FrameStats{Visible: 3, Draws: 3, Resizes: 1, EntityCapacity: 6, LightCapacity: 1, Duration: time.Millisecond})

	want := FrameStats{Visible: 5, Draws: 5, Rebuilds: 1, Resizes: 1, EntityCapacity: 6, LightCapacity: 1, Duration: 2 * time.Millisecond}
	if s != want {
		t.Errorf("Add() = %+v, want %+v", s, want)
	}
}

func TestProfilerTick(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	now := time.Unix(0, 0)
	p := NewProfiler(
		WithLogger(logger),
		WithUpdateInterval(time.Second),
		WithClock(func() time.Time { return now }),
	)

	p.Record(FrameStats{Visible: 1, Draws: 1, Rebuilds: 1})
	now = now.Add(500 * time.Millisecond)
	if p.Tick() {
		t.Fatal("Tick() = true before the interval elapsed")
	}
	if buf.Len() != 0 {
		t.Fatalf("logged %q before the interval elapsed", buf.String())
	}

	p.Record(FrameStats{Visible: 2, Draws: 2})
	now = now.Add(500 * time.Millisecond)
	if !p.Tick() {
		t.Fatal("Tick() = false after the interval elapsed")
	}
	out := buf.String()
	for _, want := range []string{"profiler.fps=2", "profiler.raymarch.draws=3", "profiler.raymarch.rebuilds=1"} {
		if !strings.Contains(out, want) {
			t.Errorf("log line %q does not contain %q", out, want)
		}
	}
	if got := p.Interval(); got != (FrameStats{}) {
		t.Errorf("Interval() after logging = %+v, want zero", got)
	}
}
