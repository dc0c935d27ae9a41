package tui

import (
	"strings"
	"testing"
	"time"

	"github.com/verte-zerg/clickpace/internal/model"
)

func eventsWithDelays(delays ...float64) []model.Event {
	start := time.Unix(0, 0)
	events := []model.Event{{Index: 1, Timestamp: start}}
	ts := start
	for i, d := range delays {
		ts = ts.Add(time.Duration(d * float64(time.Millisecond)))
		events = append(events, model.Event{Index: i + 2, Timestamp: ts, DelayMs: d})
	}
	return events
}

func TestBuildTapeMarksDoubles(t *testing.T) {
	tape := buildTape(eventsWithDelays(120, 30), 50)
	if len(tape) != 3 {
		t.Fatalf("expected 3 glyphs, got %d", len(tape))
	}
	if tape[0].s != singleStyle.Render(string(singleGlyph)) {
		t.Fatalf("expected single glyph for first event")
	}
	if tape[1].s != singleStyle.Render(string(singleGlyph)) {
		t.Fatalf("expected single glyph for slow event")
	}
	if tape[2].s != doubleStyle.Underline(true).Render(string(doubleGlyph)) {
		t.Fatalf("expected underlined double glyph for newest event")
	}
}

func TestBuildTapeGroupsAndDimsOldGroups(t *testing.T) {
	tape := buildTape(eventsWithDelays(100, 100, 100, 100, 100, 100), 50)
	if len(tape) != 8 {
		t.Fatalf("expected 7 glyphs and one separator, got %d", len(tape))
	}
	if !tape[5].isSpace {
		t.Fatalf("expected separator after first group")
	}
	if tape[0].s != pastStyle.Render(string(singleGlyph)) {
		t.Fatalf("expected dimmed glyph for previous group")
	}
	if tape[6].s != singleStyle.Render(string(singleGlyph)) {
		t.Fatalf("expected current style in newest group")
	}
}

func TestBuildTapeFirstEventNeverDouble(t *testing.T) {
	tape := buildTape(eventsWithDelays(), 50)
	if len(tape) != 1 || tape[0].s != singleStyle.Underline(true).Render(string(singleGlyph)) {
		t.Fatalf("unexpected tape for single event: %+v", tape)
	}
	if buildTape(nil, 50) != nil {
		t.Fatalf("expected nil tape for no events")
	}
}

func TestWrapGlyphsBreaksAtGroups(t *testing.T) {
	plain := func(n int) []styledGlyph {
		var out []styledGlyph
		for i := 0; i < n; i++ {
			if i > 0 && i%tapeGroup == 0 {
				out = append(out, styledGlyph{s: " ", width: 1, isSpace: true})
			}
			out = append(out, styledGlyph{s: "x", width: 1})
		}
		return out
	}
	got := wrapGlyphs(plain(15), 12)
	want := "xxxxx xxxxx\nxxxxx"
	if got != want {
		t.Fatalf("unexpected wrap:\n%q\nwant\n%q", got, want)
	}
	if wrapGlyphs(plain(7), 3) != "xxx\nxx\nxx" {
		t.Fatalf("expected hard break inside a group: %q", wrapGlyphs(plain(7), 3))
	}
	if wrapGlyphs(plain(3), 0) != "xxx" {
		t.Fatalf("expected no wrap for zero width")
	}
}

func TestTailLines(t *testing.T) {
	if got := tailLines("a\nb\nc", 2); got != "b\nc" {
		t.Fatalf("unexpected tail: %q", got)
	}
	if got := tailLines("a", 3); got != "a" {
		t.Fatalf("unexpected tail: %q", got)
	}
	if !strings.Contains(tailLines("a\nb", 0), "a") {
		t.Fatalf("expected untouched input for n=0")
	}
}
