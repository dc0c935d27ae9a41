package tui

import (
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/verte-zerg/clickpace/internal/model"
)

const (
	singleGlyph = '●'
	doubleGlyph = '◆'
	tapeGroup   = 5
)

type styledGlyph struct {
	s       string
	width   int
	isSpace bool
}

// buildTape renders each event as a glyph, grouped by tapeGroup with a space
// between groups. The newest group is highlighted and the newest glyph
// underlined.
func buildTape(events []model.Event, thresholdMs float64) []styledGlyph {
	if len(events) == 0 {
		return nil
	}
	current := groupFor(len(events) - 1)
	out := make([]styledGlyph, 0, len(events)+len(events)/tapeGroup)
	for i, ev := range events {
		if i > 0 && i%tapeGroup == 0 {
			out = append(out, styledGlyph{s: " ", width: 1, isSpace: true})
		}
		glyph := singleGlyph
		style := singleStyle
		if i > 0 && ev.DelayMs < thresholdMs {
			glyph = doubleGlyph
			style = doubleStyle
		}
		if groupFor(i) != current {
			style = pastStyle
			if glyph == doubleGlyph {
				style = pastDoubleStyle
			}
		}
		if i == len(events)-1 {
			style = style.Underline(true)
		}
		out = append(out, styledGlyph{
			s:     style.Render(string(glyph)),
			width: runewidth.RuneWidth(glyph),
		})
	}
	return out
}

func groupFor(i int) int {
	return i / tapeGroup
}

func renderGlyphs(glyphs []styledGlyph) string {
	var b strings.Builder
	for _, item := range glyphs {
		b.WriteString(item.s)
	}
	return b.String()
}

// wrapGlyphs breaks the tape at group boundaries so no line exceeds width.
func wrapGlyphs(glyphs []styledGlyph, width int) string {
	if width <= 0 {
		return renderGlyphs(glyphs)
	}
	var out strings.Builder
	line := make([]styledGlyph, 0, len(glyphs))
	lineWidth := 0
	lastSpaceIdx := -1

	for i := 0; i < len(glyphs); {
		item := glyphs[i]
		if lineWidth+item.width > width && len(line) > 0 {
			if lastSpaceIdx >= 0 {
				out.WriteString(renderGlyphs(line[:lastSpaceIdx]))
				out.WriteRune('\n')
				line = append([]styledGlyph{}, line[lastSpaceIdx+1:]...)
				lineWidth = lineWidthOf(line)
				lastSpaceIdx = lastSpaceIndex(line)
			} else {
				out.WriteString(renderGlyphs(line))
				out.WriteRune('\n')
				line = line[:0]
				lineWidth = 0
				lastSpaceIdx = -1
			}
			continue
		}
		line = append(line, item)
		lineWidth += item.width
		if item.isSpace {
			lastSpaceIdx = len(line) - 1
		}
		i++
	}
	out.WriteString(renderGlyphs(line))
	return out.String()
}

// tailLines keeps the last n lines of a wrapped tape.
func tailLines(s string, n int) string {
	if n <= 0 {
		return s
	}
	lines := strings.Split(s, "\n")
	if len(lines) <= n {
		return s
	}
	return strings.Join(lines[len(lines)-n:], "\n")
}

func lineWidthOf(line []styledGlyph) int {
	total := 0
	for _, item := range line {
		total += item.width
	}
	return total
}

func lastSpaceIndex(line []styledGlyph) int {
	for i := len(line) - 1; i >= 0; i-- {
		if line[i].isSpace {
			return i
		}
	}
	return -1
}
