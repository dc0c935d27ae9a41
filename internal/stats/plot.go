package stats

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"
	"golang.org/x/term"
)

// Series represents a named data series for plotting.
type Series struct {
	Name   string
	Values []float64
}

const (
	defaultPlotHeight   = 10
	minPlotWidth        = 10
	axisLabelWidth      = 7
	axisSeparator       = " │ "
	scaleNote           = "Scaled per series; see min/max below."
	terminalWidthBackup = 80
	barRune             = "█"
)

var dashPeriods = []struct{ period, on int }{
	{1, 1},
	{6, 3},
	{4, 1},
}

var palette = []color.Attribute{color.FgCyan, color.FgMagenta, color.FgYellow, color.FgGreen}

// braille dot bits indexed by [y][x] within a 2x4 cell.
var brailleBits = [4][2]uint8{
	{0x01, 0x08},
	{0x02, 0x10},
	{0x04, 0x20},
	{0x40, 0x80},
}

// PlotSeries renders a braille line plot for the provided series.
func PlotSeries(w io.Writer, title string, series []Series, width, height int) error {
	return plotSeries(w, title, series, width, height, false)
}

// PlotSeriesWithColor renders a braille line plot with optional forced color output.
func PlotSeriesWithColor(w io.Writer, title string, series []Series, width, height int, forceColor bool) error {
	return plotSeries(w, title, series, width, height, forceColor)
}

func plotSeries(w io.Writer, title string, series []Series, width, height int, forceColor bool) error {
	series = nonEmpty(series)
	if len(series) == 0 {
		return nil
	}
	if height <= 0 {
		height = defaultPlotHeight
	}
	if width <= 0 {
		width = PlotWidthFor(terminalWidth())
	}
	if width < minPlotWidth {
		width = minPlotWidth
	}

	type scaledSeries struct {
		name     string
		values   []float64
		min, max float64
		cells    [][]uint8
	}
	scaled := make([]scaledSeries, len(series))
	for i, s := range series {
		values := resampleSeries(s.Values, width)
		lo, hi := minMax(values)
		if math.Abs(hi-lo) < 1e-9 {
			lo--
			hi++
		}
		cells := make([][]uint8, height)
		for y := range cells {
			cells[y] = make([]uint8, width)
		}
		dash := dashPeriods[i%len(dashPeriods)]
		prevX, prevY := -1, -1
		for x, v := range values {
			px, py := x*2, valueToRow(v, lo, hi, height*4)
			plot := func(dx, dy int) {
				if dash.period <= 1 || dx%dash.period < dash.on {
					setBrailleDot(cells, dx, dy)
				}
			}
			if prevX < 0 {
				plot(px, py)
			} else {
				drawLine(prevX, prevY, px, py, plot)
			}
			prevX, prevY = px, py
		}
		scaled[i] = scaledSeries{name: s.Name, values: values, min: lo, max: hi, cells: cells}
	}

	useColor := shouldUseColor(w, forceColor)
	labels := make([]string, height)
	if len(scaled) == 1 {
		labels[0] = fmt.Sprintf("%.1f", scaled[0].max)
		labels[height-1] = fmt.Sprintf("%.1f", scaled[0].min)
		if height > 2 {
			labels[height/2] = fmt.Sprintf("%.1f", (scaled[0].max+scaled[0].min)/2)
		}
	} else {
		labels[0], labels[height-1] = "100%", "0%"
		if height > 2 {
			labels[height/2] = "50%"
		}
	}

	var b strings.Builder
	if title != "" {
		b.WriteString(title + "\n")
	}
	if len(scaled) > 1 {
		b.WriteString(scaleNote + "\n")
	}
	for _, s := range scaled {
		fmt.Fprintf(&b, "%s: min=%.2f max=%.2f\n", s.name, s.min, s.max)
	}
	for y := 0; y < height; y++ {
		b.WriteString(runewidth.FillLeft(runewidth.Truncate(labels[y], axisLabelWidth, ""), axisLabelWidth))
		b.WriteString(axisSeparator)
		for x := 0; x < width; x++ {
			var mask uint8
			owner := -1
			for i, s := range scaled {
				if m := s.cells[y][x]; m != 0 {
					mask |= m
					if owner < 0 {
						owner = i
					}
				}
			}
			ch := string(rune(0x2800 + int(mask)))
			if useColor && owner >= 0 {
				ch = colorFor(owner).Sprint(ch)
			}
			b.WriteString(ch)
		}
		b.WriteByte('\n')
	}
	legend := make([]string, len(scaled))
	for i, s := range scaled {
		label := fmt.Sprintf("⠁ %s", s.name)
		if useColor {
			label = colorFor(i).Sprint(label)
		}
		legend[i] = label
	}
	b.WriteString("Legend: " + strings.Join(legend, "  ") + "\n\n")
	_, err := io.WriteString(w, b.String())
	return err
}

// PlotBars renders a horizontal bar chart, one labeled row per value.
func PlotBars(w io.Writer, title string, labels []string, values []float64, width int) error {
	if len(labels) == 0 || len(labels) != len(values) {
		return nil
	}
	if width < minPlotWidth {
		width = minPlotWidth
	}
	labelWidth := 0
	peak := 0.0
	for i, l := range labels {
		labelWidth = max(labelWidth, runewidth.StringWidth(l))
		peak = math.Max(peak, values[i])
	}
	var b strings.Builder
	if title != "" {
		b.WriteString(title + "\n")
	}
	for i, l := range labels {
		n := 0
		if peak > 0 {
			n = int(math.Round(values[i] / peak * float64(width)))
		}
		fmt.Fprintf(&b, "%s%s%s %g\n", runewidth.FillRight(l, labelWidth), axisSeparator, strings.Repeat(barRune, n), values[i])
	}
	b.WriteByte('\n')
	_, err := io.WriteString(w, b.String())
	return err
}

// PlotWidthFor computes a plot width that fits within the total available width.
func PlotWidthFor(totalWidth int) int {
	if totalWidth <= 0 {
		return minPlotWidth
	}
	plotWidth := totalWidth - axisLabelWidth - runewidth.StringWidth(axisSeparator)
	if plotWidth < minPlotWidth {
		plotWidth = minPlotWidth
	}
	return plotWidth
}

func colorFor(i int) *color.Color {
	c := color.New(palette[i%len(palette)])
	c.EnableColor()
	return c
}

func nonEmpty(series []Series) []Series {
	out := make([]Series, 0, len(series))
	for _, s := range series {
		if len(s.Values) > 0 {
			out = append(out, s)
		}
	}
	return out
}

func terminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return terminalWidthBackup
	}
	return width
}

func shouldUseColor(w io.Writer, force bool) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if force {
		return true
	}
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(file.Fd()))
}

// resampleSeries averages down or linearly interpolates up to width points.
func resampleSeries(values []float64, width int) []float64 {
	if len(values) == 0 || width <= 0 {
		return nil
	}
	out := make([]float64, width)
	switch {
	case len(values) == width:
		copy(out, values)
	case len(values) > width:
		for i := range out {
			start := i * len(values) / width
			end := max((i+1)*len(values)/width, start+1)
			out[i] = mean(values[start:min(end, len(values))])
		}
	case len(values) == 1 || width == 1:
		for i := range out {
			out[i] = values[0]
		}
	default:
		for i := range out {
			pos := float64(i) * float64(len(values)-1) / float64(width-1)
			idx := int(pos)
			if idx >= len(values)-1 {
				out[i] = values[len(values)-1]
				continue
			}
			frac := pos - float64(idx)
			out[i] = values[idx]*(1-frac) + values[idx+1]*frac
		}
	}
	return out
}

func minMax(values []float64) (float64, float64) {
	if len(values) == 0 {
		return 0, 0
	}
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return lo, hi
}

func valueToRow(v, lo, hi float64, rows int) int {
	if rows <= 1 {
		return 0
	}
	row := int(math.Round((1 - (v-lo)/(hi-lo)) * float64(rows-1)))
	return min(max(row, 0), rows-1)
}

// drawLine walks a Bresenham line between two dot coordinates.
func drawLine(x0, y0, x1, y1 int, plot func(x, y int)) {
	dx := x1 - x0
	if dx < 0 {
		dx = -dx
	}
	dy := y1 - y0
	if dy > 0 {
		dy = -dy
	}
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	err := dx + dy
	for {
		plot(x0, y0)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

func setBrailleDot(cells [][]uint8, x, y int) {
	if x < 0 || y < 0 || y/4 >= len(cells) || x/2 >= len(cells[y/4]) {
		return
	}
	cells[y/4][x/2] |= brailleBits[y%4][x%2]
}
