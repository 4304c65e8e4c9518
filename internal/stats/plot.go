package stats

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"golang.org/x/term"
)

// Series represents a named data series for plotting.
type Series struct {
	Name   string
	Values []float64
}

const (
	defaultPlotHeight   = 8
	minPlotWidth        = 10
	axisWidth           = 7
	terminalWidthBackup = 80
	colorReset          = "\x1b[0m"
)

var seriesColors = []string{"\x1b[36m", "\x1b[33m", "\x1b[35m", "\x1b[32m"}

// brailleBits maps a (column, row) dot inside a 2x4 braille cell to its bit.
var brailleBits = [2][4]uint8{
	{0x01, 0x02, 0x04, 0x40},
	{0x08, 0x10, 0x20, 0x80},
}

// PlotSeries draws the series on one shared vertical scale using braille
// dots. Width and height are in terminal cells; zero picks defaults.
func PlotSeries(w io.Writer, title string, series []Series, width, height int) error {
	return plot(w, title, series, width, height, shouldUseColor(w))
}

// PlotSeriesWithColor is PlotSeries with color forced on, for output that is
// rendered into a TUI buffer rather than a terminal file.
func PlotSeriesWithColor(w io.Writer, title string, series []Series, width, height int) error {
	return plot(w, title, series, width, height, os.Getenv("NO_COLOR") == "")
}

func plot(w io.Writer, title string, series []Series, width, height int, useColor bool) error {
	var kept []Series
	var all []float64
	for _, s := range series {
		if len(s.Values) > 0 {
			kept = append(kept, s)
			all = append(all, s.Values...)
		}
	}
	if len(kept) == 0 {
		return nil
	}
	if height <= 0 {
		height = defaultPlotHeight
	}
	if width <= 0 {
		width = PlotWidthFor(terminalWidth())
	}
	width = max(width, minPlotWidth)

	lo, hi := minMax(all)
	if hi-lo < 1e-9 {
		lo, hi = lo-1, hi+1
	}

	dotsX, dotsY := width*2, height*4
	owner := make([][]int, height)
	masks := make([][]uint8, height)
	for y := range masks {
		masks[y] = make([]uint8, width)
		owner[y] = make([]int, width)
		for x := range owner[y] {
			owner[y][x] = -1
		}
	}
	for si, s := range kept {
		values := resample(s.Values, dotsX)
		prevX, prevY := -1, 0
		for x, v := range values {
			y := int(math.Round((hi - v) / (hi - lo) * float64(dotsY-1)))
			y = clampInt(y, 0, dotsY-1)
			if prevX < 0 {
				prevX, prevY = x, y
			}
			step := 1
			if y < prevY {
				step = -1
			}
			for yy := prevY; ; yy += step {
				cy, cx := yy/4, x/2
				masks[cy][cx] |= brailleBits[x%2][yy%4]
				if owner[cy][cx] < 0 {
					owner[cy][cx] = si
				}
				if yy == y {
					break
				}
			}
			prevX, prevY = x, y
		}
	}

	var b strings.Builder
	if title != "" {
		b.WriteString(title + "\n")
	}
	for y := 0; y < height; y++ {
		label := ""
		switch y {
		case 0:
			label = fmt.Sprintf("%.1f", hi)
		case height - 1:
			label = fmt.Sprintf("%.1f", lo)
		}
		fmt.Fprintf(&b, "%*s │", axisWidth-2, label)
		for x := 0; x < width; x++ {
			ch := rune(0x2800 + int(masks[y][x]))
			if useColor && owner[y][x] >= 0 {
				b.WriteString(seriesColors[owner[y][x]%len(seriesColors)])
				b.WriteRune(ch)
				b.WriteString(colorReset)
				continue
			}
			b.WriteRune(ch)
		}
		b.WriteByte('\n')
	}
	legend := make([]string, 0, len(kept))
	for i, s := range kept {
		item := fmt.Sprintf("⣿ %s", s.Name)
		if useColor {
			item = seriesColors[i%len(seriesColors)] + item + colorReset
		}
		legend = append(legend, item)
	}
	b.WriteString("Legend: " + strings.Join(legend, "  ") + "\n")
	_, err := io.WriteString(w, b.String())
	return err
}

// PlotWidthFor computes a plot width that fits within the total available width.
func PlotWidthFor(totalWidth int) int {
	if totalWidth <= 0 {
		return minPlotWidth
	}
	return max(totalWidth-axisWidth, minPlotWidth)
}

// resample stretches or averages values into n points.
func resample(values []float64, n int) []float64 {
	out := make([]float64, n)
	if len(values) == 1 {
		for i := range out {
			out[i] = values[0]
		}
		return out
	}
	if len(values) > n {
		for i := 0; i < n; i++ {
			start := i * len(values) / n
			end := max((i+1)*len(values)/n, start+1)
			var sum float64
			for _, v := range values[start:end] {
				sum += v
			}
			out[i] = sum / float64(end-start)
		}
		return out
	}
	for i := 0; i < n; i++ {
		pos := float64(i) * float64(len(values)-1) / float64(n-1)
		idx := int(pos)
		if idx >= len(values)-1 {
			out[i] = values[len(values)-1]
			continue
		}
		frac := pos - float64(idx)
		out[i] = values[idx]*(1-frac) + values[idx+1]*frac
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

func shouldUseColor(w io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(file.Fd()))
}
