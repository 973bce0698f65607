package svg

import (
	"errors"
	"fmt"
	"html/template"
	"math"
	"strings"

	"github.com/odyssey-erp/aqp/internal/report"
)

var (
	ErrSeriesLength = errors.New("svg: dataset length must match labels")
	ErrViewport     = errors.New("svg: viewport too small")
)

// Render draws data as a bar chart when chartType is "bar" and as a line
// chart otherwise.
func Render(chartType string, width, height int, data report.ChartData, opts Opts) (template.HTML, error) {
	if chartType == "bar" {
		return Bars(width, height, data, opts)
	}
	return Lines(width, height, data, opts)
}

// frame holds the plot geometry shared by both renderers.
type frame struct {
	width, height   int
	padding         float64
	chartW, chartH  float64
	minVal, maxVal  float64
	ticks           int
	axisColor, grid string
}

func newFrame(width, height int, data report.ChartData, opts Opts) (frame, error) {
	for _, ds := range data.Datasets {
		if len(ds.Values) != len(data.Labels) {
			return frame{}, fmt.Errorf("%w: %q has %d values for %d labels", ErrSeriesLength, ds.Name, len(ds.Values), len(data.Labels))
		}
	}
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}
	f := frame{
		width:     width,
		height:    height,
		padding:   opts.Padding,
		ticks:     opts.TickCount,
		axisColor: fallback(opts.AxisColor, "#475569"),
		grid:      fallback(opts.GridColor, "#cbd5e1"),
	}
	if f.padding <= 0 {
		f.padding = DefaultPadding
	}
	if f.ticks <= 0 {
		f.ticks = DefaultTicks
	}
	f.chartW = float64(width) - 2*f.padding
	f.chartH = float64(height) - 2*f.padding
	if f.chartW <= 0 || f.chartH <= 0 {
		return frame{}, ErrViewport
	}

	f.minVal, f.maxVal = bounds(data.Datasets)
	if f.minVal > 0 {
		f.minVal = 0
	}
	if f.maxVal < 0 {
		f.maxVal = 0
	}
	if almostEqual(f.maxVal, f.minVal) {
		f.maxVal = f.minVal + 1
	}
	return f, nil
}

func (f frame) bottom() float64 {
	return f.padding + f.chartH
}

func (f frame) y(value float64) float64 {
	return f.bottom() - (value-f.minVal)*f.chartH/(f.maxVal-f.minVal)
}

func (f frame) open(b *strings.Builder, kind string, opts Opts) {
	titleID := makeID(opts.Title, kind+"-title")
	descID := makeID(opts.Title, kind+"-desc")
	fmt.Fprintf(b, "<svg xmlns=\"http://www.w3.org/2000/svg\" viewBox=\"0 0 %d %d\" role=\"img\" aria-labelledby=\"%s %s\">", f.width, f.height, titleID, descID)
	fmt.Fprintf(b, "<title id=\"%s\">%s</title>", titleID, template.HTMLEscapeString(fallback(opts.Title, "Air quality")))
	fmt.Fprintf(b, "<desc id=\"%s\">%s</desc>", descID, template.HTMLEscapeString(fallback(opts.Description, "PM2.5 by period")))
}

func (f frame) axes(b *strings.Builder, precision int) {
	for i := 0; i <= f.ticks; i++ {
		ratio := float64(i) / float64(f.ticks)
		value := f.minVal + (f.maxVal-f.minVal)*ratio
		y := f.bottom() - ratio*f.chartH
		fmt.Fprintf(b, "<line x1=\"%.2f\" y1=\"%.2f\" x2=\"%.2f\" y2=\"%.2f\" stroke=\"%s\" stroke-width=\"0.5\" stroke-dasharray=\"2,4\" aria-hidden=\"true\"></line>", f.padding, y, f.padding+f.chartW, y, f.grid)
		fmt.Fprintf(b, "<text x=\"%.2f\" y=\"%.2f\" fill=\"%s\" font-size=\"10\" text-anchor=\"end\">%s</text>", f.padding-6, y+4, f.axisColor, template.HTMLEscapeString(formatTick(value, precision)))
	}
	zero := f.y(0)
	fmt.Fprintf(b, "<g stroke=\"%s\" aria-label=\"Axes\">", f.axisColor)
	fmt.Fprintf(b, "<line x1=\"%.2f\" y1=\"%.2f\" x2=\"%.2f\" y2=\"%.2f\" stroke-width=\"1\"></line>", f.padding, f.padding, f.padding, f.bottom())
	fmt.Fprintf(b, "<line x1=\"%.2f\" y1=\"%.2f\" x2=\"%.2f\" y2=\"%.2f\" stroke-width=\"1\"></line>", f.padding, zero, f.padding+f.chartW, zero)
	b.WriteString("</g>")
}

func (f frame) label(b *strings.Builder, x float64, label string) {
	fmt.Fprintf(b, "<text x=\"%.2f\" y=\"%.2f\" fill=\"%s\" font-size=\"10\" text-anchor=\"middle\">%s</text>", x, f.bottom()+14, f.axisColor, template.HTMLEscapeString(label))
}

// legend lays the dataset names out in a single row above the plot.
func (f frame) legend(b *strings.Builder, datasets []report.Dataset, opts Opts) {
	y := math.Max(f.padding-14, 12)
	x := f.padding
	for i, ds := range datasets {
		fmt.Fprintf(b, "<rect x=\"%.2f\" y=\"%.2f\" width=\"10\" height=\"10\" fill=\"%s\"></rect>", x, y-8, opts.color(i))
		fmt.Fprintf(b, "<text x=\"%.2f\" y=\"%.2f\" fill=\"%s\" font-size=\"10\" text-anchor=\"start\">%s</text>", x+14, y, f.axisColor, template.HTMLEscapeString(ds.Name))
		x += 24 + 6*float64(len([]rune(ds.Name)))
	}
}

func fallback(value, defaultValue string) string {
	if strings.TrimSpace(value) == "" {
		return defaultValue
	}
	return value
}

// bounds spans every dataset. Empty input yields 0, 0.
func bounds(datasets []report.Dataset) (float64, float64) {
	var minVal, maxVal float64
	seen := false
	for _, ds := range datasets {
		for _, v := range ds.Values {
			if !seen || v < minVal {
				minVal = v
			}
			if !seen || v > maxVal {
				maxVal = v
			}
			seen = true
		}
	}
	return minVal, maxVal
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func makeID(base, suffix string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '-'
	}, strings.ToLower(strings.TrimSpace(base)))
	cleaned = strings.Trim(cleaned, "-")
	if cleaned == "" {
		cleaned = "chart"
	}
	return cleaned + "-" + suffix
}

func formatTick(v float64, precision int) string {
	if almostEqual(v, math.Round(v)) {
		return fmt.Sprintf("%.0f", v)
	}
	if precision <= 0 {
		precision = 1
	}
	return fmt.Sprintf("%.*f", precision, v)
}
