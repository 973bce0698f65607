package svg

import (
	"fmt"
	"html/template"
	"math"
	"strings"

	"github.com/odyssey-erp/aqp/internal/report"
)

// Bars renders grouped bars, one group per label and one bar per dataset.
func Bars(width, height int, data report.ChartData, opts Opts) (template.HTML, error) {
	f, err := newFrame(width, height, data, opts)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	f.open(&b, "bar", opts)
	f.axes(&b, opts.Precision)

	if len(data.Labels) > 0 {
		groupW := f.chartW / float64(len(data.Labels))
		barW := groupW * 0.8
		if n := len(data.Datasets); n > 0 {
			barW /= float64(n)
		}
		zero := f.y(0)
		for i, label := range data.Labels {
			baseX := f.padding + float64(i)*groupW + groupW*0.1
			for j, ds := range data.Datasets {
				top, h := barSpan(f.y(ds.Values[i]), zero, f.padding, f.bottom())
				fmt.Fprintf(&b, "<rect x=\"%.2f\" y=\"%.2f\" width=\"%.2f\" height=\"%.2f\" fill=\"%s\" aria-label=\"%s %s\"></rect>", baseX+float64(j)*barW, top, barW, h, opts.color(j), template.HTMLEscapeString(ds.Name), template.HTMLEscapeString(label))
			}
			f.label(&b, f.padding+float64(i)*groupW+groupW/2, label)
		}
	}
	f.legend(&b, data.Datasets, opts)

	b.WriteString("</svg>")
	return template.HTML(b.String()), nil
}

// barSpan returns the top and height of a bar between y and the zero line,
// clipped to the plot area.
func barSpan(y, zero, top, bottom float64) (float64, float64) {
	start := math.Max(math.Min(y, zero), top)
	end := math.Min(math.Max(y, zero), bottom)
	if end < start {
		return start, 0
	}
	return start, end - start
}
