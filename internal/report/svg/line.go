package svg

import (
	"fmt"
	"html/template"
	"strings"

	"github.com/odyssey-erp/aqp/internal/report"
)

// Lines renders one polyline per dataset over the shared period labels. A
// chart without datasets still draws its axes and labels.
func Lines(width, height int, data report.ChartData, opts Opts) (template.HTML, error) {
	f, err := newFrame(width, height, data, opts)
	if err != nil {
		return "", err
	}

	x := func(i int) float64 {
		if len(data.Labels) < 2 {
			return f.padding + f.chartW/2
		}
		return f.padding + float64(i)*f.chartW/float64(len(data.Labels)-1)
	}

	var b strings.Builder
	f.open(&b, "line", opts)
	f.axes(&b, opts.Precision)

	for i, ds := range data.Datasets {
		if len(ds.Values) == 0 {
			continue
		}
		color := opts.color(i)
		var path strings.Builder
		for j, v := range ds.Values {
			cmd := " L"
			if j == 0 {
				cmd = "M"
			}
			fmt.Fprintf(&path, "%s%.2f %.2f", cmd, x(j), f.y(v))
		}
		fmt.Fprintf(&b, "<path d=\"%s\" fill=\"none\" stroke=\"%s\" stroke-width=\"2\" stroke-linejoin=\"round\" stroke-linecap=\"round\" aria-label=\"%s\"></path>", path.String(), color, template.HTMLEscapeString(ds.Name))
		if opts.ShowDots {
			for j, v := range ds.Values {
				fmt.Fprintf(&b, "<circle cx=\"%.2f\" cy=\"%.2f\" r=\"3\" fill=\"%s\"></circle>", x(j), f.y(v), color)
			}
		}
	}

	for i, label := range data.Labels {
		f.label(&b, x(i), label)
	}
	f.legend(&b, data.Datasets, opts)

	b.WriteString("</svg>")
	return template.HTML(b.String()), nil
}
