// Package svg renders report chart data as standalone SVG documents.
package svg

// Opts customises the chart renderers.
type Opts struct {
	Title       string
	Description string
	Colors      []string
	AxisColor   string
	GridColor   string
	Padding     float64
	TickCount   int
	Precision   int
	ShowDots    bool
}

// Defaults for the report charts.
const (
	DefaultWidth   = 720
	DefaultHeight  = 300
	DefaultPadding = 36.0
	DefaultTicks   = 5
)

// defaultColors cycles across datasets when Opts.Colors runs out.
var defaultColors = []string{"#2563eb", "#f97316", "#16a34a", "#dc2626", "#9333ea", "#0891b2", "#ca8a04"}

func (o Opts) color(i int) string {
	if i < len(o.Colors) && o.Colors[i] != "" {
		return o.Colors[i]
	}
	return defaultColors[i%len(defaultColors)]
}
