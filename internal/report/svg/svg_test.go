package svg

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/aqp/internal/report"
)

func sample() report.ChartData {
	return report.ChartData{
		Labels: []string{"W1 2024", "W2 2024", "W3 2024"},
		Datasets: []report.Dataset{
			{Name: "Average", Values: []float64{12.5, 30, 22}},
			{Name: "Nairobi", Values: []float64{18, 41.2, 35}},
		},
	}
}

func TestLinesDrawsEveryDataset(t *testing.T) {
	html, err := Lines(480, 240, sample(), Opts{Title: "PM2.5", ShowDots: true})
	require.NoError(t, err)
	out := string(html)
	assert.True(t, strings.HasPrefix(out, "<svg"))
	assert.Equal(t, 2, strings.Count(out, "<path"))
	assert.Equal(t, 6, strings.Count(out, "<circle"))
	assert.Contains(t, out, `aria-labelledby="pm2-5-line-title pm2-5-line-desc"`)
	assert.Contains(t, out, ">Nairobi</text>")
	assert.Contains(t, out, ">W3 2024</text>")
}

func TestLinesWithoutDatasetsKeepsLabels(t *testing.T) {
	data := report.ChartData{Labels: []string{"Jan 2024", "Feb 2024"}}
	html, err := Lines(0, 0, data, Opts{})
	require.NoError(t, err)
	out := string(html)
	assert.NotContains(t, out, "<path")
	assert.Contains(t, out, ">Feb 2024</text>")
	assert.Contains(t, out, `viewBox="0 0 720 300"`)
}

func TestBarsGroupsPerLabel(t *testing.T) {
	html, err := Render("bar", 480, 240, sample(), Opts{Colors: []string{"#111111"}})
	require.NoError(t, err)
	out := string(html)
	// two legend swatches plus one bar per dataset and label
	assert.Equal(t, 8, strings.Count(out, "<rect"))
	assert.Contains(t, out, `fill="#111111"`)
	assert.Contains(t, out, `fill="#f97316"`)
}

func TestRenderRejectsShortDatasets(t *testing.T) {
	data := sample()
	data.Datasets[1].Values = data.Datasets[1].Values[:2]
	_, err := Render("line", 480, 240, data, Opts{})
	assert.ErrorIs(t, err, ErrSeriesLength)

	_, err = Lines(40, 40, sample(), Opts{})
	assert.ErrorIs(t, err, ErrViewport)
}

func TestEscapesNames(t *testing.T) {
	data := report.ChartData{Labels: []string{"<Q1>"}, Datasets: []report.Dataset{{Name: "A&B", Values: []float64{3}}}}
	html, err := Bars(300, 200, data, Opts{})
	require.NoError(t, err)
	assert.Contains(t, string(html), "A&amp;B")
	assert.Contains(t, string(html), "&lt;Q1&gt;")
}

func TestFormatTick(t *testing.T) {
	assert.Equal(t, "40", formatTick(40, 1))
	assert.Equal(t, "8.3", formatTick(8.26, 1))
	assert.Equal(t, "8.25", formatTick(8.25, 2))
}
