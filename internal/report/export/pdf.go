package export

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"strings"

	"github.com/odyssey-erp/aqp/internal/report"
	"github.com/odyssey-erp/aqp/internal/report/svg"
)

var ErrNoRenderer = errors.New("export: pdf renderer not configured")

// HTMLRenderer converts an HTML document to PDF.
type HTMLRenderer interface {
	RenderHTML(ctx context.Context, filename, html string) ([]byte, error)
}

// PDFExporter renders a view as an HTML page holding the chart and the table,
// then converts it through the renderer.
type PDFExporter struct {
	Renderer HTMLRenderer
}

// Render returns the PDF bytes of view v.
func (p *PDFExporter) Render(ctx context.Context, v *report.ViewState) ([]byte, error) {
	if v == nil {
		return nil, ErrNoView
	}
	if p == nil || p.Renderer == nil {
		return nil, ErrNoRenderer
	}
	doc, err := BuildHTML(v)
	if err != nil {
		return nil, err
	}
	return p.Renderer.RenderHTML(ctx, "air-quality-analytics.html", doc)
}

// BuildHTML lays out the printable page of a view.
func BuildHTML(v *report.ViewState) (string, error) {
	chart, err := svg.Render(v.ChartOptions.Type, 960, 320, chartData(v), svg.Opts{
		Title:     v.Filters.Title(),
		Colors:    v.ChartOptions.Colors,
		Precision: v.ChartOptions.Precision,
	})
	if err != nil {
		return "", fmt.Errorf("export: chart: %w", err)
	}

	var b strings.Builder
	b.WriteString("<html><head><meta charset=\"utf-8\"><style>")
	b.WriteString("body{font-family:sans-serif;margin:24px;}h1{font-size:20px;}table{width:100%;border-collapse:collapse;font-size:11px;}th,td{border:1px solid #ddd;padding:4px;text-align:right;}th{background:#f5f5f5;}.label{text-align:left;}")
	b.WriteString("</style></head><body>")
	fmt.Fprintf(&b, "<h1>%s</h1>", template.HTMLEscapeString(v.Filters.Title()))
	fmt.Fprintf(&b, "<section>%s</section>", chart)

	table := v.Result.Table()
	b.WriteString("<table><thead><tr>")
	for i, col := range table.Columns {
		class := ""
		if i == table.LabelColumn {
			class = " class=\"label\""
		}
		fmt.Fprintf(&b, "<th%s>%s</th>", class, template.HTMLEscapeString(col.Label))
	}
	b.WriteString("</tr></thead><tbody>")
	for r, cells := range table.Rows {
		b.WriteString("<tr>")
		for c, cell := range cells {
			if c == table.LabelColumn {
				fmt.Fprintf(&b, "<td class=\"label\" style=\"padding-left:%dpx\">%s</td>", 4+16*v.Result.Rows[r].Indent, template.HTMLEscapeString(cell.Content))
				continue
			}
			fmt.Fprintf(&b, "<td>%s</td>", template.HTMLEscapeString(cell.Content))
		}
		b.WriteString("</tr>")
	}
	b.WriteString("</tbody></table></body></html>")
	return b.String(), nil
}
