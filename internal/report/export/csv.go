// Package export writes report views as CSV, XLSX and PDF documents.
package export

import (
	"encoding/csv"
	"errors"
	"io"
	"strconv"
	"strings"

	"github.com/odyssey-erp/aqp/internal/report"
)

var ErrNoView = errors.New("export: view required")

// WriteCSV writes the report table: a header of column labels, then one record
// per row. Child rows are indented with two spaces per level.
func WriteCSV(w io.Writer, v *report.ViewState) error {
	if v == nil {
		return ErrNoView
	}
	writer := csv.NewWriter(w)
	defer writer.Flush()

	table := v.Result.Table()
	header := make([]string, len(table.Columns))
	for i, col := range table.Columns {
		header[i] = col.Label
	}
	if err := writer.Write(header); err != nil {
		return err
	}
	for r, cells := range table.Rows {
		record := make([]string, len(cells))
		for c, cell := range cells {
			record[c] = cell.Content
		}
		if indent := v.Result.Rows[r].Indent; indent > 0 && table.LabelColumn < len(record) {
			record[table.LabelColumn] = strings.Repeat("  ", indent) + record[table.LabelColumn]
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteChartCSV writes the projected chart data: a header of period labels,
// then one record per dataset.
func WriteChartCSV(w io.Writer, data report.ChartData) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()
	if err := writer.Write(append([]string{"Series"}, data.Labels...)); err != nil {
		return err
	}
	for _, ds := range data.Datasets {
		record := make([]string, 0, len(ds.Values)+1)
		record = append(record, ds.Name)
		for _, value := range ds.Values {
			record = append(record, formatFloat(value))
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// chartData returns the last projected chart input of v, or an empty chart over
// the report labels when nothing was projected yet.
func chartData(v *report.ViewState) report.ChartData {
	if v.RawChartData != nil {
		return *v.RawChartData
	}
	return report.ChartData{Labels: v.ChartOptions.Labels()}
}
