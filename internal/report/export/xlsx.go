package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/odyssey-erp/aqp/internal/report"
)

// Sheet names of the workbook export.
const (
	ReportSheet = "Report"
	ChartSheet  = "Chart Data"
)

// WriteXLSX writes a workbook with the report table on one sheet and the
// projected chart data on another. Numbers are stored as numeric cells.
func WriteXLSX(w io.Writer, v *report.ViewState) error {
	if v == nil {
		return ErrNoView
	}
	f := excelize.NewFile()
	defer func() {
		_ = f.Close()
	}()

	if err := f.SetSheetName("Sheet1", ReportSheet); err != nil {
		return err
	}
	if _, err := f.NewSheet(ChartSheet); err != nil {
		return err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}

	if err := writeReportSheet(f, v, bold); err != nil {
		return err
	}
	if err := writeChartSheet(f, chartData(v), bold); err != nil {
		return err
	}
	f.SetActiveSheet(0)
	return f.Write(w)
}

func writeReportSheet(f *excelize.File, v *report.ViewState, headerStyle int) error {
	table := v.Result.Table()
	header := make([]any, len(table.Columns))
	for i, col := range table.Columns {
		header[i] = col.Label
		name, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		width := float64(col.Width) / 7
		if width < 10 {
			width = 10
		}
		if err := f.SetColWidth(ReportSheet, name, name, width); err != nil {
			return err
		}
	}
	if err := f.SetSheetRow(ReportSheet, "A1", &header); err != nil {
		return err
	}
	if len(header) > 0 {
		last, _ := excelize.CoordinatesToCellName(len(header), 1)
		if err := f.SetCellStyle(ReportSheet, "A1", last, headerStyle); err != nil {
			return err
		}
	}

	for r, cells := range table.Rows {
		record := make([]any, len(cells))
		for c, cell := range cells {
			if c == table.LabelColumn {
				record[c] = cell.Content
				continue
			}
			record[c] = cell.Value
		}
		cellName, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(ReportSheet, cellName, &record); err != nil {
			return err
		}
		if indent := v.Result.Rows[r].Indent; indent > 0 {
			label, _ := excelize.CoordinatesToCellName(table.LabelColumn+1, r+2)
			style, err := f.NewStyle(&excelize.Style{Alignment: &excelize.Alignment{Indent: indent}})
			if err != nil {
				return err
			}
			if err := f.SetCellStyle(ReportSheet, label, label, style); err != nil {
				return err
			}
		}
	}
	return nil
}

func writeChartSheet(f *excelize.File, data report.ChartData, headerStyle int) error {
	header := make([]any, 0, len(data.Labels)+1)
	header = append(header, "Series")
	for _, label := range data.Labels {
		header = append(header, label)
	}
	if err := f.SetSheetRow(ChartSheet, "A1", &header); err != nil {
		return err
	}
	last, _ := excelize.CoordinatesToCellName(len(header), 1)
	if err := f.SetCellStyle(ChartSheet, "A1", last, headerStyle); err != nil {
		return err
	}
	for i, ds := range data.Datasets {
		record := make([]any, 0, len(ds.Values)+1)
		record = append(record, ds.Name)
		for _, value := range ds.Values {
			record = append(record, value)
		}
		if err := f.SetSheetRow(ChartSheet, fmt.Sprintf("A%d", i+2), &record); err != nil {
			return err
		}
	}
	return nil
}
