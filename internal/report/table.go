package report

// Column describes one report column.
type Column struct {
	Label        string `json:"label"`
	Fieldname    string `json:"fieldname"`
	Fieldtype    string `json:"fieldtype"`
	Options      string `json:"options,omitempty"`
	Precision    string `json:"precision,omitempty"`
	Width        int    `json:"width"`
	PeriodColumn bool   `json:"period_column,omitempty"`
}

// Row is one entity of the report. Values holds the average and every period
// column keyed by field name.
type Row struct {
	Entity string             `json:"entity"`
	Indent int                `json:"indent"`
	Values map[string]float64 `json:"values"`
}

// Result is an executed report.
type Result struct {
	Columns []Column     `json:"columns"`
	Rows    []Row        `json:"rows"`
	Chart   ChartOptions `json:"chart"`
}

// Cell is one rendered table cell.
type Cell struct {
	Content string  `json:"content"`
	Value   float64 `json:"value"`
}

// Table is the rendered view of a report: cells line up with Columns, and
// the label of every row sits at LabelColumn.
type Table struct {
	Columns     []Column `json:"columns"`
	Rows        [][]Cell `json:"rows"`
	LabelColumn int      `json:"label_column"`
}

// Table renders the result with the entity column as the label column.
func (r Result) Table() Table {
	t := Table{Columns: r.Columns, Rows: make([][]Cell, len(r.Rows))}
	for i, row := range r.Rows {
		cells := make([]Cell, len(r.Columns))
		for j, col := range r.Columns {
			if col.Fieldname == entityField {
				cells[j] = Cell{Content: row.Entity}
				continue
			}
			v := row.Values[col.Fieldname]
			cells[j] = Cell{Content: formatValue(v, col.Fieldtype), Value: v}
		}
		t.Rows[i] = cells
	}
	return t
}

// PeriodIndices scans the columns and returns the indices flagged as periods.
func (t Table) PeriodIndices() []int {
	var indices []int
	for i, col := range t.Columns {
		if col.PeriodColumn {
			indices = append(indices, i)
		}
	}
	return indices
}

// Cell returns the cell at row, col or a zero cell when out of range.
func (t Table) Cell(row, col int) Cell {
	if row < 0 || row >= len(t.Rows) || col < 0 || col >= len(t.Rows[row]) {
		return Cell{}
	}
	return t.Rows[row][col]
}
