package report

// Dataset is one chart series; values follow the period columns.
type Dataset struct {
	Name   string    `json:"name"`
	Values []float64 `json:"values"`
}

// ChartData is the input of the chart.
type ChartData struct {
	Labels   []string  `json:"labels"`
	Datasets []Dataset `json:"datasets"`
}

// ChartOptions are the display options of the report chart.
type ChartOptions struct {
	Data        *ChartData     `json:"data,omitempty"`
	Type        string         `json:"type,omitempty"`
	Colors      []string       `json:"colors,omitempty"`
	AxisOptions map[string]any `json:"axisOptions,omitempty"`
	Height      int            `json:"height,omitempty"`
	Fieldtype   string         `json:"fieldtype,omitempty"`
	Precision   int            `json:"precision,omitempty"`
}

// Merge returns o with every set field of override applied on top.
func (o ChartOptions) Merge(override ChartOptions) ChartOptions {
	if override.Data != nil {
		o.Data = override.Data
	}
	if override.Type != "" {
		o.Type = override.Type
	}
	if override.Colors != nil {
		o.Colors = override.Colors
	}
	if override.AxisOptions != nil {
		o.AxisOptions = override.AxisOptions
	}
	if override.Height != 0 {
		o.Height = override.Height
	}
	if override.Fieldtype != "" {
		o.Fieldtype = override.Fieldtype
	}
	if override.Precision != 0 {
		o.Precision = override.Precision
	}
	return o
}

// Labels returns the chart labels, or nil without data.
func (o ChartOptions) Labels() []string {
	if o.Data == nil {
		return nil
	}
	return o.Data.Labels
}

// Projector turns checked table rows into chart series.
type Projector struct{}

// Project builds one dataset per checked row in checked order. Period columns
// are re-scanned on every call. Labels are passed through untouched.
func (Projector) Project(t Table, checked []int, labels []string) ChartData {
	periods := t.PeriodIndices()
	data := ChartData{Labels: labels, Datasets: make([]Dataset, 0, len(checked))}
	for _, row := range checked {
		values := make([]float64, len(periods))
		for i, col := range periods {
			values[i] = t.Cell(row, col).Value
		}
		data.Datasets = append(data.Datasets, Dataset{
			Name:   t.Cell(row, t.LabelColumn).Content,
			Values: values,
		})
	}
	return data
}

func emptyChart(labels []string, fieldtype string) ChartOptions {
	return ChartOptions{
		Data:      &ChartData{Labels: labels, Datasets: []Dataset{}},
		Type:      "line",
		Fieldtype: fieldtype,
		Precision: 1,
	}
}

