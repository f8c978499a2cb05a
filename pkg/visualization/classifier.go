// Package visualization picks a chart directive from the shape of a result.
package visualization

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/TFMV/inquire/pkg/models"
)

// Chart titles.
const (
	TitleTimeSeries   = "Time Series Analysis"
	TitleCategorical  = "Categorical Analysis"
	TitleDistribution = "Distribution Analysis"
	TitleDefault      = "Data Analysis"
)

// pieRowLimit is the largest row count still rendered as a pie.
const pieRowLimit = 10

var temporalMarkers = []string{"date", "time", "month", "year"}

// IsTemporal reports whether a column name looks like a date or time column.
// Matching is case-sensitive: "Month" is a label, "month" is a period.
func IsTemporal(column string) bool {
	for _, m := range temporalMarkers {
		if strings.Contains(column, m) {
			return true
		}
	}
	return false
}

// IsNumeric reports whether v is a number or a string that parses as one.
func IsNumeric(v interface{}) bool {
	switch t := v.(type) {
	case int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return true
	case json.Number:
		_, err := t.Float64()
		return err == nil
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return false
		}
		_, err := strconv.ParseFloat(s, 64)
		return err == nil
	default:
		return false
	}
}

// Columns groups column names by kind, preserving their order.
type Columns struct {
	Temporal    []string
	Numeric     []string
	Categorical []string
}

// ClassifyColumns sorts columns into temporal, numeric and categorical using
// the first row as the sample. A temporal column may also be numeric.
func ClassifyColumns(columns []string, rows []models.Row) Columns {
	var c Columns
	var sample models.Row
	if len(rows) > 0 {
		sample = rows[0]
	}
	for _, col := range columns {
		temporal := IsTemporal(col)
		numeric := sample != nil && IsNumeric(sample[col])
		if temporal {
			c.Temporal = append(c.Temporal, col)
		}
		if numeric {
			c.Numeric = append(c.Numeric, col)
		}
		if !temporal && !numeric {
			c.Categorical = append(c.Categorical, col)
		}
	}
	return c
}

// Classify returns the chart for a result, or nil when nothing fits. It is
// a pure function of its inputs.
func Classify(columns []string, rows []models.Row) *models.VisualizationSpec {
	if len(rows) == 0 || len(columns) == 0 {
		return nil
	}

	c := ClassifyColumns(columns, rows)

	switch {
	case len(c.Temporal) > 0 && len(c.Numeric) > 0:
		return &models.VisualizationSpec{
			Type: models.VisualizationLine,
			Config: models.VisualizationConfig{
				XAxis: c.Temporal[0],
				YAxis: c.Numeric[0],
				Title: TitleTimeSeries,
			},
		}
	case len(c.Categorical) > 0 && len(c.Numeric) > 0:
		return &models.VisualizationSpec{
			Type: models.VisualizationBar,
			Config: models.VisualizationConfig{
				XAxis: c.Categorical[0],
				YAxis: c.Numeric[0],
				Title: TitleCategorical,
			},
		}
	case len(c.Categorical) > 0 && len(rows) <= pieRowLimit:
		value := "count"
		if len(c.Numeric) > 0 {
			value = c.Numeric[0]
		}
		return &models.VisualizationSpec{
			Type: models.VisualizationPie,
			Config: models.VisualizationConfig{
				CategoryField: c.Categorical[0],
				ValueField:    value,
				Title:         TitleDistribution,
			},
		}
	}

	if len(columns) >= 2 {
		return &models.VisualizationSpec{
			Type: models.VisualizationBar,
			Config: models.VisualizationConfig{
				XAxis: columns[0],
				YAxis: columns[1],
				Title: TitleDefault,
			},
		}
	}
	return nil
}

// ClassifyResult is Classify over a QueryResult.
func ClassifyResult(r *models.QueryResult) *models.VisualizationSpec {
	if r == nil {
		return nil
	}
	return Classify(r.Columns, r.Rows)
}
