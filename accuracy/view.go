// Package accuracy builds the accuracy over time view of a single series and scores it.
package accuracy

import (
	"sort"
	"time"

	"github.com/aouyang1/go-liftchart/dataset"
)

// ForecastDistance is the distance the accuracy over time view is drawn at.
const ForecastDistance = 1

// View is the one step ahead forecast of a series in timestamp order.
type View struct {
	SeriesID string              `json:"series_id"`
	Rows     []dataset.JoinedRow `json:"rows"`
}

// OverTime selects the rows of seriesID at forecast distance 1 sorted by timestamp. Rows sharing a
// timestamp keep their table order. A series without distance 1 rows yields an empty view.
func OverTime(joined *dataset.Joined, seriesID string) *View {
	rows := joined.Filter(dataset.Filter{SeriesID: seriesID, ForecastDistance: ForecastDistance})
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Timestamp.Before(rows[j].Timestamp)
	})
	return &View{SeriesID: seriesID, Rows: rows}
}

// Empty reports if the view has no rows to draw.
func (v *View) Empty() bool {
	return len(v.Rows) == 0
}

// T returns the timestamps of the view.
func (v *View) T() []time.Time {
	t := make([]time.Time, 0, len(v.Rows))
	for _, r := range v.Rows {
		t = append(t, r.Timestamp)
	}
	return t
}

// Predictions returns the predicted values of the view.
func (v *View) Predictions() []float64 {
	y := make([]float64, 0, len(v.Rows))
	for _, r := range v.Rows {
		y = append(y, r.Prediction)
	}
	return y
}

// Actuals returns the actual values of the view, NaN where the row has none.
func (v *View) Actuals() []float64 {
	y := make([]float64, 0, len(v.Rows))
	for _, r := range v.Rows {
		y = append(y, r.Actual)
	}
	return y
}

// Unbinned orders the view by prediction for a lift chart drawn over every point rather than bins.
// The position in the returned slice is the x axis. Rows without a prediction go last.
func Unbinned(v *View) []dataset.JoinedRow {
	rows := make([]dataset.JoinedRow, len(v.Rows))
	copy(rows, v.Rows)
	sort.SliceStable(rows, func(i, j int) bool {
		return dataset.PredictionLess(rows[i], rows[j])
	})
	return rows
}
