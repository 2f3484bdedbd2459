package dataset

import (
	"math"
	"time"

	"github.com/goccy/go-json"
)

// ForecastRecord is a single out of sample prediction for one series at one timestamp made from
// a forecast point at some forecast distance. A missing prediction is NaN.
type ForecastRecord struct {
	SeriesID         string
	Timestamp        time.Time
	ForecastPoint    time.Time
	ForecastDistance int
	PartitionID      string
	Prediction       float64
}

// ActualRecord is a single observed target value from the training data. A missing target is NaN.
type ActualRecord struct {
	SeriesID  string
	Timestamp time.Time
	Actual    float64
}

// JoinedRow is a forecast record joined with its matching actual value. Actual is NaN when no
// training row matched.
type JoinedRow struct {
	ForecastRecord
	Actual float64
}

// HasActual reports if the row was matched against a non-null training value.
func (r JoinedRow) HasActual() bool {
	return !math.IsNaN(r.Actual)
}

// PredictionLess orders rows by ascending prediction with NaN predictions last.
func PredictionLess(a, b JoinedRow) bool {
	if math.IsNaN(a.Prediction) {
		return false
	}
	if math.IsNaN(b.Prediction) {
		return true
	}
	return a.Prediction < b.Prediction
}

type joinedRowJSON struct {
	SeriesID         string    `json:"series_id"`
	Timestamp        time.Time `json:"timestamp"`
	ForecastPoint    time.Time `json:"forecast_point"`
	ForecastDistance int       `json:"forecast_distance"`
	PartitionID      string    `json:"partition_id"`
	Prediction       *float64  `json:"prediction"`
	Actual           *float64  `json:"actual_value"`
}

// MarshalJSON writes NaN predictions and actual values as null.
func (r JoinedRow) MarshalJSON() ([]byte, error) {
	return json.Marshal(joinedRowJSON{
		SeriesID:         r.SeriesID,
		Timestamp:        r.Timestamp,
		ForecastPoint:    r.ForecastPoint,
		ForecastDistance: r.ForecastDistance,
		PartitionID:      r.PartitionID,
		Prediction:       NullFloat(r.Prediction),
		Actual:           NullFloat(r.Actual),
	})
}

// UnmarshalJSON reads null predictions and actual values back as NaN.
func (r *JoinedRow) UnmarshalJSON(data []byte) error {
	var j joinedRowJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	r.SeriesID = j.SeriesID
	r.Timestamp = j.Timestamp
	r.ForecastPoint = j.ForecastPoint
	r.ForecastDistance = j.ForecastDistance
	r.PartitionID = j.PartitionID
	r.Prediction = FromNullFloat(j.Prediction)
	r.Actual = FromNullFloat(j.Actual)
	return nil
}

// NullFloat converts NaN and infinities into a nil pointer for encoding.
func NullFloat(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// FromNullFloat converts a nil pointer into NaN.
func FromNullFloat(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}
	return *v
}
