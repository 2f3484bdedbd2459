package accuracy

import (
	"math"
	"sort"
	"time"

	"github.com/aouyang1/go-liftchart/dataset"
	"gonum.org/v1/gonum/floats"
)

// MinOutlierRows is the fewest scored rows outliers are detected on.
const MinOutlierRows = 4

// OutlierOptions bounds residuals by an inner percentile range widened by TukeyFactor times the
// range on either side.
type OutlierOptions struct {
	LowerPercentile float64
	UpperPercentile float64
	TukeyFactor     float64
}

func NewOutlierOptions() *OutlierOptions {
	return &OutlierOptions{
		LowerPercentile: 0.1,
		UpperPercentile: 0.9,
		TukeyFactor:     1.0,
	}
}

// Outlier is a row of the view whose residual falls outside the outlier bounds.
type Outlier struct {
	Timestamp  time.Time `json:"timestamp"`
	Prediction float64   `json:"prediction"`
	Actual     float64   `json:"actual_value"`
	Residual   float64   `json:"residual"`
}

// DetectOutliers returns the indices of y strictly outside the widened percentile range. NaN values
// are ignored and never reported.
func DetectOutliers(y []float64, lowerPerc, upperPerc, tukeyFactor float64) []int {
	lowerPerc = math.Max(lowerPerc, 0.0)
	upperPerc = math.Min(upperPerc, 1.0)
	tukeyFactor = math.Max(tukeyFactor, 0.0)

	yCopy := make([]float64, 0, len(y))
	for _, v := range y {
		if !math.IsNaN(v) {
			yCopy = append(yCopy, v)
		}
	}
	if len(yCopy) == 0 {
		return nil
	}
	sort.Float64s(yCopy)
	lowerIdx := int(math.Floor(float64(len(yCopy)) * lowerPerc))
	upperIdx := int(math.Ceil(float64(len(yCopy))*upperPerc)) - 1
	lowerIdx = min(max(lowerIdx, 0), len(yCopy)-1)
	upperIdx = min(max(upperIdx, lowerIdx), len(yCopy)-1)

	lower := yCopy[lowerIdx]
	upper := yCopy[upperIdx]
	innerRange := upper - lower
	lower -= innerRange * tukeyFactor
	upper += innerRange * tukeyFactor

	var outlierIdx []int
	for i := 0; i < len(y); i++ {
		if y[i] > upper || y[i] < lower {
			outlierIdx = append(outlierIdx, i)
		}
	}
	return outlierIdx
}

// Residuals returns actual minus prediction per row, NaN where the row has no actual.
func Residuals(rows []dataset.JoinedRow) []float64 {
	actual := make([]float64, len(rows))
	predicted := make([]float64, len(rows))
	for i, r := range rows {
		actual[i] = r.Actual
		predicted[i] = r.Prediction
	}
	return floats.SubTo(make([]float64, len(rows)), actual, predicted)
}

// Outliers finds the rows of the view with unusually large forecast errors. A nil opt uses
// NewOutlierOptions.
func Outliers(v *View, opt *OutlierOptions) []Outlier {
	if opt == nil {
		opt = NewOutlierOptions()
	}
	res := Residuals(v.Rows)

	var scored int
	for _, r := range res {
		if !math.IsNaN(r) {
			scored++
		}
	}
	if scored < MinOutlierRows {
		return nil
	}

	idxs := DetectOutliers(res, opt.LowerPercentile, opt.UpperPercentile, opt.TukeyFactor)
	outliers := make([]Outlier, 0, len(idxs))
	for _, i := range idxs {
		r := v.Rows[i]
		outliers = append(outliers, Outlier{
			Timestamp:  r.Timestamp,
			Prediction: r.Prediction,
			Actual:     r.Actual,
			Residual:   res[i],
		})
	}
	return outliers
}
