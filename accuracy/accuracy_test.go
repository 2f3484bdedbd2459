package accuracy

import (
	"math"
	"testing"
	"time"

	"github.com/aouyang1/go-liftchart/dataset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func joinedRow(series string, d, distance int, partition string, pred, actual float64) dataset.JoinedRow {
	return dataset.JoinedRow{
		ForecastRecord: dataset.ForecastRecord{
			SeriesID:         series,
			Timestamp:        time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC),
			ForecastPoint:    time.Date(2024, 1, d-distance, 0, 0, 0, 0, time.UTC),
			ForecastDistance: distance,
			PartitionID:      partition,
			Prediction:       pred,
		},
		Actual: actual,
	}
}

func testJoined() *dataset.Joined {
	return &dataset.Joined{Rows: []dataset.JoinedRow{
		joinedRow("a", 5, 1, "1", 3, 4),
		joinedRow("a", 3, 1, "0", 1, 2),
		joinedRow("a", 3, 2, "0", 9, 2),
		joinedRow("a", 4, 1, "0", 5, math.NaN()),
		joinedRow("a", 3, 1, "Holdout", 2, 2),
		joinedRow("b", 3, 1, "0", 7, 7),
	}}
}

func TestOverTime(t *testing.T) {
	v := OverTime(testJoined(), "a")
	require.False(t, v.Empty())
	assert.Equal(t, "a", v.SeriesID)
	assert.Equal(t, []float64{1, 2, 5, 3}, v.Predictions())
	assert.Equal(t, []time.Time{
		time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 4, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC),
	}, v.T())
	actuals := v.Actuals()
	assert.True(t, math.IsNaN(actuals[2]))
}

func TestOverTimeEmpty(t *testing.T) {
	joined := &dataset.Joined{Rows: []dataset.JoinedRow{joinedRow("a", 5, 2, "0", 1, 1)}}
	v := OverTime(joined, "a")
	assert.True(t, v.Empty())
	assert.Empty(t, v.T())

	v = OverTime(joined, "missing")
	assert.True(t, v.Empty())
}

func TestUnbinned(t *testing.T) {
	v := OverTime(testJoined(), "a")
	rows := Unbinned(v)
	preds := make([]float64, 0, len(rows))
	for _, r := range rows {
		preds = append(preds, r.Prediction)
	}
	assert.Equal(t, []float64{1, 2, 3, 5}, preds)
	assert.Equal(t, []float64{1, 2, 5, 3}, v.Predictions(), "view left untouched")
}

func TestUnbinnedNaNLast(t *testing.T) {
	v := &View{SeriesID: "a", Rows: []dataset.JoinedRow{
		joinedRow("a", 2, 1, "0", math.NaN(), 1),
		joinedRow("a", 3, 1, "0", 4, 1),
		joinedRow("a", 4, 1, "0", math.NaN(), 1),
		joinedRow("a", 5, 1, "0", 2, 1),
		joinedRow("a", 6, 1, "0", 3, 1),
	}}
	days := make([]int, 0, len(v.Rows))
	for _, r := range Unbinned(v) {
		days = append(days, r.Timestamp.Day())
	}
	assert.Equal(t, []int{5, 6, 3, 2, 4}, days)
}

func TestNewScores(t *testing.T) {
	testData := map[string]struct {
		rows     []dataset.JoinedRow
		expected *Scores
		err      error
	}{
		"perfect": {
			rows: []dataset.JoinedRow{
				joinedRow("a", 2, 1, "0", 1, 1),
				joinedRow("a", 3, 1, "0", 2, 2),
				joinedRow("a", 4, 1, "0", 3, 3),
			},
			expected: &Scores{Rows: 3, MAE: 0, MSE: 0, MAPE: 0, R2: 1},
		},
		"skips missing actual": {
			rows: []dataset.JoinedRow{
				joinedRow("a", 2, 1, "0", 2, 1),
				joinedRow("a", 3, 1, "0", 100, math.NaN()),
				joinedRow("a", 4, 1, "0", 4, 2),
			},
			expected: &Scores{Rows: 2, MAE: 1.5, MSE: 2.5, MAPE: 1, R2: -9},
		},
		"no actuals": {
			rows: []dataset.JoinedRow{joinedRow("a", 2, 1, "0", 2, math.NaN())},
			err:  ErrNoScoredRows,
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			scores, err := NewScores(&View{SeriesID: "a", Rows: td.rows})
			if td.err != nil {
				assert.ErrorIs(t, err, td.err)
				return
			}
			require.Nil(t, err)
			assert.Equal(t, td.expected.Rows, scores.Rows)
			assert.InDelta(t, td.expected.MAE, scores.MAE, 1e-9)
			assert.InDelta(t, td.expected.MSE, scores.MSE, 1e-9)
			assert.InDelta(t, td.expected.MAPE, scores.MAPE, 1e-9)
			assert.InDelta(t, td.expected.R2, scores.R2, 1e-9)
		})
	}
}

func TestScoreLenMismatch(t *testing.T) {
	_, err := MSE([]float64{1}, []float64{1, 2})
	assert.ErrorIs(t, err, ErrResLenMismatch)
	_, err = MAE([]float64{1}, []float64{1, 2})
	assert.ErrorIs(t, err, ErrResLenMismatch)
	_, err = MAPE([]float64{1}, []float64{1, 2})
	assert.ErrorIs(t, err, ErrResLenMismatch)
	_, err = RSquared([]float64{1}, []float64{1, 2})
	assert.ErrorIs(t, err, ErrResLenMismatch)
}
