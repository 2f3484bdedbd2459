package dataset

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(d int) time.Time {
	return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC)
}

func TestMerge(t *testing.T) {
	backtest := []ForecastRecord{
		{SeriesID: "b", Timestamp: time.Date(2024, 1, 2, 13, 30, 0, 0, time.UTC), ForecastPoint: day(1), ForecastDistance: 1, PartitionID: "0.0", Prediction: 5},
		{SeriesID: "a", Timestamp: day(3), ForecastPoint: day(1), ForecastDistance: 2, PartitionID: "1.0", Prediction: 3},
		{SeriesID: "a", Timestamp: day(3), ForecastPoint: day(2), ForecastDistance: 1, PartitionID: "1.0", Prediction: 2},
	}
	holdout := []ForecastRecord{
		{SeriesID: "a", Timestamp: day(9), ForecastPoint: day(8), ForecastDistance: 1, PartitionID: "Holdout", Prediction: 7},
	}
	actuals := []ActualRecord{
		{SeriesID: "a", Timestamp: day(3), Actual: 2.5},
		{SeriesID: "a", Timestamp: day(3), Actual: 99},
		{SeriesID: "b", Timestamp: time.Date(2024, 1, 2, 0, 0, 0, 0, time.FixedZone("UTC-8", -8*60*60)), Actual: 4},
	}

	joined, err := Merge(backtest, holdout, actuals)
	require.Nil(t, err)
	require.Equal(t, 4, joined.Len())

	expected := []JoinedRow{
		{ForecastRecord: ForecastRecord{SeriesID: "a", Timestamp: day(3), ForecastPoint: day(2), ForecastDistance: 1, PartitionID: "1", Prediction: 2}, Actual: 2.5},
		{ForecastRecord: ForecastRecord{SeriesID: "a", Timestamp: day(3), ForecastPoint: day(1), ForecastDistance: 2, PartitionID: "1", Prediction: 3}, Actual: 2.5},
		{ForecastRecord: ForecastRecord{SeriesID: "a", Timestamp: day(9), ForecastPoint: day(8), ForecastDistance: 1, PartitionID: "Holdout", Prediction: 7}, Actual: math.NaN()},
		{ForecastRecord: ForecastRecord{SeriesID: "b", Timestamp: day(2), ForecastPoint: day(1), ForecastDistance: 1, PartitionID: "0", Prediction: 5}, Actual: 4},
	}
	for i, row := range joined.Rows {
		assert.Equal(t, expected[i].ForecastRecord, row.ForecastRecord, "row %d", i)
		if math.IsNaN(expected[i].Actual) {
			assert.False(t, row.HasActual(), "row %d", i)
			continue
		}
		assert.Equal(t, expected[i].Actual, row.Actual, "row %d", i)
	}
	assert.Equal(t, 3, joined.Matched())
	assert.Equal(t, []string{"a", "b"}, joined.SeriesIDs())
	assert.Equal(t, []string{"0", "1", "Holdout"}, joined.Partitions())
}

func TestMergeIdempotent(t *testing.T) {
	sim, err := NewSimulated(&SimOptions{
		Series:       2,
		Days:         120,
		Backtests:    2,
		Holdout:      true,
		Window:       14,
		Horizon:      3,
		MissingEvery: 5,
		Start:        day(1),
		Seed:         7,
	})
	require.Nil(t, err)

	first, err := Merge(sim.backtest, sim.holdout, sim.actuals)
	require.Nil(t, err)
	second, err := Merge(sim.backtest, sim.holdout, sim.actuals)
	require.Nil(t, err)

	require.Equal(t, first.Len(), second.Len())
	for i := range first.Rows {
		assert.Equal(t, first.Rows[i].ForecastRecord, second.Rows[i].ForecastRecord)
		assert.Equal(t, first.Rows[i].HasActual(), second.Rows[i].HasActual())
		if first.Rows[i].HasActual() {
			assert.Equal(t, first.Rows[i].Actual, second.Rows[i].Actual)
		}
	}
	assert.Equal(t, len(sim.backtest)+len(sim.holdout), first.Len())
	assert.Less(t, first.Matched(), first.Len())
}

func TestMergeInvalidDistance(t *testing.T) {
	_, err := Merge([]ForecastRecord{{SeriesID: "a", Timestamp: day(1), ForecastDistance: 0}}, nil, nil)
	assert.ErrorIs(t, err, ErrInvalidForecastDistance)
}

func TestFilter(t *testing.T) {
	joined := &Joined{Rows: []JoinedRow{
		{ForecastRecord: ForecastRecord{SeriesID: "a", PartitionID: "0", ForecastDistance: 1}},
		{ForecastRecord: ForecastRecord{SeriesID: "a", PartitionID: "1", ForecastDistance: 2}},
		{ForecastRecord: ForecastRecord{SeriesID: "b", PartitionID: "0", ForecastDistance: 1}},
	}}

	testData := map[string]struct {
		filter   Filter
		expected int
	}{
		"all":                  {filter: Filter{}, expected: 3},
		"series":               {filter: Filter{SeriesID: "a"}, expected: 2},
		"partition":            {filter: Filter{PartitionID: "0"}, expected: 2},
		"series and partition": {filter: Filter{SeriesID: "a", PartitionID: "1"}, expected: 1},
		"distance":             {filter: Filter{ForecastDistance: 1}, expected: 2},
		"no match":             {filter: Filter{SeriesID: "c"}, expected: 0},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			assert.Len(t, joined.Filter(td.filter), td.expected)
		})
	}
}

func TestCheckMatches(t *testing.T) {
	joined := &Joined{Rows: []JoinedRow{
		{ForecastRecord: ForecastRecord{SeriesID: "a", PartitionID: "0"}, Actual: 1},
		{ForecastRecord: ForecastRecord{SeriesID: "b", PartitionID: "0"}, Actual: math.NaN()},
	}}
	assert.Nil(t, joined.CheckMatches(Filter{SeriesID: "a"}))
	assert.Nil(t, joined.CheckMatches(Filter{PartitionID: "0"}))
	assert.Nil(t, joined.CheckMatches(Filter{SeriesID: "c"}))
	assert.ErrorIs(t, joined.CheckMatches(Filter{SeriesID: "b"}), ErrMergeMismatch)
}

func TestJoinedRowJSON(t *testing.T) {
	rows := []JoinedRow{
		{ForecastRecord: ForecastRecord{SeriesID: "a", Timestamp: day(2), ForecastPoint: day(1), ForecastDistance: 1, PartitionID: "0", Prediction: 1.5}, Actual: 2},
		{ForecastRecord: ForecastRecord{SeriesID: "a", Timestamp: day(3), ForecastPoint: day(1), ForecastDistance: 2, PartitionID: "0", Prediction: 1.5}, Actual: math.NaN()},
	}
	data, err := json.Marshal(rows)
	require.Nil(t, err)
	assert.Contains(t, string(data), `"actual_value":null`)
	assert.Contains(t, string(data), `"actual_value":2`)

	var decoded []JoinedRow
	require.Nil(t, json.Unmarshal(data, &decoded))
	require.Len(t, decoded, 2)
	assert.Equal(t, 2.0, decoded[0].Actual)
	assert.True(t, math.IsNaN(decoded[1].Actual))
	assert.Equal(t, rows[1].ForecastRecord, decoded[1].ForecastRecord)
}

func TestJoinedRowJSONNullPrediction(t *testing.T) {
	rows := []JoinedRow{
		{ForecastRecord: ForecastRecord{SeriesID: "a", Timestamp: day(2), ForecastPoint: day(1), ForecastDistance: 1, PartitionID: "0", Prediction: math.NaN()}, Actual: 2},
		{ForecastRecord: ForecastRecord{SeriesID: "a", Timestamp: day(3), ForecastPoint: day(1), ForecastDistance: 2, PartitionID: "0", Prediction: math.Inf(1)}, Actual: 3},
	}
	data, err := json.Marshal(rows)
	require.Nil(t, err)
	assert.Equal(t, 2, strings.Count(string(data), `"prediction":null`))

	var decoded []JoinedRow
	require.Nil(t, json.Unmarshal(data, &decoded))
	require.Len(t, decoded, 2)
	assert.True(t, math.IsNaN(decoded[0].Prediction))
	assert.True(t, math.IsNaN(decoded[1].Prediction))
	assert.Equal(t, 3.0, decoded[1].Actual)
}

func TestPredictionLess(t *testing.T) {
	pred := func(v float64) JoinedRow {
		return JoinedRow{ForecastRecord: ForecastRecord{Prediction: v}}
	}
	testData := map[string]struct {
		a, b     float64
		expected bool
	}{
		"ascending":   {a: 1, b: 2, expected: true},
		"descending":  {a: 2, b: 1, expected: false},
		"equal":       {a: 1, b: 1, expected: false},
		"nan first":   {a: math.NaN(), b: 1, expected: false},
		"nan second":  {a: 1, b: math.NaN(), expected: true},
		"nan on both": {a: math.NaN(), b: math.NaN(), expected: false},
	}
	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, td.expected, PredictionLess(pred(td.a), pred(td.b)))
		})
	}
}
