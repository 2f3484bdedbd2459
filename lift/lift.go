// Package lift ranks predictions into equally populated quantile bins and summarizes the mean
// prediction against the mean actual per bin.
package lift

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/aouyang1/go-liftchart/dataset"
	"github.com/goccy/go-json"
	"gonum.org/v1/gonum/stat"
)

var (
	ErrInvalidBinCount  = errors.New("bin count out of range")
	ErrInsufficientData = errors.New("fewer rows than bins")
)

const (
	MinBins     = 5
	MaxBins     = 100
	DefaultBins = 10
)

// Assignment places a joined row at its prediction rank and quantile bin.
type Assignment struct {
	dataset.JoinedRow
	Rank int
	Bin  int
}

type assignmentJSON struct {
	SeriesID         string   `json:"series_id"`
	Timestamp        string   `json:"timestamp"`
	ForecastDistance int      `json:"forecast_distance"`
	PartitionID      string   `json:"partition_id"`
	Prediction       *float64 `json:"prediction"`
	Actual           *float64 `json:"actual_value"`
	Rank             int      `json:"rank"`
	Bin              int      `json:"bin_index"`
}

// MarshalJSON flattens the row with its rank and bin.
func (a Assignment) MarshalJSON() ([]byte, error) {
	return json.Marshal(assignmentJSON{
		SeriesID:         a.SeriesID,
		Timestamp:        a.Timestamp.Format(time.DateOnly),
		ForecastDistance: a.ForecastDistance,
		PartitionID:      a.PartitionID,
		Prediction:       dataset.NullFloat(a.Prediction),
		Actual:           dataset.NullFloat(a.Actual),
		Rank:             a.Rank,
		Bin:              a.Bin,
	})
}

// BinSummary aggregates one bin of one partition.
type BinSummary struct {
	PartitionID     string
	Bin             int
	PredictionMean  float64
	PredictionCount int
	ActualMean      float64 // NaN when the bin has no actual values
	ActualCount     int
	RowCount        int
}

type binSummaryJSON struct {
	PartitionID     string   `json:"partition_id"`
	Bin             int      `json:"bin_index"`
	PredictionMean  *float64 `json:"prediction_mean"`
	PredictionCount int      `json:"prediction_count"`
	ActualMean      *float64 `json:"actual_mean"`
	ActualCount     int      `json:"actual_count"`
	RowCount        int      `json:"row_count"`
}

// MarshalJSON writes NaN means as null.
func (b BinSummary) MarshalJSON() ([]byte, error) {
	return json.Marshal(binSummaryJSON{
		PartitionID:     b.PartitionID,
		Bin:             b.Bin,
		PredictionMean:  dataset.NullFloat(b.PredictionMean),
		PredictionCount: b.PredictionCount,
		ActualMean:      dataset.NullFloat(b.ActualMean),
		ActualCount:     b.ActualCount,
		RowCount:        b.RowCount,
	})
}

// Result holds the per row assignments in prediction order and the bin summaries ordered by
// partition then bin.
type Result struct {
	Bins        int          `json:"bins"`
	Assignments []Assignment `json:"assignments"`
	Summaries   []BinSummary `json:"summaries"`
}

// ValidateBins checks that k is within [MinBins, MaxBins].
func ValidateBins(k int) error {
	if k < MinBins || k > MaxBins {
		return fmt.Errorf("%d not in [%d, %d], %w", k, MinBins, MaxBins, ErrInvalidBinCount)
	}
	return nil
}

// Rank returns the indices of rows ordered by ascending prediction. Equal predictions keep their
// input order and NaN predictions sort last, so the position in the returned slice is a strict rank.
func Rank(rows []dataset.JoinedRow) []int {
	order := make([]int, len(rows))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return dataset.PredictionLess(rows[order[i]], rows[order[j]])
	})
	return order
}

// BinSizes splits n rows into k contiguous bins of n/k rows, handing the remainder to the first bins.
func BinSizes(n, k int) []int {
	sizes := make([]int, k)
	base, rem := n/k, n%k
	for i := range sizes {
		sizes[i] = base
		if i < rem {
			sizes[i]++
		}
	}
	return sizes
}

// Assign ranks the rows and cuts the ranks into k quantile bins.
func Assign(rows []dataset.JoinedRow, k int) ([]Assignment, error) {
	if err := ValidateBins(k); err != nil {
		return nil, err
	}
	if len(rows) < k {
		return nil, fmt.Errorf("%d rows for %d bins, %w", len(rows), k, ErrInsufficientData)
	}

	order := Rank(rows)
	assignments := make([]Assignment, 0, len(rows))
	var pos int
	for bin, size := range BinSizes(len(rows), k) {
		for i := 0; i < size; i++ {
			assignments = append(assignments, Assignment{
				JoinedRow: rows[order[pos]],
				Rank:      pos + 1,
				Bin:       bin,
			})
			pos++
		}
	}
	return assignments, nil
}

type groupKey struct {
	partition string
	bin       int
}

type group struct {
	predictions []float64
	actuals     []float64
	rows        int
}

// Summarize groups assignments by partition and bin.
func Summarize(assignments []Assignment) []BinSummary {
	groups := make(map[groupKey]*group)
	var keys []groupKey
	for _, a := range assignments {
		key := groupKey{partition: a.PartitionID, bin: a.Bin}
		g, exists := groups[key]
		if !exists {
			g = &group{}
			groups[key] = g
			keys = append(keys, key)
		}
		g.rows++
		if !math.IsNaN(a.Prediction) {
			g.predictions = append(g.predictions, a.Prediction)
		}
		if a.HasActual() {
			g.actuals = append(g.actuals, a.Actual)
		}
	}

	sort.Slice(keys, func(i, j int) bool {
		if keys[i].partition != keys[j].partition {
			return dataset.PartitionLess(keys[i].partition, keys[j].partition)
		}
		return keys[i].bin < keys[j].bin
	})

	summaries := make([]BinSummary, 0, len(keys))
	for _, key := range keys {
		g := groups[key]
		summaries = append(summaries, BinSummary{
			PartitionID:     key.partition,
			Bin:             key.bin,
			PredictionMean:  mean(g.predictions),
			PredictionCount: len(g.predictions),
			ActualMean:      mean(g.actuals),
			ActualCount:     len(g.actuals),
			RowCount:        g.rows,
		})
	}
	return summaries
}

func mean(x []float64) float64 {
	if len(x) == 0 {
		return math.NaN()
	}
	return stat.Mean(x, nil)
}

// BinAndAggregate assigns the rows to k quantile bins by prediction rank and summarizes each
// partition and bin. The rows are expected to be pre filtered to the series and partition of
// interest.
func BinAndAggregate(rows []dataset.JoinedRow, k int) (*Result, error) {
	assignments, err := Assign(rows, k)
	if err != nil {
		return nil, err
	}
	return &Result{
		Bins:        k,
		Assignments: assignments,
		Summaries:   Summarize(assignments),
	}, nil
}

// Aggregate filters the joined table and bins the result.
func Aggregate(joined *dataset.Joined, f dataset.Filter, k int) (*Result, error) {
	if err := ValidateBins(k); err != nil {
		return nil, err
	}
	res, err := BinAndAggregate(joined.Filter(f), k)
	if err != nil {
		return nil, fmt.Errorf("unable to bin %s, %w", f, err)
	}
	return res, nil
}
