package dataset

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"
)

var (
	ErrInvalidForecastDistance = errors.New("forecast distance must be at least 1")
	ErrMergeMismatch           = errors.New("no training rows match the forecast rows")
)

// Filter selects joined rows. Zero valued fields match everything.
type Filter struct {
	SeriesID         string
	PartitionID      string
	ForecastDistance int
}

// Match reports if the row passes the filter.
func (f Filter) Match(r JoinedRow) bool {
	if f.SeriesID != "" && r.SeriesID != f.SeriesID {
		return false
	}
	if f.PartitionID != "" && r.PartitionID != f.PartitionID {
		return false
	}
	if f.ForecastDistance > 0 && r.ForecastDistance != f.ForecastDistance {
		return false
	}
	return true
}

func (f Filter) String() string {
	series, partition := f.SeriesID, f.PartitionID
	if series == "" {
		series = "*"
	}
	if partition == "" {
		partition = "*"
	}
	s := fmt.Sprintf("series=%s partition=%s", series, partition)
	if f.ForecastDistance > 0 {
		s += fmt.Sprintf(" distance=%d", f.ForecastDistance)
	}
	return s
}

// Joined is the merged forecast and actuals table, one row per forecast row.
type Joined struct {
	Rows []JoinedRow
}

type seriesDay struct {
	series string
	day    time.Time
}

// Merge concatenates backtest and holdout predictions, truncates their timestamps to the calendar
// date, sorts by series, timestamp and forecast distance and left joins the actual values on
// series and date. Rows without a matching actual keep a NaN actual value. When the training data
// holds duplicate keys the first occurrence is used.
func Merge(backtest, holdout []ForecastRecord, actuals []ActualRecord) (*Joined, error) {
	lookup := make(map[seriesDay]float64, len(actuals))
	for _, a := range actuals {
		key := seriesDay{series: a.SeriesID, day: TruncateDate(a.Timestamp)}
		if _, exists := lookup[key]; exists {
			continue
		}
		lookup[key] = a.Actual
	}

	rows := make([]JoinedRow, 0, len(backtest)+len(holdout))
	for _, src := range [][]ForecastRecord{backtest, holdout} {
		for i, fr := range src {
			if fr.ForecastDistance < 1 {
				return nil, fmt.Errorf(
					"series %s at %s row %d has distance %d, %w",
					fr.SeriesID, fr.Timestamp.Format(time.DateOnly), i, fr.ForecastDistance, ErrInvalidForecastDistance,
				)
			}
			fr.Timestamp = TruncateDate(fr.Timestamp)
			fr.ForecastPoint = TruncateDate(fr.ForecastPoint)
			fr.PartitionID = NormalizePartitionID(fr.PartitionID)
			rows = append(rows, JoinedRow{ForecastRecord: fr, Actual: math.NaN()})
		}
	}

	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.SeriesID != b.SeriesID {
			return a.SeriesID < b.SeriesID
		}
		if !a.Timestamp.Equal(b.Timestamp) {
			return a.Timestamp.Before(b.Timestamp)
		}
		return a.ForecastDistance < b.ForecastDistance
	})

	for i := range rows {
		if actual, exists := lookup[seriesDay{series: rows[i].SeriesID, day: rows[i].Timestamp}]; exists {
			rows[i].Actual = actual
		}
	}
	return &Joined{Rows: rows}, nil
}

// Len returns the number of joined rows.
func (j *Joined) Len() int {
	return len(j.Rows)
}

// Copy returns a deep copy of the joined table.
func (j *Joined) Copy() *Joined {
	rows := make([]JoinedRow, len(j.Rows))
	copy(rows, j.Rows)
	return &Joined{Rows: rows}
}

// Filter returns the rows matching f in table order.
func (j *Joined) Filter(f Filter) []JoinedRow {
	var rows []JoinedRow
	for _, r := range j.Rows {
		if f.Match(r) {
			rows = append(rows, r)
		}
	}
	return rows
}

// SeriesIDs returns the distinct series ids in sorted order.
func (j *Joined) SeriesIDs() []string {
	seen := make(map[string]struct{})
	var ids []string
	for _, r := range j.Rows {
		if _, exists := seen[r.SeriesID]; exists {
			continue
		}
		seen[r.SeriesID] = struct{}{}
		ids = append(ids, r.SeriesID)
	}
	sort.Strings(ids)
	return ids
}

// Partitions returns the distinct partition ids ordered by PartitionLess.
func (j *Joined) Partitions() []string {
	seen := make(map[string]struct{})
	var ids []string
	for _, r := range j.Rows {
		if _, exists := seen[r.PartitionID]; exists {
			continue
		}
		seen[r.PartitionID] = struct{}{}
		ids = append(ids, r.PartitionID)
	}
	SortPartitions(ids)
	return ids
}

// Matched counts the rows with an actual value.
func (j *Joined) Matched() int {
	var cnt int
	for _, r := range j.Rows {
		if r.HasActual() {
			cnt++
		}
	}
	return cnt
}

// CheckMatches returns ErrMergeMismatch when no filtered row has an actual value. The rows are still
// usable, they just carry an all null actual column.
func (j *Joined) CheckMatches(f Filter) error {
	var total int
	for _, r := range j.Rows {
		if !f.Match(r) {
			continue
		}
		total++
		if r.HasActual() {
			return nil
		}
	}
	if total == 0 {
		return nil
	}
	return fmt.Errorf("%s with %d rows, %w", f, total, ErrMergeMismatch)
}
