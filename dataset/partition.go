package dataset

import (
	"sort"
	"strconv"
	"strings"
)

// HoldoutPartition is the partition id of the holdout split.
const HoldoutPartition = "Holdout"

const actualSuffix = " (actual)"

// Partitioning describes how the project split its training data over time.
type Partitioning struct {
	DatetimeColumn    string `json:"datetime_column"`
	SeriesColumn      string `json:"series_column"`
	NumberOfBacktests int    `json:"number_of_backtests"`
	DisableHoldout    bool   `json:"disable_holdout"`
}

// PartitionOptions lists the selectable partitions, the backtest indices followed by the holdout
// if it is enabled.
func (p Partitioning) PartitionOptions() []string {
	opts := make([]string, 0, p.NumberOfBacktests+1)
	for i := 0; i < p.NumberOfBacktests; i++ {
		opts = append(opts, strconv.Itoa(i))
	}
	if !p.DisableHoldout {
		opts = append(opts, HoldoutPartition)
	}
	return opts
}

// StripActual removes the " (actual)" suffix the platform appends to derived column names.
func StripActual(column string) string {
	return strings.TrimSuffix(column, actualSuffix)
}

// NormalizePartitionID turns float formatted backtest indices such as "1.0" into "1".
func NormalizePartitionID(id string) string {
	id = strings.TrimSpace(id)
	if strings.EqualFold(id, HoldoutPartition) {
		return HoldoutPartition
	}
	return strings.TrimSuffix(id, ".0")
}

// PartitionLess orders numeric partition ids by value and places any other id after them in
// lexical order.
func PartitionLess(a, b string) bool {
	ai, aErr := strconv.Atoi(a)
	bi, bErr := strconv.Atoi(b)
	switch {
	case aErr == nil && bErr == nil:
		return ai < bi
	case aErr == nil:
		return true
	case bErr == nil:
		return false
	default:
		return a < b
	}
}

// SortPartitions sorts ids in place using PartitionLess.
func SortPartitions(ids []string) {
	sort.SliceStable(ids, func(i, j int) bool {
		return PartitionLess(ids[i], ids[j])
	})
}
