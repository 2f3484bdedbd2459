package dataset

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"strconv"
	"time"

	"gonum.org/v1/gonum/floats"
)

var (
	ErrSimulationTooShort = errors.New("not enough days to fit every validation window")
	ErrUnknownSubset      = errors.New("unknown training prediction subset")
)

// SimOptions configures the synthetic multi series project.
type SimOptions struct {
	Series    int
	Days      int
	Backtests int
	Holdout   bool
	Window    int // days per validation window
	Horizon   int // forecast distances 1..Horizon
	// MissingEvery drops every n-th training row so some forecasts have no actual. 0 keeps all.
	MissingEvery int
	Start        time.Time
	Seed         uint64
}

// NewDefaultSimOptions returns a daily three series project with two backtests and a holdout.
func NewDefaultSimOptions() *SimOptions {
	return &SimOptions{
		Series:    3,
		Days:      365,
		Backtests: 2,
		Holdout:   true,
		Window:    28,
		Horizon:   7,
		Start:     time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
		Seed:      1,
	}
}

// Simulated is an in memory project that serves synthetic predictions and training data.
type Simulated struct {
	project      Project
	partitioning Partitioning
	backtest     []ForecastRecord
	holdout      []ForecastRecord
	actuals      []ActualRecord
}

// GenerateT returns n daily timestamps starting at start.
func GenerateT(n int, interval time.Duration, start time.Time) []time.Time {
	t := make([]time.Time, 0, n)
	for i := 0; i < n; i++ {
		t = append(t, start.Add(interval*time.Duration(i)))
	}
	return t
}

type Series []float64

func (s Series) Add(src Series) Series {
	floats.Add(s, src)
	return s
}

func GenerateConstY(n int, val float64) Series {
	y := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		y = append(y, val)
	}
	return Series(y)
}

func GenerateWaveY(t []time.Time, amp, periodSec, order, timeOffset float64) Series {
	n := len(t)
	y := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		val := amp * math.Sin(2.0*math.Pi*order/periodSec*(float64(t[i].Unix())+timeOffset))
		y = append(y, val)
	}
	return Series(y)
}

func GenerateNoise(rng *rand.Rand, n int, scale float64) Series {
	y := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		y = append(y, rng.NormFloat64()*scale)
	}
	return Series(y)
}

// NewSimulated generates a project. Validation windows are laid out back to front, the holdout
// last, then backtest 0, backtest 1 and so on.
func NewSimulated(opt *SimOptions) (*Simulated, error) {
	if opt == nil {
		opt = NewDefaultSimOptions()
	}
	windows := opt.Backtests
	if opt.Holdout {
		windows++
	}
	// at least one window of training history precedes the first validation window
	if opt.Days < (windows+1)*opt.Window+opt.Horizon {
		return nil, fmt.Errorf("%d days for %d windows of %d plus training, %w", opt.Days, windows, opt.Window, ErrSimulationTooShort)
	}

	rng := rand.New(rand.NewPCG(opt.Seed, opt.Seed))
	t := GenerateT(opt.Days, 24*time.Hour, TruncateDate(opt.Start))
	week := 7.0 * 86400.0

	sim := &Simulated{
		project: Project{
			ID:        "sim-project",
			Name:      "Simulated Sales",
			Target:    "sales (actual)",
			CatalogID: "sim-dataset",
		},
		partitioning: Partitioning{
			DatetimeColumn:    "date (actual)",
			SeriesColumn:      "store (actual)",
			NumberOfBacktests: opt.Backtests,
			DisableHoldout:    !opt.Holdout,
		},
	}

	for s := 0; s < opt.Series; s++ {
		seriesID := fmt.Sprintf("store_%d", s+1)
		level := 100.0 * float64(s+1)
		y := make(Series, opt.Days)
		y.Add(GenerateConstY(opt.Days, level)).
			Add(GenerateWaveY(t, level*0.2, week, 1.0, float64(s)*86400.0)).
			Add(GenerateNoise(rng, opt.Days, level*0.05))

		for i := range t {
			if opt.MissingEvery > 0 && (i+1)%opt.MissingEvery == 0 {
				continue
			}
			sim.actuals = append(sim.actuals, ActualRecord{SeriesID: seriesID, Timestamp: t[i], Actual: y[i]})
		}

		for w := 0; w < windows; w++ {
			backtest := windows - 1 - w
			if opt.Holdout {
				backtest--
			}
			partition := strconv.Itoa(backtest) + ".0"
			if backtest < 0 {
				partition = HoldoutPartition
			}
			end := opt.Days - opt.Horizon - (windows-1-w)*opt.Window
			for fp := end - opt.Window; fp < end; fp++ {
				for d := 1; d <= opt.Horizon; d++ {
					idx := fp + d
					rec := ForecastRecord{
						SeriesID:         seriesID,
						Timestamp:        t[idx],
						ForecastPoint:    t[fp],
						ForecastDistance: d,
						PartitionID:      partition,
						Prediction:       y[idx] + rng.NormFloat64()*level*0.03*math.Sqrt(float64(d)),
					}
					if partition == HoldoutPartition {
						sim.holdout = append(sim.holdout, rec)
					} else {
						sim.backtest = append(sim.backtest, rec)
					}
				}
			}
		}
	}
	return sim, nil
}

func (s *Simulated) Project(_ context.Context, _ string) (Project, error) {
	return s.project, nil
}

func (s *Simulated) Partitioning(_ context.Context, _ string) (Partitioning, error) {
	return s.partitioning, nil
}

func (s *Simulated) TrainingPredictions(_ context.Context, _, _, subset string) ([]ForecastRecord, error) {
	switch subset {
	case SubsetHoldout:
		return append([]ForecastRecord(nil), s.holdout...), nil
	case SubsetAllBacktests:
		return append([]ForecastRecord(nil), s.backtest...), nil
	default:
		return nil, fmt.Errorf("%s, %w", subset, ErrUnknownSubset)
	}
}

func (s *Simulated) TrainingData(_ context.Context, _ string, _ Columns) ([]ActualRecord, error) {
	return append([]ActualRecord(nil), s.actuals...), nil
}
