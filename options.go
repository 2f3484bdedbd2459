package liftchart

import (
	"github.com/aouyang1/go-liftchart/accuracy"
	"github.com/aouyang1/go-liftchart/cache"
	"github.com/rickar/cal/v2"
	"go.uber.org/zap"
)

// Option configures a Dashboard.
type Option func(*Dashboard)

// WithCache sets the merge cache. A nil cache disables caching.
func WithCache(c cache.Cache) Option {
	return func(d *Dashboard) {
		if c == nil {
			c = cache.Noop{}
		}
		d.cache = c
	}
}

// WithDefaultBins sets the bin count used when a request does not choose one.
func WithDefaultBins(k int) Option {
	return func(d *Dashboard) {
		d.defaultBins = k
	}
}

// WithHolidays sets the holidays marked on the accuracy over time chart. No holidays disables
// marking.
func WithHolidays(holidays ...*cal.Holiday) Option {
	return func(d *Dashboard) {
		d.holidays = holidays
	}
}

// WithOutliers sets how unusually large one step ahead errors are detected. A nil opt disables
// detection.
func WithOutliers(opt *accuracy.OutlierOptions) Option {
	return func(d *Dashboard) {
		d.outliers = opt
	}
}

func WithLogger(log *zap.Logger) Option {
	return func(d *Dashboard) {
		d.log = log
	}
}
