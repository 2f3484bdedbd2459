package main

import (
	"io"
	"net/http"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	liftchart "github.com/aouyang1/go-liftchart"
	"github.com/aouyang1/go-liftchart/cache"
	"github.com/aouyang1/go-liftchart/datarobot"
	"github.com/aouyang1/go-liftchart/internal/config"
)

type noClose struct{}

func (noClose) Close() error { return nil }

// newCache builds the merge cache named by the config. The returned closer releases any connection.
func newCache(c config.CacheConfig) (cache.Cache, io.Closer, error) {
	switch c.Driver {
	case "", "memory":
		return cache.NewMemory(c.TTL()), noClose{}, nil
	case "none":
		return cache.Noop{}, noClose{}, nil
	case "redis":
		r, err := cache.NewRedis(c.RedisAddr, c.RedisDB, c.RedisPassword, c.TTL())
		if err != nil {
			return nil, nil, eris.Wrap(err, "cache: connect redis")
		}
		return r, r, nil
	default:
		return nil, nil, eris.Errorf("cache: unknown driver %q", c.Driver)
	}
}

func newClient(c config.DataRobotConfig) *datarobot.Client {
	return datarobot.NewClient(c.Token,
		datarobot.WithBaseURL(c.Endpoint),
		datarobot.WithHTTPClient(&http.Client{Timeout: c.Timeout()}),
		datarobot.WithRateLimit(c.RateLimit),
		datarobot.WithPollInterval(c.PollInterval()),
		datarobot.WithMaxWait(c.MaxWait()),
	)
}

// newDashboard wires a dashboard over src with the configured cache and bin default.
func newDashboard(cfg *config.Config, src liftchart.Source) (*liftchart.Dashboard, io.Closer, error) {
	c, closer, err := newCache(cfg.Cache)
	if err != nil {
		return nil, nil, err
	}
	zap.L().Debug("merge cache ready", zap.String("driver", cfg.Cache.Driver), zap.Duration("ttl", cfg.Cache.TTL()))
	return liftchart.New(src,
		liftchart.WithCache(c),
		liftchart.WithDefaultBins(cfg.Lift.DefaultBins),
		liftchart.WithLogger(zap.L()),
	), closer, nil
}
