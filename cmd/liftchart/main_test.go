package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aouyang1/go-liftchart/cache"
	"github.com/aouyang1/go-liftchart/internal/config"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })
	return dir
}

func TestNewCache(t *testing.T) {
	mr := miniredis.RunT(t)

	testData := map[string]struct {
		cfg      config.CacheConfig
		expected any
		err      bool
	}{
		"memory":  {cfg: config.CacheConfig{Driver: "memory", TTLMinutes: 5}, expected: &cache.Memory{}},
		"default": {cfg: config.CacheConfig{}, expected: &cache.Memory{}},
		"none":    {cfg: config.CacheConfig{Driver: "none"}, expected: cache.Noop{}},
		"redis":   {cfg: config.CacheConfig{Driver: "redis", RedisAddr: mr.Addr(), TTLMinutes: 1}, expected: &cache.Redis{}},
		"redis unreachable": {
			cfg: config.CacheConfig{Driver: "redis", RedisAddr: "127.0.0.1:1"},
			err: true,
		},
		"unknown": {cfg: config.CacheConfig{Driver: "memcached"}, err: true},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			c, closer, err := newCache(td.cfg)
			if td.err {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			defer closer.Close()
			assert.IsType(t, td.expected, c)
		})
	}
}

func TestNewClient(t *testing.T) {
	c := newClient(config.DataRobotConfig{
		Token:            "token",
		Endpoint:         "http://localhost:1234/api/v2",
		TimeoutSecs:      1,
		PollIntervalSecs: 1,
		MaxWaitSecs:      1,
		RateLimit:        2,
	})
	assert.NotNil(t, c)
}

func TestSimulateCommand(t *testing.T) {
	dir := chdirTemp(t)
	out := filepath.Join(dir, "sim.html")

	rootCmd.SetArgs([]string{"simulate", "--series", "2", "--days", "200", "--bins", "5", "--series-id", "store_2", "--out", out})
	require.NoError(t, rootCmd.Execute())

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Binned Lift Chart")
	assert.Contains(t, string(data), "series store_2")
}

func TestSimulateCommandTooShort(t *testing.T) {
	dir := chdirTemp(t)

	rootCmd.SetArgs([]string{"simulate", "--days", "10", "--out", filepath.Join(dir, "sim.html")})
	assert.Error(t, rootCmd.Execute())
}

func TestRenderCommandRequiresModel(t *testing.T) {
	chdirTemp(t)
	renderFlags.url, renderFlags.project, renderFlags.model = "", "", ""

	rootCmd.SetArgs([]string{"render", "--project", "p"})
	err := rootCmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--url or --project and --model are required")
}

func TestRenderCommandRequiresToken(t *testing.T) {
	chdirTemp(t)
	t.Setenv("LIFTCHART_DATAROBOT_TOKEN", "")

	rootCmd.SetArgs([]string{"render", "--url", "https://app.datarobot.com/projects/5f3c2b1a0e9d8c7b6a5f4e3d/models/6a5b4c3d2e1f0a9b8c7d6e5f/"})
	err := rootCmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "datarobot.token is required")
}

func TestRenderCommandBadProfile(t *testing.T) {
	chdirTemp(t)

	rootCmd.SetArgs([]string{"render", "--profile", "block"})
	err := rootCmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown profile")
	renderFlags.profile = ""
}
