package crawl

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseThrottle(t *testing.T) {
	tests := []struct {
		in       string
		requests int
		interval time.Duration
		wantErr  bool
	}{
		{"", 0, 0, false},
		{"2/1s", 2, time.Second, false},
		{"5/s", 5, time.Second, false},
		{"500ms", 1, 500 * time.Millisecond, false},
		{"3/250", 3, 250 * time.Millisecond, false},
		{"x/1s", 0, 0, true},
		{"0/1s", 0, 0, true},
		{"2/soon", 0, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			n, d, err := ParseThrottle(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.requests, n)
			assert.Equal(t, tt.interval, d)
		})
	}
}

func TestParseDelay(t *testing.T) {
	from, to, err := ParseDelay("100ms,2s")
	require.NoError(t, err)
	assert.Equal(t, 100*time.Millisecond, from)
	assert.Equal(t, 2*time.Second, to)

	from, to, err = ParseDelay("300")
	require.NoError(t, err)
	assert.Equal(t, 300*time.Millisecond, from)
	assert.Equal(t, 300*time.Millisecond, to)

	_, _, err = ParseDelay("2s,1s")
	assert.Error(t, err)
	_, _, err = ParseDelay("soon")
	assert.Error(t, err)
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
logLevel = "DEBUG"

[fetcher]
timeout = 3000
proxy = ["http://127.0.0.1:8888"]
cookie = "a=b"

[crawl]
concurrency = 4
throttle = "2/1s"
delay = "10ms,20ms"

[[crawl.limits]]
eventCount = 1
eventDuration = 2
bucket = 1

[[crawl.limits]]
eventCount = 20
eventDuration = 60
bucket = 20

[storage]
sqlURL = "pages.db"
`), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "DEBUG", cfg.LogLevel)
	assert.Equal(t, 3000, cfg.Fetcher.Timeout)
	assert.Equal(t, []string{"http://127.0.0.1:8888"}, cfg.Fetcher.Proxy)
	assert.Equal(t, 4, cfg.Crawl.Concurrency)
	assert.Equal(t, "2/1s", cfg.Crawl.Throttle)
	require.Len(t, cfg.Crawl.Limits, 2)
	assert.Equal(t, 60, cfg.Crawl.Limits[1].EventDuration)
	assert.Equal(t, "pages.db", cfg.Storage.SQLURL)
	assert.Equal(t, 100, cfg.Storage.BatchCount)

	l := multiLimiter(cfg.Crawl.Limits)
	require.NotNil(t, l)
	assert.InDelta(t, 0.5, float64(l.Limit()), 1e-9)
}

func TestLoadConfig_Errors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte("loglevel = \"x\"\n"), 0o644))
	_, err = LoadConfig(path)
	assert.ErrorContains(t, err, "unknown keys")

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}
