package crawl

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	LogLevel string        `toml:"logLevel"`
	LogFile  string        `toml:"logFile"`
	Fetcher  FetcherConfig `toml:"fetcher"`
	Crawl    CrawlConfig   `toml:"crawl"`
	Storage  StorageConfig `toml:"storage"`
}

type FetcherConfig struct {
	Proxy     []string `toml:"proxy"`
	Timeout   int      `toml:"timeout"` // millisecond
	UserAgent string   `toml:"userAgent"`
	Cookie    string   `toml:"cookie"`
	Bandwidth int64    `toml:"bandwidth"` // bytes per second
}

type CrawlConfig struct {
	Concurrency int           `toml:"concurrency"`
	Throttle    string        `toml:"throttle"`
	Delay       string        `toml:"delay"`
	Timeout     string        `toml:"timeout"`
	Limit       int           `toml:"limit"`
	QueueLimit  int           `toml:"queueLimit"`
	Limits      []LimitConfig `toml:"limits"`
}

type LimitConfig struct {
	EventCount    int `toml:"eventCount"`
	EventDuration int `toml:"eventDuration"` // second
	Bucket        int `toml:"bucket"`        // size of bucket
}

type StorageConfig struct {
	SQLURL     string `toml:"sqlURL"`
	BatchCount int    `toml:"batchCount"`
}

func DefaultConfig() Config {
	return Config{
		LogLevel: "INFO",
		Fetcher: FetcherConfig{
			Timeout: 5000,
		},
		Storage: StorageConfig{
			BatchCount: 100,
		},
	}
}

// LoadConfig reads a TOML file over the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return cfg, fmt.Errorf("load config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return cfg, fmt.Errorf("load config %s: unknown keys %v", path, undecoded)
	}
	return cfg, nil
}

// ParseThrottle reads "N/DURATION" (N requests per DURATION) or a bare
// "DURATION" meaning one request per DURATION.
func ParseThrottle(s string) (int, time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, 0, nil
	}
	requests := 1
	if n, d, ok := strings.Cut(s, "/"); ok {
		var err error
		if requests, err = strconv.Atoi(strings.TrimSpace(n)); err != nil || requests <= 0 {
			return 0, 0, fmt.Errorf("invalid throttle %q: bad request count", s)
		}
		s = strings.TrimSpace(d)
	}
	// "2/s" reads as two per second
	if s != "" && (s[0] < '0' || s[0] > '9') {
		s = "1" + s
	}
	interval, err := parseDuration(s)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid throttle: %w", err)
	}
	return requests, interval, nil
}

// ParseDelay reads "FROM[,TO]".
func ParseDelay(s string) (time.Duration, time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, 0, nil
	}
	f, t, ok := strings.Cut(s, ",")
	from, err := parseDuration(f)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid delay: %w", err)
	}
	if !ok {
		return from, from, nil
	}
	to, err := parseDuration(t)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid delay: %w", err)
	}
	if to < from {
		return 0, 0, fmt.Errorf("invalid delay %q: upper bound below lower bound", s)
	}
	return from, to, nil
}

// parseDuration accepts Go durations and bare integers in milliseconds.
func parseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if ms, err := strconv.Atoi(s); err == nil {
		return time.Duration(ms) * time.Millisecond, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	return d, nil
}
