package crawl

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/wenzapen/scraper/collect"
	"github.com/wenzapen/scraper/engine"
	"github.com/wenzapen/scraper/limiter"
	"github.com/wenzapen/scraper/log"
	"github.com/wenzapen/scraper/parse"
	"github.com/wenzapen/scraper/parse/doubanbook"
	"github.com/wenzapen/scraper/parse/doubangroup"
	"github.com/wenzapen/scraper/proxy"
	"github.com/wenzapen/scraper/schema"
	"github.com/wenzapen/scraper/selector"
	"github.com/wenzapen/scraper/storage/sqlstorage"
)

var CrawlCmd = &cobra.Command{
	Use:   "crawl",
	Short: "scrape a page, or a run of pages, with a JSON schema",
	Long:  "scrape a page, or a run of pages, with a JSON schema and write the result as JSON",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return Run(cmd.Context(), cmd, cmd.OutOrStdout())
	},
}

var (
	configPath  string
	sourceURL   string
	scope       string
	schemaArg   string
	paginate    string
	limit       int
	concurrency int
	throttle    string
	delay       string
	timeout     string
	out         string
	dbPath      string
	progress    bool
	presetName  string
)

var presets = map[string]parse.Preset{
	doubanbook.Preset.Name:  doubanbook.Preset,
	doubangroup.Preset.Name: doubangroup.Preset,
}

func init() {
	CrawlCmd.Flags().StringVar(&configPath, "config", "", "TOML config file")
	CrawlCmd.Flags().StringVar(&sourceURL, "url", "", "page to start from, or HTML markup")
	CrawlCmd.Flags().StringVar(&scope, "scope", "", "selector every schema selector is scoped to, or an attribute reference to start from")
	CrawlCmd.Flags().StringVar(&schemaArg, "schema", "", "schema JSON file, or inline JSON")
	CrawlCmd.Flags().StringVar(&paginate, "paginate", "", "selector expression of the next page URL")
	CrawlCmd.Flags().IntVar(&limit, "limit", 0, "maximum number of pages, 0 for no limit")
	CrawlCmd.Flags().IntVar(&concurrency, "concurrency", 0, "maximum fetches in flight, 0 for no limit")
	CrawlCmd.Flags().StringVar(&throttle, "throttle", "", "rate limit as N/DURATION, e.g. 2/1s")
	CrawlCmd.Flags().StringVar(&delay, "delay", "", "random delay before each fetch as FROM[,TO]")
	CrawlCmd.Flags().StringVar(&timeout, "timeout", "", "per fetch timeout")
	CrawlCmd.Flags().StringVar(&out, "out", "-", "output file, - for stdout")
	CrawlCmd.Flags().StringVar(&dbPath, "db", "", "sqlite file every page is also saved to")
	CrawlCmd.Flags().BoolVar(&progress, "progress", false, "show page progress on stderr")
	CrawlCmd.Flags().StringVar(&presetName, "preset", "", "run a built-in crawl (doubanbook, doubangroup) instead of --schema")
}

// Run executes a crawl configured by the config file and the flags of cmd.
// Flags that were set override the config file.
func Run(ctx context.Context, cmd *cobra.Command, stdout io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	cfg, err := LoadConfig(configPath)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("concurrency") {
		cfg.Crawl.Concurrency = concurrency
	}
	if flags.Changed("throttle") {
		cfg.Crawl.Throttle = throttle
	}
	if flags.Changed("delay") {
		cfg.Crawl.Delay = delay
	}
	if flags.Changed("timeout") {
		cfg.Crawl.Timeout = timeout
	}
	if flags.Changed("limit") {
		cfg.Crawl.Limit = limit
	}
	if flags.Changed("db") {
		cfg.Storage.SQLURL = dbPath
	}

	logger, closeLog, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer closeLog()
	defer logger.Sync()

	var preset *parse.Preset
	var node schema.Node
	if presetName != "" {
		p, ok := presets[presetName]
		if !ok {
			return fmt.Errorf("unknown preset %q", presetName)
		}
		if flags.Changed("url") {
			p.URL = sourceURL
		}
		if flags.Changed("limit") {
			p.Limit = limit
		}
		preset = &p
	} else {
		if schemaArg == "" {
			return fmt.Errorf("one of --schema or --preset is required")
		}
		if node, err = loadSchema(schemaArg); err != nil {
			return err
		}
	}

	opts, closeStorage, err := crawlerOptions(cfg, logger)
	if err != nil {
		return err
	}
	defer closeStorage()

	if progress {
		total, next := cfg.Crawl.Limit, paginate
		if preset != nil {
			total, next = preset.Limit, preset.Paginate
		}
		if total <= 0 || next == "" {
			total = -1
		}
		bar := progressbar.NewOptions(total,
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionSetDescription("pages"),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionSetWidth(40),
		)
		defer bar.Finish()
		opts = append(opts, engine.WithPageHook(func(engine.Page) { bar.Add(1) }))
	}

	var crawl *engine.Crawl
	if preset != nil {
		opts = append(opts, engine.WithFilters(selector.Builtin().Merge(preset.Filters)))
		crawl = preset.Crawl(engine.NewCrawler(opts...))
	} else {
		crawl = engine.NewCrawler(opts...).Scrape(sourceURL, scope, node).Paginate(paginate).Limit(cfg.Crawl.Limit)
	}

	logger.Info("crawl start",
		zap.String("preset", presetName),
		zap.String("paginate", crawl.Pagination()),
		zap.Int("limit", crawl.PageLimit()),
	)
	if out == "" || out == "-" {
		err = crawl.Write(ctx, stdout)
		fmt.Fprintln(stdout)
	} else {
		err = crawl.WriteFile(ctx, out)
	}
	if err != nil {
		logger.Error("crawl failed", zap.Error(err))
		return err
	}
	logger.Info("crawl done")
	return nil
}

func newLogger(cfg Config) (*zap.Logger, func(), error) {
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}
	// stdout carries the results, so logs go to stderr
	plugin := log.NewStderrPlugin(level)
	if cfg.LogFile == "" {
		return log.NewLogger(plugin), func() {}, nil
	}
	filePlugin, closer := log.NewFilePlugin(cfg.LogFile, level)
	return log.NewLogger(log.NewTee(plugin, filePlugin)), func() { closer.Close() }, nil
}

// loadSchema reads the schema from a file, or parses arg itself when it
// already is JSON.
func loadSchema(arg string) (schema.Node, error) {
	data := []byte(arg)
	if t := strings.TrimSpace(arg); !strings.HasPrefix(t, "{") && !strings.HasPrefix(t, "[") && !strings.HasPrefix(t, `"`) {
		var err error
		if data, err = os.ReadFile(arg); err != nil {
			return nil, fmt.Errorf("read schema: %w", err)
		}
	}
	return schema.ParseJSON(data)
}

func crawlerOptions(cfg Config, logger *zap.Logger) ([]engine.Option, func(), error) {
	closeStorage := func() {}
	requests, interval, err := ParseThrottle(cfg.Crawl.Throttle)
	if err != nil {
		return nil, closeStorage, err
	}
	from, to, err := ParseDelay(cfg.Crawl.Delay)
	if err != nil {
		return nil, closeStorage, err
	}
	var jobTimeout time.Duration
	if cfg.Crawl.Timeout != "" {
		if jobTimeout, err = parseDuration(cfg.Crawl.Timeout); err != nil {
			return nil, closeStorage, fmt.Errorf("invalid timeout: %w", err)
		}
	}

	var p proxy.ProxyFunc
	if len(cfg.Fetcher.Proxy) > 0 {
		if p, err = proxy.RoundRobinSwitcher(cfg.Fetcher.Proxy...); err != nil {
			return nil, closeStorage, err
		}
	}
	logger.Sugar().Info("proxy list: ", cfg.Fetcher.Proxy, " timeout: ", cfg.Fetcher.Timeout)
	f := &collect.BrowserFetch{
		Timeout:   time.Duration(cfg.Fetcher.Timeout) * time.Millisecond,
		Proxy:     p,
		UserAgent: cfg.Fetcher.UserAgent,
		Bandwidth: cfg.Fetcher.Bandwidth,
		Logger:    logger.Named("fetch"),
	}

	opts := []engine.Option{
		engine.WithLogger(logger),
		engine.WithFetcher(f),
		engine.WithFilters(selector.Builtin()),
		engine.WithConcurrency(cfg.Crawl.Concurrency),
		engine.WithThrottle(requests, interval),
		engine.WithDelay(from, to),
		engine.WithTimeout(jobTimeout),
		engine.WithQueueLimit(cfg.Crawl.QueueLimit),
	}
	if cookie := cfg.Fetcher.Cookie; cookie != "" {
		opts = append(opts, engine.WithRequestHook(func(r *collect.Request) { r.Cookie = cookie }))
	}
	if l := multiLimiter(cfg.Crawl.Limits); l != nil {
		opts = append(opts, engine.WithRateLimit(l))
	}

	if cfg.Storage.SQLURL != "" {
		s, err := sqlstorage.New(
			sqlstorage.WithBatchCount(cfg.Storage.BatchCount),
			sqlstorage.WithLogger(logger),
			sqlstorage.WithSQLURL(cfg.Storage.SQLURL),
		)
		if err != nil {
			logger.Error("create sql storage failed", zap.Error(err))
			return nil, closeStorage, err
		}
		closeStorage = func() {
			if err := s.Close(); err != nil {
				logger.Error("close sql storage failed", zap.Error(err))
			}
		}
		opts = append(opts, engine.WithStorage(s))
	}
	return opts, closeStorage, nil
}

func multiLimiter(cfgs []LimitConfig) limiter.RateLimiter {
	if len(cfgs) == 0 {
		return nil
	}
	limits := make([]limiter.RateLimiter, 0, len(cfgs))
	for _, lcfg := range cfgs {
		bucket := lcfg.Bucket
		if bucket <= 0 {
			bucket = 1
		}
		l := rate.NewLimiter(limiter.Per(lcfg.EventCount, time.Duration(lcfg.EventDuration)*time.Second), bucket)
		limits = append(limits, l)
	}
	return limiter.Multi(limits...)
}
