package engine

import (
	"context"
	"errors"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/wenzapen/scraper/collect"
	"github.com/wenzapen/scraper/dom"
	"github.com/wenzapen/scraper/limiter"
	"github.com/wenzapen/scraper/schema"
	"github.com/wenzapen/scraper/selector"
)

// Crawler holds the configuration shared by every crawl it starts: the
// transport, the rate limits and the request queue.
type Crawler struct {
	options
	fetcher  collect.Fetcher
	throttle *limiter.Throttle
	delayer  *limiter.Delayer
	queue    *Queue
	walker   *schema.Walker
	logger   *zap.Logger
}

func NewCrawler(opts ...Option) *Crawler {
	options := DefaultOptions
	for _, opt := range opts {
		opt(&options)
	}
	if options.logger == nil {
		options.logger = zap.NewNop()
	}

	c := &Crawler{options: options}
	c.logger = options.logger.Named("crawler")
	c.fetcher = options.fetcher
	if c.fetcher == nil {
		c.fetcher = &collect.BrowserFetch{Logger: options.logger.Named("fetch")}
	}
	c.throttle = limiter.NewThrottle(options.throttleRequests, options.throttleInterval)
	c.delayer = limiter.NewDelayer(options.delayFrom, options.delayTo)
	c.queue = NewQueue(c.get, options.concurrency, options.queueLimit, options.timeout, options.logger)
	c.walker = schema.NewWalker(options.filters, options.logger)
	return c
}

func (c *Crawler) Concurrency() int { return c.concurrency }

func (c *Crawler) Throttle() (requests int, interval time.Duration) {
	return c.throttle.Rate()
}

func (c *Crawler) Timeout() time.Duration { return c.timeout }

func (c *Crawler) Fetcher() collect.Fetcher { return c.fetcher }

func (c *Crawler) Delay() (from, to time.Duration) { return c.delayer.Range() }

func (c *Crawler) QueueLimit() int { return c.queueLimit }

func (c *Crawler) Filters() selector.Filters { return c.filters }

// Scrape prepares a crawl of source. source is a URL, HTML markup or empty.
// scope narrows every selector of n; when it is an attribute reference such
// as "a@href" it is resolved to the URL to start from instead.
func (c *Crawler) Scrape(source, scope string, n schema.Node) *Crawl {
	return &Crawl{
		crawler: c,
		source:  source,
		scope:   scope,
		node:    n,
	}
}

// fetch waits for the rate limits, then runs one fetch through the queue.
// A full queue is retried after a back-off.
func (c *Crawler) fetch(ctx context.Context, url string) (*collect.Response, error) {
	if c.rateLimit != nil {
		if err := c.rateLimit.Wait(ctx); err != nil {
			return nil, err
		}
	}
	if wait := c.throttle.Wait() + c.delayer.Next(); wait > 0 {
		c.logger.Debug("waiting", zap.String("url", url), zap.Duration("wait", wait))
		if err := sleep(ctx, wait); err != nil {
			return nil, err
		}
	}

	type result struct {
		resp *collect.Response
		err  error
	}
	for {
		ch := make(chan result, 1)
		err := c.queue.Enqueue(ctx, url, func(resp *collect.Response, err error) {
			ch <- result{resp, err}
		})
		if errors.Is(err, ErrQueueFull) {
			c.logger.Debug("queue full, retrying", zap.String("url", url))
			if err := sleep(ctx, c.retryBackoff); err != nil {
				return nil, err
			}
			continue
		}
		if err != nil {
			return nil, err
		}
		var r result
		select {
		case r = <-ch:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		if errors.Is(r.err, ErrTimeout) {
			r.err = &collect.TransportError{URL: url, Err: r.err}
		}
		return r.resp, r.err
	}
}

func (c *Crawler) get(ctx context.Context, url string) (*collect.Response, error) {
	req := &collect.Request{URL: url}
	if c.requestHook != nil {
		c.requestHook(req)
	}
	resp, err := c.fetcher.Get(ctx, req)
	if err != nil {
		var te *collect.TransportError
		if !errors.As(err, &te) {
			err = &collect.TransportError{URL: url, Err: err}
		}
		c.logger.Error("can't fetch", zap.Error(err), zap.String("url", url))
		return nil, err
	}
	if c.responseHook != nil {
		c.responseHook(resp)
	}
	c.logger.Debug("got response", zap.String("url", url), zap.Int("status", resp.Status))
	return resp, nil
}

// load fetches url and parses it with its links made absolute.
func (c *Crawler) load(ctx context.Context, url string) (*goquery.Document, error) {
	resp, err := c.fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	base := resp.URL
	if base == "" {
		base = url
	}
	return dom.Load(string(resp.Body), base)
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
