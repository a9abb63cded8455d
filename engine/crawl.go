package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wenzapen/scraper/dom"
	"github.com/wenzapen/scraper/schema"
	"github.com/wenzapen/scraper/selector"
	"github.com/wenzapen/scraper/storage"
	"github.com/wenzapen/scraper/stream"
)

// Page describes one extracted page of a running crawl.
type Page struct {
	CrawlID string
	Index   int
	URL     string
	Result  any
}

// AbortFunc stops pagination when it returns true for the result of the
// current page and the URL of the next one.
type AbortFunc func(result any, next string) bool

// Crawl is one scrape of a source with a schema, optionally following
// pagination. Configure it before running; a Crawl can be run repeatedly.
type Crawl struct {
	crawler  *Crawler
	source   string
	scope    string
	node     schema.Node
	paginate string
	limit    int
	abort    AbortFunc
}

// Paginate follows the URL the expression resolves to on every page.
func (c *Crawl) Paginate(expr string) *Crawl {
	c.paginate = expr
	return c
}

// Limit stops pagination after n pages. n <= 0 means no limit.
func (c *Crawl) Limit(n int) *Crawl {
	c.limit = n
	return c
}

func (c *Crawl) Abort(fn AbortFunc) *Crawl {
	c.abort = fn
	return c
}

func (c *Crawl) Pagination() string { return c.paginate }

func (c *Crawl) PageLimit() int { return c.limit }

func (c *Crawl) AbortFunc() AbortFunc { return c.abort }

// Run performs the crawl. Without pagination the result is the result of
// the single page; with pagination it is the sequence of page results.
func (c *Crawl) Run(ctx context.Context) (any, error) {
	return c.run(ctx, nil, stream.Discard)
}

// Write runs the crawl and streams its results to w as JSON. The output is
// complete JSON only once Write returns without error.
func (c *Crawl) Write(ctx context.Context, w io.Writer) error {
	_, err := c.run(ctx, nil, c.sink(w))
	return err
}

func (c *Crawl) WriteFile(ctx context.Context, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	err = c.Write(ctx, f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return err
}

// Stream starts the crawl in the background and returns a reader of its
// JSON output. A failed crawl surfaces as a read error after the pages
// streamed before the failure. Closing the reader stops the crawl.
func (c *Crawl) Stream(ctx context.Context) io.ReadCloser {
	ctx, cancel := context.WithCancel(ctx)
	store := stream.NewStore()
	go func() {
		defer cancel()
		_, err := c.run(ctx, nil, c.sink(store))
		store.CloseWithError(err)
	}()
	return &streamReader{ReadCloser: store.NewReader(), cancel: cancel}
}

type streamReader struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (r *streamReader) Close() error {
	r.cancel()
	return r.ReadCloser.Close()
}

// Decode runs the crawl and decodes its JSON output into v.
func (c *Crawl) Decode(ctx context.Context, v any) error {
	rc := c.Stream(ctx)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// Extract runs the crawl against root, so that a crawl can be nested in
// the schema of another.
func (c *Crawl) Extract(ctx context.Context, root *goquery.Selection) (any, error) {
	return c.run(ctx, root, stream.Discard)
}

func (c *Crawl) sink(w io.Writer) stream.Sink {
	if c.paginate != "" {
		return stream.Array(w)
	}
	return stream.Object(w)
}

type crawlState struct {
	id        string
	pages     []any
	page      int
	remaining int
}

func (c *Crawl) run(ctx context.Context, root *goquery.Selection, sink stream.Sink) (any, error) {
	cr := c.crawler
	st := &crawlState{id: uuid.NewString(), pages: []any{}, remaining: c.limit}
	logger := cr.logger.With(zap.String("crawl", st.id))

	doc, pageURL, err := c.start(root)
	if err != nil {
		return nil, err
	}

	for {
		if pageURL != "" {
			logger.Debug("fetching", zap.String("url", pageURL))
			d, err := cr.load(ctx, pageURL)
			if err != nil {
				return nil, err
			}
			doc = d.Selection
		}

		result, err := cr.walker.Evaluate(ctx, doc, c.scope, c.node)
		if err != nil {
			return nil, err
		}
		c.emit(st, pageURL, result, logger)

		if c.paginate == "" {
			return c.finish(sink, result, result)
		}
		if arr, ok := result.([]any); ok {
			st.pages = append(st.pages, arr...)
		} else {
			st.pages = append(st.pages, result)
		}

		st.remaining--
		if c.limit > 0 && st.remaining <= 0 {
			logger.Debug("reached limit, ending")
			return c.finish(sink, result, st.pages)
		}

		v, err := selector.Resolve(doc, "", selector.Query{Expr: c.paginate}, cr.filters)
		if err != nil {
			return nil, fmt.Errorf("paginate: %w", err)
		}
		next, _ := v.(string)
		if !dom.IsURL(next) {
			logger.Debug("next is not a url, finishing up", zap.Any("next", v))
			return c.finish(sink, result, st.pages)
		}
		if c.abort != nil && c.abort(result, next) {
			logger.Debug("abort check passed, ending", zap.String("next", next))
			return c.finish(sink, result, st.pages)
		}

		if err := sink.Write(result, false); err != nil {
			return nil, err
		}
		if c.limit > 0 {
			logger.Debug("paginating", zap.String("next", next), zap.Int("left", st.remaining))
		}
		pageURL = next
	}
}

// start decides where a run begins: either a document to extract from
// directly or a URL to fetch first.
func (c *Crawl) start(root *goquery.Selection) (*goquery.Selection, string, error) {
	cr := c.crawler
	if root == nil && dom.IsURL(c.source) {
		return nil, c.source, nil
	}

	base := root
	if base == nil {
		d, err := dom.Load(c.source, "")
		if err != nil {
			return nil, "", err
		}
		base = d.Selection
	}
	if !strings.Contains(c.scope, "@") {
		return base, "", nil
	}

	v, err := selector.Resolve(base, "", selector.Query{Expr: c.scope}, cr.filters)
	if err != nil {
		return nil, "", err
	}
	if u, ok := v.(string); ok && dom.IsURL(u) {
		cr.logger.Debug("resolved scope to a url", zap.String("scope", c.scope), zap.String("url", u))
		return nil, u, nil
	}
	cr.logger.Debug("scope is not a url, skipping", zap.String("scope", c.scope), zap.Any("value", v))
	return dom.Empty().Selection, "", nil
}

func (c *Crawl) emit(st *crawlState, pageURL string, result any, logger *zap.Logger) {
	cr := c.crawler
	st.page++
	if cr.storage != nil {
		err := cr.storage.Save(&storage.DataCell{
			CrawlID: st.id,
			Page:    st.page,
			URL:     pageURL,
			Data:    result,
			Time:    time.Now(),
		})
		if err != nil {
			logger.Error("save page failed", zap.Error(err), zap.Int("page", st.page))
		}
	}
	if cr.pageHook != nil {
		cr.pageHook(Page{CrawlID: st.id, Index: st.page, URL: pageURL, Result: result})
	}
}

// finish writes the last page to the sink and returns out as the result of
// the run.
func (c *Crawl) finish(sink stream.Sink, last, out any) (any, error) {
	if s := c.crawler.storage; s != nil {
		if err := s.Flush(); err != nil {
			c.crawler.logger.Error("flush storage failed", zap.Error(err))
		}
	}
	if err := sink.Write(last, true); err != nil {
		return nil, err
	}
	return out, nil
}
