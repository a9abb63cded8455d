package collect

import (
	"bufio"
	"compress/flate"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/juju/ratelimit"
	"go.uber.org/zap"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/wenzapen/scraper/proxy"
)

const DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"

type Fetcher interface {
	Get(ctx context.Context, req *Request) (*Response, error)
}

type FetcherFunc func(ctx context.Context, req *Request) (*Response, error)

func (f FetcherFunc) Get(ctx context.Context, req *Request) (*Response, error) {
	return f(ctx, req)
}

// BrowserFetch fetches pages the way a desktop browser would and returns
// bodies decompressed and decoded to UTF-8.
type BrowserFetch struct {
	Timeout   time.Duration
	Proxy     proxy.ProxyFunc
	UserAgent string
	Header    http.Header
	// Bandwidth caps the body read rate in bytes per second. Zero means
	// no cap.
	Bandwidth int64
	Logger    *zap.Logger

	once   sync.Once
	bucket *ratelimit.Bucket
}

func (b *BrowserFetch) client() *http.Client {
	cli := &http.Client{
		Timeout: b.Timeout,
	}
	if b.Proxy != nil {
		transport := http.DefaultTransport.(*http.Transport).Clone()
		transport.Proxy = b.Proxy
		cli.Transport = transport
	}
	return cli
}

func (b *BrowserFetch) Get(ctx context.Context, request *Request) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, request.URL, nil)
	if err != nil {
		return nil, &TransportError{URL: request.URL, Err: err}
	}
	for k, vs := range b.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	for k, vs := range request.Header {
		req.Header.Del(k)
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if len(request.Cookie) > 0 {
		req.Header.Set("Cookie", request.Cookie)
	}
	ua := b.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}
	req.Header.Set("User-Agent", ua)
	req.Header.Set("Accept-Encoding", "gzip, deflate, br")

	resp, err := b.client().Do(req)
	if err != nil {
		return nil, &TransportError{URL: request.URL, Err: err}
	}
	defer resp.Body.Close()

	body, err := b.readBody(resp)
	if err != nil {
		return nil, &TransportError{URL: request.URL, Err: err}
	}
	b.logger().Debug("fetched",
		zap.String("url", request.URL),
		zap.Int("status", resp.StatusCode),
		zap.Int("bytes", len(body)),
	)

	return &Response{
		URL:    resp.Request.URL.String(),
		Status: resp.StatusCode,
		Header: resp.Header,
		Body:   body,
	}, nil
}

func (b *BrowserFetch) logger() *zap.Logger {
	if b.Logger == nil {
		return zap.NewNop()
	}
	return b.Logger
}

func (b *BrowserFetch) readBody(resp *http.Response) ([]byte, error) {
	var r io.Reader = resp.Body
	if b.Bandwidth > 0 {
		b.once.Do(func() {
			b.bucket = ratelimit.NewBucketWithRate(float64(b.Bandwidth), b.Bandwidth)
		})
		r = ratelimit.Reader(r, b.bucket)
	}

	dr, err := decompress(resp.Header.Get("Content-Encoding"), r)
	if err != nil {
		return nil, err
	}
	defer dr.Close()

	bodyReader := bufio.NewReader(dr)
	e := DetermineEncoding(bodyReader, resp.Header.Get("Content-Type"))
	utf8Reader := transform.NewReader(bodyReader, e.NewDecoder())
	return io.ReadAll(utf8Reader)
}

// decompress wraps r according to Content-Encoding. Closing the result
// releases the decoder, not r.
func decompress(contentEncoding string, r io.Reader) (io.ReadCloser, error) {
	switch strings.ToLower(strings.TrimSpace(contentEncoding)) {
	case "gzip":
		zr, err := gzip.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("gzip: %w", err)
		}
		return zr, nil
	case "deflate":
		return flate.NewReader(r), nil
	case "br":
		return io.NopCloser(brotli.NewReader(r)), nil
	}
	return io.NopCloser(r), nil
}

// DetermineEncoding sniffs the charset of the body behind r from its
// first kilobyte and the Content-Type header.
func DetermineEncoding(r *bufio.Reader, contentType string) encoding.Encoding {
	bytes, err := r.Peek(1024)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return unicode.UTF8
	}
	e, _, _ := charset.DetermineEncoding(bytes, contentType)
	return e
}
