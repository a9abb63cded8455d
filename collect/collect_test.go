package collect

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/andybalholm/brotli"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/simplifiedchinese"
)

const page = `<html><head><title>hello</title></head><body><h1>世界</h1></body></html>`

func TestBrowserFetch_Headers(t *testing.T) {
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.Write([]byte(page))
	}))
	defer srv.Close()

	f := &BrowserFetch{Header: http.Header{"X-Default": {"1"}, "X-Over": {"default"}}}
	resp, err := f.Get(context.Background(), &Request{
		URL:    srv.URL,
		Cookie: "a=b",
		Header: http.Header{"X-Over": {"request"}},
	})
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, page, string(resp.Body))
	assert.Equal(t, DefaultUserAgent, got.Get("User-Agent"))
	assert.Equal(t, "a=b", got.Get("Cookie"))
	assert.Equal(t, "1", got.Get("X-Default"))
	assert.Equal(t, []string{"request"}, got.Values("X-Over"))
}

func TestBrowserFetch_Decompress(t *testing.T) {
	encoders := map[string]func([]byte) []byte{
		"gzip": func(b []byte) []byte {
			var buf bytes.Buffer
			zw := gzip.NewWriter(&buf)
			zw.Write(b)
			zw.Close()
			return buf.Bytes()
		},
		"deflate": func(b []byte) []byte {
			var buf bytes.Buffer
			fw, _ := flate.NewWriter(&buf, flate.DefaultCompression)
			fw.Write(b)
			fw.Close()
			return buf.Bytes()
		},
		"br": func(b []byte) []byte {
			var buf bytes.Buffer
			bw := brotli.NewWriter(&buf)
			bw.Write(b)
			bw.Close()
			return buf.Bytes()
		},
	}
	for name, encode := range encoders {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Encoding", name)
				w.Header().Set("Content-Type", "text/html; charset=utf-8")
				w.Write(encode([]byte(page)))
			}))
			defer srv.Close()

			resp, err := (&BrowserFetch{}).Get(context.Background(), &Request{URL: srv.URL})
			require.NoError(t, err)
			assert.Equal(t, page, string(resp.Body))
		})
	}
}

type trackedReader struct {
	io.Reader
	closed bool
}

func (r *trackedReader) Close() error {
	r.closed = true
	return nil
}

func TestDecompress_CloseLeavesSource(t *testing.T) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	zw.Write([]byte(page))
	zw.Close()

	for _, enc := range []string{"gzip", ""} {
		data := buf.Bytes()
		if enc == "" {
			data = []byte(page)
		}
		src := &trackedReader{Reader: bytes.NewReader(data)}
		rc, err := decompress(enc, src)
		require.NoError(t, err, enc)
		got, err := io.ReadAll(rc)
		require.NoError(t, err, enc)
		assert.Equal(t, page, string(got), enc)
		assert.NoError(t, rc.Close(), enc)
		assert.False(t, src.closed, enc)
	}

	_, err := decompress("gzip", bytes.NewReader([]byte("not gzip")))
	assert.Error(t, err)
}

func TestBrowserFetch_Charset(t *testing.T) {
	gbk, err := simplifiedchinese.GBK.NewEncoder().Bytes([]byte(page))
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=gbk")
		w.Write(gbk)
	}))
	defer srv.Close()

	resp, err := (&BrowserFetch{}).Get(context.Background(), &Request{URL: srv.URL})
	require.NoError(t, err)
	assert.Equal(t, page, string(resp.Body))
}

func TestBrowserFetch_ErrorStatusIsNotTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	resp, err := (&BrowserFetch{}).Get(context.Background(), &Request{URL: srv.URL})
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.Status)
}

func TestBrowserFetch_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := (&BrowserFetch{}).Get(context.Background(), &Request{URL: url})
	var te *TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, url, te.URL)
}

func TestBrowserFetch_Bandwidth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(page))
	}))
	defer srv.Close()

	f := &BrowserFetch{Bandwidth: 1 << 20}
	for i := 0; i < 2; i++ {
		resp, err := f.Get(context.Background(), &Request{URL: srv.URL})
		require.NoError(t, err)
		assert.Equal(t, page, string(resp.Body))
	}
}

func TestFetcherFunc(t *testing.T) {
	var f Fetcher = FetcherFunc(func(_ context.Context, req *Request) (*Response, error) {
		return &Response{URL: req.URL, Status: 200, Body: []byte("ok")}, nil
	})
	resp, err := f.Get(context.Background(), &Request{URL: "http://example.com"})
	require.NoError(t, err)
	assert.Equal(t, "ok", string(resp.Body))
}
