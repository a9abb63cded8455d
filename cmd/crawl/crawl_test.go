package crawl

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wenzapen/scraper/sqldb"
)

func newSite(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/1":
			fmt.Fprint(w, `<h1> One </h1><span class="n">1,000</span><a class="next" href="/2">next</a>`)
		case "/2":
			fmt.Fprint(w, `<h1>Two</h1><span class="n">2</span>`)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func setFlags(t *testing.T, kv map[string]string) {
	t.Helper()
	for k, v := range kv {
		require.NoError(t, CrawlCmd.Flags().Set(k, v))
	}
	t.Cleanup(func() {
		CrawlCmd.Flags().VisitAll(func(f *pflag.Flag) {
			f.Value.Set(f.DefValue)
			f.Changed = false
		})
	})
}

func TestRun_Stdout(t *testing.T) {
	srv := newSite(t)
	setFlags(t, map[string]string{
		"url":      srv.URL + "/1",
		"schema":   `{"title": "h1 | trim", "n": ".n | number"}`,
		"paginate": ".next@href",
	})

	var buf bytes.Buffer
	require.NoError(t, Run(context.Background(), CrawlCmd, &buf))
	assert.JSONEq(t, `[{"title":"One","n":1000},{"title":"Two","n":2}]`, buf.String())
}

func TestRun_FileAndDB(t *testing.T) {
	srv := newSite(t)
	dir := t.TempDir()
	schemaPath := filepath.Join(dir, "schema.json")
	require.NoError(t, os.WriteFile(schemaPath, []byte(`{"title": "h1"}`), 0o644))
	outPath := filepath.Join(dir, "out.json")
	dbFile := filepath.Join(dir, "pages.db")

	setFlags(t, map[string]string{
		"url":      srv.URL + "/1",
		"schema":   schemaPath,
		"paginate": ".next@href",
		"limit":    "1",
		"out":      outPath,
		"db":       dbFile,
		"throttle": "10/1s",
	})
	require.NoError(t, Run(context.Background(), CrawlCmd, &bytes.Buffer{}))

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"title":" One "}]`, string(data))

	db, err := sqldb.New(sqldb.WithConnURL(dbFile))
	require.NoError(t, err)
	defer db.Close()
	rows, err := db.Query("SELECT url FROM pages")
	require.NoError(t, err)
	defer rows.Close()
	var urls []string
	for rows.Next() {
		var u string
		require.NoError(t, rows.Scan(&u))
		urls = append(urls, u)
	}
	assert.Equal(t, []string{srv.URL + "/1"}, urls)
}

func TestRun_Errors(t *testing.T) {
	setFlags(t, map[string]string{"schema": `{"title": 1}`})
	assert.Error(t, Run(context.Background(), CrawlCmd, &bytes.Buffer{}))

	setFlags(t, map[string]string{"schema": `"h1"`, "throttle": "fast"})
	assert.Error(t, Run(context.Background(), CrawlCmd, &bytes.Buffer{}))
}

func TestRun_Preset(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/group":
			fmt.Fprint(w, `<table class="olt"><tr><td class="title"><a href="/topic/1/" title="出租">出租</a></td></tr></table>`)
		case "/topic/1/":
			fmt.Fprint(w, `<div class="topic-content">有阳台</div>`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()
	setFlags(t, map[string]string{
		"preset": "doubangroup",
		"url":    srv.URL + "/group",
	})

	var buf bytes.Buffer
	require.NoError(t, Run(context.Background(), CrawlCmd, &buf))
	assert.JSONEq(t, fmt.Sprintf(`[{"title":"出租","link":"%s/topic/1/","mentions":"阳台"}]`, srv.URL), buf.String())
}

func TestRun_SchemaOrPreset(t *testing.T) {
	assert.Error(t, Run(context.Background(), CrawlCmd, &bytes.Buffer{}))

	setFlags(t, map[string]string{"preset": "nope"})
	assert.Error(t, Run(context.Background(), CrawlCmd, &bytes.Buffer{}))
}
