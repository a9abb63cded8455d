package parse

import (
	"regexp"

	"github.com/wenzapen/scraper/engine"
	"github.com/wenzapen/scraper/schema"
	"github.com/wenzapen/scraper/selector"
)

// Preset is a ready-made crawl of a known site.
type Preset struct {
	Name     string
	URL      string
	Scope    string
	Paginate string
	Limit    int
	// Filters are the site specific filters Schema refers to.
	Filters selector.Filters
	// Schema builds the schema; nested crawls are started on cr.
	Schema func(cr *engine.Crawler) schema.Node
}

// Crawl prepares the preset's crawl on cr. cr must carry p.Filters.
func (p Preset) Crawl(cr *engine.Crawler) *engine.Crawl {
	return cr.Scrape(p.URL, p.Scope, p.Schema(cr)).Paginate(p.Paginate).Limit(p.Limit)
}

// ExtraString returns the first submatch of re in contents, or "".
func ExtraString(contents string, re *regexp.Regexp) string {
	match := re.FindStringSubmatch(contents)
	if len(match) >= 2 {
		return match[1]
	}
	return ""
}
