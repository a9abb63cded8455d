package doubanbook

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/wenzapen/scraper/engine"
	"github.com/wenzapen/scraper/parse"
	"github.com/wenzapen/scraper/schema"
	"github.com/wenzapen/scraper/selector"
)

var (
	autoRe   = regexp.MustCompile(`<span class="pl">\s*作者</span>:[\d\D]*?<a.*?>([^<]+)</a>`)
	publicRe = regexp.MustCompile(`<span class="pl">出版社:</span>\s*(?:<a.*?>)?([^<]+)`)
	pageRe   = regexp.MustCompile(`<span class="pl">页数:</span>\s*([^<]+)<br/?>`)
	priceRe  = regexp.MustCompile(`<span class="pl">定价:</span>\s*([^<]+)<br/?>`)
)

var infoRe = map[string]*regexp.Regexp{
	"author":    autoRe,
	"publisher": publicRe,
	"pages":     pageRe,
	"price":     priceRe,
}

// info picks one labelled entry out of the #info block of a book page.
func info(_ selector.FilterContext, value any, args ...string) (any, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("info needs a field name")
	}
	re, ok := infoRe[args[0]]
	if !ok {
		return nil, fmt.Errorf("unknown info field %q", args[0])
	}
	html, _ := value.(string)
	return strings.TrimSpace(parse.ExtraString(html, re)), nil
}

var bookDetail = schema.Object{
	{Key: "author", Node: schema.Scalar("#info@html | info:author")},
	{Key: "publisher", Node: schema.Scalar("#info@html | info:publisher")},
	{Key: "pages", Node: schema.Scalar("#info@html | info:pages | number")},
	{Key: "price", Node: schema.Scalar("#info@html | info:price")},
	{Key: "score", Node: schema.Scalar("strong.rating_num | trim | number")},
	{Key: "intro", Node: schema.Scalar(".intro p | trim")},
}

// Preset lists the books of a douban tag, following each book to its
// detail page.
var Preset = parse.Preset{
	Name:     "doubanbook",
	URL:      "https://book.douban.com/tag/%E5%B0%8F%E8%AF%B4",
	Scope:    "li.subject-item",
	Paginate: ".paginator .next a@href",
	Limit:    3,
	Filters:  selector.Filters{"info": info},
	Schema: func(cr *engine.Crawler) schema.Node {
		return schema.ObjectArray{Elem: schema.Object{
			{Key: "title", Node: schema.Scalar("h2 a@title")},
			{Key: "link", Node: schema.Scalar("h2 a@href")},
			{Key: "pub", Node: schema.Scalar(".pub | trim")},
			{Key: "detail", Node: schema.Escape{Extractor: cr.Scrape("", "h2 a@href", bookDetail)}},
		}}
	},
}
