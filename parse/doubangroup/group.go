package doubangroup

import (
	"strings"

	"github.com/wenzapen/scraper/engine"
	"github.com/wenzapen/scraper/parse"
	"github.com/wenzapen/scraper/schema"
	"github.com/wenzapen/scraper/selector"
)

// Keyword is what a topic has to mention to be flagged.
const Keyword = "阳台"

// mentions keeps value when it contains the argument and drops it
// otherwise.
func mentions(_ selector.FilterContext, value any, args ...string) (any, error) {
	s, _ := value.(string)
	for _, word := range args {
		if strings.Contains(s, word) {
			return word, nil
		}
	}
	return nil, nil
}

// Preset lists the newest discussions of a douban group and checks every
// topic for Keyword.
var Preset = parse.Preset{
	Name:     "doubangroup",
	URL:      "https://www.douban.com/group/szsh/discussion?start=0&type=new",
	Scope:    "table.olt tr",
	Paginate: ".paginator .next a@href",
	Limit:    5,
	Filters:  selector.Filters{"mentions": mentions},
	Schema: func(cr *engine.Crawler) schema.Node {
		return schema.ObjectArray{Elem: schema.Object{
			{Key: "title", Node: schema.Scalar("td.title a@title")},
			{Key: "link", Node: schema.Scalar("td.title a@href")},
			{Key: "author", Node: schema.Scalar("td:nth-child(2) a")},
			{Key: "replies", Node: schema.Scalar("td.r-count | number")},
			{Key: "time", Node: schema.Scalar("td.time")},
			{Key: "mentions", Node: schema.Escape{
				Extractor: cr.Scrape("", "td.title a@href", schema.Scalar(".topic-content | mentions:"+Keyword)),
			}},
		}}
	},
}
