package dom

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// linkSelector lists the elements whose href or src is rewritten by
// Absolutize.
const linkSelector = "a[href],img[src],script[src],link[href],source[src],track[src],frame[src],iframe[src]"

// Load parses html into a document. When pageURL is a URL the relative
// links of the document are rewritten against it.
func Load(html, pageURL string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}
	if pageURL != "" {
		Absolutize(doc, pageURL)
	}
	return doc, nil
}

// Empty returns a document with no content.
func Empty() *goquery.Document {
	doc, _ := goquery.NewDocumentFromReader(strings.NewReader(""))
	return doc
}

// Absolutize resolves the relative href and src attributes of doc against
// pageURL, or against the document's <base href> when the head holds
// exactly one.
func Absolutize(doc *goquery.Document, pageURL string) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return
	}
	if b := doc.Find("head base"); b.Length() == 1 {
		if href, ok := b.Attr("href"); ok && href != "" {
			if ref, err := url.Parse(strings.TrimSpace(href)); err == nil {
				base = base.ResolveReference(ref)
			}
		}
	}

	doc.Find(linkSelector).Each(func(_ int, s *goquery.Selection) {
		key := "href"
		src, ok := s.Attr(key)
		if !ok || src == "" {
			key = "src"
			if src, ok = s.Attr(key); !ok || src == "" {
				return
			}
		}
		src = strings.TrimSpace(src)
		if strings.Contains(src, "://") {
			return
		}
		ref, err := url.Parse(src)
		if err != nil {
			return
		}
		s.SetAttr(key, base.ResolveReference(ref).String())
	})
}

var (
	protocolAndDomainRe = regexp.MustCompile(`^(?:\w+:)?//(\S+)$`)
	localhostDomainRe   = regexp.MustCompile(`^localhost[:?\d]*(?:[^:?\d]\S*)?$`)
	nonLocalhostRe      = regexp.MustCompile(`^[^\s.]+\.\S{2,}$`)
)

// IsURL loosely reports whether s looks like an absolute or
// protocol-relative URL with a plausible host.
func IsURL(s string) bool {
	m := protocolAndDomainRe.FindStringSubmatch(s)
	if m == nil || m[1] == "" {
		return false
	}
	return localhostDomainRe.MatchString(m[1]) || nonLocalhostRe.MatchString(m[1])
}

// IsHTML reports whether s is markup rather than a URL or a selector.
func IsHTML(s string) bool {
	s = strings.TrimSpace(s)
	return strings.HasPrefix(s, "<") && strings.HasSuffix(s, ">")
}
