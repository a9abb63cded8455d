package proxy

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync/atomic"
)

type ProxyFunc func(*http.Request) (*url.URL, error)

type roundRobinSwitcher struct {
	proxyURLs []*url.URL
	index     uint32
}

func (r *roundRobinSwitcher) GetProxy(pr *http.Request) (*url.URL, error) {
	index := atomic.AddUint32(&r.index, 1) - 1
	u := r.proxyURLs[index%uint32(len(r.proxyURLs))]
	return u, nil
}

// RoundRobinSwitcher hands out the given proxies in turn, one per request.
func RoundRobinSwitcher(proxyURLs ...string) (ProxyFunc, error) {
	if len(proxyURLs) < 1 {
		return nil, errors.New("proxy url list is empty")
	}
	urls := make([]*url.URL, 0, len(proxyURLs))
	for _, u := range proxyURLs {
		parsedU, err := url.Parse(u)
		if err != nil {
			return nil, fmt.Errorf("proxy %q: %w", u, err)
		}
		urls = append(urls, parsedU)
	}
	return (&roundRobinSwitcher{proxyURLs: urls}).GetProxy, nil
}
