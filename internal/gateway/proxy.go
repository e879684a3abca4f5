package gateway

import (
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"sort"
	"strings"

	"github.com/dmitrijs2005/passvault/internal/logging"
)

type route struct {
	prefix string
	proxy  *httputil.ReverseProxy
}

// Proxy forwards requests to the upstream with the longest matching path
// prefix. Prefixes match on segment boundaries: "/api/vault" serves
// "/api/vault" and "/api/vault/x" but not "/api/vaults".
type Proxy struct {
	routes []route
	logger logging.Logger
}

func NewProxy(routes map[string]string, logger logging.Logger) (*Proxy, error) {
	p := &Proxy{logger: logger}
	for prefix, raw := range routes {
		target, err := url.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("route %q: %w", prefix, err)
		}
		if target.Scheme == "" || target.Host == "" {
			return nil, fmt.Errorf("route %q: upstream %q is not absolute", prefix, raw)
		}
		p.routes = append(p.routes, route{
			prefix: strings.TrimRight(prefix, "/"),
			proxy:  p.newReverseProxy(target),
		})
	}
	sort.Slice(p.routes, func(i, j int) bool {
		return len(p.routes[i].prefix) > len(p.routes[j].prefix)
	})
	return p, nil
}

func (p *Proxy) newReverseProxy(target *url.URL) *httputil.ReverseProxy {
	return &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(target)
			pr.SetXForwarded()
			headerOverridesFrom(pr.In.Context()).Apply(pr.Out.Header)
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			if r.Context().Err() != nil {
				return
			}
			p.logger.Warn(r.Context(), "upstream request failed", "upstream", target.Host, "path", r.URL.Path, "error", err.Error())
			writeError(w, http.StatusBadGateway, "bad_gateway", "Upstream service unavailable")
		},
	}
}

func (p *Proxy) match(requestPath string) *route {
	for i := range p.routes {
		rt := &p.routes[i]
		if rt.prefix == "" || requestPath == rt.prefix || strings.HasPrefix(requestPath, rt.prefix+"/") {
			return rt
		}
	}
	return nil
}

func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rt := p.match(r.URL.Path)
	if rt == nil {
		writeError(w, http.StatusNotFound, "not_found", "No route for "+r.URL.Path)
		return
	}
	rt.proxy.ServeHTTP(w, r)
}
