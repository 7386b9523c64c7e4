package http

import (
	"fmt"
	"net"
	"net/http"
	"strings"
)

// proxyPolicy holds the networks of the authenticating proxy. Only peers
// inside them may assert X-User-ID or report the client address through
// X-Forwarded-For and X-Real-IP.
type proxyPolicy struct {
	networks []*net.IPNet
}

// newProxyPolicy parses cidrs. An empty list trusts no peer: identity then
// comes from DEV_USER_ID alone and the client address is the peer address.
func newProxyPolicy(cidrs []string) (*proxyPolicy, error) {
	p := &proxyPolicy{}
	for _, cidr := range cidrs {
		_, network, err := net.ParseCIDR(strings.TrimSpace(cidr))
		if err != nil {
			return nil, fmt.Errorf("trusted proxy %q: %w", cidr, err)
		}
		p.networks = append(p.networks, network)
	}
	return p, nil
}

func (p *proxyPolicy) trusts(ip net.IP) bool {
	if ip == nil {
		return false
	}
	for _, network := range p.networks {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

// peerIP is the address of the connection itself, nil when RemoteAddr does
// not hold an IP.
func peerIP(r *http.Request) net.IP {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return net.ParseIP(host)
}

// fromProxy reports whether the request arrived through the authenticating
// proxy, which makes its identity header believable.
func (p *proxyPolicy) fromProxy(r *http.Request) bool {
	return p.trusts(peerIP(r))
}

// clientIP returns the address used for rate limiting and request logs.
// X-Forwarded-For is read right to left and the first hop outside the proxy
// networks wins, so a client cannot pick its own bucket by prepending
// entries.
func (p *proxyPolicy) clientIP(r *http.Request) string {
	peer := peerIP(r)
	if peer == nil {
		return r.RemoteAddr
	}
	if !p.trusts(peer) {
		return peer.String()
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		hops := strings.Split(xff, ",")
		for i := len(hops) - 1; i >= 0; i-- {
			ip := net.ParseIP(strings.TrimSpace(hops[i]))
			if ip == nil {
				break
			}
			if !p.trusts(ip) || i == 0 {
				return ip.String()
			}
		}
	}
	if ip := net.ParseIP(strings.TrimSpace(r.Header.Get("X-Real-IP"))); ip != nil {
		return ip.String()
	}
	return peer.String()
}

// isPublicPath reports whether a request is served without an identity:
// probes, metrics scraping and static assets.
func isPublicPath(r *http.Request) bool {
	switch r.URL.Path {
	case "/healthz", "/readyz", "/metrics":
		return true
	}
	return strings.HasPrefix(r.URL.Path, "/static/")
}

// isReadOnly reports whether a request cannot change state. Reads are not
// rate limited.
func isReadOnly(r *http.Request) bool {
	return r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodOptions
}
