package scraper

import (
	"context"
	"net"
	"net/url"
	"strings"
	"sync"

	"golang.org/x/net/publicsuffix"
	"golang.org/x/time/rate"
)

// Pacer spaces requests to the same host.
// One limiter per host is shared by every fetcher holding the Pacer.
type Pacer struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	limiters map[string]*rate.Limiter
}

// NewPacer allows perSecond requests per host. A non-positive value disables pacing.
func NewPacer(perSecond float64) *Pacer {
	limit := rate.Limit(perSecond)
	if perSecond <= 0 {
		limit = rate.Inf
	}
	return &Pacer{
		limit:    limit,
		burst:    1,
		limiters: make(map[string]*rate.Limiter),
	}
}

// Wait blocks until a request to rawURL's host is allowed or ctx is done.
func (p *Pacer) Wait(ctx context.Context, rawURL string) error {
	if p == nil {
		return nil
	}
	return p.limiter(hostKey(rawURL)).Wait(ctx)
}

func (p *Pacer) limiter(host string) *rate.Limiter {
	p.mu.Lock()
	defer p.mu.Unlock()
	l, ok := p.limiters[host]
	if !ok {
		l = rate.NewLimiter(p.limit, p.burst)
		p.limiters[host] = l
	}
	return l
}

// hostKey groups subdomains of a retailer (lista.mercadolivre.com.br, www.mercadolivre.com.br)
// under their registrable domain.
func hostKey(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return rawURL
	}
	host := strings.ToLower(u.Hostname())
	if net.ParseIP(host) != nil {
		return host
	}
	domain, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return host
	}
	return domain
}
