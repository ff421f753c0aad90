package fetch

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// HostPacer paces outbound requests per host so parallel evidence fetches
// never burst against a single origin.
type HostPacer struct {
	limiters map[string]*rate.Limiter
	mu       sync.RWMutex
	rps      rate.Limit
	burst    int
}

// NewHostPacer creates a pacer allowing rps requests per second with the
// given burst per host.
func NewHostPacer(rps float64, burst int) *HostPacer {
	if burst <= 0 {
		burst = 1
	}
	return &HostPacer{
		limiters: make(map[string]*rate.Limiter),
		rps:      rate.Limit(rps),
		burst:    burst,
	}
}

// Wait blocks until the host's limiter admits a request or ctx is done
func (p *HostPacer) Wait(ctx context.Context, host string) error {
	return p.limiter(host).Wait(ctx)
}

func (p *HostPacer) limiter(host string) *rate.Limiter {
	p.mu.RLock()
	l, ok := p.limiters[host]
	p.mu.RUnlock()
	if ok {
		return l
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if l, ok := p.limiters[host]; ok {
		return l
	}
	l = rate.NewLimiter(p.rps, p.burst)
	p.limiters[host] = l
	return l
}
