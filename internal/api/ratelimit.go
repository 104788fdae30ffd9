package api

import (
	"sync"

	"golang.org/x/time/rate"
)

// tenantLimiter throttles solver runs per tenant.
type tenantLimiter struct {
	mu    sync.Mutex
	rps   rate.Limit
	burst int
	lims  map[string]*rate.Limiter
}

func newTenantLimiter(rps float64, burst int) *tenantLimiter {
	if rps <= 0 {
		rps = 5
	}
	if burst <= 0 {
		burst = 10
	}
	return &tenantLimiter{rps: rate.Limit(rps), burst: burst, lims: map[string]*rate.Limiter{}}
}

func (t *tenantLimiter) Allow(tenant string) bool {
	t.mu.Lock()
	lim, ok := t.lims[tenant]
	if !ok {
		lim = rate.NewLimiter(t.rps, t.burst)
		t.lims[tenant] = lim
	}
	t.mu.Unlock()
	return lim.Allow()
}
