package opt

import "sync"

type key struct {
	Tenant string
	PlanID string
}

var (
	mu    sync.Mutex
	store = map[key]Metrics{}
)

// RecordMetrics keeps the latest search metrics for a plan in memory for the
// admin metrics view, independent of the persistence backend.
func RecordMetrics(tenant, planID string, m Metrics) {
	mu.Lock()
	store[key{Tenant: tenant, PlanID: planID}] = m
	mu.Unlock()
}

// GetMetrics returns the recorded metrics for a tenant keyed by plan ID.
func GetMetrics(tenant string) map[string]Metrics {
	mu.Lock()
	defer mu.Unlock()
	out := map[string]Metrics{}
	for k, v := range store {
		if k.Tenant == tenant {
			out[k.PlanID] = v
		}
	}
	return out
}
