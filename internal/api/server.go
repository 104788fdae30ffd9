package api

import (
	"context"
	"net/http"
	"strings"

	"routegen/internal/config"
	"routegen/internal/model"
	"routegen/internal/store"
	"routegen/internal/webhooks"
)

type Server struct {
	Store    store.Store
	Pub      *webhooks.Publisher
	Broker   EventBroker
	Defaults model.GAParams
	Limiter  *tenantLimiter

	webhookMaxAttempts int
}

// NewServer creates a Server. If DATABASE_URL is unset, uses in-memory store.
func NewServer(cfg config.Config) (*Server, error) {
	var s store.Store
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		s = store.NewMemory()
	} else {
		sp, err := store.NewPostgres(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		// Run migrations (dev helper)
		if err := sp.Migrate(context.Background()); err != nil {
			return nil, err
		}
		s = sp
	}
	// Broker selection
	var broker EventBroker
	if cfg.RedisURL != "" {
		if rb, err := NewRedisBroker(cfg.RedisURL); err == nil {
			broker = rb
		} else {
			broker = NewBroker()
		}
	} else {
		broker = NewBroker()
	}
	return &Server{
		Store:              s,
		Pub:                webhooks.NewPublisher(s),
		Broker:             broker,
		Defaults:           cfg.SolverDefaults,
		Limiter:            newTenantLimiter(cfg.RateRPS, cfg.RateBurst),
		webhookMaxAttempts: cfg.WebhookMaxAttempts,
	}, nil
}

func (s *Server) withTenant(r *http.Request) (context.Context, string) {
	tenant := r.Header.Get("X-Tenant-Id")
	if tenant == "" {
		tenant = "t_demo"
	}
	ctx := context.WithValue(r.Context(), ctxKeyTenant{}, tenant)
	return ctx, tenant
}

type ctxKeyTenant struct{}

// NewWebhookWorker creates a background worker for webhook deliveries.
func (s *Server) NewWebhookWorker() *webhooks.Worker {
	w := webhooks.NewWorker(s.Store)
	if s.webhookMaxAttempts > 0 {
		w.MaxAttempts = s.webhookMaxAttempts
	}
	return w
}
