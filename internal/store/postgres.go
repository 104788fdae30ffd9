package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"routegen/internal/model"
)

// Postgres persists scenarios, plans and webhook state as jsonb documents.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(dsn string) (*Postgres, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	return &Postgres{db: db}, nil
}

// Ping reports database connectivity; used by the readiness probe.
func (p *Postgres) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

// Migrate applies the schema. Dev helper; production deployments run their
// own migrations.
func (p *Postgres) Migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS scenarios (
			id UUID PRIMARY KEY,
			tenant_id TEXT NOT NULL,
			body JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS scenarios_tenant_idx ON scenarios (tenant_id, created_at)`,
		`CREATE TABLE IF NOT EXISTS plans (
			id UUID PRIMARY KEY,
			tenant_id TEXT NOT NULL,
			scenario_id TEXT,
			status TEXT NOT NULL,
			distance DOUBLE PRECISION NOT NULL,
			body JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS plans_tenant_idx ON plans (tenant_id, created_at)`,
		`CREATE TABLE IF NOT EXISTS subscriptions (
			id UUID PRIMARY KEY,
			tenant_id TEXT NOT NULL,
			url TEXT NOT NULL,
			events JSONB NOT NULL,
			secret TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS webhook_deliveries (
			id UUID PRIMARY KEY,
			tenant_id TEXT NOT NULL,
			subscription_id TEXT NOT NULL,
			event_type TEXT NOT NULL,
			url TEXT NOT NULL,
			secret TEXT NOT NULL DEFAULT '',
			payload JSONB NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending',
			attempts INT NOT NULL DEFAULT 0,
			next_attempt_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			last_error TEXT,
			response_code INT,
			latency_ms INT,
			delivered_at TIMESTAMPTZ
		)`,
		`CREATE INDEX IF NOT EXISTS webhook_due_idx ON webhook_deliveries (status, next_attempt_at)`,
	}
	for _, s := range stmts {
		if _, err := p.db.ExecContext(ctx, s); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func (p *Postgres) CreateScenario(ctx context.Context, tenantID string, in model.ScenarioIn) (model.Scenario, error) {
	sc := model.Scenario{
		ScenarioIn: in,
		ID:         uuid.New().String(),
		TenantID:   tenantID,
		CreatedAt:  time.Now().UTC().Format(time.RFC3339),
	}
	body, err := json.Marshal(in)
	if err != nil {
		return model.Scenario{}, err
	}
	_, err = p.db.ExecContext(ctx,
		`INSERT INTO scenarios (id, tenant_id, body) VALUES ($1,$2,$3)`,
		sc.ID, tenantID, body)
	if err != nil {
		return model.Scenario{}, err
	}
	return sc, nil
}

func (p *Postgres) GetScenario(ctx context.Context, tenantID, id string) (model.Scenario, error) {
	var body []byte
	var createdAt time.Time
	err := p.db.QueryRowContext(ctx,
		`SELECT body, created_at FROM scenarios WHERE id=$1::uuid AND tenant_id=$2`,
		id, tenantID).Scan(&body, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Scenario{}, ErrNotFound
	}
	if err != nil {
		return model.Scenario{}, err
	}
	sc := model.Scenario{ID: id, TenantID: tenantID, CreatedAt: createdAt.UTC().Format(time.RFC3339)}
	if err := json.Unmarshal(body, &sc.ScenarioIn); err != nil {
		return model.Scenario{}, err
	}
	return sc, nil
}

func (p *Postgres) ListScenarios(ctx context.Context, tenantID, cursor string, limit int) ([]model.Scenario, string, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := p.db.QueryContext(ctx,
		`SELECT id::text, body, created_at FROM scenarios
		 WHERE tenant_id=$1 AND ($2 = '' OR id::text > $2)
		 ORDER BY id LIMIT $3`,
		tenantID, cursor, limit+1)
	if err != nil {
		return nil, "", err
	}
	defer rows.Close()
	out := []model.Scenario{}
	for rows.Next() {
		var id string
		var body []byte
		var createdAt time.Time
		if err := rows.Scan(&id, &body, &createdAt); err != nil {
			return nil, "", err
		}
		sc := model.Scenario{ID: id, TenantID: tenantID, CreatedAt: createdAt.UTC().Format(time.RFC3339)}
		if err := json.Unmarshal(body, &sc.ScenarioIn); err != nil {
			return nil, "", err
		}
		out = append(out, sc)
	}
	next := ""
	if len(out) > limit {
		out = out[:limit]
		next = out[limit-1].ID
	}
	return out, next, rows.Err()
}

func (p *Postgres) SavePlan(ctx context.Context, plan model.Plan) (model.Plan, error) {
	if plan.ID == "" {
		plan.ID = uuid.New().String()
	}
	if plan.CreatedAt == "" {
		plan.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	}
	body, err := json.Marshal(plan)
	if err != nil {
		return model.Plan{}, err
	}
	_, err = p.db.ExecContext(ctx,
		`INSERT INTO plans (id, tenant_id, scenario_id, status, distance, body)
		 VALUES ($1,$2,$3,$4,$5,$6)
		 ON CONFLICT (id) DO UPDATE SET status=EXCLUDED.status, distance=EXCLUDED.distance, body=EXCLUDED.body`,
		plan.ID, plan.TenantID, plan.ScenarioID, plan.Status, plan.Distance, body)
	if err != nil {
		return model.Plan{}, err
	}
	return plan, nil
}

func (p *Postgres) GetPlan(ctx context.Context, tenantID, id string) (model.Plan, error) {
	var body []byte
	err := p.db.QueryRowContext(ctx,
		`SELECT body FROM plans WHERE id=$1::uuid AND tenant_id=$2`,
		id, tenantID).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Plan{}, ErrNotFound
	}
	if err != nil {
		return model.Plan{}, err
	}
	var plan model.Plan
	if err := json.Unmarshal(body, &plan); err != nil {
		return model.Plan{}, err
	}
	return plan, nil
}

func (p *Postgres) ListPlans(ctx context.Context, tenantID, cursor string, limit int) ([]model.Plan, string, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := p.db.QueryContext(ctx,
		`SELECT body FROM plans
		 WHERE tenant_id=$1 AND ($2 = '' OR id::text > $2)
		 ORDER BY id LIMIT $3`,
		tenantID, cursor, limit+1)
	if err != nil {
		return nil, "", err
	}
	defer rows.Close()
	out := []model.Plan{}
	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			return nil, "", err
		}
		var plan model.Plan
		if err := json.Unmarshal(body, &plan); err != nil {
			return nil, "", err
		}
		out = append(out, plan)
	}
	next := ""
	if len(out) > limit {
		out = out[:limit]
		next = out[limit-1].ID
	}
	return out, next, rows.Err()
}

func (p *Postgres) CreateSubscription(ctx context.Context, req model.SubscriptionRequest) (model.Subscription, error) {
	s := model.Subscription{ID: uuid.New().String(), TenantID: req.TenantID, URL: req.URL, Events: req.Events, Secret: req.Secret}
	events, err := json.Marshal(req.Events)
	if err != nil {
		return model.Subscription{}, err
	}
	_, err = p.db.ExecContext(ctx,
		`INSERT INTO subscriptions (id, tenant_id, url, events, secret) VALUES ($1,$2,$3,$4,$5)`,
		s.ID, s.TenantID, s.URL, events, s.Secret)
	if err != nil {
		return model.Subscription{}, err
	}
	return s, nil
}

func (p *Postgres) GetSubscriptionsForEvent(ctx context.Context, tenantID, eventType string) ([]model.Subscription, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT id::text, url, events, secret FROM subscriptions
		 WHERE tenant_id=$1 AND (events @> to_jsonb($2::text) OR events @> to_jsonb('*'::text))`,
		tenantID, eventType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Subscription{}
	for rows.Next() {
		s := model.Subscription{TenantID: tenantID}
		var events []byte
		if err := rows.Scan(&s.ID, &s.URL, &events, &s.Secret); err != nil {
			return nil, err
		}
		_ = json.Unmarshal(events, &s.Events)
		out = append(out, s)
	}
	return out, rows.Err()
}

func (p *Postgres) ListSubscriptions(ctx context.Context, tenantID, cursor string, limit int) ([]model.Subscription, string, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := p.db.QueryContext(ctx,
		`SELECT id::text, url, events, secret FROM subscriptions
		 WHERE tenant_id=$1 AND ($2 = '' OR id::text > $2)
		 ORDER BY id LIMIT $3`,
		tenantID, cursor, limit+1)
	if err != nil {
		return nil, "", err
	}
	defer rows.Close()
	out := []model.Subscription{}
	for rows.Next() {
		s := model.Subscription{TenantID: tenantID}
		var events []byte
		if err := rows.Scan(&s.ID, &s.URL, &events, &s.Secret); err != nil {
			return nil, "", err
		}
		_ = json.Unmarshal(events, &s.Events)
		out = append(out, s)
	}
	next := ""
	if len(out) > limit {
		out = out[:limit]
		next = out[limit-1].ID
	}
	return out, next, rows.Err()
}

func (p *Postgres) DeleteSubscription(ctx context.Context, tenantID, id string) error {
	_, err := p.db.ExecContext(ctx,
		`DELETE FROM subscriptions WHERE id=$1::uuid AND tenant_id=$2`, id, tenantID)
	return err
}

func (p *Postgres) EnqueueWebhook(ctx context.Context, tenantID, subscriptionID, eventType, url, secret string, payload []byte) (string, error) {
	id := uuid.New().String()
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO webhook_deliveries (id, tenant_id, subscription_id, event_type, url, secret, payload)
		 VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		id, tenantID, subscriptionID, eventType, url, secret, payload)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (p *Postgres) FetchDueWebhookDeliveries(ctx context.Context, limit int) ([]WebhookDelivery, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT id::text, tenant_id, subscription_id, event_type, url, secret, payload, status, attempts
		 FROM webhook_deliveries
		 WHERE status='pending' AND next_attempt_at <= now()
		 ORDER BY next_attempt_at LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []WebhookDelivery{}
	for rows.Next() {
		var d WebhookDelivery
		if err := rows.Scan(&d.ID, &d.TenantID, &d.SubscriptionID, &d.EventType, &d.URL, &d.Secret, &d.Payload, &d.Status, &d.Attempts); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (p *Postgres) MarkWebhookDelivery(ctx context.Context, id string, success bool, nextAttemptAt *time.Time, lastError string, responseCode, latencyMs int) error {
	if success {
		_, err := p.db.ExecContext(ctx,
			`UPDATE webhook_deliveries
			 SET status='delivered', attempts=attempts+1, last_error=NULLIF($2,''), response_code=$3, latency_ms=$4, delivered_at=now()
			 WHERE id=$1::uuid`, id, lastError, responseCode, latencyMs)
		return err
	}
	var next any
	if nextAttemptAt != nil {
		next = *nextAttemptAt
	}
	_, err := p.db.ExecContext(ctx,
		`UPDATE webhook_deliveries
		 SET attempts=attempts+1, last_error=NULLIF($2,''), response_code=$3, latency_ms=$4,
		     next_attempt_at=COALESCE($5, next_attempt_at)
		 WHERE id=$1::uuid`, id, lastError, responseCode, latencyMs, next)
	return err
}

func (p *Postgres) FailWebhookDelivery(ctx context.Context, id string, lastError string, responseCode, latencyMs int) error {
	_, err := p.db.ExecContext(ctx,
		`UPDATE webhook_deliveries
		 SET status='failed', attempts=attempts+1, last_error=NULLIF($2,''), response_code=$3, latency_ms=$4
		 WHERE id=$1::uuid`, id, lastError, responseCode, latencyMs)
	return err
}
