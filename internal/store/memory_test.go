package store

import (
	"context"
	"testing"
	"time"

	"routegen/internal/model"
)

func TestMemoryScenarioRoundTrip(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	in := model.ScenarioIn{Name: "demo", Products: []string{"orange"}}
	sc, err := m.CreateScenario(ctx, "t1", in)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if sc.ID == "" || sc.TenantID != "t1" {
		t.Fatalf("bad scenario: %+v", sc)
	}

	got, err := m.GetScenario(ctx, "t1", sc.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != "demo" {
		t.Fatalf("name = %q", got.Name)
	}

	if _, err := m.GetScenario(ctx, "t2", sc.ID); err != ErrNotFound {
		t.Fatalf("cross-tenant get: err = %v, want ErrNotFound", err)
	}
}

func TestMemoryListScenariosPagination(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if _, err := m.CreateScenario(ctx, "t1", model.ScenarioIn{Name: "s"}); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	page1, next, err := m.ListScenarios(ctx, "t1", "", 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page1) != 2 || next == "" {
		t.Fatalf("page1: len=%d next=%q", len(page1), next)
	}

	page2, next2, err := m.ListScenarios(ctx, "t1", next, 2)
	if err != nil {
		t.Fatalf("list page2: %v", err)
	}
	if len(page2) != 2 || next2 == "" {
		t.Fatalf("page2: len=%d next=%q", len(page2), next2)
	}
	if page2[0].ID == page1[1].ID {
		t.Fatalf("pages overlap at %s", page2[0].ID)
	}

	page3, next3, err := m.ListScenarios(ctx, "t1", next2, 2)
	if err != nil {
		t.Fatalf("list page3: %v", err)
	}
	if len(page3) != 1 || next3 != "" {
		t.Fatalf("page3: len=%d next=%q", len(page3), next3)
	}
}

func TestMemorySavePlanUpsert(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	p, err := m.SavePlan(ctx, model.Plan{TenantID: "t1", Status: "running"})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	p.Status = "completed"
	p.Distance = 42
	if _, err := m.SavePlan(ctx, p); err != nil {
		t.Fatalf("resave: %v", err)
	}

	got, err := m.GetPlan(ctx, "t1", p.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != "completed" || got.Distance != 42 {
		t.Fatalf("plan not updated: %+v", got)
	}

	plans, _, err := m.ListPlans(ctx, "t1", "", 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(plans) != 1 {
		t.Fatalf("upsert duplicated plan: %d entries", len(plans))
	}
}

func TestMemorySubscriptionEventMatching(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	exact, _ := m.CreateSubscription(ctx, model.SubscriptionRequest{TenantID: "t1", URL: "http://a", Events: []string{"plan.completed"}})
	wildcard, _ := m.CreateSubscription(ctx, model.SubscriptionRequest{TenantID: "t1", URL: "http://b", Events: []string{"*"}})
	_, _ = m.CreateSubscription(ctx, model.SubscriptionRequest{TenantID: "t1", URL: "http://c", Events: []string{"plan.failed"}})

	subs, err := m.GetSubscriptionsForEvent(ctx, "t1", "plan.completed")
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	if len(subs) != 2 {
		t.Fatalf("matched %d subs, want 2", len(subs))
	}

	if err := m.DeleteSubscription(ctx, "t1", exact.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	subs, _ = m.GetSubscriptionsForEvent(ctx, "t1", "plan.completed")
	if len(subs) != 1 || subs[0].ID != wildcard.ID {
		t.Fatalf("after delete: %+v", subs)
	}
}

func TestMemoryWebhookDeliveryLifecycle(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	id, err := m.EnqueueWebhook(ctx, "t1", "sub1", "plan.completed", "http://hook", "sec", []byte(`{}`))
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	due, err := m.FetchDueWebhookDeliveries(ctx, 10)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(due) != 1 || due[0].ID != id {
		t.Fatalf("due = %+v", due)
	}

	// failed attempt reschedules into the future
	next := time.Now().Add(time.Hour)
	if err := m.MarkWebhookDelivery(ctx, id, false, &next, "timeout", 0, 1200); err != nil {
		t.Fatalf("mark retry: %v", err)
	}
	due, _ = m.FetchDueWebhookDeliveries(ctx, 10)
	if len(due) != 0 {
		t.Fatalf("rescheduled delivery still due: %+v", due)
	}

	if err := m.MarkWebhookDelivery(ctx, id, true, nil, "", 200, 80); err != nil {
		t.Fatalf("mark success: %v", err)
	}
	if d := m.deliveries[id]; d.Status != "delivered" || d.Attempts != 2 {
		t.Fatalf("delivery state: %+v", d)
	}
}
