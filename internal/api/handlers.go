package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"routegen/internal/metrics"
	"routegen/internal/model"
	"routegen/internal/opt"
	"routegen/internal/report"
	"routegen/internal/store"
)

// ScenariosHandler handles POST/GET /v1/scenarios
func (s *Server) ScenariosHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		in, err := decodeScenario(r)
		if err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid scenario", err.Error(), r.URL.Path)
			return
		}
		if err := validateScenario(in); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid scenario", err.Error(), r.URL.Path)
			return
		}
		if _, err := toProblem(in); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid scenario", err.Error(), r.URL.Path)
			return
		}
		_, tenant := s.withTenant(r)
		sc, err := s.Store.CreateScenario(r.Context(), tenant, *in)
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "Create scenario failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusCreated, sc)
	case http.MethodGet:
		_, tenant := s.withTenant(r)
		cursor := r.URL.Query().Get("cursor")
		limit := 100
		if v := r.URL.Query().Get("limit"); v != "" {
			fmt.Sscanf(v, "%d", &limit)
		}
		items, next, err := s.Store.ListScenarios(r.Context(), tenant, cursor, limit)
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "List scenarios failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items, "nextCursor": next})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// decodeScenario reads a scenario body as JSON or, with a YAML content type,
// as YAML. A JSON body may instead carry a "generate" block to request a
// random demo scenario.
func decodeScenario(r *http.Request) (*model.ScenarioIn, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}
	ct := r.Header.Get("Content-Type")
	if strings.Contains(ct, "yaml") {
		var in model.ScenarioIn
		if err := yaml.Unmarshal(body, &in); err != nil {
			return nil, err
		}
		return &in, nil
	}
	var probe struct {
		Generate *struct {
			NumPoints   int   `json:"numPoints"`
			NumVehicles int   `json:"numVehicles"`
			Seed        int64 `json:"seed"`
			Name        string `json:"name"`
		} `json:"generate"`
	}
	if err := json.Unmarshal(body, &probe); err != nil {
		return nil, err
	}
	if g := probe.Generate; g != nil {
		if g.NumPoints <= 0 || g.NumVehicles <= 0 {
			return nil, fmt.Errorf("generate.numPoints and generate.numVehicles must be positive")
		}
		seed := g.Seed
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		p := opt.RandomProblem(rand.New(rand.NewSource(seed)), g.NumPoints, g.NumVehicles)
		in := scenarioFromProblem(p)
		in.Name = g.Name
		return in, nil
	}
	var in model.ScenarioIn
	if err := json.Unmarshal(body, &in); err != nil {
		return nil, err
	}
	return &in, nil
}

func scenarioFromProblem(p *opt.Problem) *model.ScenarioIn {
	in := &model.ScenarioIn{
		Warehouse: model.GeoXY{X: p.Warehouse.X, Y: p.Warehouse.Y},
		Products:  append([]string(nil), p.Products...),
	}
	for _, pt := range p.Points {
		in.Points = append(in.Points, model.PointIn{X: pt.X, Y: pt.Y, Label: pt.Label, Demand: map[string]int(pt.Demand)})
	}
	for _, v := range p.Fleet {
		in.Fleet = append(in.Fleet, model.VehicleSpecIn{Type: v.Type, Capacity: map[string]int(v.Capacity), Count: v.Count})
	}
	return in
}

// ScenarioByIDHandler handles GET /v1/scenarios/{id}
func (s *Server) ScenarioByIDHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/v1/scenarios/")
	if id == "" || strings.Contains(id, "/") {
		writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
		return
	}
	_, tenant := s.withTenant(r)
	sc, err := s.Store.GetScenario(r.Context(), tenant, id)
	if err != nil {
		writeProblem(w, http.StatusNotFound, "Scenario not found", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, sc)
}

// SolveHandler handles POST /v1/solve: one synchronous GA run over a stored
// or inline scenario.
func (s *Server) SolveHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	pr := s.getPrincipal(r)
	if !pr.CanSolve() {
		writeProblem(w, http.StatusForbidden, "Forbidden", "dispatcher or admin required", r.URL.Path)
		return
	}
	var req model.SolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
		return
	}
	if err := validateSolveRequest(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid solve request", err.Error(), r.URL.Path)
		return
	}
	_, tenant := s.withTenant(r)
	if req.TenantID == "" {
		req.TenantID = tenant
	}
	if !s.Limiter.Allow(req.TenantID) {
		writeProblem(w, http.StatusTooManyRequests, "Rate limited", "solve rate limit exceeded", r.URL.Path)
		return
	}

	scenario := req.Scenario
	if req.ScenarioID != "" {
		sc, err := s.Store.GetScenario(r.Context(), req.TenantID, req.ScenarioID)
		if err != nil {
			writeProblem(w, http.StatusNotFound, "Scenario not found", err.Error(), r.URL.Path)
			return
		}
		scenario = &sc.ScenarioIn
		if req.Params == nil && sc.Defaults != nil {
			req.Params = sc.Defaults
		}
	}
	if err := validateScenario(scenario); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid scenario", err.Error(), r.URL.Path)
		return
	}
	problem, err := toProblem(scenario)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid scenario", err.Error(), r.URL.Path)
		return
	}
	params, seed := toParams(s.Defaults, req.Params)
	if err := params.Validate(); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid params", err.Error(), r.URL.Path)
		return
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	if c := req.Consumption; c != nil {
		if c.VehicleID >= problem.FleetSize() {
			writeProblem(w, http.StatusBadRequest, "Invalid consumption", "vehicleId out of range", r.URL.Path)
			return
		}
		if !containsProduct(problem.Products, c.Product) {
			writeProblem(w, http.StatusBadRequest, "Invalid consumption", "unknown product "+c.Product, r.URL.Path)
			return
		}
	}

	planID := req.PlanID
	if planID == "" {
		planID = uuid.New().String()
	}
	start := time.Now()
	res, m, err := opt.Solve(problem, params, seed, func(u opt.GenerationUpdate) {
		s.Broker.Publish(planID, SSEEvent{Type: "solve.progress", Data: map[string]any{
			"planId":     planID,
			"generation": u.Generation,
			"bestCost":   u.BestCost,
			"improved":   u.Improved,
		}})
	})
	metrics.SolveDuration.Observe(time.Since(start).Seconds())
	metrics.DecodeFailures.Add(float64(m.InfeasibleDecodes))
	if err != nil {
		metrics.SolveRuns.WithLabelValues("failed").Inc()
		failed := model.Plan{
			ID: planID, TenantID: req.TenantID, ScenarioID: req.ScenarioID,
			Status: "failed", Metrics: metricsToModel(m, seed),
		}
		if saved, serr := s.Store.SavePlan(r.Context(), failed); serr == nil {
			failed = saved
		}
		s.Pub.Emit(r.Context(), req.TenantID, "plan.failed", map[string]any{"planId": planID, "error": err.Error()})
		s.Broker.Publish(planID, SSEEvent{Type: "plan.failed", Data: map[string]any{"planId": planID, "error": err.Error()}})
		status := http.StatusUnprocessableEntity
		if !errors.Is(err, opt.ErrInfeasible) && !errors.Is(err, opt.ErrConfig) {
			status = http.StatusInternalServerError
		}
		writeProblem(w, status, "Solve failed", err.Error(), r.URL.Path)
		return
	}
	metrics.SolveRuns.WithLabelValues("completed").Inc()
	metrics.BestCost.Set(res.Distance)

	plan := planToModel(req.TenantID, planID, req.ScenarioID, res, m, seed)
	if c := req.Consumption; c != nil && c.RatePerUnit > 0 {
		for _, v := range res.Vehicles {
			if v.ID == c.VehicleID {
				plan.Consumption = consumptionToModel(opt.ConsumeCargo(v, c.Product, c.RatePerUnit))
				break
			}
		}
	}
	plan, err = s.Store.SavePlan(r.Context(), plan)
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Save plan failed", err.Error(), r.URL.Path)
		return
	}
	opt.RecordMetrics(req.TenantID, plan.ID, m)
	log.Printf("solve tenant=%s plan=%s distance=%.2f generations=%d evals=%d", req.TenantID, plan.ID, plan.Distance, m.Generations, m.Evaluations)

	s.Pub.Emit(r.Context(), req.TenantID, "plan.completed", map[string]any{
		"planId":   plan.ID,
		"distance": plan.Distance,
		"vehicles": len(plan.Vehicles),
	})
	s.Broker.Publish(planID, SSEEvent{Type: "plan.completed", Data: map[string]any{"planId": plan.ID, "distance": plan.Distance}})
	writeJSON(w, http.StatusOK, plan)
}

func containsProduct(products []string, p string) bool {
	for _, q := range products {
		if q == p {
			return true
		}
	}
	return false
}

// PlansHandler handles GET /v1/plans
func (s *Server) PlansHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/v1/plans" {
		writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	_, tenant := s.withTenant(r)
	cursor := r.URL.Query().Get("cursor")
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		fmt.Sscanf(v, "%d", &limit)
	}
	items, next, err := s.Store.ListPlans(r.Context(), tenant, cursor, limit)
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "List plans failed", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "nextCursor": next})
}

// PlanByIDHandler handles GET /v1/plans/{id}, /v1/plans/{id}/report and
// /v1/plans/{id}/events/stream
func (s *Server) PlanByIDHandler(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/plans/")
	if rest == r.URL.Path || rest == "" {
		writeProblem(w, http.StatusNotFound, "Not Found", "missing id", r.URL.Path)
		return
	}
	parts := strings.Split(rest, "/")
	id := parts[0]
	if len(parts) > 2 && parts[1] == "events" && parts[2] == "stream" {
		s.planEventsSSE(w, r, id)
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	_, tenant := s.withTenant(r)
	plan, err := s.Store.GetPlan(r.Context(), tenant, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeProblem(w, http.StatusNotFound, "Plan not found", "", r.URL.Path)
			return
		}
		writeProblem(w, http.StatusInternalServerError, "Get plan failed", err.Error(), r.URL.Path)
		return
	}
	if len(parts) > 1 && parts[1] == "report" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if err := report.Write(w, &plan); err != nil {
			log.Printf("report render plan=%s: %v", id, err)
		}
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

// planEventsSSE streams solve progress for one plan id with heartbeats.
func (s *Server) planEventsSSE(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeProblem(w, http.StatusInternalServerError, "Streaming unsupported", "", r.URL.Path)
		return
	}
	// Solver roles may subscribe before the plan exists; anyone else needs a
	// plan already visible in their tenant.
	pr := s.getPrincipal(r)
	if !pr.CanSolve() {
		if _, err := s.Store.GetPlan(r.Context(), pr.Tenant, id); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				writeProblem(w, http.StatusNotFound, "Plan not found", "", r.URL.Path)
				return
			}
			writeProblem(w, http.StatusInternalServerError, "Get plan failed", err.Error(), r.URL.Path)
			return
		}
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	ch := s.Broker.Subscribe(id)
	defer s.Broker.Unsubscribe(id, ch)
	fmt.Fprintf(w, "event: heartbeat\n")
	fmt.Fprintf(w, "data: {\"planId\":\"%s\",\"ts\":\"%s\"}\n\n", id, time.Now().Format(time.RFC3339))
	flusher.Flush()
	notify := r.Context().Done()
	for {
		select {
		case <-notify:
			return
		case evt, open := <-ch:
			if !open {
				return
			}
			b, _ := json.Marshal(evt.Data)
			fmt.Fprintf(w, "event: %s\n", evt.Type)
			fmt.Fprintf(w, "data: %s\n\n", string(b))
			flusher.Flush()
		case <-time.After(15 * time.Second):
			fmt.Fprintf(w, "event: heartbeat\n")
			fmt.Fprintf(w, "data: {\"planId\":\"%s\",\"ts\":\"%s\"}\n\n", id, time.Now().Format(time.RFC3339))
			flusher.Flush()
		}
	}
}

// SubscriptionsHandler handles POST/GET /v1/subscriptions
func (s *Server) SubscriptionsHandler(w http.ResponseWriter, r *http.Request) {
	p := s.getPrincipal(r)
	if !p.IsAdmin() {
		writeProblem(w, http.StatusForbidden, "Forbidden", "admin required", r.URL.Path)
		return
	}
	switch r.Method {
	case http.MethodPost:
		var req model.SubscriptionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
			return
		}
		if req.URL == "" || len(req.Events) == 0 {
			writeProblem(w, http.StatusBadRequest, "Invalid subscription", "url and events required", r.URL.Path)
			return
		}
		if req.TenantID == "" {
			req.TenantID = p.Tenant
		}
		sub, err := s.Store.CreateSubscription(r.Context(), req)
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "Create subscription failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusCreated, sub)
	case http.MethodGet:
		cursor := r.URL.Query().Get("cursor")
		limit := 100
		if v := r.URL.Query().Get("limit"); v != "" {
			fmt.Sscanf(v, "%d", &limit)
		}
		items, next, err := s.Store.ListSubscriptions(r.Context(), p.Tenant, cursor, limit)
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "List subscriptions failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items, "nextCursor": next})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// SubscriptionByIDHandler handles DELETE /v1/subscriptions/{id}
func (s *Server) SubscriptionByIDHandler(w http.ResponseWriter, r *http.Request) {
	if !strings.HasPrefix(r.URL.Path, "/v1/subscriptions/") {
		writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
		return
	}
	if r.Method != http.MethodDelete {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	p := s.getPrincipal(r)
	if !p.IsAdmin() {
		writeProblem(w, http.StatusForbidden, "Forbidden", "admin required", r.URL.Path)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/v1/subscriptions/")
	if err := s.Store.DeleteSubscription(r.Context(), p.Tenant, id); err != nil {
		writeProblem(w, http.StatusInternalServerError, "Delete subscription failed", err.Error(), r.URL.Path)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SolveMetricsHandler handles GET /v1/admin/solve-metrics: recent in-memory
// search metrics per plan.
func (s *Server) SolveMetricsHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/v1/admin/solve-metrics" || r.Method != http.MethodGet {
		writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
		return
	}
	p := s.getPrincipal(r)
	if !p.IsAdmin() {
		writeProblem(w, http.StatusForbidden, "Forbidden", "admin required", r.URL.Path)
		return
	}
	ms := opt.GetMetrics(p.Tenant)
	items := make([]map[string]any, 0, len(ms))
	for planID, m := range ms {
		items = append(items, map[string]any{
			"planId":            planID,
			"generations":       m.Generations,
			"evaluations":       m.Evaluations,
			"improvements":      m.Improvements,
			"infeasibleDecodes": m.InfeasibleDecodes,
			"bestCost":          m.BestCost,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

// Health
func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) ReadyHandler(w http.ResponseWriter, r *http.Request) {
	// Check DB connectivity when using Postgres store
	type pinger interface{ Ping(ctx context.Context) error }
	if pg, ok := s.Store.(pinger); ok {
		ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
		defer cancel()
		if err := pg.Ping(ctx); err != nil {
			writeProblem(w, http.StatusServiceUnavailable, "Not Ready", err.Error(), r.URL.Path)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
