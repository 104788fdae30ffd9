package model

// API-facing types for scenarios, solve requests and plans.

type GeoXY struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type PointIn struct {
	X      float64        `json:"x"`
	Y      float64        `json:"y"`
	Label  string         `json:"label,omitempty"`
	Demand map[string]int `json:"demand"`
}

type VehicleSpecIn struct {
	Type     string         `json:"type"`
	Capacity map[string]int `json:"capacity"`
	Count    int            `json:"count"`
}

// GAParams are the search hyperparameters; zero values fall back to the
// solver defaults.
type GAParams struct {
	PopulationSize int     `json:"populationSize,omitempty" yaml:"populationSize"`
	Generations    int     `json:"generations,omitempty" yaml:"generations"`
	MutationRate   float64 `json:"mutationRate,omitempty" yaml:"mutationRate"`
	CrossoverRate  float64 `json:"crossoverRate,omitempty" yaml:"crossoverRate"`
	EliteSize      int     `json:"eliteSize,omitempty" yaml:"eliteSize"`
	TournamentSize int     `json:"tournamentSize,omitempty" yaml:"tournamentSize"`
	Seed           int64   `json:"seed,omitempty" yaml:"seed"`
}

// ScenarioIn is a planning scenario as submitted: warehouse, demand points,
// fleet and the recognized product schema.
type ScenarioIn struct {
	Name          string          `json:"name,omitempty" yaml:"name"`
	Warehouse     GeoXY           `json:"warehouse" yaml:"warehouse"`
	Points        []PointIn       `json:"points" yaml:"points"`
	Fleet         []VehicleSpecIn `json:"fleet" yaml:"fleet"`
	Products      []string        `json:"products" yaml:"products"`
	ExclusivePair []string        `json:"exclusivePair,omitempty" yaml:"exclusivePair"`
	Defaults      *GAParams       `json:"defaults,omitempty" yaml:"defaults"`
}

type Scenario struct {
	ScenarioIn
	ID        string `json:"id"`
	TenantID  string `json:"tenantId"`
	CreatedAt string `json:"createdAt"`
}

// ConsumptionSpec asks for the en-route consumption post-processing step on
// one vehicle of the finished plan.
type ConsumptionSpec struct {
	VehicleID   int     `json:"vehicleId"`
	Product     string  `json:"product"`
	RatePerUnit float64 `json:"ratePerUnit"`
}

type SolveRequest struct {
	TenantID   string      `json:"tenantId,omitempty"`
	ScenarioID string      `json:"scenarioId,omitempty"`
	Scenario   *ScenarioIn `json:"scenario,omitempty"`
	Params     *GAParams   `json:"params,omitempty"`
	// PlanID optionally pre-names the plan so clients can subscribe to its
	// progress stream before starting the run.
	PlanID      string           `json:"planId,omitempty"`
	Consumption *ConsumptionSpec `json:"consumption,omitempty"`
}

type StopOut struct {
	Label           string         `json:"label"`
	X               float64        `json:"x"`
	Y               float64        `json:"y"`
	Warehouse       bool           `json:"warehouse,omitempty"`
	Delivered       map[string]int `json:"delivered,omitempty"`
	RemainingLoad   map[string]int `json:"remainingLoad,omitempty"`
	RemainingDemand map[string]int `json:"remainingDemand,omitempty"`
}

type VehiclePlan struct {
	VehicleID int            `json:"vehicleId"`
	Type      string         `json:"type"`
	Capacity  map[string]int `json:"capacity"`
	Distance  float64        `json:"distance"`
	Stops     []StopOut      `json:"stops"`
}

type CostSnapshot struct {
	Generation int     `json:"generation"`
	Best       float64 `json:"best"`
	Median     float64 `json:"median"`
}

type SearchMetrics struct {
	Generations       int            `json:"generations"`
	Evaluations       int            `json:"evaluations"`
	Improvements      int            `json:"improvements"`
	InfeasibleDecodes int            `json:"infeasibleDecodes"`
	BestCost          float64        `json:"bestCost"`
	Seed              int64          `json:"seed"`
	Snapshots         []CostSnapshot `json:"snapshots,omitempty"`
}

type LegConsumptionOut struct {
	From     string  `json:"from"`
	To       string  `json:"to"`
	Distance float64 `json:"distance"`
	Consumed float64 `json:"consumed"`
}

type ConsumptionOut struct {
	VehicleID int                 `json:"vehicleId"`
	Product   string              `json:"product"`
	Rate      float64             `json:"rate"`
	Total     float64             `json:"total"`
	Legs      []LegConsumptionOut `json:"legs,omitempty"`
}

// Plan is the read-only output handed to reporting and visualization
// consumers.
type Plan struct {
	ID          string          `json:"id"`
	TenantID    string          `json:"tenantId"`
	ScenarioID  string          `json:"scenarioId,omitempty"`
	Status      string          `json:"status"`
	CreatedAt   string          `json:"createdAt"`
	Distance    float64         `json:"distance"`
	Vehicles    []VehiclePlan   `json:"vehicles"`
	Metrics     SearchMetrics   `json:"metrics"`
	Consumption *ConsumptionOut `json:"consumption,omitempty"`
}

// Webhook subscriptions.

type SubscriptionRequest struct {
	TenantID string   `json:"tenantId,omitempty"`
	URL      string   `json:"url"`
	Events   []string `json:"events"`
	Secret   string   `json:"secret,omitempty"`
}

type Subscription struct {
	ID       string   `json:"id"`
	TenantID string   `json:"tenantId"`
	URL      string   `json:"url"`
	Events   []string `json:"events"`
	Secret   string   `json:"secret,omitempty"`
}
