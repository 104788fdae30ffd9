package api

import (
	"fmt"
	"time"

	"routegen/internal/model"
	"routegen/internal/opt"
)

// toProblem turns an API scenario into a solver problem. Validation happens
// in opt.Problem.Validate after conversion.
func toProblem(in *model.ScenarioIn) (*opt.Problem, error) {
	p := &opt.Problem{
		Warehouse: opt.Coord{X: in.Warehouse.X, Y: in.Warehouse.Y},
		Products:  append([]string(nil), in.Products...),
	}
	for _, pt := range in.Points {
		label := pt.Label
		if label == "" {
			label = fmt.Sprintf("Point (%.0f,%.0f)", pt.X, pt.Y)
		}
		demand := opt.Amounts{}
		for k, v := range pt.Demand {
			demand[k] = v
		}
		p.Points = append(p.Points, opt.Point{
			Coord:  opt.Coord{X: pt.X, Y: pt.Y},
			Label:  label,
			Demand: demand,
		})
	}
	for _, v := range in.Fleet {
		capacity := opt.Amounts{}
		for k, q := range v.Capacity {
			capacity[k] = q
		}
		p.Fleet = append(p.Fleet, opt.VehicleSpec{Type: v.Type, Capacity: capacity, Count: v.Count})
	}
	switch len(in.ExclusivePair) {
	case 0:
	case 2:
		p.ExclusivePair = [2]string{in.ExclusivePair[0], in.ExclusivePair[1]}
	default:
		return nil, fmt.Errorf("%w: exclusivePair must name exactly two products", opt.ErrConfig)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// toParams merges request params over server defaults.
func toParams(defaults model.GAParams, req *model.GAParams) (opt.Params, int64) {
	merged := defaults
	if req != nil {
		if req.PopulationSize > 0 {
			merged.PopulationSize = req.PopulationSize
		}
		if req.Generations > 0 {
			merged.Generations = req.Generations
		}
		if req.MutationRate > 0 {
			merged.MutationRate = req.MutationRate
		}
		if req.CrossoverRate > 0 {
			merged.CrossoverRate = req.CrossoverRate
		}
		if req.EliteSize > 0 {
			merged.EliteSize = req.EliteSize
		}
		if req.TournamentSize > 0 {
			merged.TournamentSize = req.TournamentSize
		}
		merged.Seed = req.Seed
	}
	params := opt.Params{
		PopulationSize: merged.PopulationSize,
		Generations:    merged.Generations,
		MutationRate:   merged.MutationRate,
		CrossoverRate:  merged.CrossoverRate,
		EliteSize:      merged.EliteSize,
		TournamentSize: merged.TournamentSize,
	}
	return params, merged.Seed
}

func planToModel(tenant, planID, scenarioID string, res *opt.Plan, m opt.Metrics, seed int64) model.Plan {
	out := model.Plan{
		ID:         planID,
		TenantID:   tenant,
		ScenarioID: scenarioID,
		Status:     "completed",
		CreatedAt:  time.Now().UTC().Format(time.RFC3339),
		Distance:   res.Distance,
		Metrics:    metricsToModel(m, seed),
	}
	for _, v := range res.Vehicles {
		vp := model.VehiclePlan{
			VehicleID: v.ID,
			Type:      v.Type,
			Capacity:  map[string]int(v.Capacity),
			Distance:  v.Distance,
		}
		for _, st := range v.Route {
			so := model.StopOut{
				Label:     st.Label,
				X:         st.X,
				Y:         st.Y,
				Warehouse: st.Warehouse,
			}
			so.RemainingLoad = map[string]int(st.RemainingLoad)
			if !st.Warehouse {
				so.Delivered = map[string]int(st.Delivered)
				so.RemainingDemand = map[string]int(st.RemainingDemand)
			}
			vp.Stops = append(vp.Stops, so)
		}
		out.Vehicles = append(out.Vehicles, vp)
	}
	return out
}

func metricsToModel(m opt.Metrics, seed int64) model.SearchMetrics {
	sm := model.SearchMetrics{
		Generations:       m.Generations,
		Evaluations:       m.Evaluations,
		Improvements:      m.Improvements,
		InfeasibleDecodes: m.InfeasibleDecodes,
		BestCost:          m.BestCost,
		Seed:              seed,
	}
	for _, s := range m.Snapshots {
		sm.Snapshots = append(sm.Snapshots, model.CostSnapshot{Generation: s.Generation, Best: s.Best, Median: s.Median})
	}
	return sm
}

func consumptionToModel(c opt.Consumption) *model.ConsumptionOut {
	out := &model.ConsumptionOut{
		VehicleID: c.VehicleID,
		Product:   c.Product,
		Rate:      c.Rate,
		Total:     c.Total,
	}
	for _, l := range c.Legs {
		out.Legs = append(out.Legs, model.LegConsumptionOut{From: l.FromLabel, To: l.ToLabel, Distance: l.Distance, Consumed: l.Consumed})
	}
	return out
}
