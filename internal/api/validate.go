package api

import (
	"fmt"

	"routegen/internal/model"
)

func validateScenario(in *model.ScenarioIn) error {
	if in == nil {
		return fmt.Errorf("scenario required")
	}
	if len(in.Points) == 0 {
		return fmt.Errorf("at least one delivery point required")
	}
	if len(in.Fleet) == 0 {
		return fmt.Errorf("at least one vehicle required")
	}
	if len(in.Products) == 0 {
		return fmt.Errorf("product catalog required")
	}
	return nil
}

func validateSolveRequest(req *model.SolveRequest) error {
	if req.ScenarioID == "" && req.Scenario == nil {
		return fmt.Errorf("scenarioId or inline scenario required")
	}
	if req.ScenarioID != "" && req.Scenario != nil {
		return fmt.Errorf("scenarioId and inline scenario are mutually exclusive")
	}
	if p := req.Params; p != nil {
		if p.PopulationSize < 0 || p.Generations < 0 || p.EliteSize < 0 || p.TournamentSize < 0 {
			return fmt.Errorf("params must be non-negative")
		}
		if p.MutationRate < 0 || p.MutationRate > 1 {
			return fmt.Errorf("mutationRate must be in [0,1]")
		}
		if p.CrossoverRate < 0 || p.CrossoverRate > 1 {
			return fmt.Errorf("crossoverRate must be in [0,1]")
		}
	}
	if c := req.Consumption; c != nil {
		if c.Product == "" {
			return fmt.Errorf("consumption.product required")
		}
		if c.RatePerUnit < 0 {
			return fmt.Errorf("consumption.ratePerUnit must be >= 0")
		}
		if c.VehicleID < 0 {
			return fmt.Errorf("consumption.vehicleId must be >= 0")
		}
	}
	return nil
}
