package api

import (
	"errors"
	"testing"

	"routegen/internal/model"
	"routegen/internal/opt"
)

func TestToParamsMergesDefaults(t *testing.T) {
	defaults := model.GAParams{PopulationSize: 100, Generations: 100, MutationRate: 0.1, CrossoverRate: 0.9, EliteSize: 10, TournamentSize: 5}
	params, seed := toParams(defaults, &model.GAParams{Generations: 250, Seed: 42})
	if params.Generations != 250 {
		t.Fatalf("generations = %d", params.Generations)
	}
	if params.PopulationSize != 100 || params.MutationRate != 0.1 {
		t.Fatalf("defaults lost: %+v", params)
	}
	if seed != 42 {
		t.Fatalf("seed = %d", seed)
	}

	params, seed = toParams(defaults, nil)
	if params.PopulationSize != 100 || seed != 0 {
		t.Fatalf("nil request: %+v seed=%d", params, seed)
	}
}

func TestToProblemRejectsHalfExclusivePair(t *testing.T) {
	sc := testScenario()
	sc.ExclusivePair = []string{"orange"}
	if _, err := toProblem(&sc); !errors.Is(err, opt.ErrConfig) {
		t.Fatalf("err = %v, want ErrConfig", err)
	}
}

func TestToProblemValidates(t *testing.T) {
	sc := testScenario()
	p, err := toProblem(&sc)
	if err != nil {
		t.Fatalf("toProblem: %v", err)
	}
	if len(p.Points) != 2 || p.FleetSize() != 1 {
		t.Fatalf("problem: %+v", p)
	}
}
