package opt

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
	"time"
)

// infeasibleCost is the sentinel fitness for individuals whose decode failed.
// Large enough to lose every comparison, small enough to stay well away from
// float overflow when ranked.
const infeasibleCost = math.MaxFloat64 / 4

// snapshotEvery controls how often generation cost snapshots are recorded.
const snapshotEvery = 10

// Params are the GA hyperparameters.
type Params struct {
	PopulationSize int
	Generations    int
	MutationRate   float64 // Pm, probability of one swap mutation per child
	CrossoverRate  float64 // Pc, probability of ordered crossover vs. cloning
	EliteSize      int
	TournamentSize int
}

// DefaultParams mirror the defaults of the original planner.
var DefaultParams = Params{
	PopulationSize: 100,
	Generations:    100,
	MutationRate:   0.1,
	CrossoverRate:  0.9,
	EliteSize:      10,
	TournamentSize: 5,
}

// Validate rejects out-of-range hyperparameters up front.
func (pr Params) Validate() error {
	if pr.PopulationSize <= 0 {
		return fmt.Errorf("%w: populationSize must be positive", ErrConfig)
	}
	if pr.Generations <= 0 {
		return fmt.Errorf("%w: generations must be positive", ErrConfig)
	}
	if pr.MutationRate < 0 || pr.MutationRate > 1 {
		return fmt.Errorf("%w: mutationRate must be in [0,1]", ErrConfig)
	}
	if pr.CrossoverRate < 0 || pr.CrossoverRate > 1 {
		return fmt.Errorf("%w: crossoverRate must be in [0,1]", ErrConfig)
	}
	if pr.EliteSize < 0 || pr.EliteSize >= pr.PopulationSize {
		return fmt.Errorf("%w: eliteSize must be in [0, populationSize)", ErrConfig)
	}
	if pr.TournamentSize <= 0 || pr.TournamentSize > pr.PopulationSize {
		return fmt.Errorf("%w: tournamentSize must be in [1, populationSize]", ErrConfig)
	}
	return nil
}

// Plan is the decoded result for the best individual of the final generation.
type Plan struct {
	Vehicles []*Vehicle
	Distance float64 // sum of all vehicle distances
	Order    []int   // the winning visiting order
}

// Metrics summarizes one search run.
type Metrics struct {
	Generations       int
	Evaluations       int
	Improvements      int
	InfeasibleDecodes int
	BestCost          float64
	Snapshots         []CostSnapshot
}

// CostSnapshot is a periodic sample of population quality.
type CostSnapshot struct {
	Generation int
	Best       float64
	Median     float64
}

// GenerationUpdate is pushed to the optional progress callback once per
// generation.
type GenerationUpdate struct {
	Generation int
	BestCost   float64
	Improved   bool
}

// Fitness decodes one individual and returns its cost: the summed route
// distance of the whole fleet, or the infeasible sentinel if the decode
// fails. Configuration errors in the order itself are also penalized; they
// cannot occur for orders produced by the solver.
func Fitness(p *Problem, order []int) float64 {
	vehicles, err := Decode(p, order)
	if err != nil {
		return infeasibleCost
	}
	total := 0.0
	for _, v := range vehicles {
		total += v.Distance
	}
	return total
}

// Solve runs the genetic search and decodes the winner. seed fixes the run;
// zero picks a time-based seed. onGen, when non-nil, receives one update per
// generation (used for event streaming; must not block).
func Solve(p *Problem, params Params, seed int64, onGen func(GenerationUpdate)) (*Plan, Metrics, error) {
	var m Metrics
	if err := p.Validate(); err != nil {
		return nil, m, err
	}
	if err := params.Validate(); err != nil {
		return nil, m, err
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	n := len(p.Points)
	pop := make([][]int, params.PopulationSize)
	for i := range pop {
		pop[i] = rng.Perm(n)
	}
	costs := make([]float64, params.PopulationSize)
	evaluate(p, pop, costs, &m)
	rank(pop, costs)
	m.BestCost = costs[0]

	for gen := 1; gen <= params.Generations; gen++ {
		next := make([][]int, 0, params.PopulationSize)
		for i := 0; i < params.EliteSize; i++ {
			next = append(next, append([]int(nil), pop[i]...))
		}
		for len(next) < params.PopulationSize {
			p1 := pop[tournament(rng, costs, params.TournamentSize)]
			p2 := pop[tournament(rng, costs, params.TournamentSize)]
			var child []int
			if rng.Float64() < params.CrossoverRate {
				child = orderedCrossover(rng, p1, p2)
			} else {
				child = append([]int(nil), p1...)
			}
			if rng.Float64() < params.MutationRate {
				swapMutate(rng, child)
			}
			next = append(next, child)
		}
		pop = next
		evaluate(p, pop, costs, &m)
		rank(pop, costs)
		m.Generations = gen

		improved := costs[0] < m.BestCost
		if improved {
			m.BestCost = costs[0]
			m.Improvements++
		}
		if gen%snapshotEvery == 0 || gen == params.Generations {
			m.Snapshots = append(m.Snapshots, CostSnapshot{
				Generation: gen,
				Best:       costs[0],
				Median:     costs[len(costs)/2],
			})
		}
		if onGen != nil {
			onGen(GenerationUpdate{Generation: gen, BestCost: costs[0], Improved: improved})
		}
	}

	// The winning individual is decoded once more, unguarded: a failure here
	// is a user-visible outcome, not a penalty.
	best := pop[0]
	vehicles, err := Decode(p, best)
	if err != nil {
		return nil, m, fmt.Errorf("final decode: %w", err)
	}
	plan := &Plan{Vehicles: vehicles, Order: append([]int(nil), best...)}
	for _, v := range vehicles {
		plan.Distance += v.Distance
	}
	return plan, m, nil
}

// evaluate fills costs for the whole population. Every decode owns isolated
// demand state, so this loop is trivially parallelizable; it stays sequential
// because generation count is the only execution bound we honor.
func evaluate(p *Problem, pop [][]int, costs []float64, m *Metrics) {
	for i, ind := range pop {
		costs[i] = Fitness(p, ind)
		m.Evaluations++
		if costs[i] >= infeasibleCost {
			m.InfeasibleDecodes++
		}
	}
}

// rank sorts the population ascending by cost, keeping costs aligned.
func rank(pop [][]int, costs []float64) {
	idx := make([]int, len(pop))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return costs[idx[a]] < costs[idx[b]] })
	sortedPop := make([][]int, len(pop))
	sortedCosts := make([]float64, len(costs))
	for r, i := range idx {
		sortedPop[r] = pop[i]
		sortedCosts[r] = costs[i]
	}
	copy(pop, sortedPop)
	copy(costs, sortedCosts)
}

// tournament returns the index of the best of k uniformly drawn individuals.
func tournament(rng *rand.Rand, costs []float64, k int) int {
	best := rng.Intn(len(costs))
	for i := 1; i < k; i++ {
		cand := rng.Intn(len(costs))
		if costs[cand] < costs[best] {
			best = cand
		}
	}
	return best
}

// orderedCrossover copies a random slice [start,end] of p1 into the child at
// identical positions, then fills the remaining positions left to right with
// p2's elements in their original relative order, skipping duplicates. The
// child is always a valid permutation of the shared element set.
func orderedCrossover(rng *rand.Rand, p1, p2 []int) []int {
	n := len(p1)
	if n < 2 {
		return append([]int(nil), p1...)
	}
	start := rng.Intn(n - 1)
	end := start + 1 + rng.Intn(n-start-1)

	child := make([]int, n)
	for i := range child {
		child[i] = -1
	}
	taken := make(map[int]bool, end-start+1)
	for i := start; i <= end; i++ {
		child[i] = p1[i]
		taken[p1[i]] = true
	}
	pos := 0
	for _, g := range p2 {
		if taken[g] {
			continue
		}
		for child[pos] != -1 {
			pos++
		}
		child[pos] = g
	}
	return child
}

// swapMutate exchanges two uniformly random positions in place.
func swapMutate(rng *rand.Rand, ind []int) {
	if len(ind) < 2 {
		return
	}
	i := rng.Intn(len(ind))
	j := rng.Intn(len(ind))
	ind[i], ind[j] = ind[j], ind[i]
}
