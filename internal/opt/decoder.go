package opt

import (
	"fmt"
	"log"
)

// maxServeAttempts bounds how many times the decoder may come up empty-handed
// for a single point (forcing a reload each time) before declaring the
// ordering infeasible.
const maxServeAttempts = 50

// distEpsilon keeps the efficiency ratio finite when a vehicle is already
// parked on the target point.
const distEpsilon = 1e-9

// Vehicle is one routed vehicle in a decoded plan.
type Vehicle struct {
	ID       int
	Type     string
	Capacity Amounts
	Load     Amounts // current load; starts equal to Capacity
	Route    []Stop
	Distance float64 // Euclidean length of the full route
}

// Stop records one visit on a vehicle route. For the warehouse only the
// location and flag are meaningful.
type Stop struct {
	Coord
	Label           string
	PointIndex      int // index into Problem.Points, -1 for the warehouse
	Warehouse       bool
	Delivered       Amounts // what this visit dropped off
	RemainingLoad   Amounts // vehicle load after the drop-off
	RemainingDemand Amounts // point demand after the drop-off
}

// position is where the vehicle currently sits: its last stop, or the
// warehouse if it has not yet departed.
func (v *Vehicle) position(warehouse Coord) Coord {
	if len(v.Route) == 0 {
		return warehouse
	}
	return v.Route[len(v.Route)-1].Coord
}

// possibleDelivery sums over all products what v could drop at a point with
// the given remaining demand.
func (v *Vehicle) possibleDelivery(remaining Amounts) int {
	total := 0
	for prod, need := range remaining {
		if need <= 0 {
			continue
		}
		if have := v.Load[prod]; have > 0 {
			if have < need {
				total += have
			} else {
				total += need
			}
		}
	}
	return total
}

// reload returns the vehicle to full capacity and stamps a warehouse stop
// onto its route.
func (v *Vehicle) reload(warehouse Coord) {
	v.Load = v.Capacity.Clone()
	v.Route = append(v.Route, Stop{
		Coord:         warehouse,
		Label:         "Warehouse",
		PointIndex:    -1,
		Warehouse:     true,
		Delivered:     Amounts{},
		RemainingLoad: v.Load.Clone(),
	})
}

// Decode turns one visiting order into a fully routed fleet. The order must
// be a permutation of the problem's point indices. Decoding is deterministic
// and allocates its own demand and fleet state, so repeated calls against the
// same problem are independent and safe to run concurrently.
func Decode(p *Problem, order []int) ([]*Vehicle, error) {
	fleet := buildFleet(p)

	// Fresh remaining-demand state per call; Problem is never mutated.
	remaining := make([]Amounts, len(p.Points))
	for i := range p.Points {
		remaining[i] = p.Points[i].Demand.Clone()
	}

	// Points whose delivery was dropped by the exclusive-pair guard. Their
	// shortfall is diagnosed, not fatal.
	skipped := make(map[int]bool)

	for _, idx := range order {
		if idx < 0 || idx >= len(p.Points) {
			return nil, fmt.Errorf("%w: order references point %d out of range", ErrConfig, idx)
		}
		pt := &p.Points[idx]
		attempts := 0
		for !remaining[idx].Zero() && !skipped[idx] {
			v := selectVehicle(p, fleet, pt.Coord, remaining[idx])
			if v == nil {
				attempts++
				if attempts >= maxServeAttempts {
					return nil, fmt.Errorf("%w: point %q after %d attempts", ErrInfeasible, pt.Label, attempts)
				}
				// Send one vehicle home for a refill and try again. Rotating
				// through the fleet keeps the choice deterministic.
				fleet[(attempts-1)%len(fleet)].reload(p.Warehouse)
				continue
			}
			delivery := make(Amounts, len(remaining[idx]))
			for prod, need := range remaining[idx] {
				if need <= 0 {
					continue
				}
				qty := v.Load[prod]
				if qty > need {
					qty = need
				}
				if qty > 0 {
					delivery[prod] = qty
				}
			}
			if p.violatesExclusivePair(delivery) {
				log.Printf("decode: skipping stop at %q: products %s and %s may not share a stop (vehicle %d)",
					pt.Label, p.ExclusivePair[0], p.ExclusivePair[1], v.ID)
				skipped[idx] = true
				continue
			}
			for prod, qty := range delivery {
				v.Load[prod] -= qty
				remaining[idx][prod] -= qty
			}
			v.Route = append(v.Route, Stop{
				Coord:           pt.Coord,
				Label:           pt.Label,
				PointIndex:      idx,
				Delivered:       delivery,
				RemainingLoad:   v.Load.Clone(),
				RemainingDemand: remaining[idx].Clone(),
			})
			attempts = 0
		}
	}

	// Every point must end fully served, except those the exclusive-pair
	// guard explicitly abandoned.
	for i := range p.Points {
		if skipped[i] {
			continue
		}
		for prod, left := range remaining[i] {
			if left != 0 {
				return nil, &UnsatisfiedDemandError{Label: p.Points[i].Label, Product: prod, Remaining: left}
			}
		}
	}

	closeRoutes(p, fleet)
	return fleet, nil
}

// buildFleet instantiates the fleet at full load. Vehicles keep the order of
// their specs, which fixes the heuristic's tie-break.
func buildFleet(p *Problem) []*Vehicle {
	fleet := make([]*Vehicle, 0, p.FleetSize())
	id := 0
	for _, vs := range p.Fleet {
		for i := 0; i < vs.Count; i++ {
			fleet = append(fleet, &Vehicle{
				ID:       id,
				Type:     vs.Type,
				Capacity: vs.Capacity.Clone(),
				Load:     vs.Capacity.Clone(),
			})
			id++
		}
	}
	return fleet
}

// selectVehicle is the greedy vehicle-selection heuristic: it returns the
// vehicle maximizing deliverable quantity per unit of distance to the point
// and back to the warehouse, or nil when no vehicle can deliver anything.
func selectVehicle(p *Problem, fleet []*Vehicle, target Coord, remaining Amounts) *Vehicle {
	var best *Vehicle
	bestEff := 0.0
	backHaul := target.DistanceTo(p.Warehouse)
	for _, v := range fleet {
		possible := v.possibleDelivery(remaining)
		if possible <= 0 {
			continue
		}
		dist := v.position(p.Warehouse).DistanceTo(target)
		eff := float64(possible) / (dist + backHaul + distEpsilon)
		// Strict > keeps the first vehicle in fleet order on ties.
		if best == nil || eff > bestEff {
			best = v
			bestEff = eff
		}
	}
	return best
}

// violatesExclusivePair reports whether a computed delivery carries both
// products of the configured exclusive pair.
func (p *Problem) violatesExclusivePair(delivery Amounts) bool {
	a, b := p.ExclusivePair[0], p.ExclusivePair[1]
	if a == "" || b == "" {
		return false
	}
	return delivery[a] > 0 && delivery[b] > 0
}

// closeRoutes brackets every route with warehouse stops and computes total
// distances. Vehicles that never left get the zero-distance stub.
func closeRoutes(p *Problem, fleet []*Vehicle) {
	for _, v := range fleet {
		if len(v.Route) == 0 || !v.Route[0].Warehouse {
			opening := Stop{
				Coord:         p.Warehouse,
				Label:         "Warehouse",
				PointIndex:    -1,
				Warehouse:     true,
				Delivered:     Amounts{},
				RemainingLoad: v.Capacity.Clone(),
			}
			v.Route = append([]Stop{opening}, v.Route...)
		}
		last := v.Route[len(v.Route)-1]
		if len(v.Route) == 1 || !last.Warehouse || last.Coord != p.Warehouse {
			v.Route = append(v.Route, Stop{
				Coord:         p.Warehouse,
				Label:         "Warehouse",
				PointIndex:    -1,
				Warehouse:     true,
				Delivered:     Amounts{},
				RemainingLoad: v.Load.Clone(),
			})
		}
		v.Distance = routeDistance(v.Route)
	}
}

func routeDistance(route []Stop) float64 {
	total := 0.0
	for i := 1; i < len(route); i++ {
		total += route[i-1].DistanceTo(route[i].Coord)
	}
	return total
}
