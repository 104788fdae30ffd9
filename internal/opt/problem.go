// Package opt implements the genetic-algorithm route planner: a search over
// visiting orders plus a deterministic decoder that turns one order into a
// capacity-respecting multi-vehicle delivery plan.
package opt

import (
	"errors"
	"fmt"
	"math"
)

// Amounts maps a product name to a quantity in load units (kg).
type Amounts map[string]int

// Clone returns an independent copy of a.
func (a Amounts) Clone() Amounts {
	out := make(Amounts, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// Total sums the quantities across all products.
func (a Amounts) Total() int {
	t := 0
	for _, v := range a {
		t += v
	}
	return t
}

// Zero reports whether every quantity is zero.
func (a Amounts) Zero() bool {
	for _, v := range a {
		if v != 0 {
			return false
		}
	}
	return true
}

// Coord is a location on the Euclidean plane used for distance computation.
type Coord struct {
	X float64
	Y float64
}

// DistanceTo returns the Euclidean distance to o.
func (c Coord) DistanceTo(o Coord) float64 {
	dx := c.X - o.X
	dy := c.Y - o.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// Point is a delivery point with a fixed total demand per product.
type Point struct {
	Coord
	Label  string
	Demand Amounts // total demand, fixed at creation
}

// VehicleSpec declares one class of vehicles in the fleet.
type VehicleSpec struct {
	Type     string
	Capacity Amounts // per-product pools, no shared weight budget
	Count    int
}

// Problem is the immutable input to the solver: one warehouse, the demand
// points, the fleet specification and the recognized product schema.
// Decoding never mutates a Problem, so one value may back concurrent solves.
type Problem struct {
	Warehouse Coord
	Points    []Point
	Fleet     []VehicleSpec
	Products  []string

	// ExclusivePair optionally names two products that must never be
	// delivered together in a single stop. A stop that would combine them
	// is skipped with a diagnostic instead of aborting the decode.
	ExclusivePair [2]string
}

// ErrConfig marks a malformed problem configuration. It is fatal at
// construction time and never tolerated during search.
var ErrConfig = errors.New("invalid problem configuration")

// ErrInfeasible is returned when the decoder exhausts its retry budget for a
// point. During search it maps to a penalty cost; on the final decode of the
// winning individual it surfaces to the caller.
var ErrInfeasible = errors.New("infeasible: retry budget exhausted")

// UnsatisfiedDemandError reports a post-decode invariant break: a point was
// left with nonzero remaining demand. It signals a logic error or a truly
// infeasible fleet/demand combination and is never silently absorbed.
type UnsatisfiedDemandError struct {
	Label     string
	Product   string
	Remaining int
}

func (e *UnsatisfiedDemandError) Error() string {
	return fmt.Sprintf("unsatisfied demand: point %q still needs %d of %s after decode", e.Label, e.Remaining, e.Product)
}

// Validate checks the problem against the product schema and fleet shape.
// Unknown product keys fail fast here instead of being skipped downstream.
func (p *Problem) Validate() error {
	if len(p.Products) == 0 {
		return fmt.Errorf("%w: product schema is empty", ErrConfig)
	}
	known := make(map[string]struct{}, len(p.Products))
	for _, prod := range p.Products {
		if prod == "" {
			return fmt.Errorf("%w: empty product name in schema", ErrConfig)
		}
		if _, dup := known[prod]; dup {
			return fmt.Errorf("%w: duplicate product %q in schema", ErrConfig, prod)
		}
		known[prod] = struct{}{}
	}
	if len(p.Fleet) == 0 {
		return fmt.Errorf("%w: fleet specification is empty", ErrConfig)
	}
	for i, vs := range p.Fleet {
		if vs.Count <= 0 {
			return fmt.Errorf("%w: fleet entry %d (%s): count must be positive", ErrConfig, i, vs.Type)
		}
		if len(vs.Capacity) == 0 {
			return fmt.Errorf("%w: fleet entry %d (%s): missing capacity", ErrConfig, i, vs.Type)
		}
		for prod, qty := range vs.Capacity {
			if _, ok := known[prod]; !ok {
				return fmt.Errorf("%w: fleet entry %d (%s): unknown product %q", ErrConfig, i, vs.Type, prod)
			}
			if qty < 0 {
				return fmt.Errorf("%w: fleet entry %d (%s): negative capacity for %s", ErrConfig, i, vs.Type, prod)
			}
		}
	}
	for i, pt := range p.Points {
		for prod, qty := range pt.Demand {
			if _, ok := known[prod]; !ok {
				return fmt.Errorf("%w: point %d (%s): unknown product %q", ErrConfig, i, pt.Label, prod)
			}
			if qty < 0 {
				return fmt.Errorf("%w: point %d (%s): negative demand for %s", ErrConfig, i, pt.Label, prod)
			}
		}
	}
	if (p.ExclusivePair[0] == "") != (p.ExclusivePair[1] == "") {
		return fmt.Errorf("%w: exclusive pair must name two products or none", ErrConfig)
	}
	if p.ExclusivePair[0] != "" {
		for _, prod := range p.ExclusivePair {
			if _, ok := known[prod]; !ok {
				return fmt.Errorf("%w: exclusive pair references unknown product %q", ErrConfig, prod)
			}
		}
	}
	return nil
}

// FleetSize returns the total number of vehicles the fleet instantiates.
func (p *Problem) FleetSize() int {
	n := 0
	for _, vs := range p.Fleet {
		n += vs.Count
	}
	return n
}

