package opt

// En-route cargo consumption: a cosmetic post-processing transform over a
// finished plan. One designated vehicle "eats" a named product at a fixed
// rate per distance unit driven. The transform never mutates the plan; the
// decoder stays free of this behavior.

// Consumption reports how much of one product a vehicle consumed en route.
type Consumption struct {
	VehicleID int
	Product   string
	Rate      float64 // units consumed per distance unit
	Total     float64
	Legs      []LegConsumption
}

// LegConsumption is the consumption along one leg of the route.
type LegConsumption struct {
	FromLabel string
	ToLabel   string
	Distance  float64
	Consumed  float64
}

// ConsumeCargo computes what a vehicle would have consumed of product while
// driving its route, capped leg by leg at the load it was actually carrying.
// Warehouse stops replenish nothing here; only the recorded remaining load
// bounds each leg.
func ConsumeCargo(v *Vehicle, product string, rate float64) Consumption {
	c := Consumption{VehicleID: v.ID, Product: product, Rate: rate}
	if rate <= 0 || len(v.Route) < 2 {
		return c
	}
	// deficit tracks consumption since the last reload; each stop's recorded
	// load snapshot predates any eating, so the leg's true carry is the
	// snapshot minus the deficit.
	deficit := 0.0
	for i := 1; i < len(v.Route); i++ {
		prev, cur := v.Route[i-1], v.Route[i]
		dist := prev.DistanceTo(cur.Coord)
		carried := float64(prev.RemainingLoad[product]) - deficit
		if carried < 0 {
			carried = 0
		}
		eaten := dist * rate
		if eaten > carried {
			eaten = carried
		}
		c.Total += eaten
		c.Legs = append(c.Legs, LegConsumption{
			FromLabel: prev.Label,
			ToLabel:   cur.Label,
			Distance:  dist,
			Consumed:  eaten,
		})
		if cur.Warehouse {
			deficit = 0 // reloaded to a fresh snapshot
		} else {
			deficit += eaten
		}
	}
	return c
}
