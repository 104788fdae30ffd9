package opt

import (
	"fmt"
	"math/rand"
)

// DefaultProducts is the product schema of the demo catalog.
var DefaultProducts = []string{"orange", "tuna", "uranium"}

// vehicleTypes maps the stock vehicle classes to their per-product pool size.
var vehicleTypes = map[string]int{
	"green": 1000,
	"blue":  1500,
	"red":   2000,
}

var vehicleTypeNames = []string{"green", "blue", "red"}

// RandomProblem builds a demo problem: a warehouse at a random location and
// numPoints delivery points with random demand for the default catalog,
// served by numVehicles randomly typed vehicles. Intended for demos, seeding
// tests and load generation; production scenarios come in via the API.
func RandomProblem(rng *rand.Rand, numPoints, numVehicles int) *Problem {
	p := &Problem{
		Warehouse: Coord{X: float64(rng.Intn(101)), Y: float64(rng.Intn(101))},
		Products:  append([]string(nil), DefaultProducts...),
	}
	for i := 0; i < numPoints; i++ {
		x := float64(rng.Intn(101))
		y := float64(rng.Intn(101))
		p.Points = append(p.Points, Point{
			Coord: Coord{X: x, Y: y},
			Label: fmt.Sprintf("Point (%.0f,%.0f)", x, y),
			Demand: Amounts{
				"orange":  50 + rng.Intn(151),
				"uranium": 10 + rng.Intn(41),
				"tuna":    30 + rng.Intn(71),
			},
		})
	}
	p.Fleet = RandomFleet(rng, numVehicles)
	return p
}

// RandomFleet picks numVehicles vehicles of random stock types, one spec per
// vehicle so fleet enumeration order matches creation order.
func RandomFleet(rng *rand.Rand, numVehicles int) []VehicleSpec {
	fleet := make([]VehicleSpec, 0, numVehicles)
	for i := 0; i < numVehicles; i++ {
		typ := vehicleTypeNames[rng.Intn(len(vehicleTypeNames))]
		fleet = append(fleet, VehicleSpec{Type: typ, Capacity: StockCapacity(typ), Count: 1})
	}
	return fleet
}

// StockCapacity returns the per-product capacity map for a stock vehicle
// type; unknown types get the smallest pool.
func StockCapacity(typ string) Amounts {
	size, ok := vehicleTypes[typ]
	if !ok {
		size = vehicleTypes["green"]
	}
	cap := make(Amounts, len(DefaultProducts))
	for _, prod := range DefaultProducts {
		cap[prod] = size
	}
	return cap
}
