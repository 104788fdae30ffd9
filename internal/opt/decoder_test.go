package opt

import (
	"errors"
	"math"
	"math/rand"
	"testing"
)

func twoPointProblem() *Problem {
	return &Problem{
		Warehouse: Coord{0, 0},
		Points: []Point{
			{Coord: Coord{10, 0}, Label: "east", Demand: Amounts{"orange": 50}},
			{Coord: Coord{0, 10}, Label: "north", Demand: Amounts{"orange": 50}},
		},
		Fleet:    []VehicleSpec{{Type: "green", Capacity: Amounts{"orange": 100}, Count: 1}},
		Products: []string{"orange"},
	}
}

func TestDecodeSingleVehicleCircuit(t *testing.T) {
	p := twoPointProblem()
	fleet, err := Decode(p, []int{0, 1})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(fleet) != 1 {
		t.Fatalf("want 1 vehicle, got %d", len(fleet))
	}
	v := fleet[0]
	want := 10 + math.Sqrt(200) + 10
	if math.Abs(v.Distance-want) > 1e-9 {
		t.Fatalf("distance: want %.4f, got %.4f", want, v.Distance)
	}
	if !v.Route[0].Warehouse || !v.Route[len(v.Route)-1].Warehouse {
		t.Fatalf("route must start and end at the warehouse: %+v", v.Route)
	}
	for _, s := range v.Route {
		if !s.Warehouse && !s.RemainingDemand.Zero() {
			t.Fatalf("stop %q left demand %v", s.Label, s.RemainingDemand)
		}
	}
}

func TestDecodeConservesDemand(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	p := RandomProblem(rng, 12, 4)
	if err := p.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	fleet, err := Decode(p, rng.Perm(len(p.Points)))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	delivered := make([]Amounts, len(p.Points))
	for i := range delivered {
		delivered[i] = Amounts{}
	}
	for _, v := range fleet {
		if !v.Route[0].Warehouse || !v.Route[len(v.Route)-1].Warehouse {
			t.Fatalf("vehicle %d route not warehouse-bracketed", v.ID)
		}
		// Between consecutive warehouse visits a vehicle may not hand out
		// more than one full load of any product.
		trip := Amounts{}
		for _, s := range v.Route {
			if s.Warehouse {
				trip = Amounts{}
				continue
			}
			for prod, qty := range s.Delivered {
				trip[prod] += qty
				delivered[s.PointIndex][prod] += qty
				if trip[prod] > v.Capacity[prod] {
					t.Fatalf("vehicle %d delivered %d of %s in one trip, capacity %d",
						v.ID, trip[prod], prod, v.Capacity[prod])
				}
			}
		}
	}
	for i, pt := range p.Points {
		for prod, want := range pt.Demand {
			if delivered[i][prod] != want {
				t.Fatalf("point %q product %s: delivered %d, demand %d", pt.Label, prod, delivered[i][prod], want)
			}
		}
	}
}

func TestDecodeDeterministic(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	p := RandomProblem(rng, 10, 3)
	order := rng.Perm(len(p.Points))

	a, err := Decode(p, order)
	if err != nil {
		t.Fatalf("first decode: %v", err)
	}
	b, err := Decode(p, order)
	if err != nil {
		t.Fatalf("second decode: %v", err)
	}
	costA, costB := 0.0, 0.0
	for i := range a {
		costA += a[i].Distance
		costB += b[i].Distance
		if len(a[i].Route) != len(b[i].Route) {
			t.Fatalf("vehicle %d: route lengths differ between decodes", a[i].ID)
		}
	}
	if costA != costB {
		t.Fatalf("decode leaked state: cost %v vs %v", costA, costB)
	}
}

func TestDecodeInfeasibleTerminates(t *testing.T) {
	// No vehicle can carry tuna at all, so total fleet tuna capacity is
	// below total demand; the decoder must give up within the retry bound.
	p := &Problem{
		Warehouse: Coord{0, 0},
		Points: []Point{
			{Coord: Coord{5, 5}, Label: "p1", Demand: Amounts{"orange": 20, "tuna": 30}},
		},
		Fleet:    []VehicleSpec{{Type: "green", Capacity: Amounts{"orange": 100}, Count: 2}},
		Products: []string{"orange", "tuna"},
	}
	_, err := Decode(p, []int{0})
	if !errors.Is(err, ErrInfeasible) {
		t.Fatalf("want ErrInfeasible, got %v", err)
	}
}

func TestDecodeExclusivePairSkipsStop(t *testing.T) {
	p := &Problem{
		Warehouse: Coord{0, 0},
		Points: []Point{
			{Coord: Coord{3, 4}, Label: "mixed", Demand: Amounts{"orange": 10, "uranium": 5}},
			{Coord: Coord{6, 8}, Label: "plain", Demand: Amounts{"orange": 10}},
		},
		Fleet:         []VehicleSpec{{Type: "red", Capacity: Amounts{"orange": 100, "uranium": 100}, Count: 1}},
		Products:      []string{"orange", "uranium"},
		ExclusivePair: [2]string{"orange", "uranium"},
	}
	fleet, err := Decode(p, []int{0, 1})
	if err != nil {
		t.Fatalf("decode must tolerate the skipped stop: %v", err)
	}
	for _, v := range fleet {
		for _, s := range v.Route {
			if s.PointIndex == 0 {
				t.Fatalf("stop for excluded point was recorded: %+v", s)
			}
		}
	}
	// The clean point is still served in full.
	served := 0
	for _, v := range fleet {
		for _, s := range v.Route {
			if s.PointIndex == 1 {
				served += s.Delivered["orange"]
			}
		}
	}
	if served != 10 {
		t.Fatalf("plain point: want 10 orange delivered, got %d", served)
	}
}

func TestSelectVehiclePrefersNearbyLoad(t *testing.T) {
	// One shared-capacity fleet: after serving the first point, the same
	// vehicle is parked next to the second and must win the efficiency race
	// against the identical vehicle still at the warehouse.
	p := &Problem{
		Warehouse: Coord{0, 0},
		Points: []Point{
			{Coord: Coord{10, 0}, Label: "a", Demand: Amounts{"orange": 50}},
			{Coord: Coord{12, 0}, Label: "b", Demand: Amounts{"orange": 10}},
		},
		Fleet:    []VehicleSpec{{Type: "green", Capacity: Amounts{"orange": 60}, Count: 2}},
		Products: []string{"orange"},
	}
	fleet, err := Decode(p, []int{0, 1})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	first, second := fleet[0], fleet[1]
	servedB := false
	for _, s := range first.Route {
		if s.PointIndex == 1 {
			servedB = true
			if s.Delivered["orange"] != 10 {
				t.Fatalf("expected vehicle 0 to finish point b, got %+v", s)
			}
		}
	}
	if !servedB {
		t.Fatal("vehicle 0 never reached point b")
	}
	if len(second.Route) != 2 || !second.Route[0].Warehouse || !second.Route[1].Warehouse {
		t.Fatalf("idle vehicle should carry the warehouse stub, got %d stops", len(second.Route))
	}
	if second.Distance != 0 {
		t.Fatalf("idle vehicle distance: want 0, got %v", second.Distance)
	}
}

func TestProblemValidateRejectsUnknownProduct(t *testing.T) {
	p := twoPointProblem()
	p.Points[0].Demand["plutonium"] = 1
	if err := p.Validate(); !errors.Is(err, ErrConfig) {
		t.Fatalf("want ErrConfig for unknown product, got %v", err)
	}
}

func TestProblemValidateRejectsBadFleet(t *testing.T) {
	p := twoPointProblem()
	p.Fleet[0].Capacity = nil
	if err := p.Validate(); !errors.Is(err, ErrConfig) {
		t.Fatalf("want ErrConfig for missing capacity, got %v", err)
	}
	p = twoPointProblem()
	p.Fleet[0].Count = 0
	if err := p.Validate(); !errors.Is(err, ErrConfig) {
		t.Fatalf("want ErrConfig for zero count, got %v", err)
	}
}
