package opt

import (
	"math"
	"testing"
)

func TestConsumeCargoCapsAtCarriedLoad(t *testing.T) {
	p := &Problem{
		Warehouse: Coord{0, 0},
		Points:    []Point{{Coord: Coord{10, 0}, Label: "p", Demand: Amounts{"tuna": 5}}},
		Fleet:     []VehicleSpec{{Type: "green", Capacity: Amounts{"tuna": 5}, Count: 1}},
		Products:  []string{"tuna"},
	}
	fleet, err := Decode(p, []int{0})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	v := fleet[0]
	c := ConsumeCargo(v, "tuna", 1)
	// Outbound leg is 10 units long but only 5 tuna are aboard; the return
	// leg has nothing left to eat.
	if math.Abs(c.Total-5) > 1e-9 {
		t.Fatalf("total consumed: want 5, got %v", c.Total)
	}
	if len(c.Legs) != len(v.Route)-1 {
		t.Fatalf("want %d legs, got %d", len(v.Route)-1, len(c.Legs))
	}
	if c.Legs[len(c.Legs)-1].Consumed != 0 {
		t.Fatalf("return leg should consume nothing, got %v", c.Legs[len(c.Legs)-1].Consumed)
	}
	// The transform is pure: the plan is untouched.
	if v.Load["tuna"] != 0 || v.Route[1].Delivered["tuna"] != 5 {
		t.Fatalf("plan mutated by consumption transform: %+v", v)
	}
}

func TestConsumeCargoZeroRate(t *testing.T) {
	v := &Vehicle{ID: 1, Route: []Stop{
		{Coord: Coord{0, 0}, Warehouse: true, RemainingLoad: Amounts{"tuna": 10}},
		{Coord: Coord{3, 4}, RemainingLoad: Amounts{"tuna": 10}},
	}}
	c := ConsumeCargo(v, "tuna", 0)
	if c.Total != 0 || len(c.Legs) != 0 {
		t.Fatalf("zero rate must consume nothing, got %+v", c)
	}
}

func TestConsumeCargoResetsAfterReload(t *testing.T) {
	// Warehouse visit mid-route replenishes the snapshot, so eating resumes.
	v := &Vehicle{ID: 2, Route: []Stop{
		{Coord: Coord{0, 0}, Warehouse: true, RemainingLoad: Amounts{"tuna": 2}},
		{Coord: Coord{10, 0}, RemainingLoad: Amounts{"tuna": 2}},
		{Coord: Coord{0, 0}, Warehouse: true, RemainingLoad: Amounts{"tuna": 2}},
		{Coord: Coord{0, 10}, RemainingLoad: Amounts{"tuna": 2}},
	}}
	c := ConsumeCargo(v, "tuna", 1)
	// Each outbound leg of length 10 is capped at the 2 aboard; the middle
	// leg back to the warehouse finds the larder already empty.
	if math.Abs(c.Total-4) > 1e-9 {
		t.Fatalf("total consumed: want 4, got %v", c.Total)
	}
}
