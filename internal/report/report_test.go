package report

import (
	"bytes"
	"strings"
	"testing"

	"routegen/internal/model"
)

func TestWriteRendersPlan(t *testing.T) {
	plan := &model.Plan{
		ID:       "pl_1",
		Distance: 34.14,
		Vehicles: []model.VehiclePlan{
			{
				VehicleID: 0,
				Type:      "green",
				Distance:  34.14,
				Stops: []model.StopOut{
					{Label: "Warehouse", Warehouse: true, RemainingLoad: map[string]int{"orange": 100}},
					{Label: "east", X: 10, Delivered: map[string]int{"orange": 50}, RemainingDemand: map[string]int{"orange": 0}, RemainingLoad: map[string]int{"orange": 50}},
					{Label: "Warehouse", Warehouse: true, RemainingLoad: map[string]int{"orange": 50}},
				},
			},
		},
		Consumption: &model.ConsumptionOut{VehicleID: 0, Product: "tuna", Total: 1.5},
	}
	var buf bytes.Buffer
	if err := Write(&buf, plan); err != nil {
		t.Fatalf("write: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"Vehicle 0 (green) route:",
		"[Delivery] east | Delivered: orange: 50kg",
		"Total distance: 34.14 km",
		"tuna consumed en route by vehicle 0: 1.50 kg",
		"GRAND TOTAL DISTANCE: 34.14 km",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("report missing %q:\n%s", want, out)
		}
	}
}

func TestAmountsStableOrder(t *testing.T) {
	got := amounts(map[string]int{"uranium": 1, "orange": 2, "tuna": 3})
	want := "orange: 2kg, tuna: 3kg, uranium: 1kg"
	if got != want {
		t.Fatalf("want %q, got %q", want, got)
	}
	if amounts(nil) != "-" {
		t.Fatalf("empty map should render as dash")
	}
}
