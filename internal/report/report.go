// Package report renders a finished delivery plan as a plain-text route
// listing for dispatch handouts and debugging.
package report

import (
	"fmt"
	"io"
	"sort"

	"routegen/internal/model"
)

// Write renders the plan to w, one block per vehicle, ending with the fleet
// grand total. It only reads the plan.
func Write(w io.Writer, plan *model.Plan) error {
	total := 0.0
	for _, v := range plan.Vehicles {
		if _, err := fmt.Fprintf(w, "\nVehicle %d (%s) route:\n", v.VehicleID, v.Type); err != nil {
			return err
		}
		for _, s := range v.Stops {
			if s.Warehouse {
				fmt.Fprintf(w, "Warehouse | Load: %s\n", amounts(s.RemainingLoad))
				continue
			}
			fmt.Fprintf(w, "[Delivery] %s | Delivered: %s | Remaining demand: %s | Remaining load: %s\n",
				s.Label, amounts(s.Delivered), amounts(s.RemainingDemand), amounts(s.RemainingLoad))
		}
		fmt.Fprintf(w, "\nTotal distance: %.2f km\n", v.Distance)
		total += v.Distance
	}
	if plan.Consumption != nil {
		fmt.Fprintf(w, "\n%s consumed en route by vehicle %d: %.2f kg\n",
			plan.Consumption.Product, plan.Consumption.VehicleID, plan.Consumption.Total)
	}
	_, err := fmt.Fprintf(w, "\n\nGRAND TOTAL DISTANCE: %.2f km\n", total)
	return err
}

// amounts formats a product map with stable key order.
func amounts(m map[string]int) string {
	if len(m) == 0 {
		return "-"
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := ""
	for i, k := range keys {
		if i > 0 {
			out += ", "
		}
		out += fmt.Sprintf("%s: %dkg", k, m[k])
	}
	return out
}
