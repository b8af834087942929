package itinerary

import "github.com/bitfantasy/mechai/internal/shop/entity"

// Validate checks every machine and tool claim against the inventory. A claim
// that the inventory does not back is removed and the step becomes unservable.
// Names of backed claims are replaced with the inventory names. The returned
// total is the sum of the step costs.
func Validate(steps []entity.ItineraryStep, inv *Inventory) ([]entity.ItineraryStep, float64) {
	out := make([]entity.ItineraryStep, 0, len(steps))
	for _, s := range steps {
		if s.HasMachine() {
			if m, ok := inv.Machine(*s.MachineID); ok {
				s.AssignMachine(m.ID, m.Name)
			} else {
				s.ClearMachine()
				s.Unservable = true
			}
		}
		if s.HasTool() {
			if !s.HasMachine() {
				s.ClearTool()
				s.Unservable = true
			} else if t, ok := inv.Tool(*s.MachineID, *s.ToolingID); ok {
				s.AssignTool(t.ID, t.Name)
			} else {
				s.ClearTool()
				s.Unservable = true
			}
		}
		resolveStep(&s)
		out = append(out, s)
	}
	return out, SumCost(out)
}
