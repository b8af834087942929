package itinerary

import "github.com/bitfantasy/mechai/internal/shop/entity"

// Inventory is the read-only grouping of one owner's shop rows used to compose
// a single generation request.
//
// ToolsByMachineID is the only source of truth for which tools exist.
// ToolsByMachineType and ToolTypesByMachineType are convenience views;
// ToolTypesByMachineType is reference data and never implies availability.
type Inventory struct {
	MachinesByType         map[string][]entity.Machine
	ToolsByMachineID       map[string][]entity.Tool
	ToolsByMachineType     map[string][]entity.Tool
	ToolTypesByMachineType map[string][]entity.ToolType
	Materials              []entity.Material

	machines map[string]entity.Machine
}

// Aggregate groups flat inventory rows. Tools are expected to carry their
// owning machine (entity.Tool.Machine); when they do not, the machine is looked
// up among machines. Input order is kept inside every group.
func Aggregate(machines []entity.Machine, tools []entity.Tool, toolTypes []entity.ToolType, materials []entity.Material) *Inventory {
	inv := &Inventory{
		MachinesByType:         make(map[string][]entity.Machine),
		ToolsByMachineID:       make(map[string][]entity.Tool),
		ToolsByMachineType:     make(map[string][]entity.Tool),
		ToolTypesByMachineType: make(map[string][]entity.ToolType),
		Materials:              materials,
		machines:               make(map[string]entity.Machine, len(machines)),
	}
	if inv.Materials == nil {
		inv.Materials = []entity.Material{}
	}

	for _, m := range machines {
		inv.MachinesByType[m.Type] = append(inv.MachinesByType[m.Type], m)
		inv.machines[m.ID] = m
		if _, ok := inv.ToolsByMachineID[m.ID]; !ok {
			inv.ToolsByMachineID[m.ID] = []entity.Tool{}
		}
	}

	for _, t := range tools {
		inv.ToolsByMachineID[t.MachineID] = append(inv.ToolsByMachineID[t.MachineID], t)

		machineType := ""
		if t.Machine != nil {
			machineType = t.Machine.Type
		} else if m, ok := inv.machines[t.MachineID]; ok {
			machineType = m.Type
		}
		if machineType != "" {
			inv.ToolsByMachineType[machineType] = append(inv.ToolsByMachineType[machineType], t)
		}
	}

	for _, tt := range toolTypes {
		inv.ToolTypesByMachineType[tt.MachineType] = append(inv.ToolTypesByMachineType[tt.MachineType], tt)
	}

	return inv
}

// Machine returns the machine with the given id.
func (inv *Inventory) Machine(id string) (entity.Machine, bool) {
	m, ok := inv.machines[id]
	return m, ok
}

// Tool returns the tool with toolID only if it is mounted on machineID.
func (inv *Inventory) Tool(machineID, toolID string) (entity.Tool, bool) {
	for _, t := range inv.ToolsByMachineID[machineID] {
		if t.ID == toolID {
			return t, true
		}
	}
	return entity.Tool{}, false
}

// HasTool reports whether toolID is mounted on machineID.
func (inv *Inventory) HasTool(machineID, toolID string) bool {
	_, ok := inv.Tool(machineID, toolID)
	return ok
}

// MachineCount and ToolCount are used for request logging.
func (inv *Inventory) MachineCount() int { return len(inv.machines) }

func (inv *Inventory) ToolCount() int {
	n := 0
	for _, tools := range inv.ToolsByMachineID {
		n += len(tools)
	}
	return n
}
