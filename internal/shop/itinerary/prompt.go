package itinerary

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/bitfantasy/mechai/internal/shop/entity"
)

// SystemPrompt is the fixed system instruction sent with every generation
// request.
const SystemPrompt = `You are an expert machinist and manufacturing process planner. You plan machining itineraries using only the equipment and tooling that a shop actually has.

Rules you must always follow:
1. A tool may be assigned to a step only if it is listed under TOOLING BY MACHINE ID for the exact machine chosen for that step. Tool type reference data never justifies an assignment.
2. Check every required tool parameter (diameter, length, material compatibility, thread pitch and similar) against the candidate tool's actual values.
3. If a suitable tool exists, assign the machine and tool. If the right tool exists on the chosen machine but its parameters are inadequate, assign it and set parameter_issue to true with inadequate_parameter and required_parameter filled in. If no qualifying tool exists, set the tool fields to null, set unservable to true, and fill in required_tool_type and recommendation.
4. If no suitable machine exists, set the machine fields to null, set unservable to true, and fill in required_machine_type.

Respond with JSON only.`

// PartContext is the part information embedded in a prompt. SVG holds the 2D
// vector preview when one exists; otherwise FileReference is used.
type PartContext struct {
	ID            string
	Name          string
	FileReference string
	SVG           string
}

type envelopeView struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

type machineView struct {
	ID            string       `json:"id"`
	Name          string       `json:"name"`
	Type          string       `json:"type"`
	Axes          int          `json:"axes"`
	SpindleSpeed  float64      `json:"spindle_speed_rpm"`
	WorkEnvelope  envelopeView `json:"work_envelope_mm"`
	HourlyRate    float64      `json:"hourly_rate"`
	SetupCost     float64      `json:"setup_cost"`
	OperatingCost float64      `json:"operating_cost"`
}

type toolView struct {
	ID              string            `json:"id"`
	Name            string            `json:"name"`
	MachineID       string            `json:"machine_id"`
	MachineName     string            `json:"machine_name,omitempty"`
	ToolType        string            `json:"tool_type,omitempty"`
	Material        string            `json:"material,omitempty"`
	Diameter        *float64          `json:"diameter_mm"`
	Length          *float64          `json:"length_mm"`
	LifeRemaining   *float64          `json:"life_remaining_pct"`
	Cost            float64           `json:"cost"`
	ReplacementCost float64           `json:"replacement_cost"`
	Params          entity.ToolParams `json:"params,omitempty"`
}

type toolTypeView struct {
	ID         string             `json:"id"`
	Name       string             `json:"name"`
	Parameters entity.ParamSchema `json:"parameters"`
}

type materialView struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	StockShape string            `json:"stock_shape"`
	Dimensions entity.Dimensions `json:"dimensions_mm"`
	UnitCost   float64           `json:"unit_cost"`
}

func viewMachine(m entity.Machine) machineView {
	return machineView{
		ID:            m.ID,
		Name:          m.Name,
		Type:          m.Type,
		Axes:          m.AxisCount,
		SpindleSpeed:  m.SpindleSpeed,
		WorkEnvelope:  envelopeView{X: m.EnvelopeX, Y: m.EnvelopeY, Z: m.EnvelopeZ},
		HourlyRate:    m.HourlyRate,
		SetupCost:     m.SetupCost,
		OperatingCost: m.OperatingCost,
	}
}

func viewTool(t entity.Tool) toolView {
	v := toolView{
		ID:              t.ID,
		Name:            t.Name,
		MachineID:       t.MachineID,
		Material:        t.Material,
		Diameter:        t.Diameter,
		Length:          t.Length,
		LifeRemaining:   t.LifeRemaining,
		Cost:            t.Cost,
		ReplacementCost: t.ReplacementCost,
	}
	if len(t.Params) > 0 {
		v.Params = t.Params
	}
	if t.Machine != nil {
		v.MachineName = t.Machine.Name
	}
	if t.ToolType != nil {
		v.ToolType = t.ToolType.Name
	}
	return v
}

func toolViews(tools []entity.Tool) []toolView {
	out := make([]toolView, 0, len(tools))
	for _, t := range tools {
		out = append(out, viewTool(t))
	}
	return out
}

// ComposePrompt renders the user prompt for one generation request. The output
// is deterministic for a given inventory and part.
func ComposePrompt(part PartContext, inv *Inventory) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Create a machining itinerary for part %q (id %s).\n\n", part.Name, part.ID)

	b.WriteString("MACHINE TYPES (use these exact names for required_machine_type):\n")
	writeList(&b, MachineTypes)
	b.WriteString("\nTOOL CATEGORIES (use these exact names for required_tool_type):\n")
	writeList(&b, ToolCategories)

	machines := make(map[string][]machineView, len(inv.MachinesByType))
	for machineType, ms := range inv.MachinesByType {
		views := make([]machineView, 0, len(ms))
		for _, m := range ms {
			views = append(views, viewMachine(m))
		}
		machines[machineType] = views
	}
	writeBlock(&b, "MACHINES BY TYPE", machines)

	byID := make(map[string][]toolView, len(inv.ToolsByMachineID))
	for id, tools := range inv.ToolsByMachineID {
		byID[id] = toolViews(tools)
	}
	writeBlock(&b, "TOOLING BY MACHINE ID (the only tools that exist; a tool may only be used on the machine it is listed under)", byID)

	byType := make(map[string][]toolView, len(inv.ToolsByMachineType))
	for machineType, tools := range inv.ToolsByMachineType {
		byType[machineType] = toolViews(tools)
	}
	writeBlock(&b, "TOOLING BY MACHINE TYPE (summary view, do not use for assignment)", byType)

	toolTypes := make(map[string][]toolTypeView, len(inv.ToolTypesByMachineType))
	for machineType, tts := range inv.ToolTypesByMachineType {
		views := make([]toolTypeView, 0, len(tts))
		for _, tt := range tts {
			views = append(views, toolTypeView{ID: tt.ID, Name: tt.Name, Parameters: tt.ParamSchema})
		}
		toolTypes[machineType] = views
	}
	writeBlock(&b, "TOOL TYPES BY MACHINE TYPE (reference catalog only, NOT inventory)", toolTypes)

	materials := make([]materialView, 0, len(inv.Materials))
	for _, m := range inv.Materials {
		materials = append(materials, materialView{ID: m.ID, Name: m.Name, StockShape: m.StockShape, Dimensions: m.Dimensions, UnitCost: m.UnitCost})
	}
	writeBlock(&b, "MATERIALS IN STOCK", materials)

	if part.SVG != "" {
		b.WriteString("PART GEOMETRY (2D vector preview, SVG):\n```svg\n")
		b.WriteString(strings.TrimSpace(part.SVG))
		b.WriteString("\n```\n\n")
	} else {
		fmt.Fprintf(&b, "PART FILE: %s\nNo vector preview is available; infer the features from the file reference and part name.\n\n", part.FileReference)
	}

	b.WriteString(selectionProtocol)
	b.WriteString("\n")
	b.WriteString(outputContract)
	return b.String()
}

func writeList(b *strings.Builder, items []string) {
	for _, item := range items {
		b.WriteString("- ")
		b.WriteString(item)
		b.WriteString("\n")
	}
}

// writeBlock serializes v as indented JSON. encoding/json sorts map keys, which
// keeps the prompt deterministic.
func writeBlock(b *strings.Builder, title string, v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		data = []byte("{}")
	}
	fmt.Fprintf(b, "\n%s:\n```json\n%s\n```\n\n", title, data)
}

const selectionProtocol = `SELECTION PROTOCOL:
1. Tool availability: a tool may be attributed to a step only if it appears in TOOLING BY MACHINE ID under the exact machine_id chosen for that step. TOOL TYPES BY MACHINE TYPE describes what parameters a kind of tool has; it does not mean such a tool exists.
2. Parameter check: for each operation determine the required tool parameters (diameter, length, material compatibility, thread pitch, and so on) and compare them with the candidate tool's actual values.
3. Exactly one outcome per step:
   a. Suitable tool found: set machine_id, machine_name, tooling_id, tool_name; unservable=false; parameter_issue=false.
   b. The right kind of tool exists on the chosen machine but a parameter is inadequate: set machine and tool fields; parameter_issue=true; fill inadequate_parameter (what is wrong) and required_parameter (what is needed).
   c. No qualifying tool: tooling_id=null and tool_name=null; unservable=true; required_tool_type set to one of the TOOL CATEGORIES; recommendation describes what to buy.
4. Machine selection: either choose a concrete machine from MACHINES BY TYPE, or set machine_id=null and machine_name=null with unservable=true and required_machine_type set to one of the MACHINE TYPES.
5. Planning: start a new step whenever the workholding or fixturing orientation changes, and group operations that share a machine and tool to minimise changeovers. Describe fixturing in fixture_requirements and setup_description.
`

const outputContract = `OUTPUT FORMAT:
Return a single JSON object and nothing else:
{
  "steps": [
    {
      "description": "string",
      "machine_id": "string or null",
      "machine_name": "string or null",
      "tooling_id": "string or null",
      "tool_name": "string or null",
      "time": number (minutes),
      "cost": number,
      "unservable": boolean,
      "parameter_issue": boolean,
      "inadequate_parameter": "string or null",
      "required_parameter": "string or null",
      "required_machine_type": "string or null",
      "required_tool_type": "string or null",
      "recommendation": "string or null",
      "fixture_requirements": "string or null",
      "setup_description": "string or null"
    }
  ],
  "total_cost": number
}
machine_id and machine_name are both set or both null. tooling_id and tool_name are both set or both null. Include every key in every step.
`
