package itinerary

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitfantasy/mechai/internal/shop/entity"
)

func float(v float64) *float64 { return &v }

func testInventory() *Inventory {
	mill := entity.Machine{ID: "M1", Name: "Haas VF-2", Type: "CNC Milling Center (3-axis)", AxisCount: 3}
	lathe := entity.Machine{ID: "L1", Name: "Okuma LB3000", Type: "CNC Lathe", AxisCount: 2}
	saw := entity.Machine{ID: "S1", Name: "Kasto saw", Type: "Band Saw"}

	tools := []entity.Tool{
		{ID: "T1", MachineID: "M1", Name: "Endmill", Diameter: float(6), Machine: &mill},
		{ID: "T2", MachineID: "L1", Name: "Turning insert", Machine: &lathe},
		{ID: "T3", MachineID: "M1", Name: "Spot drill", Diameter: float(10)},
	}
	toolTypes := []entity.ToolType{
		{ID: "TT1", Name: "End Mill", MachineType: "CNC Milling Center (3-axis)"},
		{ID: "TT2", Name: "Tap", MachineType: "CNC Milling Center (3-axis)"},
	}
	materials := []entity.Material{{ID: "MAT1", Name: "6061-T6", StockShape: entity.StockBlock}}

	return Aggregate([]entity.Machine{mill, lathe, saw}, tools, toolTypes, materials)
}

func TestAggregate(t *testing.T) {
	inv := testInventory()

	assert.Len(t, inv.MachinesByType, 3)
	assert.Equal(t, "Haas VF-2", inv.MachinesByType["CNC Milling Center (3-axis)"][0].Name)

	require.Len(t, inv.ToolsByMachineID["M1"], 2)
	assert.Equal(t, "T1", inv.ToolsByMachineID["M1"][0].ID)
	assert.Equal(t, "T3", inv.ToolsByMachineID["M1"][1].ID)
	assert.NotNil(t, inv.ToolsByMachineID["S1"])
	assert.Empty(t, inv.ToolsByMachineID["S1"])

	// T3 carries no preloaded machine and is grouped through the machine list
	assert.Len(t, inv.ToolsByMachineType["CNC Milling Center (3-axis)"], 2)
	assert.Len(t, inv.ToolsByMachineType["CNC Lathe"], 1)
	assert.Len(t, inv.ToolTypesByMachineType["CNC Milling Center (3-axis)"], 2)

	assert.True(t, inv.HasTool("M1", "T1"))
	assert.False(t, inv.HasTool("L1", "T1"))
	assert.Equal(t, 3, inv.MachineCount())
	assert.Equal(t, 3, inv.ToolCount())
}

func TestAggregateEmpty(t *testing.T) {
	inv := Aggregate(nil, nil, nil, nil)
	assert.Empty(t, inv.MachinesByType)
	assert.Empty(t, inv.ToolsByMachineID)
	assert.NotNil(t, inv.Materials)
	assert.Zero(t, inv.ToolCount())
}

func TestValidateToolAttribution(t *testing.T) {
	inv := testInventory()
	res, err := Normalize(`{"steps":[
		{"description":"Pocket","machine_id":"M1","machine_name":"mill","tooling_id":"T1","tool_name":"6mm endmill","cost":10},
		{"description":"Turn","machine_id":"M1","machine_name":"Haas VF-2","tooling_id":"T2","tool_name":"Turning insert","cost":5},
		{"description":"Grind","machine_id":"G9","machine_name":"Grinder","tooling_id":"W1","tool_name":"Wheel","cost":7},
		{"description":"Type only","machine_id":"M1","machine_name":"Haas VF-2","tooling_id":"TT2","tool_name":"Tap","cost":1}
	],"total_cost":3}`)
	require.NoError(t, err)

	steps, total := Validate(res.Steps, inv)
	require.Len(t, steps, 4)
	assert.Equal(t, 23.0, total)

	for _, s := range steps {
		assertTriState(t, s)
		if s.ToolingID != nil {
			assert.True(t, inv.HasTool(*s.MachineID, *s.ToolingID), s.Description)
		}
	}

	ok := steps[0]
	assert.Equal(t, "Haas VF-2", *ok.MachineName)
	assert.Equal(t, "Endmill", *ok.ToolName)
	assert.False(t, ok.Unservable)

	wrongMachine := steps[1]
	assert.Equal(t, "M1", *wrongMachine.MachineID)
	assert.Nil(t, wrongMachine.ToolingID)
	assert.True(t, wrongMachine.Unservable)
	assert.Equal(t, DefaultToolType, *wrongMachine.RequiredToolType)
	assert.Equal(t, DefaultRecommendation, *wrongMachine.Recommendation)

	unknown := steps[2]
	assert.Nil(t, unknown.MachineID)
	assert.Nil(t, unknown.ToolingID)
	assert.True(t, unknown.Unservable)
	assert.Equal(t, DefaultMachineType, *unknown.RequiredMachineType)

	// a tool type id is reference data, never inventory
	assert.Nil(t, steps[3].ToolingID)
	assert.True(t, steps[3].Unservable)
}

func TestValidateIdempotent(t *testing.T) {
	inv := testInventory()
	res, err := Normalize(`[
		{"description":"Pocket","machine_id":"M1","machine_name":"mill","tooling_id":"T1","tool_name":"x","cost":10},
		{"description":"Turn","machine_id":"M1","machine_name":"mill","tooling_id":"T2","tool_name":"y","parameter_issue":true,"cost":5}
	]`)
	require.NoError(t, err)

	once, total := Validate(res.Steps, inv)
	twice, total2 := Validate(once, inv)
	if diff := cmp.Diff(once, twice); diff != "" {
		t.Errorf("second validation changed steps (-once +twice):\n%s", diff)
	}
	assert.Equal(t, total, total2)
	assert.False(t, twice[1].ParameterIssue)
	assert.True(t, twice[1].Unservable)
	// parameter texts go with the dropped parameter issue
	assert.NotNil(t, res.Steps[1].InadequateParameter)
	assert.Nil(t, twice[1].InadequateParameter)
	assert.Nil(t, twice[1].RequiredParameter)
}

func TestEightMillimetreEndmillMissing(t *testing.T) {
	inv := testInventory()

	answers := map[string]string{
		"no tool":         `{"steps":[{"description":"Mill 8mm slot","machine_id":"M1","machine_name":"Haas VF-2","tooling_id":null,"tool_name":null,"unservable":true,"required_tool_type":"End Mill","cost":20}]}`,
		"parameter issue": `{"steps":[{"description":"Mill 8mm slot","machine_id":"M1","machine_name":"Haas VF-2","tooling_id":"T1","tool_name":"Endmill","parameter_issue":true,"inadequate_parameter":"diameter 6mm","required_parameter":"diameter 8mm","cost":20}]}`,
		"invented tool":   `{"steps":[{"description":"Mill 8mm slot","machine_id":"M1","machine_name":"Haas VF-2","tooling_id":"T8","tool_name":"8mm Endmill","cost":20}]}`,
	}

	for name, raw := range answers {
		t.Run(name, func(t *testing.T) {
			res, err := Normalize(raw)
			require.NoError(t, err)
			steps, _ := Validate(res.Steps, inv)
			require.Len(t, steps, 1)

			s := steps[0]
			assert.True(t, s.ToolingID == nil || s.ParameterIssue)
			assert.True(t, s.Unservable || s.ParameterIssue)
			assert.NotNil(t, s.Recommendation)
			assertTriState(t, s)
		})
	}
}
