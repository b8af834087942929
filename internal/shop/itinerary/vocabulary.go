package itinerary

// MachineTypes is the controlled vocabulary for Machine.Type.
var MachineTypes = []string{
	"CNC Milling Center (3-axis)",
	"CNC Milling Center (4-axis)",
	"CNC Milling Center (5-axis)",
	"Vertical Machining Center",
	"Horizontal Machining Center",
	"CNC Lathe",
	"CNC Turning Center",
	"CNC Mill-Turn Center",
	"Swiss-Type Lathe",
	"Manual Lathe",
	"Manual Milling Machine",
	"Drill Press",
	"Radial Arm Drill",
	"Tapping Machine",
	"Boring Mill",
	"Jig Borer",
	"Surface Grinder",
	"Cylindrical Grinder",
	"Centerless Grinder",
	"Tool and Cutter Grinder",
	"Wire EDM",
	"Sinker EDM",
	"Hole Drilling EDM",
	"Laser Cutter",
	"Plasma Cutter",
	"Waterjet Cutter",
	"Band Saw",
	"Cold Saw",
	"Press Brake",
	"Punch Press",
	"Shear",
	"Broaching Machine",
	"Gear Hobbing Machine",
	"Gear Shaper",
	"Honing Machine",
	"Lapping Machine",
	"Shaper",
	"Slotting Machine",
	"Deburring Machine",
	"Coordinate Measuring Machine",
}

// ToolCategories are the canonical tool names the generator must use when
// naming a required tool type.
var ToolCategories = []string{
	"End Mill",
	"Ball End Mill",
	"Bull Nose End Mill",
	"Face Mill",
	"Chamfer Mill",
	"Slot Drill",
	"Fly Cutter",
	"Twist Drill",
	"Center Drill",
	"Spot Drill",
	"Reamer",
	"Tap",
	"Thread Mill",
	"Boring Bar",
	"Turning Insert",
	"Parting Tool",
	"Grooving Tool",
	"Threading Insert",
	"Knurling Tool",
	"Countersink",
	"Counterbore",
	"Grinding Wheel",
	"EDM Wire",
	"EDM Electrode",
	"Saw Blade",
	"Punch and Die",
	"Broach",
	"Hob",
}

var machineTypeSet = func() map[string]struct{} {
	set := make(map[string]struct{}, len(MachineTypes))
	for _, t := range MachineTypes {
		set[t] = struct{}{}
	}
	return set
}()

// IsMachineType reports whether t is in the controlled vocabulary.
func IsMachineType(t string) bool {
	_, ok := machineTypeSet[t]
	return ok
}
