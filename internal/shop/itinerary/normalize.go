package itinerary

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/bitfantasy/mechai/internal/shop/entity"
)

// Shape identifies which of the known response layouts a model answer used.
type Shape string

const (
	ShapeCanonical      Shape = "steps"
	ShapeMachiningSteps Shape = "machining_steps"
	ShapeBareArray      Shape = "array"
	// ShapeNone is an object without a usable step list. It normalizes to an
	// empty itinerary.
	ShapeNone Shape = "none"
)

// Default texts filled in for unservable steps and parameter issues.
const (
	DefaultMachineType    = "Unknown machine type"
	DefaultToolType       = "Unknown tool type"
	DefaultRecommendation = "Additional equipment needed"
	DefaultParameterText  = "Not specified"
)

// Result is a normalized model answer.
type Result struct {
	Steps     []entity.ItineraryStep `json:"steps"`
	TotalCost float64                `json:"total_cost"`
	Shape     Shape                  `json:"-"`
	Stage     string                 `json:"-"`
}

// Normalize parses raw model text and maps it onto the canonical step list.
// Any total the model reported is discarded and recomputed from the steps.
func Normalize(raw string) (*Result, error) {
	v, stage, err := ParseResponse(raw)
	if err != nil {
		return nil, err
	}
	res, err := NormalizeValue(v)
	if err != nil {
		return nil, err
	}
	res.Stage = stage
	return res, nil
}

// NormalizeValue maps an already decoded JSON tree onto the canonical step
// list. Only objects and arrays are accepted.
func NormalizeValue(v any) (*Result, error) {
	var (
		items []any
		shape Shape
	)
	switch t := v.(type) {
	case map[string]any:
		if steps, ok := t["steps"].([]any); ok {
			shape, items = ShapeCanonical, steps
		} else if steps, ok := t["machining_steps"].([]any); ok {
			shape, items = ShapeMachiningSteps, steps
		} else {
			shape = ShapeNone
		}
	case []any:
		shape = ShapeBareArray
		items = t
	default:
		return nil, Fail(ErrModelResponseUnparseable, fmt.Errorf("unexpected top-level JSON value %T", v))
	}

	steps := make([]entity.ItineraryStep, 0, len(items))
	for _, item := range items {
		fields, ok := item.(map[string]any)
		if !ok {
			continue
		}
		steps = append(steps, canonicalStep(fields))
	}
	return &Result{Steps: steps, TotalCost: SumCost(steps), Shape: shape}, nil
}

// SumCost is the itinerary total: the plain sum of the step costs in order.
func SumCost(steps []entity.ItineraryStep) float64 {
	total := 0.0
	for _, s := range steps {
		total += s.Cost
	}
	return total
}

func canonicalStep(f map[string]any) entity.ItineraryStep {
	step := entity.ItineraryStep{
		MachineID:           textOf(f["machine_id"]),
		MachineName:         textOf(firstOf(f, "machine_name", "machine")),
		ToolingID:           textOf(firstOf(f, "tooling_id", "tool_id")),
		ToolName:            textOf(firstOf(f, "tool_name", "tool")),
		Time:                numberOf(firstOf(f, "time", "estimated_time", "estimated_time_minutes")),
		Cost:                numberOf(firstOf(f, "cost", "estimated_cost")),
		Unservable:          flagOf(f, "unservable"),
		ParameterIssue:      flagOf(f, "parameter_issue"),
		InadequateParameter: textOf(f["inadequate_parameter"]),
		RequiredParameter:   textOf(f["required_parameter"]),
		RequiredMachineType: textOf(f["required_machine_type"]),
		RequiredToolType:    textOf(f["required_tool_type"]),
		Recommendation:      textOf(f["recommendation"]),
		FixtureRequirements: textOf(firstOf(f, "fixture_requirements", "fixturing")),
		SetupDescription:    textOf(firstOf(f, "setup_description", "setup")),
	}
	if desc := textOf(firstOf(f, "description", "operation", "feature")); desc != nil {
		step.Description = *desc
	}

	if step.MachineID == nil || step.MachineName == nil {
		step.ClearMachine()
	}
	if step.ToolingID == nil || step.ToolName == nil {
		step.ClearTool()
	}
	resolveStep(&step)
	return step
}

// resolveStep settles the unservable / parameter issue / assigned states of a
// step so that they never contradict each other, then fills the defaults.
func resolveStep(s *entity.ItineraryStep) {
	// a tool only exists on a machine
	if s.HasTool() && !s.HasMachine() {
		s.ClearTool()
		s.Unservable = true
	}
	if s.HasMachine() {
		s.RequiredMachineType = nil
	}
	if s.HasTool() && !s.ParameterIssue {
		s.RequiredToolType = nil
	}
	// machine and tool both assigned: nothing is missing
	if s.HasMachine() && s.HasTool() {
		s.Unservable = false
	}
	if s.ParameterIssue && !s.HasTool() {
		s.ParameterIssue = false
		s.Unservable = true
	}
	if !s.ParameterIssue {
		s.InadequateParameter = nil
		s.RequiredParameter = nil
	}
	if (!s.HasTool() && s.RequiredToolType != nil) || (!s.HasMachine() && s.RequiredMachineType != nil) {
		s.Unservable = true
	}

	if s.Unservable {
		if !s.HasMachine() && s.RequiredMachineType == nil {
			s.RequiredMachineType = strPtr(DefaultMachineType)
		}
		if !s.HasTool() && s.RequiredToolType == nil {
			s.RequiredToolType = strPtr(DefaultToolType)
		}
		if s.Recommendation == nil {
			s.Recommendation = strPtr(DefaultRecommendation)
		}
	}
	if s.ParameterIssue {
		if s.InadequateParameter == nil {
			s.InadequateParameter = strPtr(DefaultParameterText)
		}
		if s.RequiredParameter == nil {
			s.RequiredParameter = strPtr(DefaultParameterText)
		}
		if s.Recommendation == nil {
			s.Recommendation = strPtr(DefaultRecommendation)
		}
	}
}

// firstOf returns the first non-null value among keys.
func firstOf(f map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := f[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

// flagOf reads a boolean flag, falling back to a "status" field that names it.
func flagOf(f map[string]any, key string) bool {
	if b, ok := boolOf(f[key]); ok {
		return b
	}
	if status := textOf(f["status"]); status != nil {
		return strings.EqualFold(*status, key)
	}
	return false
}

func boolOf(v any) (bool, bool) {
	switch t := v.(type) {
	case bool:
		return t, true
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true":
			return true, true
		case "false":
			return false, true
		}
	}
	return false, false
}

// numberOf reads a non-negative finite number from a JSON number or a numeric
// string. Anything else is 0.
func numberOf(v any) float64 {
	var n float64
	switch t := v.(type) {
	case float64:
		n = t
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return 0
		}
		n = f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0
		}
		n = f
	default:
		return 0
	}
	if math.IsNaN(n) || math.IsInf(n, 0) || n < 0 {
		return 0
	}
	return n
}

// textOf reads an optional text value. Blank strings are absent; numbers are
// formatted so numeric ids survive. Text is put in NFC form so that names
// compare equal however the model composed them.
func textOf(v any) *string {
	switch t := v.(type) {
	case string:
		s := strings.TrimSpace(norm.NFC.String(t))
		if s == "" {
			return nil
		}
		return &s
	case float64:
		return strPtr(strconv.FormatFloat(t, 'f', -1, 64))
	case json.Number:
		return strPtr(t.String())
	}
	return nil
}

func strPtr(s string) *string {
	return &s
}
