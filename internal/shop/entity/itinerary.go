package entity

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// ItineraryStep 加工工序。所有字段都会序列化，空值输出 null
type ItineraryStep struct {
	Description         string  `json:"description"`
	MachineID           *string `json:"machine_id"`
	MachineName         *string `json:"machine_name"`
	ToolingID           *string `json:"tooling_id"`
	ToolName            *string `json:"tool_name"`
	Time                float64 `json:"time"` // minutes
	Cost                float64 `json:"cost"`
	Unservable          bool    `json:"unservable"`
	ParameterIssue      bool    `json:"parameter_issue"`
	InadequateParameter *string `json:"inadequate_parameter"`
	RequiredParameter   *string `json:"required_parameter"`
	RequiredMachineType *string `json:"required_machine_type"`
	RequiredToolType    *string `json:"required_tool_type"`
	Recommendation      *string `json:"recommendation"`
	FixtureRequirements *string `json:"fixture_requirements"`
	SetupDescription    *string `json:"setup_description"`
}

// HasMachine reports whether the step is assigned a concrete machine.
func (s *ItineraryStep) HasMachine() bool {
	return s.MachineID != nil && s.MachineName != nil
}

// HasTool reports whether the step is assigned a concrete tool.
func (s *ItineraryStep) HasTool() bool {
	return s.ToolingID != nil && s.ToolName != nil
}

// AssignMachine sets both halves of the machine reference.
func (s *ItineraryStep) AssignMachine(id, name string) {
	s.MachineID, s.MachineName = stringPtr(id), stringPtr(name)
}

// AssignTool sets both halves of the tool reference.
func (s *ItineraryStep) AssignTool(id, name string) {
	s.ToolingID, s.ToolName = stringPtr(id), stringPtr(name)
}

func (s *ItineraryStep) ClearMachine() {
	s.MachineID, s.MachineName = nil, nil
}

func (s *ItineraryStep) ClearTool() {
	s.ToolingID, s.ToolName = nil, nil
}

// StepsPayload 行程存储结构 {steps, total_cost}
type StepsPayload struct {
	Steps     []ItineraryStep `json:"steps"`
	TotalCost float64         `json:"total_cost"`
}

func (p StepsPayload) Value() (driver.Value, error) {
	if p.Steps == nil {
		p.Steps = []ItineraryStep{}
	}
	b, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (p *StepsPayload) Scan(value interface{}) error {
	raw, err := scanBytes(value)
	if err != nil {
		return fmt.Errorf("scan steps payload: %w", err)
	}
	decoded, err := DecodeStepsPayload(raw)
	if err != nil {
		return err
	}
	*p = decoded
	return nil
}

// DecodeStepsPayload decodes a stored steps payload. Some writers stored the
// payload as a JSON string holding the JSON document, and older rows hold a bare
// step array; both are accepted.
func DecodeStepsPayload(raw []byte) (StepsPayload, error) {
	payload := StepsPayload{Steps: []ItineraryStep{}}
	raw = bytes.TrimSpace(raw)
	// at most two layers of string encoding
	for i := 0; i < 2 && len(raw) > 0 && raw[0] == '"'; i++ {
		var inner string
		if err := json.Unmarshal(raw, &inner); err != nil {
			return payload, fmt.Errorf("decode steps payload: %w", err)
		}
		raw = bytes.TrimSpace([]byte(inner))
	}
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return payload, nil
	}

	if raw[0] == '[' {
		if err := json.Unmarshal(raw, &payload.Steps); err != nil {
			return payload, fmt.Errorf("decode steps payload: %w", err)
		}
		for _, s := range payload.Steps {
			payload.TotalCost += s.Cost
		}
	} else if err := json.Unmarshal(raw, &payload); err != nil {
		return payload, fmt.Errorf("decode steps payload: %w", err)
	}
	if payload.Steps == nil {
		payload.Steps = []ItineraryStep{}
	}
	return payload, nil
}

// Itinerary 零件加工行程
type Itinerary struct {
	ID        string       `json:"id" gorm:"primaryKey;size:32"`
	OwnerID   string       `json:"-" gorm:"size:32;not null;index"`
	PartID    string       `json:"part_id" gorm:"size:32;not null;index"`
	Steps     StepsPayload `json:"steps" gorm:"type:text;not null"`
	TotalCost float64      `json:"total_cost"`
	CreatedAt time.Time    `json:"created_at"`
}

func (Itinerary) TableName() string {
	return "itineraries"
}
