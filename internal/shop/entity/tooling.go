package entity

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// ParamKind 刀具参数值类型
type ParamKind string

const (
	ParamNumber ParamKind = "number"
	ParamText   ParamKind = "text"
)

// ParamField 刀具类型参数定义
type ParamField struct {
	Key   string    `json:"key"`
	Label string    `json:"label"`
	Kind  ParamKind `json:"kind"`
}

// ParamSchema ordered parameter definitions of a tool type.
type ParamSchema []ParamField

func (s ParamSchema) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	b, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (s *ParamSchema) Scan(value interface{}) error {
	raw, err := scanBytes(value)
	if err != nil {
		return fmt.Errorf("scan param schema: %w", err)
	}
	if len(raw) == 0 {
		*s = ParamSchema{}
		return nil
	}
	return json.Unmarshal(raw, s)
}

// Field looks up a declared parameter by key.
func (s ParamSchema) Field(key string) (ParamField, bool) {
	for _, f := range s {
		if f.Key == key {
			return f, true
		}
	}
	return ParamField{}, false
}

// ParamValue is either a number or a text value. It encodes as a bare JSON
// number or string.
type ParamValue struct {
	Kind   ParamKind
	Number float64
	Text   string
}

func NumberParam(v float64) ParamValue { return ParamValue{Kind: ParamNumber, Number: v} }

func TextParam(v string) ParamValue { return ParamValue{Kind: ParamText, Text: v} }

func (v ParamValue) String() string {
	if v.Kind == ParamNumber {
		return strconv.FormatFloat(v.Number, 'f', -1, 64)
	}
	return v.Text
}

func (v ParamValue) MarshalJSON() ([]byte, error) {
	if v.Kind == ParamNumber {
		return json.Marshal(v.Number)
	}
	return json.Marshal(v.Text)
}

func (v *ParamValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("empty parameter value")
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = TextParam(s)
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("parameter value must be a number or a string: %s", data)
	}
	*v = NumberParam(f)
	return nil
}

// ToolParams 刀具参数，结构由刀具类型的 ParamSchema 决定
type ToolParams map[string]ParamValue

func (p ToolParams) Value() (driver.Value, error) {
	if p == nil {
		return "{}", nil
	}
	b, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (p *ToolParams) Scan(value interface{}) error {
	raw, err := scanBytes(value)
	if err != nil {
		return fmt.Errorf("scan tool params: %w", err)
	}
	if len(raw) == 0 {
		*p = ToolParams{}
		return nil
	}
	return json.Unmarshal(raw, p)
}

// CheckSchema reports the first key that is not declared by the schema or whose
// value kind differs from the declaration.
func (p ToolParams) CheckSchema(schema ParamSchema) error {
	for key, val := range p {
		field, ok := schema.Field(key)
		if !ok {
			return fmt.Errorf("parameter %q is not declared by the tool type", key)
		}
		if field.Kind != val.Kind {
			return fmt.Errorf("parameter %q must be a %s", key, field.Kind)
		}
	}
	return nil
}

// ToolType 刀具类型（参考目录，不代表库存）
type ToolType struct {
	ID          string      `json:"id" gorm:"primaryKey;size:32"`
	OwnerID     string      `json:"-" gorm:"size:32;not null;index"`
	Name        string      `json:"name" gorm:"size:128;not null"`
	MachineType string      `json:"machine_type" gorm:"size:64;not null;index"`
	ParamSchema ParamSchema `json:"param_schema" gorm:"type:text"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

func (ToolType) TableName() string {
	return "tool_types"
}

// Tool 刀具，只属于一台机床
type Tool struct {
	ID              string     `json:"id" gorm:"primaryKey;size:32"`
	OwnerID         string     `json:"-" gorm:"size:32;not null;index"`
	MachineID       string     `json:"machine_id" gorm:"size:32;not null;index"`
	ToolTypeID      *string    `json:"tool_type_id" gorm:"size:32"`
	Name            string     `json:"name" gorm:"size:128;not null"`
	Material        string     `json:"material" gorm:"size:64"`
	Diameter        *float64   `json:"diameter"`       // mm
	Length          *float64   `json:"length"`         // mm
	LifeRemaining   *float64   `json:"life_remaining"` // %
	Cost            float64    `json:"cost"`
	ReplacementCost float64    `json:"replacement_cost"`
	Params          ToolParams `json:"params" gorm:"type:text"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`

	// Relations
	Machine  *Machine  `json:"machine,omitempty" gorm:"foreignKey:MachineID"`
	ToolType *ToolType `json:"tool_type,omitempty" gorm:"foreignKey:ToolTypeID"`
}

func (Tool) TableName() string {
	return "tools"
}
