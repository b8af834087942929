package entity

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// 毛坯形状
const (
	StockBar   = "bar"
	StockSheet = "sheet"
	StockBlock = "block"
)

// stockDimensionKeys 每种毛坯形状必须填写的尺寸
var stockDimensionKeys = map[string][]string{
	StockBar:   {"length", "diameter"},
	StockSheet: {"length", "width", "thickness"},
	StockBlock: {"length", "width", "height"},
}

// DimensionKeys returns the dimension keys a stock shape populates, or nil for
// an unknown shape.
func DimensionKeys(shape string) []string {
	return stockDimensionKeys[shape]
}

// Dimensions 尺寸 (mm)
type Dimensions map[string]float64

func (d Dimensions) Value() (driver.Value, error) {
	if d == nil {
		return "{}", nil
	}
	b, err := json.Marshal(d)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (d *Dimensions) Scan(value interface{}) error {
	raw, err := scanBytes(value)
	if err != nil {
		return fmt.Errorf("scan dimensions: %w", err)
	}
	if len(raw) == 0 {
		*d = Dimensions{}
		return nil
	}
	return json.Unmarshal(raw, d)
}

// Material 原材料
type Material struct {
	ID         string     `json:"id" gorm:"primaryKey;size:32"`
	OwnerID    string     `json:"-" gorm:"size:32;not null;index"`
	Name       string     `json:"name" gorm:"size:128;not null"`
	StockShape string     `json:"stock_shape" gorm:"size:16;not null"` // bar / sheet / block
	Dimensions Dimensions `json:"dimensions" gorm:"type:text"`
	UnitCost   float64    `json:"unit_cost"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

func (Material) TableName() string {
	return "materials"
}
