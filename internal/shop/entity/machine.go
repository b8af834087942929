package entity

import "time"

// Machine 机床
type Machine struct {
	ID            string    `json:"id" gorm:"primaryKey;size:32"`
	OwnerID       string    `json:"-" gorm:"size:32;not null;index"`
	Name          string    `json:"name" gorm:"size:128;not null"`
	Type          string    `json:"type" gorm:"size:64;not null;index"`
	AxisCount     int       `json:"axis_count" gorm:"not null;default:3"`
	SpindleSpeed  float64   `json:"spindle_speed"` // rpm
	EnvelopeX     float64   `json:"envelope_x"`    // mm
	EnvelopeY     float64   `json:"envelope_y"`
	EnvelopeZ     float64   `json:"envelope_z"`
	HourlyRate    float64   `json:"hourly_rate"`
	SetupCost     float64   `json:"setup_cost"`
	OperatingCost float64   `json:"operating_cost"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (Machine) TableName() string {
	return "machines"
}
