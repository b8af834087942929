package repository

import (
	"errors"

	"gorm.io/gorm"
)

// 错误定义
var (
	ErrNotFound = errors.New("record not found")
)

// Repositories 仓库集合
type Repositories struct {
	Machine   *MachineRepository
	Tool      *ToolRepository
	ToolType  *ToolTypeRepository
	Material  *MaterialRepository
	Part      *PartRepository
	Itinerary *ItineraryRepository
}

// NewRepositories 创建仓库集合
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Machine:   NewMachineRepository(db),
		Tool:      NewToolRepository(db),
		ToolType:  NewToolTypeRepository(db),
		Material:  NewMaterialRepository(db),
		Part:      NewPartRepository(db),
		Itinerary: NewItineraryRepository(db),
	}
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
