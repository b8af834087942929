package repository

import (
	"context"

	"github.com/bitfantasy/mechai/internal/shop/entity"
	"gorm.io/gorm"
)

// MaterialRepository 原材料仓库
type MaterialRepository struct {
	db *gorm.DB
}

func NewMaterialRepository(db *gorm.DB) *MaterialRepository {
	return &MaterialRepository{db: db}
}

func (r *MaterialRepository) List(ctx context.Context, ownerID string) ([]entity.Material, error) {
	var materials []entity.Material
	err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("name ASC").
		Find(&materials).Error
	return materials, err
}

func (r *MaterialRepository) Create(ctx context.Context, material *entity.Material) error {
	return r.db.WithContext(ctx).Create(material).Error
}
