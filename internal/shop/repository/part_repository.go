package repository

import (
	"context"

	"github.com/bitfantasy/mechai/internal/shop/entity"
	"gorm.io/gorm"
)

// PartRepository 零件仓库
type PartRepository struct {
	db *gorm.DB
}

func NewPartRepository(db *gorm.DB) *PartRepository {
	return &PartRepository{db: db}
}

// List 按上传时间倒序
func (r *PartRepository) List(ctx context.Context, ownerID string) ([]entity.Part, error) {
	var parts []entity.Part
	err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("uploaded_at DESC").
		Find(&parts).Error
	return parts, err
}

func (r *PartRepository) FindByID(ctx context.Context, ownerID, id string) (*entity.Part, error) {
	var part entity.Part
	err := r.db.WithContext(ctx).
		Where("owner_id = ? AND id = ?", ownerID, id).
		First(&part).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &part, nil
}

func (r *PartRepository) Create(ctx context.Context, part *entity.Part) error {
	return r.db.WithContext(ctx).Create(part).Error
}
