package repository

import (
	"context"

	"github.com/bitfantasy/mechai/internal/shop/entity"
	"gorm.io/gorm"
)

// ToolRepository 刀具仓库
type ToolRepository struct {
	db *gorm.DB
}

func NewToolRepository(db *gorm.DB) *ToolRepository {
	return &ToolRepository{db: db}
}

// ListWithMachine 返回刀具并预加载所属机床（名称/类型），machineID 为空时返回全部
func (r *ToolRepository) ListWithMachine(ctx context.Context, ownerID, machineID string) ([]entity.Tool, error) {
	var tools []entity.Tool
	query := r.db.WithContext(ctx).
		Preload("Machine").
		Preload("ToolType").
		Where("owner_id = ?", ownerID)
	if machineID != "" {
		query = query.Where("machine_id = ?", machineID)
	}
	err := query.Order("machine_id ASC, name ASC").Find(&tools).Error
	return tools, err
}

func (r *ToolRepository) FindByID(ctx context.Context, ownerID, id string) (*entity.Tool, error) {
	var tool entity.Tool
	err := r.db.WithContext(ctx).
		Preload("Machine").
		Where("owner_id = ? AND id = ?", ownerID, id).
		First(&tool).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &tool, nil
}

func (r *ToolRepository) Create(ctx context.Context, tool *entity.Tool) error {
	return r.db.WithContext(ctx).Omit("Machine", "ToolType").Create(tool).Error
}

func (r *ToolRepository) Delete(ctx context.Context, ownerID, id string) error {
	res := r.db.WithContext(ctx).Where("owner_id = ? AND id = ?", ownerID, id).Delete(&entity.Tool{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ToolTypeRepository 刀具类型仓库
type ToolTypeRepository struct {
	db *gorm.DB
}

func NewToolTypeRepository(db *gorm.DB) *ToolTypeRepository {
	return &ToolTypeRepository{db: db}
}

func (r *ToolTypeRepository) List(ctx context.Context, ownerID, machineType string) ([]entity.ToolType, error) {
	var types []entity.ToolType
	query := r.db.WithContext(ctx).Where("owner_id = ?", ownerID)
	if machineType != "" {
		query = query.Where("machine_type = ?", machineType)
	}
	err := query.Order("machine_type ASC, name ASC").Find(&types).Error
	return types, err
}

func (r *ToolTypeRepository) FindByID(ctx context.Context, ownerID, id string) (*entity.ToolType, error) {
	var toolType entity.ToolType
	err := r.db.WithContext(ctx).
		Where("owner_id = ? AND id = ?", ownerID, id).
		First(&toolType).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &toolType, nil
}

func (r *ToolTypeRepository) Create(ctx context.Context, toolType *entity.ToolType) error {
	return r.db.WithContext(ctx).Create(toolType).Error
}
