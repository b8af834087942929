package repository

import (
	"context"

	"github.com/bitfantasy/mechai/internal/shop/entity"
	"gorm.io/gorm"
)

// MachineRepository 机床仓库
type MachineRepository struct {
	db *gorm.DB
}

func NewMachineRepository(db *gorm.DB) *MachineRepository {
	return &MachineRepository{db: db}
}

// List 按类型、名称排序；machineType 为空时返回全部
func (r *MachineRepository) List(ctx context.Context, ownerID, machineType string) ([]entity.Machine, error) {
	var machines []entity.Machine
	query := r.db.WithContext(ctx).Where("owner_id = ?", ownerID)
	if machineType != "" {
		query = query.Where("type = ?", machineType)
	}
	err := query.Order("type ASC, name ASC").Find(&machines).Error
	return machines, err
}

func (r *MachineRepository) FindByID(ctx context.Context, ownerID, id string) (*entity.Machine, error) {
	var machine entity.Machine
	err := r.db.WithContext(ctx).
		Where("owner_id = ? AND id = ?", ownerID, id).
		First(&machine).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &machine, nil
}

func (r *MachineRepository) Create(ctx context.Context, machine *entity.Machine) error {
	return r.db.WithContext(ctx).Create(machine).Error
}

// Delete 删除机床及其刀具
func (r *MachineRepository) Delete(ctx context.Context, ownerID, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("owner_id = ? AND machine_id = ?", ownerID, id).Delete(&entity.Tool{}).Error; err != nil {
			return err
		}
		res := tx.Where("owner_id = ? AND id = ?", ownerID, id).Delete(&entity.Machine{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}
