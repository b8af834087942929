package repository

import (
	"context"
	"time"

	"github.com/bitfantasy/mechai/internal/shop/entity"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ItineraryRepository 行程仓库。历史行程只追加，不修改
type ItineraryRepository struct {
	db *gorm.DB
}

func NewItineraryRepository(db *gorm.DB) *ItineraryRepository {
	return &ItineraryRepository{db: db}
}

// Store 保存一份已规范化的行程，生成 ID 与创建时间
func (r *ItineraryRepository) Store(ctx context.Context, ownerID, partID string, steps []entity.ItineraryStep, totalCost float64) (*entity.Itinerary, error) {
	if steps == nil {
		steps = []entity.ItineraryStep{}
	}
	itinerary := &entity.Itinerary{
		ID:        uuid.New().String()[:32],
		OwnerID:   ownerID,
		PartID:    partID,
		Steps:     entity.StepsPayload{Steps: steps, TotalCost: totalCost},
		TotalCost: totalCost,
		CreatedAt: time.Now(),
	}
	if err := r.db.WithContext(ctx).Create(itinerary).Error; err != nil {
		return nil, err
	}
	return itinerary, nil
}

// FetchLatest 获取零件最新的行程
func (r *ItineraryRepository) FetchLatest(ctx context.Context, ownerID, partID string) (*entity.Itinerary, error) {
	var itinerary entity.Itinerary
	err := r.db.WithContext(ctx).
		Where("owner_id = ? AND part_id = ?", ownerID, partID).
		Order("created_at DESC").
		First(&itinerary).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &itinerary, nil
}

// ListByPart 零件行程历史（最新在前）
func (r *ItineraryRepository) ListByPart(ctx context.Context, ownerID, partID string) ([]entity.Itinerary, error) {
	var itineraries []entity.Itinerary
	err := r.db.WithContext(ctx).
		Where("owner_id = ? AND part_id = ?", ownerID, partID).
		Order("created_at DESC").
		Find(&itineraries).Error
	return itineraries, err
}

func (r *ItineraryRepository) FindByID(ctx context.Context, ownerID, id string) (*entity.Itinerary, error) {
	var itinerary entity.Itinerary
	err := r.db.WithContext(ctx).
		Where("owner_id = ? AND id = ?", ownerID, id).
		First(&itinerary).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &itinerary, nil
}
