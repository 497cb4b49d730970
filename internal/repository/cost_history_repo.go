package repository

import (
	"context"

	"candycost/internal/dto"
	"candycost/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CostHistoryRepository is append-only.
type CostHistoryRepository interface {
	Append(ctx context.Context, entries []model.CostHistory) error
	ListByProduct(ctx context.Context, productID uuid.UUID, filter dto.HistoryFilter) ([]model.CostHistory, int64, error)
}

type costHistoryRepo struct{ db *gorm.DB }

func NewCostHistoryRepository(db *gorm.DB) CostHistoryRepository { return &costHistoryRepo{db: db} }

func (r *costHistoryRepo) Append(ctx context.Context, entries []model.CostHistory) error {
	if len(entries) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).CreateInBatches(entries, 100).Error
}

func (r *costHistoryRepo) ListByProduct(ctx context.Context, productID uuid.UUID, filter dto.HistoryFilter) ([]model.CostHistory, int64, error) {
	var (
		out   []model.CostHistory
		total int64
	)
	q := r.db.WithContext(ctx).Model(&model.CostHistory{}).Where("product_id = ?", productID)
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := q.Order("created_at DESC").
		Offset((filter.Page - 1) * filter.Limit).Limit(filter.Limit).
		Find(&out).Error
	return out, total, err
}
