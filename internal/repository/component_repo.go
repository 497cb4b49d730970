package repository

import (
	"context"

	"candycost/internal/dto"
	"candycost/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ComponentRepository defines the data access contract for components.
type ComponentRepository interface {
	Create(ctx context.Context, c *model.Component) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Component, error)
	// FindByIdentity matches name and manufacturer case-insensitively.
	FindByIdentity(ctx context.Context, name, manufacturer string) (*model.Component, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Component, error)
	List(ctx context.Context, filter dto.ListFilter) ([]model.Component, int64, error)
	Search(ctx context.Context, name string) ([]model.Component, error)
	Categories(ctx context.Context) ([]string, error)
	All(ctx context.Context) ([]model.Component, error)
	Update(ctx context.Context, c *model.Component) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type componentRepo struct{ db *gorm.DB }

func NewComponentRepository(db *gorm.DB) ComponentRepository { return &componentRepo{db: db} }

func (r *componentRepo) Create(ctx context.Context, c *model.Component) error {
	return translate(r.db.WithContext(ctx).Create(c).Error)
}

func (r *componentRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Component, error) {
	var c model.Component
	if err := r.db.WithContext(ctx).First(&c, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

func (r *componentRepo) FindByIdentity(ctx context.Context, name, manufacturer string) (*model.Component, error) {
	var c model.Component
	err := r.db.WithContext(ctx).
		Where("LOWER(name) = LOWER(?) AND LOWER(manufacturer) = LOWER(?)", name, manufacturer).
		First(&c).Error
	if err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

func (r *componentRepo) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Component, error) {
	var out []model.Component
	if len(ids) == 0 {
		return out, nil
	}
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&out).Error
	return out, translate(err)
}

func (r *componentRepo) List(ctx context.Context, filter dto.ListFilter) ([]model.Component, int64, error) {
	var (
		out   []model.Component
		total int64
	)
	q := r.db.WithContext(ctx).Model(&model.Component{})
	if filter.Category != "" {
		q = q.Where("category = ?", filter.Category)
	}
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := q.Order("name ASC, manufacturer ASC").
		Offset(filter.Offset()).Limit(filter.Limit).
		Find(&out).Error
	return out, total, err
}

func (r *componentRepo) Search(ctx context.Context, name string) ([]model.Component, error) {
	var out []model.Component
	err := r.db.WithContext(ctx).
		Where(`LOWER(name) LIKE ? ESCAPE '\'`, likePattern(name)).
		Order("name ASC").Limit(searchLimit).
		Find(&out).Error
	return out, err
}

func (r *componentRepo) Categories(ctx context.Context) ([]string, error) {
	var out []string
	err := r.db.WithContext(ctx).Model(&model.Component{}).
		Distinct().Order("category").Pluck("category", &out).Error
	return out, err
}

func (r *componentRepo) All(ctx context.Context) ([]model.Component, error) {
	var out []model.Component
	err := r.db.WithContext(ctx).Order("id").Find(&out).Error
	return out, err
}

func (r *componentRepo) Update(ctx context.Context, c *model.Component) error {
	return translate(r.db.WithContext(ctx).Save(c).Error)
}

func (r *componentRepo) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&model.Component{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
