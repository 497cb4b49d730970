package repository

import (
	"context"

	"candycost/internal/dto"
	"candycost/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProductRepository defines the data access contract for products and their
// bill-of-materials lines. Reads always return lines ordered by position.
type ProductRepository interface {
	Create(ctx context.Context, p *model.Product) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Product, error)
	List(ctx context.Context, filter dto.ListFilter) ([]model.Product, int64, error)
	Search(ctx context.Context, name string) ([]model.Product, error)
	Categories(ctx context.Context) ([]string, error)
	All(ctx context.Context) ([]model.Product, error)
	// Update writes the product columns; lines are untouched.
	Update(ctx context.Context, p *model.Product) error
	ReplaceLines(ctx context.Context, productID uuid.UUID, lines []model.ProductLine) error
	UpdateCost(ctx context.Context, id uuid.UUID, cost, ratio decimal.Decimal) error
	Delete(ctx context.Context, id uuid.UUID) error

	// Reverse BOM lookups keyed by the referenced component/product id.
	FindReferencing(ctx context.Context, refID uuid.UUID) ([]model.Product, error)
	DeleteLinesReferencing(ctx context.Context, refID uuid.UUID) error
	RenameLinesReferencing(ctx context.Context, refID uuid.UUID, name string) error
}

type productRepo struct{ db *gorm.DB }

func NewProductRepository(db *gorm.DB) ProductRepository { return &productRepo{db: db} }

func withLines(db *gorm.DB) *gorm.DB {
	return db.Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") })
}

func (r *productRepo) Create(ctx context.Context, p *model.Product) error {
	return translate(r.db.WithContext(ctx).Create(p).Error)
}

func (r *productRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	var p model.Product
	if err := withLines(r.db.WithContext(ctx)).First(&p, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (r *productRepo) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Product, error) {
	var out []model.Product
	if len(ids) == 0 {
		return out, nil
	}
	err := withLines(r.db.WithContext(ctx)).Where("id IN ?", ids).Find(&out).Error
	return out, translate(err)
}

func (r *productRepo) List(ctx context.Context, filter dto.ListFilter) ([]model.Product, int64, error) {
	var (
		out   []model.Product
		total int64
	)
	q := r.db.WithContext(ctx).Model(&model.Product{})
	if filter.Category != "" {
		q = q.Where("category = ?", filter.Category)
	}
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := withLines(q).Order("name ASC").
		Offset(filter.Offset()).Limit(filter.Limit).
		Find(&out).Error
	return out, total, err
}

func (r *productRepo) Search(ctx context.Context, name string) ([]model.Product, error) {
	var out []model.Product
	err := withLines(r.db.WithContext(ctx)).
		Where(`LOWER(name) LIKE ? ESCAPE '\'`, likePattern(name)).
		Order("name ASC").Limit(searchLimit).
		Find(&out).Error
	return out, err
}

func (r *productRepo) Categories(ctx context.Context) ([]string, error) {
	var out []string
	err := r.db.WithContext(ctx).Model(&model.Product{}).
		Distinct().Order("category").Pluck("category", &out).Error
	return out, err
}

func (r *productRepo) All(ctx context.Context) ([]model.Product, error) {
	var out []model.Product
	err := withLines(r.db.WithContext(ctx)).Order("id").Find(&out).Error
	return out, err
}

func (r *productRepo) Update(ctx context.Context, p *model.Product) error {
	return translate(r.db.WithContext(ctx).Omit(clause.Associations).Save(p).Error)
}

func (r *productRepo) ReplaceLines(ctx context.Context, productID uuid.UUID, lines []model.ProductLine) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("product_id = ?", productID).Delete(&model.ProductLine{}).Error; err != nil {
		return err
	}
	if len(lines) == 0 {
		return nil
	}
	for i := range lines {
		lines[i].ProductID = productID
	}
	return db.Create(&lines).Error
}

func (r *productRepo) UpdateCost(ctx context.Context, id uuid.UUID, cost, ratio decimal.Decimal) error {
	return r.db.WithContext(ctx).Model(&model.Product{}).Where("id = ?", id).
		Updates(map[string]any{"production_cost": cost, "production_cost_ratio": ratio}).Error
}

func (r *productRepo) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Select("Lines").Delete(&model.Product{ID: id})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *productRepo) FindReferencing(ctx context.Context, refID uuid.UUID) ([]model.Product, error) {
	db := r.db.WithContext(ctx)
	var out []model.Product
	err := withLines(db).
		Where("id IN (?)", db.Model(&model.ProductLine{}).Select("product_id").Where("component_id = ?", refID)).
		Order("name ASC").
		Find(&out).Error
	return out, err
}

func (r *productRepo) DeleteLinesReferencing(ctx context.Context, refID uuid.UUID) error {
	return r.db.WithContext(ctx).Where("component_id = ?", refID).Delete(&model.ProductLine{}).Error
}

func (r *productRepo) RenameLinesReferencing(ctx context.Context, refID uuid.UUID, name string) error {
	return r.db.WithContext(ctx).Model(&model.ProductLine{}).
		Where("component_id = ?", refID).Update("component_name", name).Error
}
