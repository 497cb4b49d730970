package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// ─── Request DTOs ────────────────────────────────────────────────────────────

// LineRequest is one bill-of-materials line. ComponentName is accepted for
// compatibility but always refreshed from the referenced item.
type LineRequest struct {
	ComponentID   string          `json:"componentId"   validate:"required,uuid"`
	ComponentName string          `json:"componentName"`
	Quantity      decimal.Decimal `json:"quantity"      validate:"gt=0,decimal=12:3"`
	UnitOfMeasure string          `json:"unitOfMeasure" validate:"required,uom"`
}

type CreateProductRequest struct {
	Name          string          `json:"name"          validate:"required,min=1,max=120"`
	Description   string          `json:"description"   validate:"max=2000"`
	Category      string          `json:"category"      validate:"required,min=1,max=80"`
	Yield         decimal.Decimal `json:"yield"         validate:"gt=0,decimal=12:3"`
	UnitOfMeasure string          `json:"unitOfMeasure" validate:"required,base_uom"`
	SalePrice     decimal.Decimal `json:"salePrice"     validate:"min=0,decimal=12:2"`
	IsComponent   bool            `json:"isComponent"`
	Components    []LineRequest   `json:"components"    validate:"dive"`
	// Ingredients is the older name for Components.
	Ingredients []LineRequest `json:"ingredients" validate:"dive"`
}

// Lines returns the BOM, preferring components over the legacy key.
func (r CreateProductRequest) Lines() []LineRequest {
	if r.Components != nil {
		return r.Components
	}
	return r.Ingredients
}

// UpdateProductRequest is a partial update. A non-nil Components replaces
// the whole bill of materials.
type UpdateProductRequest struct {
	Name          *string          `json:"name"          validate:"omitempty,min=1,max=120"`
	Description   *string          `json:"description"   validate:"omitempty,max=2000"`
	Category      *string          `json:"category"      validate:"omitempty,min=1,max=80"`
	Yield         *decimal.Decimal `json:"yield"         validate:"omitempty,gt=0,decimal=12:3"`
	UnitOfMeasure *string          `json:"unitOfMeasure" validate:"omitempty,base_uom"`
	SalePrice     *decimal.Decimal `json:"salePrice"     validate:"omitempty,min=0,decimal=12:2"`
	IsComponent   *bool            `json:"isComponent"`
	Components    *[]LineRequest   `json:"components"    validate:"omitempty,dive"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type LineResponse struct {
	ComponentID   string          `json:"componentId"`
	ComponentName string          `json:"componentName"`
	Quantity      decimal.Decimal `json:"quantity"`
	UnitOfMeasure string          `json:"unitOfMeasure"`
}

type ProductResponse struct {
	ID                  string          `json:"id"`
	Name                string          `json:"name"`
	Description         string          `json:"description"`
	Category            string          `json:"category"`
	Yield               decimal.Decimal `json:"yield"`
	UnitOfMeasure       string          `json:"unitOfMeasure"`
	SalePrice           decimal.Decimal `json:"salePrice"`
	IsComponent         bool            `json:"isComponent"`
	Components          []LineResponse  `json:"components"`
	ProductionCost      decimal.Decimal `json:"productionCost"`
	ProductionCostRatio decimal.Decimal `json:"productionCostRatio"`
	CreatedAt           time.Time       `json:"createdAt"`
	UpdatedAt           time.Time       `json:"updatedAt"`
}

type ProductListResponse struct {
	Products   []ProductResponse `json:"products"`
	Pagination Pagination        `json:"pagination"`
}

// CostLineResponse explains how one BOM line was priced.
type CostLineResponse struct {
	ComponentID    string          `json:"componentId"`
	ComponentName  string          `json:"componentName"`
	Kind           string          `json:"kind"` // component | product
	Quantity       decimal.Decimal `json:"quantity"`
	UnitOfMeasure  string          `json:"unitOfMeasure"`
	NativeQuantity decimal.Decimal `json:"nativeQuantity"`
	NativeUnit     string          `json:"nativeUnit"`
	UnitCost       decimal.Decimal `json:"unitCost"`
	Cost           decimal.Decimal `json:"cost"`
}

type CostBreakdownResponse struct {
	ProductID           string             `json:"productId"`
	ProductName         string             `json:"productName"`
	Yield               decimal.Decimal    `json:"yield"`
	UnitOfMeasure       string             `json:"unitOfMeasure"`
	ProductionCost      decimal.Decimal    `json:"productionCost"`
	ProductionCostRatio decimal.Decimal    `json:"productionCostRatio"`
	SalePrice           decimal.Decimal    `json:"salePrice"`
	Lines               []CostLineResponse `json:"lines"`
}

type RecalculateResponse struct {
	Status string `json:"status"`
}
