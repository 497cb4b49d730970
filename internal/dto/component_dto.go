package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// ─── Request DTOs ────────────────────────────────────────────────────────────

type CreateComponentRequest struct {
	Name            string          `json:"name"            validate:"required,min=1,max=120"`
	Manufacturer    string          `json:"manufacturer"    validate:"required,min=1,max=120"`
	Price           decimal.Decimal `json:"price"           validate:"min=0,decimal=12:2"`
	PackageQuantity decimal.Decimal `json:"packageQuantity" validate:"gt=0,decimal=12:3"`
	UnitOfMeasure   string          `json:"unitOfMeasure"   validate:"required,base_uom"`
	Category        string          `json:"category"        validate:"required,min=1,max=80"`
}

// UpdateComponentRequest is a partial update: nil fields are left unchanged.
type UpdateComponentRequest struct {
	Name            *string          `json:"name"            validate:"omitempty,min=1,max=120"`
	Manufacturer    *string          `json:"manufacturer"    validate:"omitempty,min=1,max=120"`
	Price           *decimal.Decimal `json:"price"           validate:"omitempty,min=0,decimal=12:2"`
	PackageQuantity *decimal.Decimal `json:"packageQuantity" validate:"omitempty,gt=0,decimal=12:3"`
	UnitOfMeasure   *string          `json:"unitOfMeasure"   validate:"omitempty,base_uom"`
	Category        *string          `json:"category"        validate:"omitempty,min=1,max=80"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type ComponentResponse struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	Manufacturer    string          `json:"manufacturer"`
	Price           decimal.Decimal `json:"price"`
	PackageQuantity decimal.Decimal `json:"packageQuantity"`
	UnitOfMeasure   string          `json:"unitOfMeasure"`
	Category        string          `json:"category"`
	UnitCost        decimal.Decimal `json:"unitCost"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

type ComponentListResponse struct {
	Components []ComponentResponse `json:"components"`
	Pagination Pagination          `json:"pagination"`
}
