package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is a manufactured item with a recipe (bill of materials) and a yield.
// ProductionCost and ProductionCostRatio are derived; they are rewritten by the
// cost engine inside the same transaction as any write that can change them.
type Product struct {
	ID                  uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Name                string          `gorm:"index;not null"`
	Description         string          `gorm:"type:text"`
	Category            string          `gorm:"index;not null"`
	Yield               decimal.Decimal `gorm:"type:decimal(12,3);not null"`
	UnitOfMeasure       string          `gorm:"type:varchar(8);not null"`
	SalePrice           decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	IsComponent         bool            `gorm:"not null;default:false"`
	ProductionCost      decimal.Decimal `gorm:"type:decimal(14,4);not null;default:0"`
	ProductionCostRatio decimal.Decimal `gorm:"type:decimal(14,6);not null;default:0"`
	CreatedAt           time.Time
	UpdatedAt           time.Time

	Lines []ProductLine `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
}

// ProductLine is one bill-of-materials entry. ComponentID points either at a
// Component or at a Product flagged IsComponent; ids are UUIDs so the two
// spaces never collide.
type ProductLine struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ProductID     uuid.UUID       `gorm:"type:uuid;not null;index"`
	Position      int             `gorm:"not null"`
	ComponentID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	ComponentName string          `gorm:"not null"`
	Quantity      decimal.Decimal `gorm:"type:decimal(12,3);not null"`
	UnitOfMeasure string          `gorm:"type:varchar(8);not null"`
}
