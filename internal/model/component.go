package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Component is a purchasable raw ingredient priced per package.
// (name, manufacturer) is unique case-insensitively; see infra schema patches.
type Component struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Name            string          `gorm:"index;not null"`
	Manufacturer    string          `gorm:"not null"`
	Price           decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	PackageQuantity decimal.Decimal `gorm:"type:decimal(12,3);not null"`
	UnitOfMeasure   string          `gorm:"type:varchar(8);not null"`
	Category        string          `gorm:"index;not null"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// UnitCost is the price of one native unit (price / packageQuantity).
func (c *Component) UnitCost() decimal.Decimal {
	if c.PackageQuantity.IsZero() {
		return decimal.Zero
	}
	return c.Price.Div(c.PackageQuantity)
}
