package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Cost change reasons recorded in CostHistory.Reason.
const (
	ReasonBOMChange        = "bom_change"
	ReasonComponentChange  = "component_change"
	ReasonDependencyChange = "dependency_change"
	ReasonRecalculation    = "recalculation"
	ReasonCascadeDelete    = "cascade_delete"
)

// CostHistory records every change of a product's persisted production cost.
// Rows are append-only.
type CostHistory struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ProductID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	CostBefore  decimal.Decimal `gorm:"type:decimal(14,4);not null"`
	CostAfter   decimal.Decimal `gorm:"type:decimal(14,4);not null"`
	RatioBefore decimal.Decimal `gorm:"type:decimal(14,6);not null"`
	RatioAfter  decimal.Decimal `gorm:"type:decimal(14,6);not null"`
	Reason      string          `gorm:"type:varchar(32);not null"`
	TriggeredBy *uuid.UUID      `gorm:"type:uuid"`
	CreatedAt   time.Time
}
