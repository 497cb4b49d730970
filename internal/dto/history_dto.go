package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

type HistoryFilter struct {
	Page  int `form:"page,default=1"   validate:"min=1"`
	Limit int `form:"limit,default=20" validate:"min=1,max=100"`
}

type CostHistoryResponse struct {
	ID          string          `json:"id"`
	ProductID   string          `json:"productId"`
	CostBefore  decimal.Decimal `json:"costBefore"`
	CostAfter   decimal.Decimal `json:"costAfter"`
	RatioBefore decimal.Decimal `json:"ratioBefore"`
	RatioAfter  decimal.Decimal `json:"ratioAfter"`
	Reason      string          `json:"reason"`
	TriggeredBy *string         `json:"triggeredBy"`
	CreatedAt   time.Time       `json:"createdAt"`
}

type CostHistoryListResponse struct {
	History    []CostHistoryResponse `json:"history"`
	Pagination Pagination            `json:"pagination"`
}
