package dto

import "github.com/shopspring/decimal"

func init() {
	// The front-end reads prices and costs as numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

// ─── Filter / Pagination ─────────────────────────────────────────────────────

type ListFilter struct {
	Page     int    `form:"page,default=1"   validate:"min=1"`
	Limit    int    `form:"limit,default=10" validate:"min=1,max=1000"`
	Category string `form:"category"`
}

func (f ListFilter) Offset() int { return (f.Page - 1) * f.Limit }

type SearchQuery struct {
	Name string `form:"name" validate:"required,min=1,max=120"`
}

type Pagination struct {
	Total       int64 `json:"total"`
	TotalPages  int   `json:"totalPages"`
	CurrentPage int   `json:"currentPage"`
}

func NewPagination(total int64, page, limit int) Pagination {
	pages := 0
	if limit > 0 {
		pages = int((total + int64(limit) - 1) / int64(limit))
	}
	return Pagination{Total: total, TotalPages: pages, CurrentPage: page}
}
