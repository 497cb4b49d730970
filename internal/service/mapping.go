package service

import (
	"candycost/internal/costing"
	"candycost/internal/dto"
	"candycost/internal/model"
)

func toComponentResponse(c *model.Component) dto.ComponentResponse {
	return dto.ComponentResponse{
		ID:              c.ID.String(),
		Name:            c.Name,
		Manufacturer:    c.Manufacturer,
		Price:           c.Price,
		PackageQuantity: c.PackageQuantity,
		UnitOfMeasure:   c.UnitOfMeasure,
		Category:        c.Category,
		UnitCost:        c.UnitCost().Round(6),
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       c.UpdatedAt,
	}
}

func toProductResponse(p *model.Product) dto.ProductResponse {
	lines := make([]dto.LineResponse, len(p.Lines))
	for i, l := range p.Lines {
		lines[i] = dto.LineResponse{
			ComponentID:   l.ComponentID.String(),
			ComponentName: l.ComponentName,
			Quantity:      l.Quantity,
			UnitOfMeasure: l.UnitOfMeasure,
		}
	}
	return dto.ProductResponse{
		ID:                  p.ID.String(),
		Name:                p.Name,
		Description:         p.Description,
		Category:            p.Category,
		Yield:               p.Yield,
		UnitOfMeasure:       p.UnitOfMeasure,
		SalePrice:           p.SalePrice,
		IsComponent:         p.IsComponent,
		Components:          lines,
		ProductionCost:      p.ProductionCost,
		ProductionCostRatio: p.ProductionCostRatio,
		CreatedAt:           p.CreatedAt,
		UpdatedAt:           p.UpdatedAt,
	}
}

func toBreakdownResponse(p *model.Product, c costing.Cost) dto.CostBreakdownResponse {
	lines := make([]dto.CostLineResponse, len(c.Lines))
	for i, l := range c.Lines {
		lines[i] = dto.CostLineResponse{
			ComponentID:    l.ComponentID.String(),
			ComponentName:  l.Name,
			Kind:           string(l.Kind),
			Quantity:       l.Quantity,
			UnitOfMeasure:  string(l.Unit),
			NativeQuantity: l.NativeQuantity,
			NativeUnit:     string(l.NativeUnit),
			UnitCost:       l.UnitCost.Round(6),
			Cost:           l.Cost.Round(4),
		}
	}
	return dto.CostBreakdownResponse{
		ProductID:           p.ID.String(),
		ProductName:         p.Name,
		Yield:               p.Yield,
		UnitOfMeasure:       p.UnitOfMeasure,
		ProductionCost:      c.ProductionCost.Round(4),
		ProductionCostRatio: c.ProductionCostRatio.Round(6),
		SalePrice:           p.SalePrice,
		Lines:               lines,
	}
}

func toHistoryResponse(h *model.CostHistory) dto.CostHistoryResponse {
	var trig *string
	if h.TriggeredBy != nil {
		s := h.TriggeredBy.String()
		trig = &s
	}
	return dto.CostHistoryResponse{
		ID:          h.ID.String(),
		ProductID:   h.ProductID.String(),
		CostBefore:  h.CostBefore,
		CostAfter:   h.CostAfter,
		RatioBefore: h.RatioBefore,
		RatioAfter:  h.RatioAfter,
		Reason:      h.Reason,
		TriggeredBy: trig,
		CreatedAt:   h.CreatedAt,
	}
}

func toUserResponse(u *model.User) dto.UserResponse {
	return dto.UserResponse{ID: u.ID.String(), Name: u.Name, Email: u.Email}
}
