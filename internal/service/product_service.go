package service

import (
	"context"
	"errors"
	"strings"

	"candycost/internal/config"
	"candycost/internal/costing"
	"candycost/internal/dto"
	"candycost/internal/model"
	"candycost/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ProductService defines the business logic contract for products.
type ProductService interface {
	Create(ctx context.Context, req dto.CreateProductRequest) (*dto.ProductResponse, error)
	GetByID(ctx context.Context, id uuid.UUID) (*dto.ProductResponse, error)
	List(ctx context.Context, filter dto.ListFilter) (*dto.ProductListResponse, error)
	Search(ctx context.Context, name string) ([]dto.ProductResponse, error)
	Categories(ctx context.Context) ([]string, error)
	Update(ctx context.Context, id uuid.UUID, req dto.UpdateProductRequest) (*dto.ProductResponse, error)
	Delete(ctx context.Context, id uuid.UUID) error

	CostBreakdown(ctx context.Context, id uuid.UUID) (*dto.CostBreakdownResponse, error)
	CostHistory(ctx context.Context, id uuid.UUID, filter dto.HistoryFilter) (*dto.CostHistoryListResponse, error)
	RecalculateAll(ctx context.Context) (*RecalcReport, error)
}

type productService struct {
	uow          repository.UnitOfWork
	repos        repository.Repos
	engine       CostEngine
	cache        ProductCache
	deletePolicy string
}

func NewProductService(uow repository.UnitOfWork, repos repository.Repos, engine CostEngine, cache ProductCache, deletePolicy string) ProductService {
	return &productService{uow: uow, repos: repos, engine: engine, cache: cache, deletePolicy: deletePolicy}
}

// buildLines validates BOM references and refreshes the denormalized names.
func buildLines(ctx context.Context, r repository.Repos, owner costing.Node, req []dto.LineRequest) ([]model.ProductLine, error) {
	lines := make([]model.ProductLine, 0, len(req))
	for i, lr := range req {
		ref, err := uuid.Parse(lr.ComponentID)
		if err != nil {
			return nil, &costing.UnresolvedReferenceError{ProductID: owner.ID, Reason: "invalid reference id " + lr.ComponentID}
		}
		unit, err := costing.ParseUnit(lr.UnitOfMeasure)
		if err != nil {
			return nil, err
		}

		name, err := referenceName(ctx, r, owner, ref)
		if err != nil {
			return nil, err
		}
		lines = append(lines, model.ProductLine{
			ID:            uuid.New(),
			ProductID:     owner.ID,
			Position:      i,
			ComponentID:   ref,
			ComponentName: name,
			Quantity:      lr.Quantity,
			UnitOfMeasure: string(unit),
		})
	}
	return lines, nil
}

func referenceName(ctx context.Context, r repository.Repos, owner costing.Node, ref uuid.UUID) (string, error) {
	c, err := r.Components.FindByID(ctx, ref)
	if err == nil {
		return c.Name, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return "", err
	}
	if ref == owner.ID {
		return "", &costing.CyclicBillOfMaterialsError{Cycle: []costing.Node{owner, owner}}
	}
	p, err := r.Products.FindByID(ctx, ref)
	if errors.Is(err, repository.ErrNotFound) {
		return "", &costing.UnresolvedReferenceError{ProductID: owner.ID, ComponentID: ref, Reason: "does not exist"}
	}
	if err != nil {
		return "", err
	}
	if !p.IsComponent {
		return "", &costing.UnresolvedReferenceError{ProductID: owner.ID, ComponentID: ref, Reason: "is a product not marked as component"}
	}
	return p.Name, nil
}

func (s *productService) Create(ctx context.Context, req dto.CreateProductRequest) (*dto.ProductResponse, error) {
	unit, err := baseUnit(req.UnitOfMeasure)
	if err != nil {
		return nil, err
	}
	p := &model.Product{
		ID:            uuid.New(),
		Name:          strings.TrimSpace(req.Name),
		Description:   req.Description,
		Category:      strings.TrimSpace(req.Category),
		Yield:         req.Yield,
		UnitOfMeasure: unit,
		SalePrice:     req.SalePrice,
		IsComponent:   req.IsComponent,
	}

	var affected []uuid.UUID
	err = s.uow.Do(ctx, func(r repository.Repos) error {
		lines, err := buildLines(ctx, r, costing.Node{ID: p.ID, Name: p.Name}, req.Lines())
		if err != nil {
			return err
		}
		p.Lines = lines
		if err := r.Products.Create(ctx, p); err != nil {
			return err
		}
		if affected, err = s.engine.Recompute(ctx, r, model.ReasonBOMChange, p.ID, p.ID); err != nil {
			return err
		}
		saved, err := r.Products.FindByID(ctx, p.ID)
		if err != nil {
			return err
		}
		p = saved
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx, affected...)
	log.Info().Str("product_id", p.ID.String()).Str("cost", p.ProductionCost.String()).Msg("product created")
	resp := toProductResponse(p)
	return &resp, nil
}

func (s *productService) GetByID(ctx context.Context, id uuid.UUID) (*dto.ProductResponse, error) {
	cached, gen, ok := s.cache.Get(ctx, id)
	if ok {
		return cached, nil
	}
	p, err := s.repos.Products.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "product", id)
	}
	resp := toProductResponse(p)
	s.cache.Set(ctx, &resp, gen)
	return &resp, nil
}

func (s *productService) List(ctx context.Context, filter dto.ListFilter) (*dto.ProductListResponse, error) {
	items, total, err := s.repos.Products.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	out := make([]dto.ProductResponse, len(items))
	for i := range items {
		out[i] = toProductResponse(&items[i])
	}
	return &dto.ProductListResponse{
		Products:   out,
		Pagination: dto.NewPagination(total, filter.Page, filter.Limit),
	}, nil
}

func (s *productService) Search(ctx context.Context, name string) ([]dto.ProductResponse, error) {
	items, err := s.repos.Products.Search(ctx, name)
	if err != nil {
		return nil, err
	}
	out := make([]dto.ProductResponse, len(items))
	for i := range items {
		out[i] = toProductResponse(&items[i])
	}
	return out, nil
}

func (s *productService) Categories(ctx context.Context) ([]string, error) {
	cats, err := s.repos.Products.Categories(ctx)
	if cats == nil {
		cats = []string{}
	}
	return cats, err
}

func (s *productService) Update(ctx context.Context, id uuid.UUID, req dto.UpdateProductRequest) (*dto.ProductResponse, error) {
	var (
		p        *model.Product
		affected []uuid.UUID
	)
	err := s.uow.Do(ctx, func(r repository.Repos) error {
		var err error
		p, err = r.Products.FindByID(ctx, id)
		if err != nil {
			return notFoundOr(err, "product", id)
		}
		before := *p

		if req.Name != nil {
			p.Name = strings.TrimSpace(*req.Name)
		}
		if req.Description != nil {
			p.Description = *req.Description
		}
		if req.Category != nil {
			p.Category = strings.TrimSpace(*req.Category)
		}
		if req.Yield != nil {
			p.Yield = *req.Yield
		}
		if req.UnitOfMeasure != nil {
			if p.UnitOfMeasure, err = baseUnit(*req.UnitOfMeasure); err != nil {
				return err
			}
		}
		if req.SalePrice != nil {
			p.SalePrice = *req.SalePrice
		}
		if req.IsComponent != nil {
			p.IsComponent = *req.IsComponent
		}

		refs, err := r.Products.FindReferencing(ctx, id)
		if err != nil {
			return err
		}
		if before.IsComponent && !p.IsComponent && len(refs) > 0 {
			return &ReferentialIntegrityError{ID: id, Action: "unmark " + before.Name + " as component", ReferencedBy: nodes(refs)}
		}

		if err := r.Products.Update(ctx, p); err != nil {
			return err
		}
		if req.Components != nil {
			lines, err := buildLines(ctx, r, costing.Node{ID: id, Name: p.Name}, *req.Components)
			if err != nil {
				return err
			}
			if err := r.Products.ReplaceLines(ctx, id, lines); err != nil {
				return err
			}
		}
		if before.Name != p.Name && len(refs) > 0 {
			if err := r.Products.RenameLinesReferencing(ctx, id, p.Name); err != nil {
				return err
			}
		}

		updated, err := s.engine.Recompute(ctx, r, model.ReasonBOMChange, id, id)
		if err != nil {
			return err
		}
		affected = append(append([]uuid.UUID{id}, productIDs(refs)...), updated...)

		p, err = r.Products.FindByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx, affected...)
	resp := toProductResponse(p)
	return &resp, nil
}

func (s *productService) Delete(ctx context.Context, id uuid.UUID) error {
	affected := []uuid.UUID{id}
	err := s.uow.Do(ctx, func(r repository.Repos) error {
		p, err := r.Products.FindByID(ctx, id)
		if err != nil {
			return notFoundOr(err, "product", id)
		}
		refs, err := r.Products.FindReferencing(ctx, id)
		if err != nil {
			return err
		}
		// a product listing itself is not a reference from elsewhere
		others := refs[:0:0]
		for _, ref := range refs {
			if ref.ID != id {
				others = append(others, ref)
			}
		}
		if len(others) > 0 && s.deletePolicy != config.DeletePolicyCascade {
			return &ReferentialIntegrityError{ID: id, Action: "delete product " + p.Name, ReferencedBy: nodes(others)}
		}
		if err := r.Products.DeleteLinesReferencing(ctx, id); err != nil {
			return err
		}
		if err := r.Products.Delete(ctx, id); err != nil {
			return notFoundOr(err, "product", id)
		}
		if len(others) == 0 {
			return nil
		}
		ids := productIDs(others)
		updated, err := s.engine.Recompute(ctx, r, model.ReasonCascadeDelete, id, ids...)
		if err != nil {
			return err
		}
		affected = append(append(affected, ids...), updated...)
		return nil
	})
	if err != nil {
		return err
	}
	s.cache.Invalidate(ctx, affected...)
	log.Info().Str("product_id", id.String()).Int("invalidated", len(affected)).Msg("product deleted")
	return nil
}

func (s *productService) CostBreakdown(ctx context.Context, id uuid.UUID) (*dto.CostBreakdownResponse, error) {
	p, cost, err := s.engine.Breakdown(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := toBreakdownResponse(p, cost)
	return &resp, nil
}

func (s *productService) CostHistory(ctx context.Context, id uuid.UUID, filter dto.HistoryFilter) (*dto.CostHistoryListResponse, error) {
	if _, err := s.repos.Products.FindByID(ctx, id); err != nil {
		return nil, notFoundOr(err, "product", id)
	}
	items, total, err := s.repos.History.ListByProduct(ctx, id, filter)
	if err != nil {
		return nil, err
	}
	out := make([]dto.CostHistoryResponse, len(items))
	for i := range items {
		out[i] = toHistoryResponse(&items[i])
	}
	return &dto.CostHistoryListResponse{
		History:    out,
		Pagination: dto.NewPagination(total, filter.Page, filter.Limit),
	}, nil
}

func (s *productService) RecalculateAll(ctx context.Context) (*RecalcReport, error) {
	report, err := s.engine.RecalculateAll(ctx)
	if err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx, report.Updated...)
	return report, nil
}
