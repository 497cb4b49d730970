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

// ComponentService defines the business logic contract for components.
type ComponentService interface {
	Create(ctx context.Context, req dto.CreateComponentRequest) (*dto.ComponentResponse, error)
	GetByID(ctx context.Context, id uuid.UUID) (*dto.ComponentResponse, error)
	List(ctx context.Context, filter dto.ListFilter) (*dto.ComponentListResponse, error)
	Search(ctx context.Context, name string) ([]dto.ComponentResponse, error)
	Categories(ctx context.Context) ([]string, error)
	Update(ctx context.Context, id uuid.UUID, req dto.UpdateComponentRequest) (*dto.ComponentResponse, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type componentService struct {
	uow          repository.UnitOfWork
	repo         repository.ComponentRepository
	engine       CostEngine
	cache        ProductCache
	deletePolicy string
}

func NewComponentService(uow repository.UnitOfWork, repo repository.ComponentRepository, engine CostEngine, cache ProductCache, deletePolicy string) ComponentService {
	return &componentService{uow: uow, repo: repo, engine: engine, cache: cache, deletePolicy: deletePolicy}
}

// baseUnit normalizes a component/product unit label. Only family base
// units are stored.
func baseUnit(label string) (string, error) {
	u, err := costing.ParseUnit(label)
	if err != nil {
		return "", err
	}
	if !u.IsBase() {
		return "", &costing.UnitMismatchError{From: u, To: u}
	}
	return string(u), nil
}

func (s *componentService) Create(ctx context.Context, req dto.CreateComponentRequest) (*dto.ComponentResponse, error) {
	unit, err := baseUnit(req.UnitOfMeasure)
	if err != nil {
		return nil, err
	}
	c := &model.Component{
		ID:              uuid.New(),
		Name:            strings.TrimSpace(req.Name),
		Manufacturer:    strings.TrimSpace(req.Manufacturer),
		Price:           req.Price,
		PackageQuantity: req.PackageQuantity,
		UnitOfMeasure:   unit,
		Category:        strings.TrimSpace(req.Category),
	}
	err = s.uow.Do(ctx, func(r repository.Repos) error {
		if err := s.checkIdentity(ctx, r, c); err != nil {
			return err
		}
		return duplicateOr(r.Components.Create(ctx, c), c)
	})
	if err != nil {
		return nil, err
	}
	log.Info().Str("component_id", c.ID.String()).Str("name", c.Name).Msg("component created")
	resp := toComponentResponse(c)
	return &resp, nil
}

func (s *componentService) checkIdentity(ctx context.Context, r repository.Repos, c *model.Component) error {
	other, err := r.Components.FindByIdentity(ctx, c.Name, c.Manufacturer)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return nil
	case err != nil:
		return err
	case other.ID != c.ID:
		return &DuplicateComponentError{Name: c.Name, Manufacturer: c.Manufacturer}
	}
	return nil
}

// duplicateOr maps a unique-index violation that slipped past checkIdentity.
func duplicateOr(err error, c *model.Component) error {
	if errors.Is(err, repository.ErrDuplicate) {
		return &DuplicateComponentError{Name: c.Name, Manufacturer: c.Manufacturer}
	}
	return err
}

func (s *componentService) GetByID(ctx context.Context, id uuid.UUID) (*dto.ComponentResponse, error) {
	c, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "component", id)
	}
	resp := toComponentResponse(c)
	return &resp, nil
}

func (s *componentService) List(ctx context.Context, filter dto.ListFilter) (*dto.ComponentListResponse, error) {
	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	out := make([]dto.ComponentResponse, len(items))
	for i := range items {
		out[i] = toComponentResponse(&items[i])
	}
	return &dto.ComponentListResponse{
		Components: out,
		Pagination: dto.NewPagination(total, filter.Page, filter.Limit),
	}, nil
}

func (s *componentService) Search(ctx context.Context, name string) ([]dto.ComponentResponse, error) {
	items, err := s.repo.Search(ctx, name)
	if err != nil {
		return nil, err
	}
	out := make([]dto.ComponentResponse, len(items))
	for i := range items {
		out[i] = toComponentResponse(&items[i])
	}
	return out, nil
}

func (s *componentService) Categories(ctx context.Context) ([]string, error) {
	cats, err := s.repo.Categories(ctx)
	if cats == nil {
		cats = []string{}
	}
	return cats, err
}

func (s *componentService) Update(ctx context.Context, id uuid.UUID, req dto.UpdateComponentRequest) (*dto.ComponentResponse, error) {
	var (
		c        *model.Component
		affected []uuid.UUID
	)
	err := s.uow.Do(ctx, func(r repository.Repos) error {
		var err error
		c, err = r.Components.FindByID(ctx, id)
		if err != nil {
			return notFoundOr(err, "component", id)
		}
		before := *c

		if req.Name != nil {
			c.Name = strings.TrimSpace(*req.Name)
		}
		if req.Manufacturer != nil {
			c.Manufacturer = strings.TrimSpace(*req.Manufacturer)
		}
		if req.Price != nil {
			c.Price = *req.Price
		}
		if req.PackageQuantity != nil {
			c.PackageQuantity = *req.PackageQuantity
		}
		if req.UnitOfMeasure != nil {
			if c.UnitOfMeasure, err = baseUnit(*req.UnitOfMeasure); err != nil {
				return err
			}
		}
		if req.Category != nil {
			c.Category = strings.TrimSpace(*req.Category)
		}

		if !strings.EqualFold(before.Name, c.Name) || !strings.EqualFold(before.Manufacturer, c.Manufacturer) {
			if err := s.checkIdentity(ctx, r, c); err != nil {
				return err
			}
		}
		if err := duplicateOr(r.Components.Update(ctx, c), c); err != nil {
			return err
		}
		if before.Name != c.Name {
			if err := r.Products.RenameLinesReferencing(ctx, c.ID, c.Name); err != nil {
				return err
			}
		}

		costChanged := !before.Price.Equal(c.Price) ||
			!before.PackageQuantity.Equal(c.PackageQuantity) ||
			before.UnitOfMeasure != c.UnitOfMeasure
		if costChanged || before.Name != c.Name {
			dependents, err := r.Products.FindReferencing(ctx, c.ID)
			if err != nil {
				return err
			}
			for _, p := range dependents {
				affected = append(affected, p.ID)
			}
		}
		if costChanged {
			updated, err := s.engine.Recompute(ctx, r, model.ReasonComponentChange, c.ID, c.ID)
			if err != nil {
				return err
			}
			affected = append(affected, updated...)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx, affected...)
	resp := toComponentResponse(c)
	return &resp, nil
}

func (s *componentService) Delete(ctx context.Context, id uuid.UUID) error {
	var affected []uuid.UUID
	err := s.uow.Do(ctx, func(r repository.Repos) error {
		c, err := r.Components.FindByID(ctx, id)
		if err != nil {
			return notFoundOr(err, "component", id)
		}
		refs, err := r.Products.FindReferencing(ctx, id)
		if err != nil {
			return err
		}
		if len(refs) > 0 && s.deletePolicy != config.DeletePolicyCascade {
			return &ReferentialIntegrityError{ID: id, Action: "delete component " + c.Name, ReferencedBy: nodes(refs)}
		}
		if err := r.Products.DeleteLinesReferencing(ctx, id); err != nil {
			return err
		}
		if err := r.Components.Delete(ctx, id); err != nil {
			return notFoundOr(err, "component", id)
		}
		if len(refs) == 0 {
			return nil
		}
		ids := productIDs(refs)
		updated, err := s.engine.Recompute(ctx, r, model.ReasonCascadeDelete, id, ids...)
		if err != nil {
			return err
		}
		affected = append(ids, updated...)
		return nil
	})
	if err != nil {
		return err
	}
	s.cache.Invalidate(ctx, affected...)
	log.Info().Str("component_id", id.String()).Int("cascaded", len(affected)).Msg("component deleted")
	return nil
}

func notFoundOr(err error, entity string, id uuid.UUID) error {
	if errors.Is(err, repository.ErrNotFound) {
		return &NotFoundError{Entity: entity, ID: id}
	}
	return err
}

func nodes(ps []model.Product) []costing.Node {
	out := make([]costing.Node, len(ps))
	for i, p := range ps {
		out[i] = costing.Node{ID: p.ID, Name: p.Name}
	}
	return out
}

func productIDs(ps []model.Product) []uuid.UUID {
	out := make([]uuid.UUID, len(ps))
	for i, p := range ps {
		out[i] = p.ID
	}
	return out
}
