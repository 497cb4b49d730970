package costing

import (
	"sort"

	"candycost/internal/model"

	"github.com/google/uuid"
)

// Catalog is a read-only lookup over components and products.
type Catalog interface {
	Component(id uuid.UUID) (*model.Component, bool)
	Product(id uuid.UUID) (*model.Product, bool)
}

// Snapshot is an immutable Catalog built from rows read in one transaction.
// It also indexes which products reference which ids.
type Snapshot struct {
	components map[uuid.UUID]*model.Component
	products   map[uuid.UUID]*model.Product
	order      []uuid.UUID
	dependents map[uuid.UUID][]uuid.UUID
}

// NewSnapshot copies the given rows; product lines are ordered by Position.
func NewSnapshot(components []model.Component, products []model.Product) *Snapshot {
	s := &Snapshot{
		components: make(map[uuid.UUID]*model.Component, len(components)),
		products:   make(map[uuid.UUID]*model.Product, len(products)),
		order:      make([]uuid.UUID, 0, len(products)),
		dependents: make(map[uuid.UUID][]uuid.UUID),
	}
	for i := range components {
		c := components[i]
		s.components[c.ID] = &c
	}
	for i := range products {
		p := products[i]
		p.Lines = append([]model.ProductLine(nil), p.Lines...)
		sort.SliceStable(p.Lines, func(a, b int) bool { return p.Lines[a].Position < p.Lines[b].Position })
		s.products[p.ID] = &p
		s.order = append(s.order, p.ID)

		seen := make(map[uuid.UUID]bool, len(p.Lines))
		for _, l := range p.Lines {
			if seen[l.ComponentID] {
				continue
			}
			seen[l.ComponentID] = true
			s.dependents[l.ComponentID] = append(s.dependents[l.ComponentID], p.ID)
		}
	}
	return s
}

func (s *Snapshot) Component(id uuid.UUID) (*model.Component, bool) {
	c, ok := s.components[id]
	return c, ok
}

func (s *Snapshot) Product(id uuid.UUID) (*model.Product, bool) {
	p, ok := s.products[id]
	return p, ok
}

// ProductIDs returns every product id in load order.
func (s *Snapshot) ProductIDs() []uuid.UUID {
	return append([]uuid.UUID(nil), s.order...)
}

// Dependents returns the products whose BOM directly references id.
func (s *Snapshot) Dependents(id uuid.UUID) []uuid.UUID {
	return append([]uuid.UUID(nil), s.dependents[id]...)
}

// Affected returns, in breadth-first order, every product whose cost can
// change when any of ids changes: the ids that are products themselves plus
// all transitive dependents. Each product appears once even if the data
// contains a cycle.
func (s *Snapshot) Affected(ids ...uuid.UUID) []uuid.UUID {
	visited := make(map[uuid.UUID]bool)
	var out []uuid.UUID
	queue := append([]uuid.UUID(nil), ids...)
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if visited[id] {
			continue
		}
		visited[id] = true
		if _, ok := s.products[id]; ok {
			out = append(out, id)
		}
		queue = append(queue, s.dependents[id]...)
	}
	return out
}
