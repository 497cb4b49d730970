// Package repotest provides in-memory implementations of the repository
// interfaces for service and handler tests.
package repotest

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"candycost/internal/dto"
	"candycost/internal/model"
	"candycost/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Store holds the whole catalog in memory. Transactions snapshot the maps
// and restore them when fn fails.
type Store struct {
	tx sync.Mutex // serializes UnitOfWork.Do
	mu sync.RWMutex

	components map[uuid.UUID]model.Component
	products   map[uuid.UUID]model.Product
	history    []model.CostHistory
	users      map[uuid.UUID]model.User

	// FailNextWrite makes the next mutating call return this error.
	FailNextWrite error
}

func NewStore() *Store {
	return &Store{
		components: make(map[uuid.UUID]model.Component),
		products:   make(map[uuid.UUID]model.Product),
		users:      make(map[uuid.UUID]model.User),
	}
}

var (
	_ repository.ComponentRepository   = (*componentRepo)(nil)
	_ repository.ProductRepository     = (*productRepo)(nil)
	_ repository.CostHistoryRepository = (*historyRepo)(nil)
	_ repository.UserRepository        = (*userRepo)(nil)
	_ repository.UnitOfWork            = (*Store)(nil)
)

func (s *Store) Repos() repository.Repos {
	return repository.Repos{
		Components: &componentRepo{s},
		Products:   &productRepo{s},
		History:    &historyRepo{s},
	}
}

func (s *Store) Users() repository.UserRepository { return &userRepo{s} }

// ── UnitOfWork ──────────────────────────────────────────────────────────────

func (s *Store) Do(ctx context.Context, fn func(r repository.Repos) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.tx.Lock()
	defer s.tx.Unlock()

	s.mu.RLock()
	comps, prods, hist := cloneComponents(s.components), cloneProducts(s.products), append([]model.CostHistory(nil), s.history...)
	s.mu.RUnlock()

	if err := fn(s.Repos()); err != nil {
		s.mu.Lock()
		s.components, s.products, s.history = comps, prods, hist
		s.mu.Unlock()
		return err
	}
	return nil
}

func (s *Store) Read(ctx context.Context, fn func(r repository.Repos) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.tx.Lock()
	defer s.tx.Unlock()
	return fn(s.Repos())
}

// ── Test helpers ────────────────────────────────────────────────────────────

// Product returns the stored product with lines, bypassing the repositories.
func (s *Store) Product(id uuid.UUID) (model.Product, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.products[id]
	return cloneProduct(p), ok
}

func (s *Store) History() []model.CostHistory {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.CostHistory(nil), s.history...)
}

func (s *Store) failure() error {
	err := s.FailNextWrite
	s.FailNextWrite = nil
	return err
}

func cloneProduct(p model.Product) model.Product {
	p.Lines = append([]model.ProductLine(nil), p.Lines...)
	return p
}

func cloneComponents(in map[uuid.UUID]model.Component) map[uuid.UUID]model.Component {
	out := make(map[uuid.UUID]model.Component, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func cloneProducts(in map[uuid.UUID]model.Product) map[uuid.UUID]model.Product {
	out := make(map[uuid.UUID]model.Product, len(in))
	for k, v := range in {
		out[k] = cloneProduct(v)
	}
	return out
}

func contains(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(strings.TrimSpace(needle)))
}

func page[T any](items []T, offset, limit int) []T {
	if offset >= len(items) {
		return []T{}
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}

func categories(cats []string) []string {
	seen := map[string]bool{}
	out := []string{}
	for _, c := range cats {
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	sort.Strings(out)
	return out
}

// ── Components ──────────────────────────────────────────────────────────────

type componentRepo struct{ s *Store }

func (r *componentRepo) Create(_ context.Context, c *model.Component) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure(); err != nil {
		return err
	}
	for _, o := range r.s.components {
		if strings.EqualFold(o.Name, c.Name) && strings.EqualFold(o.Manufacturer, c.Manufacturer) {
			return repository.ErrDuplicate
		}
	}
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	now := time.Now()
	c.CreatedAt, c.UpdatedAt = now, now
	r.s.components[c.ID] = *c
	return nil
}

func (r *componentRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Component, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	c, ok := r.s.components[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &c, nil
}

func (r *componentRepo) FindByIdentity(_ context.Context, name, manufacturer string) (*model.Component, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, c := range r.s.components {
		if strings.EqualFold(c.Name, name) && strings.EqualFold(c.Manufacturer, manufacturer) {
			return &c, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *componentRepo) FindByIDs(_ context.Context, ids []uuid.UUID) ([]model.Component, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []model.Component{}
	for _, id := range ids {
		if c, ok := r.s.components[id]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *componentRepo) sorted(keep func(model.Component) bool) []model.Component {
	out := []model.Component{}
	for _, c := range r.s.components {
		if keep(c) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].Manufacturer < out[j].Manufacturer
	})
	return out
}

func (r *componentRepo) List(_ context.Context, f dto.ListFilter) ([]model.Component, int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	all := r.sorted(func(c model.Component) bool { return f.Category == "" || c.Category == f.Category })
	return page(all, f.Offset(), f.Limit), int64(len(all)), nil
}

func (r *componentRepo) Search(_ context.Context, name string) ([]model.Component, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.sorted(func(c model.Component) bool { return contains(c.Name, name) }), nil
}

func (r *componentRepo) Categories(_ context.Context) ([]string, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var cats []string
	for _, c := range r.s.components {
		cats = append(cats, c.Category)
	}
	return categories(cats), nil
}

func (r *componentRepo) All(_ context.Context) ([]model.Component, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.sorted(func(model.Component) bool { return true }), nil
}

func (r *componentRepo) Update(_ context.Context, c *model.Component) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure(); err != nil {
		return err
	}
	if _, ok := r.s.components[c.ID]; !ok {
		return repository.ErrNotFound
	}
	for _, o := range r.s.components {
		if o.ID != c.ID && strings.EqualFold(o.Name, c.Name) && strings.EqualFold(o.Manufacturer, c.Manufacturer) {
			return repository.ErrDuplicate
		}
	}
	c.UpdatedAt = time.Now()
	r.s.components[c.ID] = *c
	return nil
}

func (r *componentRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure(); err != nil {
		return err
	}
	if _, ok := r.s.components[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.components, id)
	return nil
}

// ── Products ────────────────────────────────────────────────────────────────

type productRepo struct{ s *Store }

func (r *productRepo) Create(_ context.Context, p *model.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure(); err != nil {
		return err
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	now := time.Now()
	p.CreatedAt, p.UpdatedAt = now, now
	for i := range p.Lines {
		p.Lines[i].ProductID = p.ID
		if p.Lines[i].ID == uuid.Nil {
			p.Lines[i].ID = uuid.New()
		}
	}
	r.s.products[p.ID] = cloneProduct(*p)
	return nil
}

func (r *productRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, ok := r.s.products[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	p = cloneProduct(p)
	return &p, nil
}

func (r *productRepo) FindByIDs(_ context.Context, ids []uuid.UUID) ([]model.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []model.Product{}
	for _, id := range ids {
		if p, ok := r.s.products[id]; ok {
			out = append(out, cloneProduct(p))
		}
	}
	return out, nil
}

func (r *productRepo) sorted(keep func(model.Product) bool) []model.Product {
	out := []model.Product{}
	for _, p := range r.s.products {
		if keep(p) {
			out = append(out, cloneProduct(p))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}

func (r *productRepo) List(_ context.Context, f dto.ListFilter) ([]model.Product, int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	all := r.sorted(func(p model.Product) bool { return f.Category == "" || p.Category == f.Category })
	return page(all, f.Offset(), f.Limit), int64(len(all)), nil
}

func (r *productRepo) Search(_ context.Context, name string) ([]model.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.sorted(func(p model.Product) bool { return contains(p.Name, name) }), nil
}

func (r *productRepo) Categories(_ context.Context) ([]string, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var cats []string
	for _, p := range r.s.products {
		cats = append(cats, p.Category)
	}
	return categories(cats), nil
}

func (r *productRepo) All(_ context.Context) ([]model.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.sorted(func(model.Product) bool { return true }), nil
}

func (r *productRepo) Update(_ context.Context, p *model.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure(); err != nil {
		return err
	}
	cur, ok := r.s.products[p.ID]
	if !ok {
		return repository.ErrNotFound
	}
	p.UpdatedAt = time.Now()
	upd := *p
	upd.Lines = cur.Lines
	r.s.products[p.ID] = upd
	return nil
}

func (r *productRepo) ReplaceLines(_ context.Context, productID uuid.UUID, lines []model.ProductLine) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure(); err != nil {
		return err
	}
	p, ok := r.s.products[productID]
	if !ok {
		return repository.ErrNotFound
	}
	for i := range lines {
		lines[i].ProductID = productID
		if lines[i].ID == uuid.Nil {
			lines[i].ID = uuid.New()
		}
	}
	p.Lines = append([]model.ProductLine(nil), lines...)
	r.s.products[productID] = p
	return nil
}

func (r *productRepo) UpdateCost(_ context.Context, id uuid.UUID, cost, ratio decimal.Decimal) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.products[id]
	if !ok {
		return repository.ErrNotFound
	}
	p.ProductionCost, p.ProductionCostRatio = cost, ratio
	r.s.products[id] = p
	return nil
}

func (r *productRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure(); err != nil {
		return err
	}
	if _, ok := r.s.products[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.products, id)
	return nil
}

func references(p model.Product, ref uuid.UUID) bool {
	for _, l := range p.Lines {
		if l.ComponentID == ref {
			return true
		}
	}
	return false
}

func (r *productRepo) FindReferencing(_ context.Context, refID uuid.UUID) ([]model.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.sorted(func(p model.Product) bool { return references(p, refID) }), nil
}

func (r *productRepo) DeleteLinesReferencing(_ context.Context, refID uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, p := range r.s.products {
		kept := p.Lines[:0:0]
		for _, l := range p.Lines {
			if l.ComponentID != refID {
				kept = append(kept, l)
			}
		}
		p.Lines = kept
		r.s.products[id] = p
	}
	return nil
}

func (r *productRepo) RenameLinesReferencing(_ context.Context, refID uuid.UUID, name string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, p := range r.s.products {
		p = cloneProduct(p)
		for i := range p.Lines {
			if p.Lines[i].ComponentID == refID {
				p.Lines[i].ComponentName = name
			}
		}
		r.s.products[id] = p
	}
	return nil
}

// ── Cost history ────────────────────────────────────────────────────────────

type historyRepo struct{ s *Store }

func (r *historyRepo) Append(_ context.Context, entries []model.CostHistory) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	now := time.Now()
	for _, e := range entries {
		if e.ID == uuid.Nil {
			e.ID = uuid.New()
		}
		e.CreatedAt = now
		r.s.history = append(r.s.history, e)
	}
	return nil
}

func (r *historyRepo) ListByProduct(_ context.Context, productID uuid.UUID, f dto.HistoryFilter) ([]model.CostHistory, int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var all []model.CostHistory
	// newest first
	for i := len(r.s.history) - 1; i >= 0; i-- {
		if r.s.history[i].ProductID == productID {
			all = append(all, r.s.history[i])
		}
	}
	return page(all, (f.Page-1)*f.Limit, f.Limit), int64(len(all)), nil
}

// ── Users ───────────────────────────────────────────────────────────────────

type userRepo struct{ s *Store }

func (r *userRepo) Create(_ context.Context, u *model.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, o := range r.s.users {
		if strings.EqualFold(o.Email, u.Email) {
			return repository.ErrDuplicate
		}
	}
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	r.s.users[u.ID] = *u
	return nil
}

func (r *userRepo) FindByEmail(_ context.Context, email string) (*model.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, u := range r.s.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *userRepo) FindByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (r *userRepo) Update(_ context.Context, u *model.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[u.ID]; !ok {
		return repository.ErrNotFound
	}
	r.s.users[u.ID] = *u
	return nil
}
