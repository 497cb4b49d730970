package service_test

import (
	"context"
	"strconv"
	"sync"
	"testing"

	"candycost/internal/dto"
	"candycost/internal/repository/repotest"
	"candycost/internal/service"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// ── Cache spy ───────────────────────────────────────────────────────────────

type spyCache struct {
	mu          sync.Mutex
	items       map[uuid.UUID]*dto.ProductResponse
	gens        map[uuid.UUID]int
	invalidated []uuid.UUID
}

func newSpyCache() *spyCache {
	return &spyCache{items: map[uuid.UUID]*dto.ProductResponse{}, gens: map[uuid.UUID]int{}}
}

func (c *spyCache) Get(_ context.Context, id uuid.UUID) (*dto.ProductResponse, string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if p, ok := c.items[id]; ok {
		return p, "", true
	}
	return nil, strconv.Itoa(c.gens[id]), false
}

func (c *spyCache) Set(_ context.Context, p *dto.ProductResponse, gen string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := uuid.MustParse(p.ID)
	if gen != strconv.Itoa(c.gens[id]) {
		return
	}
	c.items[id] = p
}

func (c *spyCache) Invalidate(_ context.Context, ids ...uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range ids {
		c.gens[id]++
		delete(c.items, id)
	}
	c.invalidated = append(c.invalidated, ids...)
}

// ── Fixture ─────────────────────────────────────────────────────────────────

type catalog struct {
	store      *repotest.Store
	cache      *spyCache
	engine     service.CostEngine
	components service.ComponentService
	products   service.ProductService
}

func newCatalog(t *testing.T, policy string) *catalog {
	t.Helper()
	store := repotest.NewStore()
	cache := newSpyCache()
	engine := service.NewCostEngine(store)
	return &catalog{
		store:      store,
		cache:      cache,
		engine:     engine,
		components: service.NewComponentService(store, store.Repos().Components, engine, cache, policy),
		products:   service.NewProductService(store, store.Repos(), engine, cache, policy),
	}
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func ptr[T any](v T) *T { return &v }

func (c *catalog) component(t *testing.T, name, price, pkg, unit string) *dto.ComponentResponse {
	t.Helper()
	resp, err := c.components.Create(context.Background(), dto.CreateComponentRequest{
		Name: name, Manufacturer: "Acme", Price: dec(price), PackageQuantity: dec(pkg),
		UnitOfMeasure: unit, Category: "Dry",
	})
	require.NoError(t, err)
	return resp
}

func (c *catalog) product(t *testing.T, name, yield, unit string, isComponent bool, lines ...dto.LineRequest) *dto.ProductResponse {
	t.Helper()
	resp, err := c.products.Create(context.Background(), productReq(name, yield, unit, isComponent, lines...))
	require.NoError(t, err)
	return resp
}

func productReq(name, yield, unit string, isComponent bool, lines ...dto.LineRequest) dto.CreateProductRequest {
	return dto.CreateProductRequest{
		Name: name, Category: "Cakes", Yield: dec(yield), UnitOfMeasure: unit,
		SalePrice: dec("9.99"), IsComponent: isComponent, Components: lines,
	}
}

func bom(id, qty, unit string) dto.LineRequest {
	return dto.LineRequest{ComponentID: id, Quantity: dec(qty), UnitOfMeasure: unit}
}

func (c *catalog) stored(t *testing.T, id string) (cost, ratio decimal.Decimal) {
	t.Helper()
	p, ok := c.store.Product(uuid.MustParse(id))
	require.True(t, ok)
	return p.ProductionCost, p.ProductionCostRatio
}
