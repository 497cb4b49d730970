package router_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"candycost/internal/config"
	"candycost/internal/dto"
	"candycost/internal/repository/repotest"
	"candycost/internal/router"
	"candycost/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ── Helpers ──────────────────────────────────────────────────────────────────

type fakeQueue struct {
	mu       sync.Mutex
	requests []string
}

func (q *fakeQueue) EnqueueRecost(_ context.Context, requestedBy string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.requests = append(q.requests, requestedBy)
	return nil
}

type testEnv struct {
	engine *gin.Engine
	queue  *fakeQueue
	token  string
	userID string
}

func testCfg() *config.Config {
	return &config.Config{
		Env:                "test",
		JWTSecret:          "test_jwt_secret_32_chars_minimum!",
		JWTExpirationHours: 1,
		LoginRatePerMinute: 1000,
		APIRatePerMinute:   10000,
		DeletePolicy:       config.DeletePolicyRestrict,
	}
}

func setup(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := testCfg()
	store := repotest.NewStore()
	engine := service.NewCostEngine(store)
	cache := service.NoopCache{}
	queue := &fakeQueue{}

	r := router.Routes(t.Context(), cfg, router.Deps{
		Auth:       service.NewAuthService(store.Users(), cfg),
		Components: service.NewComponentService(store, store.Repos().Components, engine, cache, cfg.DeletePolicy),
		Products:   service.NewProductService(store, store.Repos(), engine, cache, cfg.DeletePolicy),
		Queue:      queue,
	})
	env := &testEnv{engine: r, queue: queue}

	w := env.do(t, http.MethodPost, "/users", map[string]string{
		"name": "Baker", "email": "baker@example.com", "password": "secret123",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = env.do(t, http.MethodPost, "/users/login", map[string]string{
		"email": "Baker@Example.com", "password": "secret123",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var login dto.LoginResponse
	decode(t, w, &login)
	require.NotEmpty(t, login.Token)
	env.token, env.userID = login.Token, login.User.ID
	return env
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if e.token != "" {
		req.Header.Set("Authorization", "Bearer "+e.token)
	}
	w := httptest.NewRecorder()
	e.engine.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, dest any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), dest), w.Body.String())
}

func (e *testEnv) createComponent(t *testing.T, name string, price, pkg float64, unit string) dto.ComponentResponse {
	t.Helper()
	w := e.do(t, http.MethodPost, "/components", map[string]any{
		"name": name, "manufacturer": "Acme", "price": price, "packageQuantity": pkg,
		"unitOfMeasure": unit, "category": "Dry",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var c dto.ComponentResponse
	decode(t, w, &c)
	return c
}

func (e *testEnv) createProduct(t *testing.T, body map[string]any) *httptest.ResponseRecorder {
	t.Helper()
	return e.do(t, http.MethodPost, "/products", body)
}

func line(id string, qty float64, unit string) map[string]any {
	return map[string]any{"componentId": id, "quantity": qty, "unitOfMeasure": unit}
}

// ── Auth ─────────────────────────────────────────────────────────────────────

func TestRegister_DuplicateAndValidation(t *testing.T) {
	env := setup(t)

	w := env.do(t, http.MethodPost, "/users", map[string]string{
		"name": "Other", "email": "BAKER@example.com", "password": "secret123",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "User already exists")

	w = env.do(t, http.MethodPost, "/users", map[string]string{"name": "X", "email": "nope", "password": "1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	var verr struct {
		Kind    string `json:"kind"`
		Details []struct {
			Path    []string `json:"path"`
			Message string   `json:"message"`
		} `json:"details"`
	}
	decode(t, w, &verr)
	assert.Equal(t, "validation", verr.Kind)
	assert.NotEmpty(t, verr.Details)
}

func TestLogin_WrongPassword(t *testing.T) {
	env := setup(t)
	w := env.do(t, http.MethodPost, "/users/login", map[string]string{"email": "baker@example.com", "password": "wrong-one"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestProtectedRoutes_RequireToken(t *testing.T) {
	env := setup(t)
	env.token = ""
	for _, path := range []string{"/components", "/products", "/users/validate-token"} {
		w := env.do(t, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}
}

func TestValidateToken(t *testing.T) {
	env := setup(t)
	w := env.do(t, http.MethodGet, "/users/validate-token", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp dto.ValidateTokenResponse
	decode(t, w, &resp)
	assert.True(t, resp.Valid)
	assert.Equal(t, "baker@example.com", resp.User.Email)
}

// ── Catalog flow ─────────────────────────────────────────────────────────────

func TestProductCostFlow(t *testing.T) {
	env := setup(t)
	flour := env.createComponent(t, "Flour", 5, 1000, "G")
	milk := env.createComponent(t, "Milk", 4, 1000, "ML")

	w := env.createProduct(t, map[string]any{
		"name": "Cake", "category": "Cakes", "yield": 2, "unitOfMeasure": "UND", "salePrice": 3,
		"components": []any{line(flour.ID, 0.5, "KG"), line(milk.ID, 250, "ML")},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var cake dto.ProductResponse
	decode(t, w, &cake)
	// 0.5 kg flour = 2.50, 250 ml milk = 1.00
	assert.True(t, decimal.RequireFromString("3.5").Equal(cake.ProductionCost), cake.ProductionCost.String())
	assert.True(t, decimal.RequireFromString("1.75").Equal(cake.ProductionCostRatio), cake.ProductionCostRatio.String())
	assert.Contains(t, w.Body.String(), `"productionCost":3.5`, "decimals are JSON numbers")

	w = env.do(t, http.MethodGet, "/products/"+cake.ID+"/cost", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var breakdown dto.CostBreakdownResponse
	decode(t, w, &breakdown)
	require.Len(t, breakdown.Lines, 2)
	assert.Equal(t, "Flour", breakdown.Lines[0].ComponentName)
	assert.True(t, decimal.RequireFromString("2.5").Equal(breakdown.Lines[0].Cost))

	// Price change propagates.
	w = env.do(t, http.MethodPut, "/components/"+flour.ID, map[string]any{"price": 10})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = env.do(t, http.MethodGet, "/products/"+cake.ID, nil)
	decode(t, w, &cake)
	assert.True(t, decimal.RequireFromString("6").Equal(cake.ProductionCost), cake.ProductionCost.String())

	w = env.do(t, http.MethodGet, "/products/"+cake.ID+"/cost-history", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var history dto.CostHistoryListResponse
	decode(t, w, &history)
	assert.GreaterOrEqual(t, len(history.History), 2)

	w = env.do(t, http.MethodGet, "/products/"+cake.ID+"/cost-sheet", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF-")))
}

func TestProductErrors(t *testing.T) {
	env := setup(t)
	flour := env.createComponent(t, "Flour", 5, 1000, "G")

	w := env.createProduct(t, map[string]any{
		"name": "Bad", "category": "Cakes", "yield": 1, "unitOfMeasure": "UND",
		"components": []any{line(flour.ID, 1, "L")},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "unit_mismatch")

	w = env.createProduct(t, map[string]any{
		"name": "Ghost", "category": "Cakes", "yield": 1, "unitOfMeasure": "UND",
		"components": []any{line("7b0e4f64-8c1c-4f3f-9a55-3f8f2d9f1a10", 1, "G")},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "unresolved_reference")

	w = env.do(t, http.MethodGet, "/products/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodGet, "/products/7b0e4f64-8c1c-4f3f-9a55-3f8f2d9f1a10", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCycleRejected(t *testing.T) {
	env := setup(t)
	flour := env.createComponent(t, "Flour", 5, 1000, "G")

	w := env.createProduct(t, map[string]any{
		"name": "Dough", "category": "Bases", "yield": 1000, "unitOfMeasure": "G", "isComponent": true,
		"components": []any{line(flour.ID, 1000, "G")},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var dough dto.ProductResponse
	decode(t, w, &dough)

	w = env.createProduct(t, map[string]any{
		"name": "Pie", "category": "Cakes", "yield": 1, "unitOfMeasure": "UND", "isComponent": true,
		"components": []any{line(dough.ID, 300, "G")},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var pie dto.ProductResponse
	decode(t, w, &pie)

	w = env.do(t, http.MethodPut, "/products/"+dough.ID, map[string]any{
		"components": []any{line(flour.ID, 1000, "G"), line(pie.ID, 1, "UND")},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "cyclic_bill_of_materials")
}

func TestNumericBoundsRejected(t *testing.T) {
	env := setup(t)
	flour := env.createComponent(t, "Flour", 5, 1000, "G")

	component := func(price, pkg float64) map[string]any {
		return map[string]any{
			"name": "Salt", "manufacturer": "ACME", "price": price, "packageQuantity": pkg,
			"unitOfMeasure": "G", "category": "Dry",
		}
	}
	w := env.do(t, http.MethodPost, "/components", component(1, 0.0004))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"path":["packageQuantity"]`)

	w = env.do(t, http.MethodPost, "/components", component(1e10, 1))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"path":["price"]`)

	w = env.do(t, http.MethodPut, "/components/"+flour.ID, map[string]any{"packageQuantity": 0.0004})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.createProduct(t, map[string]any{
		"name": "Bread", "category": "Bakery", "yield": 0.0004, "unitOfMeasure": "UND",
		"components": []any{line(flour.ID, 500, "G")},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"path":["yield"]`)

	w = env.createProduct(t, map[string]any{
		"name": "Bread", "category": "Bakery", "yield": 1, "unitOfMeasure": "UND",
		"components": []any{line(flour.ID, 0.0004, "G")},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"path":["components","0","quantity"]`)
}

func TestComponentDeleteAndDuplicate(t *testing.T) {
	env := setup(t)
	flour := env.createComponent(t, "Flour", 5, 1000, "G")

	w := env.do(t, http.MethodPost, "/components", map[string]any{
		"name": "flour", "manufacturer": "ACME", "price": 1, "packageQuantity": 1,
		"unitOfMeasure": "G", "category": "Dry",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "Component with this name and manufacturer already exists")

	w = env.createProduct(t, map[string]any{
		"name": "Bread", "category": "Bakery", "yield": 1, "unitOfMeasure": "UND",
		"components": []any{line(flour.ID, 500, "G")},
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = env.do(t, http.MethodDelete, "/components/"+flour.ID, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "referential_integrity")
}

func TestListingAndSearch(t *testing.T) {
	env := setup(t)
	env.createComponent(t, "Flour", 5, 1000, "G")
	env.createComponent(t, "Cocoa", 12, 500, "G")

	w := env.do(t, http.MethodGet, "/components?page=1&limit=1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list dto.ComponentListResponse
	decode(t, w, &list)
	assert.Len(t, list.Components, 1)
	assert.Equal(t, int64(2), list.Pagination.Total)
	assert.Equal(t, 2, list.Pagination.TotalPages)

	w = env.do(t, http.MethodGet, "/components/search?name=COC", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var found []dto.ComponentResponse
	decode(t, w, &found)
	require.Len(t, found, 1)
	assert.Equal(t, "Cocoa", found[0].Name)

	w = env.do(t, http.MethodGet, "/components/categories", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `["Dry"]`, w.Body.String())

	w = env.do(t, http.MethodGet, "/components/search", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodGet, "/components?limit=1000", nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &list)
	assert.Len(t, list.Components, 2)
	assert.Equal(t, 1, list.Pagination.TotalPages)

	w = env.do(t, http.MethodGet, "/components?limit=1001", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"path":["limit"]`)
}

func TestRecalculate_Enqueues(t *testing.T) {
	env := setup(t)
	w := env.do(t, http.MethodPost, "/products/recalculate", nil)
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, []string{env.userID}, env.queue.requests)
}
