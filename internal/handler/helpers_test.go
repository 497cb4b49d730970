package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"candycost/internal/apierror"
	"candycost/internal/costing"
	"candycost/internal/dto"
	"candycost/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFieldPath(t *testing.T) {
	assert.Equal(t, []string{"components", "0", "quantity"}, fieldPath("CreateProductRequest.components[0].quantity"))
	assert.Equal(t, []string{"name"}, fieldPath("CreateComponentRequest.name"))
	assert.Equal(t, []string{"lines", "2"}, fieldPath("X.lines[2]"))
}

func TestValidate_DecimalAndUnitTags(t *testing.T) {
	req := dto.CreateComponentRequest{
		Name: "Sugar", Manufacturer: "Acme", Category: "Dry",
		Price: decimal.NewFromInt(5), PackageQuantity: decimal.NewFromInt(1000), UnitOfMeasure: "G",
	}
	assert.NoError(t, validate.Struct(req))

	req.UnitOfMeasure = "KG"
	assert.Error(t, validate.Struct(req), "components are priced in base units only")

	req.UnitOfMeasure = "ml"
	assert.NoError(t, validate.Struct(req))

	req.PackageQuantity = decimal.Zero
	assert.Error(t, validate.Struct(req))
}

func TestValidate_DecimalFitsColumn(t *testing.T) {
	validComponent := func() dto.CreateComponentRequest {
		return dto.CreateComponentRequest{
			Name: "Sugar", Manufacturer: "Acme", Category: "Dry",
			Price: decimal.RequireFromString("1234567890.12"), PackageQuantity: decimal.RequireFromString("999999999.999"),
			UnitOfMeasure: "G",
		}
	}
	validProduct := func() dto.CreateProductRequest {
		return dto.CreateProductRequest{
			Name: "Cake", Category: "Cakes", UnitOfMeasure: "UND",
			Yield: decimal.RequireFromString("0.001"), SalePrice: decimal.RequireFromString("9.99"),
			Components: []dto.LineRequest{{
				ComponentID: uuid.NewString(), Quantity: decimal.RequireFromString("0.001"), UnitOfMeasure: "G",
			}},
		}
	}
	require.NoError(t, validate.Struct(validComponent()))
	require.NoError(t, validate.Struct(validProduct()))

	d := decimal.RequireFromString
	component := func(f func(*dto.CreateComponentRequest)) any { r := validComponent(); f(&r); return r }
	product := func(f func(*dto.CreateProductRequest)) any { r := validProduct(); f(&r); return r }

	cases := []struct {
		name  string
		value any
		field string
	}{
		{"price scale", component(func(r *dto.CreateComponentRequest) { r.Price = d("1.005") }), "price"},
		{"price overflow", component(func(r *dto.CreateComponentRequest) { r.Price = d("10000000000") }), "price"},
		{"package scale", component(func(r *dto.CreateComponentRequest) { r.PackageQuantity = d("0.0004") }), "packageQuantity"},
		{"package overflow", component(func(r *dto.CreateComponentRequest) { r.PackageQuantity = d("1000000000") }), "packageQuantity"},
		{"yield scale", product(func(r *dto.CreateProductRequest) { r.Yield = d("0.0004") }), "yield"},
		{"yield overflow", product(func(r *dto.CreateProductRequest) { r.Yield = d("1e12") }), "yield"},
		{"sale price scale", product(func(r *dto.CreateProductRequest) { r.SalePrice = d("0.001") }), "salePrice"},
		{"line quantity scale", product(func(r *dto.CreateProductRequest) { r.Components[0].Quantity = d("0.0004") }), "quantity"},
		{"line quantity overflow", product(func(r *dto.CreateProductRequest) { r.Components[0].Quantity = d("1234567890") }), "quantity"},
		{"update price scale", dto.UpdateComponentRequest{Price: ptrDec("0.001")}, "price"},
		{"update package scale", dto.UpdateComponentRequest{PackageQuantity: ptrDec("0.0004")}, "packageQuantity"},
		{"update yield scale", dto.UpdateProductRequest{Yield: ptrDec("0.0004")}, "yield"},
		{"update sale price overflow", dto.UpdateProductRequest{SalePrice: ptrDec("99999999999")}, "salePrice"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := validate.Struct(tc.value)
			var verrs validator.ValidationErrors
			require.ErrorAs(t, err, &verrs)
			require.Len(t, verrs, 1)
			assert.Equal(t, tc.field, verrs[0].Field())
			assert.Equal(t, "decimal", verrs[0].Tag())
			assert.Contains(t, fieldMessage(verrs[0]), "decimal places")
		})
	}

	// Trailing zeros do not count against the scale.
	assert.NoError(t, validate.Struct(component(func(r *dto.CreateComponentRequest) { r.Price = d("1.500") })))
}

func ptrDec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func TestBindQuery_ReportsFormNames(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/l", func(c *gin.Context) {
		var f dto.ListFilter
		if bindQuery(c, &f) {
			c.JSON(http.StatusOK, f)
		}
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/l?limit=1000", nil)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	req, _ = http.NewRequest(http.MethodGet, "/l?limit=1001&page=0", nil)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusBadRequest, w.Code)
	var resp apierror.ValidationError
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	paths := map[string]bool{}
	for _, d := range resp.Details {
		paths[fmt.Sprint(d.Path)] = true
	}
	assert.True(t, paths["[limit]"], "got %v", resp.Details)
	assert.True(t, paths["[page]"], "got %v", resp.Details)
}

func TestBindAndValidate_ReportsPaths(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/p", func(c *gin.Context) {
		var req dto.CreateProductRequest
		if bindAndValidate(c, &req) {
			c.Status(http.StatusOK)
		}
	})

	body := `{"name":"Cake","category":"Cakes","yield":1,"unitOfMeasure":"UND",
	          "components":[{"componentId":"` + uuid.NewString() + `","quantity":0,"unitOfMeasure":"CUP"}]}`
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/p", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
	var resp apierror.ValidationError
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, apierror.KindValidation, resp.Kind)

	paths := map[string]bool{}
	for _, d := range resp.Details {
		paths[fmt.Sprint(d.Path)] = true
	}
	assert.True(t, paths["[components 0 quantity]"], "got %v", resp.Details)
	assert.True(t, paths["[components 0 unitOfMeasure]"], "got %v", resp.Details)
}

func TestRespondError_Mapping(t *testing.T) {
	gin.SetMode(gin.TestMode)
	id := uuid.New()
	cases := []struct {
		err    error
		status int
		kind   string
	}{
		{&service.NotFoundError{Entity: "Product", ID: id}, http.StatusNotFound, apierror.KindNotFound},
		{&service.DuplicateComponentError{}, http.StatusConflict, apierror.KindDuplicateComponent},
		{&service.ReferentialIntegrityError{ID: id, Action: "delete"}, http.StatusConflict, apierror.KindReferentialIntegrity},
		{service.ErrUserExists, http.StatusConflict, apierror.KindConflict},
		{service.ErrInvalidCredentials, http.StatusUnauthorized, apierror.KindUnauthorized},
		{&costing.UnresolvedReferenceError{ProductID: id, ComponentID: id, Reason: "does not exist"}, http.StatusUnprocessableEntity, apierror.KindUnresolvedReference},
		{&costing.UnitMismatchError{ProductID: id, ComponentID: id, From: "G", To: "ML"}, http.StatusUnprocessableEntity, apierror.KindUnitMismatch},
		{&costing.CyclicBillOfMaterialsError{Cycle: []costing.Node{{ID: id, Name: "A"}, {ID: id, Name: "A"}}}, http.StatusUnprocessableEntity, apierror.KindCyclicBOM},
		{&costing.InvalidYieldError{ProductID: id}, http.StatusUnprocessableEntity, apierror.KindInvalidYield},
		{&costing.InvalidPackageError{ComponentID: id}, http.StatusUnprocessableEntity, apierror.KindInvalidPackage},
		{fmt.Errorf("wrapped: %w", costing.ErrUnknownUnit), http.StatusBadRequest, apierror.KindValidation},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprintf("%T", tc.err), func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			respondError(c, tc.err)
			assert.Equal(t, tc.status, w.Code)
			var body struct{ Kind string }
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tc.kind, body.Kind)
		})
	}
}

func TestRespondError_UnknownGoesToErrorHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	respondError(c, errors.New("db exploded"))
	assert.Len(t, c.Errors, 1)
	assert.False(t, c.Writer.Written())
}
