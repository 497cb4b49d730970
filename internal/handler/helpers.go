package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"candycost/internal/apierror"
	"candycost/internal/costing"
	"candycost/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

var validate = validator.New()

func init() {
	// Register decimal.Decimal as a numeric type so that validator tags like
	// min=0, gt=0 work without panicking ("Bad field type decimal.Decimal").
	validate.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if v, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := v.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})

	// Report fields by their JSON names, or query names for query DTOs.
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" {
			name = strings.SplitN(f.Tag.Get("form"), ",", 2)[0]
		}
		if name == "-" {
			return ""
		}
		return name
	})

	_ = validate.RegisterValidation("uom", func(fl validator.FieldLevel) bool {
		_, err := costing.ParseUnit(fl.Field().String())
		return err == nil
	})
	_ = validate.RegisterValidation("base_uom", func(fl validator.FieldLevel) bool {
		u, err := costing.ParseUnit(fl.Field().String())
		return err == nil && u.IsBase()
	})
	_ = validate.RegisterValidation("decimal", fitsNumeric)
}

// fitsNumeric implements decimal=P:S, the bounds of a numeric(P,S) column:
// at most S fractional digits and P-S integer digits.
func fitsNumeric(fl validator.FieldLevel) bool {
	precision, scale, ok := numericParam(fl.Param())
	if !ok {
		return false
	}
	d, ok := rawDecimal(fl)
	if !ok {
		return false
	}
	if !d.Equal(d.Truncate(scale)) {
		return false
	}
	return d.Abs().LessThan(decimal.New(1, precision-scale))
}

func numericParam(param string) (precision, scale int32, ok bool) {
	p, s, found := strings.Cut(param, ":")
	if !found {
		return 0, 0, false
	}
	pi, err1 := strconv.Atoi(p)
	si, err2 := strconv.Atoi(s)
	if err1 != nil || err2 != nil || si < 0 || pi <= si {
		return 0, 0, false
	}
	return int32(pi), int32(si), true
}

// rawDecimal reads the field straight from its parent struct: the custom
// type func above hands tag validators a lossy float64.
func rawDecimal(fl validator.FieldLevel) (decimal.Decimal, bool) {
	parent := fl.Parent()
	for parent.Kind() == reflect.Ptr {
		if parent.IsNil() {
			return decimal.Decimal{}, false
		}
		parent = parent.Elem()
	}
	if parent.Kind() != reflect.Struct {
		return decimal.Decimal{}, false
	}
	f := parent.FieldByName(fl.StructFieldName())
	if f.Kind() == reflect.Ptr {
		if f.IsNil() {
			return decimal.Decimal{}, false
		}
		f = f.Elem()
	}
	if !f.IsValid() || !f.CanInterface() {
		return decimal.Decimal{}, false
	}
	d, ok := f.Interface().(decimal.Decimal)
	return d, ok
}

// bindAndValidate binds JSON body and runs go-playground/validator tags.
// Returns false and writes the error response if validation fails;
// the caller should return immediately without writing another response.
func bindAndValidate(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, apierror.NewValidation([]apierror.FieldError{
			{Path: []string{}, Message: "malformed JSON body: " + err.Error()},
		}))
		return false
	}
	return runValidation(c, req)
}

// bindQuery is bindAndValidate for query strings.
func bindQuery(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindQuery(req); err != nil {
		c.JSON(http.StatusBadRequest, apierror.NewValidation([]apierror.FieldError{
			{Path: []string{}, Message: "invalid query: " + err.Error()},
		}))
		return false
	}
	return runValidation(c, req)
}

func runValidation(c *gin.Context, req interface{}) bool {
	err := validate.Struct(req)
	if err == nil {
		return true
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		c.JSON(http.StatusBadRequest, apierror.NewValidation([]apierror.FieldError{{Path: []string{}, Message: err.Error()}}))
		return false
	}
	details := make([]apierror.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		details = append(details, apierror.FieldError{Path: fieldPath(fe.Namespace()), Message: fieldMessage(fe)})
	}
	c.JSON(http.StatusBadRequest, apierror.NewValidation(details))
	return false
}

// fieldPath turns "CreateProductRequest.components[0].quantity" into
// ["components", "0", "quantity"].
func fieldPath(ns string) []string {
	parts := strings.Split(ns, ".")
	if len(parts) > 1 {
		parts = parts[1:]
	}
	path := make([]string, 0, len(parts))
	for _, p := range parts {
		for p != "" {
			open := strings.IndexByte(p, '[')
			if open < 0 {
				path = append(path, p)
				break
			}
			if open > 0 {
				path = append(path, p[:open])
			}
			end := strings.IndexByte(p, ']')
			if end < open {
				path = append(path, p[open:])
				break
			}
			path = append(path, p[open+1:end])
			p = p[end+1:]
		}
	}
	return path
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email"
	case "uuid":
		return "must be a valid id"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at least %s characters", fe.Param())
		}
		return "must be at least " + fe.Param()
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at most %s characters", fe.Param())
		}
		return "must be at most " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	case "uom":
		return "unknown unit of measure"
	case "base_uom":
		return "must be one of G, ML, UND"
	case "decimal":
		if precision, scale, ok := numericParam(fe.Param()); ok {
			return fmt.Sprintf("must have at most %d integer digits and %d decimal places", precision-scale, scale)
		}
	}
	return "is invalid (" + fe.Tag() + ")"
}

// parseID reads the :id path parameter.
func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.NewValidation([]apierror.FieldError{
			{Path: []string{"id"}, Message: "must be a valid id"},
		}))
		return uuid.Nil, false
	}
	return id, true
}

// respondError maps service and costing errors onto the API envelope.
// Anything unrecognized is handed to the ErrorHandler middleware as a 500.
func respondError(c *gin.Context, err error) {
	var (
		notFound   *service.NotFoundError
		duplicate  *service.DuplicateComponentError
		referenced *service.ReferentialIntegrityError
		unresolved *costing.UnresolvedReferenceError
		mismatch   *costing.UnitMismatchError
		cycle      *costing.CyclicBillOfMaterialsError
		yield      *costing.InvalidYieldError
		pkg        *costing.InvalidPackageError
	)
	switch {
	case errors.As(err, &notFound):
		c.JSON(http.StatusNotFound, apierror.New(apierror.KindNotFound, notFound.Error()))
	case errors.As(err, &duplicate):
		c.JSON(http.StatusConflict, apierror.New(apierror.KindDuplicateComponent, duplicate.Error()))
	case errors.As(err, &referenced):
		c.JSON(http.StatusConflict, apierror.New(apierror.KindReferentialIntegrity, referenced.Error()))
	case errors.Is(err, service.ErrUserExists):
		c.JSON(http.StatusConflict, apierror.New(apierror.KindConflict, "User already exists"))
	case errors.Is(err, service.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, apierror.New(apierror.KindUnauthorized, "Invalid email or password"))
	case errors.Is(err, service.ErrInvalidToken):
		c.JSON(http.StatusUnauthorized, apierror.New(apierror.KindUnauthorized, "Invalid or expired token"))
	case errors.As(err, &unresolved):
		c.JSON(http.StatusUnprocessableEntity, apierror.New(apierror.KindUnresolvedReference, unresolved.Error()))
	case errors.As(err, &mismatch):
		c.JSON(http.StatusUnprocessableEntity, apierror.New(apierror.KindUnitMismatch, mismatch.Error()))
	case errors.As(err, &cycle):
		c.JSON(http.StatusUnprocessableEntity, apierror.New(apierror.KindCyclicBOM, cycle.Error()))
	case errors.As(err, &yield):
		c.JSON(http.StatusUnprocessableEntity, apierror.New(apierror.KindInvalidYield, yield.Error()))
	case errors.As(err, &pkg):
		c.JSON(http.StatusUnprocessableEntity, apierror.New(apierror.KindInvalidPackage, pkg.Error()))
	case errors.Is(err, costing.ErrUnknownUnit):
		c.JSON(http.StatusBadRequest, apierror.NewValidation([]apierror.FieldError{
			{Path: []string{"unitOfMeasure"}, Message: err.Error()},
		}))
	case errors.Is(err, context.Canceled):
		log.Debug().Str("path", c.FullPath()).Msg("request cancelled by client")
		c.Abort()
	default:
		_ = c.Error(err)
	}
}
