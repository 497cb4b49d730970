// Package apierror provides standardized error response structures for the API.
// All errors returned to clients go through this package to ensure consistency
// and to prevent leaking internal details (stack traces, DB errors, etc.).
package apierror

// Machine-readable error kinds. Clients switch on these, never on Message.
const (
	KindValidation           = "validation"
	KindUnauthorized         = "unauthorized"
	KindNotFound             = "not_found"
	KindConflict             = "conflict"
	KindDuplicateComponent   = "duplicate_component"
	KindReferentialIntegrity = "referential_integrity"
	KindUnresolvedReference  = "unresolved_reference"
	KindUnitMismatch         = "unit_mismatch"
	KindCyclicBOM            = "cyclic_bill_of_materials"
	KindInvalidYield         = "invalid_yield"
	KindInvalidPackage       = "invalid_package_quantity"
	KindRateLimited          = "rate_limited"
	KindInternal             = "internal"
)

// APIError is the canonical error envelope for all 4xx/5xx HTTP responses.
type APIError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func New(kind, msg string) *APIError {
	return &APIError{Kind: kind, Message: msg}
}

// FieldError points at one offending request field.
type FieldError struct {
	Path    []string `json:"path"`
	Message string   `json:"message"`
}

// ValidationError wraps multiple field errors.
type ValidationError struct {
	Kind    string       `json:"kind"`
	Message string       `json:"message"`
	Details []FieldError `json:"details"`
}

func NewValidation(details []FieldError) *ValidationError {
	return &ValidationError{Kind: KindValidation, Message: "Validation failed", Details: details}
}
