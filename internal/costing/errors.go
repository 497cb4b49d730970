package costing

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var ErrUnknownUnit = errors.New("unknown unit of measure")

// UnresolvedReferenceError: a BOM line points at nothing usable.
type UnresolvedReferenceError struct {
	ProductID   uuid.UUID
	ComponentID uuid.UUID
	Reason      string
}

func (e *UnresolvedReferenceError) Error() string {
	if e.ComponentID == uuid.Nil {
		return fmt.Sprintf("product %s: %s", e.ProductID, e.Reason)
	}
	return fmt.Sprintf("product %s: reference %s %s", e.ProductID, e.ComponentID, e.Reason)
}

// UnitMismatchError: a line's unit cannot be converted into the unit of the
// referenced item.
type UnitMismatchError struct {
	ProductID   uuid.UUID
	ComponentID uuid.UUID
	From        Unit
	To          Unit
}

func (e *UnitMismatchError) Error() string {
	msg := fmt.Sprintf("unit %s (%s) cannot be converted to %s (%s)", e.From, e.From.Family(), e.To, e.To.Family())
	if e.ProductID != uuid.Nil {
		msg = fmt.Sprintf("product %s, reference %s: %s", e.ProductID, e.ComponentID, msg)
	}
	return msg
}

// Node names one product on a cycle path.
type Node struct {
	ID   uuid.UUID
	Name string
}

// CyclicBillOfMaterialsError: Cycle starts and ends with the same product.
type CyclicBillOfMaterialsError struct {
	Cycle []Node
}

func (e *CyclicBillOfMaterialsError) Error() string {
	names := make([]string, len(e.Cycle))
	for i, n := range e.Cycle {
		names[i] = n.Name
	}
	return "bill of materials cycle: " + strings.Join(names, " -> ")
}

type InvalidYieldError struct {
	ProductID uuid.UUID
	Yield     decimal.Decimal
}

func (e *InvalidYieldError) Error() string {
	return fmt.Sprintf("product %s: yield must be positive, got %s", e.ProductID, e.Yield)
}

// InvalidPackageError: a component with a non-positive package quantity has
// no unit cost.
type InvalidPackageError struct {
	ComponentID     uuid.UUID
	PackageQuantity decimal.Decimal
}

func (e *InvalidPackageError) Error() string {
	return fmt.Sprintf("component %s: package quantity must be positive, got %s", e.ComponentID, e.PackageQuantity)
}
