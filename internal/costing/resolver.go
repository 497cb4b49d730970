// Package costing derives production cost and cost-per-unit for products
// from a bill of materials that mixes raw components and other products.
//
// Everything here is pure: resolution reads a Catalog and never mutates it.
package costing

import (
	"fmt"

	"candycost/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type LineKind string

const (
	LineComponent LineKind = "component"
	LineProduct   LineKind = "product"
)

// LineCost is the priced form of one BOM line.
type LineCost struct {
	ComponentID    uuid.UUID
	Name           string
	Kind           LineKind
	Quantity       decimal.Decimal // as declared on the line
	Unit           Unit
	NativeQuantity decimal.Decimal // in the referenced item's unit
	NativeUnit     Unit
	UnitCost       decimal.Decimal // per native unit
	Cost           decimal.Decimal
}

// Cost is the result of resolving one product.
type Cost struct {
	ProductID           uuid.UUID
	ProductionCost      decimal.Decimal
	ProductionCostRatio decimal.Decimal
	Unit                Unit // unit the ratio is expressed per
	Lines               []LineCost
}

// ResolveCost prices a single product against catalog.
func ResolveCost(productID uuid.UUID, catalog Catalog) (Cost, error) {
	return NewResolver(catalog).Resolve(productID)
}

// Resolver memoizes sub-product costs so pricing many products of one
// snapshot resolves each shared sub-recipe once. Not safe for concurrent use;
// build one per goroutine.
type Resolver struct {
	catalog Catalog
	memo    map[uuid.UUID]Cost
}

func NewResolver(catalog Catalog) *Resolver {
	return &Resolver{catalog: catalog, memo: make(map[uuid.UUID]Cost)}
}

type frame struct {
	product *model.Product
	next    int
	total   decimal.Decimal
	lines   []LineCost
}

func (f *frame) add(lc LineCost) {
	f.lines = append(f.lines, lc)
	f.total = f.total.Add(lc.Cost)
	f.next++
}

// Resolve walks the BOM depth-first with an explicit stack. A product found
// again while it is still on the stack is a cycle.
func (r *Resolver) Resolve(productID uuid.UUID) (Cost, error) {
	if c, ok := r.memo[productID]; ok {
		return c, nil
	}
	root, ok := r.catalog.Product(productID)
	if !ok {
		return Cost{}, &UnresolvedReferenceError{ProductID: productID, Reason: "product does not exist"}
	}

	stack := []*frame{{product: root}}
	onStack := map[uuid.UUID]int{root.ID: 0}

	for len(stack) > 0 {
		f := stack[len(stack)-1]

		if f.next == len(f.product.Lines) {
			cost, err := finish(f)
			if err != nil {
				return Cost{}, err
			}
			r.memo[f.product.ID] = cost
			stack = stack[:len(stack)-1]
			delete(onStack, f.product.ID)
			continue
		}

		line := f.product.Lines[f.next]

		if comp, ok := r.catalog.Component(line.ComponentID); ok {
			lc, err := componentLine(f.product, line, comp)
			if err != nil {
				return Cost{}, err
			}
			f.add(lc)
			continue
		}

		sub, ok := r.catalog.Product(line.ComponentID)
		if !ok {
			return Cost{}, &UnresolvedReferenceError{ProductID: f.product.ID, ComponentID: line.ComponentID, Reason: "does not exist"}
		}
		if !sub.IsComponent {
			return Cost{}, &UnresolvedReferenceError{ProductID: f.product.ID, ComponentID: line.ComponentID, Reason: "is a product not marked as component"}
		}
		if at, ok := onStack[sub.ID]; ok {
			return Cost{}, cycleError(stack[at:], sub)
		}
		if c, ok := r.memo[sub.ID]; ok {
			lc, err := productLine(f.product, line, sub, c)
			if err != nil {
				return Cost{}, err
			}
			f.add(lc)
			continue
		}

		// Descend; this line is priced on the next visit via the memo.
		onStack[sub.ID] = len(stack)
		stack = append(stack, &frame{product: sub})
	}

	return r.memo[productID], nil
}

func finish(f *frame) (Cost, error) {
	p := f.product
	if !p.Yield.IsPositive() {
		return Cost{}, &InvalidYieldError{ProductID: p.ID, Yield: p.Yield}
	}
	unit, err := ParseUnit(p.UnitOfMeasure)
	if err != nil {
		return Cost{}, &UnitMismatchError{ProductID: p.ID, From: Unit(p.UnitOfMeasure), To: Unit(p.UnitOfMeasure)}
	}
	return Cost{
		ProductID:           p.ID,
		ProductionCost:      f.total,
		ProductionCostRatio: f.total.Div(p.Yield),
		Unit:                unit,
		Lines:               f.lines,
	}, nil
}

func componentLine(p *model.Product, line model.ProductLine, c *model.Component) (LineCost, error) {
	if !c.PackageQuantity.IsPositive() {
		return LineCost{}, &InvalidPackageError{ComponentID: c.ID, PackageQuantity: c.PackageQuantity}
	}
	from, native, qty, err := reconcile(p, line, c.UnitOfMeasure)
	if err != nil {
		return LineCost{}, err
	}
	return LineCost{
		ComponentID:    c.ID,
		Name:           c.Name,
		Kind:           LineComponent,
		Quantity:       line.Quantity,
		Unit:           from,
		NativeQuantity: qty,
		NativeUnit:     native,
		UnitCost:       c.Price.Div(c.PackageQuantity),
		// multiply before dividing to keep precision on small unit costs
		Cost: qty.Mul(c.Price).Div(c.PackageQuantity),
	}, nil
}

func productLine(p *model.Product, line model.ProductLine, sub *model.Product, subCost Cost) (LineCost, error) {
	from, native, qty, err := reconcile(p, line, string(subCost.Unit))
	if err != nil {
		return LineCost{}, err
	}
	return LineCost{
		ComponentID:    sub.ID,
		Name:           sub.Name,
		Kind:           LineProduct,
		Quantity:       line.Quantity,
		Unit:           from,
		NativeQuantity: qty,
		NativeUnit:     native,
		UnitCost:       subCost.ProductionCostRatio,
		Cost:           qty.Mul(subCost.ProductionCostRatio),
	}, nil
}

// reconcile converts the line quantity into the referenced item's unit.
func reconcile(p *model.Product, line model.ProductLine, targetUnit string) (from, to Unit, qty decimal.Decimal, err error) {
	mismatch := func() error {
		return &UnitMismatchError{ProductID: p.ID, ComponentID: line.ComponentID, From: Unit(line.UnitOfMeasure), To: Unit(targetUnit)}
	}
	if from, err = ParseUnit(line.UnitOfMeasure); err != nil {
		return "", "", decimal.Zero, mismatch()
	}
	if to, err = ParseUnit(targetUnit); err != nil {
		return "", "", decimal.Zero, mismatch()
	}
	qty, err = Convert(line.Quantity, from, to)
	if err != nil {
		return "", "", decimal.Zero, &UnitMismatchError{ProductID: p.ID, ComponentID: line.ComponentID, From: from, To: to}
	}
	return from, to, qty, nil
}

func cycleError(path []*frame, again *model.Product) error {
	cycle := make([]Node, 0, len(path)+1)
	for _, f := range path {
		cycle = append(cycle, Node{ID: f.product.ID, Name: f.product.Name})
	}
	cycle = append(cycle, Node{ID: again.ID, Name: again.Name})
	return &CyclicBillOfMaterialsError{Cycle: cycle}
}

// String is used in log lines.
func (c Cost) String() string {
	return fmt.Sprintf("cost=%s ratio=%s/%s", c.ProductionCost.StringFixed(4), c.ProductionCostRatio.StringFixed(6), c.Unit)
}
