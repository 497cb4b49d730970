package costing

import (
	"candycost/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func component(name, price, pkg, unit string) model.Component {
	return model.Component{
		ID:              uuid.New(),
		Name:            name,
		Manufacturer:    "Acme",
		Price:           d(price),
		PackageQuantity: d(pkg),
		UnitOfMeasure:   unit,
		Category:        "Dry",
	}
}

func product(name, yield, unit string, isComponent bool, lines ...model.ProductLine) model.Product {
	p := model.Product{
		ID:            uuid.New(),
		Name:          name,
		Category:      "Cakes",
		Yield:         d(yield),
		UnitOfMeasure: unit,
		IsComponent:   isComponent,
	}
	for i := range lines {
		lines[i].ProductID = p.ID
		lines[i].Position = i
	}
	p.Lines = lines
	return p
}

func line(ref uuid.UUID, qty, unit string) model.ProductLine {
	return model.ProductLine{ID: uuid.New(), ComponentID: ref, Quantity: d(qty), UnitOfMeasure: unit}
}
