package costing

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Unit is a normalized unit of measure label.
type Unit string

const (
	Milligram  Unit = "MG"
	Gram       Unit = "G"
	Kilogram   Unit = "KG"
	Milliliter Unit = "ML"
	Liter      Unit = "L"
	Each       Unit = "UND"
	Dozen      Unit = "DZ"
)

// Family groups units that convert into each other.
type Family int

const (
	FamilyMass Family = iota + 1
	FamilyVolume
	FamilyCount
)

func (f Family) String() string {
	switch f {
	case FamilyMass:
		return "mass"
	case FamilyVolume:
		return "volume"
	case FamilyCount:
		return "count"
	default:
		return "unknown"
	}
}

type unitInfo struct {
	family Family
	// factor converts one unit into the family base unit (G, ML, UND).
	factor decimal.Decimal
}

var unitTable = map[Unit]unitInfo{
	Milligram:  {FamilyMass, decimal.New(1, -3)},
	Gram:       {FamilyMass, decimal.NewFromInt(1)},
	Kilogram:   {FamilyMass, decimal.NewFromInt(1000)},
	Milliliter: {FamilyVolume, decimal.NewFromInt(1)},
	Liter:      {FamilyVolume, decimal.NewFromInt(1000)},
	Each:       {FamilyCount, decimal.NewFromInt(1)},
	Dozen:      {FamilyCount, decimal.NewFromInt(12)},
}

var unitAliases = map[string]Unit{
	"MG": Milligram,
	"G":  Gram, "GR": Gram, "GRAM": Gram, "GRAMS": Gram,
	"KG": Kilogram, "KILO": Kilogram, "KILOGRAM": Kilogram, "KILOGRAMS": Kilogram,
	"ML": Milliliter, "MILLILITER": Milliliter, "MILLILITERS": Milliliter,
	"L": Liter, "LT": Liter, "LITER": Liter, "LITERS": Liter,
	"UND": Each, "UN": Each, "U": Each, "UNIT": Each, "UNITS": Each,
	"DZ": Dozen, "DOZEN": Dozen,
}

// ParseUnit normalizes a user-supplied label ("g", "Ml", "Und", ...).
func ParseUnit(s string) (Unit, error) {
	u, ok := unitAliases[strings.ToUpper(strings.TrimSpace(s))]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownUnit, s)
	}
	return u, nil
}

// Family reports the conversion family of u, or 0 for unknown units.
func (u Unit) Family() Family { return unitTable[u].family }

// IsBase reports whether u is the base unit of its family. Components and
// products are stored in base units only.
func (u Unit) IsBase() bool {
	info, ok := unitTable[u]
	return ok && info.factor.Equal(decimal.NewFromInt(1))
}

// Convert expresses qty (in from) in the to unit. Units of different families
// never convert.
func Convert(qty decimal.Decimal, from, to Unit) (decimal.Decimal, error) {
	if from == to {
		return qty, nil
	}
	fi, okFrom := unitTable[from]
	ti, okTo := unitTable[to]
	if !okFrom || !okTo || fi.family != ti.family {
		return decimal.Zero, &UnitMismatchError{From: from, To: to}
	}
	return qty.Mul(fi.factor).Div(ti.factor), nil
}
