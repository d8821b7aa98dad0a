package services

import (
	"github.com/shopspring/decimal"
)

// PlatformFeeBasisPoints is the share of each sale retained by the platform (10%).
const PlatformFeeBasisPoints int64 = 1000

const (
	basisPointsPerUnit = 10000
	minorUnitExponent  = 2
)

// MaxMinorUnits is the largest total a decimal(12,2) price column can hold
const MaxMinorUnits int64 = 999999999999

var minorUnitsPerMajor = decimal.New(1, minorUnitExponent)

// Split is a sale amount divided between platform and seller, in minor units.
// PlatformFee + SellerAmount == Total always holds.
type Split struct {
	Total        int64
	PlatformFee  int64
	SellerAmount int64
}

// TotalDecimal returns the total in major units
func (s Split) TotalDecimal() decimal.Decimal { return FromMinorUnits(s.Total) }

// FeeDecimal returns the platform fee in major units
func (s Split) FeeDecimal() decimal.Decimal { return FromMinorUnits(s.PlatformFee) }

// SellerDecimal returns the seller share in major units
func (s Split) SellerDecimal() decimal.Decimal { return FromMinorUnits(s.SellerAmount) }

// ToMinorUnits converts a positive price with at most two decimals into
// minor units.
func ToMinorUnits(price decimal.Decimal) (int64, error) {
	if !price.IsPositive() {
		return 0, invalidRequest("price must be positive, got %s", price.String())
	}
	minor := price.Mul(minorUnitsPerMajor)
	if !minor.Equal(minor.Truncate(0)) {
		return 0, invalidRequest("price %s has more than %d decimal places", price.String(), minorUnitExponent)
	}
	if minor.GreaterThan(decimal.NewFromInt(MaxMinorUnits)) {
		return 0, invalidRequest("price %s exceeds the maximum of %s", price.String(), FromMinorUnits(MaxMinorUnits).StringFixed(2))
	}
	return minor.IntPart(), nil
}

// FromMinorUnits converts minor units back into a two-decimal amount
func FromMinorUnits(minor int64) decimal.Decimal {
	return decimal.New(minor, -minorUnitExponent)
}

// SplitMinor divides total minor units. The fee is rounded half up on
// integer minor units and the seller receives the remainder. Whole multiples
// of basisPointsPerUnit are split before rounding so no int64 total overflows.
func SplitMinor(total int64) Split {
	whole, rest := total/basisPointsPerUnit, total%basisPointsPerUnit
	fee := whole*PlatformFeeBasisPoints + (rest*PlatformFeeBasisPoints+basisPointsPerUnit/2)/basisPointsPerUnit
	return Split{
		Total:        total,
		PlatformFee:  fee,
		SellerAmount: total - fee,
	}
}

// CalculateSplit validates price and splits it
func CalculateSplit(price decimal.Decimal) (Split, error) {
	total, err := ToMinorUnits(price)
	if err != nil {
		return Split{}, err
	}
	return SplitMinor(total), nil
}
