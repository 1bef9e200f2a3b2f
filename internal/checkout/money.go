package checkout

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// ToMinorUnits converts a major-unit amount (19.99) to integer minor units
// (1999). Rounding is half away from zero, which for prices (always positive)
// means half-up; every call site that submits to the processor goes through
// this one function.
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(hundred).Round(0).IntPart()
}
