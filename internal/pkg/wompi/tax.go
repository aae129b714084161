package wompi

import "github.com/shopspring/decimal"

// IVARate is Colombia's standard VAT rate.
const IVARate = 0.19

// CalculateIVA returns the tax on an amount of COP pesos at the given
// fractional rate. Rounding is half-up and happens only at the final step.
func CalculateIVA(amount int64, rate float64) int64 {
	tax := decimal.NewFromInt(amount).Mul(decimal.NewFromFloat(rate))
	return tax.Round(0).IntPart()
}

// CalculateTotalWithIVA returns amount plus tax, computed as a single
// multiplication so no intermediate rounding can drift the total by a peso.
func CalculateTotalWithIVA(amount int64, rate float64) int64 {
	total := decimal.NewFromInt(amount).
		Mul(decimal.NewFromFloat(1).Add(decimal.NewFromFloat(rate)))
	return total.Round(0).IntPart()
}

// FormatCOPAmount converts COP pesos to the provider's cents convention.
// The peso has no usable fractional unit here, so the conversion is a plain
// multiplication.
func FormatCOPAmount(amount int64) int64 {
	return amount * 100
}
