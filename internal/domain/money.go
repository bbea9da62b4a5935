package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// All monetary amounts inside the engine are signed int64 centavos
// (1 peso = 100 centavos). Decimal values exist only at the API and
// config boundary; nothing downstream of these helpers touches a
// fractional peso.

var centavosPerPeso = decimal.NewFromInt(100)

// PesosToCentavos converts a display-unit peso amount to centavos,
// rounding half away from zero.
func PesosToCentavos(pesos decimal.Decimal) int64 {
	return pesos.Mul(centavosPerPeso).Round(0).IntPart()
}

// CentavosToPesos converts centavos to an exact two-decimal peso amount.
func CentavosToPesos(centavos int64) decimal.Decimal {
	return decimal.New(centavos, -2)
}

// ParsePesos parses a peso string (e.g. "914.30") into centavos.
func ParsePesos(s string) (int64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid amount %q", ErrInvalidInput, s)
	}
	if d.Exponent() < -2 {
		return 0, fmt.Errorf("%w: amount %q has sub-centavo precision", ErrInvalidInput, s)
	}
	return PesosToCentavos(d), nil
}

// FormatPesos renders centavos as a fixed two-decimal peso string.
func FormatPesos(centavos int64) string {
	return CentavosToPesos(centavos).StringFixed(2)
}

// ApplyRate multiplies a centavo amount by a rational rate (e.g. a 0.05
// monthly penalty rate) and rounds the result back to whole centavos.
func ApplyRate(centavos int64, rate decimal.Decimal) int64 {
	return decimal.NewFromInt(centavos).Mul(rate).Round(0).IntPart()
}
