// internal/repository/decimal_helpers.go
package repository

import "github.com/shopspring/decimal"

// decimalPtr wraps a float64 column value as a *decimal.Decimal for
// the optional mm-precision ElementConfig fields.
func decimalPtr(f float64) *decimal.Decimal {
	d := decimal.NewFromFloat(f)
	return &d
}

// nullableDecimal converts an optional decimal.Decimal field into a
// driver value, passing nil through for unset columns.
func nullableDecimal(d *decimal.Decimal) interface{} {
	if d == nil {
		return nil
	}
	f, _ := d.Float64()
	return f
}
