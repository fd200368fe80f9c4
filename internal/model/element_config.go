// internal/model/element_config.go
package model

import (
	"github.com/shopspring/decimal"
)

// ElementConfig is one row of the config store: the placement of a
// single element kind at a single position index within a design.
type ElementConfig struct {
	Design             DesignKey        `json:"design"`
	Position           int              `json:"position" db:"position_index"`
	Kind               ElementKind      `json:"kind" db:"element_kind"`
	OriginXMM          decimal.Decimal  `json:"origin_x_mm" db:"origin_x_mm"`
	OriginYMM          decimal.Decimal  `json:"origin_y_mm" db:"origin_y_mm"`
	RotationDeg        *decimal.Decimal `json:"rotation_deg,omitempty" db:"rotation_deg"`
	ElementSizeMM      *decimal.Decimal `json:"element_size_mm,omitempty" db:"element_size_mm"`
	TextHeightMM       *decimal.Decimal `json:"text_height_mm,omitempty" db:"text_height_mm"`
	TrackingMultiplier *decimal.Decimal `json:"tracking_multiplier,omitempty" db:"tracking_multiplier"`
}

// Validate enforces the position/kind invariant described in §3.
func (c ElementConfig) Validate() error {
	if err := c.Design.Validate(); err != nil {
		return err
	}
	return c.Kind.ValidatePosition(c.Position)
}

// DefaultQRSizeMM is used when an ElementConfig for qr_code omits ElementSizeMM.
var DefaultQRSizeMM = decimal.NewFromFloat(10.0)

// SizeMMOrDefault returns ElementSizeMM, or DefaultQRSizeMM when unset.
func (c ElementConfig) SizeMMOrDefault() decimal.Decimal {
	if c.ElementSizeMM != nil {
		return *c.ElementSizeMM
	}
	return DefaultQRSizeMM
}

// RotationOrZero returns RotationDeg, or zero when unset.
func (c ElementConfig) RotationOrZero() decimal.Decimal {
	if c.RotationDeg != nil {
		return *c.RotationDeg
	}
	return decimal.Zero
}

// TrackingOrOne returns TrackingMultiplier, or 1.0 when unset (no tracking adjustment).
func (c ElementConfig) TrackingOrOne() decimal.Decimal {
	if c.TrackingMultiplier != nil {
		return *c.TrackingMultiplier
	}
	return decimal.NewFromInt(1)
}
