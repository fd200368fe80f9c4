// internal/render/transform.go
package render

import "github.com/shopspring/decimal"

// Point is a millimetre-precision 2D coordinate.
type Point struct {
	X decimal.Decimal
	Y decimal.Decimal
}

// CanvasSize is the fixed physical engraving area, used to flip the
// CAD Y axis into SVG's top-down Y axis and to clamp stray geometry.
type CanvasSize struct {
	WidthMM  decimal.Decimal
	HeightMM decimal.Decimal
}

// CADToSVG converts a CAD-coordinate point (Y increases upward) into
// an SVG-coordinate point (Y increases downward), applying a
// calibration offset (dx, dy) before the flip and clamping the result
// to the canvas bounds (§4.E, §4.K).
func CADToSVG(cad Point, canvas CanvasSize, calibrationOffsetXMM, calibrationOffsetYMM decimal.Decimal) Point {
	adjustedX := cad.X.Add(calibrationOffsetXMM)
	adjustedY := cad.Y.Add(calibrationOffsetYMM)
	svgY := canvas.HeightMM.Sub(adjustedY)

	p := Point{X: adjustedX, Y: svgY}
	return clamp(p, canvas)
}

func clamp(p Point, canvas CanvasSize) Point {
	zero := decimal.Zero
	if p.X.LessThan(zero) {
		p.X = zero
	}
	if p.X.GreaterThan(canvas.WidthMM) {
		p.X = canvas.WidthMM
	}
	if p.Y.LessThan(zero) {
		p.Y = zero
	}
	if p.Y.GreaterThan(canvas.HeightMM) {
		p.Y = canvas.HeightMM
	}
	return p
}
