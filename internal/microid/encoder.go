// internal/microid/encoder.go
package microid

import (
	"fmt"

	"github.com/shopspring/decimal"

	"quadica-engraving-core/internal/coreerr"
)

// GridSize is the Micro-ID dot matrix dimension (5x5).
const GridSize = 5

// DotRadiusMM and DotPitchMM are fixed fabrication constants (§4.A).
var (
	DotRadiusMM = decimal.NewFromFloat(0.05)
	DotPitchMM  = decimal.NewFromFloat(0.225)
)

// OrientationOffsetXMM and OrientationOffsetYMM place the off-grid
// orientation mark relative to the grid origin.
var (
	OrientationOffsetXMM = decimal.NewFromFloat(-0.175)
	OrientationOffsetYMM = decimal.NewFromFloat(0.05)
)

// MinValue and MaxValue bound the 20-bit encodable range.
const (
	MinValue uint32 = 1
	MaxValue uint32 = 1_048_575 // 2^20 - 1
)

// cell is a (row, col) coordinate within the 5x5 grid.
type cell struct {
	row, col int
}

var (
	anchorCells = [4]cell{{0, 0}, {0, 4}, {4, 0}, {4, 4}}
	parityCell  = cell{4, 3}

	// dataCells maps bit index (19 down to 0, by slice position) to its
	// grid cell. This ordering is contractual: it reproduces the
	// fixture at n=123454 from spec §8 exactly and must not be
	// reordered independently of that fixture.
	dataCells = [20]cell{
		{0, 1}, {0, 2}, {0, 3},
		{1, 0}, {1, 1}, {1, 2}, {1, 3}, {1, 4},
		{2, 0}, {2, 1}, {2, 2}, {2, 3}, {2, 4},
		{3, 0}, {3, 1}, {3, 2}, {3, 3}, {3, 4},
		{4, 1}, {4, 2},
	}
)

// Grid is a 5x5 boolean dot matrix; Grid[row][col].
type Grid [GridSize][GridSize]bool

// Point is a millimetre-precision coordinate relative to a grid origin.
type Point struct {
	X decimal.Decimal
	Y decimal.Decimal
}

// Encode turns n into a 5x5 Micro-ID grid: anchors set, 20 data bits
// placed per dataCells, and an even-parity bit computed over anchors
// + data (excluding the orientation mark, which is not part of the
// grid and is always on).
func Encode(n uint32) (*Grid, error) {
	if n < MinValue || n > MaxValue {
		return nil, fmt.Errorf("microid: value %d out of range [%d, %d]: %w", n, MinValue, MaxValue, coreerr.ErrOutOfRange)
	}

	var g Grid
	for _, c := range anchorCells {
		g[c.row][c.col] = true
	}

	onCount := len(anchorCells)
	for i, c := range dataCells {
		bitIndex := 19 - i
		bit := (n>>uint(bitIndex))&1 == 1
		g[c.row][c.col] = bit
		if bit {
			onCount++
		}
	}

	// Even parity: total ON among anchors+data+parity must be even.
	g[parityCell.row][parityCell.col] = onCount%2 != 0

	return &g, nil
}

// Decode reverses Encode, validating anchors and parity. Used for
// tests and decoder tooling.
func Decode(g *Grid) (uint32, error) {
	for _, c := range anchorCells {
		if !g[c.row][c.col] {
			return 0, fmt.Errorf("microid: anchor at (%d,%d) is off: %w", c.row, c.col, coreerr.ErrAnchorError)
		}
	}

	var n uint32
	onCount := len(anchorCells)
	for i, c := range dataCells {
		bitIndex := uint(19 - i)
		if g[c.row][c.col] {
			n |= 1 << bitIndex
			onCount++
		}
	}

	if g[parityCell.row][parityCell.col] {
		onCount++
	}

	if onCount%2 != 0 {
		return 0, fmt.Errorf("microid: parity check failed: %w", coreerr.ErrParityError)
	}

	return n, nil
}

// center returns the mm-precision center of grid cell (row, col)
// relative to the grid's own origin (0,0).
func center(row, col int) Point {
	return Point{
		X: DotRadiusMM.Add(DotPitchMM.Mul(decimal.NewFromInt(int64(col)))),
		Y: DotRadiusMM.Add(DotPitchMM.Mul(decimal.NewFromInt(int64(row)))),
	}
}

// Dots returns the mm-precision center of every ON cell (grid cells
// plus the always-on orientation mark), translated to originXY.
func Dots(g *Grid, originXY Point) []Point {
	var pts []Point
	for row := 0; row < GridSize; row++ {
		for col := 0; col < GridSize; col++ {
			if g[row][col] {
				c := center(row, col)
				pts = append(pts, Point{X: c.X.Add(originXY.X), Y: c.Y.Add(originXY.Y)})
			}
		}
	}
	orientation := Point{X: OrientationOffsetXMM.Add(originXY.X), Y: OrientationOffsetYMM.Add(originXY.Y)}
	pts = append(pts, orientation)
	return pts
}

// RenderSVG renders the grid (plus orientation mark) as filled-circle
// SVG primitives, one <circle> per ON cell, positioned relative to
// originXY.
func RenderSVG(g *Grid, originXY Point) string {
	var sb []byte
	for _, p := range Dots(g, originXY) {
		sb = append(sb, renderDot(p)...)
	}
	return string(sb)
}

func renderDot(p Point) string {
	return fmt.Sprintf(
		`<circle cx="%s" cy="%s" r="%s" fill="#000000" stroke="none"/>`,
		p.X.StringFixed(4), p.Y.StringFixed(4), DotRadiusMM.StringFixed(4),
	)
}
