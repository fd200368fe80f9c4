package microid

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"quadica-engraving-core/internal/coreerr"
)

func countOn(g *Grid) int {
	n := 0
	for row := 0; row < GridSize; row++ {
		for col := 0; col < GridSize; col++ {
			if g[row][col] {
				n++
			}
		}
	}
	return n
}

func TestEncode_CanonicalFixture(t *testing.T) {
	g, err := Encode(123454)
	if err != nil {
		t.Fatalf("Encode(123454) returned error: %v", err)
	}

	for _, c := range anchorCells {
		if !g[c.row][c.col] {
			t.Errorf("anchor (%d,%d) expected ON", c.row, c.col)
		}
	}

	if g[parityCell.row][parityCell.col] {
		t.Errorf("parity cell expected OFF (0) for n=123454, got ON")
	}

	wantBits := "00011110001000111110"
	for i, c := range dataCells {
		want := wantBits[i] == '1'
		if got := g[c.row][c.col]; got != want {
			t.Errorf("data bit %d at (%d,%d): got %v want %v", 19-i, c.row, c.col, got, want)
		}
	}

	decoded, err := Decode(g)
	if err != nil {
		t.Fatalf("Decode of canonical fixture failed: %v", err)
	}
	if decoded != 123454 {
		t.Errorf("Decode round-trip: got %d want 123454", decoded)
	}
}

func TestEncode_BoundaryMin(t *testing.T) {
	g, err := Encode(MinValue)
	if err != nil {
		t.Fatalf("Encode(%d) returned error: %v", MinValue, err)
	}
	// 4 anchors + 1 data bit + 1 parity = 6 on-grid cells, plus the
	// always-on orientation mark makes 7 total ON cells (§8).
	if got := countOn(g); got != 6 {
		t.Errorf("on-grid ON count for n=1: got %d want 6", got)
	}
	dots := Dots(g, Point{X: decimal.Zero, Y: decimal.Zero})
	if len(dots) != 7 {
		t.Errorf("total ON cells (incl. orientation) for n=1: got %d want 7", len(dots))
	}
}

func TestEncode_BoundaryMax(t *testing.T) {
	g, err := Encode(MaxValue)
	if err != nil {
		t.Fatalf("Encode(%d) returned error: %v", MaxValue, err)
	}
	// All 20 data bits ON + 4 anchors + parity 0 = 24 on-grid, plus
	// orientation = 25 total (§8).
	if got := countOn(g); got != 24 {
		t.Errorf("on-grid ON count for n=MaxValue: got %d want 24", got)
	}
	dots := Dots(g, Point{X: decimal.Zero, Y: decimal.Zero})
	if len(dots) != 25 {
		t.Errorf("total ON cells (incl. orientation) for n=MaxValue: got %d want 25", len(dots))
	}
}

func TestEncode_OutOfRange(t *testing.T) {
	cases := []uint32{0, MaxValue + 1}
	for _, n := range cases {
		_, err := Encode(n)
		if err == nil {
			t.Fatalf("Encode(%d) expected OutOfRange error, got nil", n)
		}
		if !errors.Is(err, coreerr.ErrOutOfRange) {
			t.Errorf("Encode(%d) error %v does not wrap ErrOutOfRange", n, err)
		}
	}
}

func TestRoundTrip_FullRange(t *testing.T) {
	// Exhaustive round-trip over the full 20-bit range would be slow
	// in CI; sample densely enough to catch any off-by-one in the bit
	// table while keeping the test fast.
	step := uint32(997) // coprime-ish stride for spread coverage
	for n := MinValue; n <= MaxValue; n += step {
		g, err := Encode(n)
		if err != nil {
			t.Fatalf("Encode(%d) unexpected error: %v", n, err)
		}
		decoded, err := Decode(g)
		if err != nil {
			t.Fatalf("Decode(Encode(%d)) unexpected error: %v", n, err)
		}
		if decoded != n {
			t.Fatalf("round-trip mismatch: Encode(%d) -> Decode -> %d", n, decoded)
		}
	}
}

func TestDecode_AnchorError(t *testing.T) {
	g, err := Encode(123454)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	g[0][0] = false
	if _, err := Decode(g); !errors.Is(err, coreerr.ErrAnchorError) {
		t.Errorf("Decode with broken anchor: got %v want ErrAnchorError", err)
	}
}

func TestDecode_ParityError(t *testing.T) {
	g, err := Encode(123454)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	g[parityCell.row][parityCell.col] = !g[parityCell.row][parityCell.col]
	if _, err := Decode(g); !errors.Is(err, coreerr.ErrParityError) {
		t.Errorf("Decode with flipped parity: got %v want ErrParityError", err)
	}
}

func TestDots_OrientationMarkAlwaysPresent(t *testing.T) {
	g, err := Encode(1)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	origin := Point{X: decimal.NewFromFloat(10), Y: decimal.NewFromFloat(20)}
	dots := Dots(g, origin)
	last := dots[len(dots)-1]
	wantX := origin.X.Add(OrientationOffsetXMM)
	wantY := origin.Y.Add(OrientationOffsetYMM)
	if !last.X.Equal(wantX) || !last.Y.Equal(wantY) {
		t.Errorf("orientation mark position: got (%s,%s) want (%s,%s)", last.X, last.Y, wantX, wantY)
	}
}
