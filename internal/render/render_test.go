package render

import (
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"quadica-engraving-core/internal/coreerr"
)

func TestQSAURL_Lowercases(t *testing.T) {
	got := QSAURL("STAR00123")
	want := "quadi.ca/star00123"
	if got != want {
		t.Errorf("QSAURL: got %q want %q", got, want)
	}
}

func TestQR_EmptyPayloadIsInvalidData(t *testing.T) {
	_, err := QR("", decimal.NewFromFloat(10), Point{})
	if !errors.Is(err, coreerr.ErrInvalidData) {
		t.Fatalf("QR(\"\"): got %v want ErrInvalidData", err)
	}
}

func TestQR_RendersGroupWithRects(t *testing.T) {
	svg, err := QR("STAR00123", decimal.NewFromFloat(10), Point{X: decimal.Zero, Y: decimal.Zero})
	if err != nil {
		t.Fatalf("QR: unexpected error: %v", err)
	}
	if !strings.HasPrefix(svg, "<g transform=") {
		t.Errorf("QR output does not start with a <g> wrapper: %s", svg[:min(40, len(svg))])
	}
	if !strings.Contains(svg, "<rect") {
		t.Errorf("QR output has no <rect> elements")
	}
}

func TestDataMatrix_EmptyContentsIsInvalidData(t *testing.T) {
	_, err := DataMatrix("", Point{})
	if !errors.Is(err, coreerr.ErrInvalidData) {
		t.Fatalf("DataMatrix(\"\"): got %v want ErrInvalidData", err)
	}
}

func TestText_CentersAroundOrigin(t *testing.T) {
	out := Text("AB", decimal.NewFromFloat(2), decimal.NewFromInt(1), decimal.Zero, Point{X: decimal.Zero, Y: decimal.Zero})
	if !strings.Contains(out, "<text") {
		t.Errorf("Text output has no <text> elements: %s", out)
	}
	if strings.Count(out, "<text") != 2 {
		t.Errorf("Text(\"AB\",...) expected 2 <text> elements, got %d", strings.Count(out, "<text"))
	}
}

func TestText_EmptyStringRendersNothing(t *testing.T) {
	out := Text("", decimal.NewFromFloat(2), decimal.NewFromInt(1), decimal.Zero, Point{})
	if out != "" {
		t.Errorf("Text(\"\") expected empty output, got %q", out)
	}
}

func TestCADToSVG_FlipsYAndClamps(t *testing.T) {
	canvas := CanvasSize{WidthMM: decimal.NewFromFloat(50), HeightMM: decimal.NewFromFloat(30)}

	p := CADToSVG(Point{X: decimal.NewFromFloat(5), Y: decimal.NewFromFloat(5)}, canvas, decimal.Zero, decimal.Zero)
	wantY := decimal.NewFromFloat(25) // 30 - 5
	if !p.Y.Equal(wantY) {
		t.Errorf("CADToSVG Y flip: got %s want %s", p.Y, wantY)
	}

	// Point beyond the canvas in CAD space should clamp into bounds.
	outOfBounds := CADToSVG(Point{X: decimal.NewFromFloat(-10), Y: decimal.NewFromFloat(1000)}, canvas, decimal.Zero, decimal.Zero)
	if outOfBounds.X.IsNegative() {
		t.Errorf("CADToSVG should clamp negative X, got %s", outOfBounds.X)
	}
	if outOfBounds.Y.GreaterThan(canvas.HeightMM) {
		t.Errorf("CADToSVG should clamp Y to canvas height, got %s", outOfBounds.Y)
	}
}

func TestCADToSVG_AppliesCalibrationOffsetBeforeFlip(t *testing.T) {
	canvas := CanvasSize{WidthMM: decimal.NewFromFloat(50), HeightMM: decimal.NewFromFloat(30)}

	p := CADToSVG(Point{X: decimal.NewFromFloat(5), Y: decimal.NewFromFloat(5)}, canvas,
		decimal.NewFromFloat(2), decimal.NewFromFloat(3))

	wantX := decimal.NewFromFloat(7)  // 5 + 2
	wantY := decimal.NewFromFloat(22) // 30 - (5 + 3)
	if !p.X.Equal(wantX) {
		t.Errorf("CADToSVG X calibration: got %s want %s", p.X, wantX)
	}
	if !p.Y.Equal(wantY) {
		t.Errorf("CADToSVG Y calibration: got %s want %s", p.Y, wantY)
	}
}

func TestIsQuarterTurn(t *testing.T) {
	cases := map[string]bool{
		"0":   false,
		"90":  true,
		"180": false,
		"270": true,
		"360": false,
		"-90": true,
	}
	for degStr, want := range cases {
		d, err := decimal.NewFromString(degStr)
		if err != nil {
			t.Fatalf("bad fixture %q: %v", degStr, err)
		}
		if got := isQuarterTurn(d); got != want {
			t.Errorf("isQuarterTurn(%s): got %v want %v", degStr, got, want)
		}
	}
}
