// internal/render/text.go
package render

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// glyphAspectRatio approximates the width/height ratio of the thin
// sans geometry used for module_id, serial_url, and LED code text.
var glyphAspectRatio = decimal.NewFromFloat(0.6)

// Text renders s as a row of per-character SVG <text> elements,
// horizontally centered around originXY, baseline-centered vertically,
// with character advance scaled by trackingMultiplier and the whole
// row rotated rotationDeg about originXY (§4.D).
func Text(s string, heightMM decimal.Decimal, trackingMultiplier decimal.Decimal, rotationDeg decimal.Decimal, originXY Point) string {
	if len(s) == 0 {
		return ""
	}

	glyphWidth := heightMM.Mul(glyphAspectRatio)
	advance := glyphWidth.Mul(trackingMultiplier)
	centerSpan := advance.Mul(decimal.NewFromInt(int64(len(s) - 1)))
	startX := centerSpan.Div(decimal.NewFromInt(2)).Neg()

	var sb strings.Builder
	fmt.Fprintf(&sb, `<g transform="translate(%s,%s) rotate(%s)">`,
		originXY.X.StringFixed(4), originXY.Y.StringFixed(4), rotationDeg.StringFixed(2))

	for i, r := range s {
		x := startX.Add(advance.Mul(decimal.NewFromInt(int64(i))))
		fmt.Fprintf(&sb,
			`<text x="%s" y="0" font-family="sans-serif" font-weight="300" font-size="%s" text-anchor="middle" dominant-baseline="middle">%s</text>`,
			x.StringFixed(4), heightMM.StringFixed(4), escapeXML(string(r)))
	}

	sb.WriteString(`</g>`)
	return sb.String()
}

func escapeXML(s string) string {
	r := strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
	)
	return r.Replace(s)
}
