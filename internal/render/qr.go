// internal/render/qr.go
package render

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nayuki/qrcodegen"
	"github.com/nayuki/qrcodegen/qrcodeecc"
	"github.com/shopspring/decimal"

	"quadica-engraving-core/internal/coreerr"
)

// QSAURL builds the design-level QR payload: the stored QSA ID is
// preserved upper-case everywhere else, but the URL path is always
// lower-cased (§4.C, §8 "QSA URL").
func QSAURL(qsaID string) string {
	return fmt.Sprintf("quadi.ca/%s", strings.ToLower(qsaID))
}

// QR renders a QR code for qsaID as an SVG <g> fragment, one <rect>
// per dark module, scaled to fit within a sizeMM x sizeMM square and
// positioned with its top-left corner at originXY.
func QR(qsaID string, sizeMM decimal.Decimal, originXY Point) (string, error) {
	if qsaID == "" {
		return "", fmt.Errorf("render: empty QR payload: %w", coreerr.ErrInvalidData)
	}
	url := QSAURL(qsaID)

	qr, err := qrcodegen.EncodeText(url, qrcodeecc.Medium)
	if err != nil {
		if errors.Is(err, qrcodegen.ErrDataTooLong) {
			return "", fmt.Errorf("render: QR payload %q: %w", url, coreerr.ErrDataTooLong)
		}
		return "", fmt.Errorf("render: QR encode failed: %w", err)
	}

	size := qr.Size()
	moduleMM := sizeMM.Div(decimal.NewFromInt(int64(size)))

	var sb strings.Builder
	fmt.Fprintf(&sb, `<g transform="translate(%s,%s)">`, originXY.X.StringFixed(4), originXY.Y.StringFixed(4))
	for y := int32(0); y < size; y++ {
		for x := int32(0); x < size; x++ {
			if !qr.GetModule(x, y) {
				continue
			}
			mx := moduleMM.Mul(decimal.NewFromInt(int64(x)))
			my := moduleMM.Mul(decimal.NewFromInt(int64(y)))
			fmt.Fprintf(&sb, `<rect x="%s" y="%s" width="%s" height="%s" fill="#000000"/>`,
				mx.StringFixed(4), my.StringFixed(4), moduleMM.StringFixed(4), moduleMM.StringFixed(4))
		}
	}
	sb.WriteString(`</g>`)

	return sb.String(), nil
}
