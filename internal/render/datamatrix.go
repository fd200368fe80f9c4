// internal/render/datamatrix.go
package render

import (
	"fmt"
	"strings"

	"github.com/ericlevine/zxinggo/datamatrix/encoder"
	"github.com/shopspring/decimal"

	"quadica-engraving-core/internal/coreerr"
)

// DataMatrixModuleMM is the physical size of one Data Matrix module.
var DataMatrixModuleMM = decimal.NewFromFloat(0.2)

// DataMatrix renders an ECC-200 Data Matrix for contents as an SVG <g>
// fragment, one <rect> per dark module, positioned with its top-left
// corner at originXY (§4.B).
func DataMatrix(contents string, originXY Point) (string, error) {
	if len(contents) == 0 {
		return "", fmt.Errorf("render: empty Data Matrix contents: %w", coreerr.ErrInvalidData)
	}

	matrix, err := encoder.Encode(contents)
	if err != nil {
		return "", fmt.Errorf("render: Data Matrix encode failed for %q: %w", contents, err)
	}

	width := matrix.Width()
	height := matrix.Height()

	var sb strings.Builder
	fmt.Fprintf(&sb, `<g transform="translate(%s,%s)">`, originXY.X.StringFixed(4), originXY.Y.StringFixed(4))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if !matrix.Get(x, y) {
				continue
			}
			mx := DataMatrixModuleMM.Mul(decimal.NewFromInt(int64(x)))
			my := DataMatrixModuleMM.Mul(decimal.NewFromInt(int64(y)))
			fmt.Fprintf(&sb, `<rect x="%s" y="%s" width="%s" height="%s" fill="#000000"/>`,
				mx.StringFixed(4), my.StringFixed(4), DataMatrixModuleMM.StringFixed(4), DataMatrixModuleMM.StringFixed(4))
		}
	}
	sb.WriteString(`</g>`)

	return sb.String(), nil
}
