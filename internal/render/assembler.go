// internal/render/assembler.go
package render

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"quadica-engraving-core/internal/coreerr"
	"quadica-engraving-core/internal/microid"
	"quadica-engraving-core/internal/model"
)

// ConfigProvider resolves the element placement configuration for a
// design. Implemented by internal/configstore; kept as an interface
// here so assembler tests can supply an in-memory fake.
type ConfigProvider interface {
	GetForDesign(design model.DesignKey) ([]model.ElementConfig, error)
}

// ModuleContent is everything the assembler needs to render one
// module slot (position 1..8) of an array, beyond its placement
// configuration.
type ModuleContent struct {
	SerialInteger      uint32
	ModuleID           string
	SerialURL          string
	LEDCodes           [4]string // index 0..3 maps to led_code_1..4; empty string skips that element
	DataMatrixContents string    // empty string skips the Data-Matrix element
}

// ArrayContent is everything the assembler needs to render one
// complete array SVG document (§4.K).
type ArrayContent struct {
	QSAID            string
	RotationDeg      decimal.Decimal
	VerticalOffsetMM decimal.Decimal
	CalibrationXMM   decimal.Decimal
	CalibrationYMM   decimal.Decimal
	Modules          map[int]ModuleContent // keyed by module position 1..8
}

// Assembler composes per-array SVG documents from a design's element
// configuration and the array's runtime content (§2 "SVG Document
// Assembler", §4.K).
type Assembler struct {
	Config ConfigProvider
	Canvas CanvasSize
}

// NewAssembler constructs an Assembler bound to a config provider and
// a fixed physical canvas.
func NewAssembler(cfg ConfigProvider, canvas CanvasSize) *Assembler {
	return &Assembler{Config: cfg, Canvas: canvas}
}

// Assemble renders the full SVG document for one array of design.
func (a *Assembler) Assemble(design model.DesignKey, content ArrayContent) (string, error) {
	cfgs, err := a.Config.GetForDesign(design)
	if err != nil {
		return "", fmt.Errorf("render: loading element config for %s: %w", design, err)
	}

	byPosKind := make(map[int]map[model.ElementKind]model.ElementConfig, len(cfgs))
	for _, c := range cfgs {
		if byPosKind[c.Position] == nil {
			byPosKind[c.Position] = make(map[model.ElementKind]model.ElementConfig)
		}
		byPosKind[c.Position][c.Kind] = c
	}

	canvasWidth, canvasHeight := a.Canvas.WidthMM, a.Canvas.HeightMM
	if isQuarterTurn(content.RotationDeg) {
		canvasWidth, canvasHeight = canvasHeight, canvasWidth
	}

	var body strings.Builder

	body.WriteString(rotationGroupOpen(content.RotationDeg, a.Canvas.WidthMM, a.Canvas.HeightMM))

	fmt.Fprintf(&body, `<g transform="translate(0,%s)">`, content.VerticalOffsetMM.StringFixed(4))

	if qrFrag, err := a.renderQRCode(byPosKind[0], content); err != nil {
		return "", err
	} else if qrFrag != "" {
		body.WriteString(qrFrag)
	}

	for pos := 1; pos <= 8; pos++ {
		mc, ok := content.Modules[pos]
		if !ok {
			continue
		}
		kinds := byPosKind[pos]
		frag, err := a.renderModule(pos, kinds, mc)
		if err != nil {
			return "", fmt.Errorf("render: module at position %d: %w", pos, err)
		}
		body.WriteString(frag)
	}

	body.WriteString(`</g>`) // vertical-offset group
	body.WriteString(`</g>`) // rotation group

	return fmt.Sprintf(
		`<svg xmlns="http://www.w3.org/2000/svg" width="%smm" height="%smm" viewBox="0 0 %s %s">%s</svg>`,
		canvasWidth.StringFixed(2), canvasHeight.StringFixed(2),
		canvasWidth.StringFixed(4), canvasHeight.StringFixed(4),
		body.String(),
	), nil
}

func isQuarterTurn(deg decimal.Decimal) bool {
	mod := deg.Mod(decimal.NewFromInt(360))
	if mod.IsNegative() {
		mod = mod.Add(decimal.NewFromInt(360))
	}
	return mod.Equal(decimal.NewFromInt(90)) || mod.Equal(decimal.NewFromInt(270))
}

// rotationGroupOpen emits the §4.K rotation group. Each angle uses its
// own literal translate+rotate composition rather than a single
// rotate(angle,cx,cy) about the canvas center — the two are only
// equivalent when the canvas is square, and the default canvas isn't.
// W and H are the unrotated canvas width/height.
func rotationGroupOpen(deg, w, h decimal.Decimal) string {
	mod := deg.Mod(decimal.NewFromInt(360))
	if mod.IsNegative() {
		mod = mod.Add(decimal.NewFromInt(360))
	}

	switch {
	case mod.Equal(decimal.NewFromInt(90)):
		return fmt.Sprintf(`<g transform="translate(%s,0) rotate(90)">`, h.StringFixed(4))
	case mod.Equal(decimal.NewFromInt(180)):
		return fmt.Sprintf(`<g transform="translate(%s,%s) rotate(180)">`, w.StringFixed(4), h.StringFixed(4))
	case mod.Equal(decimal.NewFromInt(270)):
		return fmt.Sprintf(`<g transform="translate(0,%s) rotate(270)">`, w.StringFixed(4))
	default:
		return `<g>`
	}
}

func (a *Assembler) renderQRCode(kinds map[model.ElementKind]model.ElementConfig, content ArrayContent) (string, error) {
	cfg, ok := kinds[model.ElementQRCode]
	if !ok {
		return "", nil
	}
	origin := a.transform(cfg, content.CalibrationXMM, content.CalibrationYMM)
	return QR(content.QSAID, cfg.SizeMMOrDefault(), origin)
}

func (a *Assembler) renderModule(pos int, kinds map[model.ElementKind]model.ElementConfig, mc ModuleContent) (string, error) {
	var sb strings.Builder

	microCfg, ok := kinds[model.ElementMicroID]
	if !ok {
		return "", fmt.Errorf("missing Micro-ID config: %w", coreerr.ErrConfigMissing)
	}
	grid, err := microid.Encode(mc.SerialInteger)
	if err != nil {
		return "", err
	}
	origin := a.transform(microCfg, decimal.Zero, decimal.Zero)
	sb.WriteString(microid.RenderSVG(grid, microid.Point{X: origin.X, Y: origin.Y}))

	if dmCfg, ok := kinds[model.ElementDataMatrix]; ok && mc.DataMatrixContents != "" {
		frag, err := DataMatrix(mc.DataMatrixContents, a.transform(dmCfg, decimal.Zero, decimal.Zero))
		if err != nil {
			return "", err
		}
		sb.WriteString(frag)
	}

	if moduleIDCfg, ok := kinds[model.ElementModuleID]; ok && mc.ModuleID != "" {
		sb.WriteString(a.textElement(moduleIDCfg, mc.ModuleID))
	}

	if serialURLCfg, ok := kinds[model.ElementSerialURL]; ok && mc.SerialURL != "" {
		sb.WriteString(a.textElement(serialURLCfg, mc.SerialURL))
	}

	ledKinds := [4]model.ElementKind{model.ElementLEDCode1, model.ElementLEDCode2, model.ElementLEDCode3, model.ElementLEDCode4}
	for i, kind := range ledKinds {
		code := mc.LEDCodes[i]
		if code == "" {
			continue
		}
		cfg, ok := kinds[kind]
		if !ok {
			continue
		}
		sb.WriteString(a.textElement(cfg, code))
	}

	return sb.String(), nil
}

func (a *Assembler) textElement(cfg model.ElementConfig, s string) string {
	origin := a.transform(cfg, decimal.Zero, decimal.Zero)
	height := decimal.NewFromFloat(2.0)
	if cfg.TextHeightMM != nil {
		height = *cfg.TextHeightMM
	}
	return Text(s, height, cfg.TrackingOrOne(), cfg.RotationOrZero(), origin)
}

func (a *Assembler) transform(cfg model.ElementConfig, calibrationXMM, calibrationYMM decimal.Decimal) Point {
	cad := Point{X: cfg.OriginXMM, Y: cfg.OriginYMM}
	return CADToSVG(cad, a.Canvas, calibrationXMM, calibrationYMM)
}
