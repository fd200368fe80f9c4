// internal/engrave/entrypoint.go
package engrave

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"quadica-engraving-core/internal/batchsort"
	"quadica-engraving-core/internal/coreerr"
	"quadica-engraving-core/internal/lifecycle"
	"quadica-engraving-core/internal/model"
	"quadica-engraving-core/internal/render"
	"quadica-engraving-core/internal/repository"
	"quadica-engraving-core/internal/sku"
	"quadica-engraving-core/internal/utils"
)

// Result is the Engrave Entry Point's response shape (§4.L).
type Result struct {
	SVG          string
	Serials      []model.Serial
	ArtifactPath string
}

// Engraver is the §4.L Engrave Entry Point, tying SKU resolution,
// array breakdown, the lifecycle state machine, and the SVG assembler
// together into a single RPC.
type Engraver struct {
	rows       repository.RowRepository
	resolver   *sku.Resolver
	lifecycle  *lifecycle.StateMachine
	assembler  *render.Assembler
	sink       ArtifactSink
	rotation   decimal.Decimal
	calibXMM   decimal.Decimal
	calibYMM   decimal.Decimal
	logger     *utils.ServiceLogger
}

// NewEngraver constructs an Engrave Entry Point.
func NewEngraver(
	rows repository.RowRepository,
	resolver *sku.Resolver,
	lc *lifecycle.StateMachine,
	assembler *render.Assembler,
	sink ArtifactSink,
	defaultRotationDeg float64,
	calibrationOffsetXMM float64,
	calibrationOffsetYMM float64,
	logger *zap.Logger,
) *Engraver {
	return &Engraver{
		rows:      rows,
		resolver:  resolver,
		lifecycle: lc,
		assembler: assembler,
		sink:      sink,
		rotation:  decimal.NewFromFloat(defaultRotationDeg),
		calibXMM:  decimal.NewFromFloat(calibrationOffsetXMM),
		calibYMM:  decimal.NewFromFloat(calibrationOffsetYMM),
		logger:    utils.NewServiceLogger(logger, "engrave"),
	}
}

// Engrave resolves a QSA row's module composition, reserves serials
// for it via the lifecycle state machine, renders the array SVG, and
// writes the result to the configured artifact sink.
func (e *Engraver) Engrave(ctx context.Context, batchID uuid.UUID, qsaSequence uint32, startPosition int) (*Result, error) {
	if startPosition < 1 || startPosition > 8 {
		return nil, fmt.Errorf("start position %d out of range 1..8: %w", startPosition, coreerr.ErrInvalidStartPosition)
	}

	row, err := e.rows.GetRow(ctx, batchID, qsaSequence)
	if err != nil {
		return nil, fmt.Errorf("load row: %w", err)
	}

	resolved := make([]batchsort.ResolvedModule, 0, len(row.SKUComposition))
	var design model.DesignKey
	for i, rawSKU := range row.SKUComposition {
		res, err := e.resolver.Resolve(ctx, rawSKU)
		if err != nil {
			return nil, fmt.Errorf("resolve sku %q: %w", rawSKU, err)
		}
		if res == nil {
			e.logger.LogDatabaseQuery("unresolved_sku_dropped", []interface{}{rawSKU}, 0, nil)
			continue
		}
		if len(resolved) == 0 {
			design = res.Design()
		}
		resolved = append(resolved, batchsort.ResolvedModule{
			ModuleSelection: model.ModuleSelection{
				SKU:         res.CanonicalSKU,
				OriginalSKU: res.OriginalSKU,
			},
			CanonicalSKU:     res.CanonicalSKU,
			OriginalPosition: i,
		})
	}

	ordered := batchsort.SortForLEDTransitions(resolved)
	placements := batchsort.BreakDown(ordered, startPosition)

	skusWithPositions := make([]repository.SKUPosition, 0, len(placements))
	for _, p := range placements {
		skusWithPositions = append(skusWithPositions, repository.SKUPosition{
			SKU:            p.Module.CanonicalSKU,
			OriginalSKU:    p.Module.OriginalSKU,
			ModulePosition: p.Position,
		})
	}

	startResult := e.lifecycle.Start(ctx, batchID, qsaSequence, skusWithPositions)
	if !startResult.Success {
		return nil, fmt.Errorf("reserve serials for engrave: %w", startResult.Err)
	}

	serialByPosition := make(map[int]model.Serial, len(startResult.Serials))
	for _, s := range startResult.Serials {
		serialByPosition[s.ModulePosition] = s
	}

	content := render.ArrayContent{
		QSAID:            qsaID(design, qsaSequence),
		RotationDeg:      e.rotation,
		VerticalOffsetMM: decimal.Zero,
		CalibrationXMM:   e.calibXMM,
		CalibrationYMM:   e.calibYMM,
		Modules:          make(map[int]render.ModuleContent, len(placements)),
	}

	for _, p := range placements {
		serial, ok := serialByPosition[p.Position]
		if !ok {
			continue
		}
		content.Modules[p.Position] = render.ModuleContent{
			SerialInteger: serial.SerialInteger,
			ModuleID:      p.Module.CanonicalSKU,
			SerialURL:     render.QSAURL(content.QSAID),
		}
	}

	svg, err := e.assembler.Assemble(design, content)
	if err != nil {
		// Compensation (§4.L): an assembly failure after serial
		// reservation must not leave an orphan reservation behind.
		if voidResult := e.lifecycle.Abort(ctx, batchID, qsaSequence); !voidResult.Success {
			e.logger.LogDatabaseQuery("compensation_void_failed", nil, 0, voidResult.Err)
		}
		return nil, fmt.Errorf("assemble array svg: %w", err)
	}

	artifactPath, err := e.sink.Write(batchID, qsaSequence, svg)
	if err != nil {
		if voidResult := e.lifecycle.Abort(ctx, batchID, qsaSequence); !voidResult.Success {
			e.logger.LogDatabaseQuery("compensation_void_failed", nil, 0, voidResult.Err)
		}
		return nil, fmt.Errorf("write artifact: %w", err)
	}

	return &Result{
		SVG:          svg,
		Serials:      startResult.Serials,
		ArtifactPath: artifactPath,
	}, nil
}

// qsaID formats the stored QSA ID {CANON}{rev?}{NNNNN} per §3, zero
// padded to five digits. Case is preserved here; only render.QSAURL
// lowercases it for the URL path.
func qsaID(design model.DesignKey, qsaSequence uint32) string {
	return fmt.Sprintf("%s%05d", design.String(), qsaSequence)
}
