// internal/sku/resolver.go
package sku

import (
	"context"
	"fmt"
	"regexp"
	"sync"

	"go.uber.org/zap"

	"quadica-engraving-core/internal/coreerr"
	"quadica-engraving-core/internal/model"
	"quadica-engraving-core/internal/repository"
)

// nativePattern decomposes a canonical SKU directly: a 4-letter design
// code, an optional single-letter revision, and a 5-digit config
// number.
var nativePattern = regexp.MustCompile(`^([A-Z]{4})([a-z])?-([0-9]{5})$`)

// legacySuffix is the synthetic config number stamped onto a
// resolution produced through the mapping table rather than parsed
// natively.
const legacySuffix = "LEGAC"

// compiledMapping pairs a legacy mapping row with its compiled regex,
// when its match type requires one.
type compiledMapping struct {
	row model.SKUMapping
	re  *regexp.Regexp
}

// Resolver resolves native and legacy SKUs to a canonical Resolution,
// memoizing every lookup per process until the mapping table changes.
type Resolver struct {
	repo   repository.MappingRepository
	logger *zap.Logger

	mu       sync.RWMutex
	mappings []compiledMapping
	loaded   bool

	cache sync.Map // string (input sku) -> *model.Resolution
}

// NewResolver creates a new SKU resolver.
func NewResolver(repo repository.MappingRepository, logger *zap.Logger) *Resolver {
	return &Resolver{repo: repo, logger: logger}
}

// Resolve resolves a SKU to a canonical Resolution. A nil result with
// a nil error means "unmatched" per §4.G — callers must not treat this
// as failure.
func (r *Resolver) Resolve(ctx context.Context, sku string) (*model.Resolution, error) {
	if cached, ok := r.cache.Load(sku); ok {
		return cached.(*model.Resolution), nil
	}

	if res := resolveNative(sku); res != nil {
		r.cache.Store(sku, res)
		return res, nil
	}

	mappings, err := r.mappingTable(ctx)
	if err != nil {
		return nil, fmt.Errorf("load legacy sku mapping table: %w", err)
	}

	res := resolveLegacy(sku, mappings)
	r.cache.Store(sku, res)
	return res, nil
}

// Invalidate drops the per-process memoization and forces the next
// Resolve call to reload the mapping table, per §4.G's "invalidated on
// mapping-table writes" rule.
func (r *Resolver) Invalidate() {
	r.mu.Lock()
	r.loaded = false
	r.mappings = nil
	r.mu.Unlock()

	r.cache.Range(func(key, _ interface{}) bool {
		r.cache.Delete(key)
		return true
	})
}

func (r *Resolver) mappingTable(ctx context.Context) ([]compiledMapping, error) {
	r.mu.RLock()
	if r.loaded {
		defer r.mu.RUnlock()
		return r.mappings, nil
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.loaded {
		return r.mappings, nil
	}

	rows, err := r.repo.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	compiled := make([]compiledMapping, 0, len(rows))
	for _, row := range rows {
		cm := compiledMapping{row: row}
		if row.MatchType == model.MatchRegex {
			re, err := regexp.Compile(row.Pattern)
			if err != nil {
				r.logger.Warn("skipping legacy mapping with invalid regex pattern",
					zap.String("pattern", row.Pattern), zap.Error(err))
				continue
			}
			cm.re = re
		}
		compiled = append(compiled, cm)
	}

	r.mappings = compiled
	r.loaded = true
	return r.mappings, nil
}

// resolveNative attempts the native SKU decomposition. Returns nil
// when the input does not match the native pattern.
func resolveNative(sku string) *model.Resolution {
	m := nativePattern.FindStringSubmatch(sku)
	if m == nil {
		return nil
	}
	return &model.Resolution{
		CanonicalCode: m[1],
		Revision:      m[2],
		IsLegacy:      false,
		CanonicalSKU:  sku,
		OriginalSKU:   sku,
		ConfigNumber:  m[3],
	}
}

// resolveLegacy walks the compiled mapping table in exact > prefix >
// suffix > regex order, lowest priority wins within a type. Returns
// nil when nothing matches.
func resolveLegacy(sku string, mappings []compiledMapping) *model.Resolution {
	var best *compiledMapping

	for i := range mappings {
		cm := &mappings[i]
		if !matches(sku, cm) {
			continue
		}
		if best == nil || isBetter(cm.row, best.row) {
			best = cm
		}
	}

	if best == nil {
		return nil
	}

	design := best.row.DesignKey()
	return &model.Resolution{
		CanonicalCode: design.Code,
		Revision:      design.Revision,
		IsLegacy:      true,
		CanonicalSKU:  fmt.Sprintf("%s-%s", design.String(), legacySuffix),
		OriginalSKU:   sku,
	}
}

// isBetter reports whether candidate outranks current: a lower
// MatchType.Rank wins outright; within the same type, the lower
// Priority value wins.
func isBetter(candidate, current model.SKUMapping) bool {
	if candidate.MatchType.Rank() != current.MatchType.Rank() {
		return candidate.MatchType.Rank() < current.MatchType.Rank()
	}
	return candidate.Priority < current.Priority
}

func matches(sku string, cm *compiledMapping) bool {
	switch cm.row.MatchType {
	case model.MatchExact:
		return sku == cm.row.Pattern
	case model.MatchPrefix:
		return len(sku) >= len(cm.row.Pattern) && sku[:len(cm.row.Pattern)] == cm.row.Pattern
	case model.MatchSuffix:
		return len(sku) >= len(cm.row.Pattern) && sku[len(sku)-len(cm.row.Pattern):] == cm.row.Pattern
	case model.MatchRegex:
		return cm.re != nil && cm.re.MatchString(sku)
	default:
		return false
	}
}

// ValidateMatchType rejects mapping rows at write time whose pattern
// cannot be compiled when match_type is regex, per §4.G.
func ValidateMatchType(m model.SKUMapping) error {
	if m.MatchType != model.MatchExact && m.MatchType != model.MatchPrefix &&
		m.MatchType != model.MatchSuffix && m.MatchType != model.MatchRegex {
		return fmt.Errorf("unknown match type %q: %w", m.MatchType, coreerr.ErrInvalidMatchType)
	}
	if m.MatchType == model.MatchRegex {
		if _, err := regexp.Compile(m.Pattern); err != nil {
			return fmt.Errorf("invalid regex pattern %q: %w", m.Pattern, coreerr.ErrInvalidMatchType)
		}
	}
	return nil
}
