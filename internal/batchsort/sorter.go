// internal/batchsort/sorter.go
package batchsort

import (
	"sort"

	"quadica-engraving-core/internal/model"
)

// ResolvedModule is a ModuleSelection after SKU resolution, carrying
// the canonical SKU the sorter and array breakdown operate on.
type ResolvedModule struct {
	model.ModuleSelection
	CanonicalSKU    string
	OriginalPosition int
}

// ArrayPlacement is one module assigned to a position within one
// array of an engraving run.
type ArrayPlacement struct {
	ArrayIndex int
	Position   int
	Module     ResolvedModule
}

// BreakDown computes the array breakdown for n modules given a start
// position in 1..=8, per §4.H: the first array receives min(n, 9 -
// start) modules at positions start..=8, and every subsequent array
// takes 8 modules at positions 1..=8, wrapping with no overflow error.
func BreakDown(modules []ResolvedModule, startPosition int) []ArrayPlacement {
	if len(modules) == 0 {
		return nil
	}

	placements := make([]ArrayPlacement, 0, len(modules))
	arrayIndex := 0
	position := startPosition

	for _, m := range modules {
		placements = append(placements, ArrayPlacement{
			ArrayIndex: arrayIndex,
			Position:   position,
			Module:     m,
		})

		position++
		if position > 8 {
			position = 1
			arrayIndex++
		}
	}

	return placements
}

// ArrayCount reports the total number of arrays n modules occupy
// starting at startPosition, matching §4.H's closed-form formula.
func ArrayCount(n int, startPosition int) int {
	if n <= 0 {
		return 0
	}
	firstArray := 9 - startPosition
	if n <= firstArray {
		return 1
	}
	remaining := n - firstArray
	return 1 + ceilDiv(remaining, 8)
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}

// SortForLEDTransitions permutes modules to minimize the LED-bin
// transition cost of §4.H, then applies the SKU-then-original-position
// stable tie-break. The input size in a single array is small (≤8),
// so an exact permutation search is used rather than a greedy
// heuristic — correctness over asymptotic elegance at this scale.
func SortForLEDTransitions(modules []ResolvedModule) []ResolvedModule {
	if len(modules) <= 1 {
		return append([]ResolvedModule(nil), modules...)
	}

	indices := make([]int, len(modules))
	for i := range indices {
		indices[i] = i
	}

	best := append([]int(nil), indices...)
	bestCost := transitionCost(modules, best)

	permute(indices, 0, func(order []int) {
		cost := transitionCost(modules, order)
		if cost < bestCost || (cost == bestCost && lessStable(modules, order, best)) {
			bestCost = cost
			best = append([]int(nil), order...)
		}
	})

	ordered := make([]ResolvedModule, len(modules))
	for i, idx := range best {
		ordered[i] = modules[idx]
	}
	return ordered
}

// transitionCost computes Σ over adjacent pairs |LEDs(next) \
// LEDs(current)| for the given ordering, order-dependent per §4.H.
func transitionCost(modules []ResolvedModule, order []int) int {
	cost := 0
	for i := 0; i < len(order)-1; i++ {
		current := ledSet(modules[order[i]].LEDCodes)
		next := modules[order[i+1]].LEDCodes
		for _, code := range next {
			if _, ok := current[code]; !ok {
				cost++
			}
		}
	}
	return cost
}

func lessStable(modules []ResolvedModule, a, b []int) bool {
	for i := range a {
		ma, mb := modules[a[i]], modules[b[i]]
		if ma.CanonicalSKU != mb.CanonicalSKU {
			return ma.CanonicalSKU < mb.CanonicalSKU
		}
		if ma.OriginalPosition != mb.OriginalPosition {
			return ma.OriginalPosition < mb.OriginalPosition
		}
	}
	return false
}

func permute(indices []int, k int, visit func([]int)) {
	if k == len(indices) {
		visit(indices)
		return
	}
	for i := k; i < len(indices); i++ {
		indices[k], indices[i] = indices[i], indices[k]
		permute(indices, k+1, visit)
		indices[k], indices[i] = indices[i], indices[k]
	}
}

func ledSet(codes []string) map[string]struct{} {
	set := make(map[string]struct{}, len(codes))
	for _, c := range codes {
		set[c] = struct{}{}
	}
	return set
}

// GroupAdjacent collapses rows whose composition is a single identical
// canonical SKU and whose qsa_sequences are adjacent into Groups,
// per §3 "Row grouping".
func GroupAdjacent(rows []model.Row, canonicalSKU func(row model.Row) (string, bool)) []model.Group {
	sort.Slice(rows, func(i, j int) bool { return rows[i].QSASequence < rows[j].QSASequence })

	var groups []model.Group
	for _, row := range rows {
		sku, ok := canonicalSKU(row)
		if !ok {
			continue
		}

		if n := len(groups); n > 0 {
			last := &groups[n-1]
			lastSeq := last.QSASequences[len(last.QSASequences)-1]
			if last.SKU == sku && row.QSASequence == lastSeq+1 {
				last.QSASequences = append(last.QSASequences, row.QSASequence)
				last.TotalQty += row.Qty
				continue
			}
		}

		groups = append(groups, model.Group{
			BatchID:      row.BatchID,
			SKU:          sku,
			QSASequences: []uint32{row.QSASequence},
			TotalQty:     row.Qty,
		})
	}

	for i := range groups {
		groups[i].Arrays = ArrayCount(int(groups[i].TotalQty), 1)
	}

	return groups
}
