// internal/batchsort/sorter_test.go
package batchsort

import (
	"testing"

	"github.com/google/uuid"

	"quadica-engraving-core/internal/model"
)

func mod(sku string, pos int, leds ...string) ResolvedModule {
	return ResolvedModule{
		ModuleSelection:  model.ModuleSelection{SKU: sku, LEDCodes: leds},
		CanonicalSKU:     sku,
		OriginalPosition: pos,
	}
}

func TestArrayCount_SingleArrayWhenFits(t *testing.T) {
	if got := ArrayCount(5, 4); got != 1 {
		t.Errorf("ArrayCount(5, 4) = %d, want 1", got)
	}
}

func TestArrayCount_MultipleArraysWithWrap(t *testing.T) {
	// start=1: first array holds 8, remaining 10-8=2 needs 1 more array.
	if got := ArrayCount(10, 1); got != 2 {
		t.Errorf("ArrayCount(10, 1) = %d, want 2", got)
	}
}

func TestArrayCount_ExactBoundary(t *testing.T) {
	// start=5: first array holds 9-5=4. n=4 fits exactly in one array.
	if got := ArrayCount(4, 5); got != 1 {
		t.Errorf("ArrayCount(4, 5) = %d, want 1", got)
	}
	// n=5 needs a second array.
	if got := ArrayCount(5, 5); got != 2 {
		t.Errorf("ArrayCount(5, 5) = %d, want 2", got)
	}
}

func TestBreakDown_WrapsPositions(t *testing.T) {
	modules := make([]ResolvedModule, 10)
	for i := range modules {
		modules[i] = mod("STAR-00001", i)
	}

	placements := BreakDown(modules, 7)

	if len(placements) != 10 {
		t.Fatalf("expected 10 placements, got %d", len(placements))
	}
	// start=7: first array holds positions 7,8 (9-7=2 modules), then wraps to 1.
	if placements[0].Position != 7 || placements[0].ArrayIndex != 0 {
		t.Errorf("placement 0 = %+v, want position 7 array 0", placements[0])
	}
	if placements[1].Position != 8 || placements[1].ArrayIndex != 0 {
		t.Errorf("placement 1 = %+v, want position 8 array 0", placements[1])
	}
	if placements[2].Position != 1 || placements[2].ArrayIndex != 1 {
		t.Errorf("placement 2 = %+v, want position 1 array 1", placements[2])
	}
}

func TestSortForLEDTransitions_MinimizesCost(t *testing.T) {
	a := mod("AAAA-00001", 0, "L1", "L2")
	b := mod("BBBB-00001", 1, "L2", "L3")
	c := mod("CCCC-00001", 2, "L1", "L2")

	// a -> c has 0 new LEDs (c's LEDs subset of a's); a -> b and c -> b have
	// 1 new (L3); b -> a has 1 new (L1). So [a, c, b] costs 1, [a, b, c]
	// costs 2, and the sorted order must not cost more than the input [b, a, c].
	ordered := SortForLEDTransitions([]ResolvedModule{b, a, c})

	cost := transitionCost(ordered, []int{0, 1, 2})
	naiveCost := transitionCost([]ResolvedModule{b, a, c}, []int{0, 1, 2})

	if cost > naiveCost {
		t.Errorf("sorted cost %d should not exceed naive cost %d", cost, naiveCost)
	}
}

func TestSortForLEDTransitions_OrderDependent(t *testing.T) {
	a := mod("AAAA-00001", 0, "L1")
	b := mod("BBBB-00001", 1, "L1", "L2")

	forward := transitionCost([]ResolvedModule{a, b}, []int{0, 1})
	backward := transitionCost([]ResolvedModule{b, a}, []int{0, 1})

	if forward == backward {
		t.Errorf("expected order-dependent cost, got forward=%d backward=%d", forward, backward)
	}
}

func TestSortForLEDTransitions_SingleModule(t *testing.T) {
	a := mod("AAAA-00001", 0, "L1")
	ordered := SortForLEDTransitions([]ResolvedModule{a})
	if len(ordered) != 1 || ordered[0].SKU != "AAAA-00001" {
		t.Errorf("unexpected result for single module: %+v", ordered)
	}
}

func TestGroupAdjacent_CollapsesIdenticalAdjacentSKUs(t *testing.T) {
	batchID := uuid.New()
	rows := []model.Row{
		{BatchID: batchID, QSASequence: 1, SKUComposition: []string{"STARa-00001"}, Qty: 3},
		{BatchID: batchID, QSASequence: 2, SKUComposition: []string{"STARa-00001"}, Qty: 4},
		{BatchID: batchID, QSASequence: 4, SKUComposition: []string{"STARa-00001"}, Qty: 2},
	}

	groups := GroupAdjacent(rows, func(r model.Row) (string, bool) {
		if len(r.SKUComposition) != 1 {
			return "", false
		}
		return r.SKUComposition[0], true
	})

	if len(groups) != 2 {
		t.Fatalf("expected 2 groups (sequence 4 is not adjacent to 2), got %d: %+v", len(groups), groups)
	}
	if groups[0].TotalQty != 7 || len(groups[0].QSASequences) != 2 {
		t.Errorf("unexpected first group: %+v", groups[0])
	}
	if groups[1].TotalQty != 2 || len(groups[1].QSASequences) != 1 {
		t.Errorf("unexpected second group: %+v", groups[1])
	}
}
