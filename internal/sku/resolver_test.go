// internal/sku/resolver_test.go
package sku

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"quadica-engraving-core/internal/model"
)

type fakeMappingRepo struct {
	rows  []model.SKUMapping
	calls int
}

func (f *fakeMappingRepo) ListActive(ctx context.Context) ([]model.SKUMapping, error) {
	f.calls++
	return f.rows, nil
}

func (f *fakeMappingRepo) Create(ctx context.Context, m model.SKUMapping) error { return nil }

func (f *fakeMappingRepo) Deactivate(ctx context.Context, pattern string, matchType model.MatchType) error {
	return nil
}

func TestResolve_NativeSKU(t *testing.T) {
	r := NewResolver(&fakeMappingRepo{}, zap.NewNop())

	res, err := r.Resolve(context.Background(), "STARa-00123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res == nil {
		t.Fatal("expected a resolution, got nil")
	}
	if res.CanonicalCode != "STAR" || res.Revision != "a" || res.ConfigNumber != "00123" || res.IsLegacy {
		t.Errorf("unexpected resolution: %+v", res)
	}
}

func TestResolve_NativeSKU_NoRevision(t *testing.T) {
	r := NewResolver(&fakeMappingRepo{}, zap.NewNop())

	res, err := r.Resolve(context.Background(), "MOON-54321")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.CanonicalCode != "MOON" || res.Revision != "" {
		t.Errorf("unexpected resolution: %+v", res)
	}
}

func TestResolve_LegacyExactBeatsPrefix(t *testing.T) {
	repo := &fakeMappingRepo{rows: []model.SKUMapping{
		{Pattern: "OLD-SKU-123", MatchType: model.MatchPrefix, CanonicalCode: "AAAA", Priority: 1, Active: true},
		{Pattern: "OLD-SKU-123", MatchType: model.MatchExact, CanonicalCode: "BBBB", Priority: 200, Active: true},
	}}
	r := NewResolver(repo, zap.NewNop())

	res, err := r.Resolve(context.Background(), "OLD-SKU-123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res == nil || res.CanonicalCode != "BBBB" {
		t.Fatalf("expected exact match to win, got %+v", res)
	}
	if !res.IsLegacy || res.CanonicalSKU != "BBBB-LEGAC" {
		t.Errorf("unexpected legacy resolution: %+v", res)
	}
}

func TestResolve_LegacyWithinTypeLowestPriorityWins(t *testing.T) {
	repo := &fakeMappingRepo{rows: []model.SKUMapping{
		{Pattern: "OLD", MatchType: model.MatchPrefix, CanonicalCode: "AAAA", Priority: 50, Active: true},
		{Pattern: "OLD", MatchType: model.MatchPrefix, CanonicalCode: "BBBB", Priority: 5, Active: true},
	}}
	r := NewResolver(repo, zap.NewNop())

	res, err := r.Resolve(context.Background(), "OLD-SKU-999")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res == nil || res.CanonicalCode != "BBBB" {
		t.Fatalf("expected lowest-priority prefix match to win, got %+v", res)
	}
}

func TestResolve_Unmatched_ReturnsNilNoError(t *testing.T) {
	r := NewResolver(&fakeMappingRepo{}, zap.NewNop())

	res, err := r.Resolve(context.Background(), "totally-unrecognized-sku")
	if err != nil {
		t.Fatalf("expected no error for unmatched sku, got %v", err)
	}
	if res != nil {
		t.Errorf("expected nil resolution for unmatched sku, got %+v", res)
	}
}

func TestResolve_MemoizesMappingTableLoad(t *testing.T) {
	repo := &fakeMappingRepo{rows: []model.SKUMapping{
		{Pattern: "OLD", MatchType: model.MatchPrefix, CanonicalCode: "AAAA", Priority: 1, Active: true},
	}}
	r := NewResolver(repo, zap.NewNop())

	if _, err := r.Resolve(context.Background(), "OLD-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := r.Resolve(context.Background(), "OLD-2"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if repo.calls != 1 {
		t.Errorf("expected mapping table to load once, got %d calls", repo.calls)
	}
}

func TestInvalidate_ForcesReload(t *testing.T) {
	repo := &fakeMappingRepo{rows: []model.SKUMapping{
		{Pattern: "OLD", MatchType: model.MatchPrefix, CanonicalCode: "AAAA", Priority: 1, Active: true},
	}}
	r := NewResolver(repo, zap.NewNop())

	if _, err := r.Resolve(context.Background(), "OLD-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	r.Invalidate()
	if _, err := r.Resolve(context.Background(), "OLD-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if repo.calls != 2 {
		t.Errorf("expected mapping table to reload after invalidation, got %d calls", repo.calls)
	}
}

func TestValidateMatchType_RejectsBadRegex(t *testing.T) {
	m := model.SKUMapping{Pattern: "(unclosed", MatchType: model.MatchRegex}
	if err := ValidateMatchType(m); err == nil {
		t.Fatal("expected error for invalid regex pattern")
	}
}

func TestValidateMatchType_AcceptsValidRegex(t *testing.T) {
	m := model.SKUMapping{Pattern: "^OLD-.*$", MatchType: model.MatchRegex}
	if err := ValidateMatchType(m); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
