// internal/configstore/store_test.go
package configstore

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"go.uber.org/zap"

	"quadica-engraving-core/internal/coreerr"
	"quadica-engraving-core/internal/model"
)

type fakeConfigRepo struct {
	calls    int
	getCalls int
	configs  []model.ElementConfig
	err      error
}

func (f *fakeConfigRepo) Get(ctx context.Context, design model.DesignKey, position int, kind model.ElementKind) (*model.ElementConfig, error) {
	f.getCalls++
	if f.err != nil {
		return nil, f.err
	}
	for _, c := range f.configs {
		if c.Position == position && c.Kind == kind {
			cp := c
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("no element config for %s position %d kind %s: %w", design, position, kind, coreerr.ErrConfigMissing)
}

func (f *fakeConfigRepo) GetForDesign(ctx context.Context, design model.DesignKey) ([]model.ElementConfig, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.configs, nil
}

func (f *fakeConfigRepo) Upsert(ctx context.Context, cfg model.ElementConfig) error { return nil }

func (f *fakeConfigRepo) Delete(ctx context.Context, design model.DesignKey, position int, kind model.ElementKind) error {
	return nil
}

func TestGetForDesign_CachesAfterFirstLoad(t *testing.T) {
	repo := &fakeConfigRepo{configs: []model.ElementConfig{{Position: 1, Kind: model.ElementModuleID}}}
	s := NewStore(repo, zap.NewNop())

	design := model.DesignKey{Code: "STAR"}
	if _, err := s.GetForDesign(design); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := s.GetForDesign(design); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if repo.calls != 1 {
		t.Errorf("expected 1 repository call, got %d", repo.calls)
	}
}

func TestUpsert_InvalidatesCache(t *testing.T) {
	repo := &fakeConfigRepo{configs: []model.ElementConfig{{Position: 1, Kind: model.ElementModuleID}}}
	s := NewStore(repo, zap.NewNop())

	design := model.DesignKey{Code: "STAR"}
	if _, err := s.GetForDesign(design); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := s.Upsert(context.Background(), model.ElementConfig{Design: design, Position: 1, Kind: model.ElementModuleID}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := s.GetForDesign(design); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if repo.calls != 2 {
		t.Errorf("expected 2 repository calls after invalidation, got %d", repo.calls)
	}
}

func TestGetForDesign_PropagatesError(t *testing.T) {
	repo := &fakeConfigRepo{err: fmt.Errorf("boom")}
	s := NewStore(repo, zap.NewNop())

	if _, err := s.GetForDesign(model.DesignKey{Code: "STAR"}); err == nil {
		t.Fatal("expected error, got nil")
	}
}

func TestGet_ServesFromCacheWithoutRepoGetCall(t *testing.T) {
	repo := &fakeConfigRepo{configs: []model.ElementConfig{{Position: 1, Kind: model.ElementModuleID}}}
	s := NewStore(repo, zap.NewNop())

	design := model.DesignKey{Code: "STAR"}
	if _, err := s.GetForDesign(design); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cfg, err := s.Get(design, 1, model.ElementModuleID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Position != 1 || cfg.Kind != model.ElementModuleID {
		t.Errorf("unexpected config: %+v", cfg)
	}
	if repo.getCalls != 0 {
		t.Errorf("expected Get to be served from cache, repo.Get called %d times", repo.getCalls)
	}
}

func TestGet_FallsThroughToRepoWhenUncached(t *testing.T) {
	repo := &fakeConfigRepo{configs: []model.ElementConfig{{Position: 2, Kind: model.ElementQRCode}}}
	s := NewStore(repo, zap.NewNop())

	cfg, err := s.Get(model.DesignKey{Code: "STAR"}, 2, model.ElementQRCode)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Position != 2 || cfg.Kind != model.ElementQRCode {
		t.Errorf("unexpected config: %+v", cfg)
	}
	if repo.getCalls != 1 {
		t.Errorf("expected 1 repo.Get call, got %d", repo.getCalls)
	}
}

func TestGet_CachedMissIsConfigMissing(t *testing.T) {
	repo := &fakeConfigRepo{configs: []model.ElementConfig{{Position: 1, Kind: model.ElementModuleID}}}
	s := NewStore(repo, zap.NewNop())

	design := model.DesignKey{Code: "STAR"}
	if _, err := s.GetForDesign(design); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err := s.Get(design, 5, model.ElementQRCode)
	if !errors.Is(err, coreerr.ErrConfigMissing) {
		t.Errorf("expected ErrConfigMissing, got %v", err)
	}
}

func TestGetForDesign_EmptyIsConfigMissing(t *testing.T) {
	repo := &fakeConfigRepo{}
	s := NewStore(repo, zap.NewNop())

	_, err := s.GetForDesign(model.DesignKey{Code: "STAR"})
	if err == nil {
		t.Fatal("expected error for design with no config rows, got nil")
	}
	if !errors.Is(err, coreerr.ErrConfigMissing) {
		t.Errorf("expected ErrConfigMissing, got %v", err)
	}
}
