// internal/configstore/store.go
package configstore

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"quadica-engraving-core/internal/coreerr"
	"quadica-engraving-core/internal/model"
	"quadica-engraving-core/internal/repository"
)

// Store is a read-through cache in front of ConfigRepository, keyed on
// design. The renderer calls GetForDesign once per array; caching
// keeps a multi-thousand-unit batch from re-querying the same handful
// of design configs per row.
type Store struct {
	repo   repository.ConfigRepository
	logger *zap.Logger
	cache  sync.Map // model.DesignKey -> []model.ElementConfig
}

// NewStore creates a new config store adapter.
func NewStore(repo repository.ConfigRepository, logger *zap.Logger) *Store {
	return &Store{
		repo:   repo,
		logger: logger,
	}
}

// GetForDesign implements render.ConfigProvider. It serves from cache
// when present, otherwise loads from the repository and populates it.
func (s *Store) GetForDesign(design model.DesignKey) ([]model.ElementConfig, error) {
	if cached, ok := s.cache.Load(design); ok {
		return cached.([]model.ElementConfig), nil
	}

	configs, err := s.repo.GetForDesign(context.Background(), design)
	if err != nil {
		return nil, fmt.Errorf("load element config for %s: %w", design, err)
	}
	if len(configs) == 0 {
		return nil, fmt.Errorf("no element config rows for %s: %w", design, coreerr.ErrConfigMissing)
	}

	s.cache.Store(design, configs)
	return configs, nil
}

// Get looks up a single element config row by its composite key (§4.F
// "get"). It first checks whether the design's full config set is
// already cached and serves from there; otherwise it falls through to
// the repository for just that one row.
func (s *Store) Get(design model.DesignKey, position int, kind model.ElementKind) (*model.ElementConfig, error) {
	if cached, ok := s.cache.Load(design); ok {
		for _, c := range cached.([]model.ElementConfig) {
			if c.Position == position && c.Kind == kind {
				cp := c
				return &cp, nil
			}
		}
		return nil, fmt.Errorf("no element config for %s position %d kind %s: %w", design, position, kind, coreerr.ErrConfigMissing)
	}

	cfg, err := s.repo.Get(context.Background(), design, position, kind)
	if err != nil {
		return nil, fmt.Errorf("load element config for %s position %d kind %s: %w", design, position, kind, err)
	}
	return cfg, nil
}

// Upsert writes a config row through to the repository and invalidates
// the cached entry for its design so the next GetForDesign re-reads.
func (s *Store) Upsert(ctx context.Context, cfg model.ElementConfig) error {
	if err := s.repo.Upsert(ctx, cfg); err != nil {
		return err
	}
	s.cache.Delete(cfg.Design)
	s.logger.Debug("invalidated element config cache",
		zap.String("design", cfg.Design.String()),
		zap.String("kind", string(cfg.Kind)),
	)
	return nil
}

// Delete removes a config row through to the repository and
// invalidates the cached entry for its design.
func (s *Store) Delete(ctx context.Context, design model.DesignKey, position int, kind model.ElementKind) error {
	if err := s.repo.Delete(ctx, design, position, kind); err != nil {
		return err
	}
	s.cache.Delete(design)
	return nil
}

// Invalidate drops every cached design. Used after a bulk config
// import so the next render for any design re-reads from storage.
func (s *Store) Invalidate() {
	s.cache.Range(func(key, _ interface{}) bool {
		s.cache.Delete(key)
		return true
	})
}
