package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"garage/internal/domain"
	"garage/internal/models"

	"github.com/rs/zerolog"
)

const partsCacheKey = "parts:catalog"

type PartService struct {
	store    domain.Store
	cache    domain.StateRepository
	cacheTTL time.Duration
	logger   *zerolog.Logger
}

func NewPartService(store domain.Store, cache domain.StateRepository, cacheTTL time.Duration, logger *zerolog.Logger) *PartService {
	if cacheTTL <= 0 {
		cacheTTL = models.PartsCacheTTL * time.Second
	}
	return &PartService{
		store:    store,
		cache:    cache,
		cacheTTL: cacheTTL,
		logger:   logger,
	}
}

func (s *PartService) CreatePart(ctx context.Context, actor models.Principal, part *models.Part) error {
	if !actor.IsAdmin() {
		return ErrForbidden
	}
	if part.Name == "" {
		return fmt.Errorf("%w: part name is required", ErrValidation)
	}
	if part.UnitPrice.IsNegative() {
		return fmt.Errorf("%w: unit price cannot be negative", ErrValidation)
	}
	if part.StockQuantity < 0 {
		return fmt.Errorf("%w: stock quantity cannot be negative", ErrValidation)
	}

	if err := s.store.CreatePart(ctx, part); err != nil {
		return err
	}

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, partsCacheKey); err != nil {
			s.logger.Warn().Err(err).Msg("parts cache invalidation failed")
		}
	}
	return nil
}

// ListParts serves the catalog from cache when possible. The catalog is
// read often (every spare part form) and changes rarely.
func (s *PartService) ListParts(ctx context.Context) ([]*models.Part, error) {
	if s.cache != nil {
		if raw, err := s.cache.GetCached(ctx, partsCacheKey); err == nil && raw != nil {
			var parts []*models.Part
			if err := json.Unmarshal(raw, &parts); err == nil {
				return parts, nil
			}
			s.logger.Warn().Msg("parts cache entry is corrupt, refetching")
		}
	}

	parts, err := s.store.ListParts(ctx)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if raw, err := json.Marshal(parts); err == nil {
			if err := s.cache.SetCached(ctx, partsCacheKey, raw, s.cacheTTL); err != nil {
				s.logger.Warn().Err(err).Msg("parts cache write failed")
			}
		}
	}
	return parts, nil
}
