package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/gymledger/internal/domain"
	"github.com/iho/gymledger/internal/usecase"
)

// DefaultCatalogTTL bounds how stale a cached plan or discount may be.
const DefaultCatalogTTL = 5 * time.Minute

// readThrough loads key from cache, falling back to load and filling the cache.
// Cache failures are logged and never fail the read.
func readThrough[T any](ctx context.Context, cache usecase.Cache, log zerolog.Logger, key string, ttl time.Duration, load func() (*T, error)) (*T, error) {
	if raw, err := cache.Get(ctx, key); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cache get failed")
	} else if raw != nil {
		var v T
		if err := json.Unmarshal(raw, &v); err == nil {
			return &v, nil
		}
		log.Warn().Str("key", key).Msg("discarding undecodable cache entry")
	}

	v, err := load()
	if err != nil {
		return nil, err
	}

	if raw, err := json.Marshal(v); err == nil {
		if err := cache.Set(ctx, key, raw, ttl); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("cache set failed")
		}
	}
	return v, nil
}

func invalidate(ctx context.Context, cache usecase.Cache, log zerolog.Logger, key string) {
	if err := cache.Delete(ctx, key); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cache delete failed")
	}
}

func catalogKey(ctx context.Context, kind, id string) (string, error) {
	tenantID, err := domain.MustTenant(ctx)
	if err != nil {
		return "", err
	}
	return kind + ":" + tenantID + ":" + id, nil
}

// CachedPlanRepository is a read-through cache in front of a PlanRepository.
type CachedPlanRepository struct {
	usecase.PlanRepository
	cache  usecase.Cache
	ttl    time.Duration
	logger zerolog.Logger
}

var _ usecase.PlanRepository = (*CachedPlanRepository)(nil)

// NewCachedPlanRepository wraps next. A zero ttl uses DefaultCatalogTTL.
func NewCachedPlanRepository(next usecase.PlanRepository, cache usecase.Cache, ttl time.Duration, logger zerolog.Logger) *CachedPlanRepository {
	if ttl <= 0 {
		ttl = DefaultCatalogTTL
	}
	return &CachedPlanRepository{
		PlanRepository: next,
		cache:          cache,
		ttl:            ttl,
		logger:         logger.With().Str("component", "plan_cache").Logger(),
	}
}

func (r *CachedPlanRepository) GetByID(ctx context.Context, id string) (*domain.Plan, error) {
	key, err := catalogKey(ctx, "plan", id)
	if err != nil {
		return nil, err
	}
	return readThrough(ctx, r.cache, r.logger, key, r.ttl, func() (*domain.Plan, error) {
		return r.PlanRepository.GetByID(ctx, id)
	})
}

func (r *CachedPlanRepository) Update(ctx context.Context, plan *domain.Plan) error {
	key, err := catalogKey(ctx, "plan", plan.ID)
	if err != nil {
		return err
	}
	if err := r.PlanRepository.Update(ctx, plan); err != nil {
		return err
	}
	invalidate(ctx, r.cache, r.logger, key)
	return nil
}

// CachedDiscountRepository is a read-through cache in front of a DiscountRepository.
type CachedDiscountRepository struct {
	usecase.DiscountRepository
	cache  usecase.Cache
	ttl    time.Duration
	logger zerolog.Logger
}

var _ usecase.DiscountRepository = (*CachedDiscountRepository)(nil)

func NewCachedDiscountRepository(next usecase.DiscountRepository, cache usecase.Cache, ttl time.Duration, logger zerolog.Logger) *CachedDiscountRepository {
	if ttl <= 0 {
		ttl = DefaultCatalogTTL
	}
	return &CachedDiscountRepository{
		DiscountRepository: next,
		cache:              cache,
		ttl:                ttl,
		logger:             logger.With().Str("component", "discount_cache").Logger(),
	}
}

func (r *CachedDiscountRepository) GetByID(ctx context.Context, id string) (*domain.Discount, error) {
	key, err := catalogKey(ctx, "discount", id)
	if err != nil {
		return nil, err
	}
	return readThrough(ctx, r.cache, r.logger, key, r.ttl, func() (*domain.Discount, error) {
		return r.DiscountRepository.GetByID(ctx, id)
	})
}

func (r *CachedDiscountRepository) Update(ctx context.Context, discount *domain.Discount) error {
	key, err := catalogKey(ctx, "discount", discount.ID)
	if err != nil {
		return err
	}
	if err := r.DiscountRepository.Update(ctx, discount); err != nil {
		return err
	}
	invalidate(ctx, r.cache, r.logger, key)
	return nil
}
