package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/abroad-api/internal/models"
	appErrors "github.com/noah-isme/abroad-api/pkg/errors"
	"github.com/noah-isme/abroad-api/pkg/sanitize"
)

const catalogCachePrefix = "catalog:programs:"

type programRepository interface {
	List(ctx context.Context, filter models.ProgramFilter) ([]models.Program, error)
	UpsertMany(ctx context.Context, programs []models.Program) error
}

// CatalogService is the catalog source. It applies the server-side subset of
// the criteria at the database, caches snapshots and refines the result with
// the full matching rule.
type CatalogService struct {
	repo      programRepository
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	cacheTTL  time.Duration
	now       func() time.Time
}

// NewCatalogService constructs the catalog source.
func NewCatalogService(repo programRepository, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, cacheTTL time.Duration) *CatalogService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &CatalogService{
		repo:      repo,
		cache:     cache,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		cacheTTL:  cacheTTL,
		now:       time.Now,
	}
}

// FetchPrograms returns programs matching criteria in catalog order; nil criteria returns the whole catalog.
func (s *CatalogService) FetchPrograms(ctx context.Context, criteria *models.ProgramCriteria) ([]models.Program, error) {
	filter := models.FilterFromCriteria(criteria)
	key := catalogCacheKey(filter)

	programs, hit, err := loadThrough(ctx, s.cache, key, s.cacheTTL, func(ctx context.Context) ([]models.Program, error) {
		start := time.Now()
		defer func() { s.metrics.ObserveDBQuery("programs_list", time.Since(start)) }()
		return s.repo.List(ctx, filter)
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUpstreamUnavailable.Code, appErrors.ErrUpstreamUnavailable.Status, "failed to fetch programs")
	}
	s.logger.Debug("catalog fetched", zap.String("key", key), zap.Bool("cache_hit", hit), zap.Int("count", len(programs)))

	if criteria == nil {
		return programs, nil
	}
	refined := make([]models.Program, 0, len(programs))
	for _, p := range programs {
		if criteria.Matches(p) {
			refined = append(refined, p)
		}
	}
	return refined, nil
}

// ImportPrograms validates, sanitises and upserts a batch of programs, then
// invalidates cached catalog snapshots. It returns the number imported.
func (s *CatalogService) ImportPrograms(ctx context.Context, programs []models.Program) (int, error) {
	if len(programs) == 0 {
		return 0, appErrors.Clone(appErrors.ErrValidation, "at least one program is required")
	}
	now := s.now().UTC()
	clean := make([]models.Program, len(programs))
	for i, p := range programs {
		p.ID = strings.TrimSpace(p.ID)
		p.Name = sanitize.Text(p.Name)
		p.Country = strings.TrimSpace(p.Country)
		p.Field = strings.TrimSpace(p.Field)
		p.Description = sanitize.Text(p.Description)
		if p.University != nil {
			p.University = sanitize.Optional(*p.University)
		}
		if p.Duration != nil {
			p.Duration = sanitize.Optional(*p.Duration)
		}
		y, m, d := p.Deadline.Date()
		p.Deadline = time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
		p.CreatedAt = now
		p.UpdatedAt = now
		if err := s.validator.Struct(p); err != nil {
			return 0, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, fmt.Sprintf("invalid program at index %d", i))
		}
		clean[i] = p
	}
	if err := models.ValidateCatalog(clean); err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}

	if err := s.repo.UpsertMany(ctx, clean); err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to import programs")
	}
	if err := s.cache.Invalidate(ctx, catalogCachePrefix+"*"); err != nil {
		s.logger.Warn("failed to invalidate catalog cache", zap.Error(err))
	}
	s.logger.Info("programs imported", zap.Int("count", len(clean)))
	return len(clean), nil
}

func catalogCacheKey(filter models.ProgramFilter) string {
	return fmt.Sprintf("%sq=%s|country=%s|field=%s",
		catalogCachePrefix,
		strconv.Quote(strings.ToLower(strings.TrimSpace(filter.Query))),
		strconv.Quote(filter.Country),
		strconv.Quote(filter.Field),
	)
}
