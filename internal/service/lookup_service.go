package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/defect-tracker/internal/domain"
	"github.com/spec-kit/defect-tracker/internal/repository"
)

const (
	cacheKeyDefectStatuses = "lookup:defect_statuses"
	cacheKeyProjectStages  = "lookup:project_stages"
)

// LookupService serves reference tables, caching them in Redis. The
// cache is best effort: Redis being down falls back to Postgres.
type LookupService struct {
	lookups repository.LookupRepository
	cache   *redis.Client
	ttl     time.Duration
	logger  *zap.Logger
}

// NewLookupService builds the service. Cache may be nil.
func NewLookupService(lookups repository.LookupRepository, cache *redis.Client, ttl time.Duration, logger *zap.Logger) *LookupService {
	return &LookupService{lookups: lookups, cache: cache, ttl: ttl, logger: logger}
}

// ListDefectStatuses returns the status lookup table.
func (s *LookupService) ListDefectStatuses(ctx context.Context) ([]domain.DefectStatus, error) {
	var cached []domain.DefectStatus
	if s.readCache(ctx, cacheKeyDefectStatuses, &cached) {
		return cached, nil
	}
	statuses, err := s.lookups.ListDefectStatuses(ctx)
	if err != nil {
		return nil, err
	}
	s.writeCache(ctx, cacheKeyDefectStatuses, statuses)
	return statuses, nil
}

// ListProjectStages returns the stage lookup table.
func (s *LookupService) ListProjectStages(ctx context.Context) ([]domain.ProjectStage, error) {
	var cached []domain.ProjectStage
	if s.readCache(ctx, cacheKeyProjectStages, &cached) {
		return cached, nil
	}
	stages, err := s.lookups.ListProjectStages(ctx)
	if err != nil {
		return nil, err
	}
	s.writeCache(ctx, cacheKeyProjectStages, stages)
	return stages, nil
}

func (s *LookupService) readCache(ctx context.Context, key string, dest any) bool {
	if s.cache == nil {
		return false
	}
	raw, err := s.cache.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			s.logger.Debug("lookup cache read failed", zap.String("key", key), zap.Error(err))
		}
		return false
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		s.logger.Warn("lookup cache corrupt, dropping", zap.String("key", key), zap.Error(err))
		_ = s.cache.Del(ctx, key).Err()
		return false
	}
	return true
}

func (s *LookupService) writeCache(ctx context.Context, key string, value any) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, raw, s.ttl).Err(); err != nil {
		s.logger.Debug("lookup cache write failed", zap.String("key", key), zap.Error(err))
	}
}
