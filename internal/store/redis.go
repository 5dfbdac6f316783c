package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/basinflow/forecast-engine/internal/model"
)

// CachedStore wraps a primary Store (PostgreSQL) with a Redis read-through
// cache. Evaluations are immutable, so cached entries never go stale; the
// per-well list key is invalidated on insert instead.
type CachedStore struct {
	primary Store
	rdb     *redis.Client
	ttl     time.Duration
}

// NewCachedStore creates a cached wrapper around a primary store.
func NewCachedStore(primary Store, rdb *redis.Client, ttl time.Duration) *CachedStore {
	return &CachedStore{
		primary: primary,
		rdb:     rdb,
		ttl:     ttl,
	}
}

// --- Write-through (write to primary, prime / invalidate cache) ---

func (s *CachedStore) InsertEvaluation(ctx context.Context, e *model.Evaluation) error {
	if err := s.primary.InsertEvaluation(ctx, e); err != nil {
		return err
	}
	s.cacheEvaluation(ctx, e)
	// Invalidate the well's list; next read re-populates it.
	s.rdb.Del(ctx, wellKey(e.WellID))
	return nil
}

// --- Read-through (check cache first) ---

func (s *CachedStore) GetEvaluation(ctx context.Context, id string) (*model.Evaluation, error) {
	data, err := s.rdb.Get(ctx, evaluationKey(id)).Bytes()
	if err == nil {
		var e model.Evaluation
		if json.Unmarshal(data, &e) == nil {
			return &e, nil
		}
	}

	e, err := s.primary.GetEvaluation(ctx, id)
	if err != nil {
		return nil, err
	}

	s.cacheEvaluation(ctx, e)
	return e, nil
}

func (s *CachedStore) ListEvaluationsByWell(ctx context.Context, wellID string) ([]model.Evaluation, error) {
	data, err := s.rdb.Get(ctx, wellKey(wellID)).Bytes()
	if err == nil {
		var evals []model.Evaluation
		if json.Unmarshal(data, &evals) == nil {
			return evals, nil
		}
	}

	evals, err := s.primary.ListEvaluationsByWell(ctx, wellID)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(evals); err == nil {
		s.rdb.Set(ctx, wellKey(wellID), data, s.ttl)
	}
	return evals, nil
}

// --- Passthrough (not cached) ---

func (s *CachedStore) ListRecentEvaluations(ctx context.Context, limit int) ([]model.Evaluation, error) {
	return s.primary.ListRecentEvaluations(ctx, limit)
}

func (s *CachedStore) ListWellSummaries(ctx context.Context) ([]WellSummary, error) {
	return s.primary.ListWellSummaries(ctx)
}

// --- Cache helpers ---

func (s *CachedStore) cacheEvaluation(ctx context.Context, e *model.Evaluation) {
	if data, err := json.Marshal(e); err == nil {
		s.rdb.Set(ctx, evaluationKey(e.ID), data, s.ttl)
	}
}

func evaluationKey(id string) string { return fmt.Sprintf("evaluation:%s", id) }
func wellKey(id string) string       { return fmt.Sprintf("well:%s", id) }
