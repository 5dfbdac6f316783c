package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/basinflow/forecast-engine/internal/model"
)

// MemoryStore implements Store with in-memory slices. Used for testing
// and development. Not suitable for production (no persistence).
type MemoryStore struct {
	mu    sync.RWMutex
	evals []model.Evaluation
	byID  map[string]int
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID: make(map[string]int),
	}
}

func (s *MemoryStore) InsertEvaluation(_ context.Context, e *model.Evaluation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byID[e.ID]; exists {
		return fmt.Errorf("evaluation %s already exists", e.ID)
	}

	// Store a copy to avoid external mutation.
	s.byID[e.ID] = len(s.evals)
	s.evals = append(s.evals, *e)
	return nil
}

func (s *MemoryStore) GetEvaluation(_ context.Context, id string) (*model.Evaluation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: evaluation %s", ErrNotFound, id)
	}
	copy := s.evals[idx]
	return &copy, nil
}

func (s *MemoryStore) ListEvaluationsByWell(_ context.Context, wellID string) ([]model.Evaluation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []model.Evaluation
	for _, e := range s.evals {
		if e.WellID == wellID {
			result = append(result, e)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (s *MemoryStore) ListRecentEvaluations(_ context.Context, limit int) ([]model.Evaluation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 50
	}
	result := make([]model.Evaluation, len(s.evals))
	copy(result, s.evals)
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *MemoryStore) ListWellSummaries(_ context.Context) ([]WellSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	agg := make(map[string]*WellSummary)
	for _, e := range s.evals {
		w, ok := agg[e.WellID]
		if !ok {
			w = &WellSummary{WellID: e.WellID}
			agg[e.WellID] = w
		}
		w.Evaluations++
		if !e.CreatedAt.Before(w.LastEvaluated) {
			w.LastEvaluated = e.CreatedAt
			w.LatestOperation = e.Operation
			w.LatestNPV = e.NPV
		}
	}

	summaries := make([]WellSummary, 0, len(agg))
	for _, w := range agg {
		summaries = append(summaries, *w)
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].LastEvaluated.After(summaries[j].LastEvaluated)
	})
	return summaries, nil
}
