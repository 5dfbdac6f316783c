// Package store defines the persistence interface for the forecast engine.
// Implementations include PostgreSQL (source of truth), Redis (read-through
// cache), and in-memory (for testing).
package store

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/basinflow/forecast-engine/internal/model"
)

// ErrNotFound is returned when no record matches the query.
var ErrNotFound = errors.New("store: not found")

// WellSummary aggregates the evaluation history of a single well.
type WellSummary struct {
	WellID          string          `json:"well_id"`
	Evaluations     int             `json:"evaluations"`
	LatestOperation string          `json:"latest_operation"`
	LatestNPV       decimal.Decimal `json:"latest_npv"`
	LastEvaluated   time.Time       `json:"last_evaluated"`
}

// Store is the persistence interface. Evaluations are an immutable run
// ledger: inserted once, never updated. PostgreSQL is the source of
// truth; Redis provides a read-through cache layer.
type Store interface {
	// InsertEvaluation appends an immutable evaluation record.
	InsertEvaluation(ctx context.Context, e *model.Evaluation) error

	// GetEvaluation retrieves an evaluation by its ID.
	GetEvaluation(ctx context.Context, id string) (*model.Evaluation, error)

	// ListEvaluationsByWell returns all evaluations for a well, oldest first.
	ListEvaluationsByWell(ctx context.Context, wellID string) ([]model.Evaluation, error)

	// ListRecentEvaluations returns the newest evaluations across wells.
	ListRecentEvaluations(ctx context.Context, limit int) ([]model.Evaluation, error)

	// ListWellSummaries aggregates the ledger per well.
	ListWellSummaries(ctx context.Context) ([]WellSummary, error)
}
