package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/basinflow/forecast-engine/internal/model"
)

// PostgresStore implements Store using PostgreSQL as the source of truth.
// All monetary values are stored as NUMERIC for exact decimal precision.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL-backed store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) InsertEvaluation(ctx context.Context, e *model.Evaluation) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO evaluations (id, well_id, operation, npv, irr, summary, created_at)
		 VALUES ($1, $2, $3, $4::NUMERIC, $5, $6, $7)`,
		e.ID, e.WellID, e.Operation,
		e.NPV.String(), e.IRR, e.Summary, e.CreatedAt,
	)
	return err
}

func (s *PostgresStore) GetEvaluation(ctx context.Context, id string) (*model.Evaluation, error) {
	var e model.Evaluation
	var npv string

	err := s.pool.QueryRow(ctx,
		`SELECT id, well_id, operation, npv::TEXT, irr, summary, created_at
		 FROM evaluations WHERE id = $1`, id).
		Scan(&e.ID, &e.WellID, &e.Operation, &npv, &e.IRR, &e.Summary, &e.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: evaluation %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get evaluation %s: %w", id, err)
	}

	e.NPV, _ = decimal.NewFromString(npv)
	return &e, nil
}

func (s *PostgresStore) ListEvaluationsByWell(ctx context.Context, wellID string) ([]model.Evaluation, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, well_id, operation, npv::TEXT, irr, summary, created_at
		 FROM evaluations WHERE well_id = $1 ORDER BY created_at`, wellID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanEvaluations(rows)
}

func (s *PostgresStore) ListRecentEvaluations(ctx context.Context, limit int) ([]model.Evaluation, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, well_id, operation, npv::TEXT, irr, summary, created_at
		 FROM evaluations ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanEvaluations(rows)
}

func (s *PostgresStore) ListWellSummaries(ctx context.Context) ([]WellSummary, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT e.well_id, agg.n, e.operation, e.npv::TEXT, e.created_at
		 FROM evaluations e
		 JOIN (SELECT well_id, COUNT(*) AS n, MAX(created_at) AS latest
		       FROM evaluations GROUP BY well_id) agg
		   ON agg.well_id = e.well_id AND agg.latest = e.created_at
		 ORDER BY e.created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []WellSummary
	for rows.Next() {
		var w WellSummary
		var npv string
		if err := rows.Scan(&w.WellID, &w.Evaluations, &w.LatestOperation, &npv, &w.LastEvaluated); err != nil {
			return nil, err
		}
		w.LatestNPV, _ = decimal.NewFromString(npv)
		summaries = append(summaries, w)
	}
	return summaries, rows.Err()
}

type pgxRows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

func scanEvaluations(rows pgxRows) ([]model.Evaluation, error) {
	var evals []model.Evaluation
	for rows.Next() {
		var e model.Evaluation
		var npv string

		if err := rows.Scan(&e.ID, &e.WellID, &e.Operation, &npv, &e.IRR, &e.Summary, &e.CreatedAt); err != nil {
			return nil, err
		}

		e.NPV, _ = decimal.NewFromString(npv)
		evals = append(evals, e)
	}
	return evals, rows.Err()
}
