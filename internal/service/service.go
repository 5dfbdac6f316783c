// Package service provides the HTTP handlers for the forecast engine:
// production forecasting, EUR estimation, cash-flow valuation, Monte Carlo
// risk simulation, and portfolio optimization.
//
// All monetary values use shopspring/decimal, never float64 for money.
// Production volumes and statistical outputs stay float64.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/basinflow/forecast-engine/internal/cashflow"
	"github.com/basinflow/forecast-engine/internal/decline"
	"github.com/basinflow/forecast-engine/internal/eur"
	"github.com/basinflow/forecast-engine/internal/forecast"
	"github.com/basinflow/forecast-engine/internal/metrics"
	"github.com/basinflow/forecast-engine/internal/model"
	"github.com/basinflow/forecast-engine/internal/montecarlo"
	"github.com/basinflow/forecast-engine/internal/portfolio"
	"github.com/basinflow/forecast-engine/internal/report"
	"github.com/basinflow/forecast-engine/internal/store"
	"github.com/basinflow/forecast-engine/internal/valuation"
	"github.com/basinflow/forecast-engine/internal/well"
)

// PriceDeck carries the default price and operating-cost assumptions
// applied when a valuation request leaves them zero.
type PriceDeck struct {
	OilPrice   float64 // $/bbl
	OpexPerBOE float64 // LOE, $/boe
}

// Service handles engine operations. Every computation is a pure function
// over the request; the store only records immutable evaluation results,
// so no locking is needed across handlers.
type Service struct {
	store      store.Store
	valuer     *valuation.Engine
	simulator  *montecarlo.Engine
	calculator *eur.Calculator
	limiter    *portfolio.ConcentrationLimiter
	wsHub      *WSHub // optional WebSocket hub for progress broadcasts
	deck       PriceDeck
	simWorkers int
}

// NewService creates a new engine service. Pass nil for hub if WebSocket
// broadcasting is not needed, nil for limiter to disable basin caps.
func NewService(st store.Store, valuer *valuation.Engine, sim *montecarlo.Engine, calc *eur.Calculator, limiter *portfolio.ConcentrationLimiter, hub *WSHub, deck PriceDeck, simWorkers int) *Service {
	if simWorkers <= 0 {
		simWorkers = 4
	}
	return &Service{
		store:      st,
		valuer:     valuer,
		simulator:  sim,
		calculator: calc,
		limiter:    limiter,
		wsHub:      hub,
		deck:       deck,
		simWorkers: simWorkers,
	}
}

// --- Request/Response types ---

// DeclineParams is the JSON shape of decline-curve parameters.
type DeclineParams struct {
	Qi    float64 `json:"qi"`    // initial rate, bbl/month
	Di    float64 `json:"di"`    // initial decline, nominal monthly
	B     float64 `json:"b"`     // hyperbolic exponent [0,2]
	Curve string  `json:"curve"` // exponential | harmonic | hyperbolic
}

func (p DeclineParams) build() (decline.Parameters, error) {
	return decline.NewParameters(p.Qi, p.Di, p.B, decline.CurveType(p.Curve))
}

// ForecastRequest is the JSON body for POST /forecast.
type ForecastRequest struct {
	WellID        string               `json:"well_id"` // API number
	Params        DeclineParams        `json:"params"`
	HorizonMonths int                  `json:"horizon_months"`
	EconomicLimit float64              `json:"economic_limit"`
	Constraints   forecast.Constraints `json:"constraints"`
}

// ForecastResponse is the JSON body returned from POST /forecast.
type ForecastResponse struct {
	RunID   string                   `json:"run_id"`
	WellID  string                   `json:"well_id"`
	Periods []model.ProductionPeriod `json:"periods"`
	EUR     float64                  `json:"eur"` // terminal cumulative
}

// EURRequest is the JSON body for POST /eur.
type EURRequest struct {
	WellID        string        `json:"well_id"`
	Params        DeclineParams `json:"params"`
	EconomicLimit float64       `json:"economic_limit"`
	MaxMonths     int           `json:"max_months"`
	DrainageAcres float64       `json:"drainage_acres"`
	Formation     string        `json:"formation"`
}

// EURResponse is the JSON body returned from POST /eur.
type EURResponse struct {
	RunID    string            `json:"run_id"`
	WellID   string            `json:"well_id"`
	Estimate model.EUREstimate `json:"estimate"`
}

// ValuationRequest is the JSON body for POST /valuation.
type ValuationRequest struct {
	WellID        string               `json:"well_id"`
	Params        DeclineParams        `json:"params"`
	HorizonMonths int                  `json:"horizon_months"`
	EconomicLimit float64              `json:"economic_limit"`
	Constraints   forecast.Constraints `json:"constraints"`
	Prices        cashflow.Prices      `json:"prices"`
	Costs         cashflow.Costs       `json:"costs"`
	Financial     cashflow.Financial   `json:"financial"`
}

// ValuationResponse is the JSON body returned from POST /valuation.
type ValuationResponse struct {
	RunID     string                 `json:"run_id"`
	WellID    string                 `json:"well_id"`
	Valuation model.ValuationResult  `json:"valuation"`
	CashFlows []model.CashFlowPeriod `json:"cash_flows"`
}

// SimulationRequest is the JSON body for POST /simulation.
type SimulationRequest struct {
	WellID        string                     `json:"well_id"`
	BaseCase      montecarlo.BaseCase        `json:"base_case"`
	Distributions *montecarlo.Distributions  `json:"distributions,omitempty"` // nil → defaults
	TypeCurve     *well.TypeCurvePercentiles `json:"type_curve,omitempty"`    // overrides production sigma
	Iterations    int                        `json:"iterations"`
	Seed          int64                      `json:"seed"`
	Parallel      bool                       `json:"parallel,omitempty"`
}

// SimulationResponse is the JSON body returned from POST /simulation.
type SimulationResponse struct {
	RunID  string            `json:"run_id"`
	WellID string            `json:"well_id"`
	Result montecarlo.Result `json:"result"`
}

// PortfolioRequest is the JSON body for POST /portfolio.
type PortfolioRequest struct {
	Prospects     []model.Prospect    `json:"prospects"`
	Budget        decimal.Decimal     `json:"budget"`
	MaxWells      int                 `json:"max_wells"`
	MinIRR        float64             `json:"min_irr"`
	RiskTolerance model.RiskTolerance `json:"risk_tolerance"`
}

// PortfolioResponse is the JSON body returned from POST /portfolio.
type PortfolioResponse struct {
	RunID     string              `json:"run_id"`
	Selection portfolio.Selection `json:"selection"`
}

// --- HTTP Handlers ---

// Forecast handles POST /api/v1/forecast
func (s *Service) Forecast(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var req ForecastRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if _, err := well.ParseAPINumber(req.WellID); err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	params, err := req.Params.build()
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	periods, err := forecast.Forecast(params, req.HorizonMonths, req.EconomicLimit, req.Constraints)
	if err != nil {
		if errors.Is(err, forecast.ErrUneconomic) {
			metrics.UneconomicForecasts.Inc()
			writeError(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	resp := ForecastResponse{
		RunID:   uuid.New().String(),
		WellID:  req.WellID,
		Periods: periods,
		EUR:     periods[len(periods)-1].Cumulative,
	}
	s.recordEvaluation(r.Context(), resp.RunID, req.WellID, "forecast", decimal.Zero, nil, resp)

	metrics.EvaluationsTotal.WithLabelValues("forecast").Inc()
	metrics.EvaluationLatency.WithLabelValues("forecast").Observe(time.Since(start).Seconds())
	slog.Info("forecast computed",
		"run_id", resp.RunID,
		"well", req.WellID,
		"months", len(periods),
		"eur", resp.EUR,
	)
	writeJSON(w, http.StatusOK, resp)
}

// EUR handles POST /api/v1/eur
func (s *Service) EUR(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var req EURRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if _, err := well.ParseAPINumber(req.WellID); err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	params, err := req.Params.build()
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.MaxMonths <= 0 {
		req.MaxMonths = 360
	}

	estimate, err := s.calculator.Estimate(params, req.EconomicLimit, req.MaxMonths, req.DrainageAcres, req.Formation)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	resp := EURResponse{
		RunID:    uuid.New().String(),
		WellID:   req.WellID,
		Estimate: estimate,
	}
	s.recordEvaluation(r.Context(), resp.RunID, req.WellID, "eur", decimal.Zero, nil, resp)

	metrics.EvaluationsTotal.WithLabelValues("eur").Inc()
	metrics.EvaluationLatency.WithLabelValues("eur").Observe(time.Since(start).Seconds())
	slog.Info("eur estimated",
		"run_id", resp.RunID,
		"well", req.WellID,
		"technical", estimate.Technical,
		"economic", estimate.Economic,
	)
	writeJSON(w, http.StatusOK, resp)
}

// Valuation handles POST /api/v1/valuation
// Runs forecast → cash flows → NPV/IRR/payback/breakeven as one bundle.
func (s *Service) Valuation(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var req ValuationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if _, err := well.ParseAPINumber(req.WellID); err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	params, err := req.Params.build()
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	// Fall back to the configured price deck where the request leaves
	// assumptions zero.
	if req.Prices.OilPrice == 0 {
		req.Prices.OilPrice = s.deck.OilPrice
	}
	if req.Costs.OpexPerBOE == 0 {
		req.Costs.OpexPerBOE = s.deck.OpexPerBOE
	}

	periods, err := forecast.Forecast(params, req.HorizonMonths, req.EconomicLimit, req.Constraints)
	if err != nil {
		if errors.Is(err, forecast.ErrUneconomic) {
			metrics.UneconomicForecasts.Inc()
			writeError(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := s.valuer.Evaluate(periods, req.Prices, req.Costs, req.Financial)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	flows, err := cashflow.BuildCashFlows(periods, req.Prices, req.Costs, req.Financial)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	resp := ValuationResponse{
		RunID:     uuid.New().String(),
		WellID:    req.WellID,
		Valuation: result,
		CashFlows: flows,
	}
	s.recordEvaluation(r.Context(), resp.RunID, req.WellID, "valuation", result.NPV, result.IRR, resp)

	metrics.EvaluationsTotal.WithLabelValues("valuation").Inc()
	metrics.EvaluationLatency.WithLabelValues("valuation").Observe(time.Since(start).Seconds())
	slog.Info("valuation computed",
		"run_id", resp.RunID,
		"well", req.WellID,
		"npv", result.NPV.String(),
		"converged", result.Converged,
	)
	writeJSON(w, http.StatusOK, resp)
}

// Simulation handles POST /api/v1/simulation
// Long-running; progress is broadcast over the WebSocket hub per chunk
// and the loop honors request-context cancellation at chunk boundaries.
func (s *Service) Simulation(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var req SimulationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if _, err := well.ParseAPINumber(req.WellID); err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	dists := montecarlo.DefaultDistributions()
	if req.Distributions != nil {
		dists = *req.Distributions
	}
	if req.TypeCurve != nil {
		prodDist, err := well.DeriveProductionSigma(*req.TypeCurve, dists.Production.ClipMin, dists.Production.ClipMax)
		if err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}
		dists.Production = prodDist
	}

	runID := uuid.New().String()
	var result montecarlo.Result
	var err error
	if req.Parallel {
		result, err = s.simulator.SimulateParallel(r.Context(), req.BaseCase, dists, req.Iterations, req.Seed, s.simWorkers)
	} else {
		result, err = s.simulator.Simulate(r.Context(), req.BaseCase, dists, req.Iterations, req.Seed, func(done, total int) {
			if s.wsHub != nil {
				s.wsHub.Broadcast(WSMessage{
					Type:      "simulation_progress",
					RunID:     runID,
					WellID:    req.WellID,
					Operation: "simulation",
					Done:      done,
					Total:     total,
				})
			}
		})
	}
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	resp := SimulationResponse{RunID: runID, WellID: req.WellID, Result: result}
	npv := decimal.NewFromFloat(result.NPV.P50).Round(2)
	s.recordEvaluation(r.Context(), runID, req.WellID, "simulation", npv, nil, resp)

	metrics.EvaluationsTotal.WithLabelValues("simulation").Inc()
	metrics.EvaluationLatency.WithLabelValues("simulation").Observe(time.Since(start).Seconds())
	metrics.SimulationIterations.Observe(float64(result.Iterations))
	if result.Partial {
		metrics.SimulationsPartial.Inc()
	}
	if s.wsHub != nil {
		s.wsHub.Broadcast(WSMessage{
			Type:      "simulation_complete",
			RunID:     runID,
			WellID:    req.WellID,
			Operation: "simulation",
			Done:      result.Iterations,
			Total:     req.Iterations,
			Partial:   result.Partial,
		})
	}
	slog.Info("simulation completed",
		"run_id", runID,
		"well", req.WellID,
		"iterations", result.Iterations,
		"partial", result.Partial,
		"success_prob", result.SuccessProbability,
	)
	writeJSON(w, http.StatusOK, resp)
}

// Portfolio handles POST /api/v1/portfolio
func (s *Service) Portfolio(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var req PortfolioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	selection, err := portfolio.Optimize(req.Prospects, req.Budget, req.MaxWells, req.MinIRR, req.RiskTolerance, s.limiter)
	if err != nil {
		if errors.Is(err, portfolio.ErrNoProspects) {
			writeError(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	resp := PortfolioResponse{RunID: uuid.New().String(), Selection: selection}
	totalNPV := decimal.Zero
	for _, p := range selection.Selected {
		totalNPV = totalNPV.Add(p.NPV)
	}
	s.recordEvaluation(r.Context(), resp.RunID, "portfolio", "portfolio", totalNPV, nil, resp)

	metrics.EvaluationsTotal.WithLabelValues("portfolio").Inc()
	metrics.EvaluationLatency.WithLabelValues("portfolio").Observe(time.Since(start).Seconds())
	slog.Info("portfolio optimized",
		"run_id", resp.RunID,
		"selected", len(selection.Selected),
		"remaining_budget", selection.RemainingBudget.String(),
	)
	writeJSON(w, http.StatusOK, resp)
}

// GetEvaluationReport handles GET /api/v1/evaluations/{runID}/report
// Renders the stored result as an executive markdown summary.
func (s *Service) GetEvaluationReport(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")

	eval, err := s.store.GetEvaluation(r.Context(), runID)
	if err != nil {
		writeError(w, "evaluation not found", http.StatusNotFound)
		return
	}

	var md string
	switch eval.Operation {
	case "valuation":
		var resp ValuationResponse
		if err := json.Unmarshal(eval.Summary, &resp); err != nil {
			writeError(w, "corrupt evaluation record", http.StatusInternalServerError)
			return
		}
		md = report.Valuation(eval.WellID, resp.Valuation, eval.CreatedAt)
	case "simulation":
		var resp SimulationResponse
		if err := json.Unmarshal(eval.Summary, &resp); err != nil {
			writeError(w, "corrupt evaluation record", http.StatusInternalServerError)
			return
		}
		md = report.Simulation(eval.WellID, resp.Result, eval.CreatedAt)
	case "portfolio":
		var resp PortfolioResponse
		if err := json.Unmarshal(eval.Summary, &resp); err != nil {
			writeError(w, "corrupt evaluation record", http.StatusInternalServerError)
			return
		}
		md = report.Portfolio(resp.Selection, resp.Selection.TotalCapex.Add(resp.Selection.RemainingBudget), eval.CreatedAt)
	default:
		writeError(w, "no report available for operation "+eval.Operation, http.StatusUnprocessableEntity)
		return
	}

	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(md))
}

// GetEvaluation handles GET /api/v1/evaluations/{runID}
func (s *Service) GetEvaluation(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")

	eval, err := s.store.GetEvaluation(r.Context(), runID)
	if err != nil {
		writeError(w, "evaluation not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, eval)
}

// ListRecentEvaluations handles GET /api/v1/evaluations
func (s *Service) ListRecentEvaluations(w http.ResponseWriter, r *http.Request) {
	evals, err := s.store.ListRecentEvaluations(r.Context(), 50)
	if err != nil {
		writeError(w, "failed to list evaluations", http.StatusInternalServerError)
		return
	}
	if evals == nil {
		evals = []model.Evaluation{}
	}
	writeJSON(w, http.StatusOK, evals)
}

// ListWellEvaluations handles GET /api/v1/wells/{wellID}/evaluations
func (s *Service) ListWellEvaluations(w http.ResponseWriter, r *http.Request) {
	wellID := chi.URLParam(r, "wellID")

	evals, err := s.store.ListEvaluationsByWell(r.Context(), wellID)
	if err != nil {
		writeError(w, "failed to list evaluations", http.StatusInternalServerError)
		return
	}
	if evals == nil {
		evals = []model.Evaluation{}
	}
	writeJSON(w, http.StatusOK, evals)
}

// ListWells handles GET /api/v1/wells
// Returns the aggregated evaluation history per well.
func (s *Service) ListWells(w http.ResponseWriter, r *http.Request) {
	summaries, err := s.store.ListWellSummaries(r.Context())
	if err != nil {
		writeError(w, "failed to list wells", http.StatusInternalServerError)
		return
	}
	if summaries == nil {
		summaries = []store.WellSummary{}
	}
	writeJSON(w, http.StatusOK, summaries)
}

// recordEvaluation persists an immutable run record. Persistence failures
// are logged, never surfaced: the computation already succeeded and the
// response must not depend on the ledger.
func (s *Service) recordEvaluation(ctx context.Context, runID, wellID, operation string, npv decimal.Decimal, irr *float64, payload any) {
	if s.store == nil {
		return
	}
	summary, err := json.Marshal(payload)
	if err != nil {
		slog.Error("evaluation marshal failed", "run_id", runID, "err", err)
		return
	}
	eval := &model.Evaluation{
		ID:        runID,
		WellID:    wellID,
		Operation: operation,
		NPV:       npv,
		IRR:       irr,
		Summary:   summary,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.InsertEvaluation(ctx, eval); err != nil {
		slog.Error("evaluation insert failed", "run_id", runID, "err", err)
	}
}

// writeJSON writes a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
