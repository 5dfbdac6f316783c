package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/basinflow/forecast-engine/internal/config"
	"github.com/basinflow/forecast-engine/internal/eur"
	"github.com/basinflow/forecast-engine/internal/metrics"
	"github.com/basinflow/forecast-engine/internal/montecarlo"
	"github.com/basinflow/forecast-engine/internal/portfolio"
	"github.com/basinflow/forecast-engine/internal/service"
	"github.com/basinflow/forecast-engine/internal/store"
	"github.com/basinflow/forecast-engine/internal/valuation"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("configuration error", "err", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(logger)

	// --- Initialize store ---
	var st store.Store
	var cleanup []func()

	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
		if err != nil {
			slog.Error("database connection failed", "err", err)
			os.Exit(1)
		}
		cleanup = append(cleanup, pool.Close)
		st = store.NewPostgresStore(pool)
		slog.Info("connected to PostgreSQL")

		// Wrap with Redis read-through cache if configured.
		if cfg.RedisURL != "" {
			opt, err := redis.ParseURL(cfg.RedisURL)
			if err != nil {
				slog.Error("invalid redis_url", "err", err)
				os.Exit(1)
			}
			rdb := redis.NewClient(opt)
			cleanup = append(cleanup, func() { rdb.Close() })
			st = store.NewCachedStore(st, rdb, time.Duration(cfg.CacheTTLSeconds)*time.Second)
			slog.Info("Redis cache enabled", "ttl_seconds", cfg.CacheTTLSeconds)
		}
	} else {
		slog.Warn("database_url not set, using in-memory store (data will not persist)")
		st = store.NewMemoryStore()
	}

	defer func() {
		for _, fn := range cleanup {
			fn()
		}
	}()

	// --- Engines ---
	valuer, err := valuation.NewEngine(cfg.ValuationEpsilon, cfg.ValuationMaxIters)
	if err != nil {
		slog.Error("invalid valuation settings", "err", err)
		os.Exit(1)
	}
	calculator, err := eur.NewCalculator(nil, eur.BandMultipliers{P10: cfg.EURBandP10, P90: cfg.EURBandP90})
	if err != nil {
		slog.Error("invalid eur bands", "err", err)
		os.Exit(1)
	}
	simulator := montecarlo.NewEngine(cfg.SimChunkSize)

	// --- Concentration limits ---
	var limiter *portfolio.ConcentrationLimiter
	if cfg.MaxCapexPerProspect > 0 || cfg.MaxCapexPerBasin > 0 {
		limiter = portfolio.NewConcentrationLimiter(
			decimal.NewFromFloat(cfg.MaxCapexPerProspect),
			decimal.NewFromFloat(cfg.MaxCapexPerBasin),
		)
	}

	// --- WebSocket hub ---
	wsHub := service.NewWSHub()
	go wsHub.Run()

	// --- Engine service ---
	deck := service.PriceDeck{
		OilPrice:   cfg.DefaultOilPrice,
		OpexPerBOE: cfg.DefaultOpexPerBOE,
	}
	svc := service.NewService(st, valuer, simulator, calculator, limiter, wsHub, deck, cfg.SimWorkers)

	// --- HTTP router ---
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(metrics.Middleware)

	// CORS middleware for frontend cross-origin requests.
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","service":"forecast-engine"}`))
	})

	// Prometheus metrics endpoint.
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		// WebSocket endpoint for simulation progress updates.
		r.Get("/ws", wsHub.HandleWS)

		// Engine operations.
		r.Post("/forecast", svc.Forecast)
		r.Post("/eur", svc.EUR)
		r.Post("/valuation", svc.Valuation)
		r.Post("/simulation", svc.Simulation)
		r.Post("/portfolio", svc.Portfolio)

		// Evaluation history.
		r.Get("/evaluations", svc.ListRecentEvaluations)
		r.Get("/evaluations/{runID}", svc.GetEvaluation)
		r.Get("/evaluations/{runID}/report", svc.GetEvaluationReport)
		r.Get("/wells", svc.ListWells)
		r.Get("/wells/{wellID}/evaluations", svc.ListWellEvaluations)
	})

	// --- Server ---
	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("forecast-engine listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	slog.Info("shutting down forecast-engine...")
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "err", err)
	}
	fmt.Println("forecast-engine stopped")
}
