package commands

import (
	"fmt"
	"time"

	"github.com/tradia/signals/internal/external/finviz"
	"github.com/tradia/signals/internal/external/openai"
	"github.com/tradia/signals/internal/external/polygon"
	"github.com/tradia/signals/internal/outcomes"
	"github.com/tradia/signals/internal/scan"
	"github.com/tradia/signals/internal/scorer"
	"github.com/tradia/signals/internal/store"
	"github.com/tradia/signals/internal/universe"
	"github.com/tradia/signals/pkg/config"
	"github.com/tradia/signals/pkg/database"
	"github.com/tradia/signals/pkg/httputil"
	"github.com/tradia/signals/pkg/logger"
	"github.com/tradia/signals/pkg/redis"
)

// app holds the fully wired pipeline shared by the CLI commands.
type app struct {
	cfg   *config.Config
	log   *logger.Logger
	db    *database.DB
	redis *redis.Client

	signals  *store.SignalRepository
	outcomes *store.OutcomeRepository
	stats    *store.StatsRepository

	orchestrator *scan.Orchestrator
	tracker      *outcomes.Tracker
}

// newApp loads config and wires every component bottom-up. Commands
// that only need a subset still pay the full wiring cost, which keeps
// startup behavior identical across commands.
func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if verbose {
		cfg.LogLevel = "debug"
	}

	log := logger.New(cfg)

	db, err := database.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	redisClient, err := redis.New(cfg)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	cache := redis.NewCache(redisClient, "tradia")
	limiter := redis.NewRateLimiter(redisClient, "tradia")

	polygonHTTP := httputil.NewWithTimeout(log, cfg.Polygon.Timeout).
		WithRateLimiter(limiter, redis.RateLimitConfig{
			Key:    "polygon",
			Limit:  cfg.Polygon.RequestsPerSecond,
			Window: time.Second,
		})
	provider := polygon.NewClient(polygonHTTP, cfg.Polygon, cache, log)

	ranker := openai.NewClient(httputil.NewWithTimeout(log, cfg.OpenAI.Timeout), cfg.OpenAI, log)

	model, err := scorer.Load(cfg.Scan.ModelPath)
	if err != nil {
		db.Close()
		redisClient.Close()
		return nil, fmt.Errorf("load model: %w", err)
	}

	window, err := scan.NewTradingWindow(cfg.Scan.Timezone, cfg.Scan.WindowOpen, cfg.Scan.WindowClose, cfg.Scan.Interval)
	if err != nil {
		db.Close()
		redisClient.Close()
		return nil, fmt.Errorf("build trading window: %w", err)
	}

	selector := universe.NewSelector(provider, cache, cfg.Universe, log)

	signalRepo := store.NewSignalRepository(db.Pool)
	outcomeRepo := store.NewOutcomeRepository(db.Pool)
	statsRepo := store.NewStatsRepository(db.Pool)

	var screener scan.Screener
	if cfg.Finviz.Enabled {
		screener = finviz.NewScreener(httputil.New(log), cfg.Finviz, log)
	}

	orchestrator := scan.NewOrchestrator(selector, provider, model, ranker, signalRepo, screener, window, cfg.Scan, log)
	tracker := outcomes.NewTracker(signalRepo, outcomeRepo, provider, log)

	return &app{
		cfg:          cfg,
		log:          log,
		db:           db,
		redis:        redisClient,
		signals:      signalRepo,
		outcomes:     outcomeRepo,
		stats:        statsRepo,
		orchestrator: orchestrator,
		tracker:      tracker,
	}, nil
}

// Close releases the app's connections.
func (a *app) Close() {
	a.db.Close()
	if err := a.redis.Close(); err != nil {
		a.log.WithError(err).Warn("failed to close redis client")
	}
}
