// File: cmd/app/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ai-interview-platform/internal/config"
	"ai-interview-platform/internal/domain/ports/adapter"
	"ai-interview-platform/internal/grader"
	aiAdapters "ai-interview-platform/internal/infra/adapters/ai"
	"ai-interview-platform/internal/infra/adapters/eligibility"
	pg "ai-interview-platform/internal/infra/db/postgres"
	"ai-interview-platform/internal/infra/logging"
	"ai-interview-platform/internal/infra/metrics"
	red "ai-interview-platform/internal/infra/redis"
	"ai-interview-platform/internal/infra/sched"
	"ai-interview-platform/internal/infra/web"
	"ai-interview-platform/internal/infra/worker"
	"ai-interview-platform/internal/usecase"
)

// Set via -ldflags at build time.
var (
	version = "dev"
	commit  = "none"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (noop AI, relaxed eligibility)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("developer mode enabled")
	}

	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit)

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()
	go pg.ReportPoolStats(ctx, pool, 30*time.Second)

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis")
	}
	defer redisClient.Close()
	locker := red.NewLocker(redisClient)
	resultsCache := red.NewResultsCache(redisClient, cfg.Redis.TTL)

	// ---- AI evaluator (OpenAI -> Gemini failover, noop in dev) ----
	var ai adapter.ModelEvaluator
	if cfg.Runtime.Dev {
		ai = aiAdapters.NewNoopEvaluator()
		logger.Info().Msg("AI evaluator: noop")
	} else {
		var chain []adapter.ModelEvaluator
		if cfg.AI.OpenAIKey != "" {
			oa, err := aiAdapters.NewOpenAIAdapter(cfg.AI.OpenAIKey, cfg.AI.OpenAIBaseURL, cfg.AI.DefaultModel, cfg.AI.PromptBudget)
			if err != nil {
				logger.Fatal().Err(err).Msg("openai adapter")
			}
			chain = append(chain, oa)
		}
		if cfg.AI.GeminiKey != "" {
			gm, err := aiAdapters.NewGeminiAdapter(ctx, cfg.AI.GeminiKey, cfg.AI.GeminiURL, cfg.AI.DefaultModel)
			if err != nil {
				logger.Fatal().Err(err).Msg("gemini adapter")
			}
			chain = append(chain, gm)
		}
		if len(chain) == 0 {
			logger.Fatal().Msgf("no AI provider configured: set ai.openai_key or ai.gemini_key in %s", *cfgPath)
		}
		ai, err = aiAdapters.NewFailoverEvaluator(logger, chain...)
		if err != nil {
			logger.Fatal().Err(err).Msg("ai failover")
		}
		logger.Info().Int("providers", len(chain)).Str("model", cfg.AI.DefaultModel).Msg("AI evaluator configured")
	}
	ai = aiAdapters.NewLimitedEvaluator(ai, cfg.AI.ConcurrentLimit)

	// ---- Session tokens ----
	tokenSecret := cfg.Session.TokenSecret
	if tokenSecret == "" {
		logger.Warn().Msg("session.token_secret not set; using dev secret (INSECURE)")
		tokenSecret = "dev-session-token-secret"
	}
	tokens := web.NewTokenManager(tokenSecret, 0)

	// ---- Repositories ----
	sessionRepo := pg.NewSessionRepo(pool)
	answerRepo := pg.NewAnswerRepo(pool)
	catalogRepo := pg.NewCatalogRepo(pool)
	tm := pg.NewTxManager(pool)

	var checker adapter.EligibilityChecker
	if cfg.Runtime.Dev {
		checker = eligibility.NewAllowAll()
	} else {
		checker = eligibility.NewResumeChecker(pool)
	}

	// ---- Evaluation pipeline ----
	queue := worker.NewQueue(cfg.Evaluation.QueueSize)

	answerUC := usecase.NewAnswerUseCase(sessionRepo, answerRepo, catalogRepo, tm, tokens, queue, cfg.Evaluation.MaxAttempts, logger)
	resultsUC := usecase.NewResultsUseCase(sessionRepo, answerRepo, catalogRepo, ai, resultsCache, locker, logger)
	sessionUC := usecase.NewSessionUseCase(sessionRepo, catalogRepo, checker, tm, tokens, answerUC, locker, logger)

	graders := grader.NewRegistry(
		grader.NewExactMatch(),
		grader.NewKeywordSemantic(ai, logger),
		grader.NewRubric(ai, logger),
	)
	evaluator := worker.NewEvaluator(queue, answerRepo, graders, resultsUC, worker.EvaluatorConfig{
		CallTimeout:      cfg.AI.CallTimeout,
		RetryBackoff:     cfg.Evaluation.RetryBackoff,
		FallbackFraction: cfg.Evaluation.FallbackFraction,
	}, logger)
	evaluator.Start(ctx, cfg.Evaluation.Workers)

	// ---- Abandonment sweeper ----
	abandon := sched.NewAbandonWorker(cfg.Session.AbandonSweep, cfg.Session.InactivityIdle, sessionRepo, logger)
	go func() { _ = abandon.Run(ctx) }()

	// ---- HTTP server ----
	srv := web.NewServer(sessionUC, answerUC, resultsUC, logger)
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("http listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("http server")
		}
	}()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
	cancel()
	queue.Close()
	evaluator.Stop()
}
