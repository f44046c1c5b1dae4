// File: cmd/app/main.go
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ai-caption-backend/internal/config"
	"ai-caption-backend/internal/domain/ports/adapter"
	aiAdapters "ai-caption-backend/internal/infra/adapters/ai"
	"ai-caption-backend/internal/infra/api"
	pg "ai-caption-backend/internal/infra/db/postgres"
	"ai-caption-backend/internal/infra/logging"
	"ai-caption-backend/internal/infra/metrics"
	"ai-caption-backend/internal/infra/payment"
	red "ai-caption-backend/internal/infra/redis"
	"ai-caption-backend/internal/infra/sched"
	"ai-caption-backend/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Info().Msg("developer mode enabled")
	}

	metrics.MustRegister()

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, cfg.Database.MaxConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis")
	}
	defer redisClient.Close()
	quota := red.NewQuotaTracker(redisClient, cfg.Quota.AnonymousCeiling, cfg.Quota.Window)
	locker := red.NewLocker(redisClient)

	// ---- Repositories ----
	intentRepo := pg.NewPaymentIntentRepo(pool)
	ledgerRepo := pg.NewCreditLedgerRepo(pool)
	packageRepo := pg.NewCreditPackageRepo(pool)
	captionRepo := pg.NewCaptionRepo(pool)
	tm := pg.NewTxManager(pool)

	// ---- Payment provider ----
	gateway, err := payment.NewRazorpayGateway(cfg.Payment.Razorpay.KeyID, cfg.Payment.Razorpay.KeySecret, cfg.Payment.Razorpay.BaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("razorpay gateway")
	}
	verifier := payment.NewHMACVerifier(cfg.Payment.Razorpay.KeySecret)

	// ---- AI adapter (Gemini -> OpenAI -> noop in dev) ----
	var ai adapter.CaptionGenerator
	switch {
	case cfg.AI.Provider == "gemini" && cfg.AI.GeminiKey != "":
		ai, err = aiAdapters.NewGeminiAdapter(ctx, cfg.AI.GeminiKey, cfg.AI.GeminiURL, cfg.AI.DefaultModel, cfg.AI.MaxTokens)
		if err != nil {
			logger.Fatal().Err(err).Msg("gemini adapter")
		}
		logger.Info().Str("model", cfg.AI.DefaultModel).Msg("AI adapter: gemini")
	case cfg.AI.Provider == "openai" && cfg.AI.OpenAIKey != "":
		ai, err = aiAdapters.NewOpenAIAdapter(cfg.AI.OpenAIKey, cfg.AI.OpenAIURL, cfg.AI.DefaultModel)
		if err != nil {
			logger.Fatal().Err(err).Msg("openai adapter")
		}
		logger.Info().Str("model", cfg.AI.DefaultModel).Msg("AI adapter: openai")
	case cfg.Runtime.Dev:
		ai = aiAdapters.NewNoopAdapter()
		logger.Warn().Msg("AI adapter: noop (dev mode, no provider key)")
	default:
		logger.Fatal().Msg("no AI provider configured: set ai.gemini_key or ai.openai_key")
	}

	// ---- Use cases ----
	purchaseUC := usecase.NewPurchaseUseCase(intentRepo, ledgerRepo, packageRepo, gateway, verifier, tm, logger)
	generationUC := usecase.NewGenerationUseCase(ai, ledgerRepo, captionRepo, quota, locker, logger)

	// ---- HTTP API ----
	authMgr := api.NewAuthManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	srv := api.NewServer(purchaseUC, generationUC, authMgr, cfg.Server.DeepLinkBase, logger)
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      srv.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("http listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("http server")
		}
	}()

	// ---- Stale-intent reconciler ----
	reconciler := sched.NewPaymentReconciler(
		intentRepo, gateway,
		cfg.Reconciler.Interval, cfg.Reconciler.StaleAfter, cfg.Reconciler.BatchSize,
		logger,
	)
	go reconciler.Start(ctx)

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
}
