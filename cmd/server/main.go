// Command server starts the AI Credit Assessor HTTP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	ai "github.com/fairyhunter13/ai-credit-assessor/internal/adapter/ai"
	"github.com/fairyhunter13/ai-credit-assessor/internal/adapter/ai/real"
	httpserver "github.com/fairyhunter13/ai-credit-assessor/internal/adapter/httpserver"
	"github.com/fairyhunter13/ai-credit-assessor/internal/adapter/observability"
	"github.com/fairyhunter13/ai-credit-assessor/internal/adapter/queue/redpanda"
	"github.com/fairyhunter13/ai-credit-assessor/internal/adapter/repo/postgres"
	"github.com/fairyhunter13/ai-credit-assessor/internal/adapter/storage/local"
	"github.com/fairyhunter13/ai-credit-assessor/internal/app"
	"github.com/fairyhunter13/ai-credit-assessor/internal/config"
	"github.com/fairyhunter13/ai-credit-assessor/internal/domain"
	"github.com/fairyhunter13/ai-credit-assessor/internal/service/ratelimiter"
	"github.com/fairyhunter13/ai-credit-assessor/internal/usecase"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", slog.Any("error", err))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := observability.SetupLogger(cfg)
	slog.SetDefault(logger)

	policy, err := config.LoadQuestionPolicy(cfg.QuestionPolicyFile)
	if err != nil {
		return err
	}

	// Register all Prometheus metrics once per process.
	observability.InitMetrics()

	shutdownTracer, err := observability.SetupTracing(cfg)
	if err != nil {
		slog.Error("failed to setup tracing", slog.Any("error", err))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	ctx := context.Background()

	// Infra: DB pool and schema
	pool, err := postgres.Connect(ctx, cfg.DBURL, cfg.DBMaxConns, cfg.DBConnectTimeout)
	if err != nil {
		return err
	}
	defer pool.Close()
	if err := postgres.Migrate(ctx, pool); err != nil {
		return err
	}

	customerRepo := postgres.NewCustomerRepo(pool)
	assessmentRepo := postgres.NewAssessmentRepo(pool)
	messageRepo := postgres.NewMessageRepo(pool)
	documentRepo := postgres.NewDocumentRepo(pool)
	bankUserRepo := postgres.NewBankUserRepo(pool)

	if cfg.ReviewerSeedFile != "" {
		n, err := seedReviewersFromYAML(ctx, bankUserRepo, cfg.ReviewerSeedFile)
		if err != nil {
			return err
		}
		slog.Info("reviewer accounts seeded", slog.Int("count", n))
	}

	// Optional Redis generation quota
	var (
		rdb     *redis.Client
		limiter domain.Limiter
	)
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("op=main.redis: %w", err)
		}
		rdb = redis.NewClient(opts)
		defer func() { _ = rdb.Close() }()
		if cfg.QuestionsPerMinute > 0 {
			limiter = ratelimiter.NewRedisLuaLimiter(rdb, map[string]ratelimiter.BucketConfig{
				usecase.QuestionScope: ratelimiter.NewBucketConfigFromPerMinute(cfg.QuestionsPerMinute),
			})
			slog.Info("question quota enabled", slog.Int("per_minute", cfg.QuestionsPerMinute))
		}
	}

	// Optional event publisher
	var events domain.EventPublisher
	if cfg.EventsEnabled() {
		pub, err := redpanda.NewPublisher(cfg.KafkaBrokers, cfg.EventsTopic)
		if err != nil {
			return err
		}
		defer func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := pub.Close(closeCtx); err != nil {
				slog.Error("failed to flush event publisher", slog.Any("error", err))
			}
		}()
		events = pub
	}

	files, err := local.New(cfg.UploadDir)
	if err != nil {
		return err
	}

	if !cfg.AIEnabled() {
		slog.Warn("AI_API_KEY not set; dynamic question generation will report upstream unavailable")
	}
	generator := ai.NewQuestionGenerator(real.New(cfg), policy)

	var questionStore domain.DynamicQuestionRepository
	if cfg.QuestionsPersist {
		questionStore = postgres.NewQuestionRepo(pool)
	}

	assessments := usecase.NewAssessmentService(customerRepo, assessmentRepo, events)
	followUps := usecase.NewFollowUpService(assessmentRepo, messageRepo, documentRepo, files, events)
	questions := usecase.NewQuestionService(generator, limiter, questionStore)

	var redisClient redis.UniversalClient
	if rdb != nil {
		redisClient = rdb
	}
	dbCheck, redisCheck := app.BuildReadinessChecks(pool, redisClient)

	srv := httpserver.NewServer(cfg, assessments, followUps, questions, bankUserRepo, dbCheck, redisCheck)
	handler := app.BuildRouter(cfg, srv)

	srvHTTP := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadTimeout:       cfg.HTTPReadTimeout,
		WriteTimeout:      cfg.HTTPWriteTimeout,
		IdleTimeout:       cfg.HTTPIdleTimeout,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server starting", slog.Int("port", cfg.Port), slog.String("env", cfg.AppEnv))
		errCh <- srvHTTP.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		slog.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("op=main.listen: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ServerShutdownTimeout)
	defer cancel()
	return srvHTTP.Shutdown(shutdownCtx)
}
