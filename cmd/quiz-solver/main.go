package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"quiz-solver/internal/api"
	"quiz-solver/internal/browser"
	"quiz-solver/internal/config"
	"quiz-solver/internal/jobs"
	"quiz-solver/internal/llm"
	"quiz-solver/internal/logging"
	"quiz-solver/internal/solver"
	"quiz-solver/internal/stats"
	"quiz-solver/internal/submit"
	"quiz-solver/internal/throttle"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("config error: %v", err)
	}

	log, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		logrus.Fatalf("config error: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	statsStore := stats.Store(stats.NewMemoryStore(stats.WithMemoryTrackKeys(cfg.StatsTrackKeys)))
	jobStore := jobs.Store(jobs.NewMemoryStore())
	if cfg.RedisEnabled() {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer func() { _ = rdb.Close() }()

		pingCtx, pingCancel := context.WithTimeout(ctx, 2*time.Second)
		_, err := rdb.Ping(pingCtx).Result()
		pingCancel()
		if err != nil {
			log.Fatalf("redis ping error: %v", err)
		}

		statsStore = stats.NewRedisStore(
			rdb,
			stats.WithPrefix(cfg.StatsPrefix),
			stats.WithTTL(cfg.StatsTTL),
			stats.WithBucket(cfg.StatsBucket),
			stats.WithTrackKeys(cfg.StatsTrackKeys),
		)
		jobStore = jobs.NewRedisStore(rdb, "quizsolver:job", cfg.JobTTL)
	}

	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}

	br := browser.New(browser.Options{
		NavTimeout:    cfg.BrowserNavTimeout,
		Settle:        cfg.BrowserSettle,
		ResultTimeout: cfg.BrowserResultTimeout,
		HTTPClient:    httpClient,
		Logger:        log.WithField("component", "browser"),
	})
	defer func() {
		if err := br.Close(); err != nil {
			log.WithError(err).Warn("browser close error")
		}
	}()

	llmClient := llm.NewOpenAI(llm.Options{
		APIKey:  cfg.OpenAIKey,
		BaseURL: cfg.OpenAIBaseURL,
		Model:   cfg.OpenAIModel,
		Logger:  log.WithField("component", "llm"),
	})

	sv := solver.New(llmClient, br, solver.Options{
		BaseURL: cfg.QuizBaseURL,
		Logger:  log.WithField("component", "solver"),
	})

	runner := jobs.NewRunner(jobs.Deps{
		Store:   jobStore,
		Stats:   statsStore,
		Fetcher: br,
		Solver:  sv,
		Submit:  submit.New(httpClient, log.WithField("component", "submit")),
		Logger:  log.WithField("component", "jobs"),
	}, jobs.Options{
		Concurrency: cfg.SolveConcurrency,
		MaxQueued:   cfg.SolveQueueMax,
		Deadline:    cfg.SolveDeadline,
		MaxSteps:    cfg.SolveMaxSteps,
	})

	limiter := throttle.NewStore(cfg.RateRPS, cfg.RateBurst)
	limiter.StartJanitor(ctx)

	var solveMW []func(http.Handler) http.Handler
	if cfg.RateEnabled {
		solveMW = append(solveMW, throttle.Middleware(throttle.Options{
			Store:               limiter,
			Stats:               statsStore,
			KeyHeader:           cfg.RateKeyHeader,
			TrustXForwardedFor:  cfg.TrustXFF,
			RejectStatus:        http.StatusTooManyRequests,
			RetryAfter:          cfg.RetryAfter,
			AddRateLimitHeaders: cfg.AddHeaders,
			Logger:              log.WithField("component", "throttle"),
		}))
	}

	h := api.NewRouter(api.Options{
		Secret:          cfg.Secret,
		Email:           cfg.Email,
		Jobs:            runner,
		Logger:          log.WithField("component", "api"),
		SolveMiddleware: solveMW,
	})
	h = throttle.ConcurrencyMiddleware(throttle.ConcurrencyOptions{
		Max:            cfg.ConcurrencyMax,
		RejectStatus:   http.StatusServiceUnavailable,
		AcquireTimeout: cfg.ConcurrencyTimeout,
	})(h)

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		if err := runner.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Warn("solve jobs did not finish before shutdown")
		}
	}()

	log.Infof("quiz solver listening on %s (email=%s model=%s)", cfg.Addr(), cfg.Email, cfg.OpenAIModel)
	log.Infof("rate: enabled=%v rps=%.3f burst=%d keyHeader=%q trustXFF=%v", cfg.RateEnabled, cfg.RateRPS, cfg.RateBurst, cfg.RateKeyHeader, cfg.TrustXFF)
	log.Infof("solve: concurrency=%d queueMax=%d deadline=%s maxSteps=%d", cfg.SolveConcurrency, cfg.SolveQueueMax, cfg.SolveDeadline, cfg.SolveMaxSteps)
	log.Infof("storage: redis=%v statsBucket=%q statsTTL=%s jobTTL=%s", cfg.RedisEnabled(), cfg.StatsBucket, cfg.StatsTTL, cfg.JobTTL)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("server error: %v", err)
	}
	<-shutdownDone
}
