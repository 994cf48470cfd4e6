package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vytor/learner/internal/api"
	"github.com/vytor/learner/internal/config"
	"github.com/vytor/learner/internal/db"
	"github.com/vytor/learner/internal/jobs"
	"github.com/vytor/learner/internal/logger"
	"github.com/vytor/learner/internal/repository/sqlstore"
	"github.com/vytor/learner/internal/review"
	"github.com/vytor/learner/internal/services"
	"github.com/vytor/learner/internal/worker"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg := config.Load()

	log := logger.New(
		logger.WithLevel(logger.ParseLevel(cfg.LogLevel)),
		logger.WithColors(true),
	)
	logger.SetDefault(log)

	log.Info("===========================================")
	log.Info("Learner Server Starting")
	log.Info("===========================================")

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration: %v", err)
		os.Exit(1)
	}
	log.Info("configuration loaded")
	log.Debug("addr=%s", cfg.Addr)
	log.Debug("db_driver=%s", cfg.DBDriver)
	log.Debug("log_level=%s", cfg.LogLevel)
	log.Debug("timezone=%s", cfg.Timezone)
	log.Debug("default_session_minutes=%d", cfg.DefaultSessionMinutes)
	log.Debug("abandon_applies_reviews=%t", cfg.AbandonAppliesReviews)
	log.Debug("progress_max_retries=%d", cfg.ProgressMaxRetries)
	log.Debug("digest_cron=%s", cfg.DigestCron)
	log.Debug("digest_worker_count=%d", cfg.DigestWorkerCount)
	log.Debug("digest_queue_size=%d", cfg.DigestQueueSize)

	database, err := db.Open(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		log.Error("failed to open database: %v", err)
		os.Exit(1)
	}
	defer func() {
		log.Debug("closing database connection")
		database.Close()
	}()

	policy := review.Policy{
		DefaultEase:       cfg.ReviewDefaultEase,
		MinEase:           cfg.ReviewMinEase,
		PassThreshold:     cfg.ReviewPassThreshold,
		EaseBonus:         cfg.ReviewEaseBonus,
		EaseQualityFactor: cfg.ReviewEaseQualityFactor,
		FailPenalty:       cfg.ReviewFailPenalty,
		MaxIntervalDays:   cfg.ReviewMaxIntervalDays,
		ProficiencyWeight: cfg.ReviewProficiencyWeight,
	}
	if err := policy.Validate(); err != nil {
		log.Error("invalid review policy: %v", err)
		os.Exit(1)
	}
	loc := cfg.Location()

	// Repositories
	userRepo := sqlstore.NewUserRepository(database)
	topicRepo := sqlstore.NewTopicRepository(database)
	progressRepo := sqlstore.NewProgressRepository(database)
	sessionRepo := sqlstore.NewSessionRepository(database)
	quizRepo := sqlstore.NewQuizAttemptRepository(database)

	// Services
	progressService := services.NewProgressService(progressRepo, userRepo, topicRepo, policy, cfg.ProgressMaxRetries, time.Now)
	sessionService := services.NewSessionService(sessionRepo, progressRepo, userRepo, progressService, services.SessionOptions{
		DefaultMinutes:        cfg.DefaultSessionMinutes,
		AbandonAppliesReviews: cfg.AbandonAppliesReviews,
		PassThreshold:         policy.PassThreshold,
		Location:              loc,
		Now:                   time.Now,
	})
	digestService := services.NewDigestService(progressRepo, time.Now)

	// Background work
	digestPool := worker.NewPool("digest", cfg.DigestWorkerCount, cfg.DigestQueueSize)
	jobQueue := jobs.NewWorkerQueue(digestPool, digestService)
	scheduler, err := jobs.NewScheduler(jobQueue, cfg.DigestCron, loc)
	if err != nil {
		log.Error("failed to create scheduler: %v", err)
		os.Exit(1)
	}

	srv := &api.Server{
		DB:              database,
		UserService:     services.NewUserService(userRepo),
		TopicService:    services.NewTopicService(topicRepo),
		ProgressService: progressService,
		SessionService:  sessionService,
		QuizService:     services.NewQuizService(quizRepo, userRepo, topicRepo, policy, cfg.ProgressMaxRetries, time.Now),
		JobQueue:        jobQueue,
	}

	httpServer := &http.Server{
		Addr:         cfg.Addr,
		Handler:      srv.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	digestPool.Start(ctx)
	scheduler.Start()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("HTTP server listening on %s", cfg.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("initiating graceful shutdown")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		log.Debug("stopping scheduler")
		scheduler.Stop()

		log.Debug("shutting down HTTP server")
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error("HTTP server shutdown error: %v", err)
		}

		log.Debug("stopping digest pool")
		digestPool.Stop()
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error("server error: %v", err)
	}

	log.Info("===========================================")
	log.Info("Learner Server Stopped")
	log.Info("===========================================")
}
