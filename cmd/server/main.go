package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/anonto42/volunteer-hub/backend/internal/handlers"
	"github.com/anonto42/volunteer-hub/backend/internal/jobs"
	"github.com/anonto42/volunteer-hub/backend/internal/middleware"
	"github.com/anonto42/volunteer-hub/backend/internal/models"
	"github.com/anonto42/volunteer-hub/backend/internal/notify"
	"github.com/anonto42/volunteer-hub/backend/internal/push"
	"github.com/anonto42/volunteer-hub/backend/internal/realtime"
	"github.com/anonto42/volunteer-hub/backend/internal/repositories"
	"github.com/anonto42/volunteer-hub/backend/internal/router"
	"github.com/anonto42/volunteer-hub/backend/pkg/config"
	"github.com/anonto42/volunteer-hub/backend/pkg/firebase"
	"github.com/anonto42/volunteer-hub/backend/pkg/logger"
	"github.com/anonto42/volunteer-hub/backend/validators"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

func main() {
	genKeys := flag.Bool("generate-vapid-keys", false, "print a new VAPID key pair and exit")
	flag.Parse()

	if *genKeys {
		privateKey, publicKey, err := push.GenerateVAPIDKeys()
		if err != nil {
			fmt.Fprintf(os.Stderr, "generate VAPID keys: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("VAPID_PUBLIC_KEY=%s\nVAPID_PRIVATE_KEY=%s\n", publicKey, privateKey)
		return
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "server: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log, err := logger.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize database connections
	db, err := config.InitDB(cfg, log)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := repositories.AutoMigrate(db.SQL); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	log.Info("auto-migrations completed")

	// Firebase is optional unless it backs authentication.
	var firebaseApp *firebase.App
	if cfg.FirebaseCredentialsPath != "" {
		firebaseApp, err = firebase.InitFirebase(ctx, cfg.FirebaseCredentialsPath)
		if err != nil {
			return fmt.Errorf("initialize firebase: %w", err)
		}
		log.Info("firebase initialized")
	}

	transport := pushTransport(cfg, firebaseApp, log)

	var (
		rtNotifier   realtime.Notifier   = realtime.Noop{}
		rtSubscriber realtime.Subscriber = realtime.Noop{}
	)
	if db.Redis != nil {
		redisNotifier := realtime.NewRedisNotifier(db.Redis, log)
		rtNotifier, rtSubscriber = redisNotifier, redisNotifier
	}

	var reports repositories.DeliveryReportRepository
	if db.Mongo != nil {
		mongoReports := repositories.NewMongoDeliveryReportRepository(db.Mongo.Database(cfg.MongoDatabase))
		if err := mongoReports.EnsureIndexes(ctx); err != nil {
			log.Warn("create delivery report indexes", zap.Error(err))
		}
		reports = mongoReports
	}

	userRepo := repositories.NewPostgresUserRepository(db.SQL)
	var verifier middleware.IDTokenVerifier
	if firebaseApp != nil {
		verifier = firebaseApp.AuthClient
	}
	authMW, err := router.AuthMiddleware(cfg.AuthProvider, cfg.JWTSecret, verifier, userRepo, log)
	if err != nil {
		return err
	}

	outboxRepo := repositories.NewPostgresOutboxRepository(db.SQL)
	outbox := notify.NewOutbox(outboxRepo)

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true
	e.Validator = validators.NewValidator()
	e.HTTPErrorHandler = handlers.ErrorHandler
	config.SetupMiddleware(e, log)

	svc := router.SetupRoutes(e, router.Deps{
		SQL:                db.SQL,
		Mongo:              db.Mongo,
		Redis:              db.Redis,
		Outbox:             outbox,
		Reports:            reports,
		Notifier:           rtNotifier,
		Subscriber:         rtSubscriber,
		Auth:               authMW,
		VAPIDPublicKey:     cfg.VAPIDPublicKey,
		TrendingWindowDays: cfg.TrendingWindowDays,
		Logger:             log,
	})

	engine := notify.NewEngine(
		repositories.NewPostgresNotificationRepository(db.SQL),
		svc.Push,
		transport,
		rtNotifier,
		log,
		notify.EngineConfig{Concurrency: cfg.FanoutConcurrency, PushTimeout: cfg.PushTimeout},
	)
	resolver := notify.NewAudienceResolver(
		userRepo,
		repositories.NewPostgresEventRepository(db.SQL),
		repositories.NewPostgresRegistrationRepository(db.SQL),
	)
	dispatcher := jobs.NewDispatcher(outboxRepo, resolver, engine, reports, outbox.Woken(), jobs.DispatcherConfig{
		PollInterval:   cfg.OutboxPollInterval,
		BatchSize:      cfg.OutboxBatchSize,
		MaxAttempts:    cfg.OutboxMaxAttempts,
		RetryBackoff:   cfg.OutboxRetryBackoff,
		ProcessTimeout: cfg.OutboxProcessTimeout,
	}, log)
	sweeper := jobs.NewSweeper(svc.Events, svc.Registrations, cfg.ExpiryInterval, log)

	var workers sync.WaitGroup
	workers.Add(2)
	go func() {
		defer workers.Done()
		dispatcher.Run(ctx)
	}()
	go func() {
		defer workers.Done()
		sweeper.Run(ctx)
	}()

	serverErr := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("port", cfg.Port))
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case err := <-serverErr:
		if err != nil {
			stop()
			workers.Wait()
			return fmt.Errorf("start server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", zap.Error(err))
	}
	stop()
	workers.Wait()
	log.Info("server stopped")
	return nil
}

// pushTransport registers WebPush when VAPID keys are set and FCM when
// Firebase is initialized. With neither, notifications are stored only.
func pushTransport(cfg *config.Config, app *firebase.App, log *zap.Logger) push.Transport {
	transports := push.NewRouter()

	vapid := push.VAPIDConfig{
		PublicKey:  cfg.VAPIDPublicKey,
		PrivateKey: cfg.VAPIDPrivateKey,
		Subject:    cfg.VAPIDSubject,
		TTL:        cfg.PushTTL,
	}
	if vapid.Valid() {
		transports.Handle(models.PushProviderWebPush, push.NewWebPushTransport(vapid, &http.Client{Timeout: cfg.PushTimeout}))
	} else {
		log.Warn("VAPID keys not set, web push disabled")
	}
	if app != nil && app.MessagingClient != nil {
		transports.Handle(models.PushProviderFCM, push.NewFCMTransport(app.MessagingClient))
	}
	if !transports.Enabled() {
		return nil
	}
	return transports
}
