package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"desco-report-backend/config"
	"desco-report-backend/internal/api"
	"desco-report-backend/internal/auth"
	"desco-report-backend/internal/db"
	"desco-report-backend/internal/health"
	"desco-report-backend/internal/notification"
	"desco-report-backend/internal/provider"
	"desco-report-backend/internal/store"
	"desco-report-backend/internal/sync"
	"desco-report-backend/pkg/logger"
)

// @title        DESCO Report Backend API
// @version      1.0
// @description  Backend for DESCO prepaid account reporting.
// @securityDefinitions.apikey BearerAuth
// @in    header
// @name  Authorization
func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration from %s: %v\n", configPath, err)
		os.Exit(1)
	}

	log, err := logger.New(&cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("configuration loaded", zap.String("path", configPath))

	gormDB, err := db.Init(&cfg.Database, log)
	if err != nil {
		log.Fatal("failed to initialize database", zap.Error(err))
	}
	if err := db.SeedAdminUser(gormDB, cfg.Admin.Username, cfg.Admin.Email, cfg.Admin.Password, log); err != nil {
		log.Fatal("failed to seed admin user", zap.Error(err))
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient, err = db.ConnectRedis(&cfg.Redis)
		if err != nil {
			log.Fatal("failed to connect to redis", zap.Error(err))
		}
	} else {
		log.Warn("redis not configured, token revocation is disabled")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	providerClient := provider.NewClient(&cfg.Provider, log)

	// Run the startup dependency gate before accepting traffic decisions;
	// the HTTP server still starts so /readyz can report the outcome.
	var gate *health.Gate
	if cfg.DependencyCheck.Enabled {
		checks := []health.Check{
			{Name: "postgres", Probe: func(ctx context.Context) error {
				sqlDB, err := gormDB.DB()
				if err != nil {
					return err
				}
				return sqlDB.PingContext(ctx)
			}},
			{Name: "provider", Probe: func(ctx context.Context) error {
				return providerClient.Ping(ctx)
			}},
		}
		if redisClient != nil {
			checks = append(checks, health.Check{Name: "redis", Probe: func(ctx context.Context) error {
				return redisClient.Ping(ctx).Err()
			}})
		}
		gate = health.NewGate(checks, health.Options{
			MaxRetries:   cfg.DependencyCheck.MaxRetries,
			RetryDelay:   time.Duration(cfg.DependencyCheck.RetryDelayMS) * time.Millisecond,
			CheckTimeout: time.Duration(cfg.DependencyCheck.CheckTimeoutMS) * time.Millisecond,
		}, log)
		go gate.Run(ctx)
	}

	appStore := store.NewGormStore(gormDB)

	var webpushOptions *webpush.Options
	var pool *notification.WorkerPool
	if cfg.Push.PublicKey != "" && cfg.Push.PrivateKey != "" {
		webpushOptions = &webpush.Options{
			VAPIDPublicKey:  cfg.Push.PublicKey,
			VAPIDPrivateKey: cfg.Push.PrivateKey,
			Subscriber:      cfg.Push.Subject,
			TTL:             cfg.Push.TTL,
		}
		pool = notification.NewWorkerPool(cfg.WorkerPool.Size, gormDB, webpushOptions, log)
		pool.Start(ctx)
	} else {
		log.Warn("vapid keys not configured, push notifications are disabled")
	}

	var notifier sync.EventNotifier
	if pool != nil {
		notifier = pool
	}
	syncService := sync.NewService(providerClient, appStore, notifier, cfg.Sync, log)

	users := auth.NewService(gormDB)
	tokens := auth.NewTokens(cfg.JWT.Secret, cfg.JWT.TTL)
	denylist := auth.NewDenylist(redisClient)

	handler := api.NewHandler(appStore, syncService, users, tokens, denylist, webpushOptions, cfg.Sync, log)
	router := api.NewRouter(&cfg.Server, handler, gate, log)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		log.Info("http server starting", zap.Int("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("http server failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Info("shutdown signal received, stopping services")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal("http server shutdown failed", zap.Error(err))
	}

	cancel()
	if redisClient != nil {
		redisClient.Close()
	}
	log.Info("server stopped")
}
