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

	"classroom/internal/api"
	"classroom/internal/config"
	"classroom/internal/metrics"
	"classroom/internal/middleware"
	"classroom/internal/repository"
	"classroom/internal/service"
	"classroom/pkg/logger"

	"github.com/glebarez/sqlite"
	"github.com/redis/go-redis/v9"
	clientv3 "go.etcd.io/etcd/client/v3"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func main() {
	// 1. Load Configuration
	cfg := config.Load()

	// Initialize logger
	logger.InitLogger(cfg.Server.Environment)
	defer logger.Sync()

	if err := run(cfg); err != nil {
		logger.Error("application startup failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	// 2. Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. Initialize Infrastructure
	store, closeStore, err := initStore(ctx, cfg.DB)
	if err != nil {
		return err
	}
	defer closeStore()
	if err := repository.Seed(ctx, store, repository.DefaultSeed, bcrypt.DefaultCost); err != nil {
		return err
	}

	var (
		registry repository.RefreshRegistry
		scripter redis.Scripter
		checks   []api.HealthCheck
	)
	switch cfg.Server.RefreshRegistry {
	case "redis":
		rdb, err := initRedis(cfg.Redis)
		if err != nil {
			return err
		}
		defer rdb.Close()
		registry = repository.NewRedisRefreshRegistry(rdb)
		scripter = rdb
		checks = append(checks, func(ctx context.Context) error { return rdb.Ping(ctx).Err() })
	case "etcd":
		etcdCli, err := initEtcd(cfg.Etcd)
		if err != nil {
			return err
		}
		defer etcdCli.Close()
		etcdRegistry := repository.NewEtcdRefreshRegistry(etcdCli)
		registry = etcdRegistry
		checks = append(checks, etcdRegistry.Health)
	default:
		memRegistry := repository.NewMemoryRefreshRegistry()
		registry = memRegistry
		go func() {
			logger.Info("starting refresh token sweeper")
			service.NewSweepWorker(memRegistry, time.Minute).Run(ctx)
		}()
	}

	// 4. Initialize Services
	authSvc := service.NewAuthService(store, registry, service.AuthOptions{
		SigningKey:      cfg.Auth.SigningKey,
		AccessTokenTTL:  cfg.Auth.AccessTokenTTL,
		RefreshTokenTTL: cfg.Auth.RefreshTokenTTL,
	})
	userSvc := service.NewUserService(store, store, bcrypt.DefaultCost)

	// 5. Setup HTTP Server
	r := api.RegisterRoutes(api.Handlers{
		Auth:        api.NewAuthHandler(authSvc, userSvc),
		Classes:     api.NewClassHandler(service.NewClassService(store, store, store)),
		Enrollments: api.NewEnrollmentHandler(service.NewEnrollmentService(store, store, store)),
		Users:       api.NewUserHandler(userSvc),
	}, api.RouterOptions{
		Authenticator:  authSvc,
		LoginLimiter:   middleware.NewRateLimiter(scripter, cfg.Server.RequestsPerSecond, ""),
		HTTPObserver:   metrics.NewHTTPObserver(),
		AllowedOrigins: cfg.Server.AllowedOrigins,
		HealthChecks:   checks,
	})

	srv := &http.Server{
		Addr:              cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// 6. Start Server
	go func() {
		logger.Info("server starting",
			zap.String("addr", cfg.Server.Port),
			zap.String("env", cfg.Server.Environment),
			zap.String("refresh_registry", cfg.Server.RefreshRegistry),
			zap.String("database", cfg.DB.Driver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server listen failed", zap.Error(err))
		}
	}()

	// 7. Graceful Shutdown Signal Wait
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server...")

	// Create a deadline to wait for current requests to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	// Signal all workers to stop
	cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("server exited properly")
	return nil
}

// -- Infrastructure Initializers --

func initStore(ctx context.Context, cfg config.DBConfig) (repository.Store, func(), error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case config.DriverMySQL:
		dialector = mysql.Open(cfg.DSN)
	case config.DriverSQLite:
		dialector = sqlite.Open(cfg.DSN)
	default:
		return repository.NewMemoryStore(), func() {}, nil
	}

	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to %s: %w", cfg.Driver, err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, err
	}
	if cfg.Driver == config.DriverSQLite {
		sqlDB.SetMaxOpenConns(1)
	}

	store := repository.NewGormStore(db)
	if err := store.Migrate(ctx); err != nil {
		sqlDB.Close()
		return nil, nil, fmt.Errorf("migrate: %w", err)
	}
	return store, func() { sqlDB.Close() }, nil
}

func initRedis(cfg config.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return rdb, nil
}

func initEtcd(cfg config.EtcdConfig) (*clientv3.Client, error) {
	client, err := clientv3.New(clientv3.Config{
		Endpoints:   cfg.Endpoints,
		DialTimeout: cfg.DialTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to etcd: %w", err)
	}
	return client, nil
}
