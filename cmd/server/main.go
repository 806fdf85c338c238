package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"campuswiki/backend/internal/cache"
	"campuswiki/backend/internal/config"
	"campuswiki/backend/internal/health"
	"campuswiki/backend/internal/logger"
	"campuswiki/backend/internal/middleware"
	"campuswiki/backend/internal/moderation"
	"campuswiki/backend/internal/monitoring"
	"campuswiki/backend/internal/pool"
	"campuswiki/backend/internal/service"
	"campuswiki/backend/internal/storage"
	"campuswiki/backend/internal/storage/memory"
	"campuswiki/backend/internal/storage/postgres"
	"campuswiki/backend/internal/storage/redis"
	httptransport "campuswiki/backend/internal/transport/http"
	"campuswiki/backend/internal/websocket"
)

// 后台任务间隔
const (
	poolStatsInterval      = 15 * time.Second
	limiterCleanupInterval = time.Minute
)

// main 启动内容审核 HTTP 服务。
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	// 设置 Gin 模式（基于开发环境标志）
	if !cfg.Log.Development {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	log, err := logger.NewLogger(cfg.Log)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer func() { _ = log.Sync() }()

	log.Info("starting campuswiki moderation server",
		zap.String("log_level", cfg.Log.Level),
		zap.Bool("development", cfg.Log.Development),
	)

	// 信号处理
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 初始化存储层
	store, pgClient, err := initializeStorage(ctx, cfg, log)
	if err != nil {
		log.Fatal("failed to initialize storage", zap.Error(err))
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Warn("store close error", zap.Error(err))
		}
	}()

	// 声誉缓存
	repCache, redisClient, closeCache, err := initializeReputationCache(ctx, cfg, log)
	if err != nil {
		log.Fatal("failed to initialize reputation cache", zap.Error(err))
	}
	defer closeCache()

	metrics := monitoring.NewMetrics()

	// 初始化审核流水线
	reputation := moderation.NewReputationService(store, cfg.Moderation, moderation.ReputationOptions{
		Enabled:  cfg.Reputation.Enabled,
		CacheTTL: cfg.Reputation.CacheTTL,
		Cache:    repCache,
	}, log.Named("reputation"))

	moderatorOpts := moderation.ModeratorOptions{ReputationTimeout: cfg.Reputation.LookupTimeout}
	moderator, err := moderation.NewModerator(cfg.Moderation, reputation, moderatorOpts, log.Named("moderation"))
	if err != nil {
		log.Fatal("invalid moderation config", zap.Error(err))
	}

	// 批量审核工作池，独立于信号 ctx，在 HTTP 服务关闭后停止
	workers := pool.NewWorkerPool(cfg.Worker.PoolSize, cfg.Worker.QueueSize, log.Named("pool"))
	workers.OnPanic = func(interface{}) { metrics.RecordPanic() }
	workers.Start(context.Background())

	// 审核员实时推送
	reviewHub := websocket.NewHub(cfg.CORS.AllowedOrigins, log.Named("review"))

	// 初始化服务层
	moderationService := service.NewModerationService(moderator, store, workers, metrics, service.ModerationServiceOptions{
		BatchMaxItems: cfg.Worker.BatchMaxItems,
		Notifier:      reviewHub,
	}, log.Named("service"))
	configService := service.NewConfigService(moderationService, cfg.Moderation, moderatorOpts, metrics, log.Named("config"))
	accountService := service.NewAccountService(store, log.Named("account"))

	var cachePinger health.Pinger
	if redisClient != nil {
		cachePinger = redisClient
	}
	healthChecker := health.NewHealthChecker(store, cachePinger, log)

	var limiter *middleware.IPRateLimiter
	if cfg.RateLimit.Enabled {
		limiter = middleware.NewIPRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
	}

	// 创建 HTTP 服务器
	httpAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	router := httptransport.NewRouter(httptransport.RouterDependencies{
		Config:            cfg,
		ModerationService: moderationService,
		ConfigService:     configService,
		AccountService:    accountService,
		HealthChecker:     healthChecker,
		Metrics:           metrics,
		RateLimiter:       limiter,
		ReviewHub:         reviewHub,
		Logger:            log.Named("http"),
	})

	httpServer := &http.Server{
		Addr:              httpAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       120 * time.Second,
	}

	group, groupCtx := errgroup.WithContext(ctx)

	// HTTP 服务器 goroutine
	group.Go(func() error {
		log.Info("starting HTTP server", zap.String("address", httpAddr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server error", zap.Error(err))
			return err
		}
		return nil
	})

	// 审核推送 Hub goroutine
	group.Go(func() error {
		reviewHub.Run(groupCtx)
		return nil
	})

	// 限流器清理 goroutine
	if limiter != nil {
		group.Go(func() error {
			limiter.Run(groupCtx, limiterCleanupInterval)
			return nil
		})
	}

	// 连接池指标 goroutine
	if pgClient != nil {
		group.Go(func() error {
			ticker := time.NewTicker(poolStatsInterval)
			defer ticker.Stop()

			for {
				select {
				case <-groupCtx.Done():
					return nil
				case <-ticker.C:
					metrics.UpdateDatabasePool(pgClient.Stats())
				}
			}
		})
	}

	// 优雅关闭 goroutine
	group.Go(func() error {
		<-groupCtx.Done()
		log.Info("shutdown signal received, gracefully shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error("HTTP server shutdown error", zap.Error(err))
		}

		workers.Stop()
		log.Info("servers stopped")
		return nil
	})

	// 等待所有 goroutine 完成
	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("server error", zap.Error(err))
		return
	}

	log.Info("server exited cleanly")
}

// initializeStorage 根据配置选择存储后端，PostgreSQL 时同时返回连接池客户端
func initializeStorage(ctx context.Context, cfg *config.Config, log *zap.Logger) (storage.Store, *postgres.Client, error) {
	switch cfg.Database.Type {
	case "", "memory":
		log.Info("using memory storage (development mode)")
		return memory.NewStore(), nil, nil

	case "postgres":
		client, err := postgres.New(ctx, cfg.Database, log.Named("postgres"))
		if err != nil {
			return nil, nil, err
		}
		store, err := postgres.NewStore(client)
		if err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("failed to create postgres store: %w", err)
		}
		log.Info("using database storage", zap.String("type", cfg.Database.Type))
		return store, client, nil

	case "mysql":
		store, err := postgres.NewMySQLStore(cfg.Database)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create mysql store: %w", err)
		}
		log.Info("using database storage", zap.String("type", cfg.Database.Type))
		return store, nil, nil

	default:
		return nil, nil, fmt.Errorf("unsupported database type %q", cfg.Database.Type)
	}
}

// initializeReputationCache 创建声誉缓存，Redis 后端时同时返回客户端用于健康检查
func initializeReputationCache(ctx context.Context, cfg *config.Config, log *zap.Logger) (moderation.ReputationCache, *redis.Client, func(), error) {
	switch cfg.Reputation.CacheBackend {
	case config.CacheBackendRedis:
		client, err := redis.New(ctx, cfg.Redis, log.Named("redis"))
		if err != nil {
			return nil, nil, nil, err
		}
		log.Info("reputation cache backend", zap.String("backend", "redis"), zap.Duration("ttl", cfg.Reputation.CacheTTL))
		return redis.NewReputationCache(client), client, func() { _ = client.Close() }, nil

	case config.CacheBackendLocal:
		local := cache.NewLocalCache(cfg.Reputation.LocalCacheSize, cfg.Reputation.CacheTTL)
		log.Info("reputation cache backend", zap.String("backend", "local"), zap.Int("max_size", cfg.Reputation.LocalCacheSize))
		return cache.NewReputationCache(local), nil, local.Close, nil

	default:
		log.Info("reputation cache disabled")
		return nil, nil, func() {}, nil
	}
}
