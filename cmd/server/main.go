package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm/logger"

	"github.com/bitfantasy/mechai/internal/config"
	"github.com/bitfantasy/mechai/internal/database"
	"github.com/bitfantasy/mechai/internal/llm"
	"github.com/bitfantasy/mechai/internal/middleware"
	"github.com/bitfantasy/mechai/internal/shared/storage"
	"github.com/bitfantasy/mechai/internal/shop/handler"
	"github.com/bitfantasy/mechai/internal/shop/repository"
	"github.com/bitfantasy/mechai/internal/shop/service"
	"github.com/bitfantasy/mechai/internal/shop/sse"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// 加载 .env 文件
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zapLogger, err := initLogger(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer zapLogger.Sync()

	zapLogger.Info("Starting mechai service",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
	)

	ctx := context.Background()

	// 初始化数据库
	gormLevel := logger.Warn
	if cfg.Log.Level == "debug" {
		gormLevel = logger.Info
	}
	db, err := database.Open(cfg.Database, gormLevel)
	if err != nil {
		zapLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	if err := database.Migrate(db); err != nil {
		zapLogger.Fatal("Database migration failed", zap.Error(err))
	}

	// Redis 可选：用于跨实例的生成锁
	var rdb *redis.Client
	if cfg.Redis.Host != "" {
		rdb = initRedis(cfg.Redis)
		if err := rdb.Ping(ctx).Err(); err != nil {
			zapLogger.Warn("Redis unreachable, generation lock stays in process", zap.Error(err))
			rdb.Close()
			rdb = nil
		}
	}

	files, err := storage.New(ctx, cfg.MinIO, cfg.Server.UploadDir, cfg.Itinerary.MaxPreviewBytes)
	if err != nil {
		zapLogger.Warn("MinIO unavailable, storing part files locally", zap.Error(err))
		files, err = storage.NewLocal(cfg.Server.UploadDir, cfg.MinIO.PreviewCacheSize, cfg.Itinerary.MaxPreviewBytes)
		if err != nil {
			zapLogger.Fatal("Failed to init file storage", zap.Error(err))
		}
	}
	zapLogger.Info("File storage ready", zap.String("backend", files.Backend()))

	// 文本生成服务：未配置密钥时行程生成接口返回错误，其余接口照常可用
	var generator llm.Generator
	gemini, err := llm.NewGeminiClient(ctx, cfg.LLM)
	switch {
	case errors.Is(err, llm.ErrMissingAPIKey):
		zapLogger.Warn("GEMINI_API_KEY not set, itinerary generation disabled")
	case err != nil:
		zapLogger.Error("Failed to init generation client", zap.Error(err))
	default:
		generator = gemini
		zapLogger.Info("Generation client ready", zap.String("model", gemini.Name()))
	}

	hub := sse.NewHub(zapLogger.Named("sse"))
	repos := repository.NewRepositories(db)
	services := service.NewServices(repos, service.Deps{
		Redis:     rdb,
		Files:     files,
		Generator: generator,
		Hub:       hub,
		Logger:    zapLogger,
	}, cfg)
	handlers := handler.NewHandlers(services, hub)

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(zapLogger))
	router.Use(middleware.CORS())
	router.Use(middleware.RequestID())
	// SSE 流不压缩
	router.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/api/v1/sse"})))

	registerRoutes(router, handlers, cfg)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: 0, // Disable for SSE long-lived connections
	}

	go func() {
		zapLogger.Info("Server starting", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("Server forced to shutdown", zap.Error(err))
	}
	if rdb != nil {
		rdb.Close()
	}

	zapLogger.Info("Server exited")
}

func initLogger(cfg config.LogConfig) (*zap.Logger, error) {
	var zapCfg zap.Config

	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	switch cfg.Level {
	case "debug":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	}

	return zapCfg.Build()
}

func initRedis(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

func registerRoutes(r *gin.Engine, h *handler.Handlers, cfg *config.Config) {
	// 健康检查
	r.GET("/health/live", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/health/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":    Version,
			"build_time": BuildTime,
		})
	})

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"code": 40400, "message": "Not found"})
	})

	v1 := r.Group("/api/v1", middleware.JWTAuth(cfg.JWT.Secret))
	h.Register(v1)
}
