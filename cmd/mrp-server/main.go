package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/Emmanuelvdg/manu-flow-central-sub000/internal/config"
	"github.com/Emmanuelvdg/manu-flow-central-sub000/internal/middleware"
	mrpEntity "github.com/Emmanuelvdg/manu-flow-central-sub000/internal/mrp/entity"
	mrpHandler "github.com/Emmanuelvdg/manu-flow-central-sub000/internal/mrp/handler"
	mrpRepo "github.com/Emmanuelvdg/manu-flow-central-sub000/internal/mrp/repository"
	mrpService "github.com/Emmanuelvdg/manu-flow-central-sub000/internal/mrp/service"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
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

	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 初始化日志
	zapLogger, err := initLogger(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer zapLogger.Sync()

	zapLogger.Info("Starting mrp-server",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
	)

	// 初始化数据库
	db, err := initDatabase(cfg.Database)
	if err != nil {
		zapLogger.Fatal("Failed to connect to database", zap.Error(err))
	}

	// AutoMigrate MRP tables
	if err := mrpEntity.AutoMigrate(db); err != nil {
		zapLogger.Fatal("Failed to auto-migrate MRP tables", zap.Error(err))
	}
	zapLogger.Info("MRP database migration completed")

	// Redis（汇总缓存用，可选）
	rdb := initRedis(cfg.Redis)

	// 初始化依赖
	repos := mrpRepo.NewRepositories(db)
	services := mrpService.NewServices(repos, db, rdb)
	handlers := mrpHandler.NewHandlers(services)

	// 确定端口
	port := os.Getenv("MRP_PORT")
	if port == "" {
		port = fmt.Sprintf("%d", cfg.Server.Port)
	}
	if port == "0" || port == "" {
		port = "8082"
	}

	// 设置Gin模式
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// 创建路由
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(zapLogger))
	router.Use(middleware.CORS())
	router.Use(middleware.RequestID())
	router.Use(gzip.Gzip(gzip.DefaultCompression))

	// 健康检查
	router.GET("/health/live", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "mrp-server"})
	})
	router.GET("/health/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "mrp-server"})
	})

	// 版本信息
	router.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"service":    "mrp-server",
			"version":    Version,
			"build_time": BuildTime,
		})
	})

	// MRP API v1
	v1 := router.Group("/api/v1/mrp")
	v1.Use(middleware.JWTAuth(cfg.JWT.Secret))
	{
		// 物料与批次台账
		materials := v1.Group("/materials")
		{
			materials.GET("", handlers.Material.List)
			materials.POST("", handlers.Material.Create)
			materials.GET("/export", handlers.Material.Export)
			materials.GET("/:id", handlers.Material.Get)
			materials.GET("/:id/summary", handlers.Material.Summary)
			materials.GET("/:id/allocations", handlers.Allocation.MaterialAllocations)
			materials.POST("/:id/batches", handlers.Material.AddBatch)
			materials.PUT("/:id/batches/:batchId", handlers.Material.UpdateBatch)
			materials.DELETE("/:id/batches/:batchId", handlers.Material.DeleteBatch)
		}

		// 可用性判定与分配
		v1.POST("/availability/check", handlers.Allocation.Check)
		orders := v1.Group("/orders")
		{
			orders.POST("/:orderId/reserve", handlers.Allocation.Reserve)
			orders.GET("/:orderId/allocations", handlers.Allocation.ListAllocations)
			orders.DELETE("/:orderId/allocations", handlers.Allocation.Release)
			orders.POST("/:orderId/allocate", handlers.Allocation.Allocate)
			orders.GET("/:orderId/draws", handlers.Allocation.Draws)
		}

		// 采购订单
		pos := v1.Group("/purchase-orders")
		{
			pos.GET("", handlers.Procurement.List)
			pos.POST("", handlers.Procurement.Create)
			pos.POST("/:id/receive", handlers.Procurement.Receive)
			pos.POST("/:id/delay", handlers.Procurement.Delay)
			pos.POST("/:id/cancel", handlers.Procurement.Cancel)
		}

		// 工序进度
		orderProducts := v1.Group("/order-products")
		{
			orderProducts.POST("/:id/stage-progress", handlers.Progress.Initialize)
			orderProducts.GET("/:id/progress", handlers.Progress.Progress)
		}
		v1.PUT("/stage-progress/:id", handlers.Progress.Update)
	}

	// 创建HTTP服务器
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// 启动服务器
	go func() {
		zapLogger.Info("MRP Server starting", zap.String("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("Shutting down MRP server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Error("Server forced to shutdown", zap.Error(err))
	}

	zapLogger.Info("MRP Server exited")
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

func initDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode,
	)
	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Info),
	}
	db, err := gorm.Open(postgres.Open(dsn), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	return db, nil
}

func initRedis(cfg config.RedisConfig) *redis.Client {
	if cfg.Host == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}
