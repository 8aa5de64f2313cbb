package main

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"shortlink-service/internal/audit"
	"shortlink-service/internal/config"
	"shortlink-service/internal/geoip"
	"shortlink-service/internal/handler"
	"shortlink-service/internal/middleware"
	"shortlink-service/internal/model"
	"shortlink-service/internal/service"
	"shortlink-service/internal/shortcode"
	"shortlink-service/internal/store"
	"shortlink-service/pkg/database"
	auth "shortlink-service/pkg/jwt"
	"shortlink-service/pkg/logger"
	redisPkg "shortlink-service/pkg/redis"

	_ "shortlink-service/docs"

	"github.com/gin-gonic/gin"
	redisClient "github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// @title shortlink-service API
// @version 1.0
// @description 短链接服务：创建短码、重定向并记录点击、自动过期
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name Authorization

func main() {
	logger.InitLogger()
	defer func() {
		if err := logger.Logger.Sync(); err != nil {
			fmt.Println("日志同步失败:", err)
		}
	}()
	sugaredLogger := zap.S()

	cfg, err := config.Load("configs/config.yaml")
	if err != nil {
		sugaredLogger.Fatalf("配置加载失败: %v", err)
	}

	db, err := database.InitMySQL(cfg.Database.Host, cfg.Database.Port, cfg.Database.User, cfg.Database.Password, cfg.Database.Name)
	if err != nil {
		sugaredLogger.Fatalf("数据库初始化失败: %v", err)
	}
	sugaredLogger.Info("✅ 数据库连接成功")

	err = db.AutoMigrate(&model.User{}, &model.ShortLink{}, &model.ClickEvent{})
	if err != nil {
		sugaredLogger.Fatalf("数据库迁移失败: %v", err)
	}
	sugaredLogger.Info("✅ 数据库迁移成功")

	var rdb *redisClient.Client
	if cfg.Cache.Host != "" {
		rdb, err = redisPkg.NewClient(&redisPkg.Options{
			Host: cfg.Cache.Host, Port: cfg.Cache.Port, Password: cfg.Cache.Password, DB: cfg.Cache.DB,
		})
		if err != nil {
			sugaredLogger.Warnf("缓存连接失败: %v", err)
		} else {
			defer func() {
				if err := rdb.Close(); err != nil {
					sugaredLogger.Errorf("关闭 Redis 连接失败: %v", err)
				}
			}()
			sugaredLogger.Info("✅ 缓存连接成功")
		}
	}

	linkStore := store.NewGormStore(db, sugaredLogger)

	// 存储侧的被动过期清理，业务存活判断不依赖它
	sweeper := store.NewSweeper(linkStore, time.Duration(cfg.ShortLink.SweepIntervalSeconds)*time.Second, sugaredLogger)
	sweeper.Start()
	defer sweeper.Stop()
	sugaredLogger.Info("✅ 过期清理任务已启动")

	allocator := shortcode.NewAllocator(linkStore, shortcode.Config{
		Length:               cfg.ShortLink.CodeLength,
		MaxRetriesPerLength:  cfg.ShortLink.MaxRetriesPerLength,
		MaxLengthEscalations: cfg.ShortLink.MaxLengthEscalations,
	}, sugaredLogger)

	geoClient := geoip.NewClient(cfg.GeoIP, sugaredLogger)
	auditClient := audit.NewClient(cfg.Audit, sugaredLogger)

	linkService := service.NewLinkService(linkStore, allocator, rdb, geoClient, auditClient, service.Config{
		DefaultValidityMinutes: cfg.ShortLink.DefaultValidityMinutes,
	}, sugaredLogger)
	sugaredLogger.Info("✅ 短链接服务初始化成功")

	tokenManager := auth.NewManager(cfg.Auth.Secret, cfg.Auth.Issuer, cfg.Auth.ExpirationHours)
	sugaredLogger.Info("✅ 认证管理器初始化成功")

	if err := createAdminUser(db); err != nil {
		sugaredLogger.Errorf("创建管理员失败: %v", err)
	}

	if cfg.App.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(middleware.GinZapRecovery(logger.Logger, true))
	router.Use(middleware.GinZapLogger(logger.Logger))

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	authMiddleware := middleware.AuthMiddleware(tokenManager)
	adminMiddleware := middleware.AdminMiddleware()
	router.Use(middleware.RateLimit(rdb, &cfg.RateLimit))

	urlHandler := handler.NewShortLinkHandler(linkService, cfg.App.BaseURL)
	authHandler := handler.NewAuthHandler(db, tokenManager)

	registerRoutes(router, urlHandler, authHandler, authMiddleware, adminMiddleware)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	sugaredLogger.Infof("🚀 服务启动成功, 访问 http://localhost:%d", cfg.Server.Port)
	sugaredLogger.Infof("📚 Swagger 文档地址: http://localhost:%d/swagger/index.html", cfg.Server.Port)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		sugaredLogger.Fatalf("服务启动失败: %v", err)
	}
}

func registerRoutes(
	router *gin.Engine,
	urlHandler *handler.ShortLinkHandler,
	authHandler *handler.AuthHandler,
	authMiddleware, adminMiddleware gin.HandlerFunc,
) {
	router.GET("/health", urlHandler.HealthCheck)

	// 核心接口：创建、统计、重定向
	router.POST("/shorturls", urlHandler.CreateShortURL)
	router.GET("/shorturls/:code", urlHandler.GetStats)
	router.GET("/:code", urlHandler.Redirect)

	authGroup := router.Group("/auth")
	{
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/register", authHandler.Register)
	}

	api := router.Group("/api")
	api.Use(authMiddleware)
	{
		api.GET("/me", authHandler.GetCurrentUser)
		api.GET("/links", urlHandler.GetAllLinks)
	}

	admin := api.Group("")
	admin.Use(adminMiddleware)
	{
		admin.PUT("/links/:code", urlHandler.ToggleLink)
		admin.DELETE("/links/:code", urlHandler.DeleteLink)
	}
}

func createAdminUser(db *gorm.DB) error {
	var existing model.User
	if err := db.Where("username = ?", "admin").First(&existing).Error; err == nil {
		return nil
	}

	admin := model.User{Username: "admin", Email: "admin@shortlink.local", Role: "admin", IsActive: true}
	if err := admin.SetPassword("admin"); err != nil {
		return err
	}
	if err := db.Create(&admin).Error; err != nil {
		return err
	}
	zap.S().Infow("✅ 默认管理员创建成功", "username", "admin")
	return nil
}
