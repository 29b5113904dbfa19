package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/campus-ops/gatepass-api/api/swagger"
	"github.com/campus-ops/gatepass-api/internal/handler"
	"github.com/campus-ops/gatepass-api/internal/middleware"
	"github.com/campus-ops/gatepass-api/internal/models"
	"github.com/campus-ops/gatepass-api/internal/repository"
	"github.com/campus-ops/gatepass-api/internal/service"
	"github.com/campus-ops/gatepass-api/pkg/cache"
	"github.com/campus-ops/gatepass-api/pkg/config"
	"github.com/campus-ops/gatepass-api/pkg/database"
	"github.com/campus-ops/gatepass-api/pkg/logger"
	corsmiddleware "github.com/campus-ops/gatepass-api/pkg/middleware/cors"
	reqidmiddleware "github.com/campus-ops/gatepass-api/pkg/middleware/requestid"
)

// @title Gate Pass API
// @version 1.0.0
// @description Campus gate pass approval and checkpoint verification service
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		// Listings fall back to the database when the cache is absent.
		logr.Sugar().Warnw("redis unavailable, listing cache disabled", "error", err)
		redisClient = nil
	}

	requestRepo := repository.NewRequestRepository(db)
	scanLogRepo := repository.NewScanLogRepository(db)
	userRepo := repository.NewUserRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	metricsSvc := service.NewMetricsService()
	directorySvc := service.NewDirectoryService(userRepo, logr)
	authSvc := service.NewAuthService(userRepo, directorySvc, nil, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		Issuer:             cfg.JWT.Issuer,
		AllowedEmailDomain: cfg.GatePass.AllowedEmailDomain,
	})
	gatePassSvc := service.NewGatePassService(requestRepo, userRepo, logr,
		service.WithListingCache(cacheRepo, cfg.GatePass.ListCacheTTL))
	approvalSvc := service.NewApprovalService(requestRepo, cacheRepo, logr,
		service.WithDecisionObserver(metricsSvc))
	redemptionSvc := service.NewRedemptionService(requestRepo, scanLogRepo, logr,
		service.WithRedemptionObserver(metricsSvc))

	authHandler := handler.NewAuthHandler(authSvc)
	gatePassHandler := handler.NewGatePassHandler(gatePassSvc)
	approvalHandler := handler.NewApprovalHandler(approvalSvc, gatePassSvc)
	redemptionHandler := handler.NewRedemptionHandler(redemptionSvc, cfg.GatePass.ScanHistoryLimit)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	auth.POST("/login", authHandler.Login)
	auth.POST("/register", authHandler.Register)
	auth.GET("/me", middleware.JWT(authSvc), authHandler.Me)

	student := api.Group("/student", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleStudent))
	student.POST("/requests", gatePassHandler.Create)
	student.GET("/requests", gatePassHandler.List)
	student.GET("/requests/:id/qr", gatePassHandler.QR)
	student.GET("/requests/:id/slip", gatePassHandler.Slip)

	advisor := api.Group("/advisor", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleAdvisor))
	advisor.GET("/requests", approvalHandler.List)
	advisor.POST("/requests/:id/approve", approvalHandler.AdvisorApprove)
	advisor.POST("/requests/:id/reject", approvalHandler.AdvisorReject)

	hod := api.Group("/hod", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleHod))
	hod.GET("/requests", approvalHandler.List)
	hod.POST("/requests/:id/approve", approvalHandler.HodApprove)
	hod.POST("/requests/:id/reject", approvalHandler.HodReject)

	security := api.Group("/security", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleSecurity))
	security.POST("/scan", redemptionHandler.Scan)
	security.GET("/scans", redemptionHandler.History)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
