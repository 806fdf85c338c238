package httptransport

import (
	"net/http"
	"time"

	gincors "github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"campuswiki/backend/internal/config"
	"campuswiki/backend/internal/health"
	"campuswiki/backend/internal/middleware"
	"campuswiki/backend/internal/monitoring"
	"campuswiki/backend/internal/service"
	"campuswiki/backend/internal/websocket"
)

// RouterDependencies 路由器依赖项
type RouterDependencies struct {
	Config            *config.Config
	ModerationService *service.ModerationService
	ConfigService     *service.ConfigService
	AccountService    *service.AccountService
	HealthChecker     *health.HealthChecker
	Metrics           *monitoring.Metrics
	RateLimiter       *middleware.IPRateLimiter // 为 nil 时不限流
	ReviewHub         *websocket.Hub            // 为 nil 时不提供审核推送
	Logger            *zap.Logger
}

// NewRouter 创建并返回 Gin 路由实例。
func NewRouter(deps RouterDependencies) *gin.Engine {
	router := gin.New()

	router.Use(middleware.RequestID())
	router.Use(middleware.RecoveryHandler(deps.Logger, deps.Metrics))
	router.Use(middleware.RequestLogger(deps.Logger))
	router.Use(middleware.SecurityHeaders())
	if deps.Metrics != nil {
		router.Use(middleware.HTTPMetrics(deps.Metrics))
	}
	router.Use(middleware.BodySizeLimit(deps.Config.Server.MaxBodyBytes))

	// CORS 配置
	corsConfig := gincors.Config{
		AllowOrigins: deps.Config.CORS.AllowedOrigins,
		AllowMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", middleware.RequestIDHeader},
		ExposeHeaders: []string{
			"Content-Length",
			"X-RateLimit-Limit",
			middleware.RequestIDHeader,
		},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}

	// 如果允许所有来源，则需清空凭证支持。
	for _, origin := range corsConfig.AllowOrigins {
		if origin == "*" {
			corsConfig.AllowCredentials = false
			break
		}
	}
	router.Use(gincors.New(corsConfig))

	moderationHandler := NewModerationHandler(deps.ModerationService)
	accountHandler := NewAccountHandler(deps.AccountService)
	configHandler := NewConfigHandler(deps.ConfigService)

	// 健康检查
	router.GET("/health", func(c *gin.Context) {
		if deps.HealthChecker == nil {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
			return
		}
		results := deps.HealthChecker.CheckHealth()
		if !deps.HealthChecker.Healthy() {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "checks": results})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "checks": results})
	})
	if deps.HealthChecker != nil {
		router.GET("/health/live", gin.WrapF(deps.HealthChecker.LiveEndpoint))
		router.GET("/health/ready", gin.WrapF(deps.HealthChecker.ReadyEndpoint))
	}

	if deps.Metrics != nil {
		router.GET("/metrics", gin.WrapH(deps.Metrics.HTTPHandler()))
	}

	// 审核与提交接口按 IP 限流
	limited := []gin.HandlerFunc{middleware.ValidateContentType("application/json")}
	if deps.RateLimiter != nil {
		limited = append(limited, middleware.RateLimitByIP(deps.RateLimiter, deps.Metrics, deps.Logger))
	}

	// V1 API
	v1 := router.Group("/v1")
	{
		// ========== Moderation Routes ==========
		moderationRoutes := v1.Group("/moderation", limited...)
		{
			moderationRoutes.POST("/check", moderationHandler.Check)
			moderationRoutes.POST("/batch", moderationHandler.Batch)
			moderationRoutes.POST("/spam", moderationHandler.Spam)
			moderationRoutes.POST("/filter", moderationHandler.Filter)
			moderationRoutes.POST("/validate", moderationHandler.Validate)
			moderationRoutes.POST("/mask", moderationHandler.Mask)
		}

		// ========== Submission Routes ==========
		submissionRoutes := v1.Group("/submissions")
		{
			submissionRoutes.POST("", append(limited, moderationHandler.Submit)...)
			submissionRoutes.GET("/:id", moderationHandler.GetSubmission)
		}

		// ========== User Routes ==========
		userRoutes := v1.Group("/users")
		{
			userRoutes.GET("/:id/reputation", moderationHandler.GetReputation)
			userRoutes.GET("/:id/submissions", moderationHandler.ListUserSubmissions)
		}

		// ========== Account Routes ==========
		accountRoutes := v1.Group("/accounts")
		{
			accountRoutes.POST("", middleware.ValidateContentType("application/json"), accountHandler.Create)
			accountRoutes.GET("/:id", accountHandler.Get)
		}

		// ========== Admin Routes ==========
		// 管理接口的访问控制由前置网关负责
		adminRoutes := v1.Group("/admin")
		{
			adminRoutes.GET("/config", configHandler.GetConfig)
			adminRoutes.PUT("/config", middleware.ValidateContentType("application/json"), configHandler.UpdateConfig)
			adminRoutes.POST("/config/reset", configHandler.ResetConfig)
			if deps.ReviewHub != nil {
				adminRoutes.GET("/review/stream", websocket.HandleWebSocket(deps.ReviewHub))
			}
		}
	}

	return router
}
