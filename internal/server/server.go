// Package server assembles the gin engine: middleware chain and route table.
package server

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/harentsoaR/armline-api/internal/access"
	"github.com/harentsoaR/armline-api/internal/handlers"
	"github.com/harentsoaR/armline-api/internal/logging"
	"github.com/harentsoaR/armline-api/internal/middleware"
	"github.com/harentsoaR/armline-api/internal/ratelimit"
)

type Options struct {
	DevMode        bool
	AllowedOrigins []string
	// TrustedProxies may set X-Forwarded-For. Empty means the socket address is the client.
	TrustedProxies []string
	JWTSecret      []byte
}

// New returns the engine serving the whole API.
func New(h *handlers.Handler, limiter *ratelimit.Limiter, logger *zap.Logger, opts Options) *gin.Engine {
	r := gin.New()
	if err := r.SetTrustedProxies(opts.TrustedProxies); err != nil {
		logger.Warn("invalid trusted proxies, trusting none", zap.Error(err))
		_ = r.SetTrustedProxies(nil)
	}
	r.Use(
		middleware.RequestID(),
		logging.AccessLog(logger, opts.DevMode),
		recovery(logger),
		middleware.MetricsMiddleware(),
		cors.New(corsConfig(opts.AllowedOrigins)),
		middleware.AuthMiddleware(opts.JWTSecret),
	)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	users := h.Repo
	member := middleware.RequireAccess(access.Member, users)
	admin := middleware.RequireAccess(access.Admin, users)
	superAdmin := middleware.RequireAccess(access.SuperAdmin, users)

	authRoutes := r.Group("/auth")
	{
		authRoutes.POST("/signup", h.SignUp)
		authRoutes.POST("/admin/register", h.AdminRegister)
		authRoutes.POST("/login", limiter.Middleware(ratelimit.ActionLogin), h.Login)
		authRoutes.POST("/admin/login", limiter.Middleware(ratelimit.ActionLogin), h.AdminLogin)
		authRoutes.GET("/verify-email", h.VerifyEmail)
		authRoutes.POST("/forgot-password", limiter.Middleware(ratelimit.ActionForgotPassword), h.ForgotPassword)
		authRoutes.POST("/reset-password", h.ResetPassword)
	}

	api := r.Group("/api")
	{
		api.GET("/schools", h.GetSchools)
		api.GET("/categories", h.GetCategories)
		api.POST("/reports/anonymous", limiter.Middleware(ratelimit.ActionAnonymousReport), h.CreateAnonymousReport)
		api.GET("/reports/status/:caseId", limiter.Middleware(ratelimit.ActionCheckStatus), h.GetReportStatus)
	}

	memberRoutes := api.Group("", member)
	{
		memberRoutes.GET("/me", h.GetCurrentUser)
		memberRoutes.PUT("/me", h.UpdateCurrentUser)
		memberRoutes.POST("/reports", h.CreateReport)
		memberRoutes.GET("/reports", h.GetMyReports)
		memberRoutes.GET("/reports/:id", h.GetMyReport)
		memberRoutes.POST("/reports/:id/messages", h.PostMessage)
	}

	adminRoutes := api.Group("/admin", admin)
	{
		adminRoutes.GET("/reports", h.GetSchoolReports)
		adminRoutes.GET("/reports/stream", h.StreamReports)
		adminRoutes.GET("/reports/:id", h.GetSchoolReport)
		adminRoutes.PATCH("/reports/:id/status", h.UpdateReportStatus)
		adminRoutes.POST("/reports/:id/messages", h.PostAdminMessage)
		adminRoutes.POST("/reports/:id/escalate", h.EscalateReport)
		adminRoutes.GET("/agencies", h.GetAgencies)
	}

	superRoutes := api.Group("/admin", superAdmin)
	{
		superRoutes.GET("/accounts", h.GetAccounts)
		superRoutes.GET("/accounts/:id", h.GetAccount)
		superRoutes.PATCH("/accounts/:id/status", h.UpdateAccountStatus)
		superRoutes.POST("/schools", h.CreateSchool)
		superRoutes.POST("/categories", h.CreateCategory)
	}

	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-Id"},
		ExposeHeaders:    []string{"X-Request-Id", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
		cfg.AllowCredentials = false
		return cfg
	}
	cfg.AllowOrigins = origins
	return cfg
}

func recovery(logger *zap.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logger.Error("panic while handling request",
			zap.String("requestId", c.GetString(logging.RequestIDKey)),
			zap.String("path", c.Request.URL.Path),
			zap.Any("panic", recovered),
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong. Please try again."})
	})
}
