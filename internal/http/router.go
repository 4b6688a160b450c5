package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/Vaultexe/server/internal/config"
	"github.com/Vaultexe/server/internal/http/handler"
	"github.com/Vaultexe/server/internal/http/middleware"
)

// NewRouter wires Gin routes and middleware.
func NewRouter(cfg config.Config, authHandler *handler.AuthHandler, syncHandler *handler.SyncHandler, authMiddleware *middleware.Auth, rateLimiter *middleware.RateLimiter) *gin.Engine {
	if cfg.IsProd() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(nil))
	if rateLimiter != nil {
		r.Use(rateLimiter.Handler())
	}
	r.Use(otelgin.Middleware(cfg.ServiceName))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := r.Group("/api/v1")
	{
		auth := v1.Group("/auth")
		{
			auth.POST("/login", authHandler.Login)
			auth.POST("/otp/verify", authHandler.VerifyOTP)
			auth.POST("/refresh", authHandler.Refresh)
			auth.POST("/register/:token", authHandler.Register)
			auth.POST("/logout", authMiddleware.RequireUser, authHandler.Logout)
			auth.GET("/me", authMiddleware.RequireUser, authHandler.Me)
		}

		v1.POST("/invite", authMiddleware.RequireUser, authMiddleware.RequireAdmin, authHandler.Invite)
		v1.GET("/sync", authMiddleware.RequireUser, syncHandler.Stream)
	}

	return r
}
