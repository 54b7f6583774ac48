package api

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"resumeforge/internal/api/middleware"
	"resumeforge/internal/auth"
	"resumeforge/internal/config"
	"resumeforge/internal/entitlement"
	"resumeforge/internal/mailer"
	"resumeforge/internal/notify"
	"resumeforge/internal/storage"
	"resumeforge/internal/store"
)

// RegisterRoutes wires every handler under the /api prefix.
func RegisterRoutes(
	router *gin.Engine,
	cfg *config.Config,
	db *gorm.DB,
	redisClient *redis.Client,
	authService *auth.AuthService,
	storageClient *storage.Client,
	mailSender mailer.Mailer,
	logger *slog.Logger,
) {
	publisher := notify.NewRedisPublisher(redisClient)
	resumeStore := store.NewResumeStore(db, publisher, logger)
	resolver := entitlement.NewResolver(db)

	authHandler := NewAuthHandler(db, authService, redisClient, mailSender, logger, cfg.Auth, cfg.API.CookieDomain)
	resumeHandler := NewResumeHandler(db, resumeStore, resolver)
	templateHandler := NewTemplateHandler(db, resolver, storageClient)
	subscriptionHandler := NewSubscriptionHandler(db, publisher)
	wsHandler := NewWsHandler(redisClient, authService, logger, allowedOrigins(cfg))
	authMiddleware := middleware.AuthMiddleware(authService)

	router.Use(middleware.CorrelationIDMiddleware(), middleware.SlogLoggerMiddleware(logger))

	apiGroup := router.Group("/api")
	{
		apiGroup.GET("/ws", wsHandler.HandleConnection)
		apiGroup.GET("/plans", subscriptionHandler.ListPlans)

		authGroup := apiGroup.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
			authGroup.POST("/refresh", authHandler.Refresh)
			authGroup.POST("/logout", authMiddleware, authHandler.Logout)
			authGroup.POST("/forgot-password", authHandler.ForgotPassword)
			authGroup.POST("/reset-password", authHandler.ResetPassword)
		}

		templateGroup := apiGroup.Group("/templates")
		templateGroup.Use(authMiddleware)
		{
			templateGroup.GET("", templateHandler.ListTemplates)
			templateGroup.GET("/:id", templateHandler.GetTemplate)
		}

		resumeGroup := apiGroup.Group("/resumes")
		resumeGroup.Use(authMiddleware)
		{
			resumeGroup.GET("", resumeHandler.ListResumes)
			resumeGroup.POST("", resumeHandler.CreateResume)
			resumeGroup.GET("/:id", resumeHandler.GetResume)
			resumeGroup.PUT("/:id", resumeHandler.UpdateResume)
			resumeGroup.DELETE("/:id", resumeHandler.DeleteResume)
		}

		subscriptionGroup := apiGroup.Group("/subscription")
		subscriptionGroup.Use(authMiddleware)
		{
			subscriptionGroup.GET("", subscriptionHandler.GetSubscription)
			subscriptionGroup.POST("/upgrade", subscriptionHandler.Upgrade)
		}
	}
}

func allowedOrigins(cfg *config.Config) []string {
	if cfg.API.AllowedOrigin == "" {
		return nil
	}
	return []string{cfg.API.AllowedOrigin}
}
