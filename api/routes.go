package api

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/opentracing/opentracing-go"

	"github.com/fpylas/mailsync/api/handlers"
	"github.com/fpylas/mailsync/api/middleware"
	"github.com/fpylas/mailsync/internal/logger"
	"github.com/fpylas/mailsync/internal/repository"
	"github.com/fpylas/mailsync/internal/tracing"
	"github.com/fpylas/mailsync/services"
)

// RegisterRoutes sets up all API endpoints
func RegisterRoutes(ctx context.Context, r *gin.Engine, s *services.Services, repos *repository.Repositories, log logger.Logger, apikey string) {
	if s == nil {
		panic("Services cannot be nil")
	}
	if repos == nil {
		panic("Repositories cannot be nil")
	}

	// Add recovery middlewares
	r.Use(gin.Recovery())                                         // Gin's built-in recovery
	r.Use(tracing.RecoveryWithJaeger(opentracing.GlobalTracer())) // Our custom Jaeger recovery

	// Health check (no auth)
	r.GET("/health", handlers.HealthCheck)

	// Authorization flow endpoints hit by browser redirects
	r.GET("/connect", handlers.Connect(s.GmailProvider))
	r.GET("/auth", handlers.AuthCallback(s.GmailProvider, repos.CredentialRepository, log))

	// Push notification delivery endpoint. Always acks with 200.
	r.POST("/webhook", handlers.Webhook(s.SyncService, log))

	apiKeyMiddleware := middleware.APIKeyMiddleware(middleware.APIKeyConfig{
		HeaderName:  "X-MAILSYNC-API-KEY",
		ValidAPIKey: apikey,
	})

	// API group with version
	api := r.Group("/v1")
	api.Use(apiKeyMiddleware)
	{
		messages := api.Group("/messages")
		{
			messages.GET("", handlers.ListMessages(repos.MessageRepository))
			messages.GET("/:id", handlers.GetMessage(repos.MessageRepository, repos.AttachmentRepository))
			messages.GET("/:id/attachments/:attachmentId", handlers.DownloadAttachment(
				repos.MessageRepository,
				repos.AttachmentRepository,
				repos.CredentialRepository,
				s.Materializer,
			))
		}
	}
}
