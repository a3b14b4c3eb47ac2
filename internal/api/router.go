package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"parking-bot-backend/config"
	"parking-bot-backend/internal/mw"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(h *Handler, server config.ServerConfig, adminToken string) *gin.Engine {
	r := gin.Default()

	limiter := mw.NewIPRateLimiter(rate.Limit(server.RateLimitPerSec), server.RateLimitBurst, 10*time.Minute)
	responses := mw.NewResponseCache(time.Duration(server.CacheTTLSeconds) * time.Second)
	h.cache = responses
	admin := mw.AdminToken(adminToken)

	r.GET("/healthz", h.Health)
	r.GET("/webhook", h.VerifyWebhook)
	r.POST("/webhook", h.ReceiveWebhook)

	api := r.Group("/api")
	api.Use(mw.RateLimiter(limiter))
	{
		api.GET("/lots", responses.Middleware(), h.GetLots)
		api.GET("/vapid_public_key", h.GetVAPIDPublicKey)
		api.PUT("/push_subscriptions", h.PutPushSubscription)
		api.DELETE("/push_subscriptions", h.DeletePushSubscription)

		api.POST("/lots", admin, h.CreateLot)
		api.PUT("/lots/:id/occupancy", admin, h.UpdateOccupancy)
		api.POST("/managers", admin, h.ProvisionManager)
		api.GET("/users", admin, h.GetUsers)
	}

	return r
}
