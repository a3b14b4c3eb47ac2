package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"parking-bot-backend/internal/model"
)

type putPushSubscriptionRequest struct {
	Endpoint string `json:"endpoint" binding:"required"`
	P256DH   string `json:"p256dh" binding:"required"`
	Auth     string `json:"auth" binding:"required"`
	Address  string `json:"address" binding:"required"`
}

// PutPushSubscription registers a browser endpoint that mirrors a driver's
// lot notifications. Only registered users may attach endpoints.
func (h *Handler) PutPushSubscription(c *gin.Context) {
	var req putPushSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	ctx := c.Request.Context()
	if _, err := h.store.GetUser(ctx, req.Address); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}

	err := h.store.SavePushSubscription(ctx, model.PushSubscription{
		Endpoint:      req.Endpoint,
		DriverAddress: req.Address,
		P256DH:        req.P256DH,
		Auth:          req.Auth,
	})
	if err != nil {
		logrus.WithField("address", req.Address).Errorf("[API] save push subscription: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save subscription"})
		return
	}

	c.Status(http.StatusCreated)
}

type deletePushSubscriptionRequest struct {
	Endpoint string `json:"endpoint" binding:"required"`
}

// DeletePushSubscription handles the deletion of a push endpoint.
func (h *Handler) DeletePushSubscription(c *gin.Context) {
	var req deletePushSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	if err := h.store.DeletePushSubscription(c.Request.Context(), req.Endpoint); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete subscription"})
		return
	}

	c.Status(http.StatusNoContent)
}

// GetVAPIDPublicKey returns the key browsers need to subscribe for push.
func (h *Handler) GetVAPIDPublicKey(c *gin.Context) {
	if h.webpush == nil || h.webpush.VAPIDPublicKey == "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "web push is not enabled"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"public_key": h.webpush.VAPIDPublicKey})
}
