package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"

	"parking-bot-backend/internal/whatsapp"
)

// VerifyWebhook answers Meta's subscription handshake.
func (h *Handler) VerifyWebhook(c *gin.Context) {
	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	challenge := c.Query("hub.challenge")

	if h.verifyToken == "" || mode != "subscribe" || token != h.verifyToken {
		logrus.WithField("mode", mode).Warn("[WEBHOOK] verification rejected")
		c.String(http.StatusForbidden, "invalid verify token")
		return
	}
	c.String(http.StatusOK, challenge)
}

// ReceiveWebhook processes inbound chat events and sends the replies.
// Meta retries anything but a 2xx, so processing failures still answer 200.
func (h *Handler) ReceiveWebhook(c *gin.Context) {
	var payload whatsapp.WebhookPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	processed := 0
	for _, in := range whatsapp.Normalize(payload) {
		log := logrus.WithFields(logrus.Fields{"address": in.Address, "message_id": in.MessageID})
		if in.MessageID != "" {
			if err := h.seen.Add(in.MessageID, struct{}{}, cache.DefaultExpiration); err != nil {
				log.Debug("[WEBHOOK] redelivered message skipped")
				continue
			}
		}

		res, err := h.engine.Process(ctx, in)
		if err != nil {
			log.Errorf("[WEBHOOK] process message: %v", err)
			continue
		}
		processed++

		for _, out := range res.Messages {
			if err := h.sender.Send(ctx, out.To, out.Payload); err != nil {
				log.Errorf("[WEBHOOK] send reply: %v", err)
			}
		}
		for _, eff := range res.Effects {
			log.WithFields(logrus.Fields{"effect": eff.Kind, "lot_id": eff.LotID, "count": eff.Count}).
				Info("[WEBHOOK] effect applied")
		}
	}

	c.JSON(http.StatusOK, gin.H{"status": "received", "processed": processed})
}
