package controllers

import (
	"github.com/gin-gonic/gin"

	"coachbill/internal/services"
)

type WebhookController struct {
	webhookService services.WebhookService
}

func NewWebhookController(webhookService services.WebhookService) *WebhookController {
	return &WebhookController{
		webhookService: webhookService,
	}
}

// HandleStripeWebhook godoc
// @Summary Receive a signed payment-provider webhook event
// @Description Verifies the signature and reconciles the event into billing state
// @Tags Billing
// @Accept json
// @Produce json
// @Success 200 {object} map[string]bool
// @Router /webhooks/stripe [post]
func (w *WebhookController) HandleStripeWebhook(c *gin.Context) {
	w.webhookService.HandleWebhook(c)
}
