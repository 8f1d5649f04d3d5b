package v1

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/creditrail/creditrail/internal/config"
	ierr "github.com/creditrail/creditrail/internal/errors"
	"github.com/creditrail/creditrail/internal/logger"
	"github.com/creditrail/creditrail/internal/service"
	"github.com/creditrail/creditrail/internal/types"
	"github.com/gin-gonic/gin"
	stripesdk "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

// WebhookHandler receives provider webhook deliveries. The response status is
// the redelivery contract: 2xx acknowledges, 5xx asks the provider to retry,
// 4xx rejects payloads a retry can never fix.
type WebhookHandler struct {
	svc    service.WebhookService
	config *config.Configuration
	logger *logger.Logger
}

func NewWebhookHandler(svc service.WebhookService, cfg *config.Configuration, logger *logger.Logger) *WebhookHandler {
	return &WebhookHandler{
		svc:    svc,
		config: cfg,
		logger: logger,
	}
}

// HandleStripeWebhook handles POST /webhooks/stripe.
func (h *WebhookHandler) HandleStripeWebhook(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read request body"})
		return
	}

	event, err := h.parseEvent(payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		h.logger.Warnw("rejected webhook delivery", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid webhook payload"})
		return
	}

	outcome, err := h.svc.ProcessEvent(c.Request.Context(), event.ID, types.WebhookEventType(event.Type), event.Data.Raw)
	if err != nil {
		status := http.StatusInternalServerError
		if ierr.IsValidation(err) {
			// Malformed payload for a known event type; redelivery carries the
			// same bytes, so retrying is pointless.
			status = http.StatusBadRequest
		}
		h.logger.Errorw("webhook processing failed",
			"event_id", event.ID,
			"event_type", event.Type,
			"status", status,
			"error", err,
		)
		c.JSON(status, gin.H{"error": ierr.ErrCodeFromErr(err)})
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true, "outcome": outcome})
}

func (h *WebhookHandler) parseEvent(payload []byte, signature string) (*stripesdk.Event, error) {
	if secret := h.config.Stripe.WebhookSecret; secret != "" {
		event, err := webhook.ConstructEventWithOptions(payload, signature, secret, webhook.ConstructEventOptions{
			IgnoreAPIVersionMismatch: true,
		})
		if err != nil {
			return nil, err
		}
		return &event, nil
	}

	var event stripesdk.Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, err
	}
	return &event, nil
}
