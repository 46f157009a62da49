package controllers

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Abhi-Verma2005/hrm8-backend-sub000/models"
	"github.com/Abhi-Verma2005/hrm8-backend-sub000/security"
	"github.com/Abhi-Verma2005/hrm8-backend-sub000/services"
)

// PayoutWebhookController receives the provider's asynchronous transfer
// events and hands them to the reconciliation service
type PayoutWebhookController struct {
	reconciliation *services.ReconciliationService
}

// NewPayoutWebhookController creates a new webhook controller
func NewPayoutWebhookController(reconciliation *services.ReconciliationService) *PayoutWebhookController {
	return &PayoutWebhookController{reconciliation: reconciliation}
}

// HandlePayoutWebhook verifies the provider signature and dispatches the
// event. A non-2xx response makes the provider redeliver, which is safe
// because reconciliation is idempotent.
func (pc *PayoutWebhookController) HandlePayoutWebhook(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Failed to read request body",
		})
	}

	secret := os.Getenv("PAYOUT_WEBHOOK_SECRET")
	signature := c.Request().Header.Get("X-Payout-Signature")
	if !security.VerifyWebhookSignature(secret, body, signature) {
		log.Printf("payout webhook: rejected delivery with invalid signature")
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Invalid webhook signature",
		})
	}

	var event models.ProviderEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid event payload",
		})
	}

	if err := pc.reconciliation.HandleProviderEvent(ctx, event); err != nil {
		// Transient failure; ask the provider to redeliver
		log.Printf("payout webhook: failed to process %s for %s: %v", event.Type, event.CorrelationID, err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to process event, please redeliver",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Event processed",
	})
}
