package controllers

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/Abhi-Verma2005/hrm8-backend-sub000/middleware"
	"github.com/Abhi-Verma2005/hrm8-backend-sub000/models"
	"github.com/Abhi-Verma2005/hrm8-backend-sub000/services"
	"github.com/Abhi-Verma2005/hrm8-backend-sub000/websocket"
)

// CommissionController handles commission recording and the consultant's
// read-side views (balance, history)
type CommissionController struct {
	DB     *mongo.Database
	ledger *services.LedgerService
	wsHub  *websocket.Hub
}

// NewCommissionController creates a new commission controller
func NewCommissionController(db *mongo.Database, ledger *services.LedgerService, wsHub *websocket.Hub) *CommissionController {
	return &CommissionController{
		DB:     db,
		ledger: ledger,
		wsHub:  wsHub,
	}
}

// RecordCommission is the capability the job/billing pipeline calls when
// an attributable event lands. The commission starts out pending.
func (cc *CommissionController) RecordCommission(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var req models.CommissionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid commission payload: " + err.Error(),
		})
	}

	consultantID, err := primitive.ObjectIDFromHex(req.ConsultantID)
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid consultant ID format",
		})
	}
	regionID, err := primitive.ObjectIDFromHex(req.RegionID)
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid region ID format",
		})
	}

	commission := &models.Commission{
		ConsultantID: consultantID,
		RegionID:     regionID,
		Type:         req.Type,
		Amount:       req.Amount,
		Rate:         req.Rate,
	}
	if req.JobID != "" {
		jobID, err := primitive.ObjectIDFromHex(req.JobID)
		if err != nil {
			return c.JSON(http.StatusBadRequest, models.Response{
				Status:  http.StatusBadRequest,
				Message: "Invalid job ID format",
			})
		}
		commission.JobID = &jobID
	}
	if req.SubscriptionID != "" {
		subscriptionID, err := primitive.ObjectIDFromHex(req.SubscriptionID)
		if err != nil {
			return c.JSON(http.StatusBadRequest, models.Response{
				Status:  http.StatusBadRequest,
				Message: "Invalid subscription ID format",
			})
		}
		commission.SubscriptionID = &subscriptionID
	}

	if err := cc.ledger.RecordCommission(ctx, commission); err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to record commission",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Commission recorded successfully",
		Data:    commission,
	})
}

// ConfirmCommission flips a pending commission to confirmed once the
// business trigger (e.g. probation period elapsed) fires
func (cc *CommissionController) ConfirmCommission(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	commissionID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid commission ID format",
		})
	}

	commission, err := cc.ledger.ConfirmCommission(ctx, commissionID)
	if err != nil {
		return ledgerErrorResponse(c, err)
	}

	if cc.wsHub != nil && commission != nil {
		if err := cc.wsHub.NotifyCommissionUpdate(commission.ConsultantID, commission); err != nil {
			log.Printf("Failed to push websocket commission update: %v", err)
		}
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Commission confirmed successfully",
		Data:    commission,
	})
}

// GetCommissionSummary returns the authenticated consultant's derived
// balance snapshot
func (cc *CommissionController) GetCommissionSummary(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	claims := middleware.GetUserFromToken(c)
	consultantID, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Invalid user ID",
		})
	}

	balance, err := cc.ledger.CalculateBalance(ctx, consultantID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to calculate balance",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Commission summary retrieved successfully",
		Data:    balance,
	})
}

// GetCommissionAndWithdrawalHistory retrieves all commission and
// withdrawal records for the authenticated consultant
func (cc *CommissionController) GetCommissionAndWithdrawalHistory(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	claims := middleware.GetUserFromToken(c)
	consultantID, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Invalid user ID",
		})
	}

	commissions, err := cc.ledger.ListCommissions(ctx, consultantID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to fetch commission history",
		})
	}

	withdrawals, err := cc.ledger.ListWithdrawals(ctx, consultantID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to fetch withdrawal history",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Commission and withdrawal history retrieved successfully",
		Data: map[string]interface{}{
			"commissions": commissions,
			"withdrawals": withdrawals,
		},
	})
}
