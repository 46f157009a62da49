package controllers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/Abhi-Verma2005/hrm8-backend-sub000/middleware"
	"github.com/Abhi-Verma2005/hrm8-backend-sub000/models"
	"github.com/Abhi-Verma2005/hrm8-backend-sub000/repositories"
	"github.com/Abhi-Verma2005/hrm8-backend-sub000/services"
	"github.com/Abhi-Verma2005/hrm8-backend-sub000/utils"
	"github.com/Abhi-Verma2005/hrm8-backend-sub000/websocket"
)

// WithdrawalController handles the consultant-facing withdrawal endpoints
type WithdrawalController struct {
	DB          *mongo.Database
	ledger      *services.LedgerService
	consultants repositories.ConsultantRepository
	wsHub       *websocket.Hub
}

// NewWithdrawalController creates a new withdrawal controller
func NewWithdrawalController(db *mongo.Database, ledger *services.LedgerService, consultants repositories.ConsultantRepository, wsHub *websocket.Hub) *WithdrawalController {
	return &WithdrawalController{
		DB:          db,
		ledger:      ledger,
		consultants: consultants,
		wsHub:       wsHub,
	}
}

// CreateWithdrawal handles a consultant's request to cash out a set of
// confirmed commissions
func (wc *WithdrawalController) CreateWithdrawal(c echo.Context) error {
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

	var req models.WithdrawalRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid withdrawal request: " + err.Error(),
		})
	}

	commissionIDs := make([]primitive.ObjectID, 0, len(req.CommissionIDs))
	for _, hexID := range req.CommissionIDs {
		id, err := primitive.ObjectIDFromHex(hexID)
		if err != nil {
			return c.JSON(http.StatusBadRequest, models.Response{
				Status:  http.StatusBadRequest,
				Message: "Invalid commission ID format: " + hexID,
			})
		}
		commissionIDs = append(commissionIDs, id)
	}

	withdrawal, err := wc.ledger.CreateWithdrawal(ctx, consultantID, &req, commissionIDs)
	if err != nil {
		return ledgerErrorResponse(c, err)
	}

	// Notifications must never affect the recorded withdrawal
	go utils.NotifyAdminOfWithdrawalRequest(withdrawal)

	balance, err := wc.ledger.CalculateBalance(ctx, consultantID)
	if err != nil {
		log.Printf("Failed to recompute balance after withdrawal creation: %v", err)
		balance = nil
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Withdrawal request submitted successfully and sent to admin for approval. The selected commissions have been reserved and will be paid out once approved.",
		Data: map[string]interface{}{
			"withdrawal": withdrawal,
			"balance":    balance,
		},
	})
}

// CancelWithdrawal lets a consultant cancel their own pending request,
// releasing the reserved commissions
func (wc *WithdrawalController) CancelWithdrawal(c echo.Context) error {
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

	withdrawalID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid withdrawal ID format",
		})
	}

	withdrawal, err := wc.ledger.CancelWithdrawal(ctx, withdrawalID, consultantID)
	if err != nil {
		return ledgerErrorResponse(c, err)
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Withdrawal request cancelled. The reserved commissions are available again.",
		Data:    withdrawal,
	})
}

// ledgerErrorResponse maps ledger service errors to HTTP responses with a
// human-readable message
func ledgerErrorResponse(c echo.Context, err error) error {
	var insufficientErr *services.InsufficientBalanceError
	var payoutErr *services.PayoutError

	switch {
	case errors.Is(err, services.ErrInvalidAmount),
		errors.Is(err, services.ErrAmountMismatch),
		errors.Is(err, services.ErrCommissionUnavailable):
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: err.Error(),
		})
	case errors.As(err, &insufficientErr):
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: fmt.Sprintf("Withdrawal amount $%.2f exceeds available balance $%.2f", insufficientErr.Requested, insufficientErr.Available),
		})
	case errors.Is(err, services.ErrWithdrawalNotFound):
		return c.JSON(http.StatusNotFound, models.Response{
			Status:  http.StatusNotFound,
			Message: "Withdrawal request not found",
		})
	case errors.Is(err, services.ErrInvalidStateTransition),
		errors.Is(err, services.ErrNotApproved):
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: err.Error(),
		})
	case errors.Is(err, services.ErrNotOwner):
		return c.JSON(http.StatusForbidden, models.Response{
			Status:  http.StatusForbidden,
			Message: "You can only cancel your own withdrawal requests",
		})
	case errors.Is(err, services.ErrPayoutDestinationUnavailable):
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Consultant has no enabled payout destination. Link a payout account first.",
		})
	case errors.Is(err, services.ErrLockUnavailable):
		return c.JSON(http.StatusConflict, models.Response{
			Status:  http.StatusConflict,
			Message: "Another withdrawal operation is in progress. Please retry.",
		})
	case errors.As(err, &payoutErr):
		return c.JSON(http.StatusBadGateway, models.Response{
			Status:  http.StatusBadGateway,
			Message: "Payout failed: " + payoutErr.Reason,
		})
	default:
		log.Printf("ledger operation failed: %v", err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Internal error, please try again later",
		})
	}
}
