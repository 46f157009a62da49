package controllers

import (
	"context"
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

// AdminWithdrawalController handles the admin review queue and payout
// execution
type AdminWithdrawalController struct {
	DB          *mongo.Database
	ledger      *services.LedgerService
	executor    *services.PayoutExecutor
	consultants repositories.ConsultantRepository
	wsHub       *websocket.Hub
}

// NewAdminWithdrawalController creates a new admin withdrawal controller
func NewAdminWithdrawalController(db *mongo.Database, ledger *services.LedgerService, executor *services.PayoutExecutor, consultants repositories.ConsultantRepository, wsHub *websocket.Hub) *AdminWithdrawalController {
	return &AdminWithdrawalController{
		DB:          db,
		ledger:      ledger,
		executor:    executor,
		consultants: consultants,
		wsHub:       wsHub,
	}
}

// GetPendingWithdrawalRequests retrieves all pending withdrawal requests
// enriched with consultant details
func (ac *AdminWithdrawalController) GetPendingWithdrawalRequests(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	withdrawals, err := ac.ledger.ListPendingWithdrawals(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to retrieve withdrawal requests",
		})
	}

	var enrichedWithdrawals []map[string]interface{}
	for i := range withdrawals {
		withdrawal := withdrawals[i]
		var consultantDetails map[string]interface{}

		consultant, err := ac.consultants.FindByID(ctx, withdrawal.ConsultantID)
		if err == nil && consultant != nil {
			consultantDetails = map[string]interface{}{
				"id":       consultant.ID,
				"fullName": consultant.FullName,
				"email":    consultant.Email,
			}
		}

		enrichedWithdrawals = append(enrichedWithdrawals, map[string]interface{}{
			"withdrawal": withdrawal,
			"consultant": consultantDetails,
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Pending withdrawal requests retrieved successfully",
		Data:    enrichedWithdrawals,
	})
}

// ApproveWithdrawalRequest handles the approval of a withdrawal request
func (ac *AdminWithdrawalController) ApproveWithdrawalRequest(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	claims := middleware.GetUserFromToken(c)
	adminID, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Invalid admin ID",
		})
	}

	withdrawalID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid withdrawal ID format",
		})
	}

	var approvalReq struct {
		AdminNote string `json:"adminNote,omitempty"`
	}
	if err := c.Bind(&approvalReq); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}

	withdrawal, err := ac.ledger.ApproveWithdrawal(ctx, withdrawalID, adminID, approvalReq.AdminNote)
	if err != nil {
		return ledgerErrorResponse(c, err)
	}

	ac.notifyConsultant(ctx, withdrawal,
		"Commission Withdrawal Approved",
		fmt.Sprintf("Your withdrawal request for $%.2f has been approved and will be paid out shortly.", withdrawal.Amount))

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Withdrawal request approved successfully",
		Data: map[string]interface{}{
			"withdrawalId": withdrawal.ID,
			"status":       withdrawal.Status,
			"processedAt":  withdrawal.ProcessedAt,
		},
	})
}

// RejectWithdrawalRequest handles the rejection of a withdrawal request
func (ac *AdminWithdrawalController) RejectWithdrawalRequest(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	claims := middleware.GetUserFromToken(c)
	adminID, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Invalid admin ID",
		})
	}

	withdrawalID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid withdrawal ID format",
		})
	}

	var rejectionReq struct {
		Reason string `json:"reason"`
	}
	if err := c.Bind(&rejectionReq); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}
	if rejectionReq.Reason == "" {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "A reason is required for rejection",
		})
	}

	withdrawal, err := ac.ledger.RejectWithdrawal(ctx, withdrawalID, adminID, rejectionReq.Reason)
	if err != nil {
		return ledgerErrorResponse(c, err)
	}

	ac.notifyConsultant(ctx, withdrawal,
		"Commission Withdrawal Request Update",
		fmt.Sprintf("Your withdrawal request for $%.2f was rejected. Reason: %s. The reserved commissions are available again.", withdrawal.Amount, rejectionReq.Reason))

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Withdrawal request rejected",
		Data: map[string]interface{}{
			"withdrawalId": withdrawal.ID,
			"status":       withdrawal.Status,
			"reason":       rejectionReq.Reason,
		},
	})
}

// ExecuteWithdrawal issues the provider transfer for an approved
// withdrawal
func (ac *AdminWithdrawalController) ExecuteWithdrawal(c echo.Context) error {
	// Generous budget: this handler performs an external provider call
	ctx, cancel := context.WithTimeout(context.Background(), 45*time.Second)
	defer cancel()

	claims := middleware.GetUserFromToken(c)
	adminID, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Invalid admin ID",
		})
	}

	withdrawalID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid withdrawal ID format",
		})
	}

	result, err := ac.executor.ExecuteWithdrawal(ctx, withdrawalID, adminID)
	if err != nil {
		return ledgerErrorResponse(c, err)
	}

	withdrawal, err := ac.ledger.GetWithdrawal(ctx, withdrawalID)
	if err != nil {
		return ledgerErrorResponse(c, err)
	}

	if withdrawal.Status == models.WithdrawalStatusCompleted {
		ac.notifyConsultant(ctx, withdrawal,
			"Commission Withdrawal Paid",
			fmt.Sprintf("Your withdrawal of $%.2f has been paid out. Payment reference: %s", withdrawal.Amount, withdrawal.PaymentReference))
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Payout executed successfully",
		Data: map[string]interface{}{
			"withdrawalId": withdrawal.ID,
			"status":       withdrawal.Status,
			"transfer":     result,
		},
	})
}

// notifyConsultant fans out a state-change notification on every channel;
// failures are logged and never bubble up
func (ac *AdminWithdrawalController) notifyConsultant(ctx context.Context, withdrawal *models.Withdrawal, title, message string) {
	consultant, err := ac.consultants.FindByID(ctx, withdrawal.ConsultantID)
	if err != nil || consultant == nil {
		log.Printf("Failed to load consultant %s for notification: %v", withdrawal.ConsultantID.Hex(), err)
		return
	}

	utils.NotifyWithdrawalStateChange(ac.DB, consultant, withdrawal, title, message)

	if ac.wsHub != nil {
		if err := ac.wsHub.NotifyWithdrawalUpdate(consultant.ID, withdrawal); err != nil {
			log.Printf("Failed to push websocket withdrawal update: %v", err)
		}
	}
}
