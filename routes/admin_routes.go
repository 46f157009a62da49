package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/Abhi-Verma2005/hrm8-backend-sub000/controllers"
	"github.com/Abhi-Verma2005/hrm8-backend-sub000/middleware"
)

// RegisterAdminRoutes sets up the admin review queue, payout execution and
// the producer-facing commission capability
func RegisterAdminRoutes(e *echo.Echo, adminController *controllers.AdminWithdrawalController, commissionController *controllers.CommissionController) {
	admin := e.Group("/api/admin")
	admin.Use(middleware.JWTMiddleware())
	admin.Use(middleware.RequireUserType("admin"))

	// Withdrawal review and payout
	admin.GET("/withdrawals/pending", adminController.GetPendingWithdrawalRequests)
	admin.POST("/withdrawals/:id/approve", adminController.ApproveWithdrawalRequest)
	admin.POST("/withdrawals/:id/reject", adminController.RejectWithdrawalRequest)
	admin.POST("/withdrawals/:id/execute", adminController.ExecuteWithdrawal)

	// Commission capability for the job/billing producer
	admin.POST("/commissions", commissionController.RecordCommission)
	admin.POST("/commissions/:id/confirm", commissionController.ConfirmCommission)
}
