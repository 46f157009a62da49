package routes

import (
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Abhi-Verma2005/hrm8-backend-sub000/controllers"
	"github.com/Abhi-Verma2005/hrm8-backend-sub000/middleware"
	"github.com/Abhi-Verma2005/hrm8-backend-sub000/websocket"
)

// RegisterLedgerRoutes sets up the consultant-facing commission and
// withdrawal routes plus the public provider webhook
func RegisterLedgerRoutes(e *echo.Echo, withdrawalController *controllers.WithdrawalController, commissionController *controllers.CommissionController, webhookController *controllers.PayoutWebhookController, wsHub *websocket.Hub) {
	// Provider webhook: no JWT, authenticated by HMAC signature instead
	e.POST("/api/payout/webhook", webhookController.HandlePayoutWebhook)

	consultant := e.Group("/api")
	consultant.Use(middleware.JWTMiddleware())
	consultant.Use(middleware.RequireUserType("consultant"))

	consultant.POST("/withdrawals", withdrawalController.CreateWithdrawal)
	consultant.POST("/withdrawals/:id/cancel", withdrawalController.CancelWithdrawal)
	consultant.GET("/commission/balance", commissionController.GetCommissionSummary)
	consultant.GET("/commission/history", commissionController.GetCommissionAndWithdrawalHistory)

	// Live withdrawal updates
	consultant.GET("/ws", func(c echo.Context) error {
		userID, err := primitive.ObjectIDFromHex(middleware.GetUserIDFromToken(c))
		if err != nil {
			return echo.NewHTTPError(echo.ErrUnauthorized.Code, "Invalid user ID")
		}
		return websocket.HandleWebSocket(c, wsHub, userID)
	})
}
