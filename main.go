package main

import (
	"log"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"

	"github.com/Abhi-Verma2005/hrm8-backend-sub000/config"
	"github.com/Abhi-Verma2005/hrm8-backend-sub000/controllers"
	"github.com/Abhi-Verma2005/hrm8-backend-sub000/middleware"
	"github.com/Abhi-Verma2005/hrm8-backend-sub000/repositories"
	"github.com/Abhi-Verma2005/hrm8-backend-sub000/routes"
	"github.com/Abhi-Verma2005/hrm8-backend-sub000/services"
	"github.com/Abhi-Verma2005/hrm8-backend-sub000/websocket"
)

// CustomValidator is a custom validator for Echo
type CustomValidator struct {
	validator *validator.Validate
}

// Validate validates the request body
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

func main() {
	// Load .env file
	err := godotenv.Load()
	if err != nil {
		log.Println("Warning: .env file not found")
	}

	// Initialize Firebase (push notifications)
	config.InitFirebase()

	// Connect to Redis (advisory locks for withdrawal creation)
	redisClient := config.ConnectRedis()

	// Connect to database
	client := config.ConnectDB()
	db := client.Database(config.DatabaseName())

	// Create WebSocket hub
	wsHub := websocket.NewHub()
	go wsHub.Run()

	// Create a new Echo instance
	e := echo.New()

	// Initialize custom validator
	customValidator := &CustomValidator{validator: validator.New()}
	e.Validator = customValidator

	// Initialize rate limiter
	rateLimiter := middleware.NewRateLimiter()

	// Middleware
	e.Use(echoMiddleware.Logger())
	e.Use(echoMiddleware.Recover())
	e.Use(echoMiddleware.CORS())
	e.Use(echoMiddleware.Secure())
	e.Use(rateLimiter.RateLimit())

	e.Match([]string{"GET", "HEAD"}, "/", func(c echo.Context) error {
		return c.JSON(200, map[string]string{
			"status":  "OK",
			"message": "HRM8 Ledger Backend is running",
			"version": "1.0",
		})
	})

	e.Match([]string{"GET", "HEAD"}, "/health", func(c echo.Context) error {
		return c.JSON(200, map[string]string{
			"status":   "healthy",
			"database": "connected",
		})
	})

	// Initialize repositories
	commissionRepo := repositories.NewCommissionRepository(db)
	withdrawalRepo := repositories.NewWithdrawalRepository(db)
	consultantRepo := repositories.NewConsultantRepository(db)

	// Withdrawal creation must be serialized per consultant; Redis backs
	// the lock in production, with an in-process fallback for local runs
	var locker services.Locker
	if redisClient != nil {
		locker = services.NewRedisLocker(redisClient)
	} else {
		locker = services.NewMutexLocker()
	}

	// Initialize services
	ledgerService := services.NewLedgerService(commissionRepo, withdrawalRepo, locker)
	payoutService := services.NewPayoutService()
	payoutExecutor := services.NewPayoutExecutor(ledgerService, consultantRepo, payoutService, locker, os.Getenv("PAYOUT_CURRENCY"))
	reconciliationService := services.NewReconciliationService(ledgerService)

	// Initialize controllers
	withdrawalController := controllers.NewWithdrawalController(db, ledgerService, consultantRepo, wsHub)
	commissionController := controllers.NewCommissionController(db, ledgerService, wsHub)
	adminWithdrawalController := controllers.NewAdminWithdrawalController(db, ledgerService, payoutExecutor, consultantRepo, wsHub)
	payoutWebhookController := controllers.NewPayoutWebhookController(reconciliationService)

	// Register routes
	routes.RegisterLedgerRoutes(e, withdrawalController, commissionController, payoutWebhookController, wsHub)
	routes.RegisterAdminRoutes(e, adminWithdrawalController, commissionController)

	// Start server
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	e.Logger.Fatal(e.Start(":" + port))
}
