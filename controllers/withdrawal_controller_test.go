package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Abhi-Verma2005/hrm8-backend-sub000/middleware"
	"github.com/Abhi-Verma2005/hrm8-backend-sub000/models"
	"github.com/Abhi-Verma2005/hrm8-backend-sub000/services"
)

// In-memory repositories for handler tests, mirroring the status guards of
// the mongo implementations.

type memCommissionRepo struct {
	mu    sync.Mutex
	items map[primitive.ObjectID]*models.Commission
}

func newMemCommissionRepo() *memCommissionRepo {
	return &memCommissionRepo{items: make(map[primitive.ObjectID]*models.Commission)}
}

func (r *memCommissionRepo) Insert(_ context.Context, c *models.Commission) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c.ID.IsZero() {
		c.ID = primitive.NewObjectID()
	}
	copied := *c
	r.items[c.ID] = &copied
	return nil
}

func (r *memCommissionRepo) FindByID(_ context.Context, id primitive.ObjectID) (*models.Commission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.items[id]
	if !ok {
		return nil, nil
	}
	copied := *c
	return &copied, nil
}

func (r *memCommissionRepo) FindByConsultant(_ context.Context, consultantID primitive.ObjectID) ([]models.Commission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Commission
	for _, c := range r.items {
		if c.ConsultantID == consultantID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (r *memCommissionRepo) Confirm(_ context.Context, id primitive.ObjectID, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.items[id]
	if !ok || c.Status != models.CommissionStatusPending {
		return false, nil
	}
	c.Status = models.CommissionStatusConfirmed
	c.ConfirmedAt = &at
	return true, nil
}

func (r *memCommissionRepo) MarkPaid(_ context.Context, ids []primitive.ObjectID, paymentReference string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range ids {
		if c, ok := r.items[id]; ok && c.Status == models.CommissionStatusConfirmed {
			c.Status = models.CommissionStatusPaid
			c.PaidAt = &at
			c.PaymentReference = paymentReference
		}
	}
	return nil
}

type memWithdrawalRepo struct {
	mu    sync.Mutex
	items map[primitive.ObjectID]*models.Withdrawal
}

func newMemWithdrawalRepo() *memWithdrawalRepo {
	return &memWithdrawalRepo{items: make(map[primitive.ObjectID]*models.Withdrawal)}
}

func (r *memWithdrawalRepo) Insert(_ context.Context, w *models.Withdrawal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if w.ID.IsZero() {
		w.ID = primitive.NewObjectID()
	}
	copied := *w
	r.items[w.ID] = &copied
	return nil
}

func (r *memWithdrawalRepo) FindByID(_ context.Context, id primitive.ObjectID) (*models.Withdrawal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.items[id]
	if !ok {
		return nil, nil
	}
	copied := *w
	return &copied, nil
}

func (r *memWithdrawalRepo) FindByConsultant(_ context.Context, consultantID primitive.ObjectID) ([]models.Withdrawal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Withdrawal
	for _, w := range r.items {
		if w.ConsultantID == consultantID {
			out = append(out, *w)
		}
	}
	return out, nil
}

func (r *memWithdrawalRepo) FindByStatus(_ context.Context, status models.WithdrawalStatus) ([]models.Withdrawal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Withdrawal
	for _, w := range r.items {
		if w.Status == status {
			out = append(out, *w)
		}
	}
	return out, nil
}

func (r *memWithdrawalRepo) Approve(_ context.Context, id, adminID primitive.ObjectID, note string, at time.Time) (bool, error) {
	return r.transition(id, models.WithdrawalStatusPending, func(w *models.Withdrawal) {
		w.Status = models.WithdrawalStatusApproved
		w.ProcessedBy = &adminID
		w.ProcessedAt = &at
		w.AdminNotes = note
	})
}

func (r *memWithdrawalRepo) Reject(_ context.Context, id, adminID primitive.ObjectID, reason string, at time.Time) (bool, error) {
	return r.transition(id, models.WithdrawalStatusPending, func(w *models.Withdrawal) {
		w.Status = models.WithdrawalStatusRejected
		w.RejectedBy = &adminID
		w.RejectedAt = &at
		w.RejectionReason = reason
	})
}

func (r *memWithdrawalRepo) Cancel(_ context.Context, id, consultantID primitive.ObjectID, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.items[id]
	if !ok || w.ConsultantID != consultantID || w.Status != models.WithdrawalStatusPending {
		return false, nil
	}
	w.Status = models.WithdrawalStatusCancelled
	w.UpdatedAt = at
	return true, nil
}

func (r *memWithdrawalRepo) MarkProcessing(_ context.Context, id primitive.ObjectID, transferID string, at time.Time) (bool, error) {
	return r.transition(id, models.WithdrawalStatusApproved, func(w *models.Withdrawal) {
		w.Status = models.WithdrawalStatusProcessing
		w.TransferID = transferID
		w.TransferInitiatedAt = &at
	})
}

func (r *memWithdrawalRepo) Complete(_ context.Context, id primitive.ObjectID, paymentReference string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.items[id]
	if !ok || (w.Status != models.WithdrawalStatusApproved && w.Status != models.WithdrawalStatusProcessing) {
		return false, nil
	}
	w.Status = models.WithdrawalStatusCompleted
	w.PaymentReference = paymentReference
	w.UpdatedAt = at
	return true, nil
}

func (r *memWithdrawalRepo) RecordTransferFailure(_ context.Context, id primitive.ObjectID, reason string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if w, ok := r.items[id]; ok {
		w.TransferFailureReason = reason
	}
	return nil
}

func (r *memWithdrawalRepo) transition(id primitive.ObjectID, from models.WithdrawalStatus, apply func(*models.Withdrawal)) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.items[id]
	if !ok || w.Status != from {
		return false, nil
	}
	apply(w)
	return true, nil
}

type testValidator struct {
	validator *validator.Validate
}

func (v *testValidator) Validate(i interface{}) error {
	return v.validator.Struct(i)
}

type handlerEnv struct {
	echo       *echo.Echo
	ledger     *services.LedgerService
	controller *WithdrawalController
}

func newHandlerEnv() *handlerEnv {
	e := echo.New()
	e.Validator = &testValidator{validator: validator.New()}

	ledger := services.NewLedgerService(newMemCommissionRepo(), newMemWithdrawalRepo(), services.NewMutexLocker())
	return &handlerEnv{
		echo:       e,
		ledger:     ledger,
		controller: NewWithdrawalController(nil, ledger, nil, nil),
	}
}

func (env *handlerEnv) seedConfirmed(t *testing.T, consultantID primitive.ObjectID, amount float64) primitive.ObjectID {
	t.Helper()
	commission := &models.Commission{
		ConsultantID: consultantID,
		RegionID:     primitive.NewObjectID(),
		Type:         models.CommissionTypeJobFill,
		Amount:       amount,
	}
	require.NoError(t, env.ledger.RecordCommission(context.Background(), commission))
	_, err := env.ledger.ConfirmCommission(context.Background(), commission.ID)
	require.NoError(t, err)
	return commission.ID
}

// authedRequest builds an authenticated echo context the way the JWT
// middleware leaves it for handlers.
func authedRequest(e *echo.Echo, method, target, body string, userID primitive.ObjectID) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("user", &jwt.Token{Claims: &middleware.JwtCustomClaims{
		UserID:   userID.Hex(),
		Email:    "consultant@example.com",
		UserType: "consultant",
	}})
	return c, rec
}

func (env *handlerEnv) request(method, target, body string, userID primitive.ObjectID) (echo.Context, *httptest.ResponseRecorder) {
	return authedRequest(env.echo, method, target, body, userID)
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) models.Response {
	t.Helper()
	var resp models.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestCreateWithdrawalHandler(t *testing.T) {
	env := newHandlerEnv()
	consultantID := primitive.NewObjectID()
	c1 := env.seedConfirmed(t, consultantID, 100)
	c2 := env.seedConfirmed(t, consultantID, 150)

	body := `{"amount":250,"paymentMethod":"bank_transfer","commissionIds":["` + c1.Hex() + `","` + c2.Hex() + `"]}`
	c, rec := env.request(http.MethodPost, "/api/withdrawals", body, consultantID)
	require.NoError(t, env.controller.CreateWithdrawal(c))
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeResponse(t, rec)
	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	withdrawal, ok := data["withdrawal"].(map[string]interface{})
	require.True(t, ok)
	require.Equal(t, "pending", withdrawal["status"])
	require.Equal(t, 250.0, withdrawal["amount"])

	// The response carries the recomputed balance
	balance, ok := data["balance"].(map[string]interface{})
	require.True(t, ok)
	require.Equal(t, 0.0, balance["availableBalance"])
}

func TestCreateWithdrawalHandlerInsufficientBalance(t *testing.T) {
	env := newHandlerEnv()
	consultantID := primitive.NewObjectID()
	c1 := env.seedConfirmed(t, consultantID, 100)

	body := `{"amount":500,"paymentMethod":"bank_transfer","commissionIds":["` + c1.Hex() + `"]}`
	c, rec := env.request(http.MethodPost, "/api/withdrawals", body, consultantID)
	require.NoError(t, env.controller.CreateWithdrawal(c))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, decodeResponse(t, rec).Message, "exceeds available balance")
}

func TestCreateWithdrawalHandlerValidation(t *testing.T) {
	env := newHandlerEnv()
	consultantID := primitive.NewObjectID()

	// Missing payment method fails struct validation
	c, rec := env.request(http.MethodPost, "/api/withdrawals",
		`{"amount":100,"commissionIds":["`+primitive.NewObjectID().Hex()+`"]}`, consultantID)
	require.NoError(t, env.controller.CreateWithdrawal(c))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	// Malformed commission ID
	c, rec = env.request(http.MethodPost, "/api/withdrawals",
		`{"amount":100,"paymentMethod":"bank_transfer","commissionIds":["not-hex"]}`, consultantID)
	require.NoError(t, env.controller.CreateWithdrawal(c))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, decodeResponse(t, rec).Message, "Invalid commission ID format")
}

func TestCancelWithdrawalHandler(t *testing.T) {
	env := newHandlerEnv()
	ctx := context.Background()
	consultantID := primitive.NewObjectID()
	c1 := env.seedConfirmed(t, consultantID, 80)

	w, err := env.ledger.CreateWithdrawal(ctx, consultantID, &models.WithdrawalRequest{
		Amount:        80,
		PaymentMethod: "bank_transfer",
	}, []primitive.ObjectID{c1})
	require.NoError(t, err)

	// Someone else cannot cancel it
	c, rec := env.request(http.MethodPost, "/", "", primitive.NewObjectID())
	c.SetPath("/api/withdrawals/:id/cancel")
	c.SetParamNames("id")
	c.SetParamValues(w.ID.Hex())
	require.NoError(t, env.controller.CancelWithdrawal(c))
	require.Equal(t, http.StatusForbidden, rec.Code)

	// The owner can
	c, rec = env.request(http.MethodPost, "/", "", consultantID)
	c.SetPath("/api/withdrawals/:id/cancel")
	c.SetParamNames("id")
	c.SetParamValues(w.ID.Hex())
	require.NoError(t, env.controller.CancelWithdrawal(c))
	require.Equal(t, http.StatusOK, rec.Code)

	current, err := env.ledger.GetWithdrawal(ctx, w.ID)
	require.NoError(t, err)
	require.Equal(t, models.WithdrawalStatusCancelled, current.Status)

	// Unknown withdrawal reports not found
	c, rec = env.request(http.MethodPost, "/", "", consultantID)
	c.SetPath("/api/withdrawals/:id/cancel")
	c.SetParamNames("id")
	c.SetParamValues(primitive.NewObjectID().Hex())
	require.NoError(t, env.controller.CancelWithdrawal(c))
	require.Equal(t, http.StatusNotFound, rec.Code)
}
