package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Abhi-Verma2005/hrm8-backend-sub000/models"
	"github.com/Abhi-Verma2005/hrm8-backend-sub000/services"
	"github.com/Abhi-Verma2005/hrm8-backend-sub000/websocket"
)

type commissionEnv struct {
	echo       *echo.Echo
	ledger     *services.LedgerService
	controller *CommissionController
}

func newCommissionEnv() *commissionEnv {
	e := echo.New()
	e.Validator = &testValidator{validator: validator.New()}

	ledger := services.NewLedgerService(newMemCommissionRepo(), newMemWithdrawalRepo(), services.NewMutexLocker())
	return &commissionEnv{
		echo:       e,
		ledger:     ledger,
		controller: NewCommissionController(nil, ledger, websocket.NewHub()),
	}
}

func TestRecordCommissionHandler(t *testing.T) {
	env := newCommissionEnv()
	consultantID := primitive.NewObjectID()

	body := `{"consultantId":"` + consultantID.Hex() + `","regionId":"` + primitive.NewObjectID().Hex() + `","type":"job_fill","amount":120.50}`
	c, rec := authedRequest(env.echo, http.MethodPost, "/api/admin/commissions", body, primitive.NewObjectID())
	require.NoError(t, env.controller.RecordCommission(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp models.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	recorded, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	require.Equal(t, "pending", recorded["status"])
	require.Equal(t, 120.50, recorded["amount"])

	// A pending commission does not count toward the available balance yet
	balance, err := env.ledger.CalculateBalance(context.Background(), consultantID)
	require.NoError(t, err)
	require.Equal(t, 0.0, balance.AvailableBalance)
	require.Equal(t, 120.50, balance.PendingBalance)

	// Rejected type fails validation
	c, rec = authedRequest(env.echo, http.MethodPost, "/api/admin/commissions",
		`{"consultantId":"`+consultantID.Hex()+`","regionId":"`+primitive.NewObjectID().Hex()+`","type":"bonus","amount":10}`,
		primitive.NewObjectID())
	require.NoError(t, env.controller.RecordCommission(c))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestConfirmCommissionHandler(t *testing.T) {
	env := newCommissionEnv()
	ctx := context.Background()
	consultantID := primitive.NewObjectID()

	commission := &models.Commission{
		ConsultantID: consultantID,
		RegionID:     primitive.NewObjectID(),
		Type:         models.CommissionTypeJobFill,
		Amount:       75,
	}
	require.NoError(t, env.ledger.RecordCommission(ctx, commission))

	c, rec := authedRequest(env.echo, http.MethodPost, "/", "", primitive.NewObjectID())
	c.SetPath("/api/admin/commissions/:id/confirm")
	c.SetParamNames("id")
	c.SetParamValues(commission.ID.Hex())
	require.NoError(t, env.controller.ConfirmCommission(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp models.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	confirmed, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	require.Equal(t, "confirmed", confirmed["status"])

	balance, err := env.ledger.CalculateBalance(ctx, consultantID)
	require.NoError(t, err)
	require.Equal(t, 75.0, balance.AvailableBalance)

	// Confirming twice loses the status guard
	c, rec = authedRequest(env.echo, http.MethodPost, "/", "", primitive.NewObjectID())
	c.SetPath("/api/admin/commissions/:id/confirm")
	c.SetParamNames("id")
	c.SetParamValues(commission.ID.Hex())
	require.NoError(t, env.controller.ConfirmCommission(c))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
