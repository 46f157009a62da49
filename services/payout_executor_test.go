package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Abhi-Verma2005/hrm8-backend-sub000/models"
)

type fakeConsultantRepo struct {
	items map[primitive.ObjectID]*models.Consultant
}

func (r *fakeConsultantRepo) FindByID(_ context.Context, id primitive.ObjectID) (*models.Consultant, error) {
	c, ok := r.items[id]
	if !ok {
		return nil, nil
	}
	copied := *c
	return &copied, nil
}

// fakeTransferClient scripts the provider's response to the next call and
// records what was sent.
type fakeTransferClient struct {
	result   *models.TransferResult
	err      error
	requests []models.TransferRequest
}

func (c *fakeTransferClient) CreateTransfer(_ context.Context, req models.TransferRequest) (*models.TransferResult, error) {
	c.requests = append(c.requests, req)
	if c.err != nil {
		return nil, c.err
	}
	return c.result, nil
}

func (c *fakeTransferClient) GetTransferStatus(_ context.Context, _ string) (string, error) {
	return "settled", nil
}

type timeoutError struct{}

func (timeoutError) Error() string   { return "dial tcp: i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

type executorFixture struct {
	svc         *LedgerService
	commissions *fakeCommissionRepo
	withdrawals *fakeWithdrawalRepo
	client      *fakeTransferClient
	executor    *PayoutExecutor

	consultantID primitive.ObjectID
	adminID      primitive.ObjectID
	withdrawalID primitive.ObjectID
	commissionID primitive.ObjectID
}

// newExecutorFixture stands up an approved $100 withdrawal for a consultant
// with an enabled payout account.
func newExecutorFixture(t *testing.T) *executorFixture {
	t.Helper()
	ctx := context.Background()

	svc, commissions, withdrawals := newTestLedger()
	consultantID := primitive.NewObjectID()
	adminID := primitive.NewObjectID()

	commissionID := seedConfirmedCommission(t, svc, consultantID, 100)
	w, err := svc.CreateWithdrawal(ctx, consultantID, &models.WithdrawalRequest{
		Amount:        100,
		PaymentMethod: "payout_account",
	}, []primitive.ObjectID{commissionID})
	require.NoError(t, err)
	_, err = svc.ApproveWithdrawal(ctx, w.ID, adminID, "")
	require.NoError(t, err)

	consultants := &fakeConsultantRepo{items: map[primitive.ObjectID]*models.Consultant{
		consultantID: {
			ID:       consultantID,
			FullName: "Rania Khoury",
			Email:    "rania@example.com",
			PayoutAccount: &models.PayoutAccount{
				Handle:  "96170123456",
				Enabled: true,
			},
		},
	}}

	client := &fakeTransferClient{}
	return &executorFixture{
		svc:          svc,
		commissions:  commissions,
		withdrawals:  withdrawals,
		client:       client,
		executor:     NewPayoutExecutor(svc, consultants, client, NewMutexLocker(), "USD"),
		consultantID: consultantID,
		adminID:      adminID,
		withdrawalID: w.ID,
		commissionID: commissionID,
	}
}

func TestExecuteWithdrawalSettled(t *testing.T) {
	f := newExecutorFixture(t)
	ctx := context.Background()
	f.client.result = &models.TransferResult{TransferID: "tr_settled_1", Settled: true}

	result, err := f.executor.ExecuteWithdrawal(ctx, f.withdrawalID, f.adminID)
	require.NoError(t, err)
	require.Equal(t, "tr_settled_1", result.TransferID)

	// The transfer is tagged with the withdrawal ID for reconciliation
	require.Len(t, f.client.requests, 1)
	sent := f.client.requests[0]
	require.Equal(t, f.withdrawalID.Hex(), sent.CorrelationID)
	require.Equal(t, f.withdrawalID.Hex(), sent.IdempotencyKey)
	require.Equal(t, "96170123456", sent.Destination)
	require.NotNil(t, sent.Amount)
	require.Equal(t, 100.0, *sent.Amount)

	w, err := f.svc.GetWithdrawal(ctx, f.withdrawalID)
	require.NoError(t, err)
	require.Equal(t, models.WithdrawalStatusCompleted, w.Status)
	require.Equal(t, "tr_settled_1", w.PaymentReference)

	c, err := f.commissions.FindByID(ctx, f.commissionID)
	require.NoError(t, err)
	require.Equal(t, models.CommissionStatusPaid, c.Status)
}

func TestExecuteWithdrawalUnsettled(t *testing.T) {
	f := newExecutorFixture(t)
	ctx := context.Background()
	f.client.result = &models.TransferResult{TransferID: "tr_async_1", Settled: false}

	_, err := f.executor.ExecuteWithdrawal(ctx, f.withdrawalID, f.adminID)
	require.NoError(t, err)

	// Awaiting the provider's confirmation event
	w, err := f.svc.GetWithdrawal(ctx, f.withdrawalID)
	require.NoError(t, err)
	require.Equal(t, models.WithdrawalStatusProcessing, w.Status)
	require.Equal(t, "tr_async_1", w.TransferID)

	c, err := f.commissions.FindByID(ctx, f.commissionID)
	require.NoError(t, err)
	require.Equal(t, models.CommissionStatusConfirmed, c.Status)
}

func TestExecuteWithdrawalDeclined(t *testing.T) {
	f := newExecutorFixture(t)
	ctx := context.Background()
	f.client.err = errors.New("insufficient provider float")

	_, err := f.executor.ExecuteWithdrawal(ctx, f.withdrawalID, f.adminID)
	var payoutErr *PayoutError
	require.ErrorAs(t, err, &payoutErr)

	// A decline keeps the withdrawal approved so an operator can re-execute
	w, err := f.svc.GetWithdrawal(ctx, f.withdrawalID)
	require.NoError(t, err)
	require.Equal(t, models.WithdrawalStatusApproved, w.Status)
	require.Equal(t, "insufficient provider float", w.TransferFailureReason)

	// Second attempt after the provider recovers succeeds
	f.client.err = nil
	f.client.result = &models.TransferResult{TransferID: "tr_retry_1", Settled: true}
	_, err = f.executor.ExecuteWithdrawal(ctx, f.withdrawalID, f.adminID)
	require.NoError(t, err)

	w, err = f.svc.GetWithdrawal(ctx, f.withdrawalID)
	require.NoError(t, err)
	require.Equal(t, models.WithdrawalStatusCompleted, w.Status)
}

func TestExecuteWithdrawalTimeout(t *testing.T) {
	f := newExecutorFixture(t)
	ctx := context.Background()
	f.client.err = timeoutError{}

	_, err := f.executor.ExecuteWithdrawal(ctx, f.withdrawalID, f.adminID)
	var payoutErr *PayoutError
	require.ErrorAs(t, err, &payoutErr)

	// A timeout is an unknown outcome: the withdrawal parks in processing
	// until a reconciliation event or an operator resolves it
	w, err := f.svc.GetWithdrawal(ctx, f.withdrawalID)
	require.NoError(t, err)
	require.Equal(t, models.WithdrawalStatusProcessing, w.Status)
	require.Contains(t, w.TransferFailureReason, "transfer outcome unknown")

	// Re-execution is refused while the outcome is unresolved
	_, err = f.executor.ExecuteWithdrawal(ctx, f.withdrawalID, f.adminID)
	require.ErrorIs(t, err, ErrNotApproved)
}

func TestExecuteWithdrawalGuards(t *testing.T) {
	f := newExecutorFixture(t)
	ctx := context.Background()

	// Only approved withdrawals are executable
	pendingCommission := seedConfirmedCommission(t, f.svc, f.consultantID, 30)
	pending, err := f.svc.CreateWithdrawal(ctx, f.consultantID, &models.WithdrawalRequest{
		Amount:        30,
		PaymentMethod: "payout_account",
	}, []primitive.ObjectID{pendingCommission})
	require.NoError(t, err)
	_, err = f.executor.ExecuteWithdrawal(ctx, pending.ID, f.adminID)
	require.ErrorIs(t, err, ErrNotApproved)

	_, err = f.executor.ExecuteWithdrawal(ctx, primitive.NewObjectID(), f.adminID)
	require.ErrorIs(t, err, ErrWithdrawalNotFound)

	require.Empty(t, f.client.requests)
}

func TestExecuteWithdrawalNoPayoutAccount(t *testing.T) {
	f := newExecutorFixture(t)
	ctx := context.Background()

	disabled := &fakeConsultantRepo{items: map[primitive.ObjectID]*models.Consultant{
		f.consultantID: {
			ID:            f.consultantID,
			PayoutAccount: &models.PayoutAccount{Handle: "96170123456", Enabled: false},
		},
	}}
	executor := NewPayoutExecutor(f.svc, disabled, f.client, NewMutexLocker(), "USD")

	_, err := executor.ExecuteWithdrawal(ctx, f.withdrawalID, f.adminID)
	require.ErrorIs(t, err, ErrPayoutDestinationUnavailable)

	// No call reached the provider and the withdrawal is untouched
	require.Empty(t, f.client.requests)
	w, err := f.svc.GetWithdrawal(ctx, f.withdrawalID)
	require.NoError(t, err)
	require.Equal(t, models.WithdrawalStatusApproved, w.Status)
}
