package payments

import (
	"context"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/dialadrink/backend/internal/ledger"
	"github.com/dialadrink/backend/internal/orders"
	"github.com/dialadrink/backend/pkg/db/models"
	"github.com/dialadrink/backend/pkg/enums"
	pkgerrors "github.com/dialadrink/backend/pkg/errors"
	"github.com/dialadrink/backend/pkg/logger"
)

type stubOrders struct {
	order        *models.Order
	paymentCalls []enums.PaymentProvider
}

func (s *stubOrders) GetOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	if s.order == nil || s.order.ID != orderID {
		return nil, orders.ErrOrderNotFound
	}
	return s.order, nil
}

func (s *stubOrders) UpdateStatus(ctx context.Context, orderID uuid.UUID, status enums.OrderStatus) (*models.Order, error) {
	s.order.Status = status
	return s.order, nil
}

func (s *stubOrders) UpdatePaymentStatus(ctx context.Context, orderID uuid.UUID, status enums.PaymentStatus, provider enums.PaymentProvider) (*models.Order, error) {
	s.order.PaymentStatus = status
	s.paymentCalls = append(s.paymentCalls, provider)
	return s.order, nil
}

type recordingLedger struct {
	upserts []*models.LedgerTransaction
}

func (s *recordingLedger) WithTx(tx *gorm.DB) ledger.Repository { return s }

func (s *recordingLedger) FindDeliveryPay(ctx context.Context, orderID uuid.UUID, driverID *uuid.UUID) (*models.LedgerTransaction, error) {
	return nil, nil
}

func (s *recordingLedger) FindTip(ctx context.Context, orderID uuid.UUID) (*models.LedgerTransaction, error) {
	return nil, nil
}

func (s *recordingLedger) LatestCompletedPayment(ctx context.Context, orderID uuid.UUID) (*models.LedgerTransaction, error) {
	return nil, nil
}

func (s *recordingLedger) Upsert(ctx context.Context, txn *models.LedgerTransaction) error {
	s.upserts = append(s.upserts, txn)
	return nil
}

func (s *recordingLedger) CancelDeliveryPay(ctx context.Context, orderID uuid.UUID, note string) (int64, error) {
	return 0, nil
}

func (s *recordingLedger) ListByOrderID(ctx context.Context, orderID uuid.UUID) ([]models.LedgerTransaction, error) {
	return nil, nil
}

func newPaymentsFixture(t *testing.T, order *models.Order) (Service, *stubOrders, *recordingLedger) {
	t.Helper()

	ordersSvc := &stubOrders{order: order}
	ledgerRepo := &recordingLedger{}
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})

	svc, err := NewService(ordersSvc, ledgerRepo, logg)
	require.NoError(t, err)
	return svc, ordersSvc, ledgerRepo
}

func unpaidOrder() *models.Order {
	return &models.Order{
		ID:            uuid.New(),
		OrderNumber:   1042,
		Status:        enums.OrderStatusCompleted,
		PaymentStatus: enums.PaymentStatusPending,
		TotalAmount:   decimal.RequireFromString("1250.00"),
	}
}

func TestVerifyRecordsPaymentAndMarksPaid(t *testing.T) {
	order := unpaidOrder()
	svc, ordersSvc, ledgerRepo := newPaymentsFixture(t, order)

	updated, err := svc.Verify(context.Background(), order.ID, VerifyInput{
		Provider:      enums.PaymentProviderMpesaSTK,
		ReceiptNumber: "RC12345",
		PhoneNumber:   "254700000000",
	})
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusPaid, updated.PaymentStatus)

	require.Len(t, ledgerRepo.upserts, 1)
	txn := ledgerRepo.upserts[0]
	assert.Equal(t, enums.TransactionTypePayment, txn.TransactionType)
	assert.Equal(t, enums.TransactionStatusCompleted, txn.Status)
	assert.True(t, txn.Amount.Equal(decimal.RequireFromString("1250.00")))
	assert.Equal(t, "RC12345", txn.ReceiptNumber)

	require.Len(t, ordersSvc.paymentCalls, 1)
	assert.Equal(t, enums.PaymentProviderMpesaSTK, ordersSvc.paymentCalls[0])
}

func TestVerifyDefaultsAmountToOrderTotal(t *testing.T) {
	order := unpaidOrder()
	svc, _, ledgerRepo := newPaymentsFixture(t, order)

	partial := decimal.RequireFromString("1000.00")
	_, err := svc.Verify(context.Background(), order.ID, VerifyInput{
		Provider: enums.PaymentProviderCashInHand,
		Amount:   &partial,
	})
	require.NoError(t, err)

	require.Len(t, ledgerRepo.upserts, 1)
	assert.True(t, ledgerRepo.upserts[0].Amount.Equal(partial))
}

func TestVerifyRejectsAlreadyPaidOrder(t *testing.T) {
	order := unpaidOrder()
	order.PaymentStatus = enums.PaymentStatusPaid
	svc, ordersSvc, ledgerRepo := newPaymentsFixture(t, order)

	_, err := svc.Verify(context.Background(), order.ID, VerifyInput{Provider: enums.PaymentProviderMpesaSTK})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.As(err).Code())
	assert.Empty(t, ledgerRepo.upserts)
	assert.Empty(t, ordersSvc.paymentCalls)
}

func TestVerifyUnknownOrder(t *testing.T) {
	svc, _, _ := newPaymentsFixture(t, unpaidOrder())

	_, err := svc.Verify(context.Background(), uuid.New(), VerifyInput{Provider: enums.PaymentProviderMpesaSTK})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}
