package payments

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dialadrink/backend/internal/ledger"
	"github.com/dialadrink/backend/internal/orders"
	"github.com/dialadrink/backend/pkg/db/models"
	"github.com/dialadrink/backend/pkg/enums"
	"github.com/dialadrink/backend/pkg/errors"
	"github.com/dialadrink/backend/pkg/logger"
)

// VerifyInput carries the details staff confirm when recording a payment by
// hand: an M-Pesa receipt read off the driver's phone, or plain cash.
type VerifyInput struct {
	Provider      enums.PaymentProvider
	Amount        *decimal.Decimal
	ReceiptNumber string
	PhoneNumber   string
	Notes         string
}

// Service records manually verified payments. A verified payment writes a
// completed ledger row and flips the order to paid, which in turn hands a
// completed order to settlement.
type Service interface {
	Verify(ctx context.Context, orderID uuid.UUID, input VerifyInput) (*models.Order, error)
}

type service struct {
	orders orders.Service
	ledger ledger.Repository
	logg   *logger.Logger
}

// NewService wires the payment verification service.
func NewService(ordersSvc orders.Service, ledgerRepo ledger.Repository, logg *logger.Logger) (Service, error) {
	if ordersSvc == nil {
		return nil, fmt.Errorf("payments service requires an orders service")
	}
	if ledgerRepo == nil {
		return nil, fmt.Errorf("payments service requires a ledger repository")
	}
	if logg == nil {
		return nil, fmt.Errorf("payments service requires a logger")
	}
	return &service{orders: ordersSvc, ledger: ledgerRepo, logg: logg}, nil
}

func (s *service) Verify(ctx context.Context, orderID uuid.UUID, input VerifyInput) (*models.Order, error) {
	ctx = s.logg.WithOrderID(ctx, orderID.String())

	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.PaymentStatus == enums.PaymentStatusPaid {
		return nil, errors.New(errors.CodeConflict, "order is already paid")
	}

	amount := order.TotalAmount
	if input.Amount != nil && input.Amount.IsPositive() {
		amount = *input.Amount
	}

	// The payment row lands through the same upsert path as settlement rows:
	// re-verifying replaces the live row instead of stacking duplicates.
	txn := &models.LedgerTransaction{
		OrderID:         order.ID,
		TransactionType: enums.TransactionTypePayment,
		Status:          enums.TransactionStatusCompleted,
		PaymentStatus:   enums.TransactionPaymentStatusPaid,
		Amount:          amount,
		ReceiptNumber:   input.ReceiptNumber,
		PhoneNumber:     input.PhoneNumber,
		Notes:           input.Notes,
		TransactionDate: time.Now().UTC(),
	}
	if err := s.ledger.Upsert(ctx, txn); err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "recording verified payment")
	}
	s.logg.Info(ctx, "payment verified")

	return s.orders.UpdatePaymentStatus(ctx, orderID, enums.PaymentStatusPaid, input.Provider)
}
