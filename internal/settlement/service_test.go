package settlement

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/dialadrink/backend/internal/drivers"
	"github.com/dialadrink/backend/internal/ledger"
	"github.com/dialadrink/backend/internal/settings"
	"github.com/dialadrink/backend/internal/wallets"
	"github.com/dialadrink/backend/pkg/db/models"
	"github.com/dialadrink/backend/pkg/enums"
	"github.com/dialadrink/backend/pkg/logger"
	"github.com/dialadrink/backend/pkg/metrics"
)

type stubOrderStore struct {
	order        *models.Order
	lockAcquired bool
	settled      bool
}

func (s *stubOrderStore) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubOrderStore) AcquireOrderLock(ctx context.Context, orderID uuid.UUID) (bool, error) {
	return s.lockAcquired, nil
}

func (s *stubOrderStore) FindOrderForUpdate(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	if s.order == nil || s.order.ID != orderID {
		return nil, nil
	}
	return s.order, nil
}

func (s *stubOrderStore) MarkSettled(ctx context.Context, orderID uuid.UUID) error {
	s.settled = true
	now := time.Now().UTC()
	s.order.SettledAt = &now
	return nil
}

type stubLedger struct {
	payment   *models.LedgerTransaction
	rows      []*models.LedgerTransaction
	cancelled int64
}

func (s *stubLedger) WithTx(tx *gorm.DB) ledger.Repository { return s }

func (s *stubLedger) FindDeliveryPay(ctx context.Context, orderID uuid.UUID, driverID *uuid.UUID) (*models.LedgerTransaction, error) {
	for _, row := range s.rows {
		if row.OrderID != orderID || row.TransactionType != enums.TransactionTypeDeliveryPay {
			continue
		}
		if row.Status == enums.TransactionStatusCancelled {
			continue
		}
		if driverID == nil && row.DriverID == nil {
			return row, nil
		}
		if driverID != nil && row.DriverID != nil && *row.DriverID == *driverID {
			return row, nil
		}
	}
	return nil, nil
}

func (s *stubLedger) FindTip(ctx context.Context, orderID uuid.UUID) (*models.LedgerTransaction, error) {
	for _, row := range s.rows {
		if row.OrderID == orderID && row.TransactionType == enums.TransactionTypeTip &&
			row.Status != enums.TransactionStatusCancelled {
			return row, nil
		}
	}
	return nil, nil
}

func (s *stubLedger) LatestCompletedPayment(ctx context.Context, orderID uuid.UUID) (*models.LedgerTransaction, error) {
	if s.payment != nil && s.payment.OrderID == orderID {
		return s.payment, nil
	}
	return nil, nil
}

func (s *stubLedger) Upsert(ctx context.Context, txn *models.LedgerTransaction) error {
	if txn.ID == uuid.Nil {
		txn.ID = uuid.New()
	}
	for i, row := range s.rows {
		if row.OrderID != txn.OrderID || row.TransactionType != txn.TransactionType {
			continue
		}
		if row.Status == enums.TransactionStatusCancelled {
			continue
		}
		sameSide := (row.DriverID == nil && txn.DriverID == nil) ||
			(row.DriverID != nil && txn.DriverID != nil && *row.DriverID == *txn.DriverID)
		if sameSide {
			txn.ID = row.ID
			s.rows[i] = txn
			return nil
		}
	}
	s.rows = append(s.rows, txn)
	return nil
}

func (s *stubLedger) CancelDeliveryPay(ctx context.Context, orderID uuid.UUID, note string) (int64, error) {
	var touched int64
	for _, row := range s.rows {
		if row.OrderID == orderID && row.TransactionType == enums.TransactionTypeDeliveryPay &&
			row.Status != enums.TransactionStatusCancelled {
			row.Status = enums.TransactionStatusCancelled
			row.PaymentStatus = enums.TransactionPaymentStatusCancelled
			row.Amount = decimal.Zero
			row.Notes = note
			touched++
		}
	}
	s.cancelled += touched
	return touched, nil
}

func (s *stubLedger) ListByOrderID(ctx context.Context, orderID uuid.UUID) ([]models.LedgerTransaction, error) {
	var out []models.LedgerTransaction
	for _, row := range s.rows {
		if row.OrderID == orderID {
			out = append(out, *row)
		}
	}
	return out, nil
}

type stubWallets struct {
	merchantCredits   []decimal.Decimal
	deliveryCredits   []decimal.Decimal
	tipCredits        []decimal.Decimal
	driverWallet      *models.DriverWallet
	deliveryCreditErr error
	tipCreditErr      error
}

func (s *stubWallets) WithTx(tx *gorm.DB) wallets.Repository { return s }

func (s *stubWallets) GetMerchantWallet(ctx context.Context) (*models.MerchantWallet, error) {
	return &models.MerchantWallet{ID: models.MerchantWalletID}, nil
}

func (s *stubWallets) CreditMerchant(ctx context.Context, amount decimal.Decimal) (*models.MerchantWallet, error) {
	s.merchantCredits = append(s.merchantCredits, amount)
	return &models.MerchantWallet{ID: models.MerchantWalletID, Balance: amount}, nil
}

func (s *stubWallets) GetOrCreateDriverWallet(ctx context.Context, driverID uuid.UUID) (*models.DriverWallet, error) {
	if s.driverWallet == nil {
		s.driverWallet = &models.DriverWallet{ID: uuid.New(), DriverID: driverID}
	}
	return s.driverWallet, nil
}

func (s *stubWallets) CreditDriverDelivery(ctx context.Context, driverID uuid.UUID, amount decimal.Decimal) (*models.DriverWallet, error) {
	if s.deliveryCreditErr != nil {
		return nil, s.deliveryCreditErr
	}
	s.deliveryCredits = append(s.deliveryCredits, amount)
	s.driverWallet.Balance = s.driverWallet.Balance.Add(amount)
	return s.driverWallet, nil
}

func (s *stubWallets) CreditDriverTip(ctx context.Context, driverID uuid.UUID, amount decimal.Decimal) (*models.DriverWallet, error) {
	if s.tipCreditErr != nil {
		return nil, s.tipCreditErr
	}
	s.tipCredits = append(s.tipCredits, amount)
	s.driverWallet.Balance = s.driverWallet.Balance.Add(amount)
	return s.driverWallet, nil
}

func (s *stubWallets) FindDriverWallet(ctx context.Context, driverID uuid.UUID) (*models.DriverWallet, error) {
	return s.driverWallet, nil
}

type stubSettings struct {
	cfg settings.DriverPayConfig
}

func (s *stubSettings) WithTx(tx *gorm.DB) settings.Repository { return s }

func (s *stubSettings) Get(ctx context.Context, key string) (string, bool, error) {
	return "", false, nil
}

func (s *stubSettings) Set(ctx context.Context, key, value string) error { return nil }

func (s *stubSettings) DriverPayConfig(ctx context.Context) (settings.DriverPayConfig, error) {
	return s.cfg, nil
}

type stubDrivers struct {
	driver *models.Driver
}

func (s *stubDrivers) WithTx(tx *gorm.DB) drivers.Repository { return s }

func (s *stubDrivers) FindByID(ctx context.Context, driverID uuid.UUID) (*models.Driver, error) {
	if s.driver != nil && s.driver.ID == driverID {
		return s.driver, nil
	}
	return nil, nil
}

func (s *stubDrivers) UpdateFCMToken(ctx context.Context, driverID uuid.UUID, token string) error {
	return nil
}

type stubTx struct {
	ran bool
}

func (s *stubTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	s.ran = true
	return fn(nil)
}

type stubGuard struct {
	acquired bool
	released bool
}

func (s *stubGuard) Acquire(ctx context.Context, orderID uuid.UUID) (bool, error) {
	return s.acquired, nil
}

func (s *stubGuard) Release(ctx context.Context, orderID uuid.UUID) {
	s.released = true
}

type captureNotifier struct {
	events []DriverCreditedEvent
}

func (c *captureNotifier) DriverCredited(ctx context.Context, event DriverCreditedEvent) {
	c.events = append(c.events, event)
}

type settleFixture struct {
	svc      Service
	store    *stubOrderStore
	ledger   *stubLedger
	wallets  *stubWallets
	settings *stubSettings
	drivers  *stubDrivers
	tx       *stubTx
	guard    *stubGuard
}

func newSettleFixture(t *testing.T, order *models.Order, driver *models.Driver) *settleFixture {
	t.Helper()

	f := &settleFixture{
		store:    &stubOrderStore{order: order, lockAcquired: true},
		ledger:   &stubLedger{},
		wallets:  &stubWallets{},
		settings: &stubSettings{cfg: settings.DriverPayConfig{Enabled: true, Amount: dec("30.00")}},
		drivers:  &stubDrivers{driver: driver},
		tx:       &stubTx{},
		guard:    &stubGuard{acquired: true},
	}
	if order != nil {
		f.ledger.payment = &models.LedgerTransaction{
			ID:              uuid.New(),
			OrderID:         order.ID,
			TransactionType: enums.TransactionTypePayment,
			Status:          enums.TransactionStatusCompleted,
			PaymentStatus:   enums.TransactionPaymentStatusPaid,
			Amount:          order.TotalAmount,
			ReceiptNumber:   "RC12345",
			PhoneNumber:     "+254700000000",
		}
	}

	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	svc, err := NewService(f.store, f.ledger, f.wallets, f.settings, f.drivers, f.tx, f.guard,
		metrics.NewSettlementMetrics(nil), logg)
	require.NoError(t, err)
	f.svc = svc
	return f
}

func paidDeliveryOrder(driverID uuid.UUID) *models.Order {
	return &models.Order{
		ID:              uuid.New(),
		OrderNumber:     1042,
		Status:          enums.OrderStatusCompleted,
		PaymentStatus:   enums.PaymentStatusPaid,
		PaymentMethod:   enums.PaymentMethodMobileMoney,
		PaymentProvider: enums.PaymentProviderMpesaSTK,
		TotalAmount:     dec("1250.00"),
		DeliveryFee:     dec("150.00"),
		DriverID:        &driverID,
		DeliveryAddress: "12 Riverside Drive",
		Items: []models.OrderItem{
			{Name: "Gin 750ml", Quantity: 1, Total: dec("1000.00")},
		},
	}
}

func TestSettleDeliveryOrderSplitsFeeAndTip(t *testing.T) {
	driver := &models.Driver{ID: uuid.New(), Name: "Kamau", Active: true, FCMToken: "tok"}
	order := paidDeliveryOrder(driver.ID)
	f := newSettleFixture(t, order, driver)
	notifier := &captureNotifier{}

	result, err := f.svc.Settle(context.Background(), order.ID, notifier)
	require.NoError(t, err)

	// items 1000, fee 150, configured driver pay 30, derived tip 100
	assert.True(t, result.MerchantCredited)
	assert.True(t, result.DriverCredited)
	assert.False(t, result.AlreadyCredited)
	assert.Empty(t, result.DriverCreditError)

	require.Len(t, f.wallets.merchantCredits, 1)
	assert.True(t, f.wallets.merchantCredits[0].Equal(dec("1120.00")), "merchant got %s", f.wallets.merchantCredits[0])
	require.Len(t, f.wallets.deliveryCredits, 1)
	assert.True(t, f.wallets.deliveryCredits[0].Equal(dec("30.00")))
	require.Len(t, f.wallets.tipCredits, 1)
	assert.True(t, f.wallets.tipCredits[0].Equal(dec("100.00")))

	// merchant-side row, driver row and tip row
	assert.Len(t, f.ledger.rows, 3)
	driverRow, err := f.ledger.FindDeliveryPay(context.Background(), order.ID, &driver.ID)
	require.NoError(t, err)
	require.NotNil(t, driverRow)
	assert.NotNil(t, driverRow.DriverWalletID)
	assert.Equal(t, "RC12345", driverRow.ReceiptNumber)

	tipRow, err := f.ledger.FindTip(context.Background(), order.ID)
	require.NoError(t, err)
	require.NotNil(t, tipRow)
	assert.Equal(t, enums.TransactionTypeTip, tipRow.TransactionType)

	assert.True(t, f.store.settled)
	assert.True(t, f.guard.released)

	require.Len(t, notifier.events, 1)
	event := notifier.events[0]
	assert.True(t, event.DeliveryPay.Equal(dec("30.00")))
	assert.True(t, event.Tip.Equal(dec("100.00")))
	assert.True(t, event.NewBalance.Equal(dec("130.00")))
}

func TestSettleSecondRunIsNoOp(t *testing.T) {
	driver := &models.Driver{ID: uuid.New(), Active: true}
	order := paidDeliveryOrder(driver.ID)
	f := newSettleFixture(t, order, driver)

	_, err := f.svc.Settle(context.Background(), order.ID, nil)
	require.NoError(t, err)

	result, err := f.svc.Settle(context.Background(), order.ID, nil)
	require.NoError(t, err)

	assert.True(t, result.AlreadyCredited)
	assert.Len(t, f.wallets.merchantCredits, 1)
	assert.Len(t, f.wallets.deliveryCredits, 1)
	assert.Len(t, f.wallets.tipCredits, 1)
}

func TestSettleSkipsWhenGuardHeld(t *testing.T) {
	driver := &models.Driver{ID: uuid.New(), Active: true}
	order := paidDeliveryOrder(driver.ID)
	f := newSettleFixture(t, order, driver)
	f.guard.acquired = false

	result, err := f.svc.Settle(context.Background(), order.ID, nil)
	require.NoError(t, err)

	assert.True(t, result.Skipped)
	assert.Equal(t, SkipReasonInFlight, result.SkipReason)
	assert.False(t, f.tx.ran)
}

func TestSettleSkipsWhenAdvisoryLockHeld(t *testing.T) {
	driver := &models.Driver{ID: uuid.New(), Active: true}
	order := paidDeliveryOrder(driver.ID)
	f := newSettleFixture(t, order, driver)
	f.store.lockAcquired = false

	result, err := f.svc.Settle(context.Background(), order.ID, nil)
	require.NoError(t, err)

	assert.True(t, result.Skipped)
	assert.Equal(t, SkipReasonRowLock, result.SkipReason)
	assert.Empty(t, f.wallets.merchantCredits)
}

func TestSettleUnknownOrder(t *testing.T) {
	f := newSettleFixture(t, nil, nil)

	_, err := f.svc.Settle(context.Background(), uuid.New(), nil)
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestSettleRejectsIneligibleOrder(t *testing.T) {
	driver := &models.Driver{ID: uuid.New(), Active: true}
	order := paidDeliveryOrder(driver.ID)
	order.Status = enums.OrderStatusProcessing
	f := newSettleFixture(t, order, driver)

	_, err := f.svc.Settle(context.Background(), order.ID, nil)
	assert.ErrorIs(t, err, ErrOrderNotEligible)
	assert.Empty(t, f.wallets.merchantCredits)
}

func TestSettleRequiresPaymentRecord(t *testing.T) {
	driver := &models.Driver{ID: uuid.New(), Active: true}
	order := paidDeliveryOrder(driver.ID)
	f := newSettleFixture(t, order, driver)
	f.ledger.payment = nil

	_, err := f.svc.Settle(context.Background(), order.ID, nil)
	assert.ErrorIs(t, err, ErrPaymentRecordMissing)
}

func TestSettlePOSOrderCreditsGoodsOnly(t *testing.T) {
	order := paidDeliveryOrder(uuid.New())
	order.DriverID = nil
	order.DeliveryAddress = models.POSDeliveryAddress
	f := newSettleFixture(t, order, nil)

	// a stale delivery row from before the order was flagged POS
	f.ledger.rows = append(f.ledger.rows, &models.LedgerTransaction{
		ID:              uuid.New(),
		OrderID:         order.ID,
		TransactionType: enums.TransactionTypeDeliveryPay,
		Status:          enums.TransactionStatusPending,
		Amount:          dec("150.00"),
	})

	result, err := f.svc.Settle(context.Background(), order.ID, nil)
	require.NoError(t, err)

	assert.True(t, result.IsPOSOrder)
	assert.True(t, result.MerchantCredited)
	assert.False(t, result.DriverCredited)
	assert.EqualValues(t, 1, f.ledger.cancelled)
	require.Len(t, f.wallets.merchantCredits, 1)
	assert.True(t, f.wallets.merchantCredits[0].Equal(dec("1000.00")))
	assert.True(t, f.store.settled)

	// second run short-circuits on the settlement stamp
	result, err = f.svc.Settle(context.Background(), order.ID, nil)
	require.NoError(t, err)
	assert.True(t, result.AlreadyCredited)
	assert.Len(t, f.wallets.merchantCredits, 1)
}

func TestSettleCashOrderSkipsDriverWallet(t *testing.T) {
	driver := &models.Driver{ID: uuid.New(), Active: true}
	order := paidDeliveryOrder(driver.ID)
	order.PaymentMethod = enums.PaymentMethodCash
	order.PaymentProvider = enums.PaymentProviderCashInHand
	f := newSettleFixture(t, order, driver)
	notifier := &captureNotifier{}

	result, err := f.svc.Settle(context.Background(), order.ID, notifier)
	require.NoError(t, err)

	assert.True(t, result.MerchantCredited)
	assert.False(t, result.DriverCredited)
	// the driver kept the cash, so the merchant gets items plus the full fee
	require.Len(t, f.wallets.merchantCredits, 1)
	assert.True(t, f.wallets.merchantCredits[0].Equal(dec("1150.00")))
	assert.True(t, result.MerchantDeliveryAmount.Equal(dec("150.00")))
	assert.Empty(t, f.wallets.deliveryCredits)
	assert.Empty(t, f.wallets.tipCredits)
	assert.Empty(t, notifier.events)
	assert.True(t, f.store.settled)
}

func TestSettleCashOrderMerchantKeepsFullFee(t *testing.T) {
	driver := &models.Driver{ID: uuid.New(), Active: true}
	order := paidDeliveryOrder(driver.ID)
	order.PaymentMethod = enums.PaymentMethodCash
	order.PaymentProvider = ""
	order.TotalAmount = dec("570.00")
	order.DeliveryFee = dec("50.00")
	order.TipAmount = dec("20.00")
	order.Items = []models.OrderItem{
		{OrderID: order.ID, Name: "whisky", Quantity: 1, UnitPrice: dec("500.00"), Total: dec("500.00")},
	}
	f := newSettleFixture(t, order, driver)

	result, err := f.svc.Settle(context.Background(), order.ID, nil)
	require.NoError(t, err)

	// fee 50 with pay configured at 30: the pay is zeroed on cash, not
	// carved out of the merchant share
	require.Len(t, f.wallets.merchantCredits, 1)
	assert.True(t, f.wallets.merchantCredits[0].Equal(dec("550.00")))
	assert.True(t, result.MerchantDeliveryAmount.Equal(dec("50.00")))
	assert.True(t, result.DriverPayAmount.Equal(dec("30.00")))
	assert.Empty(t, f.wallets.deliveryCredits)

	merchantRow, err := f.ledger.FindDeliveryPay(context.Background(), order.ID, nil)
	require.NoError(t, err)
	require.NotNil(t, merchantRow)
	assert.True(t, merchantRow.Amount.Equal(dec("50.00")))
}

func TestSettleInactiveDriverGetsNothing(t *testing.T) {
	driver := &models.Driver{ID: uuid.New(), Active: false}
	order := paidDeliveryOrder(driver.ID)
	f := newSettleFixture(t, order, driver)

	result, err := f.svc.Settle(context.Background(), order.ID, nil)
	require.NoError(t, err)

	assert.True(t, result.MerchantCredited)
	assert.False(t, result.DriverCredited)
	assert.Empty(t, f.wallets.deliveryCredits)
}

func TestSettleAbsorbsDriverCreditFailure(t *testing.T) {
	driver := &models.Driver{ID: uuid.New(), Active: true}
	order := paidDeliveryOrder(driver.ID)
	f := newSettleFixture(t, order, driver)
	f.wallets.deliveryCreditErr = errors.New("wallet row gone")
	notifier := &captureNotifier{}

	result, err := f.svc.Settle(context.Background(), order.ID, notifier)
	require.NoError(t, err)

	assert.True(t, result.MerchantCredited)
	assert.NotEmpty(t, result.DriverCreditError)
	assert.Empty(t, notifier.events)
	// settlement stamp withheld so a retry repairs the driver side
	assert.False(t, f.store.settled)
	require.Len(t, f.wallets.merchantCredits, 1)
}

func TestSettleRetryRepairsDriverSideOnly(t *testing.T) {
	driver := &models.Driver{ID: uuid.New(), Active: true}
	order := paidDeliveryOrder(driver.ID)
	f := newSettleFixture(t, order, driver)
	f.wallets.deliveryCreditErr = errors.New("wallet row gone")

	_, err := f.svc.Settle(context.Background(), order.ID, nil)
	require.NoError(t, err)

	// the transient failure clears and the retry finishes the job
	f.wallets.deliveryCreditErr = nil

	result, err := f.svc.Settle(context.Background(), order.ID, nil)
	require.NoError(t, err)

	assert.False(t, result.MerchantCredited, "merchant must not be credited twice")
	assert.True(t, result.DriverCredited)
	require.Len(t, f.wallets.merchantCredits, 1)
	require.Len(t, f.wallets.deliveryCredits, 1)
	assert.True(t, f.store.settled)
}
