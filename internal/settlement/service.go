package settlement

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dialadrink/backend/internal/drivers"
	"github.com/dialadrink/backend/internal/ledger"
	"github.com/dialadrink/backend/internal/settings"
	"github.com/dialadrink/backend/internal/wallets"
	"github.com/dialadrink/backend/pkg/db/models"
	"github.com/dialadrink/backend/pkg/enums"
	"github.com/dialadrink/backend/pkg/errors"
	"github.com/dialadrink/backend/pkg/logger"
	"github.com/dialadrink/backend/pkg/metrics"
)

// TxRunner executes a function inside one database transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service settles a completed, paid order exactly once: it splits the money
// between the merchant and driver wallets and records every movement in the
// ledger. Safe to call repeatedly and concurrently for the same order.
type Service interface {
	Settle(ctx context.Context, orderID uuid.UUID, notifier Notifier) (*Result, error)
}

type service struct {
	repo     Repository
	ledger   ledger.Repository
	wallets  wallets.Repository
	settings settings.Repository
	drivers  drivers.Repository
	tx       TxRunner
	guard    Guard
	metrics  *metrics.SettlementMetrics
	logg     *logger.Logger
}

// NewService wires the settlement coordinator.
func NewService(
	repo Repository,
	ledgerRepo ledger.Repository,
	walletsRepo wallets.Repository,
	settingsRepo settings.Repository,
	driversRepo drivers.Repository,
	tx TxRunner,
	guard Guard,
	settlementMetrics *metrics.SettlementMetrics,
	logg *logger.Logger,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("settlement service requires a repository")
	}
	if ledgerRepo == nil {
		return nil, fmt.Errorf("settlement service requires a ledger repository")
	}
	if walletsRepo == nil {
		return nil, fmt.Errorf("settlement service requires a wallets repository")
	}
	if settingsRepo == nil {
		return nil, fmt.Errorf("settlement service requires a settings repository")
	}
	if driversRepo == nil {
		return nil, fmt.Errorf("settlement service requires a drivers repository")
	}
	if tx == nil {
		return nil, fmt.Errorf("settlement service requires a transaction runner")
	}
	if guard == nil {
		return nil, fmt.Errorf("settlement service requires a guard")
	}
	if logg == nil {
		return nil, fmt.Errorf("settlement service requires a logger")
	}
	return &service{
		repo:     repo,
		ledger:   ledgerRepo,
		wallets:  walletsRepo,
		settings: settingsRepo,
		drivers:  driversRepo,
		tx:       tx,
		guard:    guard,
		metrics:  settlementMetrics,
		logg:     logg,
	}, nil
}

func (s *service) Settle(ctx context.Context, orderID uuid.UUID, notifier Notifier) (*Result, error) {
	start := time.Now()
	ctx = s.logg.WithOrderID(ctx, orderID.String())

	acquired, err := s.guard.Acquire(ctx, orderID)
	if err != nil {
		s.metrics.ObserveRun(metrics.OutcomeFailed, time.Since(start))
		return nil, errors.Wrap(errors.CodeDependency, err, "acquiring settlement guard")
	}
	if !acquired {
		s.logg.Info(ctx, "settlement already in flight, skipping")
		s.metrics.ObserveRun(metrics.OutcomeSkipped, time.Since(start))
		return &Result{OrderID: orderID, Skipped: true, SkipReason: SkipReasonInFlight}, nil
	}
	defer s.guard.Release(ctx, orderID)

	var (
		result *Result
		event  *DriverCreditedEvent
	)
	txErr := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		result, event, err = s.settleInTx(ctx, tx, orderID)
		return err
	})
	if txErr != nil {
		s.metrics.ObserveRun(metrics.OutcomeFailed, time.Since(start))
		return nil, txErr
	}

	s.observe(ctx, result, time.Since(start))

	if notifier != nil && event != nil {
		notifier.DriverCredited(ctx, *event)
	}
	return result, nil
}

// settleInTx runs the settlement steps under the advisory and row locks.
// Everything it writes commits or rolls back atomically with the caller's
// transaction.
func (s *service) settleInTx(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) (*Result, *DriverCreditedEvent, error) {
	repo := s.repo.WithTx(tx)
	ledgerRepo := s.ledger.WithTx(tx)
	walletsRepo := s.wallets.WithTx(tx)

	locked, err := repo.AcquireOrderLock(ctx, orderID)
	if err != nil {
		return nil, nil, errors.Wrap(errors.CodeInternal, err, "acquiring order settlement lock")
	}
	if !locked {
		s.logg.Info(ctx, "order advisory lock held elsewhere, skipping")
		return &Result{OrderID: orderID, Skipped: true, SkipReason: SkipReasonRowLock}, nil, nil
	}

	order, err := repo.FindOrderForUpdate(ctx, orderID)
	if err != nil {
		return nil, nil, errors.Wrap(errors.CodeInternal, err, "loading order for settlement")
	}
	if order == nil {
		return nil, nil, ErrOrderNotFound
	}

	// The driver is loaded in a second query rather than a join so a missing
	// or deactivated driver degrades to "no driver side" instead of failing
	// the whole settlement.
	var driver *models.Driver
	if order.DriverID != nil {
		driver, err = s.drivers.WithTx(tx).FindByID(ctx, *order.DriverID)
		if err != nil {
			return nil, nil, errors.Wrap(errors.CodeInternal, err, "loading order driver")
		}
	}

	cfg, err := s.settings.WithTx(tx).DriverPayConfig(ctx)
	if err != nil {
		return nil, nil, errors.Wrap(errors.CodeInternal, err, "loading driver pay config")
	}

	breakdown := ResolveBreakdown(order)
	split := ComputeSplit(order, breakdown, cfg)

	result := &Result{
		OrderID:                order.ID,
		OrderNumber:            order.OrderNumber,
		ItemsTotal:             breakdown.ItemsTotal,
		DeliveryFee:            breakdown.DeliveryFee,
		MerchantDeliveryAmount: split.EffectiveMerchantDelivery,
		DriverPayAmount:        split.DriverPayAmount,
		TipAmount:              split.TipAmount,
		IsPOSOrder:             order.IsPOS(),
	}

	driverApplies := driver.CanDeliver() && payable(split.EffectiveDriverPay)
	tipApplies := driver.CanDeliver() && payable(split.EffectiveTip)

	// Completeness check: distinguish "already fully settled" from
	// "partially settled" so a retry repairs the missing side without
	// double-crediting the finished one.
	var merchantRow, driverRow, tipRow *models.LedgerTransaction
	if order.IsPOS() {
		if order.SettledAt != nil {
			result.AlreadyCredited = true
			return result, nil, nil
		}
	} else {
		merchantRow, err = ledgerRepo.FindDeliveryPay(ctx, order.ID, nil)
		if err != nil {
			return nil, nil, errors.Wrap(errors.CodeInternal, err, "loading merchant delivery row")
		}
		if driverApplies {
			driverRow, err = ledgerRepo.FindDeliveryPay(ctx, order.ID, order.DriverID)
			if err != nil {
				return nil, nil, errors.Wrap(errors.CodeInternal, err, "loading driver delivery row")
			}
		}
		if tipApplies {
			tipRow, err = ledgerRepo.FindTip(ctx, order.ID)
			if err != nil {
				return nil, nil, errors.Wrap(errors.CodeInternal, err, "loading tip row")
			}
		}

		merchantDone := merchantRow.FullyCredited()
		driverDone := !driverApplies || driverRow.FullyCredited()
		tipDone := !tipApplies || tipRow.FullyCredited()
		if merchantDone && driverDone && tipDone {
			result.AlreadyCredited = true
			return result, nil, nil
		}
	}

	// Re-validate under the lock: the order must still be completed and paid.
	if order.Status != enums.OrderStatusCompleted || order.PaymentStatus != enums.PaymentStatusPaid {
		return nil, nil, ErrOrderNotEligible
	}

	if order.IsPOS() {
		if err := s.settlePOS(ctx, tx, order, breakdown, result); err != nil {
			return nil, nil, err
		}
		return result, nil, nil
	}

	payment, err := ledgerRepo.LatestCompletedPayment(ctx, order.ID)
	if err != nil {
		return nil, nil, errors.Wrap(errors.CodeInternal, err, "loading payment transaction")
	}
	if payment == nil {
		return nil, nil, ErrPaymentRecordMissing
	}

	if !merchantRow.FullyCredited() {
		merchantTxn := &models.LedgerTransaction{
			OrderID:           order.ID,
			TransactionType:   enums.TransactionTypeDeliveryPay,
			Status:            enums.TransactionStatusCompleted,
			PaymentStatus:     enums.TransactionPaymentStatusPaid,
			Amount:            split.EffectiveMerchantDelivery,
			ReceiptNumber:     payment.ReceiptNumber,
			CheckoutRequestID: payment.CheckoutRequestID,
			MerchantRequestID: payment.MerchantRequestID,
			PhoneNumber:       payment.PhoneNumber,
			Notes:             "merchant share of delivery fee",
		}
		if err := ledgerRepo.Upsert(ctx, merchantTxn); err != nil {
			return nil, nil, errors.Wrap(errors.CodeInternal, err, "writing merchant delivery row")
		}
		if _, err := walletsRepo.CreditMerchant(ctx, breakdown.ItemsTotal.Add(split.EffectiveMerchantDelivery)); err != nil {
			return nil, nil, errors.Wrap(errors.CodeInternal, err, "crediting merchant wallet")
		}
		result.MerchantCredited = true
	}

	var event *DriverCreditedEvent
	if driverApplies || tipApplies {
		event, err = s.creditDriver(ctx, tx, order, driver, split, payment, driverRow, tipRow, result)
		if err != nil {
			// Absorbed: the merchant credit still commits and a later run
			// repairs the driver side.
			s.logg.Error(ctx, "driver credit failed, committing merchant side", err)
			result.DriverCreditError = err.Error()
			event = nil
		}
	}

	if result.DriverCreditError == "" {
		if err := repo.MarkSettled(ctx, order.ID); err != nil {
			return nil, nil, errors.Wrap(errors.CodeInternal, err, "marking order settled")
		}
	}
	return result, event, nil
}

// settlePOS handles walk-in counter orders: no delivery happened, so any
// delivery pay rows are cancelled and the merchant keeps the goods total.
func (s *service) settlePOS(ctx context.Context, tx *gorm.DB, order *models.Order, breakdown Breakdown, result *Result) error {
	ledgerRepo := s.ledger.WithTx(tx)
	walletsRepo := s.wallets.WithTx(tx)
	repo := s.repo.WithTx(tx)

	cancelled, err := ledgerRepo.CancelDeliveryPay(ctx, order.ID, "cancelled: point-of-sale order, no delivery")
	if err != nil {
		return errors.Wrap(errors.CodeInternal, err, "cancelling delivery rows for pos order")
	}
	if cancelled > 0 {
		s.logg.Info(ctx, "cancelled stale delivery pay rows on pos order")
	}

	if _, err := walletsRepo.CreditMerchant(ctx, breakdown.ItemsTotal); err != nil {
		return errors.Wrap(errors.CodeInternal, err, "crediting merchant wallet for pos order")
	}
	result.MerchantCredited = true

	if err := repo.MarkSettled(ctx, order.ID); err != nil {
		return errors.Wrap(errors.CodeInternal, err, "marking pos order settled")
	}
	return nil
}

// creditDriver moves the delivery pay and tip into the driver wallet,
// skipping any side a previous run already landed. Ledger rows carry the
// wallet id so a half-finished credit is detectable.
func (s *service) creditDriver(
	ctx context.Context,
	tx *gorm.DB,
	order *models.Order,
	driver *models.Driver,
	split Split,
	payment *models.LedgerTransaction,
	driverRow, tipRow *models.LedgerTransaction,
	result *Result,
) (*DriverCreditedEvent, error) {
	ctx = s.logg.WithDriverID(ctx, driver.ID.String())
	ledgerRepo := s.ledger.WithTx(tx)
	walletsRepo := s.wallets.WithTx(tx)

	wallet, err := walletsRepo.GetOrCreateDriverWallet(ctx, driver.ID)
	if err != nil {
		return nil, fmt.Errorf("loading driver wallet: %w", err)
	}

	event := &DriverCreditedEvent{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		Driver:      *driver,
	}

	if payable(split.EffectiveDriverPay) && !driverRow.FullyCredited() {
		// The wallet id is stamped only after the credit lands, so a row
		// committed around an absorbed failure still reads as incomplete
		// and the next run finishes it.
		txn := &models.LedgerTransaction{
			OrderID:           order.ID,
			TransactionType:   enums.TransactionTypeDeliveryPay,
			Status:            enums.TransactionStatusCompleted,
			PaymentStatus:     enums.TransactionPaymentStatusPaid,
			Amount:            split.EffectiveDriverPay,
			DriverID:          &driver.ID,
			ReceiptNumber:     payment.ReceiptNumber,
			CheckoutRequestID: payment.CheckoutRequestID,
			MerchantRequestID: payment.MerchantRequestID,
			PhoneNumber:       payment.PhoneNumber,
			Notes:             "driver delivery pay",
		}
		if err := ledgerRepo.Upsert(ctx, txn); err != nil {
			return nil, fmt.Errorf("writing driver delivery row: %w", err)
		}
		wallet, err = walletsRepo.CreditDriverDelivery(ctx, driver.ID, split.EffectiveDriverPay)
		if err != nil {
			return nil, fmt.Errorf("crediting driver delivery pay: %w", err)
		}
		txn.DriverWalletID = &wallet.ID
		if err := ledgerRepo.Upsert(ctx, txn); err != nil {
			return nil, fmt.Errorf("finalizing driver delivery row: %w", err)
		}
		result.DriverCredited = true
		event.DeliveryPay = split.EffectiveDriverPay
	}

	if payable(split.EffectiveTip) && !tipRow.FullyCredited() {
		txn := &models.LedgerTransaction{
			OrderID:           order.ID,
			TransactionType:   enums.TransactionTypeTip,
			Status:            enums.TransactionStatusCompleted,
			PaymentStatus:     enums.TransactionPaymentStatusPaid,
			Amount:            split.EffectiveTip,
			DriverID:          &driver.ID,
			ReceiptNumber:     payment.ReceiptNumber,
			CheckoutRequestID: payment.CheckoutRequestID,
			MerchantRequestID: payment.MerchantRequestID,
			PhoneNumber:       payment.PhoneNumber,
			Notes:             "customer tip",
		}
		if err := ledgerRepo.Upsert(ctx, txn); err != nil {
			return nil, fmt.Errorf("writing tip row: %w", err)
		}
		wallet, err = walletsRepo.CreditDriverTip(ctx, driver.ID, split.EffectiveTip)
		if err != nil {
			return nil, fmt.Errorf("crediting driver tip: %w", err)
		}
		txn.DriverWalletID = &wallet.ID
		if err := ledgerRepo.Upsert(ctx, txn); err != nil {
			return nil, fmt.Errorf("finalizing tip row: %w", err)
		}
		result.DriverCredited = true
		event.Tip = split.EffectiveTip
	}

	if !result.DriverCredited {
		return nil, nil
	}
	event.NewBalance = wallet.Balance
	return event, nil
}

func (s *service) observe(ctx context.Context, result *Result, elapsed time.Duration) {
	switch {
	case result.Skipped:
		s.metrics.ObserveRun(metrics.OutcomeSkipped, elapsed)
	case result.AlreadyCredited:
		s.logg.Info(ctx, "order already fully settled")
		s.metrics.ObserveRun(metrics.OutcomeAlreadyCredited, elapsed)
	case result.IsPOSOrder:
		s.logg.Info(ctx, "pos order settled")
		s.metrics.ObserveRun(metrics.OutcomePOS, elapsed)
		s.metrics.AddCredited("merchant", result.ItemsTotal.InexactFloat64())
	default:
		s.logg.Info(ctx, "order settled")
		s.metrics.ObserveRun(metrics.OutcomeSettled, elapsed)
		if result.MerchantCredited {
			s.metrics.AddCredited("merchant", result.ItemsTotal.Add(result.MerchantDeliveryAmount).InexactFloat64())
		}
		if result.DriverCredited {
			s.metrics.AddCredited("driver", result.DriverPayAmount.Add(result.TipAmount).InexactFloat64())
		}
	}
}
