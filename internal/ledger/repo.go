package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dialadrink/backend/pkg/db/models"
	"github.com/dialadrink/backend/pkg/enums"
)

// zeroUUID stands in for the null driver side inside the partial unique
// index; it must match the COALESCE default in the migration.
const zeroUUID = "00000000-0000-0000-0000-000000000000"

// Repository manages persistence for ledger transactions. Lookups that miss
// return (nil, nil) so callers can distinguish "no row" without matching
// driver errors.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindDeliveryPay(ctx context.Context, orderID uuid.UUID, driverID *uuid.UUID) (*models.LedgerTransaction, error)
	FindTip(ctx context.Context, orderID uuid.UUID) (*models.LedgerTransaction, error)
	LatestCompletedPayment(ctx context.Context, orderID uuid.UUID) (*models.LedgerTransaction, error)
	Upsert(ctx context.Context, txn *models.LedgerTransaction) error
	CancelDeliveryPay(ctx context.Context, orderID uuid.UUID, note string) (int64, error)
	ListByOrderID(ctx context.Context, orderID uuid.UUID) ([]models.LedgerTransaction, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// FindDeliveryPay returns the live delivery_pay row for one side of the
// split: a nil driverID selects the merchant-side entry, a non-nil driverID
// selects that driver's entry.
func (r *repository) FindDeliveryPay(ctx context.Context, orderID uuid.UUID, driverID *uuid.UUID) (*models.LedgerTransaction, error) {
	query := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Where("transaction_type = ?", enums.TransactionTypeDeliveryPay).
		Where("status <> ?", enums.TransactionStatusCancelled)
	if driverID == nil {
		query = query.Where("driver_id IS NULL")
	} else {
		query = query.Where("driver_id = ?", *driverID)
	}

	var txn models.LedgerTransaction
	if err := query.First(&txn).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &txn, nil
}

func (r *repository) FindTip(ctx context.Context, orderID uuid.UUID) (*models.LedgerTransaction, error) {
	var txn models.LedgerTransaction
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Where("transaction_type = ?", enums.TransactionTypeTip).
		Where("status <> ?", enums.TransactionStatusCancelled).
		First(&txn).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &txn, nil
}

// LatestCompletedPayment returns the most recent completed payment-type
// transaction whose payment metadata settlement copies into new ledger rows.
func (r *repository) LatestCompletedPayment(ctx context.Context, orderID uuid.UUID) (*models.LedgerTransaction, error) {
	var txn models.LedgerTransaction
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Where("transaction_type = ?", enums.TransactionTypePayment).
		Where("status = ?", enums.TransactionStatusCompleted).
		Order("transaction_date DESC").
		First(&txn).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &txn, nil
}

// upsertSQL targets the partial unique index. The COALESCE default must be a
// literal: index inference matches the conflict target against the index
// expression textually, so a bind parameter there would never match.
var upsertSQL = fmt.Sprintf(`
	INSERT INTO ledger_transactions (
		id, order_id, transaction_type, status, payment_status, amount,
		driver_id, driver_wallet_id, receipt_number, checkout_request_id,
		merchant_request_id, phone_number, notes, transaction_date,
		created_at, updated_at
	)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
	ON CONFLICT (order_id, transaction_type, COALESCE(driver_id, '%s')) WHERE status <> 'cancelled'
	DO UPDATE SET
		status = EXCLUDED.status,
		payment_status = EXCLUDED.payment_status,
		amount = EXCLUDED.amount,
		driver_wallet_id = EXCLUDED.driver_wallet_id,
		receipt_number = EXCLUDED.receipt_number,
		checkout_request_id = EXCLUDED.checkout_request_id,
		merchant_request_id = EXCLUDED.merchant_request_id,
		phone_number = EXCLUDED.phone_number,
		notes = EXCLUDED.notes,
		transaction_date = EXCLUDED.transaction_date,
		updated_at = CURRENT_TIMESTAMP
	RETURNING id
`, zeroUUID)

// Upsert writes the row through the partial unique index in one statement: a
// conflicting live row for the same (order, type, driver side) is updated in
// place instead of duplicated. The row keeps the id of whichever record
// survived.
func (r *repository) Upsert(ctx context.Context, txn *models.LedgerTransaction) error {
	if txn.ID == uuid.Nil {
		txn.ID = uuid.New()
	}
	if txn.TransactionDate.IsZero() {
		txn.TransactionDate = time.Now().UTC()
	}

	row := r.db.WithContext(ctx).Raw(upsertSQL,
		txn.ID, txn.OrderID, txn.TransactionType, txn.Status, txn.PaymentStatus, txn.Amount,
		txn.DriverID, txn.DriverWalletID, txn.ReceiptNumber, txn.CheckoutRequestID,
		txn.MerchantRequestID, txn.PhoneNumber, txn.Notes, txn.TransactionDate,
	)

	var id string
	if err := row.Scan(&id).Error; err != nil {
		return err
	}
	if id != "" {
		parsed, err := uuid.Parse(id)
		if err != nil {
			return fmt.Errorf("parsing upserted ledger id %q: %w", id, err)
		}
		txn.ID = parsed
	}
	return nil
}

// CancelDeliveryPay flips every live delivery_pay row for the order to
// cancelled with a zeroed amount, appending the audit note. Returns the
// number of rows touched.
func (r *repository) CancelDeliveryPay(ctx context.Context, orderID uuid.UUID, note string) (int64, error) {
	res := r.db.WithContext(ctx).Exec(`
		UPDATE ledger_transactions
		SET status = ?,
			payment_status = ?,
			amount = 0,
			notes = CASE WHEN notes = '' OR notes IS NULL THEN ? ELSE notes || ' | ' || ? END,
			updated_at = CURRENT_TIMESTAMP
		WHERE order_id = ?
		  AND transaction_type = ?
		  AND status <> ?
	`,
		enums.TransactionStatusCancelled, enums.TransactionPaymentStatusCancelled,
		note, note,
		orderID, enums.TransactionTypeDeliveryPay, enums.TransactionStatusCancelled,
	)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *repository) ListByOrderID(ctx context.Context, orderID uuid.UUID) ([]models.LedgerTransaction, error) {
	var txns []models.LedgerTransaction
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&txns).Error; err != nil {
		return nil, err
	}
	return txns, nil
}
