package controllers

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dialadrink/backend/api/responses"
	"github.com/dialadrink/backend/api/validators"
	"github.com/dialadrink/backend/internal/ledger"
	"github.com/dialadrink/backend/internal/orders"
	"github.com/dialadrink/backend/internal/payments"
	"github.com/dialadrink/backend/internal/settlement"
	"github.com/dialadrink/backend/pkg/db/models"
	"github.com/dialadrink/backend/pkg/enums"
	pkgerrors "github.com/dialadrink/backend/pkg/errors"
	"github.com/dialadrink/backend/pkg/logger"
)

type verifyPaymentRequest struct {
	Provider      string `json:"provider" validate:"required"`
	Amount        string `json:"amount,omitempty"`
	ReceiptNumber string `json:"receipt_number,omitempty"`
	PhoneNumber   string `json:"phone_number,omitempty"`
	Notes         string `json:"notes,omitempty"`
}

// PaymentVerify records a manually confirmed payment and marks the order
// paid.
func PaymentVerify(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.UUIDParam(r, "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body verifyPaymentRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		provider, parseErr := enums.ParsePaymentProvider(body.Provider)
		if parseErr != nil {
			err := pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "unknown payment provider").
				WithDetails(map[string]string{"provider": body.Provider})
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := payments.VerifyInput{
			Provider:      provider,
			ReceiptNumber: body.ReceiptNumber,
			PhoneNumber:   body.PhoneNumber,
			Notes:         body.Notes,
		}
		if body.Amount != "" {
			amount, parseErr := decimal.NewFromString(body.Amount)
			if parseErr != nil {
				err := pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "invalid amount").
					WithDetails(map[string]string{"amount": "must be a decimal number"})
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			input.Amount = &amount
		}

		order, err := svc.Verify(r.Context(), orderID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrderView(order))
	}
}

// SettlementTrigger runs settlement for an order on demand. Used by staff to
// retry after a partial failure; the run is idempotent.
func SettlementTrigger(svc settlement.Service, notifier settlement.Notifier, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.UUIDParam(r, "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Settle(r.Context(), orderID, notifier)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

type ledgerRowView struct {
	ID              string    `json:"id"`
	TransactionType string    `json:"transaction_type"`
	Status          string    `json:"status"`
	PaymentStatus   string    `json:"payment_status"`
	Amount          string    `json:"amount"`
	DriverID        *string   `json:"driver_id,omitempty"`
	DriverWalletID  *string   `json:"driver_wallet_id,omitempty"`
	ReceiptNumber   string    `json:"receipt_number,omitempty"`
	Notes           string    `json:"notes,omitempty"`
	TransactionDate time.Time `json:"transaction_date"`
}

type settlementView struct {
	Order        orderView       `json:"order"`
	Transactions []ledgerRowView `json:"transactions"`
}

func newLedgerRowView(txn models.LedgerTransaction) ledgerRowView {
	view := ledgerRowView{
		ID:              txn.ID.String(),
		TransactionType: string(txn.TransactionType),
		Status:          string(txn.Status),
		PaymentStatus:   string(txn.PaymentStatus),
		Amount:          txn.Amount.StringFixed(2),
		ReceiptNumber:   txn.ReceiptNumber,
		Notes:           txn.Notes,
		TransactionDate: txn.TransactionDate,
	}
	if txn.DriverID != nil {
		id := txn.DriverID.String()
		view.DriverID = &id
	}
	if txn.DriverWalletID != nil {
		id := txn.DriverWalletID.String()
		view.DriverWalletID = &id
	}
	return view
}

// SettlementView returns the order with every ledger row settlement wrote or
// touched, for staff auditing.
func SettlementView(ordersSvc orders.Service, ledgerRepo ledger.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.UUIDParam(r, "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := ordersSvc.GetOrder(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		txns, err := ledgerRepo.ListByOrderID(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing ledger transactions"))
			return
		}

		view := settlementView{
			Order:        newOrderView(order),
			Transactions: make([]ledgerRowView, 0, len(txns)),
		}
		for _, txn := range txns {
			view.Transactions = append(view.Transactions, newLedgerRowView(txn))
		}
		responses.WriteSuccess(w, view)
	}
}
