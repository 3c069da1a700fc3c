package controllers

import (
	"net/http"

	"github.com/dialadrink/backend/api/responses"
	"github.com/dialadrink/backend/api/validators"
	"github.com/dialadrink/backend/internal/wallets"
	pkgerrors "github.com/dialadrink/backend/pkg/errors"
	"github.com/dialadrink/backend/pkg/logger"
)

// MerchantWalletGet returns the shop's wallet totals.
func MerchantWalletGet(repo wallets.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		wallet, err := repo.GetMerchantWallet(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading merchant wallet"))
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"balance":       wallet.Balance.StringFixed(2),
			"total_revenue": wallet.TotalRevenue.StringFixed(2),
			"total_orders":  wallet.TotalOrders,
		})
	}
}

// DriverWalletGet returns one driver's wallet totals.
func DriverWalletGet(repo wallets.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		driverID, err := validators.UUIDParam(r, "driverID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		wallet, err := repo.FindDriverWallet(r.Context(), driverID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading driver wallet"))
			return
		}
		if wallet == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "driver wallet not found"))
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"driver_id":                wallet.DriverID.String(),
			"balance":                  wallet.Balance.StringFixed(2),
			"total_tips_received":      wallet.TotalTipsReceived.StringFixed(2),
			"total_tips_count":         wallet.TotalTipsCount,
			"total_delivery_pay":       wallet.TotalDeliveryPay.StringFixed(2),
			"total_delivery_pay_count": wallet.TotalDeliveryPayCount,
		})
	}
}
