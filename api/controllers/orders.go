package controllers

import (
	"net/http"
	"time"

	"github.com/dialadrink/backend/api/responses"
	"github.com/dialadrink/backend/api/validators"
	"github.com/dialadrink/backend/internal/orders"
	"github.com/dialadrink/backend/pkg/db/models"
	"github.com/dialadrink/backend/pkg/enums"
	pkgerrors "github.com/dialadrink/backend/pkg/errors"
	"github.com/dialadrink/backend/pkg/logger"
)

type orderItemView struct {
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unit_price"`
	Total     string `json:"total"`
}

type orderView struct {
	ID              string          `json:"id"`
	OrderNumber     int64           `json:"order_number"`
	CustomerName    string          `json:"customer_name"`
	Status          string          `json:"status"`
	PaymentStatus   string          `json:"payment_status"`
	PaymentMethod   string          `json:"payment_method"`
	PaymentProvider string          `json:"payment_provider,omitempty"`
	TotalAmount     string          `json:"total_amount"`
	DeliveryFee     string          `json:"delivery_fee"`
	TipAmount       string          `json:"tip_amount"`
	DriverPayAmount *string         `json:"driver_pay_amount,omitempty"`
	DriverID        *string         `json:"driver_id,omitempty"`
	DeliveryAddress string          `json:"delivery_address"`
	IsPOS           bool            `json:"is_pos"`
	Items           []orderItemView `json:"items"`
	CompletedAt     *time.Time      `json:"completed_at,omitempty"`
	SettledAt       *time.Time      `json:"settled_at,omitempty"`
}

func newOrderView(order *models.Order) orderView {
	view := orderView{
		ID:              order.ID.String(),
		OrderNumber:     order.OrderNumber,
		CustomerName:    order.CustomerName,
		Status:          string(order.Status),
		PaymentStatus:   string(order.PaymentStatus),
		PaymentMethod:   string(order.PaymentMethod),
		PaymentProvider: string(order.PaymentProvider),
		TotalAmount:     order.TotalAmount.StringFixed(2),
		DeliveryFee:     order.DeliveryFee.StringFixed(2),
		TipAmount:       order.TipAmount.StringFixed(2),
		DeliveryAddress: order.DeliveryAddress,
		IsPOS:           order.IsPOS(),
		CompletedAt:     order.CompletedAt,
		SettledAt:       order.SettledAt,
		Items:           make([]orderItemView, 0, len(order.Items)),
	}
	if order.DriverPayAmount != nil {
		amount := order.DriverPayAmount.StringFixed(2)
		view.DriverPayAmount = &amount
	}
	if order.DriverID != nil {
		id := order.DriverID.String()
		view.DriverID = &id
	}
	for _, item := range order.Items {
		view.Items = append(view.Items, orderItemView{
			Name:      item.Name,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice.StringFixed(2),
			Total:     item.Total.StringFixed(2),
		})
	}
	return view
}

type orderStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

type paymentStatusRequest struct {
	PaymentStatus   string `json:"payment_status" validate:"required"`
	PaymentProvider string `json:"payment_provider,omitempty"`
}

// OrderGet returns one order with its items.
func OrderGet(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.UUIDParam(r, "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.GetOrder(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrderView(order))
	}
}

// OrderStatusUpdate transitions the order lifecycle. Completing a paid order
// kicks off settlement in the background.
func OrderStatusUpdate(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.UUIDParam(r, "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body orderStatusRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status, parseErr := enums.ParseOrderStatus(body.Status)
		if parseErr != nil {
			err := pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "unknown order status").
				WithDetails(map[string]string{"status": body.Status})
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.UpdateStatus(r.Context(), orderID, status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrderView(order))
	}
}

// OrderPaymentStatusUpdate transitions the payment lifecycle. Marking a
// completed order paid kicks off settlement in the background.
func OrderPaymentStatusUpdate(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.UUIDParam(r, "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body paymentStatusRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status, parseErr := enums.ParsePaymentStatus(body.PaymentStatus)
		if parseErr != nil {
			err := pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "unknown payment status").
				WithDetails(map[string]string{"payment_status": body.PaymentStatus})
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var provider enums.PaymentProvider
		if body.PaymentProvider != "" {
			parsed, parseErr := enums.ParsePaymentProvider(body.PaymentProvider)
			if parseErr != nil {
				err := pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "unknown payment provider").
					WithDetails(map[string]string{"payment_provider": body.PaymentProvider})
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			provider = parsed
		}

		order, err := svc.UpdatePaymentStatus(r.Context(), orderID, status, provider)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrderView(order))
	}
}
