package orders

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/dialadrink/backend/internal/settlement"
	"github.com/dialadrink/backend/pkg/db/models"
	"github.com/dialadrink/backend/pkg/enums"
	"github.com/dialadrink/backend/pkg/errors"
	"github.com/dialadrink/backend/pkg/logger"
)

// ErrOrderNotFound is returned when the order id does not exist.
var ErrOrderNotFound = errors.New(errors.CodeNotFound, "order not found")

// statusTransitions defines the legal order lifecycle. Completed and
// cancelled are terminal.
var statusTransitions = map[enums.OrderStatus][]enums.OrderStatus{
	enums.OrderStatusPending:        {enums.OrderStatusProcessing, enums.OrderStatusOutForDelivery, enums.OrderStatusCompleted, enums.OrderStatusCancelled},
	enums.OrderStatusProcessing:     {enums.OrderStatusOutForDelivery, enums.OrderStatusCompleted, enums.OrderStatusCancelled},
	enums.OrderStatusOutForDelivery: {enums.OrderStatusCompleted, enums.OrderStatusCancelled},
}

// paymentTransitions defines the legal payment lifecycle. Paid is terminal;
// settlement is the only thing that happens after it.
var paymentTransitions = map[enums.PaymentStatus][]enums.PaymentStatus{
	enums.PaymentStatusUnpaid:  {enums.PaymentStatusPending, enums.PaymentStatusPaid},
	enums.PaymentStatusPending: {enums.PaymentStatusPaid, enums.PaymentStatusUnpaid},
}

// Service drives order lifecycle transitions. Reaching completed+paid, from
// either direction, hands the order to settlement in the background.
type Service interface {
	GetOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	UpdateStatus(ctx context.Context, orderID uuid.UUID, status enums.OrderStatus) (*models.Order, error)
	UpdatePaymentStatus(ctx context.Context, orderID uuid.UUID, status enums.PaymentStatus, provider enums.PaymentProvider) (*models.Order, error)
}

type service struct {
	repo       Repository
	settlement settlement.Service
	notifier   settlement.Notifier
	logg       *logger.Logger
}

// NewService wires the order lifecycle service. The notifier may be nil to
// disable driver notifications.
func NewService(repo Repository, settlementSvc settlement.Service, notifier settlement.Notifier, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders service requires a repository")
	}
	if settlementSvc == nil {
		return nil, fmt.Errorf("orders service requires a settlement service")
	}
	if logg == nil {
		return nil, fmt.Errorf("orders service requires a logger")
	}
	return &service{
		repo:       repo,
		settlement: settlementSvc,
		notifier:   notifier,
		logg:       logg,
	}, nil
}

func (s *service) GetOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "loading order")
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

func (s *service) UpdateStatus(ctx context.Context, orderID uuid.UUID, status enums.OrderStatus) (*models.Order, error) {
	ctx = s.logg.WithOrderID(ctx, orderID.String())

	order, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != status {
		if !transitionAllowed(statusTransitions[order.Status], status) {
			return nil, errors.New(errors.CodeStateConflict,
				fmt.Sprintf("cannot move order from %s to %s", order.Status, status))
		}
		if err := s.repo.UpdateStatus(ctx, orderID, status); err != nil {
			return nil, errors.Wrap(errors.CodeInternal, err, "updating order status")
		}
		order, err = s.GetOrder(ctx, orderID)
		if err != nil {
			return nil, err
		}
		s.logg.Info(ctx, "order status updated")
	}

	s.maybeSettle(ctx, order)
	return order, nil
}

func (s *service) UpdatePaymentStatus(ctx context.Context, orderID uuid.UUID, status enums.PaymentStatus, provider enums.PaymentProvider) (*models.Order, error) {
	ctx = s.logg.WithOrderID(ctx, orderID.String())

	order, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.PaymentStatus != status {
		if !transitionAllowed(paymentTransitions[order.PaymentStatus], status) {
			return nil, errors.New(errors.CodeStateConflict,
				fmt.Sprintf("cannot move payment from %s to %s", order.PaymentStatus, status))
		}
		if err := s.repo.UpdatePaymentStatus(ctx, orderID, status, provider); err != nil {
			return nil, errors.Wrap(errors.CodeInternal, err, "updating payment status")
		}
		order, err = s.GetOrder(ctx, orderID)
		if err != nil {
			return nil, err
		}
		s.logg.Info(ctx, "order payment status updated")
	}

	s.maybeSettle(ctx, order)
	return order, nil
}

// maybeSettle fires settlement in the background once the order is both
// completed and paid. The transition that got it there never fails on a
// settlement problem; settlement retries are cheap and idempotent.
func (s *service) maybeSettle(ctx context.Context, order *models.Order) {
	if order.Status != enums.OrderStatusCompleted || order.PaymentStatus != enums.PaymentStatusPaid {
		return
	}
	if order.SettledAt != nil {
		return
	}

	bgCtx := context.WithoutCancel(ctx)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				s.logg.Error(bgCtx, "settlement panicked", fmt.Errorf("%v", r))
			}
		}()
		if _, err := s.settlement.Settle(bgCtx, order.ID, s.notifier); err != nil {
			s.logg.Error(bgCtx, "background settlement failed", err)
		}
	}()
}

func transitionAllowed[T comparable](allowed []T, next T) bool {
	for _, candidate := range allowed {
		if candidate == next {
			return true
		}
	}
	return false
}
