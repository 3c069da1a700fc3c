package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/multierr"

	"github.com/dialadrink/backend/internal/settlement"
	"github.com/dialadrink/backend/pkg/logger"
	"github.com/dialadrink/backend/pkg/push"
)

// EventPublisher is the pub/sub surface used to fan out driver events.
type EventPublisher interface {
	Publish(ctx context.Context, channel string, payload any) error
	DriverChannel(driverID string) string
}

// Service fans out post-settlement driver notifications over the driver's
// pub/sub channel and FCM. Delivery is best effort; failures are logged and
// never surfaced to settlement.
type Service struct {
	events EventPublisher
	push   push.Sender
	logg   *logger.Logger
}

// NewService wires the notifier. Both transports are optional; a nil events
// publisher or push sender simply disables that channel.
func NewService(events EventPublisher, sender push.Sender, logg *logger.Logger) (*Service, error) {
	if logg == nil {
		return nil, fmt.Errorf("notify service requires a logger")
	}
	return &Service{events: events, push: sender, logg: logg}, nil
}

type driverCreditedPayload struct {
	Type        string `json:"type"`
	OrderID     string `json:"order_id"`
	OrderNumber int64  `json:"order_number"`
	DeliveryPay string `json:"delivery_pay"`
	Tip         string `json:"tip"`
	NewBalance  string `json:"new_balance"`
}

// DriverCredited tells the driver their wallet moved.
func (s *Service) DriverCredited(ctx context.Context, event settlement.DriverCreditedEvent) {
	ctx = s.logg.WithDriverID(ctx, event.Driver.ID.String())

	var errs error

	if s.events != nil {
		payload, err := json.Marshal(driverCreditedPayload{
			Type:        "driver_credited",
			OrderID:     event.OrderID.String(),
			OrderNumber: event.OrderNumber,
			DeliveryPay: event.DeliveryPay.StringFixed(2),
			Tip:         event.Tip.StringFixed(2),
			NewBalance:  event.NewBalance.StringFixed(2),
		})
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("marshal driver event: %w", err))
		} else {
			channel := s.events.DriverChannel(event.Driver.ID.String())
			if err := s.events.Publish(ctx, channel, payload); err != nil {
				errs = multierr.Append(errs, fmt.Errorf("publish driver event: %w", err))
			}
		}
	}

	if s.push != nil && event.Driver.FCMToken != "" {
		total := event.DeliveryPay.Add(event.Tip)
		title := "Payment received"
		body := fmt.Sprintf("KES %s added to your wallet for order #%d", total.StringFixed(2), event.OrderNumber)
		data := map[string]string{
			"type":     "driver_credited",
			"order_id": event.OrderID.String(),
		}
		if err := s.push.Send(ctx, event.Driver.FCMToken, title, body, data); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("push driver notification: %w", err))
		}
	}

	if errs != nil {
		s.logg.Error(ctx, "driver notification partially failed", errs)
		return
	}
	s.logg.Info(ctx, "driver credited notification sent")
}
