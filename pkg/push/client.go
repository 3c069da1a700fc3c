package push

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go"
	"firebase.google.com/go/messaging"
	"google.golang.org/api/option"

	"github.com/dialadrink/backend/pkg/config"
	"github.com/dialadrink/backend/pkg/logger"
)

// Sender delivers a push notification to a single device token.
type Sender interface {
	Send(ctx context.Context, token, title, body string, data map[string]string) error
}

// Client wraps Firebase Cloud Messaging. A nil Client is a valid no-op
// sender, so push stays optional in every environment.
type Client struct {
	messaging *messaging.Client
	logg      *logger.Logger
}

// New initializes the FCM client from the configured credentials. Returns
// (nil, nil) when push is not configured.
func New(ctx context.Context, cfg config.FCMConfig, logg *logger.Logger) (*Client, error) {
	if !cfg.Enabled() {
		return nil, nil
	}

	var opts []option.ClientOption
	if cfg.CredentialsJSON != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(cfg.CredentialsJSON)))
	} else {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	app, err := firebase.NewApp(ctx, nil, opts...)
	if err != nil {
		return nil, fmt.Errorf("initializing firebase app: %w", err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("getting messaging client: %w", err)
	}

	if logg != nil {
		logg.Info(ctx, "fcm client initialized")
	}
	return &Client{messaging: client, logg: logg}, nil
}

// Send pushes one message to the given device token.
func (c *Client) Send(ctx context.Context, token, title, body string, data map[string]string) error {
	if c == nil || c.messaging == nil || token == "" {
		return nil
	}

	message := &messaging.Message{
		Token: token,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: data,
	}

	if _, err := c.messaging.Send(ctx, message); err != nil {
		return fmt.Errorf("send push: %w", err)
	}
	return nil
}
