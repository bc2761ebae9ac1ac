package fcm

import (
	"context"
	"fmt"
	"strings"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/devmatch/backend/internal/domain"
)

// UserLookup resolves the device tokens registered for a user
type UserLookup interface {
	GetUserByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
}

// Client delivers connection events as push notifications
type Client struct {
	msgClient *messaging.Client
	users     UserLookup
	logger    *zap.Logger
}

func NewClient(ctx context.Context, logger *zap.Logger, credentialsFile string, users UserLookup) (*Client, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	} else {
		logger.Warn("No Firebase credentials file provided. FCM will utilize environment variable GOOGLE_APPLICATION_CREDENTIALS or default credentials.")
	}

	app, err := firebase.NewApp(ctx, nil, opts...)
	if err != nil {
		return nil, fmt.Errorf("error initializing firebase app: %w", err)
	}

	msgClient, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting messaging client: %w", err)
	}

	return &Client{
		msgClient: msgClient,
		users:     users,
		logger:    logger,
	}, nil
}

// Notify pushes event to every device registered by userID. Users without
// devices are skipped.
func (c *Client) Notify(ctx context.Context, userID uuid.UUID, event domain.Event) error {
	user, err := c.users.GetUserByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("lookup device tokens: %w", err)
	}
	if len(user.DeviceTokens) == 0 {
		return nil
	}

	message := buildMessage(user.DeviceTokens, event)
	resp, err := c.msgClient.SendEachForMulticast(ctx, message)
	if err != nil {
		c.logger.Error("Failed to send FCM message", zap.String("user_id", userID.String()), zap.Error(err))
		return err
	}
	if resp.FailureCount > 0 {
		c.logger.Warn("Some FCM messages were not delivered",
			zap.String("user_id", userID.String()),
			zap.Int("failed", resp.FailureCount),
			zap.Int("sent", resp.SuccessCount),
		)
	}
	return nil
}

func buildMessage(tokens []string, event domain.Event) *messaging.MulticastMessage {
	name := "Someone"
	if event.Actor != nil {
		if full := strings.TrimSpace(event.Actor.FirstName + " " + event.Actor.LastName); full != "" {
			name = full
		}
	}

	var title, body string
	switch event.Type {
	case domain.EventRequestReceived:
		title = "New connection request"
		body = name + " is interested in connecting with you"
	case domain.EventRequestAccepted:
		title = "Request accepted"
		body = name + " accepted your connection request"
	default:
		title = "DevMatch"
		body = "You have a new update"
	}

	data := map[string]string{
		"type":      string(event.Type),
		"requestId": event.RequestID.String(),
	}
	if event.Actor != nil {
		data["actorId"] = event.Actor.ID.String()
	}

	return &messaging.MulticastMessage{
		Tokens: tokens,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: data,
	}
}
