package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

type EventType string

const (
	EventRequestReceived EventType = "connection.request.received"
	EventRequestAccepted EventType = "connection.request.accepted"
)

// Event describes a connection lifecycle change delivered to one user
type Event struct {
	Type      EventType    `json:"type"`
	RequestID uuid.UUID    `json:"requestId"`
	Actor     *UserSummary `json:"actor,omitempty"`
	CreatedAt time.Time    `json:"createdAt"`
}

// Notifier delivers events to a user over some channel (push, websocket)
type Notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, event Event) error
}

// MultiNotifier fans an event out to every notifier concurrently and
// returns the first error.
type MultiNotifier []Notifier

func (m MultiNotifier) Notify(ctx context.Context, userID uuid.UUID, event Event) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, n := range m {
		if n == nil {
			continue
		}
		n := n
		g.Go(func() error {
			return n.Notify(ctx, userID, event)
		})
	}
	return g.Wait()
}

// NopNotifier drops every event
type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, uuid.UUID, Event) error { return nil }
