package domain

import (
	"bytes"
	"context"
	"time"

	"github.com/google/uuid"
)

type RequestStatus string

const (
	StatusInterested RequestStatus = "interested"
	StatusIgnored    RequestStatus = "ignored"
	StatusAccepted   RequestStatus = "accepted"
	StatusRejected   RequestStatus = "rejected"
)

// IsIntent reports whether a sender may create a request with this status
func (s RequestStatus) IsIntent() bool {
	return s == StatusInterested || s == StatusIgnored
}

// IsDecision reports whether a receiver may review a request into this status
func (s RequestStatus) IsDecision() bool {
	return s == StatusAccepted || s == StatusRejected
}

// ConnectionRequest is a directed edge between two users. Accepted requests
// are the connections; there is no separate connection record.
type ConnectionRequest struct {
	ID         uuid.UUID     `json:"_id"`
	FromUserID uuid.UUID     `json:"fromUserId"`
	ToUserID   uuid.UUID     `json:"toUserId"`
	Status     RequestStatus `json:"status"`
	CreatedAt  time.Time     `json:"createdAt"`
	UpdatedAt  time.Time     `json:"updatedAt"`
}

// Involves reports whether userID is either participant
func (c *ConnectionRequest) Involves(userID uuid.UUID) bool {
	return c.FromUserID == userID || c.ToUserID == userID
}

// OtherParticipant returns the participant that is not userID
func (c *ConnectionRequest) OtherParticipant(userID uuid.UUID) uuid.UUID {
	if c.FromUserID == userID {
		return c.ToUserID
	}
	return c.FromUserID
}

// PairKey identifies the unordered pair {a, b}. Stores index it uniquely so
// only one request can ever exist per pair.
func PairKey(a, b uuid.UUID) string {
	if bytes.Compare(a[:], b[:]) > 0 {
		a, b = b, a
	}
	return a.String() + ":" + b.String()
}

// ReceivedRequest is a pending request joined with its sender's profile
type ReceivedRequest struct {
	ID        uuid.UUID     `json:"_id"`
	From      *UserSummary  `json:"fromUserId"`
	ToUserID  uuid.UUID     `json:"toUserId"`
	Status    RequestStatus `json:"status"`
	CreatedAt time.Time     `json:"createdAt"`
}

// ConnectionRepository defines the persistence operations on connection requests
type ConnectionRepository interface {
	// CreateConnectionRequest inserts req. It returns ErrDuplicateRequest
	// when any request already exists for the unordered pair.
	CreateConnectionRequest(ctx context.Context, req *ConnectionRequest) error
	GetConnectionRequest(ctx context.Context, id uuid.UUID) (*ConnectionRequest, error)
	// TransitionConnectionRequest sets status to `to` only if the request
	// is addressed to reviewer and currently has status `from`. It returns
	// ErrInvalidState when the guard does not match.
	TransitionConnectionRequest(ctx context.Context, id, reviewer uuid.UUID, from, to RequestStatus) (*ConnectionRequest, error)
	ListReceivedRequests(ctx context.Context, userID uuid.UUID, status RequestStatus) ([]*ConnectionRequest, error)
	ListConnectionsByStatus(ctx context.Context, userID uuid.UUID, status RequestStatus) ([]*ConnectionRequest, error)
	// RelatedUserIDs returns every user sharing a request with userID, in
	// either direction and any status.
	RelatedUserIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
}
