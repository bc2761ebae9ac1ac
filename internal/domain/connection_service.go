package domain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/devmatch/backend/internal/metrics"
)

type ConnectionService struct {
	repo     ConnectionRepository
	users    UserRepository
	notifier Notifier
	logger   *zap.Logger
	now      func() time.Time
}

func NewConnectionService(repo ConnectionRepository, users UserRepository, notifier Notifier, logger *zap.Logger) *ConnectionService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &ConnectionService{
		repo:     repo,
		users:    users,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

// SendRequest records fromID's intent towards toID
func (s *ConnectionService) SendRequest(ctx context.Context, fromID, toID uuid.UUID, intent RequestStatus) (*ConnectionRequest, error) {
	req, err := s.sendRequest(ctx, fromID, toID, intent)
	metrics.ConnectionRequestsTotal.WithLabelValues("create", resultLabel(err)).Inc()
	return req, err
}

func (s *ConnectionService) sendRequest(ctx context.Context, fromID, toID uuid.UUID, intent RequestStatus) (*ConnectionRequest, error) {
	if !intent.IsIntent() {
		return nil, invalidInput("status %q is not allowed, expected interested or ignored", intent)
	}
	if fromID == toID {
		return nil, fmt.Errorf("%w: cannot send a request to yourself", ErrInvalidTarget)
	}

	sender, err := s.users.GetUserByID(ctx, fromID)
	if err != nil {
		return nil, err
	}
	if _, err := s.users.GetUserByID(ctx, toID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: user %s does not exist", ErrInvalidTarget, toID)
		}
		return nil, err
	}

	now := s.now().UTC()
	req := &ConnectionRequest{
		ID:         uuid.New(),
		FromUserID: fromID,
		ToUserID:   toID,
		Status:     intent,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	// The store's pair uniqueness makes this insert the duplicate check.
	if err := s.repo.CreateConnectionRequest(ctx, req); err != nil {
		return nil, err
	}

	if intent == StatusInterested {
		s.notify(ctx, toID, Event{
			Type:      EventRequestReceived,
			RequestID: req.ID,
			Actor:     sender.Summary(),
			CreatedAt: now,
		})
	}

	return req, nil
}

// ReviewRequest lets the receiver of an interested request accept or reject it
func (s *ConnectionService) ReviewRequest(ctx context.Context, reviewerID, requestID uuid.UUID, decision RequestStatus) (*ConnectionRequest, error) {
	req, err := s.reviewRequest(ctx, reviewerID, requestID, decision)
	metrics.ConnectionRequestsTotal.WithLabelValues("review", resultLabel(err)).Inc()
	return req, err
}

func (s *ConnectionService) reviewRequest(ctx context.Context, reviewerID, requestID uuid.UUID, decision RequestStatus) (*ConnectionRequest, error) {
	if !decision.IsDecision() {
		return nil, invalidInput("status %q is not allowed, expected accepted or rejected", decision)
	}

	existing, err := s.repo.GetConnectionRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}

	if existing.ToUserID != reviewerID {
		return nil, fmt.Errorf("%w: only the receiver can review this request", ErrUnauthorized)
	}

	if existing.Status != StatusInterested {
		return nil, fmt.Errorf("%w: request is %s, only interested requests can be reviewed", ErrInvalidState, existing.Status)
	}

	// A concurrent review that won the race leaves the guard unmatched.
	updated, err := s.repo.TransitionConnectionRequest(ctx, requestID, reviewerID, StatusInterested, decision)
	if err != nil {
		return nil, err
	}

	if decision == StatusAccepted {
		event := Event{
			Type:      EventRequestAccepted,
			RequestID: updated.ID,
			CreatedAt: s.now().UTC(),
		}
		if reviewer, err := s.users.GetUserByID(ctx, reviewerID); err == nil {
			event.Actor = reviewer.Summary()
		}
		s.notify(ctx, updated.FromUserID, event)
	}

	return updated, nil
}

// ReceivedRequests returns the requests awaiting userID's review
func (s *ConnectionService) ReceivedRequests(ctx context.Context, userID uuid.UUID) ([]*ReceivedRequest, error) {
	reqs, err := s.repo.ListReceivedRequests(ctx, userID, StatusInterested)
	if err != nil {
		return nil, err
	}

	senderIDs := make([]uuid.UUID, 0, len(reqs))
	for _, r := range reqs {
		senderIDs = append(senderIDs, r.FromUserID)
	}
	senders, err := s.summaries(ctx, senderIDs)
	if err != nil {
		return nil, err
	}

	result := make([]*ReceivedRequest, 0, len(reqs))
	for _, r := range reqs {
		from, ok := senders[r.FromUserID]
		if !ok {
			continue
		}
		result = append(result, &ReceivedRequest{
			ID:        r.ID,
			From:      from,
			ToUserID:  r.ToUserID,
			Status:    r.Status,
			CreatedAt: r.CreatedAt,
		})
	}
	return result, nil
}

// Connections returns the profiles of everyone userID is connected with
func (s *ConnectionService) Connections(ctx context.Context, userID uuid.UUID) ([]*UserSummary, error) {
	reqs, err := s.repo.ListConnectionsByStatus(ctx, userID, StatusAccepted)
	if err != nil {
		return nil, err
	}

	otherIDs := make([]uuid.UUID, 0, len(reqs))
	for _, r := range reqs {
		otherIDs = append(otherIDs, r.OtherParticipant(userID))
	}
	others, err := s.summaries(ctx, otherIDs)
	if err != nil {
		return nil, err
	}

	result := make([]*UserSummary, 0, len(reqs))
	for _, id := range otherIDs {
		if summary, ok := others[id]; ok {
			result = append(result, summary)
		}
	}
	return result, nil
}

func (s *ConnectionService) summaries(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*UserSummary, error) {
	out := make(map[uuid.UUID]*UserSummary, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	users, err := s.users.GetUsersByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, u := range users {
		out[u.ID] = u.Summary()
	}
	return out, nil
}

// notify is best-effort; a failed delivery never fails the lifecycle operation.
func (s *ConnectionService) notify(ctx context.Context, userID uuid.UUID, event Event) {
	if err := s.notifier.Notify(ctx, userID, event); err != nil {
		metrics.NotificationFailuresTotal.WithLabelValues(string(event.Type)).Inc()
		s.logger.Warn("failed to deliver connection event",
			zap.String("event", string(event.Type)),
			zap.String("user_id", userID.String()),
			zap.Error(err),
		)
	}
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrDuplicateRequest):
		return "duplicate"
	case errors.Is(err, ErrInvalidTarget):
		return "invalid_target"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, ErrStoreUnavailable):
		return "store_unavailable"
	default:
		return "error"
	}
}
