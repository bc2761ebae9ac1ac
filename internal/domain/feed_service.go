package domain

import (
	"context"
	"math"

	"github.com/google/uuid"
)

const (
	DefaultFeedLimit = 10
	MaxFeedLimit     = 50

	// MaxFeedPage keeps (page-1)*limit within int
	MaxFeedPage = math.MaxInt / MaxFeedLimit
)

// Page is a normalized pagination window
type Page struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

// NormalizePage clamps page and limit into range instead of rejecting them
func NormalizePage(page, limit int) Page {
	if page < 1 {
		page = 1
	}
	if page > MaxFeedPage {
		page = MaxFeedPage
	}
	if limit < 1 {
		limit = DefaultFeedLimit
	}
	if limit > MaxFeedLimit {
		limit = MaxFeedLimit
	}
	return Page{Page: page, Limit: limit}
}

// Offset is the number of candidates skipped before this page
func (p Page) Offset() int {
	return (p.Page - 1) * p.Limit
}

// FeedService computes the candidates a viewer has not interacted with yet
type FeedService struct {
	users       UserRepository
	connections ConnectionRepository
}

func NewFeedService(users UserRepository, connections ConnectionRepository) *FeedService {
	return &FeedService{
		users:       users,
		connections: connections,
	}
}

// Feed returns one page of candidates for viewerID. The viewer and anyone
// sharing a request with the viewer, in any status, are never included.
func (s *FeedService) Feed(ctx context.Context, viewerID uuid.UUID, page, limit int) ([]*UserSummary, Page, error) {
	p := NormalizePage(page, limit)

	related, err := s.connections.RelatedUserIDs(ctx, viewerID)
	if err != nil {
		return nil, p, err
	}

	exclude := make([]uuid.UUID, 0, len(related)+1)
	exclude = append(exclude, viewerID)
	exclude = append(exclude, related...)

	users, err := s.users.ListFeedCandidates(ctx, exclude, p.Offset(), p.Limit)
	if err != nil {
		return nil, p, err
	}

	result := make([]*UserSummary, 0, len(users))
	for _, u := range users {
		result = append(result, u.Summary())
	}
	return result, p, nil
}
