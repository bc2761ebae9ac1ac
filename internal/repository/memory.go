package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/devmatch/backend/internal/domain"
)

// MemoryRepository is an in-process Store. A single mutex serializes every
// write, so the pair check and the insert happen atomically.
type MemoryRepository struct {
	mu       sync.RWMutex
	users    map[uuid.UUID]*domain.User
	emails   map[string]uuid.UUID
	order    []uuid.UUID
	requests map[uuid.UUID]*domain.ConnectionRequest
	pairs    map[string]uuid.UUID
	now      func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		users:    make(map[uuid.UUID]*domain.User),
		emails:   make(map[string]uuid.UUID),
		requests: make(map[uuid.UUID]*domain.ConnectionRequest),
		pairs:    make(map[string]uuid.UUID),
		now:      time.Now,
	}
}

func (r *MemoryRepository) Ping(context.Context) error    { return nil }
func (r *MemoryRepository) Migrate(context.Context) error { return nil }
func (r *MemoryRepository) Close(context.Context) error   { return nil }

func (r *MemoryRepository) CreateUser(_ context.Context, params domain.CreateUserParams) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	email := strings.ToLower(params.Email)
	if _, exists := r.emails[email]; exists {
		return nil, domain.ErrUserAlreadyExists
	}

	// Creation times are strictly increasing so feed order is stable.
	now := r.now().UTC()
	if n := len(r.order); n > 0 {
		if last := r.users[r.order[n-1]].CreatedAt; !now.After(last) {
			now = last.Add(time.Microsecond)
		}
	}

	user := &domain.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: params.PasswordHash,
		FirstName:    params.FirstName,
		LastName:     params.LastName,
		Skills:       []string{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	r.users[user.ID] = user
	r.emails[email] = user.ID
	r.order = append(r.order, user.ID)

	return copyUser(user), nil
}

func (r *MemoryRepository) GetUserByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return copyUser(user), nil
}

func (r *MemoryRepository) GetUserByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.emails[strings.ToLower(email)]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return copyUser(r.users[id]), nil
}

func (r *MemoryRepository) GetUsersByIDs(_ context.Context, ids []uuid.UUID) ([]*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := make([]*domain.User, 0, len(ids))
	for _, id := range ids {
		if user, ok := r.users[id]; ok {
			users = append(users, copyUser(user))
		}
	}
	return users, nil
}

func (r *MemoryRepository) UpdateUserProfile(_ context.Context, id uuid.UUID, params domain.UpdateProfileParams) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}

	if params.FirstName != nil {
		user.FirstName = *params.FirstName
	}
	if params.LastName != nil {
		user.LastName = *params.LastName
	}
	if params.Age != nil {
		age := *params.Age
		user.Age = &age
	}
	if params.Gender != nil {
		user.Gender = *params.Gender
	}
	if params.About != nil {
		user.About = *params.About
	}
	if params.Skills != nil {
		user.Skills = append([]string{}, params.Skills...)
	}
	if params.PhotoURL != nil {
		user.PhotoURL = *params.PhotoURL
	}
	user.UpdatedAt = r.now().UTC()

	return copyUser(user), nil
}

func (r *MemoryRepository) AddDeviceToken(_ context.Context, id uuid.UUID, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	for _, t := range user.DeviceTokens {
		if t == token {
			return nil
		}
	}
	user.DeviceTokens = append(user.DeviceTokens, token)
	return nil
}

func (r *MemoryRepository) ListFeedCandidates(_ context.Context, exclude []uuid.UUID, offset, limit int) ([]*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	skip := make(map[uuid.UUID]struct{}, len(exclude))
	for _, id := range exclude {
		skip[id] = struct{}{}
	}

	// r.order is already creation order; ties cannot occur.
	users := make([]*domain.User, 0, limit)
	seen := 0
	for _, id := range r.order {
		if _, excluded := skip[id]; excluded {
			continue
		}
		if seen < offset {
			seen++
			continue
		}
		if len(users) == limit {
			break
		}
		users = append(users, copyUser(r.users[id]))
	}
	return users, nil
}

func (r *MemoryRepository) CreateConnectionRequest(_ context.Context, req *domain.ConnectionRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := domain.PairKey(req.FromUserID, req.ToUserID)
	if _, exists := r.pairs[key]; exists {
		return domain.ErrDuplicateRequest
	}

	stored := *req
	r.requests[req.ID] = &stored
	r.pairs[key] = req.ID
	return nil
}

func (r *MemoryRepository) GetConnectionRequest(_ context.Context, id uuid.UUID) (*domain.ConnectionRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	req, ok := r.requests[id]
	if !ok {
		return nil, domain.ErrRequestNotFound
	}
	out := *req
	return &out, nil
}

func (r *MemoryRepository) TransitionConnectionRequest(_ context.Context, id, reviewer uuid.UUID, from, to domain.RequestStatus) (*domain.ConnectionRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	req, ok := r.requests[id]
	if !ok {
		return nil, domain.ErrRequestNotFound
	}
	if req.ToUserID != reviewer || req.Status != from {
		return nil, domain.ErrInvalidState
	}

	req.Status = to
	req.UpdatedAt = r.now().UTC()
	out := *req
	return &out, nil
}

func (r *MemoryRepository) ListReceivedRequests(_ context.Context, userID uuid.UUID, status domain.RequestStatus) ([]*domain.ConnectionRequest, error) {
	return r.filterRequests(func(c *domain.ConnectionRequest) bool {
		return c.ToUserID == userID && c.Status == status
	}), nil
}

func (r *MemoryRepository) ListConnectionsByStatus(_ context.Context, userID uuid.UUID, status domain.RequestStatus) ([]*domain.ConnectionRequest, error) {
	return r.filterRequests(func(c *domain.ConnectionRequest) bool {
		return c.Involves(userID) && c.Status == status
	}), nil
}

func (r *MemoryRepository) RelatedUserIDs(_ context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	reqs := r.filterRequests(func(c *domain.ConnectionRequest) bool {
		return c.Involves(userID)
	})
	ids := make([]uuid.UUID, 0, len(reqs))
	for _, c := range reqs {
		ids = append(ids, c.OtherParticipant(userID))
	}
	return ids, nil
}

// filterRequests returns copies of matching requests, newest first
func (r *MemoryRepository) filterRequests(match func(*domain.ConnectionRequest) bool) []*domain.ConnectionRequest {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.ConnectionRequest, 0)
	for _, c := range r.requests {
		if match(c) {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func copyUser(u *domain.User) *domain.User {
	out := *u
	if u.Age != nil {
		age := *u.Age
		out.Age = &age
	}
	out.Skills = append([]string{}, u.Skills...)
	out.DeviceTokens = append([]string(nil), u.DeviceTokens...)
	return &out
}
