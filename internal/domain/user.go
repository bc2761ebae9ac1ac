package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderOther  Gender = "other"
)

// MinimumAge is the youngest age a profile may declare
const MinimumAge = 18

// User represents a user in the domain layer
type User struct {
	ID             uuid.UUID `json:"_id"`
	Email          string    `json:"emailId"`
	PasswordHash   string    `json:"-"`
	FirstName      string    `json:"firstName"`
	LastName       string    `json:"lastName"`
	Age            *int      `json:"age,omitempty"`
	Gender         Gender    `json:"gender,omitempty"`
	About          string    `json:"about"`
	Skills         []string  `json:"skills"`
	PhotoURL       string    `json:"photoUrl"`
	IsPremium      bool      `json:"isPremium"`
	MembershipType string    `json:"membershipType,omitempty"`
	DeviceTokens   []string  `json:"-"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// UserSummary is the public profile shown to other users
type UserSummary struct {
	ID        uuid.UUID `json:"_id"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Age       *int      `json:"age,omitempty"`
	Gender    Gender    `json:"gender,omitempty"`
	About     string    `json:"about"`
	Skills    []string  `json:"skills"`
	PhotoURL  string    `json:"photoUrl"`
}

// Summary projects a User to the fields other users may see
func (u *User) Summary() *UserSummary {
	skills := u.Skills
	if skills == nil {
		skills = []string{}
	}
	return &UserSummary{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Age:       u.Age,
		Gender:    u.Gender,
		About:     u.About,
		Skills:    skills,
		PhotoURL:  u.PhotoURL,
	}
}

// CreateUserParams holds parameters for user creation
type CreateUserParams struct {
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
}

// UpdateProfileParams holds the editable profile attributes. Nil fields are
// left unchanged.
type UpdateProfileParams struct {
	FirstName *string  `json:"firstName" validate:"omitnil,min=1,max=50"`
	LastName  *string  `json:"lastName" validate:"omitnil,min=1,max=50"`
	Age       *int     `json:"age" validate:"omitnil,lte=120"`
	Gender    *Gender  `json:"gender" validate:"omitnil,oneof=male female other"`
	About     *string  `json:"about" validate:"omitnil,max=500"`
	Skills    []string `json:"skills" validate:"omitempty,max=20,dive,min=1,max=40"`
	PhotoURL  *string  `json:"photoUrl" validate:"omitnil,url"`
}

// IsEmpty reports whether the update would change nothing
func (p UpdateProfileParams) IsEmpty() bool {
	return p.FirstName == nil && p.LastName == nil && p.Age == nil && p.Gender == nil &&
		p.About == nil && p.Skills == nil && p.PhotoURL == nil
}

// UserRepository defines the persistence operations on user records
type UserRepository interface {
	CreateUser(ctx context.Context, params CreateUserParams) (*User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	GetUsersByIDs(ctx context.Context, ids []uuid.UUID) ([]*User, error)
	UpdateUserProfile(ctx context.Context, id uuid.UUID, params UpdateProfileParams) (*User, error)
	AddDeviceToken(ctx context.Context, id uuid.UUID, token string) error
	// ListFeedCandidates returns users not in exclude, ordered by creation
	// time then id.
	ListFeedCandidates(ctx context.Context, exclude []uuid.UUID, offset, limit int) ([]*User, error)
}
