package domain

import (
	"context"
	"errors"
	"time"

	"github.com/devmatch/backend/internal/auth"
	"github.com/devmatch/backend/pkg/validator"
)

// SignupParams holds the registration request body
type SignupParams struct {
	FirstName string `json:"firstName" validate:"required,min=1,max=50"`
	LastName  string `json:"lastName" validate:"required,min=1,max=50"`
	Email     string `json:"emailId" validate:"required,email"`
	Password  string `json:"password" validate:"required"`
}

// LoginParams holds the login request body
type LoginParams struct {
	Email    string `json:"emailId" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthResult is returned by signup and login
type AuthResult struct {
	User      *User     `json:"user"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// AuthService handles registration and credential checks
type AuthService struct {
	repo UserRepository
	jwt  *auth.JWTManager
}

// NewAuthService creates a new auth service
func NewAuthService(repo UserRepository, jwt *auth.JWTManager) *AuthService {
	return &AuthService{
		repo: repo,
		jwt:  jwt,
	}
}

// Signup creates a new user with email/password
func (s *AuthService) Signup(ctx context.Context, params SignupParams) (*AuthResult, error) {
	params.Email = validator.SanitizeEmail(params.Email)
	params.FirstName = validator.SanitizeString(params.FirstName, 50)
	params.LastName = validator.SanitizeString(params.LastName, 50)

	errs := validator.Struct(params)
	errs = append(errs, validator.ValidatePassword(params.Password)...)
	if errs.HasErrors() {
		return nil, NewValidationError(errs.Error(), errs)
	}

	passwordHash, err := auth.HashPassword(params.Password)
	if err != nil {
		return nil, err
	}

	// Email uniqueness is enforced by the store.
	user, err := s.repo.CreateUser(ctx, CreateUserParams{
		Email:        params.Email,
		PasswordHash: passwordHash,
		FirstName:    params.FirstName,
		LastName:     params.LastName,
	})
	if err != nil {
		return nil, err
	}

	return s.issue(user)
}

// Login authenticates a user with email/password
func (s *AuthService) Login(ctx context.Context, params LoginParams) (*AuthResult, error) {
	params.Email = validator.SanitizeEmail(params.Email)
	if errs := validator.Struct(params); errs.HasErrors() {
		return nil, NewValidationError(errs.Error(), errs)
	}

	user, err := s.repo.GetUserByEmail(ctx, params.Email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if user.PasswordHash == "" {
		return nil, ErrInvalidCredentials
	}

	if err := auth.VerifyPassword(params.Password, user.PasswordHash); err != nil {
		return nil, ErrInvalidCredentials
	}

	return s.issue(user)
}

func (s *AuthService) issue(user *User) (*AuthResult, error) {
	token, expiresAt, err := s.jwt.GenerateToken(user.ID, user.Email)
	if err != nil {
		return nil, err
	}
	return &AuthResult{
		User:      user,
		Token:     token,
		ExpiresAt: expiresAt,
	}, nil
}
