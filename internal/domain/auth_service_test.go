package domain_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devmatch/backend/internal/auth"
	"github.com/devmatch/backend/internal/domain"
	"github.com/devmatch/backend/internal/repository"
)

func TestAuthService(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryRepository()
	jwtManager := auth.NewJWTManager("test-secret", time.Hour)
	svc := domain.NewAuthService(repo, jwtManager)

	params := domain.SignupParams{
		FirstName: " Linus ",
		LastName:  "Torvalds",
		Email:     " Linus@Example.com ",
		Password:  "Penguin123",
	}

	result, err := svc.Signup(ctx, params)
	require.NoError(t, err)
	assert.Equal(t, "linus@example.com", result.User.Email)
	assert.Equal(t, "Linus", result.User.FirstName)

	claims, err := jwtManager.ValidateToken(result.Token)
	require.NoError(t, err)
	assert.Equal(t, result.User.ID, claims.UserID)

	t.Run("duplicate email", func(t *testing.T) {
		_, err := svc.Signup(ctx, params)
		assert.ErrorIs(t, err, domain.ErrUserAlreadyExists)
	})

	t.Run("weak password", func(t *testing.T) {
		weak := params
		weak.Email = "other@example.com"
		weak.Password = "short"
		_, err := svc.Signup(ctx, weak)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("bad email", func(t *testing.T) {
		bad := params
		bad.Email = "not-an-email"
		_, err := svc.Signup(ctx, bad)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("login", func(t *testing.T) {
		res, err := svc.Login(ctx, domain.LoginParams{Email: "LINUS@example.com", Password: "Penguin123"})
		require.NoError(t, err)
		assert.Equal(t, result.User.ID, res.User.ID)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := svc.Login(ctx, domain.LoginParams{Email: "linus@example.com", Password: "Penguin124"})
		assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := svc.Login(ctx, domain.LoginParams{Email: "nobody@example.com", Password: "Penguin123"})
		assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	})
}

func TestPaymentService(t *testing.T) {
	svc := domain.NewPaymentService()

	plans := svc.Plans()
	require.Len(t, plans, 2)
	assert.Equal(t, "silver", plans[0].Name)
	assert.Equal(t, "gold", plans[1].Name)

	user := newFixture(t).user(t, "payer")
	order, err := svc.CreateOrder(context.Background(), user.ID, "gold")
	require.NoError(t, err)
	assert.Equal(t, "created", order.Status)
	assert.Equal(t, int64(70000), order.Amount)
	assert.Equal(t, user.ID, order.UserID)

	_, err = svc.CreateOrder(context.Background(), user.ID, "platinum")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
