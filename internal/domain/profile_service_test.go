package domain_test

import (
	"bytes"
	"context"
	"os"
	"path"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/devmatch/backend/internal/domain"
	"github.com/devmatch/backend/internal/repository"
	"github.com/devmatch/backend/internal/storage"
)

func ptr[T any](v T) *T { return &v }

func newProfileService(t *testing.T) (*domain.ProfileService, *repository.MemoryRepository) {
	t.Helper()
	repo := repository.NewMemoryRepository()
	files, err := storage.NewLocalFileStorage(t.TempDir(), "http://localhost/uploads")
	require.NoError(t, err)
	return domain.NewProfileService(repo, files, zap.NewNop()), repo
}

var pngBytes = append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 32)...)

func TestUpdateProfile_Validation(t *testing.T) {
	ctx := context.Background()
	svc, repo := newProfileService(t)
	user, err := repo.CreateUser(ctx, domain.CreateUserParams{Email: "p@example.com", FirstName: "Pat"})
	require.NoError(t, err)

	tests := []struct {
		name   string
		params domain.UpdateProfileParams
	}{
		{"underage", domain.UpdateProfileParams{Age: ptr(15), About: ptr("hello")}},
		{"empty first name", domain.UpdateProfileParams{FirstName: ptr("   ")}},
		{"unknown gender", domain.UpdateProfileParams{Gender: ptr(domain.Gender("robot"))}},
		{"about too long", domain.UpdateProfileParams{About: ptr(strings.Repeat("x", 501))}},
		{"too many skills", domain.UpdateProfileParams{Skills: make([]string, 21)}},
		{"nothing to update", domain.UpdateProfileParams{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.UpdateProfile(ctx, user.ID, tt.params)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}

	stored, err := repo.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.Age)
	assert.Empty(t, stored.About)
	assert.Equal(t, "Pat", stored.FirstName)
}

func TestUpdateProfile_ValidationDetails(t *testing.T) {
	ctx := context.Background()
	svc, repo := newProfileService(t)
	user, err := repo.CreateUser(ctx, domain.CreateUserParams{Email: "d@example.com", FirstName: "Dee"})
	require.NoError(t, err)

	_, err = svc.UpdateProfile(ctx, user.ID, domain.UpdateProfileParams{Age: ptr(domain.MinimumAge - 1)})
	var validationErr *domain.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Contains(t, validationErr.Error(), "age")

	_, err = svc.UpdateProfile(ctx, user.ID, domain.UpdateProfileParams{Age: ptr(-3)})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestUpdateProfile_Success(t *testing.T) {
	ctx := context.Background()
	svc, repo := newProfileService(t)
	user, err := repo.CreateUser(ctx, domain.CreateUserParams{Email: "s@example.com", FirstName: "Sam"})
	require.NoError(t, err)

	updated, err := svc.UpdateProfile(ctx, user.ID, domain.UpdateProfileParams{
		Age:    ptr(18),
		Gender: ptr(domain.Gender(" Other ")),
		Skills: []string{" go ", "sql"},
	})
	require.NoError(t, err)
	assert.Equal(t, 18, *updated.Age)
	assert.Equal(t, domain.GenderOther, updated.Gender)
	assert.Equal(t, []string{"go", "sql"}, updated.Skills)
	assert.Equal(t, "Sam", updated.FirstName)
}

func TestUploadPhoto(t *testing.T) {
	ctx := context.Background()
	svc, repo := newProfileService(t)
	user, err := repo.CreateUser(ctx, domain.CreateUserParams{Email: "ph@example.com", FirstName: "Pho"})
	require.NoError(t, err)

	updated, err := svc.UploadPhoto(ctx, user.ID, bytes.NewReader(pngBytes), "me.png")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(updated.PhotoURL, "http://localhost/uploads/"))

	_, err = svc.UploadPhoto(ctx, user.ID, strings.NewReader("just some text"), "notes.txt")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = svc.UploadPhoto(ctx, user.ID, strings.NewReader(""), "empty.png")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestUploadPhoto_ReplacesPreviousFile(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryRepository()
	files, err := storage.NewLocalFileStorage(t.TempDir(), "http://localhost/uploads")
	require.NoError(t, err)
	svc := domain.NewProfileService(repo, files, zap.NewNop())

	user, err := repo.CreateUser(ctx, domain.CreateUserParams{Email: "re@example.com", FirstName: "Rey"})
	require.NoError(t, err)

	first, err := svc.UploadPhoto(ctx, user.ID, bytes.NewReader(pngBytes), "one.png")
	require.NoError(t, err)
	firstPath := filepath.Join(files.Dir(), path.Base(first.PhotoURL))
	require.FileExists(t, firstPath)

	second, err := svc.UploadPhoto(ctx, user.ID, bytes.NewReader(pngBytes), "two.png")
	require.NoError(t, err)
	assert.NotEqual(t, first.PhotoURL, second.PhotoURL)
	assert.NoFileExists(t, firstPath)
	assert.FileExists(t, filepath.Join(files.Dir(), path.Base(second.PhotoURL)))
}

func TestUploadPhoto_KeepsExternalPhoto(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryRepository()
	files, err := storage.NewLocalFileStorage(t.TempDir(), "http://localhost/uploads")
	require.NoError(t, err)
	svc := domain.NewProfileService(repo, files, zap.NewNop())

	user, err := repo.CreateUser(ctx, domain.CreateUserParams{Email: "ext@example.com", FirstName: "Ext"})
	require.NoError(t, err)

	// Same base name as a stored file, but hosted elsewhere.
	keep := filepath.Join(files.Dir(), "keep.png")
	require.NoError(t, os.WriteFile(keep, pngBytes, 0o644))
	_, err = svc.UpdateProfile(ctx, user.ID, domain.UpdateProfileParams{PhotoURL: ptr("https://cdn.example.com/keep.png")})
	require.NoError(t, err)

	_, err = svc.UploadPhoto(ctx, user.ID, bytes.NewReader(pngBytes), "new.png")
	require.NoError(t, err)
	assert.FileExists(t, keep)
}

func TestRegisterDeviceToken(t *testing.T) {
	ctx := context.Background()
	svc, repo := newProfileService(t)
	user, err := repo.CreateUser(ctx, domain.CreateUserParams{Email: "dev@example.com", FirstName: "Dev"})
	require.NoError(t, err)

	require.NoError(t, svc.RegisterDeviceToken(ctx, user.ID, " tok "))
	assert.ErrorIs(t, svc.RegisterDeviceToken(ctx, user.ID, ""), domain.ErrInvalidInput)

	stored, err := repo.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"tok"}, stored.DeviceTokens)
}
