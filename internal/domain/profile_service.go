package domain

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/devmatch/backend/internal/storage"
	"github.com/devmatch/backend/pkg/validator"
)

// MaxPhotoBytes bounds profile photo uploads
const MaxPhotoBytes = 5 << 20

var allowedPhotoTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
	"image/gif":  true,
}

// ProfileService manages the authenticated user's own profile
type ProfileService struct {
	repo    UserRepository
	storage storage.FileStorage
	logger  *zap.Logger
}

func NewProfileService(repo UserRepository, fileStorage storage.FileStorage, logger *zap.Logger) *ProfileService {
	return &ProfileService{
		repo:    repo,
		storage: fileStorage,
		logger:  logger,
	}
}

// GetProfile returns the full profile of userID
func (s *ProfileService) GetProfile(ctx context.Context, userID uuid.UUID) (*User, error) {
	return s.repo.GetUserByID(ctx, userID)
}

// UpdateProfile validates params and applies them. Nothing is written when
// validation fails.
func (s *ProfileService) UpdateProfile(ctx context.Context, userID uuid.UUID, params UpdateProfileParams) (*User, error) {
	params = sanitizeProfile(params)

	if params.IsEmpty() {
		return nil, invalidInput("no profile fields to update")
	}
	errs := validator.Struct(params)
	if params.Age != nil && *params.Age < MinimumAge {
		errs.Add("age", fmt.Sprintf("must be at least %d", MinimumAge))
	}
	if errs.HasErrors() {
		return nil, NewValidationError(errs.Error(), errs)
	}

	return s.repo.UpdateUserProfile(ctx, userID, params)
}

// UploadPhoto stores an image and makes it the user's profile photo. The
// photo it replaces is removed from storage on a best-effort basis.
func (s *ProfileService) UploadPhoto(ctx context.Context, userID uuid.UUID, file io.Reader, filename string) (*User, error) {
	br := bufio.NewReaderSize(file, 512)
	head, err := br.Peek(512)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return nil, invalidInput("unreadable photo: %v", err)
	}
	if len(head) == 0 {
		return nil, invalidInput("photo is empty")
	}

	contentType := http.DetectContentType(head)
	if !allowedPhotoTypes[contentType] {
		return nil, invalidInput("photo type %s is not supported", contentType)
	}

	current, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	url, err := s.storage.SaveFile(ctx, io.LimitReader(br, MaxPhotoBytes), filename, contentType)
	if err != nil {
		return nil, fmt.Errorf("save photo: %w", err)
	}

	updated, err := s.repo.UpdateUserProfile(ctx, userID, UpdateProfileParams{PhotoURL: &url})
	if err != nil {
		s.removePhoto(ctx, url)
		return nil, err
	}

	if current.PhotoURL != "" && current.PhotoURL != url {
		s.removePhoto(ctx, current.PhotoURL)
	}
	return updated, nil
}

// removePhoto deletes url if this service's storage wrote it. Profiles may
// point at external images, which are left alone.
func (s *ProfileService) removePhoto(ctx context.Context, url string) {
	if !s.storage.Owns(url) {
		return
	}
	if err := s.storage.DeleteFile(ctx, url); err != nil {
		s.logger.Warn("Failed to delete profile photo",
			zap.String("url", url),
			zap.Error(err),
		)
	}
}

// RegisterDeviceToken remembers a push token for userID
func (s *ProfileService) RegisterDeviceToken(ctx context.Context, userID uuid.UUID, token string) error {
	token = strings.TrimSpace(token)
	if token == "" || len(token) > 4096 {
		return invalidInput("device token must be 1-4096 characters")
	}
	return s.repo.AddDeviceToken(ctx, userID, token)
}

func sanitizeProfile(p UpdateProfileParams) UpdateProfileParams {
	trim := func(s *string, max int) *string {
		if s == nil {
			return nil
		}
		v := validator.SanitizeString(*s, max)
		return &v
	}
	p.FirstName = trim(p.FirstName, 50)
	p.LastName = trim(p.LastName, 50)
	p.PhotoURL = trim(p.PhotoURL, 2048)
	if p.About != nil {
		v := strings.TrimSpace(*p.About)
		p.About = &v
	}
	if p.Gender != nil {
		g := Gender(strings.ToLower(strings.TrimSpace(string(*p.Gender))))
		p.Gender = &g
	}
	if p.Skills != nil {
		skills := make([]string, 0, len(p.Skills))
		for _, skill := range p.Skills {
			skills = append(skills, strings.TrimSpace(skill))
		}
		p.Skills = skills
	}
	return p
}
