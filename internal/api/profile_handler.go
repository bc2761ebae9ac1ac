package api

import (
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/devmatch/backend/internal/domain"
	"github.com/devmatch/backend/internal/middleware"
	"github.com/devmatch/backend/pkg/response"
)

type ProfileHandler struct {
	profileService *domain.ProfileService
	logger         *zap.Logger
}

func NewProfileHandler(profileService *domain.ProfileService, logger *zap.Logger) *ProfileHandler {
	return &ProfileHandler{
		profileService: profileService,
		logger:         logger,
	}
}

// View handles GET /profile/view
func (h *ProfileHandler) View(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "not authenticated")
		return
	}

	user, err := h.profileService.GetProfile(r.Context(), userID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	response.OK(w, user)
}

// Edit handles PATCH /profile/edit. Fields outside the editable set, such
// as emailId or password, are rejected.
func (h *ProfileHandler) Edit(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "not authenticated")
		return
	}

	var req domain.UpdateProfileParams
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	user, err := h.profileService.UpdateProfile(r.Context(), userID, req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	response.OK(w, user)
}

// UploadPhoto handles POST /profile/photo (multipart field "photo")
func (h *ProfileHandler) UploadPhoto(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "not authenticated")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, domain.MaxPhotoBytes+(1<<20))
	if err := r.ParseMultipartForm(domain.MaxPhotoBytes); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, h.logger, fmt.Errorf("%w: photo exceeds %d bytes", domain.ErrInvalidInput, domain.MaxPhotoBytes))
			return
		}
		writeError(w, h.logger, fmt.Errorf("%w: expected multipart form: %v", domain.ErrInvalidInput, err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("photo")
	if err != nil {
		writeError(w, h.logger, fmt.Errorf("%w: photo field is required", domain.ErrInvalidInput))
		return
	}
	defer file.Close()

	user, err := h.profileService.UploadPhoto(r.Context(), userID, file, header.Filename)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	response.OK(w, user)
}
