package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/devmatch/backend/internal/domain"
	"github.com/devmatch/backend/pkg/response"
)

const maxBodyBytes = 1 << 20

// writeError maps a domain error onto its HTTP status and envelope code
func writeError(w http.ResponseWriter, logger *zap.Logger, err error) {
	var validationErr *domain.ValidationError

	switch {
	case errors.Is(err, domain.ErrUserAlreadyExists):
		response.Error(w, http.StatusConflict, "EMAIL_TAKEN", "user with this email already exists")
	case errors.Is(err, domain.ErrInvalidCredentials):
		response.Unauthorized(w, "invalid credentials")
	case errors.As(err, &validationErr):
		response.ErrorWithDetails(w, http.StatusBadRequest, "INVALID_INPUT", validationErr.Error(), validationErr.Fields)
	case errors.Is(err, domain.ErrInvalidInput):
		response.Error(w, http.StatusBadRequest, "INVALID_INPUT", err.Error())
	case errors.Is(err, domain.ErrDuplicateRequest):
		response.Error(w, http.StatusConflict, "DUPLICATE_REQUEST", err.Error())
	case errors.Is(err, domain.ErrInvalidTarget):
		response.Error(w, http.StatusBadRequest, "INVALID_TARGET", err.Error())
	case errors.Is(err, domain.ErrNotFound):
		response.NotFound(w, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		response.Forbidden(w, err.Error())
	case errors.Is(err, domain.ErrInvalidState):
		response.Error(w, http.StatusConflict, "INVALID_STATE", err.Error())
	case errors.Is(err, domain.ErrStoreUnavailable):
		logger.Warn("store unavailable", zap.Error(err))
		response.Error(w, http.StatusServiceUnavailable, "STORE_UNAVAILABLE", "service temporarily unavailable, try again")
	default:
		logger.Error("unexpected error", zap.Error(err))
		response.InternalError(w, "something went wrong")
	}
}

// decodeJSON decodes a single JSON object from the request body and rejects
// fields the target does not declare.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			return fmt.Errorf("%w: request body is empty", domain.ErrInvalidInput)
		case errors.As(err, &maxErr):
			return fmt.Errorf("%w: request body is too large", domain.ErrInvalidInput)
		default:
			return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
		}
	}
	if dec.More() {
		return fmt.Errorf("%w: request body must contain a single JSON object", domain.ErrInvalidInput)
	}
	return nil
}
