package api

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/devmatch/backend/internal/domain"
	"github.com/devmatch/backend/internal/middleware"
	"github.com/devmatch/backend/pkg/response"
)

type ConnectionHandler struct {
	connService *domain.ConnectionService
	logger      *zap.Logger
}

func NewConnectionHandler(connService *domain.ConnectionService, logger *zap.Logger) *ConnectionHandler {
	return &ConnectionHandler{
		connService: connService,
		logger:      logger,
	}
}

// SendRequest handles POST /connection/request/{intent}/{toUserId}
func (h *ConnectionHandler) SendRequest(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "not authenticated")
		return
	}

	intent := domain.RequestStatus(chi.URLParam(r, "intent"))
	targetID, err := uuid.Parse(chi.URLParam(r, "toUserId"))
	if err != nil {
		writeError(w, h.logger, fmt.Errorf("%w: invalid user id", domain.ErrInvalidInput))
		return
	}

	req, err := h.connService.SendRequest(r.Context(), userID, targetID, intent)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	response.Created(w, req)
}

// ReviewRequest handles POST /connection/review/{decision}/{requestId}
func (h *ConnectionHandler) ReviewRequest(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "not authenticated")
		return
	}

	decision := domain.RequestStatus(chi.URLParam(r, "decision"))
	requestID, err := uuid.Parse(chi.URLParam(r, "requestId"))
	if err != nil {
		writeError(w, h.logger, fmt.Errorf("%w: invalid request id", domain.ErrInvalidInput))
		return
	}

	req, err := h.connService.ReviewRequest(r.Context(), userID, requestID, decision)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	response.OK(w, req)
}

// GetReceived handles GET /user/request/received
func (h *ConnectionHandler) GetReceived(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "not authenticated")
		return
	}

	reqs, err := h.connService.ReceivedRequests(r.Context(), userID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	response.OK(w, reqs)
}

// GetConnections handles GET /user/connection/accepted
func (h *ConnectionHandler) GetConnections(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "not authenticated")
		return
	}

	conns, err := h.connService.Connections(r.Context(), userID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	response.OK(w, conns)
}
