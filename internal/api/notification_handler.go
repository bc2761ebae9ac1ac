package api

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/devmatch/backend/internal/domain"
	"github.com/devmatch/backend/internal/middleware"
	"github.com/devmatch/backend/pkg/response"
)

// NotificationHandler registers push devices and serves the live event socket
type NotificationHandler struct {
	profileService *domain.ProfileService
	hub            *WebSocketManager
	upgrader       *websocket.Upgrader
	logger         *zap.Logger
}

func NewNotificationHandler(profileService *domain.ProfileService, hub *WebSocketManager, allowedOrigins []string, logger *zap.Logger) *NotificationHandler {
	return &NotificationHandler{
		profileService: profileService,
		hub:            hub,
		upgrader:       newUpgrader(allowedOrigins),
		logger:         logger,
	}
}

// UpdateDeviceToken handles PUT /user/device-token
func (h *NotificationHandler) UpdateDeviceToken(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "not authenticated")
		return
	}

	var req struct {
		Token string `json:"token"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	if err := h.profileService.RegisterDeviceToken(r.Context(), userID, req.Token); err != nil {
		writeError(w, h.logger, err)
		return
	}

	response.OK(w, map[string]string{"status": "success"})
}

// Events handles GET /ws, upgrading to a websocket that streams connection
// events for the authenticated user.
func (h *NotificationHandler) Events(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "not authenticated")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		h.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}

	client := &Client{
		ID:     uuid.New(),
		Conn:   conn,
		Send:   make(chan []byte, sendBufferSize),
		UserID: userID,
	}

	select {
	case h.hub.register <- client:
	case <-h.hub.done:
		conn.Close()
		return
	}

	go client.WritePump()
	go client.ReadPump(h.hub)
}
