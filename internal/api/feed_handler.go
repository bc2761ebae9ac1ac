package api

import (
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/devmatch/backend/internal/domain"
	"github.com/devmatch/backend/internal/middleware"
	"github.com/devmatch/backend/pkg/response"
)

type FeedHandler struct {
	feedService *domain.FeedService
	logger      *zap.Logger
}

func NewFeedHandler(feedService *domain.FeedService, logger *zap.Logger) *FeedHandler {
	return &FeedHandler{
		feedService: feedService,
		logger:      logger,
	}
}

// FeedResponse is one page of candidates with the pagination actually applied
type FeedResponse struct {
	Users []*domain.UserSummary `json:"users"`
	Page  int                   `json:"page"`
	Limit int                   `json:"limit"`
}

// GetFeed handles GET /feed?page=&limit=. Bad pagination values are
// clamped, never rejected.
func (h *FeedHandler) GetFeed(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "not authenticated")
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	users, p, err := h.feedService.Feed(r.Context(), userID, page, limit)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	response.OK(w, FeedResponse{
		Users: users,
		Page:  p.Page,
		Limit: p.Limit,
	})
}
