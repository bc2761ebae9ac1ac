package api

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/devmatch/backend/internal/domain"
	"github.com/devmatch/backend/internal/middleware"
	"github.com/devmatch/backend/pkg/response"
)

type PaymentHandler struct {
	paymentService *domain.PaymentService
	logger         *zap.Logger
}

func NewPaymentHandler(paymentService *domain.PaymentService, logger *zap.Logger) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
		logger:         logger,
	}
}

// Plans handles GET /payment/plans
func (h *PaymentHandler) Plans(w http.ResponseWriter, r *http.Request) {
	response.OK(w, h.paymentService.Plans())
}

// CreateOrder handles POST /payment/create
func (h *PaymentHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "not authenticated")
		return
	}

	var req struct {
		MembershipType string `json:"membershipType"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	order, err := h.paymentService.CreateOrder(r.Context(), userID, req.MembershipType)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	response.Created(w, order)
}
