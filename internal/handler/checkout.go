package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ikayjohn/wingside-sub005/internal/domain"
	"github.com/ikayjohn/wingside-sub005/internal/provider"
	"github.com/ikayjohn/wingside-sub005/internal/response"
	"github.com/ikayjohn/wingside-sub005/internal/usecase/payment"
)

type CheckoutHandler struct {
	engine *payment.Service
	logger *zap.Logger
}

func NewCheckoutHandler(engine *payment.Service, logger *zap.Logger) *CheckoutHandler {
	return &CheckoutHandler{engine: engine, logger: logger}
}

type initializeRequest struct {
	OrderID string `json:"order_id"`
	Gateway string `json:"gateway"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Name    string `json:"name"`
}

func (h *CheckoutHandler) Initialize(w http.ResponseWriter, r *http.Request) {
	var req initializeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.OrderID == "" || req.Gateway == "" {
		response.Error(w, http.StatusBadRequest, "order_id and gateway are required")
		return
	}

	sess, err := h.engine.InitializeCheckout(r.Context(), req.OrderID, req.Gateway, provider.Customer{
		UserID: userID(r),
		Email:  req.Email,
		Phone:  req.Phone,
		Name:   req.Name,
	})
	switch {
	case errors.Is(err, domain.ErrOrderNotFound):
		response.Error(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrOrderAlreadyPaid):
		response.Error(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrProviderNotFound):
		response.Error(w, http.StatusBadRequest, err.Error())
	case err != nil:
		h.logger.Error("checkout initialization failed", zap.Error(err))
		response.Error(w, http.StatusBadGateway, "could not initialize checkout")
	default:
		response.JSON(w, http.StatusOK, sess)
	}
}

// Verify runs a client-initiated confirmation poll through the same engine
// as webhooks. Deferred maps to 202: we could not confirm the payment yet,
// which must never read like success.
func (h *CheckoutHandler) Verify(w http.ResponseWriter, r *http.Request) {
	gateway := chi.URLParam(r, "gateway")
	reference := chi.URLParam(r, "reference")
	if gateway == "" || reference == "" {
		response.Error(w, http.StatusBadRequest, "gateway and reference are required")
		return
	}

	res := h.engine.VerifyPayment(r.Context(), gateway, reference)
	switch res.Outcome {
	case domain.OutcomeApplied, domain.OutcomeAlreadyApplied:
		response.JSON(w, http.StatusOK, res)
	case domain.OutcomeDeferred:
		response.JSON(w, http.StatusAccepted, res)
	default:
		response.Error(w, http.StatusUnprocessableEntity, res.Reason)
	}
}
