package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/ikayjohn/wingside-sub005/internal/domain"
	"github.com/ikayjohn/wingside-sub005/internal/repository"
	"github.com/ikayjohn/wingside-sub005/internal/response"
)

type OrderHandler struct {
	orders *repository.OrderRepository
	logger *zap.Logger
}

func NewOrderHandler(orders *repository.OrderRepository, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{orders: orders, logger: logger}
}

type createOrderRequest struct {
	CustomerEmail string `json:"customer_email"`
	CustomerPhone string `json:"customer_phone"`
	TotalAmount   int64  `json:"total_amount"` // kobo
}

func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	if uid == "" {
		response.Error(w, http.StatusUnauthorized, "missing user identity")
		return
	}
	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.TotalAmount <= 0 {
		response.Error(w, http.StatusBadRequest, "total_amount must be positive")
		return
	}
	if req.CustomerEmail == "" {
		response.Error(w, http.StatusBadRequest, "customer_email is required")
		return
	}

	order := &domain.Order{
		OrderNumber:   "WS-" + ulid.Make().String(),
		UserID:        uid,
		CustomerEmail: req.CustomerEmail,
		CustomerPhone: req.CustomerPhone,
		TotalAmount:   req.TotalAmount,
		Currency:      "NGN",
	}
	if err := h.orders.CreateOrder(r.Context(), order); err != nil {
		h.logger.Error("order create failed", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "could not create order")
		return
	}
	response.JSON(w, http.StatusCreated, order)
}

func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	order, err := h.orders.GetOrderByID(r.Context(), chi.URLParam(r, "orderID"))
	if errors.Is(err, domain.ErrOrderNotFound) || (err == nil && order.UserID != uid) {
		response.Error(w, http.StatusNotFound, domain.ErrOrderNotFound.Error())
		return
	}
	if err != nil {
		response.Error(w, http.StatusInternalServerError, "could not load order")
		return
	}
	response.JSON(w, http.StatusOK, order)
}
