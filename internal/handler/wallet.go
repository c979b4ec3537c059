package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/ikayjohn/wingside-sub005/internal/domain"
	"github.com/ikayjohn/wingside-sub005/internal/response"
	"github.com/ikayjohn/wingside-sub005/internal/usecase/payment"
	"github.com/ikayjohn/wingside-sub005/internal/usecase/wallet"
)

type WalletHandler struct {
	wallets *wallet.Service
	engine  *payment.Service
	logger  *zap.Logger
}

func NewWalletHandler(wallets *wallet.Service, engine *payment.Service, logger *zap.Logger) *WalletHandler {
	return &WalletHandler{wallets: wallets, engine: engine, logger: logger}
}

// userID is resolved upstream by the auth layer and forwarded as a header.
func userID(r *http.Request) string {
	return r.Header.Get("X-User-ID")
}

func (h *WalletHandler) GetWallet(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	if uid == "" {
		response.Error(w, http.StatusUnauthorized, "missing user identity")
		return
	}
	wlt, err := h.wallets.GetWallet(r.Context(), uid)
	if err != nil {
		h.logger.Error("wallet load failed", zap.String("user_id", uid), zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "could not load wallet")
		return
	}
	response.JSON(w, http.StatusOK, wlt)
}

func (h *WalletHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	if uid == "" {
		response.Error(w, http.StatusUnauthorized, "missing user identity")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	txs, total, err := h.wallets.History(r.Context(), uid, limit, offset)
	if err != nil {
		h.logger.Error("transaction list failed", zap.String("user_id", uid), zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "could not load transactions")
		return
	}
	response.JSON(w, http.StatusOK, map[string]interface{}{
		"transactions": txs,
		"total":        total,
	})
}

type payRequest struct {
	OrderID string `json:"order_id"`
}

// Pay funds an order from the wallet balance. Insufficient balance is a
// user-facing decline, not a server error.
func (h *WalletHandler) Pay(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	if uid == "" {
		response.Error(w, http.StatusUnauthorized, "missing user identity")
		return
	}
	var req payRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.OrderID == "" {
		response.Error(w, http.StatusBadRequest, "order_id is required")
		return
	}

	order, err := h.engine.PayWithWallet(r.Context(), req.OrderID, uid)
	switch {
	case errors.Is(err, domain.ErrInsufficientBalance):
		response.Error(w, http.StatusPaymentRequired, "payment declined: insufficient wallet balance")
	case errors.Is(err, domain.ErrOrderNotFound):
		response.Error(w, http.StatusNotFound, err.Error())
	case err != nil:
		h.logger.Error("wallet payment failed", zap.String("order_id", req.OrderID), zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "could not complete payment")
	default:
		response.JSON(w, http.StatusOK, order)
	}
}
