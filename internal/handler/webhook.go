package handler

import (
	"context"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ikayjohn/wingside-sub005/internal/domain"
	"github.com/ikayjohn/wingside-sub005/internal/response"
	"github.com/ikayjohn/wingside-sub005/internal/usecase/payment"
	"github.com/ikayjohn/wingside-sub005/internal/webhook"
)

// DeferredLister exposes the manual-review queue of events the engine
// could not settle.
type DeferredLister interface {
	ListDeferred(ctx context.Context, limit int) ([]*domain.NormalizedEvent, error)
}

type WebhookHandler struct {
	engine    *payment.Service
	verifiers map[string]webhook.Verifier
	deferred  DeferredLister
	logger    *zap.Logger
}

func NewWebhookHandler(engine *payment.Service, verifiers map[string]webhook.Verifier, deferred DeferredLister, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{engine: engine, verifiers: verifiers, deferred: deferred, logger: logger}
}

// Handle processes one provider delivery. The body is read once as raw
// bytes and verified before anything parses it; re-serializing JSON first
// would break the signature. After verification the response is 200 even
// when processing stumbles internally, so the provider doesn't retry
// forever against an endpoint that already has the event.
func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	providerName := chi.URLParam(r, "provider")

	verifier, ok := h.verifiers[providerName]
	if !ok {
		response.Error(w, http.StatusNotFound, "unknown provider")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		response.Error(w, http.StatusBadRequest, "unreadable body")
		return
	}

	if err := verifier.Verify(body, r.Header); err != nil {
		payment.WebhookAuthFailure(providerName)
		h.logger.Warn("webhook rejected: authentication failed",
			zap.String("provider", providerName),
			zap.String("remote_addr", r.RemoteAddr),
			zap.Error(err))
		response.Error(w, http.StatusUnauthorized, "signature verification failed")
		return
	}

	gw, err := h.engine.Gateway(providerName)
	if err != nil {
		response.Error(w, http.StatusNotFound, "unknown provider")
		return
	}

	ev, err := gw.ParseWebhook(body)
	if err != nil {
		// authenticated but unusable; log and acknowledge so the provider
		// stops retrying a payload we can never parse
		h.logger.Error("webhook payload unusable",
			zap.String("provider", providerName),
			zap.Error(err))
		response.JSON(w, http.StatusOK, map[string]string{"received": "true"})
		return
	}

	res := h.engine.Reconcile(r.Context(), ev)
	response.JSON(w, http.StatusOK, res)
}

// ListDeferred returns the oldest deferred events for operator review.
func (h *WebhookHandler) ListDeferred(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	events, err := h.deferred.ListDeferred(r.Context(), limit)
	if err != nil {
		h.logger.Error("deferred event listing failed", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "could not list deferred events")
		return
	}
	response.JSON(w, http.StatusOK, events)
}

// RetryDeferred re-verifies deferred events against their providers. Each
// one funnels through the normal reconcile path, so a retry can only move
// an order the same way a live webhook could.
func (h *WebhookHandler) RetryDeferred(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 || limit > 200 {
		limit = 20
	}
	events, err := h.deferred.ListDeferred(r.Context(), limit)
	if err != nil {
		h.logger.Error("deferred event listing failed", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "could not list deferred events")
		return
	}

	results := make([]domain.ReconcileResult, 0, len(events))
	for _, ev := range events {
		results = append(results, h.engine.VerifyPayment(r.Context(), ev.Provider, ev.Reference))
	}
	response.JSON(w, http.StatusOK, results)
}
