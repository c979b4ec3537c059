package payment

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/ikayjohn/wingside-sub005/internal/domain"
	"github.com/ikayjohn/wingside-sub005/internal/provider"
)

const (
	verifyTimeout = 5 * time.Second

	firstOrderBonusKobo = 50000 // ₦500 welcome credit on the first paid order
)

// Service is the reconciliation engine. It owns every order payment-status
// transition; the ledger is only touched through the wallet service's
// idempotent mutator. All entry paths (webhooks, client verify polls,
// wallet pay) funnel through the same code so they can never disagree.
type Service struct {
	orders   OrderStore
	ledger   Ledger
	gateways map[string]provider.Gateway
	audit    EventAudit
	cache    DedupeCache
	confirm  ConfirmationSender
	logger   *zap.Logger
}

func New(
	orders OrderStore,
	ledger Ledger,
	gateways []provider.Gateway,
	audit EventAudit,
	cache DedupeCache,
	confirm ConfirmationSender,
	logger *zap.Logger,
) *Service {
	m := make(map[string]provider.Gateway)
	for _, gw := range gateways {
		m[gw.Name()] = gw
	}
	return &Service{
		orders:   orders,
		ledger:   ledger,
		gateways: m,
		audit:    audit,
		cache:    cache,
		confirm:  confirm,
		logger:   logger,
	}
}

func (s *Service) Gateway(name string) (provider.Gateway, error) {
	gw, ok := s.gateways[name]
	if !ok {
		return nil, domain.ErrProviderNotFound
	}
	return gw, nil
}

// InitializeCheckout opens (or reuses) a gateway session for an order and
// binds the session reference to it.
func (s *Service) InitializeCheckout(ctx context.Context, orderID, gatewayName string, cust provider.Customer) (*provider.Session, error) {
	order, err := s.orders.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.IsPaid() {
		return nil, domain.ErrOrderAlreadyPaid
	}

	gw, err := s.Gateway(gatewayName)
	if err != nil {
		return nil, err
	}

	sess, err := gw.InitializeSession(ctx, order, cust)
	if err != nil {
		return nil, err
	}

	if sess.AlreadyPaid {
		// provider already settled this session; pull the order up to date
		// through the normal path instead of trusting the init response
		s.VerifyPayment(ctx, gatewayName, sess.Reference)
		return sess, nil
	}

	if err := s.orders.AttachPaymentSession(ctx, order.ID, gw.Name(), sess.Reference); err != nil {
		return nil, err
	}

	s.logger.Info("checkout session initialized",
		zap.String("order_id", order.ID),
		zap.String("gateway", gw.Name()),
		zap.String("reference", sess.Reference))
	return sess, nil
}

// VerifyPayment polls the gateway for a reference and reconciles the result.
// The provider call runs under its own bounded timeout and never holds any
// lock; a timeout yields Deferred, not a failure, because an unreachable
// provider proves nothing about the payment.
func (s *Service) VerifyPayment(ctx context.Context, gatewayName, reference string) domain.ReconcileResult {
	gw, err := s.Gateway(gatewayName)
	if err != nil {
		return domain.ReconcileResult{Outcome: domain.OutcomeRejected, Reason: "unknown gateway " + gatewayName}
	}

	vctx, cancel := context.WithTimeout(ctx, verifyTimeout)
	ev, err := gw.VerifyTransaction(vctx, reference)
	cancel()
	if err != nil {
		s.logger.Warn("gateway verification unavailable",
			zap.String("gateway", gatewayName),
			zap.String("reference", reference),
			zap.Error(err))
		return domain.ReconcileResult{Outcome: domain.OutcomeDeferred, Reason: "provider verification unavailable"}
	}

	return s.Reconcile(ctx, ev)
}

// Reconcile maps a verified, normalized provider event onto order and
// ledger state. Every branch is safe to run any number of times with the
// same event.
func (s *Service) Reconcile(ctx context.Context, ev *domain.NormalizedEvent) domain.ReconcileResult {
	start := time.Now()
	res := s.reconcile(ctx, ev)
	reconcileDuration.WithLabelValues(ev.Provider).Observe(time.Since(start).Seconds())
	reconcileOutcomes.WithLabelValues(ev.Provider, res.Outcome).Inc()

	if s.audit != nil {
		if err := s.audit.RecordEvent(ctx, ev, res.Outcome, res.Reason); err != nil {
			s.logger.Error("event audit write failed", zap.Error(err),
				zap.String("reference", ev.Reference))
		}
	}
	return res
}

func (s *Service) reconcile(ctx context.Context, ev *domain.NormalizedEvent) domain.ReconcileResult {
	cacheKey := ev.Provider + ":" + ev.Reference + ":" + ev.ProviderRawStatus
	if s.cache != nil {
		if outcome, ok := s.cache.Seen(ctx, cacheKey); ok &&
			(outcome == domain.OutcomeApplied || outcome == domain.OutcomeAlreadyApplied) {
			return domain.ReconcileResult{Outcome: domain.OutcomeAlreadyApplied}
		}
	}

	order, err := s.orders.GetOrderByPaymentReference(ctx, ev.Reference)
	if errors.Is(err, domain.ErrOrderNotFound) {
		// stale reference or environment mismatch; must never pass silently
		s.logger.Error("payment event for unknown order",
			zap.String("provider", ev.Provider),
			zap.String("reference", ev.Reference),
			zap.String("raw_status", ev.ProviderRawStatus))
		return domain.ReconcileResult{Outcome: domain.OutcomeRejected, Reason: "order not found"}
	}
	if err != nil {
		return domain.ReconcileResult{Outcome: domain.OutcomeDeferred, Reason: "order lookup unavailable"}
	}

	if order.IsPaid() {
		s.remember(ctx, cacheKey, domain.OutcomeAlreadyApplied)
		return domain.ReconcileResult{Outcome: domain.OutcomeAlreadyApplied, Order: order}
	}

	switch ev.StatusCategory {
	case domain.StatusSucceeded:
		return s.applySuccess(ctx, order, ev, cacheKey)

	case domain.StatusFailed:
		applied, err := s.orders.MarkFailed(ctx, order.ID)
		if err != nil {
			return domain.ReconcileResult{Outcome: domain.OutcomeDeferred, Reason: "order update unavailable"}
		}
		if !applied {
			return domain.ReconcileResult{Outcome: domain.OutcomeAlreadyApplied, Order: order}
		}
		s.logger.Info("payment failed",
			zap.String("order_id", order.ID),
			zap.String("provider", ev.Provider),
			zap.String("raw_status", ev.ProviderRawStatus))
		return domain.ReconcileResult{Outcome: domain.OutcomeApplied, Order: order}

	case domain.StatusPending:
		return domain.ReconcileResult{Outcome: domain.OutcomeDeferred, Reason: "provider reports pending", Order: order}

	default:
		// unrecognized provider status: hold for operator review, never
		// guess toward success
		s.logger.Warn("unrecognized provider status, deferring",
			zap.String("order_id", order.ID),
			zap.String("provider", ev.Provider),
			zap.String("raw_status", ev.ProviderRawStatus))
		return domain.ReconcileResult{Outcome: domain.OutcomeDeferred, Reason: "unrecognized provider status", Order: order}
	}
}

func (s *Service) applySuccess(ctx context.Context, order *domain.Order, ev *domain.NormalizedEvent, cacheKey string) domain.ReconcileResult {
	if ev.AmountMinor > 0 && ev.AmountMinor != order.TotalAmount {
		s.logger.Warn("event amount does not match order, deferring",
			zap.String("order_id", order.ID),
			zap.Int64("event_amount", ev.AmountMinor),
			zap.Int64("order_amount", order.TotalAmount))
		return domain.ReconcileResult{Outcome: domain.OutcomeDeferred, Reason: "amount mismatch", Order: order}
	}

	paidAt := ev.OccurredAt
	if paidAt.IsZero() {
		paidAt = time.Now()
	}
	applied, err := s.orders.MarkPaid(ctx, order.ID, paidAt)
	if err != nil {
		return domain.ReconcileResult{Outcome: domain.OutcomeDeferred, Reason: "order update unavailable"}
	}
	if !applied {
		// a concurrent delivery won the transition
		s.remember(ctx, cacheKey, domain.OutcomeAlreadyApplied)
		return domain.ReconcileResult{Outcome: domain.OutcomeAlreadyApplied, Order: order}
	}

	order.PaymentStatus = domain.PaymentStatusPaid
	order.OrderStatus = domain.OrderStatusConfirmed
	order.PaidAt = &paidAt

	s.logger.Info("payment applied",
		zap.String("order_id", order.ID),
		zap.String("order_number", order.OrderNumber),
		zap.String("provider", ev.Provider),
		zap.String("reference", ev.Reference),
		zap.Int64("amount", order.TotalAmount))

	s.afterPaid(ctx, order)
	s.remember(ctx, cacheKey, domain.OutcomeApplied)
	return domain.ReconcileResult{Outcome: domain.OutcomeApplied, Order: order}
}

// PayWithWallet funds an order from the customer's wallet balance. The debit
// reference doubles as the order's payment reference so the paid-order
// invariant holds for wallet-funded orders too.
func (s *Service) PayWithWallet(ctx context.Context, orderID, userID string) (*domain.Order, error) {
	order, err := s.orders.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, domain.ErrOrderNotFound
	}
	if order.IsPaid() {
		return order, nil
	}

	ref := "WLT-" + order.OrderNumber
	if err := s.orders.AttachPaymentSession(ctx, order.ID, domain.GatewayWallet, ref); err != nil {
		return nil, err
	}

	_, err = s.ledger.Debit(ctx, domain.ApplyParams{
		UserID:      order.UserID,
		Amount:      order.TotalAmount,
		Category:    domain.CategoryOrderPayment,
		Description: "Payment for order " + order.OrderNumber,
		RefID:       &ref,
		OrderID:     &order.ID,
	})
	if err != nil {
		return nil, err
	}

	now := time.Now()
	applied, err := s.orders.MarkPaid(ctx, order.ID, now)
	if err != nil {
		return nil, err
	}
	order.PaymentStatus = domain.PaymentStatusPaid
	order.OrderStatus = domain.OrderStatusConfirmed
	order.PaidAt = &now

	s.logger.Info("order paid from wallet",
		zap.String("order_id", order.ID),
		zap.String("order_number", order.OrderNumber),
		zap.Int64("amount", order.TotalAmount))

	if applied {
		s.afterPaid(ctx, order)
	}
	return order, nil
}

// afterPaid runs the post-payment side effects: loyalty credits and the
// confirmation notification. All of it is best effort; the payment already
// happened and nothing here may undo it. The credits go through the
// idempotent mutator, so a crashed retry can't double-award.
func (s *Service) afterPaid(ctx context.Context, order *domain.Order) {
	if points := order.TotalAmount / 100; points > 0 {
		ref := "PTS-" + order.OrderNumber
		if _, err := s.ledger.Credit(ctx, domain.ApplyParams{
			UserID:      order.UserID,
			Amount:      points,
			Category:    domain.CategoryPurchasePoints,
			Description: "Points for order " + order.OrderNumber,
			RefID:       &ref,
			OrderID:     &order.ID,
		}); err != nil {
			s.logger.Error("purchase points credit failed",
				zap.String("order_id", order.ID), zap.Error(err))
		}
	}

	if n, err := s.orders.CountPaidOrders(ctx, order.UserID); err == nil && n == 1 {
		ref := "FOB-" + order.UserID
		if _, err := s.ledger.Credit(ctx, domain.ApplyParams{
			UserID:      order.UserID,
			Amount:      firstOrderBonusKobo,
			Category:    domain.CategoryFirstOrderBonus,
			Description: "First order bonus",
			RefID:       &ref,
		}); err != nil {
			s.logger.Error("first order bonus credit failed",
				zap.String("user_id", order.UserID), zap.Error(err))
		}
	}

	if s.confirm != nil {
		s.confirm.OrderPaid(ctx, order)
	}
}

func (s *Service) remember(ctx context.Context, key, outcome string) {
	if s.cache != nil {
		s.cache.Remember(ctx, key, outcome)
	}
}
