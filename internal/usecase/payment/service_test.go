package payment

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/ikayjohn/wingside-sub005/internal/domain"
	"github.com/ikayjohn/wingside-sub005/internal/provider"
)

// fakeOrderStore keeps orders in memory with the same conditional
// transition semantics as the SQL repository.
type fakeOrderStore struct {
	mu     sync.Mutex
	orders map[string]*domain.Order
}

func newFakeOrderStore(orders ...*domain.Order) *fakeOrderStore {
	s := &fakeOrderStore{orders: make(map[string]*domain.Order)}
	for _, o := range orders {
		s.orders[o.ID] = o
	}
	return s
}

func (s *fakeOrderStore) GetOrderByID(ctx context.Context, id string) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

func (s *fakeOrderStore) GetOrderByPaymentReference(ctx context.Context, ref string) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.orders {
		if o.PaymentReference != nil && *o.PaymentReference == ref {
			cp := *o
			return &cp, nil
		}
	}
	return nil, domain.ErrOrderNotFound
}

func (s *fakeOrderStore) AttachPaymentSession(ctx context.Context, orderID, gateway, reference string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[orderID]
	if !ok {
		return domain.ErrOrderNotFound
	}
	if o.PaymentStatus == domain.PaymentStatusPaid {
		return domain.ErrOrderAlreadyPaid
	}
	o.PaymentGateway = &gateway
	o.PaymentReference = &reference
	o.PaymentStatus = domain.PaymentStatusPending
	return nil
}

func (s *fakeOrderStore) MarkPaid(ctx context.Context, orderID string, paidAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[orderID]
	if !ok || o.PaymentStatus == domain.PaymentStatusPaid {
		return false, nil
	}
	o.PaymentStatus = domain.PaymentStatusPaid
	o.OrderStatus = domain.OrderStatusConfirmed
	o.PaidAt = &paidAt
	return true, nil
}

func (s *fakeOrderStore) MarkFailed(ctx context.Context, orderID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[orderID]
	if !ok || o.PaymentStatus == domain.PaymentStatusPaid {
		return false, nil
	}
	o.PaymentStatus = domain.PaymentStatusFailed
	o.OrderStatus = domain.OrderStatusCancelled
	return true, nil
}

func (s *fakeOrderStore) CountPaidOrders(ctx context.Context, userID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, o := range s.orders {
		if o.UserID == userID && o.PaymentStatus == domain.PaymentStatusPaid {
			n++
		}
	}
	return n, nil
}

// fakeLedger honors the idempotent-reference contract of the real mutator.
type fakeLedger struct {
	mu      sync.Mutex
	balance int64
	applied map[string]*domain.WalletTransaction
	txs     []*domain.WalletTransaction
}

func newFakeLedger(balance int64) *fakeLedger {
	return &fakeLedger{balance: balance, applied: make(map[string]*domain.WalletTransaction)}
}

func (l *fakeLedger) apply(p domain.ApplyParams) (*domain.WalletTransaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if p.RefID != nil {
		if tx, ok := l.applied[p.Category+":"+*p.RefID]; ok {
			return tx, nil
		}
	}
	if p.Direction == domain.DirectionDebit && l.balance < p.Amount {
		return nil, domain.ErrInsufficientBalance
	}
	if p.Direction == domain.DirectionDebit {
		l.balance -= p.Amount
	} else {
		l.balance += p.Amount
	}
	tx := &domain.WalletTransaction{
		ID:           "tx-" + p.Category,
		UserID:       p.UserID,
		Direction:    p.Direction,
		Amount:       p.Amount,
		BalanceAfter: l.balance,
		Category:     p.Category,
		RefID:        p.RefID,
		TxStatus:     domain.TxStatusCompleted,
	}
	if p.RefID != nil {
		l.applied[p.Category+":"+*p.RefID] = tx
	}
	l.txs = append(l.txs, tx)
	return tx, nil
}

func (l *fakeLedger) Credit(ctx context.Context, p domain.ApplyParams) (*domain.WalletTransaction, error) {
	p.Direction = domain.DirectionCredit
	return l.apply(p)
}

func (l *fakeLedger) Debit(ctx context.Context, p domain.ApplyParams) (*domain.WalletTransaction, error) {
	p.Direction = domain.DirectionDebit
	return l.apply(p)
}

func (l *fakeLedger) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.txs)
}

type fakeGateway struct {
	name  string
	event *domain.NormalizedEvent
	err   error
}

func (g *fakeGateway) Name() string { return g.name }

func (g *fakeGateway) InitializeSession(ctx context.Context, order *domain.Order, cust provider.Customer) (*provider.Session, error) {
	return &provider.Session{Reference: "REF-" + order.OrderNumber}, nil
}

func (g *fakeGateway) VerifyTransaction(ctx context.Context, reference string) (*domain.NormalizedEvent, error) {
	if g.err != nil {
		return nil, g.err
	}
	return g.event, nil
}

func (g *fakeGateway) ParseWebhook(body []byte) (*domain.NormalizedEvent, error) {
	return g.event, nil
}

func strPtr(s string) *string { return &s }

func pendingOrder(ref string) *domain.Order {
	gw := domain.GatewayKorapay
	return &domain.Order{
		ID:               "ord-1",
		OrderNumber:      "WS-0001",
		UserID:           "user-1",
		CustomerEmail:    "c@example.com",
		TotalAmount:      500000,
		Currency:         "NGN",
		PaymentGateway:   &gw,
		PaymentReference: strPtr(ref),
		PaymentStatus:    domain.PaymentStatusPending,
		OrderStatus:      domain.OrderStatusPending,
	}
}

func succeededEvent(ref string, amount int64) *domain.NormalizedEvent {
	return &domain.NormalizedEvent{
		Provider:          domain.GatewayKorapay,
		Reference:         ref,
		StatusCategory:    domain.StatusSucceeded,
		AmountMinor:       amount,
		ProviderRawStatus: "success",
		OccurredAt:        time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC),
	}
}

func newEngine(orders OrderStore, ledger Ledger, gateways ...provider.Gateway) *Service {
	return New(orders, ledger, gateways, nil, nil, nil, zap.NewNop())
}

func TestReconcileOrderNotFound(t *testing.T) {
	engine := newEngine(newFakeOrderStore(), newFakeLedger(0))

	res := engine.Reconcile(context.Background(), succeededEvent("missing-ref", 500000))
	assert.Equal(t, domain.OutcomeRejected, res.Outcome)
	assert.Equal(t, "order not found", res.Reason)
}

func TestReconcileSuccessThenRetries(t *testing.T) {
	orders := newFakeOrderStore(pendingOrder("kpy-ref"))
	ledger := newFakeLedger(0)
	engine := newEngine(orders, ledger)

	ev := succeededEvent("kpy-ref", 500000)

	res := engine.Reconcile(context.Background(), ev)
	assert.Equal(t, domain.OutcomeApplied, res.Outcome)

	got, _ := orders.GetOrderByID(context.Background(), "ord-1")
	assert.Equal(t, domain.PaymentStatusPaid, got.PaymentStatus)
	assert.Equal(t, domain.OrderStatusConfirmed, got.OrderStatus)
	assert.NotNil(t, got.PaidAt)
	firstPaidAt := *got.PaidAt

	// identical webhook retried three more times
	for i := 0; i < 3; i++ {
		res := engine.Reconcile(context.Background(), ev)
		assert.Equal(t, domain.OutcomeAlreadyApplied, res.Outcome)
	}

	got, _ = orders.GetOrderByID(context.Background(), "ord-1")
	assert.Equal(t, firstPaidAt, *got.PaidAt, "paid_at must be set once")

	// one purchase-points credit and one first-order bonus, no duplicates
	assert.Equal(t, 2, ledger.count())
}

func TestReconcileFailedAfterPaidKeepsPaid(t *testing.T) {
	orders := newFakeOrderStore(pendingOrder("kpy-ref"))
	engine := newEngine(orders, newFakeLedger(0))

	res := engine.Reconcile(context.Background(), succeededEvent("kpy-ref", 500000))
	assert.Equal(t, domain.OutcomeApplied, res.Outcome)

	failed := succeededEvent("kpy-ref", 500000)
	failed.StatusCategory = domain.StatusFailed
	failed.ProviderRawStatus = "failed"

	res = engine.Reconcile(context.Background(), failed)
	assert.Equal(t, domain.OutcomeAlreadyApplied, res.Outcome)

	got, _ := orders.GetOrderByID(context.Background(), "ord-1")
	assert.Equal(t, domain.PaymentStatusPaid, got.PaymentStatus)
}

func TestReconcileFailedCancelsOrder(t *testing.T) {
	orders := newFakeOrderStore(pendingOrder("kpy-ref"))
	engine := newEngine(orders, newFakeLedger(0))

	ev := succeededEvent("kpy-ref", 500000)
	ev.StatusCategory = domain.StatusFailed
	ev.ProviderRawStatus = "failed"

	res := engine.Reconcile(context.Background(), ev)
	assert.Equal(t, domain.OutcomeApplied, res.Outcome)

	got, _ := orders.GetOrderByID(context.Background(), "ord-1")
	assert.Equal(t, domain.PaymentStatusFailed, got.PaymentStatus)
	assert.Equal(t, domain.OrderStatusCancelled, got.OrderStatus)
}

func TestReconcileUnknownStatusNeverCredits(t *testing.T) {
	orders := newFakeOrderStore(pendingOrder("kpy-ref"))
	ledger := newFakeLedger(0)
	engine := newEngine(orders, ledger)

	ev := succeededEvent("kpy-ref", 500000)
	ev.StatusCategory = domain.StatusUnknown
	ev.ProviderRawStatus = "SUCCESSISH"

	res := engine.Reconcile(context.Background(), ev)
	assert.Equal(t, domain.OutcomeDeferred, res.Outcome)

	got, _ := orders.GetOrderByID(context.Background(), "ord-1")
	assert.Equal(t, domain.PaymentStatusPending, got.PaymentStatus)
	assert.Zero(t, ledger.count())
}

func TestReconcileAmountMismatchDefers(t *testing.T) {
	orders := newFakeOrderStore(pendingOrder("kpy-ref"))
	engine := newEngine(orders, newFakeLedger(0))

	res := engine.Reconcile(context.Background(), succeededEvent("kpy-ref", 400000))
	assert.Equal(t, domain.OutcomeDeferred, res.Outcome)
	assert.Equal(t, "amount mismatch", res.Reason)

	got, _ := orders.GetOrderByID(context.Background(), "ord-1")
	assert.Equal(t, domain.PaymentStatusPending, got.PaymentStatus)
}

func TestVerifyPaymentTimeoutDefers(t *testing.T) {
	orders := newFakeOrderStore(pendingOrder("kpy-ref"))
	gw := &fakeGateway{name: domain.GatewayKorapay, err: context.DeadlineExceeded}
	engine := newEngine(orders, newFakeLedger(0), gw)

	res := engine.VerifyPayment(context.Background(), domain.GatewayKorapay, "kpy-ref")
	assert.Equal(t, domain.OutcomeDeferred, res.Outcome)

	// a timeout is not proof of failure
	got, _ := orders.GetOrderByID(context.Background(), "ord-1")
	assert.Equal(t, domain.PaymentStatusPending, got.PaymentStatus)
}

func TestVerifyPaymentUnknownGateway(t *testing.T) {
	engine := newEngine(newFakeOrderStore(), newFakeLedger(0))
	res := engine.VerifyPayment(context.Background(), "nopay", "ref")
	assert.Equal(t, domain.OutcomeRejected, res.Outcome)
}

func TestPayWithWalletInsufficientBalance(t *testing.T) {
	order := pendingOrder("old-ref")
	order.TotalAmount = 5000
	orders := newFakeOrderStore(order)
	ledger := newFakeLedger(3000)
	engine := newEngine(orders, ledger)

	_, err := engine.PayWithWallet(context.Background(), "ord-1", "user-1")
	assert.ErrorIs(t, err, domain.ErrInsufficientBalance)

	got, _ := orders.GetOrderByID(context.Background(), "ord-1")
	assert.NotEqual(t, domain.PaymentStatusPaid, got.PaymentStatus)
	assert.Equal(t, int64(3000), ledger.balance)
}

func TestPayWithWalletSuccess(t *testing.T) {
	order := pendingOrder("old-ref")
	order.TotalAmount = 5000
	orders := newFakeOrderStore(order)
	ledger := newFakeLedger(10000)
	engine := newEngine(orders, ledger)

	paid, err := engine.PayWithWallet(context.Background(), "ord-1", "user-1")
	assert.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusPaid, paid.PaymentStatus)

	got, _ := orders.GetOrderByID(context.Background(), "ord-1")
	assert.Equal(t, domain.PaymentStatusPaid, got.PaymentStatus)
	assert.NotNil(t, got.PaymentReference)
	assert.Equal(t, "WLT-WS-0001", *got.PaymentReference)

	// debit applied once; calling again is a no-op
	_, err = engine.PayWithWallet(context.Background(), "ord-1", "user-1")
	assert.NoError(t, err)

	var debits int
	for _, tx := range ledger.txs {
		if tx.Direction == domain.DirectionDebit {
			debits++
		}
	}
	assert.Equal(t, 1, debits)
}

func TestPayWithWalletWrongUser(t *testing.T) {
	orders := newFakeOrderStore(pendingOrder("ref"))
	engine := newEngine(orders, newFakeLedger(1000000))

	_, err := engine.PayWithWallet(context.Background(), "ord-1", "someone-else")
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
}

func TestInitializeCheckoutAttachesSession(t *testing.T) {
	order := pendingOrder("stale")
	order.PaymentReference = nil
	order.PaymentGateway = nil
	order.PaymentStatus = domain.PaymentStatusUnpaid
	orders := newFakeOrderStore(order)
	gw := &fakeGateway{name: domain.GatewayKorapay}
	engine := newEngine(orders, newFakeLedger(0), gw)

	sess, err := engine.InitializeCheckout(context.Background(), "ord-1", domain.GatewayKorapay, provider.Customer{Email: "c@example.com"})
	assert.NoError(t, err)
	assert.Equal(t, "REF-WS-0001", sess.Reference)

	got, _ := orders.GetOrderByID(context.Background(), "ord-1")
	assert.Equal(t, domain.PaymentStatusPending, got.PaymentStatus)
	assert.Equal(t, "REF-WS-0001", *got.PaymentReference)
}

func TestInitializeCheckoutPaidOrderRefused(t *testing.T) {
	order := pendingOrder("ref")
	order.PaymentStatus = domain.PaymentStatusPaid
	engine := newEngine(newFakeOrderStore(order), newFakeLedger(0), &fakeGateway{name: domain.GatewayKorapay})

	_, err := engine.InitializeCheckout(context.Background(), "ord-1", domain.GatewayKorapay, provider.Customer{})
	assert.ErrorIs(t, err, domain.ErrOrderAlreadyPaid)
}

func TestReconcileConcurrentDeliveriesSingleApply(t *testing.T) {
	orders := newFakeOrderStore(pendingOrder("kpy-ref"))
	ledger := newFakeLedger(0)
	engine := newEngine(orders, ledger)

	ev := succeededEvent("kpy-ref", 500000)

	var wg sync.WaitGroup
	outcomes := make([]string, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outcomes[i] = engine.Reconcile(context.Background(), ev).Outcome
		}(i)
	}
	wg.Wait()

	var applied int
	for _, o := range outcomes {
		if o == domain.OutcomeApplied {
			applied++
		} else {
			assert.Equal(t, domain.OutcomeAlreadyApplied, o)
		}
	}
	assert.Equal(t, 1, applied, "exactly one delivery transitions the order")
}
