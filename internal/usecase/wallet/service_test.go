package wallet

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/ikayjohn/wingside-sub005/internal/domain"
)

// memStore is an in-memory LedgerStore honoring the same contract as the
// SQL repository: serialized mutation per wallet, idempotent replay on
// (category, ref), no overdraft.
type memStore struct {
	mu      sync.Mutex
	wallets map[string]*domain.Wallet
	txs     map[string][]*domain.WalletTransaction // by userID, newest last
	byRef   map[string]*domain.WalletTransaction
	nextID  int
}

func newMemStore() *memStore {
	return &memStore{
		wallets: make(map[string]*domain.Wallet),
		txs:     make(map[string][]*domain.WalletTransaction),
		byRef:   make(map[string]*domain.WalletTransaction),
	}
}

func (m *memStore) GetOrCreateWallet(ctx context.Context, userID string) (*domain.Wallet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.walletLocked(userID), nil
}

func (m *memStore) walletLocked(userID string) *domain.Wallet {
	w, ok := m.wallets[userID]
	if !ok {
		w = &domain.Wallet{ID: "w-" + userID, UserID: userID, Currency: "NGN"}
		m.wallets[userID] = w
	}
	return w
}

func (m *memStore) ApplyTransaction(ctx context.Context, p domain.ApplyParams) (*domain.WalletTransaction, error) {
	if p.Amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	w := m.walletLocked(p.UserID)
	if p.RefID != nil {
		if prev, ok := m.byRef[w.ID+":"+p.Category+":"+*p.RefID]; ok {
			return prev, nil
		}
	}
	if p.Direction == domain.DirectionDebit && w.Balance < p.Amount {
		return nil, domain.ErrInsufficientBalance
	}

	if p.Direction == domain.DirectionDebit {
		w.Balance -= p.Amount
	} else {
		w.Balance += p.Amount
	}
	m.nextID++
	tx := &domain.WalletTransaction{
		ID:           fmt.Sprintf("tx-%04d", m.nextID),
		WalletID:     w.ID,
		UserID:       p.UserID,
		Currency:     w.Currency,
		Direction:    p.Direction,
		Amount:       p.Amount,
		BalanceAfter: w.Balance,
		Category:     p.Category,
		Description:  p.Description,
		TxStatus:     domain.TxStatusCompleted,
		RefID:        p.RefID,
		OrderID:      p.OrderID,
	}
	m.txs[p.UserID] = append(m.txs[p.UserID], tx)
	if p.RefID != nil {
		m.byRef[w.ID+":"+p.Category+":"+*p.RefID] = tx
	}
	return tx, nil
}

func (m *memStore) Reverse(ctx context.Context, transactionID, description string) (*domain.WalletTransaction, error) {
	m.mu.Lock()
	var orig *domain.WalletTransaction
	for _, list := range m.txs {
		for _, tx := range list {
			if tx.ID == transactionID {
				orig = tx
			}
		}
	}
	m.mu.Unlock()
	if orig == nil {
		return nil, domain.ErrTransactionNotFound
	}

	dir := domain.DirectionCredit
	if orig.Direction == domain.DirectionCredit {
		dir = domain.DirectionDebit
	}
	ref := "RVS-" + orig.ID
	tx, err := m.ApplyTransaction(ctx, domain.ApplyParams{
		UserID:      orig.UserID,
		Direction:   dir,
		Amount:      orig.Amount,
		Category:    domain.CategoryCardRefund,
		Description: description,
		RefID:       &ref,
	})
	if err != nil {
		return nil, err
	}
	orig.TxStatus = domain.TxStatusReversed
	return tx, nil
}

func (m *memStore) ListTransactions(ctx context.Context, userID string, limit, offset int) ([]*domain.WalletTransaction, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := m.txs[userID]
	total := int64(len(all))
	// newest first
	out := make([]*domain.WalletTransaction, 0, limit)
	for i := len(all) - 1 - offset; i >= 0 && len(out) < limit; i-- {
		out = append(out, all[i])
	}
	return out, total, nil
}

func newTestService() (*Service, *memStore) {
	store := newMemStore()
	return New(store, NewNotifier(zap.NewNop()), zap.NewNop()), store
}

func TestBalanceChain(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	tx1, err := svc.Credit(ctx, domain.ApplyParams{UserID: "u1", Amount: 10000, Category: domain.CategoryReferralReward})
	assert.NoError(t, err)
	assert.Equal(t, int64(10000), tx1.BalanceAfter)

	tx2, err := svc.Debit(ctx, domain.ApplyParams{UserID: "u1", Amount: 4000, Category: domain.CategoryOrderPayment})
	assert.NoError(t, err)
	assert.Equal(t, int64(6000), tx2.BalanceAfter)
	assert.Equal(t, tx1.BalanceAfter+tx2.Signed(), tx2.BalanceAfter)

	w, err := svc.GetWallet(ctx, "u1")
	assert.NoError(t, err)
	assert.Equal(t, int64(6000), w.Balance)
}

func TestCreditIdempotentOnReference(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	ref := "PTS-WS-42"
	p := domain.ApplyParams{UserID: "u1", Amount: 2500, Category: domain.CategoryPurchasePoints, RefID: &ref}

	first, err := svc.Credit(ctx, p)
	assert.NoError(t, err)

	second, err := svc.Credit(ctx, p)
	assert.NoError(t, err)
	assert.Equal(t, first.ID, second.ID, "replay returns the original row")
	assert.Equal(t, first.BalanceAfter, second.BalanceAfter)

	_, total, _ := store.ListTransactions(ctx, "u1", 10, 0)
	assert.Equal(t, int64(1), total)

	w, _ := svc.GetWallet(ctx, "u1")
	assert.Equal(t, int64(2500), w.Balance)
}

func TestConcurrentDebitsNeverOverdraw(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Credit(ctx, domain.ApplyParams{UserID: "u1", Amount: 10000, Category: domain.CategoryAdjustment})
	assert.NoError(t, err)

	// two 6000 debits against 10000: exactly one may succeed
	errs := make(chan error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ref := fmt.Sprintf("ORD-%d", i)
			_, err := svc.Debit(ctx, domain.ApplyParams{
				UserID: "u1", Amount: 6000,
				Category: domain.CategoryOrderPayment, RefID: &ref,
			})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)

	var declined int
	for err := range errs {
		if err != nil {
			assert.ErrorIs(t, err, domain.ErrInsufficientBalance)
			declined++
		}
	}
	assert.Equal(t, 1, declined)

	w, _ := svc.GetWallet(ctx, "u1")
	assert.Equal(t, int64(4000), w.Balance)
}

func TestDebitInsufficientBalance(t *testing.T) {
	svc, _ := newTestService()
	_, err := svc.Debit(context.Background(), domain.ApplyParams{
		UserID: "empty", Amount: 100, Category: domain.CategoryOrderPayment,
	})
	assert.ErrorIs(t, err, domain.ErrInsufficientBalance)
}

func TestInvalidAmountRejected(t *testing.T) {
	svc, _ := newTestService()
	for _, amount := range []int64{0, -500} {
		_, err := svc.Credit(context.Background(), domain.ApplyParams{
			UserID: "u1", Amount: amount, Category: domain.CategoryAdjustment,
		})
		assert.ErrorIs(t, err, domain.ErrInvalidAmount)
	}
}

func TestReverseOffsetsOriginal(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	orig, err := svc.Credit(ctx, domain.ApplyParams{UserID: "u1", Amount: 7000, Category: domain.CategoryCardPayment})
	assert.NoError(t, err)

	offset, err := svc.Reverse(ctx, orig.ID, "card refund")
	assert.NoError(t, err)
	assert.Equal(t, domain.DirectionDebit, offset.Direction)
	assert.Equal(t, orig.Amount, offset.Amount)
	assert.Equal(t, int64(0), offset.BalanceAfter)

	w, _ := svc.GetWallet(ctx, "u1")
	assert.Equal(t, int64(0), w.Balance)
}

func TestHistoryClampsLimit(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	for i := 0; i < 30; i++ {
		_, err := store.ApplyTransaction(ctx, domain.ApplyParams{
			UserID: "u1", Direction: domain.DirectionCredit,
			Amount: 100, Category: domain.CategoryAdjustment,
		})
		assert.NoError(t, err)
	}

	txs, total, err := svc.History(ctx, "u1", 0, 0)
	assert.NoError(t, err)
	assert.Equal(t, int64(30), total)
	assert.Len(t, txs, 20, "zero limit falls back to the default page size")

	txs, _, _ = svc.History(ctx, "u1", 500, 0)
	assert.Len(t, txs, 20, "oversized limit is clamped to the default page size")
}
