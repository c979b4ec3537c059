package wallet

import (
	"context"

	"github.com/ikayjohn/wingside-sub005/internal/domain"
)

// LedgerStore is the storage contract the service runs on. The production
// implementation is repository.WalletRepository; tests substitute an
// in-memory store honoring the same atomicity and idempotency contract.
type LedgerStore interface {
	GetOrCreateWallet(ctx context.Context, userID string) (*domain.Wallet, error)
	ApplyTransaction(ctx context.Context, p domain.ApplyParams) (*domain.WalletTransaction, error)
	Reverse(ctx context.Context, transactionID, description string) (*domain.WalletTransaction, error)
	ListTransactions(ctx context.Context, userID string, limit, offset int) ([]*domain.WalletTransaction, int64, error)
}
