package payment

import (
	"context"
	"time"

	"github.com/ikayjohn/wingside-sub005/internal/domain"
)

type OrderStore interface {
	GetOrderByID(ctx context.Context, id string) (*domain.Order, error)
	GetOrderByPaymentReference(ctx context.Context, reference string) (*domain.Order, error)
	AttachPaymentSession(ctx context.Context, orderID, gateway, reference string) error
	MarkPaid(ctx context.Context, orderID string, paidAt time.Time) (bool, error)
	MarkFailed(ctx context.Context, orderID string) (bool, error)
	CountPaidOrders(ctx context.Context, userID string) (int64, error)
}

// Ledger is the slice of the wallet service the engine needs. Credits are
// loyalty side effects; debits fund wallet-paid orders.
type Ledger interface {
	Credit(ctx context.Context, p domain.ApplyParams) (*domain.WalletTransaction, error)
	Debit(ctx context.Context, p domain.ApplyParams) (*domain.WalletTransaction, error)
}

type EventAudit interface {
	RecordEvent(ctx context.Context, ev *domain.NormalizedEvent, outcome, reason string) error
}

// DedupeCache short-circuits byte-identical webhook re-deliveries. It is an
// optimization only; the ledger unique constraint and the conditional order
// updates remain the authoritative guards, so cache errors are ignored.
type DedupeCache interface {
	Seen(ctx context.Context, key string) (outcome string, ok bool)
	Remember(ctx context.Context, key, outcome string)
}

// ConfirmationSender hands a paid order to the notification collaborator.
// Delivery failure never rolls back payment state.
type ConfirmationSender interface {
	OrderPaid(ctx context.Context, order *domain.Order)
}
