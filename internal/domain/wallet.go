package domain

import (
	"time"
)

// All amounts are NGN minor units (kobo), stored as int64. Balance is the
// balance_after snapshot of the newest completed transaction; the wallets
// row keeps a denormalized copy maintained inside the same mutation.
type Wallet struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Currency  string    `json:"currency"`
	Balance   int64     `json:"balance"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type WalletTransaction struct {
	ID           string            `json:"id"`
	WalletID     string            `json:"wallet_id"`
	UserID       string            `json:"user_id"`
	Currency     string            `json:"currency"`
	Direction    string            `json:"direction"` // "credit" or "debit"
	Amount       int64             `json:"amount"`
	BalanceAfter int64             `json:"balance_after"`
	Category     string            `json:"category"`
	Description  string            `json:"description"`
	TxStatus     string            `json:"tx_status"`
	RefID        *string           `json:"ref_id,omitempty"` // external idempotency anchor
	OrderID      *string           `json:"order_id,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
}

const (
	DirectionCredit = "credit"
	DirectionDebit  = "debit"

	TxStatusPending   = "pending"
	TxStatusCompleted = "completed"
	TxStatusFailed    = "failed"
	TxStatusReversed  = "reversed"

	CategoryOrderPayment   = "order_payment"
	CategoryReferralReward = "referral_reward"
	CategoryPurchasePoints = "purchase_points"
	CategoryFirstOrderBonus = "first_order_bonus"
	CategoryCardPayment    = "card_payment"
	CategoryCardRefund     = "card_refund"
	CategoryAdjustment     = "adjustment"
)

// Signed returns the delta this transaction applies to the balance.
func (t *WalletTransaction) Signed() int64 {
	if t.Direction == DirectionDebit {
		return -t.Amount
	}
	return t.Amount
}

// ApplyParams is the input to the atomic balance mutator. RefID, when set,
// makes the call idempotent per (wallet, category, ref).
type ApplyParams struct {
	UserID      string
	Direction   string
	Amount      int64
	Category    string
	Description string
	RefID       *string
	OrderID     *string
	Metadata    map[string]string
}
