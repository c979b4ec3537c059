package domain

import "time"

type Order struct {
	ID               string     `json:"id"`
	OrderNumber      string     `json:"order_number"`
	UserID           string     `json:"user_id"`
	CustomerEmail    string     `json:"customer_email"`
	CustomerPhone    string     `json:"customer_phone,omitempty"`
	TotalAmount      int64      `json:"total_amount"` // kobo
	Currency         string     `json:"currency"`
	PaymentGateway   *string    `json:"payment_gateway,omitempty"`
	PaymentReference *string    `json:"payment_reference,omitempty"`
	PaymentStatus    string     `json:"payment_status"`
	OrderStatus      string     `json:"order_status"`
	PaidAt           *time.Time `json:"paid_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

const (
	PaymentStatusUnpaid  = "unpaid"
	PaymentStatusPending = "pending"
	PaymentStatusPaid    = "paid"
	PaymentStatusFailed  = "failed"

	OrderStatusPending   = "pending"
	OrderStatusConfirmed = "confirmed"
	OrderStatusCancelled = "cancelled"
	OrderStatusDelivered = "delivered"

	GatewayKorapay = "korapay"
	GatewayTap     = "tap"
	GatewaySudo    = "sudo"
	GatewayWallet  = "wallet"
)

func (o *Order) IsPaid() bool {
	return o.PaymentStatus == PaymentStatusPaid
}

// CanTransitionPayment reports whether the payment state machine allows
// moving to the target status. Paid and failed are terminal for a checkout
// attempt, except that a retried attempt may re-enter pending from failed
// with a fresh reference.
func (o *Order) CanTransitionPayment(target string) bool {
	switch o.PaymentStatus {
	case PaymentStatusUnpaid:
		return target == PaymentStatusPending || target == PaymentStatusPaid || target == PaymentStatusFailed
	case PaymentStatusPending:
		return target == PaymentStatusPaid || target == PaymentStatusFailed
	case PaymentStatusFailed:
		return target == PaymentStatusPending
	case PaymentStatusPaid:
		return false
	}
	return false
}
