package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ikayjohn/wingside-sub005/internal/domain"
)

type OrderRepository struct {
	db *pgxpool.Pool
}

func NewOrderRepository(db *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{db: db}
}

const orderSelect = `
	SELECT id, order_number, user_id, customer_email, customer_phone,
	       total_amount, currency, payment_gateway, payment_reference,
	       payment_status, order_status, paid_at, created_at, updated_at
	FROM orders
`

func (r *OrderRepository) CreateOrder(ctx context.Context, o *domain.Order) error {
	return r.db.QueryRow(ctx, `
		INSERT INTO orders (
			id, order_number, user_id, customer_email, customer_phone,
			total_amount, currency, payment_status, order_status
		) VALUES (gen_random_uuid(), $1, $2, $3, $4, $5, $6, 'unpaid', 'pending')
		RETURNING id, payment_status, order_status, created_at, updated_at
	`, o.OrderNumber, o.UserID, o.CustomerEmail, o.CustomerPhone,
		o.TotalAmount, o.Currency,
	).Scan(&o.ID, &o.PaymentStatus, &o.OrderStatus, &o.CreatedAt, &o.UpdatedAt)
}

func (r *OrderRepository) GetOrderByID(ctx context.Context, id string) (*domain.Order, error) {
	return r.scanOne(r.db.QueryRow(ctx, orderSelect+` WHERE id = $1`, id))
}

func (r *OrderRepository) GetOrderByNumber(ctx context.Context, orderNumber string) (*domain.Order, error) {
	return r.scanOne(r.db.QueryRow(ctx, orderSelect+` WHERE order_number = $1`, orderNumber))
}

// GetOrderByPaymentReference is the reconciliation lookup: events carry the
// gateway reference, never our order id.
func (r *OrderRepository) GetOrderByPaymentReference(ctx context.Context, reference string) (*domain.Order, error) {
	return r.scanOne(r.db.QueryRow(ctx, orderSelect+` WHERE payment_reference = $1`, reference))
}

// AttachPaymentSession binds a fresh gateway session to the order and moves
// payment to pending. A paid order is never re-bound.
func (r *OrderRepository) AttachPaymentSession(ctx context.Context, orderID, gateway, reference string) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE orders
		SET payment_gateway = $1, payment_reference = $2,
		    payment_status = 'pending', updated_at = NOW()
		WHERE id = $3 AND payment_status <> 'paid'
	`, gateway, reference, orderID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrOrderAlreadyPaid
	}
	return nil
}

// MarkPaid transitions to paid/confirmed exactly once. Returns false when
// the order was already paid, which callers treat as AlreadyApplied.
func (r *OrderRepository) MarkPaid(ctx context.Context, orderID string, paidAt time.Time) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE orders
		SET payment_status = 'paid', order_status = 'confirmed',
		    paid_at = $1, updated_at = NOW()
		WHERE id = $2 AND payment_status <> 'paid'
	`, paidAt, orderID)
	if err != nil {
		return false, fmt.Errorf("mark paid failed: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// MarkFailed cancels an unpaid order. A paid order is never downgraded, no
// matter how late the failure event arrives.
func (r *OrderRepository) MarkFailed(ctx context.Context, orderID string) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE orders
		SET payment_status = 'failed', order_status = 'cancelled', updated_at = NOW()
		WHERE id = $1 AND payment_status <> 'paid'
	`, orderID)
	if err != nil {
		return false, fmt.Errorf("mark failed failed: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// CountPaidOrders supports the first-order bonus credit.
func (r *OrderRepository) CountPaidOrders(ctx context.Context, userID string) (int64, error) {
	var n int64
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM orders WHERE user_id = $1 AND payment_status = 'paid'`,
		userID,
	).Scan(&n)
	return n, err
}

func (r *OrderRepository) ListOrdersByUserID(ctx context.Context, userID string, limit, offset int) ([]*domain.Order, error) {
	rows, err := r.db.Query(ctx, orderSelect+`
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Order
	for rows.Next() {
		o, err := r.scanOne(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (r *OrderRepository) scanOne(row rowScanner) (*domain.Order, error) {
	var o domain.Order
	err := row.Scan(
		&o.ID, &o.OrderNumber, &o.UserID, &o.CustomerEmail, &o.CustomerPhone,
		&o.TotalAmount, &o.Currency, &o.PaymentGateway, &o.PaymentReference,
		&o.PaymentStatus, &o.OrderStatus, &o.PaidAt, &o.CreatedAt, &o.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}
