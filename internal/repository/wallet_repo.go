package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/ulid/v2"

	"github.com/ikayjohn/wingside-sub005/internal/domain"
)

const pgUniqueViolation = "23505"

type WalletRepository struct {
	db *pgxpool.Pool
}

func NewWalletRepository(db *pgxpool.Pool) *WalletRepository {
	return &WalletRepository{db: db}
}

// GetOrCreateWallet returns the user's NGN wallet, creating an empty one on
// first touch.
func (r *WalletRepository) GetOrCreateWallet(ctx context.Context, userID string) (*domain.Wallet, error) {
	_, err := r.db.Exec(ctx, `
		INSERT INTO wallets (user_id, currency, balance)
		VALUES ($1, 'NGN', 0)
		ON CONFLICT (user_id) DO NOTHING
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("wallet upsert failed: %w", err)
	}
	return r.GetWalletByUserID(ctx, userID)
}

func (r *WalletRepository) GetWalletByUserID(ctx context.Context, userID string) (*domain.Wallet, error) {
	var w domain.Wallet
	err := r.db.QueryRow(ctx, `
		SELECT id, user_id, currency, balance, created_at, updated_at
		FROM wallets WHERE user_id = $1
	`, userID).Scan(&w.ID, &w.UserID, &w.Currency, &w.Balance, &w.CreatedAt, &w.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrWalletNotFound
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// ApplyTransaction is the only path that appends a ledger row. The balance
// read, idempotency check, append and snapshot update happen inside one
// transaction holding the wallet row lock, so concurrent calls for the same
// wallet serialize while different wallets proceed independently. The
// partial unique index on (wallet_id, category, ref_id) is the ultimate
// duplicate guard; the pre-check is an optimization and a friendlier path.
func (r *WalletRepository) ApplyTransaction(ctx context.Context, p domain.ApplyParams) (*domain.WalletTransaction, error) {
	if p.Amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}
	if p.Direction != domain.DirectionCredit && p.Direction != domain.DirectionDebit {
		return nil, fmt.Errorf("unknown direction %q", p.Direction)
	}

	if _, err := r.GetOrCreateWallet(ctx, p.UserID); err != nil {
		return nil, err
	}

	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("tx begin failed: %w", err)
	}
	defer tx.Rollback(ctx)

	var walletID, currency string
	var balance int64
	err = tx.QueryRow(ctx,
		`SELECT id, currency, balance FROM wallets WHERE user_id = $1 FOR UPDATE`,
		p.UserID,
	).Scan(&walletID, &currency, &balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrWalletNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("wallet lock failed: %w", err)
	}

	if p.RefID != nil {
		existing, err := scanTransaction(tx.QueryRow(ctx, txSelect+`
			WHERE wallet_id = $1 AND category = $2 AND ref_id = $3 AND tx_status = 'completed'
		`, walletID, p.Category, *p.RefID))
		if err == nil {
			// webhook retry or duplicate delivery: return the stored
			// result, no new row, balance untouched
			return existing, nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("idempotency lookup failed: %w", err)
		}
	}

	newBalance := balance
	if p.Direction == domain.DirectionDebit {
		if balance < p.Amount {
			return nil, domain.ErrInsufficientBalance
		}
		newBalance -= p.Amount
	} else {
		newBalance += p.Amount
	}

	record := &domain.WalletTransaction{
		ID:           newTransactionID(),
		WalletID:     walletID,
		UserID:       p.UserID,
		Currency:     currency,
		Direction:    p.Direction,
		Amount:       p.Amount,
		BalanceAfter: newBalance,
		Category:     p.Category,
		Description:  p.Description,
		TxStatus:     domain.TxStatusCompleted,
		RefID:        p.RefID,
		OrderID:      p.OrderID,
		Metadata:     p.Metadata,
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO wallet_transactions (
			id, wallet_id, user_id, currency, direction, amount, balance_after,
			category, description, tx_status, ref_id, order_id, metadata, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, NOW())
		RETURNING created_at
	`, record.ID, record.WalletID, record.UserID, record.Currency, record.Direction,
		record.Amount, record.BalanceAfter, record.Category, record.Description,
		record.TxStatus, record.RefID, record.OrderID, record.Metadata,
	).Scan(&record.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation && p.RefID != nil {
			// lost the race against a concurrent duplicate; surface the
			// winner's row instead
			return r.getByReference(ctx, walletID, p.Category, *p.RefID)
		}
		return nil, fmt.Errorf("transaction insert failed: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`UPDATE wallets SET balance = $1, updated_at = NOW() WHERE id = $2`,
		newBalance, walletID,
	); err != nil {
		return nil, fmt.Errorf("balance snapshot update failed: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation && p.RefID != nil {
			return r.getByReference(ctx, walletID, p.Category, *p.RefID)
		}
		return nil, fmt.Errorf("tx commit failed: %w", err)
	}

	return record, nil
}

// Reverse appends an offsetting transaction for a completed one and marks
// the original reversed. History is never edited or deleted; the offset row
// is the reversal.
func (r *WalletRepository) Reverse(ctx context.Context, transactionID, description string) (*domain.WalletTransaction, error) {
	orig, err := r.GetTransactionByID(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if orig.TxStatus != domain.TxStatusCompleted {
		return nil, fmt.Errorf("transaction %s is %s, only completed transactions reverse", transactionID, orig.TxStatus)
	}

	direction := domain.DirectionCredit
	if orig.Direction == domain.DirectionCredit {
		direction = domain.DirectionDebit
	}
	ref := "RVS-" + orig.ID

	offset, err := r.ApplyTransaction(ctx, domain.ApplyParams{
		UserID:      orig.UserID,
		Direction:   direction,
		Amount:      orig.Amount,
		Category:    domain.CategoryCardRefund,
		Description: description,
		RefID:       &ref,
		OrderID:     orig.OrderID,
	})
	if err != nil {
		return nil, err
	}

	if _, err := r.db.Exec(ctx,
		`UPDATE wallet_transactions SET tx_status = 'reversed' WHERE id = $1 AND tx_status = 'completed'`,
		orig.ID,
	); err != nil {
		return nil, fmt.Errorf("reversal status update failed: %w", err)
	}
	return offset, nil
}

const txSelect = `
	SELECT id, wallet_id, user_id, currency, direction, amount, balance_after,
	       category, description, tx_status, ref_id, order_id, metadata, created_at
	FROM wallet_transactions
`

func (r *WalletRepository) getByReference(ctx context.Context, walletID, category, refID string) (*domain.WalletTransaction, error) {
	t, err := scanTransaction(r.db.QueryRow(ctx, txSelect+`
		WHERE wallet_id = $1 AND category = $2 AND ref_id = $3 AND tx_status = 'completed'
	`, walletID, category, refID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrTransactionNotFound
	}
	return t, err
}

func (r *WalletRepository) GetTransactionByID(ctx context.Context, id string) (*domain.WalletTransaction, error) {
	t, err := scanTransaction(r.db.QueryRow(ctx, txSelect+` WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrTransactionNotFound
	}
	return t, err
}

// ListTransactions returns a page of the user's ledger newest first, plus
// the total row count for pagination.
func (r *WalletRepository) ListTransactions(ctx context.Context, userID string, limit, offset int) ([]*domain.WalletTransaction, int64, error) {
	var total int64
	if err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM wallet_transactions WHERE user_id = $1`, userID,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.db.Query(ctx, txSelect+`
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []*domain.WalletTransaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, t)
	}
	return out, total, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (*domain.WalletTransaction, error) {
	var t domain.WalletTransaction
	err := row.Scan(
		&t.ID, &t.WalletID, &t.UserID, &t.Currency, &t.Direction, &t.Amount,
		&t.BalanceAfter, &t.Category, &t.Description, &t.TxStatus, &t.RefID,
		&t.OrderID, &t.Metadata, &t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func newTransactionID() string {
	return ulid.Make().String()
}
