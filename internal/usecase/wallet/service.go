package wallet

import (
	"context"

	"go.uber.org/zap"

	"github.com/ikayjohn/wingside-sub005/internal/domain"
)

type Service struct {
	store    LedgerStore
	logger   *zap.Logger
	Notifier *Notifier
}

func New(store LedgerStore, notifier *Notifier, logger *zap.Logger) *Service {
	return &Service{
		store:    store,
		logger:   logger,
		Notifier: notifier,
	}
}

func (s *Service) GetWallet(ctx context.Context, userID string) (*domain.Wallet, error) {
	return s.store.GetOrCreateWallet(ctx, userID)
}

// Credit applies a credit through the atomic mutator and pushes the new
// balance to connected clients. RefID makes retries free.
func (s *Service) Credit(ctx context.Context, p domain.ApplyParams) (*domain.WalletTransaction, error) {
	p.Direction = domain.DirectionCredit
	tx, err := s.store.ApplyTransaction(ctx, p)
	if err != nil {
		return nil, err
	}
	s.logger.Info("wallet credited",
		zap.String("user_id", p.UserID),
		zap.String("category", p.Category),
		zap.Int64("amount", p.Amount),
		zap.Int64("balance_after", tx.BalanceAfter))
	s.Notifier.NotifyBalance(p.UserID, tx)
	return tx, nil
}

func (s *Service) Debit(ctx context.Context, p domain.ApplyParams) (*domain.WalletTransaction, error) {
	p.Direction = domain.DirectionDebit
	tx, err := s.store.ApplyTransaction(ctx, p)
	if err != nil {
		return nil, err
	}
	s.logger.Info("wallet debited",
		zap.String("user_id", p.UserID),
		zap.String("category", p.Category),
		zap.Int64("amount", p.Amount),
		zap.Int64("balance_after", tx.BalanceAfter))
	s.Notifier.NotifyBalance(p.UserID, tx)
	return tx, nil
}

func (s *Service) Reverse(ctx context.Context, transactionID, description string) (*domain.WalletTransaction, error) {
	tx, err := s.store.Reverse(ctx, transactionID, description)
	if err != nil {
		return nil, err
	}
	s.logger.Info("transaction reversed",
		zap.String("original_id", transactionID),
		zap.String("offset_id", tx.ID))
	s.Notifier.NotifyBalance(tx.UserID, tx)
	return tx, nil
}

func (s *Service) History(ctx context.Context, userID string, limit, offset int) ([]*domain.WalletTransaction, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.store.ListTransactions(ctx, userID, limit, offset)
}
