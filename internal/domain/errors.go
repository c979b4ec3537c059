package domain

import "errors"

var (
	ErrInvalidAmount       = errors.New("amount must be a positive integer in minor units")
	ErrInsufficientBalance = errors.New("insufficient wallet balance")
	ErrDuplicateReference  = errors.New("external reference already applied")
	ErrWalletNotFound      = errors.New("wallet not found")
	ErrOrderNotFound       = errors.New("order not found")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrOrderAlreadyPaid    = errors.New("order already paid")
	ErrProviderNotFound    = errors.New("payment provider not found")
	ErrInvalidSignature    = errors.New("webhook signature verification failed")
	ErrStaleTimestamp      = errors.New("webhook timestamp outside allowed window")
	ErrMissingSecret       = errors.New("webhook secret not configured")
)
