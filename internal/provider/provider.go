package provider

import (
	"context"
	"strings"
	"time"

	"github.com/ikayjohn/wingside-sub005/internal/domain"
)

type Customer struct {
	UserID string
	Email  string
	Phone  string
	Name   string
}

// Session is the result of initializing a checkout with a gateway. Card and
// checkout gateways return an authorization URL; the virtual-account gateway
// returns bank transfer details instead.
type Session struct {
	Reference        string     `json:"reference"`
	AuthorizationURL string     `json:"authorization_url,omitempty"`
	AccountNumber    string     `json:"account_number,omitempty"`
	AccountName      string     `json:"account_name,omitempty"`
	BankName         string     `json:"bank_name,omitempty"`
	ExpiresAt        *time.Time `json:"expires_at,omitempty"`
	AlreadyPaid      bool       `json:"already_paid,omitempty"`
}

// Gateway is the fixed adapter surface. New providers are added as new
// implementations, never as branches inside shared logic.
type Gateway interface {
	Name() string
	InitializeSession(ctx context.Context, order *domain.Order, cust Customer) (*Session, error)
	VerifyTransaction(ctx context.Context, reference string) (*domain.NormalizedEvent, error)
	ParseWebhook(body []byte) (*domain.NormalizedEvent, error)
}

// StatusMap holds one adapter's provider-status vocabulary. Canonical is the
// documented success string. Synonyms are strings seen in the wild that mean
// success; they map to succeeded but the caller must log the drift. Anything
// not listed maps to unknown, never to succeeded.
type StatusMap struct {
	Canonical string
	Synonyms  []string
	Failed    []string
	Pending   []string
}

// Categorize maps a raw provider status to a normalized category. drifted is
// true when the status succeeded only via a synonym match.
func (m StatusMap) Categorize(raw string) (category string, drifted bool) {
	if raw == m.Canonical {
		return domain.StatusSucceeded, false
	}
	for _, s := range m.Synonyms {
		if raw == s {
			return domain.StatusSucceeded, true
		}
	}
	for _, s := range m.Failed {
		if raw == s {
			return domain.StatusFailed, false
		}
	}
	for _, s := range m.Pending {
		if raw == s {
			return domain.StatusPending, false
		}
	}
	return domain.StatusUnknown, false
}

// NormalizeRawStatus trims surrounding whitespace only. Casing is left
// untouched so operators see exactly what the provider sent.
func NormalizeRawStatus(s string) string {
	return strings.TrimSpace(s)
}
