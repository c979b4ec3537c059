package domain

import (
	"encoding/json"
	"time"
)

// NormalizedEvent is the provider-agnostic form of a payment notification,
// produced by a gateway adapter from either a webhook body or a verify call.
type NormalizedEvent struct {
	Provider          string          `json:"provider"`
	Reference         string          `json:"reference"`
	StatusCategory    string          `json:"status_category"`
	AmountMinor       int64           `json:"amount_minor"`
	ProviderRawStatus string          `json:"provider_raw_status"`
	OccurredAt        time.Time       `json:"occurred_at"`
	Raw               json.RawMessage `json:"raw,omitempty"`
}

const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
	StatusPending   = "pending"
	StatusUnknown   = "unknown"
)

// Reconciliation outcomes.
const (
	OutcomeApplied        = "applied"
	OutcomeAlreadyApplied = "already_applied"
	OutcomeRejected       = "rejected"
	OutcomeDeferred       = "deferred"
)

type ReconcileResult struct {
	Outcome string `json:"outcome"`
	Reason  string `json:"reason,omitempty"`
	Order   *Order `json:"order,omitempty"`
}
