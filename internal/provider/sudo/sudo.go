package sudo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ikayjohn/wingside-sub005/internal/domain"
	"github.com/ikayjohn/wingside-sub005/internal/provider"
)

// The virtual-account gateway. Session initialization provisions a one-time
// virtual account the customer transfers into; settlement is reported by
// webhook or verify. Wire amounts are integer minor units.
type Client struct {
	BaseURL    string
	APIKey     string
	HttpClient *http.Client
	logger     *zap.Logger
}

func NewClient(baseURL, apiKey string, logger *zap.Logger) *Client {
	return &Client{
		BaseURL:    baseURL,
		APIKey:     apiKey,
		HttpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
}

func (c *Client) Name() string { return domain.GatewaySudo }

var statuses = provider.StatusMap{
	Canonical: "completed",
	Synonyms:  []string{"successful", "settled"},
	Failed:    []string{"failed", "reversed", "expired"},
	Pending:   []string{"pending"},
}

func AmountToWire(minor int64) int64 { return minor }

func AmountFromWire(wire int64) int64 { return wire }

type virtualAccount struct {
	Reference     string `json:"reference"`
	AccountNumber string `json:"account_number"`
	AccountName   string `json:"account_name"`
	BankName      string `json:"bank_name"`
	Status        string `json:"status"`
	Amount        int64  `json:"amount"`
	ExpiresAt     string `json:"expires_at"`
	SettledAt     string `json:"settled_at"`
}

type apiResponse struct {
	Status  string         `json:"status"`
	Message string         `json:"message"`
	Data    virtualAccount `json:"data"`
}

func (c *Client) InitializeSession(ctx context.Context, order *domain.Order, cust provider.Customer) (*provider.Session, error) {
	if order.PaymentReference != nil && order.PaymentGateway != nil && *order.PaymentGateway == c.Name() {
		if acct, err := c.fetchAccount(ctx, *order.PaymentReference); err == nil {
			rawStatus := provider.NormalizeRawStatus(acct.Status)
			if category, _ := statuses.Categorize(rawStatus); category == domain.StatusSucceeded {
				return &provider.Session{Reference: acct.Reference, AlreadyPaid: true}, nil
			}
			if sess := sessionFromAccount(acct); sess.ExpiresAt == nil || sess.ExpiresAt.After(time.Now()) {
				return sess, nil
			}
		}
	}

	reference := "SDO-" + uuid.NewString()
	payload := map[string]interface{}{
		"reference":      reference,
		"amount":         AmountToWire(order.TotalAmount),
		"currency":       order.Currency,
		"narration":      "Order " + order.OrderNumber,
		"customer_email": cust.Email,
		"customer_name":  cust.Name,
	}
	body, _ := json.Marshal(payload)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/v1/virtual-accounts", bytes.NewBuffer(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HttpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var res apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return nil, err
	}
	if res.Status != "success" {
		return nil, fmt.Errorf("sudo virtual account create failed: %s", res.Message)
	}
	return sessionFromAccount(&res.Data), nil
}

func sessionFromAccount(acct *virtualAccount) *provider.Session {
	sess := &provider.Session{
		Reference:     acct.Reference,
		AccountNumber: acct.AccountNumber,
		AccountName:   acct.AccountName,
		BankName:      acct.BankName,
	}
	if t, err := time.Parse(time.RFC3339, acct.ExpiresAt); err == nil {
		sess.ExpiresAt = &t
	}
	return sess
}

func (c *Client) fetchAccount(ctx context.Context, reference string) (*virtualAccount, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/v1/virtual-accounts/"+reference, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.HttpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var res apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return nil, err
	}
	if res.Status != "success" {
		return nil, fmt.Errorf("sudo virtual account lookup failed: %s", res.Message)
	}
	return &res.Data, nil
}

func (c *Client) VerifyTransaction(ctx context.Context, reference string) (*domain.NormalizedEvent, error) {
	acct, err := c.fetchAccount(ctx, reference)
	if err != nil {
		return nil, err
	}
	return c.normalize(acct, nil), nil
}

type webhookPayload struct {
	Event string         `json:"event"`
	Data  virtualAccount `json:"data"`
}

func (c *Client) ParseWebhook(body []byte) (*domain.NormalizedEvent, error) {
	var p webhookPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("sudo webhook decode: %w", err)
	}
	if p.Data.Reference == "" {
		return nil, fmt.Errorf("sudo webhook missing reference")
	}
	ev := c.normalize(&p.Data, body)
	return ev, nil
}

func (c *Client) normalize(acct *virtualAccount, raw []byte) *domain.NormalizedEvent {
	rawStatus := provider.NormalizeRawStatus(acct.Status)
	category, drifted := statuses.Categorize(rawStatus)
	if drifted {
		c.logger.Warn("sudo status drift: treating as success",
			zap.String("reference", acct.Reference),
			zap.String("raw_status", rawStatus))
	}
	occurred := time.Now()
	if t, err := time.Parse(time.RFC3339, acct.SettledAt); err == nil {
		occurred = t
	}
	return &domain.NormalizedEvent{
		Provider:          c.Name(),
		Reference:         acct.Reference,
		StatusCategory:    category,
		AmountMinor:       AmountFromWire(acct.Amount),
		ProviderRawStatus: rawStatus,
		OccurredAt:        occurred,
		Raw:               raw,
	}
}
