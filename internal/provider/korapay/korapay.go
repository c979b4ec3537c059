package korapay

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

// Korapay charges are denominated in integer minor units (kobo) on the wire,
// same as the canonical ledger amounts.
type Client struct {
	BaseURL    string
	SecretKey  string
	HttpClient *http.Client
	logger     *zap.Logger
}

func NewClient(baseURL, secretKey string, logger *zap.Logger) *Client {
	return &Client{
		BaseURL:    baseURL,
		SecretKey:  secretKey,
		HttpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
}

func (c *Client) Name() string { return domain.GatewayKorapay }

var statuses = provider.StatusMap{
	Canonical: "success",
	Synonyms:  []string{"successful", "paid"},
	Failed:    []string{"failed", "expired", "cancelled"},
	Pending:   []string{"pending", "processing"},
}

// AmountToWire converts canonical kobo to the wire amount. Korapay takes
// minor units directly, so this is the identity, kept explicit so the unit
// contract is visible and testable.
func AmountToWire(minor int64) int64 { return minor }

func AmountFromWire(wire int64) int64 { return wire }

type chargeData struct {
	Reference   string `json:"reference"`
	CheckoutURL string `json:"checkout_url"`
	Amount      int64  `json:"amount"`
	Status      string `json:"status"`
	ExpiryDate  string `json:"expiry_date"`
	PaidAt      string `json:"paid_at"`
}

type chargeResponse struct {
	Status  bool       `json:"status"`
	Message string     `json:"message"`
	Data    chargeData `json:"data"`
}

func (c *Client) InitializeSession(ctx context.Context, order *domain.Order, cust provider.Customer) (*provider.Session, error) {
	// Reuse an existing still-valid session for this order instead of
	// opening a second charge with the provider.
	if order.PaymentReference != nil && order.PaymentGateway != nil && *order.PaymentGateway == c.Name() {
		ev, err := c.VerifyTransaction(ctx, *order.PaymentReference)
		if err == nil {
			switch ev.StatusCategory {
			case domain.StatusSucceeded:
				return &provider.Session{Reference: ev.Reference, AlreadyPaid: true}, nil
			case domain.StatusPending:
				return c.fetchSession(ctx, *order.PaymentReference)
			}
		}
	}

	reference := "KPY-" + uuid.NewString()
	payload := map[string]interface{}{
		"reference":         reference,
		"amount":            AmountToWire(order.TotalAmount),
		"currency":          order.Currency,
		"narration":         "Order " + order.OrderNumber,
		"notification_url":  "", // set by merchant dashboard config
		"customer": map[string]string{
			"email": cust.Email,
			"name":  cust.Name,
		},
	}
	body, _ := json.Marshal(payload)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/merchant/api/v1/charges/initialize", bytes.NewBuffer(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.SecretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HttpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var res chargeResponse
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return nil, err
	}
	if !res.Status {
		return nil, fmt.Errorf("korapay charge init failed: %s", res.Message)
	}

	sess := &provider.Session{
		Reference:        res.Data.Reference,
		AuthorizationURL: res.Data.CheckoutURL,
	}
	if t, err := time.Parse(time.RFC3339, res.Data.ExpiryDate); err == nil {
		sess.ExpiresAt = &t
	}
	return sess, nil
}

func (c *Client) fetchSession(ctx context.Context, reference string) (*provider.Session, error) {
	data, err := c.fetchCharge(ctx, reference)
	if err != nil {
		return nil, err
	}
	sess := &provider.Session{
		Reference:        data.Reference,
		AuthorizationURL: data.CheckoutURL,
	}
	if t, err := time.Parse(time.RFC3339, data.ExpiryDate); err == nil {
		sess.ExpiresAt = &t
	}
	return sess, nil
}

func (c *Client) fetchCharge(ctx context.Context, reference string) (*chargeData, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/merchant/api/v1/charges/"+reference, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.SecretKey)

	resp, err := c.HttpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var res chargeResponse
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return nil, err
	}
	if !res.Status {
		return nil, fmt.Errorf("korapay charge lookup failed: %s", res.Message)
	}
	return &res.Data, nil
}

func (c *Client) VerifyTransaction(ctx context.Context, reference string) (*domain.NormalizedEvent, error) {
	data, err := c.fetchCharge(ctx, reference)
	if err != nil {
		return nil, err
	}
	return c.normalize(data.Reference, data.Status, data.Amount, data.PaidAt, nil), nil
}

type webhookPayload struct {
	Event string `json:"event"`
	Data  struct {
		Reference string `json:"reference"`
		Amount    int64  `json:"amount"`
		Status    string `json:"status"`
		PaidAt    string `json:"paid_at"`
	} `json:"data"`
}

func (c *Client) ParseWebhook(body []byte) (*domain.NormalizedEvent, error) {
	var p webhookPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("korapay webhook decode: %w", err)
	}
	if p.Data.Reference == "" {
		return nil, fmt.Errorf("korapay webhook missing reference")
	}
	return c.normalize(p.Data.Reference, p.Data.Status, p.Data.Amount, p.Data.PaidAt, body), nil
}

func (c *Client) normalize(reference, rawStatus string, wireAmount int64, paidAt string, raw []byte) *domain.NormalizedEvent {
	rawStatus = provider.NormalizeRawStatus(rawStatus)
	category, drifted := statuses.Categorize(rawStatus)
	if drifted {
		c.logger.Warn("korapay status drift: treating as success",
			zap.String("reference", reference),
			zap.String("raw_status", rawStatus))
	}
	occurred := time.Now()
	if t, err := time.Parse(time.RFC3339, paidAt); err == nil {
		occurred = t
	}
	return &domain.NormalizedEvent{
		Provider:          c.Name(),
		Reference:         reference,
		StatusCategory:    category,
		AmountMinor:       AmountFromWire(wireAmount),
		ProviderRawStatus: rawStatus,
		OccurredAt:        occurred,
		Raw:               raw,
	}
}
