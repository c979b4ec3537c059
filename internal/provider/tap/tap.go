package tap

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ikayjohn/wingside-sub005/internal/domain"
	"github.com/ikayjohn/wingside-sub005/internal/provider"
)

func (c *Client) Name() string { return domain.GatewayTap }

var statuses = provider.StatusMap{
	Canonical: "CAPTURED",
	Synonyms:  []string{"captured", "PAID"},
	Failed:    []string{"DECLINED", "FAILED", "CANCELLED", "VOID", "TIMEDOUT"},
	Pending:   []string{"INITIATED", "IN_PROGRESS"},
}

// Tap charges carry amounts as a decimal string in major currency units with
// two fixed decimals ("150.00" for 15000 kobo). The ledger stores kobo, so
// the conversion must be exact in both directions; getting it wrong is the
// worst bug this subsystem can have.
func AmountToWire(minor int64) string {
	return decimal.New(minor, -2).StringFixed(2)
}

func AmountFromWire(wire string) (int64, error) {
	d, err := decimal.NewFromString(wire)
	if err != nil {
		return 0, fmt.Errorf("tap amount %q: %w", wire, err)
	}
	minor := d.Shift(2)
	if !minor.IsInteger() {
		return 0, fmt.Errorf("tap amount %q has sub-minor precision", wire)
	}
	return minor.IntPart(), nil
}

type charge struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Amount string `json:"amount"`
	Transaction struct {
		URL     string `json:"url"`
		Created string `json:"created"`
		Expiry  struct {
			Period int64  `json:"period"`
			Type   string `json:"type"`
		} `json:"expiry"`
	} `json:"transaction"`
}

func (c *Client) InitializeSession(ctx context.Context, order *domain.Order, cust provider.Customer) (*provider.Session, error) {
	if order.PaymentReference != nil && order.PaymentGateway != nil && *order.PaymentGateway == c.Name() {
		ev, err := c.VerifyTransaction(ctx, *order.PaymentReference)
		if err == nil {
			switch ev.StatusCategory {
			case domain.StatusSucceeded:
				return &provider.Session{Reference: ev.Reference, AlreadyPaid: true}, nil
			case domain.StatusPending:
				if ch, err := c.fetchCharge(ctx, *order.PaymentReference); err == nil && ch.Transaction.URL != "" {
					return sessionFromCharge(ch), nil
				}
			}
		}
	}

	payload := map[string]interface{}{
		"amount":   AmountToWire(order.TotalAmount),
		"currency": order.Currency,
		"reference": map[string]string{
			"order": order.OrderNumber,
		},
		"customer": map[string]interface{}{
			"first_name": cust.Name,
			"email":      cust.Email,
			"phone":      map[string]string{"number": cust.Phone},
		},
		"source":   map[string]string{"id": "src_all"},
		"redirect": map[string]string{"url": ""},
	}
	body, _ := json.Marshal(payload)

	token, err := c.getToken(ctx)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/v2/charges", bytes.NewBuffer(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HttpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tap charge init returned %d", resp.StatusCode)
	}

	var ch charge
	if err := json.NewDecoder(resp.Body).Decode(&ch); err != nil {
		return nil, err
	}
	if ch.ID == "" {
		return nil, fmt.Errorf("tap charge init: missing charge id")
	}
	return sessionFromCharge(&ch), nil
}

func sessionFromCharge(ch *charge) *provider.Session {
	sess := &provider.Session{
		Reference:        ch.ID,
		AuthorizationURL: ch.Transaction.URL,
	}
	if ch.Transaction.Expiry.Period > 0 && ch.Transaction.Expiry.Type == "MINUTE" {
		t := time.Now().Add(time.Duration(ch.Transaction.Expiry.Period) * time.Minute)
		sess.ExpiresAt = &t
	}
	return sess
}

func (c *Client) fetchCharge(ctx context.Context, reference string) (*charge, error) {
	token, err := c.getToken(ctx)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/v2/charges/"+reference, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.HttpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tap charge lookup returned %d", resp.StatusCode)
	}

	var ch charge
	if err := json.NewDecoder(resp.Body).Decode(&ch); err != nil {
		return nil, err
	}
	return &ch, nil
}

func (c *Client) VerifyTransaction(ctx context.Context, reference string) (*domain.NormalizedEvent, error) {
	ch, err := c.fetchCharge(ctx, reference)
	if err != nil {
		return nil, err
	}
	return c.normalize(ch, nil)
}

func (c *Client) ParseWebhook(body []byte) (*domain.NormalizedEvent, error) {
	var ch charge
	if err := json.Unmarshal(body, &ch); err != nil {
		return nil, fmt.Errorf("tap webhook decode: %w", err)
	}
	if ch.ID == "" {
		return nil, fmt.Errorf("tap webhook missing charge id")
	}
	return c.normalize(&ch, body)
}

func (c *Client) normalize(ch *charge, raw []byte) (*domain.NormalizedEvent, error) {
	rawStatus := provider.NormalizeRawStatus(ch.Status)
	category, drifted := statuses.Categorize(rawStatus)
	if drifted {
		c.logger.Warn("tap status drift: treating as success",
			zap.String("reference", ch.ID),
			zap.String("raw_status", rawStatus))
	}

	var minor int64
	if ch.Amount != "" {
		var err error
		minor, err = AmountFromWire(ch.Amount)
		if err != nil {
			return nil, err
		}
	}

	occurred := time.Now()
	if t, err := time.Parse(time.RFC3339, ch.Transaction.Created); err == nil {
		occurred = t
	}

	return &domain.NormalizedEvent{
		Provider:          c.Name(),
		Reference:         ch.ID,
		StatusCategory:    category,
		AmountMinor:       minor,
		ProviderRawStatus: rawStatus,
		OccurredAt:        occurred,
		Raw:               raw,
	}, nil
}
