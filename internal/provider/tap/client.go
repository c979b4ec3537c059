package tap

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Client talks to the card gateway. Access tokens are cached on the client
// with a single-flight refresh so concurrent callers never stampede the
// token endpoint or clobber each other's token.
type Client struct {
	BaseURL        string
	ConsumerKey    string
	ConsumerSecret string
	HttpClient     *http.Client
	logger         *zap.Logger

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
	refresh     singleflight.Group
}

func NewClient(baseURL, key, secret string, logger *zap.Logger) *Client {
	return &Client{
		BaseURL:        baseURL,
		ConsumerKey:    key,
		ConsumerSecret: secret,
		HttpClient:     &http.Client{Timeout: 10 * time.Second},
		logger:         logger,
	}
}

func (c *Client) getToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	if c.token != "" && time.Now().Before(c.tokenExpiry) {
		tok := c.token
		c.mu.Unlock()
		return tok, nil
	}
	c.mu.Unlock()

	v, err, _ := c.refresh.Do("token", func() (interface{}, error) {
		return c.fetchToken(ctx)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (c *Client) fetchToken(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/oauth/token?grant_type=client_credentials", nil)
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(c.ConsumerKey, c.ConsumerSecret)

	resp, err := c.HttpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("tap token request failed: %s", string(body))
	}

	var res struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return "", err
	}

	ttl := time.Duration(res.ExpiresIn) * time.Second
	if ttl <= 0 {
		ttl = time.Hour
	}

	c.mu.Lock()
	c.token = res.AccessToken
	// refresh a minute early so in-flight requests never carry a dead token
	c.tokenExpiry = time.Now().Add(ttl - time.Minute)
	c.mu.Unlock()

	return res.AccessToken, nil
}
