package sudo

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/ikayjohn/wingside-sub005/internal/domain"
)

func TestAmountRoundTrip(t *testing.T) {
	for _, minor := range []int64{1, 100, 100000, 999999999999} {
		assert.Equal(t, minor, AmountFromWire(AmountToWire(minor)))
	}
}

func TestParseWebhookStatusMapping(t *testing.T) {
	c := NewClient("https://api.sudo.test", "key", zap.NewNop())

	cases := []struct {
		raw      string
		expected string
	}{
		{"completed", domain.StatusSucceeded},
		{"successful", domain.StatusSucceeded}, // drift synonym
		{"settled", domain.StatusSucceeded},    // drift synonym
		{"failed", domain.StatusFailed},
		{"reversed", domain.StatusFailed},
		{"expired", domain.StatusFailed},
		{"pending", domain.StatusPending},
		{"COMPLETED", domain.StatusUnknown}, // unlisted casing never succeeds
		{"done", domain.StatusUnknown},
	}
	for _, tc := range cases {
		t.Run(tc.raw, func(t *testing.T) {
			body := []byte(fmt.Sprintf(
				`{"event":"virtual_account.update","data":{"reference":"SDO-7","amount":80000,"status":"%s"}}`,
				tc.raw))
			ev, err := c.ParseWebhook(body)
			assert.NoError(t, err)
			assert.Equal(t, tc.expected, ev.StatusCategory)
			assert.Equal(t, "SDO-7", ev.Reference)
			assert.Equal(t, int64(80000), ev.AmountMinor)
		})
	}
}

func TestParseWebhookMissingReference(t *testing.T) {
	c := NewClient("https://api.sudo.test", "key", zap.NewNop())
	_, err := c.ParseWebhook([]byte(`{"event":"x","data":{"amount":1}}`))
	assert.Error(t, err)
}
