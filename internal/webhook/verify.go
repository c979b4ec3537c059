package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"hash"
	"net/http"
	"strconv"
	"time"

	"github.com/ikayjohn/wingside-sub005/internal/domain"
)

// Verifier proves an inbound webhook body originated from the claimed
// provider. It never parses payload contents; authentication is kept
// separate from business logic. An empty secret fails closed.
type Verifier interface {
	Verify(body []byte, header http.Header) error
}

// KorapayVerifier checks X-Korapay-Signature (hex HMAC-SHA256 of the raw
// body) and X-Korapay-Timestamp (unix seconds, bounded window).
type KorapayVerifier struct {
	Secret string
	Window time.Duration
	Now    func() time.Time
}

func NewKorapayVerifier(secret string) *KorapayVerifier {
	return &KorapayVerifier{Secret: secret, Window: 5 * time.Minute, Now: time.Now}
}

func (v *KorapayVerifier) Verify(body []byte, header http.Header) error {
	if v.Secret == "" {
		return domain.ErrMissingSecret
	}
	ts := header.Get("X-Korapay-Timestamp")
	if ts == "" {
		return domain.ErrInvalidSignature
	}
	unix, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return domain.ErrInvalidSignature
	}
	now := v.Now()
	drift := now.Sub(time.Unix(unix, 0))
	if drift < 0 {
		drift = -drift
	}
	if drift > v.Window {
		return domain.ErrStaleTimestamp
	}
	return checkHexHMAC(sha256.New, v.Secret, body, header.Get("X-Korapay-Signature"))
}

// TapVerifier checks Tap-Signature, hex HMAC-SHA256 of the raw body. No
// timestamp component in this scheme.
type TapVerifier struct {
	Secret string
}

func NewTapVerifier(secret string) *TapVerifier {
	return &TapVerifier{Secret: secret}
}

func (v *TapVerifier) Verify(body []byte, header http.Header) error {
	if v.Secret == "" {
		return domain.ErrMissingSecret
	}
	return checkHexHMAC(sha256.New, v.Secret, body, header.Get("Tap-Signature"))
}

// SudoVerifier checks X-Sudo-Signature, hex HMAC-SHA512 of the raw body.
type SudoVerifier struct {
	Secret string
}

func NewSudoVerifier(secret string) *SudoVerifier {
	return &SudoVerifier{Secret: secret}
}

func (v *SudoVerifier) Verify(body []byte, header http.Header) error {
	if v.Secret == "" {
		return domain.ErrMissingSecret
	}
	return checkHexHMAC(sha512.New, v.Secret, body, header.Get("X-Sudo-Signature"))
}

func checkHexHMAC(h func() hash.Hash, secret string, body []byte, got string) error {
	if got == "" {
		return domain.ErrInvalidSignature
	}
	mac := hmac.New(h, []byte(secret))
	mac.Write(body)
	want := hex.EncodeToString(mac.Sum(nil))
	// hmac.Equal is constant time; plain == would leak a timing side channel.
	if !hmac.Equal([]byte(want), []byte(got)) {
		return domain.ErrInvalidSignature
	}
	return nil
}
