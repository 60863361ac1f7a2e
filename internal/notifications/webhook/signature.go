// Package webhook verifies inbound signed trigger requests. Upstream signs
// each request with a shared HMAC secret; verification gates the synchronous
// delivery path the same way polling gates the background one.
package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"

	"mailroom/internal/types"
)

// Verifier checks request signatures against the shared secret.
//
// The signed content is "{unix_timestamp}.{raw_body}" using HMAC-SHA256,
// hex encoded. Timestamps outside the tolerance window are rejected before
// any signature work, bounding replay.
type Verifier struct {
	secret    types.SecretString
	tolerance time.Duration
	nowFn     func() time.Time
}

// VerifierOption is a functional option for configuring a Verifier.
type VerifierOption func(*Verifier)

// WithNowFunc overrides the clock used for the staleness check.
// This is intended for testing.
func WithNowFunc(fn func() time.Time) VerifierOption {
	return func(v *Verifier) {
		v.nowFn = fn
	}
}

// NewVerifier creates a Verifier. secret may be empty; verification then
// rejects every request as misconfigured rather than accepting anything.
func NewVerifier(secret types.SecretString, tolerance time.Duration, opts ...VerifierOption) *Verifier {
	v := &Verifier{
		secret:    secret,
		tolerance: tolerance,
		nowFn:     time.Now,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Verify authenticates one request. Checks run in order:
//
//  1. A configured secret (ErrCodeServiceMisconfigured otherwise).
//  2. Timestamp header parses as an integer (ErrCodeWebhookInvalidTimestamp).
//  3. |now - timestamp| within tolerance (ErrCodeWebhookStaleRequest; also
//     rejects far-future timestamps, guarding against clock-skew abuse).
//  4. Constant-time HMAC comparison (ErrCodeWebhookInvalidSignature).
//
// A nil return means the request is authentic.
func (v *Verifier) Verify(timestampHeader, signatureHeader string, body []byte) error {
	if !v.secret.IsSet() {
		return types.NewAppError(
			types.ErrCodeServiceMisconfigured,
			"webhook signing secret is not configured",
			nil,
		)
	}

	ts, err := strconv.ParseInt(timestampHeader, 10, 64)
	if err != nil {
		return types.NewAppError(
			types.ErrCodeWebhookInvalidTimestamp,
			"timestamp header is not an integer",
			err,
		)
	}

	now := v.nowFn()
	age := now.Sub(time.Unix(ts, 0))
	if age < 0 {
		age = -age
	}
	if age > v.tolerance {
		return types.NewAppError(
			types.ErrCodeWebhookStaleRequest,
			fmt.Sprintf("request timestamp outside the %s tolerance window", v.tolerance),
			nil,
		)
	}

	expected := computeHMAC(fmt.Sprintf("%d.%s", ts, body), v.secret.Unmask())
	if !hmac.Equal([]byte(expected), []byte(signatureHeader)) {
		return types.NewAppError(
			types.ErrCodeWebhookInvalidSignature,
			"signature does not match request body",
			nil,
		)
	}
	return nil
}

// computeHMAC computes the hex-encoded HMAC-SHA256 of content with secret.
func computeHMAC(content, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(content))
	return hex.EncodeToString(mac.Sum(nil))
}
