package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var ErrInvalidSignature = errors.New("webhook signature missing or invalid")

// Verifier checks that a raw webhook payload was signed by the gateway.
// Secrets are injected at construction time, never read from ambient state.
type Verifier interface {
	Verify(payload []byte, signatureHeader string) error
}

// HMACVerifier implements the generic scheme: X-Signature carries the
// base64-encoded HMAC-SHA256 of the raw body under a shared secret.
type HMACVerifier struct {
	secret []byte
}

func NewHMACVerifier(secret string) *HMACVerifier {
	return &HMACVerifier{secret: []byte(secret)}
}

func (v *HMACVerifier) Verify(payload []byte, signatureHeader string) error {
	// An unset secret must not degrade into "HMAC under the empty key":
	// that would let anyone forge a valid signature. Fail closed instead.
	if len(v.secret) == 0 || signatureHeader == "" {
		return ErrInvalidSignature
	}
	mac := hmac.New(sha256.New, v.secret)
	mac.Write(payload)
	expected := mac.Sum(nil)

	provided, err := base64.StdEncoding.DecodeString(signatureHeader)
	if err != nil {
		return ErrInvalidSignature
	}
	if !hmac.Equal(expected, provided) {
		return ErrInvalidSignature
	}
	return nil
}

// StripeVerifier implements the Stripe-Signature header scheme:
// "t=<unix>,v1=<hex hmac>" where the hmac is computed over "<t>.<payload>".
// Signatures older than the tolerance are rejected to limit replays.
type StripeVerifier struct {
	secret    []byte
	tolerance time.Duration
	now       func() time.Time
}

func NewStripeVerifier(secret string, tolerance time.Duration) *StripeVerifier {
	return &StripeVerifier{secret: []byte(secret), tolerance: tolerance, now: time.Now}
}

func (v *StripeVerifier) Verify(payload []byte, signatureHeader string) error {
	// Same fail-closed rule as the generic verifier: no secret, no trust.
	if len(v.secret) == 0 || signatureHeader == "" {
		return ErrInvalidSignature
	}

	var timestamp int64
	var signatures [][]byte
	for _, part := range strings.Split(signatureHeader, ",") {
		key, value, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			continue
		}
		switch key {
		case "t":
			ts, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return ErrInvalidSignature
			}
			timestamp = ts
		case "v1":
			sig, err := hex.DecodeString(value)
			if err != nil {
				continue
			}
			signatures = append(signatures, sig)
		}
	}
	if timestamp == 0 || len(signatures) == 0 {
		return ErrInvalidSignature
	}

	age := v.now().Sub(time.Unix(timestamp, 0))
	if age > v.tolerance || age < -v.tolerance {
		return fmt.Errorf("%w: timestamp outside tolerance", ErrInvalidSignature)
	}

	mac := hmac.New(sha256.New, v.secret)
	fmt.Fprintf(mac, "%d.", timestamp)
	mac.Write(payload)
	expected := mac.Sum(nil)

	for _, sig := range signatures {
		if hmac.Equal(expected, sig) {
			return nil
		}
	}
	return ErrInvalidSignature
}
