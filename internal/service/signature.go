package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// The provider signs webhook deliveries with an HMAC-SHA256 over
// "<timestamp>.<payload>" and sends the result in a header shaped like
//
//	t=1712345678,v1=5257a869e7ecebeda32affa62cdca3fa51cad7e77a0e56ff536d0ce8e108d8bd
//
// A delivery may carry several v1 entries during secret rotation; any one
// matching accepts the event.

type webhookSignature struct {
	timestamp  time.Time
	signatures [][]byte
}

// parseSignatureHeader splits the provider signature header into its
// timestamp and candidate signatures.
func parseSignatureHeader(header string) (*webhookSignature, error) {
	parsed := &webhookSignature{}

	for _, element := range strings.Split(header, ",") {
		key, value, found := strings.Cut(strings.TrimSpace(element), "=")
		if !found {
			return nil, fmt.Errorf("malformed signature element %q", element)
		}

		switch key {
		case "t":
			unix, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("malformed signature timestamp: %w", err)
			}
			parsed.timestamp = time.Unix(unix, 0)
		case "v1":
			sig, err := hex.DecodeString(value)
			if err != nil {
				return nil, fmt.Errorf("malformed signature value: %w", err)
			}
			parsed.signatures = append(parsed.signatures, sig)
		default:
			// Unknown scheme versions are skipped, not rejected.
		}
	}

	if parsed.timestamp.IsZero() || len(parsed.signatures) == 0 {
		return nil, fmt.Errorf("signature header missing timestamp or signature")
	}

	return parsed, nil
}

// verifySignature checks payload authenticity against the shared secret.
// It is pure: no store access, safe to run fully in parallel.
func verifySignature(payload []byte, header, secret string, tolerance time.Duration) error {
	parsed, err := parseSignatureHeader(header)
	if err != nil {
		return ErrInvalidSignature
	}

	if tolerance > 0 {
		age := time.Since(parsed.timestamp)
		if age > tolerance || age < -tolerance {
			return ErrInvalidSignature
		}
	}

	expected := computeSignature(payload, parsed.timestamp, secret)
	for _, candidate := range parsed.signatures {
		if hmac.Equal(candidate, expected) {
			return nil
		}
	}

	return ErrInvalidSignature
}

// computeSignature derives the expected HMAC for a payload at a timestamp.
func computeSignature(payload []byte, timestamp time.Time, secret string) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.", timestamp.Unix())
	mac.Write(payload)
	return mac.Sum(nil)
}

// SignPayload produces a valid signature header for a payload. Exported for
// test fixtures and local tooling that replays webhook deliveries.
func SignPayload(payload []byte, timestamp time.Time, secret string) string {
	sig := computeSignature(payload, timestamp, secret)
	return fmt.Sprintf("t=%d,v1=%s", timestamp.Unix(), hex.EncodeToString(sig))
}
