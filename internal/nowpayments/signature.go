package nowpayments

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"strings"
)

// SignatureHeader carries the processor's HMAC of the raw notification body.
const SignatureHeader = "x-nowpayments-sig"

var ErrInvalidSignature = errors.New("invalid signature")

// Sign returns the lowercase hex HMAC-SHA512 of body under secret.
func Sign(body []byte, secret string) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks sig against the HMAC of the exact bytes received.
// An optional "sha512=" prefix and surrounding whitespace are ignored and the
// hex comparison is case-insensitive.
func VerifySignature(body []byte, sig, secret string) error {
	if secret == "" {
		return ErrInvalidSignature
	}

	sig = strings.ToLower(strings.TrimSpace(sig))
	sig = strings.TrimPrefix(sig, "sha512=")
	if sig == "" {
		return ErrInvalidSignature
	}

	got, err := hex.DecodeString(sig)
	if err != nil {
		return ErrInvalidSignature
	}

	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(body)
	if !hmac.Equal(got, mac.Sum(nil)) {
		return ErrInvalidSignature
	}

	return nil
}
