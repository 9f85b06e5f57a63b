// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"crypto/hmac"
	"errors"
	"net/http"
	"strings"
)

// CreditKeyHeader carries the shared secret on vote credit and moderation
// requests.
const CreditKeyHeader = "X-Credit-Key"

var (
	ErrCreditDisabled   = errors.New("credit key not configured")
	ErrInvalidCreditKey = errors.New("invalid credit key")
)

// ValidateCreditKey compares the provided key with the configured one in
// constant time. An empty configured key disables the check's endpoints.
func ValidateCreditKey(provided, configured string) error {
	if configured == "" {
		return ErrCreditDisabled
	}
	if !hmac.Equal([]byte(strings.TrimSpace(provided)), []byte(configured)) {
		return ErrInvalidCreditKey
	}
	return nil
}

// CreditKeyFromRequest reads the key from X-Credit-Key, falling back to a
// bearer token.
func CreditKeyFromRequest(r *http.Request) string {
	if key := r.Header.Get(CreditKeyHeader); key != "" {
		return key
	}
	if bearer, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return bearer
	}
	return ""
}
