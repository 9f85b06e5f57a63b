// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"errors"
	"net/http/httptest"
	"testing"
)

func TestValidateCreditKey(t *testing.T) {
	tests := []struct {
		name       string
		provided   string
		configured string
		wantErr    error
	}{
		{"match", "s3cret", "s3cret", nil},
		{"surrounding space", " s3cret\n", "s3cret", nil},
		{"mismatch", "guess", "s3cret", ErrInvalidCreditKey},
		{"missing", "", "s3cret", ErrInvalidCreditKey},
		{"prefix only", "s3cre", "s3cret", ErrInvalidCreditKey},
		{"disabled", "anything", "", ErrCreditDisabled},
		{"disabled and empty", "", "", ErrCreditDisabled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCreditKey(tt.provided, tt.configured)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateCreditKey() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestCreditKeyFromRequest(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{"header", map[string]string{CreditKeyHeader: "k1"}, "k1"},
		{"bearer", map[string]string{"Authorization": "Bearer k2"}, "k2"},
		{"header wins", map[string]string{CreditKeyHeader: "k1", "Authorization": "Bearer k2"}, "k1"},
		{"basic ignored", map[string]string{"Authorization": "Basic abc"}, ""},
		{"none", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("POST", "/ideas/1/votes", nil)
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			if got := CreditKeyFromRequest(r); got != tt.want {
				t.Errorf("CreditKeyFromRequest() = %q, want %q", got, tt.want)
			}
		})
	}
}
