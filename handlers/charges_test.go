// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/danielhkuo/do4btc/models"
	"github.com/danielhkuo/do4btc/testutil"
)

type fakeCharger struct {
	err         error
	gotID       int64
	gotSats     int64
	invocations int
}

func (f *fakeCharger) CreateCharge(_ context.Context, ideaID, sats int64) (models.Charge, error) {
	f.invocations++
	f.gotID, f.gotSats = ideaID, sats
	if f.err != nil {
		return models.Charge{}, f.err
	}
	return models.Charge{ID: "ch_123", Invoice: "lnbc10u1test", Amount: sats}, nil
}

func TestCreateCharge(t *testing.T) {
	tests := []struct {
		name           string
		body           any
		chargeErr      error
		expectedStatus int
		expectedMsg    string
		expectCall     bool
	}{
		{
			name:           "valid charge",
			body:           models.ChargeRequest{IdeaID: 7, Amount: 1000},
			expectedStatus: http.StatusOK,
			expectCall:     true,
		},
		{
			name:           "missing idea id",
			body:           map[string]int{"amount": 1000},
			expectedStatus: http.StatusBadRequest,
			expectedMsg:    "Missing required fields",
		},
		{
			name:           "missing amount",
			body:           map[string]int{"ideaId": 7},
			expectedStatus: http.StatusBadRequest,
			expectedMsg:    "Missing required fields",
		},
		{
			name:           "negative amount",
			body:           models.ChargeRequest{IdeaID: 7, Amount: -1},
			expectedStatus: http.StatusBadRequest,
			expectedMsg:    "Missing required fields",
		},
		{
			name:           "malformed body",
			body:           []int{1, 2},
			expectedStatus: http.StatusBadRequest,
			expectedMsg:    "Missing required fields",
		},
		{
			name:           "provider failure",
			body:           models.ChargeRequest{IdeaID: 7, Amount: 1000},
			chargeErr:      errBoom,
			expectedStatus: http.StatusInternalServerError,
			expectedMsg:    "Failed to create charge",
			expectCall:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			charger := &fakeCharger{err: tt.chargeErr}
			handler := NewChargeHandler(charger, zap.NewNop(), nil)

			w := httptest.NewRecorder()
			handler.CreateCharge(w, testutil.MakeRequest("POST", "/api/opennode/charge", tt.body, nil))

			testutil.AssertStatus(t, w, tt.expectedStatus)
			if (charger.invocations == 1) != tt.expectCall {
				t.Errorf("Expected charger call=%v, got %d calls", tt.expectCall, charger.invocations)
			}

			if tt.expectedStatus != http.StatusOK {
				var resp models.ErrorResponse
				testutil.AssertJSON(t, w, &resp)
				if resp.Message != tt.expectedMsg {
					t.Errorf("Expected message %q, got %q", tt.expectedMsg, resp.Message)
				}
				return
			}

			var charge models.Charge
			testutil.AssertJSON(t, w, &charge)
			if charge.ID != "ch_123" || charge.Invoice == "" || charge.Amount != 1000 {
				t.Errorf("Unexpected charge %+v", charge)
			}
			if charger.gotID != 7 || charger.gotSats != 1000 {
				t.Errorf("Charger got idea %d for %d sats", charger.gotID, charger.gotSats)
			}
		})
	}
}
