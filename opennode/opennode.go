// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package opennode

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/danielhkuo/do4btc/models"
)

const DefaultBaseURL = "https://api.opennode.com"

// ErrChargeFailed wraps every failure to obtain an invoice.
var ErrChargeFailed = errors.New("charge failed")

// errRejected marks a 4xx answer. The API is up, so it does not count
// against the breaker.
var errRejected = errors.New("rejected by api")

type Config struct {
	BaseURL       string
	APIKey        string
	PublicBaseURL string
	Timeout       time.Duration
}

// Client creates Lightning charges. Calls go through a circuit breaker so a
// failing API is not hammered by every viewer at once.
type Client struct {
	cfg     Config
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
	logger  *zap.Logger
}

func New(cfg Config, logger *zap.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	cfg.PublicBaseURL = strings.TrimSuffix(cfg.PublicBaseURL, "/")
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}

	c := &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "opennode",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, errRejected)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
	return c
}

type chargeRequest struct {
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency"`
	Description string `json:"description"`
	OrderID     string `json:"order_id"`
	CallbackURL string `json:"callback_url,omitempty"`
	SuccessURL  string `json:"success_url,omitempty"`
}

// CreateCharge asks for an invoice of sats satoshis for a vote on ideaID.
func (c *Client) CreateCharge(ctx context.Context, ideaID, sats int64) (models.Charge, error) {
	if ideaID <= 0 || sats <= 0 {
		return models.Charge{}, fmt.Errorf("%w: idea id and amount must be positive", ErrChargeFailed)
	}

	res, err := c.breaker.Execute(func() (any, error) {
		return c.createCharge(ctx, ideaID, sats)
	})
	if err != nil {
		c.logger.Error("create charge", zap.Int64("idea_id", ideaID), zap.Error(err))
		return models.Charge{}, fmt.Errorf("%w: %w", ErrChargeFailed, err)
	}
	return res.(models.Charge), nil
}

func (c *Client) createCharge(ctx context.Context, ideaID, sats int64) (models.Charge, error) {
	body := chargeRequest{
		Amount:      sats,
		Currency:    "sats",
		Description: fmt.Sprintf("Vote for idea #%d", ideaID),
		OrderID:     fmt.Sprintf("idea-%d", ideaID),
	}
	if c.cfg.PublicBaseURL != "" {
		body.CallbackURL = c.cfg.PublicBaseURL + "/api/opennode-webhook"
		body.SuccessURL = c.cfg.PublicBaseURL + "?success=true"
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return models.Charge{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/v1/charges", bytes.NewReader(payload))
	if err != nil {
		return models.Charge{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", c.cfg.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return models.Charge{}, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return models.Charge{}, err
	}

	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		return models.Charge{}, fmt.Errorf("%w: status %d: %s", errRejected, resp.StatusCode, gjson.GetBytes(raw, "message").String())
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return models.Charge{}, fmt.Errorf("status %d", resp.StatusCode)
	}

	return parseCharge(raw)
}

func parseCharge(raw []byte) (models.Charge, error) {
	if !gjson.ValidBytes(raw) {
		return models.Charge{}, errors.New("malformed response")
	}

	data := gjson.GetBytes(raw, "data")
	charge := models.Charge{
		ID:      data.Get("id").String(),
		Invoice: data.Get("lightning_invoice.payreq").String(),
		Amount:  data.Get("amount").Int(),
	}
	if charge.ID == "" || charge.Invoice == "" {
		return models.Charge{}, errors.New("response without charge id or invoice")
	}
	return charge, nil
}
