// Package gateway is the client for the hosted payment provider. A checkout
// session is requested with one aggregate line item; the provider later
// confirms payment asynchronously through the webhook surface.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"commerce-service/config"
	"commerce-service/internal/util"

	"go.uber.org/zap"
)

type Client struct {
	httpClient *http.Client
	baseURL    string
	secretKey  string
	currency   string
	logger     *zap.Logger
}

// Session is the descriptor of a hosted checkout session returned to the
// caller; the buyer completes payment at URL.
type Session struct {
	ID                string `json:"id"`
	URL               string `json:"url"`
	AmountTotal       int64  `json:"amount_total"`
	Currency          string `json:"currency"`
	ClientReferenceID string `json:"client_reference_id"`
	CustomerEmail     string `json:"customer_email"`
}

// SessionParams describes one checkout session request. The cart identifier
// travels as the client reference so the webhook can correlate the payment
// back to the cart.
type SessionParams struct {
	AmountTotal       int64
	ProductName       string
	CustomerEmail     string
	ClientReferenceID string
	SuccessURL        string
	CancelURL         string
	Metadata          map[string]string
}

// NewClient creates a gateway client from configuration
func NewClient(cfg config.GatewayConfig) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		secretKey:  cfg.SecretKey,
		currency:   cfg.Currency,
		logger:     util.GetLogger(),
	}
}

// CreateCheckoutSession requests a hosted payment session. The amount is in
// the smallest currency unit.
func (c *Client) CreateCheckoutSession(ctx context.Context, params SessionParams) (*Session, error) {
	ctx, span := util.StartSpan(ctx, "gateway.CreateCheckoutSession")
	defer span.End()

	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("payment_method_types[0]", "card")
	form.Set("line_items[0][price_data][currency]", c.currency)
	form.Set("line_items[0][price_data][product_data][name]", params.ProductName)
	form.Set("line_items[0][price_data][unit_amount]", strconv.FormatInt(params.AmountTotal, 10))
	form.Set("line_items[0][quantity]", "1")
	form.Set("success_url", params.SuccessURL)
	form.Set("cancel_url", params.CancelURL)
	form.Set("customer_email", params.CustomerEmail)
	form.Set("client_reference_id", params.ClientReferenceID)
	for k, v := range params.Metadata {
		form.Set(fmt.Sprintf("metadata[%s]", k), v)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/checkout/sessions", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read gateway response: %w", err)
	}

	if resp.StatusCode >= 400 {
		c.logger.Error("Gateway rejected session request",
			zap.Int("status", resp.StatusCode),
			zap.String("reference", params.ClientReferenceID))
		return nil, fmt.Errorf("gateway returned status %d: %s", resp.StatusCode, truncate(body, 512))
	}

	var session Session
	if err := json.Unmarshal(body, &session); err != nil {
		return nil, fmt.Errorf("failed to decode gateway session: %w", err)
	}

	return &session, nil
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}
