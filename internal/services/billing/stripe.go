package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/ticketwatch/backend/internal/config"
)

// Client talks to the payment processor's query API. Only the lookups
// the recovery job needs are implemented; payment execution stays with
// the processor.
type Client struct {
	secretKey  string
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new payment-processor API client
func NewClient(cfg config.StripeConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.stripe.com"
	}

	return &Client{
		secretKey: cfg.SecretKey,
		baseURL:   baseURL,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// listSessionsResponse wraps the processor's list envelope
type listSessionsResponse struct {
	Data    []CheckoutSession `json:"data"`
	HasMore bool              `json:"has_more"`
}

// ListCheckoutSessions returns the customer's recent checkout
// sessions, newest first. The recovery job scans their metadata for a
// referral token.
func (c *Client) ListCheckoutSessions(ctx context.Context, customerID string) ([]CheckoutSession, error) {
	params := url.Values{}
	params.Set("customer", customerID)
	params.Set("limit", "10")

	endpoint := fmt.Sprintf("%s/v1/checkout/sessions?%s", c.baseURL, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to list checkout sessions: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("checkout session lookup returned status %d: %s", resp.StatusCode, string(body))
	}

	var parsed listSessionsResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse session list: %w", err)
	}

	return parsed.Data, nil
}
