package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/example/storefront/pkg/config"
	"go.uber.org/zap"
)

// StatusSuccessful is the gateway's terminal success status for a
// transaction.
const StatusSuccessful = "successful"

// Client talks to the hosted payment gateway: one call to initialize a
// checkout (returning the hosted page URL to redirect the browser to) and
// one to verify a transaction after the gateway redirects back. Single
// attempt each; errors surface to the caller.
type Client struct {
	httpClient *http.Client
	baseURL    string
	secretKey  string
	logger     *zap.Logger
}

func NewClient(cfg *config.PaymentConfig, logger *zap.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    cfg.BaseURL,
		secretKey:  cfg.SecretKey,
		logger:     logger,
	}
}

type InitializeRequest struct {
	TxRef       string  `json:"tx_ref"`
	Amount      float64 `json:"amount"`
	Currency    string  `json:"currency"`
	RedirectURL string  `json:"redirect_url"`
	Customer    struct {
		Email string `json:"email"`
		Name  string `json:"name"`
		Phone string `json:"phone_number"`
	} `json:"customer"`
}

type initializeResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Data    struct {
		Link string `json:"link"`
	} `json:"data"`
}

// Initialize registers the checkout with the gateway and returns the hosted
// payment page URL.
func (c *Client) Initialize(ctx context.Context, req InitializeRequest) (string, error) {
	var resp initializeResponse
	if err := c.post(ctx, "/payments", req, &resp); err != nil {
		return "", err
	}
	if resp.Status != "success" || resp.Data.Link == "" {
		return "", fmt.Errorf("payment initialization rejected: %s", resp.Message)
	}
	return resp.Data.Link, nil
}

// VerifyResult is the gateway's view of a transaction.
type VerifyResult struct {
	Status   string  `json:"status"`
	TxRef    string  `json:"tx_ref"`
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

type verifyResponse struct {
	Status  string       `json:"status"`
	Message string       `json:"message"`
	Data    VerifyResult `json:"data"`
}

// Verify fetches the gateway's record of the transaction.
func (c *Client) Verify(ctx context.Context, transactionID string) (*VerifyResult, error) {
	url := fmt.Sprintf("%s/transactions/%s/verify", c.baseURL, transactionID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.secretKey)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("gateway verify request failed: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gateway verify returned status %d", httpResp.StatusCode)
	}

	var resp verifyResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("failed to decode verify response: %w", err)
	}
	if resp.Status != "success" {
		return nil, fmt.Errorf("gateway verify rejected: %s", resp.Message)
	}
	return &resp.Data, nil
}

func (c *Client) post(ctx context.Context, path string, body, dest interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.secretKey)
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("gateway request failed: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		c.logger.Warn("Gateway returned non-OK status",
			zap.String("path", path),
			zap.Int("status", httpResp.StatusCode))
		return fmt.Errorf("gateway returned status %d", httpResp.StatusCode)
	}

	return json.NewDecoder(httpResp.Body).Decode(dest)
}
