package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"ticket-storefront/internal/models"
)

// OrderSubmitter places orders with the backend
type OrderSubmitter interface {
	SubmitOrder(ctx context.Context, submission *models.OrderSubmission) (*models.OrderResponse, error)
}

// OrderAPIConfig represents the order backend connection settings
type OrderAPIConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// OrderAPIClient talks JSON to the storefront's order backend
type OrderAPIClient struct {
	config OrderAPIConfig
	client *http.Client
	logger *zap.Logger
}

// NewOrderAPIClient creates a new order backend client
func NewOrderAPIClient(config OrderAPIConfig, logger *zap.Logger) *OrderAPIClient {
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	config.BaseURL = strings.TrimSuffix(config.BaseURL, "/")
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrderAPIClient{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
		logger: logger,
	}
}

// OrderAPIError represents a non-JSON or server error reply from the order backend
type OrderAPIError struct {
	StatusCode int
	Message    string
}

func (e *OrderAPIError) Error() string {
	return fmt.Sprintf("order API error (%d): %s", e.StatusCode, e.Message)
}

type promoValidateRequest struct {
	Code string `json:"code"`
}

type promoValidateResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    struct {
		Rate decimal.Decimal `json:"rate"`
	} `json:"data"`
}

// SubmitOrder posts the order. A decoded reply is returned even when Success is false.
func (c *OrderAPIClient) SubmitOrder(ctx context.Context, submission *models.OrderSubmission) (*models.OrderResponse, error) {
	var orderResp models.OrderResponse
	status, err := c.postJSON(ctx, "/checkout", submission, &orderResp)
	if err != nil {
		return nil, err
	}

	c.logger.Info("order submitted",
		zap.Int("status", status),
		zap.Bool("success", orderResp.Success),
		zap.Bool("payment_redirect", orderResp.Data.PaymentURL != ""),
		zap.String("reference", orderResp.Data.Reference),
	)
	return &orderResp, nil
}

// CheckPromo asks the backend for the rate of code
func (c *OrderAPIClient) CheckPromo(ctx context.Context, code string) (decimal.Decimal, error) {
	var promoResp promoValidateResponse
	status, err := c.postJSON(ctx, "/promo/validate", promoValidateRequest{Code: code}, &promoResp)
	if err != nil {
		return decimal.Zero, err
	}
	// only a 2xx or 4xx verdict is authoritative
	if status >= http.StatusInternalServerError {
		message := promoResp.Message
		if message == "" {
			message = http.StatusText(status)
		}
		return decimal.Zero, &OrderAPIError{StatusCode: status, Message: message}
	}
	if !promoResp.Success {
		if promoResp.Message != "" {
			return decimal.Zero, fmt.Errorf("%w: %s", models.ErrPromoRejected, promoResp.Message)
		}
		return decimal.Zero, fmt.Errorf("%w: %s", models.ErrPromoRejected, code)
	}
	rate := promoResp.Data.Rate
	if !rate.IsPositive() || rate.GreaterThan(decimal.NewFromInt(1)) {
		return decimal.Zero, &OrderAPIError{StatusCode: http.StatusOK, Message: "promo rate out of range: " + rate.String()}
	}
	return rate, nil
}

// postJSON sends body and decodes the reply into out. Replies that are not
// JSON are reported as OrderAPIError.
func (c *OrderAPIClient) postJSON(ctx context.Context, path string, body, out any) (int, error) {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+path, bytes.NewBuffer(jsonData))
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if c.config.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		c.logger.Warn("order API request failed", zap.String("path", path), zap.Error(err))
		return 0, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("failed to read response body: %w", err)
	}

	if err := json.Unmarshal(bodyBytes, out); err != nil {
		c.logger.Warn("order API returned an unreadable reply",
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
		)
		return resp.StatusCode, &OrderAPIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(bodyBytes))}
	}
	return resp.StatusCode, nil
}
