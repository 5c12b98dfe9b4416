package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/SpideeCode/uberPharmaV2/internal/models"
	"github.com/SpideeCode/uberPharmaV2/pkg/circuitbreaker"
	apperrors "github.com/SpideeCode/uberPharmaV2/pkg/errors"
	"github.com/SpideeCode/uberPharmaV2/pkg/logger"
	"github.com/SpideeCode/uberPharmaV2/pkg/retry"
)

// ChargeRequest is the payload sent to the payment gateway
type ChargeRequest struct {
	OrderID string               `json:"order_id"`
	UserID  string               `json:"user_id"`
	Amount  float64              `json:"amount"`
	Method  models.PaymentMethod `json:"method"`
}

// ChargeResult is the gateway's verdict on a charge attempt
type ChargeResult struct {
	Authorized    bool   `json:"authorized"`
	TransactionID string `json:"transaction_id"`
	DeclineReason string `json:"decline_reason,omitempty"`
}

// PaymentClient talks to the external payment gateway. Transient gateway
// failures are retried with backoff; a persistently failing gateway trips the
// circuit breaker so checkout fails fast instead of piling up timeouts.
type PaymentClient struct {
	baseURL    string
	httpClient *http.Client
	breaker    *circuitbreaker.CircuitBreaker
	logger     logger.Logger
}

// NewPaymentClient creates a new PaymentClient
func NewPaymentClient(baseURL string, logger logger.Logger) *PaymentClient {
	return &PaymentClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
		breaker: circuitbreaker.New(circuitbreaker.Config{
			FailureThreshold: 5,
			ResetTimeout:     30 * time.Second,
			HalfOpenMaxCalls: 2,
		}),
		logger: logger,
	}
}

// Breaker exposes the circuit breaker for status reporting
func (c *PaymentClient) Breaker() *circuitbreaker.CircuitBreaker {
	return c.breaker
}

// Charge submits a charge to the gateway
func (c *PaymentClient) Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error) {
	if !c.breaker.Allow() {
		c.logger.Warn("Payment gateway circuit open, failing fast", "orderID", req.OrderID)
		return nil, apperrors.NewTemporaryError("payment gateway unavailable")
	}

	var result *ChargeResult

	err := retry.Retry(ctx, func() error {
		res, callErr := c.doCharge(ctx, req)
		if callErr != nil {
			return callErr
		}
		result = res
		return nil
	}, &retry.RetryConfig{
		MaxAttempts:     3,
		BackoffStrategy: retry.NewDefaultExponentialBackoff(),
		Logger:          c.logger,
		RetryableErrors: []error{apperrors.ErrTemporaryFailure, apperrors.ErrRateLimited, apperrors.ErrTimeout},
	})

	if err != nil {
		c.breaker.Failure()
		return nil, err
	}

	c.breaker.Success()
	return result, nil
}

func (c *PaymentClient) doCharge(ctx context.Context, req ChargeRequest) (*ChargeResult, error) {
	body, err := json.Marshal(req)

	if err != nil {
		return nil, apperrors.NewInternalError("failed to encode charge request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/charges", bytes.NewReader(body))

	if err != nil {
		return nil, apperrors.NewInternalError("failed to build charge request")
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)

	if err != nil {
		c.logger.Warn("Payment gateway call failed", "error", err, "orderID", req.OrderID)
		return nil, apperrors.NewTemporaryError("payment gateway unreachable")
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 500:
		return nil, apperrors.NewTemporaryError(fmt.Sprintf("payment gateway returned %d", resp.StatusCode))
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, apperrors.NewRateLimitedError("payment gateway rate limited")
	case resp.StatusCode >= 400:
		// A 4xx verdict is final, retrying the same charge will not help.
		payload, _ := io.ReadAll(resp.Body)
		return &ChargeResult{Authorized: false, DeclineReason: string(payload)}, nil
	}

	var result ChargeResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, apperrors.NewTemporaryError("payment gateway returned malformed response")
	}

	return &result, nil
}
