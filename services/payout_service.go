package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/Abhi-Verma2005/hrm8-backend-sub000/models"
)

// TransferClient issues outbound transfers at the payout provider.
type TransferClient interface {
	CreateTransfer(ctx context.Context, req models.TransferRequest) (*models.TransferResult, error)
	GetTransferStatus(ctx context.Context, correlationID string) (string, error)
}

// PayoutService handles interactions with the payout provider's transfer API
type PayoutService struct {
	baseURL    string
	channel    string
	secret     string
	httpClient *http.Client
}

// NewPayoutService creates a new payout service instance
func NewPayoutService() *PayoutService {
	baseURL := os.Getenv("PAYOUT_API_URL")
	if baseURL == "" {
		baseURL = "https://api.sandbox.payout-provider.example/v1/"
	}

	channel := os.Getenv("PAYOUT_CHANNEL")
	secret := os.Getenv("PAYOUT_SECRET")

	if channel == "" || secret == "" {
		log.Printf("WARNING: payout provider credentials not fully configured:")
		if channel == "" {
			log.Printf("  - PAYOUT_CHANNEL is missing")
		}
		if secret == "" {
			log.Printf("  - PAYOUT_SECRET is missing")
		}
		log.Printf("Set these environment variables for payout execution to work")
	}

	return &PayoutService{
		baseURL: baseURL,
		channel: channel,
		secret:  secret,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// getHeaders returns the standard headers required for provider API requests
func (s *PayoutService) getHeaders() map[string]string {
	return map[string]string{
		"Content-Type": "application/json",
		"channel":      s.channel,
		"secret":       s.secret,
	}
}

// makeRequest performs an HTTP request to the provider API
func (s *PayoutService) makeRequest(ctx context.Context, method, endpoint string, payload interface{}) (*models.TransferResponse, error) {
	url := s.baseURL + endpoint

	if s.channel == "" || s.secret == "" {
		return nil, fmt.Errorf("missing payout credentials. Please set PAYOUT_CHANNEL and PAYOUT_SECRET environment variables")
	}

	var body io.Reader
	if payload != nil {
		jsonData, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	for key, value := range s.getHeaders() {
		req.Header.Set(key, value)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if os.Getenv("PAYOUT_DEBUG") == "true" {
		log.Printf("Payout API Response: %s", string(respBody))
	}

	var transferResp models.TransferResponse
	if err := json.Unmarshal(respBody, &transferResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w\nResponse body: %s", err, string(respBody))
	}

	if !transferResp.Status {
		code := "unknown"
		if transferResp.Code != nil {
			if codeStr, ok := transferResp.Code.(string); ok {
				code = codeStr
			} else {
				code = fmt.Sprintf("%v", transferResp.Code)
			}
		}

		var errorMsg string
		if transferResp.Dialog != nil {
			if dialogMap, ok := transferResp.Dialog.(map[string]interface{}); ok {
				if msg, ok := dialogMap["message"].(string); ok {
					errorMsg = fmt.Sprintf("provider error: %s - %s", code, msg)
				}
			}
		}

		if errorMsg == "" {
			errorMsg = fmt.Sprintf("provider error: %s", code)
		}

		return &transferResp, fmt.Errorf("%s", errorMsg)
	}

	return &transferResp, nil
}

// CreateTransfer issues a single transfer to the consultant's payout
// destination. The request carries the withdrawal ID as both correlation
// and idempotency metadata so a duplicate submission cannot move money
// twice.
func (s *PayoutService) CreateTransfer(ctx context.Context, req models.TransferRequest) (*models.TransferResult, error) {
	resp, err := s.makeRequest(ctx, "POST", "payout/transfer", req)
	if err != nil {
		return nil, err
	}

	result := &models.TransferResult{}
	if transferID, ok := resp.Data["transferId"].(string); ok {
		result.TransferID = transferID
	}
	if settled, ok := resp.Data["settled"].(bool); ok {
		result.Settled = settled
	}

	if result.TransferID == "" {
		return nil, fmt.Errorf("failed to parse transfer ID from response")
	}

	return result, nil
}

// GetTransferStatus returns the provider-side status of a transfer,
// looked up by the correlation ID it was tagged with.
func (s *PayoutService) GetTransferStatus(ctx context.Context, correlationID string) (string, error) {
	payload := models.TransferRequest{
		CorrelationID: correlationID,
	}

	resp, err := s.makeRequest(ctx, "POST", "payout/transfer/status", payload)
	if err != nil {
		return "", err
	}

	if status, ok := resp.Data["transferStatus"].(string); ok {
		return status, nil
	}

	return "", fmt.Errorf("failed to parse transfer status from response")
}
