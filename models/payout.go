package models

// TransferRequest represents the standard request structure for the payout
// provider's transfer API.
type TransferRequest struct {
	Amount         *float64 `json:"amount,omitempty"`
	Currency       string   `json:"currency,omitempty"`
	Destination    string   `json:"destination,omitempty"`
	CorrelationID  string   `json:"correlationId,omitempty"`
	IdempotencyKey string   `json:"idempotencyKey,omitempty"`
	Description    string   `json:"description,omitempty"`
}

// TransferResponse represents the standard response envelope from the
// payout provider API.
type TransferResponse struct {
	Status bool                   `json:"status"`
	Code   interface{}            `json:"code"`   // Can be string or null
	Dialog interface{}            `json:"dialog"` // Can be string, object, or null
	Data   map[string]interface{} `json:"data"`
}

// TransferResult is what the payout executor records after a transfer call.
type TransferResult struct {
	TransferID string `json:"transferId"`
	Settled    bool   `json:"settled"`
}

// ProviderEvent is a payout provider webhook delivery. CorrelationID
// carries the withdrawal ID the transfer was tagged with.
type ProviderEvent struct {
	Type          string `json:"type"`
	CorrelationID string `json:"correlationId"`
	TransferID    string `json:"transferId,omitempty"`
	FailureReason string `json:"failureReason,omitempty"`
}

// Provider event types
const (
	ProviderEventTransferSucceeded = "transfer.succeeded"
	ProviderEventTransferFailed    = "transfer.failed"
)
