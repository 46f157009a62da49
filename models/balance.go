package models

// BalanceSnapshot is the derived view of a consultant's ledger position.
// It is always recomputed from the commission and withdrawal collections
// and never persisted, so it cannot drift from the underlying records.
type BalanceSnapshot struct {
	AvailableBalance float64 `json:"availableBalance"`
	PendingBalance   float64 `json:"pendingBalance"`
	TotalEarned      float64 `json:"totalEarned"`
	TotalWithdrawn   float64 `json:"totalWithdrawn"`
}
