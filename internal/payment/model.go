package payment

import (
	"encoding/json"
	"time"
)

// Notification is the payment provider's webhook payload; the status poll
// returns the same vocabulary.
type Notification struct {
	OrderID           string `json:"order_id"`
	StatusCode        string `json:"status_code"`
	GrossAmount       string `json:"gross_amount"`
	SignatureKey      string `json:"signature_key"`
	TransactionStatus string `json:"transaction_status"`
	FraudStatus       string `json:"fraud_status"`
	PaymentType       string `json:"payment_type"`
	TransactionID     string `json:"transaction_id"`

	Raw json.RawMessage `json:"-"`
}

// TokenResponse is the opaque payment token handed to the hosted checkout UI.
type TokenResponse struct {
	Token       string `json:"token"`
	RedirectURL string `json:"redirect_url"`
}

type CustomerInfo struct {
	Name  string
	Email string
	Phone string
}

type ItemDetail struct {
	ID       string
	Name     string
	Price    int64
	Quantity int
}

// Outcome is the internal reading of the provider's transaction status.
type Outcome int

const (
	OutcomeIgnore Outcome = iota
	OutcomePaid
	OutcomeFailed
)

// MapTransactionStatus maps the provider's transaction_status vocabulary to
// an internal outcome. Anything unrecognized (e.g. "pending") is ignored:
// acknowledge and exit without a status change.
func MapTransactionStatus(transactionStatus, fraudStatus string) Outcome {
	switch transactionStatus {
	case "settlement":
		return OutcomePaid
	case "capture":
		if fraudStatus == "challenge" || fraudStatus == "deny" {
			return OutcomeIgnore
		}
		return OutcomePaid
	case "cancel", "deny", "expire":
		return OutcomeFailed
	default:
		return OutcomeIgnore
	}
}

// StatusEvent is one append-only audit row per reconciliation attempt.
// Rows are never mutated or deleted.
type StatusEvent struct {
	ID            int64
	OrderNo       string
	TransactionID string
	StatusCode    string
	StatusMessage string
	Payload       json.RawMessage
	CreatedAt     time.Time
}
