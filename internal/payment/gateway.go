package payment

import "context"

// Gateway is the payment provider boundary. Token creation is keyed by the
// order number and the server-side recomputed amount.
type Gateway interface {
	CreateTransaction(
		ctx context.Context,
		orderNo string,
		grossAmount int64,
		customer CustomerInfo,
		items []ItemDetail,
	) (*TokenResponse, error)

	GetTransactionStatus(ctx context.Context, orderNo string) (*Notification, error)

	// VerifySignature recomputes the expected signature from the
	// notification fields and the server key. It is the sole authenticity
	// check on the webhook path.
	VerifySignature(n *Notification) error
}
