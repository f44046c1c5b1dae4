package adapter

import "context"

// Order is the provider-side order created ahead of checkout.
type Order struct {
	ProviderOrderID string
	Amount          int64 // minor units, echoed back by the provider
	Currency        string
	Status          string // provider status, e.g. "created", "paid"
}

// OrderGateway is the hex port for the payment provider's server-side API.
// Checkout UI and signed confirmations are handled by the provider's client
// SDK and arrive through the HTTP confirmation endpoints, not through this
// port.
type OrderGateway interface {
	Name() string

	// CreateOrder registers a payment order with the provider. The receipt
	// must be the intent's transaction id so provider dashboards and our
	// audit trail line up. amount is in minor units and must be positive.
	CreateOrder(ctx context.Context, amount int64, currency, receipt string, notes map[string]string) (*Order, error)

	// FetchOrderStatus reads the provider's current view of an order, used
	// by the stale-intent reaper before cancelling an abandoned checkout.
	FetchOrderStatus(ctx context.Context, providerOrderID string) (*Order, error)
}

// SignatureVerifier checks the authenticity of a provider confirmation.
// Implementations must be constant-time and must only ever run server-side;
// the shared secret never reaches a client.
type SignatureVerifier interface {
	Verify(orderID, paymentID, signature string) bool
}
