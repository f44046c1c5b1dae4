package repository

import (
	"context"
	"time"

	"ai-caption-backend/internal/domain/model"
)

// PaymentIntentRepository persists the purchase-attempt lifecycle. Every
// state transition is expressed as a conditional update so that two
// near-simultaneous confirmation deliveries cannot both win; callers learn
// whether they won from the bool results.
type PaymentIntentRepository interface {
	Insert(ctx context.Context, tx Tx, p *model.PaymentIntent) error
	FindByTransactionID(ctx context.Context, tx Tx, transactionID string) (*model.PaymentIntent, error)
	FindByProviderOrderID(ctx context.Context, tx Tx, providerOrderID string) (*model.PaymentIntent, error)
	ListByUser(ctx context.Context, tx Tx, userID string, limit int) ([]*model.PaymentIntent, error)
	ListPendingOlderThan(ctx context.Context, tx Tx, olderThan time.Time, limit int) ([]*model.PaymentIntent, error)

	// SetProviderOrderIfEmpty records the remote order id exactly once.
	SetProviderOrderIfEmpty(ctx context.Context, tx Tx, transactionID, providerOrderID string) (bool, error)

	// ClaimProcessing moves pending -> processing and records the provider
	// payment id and signature. Only the first confirmation for a given
	// transaction claims it; later deliveries see false.
	ClaimProcessing(ctx context.Context, tx Tx, transactionID, providerPayID, providerSig string) (bool, error)

	// MarkSucceeded moves processing -> success.
	MarkSucceeded(ctx context.Context, tx Tx, transactionID string) (bool, error)

	// MarkFailedIfOpen moves pending/processing -> failed with a diagnostic;
	// a no-op (false) when the intent is already terminal.
	MarkFailedIfOpen(ctx context.Context, tx Tx, transactionID, errorDescription string) (bool, error)

	// CancelIfPending moves pending -> cancelled (host UI dismissed checkout).
	CancelIfPending(ctx context.Context, tx Tx, transactionID string) (bool, error)

	// CancelPendingByUser cancels every pending intent of the user and
	// returns how many rows changed. Stale-intent cleanup before Initiate.
	CancelPendingByUser(ctx context.Context, tx Tx, userID string) (int64, error)

	// MarkCreditsApplied flips the idempotency guard false -> true. It is the
	// single source of truth for "already paid out": a false result means the
	// ledger must not be touched again for this intent.
	MarkCreditsApplied(ctx context.Context, tx Tx, transactionID string) (bool, error)
}
