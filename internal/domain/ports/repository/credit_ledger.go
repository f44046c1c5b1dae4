package repository

import (
	"context"

	"ai-caption-backend/internal/domain/model"
)

// CreditLedgerRepository owns the per-user credit balance. Both mutations
// are single conditional statements on the store so concurrent consume and
// credit operations serialize on the row without read-modify-write races.
type CreditLedgerRepository interface {
	// Balance returns the current balance; a user with no row has balance 0.
	Balance(ctx context.Context, tx Tx, userID string) (*model.UserCredits, error)

	// Consume decrements the balance by one, only when the balance is at
	// least one. Returns domain.ErrInsufficientCredits otherwise; never
	// clamps to zero.
	Consume(ctx context.Context, tx Tx, userID string) (*model.UserCredits, error)

	// AddCredits atomically increments the balance (upserting the row) and
	// returns the new balance. Only the payment reconciliation path calls
	// this, guarded by PaymentIntentRepository.MarkCreditsApplied in the
	// same transaction.
	AddCredits(ctx context.Context, tx Tx, userID string, amount int64) (*model.UserCredits, error)
}
