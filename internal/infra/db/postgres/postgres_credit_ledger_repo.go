package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"ai-caption-backend/internal/domain"
	"ai-caption-backend/internal/domain/model"
	"ai-caption-backend/internal/domain/ports/repository"
)

var _ repository.CreditLedgerRepository = (*creditLedgerRepo)(nil)

// creditLedgerRepo keeps the balance as one row per user and expresses both
// mutations as single conditional statements, so concurrent consumes and
// grants serialize on the row without read-modify-write windows. A CHECK
// constraint on the table backs up the non-negativity invariant.
type creditLedgerRepo struct{ pool *pgxpool.Pool }

func NewCreditLedgerRepo(pool *pgxpool.Pool) *creditLedgerRepo {
	return &creditLedgerRepo{pool: pool}
}

func (r *creditLedgerRepo) Balance(ctx context.Context, tx repository.Tx, userID string) (*model.UserCredits, error) {
	const q = `SELECT user_id, credits, updated_at FROM user_credits WHERE user_id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, userID)
	if err != nil {
		return nil, err
	}
	uc := &model.UserCredits{}
	if err := row.Scan(&uc.UserID, &uc.Credits, &uc.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// No row yet means the user simply has not been credited.
			return &model.UserCredits{UserID: userID}, nil
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return uc, nil
}

// Consume decrements by one only when at least one credit remains. The
// WHERE clause is the whole point: a balance of zero matches no row, so the
// decrement is rejected rather than clamped.
func (r *creditLedgerRepo) Consume(ctx context.Context, tx repository.Tx, userID string) (*model.UserCredits, error) {
	const q = `
UPDATE user_credits
   SET credits = credits - 1, updated_at = NOW()
 WHERE user_id = $1
   AND credits >= 1
RETURNING user_id, credits, updated_at;`
	row, err := pickRow(ctx, r.pool, tx, q, userID)
	if err != nil {
		return nil, err
	}
	uc := &model.UserCredits{}
	if err := row.Scan(&uc.UserID, &uc.Credits, &uc.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrInsufficientCredits
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return uc, nil
}

// AddCredits upserts and increments atomically, returning the new balance.
func (r *creditLedgerRepo) AddCredits(ctx context.Context, tx repository.Tx, userID string, amount int64) (*model.UserCredits, error) {
	if amount <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	const q = `
INSERT INTO user_credits (user_id, credits, updated_at)
VALUES ($1, $2, NOW())
ON CONFLICT (user_id) DO UPDATE
   SET credits = user_credits.credits + EXCLUDED.credits, updated_at = NOW()
RETURNING user_id, credits, updated_at;`
	row, err := pickRow(ctx, r.pool, tx, q, userID, amount)
	if err != nil {
		return nil, err
	}
	uc := &model.UserCredits{}
	if err := row.Scan(&uc.UserID, &uc.Credits, &uc.UpdatedAt); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return uc, nil
}
