package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"ai-caption-backend/internal/domain"
	"ai-caption-backend/internal/domain/model"
	"ai-caption-backend/internal/domain/ports/repository"
)

var _ repository.PaymentIntentRepository = (*intentRepo)(nil)

// intentRepo persists payment intents. Rows are append-only: every method
// here is an INSERT or a conditional UPDATE; nothing ever deletes.
type intentRepo struct{ pool *pgxpool.Pool }

func NewPaymentIntentRepo(pool *pgxpool.Pool) *intentRepo {
	return &intentRepo{pool: pool}
}

const intentColumns = `transaction_id, user_id, package_id, amount, currency, credits, status, credits_added,
  COALESCE(razorpay_order_id,''), COALESCE(razorpay_payment_id,''), COALESCE(razorpay_signature,''),
  COALESCE(error_description,''), created_at, updated_at`

func scanIntent(row pgx.Row) (*model.PaymentIntent, error) {
	p := &model.PaymentIntent{}
	err := row.Scan(
		&p.TransactionID, &p.UserID, &p.PackageID, &p.AmountMinorUnits, &p.Currency, &p.CreditsRequested,
		&p.Status, &p.CreditsApplied, &p.ProviderOrderID, &p.ProviderPayID, &p.ProviderSig,
		&p.ErrorDescription, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return p, nil
}

func (r *intentRepo) Insert(ctx context.Context, tx repository.Tx, p *model.PaymentIntent) error {
	const q = `
INSERT INTO payment_intents (
  transaction_id, user_id, package_id, amount, currency, credits, status, credits_added,
  razorpay_order_id, razorpay_payment_id, razorpay_signature, error_description, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,NULLIF($9,''),NULLIF($10,''),NULLIF($11,''),NULLIF($12,''),$13,$14);`

	_, err := execSQL(ctx, r.pool, tx, q,
		p.TransactionID, p.UserID, p.PackageID, p.AmountMinorUnits, p.Currency, p.CreditsRequested,
		p.Status, p.CreditsApplied, p.ProviderOrderID, p.ProviderPayID, p.ProviderSig,
		p.ErrorDescription, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *intentRepo) FindByTransactionID(ctx context.Context, tx repository.Tx, transactionID string) (*model.PaymentIntent, error) {
	q := `SELECT ` + intentColumns + ` FROM payment_intents WHERE transaction_id=$1`
	if _, ok := tx.(pgx.Tx); ok {
		q += " FOR UPDATE"
	}
	row, err := pickRow(ctx, r.pool, tx, q+";", transactionID)
	if err != nil {
		return nil, err
	}
	return scanIntent(row)
}

func (r *intentRepo) FindByProviderOrderID(ctx context.Context, tx repository.Tx, providerOrderID string) (*model.PaymentIntent, error) {
	q := `SELECT ` + intentColumns + ` FROM payment_intents WHERE razorpay_order_id=$1`
	if _, ok := tx.(pgx.Tx); ok {
		q += " FOR UPDATE"
	}
	row, err := pickRow(ctx, r.pool, tx, q+";", providerOrderID)
	if err != nil {
		return nil, err
	}
	return scanIntent(row)
}

func (r *intentRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string, limit int) ([]*model.PaymentIntent, error) {
	if limit <= 0 {
		limit = 50
	}
	q := `SELECT ` + intentColumns + ` FROM payment_intents WHERE user_id=$1 ORDER BY created_at DESC LIMIT $2;`
	rows, err := queryRows(ctx, r.pool, tx, q, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectIntents(rows)
}

func (r *intentRepo) ListPendingOlderThan(ctx context.Context, tx repository.Tx, olderThan time.Time, limit int) ([]*model.PaymentIntent, error) {
	if limit <= 0 {
		limit = 100
	}
	q := `SELECT ` + intentColumns + ` FROM payment_intents WHERE status='pending' AND created_at < $1 ORDER BY created_at ASC LIMIT $2;`
	rows, err := queryRows(ctx, r.pool, tx, q, olderThan, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectIntents(rows)
}

func collectIntents(rows pgx.Rows) ([]*model.PaymentIntent, error) {
	var out []*model.PaymentIntent
	for rows.Next() {
		p, err := scanIntent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if rows.Err() != nil {
		return nil, domain.ErrOperationFailed
	}
	return out, nil
}

// SetProviderOrderIfEmpty records the provider order id exactly once; a
// second call for the same intent changes nothing and reports false.
func (r *intentRepo) SetProviderOrderIfEmpty(ctx context.Context, tx repository.Tx, transactionID, providerOrderID string) (bool, error) {
	const q = `
UPDATE payment_intents
   SET razorpay_order_id = $2, updated_at = NOW()
 WHERE transaction_id = $1
   AND razorpay_order_id IS NULL
   AND status = 'pending';`
	return r.condUpdate(ctx, tx, q, transactionID, providerOrderID)
}

// ClaimProcessing honors only the first confirmation for a transaction:
// the status predicate makes redeliveries lose the race at the database.
func (r *intentRepo) ClaimProcessing(ctx context.Context, tx repository.Tx, transactionID, providerPayID, providerSig string) (bool, error) {
	const q = `
UPDATE payment_intents
   SET status = 'processing', razorpay_payment_id = $2, razorpay_signature = $3, updated_at = NOW()
 WHERE transaction_id = $1
   AND status = 'pending';`
	return r.condUpdate(ctx, tx, q, transactionID, providerPayID, providerSig)
}

func (r *intentRepo) MarkSucceeded(ctx context.Context, tx repository.Tx, transactionID string) (bool, error) {
	const q = `
UPDATE payment_intents
   SET status = 'success', updated_at = NOW()
 WHERE transaction_id = $1
   AND status = 'processing';`
	return r.condUpdate(ctx, tx, q, transactionID)
}

func (r *intentRepo) MarkFailedIfOpen(ctx context.Context, tx repository.Tx, transactionID, errorDescription string) (bool, error) {
	const q = `
UPDATE payment_intents
   SET status = 'failed', error_description = $2, updated_at = NOW()
 WHERE transaction_id = $1
   AND status IN ('pending','processing');`
	return r.condUpdate(ctx, tx, q, transactionID, errorDescription)
}

func (r *intentRepo) CancelIfPending(ctx context.Context, tx repository.Tx, transactionID string) (bool, error) {
	const q = `
UPDATE payment_intents
   SET status = 'cancelled', updated_at = NOW()
 WHERE transaction_id = $1
   AND status = 'pending';`
	return r.condUpdate(ctx, tx, q, transactionID)
}

func (r *intentRepo) CancelPendingByUser(ctx context.Context, tx repository.Tx, userID string) (int64, error) {
	const q = `
UPDATE payment_intents
   SET status = 'cancelled', error_description = 'superseded by a newer purchase attempt', updated_at = NOW()
 WHERE user_id = $1
   AND status = 'pending';`
	cmd, err := execSQL(ctx, r.pool, tx, q, userID)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return 0, err
		}
		return 0, domain.ErrOperationFailed
	}
	return cmd.RowsAffected(), nil
}

// MarkCreditsApplied flips the idempotency guard. false means some earlier
// call already paid this intent out and the ledger must not move again.
func (r *intentRepo) MarkCreditsApplied(ctx context.Context, tx repository.Tx, transactionID string) (bool, error) {
	const q = `
UPDATE payment_intents
   SET credits_added = TRUE, updated_at = NOW()
 WHERE transaction_id = $1
   AND credits_added = FALSE;`
	return r.condUpdate(ctx, tx, q, transactionID)
}

func (r *intentRepo) condUpdate(ctx context.Context, tx repository.Tx, q string, args ...interface{}) (bool, error) {
	cmd, err := execSQL(ctx, r.pool, tx, q, args...)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	return cmd.RowsAffected() >= 1, nil
}
