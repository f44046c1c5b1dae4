// File: internal/usecase/purchase_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"ai-caption-backend/internal/domain"
	"ai-caption-backend/internal/domain/model"
	"ai-caption-backend/internal/domain/ports/adapter"
	"ai-caption-backend/internal/domain/ports/repository"
	"ai-caption-backend/internal/infra/metrics"
)

// Confirmation is the single event shape all three client channels reduce
// to: the checkout SDK success callback, the provider deep-link redirect,
// and the app-resume probe all carry the same three provider fields.
type Confirmation struct {
	ProviderOrderID   string
	ProviderPaymentID string
	Signature         string
	Source            string // "checkout" | "deeplink" | "probe" | "reconciler"
}

// ConfirmResult reports what the funnel did with one delivery.
type ConfirmResult struct {
	Intent       *model.PaymentIntent
	Verified     bool
	CreditsAdded int64 // 0 on duplicate deliveries
	TotalCredits int64
}

// Compile-time check
var _ PurchaseUseCase = (*purchaseUC)(nil)

type PurchaseUseCase interface {
	// Initiate starts a purchase: cancels any stale pending intent for the
	// user, creates a fresh one and registers the provider order.
	Initiate(ctx context.Context, userID, packageID string) (*model.PaymentIntent, error)
	// Confirm is the idempotent funnel for every confirmation delivery.
	Confirm(ctx context.Context, c Confirmation) (*ConfirmResult, error)
	// Fail records a provider-side error for an open intent.
	Fail(ctx context.Context, userID, transactionID, reason string) error
	// Cancel records a host-UI dismissal of the checkout.
	Cancel(ctx context.Context, userID, transactionID string) error
	// Balance returns the user's current credit balance.
	Balance(ctx context.Context, userID string) (*model.UserCredits, error)
	// History lists the user's purchase attempts, newest first.
	History(ctx context.Context, userID string, limit int) ([]*model.PaymentIntent, error)
	// ListPackages lists the purchasable credit packages.
	ListPackages(ctx context.Context) ([]*model.CreditPackage, error)
}

type purchaseUC struct {
	intents  repository.PaymentIntentRepository
	ledger   repository.CreditLedgerRepository
	packages repository.CreditPackageRepository
	gateway  adapter.OrderGateway
	verifier adapter.SignatureVerifier
	tm       repository.TransactionManager
	log      *zerolog.Logger
}

func NewPurchaseUseCase(
	intents repository.PaymentIntentRepository,
	ledger repository.CreditLedgerRepository,
	packages repository.CreditPackageRepository,
	gateway adapter.OrderGateway,
	verifier adapter.SignatureVerifier,
	tm repository.TransactionManager,
	log *zerolog.Logger,
) *purchaseUC {
	return &purchaseUC{
		intents:  intents,
		ledger:   ledger,
		packages: packages,
		gateway:  gateway,
		verifier: verifier,
		tm:       tm,
		log:      log,
	}
}

func (u *purchaseUC) Initiate(ctx context.Context, userID, packageID string) (*model.PaymentIntent, error) {
	pkg, err := u.packages.FindByID(ctx, nil, packageID)
	if err != nil {
		return nil, err
	}
	if !pkg.Active {
		return nil, domain.ErrNotFound
	}

	// Stale-intent cleanup: at most one pending intent per user.
	if n, err := u.intents.CancelPendingByUser(ctx, nil, userID); err != nil {
		return nil, err
	} else if n > 0 {
		u.log.Info().Str("user_id", userID).Int64("cancelled", n).Msg("cancelled stale pending intents")
		metrics.IncIntent(string(model.IntentStatusCancelled))
	}

	intent, err := model.NewPaymentIntent(userID, pkg)
	if err != nil {
		return nil, err
	}
	// The intent row exists before the provider order is requested, so a
	// provider order id can never map to more than one intent.
	if err := u.intents.Insert(ctx, nil, intent); err != nil {
		return nil, err
	}
	metrics.IncIntent(string(model.IntentStatusPending))

	order, err := u.gateway.CreateOrder(ctx, intent.AmountMinorUnits, intent.Currency, intent.TransactionID, map[string]string{
		"user_id":    userID,
		"package_id": packageID,
	})
	if err != nil {
		if _, mErr := u.intents.MarkFailedIfOpen(ctx, nil, intent.TransactionID, err.Error()); mErr != nil {
			u.log.Error().Err(mErr).Str("transaction_id", intent.TransactionID).Msg("failed to mark intent failed after order error")
		}
		metrics.IncIntent(string(model.IntentStatusFailed))
		u.log.Warn().Err(err).Str("transaction_id", intent.TransactionID).Msg("order creation failed")
		return nil, err
	}

	if ok, err := u.intents.SetProviderOrderIfEmpty(ctx, nil, intent.TransactionID, order.ProviderOrderID); err != nil {
		return nil, err
	} else if !ok {
		// The intent moved under us (another device cancelled it, or a
		// duplicate call won). Treat like any other failed start.
		return nil, fmt.Errorf("%w: intent no longer pending", domain.ErrOrderCreation)
	}

	intent.ProviderOrderID = order.ProviderOrderID
	u.log.Info().
		Str("transaction_id", intent.TransactionID).
		Str("provider_order_id", order.ProviderOrderID).
		Int64("amount", intent.AmountMinorUnits).
		Msg("payment intent initiated")
	return intent, nil
}

func (u *purchaseUC) Confirm(ctx context.Context, c Confirmation) (*ConfirmResult, error) {
	if c.ProviderOrderID == "" || c.ProviderPaymentID == "" || c.Signature == "" {
		return nil, domain.ErrInvalidConfirmation
	}

	p, err := u.intents.FindByProviderOrderID(ctx, nil, c.ProviderOrderID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			u.log.Warn().Str("provider_order_id", c.ProviderOrderID).Str("source", c.Source).Msg("confirmation for unknown order")
			metrics.IncConfirmation(c.Source, "stale")
			return nil, domain.ErrInvalidConfirmation
		}
		return nil, err
	}

	// Late or duplicate delivery for a settled intent: log and ignore.
	// Success stays success, the ledger does not move again.
	if p.IsTerminal() {
		u.log.Info().
			Str("transaction_id", p.TransactionID).
			Str("status", string(p.Status)).
			Str("source", c.Source).
			Msg("ignoring confirmation for terminal intent")
		metrics.IncConfirmation(c.Source, "duplicate")
		return u.noopResult(ctx, p)
	}

	// Server-side signature check before anything is persisted from the
	// payload. Forged or corrupted confirmations fail the intent and never
	// touch the ledger.
	if !u.verifier.Verify(c.ProviderOrderID, c.ProviderPaymentID, c.Signature) {
		if _, mErr := u.intents.MarkFailedIfOpen(ctx, nil, p.TransactionID, "signature verification failed"); mErr != nil {
			u.log.Error().Err(mErr).Str("transaction_id", p.TransactionID).Msg("failed to record verification failure")
		}
		metrics.IncIntent(string(model.IntentStatusFailed))
		metrics.IncConfirmation(c.Source, "invalid_signature")
		u.log.Warn().Str("transaction_id", p.TransactionID).Str("source", c.Source).Msg("signature verification failed")
		return nil, domain.ErrVerificationFailed
	}

	// First confirmation wins the pending -> processing claim; redeliveries
	// fall through to the finalize step, which is guarded by the
	// credits_applied flag and so stays idempotent.
	if p.Status == model.IntentStatusPending {
		if _, err := u.intents.ClaimProcessing(ctx, nil, p.TransactionID, c.ProviderPaymentID, c.Signature); err != nil {
			return nil, err
		}
	}

	return u.finalize(ctx, p.TransactionID, c.Source)
}

// finalize applies the credit exactly once and settles the intent, all in
// one DB transaction. The credits_applied flip and the ledger increment
// commit or roll back together, so a crash between them cannot strand a
// paid-but-uncredited (or credited-but-unpaid) state.
func (u *purchaseUC) finalize(ctx context.Context, transactionID, source string) (*ConfirmResult, error) {
	var res *ConfirmResult
	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		p, err := u.intents.FindByTransactionID(ctx, tx, transactionID)
		if err != nil {
			return err
		}
		if p.Status != model.IntentStatusProcessing {
			// A concurrent delivery settled (or failed) it first.
			res = &ConfirmResult{Intent: p, Verified: p.Status == model.IntentStatusSuccess}
			return nil
		}

		applied, err := u.intents.MarkCreditsApplied(ctx, tx, transactionID)
		if err != nil {
			return err
		}

		var added int64
		var total int64
		if applied {
			uc, err := u.ledger.AddCredits(ctx, tx, p.UserID, p.CreditsRequested)
			if err != nil {
				return err
			}
			added = p.CreditsRequested
			total = uc.Credits
		} else {
			// credits_applied was already true: an earlier attempt paid out
			// but did not finish settling. Recover without touching the
			// ledger again.
			uc, err := u.ledger.Balance(ctx, tx, p.UserID)
			if err != nil {
				return err
			}
			total = uc.Credits
		}

		if _, err := u.intents.MarkSucceeded(ctx, tx, transactionID); err != nil {
			return err
		}
		p.Status = model.IntentStatusSuccess
		p.CreditsApplied = true
		res = &ConfirmResult{Intent: p, Verified: true, CreditsAdded: added, TotalCredits: total}
		return nil
	})
	if err != nil {
		metrics.IncConfirmation(source, "error")
		return nil, err
	}

	if res.CreditsAdded > 0 {
		metrics.IncIntent(string(model.IntentStatusSuccess))
		metrics.AddPaymentRevenue(res.Intent.Currency, res.Intent.AmountMinorUnits)
		metrics.AddCreditsGranted(res.CreditsAdded)
		metrics.IncConfirmation(source, "credited")
		u.log.Info().
			Str("transaction_id", transactionID).
			Int64("credits_added", res.CreditsAdded).
			Int64("total_credits", res.TotalCredits).
			Str("source", source).
			Msg("payment reconciled")
	} else {
		metrics.IncConfirmation(source, "duplicate")
	}
	return res, nil
}

// noopResult reports the settled state of a terminal intent without any
// side effects.
func (u *purchaseUC) noopResult(ctx context.Context, p *model.PaymentIntent) (*ConfirmResult, error) {
	uc, err := u.ledger.Balance(ctx, nil, p.UserID)
	if err != nil {
		return nil, err
	}
	return &ConfirmResult{Intent: p, Verified: p.Status == model.IntentStatusSuccess, TotalCredits: uc.Credits}, nil
}

func (u *purchaseUC) Fail(ctx context.Context, userID, transactionID, reason string) error {
	p, err := u.intents.FindByTransactionID(ctx, nil, transactionID)
	if err != nil {
		return err
	}
	if p.UserID != userID {
		return domain.ErrNotFound
	}
	if reason == "" {
		reason = "payment failed at provider"
	}
	ok, err := u.intents.MarkFailedIfOpen(ctx, nil, transactionID, reason)
	if err != nil {
		return err
	}
	if !ok {
		u.log.Info().Str("transaction_id", transactionID).Str("status", string(p.Status)).Msg("failure signal for terminal intent ignored")
		return nil
	}
	metrics.IncIntent(string(model.IntentStatusFailed))
	return nil
}

func (u *purchaseUC) Cancel(ctx context.Context, userID, transactionID string) error {
	p, err := u.intents.FindByTransactionID(ctx, nil, transactionID)
	if err != nil {
		return err
	}
	if p.UserID != userID {
		return domain.ErrNotFound
	}
	ok, err := u.intents.CancelIfPending(ctx, nil, transactionID)
	if err != nil {
		return err
	}
	if !ok {
		// Already processing or terminal: a cancel from the UI loses to a
		// confirmation that arrived first.
		u.log.Info().Str("transaction_id", transactionID).Str("status", string(p.Status)).Msg("cancel signal ignored")
		return nil
	}
	metrics.IncIntent(string(model.IntentStatusCancelled))
	u.log.Info().Str("transaction_id", transactionID).Msg("payment intent cancelled")
	return nil
}

func (u *purchaseUC) Balance(ctx context.Context, userID string) (*model.UserCredits, error) {
	return u.ledger.Balance(ctx, nil, userID)
}

func (u *purchaseUC) History(ctx context.Context, userID string, limit int) ([]*model.PaymentIntent, error) {
	return u.intents.ListByUser(ctx, nil, userID, limit)
}

func (u *purchaseUC) ListPackages(ctx context.Context) ([]*model.CreditPackage, error) {
	return u.packages.ListActive(ctx, nil)
}
