package model

import (
	"time"

	"github.com/oklog/ulid/v2"

	"ai-caption-backend/internal/domain"
)

type IntentStatus string

const (
	IntentStatusPending    IntentStatus = "pending"    // intent created; provider order may not exist yet
	IntentStatusProcessing IntentStatus = "processing" // first confirmation claimed; verification in flight
	IntentStatusSuccess    IntentStatus = "success"    // verified and credited; terminal
	IntentStatusFailed     IntentStatus = "failed"     // order/verification failure; terminal
	IntentStatusCancelled  IntentStatus = "cancelled"  // user dismissed checkout or stale cleanup; terminal
)

// PaymentIntent is the durable record of one purchase attempt, from creation
// to terminal state. Rows are append-only (never deleted) so the table doubles
// as the payment audit trail.
type PaymentIntent struct {
	TransactionID    string // ULID, the correlation key across all confirmation channels
	UserID           string
	PackageID        string
	AmountMinorUnits int64 // smallest currency unit (e.g. paise)
	Currency         string
	CreditsRequested int64
	Status           IntentStatus
	ProviderOrderID  string // set exactly once, after the provider order is created
	ProviderPayID    string // set when a confirmation arrives
	ProviderSig      string // set when a confirmation arrives
	CreditsApplied   bool   // the idempotency guard: true iff the ledger was mutated for this intent
	ErrorDescription string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// NewTransactionID returns a new client-correlatable transaction id.
// ULIDs encode a millisecond timestamp plus a random suffix and sort
// lexically by creation time, which keeps the audit trail scannable.
func NewTransactionID() string {
	return "txn_" + ulid.Make().String()
}

// NewPaymentIntent builds a pending intent for a package purchase.
func NewPaymentIntent(userID string, pkg *CreditPackage) (*PaymentIntent, error) {
	if userID == "" || pkg == nil || pkg.PriceMinorUnits <= 0 || pkg.Credits <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now()
	return &PaymentIntent{
		TransactionID:    NewTransactionID(),
		UserID:           userID,
		PackageID:        pkg.ID,
		AmountMinorUnits: pkg.PriceMinorUnits,
		Currency:         pkg.Currency,
		CreditsRequested: pkg.Credits,
		Status:           IntentStatusPending,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

// IsTerminal reports whether no further state transition is allowed.
func (p *PaymentIntent) IsTerminal() bool {
	switch p.Status {
	case IntentStatusSuccess, IntentStatusFailed, IntentStatusCancelled:
		return true
	}
	return false
}

// CanTransitionTo enforces the monotonic forward-only lifecycle:
// pending -> processing -> {success|failed}, pending -> {failed|cancelled}.
// Nothing ever leaves success, failed, or cancelled.
func (p *PaymentIntent) CanTransitionTo(next IntentStatus) bool {
	switch p.Status {
	case IntentStatusPending:
		return next == IntentStatusProcessing || next == IntentStatusFailed || next == IntentStatusCancelled
	case IntentStatusProcessing:
		return next == IntentStatusSuccess || next == IntentStatusFailed
	default:
		return false
	}
}
