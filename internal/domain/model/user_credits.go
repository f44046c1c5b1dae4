package model

import "time"

// UserCredits is the authoritative credit balance for one account. The
// mobile client keeps its own copy as a read-only cache refreshed after
// verification; the only writers are payment reconciliation (increment)
// and generation (decrement).
//
// Invariant: Credits >= 0 at every observable point. A consumption that
// would go negative is rejected, never clamped.
type UserCredits struct {
	UserID    string
	Credits   int64
	UpdatedAt time.Time
}
