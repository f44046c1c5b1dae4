package repository

import "context"

// UsageQuotaTracker gates anonymous (no-account) generations with a rolling
// window counter keyed by device id. Not security-sensitive: it only limits
// the free trial, so a cleared counter costs nothing paid.
type UsageQuotaTracker interface {
	// Increment bumps the device's counter, starting the window on first
	// use, and returns the new count.
	Increment(ctx context.Context, deviceID string) (int64, error)
	// IsAllowed reports whether the device is still under the ceiling.
	IsAllowed(ctx context.Context, deviceID string) (bool, error)
}
