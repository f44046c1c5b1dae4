package model

import "time"

// CreditPackage is a purchasable bundle of generation credits. Price and
// credit amounts are always resolved server-side from this record; the
// client only ever names a package id.
type CreditPackage struct {
	ID              string // UUID
	Name            string // e.g. "Starter", "Creator"
	Credits         int64
	PriceMinorUnits int64  // smallest currency unit
	Currency        string // ISO code, e.g. "INR"
	Active          bool
	CreatedAt       time.Time
}
