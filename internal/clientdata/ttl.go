package clientdata

import "time"

// TTL constants for different data types.
// These are added to time.Now() when storing to calculate expires_at.
const (
	// Short-lived data (changes while markets are open)
	TTLQuote        = 1 * time.Minute // 1 minute - quotes feed live P&L, keep them near real-time
	TTLMarketStatus = 5 * time.Minute // 5 minutes - session state flips a few times a day

	// Stable data (rarely changes)
	TTLClassification = 24 * time.Hour // 1 day - an instrument's asset class is effectively static
)
