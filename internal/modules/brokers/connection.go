// Package brokers is the broker connection registry: one row per (user,
// broker) pair with fernet-encrypted credentials, an enabled flag, and sync
// bookkeeping used by the freshness tracker.
package brokers

import "time"

// Connection is one user's registered broker. Credentials are never carried
// on this struct; they are fetched and decrypted separately so a connection
// can be listed and serialized without touching secrets.
type Connection struct {
	ID            string     `json:"id"`
	UserID        string     `json:"user_id"`
	BrokerID      string     `json:"broker_id"`
	Label         string     `json:"label"`
	Enabled       bool       `json:"enabled"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	LastSyncedAt  *time.Time `json:"last_synced_at,omitempty"`  // nil until the first successful sync
	LastSyncError *string    `json:"last_sync_error,omitempty"` // nil when the last sync succeeded
}
