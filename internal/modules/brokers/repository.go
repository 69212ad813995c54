package brokers

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/niveshio/panorama/internal/apperrors"
)

// Repository handles broker connection database operations.
// Database: registry.db (broker_connections table).
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new broker connection repository.
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "brokers").Logger(),
	}
}

const connectionColumns = "id, user_id, broker_id, label, enabled, created_at, updated_at, last_synced_at, last_sync_error"

// scanConnection scans one row into a Connection, converting unix timestamps
// and nullable columns to explicit optionals.
func scanConnection(row interface{ Scan(...interface{}) error }) (*Connection, error) {
	var conn Connection
	var enabled int
	var createdAt, updatedAt int64
	var lastSyncedAt sql.NullInt64
	var lastSyncError sql.NullString

	if err := row.Scan(
		&conn.ID,
		&conn.UserID,
		&conn.BrokerID,
		&conn.Label,
		&enabled,
		&createdAt,
		&updatedAt,
		&lastSyncedAt,
		&lastSyncError,
	); err != nil {
		return nil, err
	}

	conn.Enabled = enabled != 0
	conn.CreatedAt = time.Unix(createdAt, 0).UTC()
	conn.UpdatedAt = time.Unix(updatedAt, 0).UTC()

	if lastSyncedAt.Valid {
		t := time.Unix(lastSyncedAt.Int64, 0).UTC()
		conn.LastSyncedAt = &t
	}
	if lastSyncError.Valid && lastSyncError.String != "" {
		msg := lastSyncError.String
		conn.LastSyncError = &msg
	}

	return &conn, nil
}

// Create inserts a new connection with its encrypted credential token.
// A second connection for the same (user, broker) pair is a duplicate.
func (r *Repository) Create(conn *Connection, encryptedCreds string) error {
	now := time.Now().Unix()

	query := `
		INSERT INTO broker_connections (id, user_id, broker_id, label, credentials, enabled, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	enabled := 0
	if conn.Enabled {
		enabled = 1
	}

	_, err := r.db.Exec(query, conn.ID, conn.UserID, conn.BrokerID, conn.Label, encryptedCreds, enabled, now, now)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("connection for user %s broker %s: %w", conn.UserID, conn.BrokerID, apperrors.ErrDuplicateConnection)
		}
		return fmt.Errorf("failed to create broker connection: %w", err)
	}

	conn.CreatedAt = time.Unix(now, 0).UTC()
	conn.UpdatedAt = conn.CreatedAt

	r.log.Debug().
		Str("connection_id", conn.ID).
		Str("user_id", conn.UserID).
		Str("broker_id", conn.BrokerID).
		Msg("Broker connection created")

	return nil
}

// GetByID returns one connection by its id.
func (r *Repository) GetByID(id string) (*Connection, error) {
	query := "SELECT " + connectionColumns + " FROM broker_connections WHERE id = ?"

	conn, err := scanConnection(r.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("connection %s: %w", id, apperrors.ErrConnectionNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get broker connection: %w", err)
	}

	return conn, nil
}

// GetCredentials returns the stored encrypted credential token for a connection.
func (r *Repository) GetCredentials(id string) (string, error) {
	var token string
	err := r.db.QueryRow("SELECT credentials FROM broker_connections WHERE id = ?", id).Scan(&token)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("connection %s: %w", id, apperrors.ErrConnectionNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("failed to get credentials: %w", err)
	}
	return token, nil
}

// ListByUser returns a user's connections, optionally only enabled ones,
// ordered by creation time.
func (r *Repository) ListByUser(userID string, enabledOnly bool) ([]Connection, error) {
	query := "SELECT " + connectionColumns + " FROM broker_connections WHERE user_id = ?"
	if enabledOnly {
		query += " AND enabled = 1"
	}
	query += " ORDER BY created_at, broker_id"

	rows, err := r.db.Query(query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list broker connections: %w", err)
	}
	defer rows.Close()

	var connections []Connection
	for rows.Next() {
		conn, err := scanConnection(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan broker connection: %w", err)
		}
		connections = append(connections, *conn)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating broker connections: %w", err)
	}

	return connections, nil
}

// ListUsersWithEnabled returns the distinct user ids that have at least one
// enabled connection. The scheduler uses this to decide whose portfolios to
// refresh.
func (r *Repository) ListUsersWithEnabled() ([]string, error) {
	rows, err := r.db.Query("SELECT DISTINCT user_id FROM broker_connections WHERE enabled = 1 ORDER BY user_id")
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []string
	for rows.Next() {
		var userID string
		if err := rows.Scan(&userID); err != nil {
			return nil, fmt.Errorf("failed to scan user id: %w", err)
		}
		users = append(users, userID)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}

	return users, nil
}

// Update applies partial changes to label and enabled. Nil fields are left
// untouched.
func (r *Repository) Update(id string, label *string, enabled *bool) error {
	sets := []string{"updated_at = ?"}
	args := []interface{}{time.Now().Unix()}

	if label != nil {
		sets = append(sets, "label = ?")
		args = append(args, *label)
	}
	if enabled != nil {
		sets = append(sets, "enabled = ?")
		if *enabled {
			args = append(args, 1)
		} else {
			args = append(args, 0)
		}
	}

	args = append(args, id)
	query := "UPDATE broker_connections SET " + strings.Join(sets, ", ") + " WHERE id = ?"

	result, err := r.db.Exec(query, args...)
	if err != nil {
		return fmt.Errorf("failed to update broker connection: %w", err)
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("connection %s: %w", id, apperrors.ErrConnectionNotFound)
	}

	return nil
}

// UpdateCredentials replaces the stored credential token.
func (r *Repository) UpdateCredentials(id, encryptedCreds string) error {
	result, err := r.db.Exec(
		"UPDATE broker_connections SET credentials = ?, updated_at = ? WHERE id = ?",
		encryptedCreds, time.Now().Unix(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update credentials: %w", err)
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("connection %s: %w", id, apperrors.ErrConnectionNotFound)
	}

	r.log.Debug().Str("connection_id", id).Msg("Broker credentials rotated")
	return nil
}

// Delete removes a connection.
func (r *Repository) Delete(id string) error {
	result, err := r.db.Exec("DELETE FROM broker_connections WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete broker connection: %w", err)
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("connection %s: %w", id, apperrors.ErrConnectionNotFound)
	}

	r.log.Debug().Str("connection_id", id).Msg("Broker connection deleted")
	return nil
}

// MarkSynced records a successful sync and clears any previous sync error.
func (r *Repository) MarkSynced(id string, at time.Time) error {
	_, err := r.db.Exec(
		"UPDATE broker_connections SET last_synced_at = ?, last_sync_error = NULL, updated_at = ? WHERE id = ?",
		at.Unix(), time.Now().Unix(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to mark connection synced: %w", err)
	}
	return nil
}

// MarkSyncError records a failed sync. The last successful sync time is kept
// so freshness can still be computed from it.
func (r *Repository) MarkSyncError(id, msg string) error {
	_, err := r.db.Exec(
		"UPDATE broker_connections SET last_sync_error = ?, updated_at = ? WHERE id = ?",
		msg, time.Now().Unix(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to mark connection sync error: %w", err)
	}
	return nil
}
