package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// StateStore is durable per-client key-value storage. Values are opaque
// strings (JSON in practice); a missing key is not an error.
type StateStore interface {
	Get(ctx context.Context, clientID, key string) (string, bool, error)
	Put(ctx context.Context, clientID, key, value string) error
	Delete(ctx context.Context, clientID string, keys ...string) error
}

// ClientStateRepository handles client state persistence in SQL
type ClientStateRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewClientStateRepository creates a new client state repository
func NewClientStateRepository(db *sql.DB) *ClientStateRepository {
	return &ClientStateRepository{db: db, now: time.Now}
}

// Get retrieves the value stored under key for the client
func (r *ClientStateRepository) Get(ctx context.Context, clientID, key string) (string, bool, error) {
	query := `SELECT value FROM client_state WHERE client_id = $1 AND state_key = $2`

	var value string
	err := r.db.QueryRowContext(ctx, query, clientID, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get client state %q: %w", key, err)
	}

	return value, true, nil
}

// Put replaces the value stored under key for the client
func (r *ClientStateRepository) Put(ctx context.Context, clientID, key, value string) error {
	query := `
		INSERT INTO client_state (client_id, state_key, value, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (client_id, state_key)
		DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`

	if _, err := r.db.ExecContext(ctx, query, clientID, key, value, r.now().UTC()); err != nil {
		return fmt.Errorf("failed to put client state %q: %w", key, err)
	}

	return nil
}

// Delete removes the given keys for the client in one transaction
func (r *ClientStateRepository) Delete(ctx context.Context, clientID string, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	for _, key := range keys {
		if _, err := tx.ExecContext(ctx, `DELETE FROM client_state WHERE client_id = $1 AND state_key = $2`, clientID, key); err != nil {
			return fmt.Errorf("failed to delete client state %q: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit client state delete: %w", err)
	}

	return nil
}

// DeleteStale removes state rows not updated since cutoff and returns how many were removed
func (r *ClientStateRepository) DeleteStale(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM client_state WHERE updated_at < $1`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to delete stale client state: %w", err)
	}

	return result.RowsAffected()
}
