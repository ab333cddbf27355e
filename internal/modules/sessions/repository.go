// Package sessions keeps the correlation matrix a caller last used, so repeated
// calculations can carry user edits forward. Entries expire after a TTL and live in
// the in-memory database only.
package sessions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/aristath/fundrisk/internal/modules/risk"
)

// Schema creates the session table.
const Schema = `
CREATE TABLE IF NOT EXISTS session_correlations (
	session_id TEXT PRIMARY KEY,
	data BLOB NOT NULL,
	updated_at INTEGER NOT NULL,
	expires_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_session_correlations_expires ON session_correlations(expires_at);
`

// DefaultTTL is how long an untouched session survives.
const DefaultTTL = 2 * time.Hour

// ErrInvalidSessionID is returned for blank or oversized session ids.
var ErrInvalidSessionID = errors.New("invalid session id")

const maxSessionIDLength = 128

// Entry is a stored matrix with its timestamps.
type Entry struct {
	SessionID string                 `json:"session_id"`
	Matrix    risk.CorrelationMatrix `json:"correlation"`
	UpdatedAt time.Time              `json:"updated_at"`
	ExpiresAt time.Time              `json:"expires_at"`
}

// Repository stores one correlation matrix per session, encoded with msgpack.
type Repository struct {
	db  *sql.DB
	ttl time.Duration
	now func() time.Time
}

// NewRepository creates a session repository. A non-positive ttl uses DefaultTTL.
func NewRepository(db *sql.DB, ttl time.Duration) *Repository {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Repository{db: db, ttl: ttl, now: time.Now}
}

// TTL returns the session lifetime.
func (r *Repository) TTL() time.Duration {
	return r.ttl
}

func validateSessionID(id string) error {
	if strings.TrimSpace(id) == "" || len(id) > maxSessionIDLength {
		return ErrInvalidSessionID
	}
	return nil
}

// Save stores m for the session and pushes its expiry to now + ttl.
func (r *Repository) Save(ctx context.Context, sessionID string, m risk.CorrelationMatrix) error {
	if err := validateSessionID(sessionID); err != nil {
		return err
	}

	data, err := msgpack.Marshal(&m)
	if err != nil {
		return fmt.Errorf("failed to encode correlation matrix: %w", err)
	}

	now := r.now()
	_, err = r.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO session_correlations (session_id, data, updated_at, expires_at) VALUES (?, ?, ?, ?)`,
		sessionID, data, now.Unix(), now.Add(r.ttl).Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to store session %s: %w", sessionID, err)
	}
	return nil
}

// Load returns the session's matrix, or nil, nil if the session is unknown or expired.
func (r *Repository) Load(ctx context.Context, sessionID string) (*risk.CorrelationMatrix, error) {
	entry, err := r.Get(ctx, sessionID)
	if err != nil || entry == nil {
		return nil, err
	}
	return &entry.Matrix, nil
}

// Get returns the full entry, or nil, nil if the session is unknown or expired.
func (r *Repository) Get(ctx context.Context, sessionID string) (*Entry, error) {
	if err := validateSessionID(sessionID); err != nil {
		return nil, err
	}

	var (
		data               []byte
		updated, expiresAt int64
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT data, updated_at, expires_at FROM session_correlations WHERE session_id = ? AND expires_at > ?`,
		sessionID, r.now().Unix(),
	).Scan(&data, &updated, &expiresAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session %s: %w", sessionID, err)
	}

	entry := &Entry{
		SessionID: sessionID,
		UpdatedAt: time.Unix(updated, 0).UTC(),
		ExpiresAt: time.Unix(expiresAt, 0).UTC(),
	}
	if err := msgpack.Unmarshal(data, &entry.Matrix); err != nil {
		return nil, fmt.Errorf("failed to decode session %s: %w", sessionID, err)
	}
	return entry, nil
}

// Delete removes a session. It reports whether anything was removed.
func (r *Repository) Delete(ctx context.Context, sessionID string) (bool, error) {
	if err := validateSessionID(sessionID); err != nil {
		return false, err
	}

	result, err := r.db.ExecContext(ctx, `DELETE FROM session_correlations WHERE session_id = ?`, sessionID)
	if err != nil {
		return false, fmt.Errorf("failed to delete session %s: %w", sessionID, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected for session %s: %w", sessionID, err)
	}
	return n > 0, nil
}

// DeleteExpired removes every session whose expiry has passed.
// Returns the number of rows deleted.
func (r *Repository) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM session_correlations WHERE expires_at <= ?`, r.now().Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return deleted, nil
}

// Count returns the number of live sessions.
func (r *Repository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM session_correlations WHERE expires_at > ?`, r.now().Unix(),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count sessions: %w", err)
	}
	return n, nil
}
