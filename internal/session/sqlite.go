package session

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// SQLiteStore keeps sessions in the console's SQLite database.
type SQLiteStore struct {
	db *sqlx.DB
}

// NewSQLiteStore wraps a database prepared with db.EnsureSchema.
func NewSQLiteStore(db *sqlx.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

type sessionRow struct {
	ID          string        `db:"id"`
	Username    string        `db:"username"`
	Credentials []byte        `db:"credentials"`
	CreatedAt   int64         `db:"created_at"`
	ExpiresAt   int64         `db:"expires_at"`
	RevokedAt   sql.NullInt64 `db:"revoked_at"`
}

func (r sessionRow) record() *Record {
	rec := &Record{
		ID:          r.ID,
		Username:    r.Username,
		Credentials: r.Credentials,
		CreatedAt:   time.UnixMilli(r.CreatedAt),
		ExpiresAt:   time.UnixMilli(r.ExpiresAt),
	}
	if r.RevokedAt.Valid {
		t := time.UnixMilli(r.RevokedAt.Int64)
		rec.RevokedAt = &t
	}
	return rec
}

// Put inserts or replaces a session. A revoked session stays revoked.
func (s *SQLiteStore) Put(ctx context.Context, rec *Record) error {
	row := sessionRow{
		ID:          rec.ID,
		Username:    rec.Username,
		Credentials: rec.Credentials,
		CreatedAt:   rec.CreatedAt.UnixMilli(),
		ExpiresAt:   rec.ExpiresAt.UnixMilli(),
	}
	if rec.RevokedAt != nil {
		row.RevokedAt = sql.NullInt64{Int64: rec.RevokedAt.UnixMilli(), Valid: true}
	}

	_, err := s.db.NamedExecContext(ctx,
		`INSERT INTO sessions (id, username, credentials, created_at, expires_at, revoked_at)
		 VALUES (:id, :username, :credentials, :created_at, :expires_at, :revoked_at)
		 ON CONFLICT(id) DO UPDATE SET
		     username = excluded.username,
		     credentials = excluded.credentials,
		     expires_at = excluded.expires_at,
		     revoked_at = COALESCE(sessions.revoked_at, excluded.revoked_at)`,
		row,
	)
	if err != nil {
		return fmt.Errorf("storing session: %w", err)
	}
	return nil
}

// Get returns a session by id.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*Record, error) {
	var row sessionRow
	err := s.db.GetContext(ctx, &row,
		`SELECT id, username, credentials, created_at, expires_at, revoked_at
		 FROM sessions WHERE id = ?`, id,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting session: %w", err)
	}
	return row.record(), nil
}

// Revoke marks a session as logged out.
func (s *SQLiteStore) Revoke(ctx context.Context, id string, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET revoked_at = ? WHERE id = ? AND revoked_at IS NULL`,
		at.UnixMilli(), id,
	)
	if err != nil {
		return fmt.Errorf("revoking session: %w", err)
	}
	return nil
}

// Purge deletes expired and revoked sessions.
func (s *SQLiteStore) Purge(ctx context.Context, now time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE expires_at <= ? OR revoked_at IS NOT NULL`,
		now.UnixMilli(),
	)
	if err != nil {
		return 0, fmt.Errorf("purging sessions: %w", err)
	}
	return result.RowsAffected()
}

// Secret retrieves a named secret from the settings table.
// If none exists, it generates one, stores it, and returns it.
// Uses INSERT OR IGNORE + re-SELECT to avoid TOCTOU race on concurrent startup.
func (s *SQLiteStore) Secret(ctx context.Context, name string) ([]byte, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("generating %s: %w", name, err)
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO settings (key, value) VALUES (?, ?)`,
		name, hex.EncodeToString(buf),
	)
	if err != nil {
		return nil, fmt.Errorf("storing %s: %w", name, err)
	}

	// Always read back (either our insert or the existing value).
	var value string
	if err := s.db.GetContext(ctx, &value, `SELECT value FROM settings WHERE key = ?`, name); err != nil {
		return nil, fmt.Errorf("querying %s: %w", name, err)
	}

	secret, err := hex.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", name, err)
	}
	return secret, nil
}
