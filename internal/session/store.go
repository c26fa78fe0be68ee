package session

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned for unknown, revoked or expired sessions.
var ErrNotFound = errors.New("session not found")

// Record is the persisted part of a session.
type Record struct {
	ID          string     `json:"id"`
	Username    string     `json:"username"`
	Credentials []byte     `json:"credentials"` // sealed backend cookies
	CreatedAt   time.Time  `json:"created_at"`
	ExpiresAt   time.Time  `json:"expires_at"`
	RevokedAt   *time.Time `json:"revoked_at,omitempty"`
}

// Store persists session records and generated secrets.
type Store interface {
	// Put inserts or replaces a record.
	Put(ctx context.Context, rec *Record) error
	// Get returns nil, nil for unknown ids.
	Get(ctx context.Context, id string) (*Record, error)
	Revoke(ctx context.Context, id string, at time.Time) error
	// Purge removes expired and revoked records.
	Purge(ctx context.Context, now time.Time) (int64, error)
	// Secret returns a named random secret, generating it on first use.
	Secret(ctx context.Context, name string) ([]byte, error)
}
