package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// revokedKeep is how long a revocation marker outlives a session key that
// was already gone when the session was revoked.
const revokedKeep = 7 * 24 * time.Hour

// RedisStore keeps sessions in Redis as JSON values that expire with the
// session. A revoked session leaves a marker key behind until the session
// would have expired, so a late Put cannot bring it back.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

// OpenRedis connects to Redis and pings it to validate the connection.
func OpenRedis(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	if addr == "" {
		return nil, fmt.Errorf("empty redis addr")
	}
	c := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	if err := c.Ping(ctx).Err(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("pinging redis at %s: %w", addr, err)
	}
	return c, nil
}

// NewRedisStore creates a store whose keys start with prefix.
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) sessionKey(id string) string {
	return s.prefix + "session:" + id
}

func (s *RedisStore) revokedKey(id string) string {
	return s.prefix + "revoked:" + id
}

func (s *RedisStore) settingKey(name string) string {
	return s.prefix + "settings:" + name
}

// Put stores a session until it expires. Revoked or expired records are
// removed instead.
func (s *RedisStore) Put(ctx context.Context, rec *Record) error {
	ttl := time.Until(rec.ExpiresAt)
	if rec.RevokedAt != nil || ttl <= 0 {
		return s.client.Del(ctx, s.sessionKey(rec.ID)).Err()
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding session: %w", err)
	}
	if err := s.client.Set(ctx, s.sessionKey(rec.ID), data, ttl).Err(); err != nil {
		return fmt.Errorf("storing session: %w", err)
	}
	return nil
}

// Get returns a session by id. Revoked sessions read as unknown.
func (s *RedisStore) Get(ctx context.Context, id string) (*Record, error) {
	pipe := s.client.Pipeline()
	revoked := pipe.Exists(ctx, s.revokedKey(id))
	value := pipe.Get(ctx, s.sessionKey(id))
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("getting session: %w", err)
	}
	if revoked.Val() > 0 {
		return nil, nil
	}

	data, err := value.Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting session: %w", err)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decoding session: %w", err)
	}
	return &rec, nil
}

// Revoke marks the session revoked and deletes its key.
func (s *RedisStore) Revoke(ctx context.Context, id string, at time.Time) error {
	keep, err := s.client.PTTL(ctx, s.sessionKey(id)).Result()
	if err != nil {
		return fmt.Errorf("revoking session: %w", err)
	}
	if keep <= 0 {
		keep = revokedKeep
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.revokedKey(id), at.UnixMilli(), keep)
	pipe.Del(ctx, s.sessionKey(id))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("revoking session: %w", err)
	}
	return nil
}

// Purge is a no-op: Redis expires session keys on its own.
func (s *RedisStore) Purge(context.Context, time.Time) (int64, error) {
	return 0, nil
}

// Secret returns a named secret, creating it with SETNX on first use.
func (s *RedisStore) Secret(ctx context.Context, name string) ([]byte, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("generating %s: %w", name, err)
	}

	if err := s.client.SetNX(ctx, s.settingKey(name), hex.EncodeToString(buf), 0).Err(); err != nil {
		return nil, fmt.Errorf("storing %s: %w", name, err)
	}

	value, err := s.client.Get(ctx, s.settingKey(name)).Result()
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", name, err)
	}

	secret, err := hex.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", name, err)
	}
	return secret, nil
}
