package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Manager creates, loads and ends sessions. Sessions in use are cached in
// memory so their view state and current user survive between requests.
type Manager struct {
	store Store
	box   *Box
	ttl   time.Duration
	now   func() time.Time

	mu    sync.Mutex
	live  map[string]*Session
	onEnd []func(id string)
}

// NewManager creates a manager issuing sessions that last ttl.
func NewManager(store Store, box *Box, ttl time.Duration) *Manager {
	return &Manager{
		store: store,
		box:   box,
		ttl:   ttl,
		now:   time.Now,
		live:  make(map[string]*Session),
	}
}

// OnEnd registers fn to run with the session id whenever a session is logged
// out or purged.
func (m *Manager) OnEnd(fn func(id string)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onEnd = append(m.onEnd, fn)
}

// Create starts a session for username holding the cookies in jar.
func (m *Manager) Create(ctx context.Context, username string, jar *Jar) (*Session, error) {
	now := m.now()
	s := &Session{
		id:        uuid.NewString(),
		username:  username,
		createdAt: now,
		expiresAt: now.Add(m.ttl),
		jar:       jar,
		onLogout:  m.end,
	}

	if err := m.persist(ctx, s); err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.live[s.id] = s
	m.mu.Unlock()

	log.Info().Str("user", username).Str("session", s.id).Msg("session created")
	return s, nil
}

// Get returns a live session, loading it from the store after a restart.
func (m *Manager) Get(ctx context.Context, id string) (*Session, error) {
	now := m.now()

	m.mu.Lock()
	s, ok := m.live[id]
	m.mu.Unlock()
	if ok {
		if s.LoggedOut() || s.expired(now) {
			return nil, ErrNotFound
		}
		return s, nil
	}

	rec, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec == nil || rec.RevokedAt != nil || !now.Before(rec.ExpiresAt) {
		return nil, ErrNotFound
	}

	jar := NewJar()
	if len(rec.Credentials) > 0 {
		plain, err := m.box.Open(rec.Credentials)
		if err != nil {
			return nil, fmt.Errorf("loading session %s: %w", id, err)
		}
		var cookies []StoredCookie
		if err := json.Unmarshal(plain, &cookies); err != nil {
			return nil, fmt.Errorf("decoding session %s cookies: %w", id, err)
		}
		jar.Restore(cookies)
	}

	loaded := &Session{
		id:        rec.ID,
		username:  rec.Username,
		createdAt: rec.CreatedAt,
		expiresAt: rec.ExpiresAt,
		jar:       jar,
		onLogout:  m.end,
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.live[id]; ok {
		return existing, nil
	}
	m.live[id] = loaded
	return loaded, nil
}

// Save persists the session's cookies if the backend changed them.
func (m *Manager) Save(ctx context.Context, s *Session) error {
	if s.LoggedOut() || !s.jar.Dirty() {
		return nil
	}
	return m.persist(ctx, s)
}

func (m *Manager) persist(ctx context.Context, s *Session) error {
	cookies := s.jar.Snapshot()
	plain, err := json.Marshal(cookies)
	if err != nil {
		s.jar.MarkDirty()
		return fmt.Errorf("encoding cookies: %w", err)
	}
	sealed, err := m.box.Seal(plain)
	if err != nil {
		s.jar.MarkDirty()
		return err
	}

	err = m.store.Put(ctx, &Record{
		ID:          s.id,
		Username:    s.username,
		Credentials: sealed,
		CreatedAt:   s.createdAt,
		ExpiresAt:   s.expiresAt,
	})
	if err != nil {
		s.jar.MarkDirty()
		return err
	}
	return nil
}

// end revokes a logged-out session and drops it from memory.
func (m *Manager) end(s *Session) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := m.store.Revoke(ctx, s.id, m.now()); err != nil {
		log.Error().Err(err).Str("session", s.id).Msg("failed to revoke session")
	}
	m.drop(s.id)
	log.Info().Str("user", s.username).Str("session", s.id).Msg("session ended")
}

func (m *Manager) drop(id string) {
	m.mu.Lock()
	delete(m.live, id)
	hooks := append([]func(string){}, m.onEnd...)
	m.mu.Unlock()

	for _, fn := range hooks {
		fn(id)
	}
}

// Purge drops expired sessions from memory and deletes expired and revoked
// records from the store.
func (m *Manager) Purge(ctx context.Context) (int64, error) {
	now := m.now()

	m.mu.Lock()
	var expired []string
	for id, s := range m.live {
		if s.expired(now) {
			expired = append(expired, id)
		}
	}
	m.mu.Unlock()

	for _, id := range expired {
		m.drop(id)
	}

	n, err := m.store.Purge(ctx, now)
	if err != nil {
		return 0, err
	}
	return n, nil
}
