package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Session is the per-actor dialogue state: the pending intent and the slots
// filled so far. Slots are only meaningful while Intent is set.
type Session struct {
	Intent    Intent            `json:"intent"`
	Slots     map[string]string `json:"slots"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// NewSession creates an empty pending session for an intent.
func NewSession(intent Intent) *Session {
	return &Session{
		Intent:    intent,
		Slots:     make(map[string]string),
		UpdatedAt: time.Now().UTC(),
	}
}

// SessionStore holds dialogue sessions keyed by actor. Implementations must
// isolate keys from each other; serialization of same-actor turns is the
// engine's job, not the store's.
type SessionStore interface {
	Get(ctx context.Context, actorKey string) (*Session, error)
	Put(ctx context.Context, actorKey string, s *Session) error
	Delete(ctx context.Context, actorKey string) error
}

// MemorySessionStore is the single-instance default: an in-process map with
// idle expiry. State lives for the server process only.
type MemorySessionStore struct {
	mu       sync.Mutex
	ttl      time.Duration
	sessions map[string]*Session
}

// NewMemorySessionStore creates an in-memory store with the given idle TTL.
// A non-positive TTL disables expiry.
func NewMemorySessionStore(ttl time.Duration) *MemorySessionStore {
	return &MemorySessionStore{
		ttl:      ttl,
		sessions: make(map[string]*Session),
	}
}

func (s *MemorySessionStore) Get(_ context.Context, actorKey string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[actorKey]
	if !ok {
		return nil, nil
	}
	if s.ttl > 0 && time.Since(sess.UpdatedAt) > s.ttl {
		delete(s.sessions, actorKey)
		return nil, nil
	}
	return sess, nil
}

func (s *MemorySessionStore) Put(_ context.Context, actorKey string, sess *Session) error {
	if sess == nil {
		return errors.New("agent: nil session")
	}
	sess.UpdatedAt = time.Now().UTC()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[actorKey] = sess
	return nil
}

func (s *MemorySessionStore) Delete(_ context.Context, actorKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, actorKey)
	return nil
}

const sessionKeyPrefix = "dialogue_session:"

// RedisSessionStore shares dialogue sessions across instances. Best-effort:
// durability across restarts is not part of the engine's contract.
type RedisSessionStore struct {
	redis *redis.Client
	ttl   time.Duration
}

// NewRedisSessionStore creates a Redis-backed session store.
func NewRedisSessionStore(client *redis.Client, ttl time.Duration) *RedisSessionStore {
	if client == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &RedisSessionStore{redis: client, ttl: ttl}
}

func (s *RedisSessionStore) Get(ctx context.Context, actorKey string) (*Session, error) {
	data, err := s.redis.Get(ctx, sessionKeyPrefix+actorKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("agent: get session: %w", err)
	}
	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("agent: decode session: %w", err)
	}
	if sess.Slots == nil {
		sess.Slots = make(map[string]string)
	}
	return &sess, nil
}

func (s *RedisSessionStore) Put(ctx context.Context, actorKey string, sess *Session) error {
	if sess == nil {
		return errors.New("agent: nil session")
	}
	sess.UpdatedAt = time.Now().UTC()
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("agent: encode session: %w", err)
	}
	if err := s.redis.Set(ctx, sessionKeyPrefix+actorKey, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("agent: put session: %w", err)
	}
	return nil
}

func (s *RedisSessionStore) Delete(ctx context.Context, actorKey string) error {
	if err := s.redis.Del(ctx, sessionKeyPrefix+actorKey).Err(); err != nil {
		return fmt.Errorf("agent: delete session: %w", err)
	}
	return nil
}
