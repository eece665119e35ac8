package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	redislib "github.com/redis/go-redis/v9"

	"github.com/ecobridge/ecobridge-server/pkg/config"
	redisclient "github.com/ecobridge/ecobridge-server/pkg/redis"
)

var ErrSessionNotFound = errors.New("session not found")

type sessionStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
}

type sessionKeyer interface {
	WebSessionKey(sessionID string) string
}

// Store is the surface the HTTP layer needs.
type Store interface {
	Load(ctx context.Context, sessionID string) (*State, error)
	Save(ctx context.Context, sessionID string, state *State) error
	Destroy(ctx context.Context, sessionID string) error
}

// Manager persists browser session state in Redis as JSON.
type Manager struct {
	store sessionStore
	keyer sessionKeyer
	ttl   time.Duration
}

// NewManager constructs a session manager backed by Redis.
func NewManager(client *redisclient.Client, cfg config.SessionConfig) (*Manager, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	ttl := cfg.TTL()
	if ttl <= 0 {
		return nil, fmt.Errorf("session ttl must be positive")
	}
	return &Manager{
		store: client,
		keyer: client,
		ttl:   ttl,
	}, nil
}

// TTL returns how long a saved session survives without activity.
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Load fetches the stored state. Missing keys yield ErrSessionNotFound.
func (m *Manager) Load(ctx context.Context, sessionID string) (*State, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, ErrSessionNotFound
	}
	raw, err := m.store.Get(ctx, m.keyer.WebSessionKey(sessionID))
	if err != nil {
		return nil, wrapNotFound(err)
	}

	state := &State{}
	if err := json.Unmarshal([]byte(raw), state); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", sessionID, err)
	}
	return state, nil
}

// Save writes the state and refreshes its TTL.
func (m *Manager) Save(ctx context.Context, sessionID string, state *State) error {
	if strings.TrimSpace(sessionID) == "" {
		return fmt.Errorf("session id is required")
	}
	if state == nil {
		state = &State{}
	}
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := m.store.Set(ctx, m.keyer.WebSessionKey(sessionID), string(raw), m.ttl); err != nil {
		return err
	}
	state.dirty = false
	return nil
}

// Destroy removes the stored state.
func (m *Manager) Destroy(ctx context.Context, sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return fmt.Errorf("session id is required")
	}
	return m.store.Del(ctx, m.keyer.WebSessionKey(sessionID))
}

// NewID produces a session identifier used as the JWT jti and Redis key.
func NewID() string {
	return uuid.NewString()
}

func wrapNotFound(err error) error {
	if errors.Is(err, redislib.Nil) {
		return ErrSessionNotFound
	}
	return err
}
