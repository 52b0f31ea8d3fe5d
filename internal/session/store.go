// Package session holds the signed-in dashboard session and persists it
// across restarts.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/training-dashboard/backend/internal/storage/models"
)

// Persisted keys.
const (
	KeyAccessToken = "access_token"
	KeyUser        = "dashboard_user"
)

// KV is the persistence contract for the session.
type KV interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Put(ctx context.Context, key, value string) error
	Delete(ctx context.Context, keys ...string) error
}

// Event identifies a session transition.
type Event int

const (
	EventSet Event = iota + 1
	EventCleared
)

func (e Event) String() string {
	switch e {
	case EventSet:
		return "set"
	case EventCleared:
		return "cleared"
	}
	return "unknown"
}

// Listener observes session transitions. It runs after the store lock is released.
type Listener func(Event, models.Session)

// Option configures optional behaviour for the Store.
type Option func(*Store)

// WithLogger overrides the logger.
func WithLogger(logger *log.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithClock overrides the time source used for token expiry checks.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// Store is the single owner of the access token and the login record.
type Store struct {
	kv     KV
	logger *log.Logger
	now    func() time.Time

	mu      sync.RWMutex
	current models.Session

	listenersMu sync.Mutex
	listeners   map[int]Listener
	nextID      int
}

// NewStore creates a session store over kv. Call Init to load persisted state.
func NewStore(kv KV, opts ...Option) *Store {
	s := &Store{
		kv:        kv,
		logger:    log.Default(),
		now:       time.Now,
		listeners: make(map[int]Listener),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Init loads the persisted session. An expired token or a corrupt login
// record is discarded and removed from storage.
func (s *Store) Init(ctx context.Context) error {
	token, ok, err := s.kv.Get(ctx, KeyAccessToken)
	if err != nil {
		return fmt.Errorf("loading access token: %w", err)
	}
	if !ok || token == "" {
		return nil
	}

	expiresAt, err := tokenExpiry(token)
	if err != nil {
		s.logger.Printf("Access token is not a readable JWT, keeping it without expiry: %v", err)
	}
	if expiresAt != nil && !expiresAt.After(s.now()) {
		s.logger.Printf("Persisted session expired at %s, discarding", expiresAt.Format(time.RFC3339))
		return s.purge(ctx)
	}

	var user models.SessionUser
	raw, ok, err := s.kv.Get(ctx, KeyUser)
	if err != nil {
		return fmt.Errorf("loading session user: %w", err)
	}
	if ok {
		if err := json.Unmarshal([]byte(raw), &user); err != nil {
			s.logger.Printf("Persisted session user is corrupt, discarding: %v", err)
			return s.purge(ctx)
		}
	}

	s.mu.Lock()
	s.current = models.Session{AccessToken: token, User: user, ExpiresAt: expiresAt}
	s.mu.Unlock()
	return nil
}

// Set persists a new session and notifies listeners.
func (s *Store) Set(ctx context.Context, token string, user models.SessionUser) error {
	if token == "" {
		return errors.New("access token is required")
	}
	if user.AccessToken == "" {
		user.AccessToken = token
	}

	raw, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encoding session user: %w", err)
	}
	if err := s.kv.Put(ctx, KeyAccessToken, token); err != nil {
		return err
	}
	if err := s.kv.Put(ctx, KeyUser, string(raw)); err != nil {
		return err
	}

	expiresAt, _ := tokenExpiry(token)
	sess := models.Session{AccessToken: token, User: user, ExpiresAt: expiresAt}

	s.mu.Lock()
	s.current = sess
	s.mu.Unlock()

	s.notify(EventSet, sess)
	return nil
}

// Clear removes the session. Clearing an empty session does not notify.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.kv.Delete(ctx, KeyAccessToken, KeyUser); err != nil {
		return err
	}

	s.mu.Lock()
	had := s.current.Authenticated()
	s.current = models.Session{}
	s.mu.Unlock()

	if had {
		s.notify(EventCleared, models.Session{})
	}
	return nil
}

// Expire tears the session down after the coach API rejected the token.
func (s *Store) Expire(ctx context.Context) error {
	s.logger.Printf("Session rejected by coach API, signing out")
	return s.Clear(ctx)
}

// Token returns the current access token or "".
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.AccessToken
}

// Identity returns the signed-in athlete, or the zero id.
func (s *Store) Identity() models.AthleteID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.current.Authenticated() {
		return 0
	}
	return s.current.User.AthleteID
}

// Current returns a copy of the session.
func (s *Store) Current() models.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Subscribe registers fn for session transitions and returns its cancel func.
func (s *Store) Subscribe(fn Listener) func() {
	s.listenersMu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.listenersMu.Unlock()

	return func() {
		s.listenersMu.Lock()
		delete(s.listeners, id)
		s.listenersMu.Unlock()
	}
}

func (s *Store) notify(ev Event, sess models.Session) {
	s.listenersMu.Lock()
	fns := make([]Listener, 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.listenersMu.Unlock()

	for _, fn := range fns {
		fn(ev, sess)
	}
}

func (s *Store) purge(ctx context.Context) error {
	if err := s.kv.Delete(ctx, KeyAccessToken, KeyUser); err != nil {
		return fmt.Errorf("removing stale session: %w", err)
	}
	s.mu.Lock()
	s.current = models.Session{}
	s.mu.Unlock()
	return nil
}

// tokenExpiry reads the exp claim without verifying the signature; the coach
// API remains the authority on token validity.
func tokenExpiry(token string) (*time.Time, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, err
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return nil, err
	}
	t := exp.Time
	return &t, nil
}
