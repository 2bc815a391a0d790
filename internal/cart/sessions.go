package cart

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/wichananm65/blossom-storefront/internal/notify"
	"github.com/wichananm65/blossom-storefront/internal/storage"
)

// ErrUnavailable is returned when a cart cannot be read from storage.
var ErrUnavailable = errors.New("cart storage unavailable")

// KeyFor returns the storage key of a session's cart. The empty id maps to the
// bare StorageKey.
func KeyFor(sessionID string) string {
	if sessionID == "" {
		return StorageKey
	}
	return StorageKey + ":" + sessionID
}

// Session is one shopper's open cart plus the notifications waiting for their
// next response. A Session obtained from Sessions.Get must be released.
type Session struct {
	ID    string
	Store *Store
	Inbox *notify.Inbox

	owner    *Sessions
	lastSeen time.Time
	leases   int
}

// Release hands the session back. Idle eviction never drops a session that
// is still held.
func (sess *Session) Release() {
	if sess.owner == nil {
		return
	}
	s := sess.owner
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess.leases > 0 {
		sess.leases--
	}
	sess.lastSeen = s.now()
}

// Sessions keeps open carts in memory, rehydrating each from storage the first
// time it is touched.
type Sessions struct {
	kv       storage.Store
	logger   *slog.Logger
	notifier notify.Notifier
	observe  func(Action)
	now      func() time.Time

	mu    sync.Mutex
	open  map[string]*Session
	group singleflight.Group
}

type SessionsOption func(*Sessions)

// WithSharedNotifier fans every session's notifications out to n as well.
func WithSharedNotifier(n notify.Notifier) SessionsOption {
	return func(s *Sessions) { s.notifier = n }
}

func WithActionObserver(f func(Action)) SessionsOption {
	return func(s *Sessions) { s.observe = f }
}

func NewSessions(kv storage.Store, logger *slog.Logger, opts ...SessionsOption) *Sessions {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Sessions{
		kv:     kv,
		logger: logger,
		now:    time.Now,
		open:   make(map[string]*Session),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Get returns the open session for id, loading it on first use. Concurrent
// first requests for the same id share a single load. A load that fails to
// read storage is not cached and surfaces as ErrUnavailable. Callers release
// the session when done with it.
func (s *Sessions) Get(ctx context.Context, id string) (*Session, error) {
	if sess := s.acquire(id); sess != nil {
		return sess, nil
	}
	v, err, _ := s.group.Do(id, func() (interface{}, error) {
		s.mu.Lock()
		sess, ok := s.open[id]
		s.mu.Unlock()
		if ok {
			return sess, nil
		}
		return s.build(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	return s.adopt(id, v.(*Session)), nil
}

func (s *Sessions) acquire(id string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.open[id]
	if !ok {
		return nil
	}
	sess.leases++
	sess.lastSeen = s.now()
	return sess
}

// adopt leases the open session for id, registering loaded when there is
// none yet.
func (s *Sessions) adopt(id string, loaded *Session) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.open[id]
	if !ok {
		sess = loaded
		s.open[id] = sess
	}
	sess.leases++
	sess.lastSeen = s.now()
	return sess
}

func (s *Sessions) build(ctx context.Context, id string) (*Session, error) {
	key := KeyFor(id)
	logger := s.logger.With("session", id)
	initial, err := Load(ctx, s.kv, key, logger)
	if err != nil {
		logger.Warn("cart load failed", "key", key, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	inbox := notify.NewInbox(0)
	opts := []Option{WithNotifier(notify.Multi(inbox, s.notifier))}
	if s.observe != nil {
		opts = append(opts, WithObserver(s.observe))
	}
	holder := NewPersisted(NewMemory(initial), s.kv, key, logger)
	return &Session{
		ID:       id,
		Store:    NewStore(holder, opts...),
		Inbox:    inbox,
		owner:    s,
		lastSeen: s.now(),
	}, nil
}

// ClearCart empties the cart of session id, loading it if needed.
func (s *Sessions) ClearCart(ctx context.Context, id string) error {
	sess, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	defer sess.Release()
	sess.Store.ClearCart()
	return nil
}

// Close drops the in-memory session. Its state is already persisted, so the
// next Get rehydrates it.
func (s *Sessions) Close(id string) {
	s.mu.Lock()
	delete(s.open, id)
	s.mu.Unlock()
}

// CloseIdle drops sessions untouched for longer than maxIdle and reports how
// many were closed. Sessions still held by a caller are kept.
func (s *Sessions) CloseIdle(maxIdle time.Duration) int {
	cutoff := s.now().Add(-maxIdle)
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, sess := range s.open {
		if sess.leases == 0 && sess.lastSeen.Before(cutoff) {
			delete(s.open, id)
			n++
		}
	}
	return n
}

// CloseAll drops every open session.
func (s *Sessions) CloseAll() {
	s.mu.Lock()
	s.open = make(map[string]*Session)
	s.mu.Unlock()
}

// Len reports how many sessions are open.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.open)
}

// RunJanitor closes idle sessions every interval until ctx is done.
func (s *Sessions) RunJanitor(ctx context.Context, interval, maxIdle time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := s.CloseIdle(maxIdle); n > 0 {
				s.logger.Info("closed idle carts", "count", n)
			}
		}
	}
}
