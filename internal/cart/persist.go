package cart

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/wichananm65/blossom-storefront/internal/product"
	"github.com/wichananm65/blossom-storefront/internal/storage"
)

const persistTimeout = 2 * time.Second

// Holder owns a cart state and applies actions to it.
type Holder interface {
	State() State
	Dispatch(a Action) State
}

// Memory is a Holder with no durability.
type Memory struct {
	mu    sync.Mutex
	state State
}

func NewMemory(initial State) *Memory {
	return &Memory{state: initial.clone()}
}

func (m *Memory) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.clone()
}

func (m *Memory) Dispatch(a Action) State {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = Reduce(m.state, a)
	return m.state.clone()
}

// snapshot is the persisted shape. Visibility is UI state and is not stored.
type snapshot struct {
	Items    []Item `json:"items"`
	Currency string `json:"currency"`
}

func encode(s State) (string, error) {
	b, err := json.Marshal(snapshot{Items: s.Items, Currency: string(s.Currency)})
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// decode parses a stored blob and restores the state invariants: positive
// quantities, one entry per product id, a known currency.
func decode(raw string) (State, error) {
	var snap snapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		return State{}, err
	}
	s := EmptyState()
	if c, err := product.ParseCurrency(snap.Currency); err == nil {
		s.Currency = c
	}
	index := make(map[int]int, len(snap.Items))
	for _, it := range snap.Items {
		if it.Quantity <= 0 {
			continue
		}
		if i, ok := index[it.ID]; ok {
			s.Items[i].Quantity += it.Quantity
			continue
		}
		index[it.ID] = len(s.Items)
		s.Items = append(s.Items, it)
	}
	return s, nil
}

// Load rehydrates the cart stored under key. A missing or unreadable blob
// yields EmptyState. A failed read is returned as an error instead, so the
// caller never writes over a cart it could not see.
func Load(ctx context.Context, kv storage.Store, key string, logger *slog.Logger) (State, error) {
	raw, err := kv.Get(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		return EmptyState(), nil
	}
	if err != nil {
		return State{}, err
	}
	s, err := decode(raw)
	if err != nil {
		logger.Warn("stored cart unreadable, starting empty", "key", key, "error", err)
		return EmptyState(), nil
	}
	return s, nil
}

// Persisted writes the state to kv after every dispatch. Write failures are
// logged and the in-memory state stays authoritative.
type Persisted struct {
	mu     sync.Mutex
	inner  Holder
	kv     storage.Store
	key    string
	logger *slog.Logger
}

func NewPersisted(inner Holder, kv storage.Store, key string, logger *slog.Logger) *Persisted {
	if logger == nil {
		logger = slog.Default()
	}
	return &Persisted{inner: inner, kv: kv, key: key, logger: logger}
}

func (p *Persisted) State() State { return p.inner.State() }

func (p *Persisted) Dispatch(a Action) State {
	p.mu.Lock()
	defer p.mu.Unlock()
	next := p.inner.Dispatch(a)
	p.save(next)
	return next
}

func (p *Persisted) save(s State) {
	raw, err := encode(s)
	if err != nil {
		p.logger.Error("cart encode failed", "key", p.key, "error", err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := p.kv.Set(ctx, p.key, raw); err != nil {
		p.logger.Error("cart persist failed", "key", p.key, "error", err)
	}
}
