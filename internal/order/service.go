package order

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/wichananm65/blossom-storefront/internal/cart"
	"github.com/wichananm65/blossom-storefront/internal/payment"
)

var (
	ErrEmptyCart    = errors.New("cart is empty")
	ErrInvalidEmail = errors.New("invalid email address")
)

// Initializer opens a payment with a provider.
type Initializer interface {
	Initialize(ctx context.Context, provider payment.Provider, req payment.InitRequest) (payment.InitResponse, error)
}

// Service turns session carts into orders and tracks their payment status.
type Service struct {
	repo        Repository
	payments    Initializer
	callbackURL string
	clearCart   func(sessionID string)
	logger      *slog.Logger
	now         func() time.Time
}

type Option func(*Service)

// WithCallbackURL sets where providers send the shopper after paying.
func WithCallbackURL(u string) Option {
	return func(s *Service) { s.callbackURL = u }
}

// WithCartClearer runs f with the session id once an order is paid.
func WithCartClearer(f func(sessionID string)) Option {
	return func(s *Service) { s.clearCart = f }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func NewService(r Repository, payments Initializer, opts ...Option) *Service {
	s := &Service{repo: r, payments: payments, logger: slog.Default(), now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Checkout prices the cart in its active currency, opens a payment with
// provider and stores the pending order.
func (s *Service) Checkout(ctx context.Context, sessionID string, st cart.State, provider payment.Provider, email string) (Order, error) {
	if len(st.Items) == 0 {
		return Order{}, ErrEmptyCart
	}
	addr, err := mail.ParseAddress(email)
	if err != nil {
		return Order{}, ErrInvalidEmail
	}

	lines := make([]Line, 0, len(st.Items))
	items := make([]payment.LineItem, 0, len(st.Items))
	for _, it := range st.Items {
		unit := it.Price.In(st.Currency)
		lines = append(lines, Line{
			ProductID: it.ID,
			Name:      it.Name,
			Quantity:  it.Quantity,
			UnitPrice: unit,
			LineTotal: unit.Mul(decimal.NewFromInt(int64(it.Quantity))),
		})
		items = append(items, payment.LineItem{ProductID: it.ID, Name: it.Name, Quantity: it.Quantity, UnitPrice: unit})
	}
	total := st.TotalPrice()

	opened, err := s.payments.Initialize(ctx, provider, payment.InitRequest{
		Email:       addr.Address,
		Amount:      total,
		Currency:    string(st.Currency),
		Items:       items,
		CallbackURL: s.callbackURL,
	})
	if err != nil {
		return Order{}, err
	}

	now := s.now().UTC()
	ord := Order{
		ID:               uuid.NewString(),
		SessionID:        sessionID,
		Provider:         provider,
		Email:            addr.Address,
		Currency:         st.Currency,
		Lines:            lines,
		Quantity:         st.TotalItems(),
		Total:            total,
		Reference:        opened.Reference,
		AuthorizationURL: opened.AuthorizationURL,
		Status:           StatusPending,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	created, err := s.repo.Create(ord)
	if err != nil {
		return Order{}, fmt.Errorf("store order: %w", err)
	}
	return created, nil
}

func (s *Service) ListBySession(sessionID string) ([]Order, error) {
	return s.repo.ListBySession(sessionID)
}

// Settle records a verified callback on its order. Only pending orders move,
// and only on a verifier answer: malformed callbacks and unreachable verifiers
// leave the order pending. Paid orders empty the session's cart. Callbacks for
// unknown references are ignored.
func (s *Service) Settle(cb payment.Callback, o payment.Outcome) {
	ref := cb.ID()
	if ref == "" {
		return
	}
	var status Status
	switch {
	case o.Status == payment.StatusSucceeded:
		status = StatusPaid
	case o.Declined():
		status = StatusFailed
	default:
		return
	}
	ord, err := s.repo.UpdateStatus(ref, status, s.now().UTC())
	switch {
	case errors.Is(err, ErrNotFound):
		return
	case errors.Is(err, ErrSettled):
		s.logger.Warn("order already settled", "reference", ref, "status", ord.Status, "callback", o.Status)
		return
	case err != nil:
		s.logger.Error("order status update failed", "reference", ref, "error", err)
		return
	}
	if status == StatusPaid && s.clearCart != nil {
		s.clearCart(ord.SessionID)
	}
}
