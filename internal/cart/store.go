package cart

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/wichananm65/blossom-storefront/internal/notify"
	"github.com/wichananm65/blossom-storefront/internal/product"
)

var ErrOutOfStock = errors.New("product out of stock")

// Store is the cart surface consumers work with. It dispatches actions to a
// Holder and reports adds and removals to a Notifier.
type Store struct {
	holder   Holder
	notifier notify.Notifier
	observe  func(Action)
}

type Option func(*Store)

func WithNotifier(n notify.Notifier) Option {
	return func(s *Store) {
		if n != nil {
			s.notifier = n
		}
	}
}

// WithObserver registers a callback run after every dispatched action.
func WithObserver(f func(Action)) Option {
	return func(s *Store) { s.observe = f }
}

func NewStore(h Holder, opts ...Option) *Store {
	s := &Store{holder: h, notifier: notify.Discard}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Store) dispatch(a Action) State {
	next := s.holder.Dispatch(a)
	if s.observe != nil {
		s.observe(a)
	}
	return next
}

func (s *Store) State() State { return s.holder.State() }

// AddItem adds one unit of p. An out-of-stock product leaves the cart as it
// is, notifies the shopper and returns ErrOutOfStock.
func (s *Store) AddItem(p product.Product) error {
	if !p.InStock {
		s.notifier.Notify(notify.Notification{
			Title:       "Out of stock",
			Description: fmt.Sprintf("%s is currently out of stock.", p.Name),
			Severity:    notify.SeverityError,
		})
		return ErrOutOfStock
	}
	s.dispatch(AddItem{Product: p})
	s.notifier.Notify(notify.Notification{
		Title:       "Added to cart",
		Description: fmt.Sprintf("%s has been added to your cart.", p.Name),
		Severity:    notify.SeveritySuccess,
	})
	return nil
}

func (s *Store) RemoveItem(id int) {
	s.dispatch(RemoveItem{ID: id})
	s.notifier.Notify(notify.Notification{
		Title:       "Removed from cart",
		Description: "Item has been removed from your cart.",
		Severity:    notify.SeverityInfo,
	})
}

// UpdateQuantity sets the quantity of item id; zero or less removes it.
func (s *Store) UpdateQuantity(id, quantity int) {
	if quantity <= 0 {
		s.RemoveItem(id)
		return
	}
	s.dispatch(UpdateQuantity{ID: id, Quantity: quantity})
}

func (s *Store) ClearCart() {
	s.dispatch(Clear{})
}

func (s *Store) SetCurrency(c product.Currency) error {
	if !c.Valid() {
		return product.ErrUnknownCurrency
	}
	s.dispatch(SetCurrency{Currency: c})
	return nil
}

// ToggleCart flips visibility and returns the new value.
func (s *Store) ToggleCart() bool {
	return s.dispatch(Toggle{}).IsOpen
}

func (s *Store) TotalItems() int { return s.State().TotalItems() }

func (s *Store) TotalPrice() decimal.Decimal { return s.State().TotalPrice() }

// FormatPrice renders p in the cart's active currency.
func (s *Store) FormatPrice(p product.Price) string {
	return FormatPrice(p, s.State().Currency)
}
