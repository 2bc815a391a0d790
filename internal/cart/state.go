// Package cart holds the shopper's cart: a pure reducer over a closed set of
// actions, a store that wraps it with notifications and persistence, and the
// per-session registry the HTTP layer works against.
package cart

import (
	"github.com/shopspring/decimal"

	"github.com/wichananm65/blossom-storefront/internal/product"
)

// StorageKey is the durable key carts are persisted under.
const StorageKey = "blossomCart"

// Item is a product plus the quantity being bought. Quantity is always >= 1
// for items held in a State.
type Item struct {
	product.Product
	Quantity int `json:"quantity"`
}

type State struct {
	Items    []Item           `json:"items"`
	Currency product.Currency `json:"currency"`
	IsOpen   bool             `json:"isOpen"`
}

// EmptyState is the default cart: no items, priced in USD, drawer closed.
func EmptyState() State {
	return State{Items: []Item{}, Currency: product.USD}
}

// Find returns the item with the given product id.
func (s State) Find(id int) (Item, bool) {
	for _, it := range s.Items {
		if it.ID == id {
			return it, true
		}
	}
	return Item{}, false
}

// TotalItems is the sum of all quantities.
func (s State) TotalItems() int {
	n := 0
	for _, it := range s.Items {
		n += it.Quantity
	}
	return n
}

// TotalPrice sums price*quantity in the active currency.
func (s State) TotalPrice() decimal.Decimal {
	total := decimal.Zero
	for _, it := range s.Items {
		total = total.Add(it.Price.In(s.Currency).Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return total
}

func (s State) clone() State {
	items := make([]Item, len(s.Items))
	copy(items, s.Items)
	s.Items = items
	return s
}

// Action is a cart transition. The set is closed: only the types below
// implement it.
type Action interface {
	Name() string
	apply(State) State
}

// AddItem adds one unit of Product. Out-of-stock products leave the state
// untouched.
type AddItem struct {
	Product product.Product
}

func (AddItem) Name() string { return "add_item" }

func (a AddItem) apply(s State) State {
	if !a.Product.InStock {
		return s
	}
	for i := range s.Items {
		if s.Items[i].ID == a.Product.ID {
			s.Items[i].Quantity++
			return s
		}
	}
	s.Items = append(s.Items, Item{Product: a.Product, Quantity: 1})
	return s
}

type RemoveItem struct {
	ID int
}

func (RemoveItem) Name() string { return "remove_item" }

func (a RemoveItem) apply(s State) State {
	kept := s.Items[:0]
	for _, it := range s.Items {
		if it.ID != a.ID {
			kept = append(kept, it)
		}
	}
	s.Items = kept
	return s
}

// UpdateQuantity sets the quantity of an existing item. A quantity of zero or
// less removes it.
type UpdateQuantity struct {
	ID       int
	Quantity int
}

func (UpdateQuantity) Name() string { return "update_quantity" }

func (a UpdateQuantity) apply(s State) State {
	if a.Quantity <= 0 {
		return RemoveItem{ID: a.ID}.apply(s)
	}
	for i := range s.Items {
		if s.Items[i].ID == a.ID {
			s.Items[i].Quantity = a.Quantity
			break
		}
	}
	return s
}

// Clear empties the items. Currency and visibility are kept.
type Clear struct{}

func (Clear) Name() string { return "clear" }

func (Clear) apply(s State) State {
	s.Items = []Item{}
	return s
}

// SetCurrency switches the active currency. Unknown tags are ignored.
type SetCurrency struct {
	Currency product.Currency
}

func (SetCurrency) Name() string { return "set_currency" }

func (a SetCurrency) apply(s State) State {
	if a.Currency.Valid() {
		s.Currency = a.Currency
	}
	return s
}

// Toggle flips the drawer visibility.
type Toggle struct{}

func (Toggle) Name() string { return "toggle" }

func (Toggle) apply(s State) State {
	s.IsOpen = !s.IsOpen
	return s
}

// Reduce returns the state after applying a. The input is never modified.
func Reduce(s State, a Action) State {
	if a == nil {
		return s
	}
	return a.apply(s.clone())
}
