package order

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/wichananm65/blossom-storefront/internal/payment"
	"github.com/wichananm65/blossom-storefront/internal/product"
)

type Status string

const (
	StatusPending Status = "pending"
	StatusPaid    Status = "paid"
	StatusFailed  Status = "failed"
)

// Line is one cart item frozen at checkout, priced in the order currency.
type Line struct {
	ProductID int             `json:"productId"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	LineTotal decimal.Decimal `json:"lineTotal"`
}

// Order is a checkout started from a session's cart.
type Order struct {
	ID               string           `json:"id"`
	SessionID        string           `json:"-"`
	Provider         payment.Provider `json:"provider"`
	Email            string           `json:"email"`
	Currency         product.Currency `json:"currency"`
	Lines            []Line           `json:"lines"`
	Quantity         int              `json:"quantity"`
	Total            decimal.Decimal  `json:"total"`
	Reference        string           `json:"reference"`
	AuthorizationURL string           `json:"authorizationUrl"`
	Status           Status           `json:"status"`
	CreatedAt        time.Time        `json:"createdAt"`
	UpdatedAt        time.Time        `json:"updatedAt"`
}
