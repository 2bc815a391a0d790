// Package payment resolves payment provider callbacks into a terminal status
// and starts checkouts against the payment backend.
package payment

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/wichananm65/blossom-storefront/internal/backend"
)

type Provider string

const (
	Paystack Provider = "paystack"
	PayPal   Provider = "paypal"
)

var (
	ErrInvalidReference    = errors.New("invalid payment reference")
	ErrUnsupportedProvider = errors.New("unsupported payment provider")
	// ErrDeclined marks a failure the verifier actually answered.
	ErrDeclined = errors.New("payment declined")
)

// ParseProvider accepts the provider name case-insensitively.
func ParseProvider(s string) (Provider, error) {
	switch p := Provider(strings.ToLower(strings.TrimSpace(s))); p {
	case Paystack, PayPal:
		return p, nil
	}
	return "", ErrUnsupportedProvider
}

// Result is the backend's verdict on a payment.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// Verifier checks a payment with the provider that took it.
type Verifier interface {
	VerifyPaystack(ctx context.Context, reference string) (Result, error)
	VerifyPayPal(ctx context.Context, token string) (Result, error)
}

// Client talks to the payment endpoints of the storefront backend.
type Client struct {
	api *backend.Client
}

func NewClient(api *backend.Client) *Client {
	return &Client{api: api}
}

func (c *Client) VerifyPaystack(ctx context.Context, reference string) (Result, error) {
	var res Result
	err := c.api.Do(ctx, http.MethodGet, "/payments/paystack/verify/"+url.PathEscape(reference), nil, &res)
	return answer(res, err)
}

func (c *Client) VerifyPayPal(ctx context.Context, token string) (Result, error) {
	var res Result
	err := c.api.Do(ctx, http.MethodPost, "/payments/paypal/capture", map[string]string{"token": token}, &res)
	return answer(res, err)
}

// answer keeps a declined payment with a message as a normal result; anything
// else that failed is an error.
func answer(res Result, err error) (Result, error) {
	if err == nil {
		return res, nil
	}
	var se *backend.StatusError
	if errors.As(err, &se) && se.Code < 500 && res.Message != "" {
		return Result{Success: false, Message: res.Message}, nil
	}
	return Result{}, fmt.Errorf("verify payment: %w", err)
}

// LineItem is one product line sent with a checkout.
type LineItem struct {
	ProductID int             `json:"productId"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
}

type InitRequest struct {
	Email       string          `json:"email"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Items       []LineItem      `json:"items"`
	CallbackURL string          `json:"callbackUrl,omitempty"`
}

// InitResponse carries where to send the shopper and the reference (Paystack)
// or token (PayPal) the callback will return with.
type InitResponse struct {
	AuthorizationURL string `json:"authorizationUrl"`
	Reference        string `json:"reference"`
}

// Initialize asks the backend to open a payment with provider.
func (c *Client) Initialize(ctx context.Context, provider Provider, req InitRequest) (InitResponse, error) {
	var res InitResponse
	if err := c.api.Do(ctx, http.MethodPost, "/payments/"+string(provider)+"/initialize", req, &res); err != nil {
		return InitResponse{}, fmt.Errorf("initialize %s payment: %w", provider, err)
	}
	if res.AuthorizationURL == "" || res.Reference == "" {
		return InitResponse{}, fmt.Errorf("initialize %s payment: incomplete response", provider)
	}
	return res, nil
}
