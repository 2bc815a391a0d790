package payment

import (
	"context"
	"errors"
	"net/url"
	"strings"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

const (
	MessageInvalidReference = "Invalid payment reference"
	MessageVerified         = "Payment verified successfully! Redirecting to your dashboard..."
	MessageFailed           = "Payment verification failed. Please contact support."
)

// Callback is what a provider redirect carries back.
type Callback struct {
	Reference string
	Token     string
	Provider  Provider
}

// ParseCallback reads reference, token and provider from a callback query.
// The provider defaults to paystack.
func ParseCallback(q url.Values) Callback {
	cb := Callback{
		Reference: strings.TrimSpace(q.Get("reference")),
		Token:     strings.TrimSpace(q.Get("token")),
		Provider:  Provider(strings.ToLower(strings.TrimSpace(q.Get("provider")))),
	}
	if cb.Provider == "" {
		cb.Provider = Paystack
	}
	return cb
}

// ID is the reference or token identifying the payment.
func (cb Callback) ID() string {
	if cb.Reference != "" {
		return cb.Reference
	}
	return cb.Token
}

// Outcome is the resolved state of a callback. Err holds the cause of a
// failure and is not shown to the shopper.
type Outcome struct {
	Status   Status   `json:"status"`
	Message  string   `json:"message"`
	Provider Provider `json:"provider"`
	Err      error    `json:"-"`
}

// Declined reports whether the verifier itself rejected the payment, as
// opposed to the callback being malformed or the verifier being unreachable.
func (o Outcome) Declined() bool {
	return o.Status == StatusFailed && errors.Is(o.Err, ErrDeclined)
}

func failed(p Provider, msg string, err error) Outcome {
	if msg == "" {
		msg = MessageFailed
	}
	return Outcome{Status: StatusFailed, Message: msg, Provider: p, Err: err}
}

// Resolve verifies cb once. A callback with neither reference nor token fails
// without calling v.
func Resolve(ctx context.Context, v Verifier, cb Callback) Outcome {
	if cb.Reference == "" && cb.Token == "" {
		return failed(cb.Provider, MessageInvalidReference, ErrInvalidReference)
	}

	var (
		res Result
		err error
	)
	switch {
	case cb.Provider == Paystack && cb.Reference != "":
		res, err = v.VerifyPaystack(ctx, cb.Reference)
	case cb.Provider == PayPal && cb.Token != "":
		res, err = v.VerifyPayPal(ctx, cb.Token)
	default:
		err = ErrUnsupportedProvider
	}

	if err != nil {
		return failed(cb.Provider, "", err)
	}
	if !res.Success {
		return failed(cb.Provider, res.Message, ErrDeclined)
	}
	return Outcome{Status: StatusSucceeded, Message: MessageVerified, Provider: cb.Provider}
}
