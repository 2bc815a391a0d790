// Package newsletter signs shoppers up for the Blossom mailing list.
package newsletter

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/mail"
	"strings"

	"github.com/wichananm65/blossom-storefront/internal/backend"
)

var (
	ErrInvalidEmail = errors.New("invalid email address")
	ErrRejected     = errors.New("subscription rejected")
)

// Subscriber registers an address with the mailing list backend.
type Subscriber interface {
	Subscribe(ctx context.Context, email string) error
}

type Client struct {
	api *backend.Client
}

func NewClient(api *backend.Client) *Client {
	return &Client{api: api}
}

type subscribeReply struct {
	Success *bool  `json:"success"`
	Message string `json:"message"`
}

// Subscribe posts the address. Transport failures are returned as errors; a
// reply with success=false is ErrRejected.
func (c *Client) Subscribe(ctx context.Context, email string) error {
	var reply subscribeReply
	err := c.api.Do(ctx, http.MethodPost, "/newsletter/subscribe", map[string]string{"email": email}, &reply)
	if err != nil {
		var se *backend.StatusError
		if errors.As(err, &se) && se.Code < 500 {
			return fmt.Errorf("%w: %s", ErrRejected, firstNonEmpty(reply.Message, se.Body))
		}
		return fmt.Errorf("subscribe: %w", err)
	}
	if reply.Success != nil && !*reply.Success {
		return fmt.Errorf("%w: %s", ErrRejected, reply.Message)
	}
	return nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// Service validates addresses before handing them to a Subscriber.
type Service struct {
	sub     Subscriber
	observe func(result string)
}

type Option func(*Service)

// WithObserver is told "subscribed", "invalid", "rejected" or "error" for
// every attempt.
func WithObserver(f func(result string)) Option {
	return func(s *Service) { s.observe = f }
}

func NewService(sub Subscriber, opts ...Option) *Service {
	s := &Service{sub: sub}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Normalize validates email and returns the bare, lower-cased address.
func Normalize(email string) (string, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(email))
	if err != nil || !strings.Contains(addr.Address[strings.LastIndexByte(addr.Address, '@')+1:], ".") {
		return "", ErrInvalidEmail
	}
	return strings.ToLower(addr.Address), nil
}

func (s *Service) Subscribe(ctx context.Context, email string) error {
	addr, err := Normalize(email)
	if err != nil {
		s.report("invalid")
		return err
	}
	if err := s.sub.Subscribe(ctx, addr); err != nil {
		if errors.Is(err, ErrRejected) {
			s.report("rejected")
		} else {
			s.report("error")
		}
		return err
	}
	s.report("subscribed")
	return nil
}

func (s *Service) report(result string) {
	if s.observe != nil {
		s.observe(result)
	}
}
