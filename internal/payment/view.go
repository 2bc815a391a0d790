package payment

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"time"

	"github.com/wichananm65/blossom-storefront/internal/notify"
)

var ErrAlreadyMounted = errors.New("payment view already mounted")

// ViewConfig holds the timings and target of a payment status view.
type ViewConfig struct {
	Dashboard     string
	RedirectDelay time.Duration
	// Timeout bounds the verification call; zero leaves it unbounded.
	Timeout time.Duration
}

func (c ViewConfig) withDefaults() ViewConfig {
	if c.Dashboard == "" {
		c.Dashboard = "/dashboard"
	}
	if c.RedirectDelay <= 0 {
		c.RedirectDelay = 3 * time.Second
	}
	return c
}

// View drives one payment status page: pending on mount, then succeeded or
// failed exactly once. On success it schedules the dashboard redirect.
type View struct {
	verifier Verifier
	notifier notify.Notifier
	nav      Navigator
	cfg      ViewConfig
	onSettle func(Callback, Outcome)

	mu           sync.Mutex
	mounted      bool
	unmounted    bool
	callback     Callback
	outcome      Outcome
	verification *Verification
	redirect     *Deferred
	settled      chan struct{}
	teardown     chan struct{}
}

type ViewOption func(*View)

// OnSettle registers a callback run once the outcome is known.
func OnSettle(f func(Callback, Outcome)) ViewOption {
	return func(v *View) { v.onSettle = f }
}

func NewView(verifier Verifier, notifier notify.Notifier, nav Navigator, cfg ViewConfig, opts ...ViewOption) *View {
	if notifier == nil {
		notifier = notify.Discard
	}
	if nav == nil {
		nav = NavigatorFunc(func(string) {})
	}
	v := &View{
		verifier: verifier,
		notifier: notifier,
		nav:      nav,
		cfg:      cfg.withDefaults(),
		outcome:  Outcome{Status: StatusPending},
		settled:  make(chan struct{}),
		teardown: make(chan struct{}),
	}
	for _, o := range opts {
		o(v)
	}
	return v
}

// Mount starts the flow for the callback query. It may be called once.
func (v *View) Mount(ctx context.Context, query url.Values) error {
	v.mu.Lock()
	if v.mounted {
		v.mu.Unlock()
		return ErrAlreadyMounted
	}
	v.mounted = true
	cb := ParseCallback(query)
	v.callback = cb
	v.outcome.Provider = cb.Provider
	v.mu.Unlock()

	if cb.Reference == "" && cb.Token == "" {
		v.settle(Resolve(ctx, v.verifier, cb))
		return nil
	}

	cancel := context.CancelFunc(func() {})
	if v.cfg.Timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, v.cfg.Timeout)
	}
	f := Start(ctx, v.verifier, cb)
	v.mu.Lock()
	v.verification = f
	v.mu.Unlock()

	go func() {
		defer cancel()
		select {
		case <-f.Done():
			o, _ := f.Outcome()
			v.settle(o)
		case <-v.teardown:
		}
	}()
	return nil
}

func (v *View) settle(o Outcome) {
	v.mu.Lock()
	if v.unmounted || v.outcome.Status != StatusPending {
		v.mu.Unlock()
		return
	}
	v.outcome = o
	if o.Status == StatusSucceeded {
		v.redirect = Schedule(v.nav, v.cfg.Dashboard, v.cfg.RedirectDelay)
	}
	cb := v.callback
	v.mu.Unlock()
	defer close(v.settled)

	if o.Status == StatusSucceeded {
		v.notifier.Notify(notify.Notification{
			Title:       "Payment successful",
			Description: "Your payment has been verified.",
			Severity:    notify.SeveritySuccess,
		})
	} else {
		v.notifier.Notify(notify.Notification{
			Title:       "Payment failed",
			Description: o.Message,
			Severity:    notify.SeverityError,
		})
	}
	if v.onSettle != nil {
		v.onSettle(cb, o)
	}
}

// Status is the current state: pending until settled.
func (v *View) Status() Status {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.outcome.Status
}

func (v *View) Outcome() Outcome {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.outcome
}

// Settled is closed when the outcome is known.
func (v *View) Settled() <-chan struct{} { return v.settled }

// Wait blocks until the view settles, is unmounted, or ctx ends.
func (v *View) Wait(ctx context.Context) (Outcome, error) {
	select {
	case <-v.settled:
		return v.Outcome(), nil
	default:
	}
	select {
	case <-v.settled:
		return v.Outcome(), nil
	case <-v.teardown:
		return v.Outcome(), context.Canceled
	case <-ctx.Done():
		return v.Outcome(), ctx.Err()
	}
}

// Redirect returns the scheduled navigation, nil unless the payment succeeded.
func (v *View) Redirect() *Deferred {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.redirect
}

// Unmount tears the view down: the pending redirect is stopped and an
// unfinished verification is dropped.
func (v *View) Unmount() {
	v.mu.Lock()
	if v.unmounted {
		v.mu.Unlock()
		return
	}
	v.unmounted = true
	close(v.teardown)
	redirect, f := v.redirect, v.verification
	v.mu.Unlock()

	if redirect != nil {
		redirect.Stop()
	}
	if f != nil {
		f.Cancel()
	}
}
