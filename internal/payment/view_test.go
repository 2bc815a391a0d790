package payment

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/wichananm65/blossom-storefront/internal/notify"
)

type recordingNav struct {
	mu      sync.Mutex
	targets []string
	fired   chan struct{}
}

func newRecordingNav() *recordingNav {
	return &recordingNav{fired: make(chan struct{}, 1)}
}

func (r *recordingNav) Navigate(target string) {
	r.mu.Lock()
	r.targets = append(r.targets, target)
	r.mu.Unlock()
	r.fired <- struct{}{}
}

func (r *recordingNav) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.targets)
}

func waitSettled(t *testing.T, v *View) Outcome {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	o, err := v.Wait(ctx)
	if err != nil {
		t.Fatalf("view did not settle: %v", err)
	}
	return o
}

func TestView_PaystackSuccessSchedulesDashboard(t *testing.T) {
	inbox := notify.NewInbox(0)
	nav := newRecordingNav()
	v := NewView(&fakeVerifier{}, inbox, nav, ViewConfig{RedirectDelay: 3000 * time.Millisecond})

	if err := v.Mount(context.Background(), url.Values{"provider": {"paystack"}, "reference": {"ABC"}}); err != nil {
		t.Fatalf("Mount: %v", err)
	}
	o := waitSettled(t, v)
	if o.Status != StatusSucceeded || v.Status() != StatusSucceeded {
		t.Fatalf("unexpected outcome %+v", o)
	}
	r := v.Redirect()
	if r == nil || r.Target() != "/dashboard" {
		t.Fatalf("expected dashboard redirect, got %+v", r)
	}
	if r.Fired() {
		t.Fatal("redirect fired before its delay")
	}
	notes := inbox.Drain()
	if len(notes) != 1 || notes[0].Severity != notify.SeveritySuccess {
		t.Fatalf("unexpected notifications %+v", notes)
	}
	v.Unmount()
}

func TestView_RedirectFiresAfterDelay(t *testing.T) {
	nav := newRecordingNav()
	v := NewView(&fakeVerifier{}, nil, nav, ViewConfig{Dashboard: "/home", RedirectDelay: 20 * time.Millisecond})
	v.Mount(context.Background(), url.Values{"reference": {"ABC"}})
	waitSettled(t, v)

	select {
	case <-nav.fired:
	case <-time.After(time.Second):
		t.Fatal("redirect never fired")
	}
	if nav.targets[0] != "/home" || nav.count() != 1 {
		t.Fatalf("unexpected navigations %v", nav.targets)
	}
	v.Unmount()
}

func TestView_UnmountCancelsRedirect(t *testing.T) {
	nav := newRecordingNav()
	v := NewView(&fakeVerifier{}, nil, nav, ViewConfig{RedirectDelay: 30 * time.Millisecond})
	v.Mount(context.Background(), url.Values{"reference": {"ABC"}})
	waitSettled(t, v)

	v.Unmount()
	time.Sleep(80 * time.Millisecond)
	if nav.count() != 0 {
		t.Fatalf("navigation fired after unmount: %v", nav.targets)
	}
}

func TestView_UnmountWhilePendingDropsVerification(t *testing.T) {
	dropped := make(chan struct{})
	v := NewView(&fakeVerifier{paystack: func(ctx context.Context, _ string) (Result, error) {
		<-ctx.Done()
		close(dropped)
		return Result{}, ctx.Err()
	}}, nil, nil, ViewConfig{})
	v.Mount(context.Background(), url.Values{"reference": {"ABC"}})
	v.Unmount()

	select {
	case <-dropped:
	case <-time.After(time.Second):
		t.Fatal("verification was not cancelled")
	}
	if v.Status() != StatusPending {
		t.Fatalf("unmounted view must not settle, got %s", v.Status())
	}
	if _, err := v.Wait(context.Background()); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected Canceled, got %v", err)
	}
}

func TestView_FailureNotifiesAndNoRedirect(t *testing.T) {
	inbox := notify.NewInbox(0)
	var settled []Outcome
	v := NewView(&fakeVerifier{paypal: func(context.Context, string) (Result, error) {
		return Result{}, errors.New("boom")
	}}, inbox, nil, ViewConfig{}, OnSettle(func(_ Callback, o Outcome) { settled = append(settled, o) }))

	v.Mount(context.Background(), url.Values{"provider": {"paypal"}, "token": {"XYZ"}})
	o := waitSettled(t, v)
	if o.Status != StatusFailed || o.Message != MessageFailed {
		t.Fatalf("unexpected outcome %+v", o)
	}
	if v.Redirect() != nil {
		t.Fatal("failed payment must not redirect")
	}
	notes := inbox.Drain()
	if len(notes) != 1 || notes[0].Severity != notify.SeverityError || notes[0].Description != MessageFailed {
		t.Fatalf("unexpected notifications %+v", notes)
	}
	if len(settled) != 1 {
		t.Fatalf("settle hook ran %d times", len(settled))
	}
}

func TestView_MountOnce(t *testing.T) {
	v := &fakeVerifier{}
	view := NewView(v, nil, nil, ViewConfig{})
	view.Mount(context.Background(), url.Values{"reference": {"A"}})
	if err := view.Mount(context.Background(), url.Values{"reference": {"B"}}); !errors.Is(err, ErrAlreadyMounted) {
		t.Fatalf("expected ErrAlreadyMounted, got %v", err)
	}
	waitSettled(t, view)
	view.Unmount()
	if v.calls.Load() != 1 {
		t.Fatalf("expected exactly one verification, got %d", v.calls.Load())
	}
}

func TestView_TimeoutFails(t *testing.T) {
	v := NewView(&fakeVerifier{paystack: func(ctx context.Context, _ string) (Result, error) {
		<-ctx.Done()
		return Result{}, ctx.Err()
	}}, nil, nil, ViewConfig{Timeout: 20 * time.Millisecond})
	v.Mount(context.Background(), url.Values{"reference": {"A"}})
	o := waitSettled(t, v)
	if o.Status != StatusFailed || !errors.Is(o.Err, context.DeadlineExceeded) {
		t.Fatalf("unexpected outcome %+v", o)
	}
}

func TestDeferred_StopReportsPending(t *testing.T) {
	nav := newRecordingNav()
	d := Schedule(nav, "/dashboard", time.Hour)
	if !d.Stop() {
		t.Fatal("expected Stop to report pending navigation")
	}
	if d.Stop() {
		t.Fatal("second Stop should report false")
	}
}
