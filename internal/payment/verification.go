package payment

import "context"

// Verification is a pending Resolve. It settles exactly once; Cancel drops the
// in-flight call.
type Verification struct {
	done    chan struct{}
	outcome Outcome
	cancel  context.CancelFunc
}

// Start resolves cb in the background.
func Start(ctx context.Context, v Verifier, cb Callback) *Verification {
	ctx, cancel := context.WithCancel(ctx)
	f := &Verification{done: make(chan struct{}), cancel: cancel}
	go func() {
		defer cancel()
		f.outcome = Resolve(ctx, v, cb)
		close(f.done)
	}()
	return f
}

// Done is closed once the outcome is known.
func (f *Verification) Done() <-chan struct{} { return f.done }

// Outcome returns the settled outcome, or a pending one and false.
func (f *Verification) Outcome() (Outcome, bool) {
	select {
	case <-f.done:
		return f.outcome, true
	default:
		return Outcome{Status: StatusPending}, false
	}
}

// Wait blocks until the outcome is known or ctx ends.
func (f *Verification) Wait(ctx context.Context) (Outcome, error) {
	select {
	case <-f.done:
		return f.outcome, nil
	case <-ctx.Done():
		return Outcome{Status: StatusPending}, ctx.Err()
	}
}

func (f *Verification) Cancel() { f.cancel() }
