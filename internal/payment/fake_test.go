package payment

import (
	"context"
	"sync/atomic"
)

type fakeVerifier struct {
	paystack func(ctx context.Context, ref string) (Result, error)
	paypal   func(ctx context.Context, token string) (Result, error)
	calls    atomic.Int32
}

func (f *fakeVerifier) VerifyPaystack(ctx context.Context, ref string) (Result, error) {
	f.calls.Add(1)
	if f.paystack == nil {
		return Result{Success: true}, nil
	}
	return f.paystack(ctx, ref)
}

func (f *fakeVerifier) VerifyPayPal(ctx context.Context, token string) (Result, error) {
	f.calls.Add(1)
	if f.paypal == nil {
		return Result{Success: true}, nil
	}
	return f.paypal(ctx, token)
}
