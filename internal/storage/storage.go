// Package storage provides the synchronous durable key-value facility the cart
// persists into. Every implementation is last-write-wins with no transactions.
package storage

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("key not found")

// Store reads and writes string blobs under a key. Get returns ErrNotFound when
// nothing was stored under key.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}
