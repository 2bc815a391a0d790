package cart

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/wichananm65/blossom-storefront/internal/product"
	"github.com/wichananm65/blossom-storefront/internal/storage"
)

type failingStore struct{ err error }

func (f failingStore) Get(context.Context, string) (string, error) { return "", f.err }
func (f failingStore) Set(context.Context, string, string) error   { return f.err }
func (f failingStore) Delete(context.Context, string) error        { return f.err }

func bufferLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewJSONHandler(&buf, nil)), &buf
}

func sameState(t *testing.T, got, want State) {
	t.Helper()
	if got.Currency != want.Currency {
		t.Fatalf("currency %q, want %q", got.Currency, want.Currency)
	}
	if len(got.Items) != len(want.Items) {
		t.Fatalf("got %d items, want %d", len(got.Items), len(want.Items))
	}
	for i := range want.Items {
		g, w := got.Items[i], want.Items[i]
		if g.ID != w.ID || g.Name != w.Name || g.Quantity != w.Quantity || g.InStock != w.InStock {
			t.Fatalf("item %d: got %+v, want %+v", i, g, w)
		}
		for _, c := range product.Currencies {
			if !g.Price.In(c).Equal(w.Price.In(c)) {
				t.Fatalf("item %d %s price %s, want %s", i, c, g.Price.In(c), w.Price.In(c))
			}
		}
	}
}

func TestPersisted_RoundTrip(t *testing.T) {
	kv := storage.NewMemoryStore()
	logger, _ := bufferLogger()
	h := NewPersisted(NewMemory(EmptyState()), kv, StorageKey, logger)

	h.Dispatch(AddItem{Product: testProduct(1, "10", true)})
	h.Dispatch(AddItem{Product: testProduct(2, "4.75", true)})
	h.Dispatch(UpdateQuantity{ID: 2, Quantity: 3})
	h.Dispatch(SetCurrency{Currency: product.GBP})
	want := h.Dispatch(Toggle{})

	got, err := Load(context.Background(), kv, StorageKey, logger)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	sameState(t, got, want)
	if got.IsOpen {
		t.Fatal("visibility should not be restored")
	}
}

func TestPersisted_WritesUnderKey(t *testing.T) {
	kv := storage.NewMemoryStore()
	h := NewPersisted(NewMemory(EmptyState()), kv, StorageKey, nil)
	h.Dispatch(AddItem{Product: testProduct(1, "10", true)})

	raw, err := kv.Get(context.Background(), "blossomCart")
	if err != nil {
		t.Fatalf("expected blob under blossomCart: %v", err)
	}
	if !strings.Contains(raw, `"currency":"usd"`) || strings.Contains(raw, "isOpen") {
		t.Fatalf("unexpected blob %s", raw)
	}
}

func TestLoad_MissingKeyIsEmptyAndQuiet(t *testing.T) {
	logger, buf := bufferLogger()
	s, err := Load(context.Background(), storage.NewMemoryStore(), StorageKey, logger)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	sameState(t, s, EmptyState())
	if buf.Len() != 0 {
		t.Fatalf("absence should not be logged, got %s", buf.String())
	}
}

func TestLoad_CorruptBlobFallsBack(t *testing.T) {
	kv := storage.NewMemoryStore()
	kv.Set(context.Background(), StorageKey, "{not json")
	logger, buf := bufferLogger()

	s, err := Load(context.Background(), kv, StorageKey, logger)
	if err != nil {
		t.Fatalf("corrupt blob should not be an error: %v", err)
	}
	sameState(t, s, EmptyState())
	if !strings.Contains(buf.String(), "stored cart unreadable") {
		t.Fatalf("expected warning, got %s", buf.String())
	}
}

func TestLoad_ReadErrorIsReturned(t *testing.T) {
	cause := errors.New("redis: i/o timeout")
	if _, err := Load(context.Background(), failingStore{err: cause}, StorageKey, slog.Default()); !errors.Is(err, cause) {
		t.Fatalf("expected read error, got %v", err)
	}
}

func TestLoad_NormalizesStoredItems(t *testing.T) {
	kv := storage.NewMemoryStore()
	blob := `{"items":[{"id":1,"name":"a","quantity":2},{"id":1,"name":"a","quantity":3},{"id":2,"name":"b","quantity":0}],"currency":"NGN"}`
	kv.Set(context.Background(), StorageKey, blob)

	s, _ := Load(context.Background(), kv, StorageKey, slog.Default())
	if len(s.Items) != 1 || s.Items[0].ID != 1 || s.Items[0].Quantity != 5 {
		t.Fatalf("unexpected items %+v", s.Items)
	}
	if s.Currency != product.Naira {
		t.Fatalf("expected naira, got %q", s.Currency)
	}
}

func TestLoad_UnknownCurrencyDefaultsToUSD(t *testing.T) {
	kv := storage.NewMemoryStore()
	kv.Set(context.Background(), StorageKey, `{"items":[],"currency":"yen"}`)
	if s, _ := Load(context.Background(), kv, StorageKey, slog.Default()); s.Currency != product.USD {
		t.Fatalf("expected usd, got %q", s.Currency)
	}
}

func TestPersisted_WriteFailureKeepsMemoryState(t *testing.T) {
	logger, buf := bufferLogger()
	h := NewPersisted(NewMemory(EmptyState()), failingStore{err: errors.New("read-only")}, StorageKey, logger)

	s := h.Dispatch(AddItem{Product: testProduct(1, "10", true)})
	if s.TotalItems() != 1 || h.State().TotalItems() != 1 {
		t.Fatalf("in-memory state lost: %+v", s)
	}
	if !strings.Contains(buf.String(), "cart persist failed") {
		t.Fatalf("expected persist error log, got %s", buf.String())
	}
}
