package newsletter

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wichananm65/blossom-storefront/internal/backend"
)

func newClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(backend.New("newsletter", srv.URL, time.Second))
}

func TestNormalize(t *testing.T) {
	got, err := Normalize("  Jane Doe <Jane@Example.COM> ")
	require.NoError(t, err)
	assert.Equal(t, "jane@example.com", got)

	for _, bad := range []string{"", "jane", "jane@", "jane@localhost"} {
		_, err := Normalize(bad)
		assert.ErrorIs(t, err, ErrInvalidEmail, bad)
	}
}

func TestClient_Subscribe(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/newsletter/subscribe", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "a@b.co", body["email"])
		w.Write([]byte(`{"success":true}`))
	})
	require.NoError(t, c.Subscribe(context.Background(), "a@b.co"))
}

func TestClient_Rejected(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"success":false,"message":"Already subscribed"}`))
	})
	err := c.Subscribe(context.Background(), "a@b.co")
	assert.ErrorIs(t, err, ErrRejected)
	assert.Contains(t, err.Error(), "Already subscribed")
}

// A network failure is a failure, never a silent success.
func TestClient_NetworkErrorIsReported(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	err := NewClient(backend.New("newsletter", url, time.Second)).Subscribe(context.Background(), "a@b.co")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrRejected))
}

type stubSubscriber struct {
	err  error
	last string
}

func (s *stubSubscriber) Subscribe(_ context.Context, email string) error {
	s.last = email
	return s.err
}

func TestService_ReportsResults(t *testing.T) {
	var results []string
	sub := &stubSubscriber{}
	svc := NewService(sub, WithObserver(func(r string) { results = append(results, r) }))

	require.NoError(t, svc.Subscribe(context.Background(), "A@B.co"))
	assert.Equal(t, "a@b.co", sub.last)

	assert.ErrorIs(t, svc.Subscribe(context.Background(), "bad"), ErrInvalidEmail)

	sub.err = errors.New("down")
	assert.Error(t, svc.Subscribe(context.Background(), "a@b.co"))

	assert.Equal(t, []string{"subscribed", "invalid", "error"}, results)
}
