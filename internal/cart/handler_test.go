package cart

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"

	"github.com/wichananm65/blossom-storefront/internal/notify"
	"github.com/wichananm65/blossom-storefront/internal/product"
	"github.com/wichananm65/blossom-storefront/internal/session"
	"github.com/wichananm65/blossom-storefront/internal/storage"
)

// makeApp puts the X-Session-ID header into locals the way the JWT middleware
// would.
func makeApp(t *testing.T) (*fiber.App, *Sessions) {
	t.Helper()
	return makeAppWith(t, storage.NewMemoryStore())
}

func makeAppWith(t *testing.T, kv storage.Store) (*fiber.App, *Sessions) {
	t.Helper()
	catalog := product.NewService(product.NewInMemoryRepository(product.DefaultCatalog()))
	sessions := NewSessions(kv, nil)
	h := NewHandler(sessions, catalog)

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		if id := c.Get("X-Session-ID"); id != "" {
			c.Locals(session.LocalsKey, &jwt.Token{Claims: jwt.MapClaims{session.ClaimSessionID: id}})
		}
		return c.Next()
	})
	h.RegisterProtectedRoutes(app)
	return app, sessions
}

type cartBody struct {
	Items []struct {
		ID        int    `json:"id"`
		Quantity  int    `json:"quantity"`
		LineTotal string `json:"lineTotal"`
	} `json:"items"`
	Currency       string                `json:"currency"`
	IsOpen         bool                  `json:"isOpen"`
	TotalItems     int                   `json:"totalItems"`
	FormattedTotal string                `json:"formattedTotal"`
	Notifications  []notify.Notification `json:"notifications"`
}

func do(t *testing.T, app *fiber.App, method, path, body string) (int, cartBody) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Session-ID", "shopper-1")
	res, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	var out cartBody
	json.NewDecoder(res.Body).Decode(&out)
	return res.StatusCode, out
}

func TestHandler_Unauthorized(t *testing.T) {
	app, _ := makeApp(t)
	res, _ := app.Test(httptest.NewRequest("GET", "/api/v1/cart", nil))
	if res.StatusCode != fiber.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", res.StatusCode)
	}
}

func TestHandler_StorageReadErrorIs503(t *testing.T) {
	kv := &flakyStore{Store: storage.NewMemoryStore()}
	kv.failures.Store(1)
	app, sessions := makeAppWith(t, kv)

	if status, _ := do(t, app, "PUT", "/api/v1/cart/currency", `{"currency":"gbp"}`); status != fiber.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", status)
	}
	if sessions.Len() != 0 {
		t.Fatal("a cart that failed to load must not be cached")
	}
	if _, err := kv.Get(context.Background(), KeyFor("shopper-1")); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("nothing should have been written, got %v", err)
	}

	if status, body := do(t, app, "GET", "/api/v1/cart", ""); status != fiber.StatusOK || body.Currency != "usd" {
		t.Fatalf("expected recovery on retry, got %d %+v", status, body)
	}
}

func TestHandler_AddUpdateRemove(t *testing.T) {
	app, _ := makeApp(t)

	status, body := do(t, app, "POST", "/api/v1/cart/items", `{"productId":1}`)
	if status != fiber.StatusOK || body.TotalItems != 1 || body.FormattedTotal != "$45.00" {
		t.Fatalf("unexpected add response %d %+v", status, body)
	}
	if len(body.Notifications) != 1 || body.Notifications[0].Title != "Added to cart" {
		t.Fatalf("expected add notification, got %+v", body.Notifications)
	}

	status, body = do(t, app, "PATCH", "/api/v1/cart/items/1", `{"quantity":3}`)
	if status != fiber.StatusOK || body.TotalItems != 3 || body.Items[0].LineTotal != "$135.00" {
		t.Fatalf("unexpected update response %d %+v", status, body)
	}
	if len(body.Notifications) != 0 {
		t.Fatalf("notifications should be drained, got %+v", body.Notifications)
	}

	status, body = do(t, app, "PUT", "/api/v1/cart/currency", `{"currency":"naira"}`)
	if status != fiber.StatusOK || body.Currency != "naira" || body.FormattedTotal != "₦216,000.00" {
		t.Fatalf("unexpected currency response %d %+v", status, body)
	}

	status, body = do(t, app, "DELETE", "/api/v1/cart/items/1", "")
	if status != fiber.StatusOK || body.TotalItems != 0 || len(body.Notifications) != 1 {
		t.Fatalf("unexpected remove response %d %+v", status, body)
	}
}

func TestHandler_OutOfStockConflict(t *testing.T) {
	app, _ := makeApp(t)
	status, body := do(t, app, "POST", "/api/v1/cart/items", `{"productId":3}`)
	if status != fiber.StatusConflict {
		t.Fatalf("expected 409, got %d", status)
	}
	if body.TotalItems != 0 || len(body.Notifications) != 1 || body.Notifications[0].Severity != notify.SeverityError {
		t.Fatalf("unexpected body %+v", body)
	}
}

func TestHandler_BadRequests(t *testing.T) {
	app, _ := makeApp(t)
	cases := []struct {
		method, path, body string
		want               int
	}{
		{"POST", "/api/v1/cart/items", `{"productId":0}`, fiber.StatusBadRequest},
		{"POST", "/api/v1/cart/items", `{"productId":999}`, fiber.StatusNotFound},
		{"PATCH", "/api/v1/cart/items/1", `{}`, fiber.StatusBadRequest},
		{"PUT", "/api/v1/cart/currency", `{"currency":"yen"}`, fiber.StatusBadRequest},
	}
	for _, tc := range cases {
		if status, _ := do(t, app, tc.method, tc.path, tc.body); status != tc.want {
			t.Errorf("%s %s %s: expected %d, got %d", tc.method, tc.path, tc.body, tc.want, status)
		}
	}
}

func TestHandler_ClearAndToggle(t *testing.T) {
	app, sessions := makeApp(t)
	do(t, app, "POST", "/api/v1/cart/items", `{"productId":2}`)

	_, body := do(t, app, "POST", "/api/v1/cart/toggle", "")
	if !body.IsOpen {
		t.Fatal("expected cart to be open")
	}
	_, body = do(t, app, "DELETE", "/api/v1/cart", "")
	if body.TotalItems != 0 || !body.IsOpen {
		t.Fatalf("clear should keep visibility, got %+v", body)
	}
	if sessions.Len() != 1 {
		t.Fatalf("expected one open session, got %d", sessions.Len())
	}
}
