package order

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/wichananm65/blossom-storefront/internal/backend"
	"github.com/wichananm65/blossom-storefront/internal/cart"
	"github.com/wichananm65/blossom-storefront/internal/payment"
	"github.com/wichananm65/blossom-storefront/internal/session"
)

// Carts gives access to a session's open cart.
type Carts interface {
	Get(ctx context.Context, id string) (*cart.Session, error)
}

// Handler exposes checkout and the session's order history.
type Handler struct {
	service *Service
	carts   Carts
}

func NewHandler(s *Service, carts Carts) *Handler {
	return &Handler{service: s, carts: carts}
}

func (h *Handler) RegisterProtectedRoutes(app fiber.Router) {
	app.Post("/api/v1/checkout", h.checkout)
	app.Get("/api/v1/orders", h.getOrders)
}

type checkoutRequest struct {
	Provider string `json:"provider"`
	Email    string `json:"email"`
}

func (h *Handler) checkout(c *fiber.Ctx) error {
	payload := new(checkoutRequest)
	if err := c.BodyParser(payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}
	if payload.Provider == "" {
		payload.Provider = string(payment.Paystack)
	}
	provider, err := payment.ParseProvider(payload.Provider)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "unsupported payment provider"})
	}

	sessionID, err := session.IDFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
	}
	sess, err := h.carts.Get(c.UserContext(), sessionID)
	if err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"message": "cart temporarily unavailable"})
	}
	st := sess.Store.State()
	sess.Release()

	created, err := h.service.Checkout(c.UserContext(), sessionID, st, provider, payload.Email)
	if err != nil {
		switch {
		case errors.Is(err, ErrEmptyCart):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "cart is empty"})
		case errors.Is(err, ErrInvalidEmail):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "invalid email address"})
		case errors.Is(err, backend.ErrUnavailable):
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"message": "payment service unavailable"})
		default:
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"message": err.Error()})
		}
	}
	return c.Status(fiber.StatusCreated).JSON(created)
}

// getOrders returns the orders started from the caller's session.
func (h *Handler) getOrders(c *fiber.Ctx) error {
	sessionID, err := session.IDFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
	}
	orders, err := h.service.ListBySession(sessionID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": err.Error()})
	}
	return c.JSON(orders)
}
