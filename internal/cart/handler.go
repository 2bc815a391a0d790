package cart

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/wichananm65/blossom-storefront/internal/notify"
	"github.com/wichananm65/blossom-storefront/internal/product"
	"github.com/wichananm65/blossom-storefront/internal/session"
)

// Catalog resolves the products a shopper adds by id.
type Catalog interface {
	GetByID(id int) (product.Product, error)
}

type Handler struct {
	sessions *Sessions
	catalog  Catalog
}

func NewHandler(sessions *Sessions, catalog Catalog) *Handler {
	return &Handler{sessions: sessions, catalog: catalog}
}

// RegisterProtectedRoutes must be called after the session middleware.
func (h *Handler) RegisterProtectedRoutes(app fiber.Router) {
	app.Get("/api/v1/cart", h.getCart)
	app.Delete("/api/v1/cart", h.clearCart)
	app.Post("/api/v1/cart/items", h.addItem)
	app.Patch("/api/v1/cart/items/:id<int>", h.updateQuantity)
	app.Delete("/api/v1/cart/items/:id<int>", h.removeItem)
	app.Put("/api/v1/cart/currency", h.setCurrency)
	app.Post("/api/v1/cart/toggle", h.toggle)
}

type itemView struct {
	Item
	UnitPrice string `json:"unitPrice"`
	LineTotal string `json:"lineTotal"`
}

type cartResponse struct {
	Items          []itemView            `json:"items"`
	Currency       product.Currency      `json:"currency"`
	IsOpen         bool                  `json:"isOpen"`
	TotalItems     int                   `json:"totalItems"`
	TotalPrice     decimal.Decimal       `json:"totalPrice"`
	FormattedTotal string                `json:"formattedTotal"`
	Notifications  []notify.Notification `json:"notifications"`
}

func render(sess *Session) cartResponse {
	st := sess.Store.State()
	items := make([]itemView, 0, len(st.Items))
	for _, it := range st.Items {
		unit := it.Price.In(st.Currency)
		items = append(items, itemView{
			Item:      it,
			UnitPrice: FormatAmount(unit, st.Currency),
			LineTotal: FormatAmount(unit.Mul(decimal.NewFromInt(int64(it.Quantity))), st.Currency),
		})
	}
	total := st.TotalPrice()
	return cartResponse{
		Items:          items,
		Currency:       st.Currency,
		IsOpen:         st.IsOpen,
		TotalItems:     st.TotalItems(),
		TotalPrice:     total,
		FormattedTotal: FormatAmount(total, st.Currency),
		Notifications:  sess.Inbox.Drain(),
	}
}

// current leases the caller's cart. Handlers release it before returning.
func (h *Handler) current(c *fiber.Ctx) (*Session, error) {
	id, err := session.IDFromCtx(c)
	if err != nil {
		return nil, err
	}
	return h.sessions.Get(c.UserContext(), id)
}

func sessionError(c *fiber.Ctx, err error) error {
	if errors.Is(err, ErrUnavailable) {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"message": "cart temporarily unavailable"})
	}
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
}

func (h *Handler) getCart(c *fiber.Ctx) error {
	sess, err := h.current(c)
	if err != nil {
		return sessionError(c, err)
	}
	defer sess.Release()
	return c.JSON(render(sess))
}

type addItemRequest struct {
	ProductID int `json:"productId"`
}

func (h *Handler) addItem(c *fiber.Ctx) error {
	payload := new(addItemRequest)
	if err := c.BodyParser(payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}
	if payload.ProductID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "invalid productId"})
	}
	sess, err := h.current(c)
	if err != nil {
		return sessionError(c, err)
	}
	defer sess.Release()

	p, err := h.catalog.GetByID(payload.ProductID)
	if err != nil {
		switch {
		case errors.Is(err, product.ErrNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "product not found"})
		default:
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": err.Error()})
		}
	}

	if err := sess.Store.AddItem(p); err != nil {
		if errors.Is(err, ErrOutOfStock) {
			return c.Status(fiber.StatusConflict).JSON(render(sess))
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": err.Error()})
	}
	return c.Status(fiber.StatusOK).JSON(render(sess))
}

type quantityRequest struct {
	Quantity *int `json:"quantity"`
}

func (h *Handler) updateQuantity(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "invalid id"})
	}
	payload := new(quantityRequest)
	if err := c.BodyParser(payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}
	if payload.Quantity == nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "quantity is required"})
	}
	sess, err := h.current(c)
	if err != nil {
		return sessionError(c, err)
	}
	defer sess.Release()
	sess.Store.UpdateQuantity(id, *payload.Quantity)
	return c.JSON(render(sess))
}

func (h *Handler) removeItem(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "invalid id"})
	}
	sess, err := h.current(c)
	if err != nil {
		return sessionError(c, err)
	}
	defer sess.Release()
	sess.Store.RemoveItem(id)
	return c.JSON(render(sess))
}

func (h *Handler) clearCart(c *fiber.Ctx) error {
	sess, err := h.current(c)
	if err != nil {
		return sessionError(c, err)
	}
	defer sess.Release()
	sess.Store.ClearCart()
	return c.JSON(render(sess))
}

type currencyRequest struct {
	Currency string `json:"currency"`
}

func (h *Handler) setCurrency(c *fiber.Ctx) error {
	payload := new(currencyRequest)
	if err := c.BodyParser(payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}
	cur, err := product.ParseCurrency(payload.Currency)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "unknown currency"})
	}
	sess, err := h.current(c)
	if err != nil {
		return sessionError(c, err)
	}
	defer sess.Release()
	if err := sess.Store.SetCurrency(cur); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}
	return c.JSON(render(sess))
}

func (h *Handler) toggle(c *fiber.Ctx) error {
	sess, err := h.current(c)
	if err != nil {
		return sessionError(c, err)
	}
	defer sess.Release()
	sess.Store.ToggleCart()
	return c.JSON(render(sess))
}
