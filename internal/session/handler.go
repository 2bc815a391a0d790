package session

import "github.com/gofiber/fiber/v2"

type Handler struct {
	issuer *Issuer
}

func NewHandler(i *Issuer) *Handler {
	return &Handler{issuer: i}
}

func (h *Handler) RegisterPublicRoutes(app fiber.Router) {
	app.Post("/api/v1/session", h.createSession)
}

// RegisterProtectedRoutes must be called after the JWT middleware is installed.
func (h *Handler) RegisterProtectedRoutes(app fiber.Router) {
	app.Post("/api/v1/session/refresh", h.refreshSession)
}

func (h *Handler) createSession(c *fiber.Ctx) error {
	tok, err := h.issuer.Issue()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "failed to generate token"})
	}
	return c.Status(fiber.StatusCreated).JSON(tok)
}

func (h *Handler) refreshSession(c *fiber.Ctx) error {
	id, err := IDFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
	}
	tok, err := h.issuer.IssueFor(id)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "failed to generate token"})
	}
	return c.JSON(tok)
}
