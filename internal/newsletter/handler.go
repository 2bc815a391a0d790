package newsletter

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
)

type Handler struct {
	service *Service
}

func NewHandler(s *Service) *Handler {
	return &Handler{service: s}
}

func (h *Handler) RegisterPublicRoutes(app fiber.Router) {
	app.Post("/api/v1/newsletter", h.subscribe)
}

type subscribeRequest struct {
	Email string `json:"email"`
}

func (h *Handler) subscribe(c *fiber.Ctx) error {
	payload := new(subscribeRequest)
	if err := c.BodyParser(payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}

	err := h.service.Subscribe(c.UserContext(), payload.Email)
	switch {
	case err == nil:
		return c.JSON(fiber.Map{"message": "Successfully subscribed to the newsletter!"})
	case errors.Is(err, ErrInvalidEmail):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Please enter a valid email address"})
	case errors.Is(err, ErrRejected):
		msg := strings.TrimPrefix(err.Error(), ErrRejected.Error()+": ")
		if msg == "" {
			msg = "Subscription failed"
		}
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"message": msg})
	default:
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"message": "Subscription failed. Please try again later."})
	}
}
