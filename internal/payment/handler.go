package payment

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/url"

	"github.com/gofiber/fiber/v2"

	"github.com/wichananm65/blossom-storefront/internal/notify"
)

// Handler serves the page providers redirect back to after payment.
type Handler struct {
	verifier Verifier
	cfg      ViewConfig
	notifier notify.Notifier
	logger   *slog.Logger
	onSettle func(Callback, Outcome)
}

type HandlerOption func(*Handler)

// WithSettleHook runs f for every settled callback, e.g. to update the order.
func WithSettleHook(f func(Callback, Outcome)) HandlerOption {
	return func(h *Handler) { h.onSettle = f }
}

func WithNotifier(n notify.Notifier) HandlerOption {
	return func(h *Handler) { h.notifier = n }
}

func NewHandler(v Verifier, cfg ViewConfig, logger *slog.Logger, opts ...HandlerOption) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{verifier: v, cfg: cfg.withDefaults(), logger: logger}
	for _, o := range opts {
		o(h)
	}
	return h
}

func (h *Handler) RegisterPublicRoutes(app fiber.Router) {
	app.Get("/payment/callback", h.callback)
}

type callbackResponse struct {
	Status          Status                `json:"status"`
	Message         string                `json:"message"`
	Provider        Provider              `json:"provider"`
	Redirect        string                `json:"redirect,omitempty"`
	RedirectAfterMs int64                 `json:"redirectAfterMs,omitempty"`
	Notifications   []notify.Notification `json:"notifications"`
}

func (h *Handler) callback(c *fiber.Ctx) error {
	query, err := url.ParseQuery(string(c.Request().URI().QueryString()))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "invalid query"})
	}

	inbox := notify.NewInbox(0)
	nav := NavigatorFunc(func(target string) {
		h.logger.Debug("payment redirect fired", "target", target)
	})
	opts := []ViewOption{}
	if h.onSettle != nil {
		opts = append(opts, OnSettle(h.onSettle))
	}
	view := NewView(h.verifier, notify.Multi(inbox, h.notifier), nav, h.cfg, opts...)
	defer view.Unmount()

	ctx := c.UserContext()
	if err := view.Mount(ctx, query); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": err.Error()})
	}
	o, err := view.Wait(ctx)
	if err != nil {
		h.logger.Warn("payment verification did not settle", "provider", o.Provider, "error", err)
		return c.Status(fiber.StatusGatewayTimeout).JSON(callbackResponse{
			Status:        StatusPending,
			Message:       "Payment verification is taking longer than expected.",
			Provider:      o.Provider,
			Notifications: inbox.Drain(),
		})
	}

	res := callbackResponse{
		Status:   o.Status,
		Message:  o.Message,
		Provider: o.Provider,
	}
	switch o.Status {
	case StatusSucceeded:
		res.Redirect = h.cfg.Dashboard
		res.RedirectAfterMs = h.cfg.RedirectDelay.Milliseconds()
		secs := int(math.Ceil(h.cfg.RedirectDelay.Seconds()))
		c.Set("Refresh", fmt.Sprintf("%d;url=%s", secs, h.cfg.Dashboard))
		res.Notifications = inbox.Drain()
		return c.Status(fiber.StatusOK).JSON(res)
	default:
		h.logger.Info("payment verification failed", "provider", o.Provider, "error", o.Err)
		res.Notifications = inbox.Drain()
		if errors.Is(o.Err, ErrInvalidReference) {
			return c.Status(fiber.StatusBadRequest).JSON(res)
		}
		return c.Status(fiber.StatusPaymentRequired).JSON(res)
	}
}
