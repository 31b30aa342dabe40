package handler

import (
	"context"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/auditorium-booking/internal/logger"
	"github.com/iliyamo/auditorium-booking/internal/model"
	"github.com/iliyamo/auditorium-booking/internal/service"
)

type PaymentService interface {
	CreateCheckout(ctx context.Context, sel model.Selection) (service.CheckoutSession, error)
	HandleWebhook(ctx context.Context, payload []byte, signature string) (service.WebhookOutcome, error)
}

type PaymentHandler struct {
	Payments PaymentService
	L        logger.Logger
}

func NewPaymentHandler(p PaymentService, l logger.Logger) *PaymentHandler {
	return &PaymentHandler{Payments: p, L: l}
}

// maxWebhookBody matches the provider's documented event size limit.
const maxWebhookBody = 65536

// Checkout POST /v1/checkout {showtimeId, seats}
func (h *PaymentHandler) Checkout(c echo.Context) error {
	sel, err := selection(c)
	if err != nil {
		return badRequest(c, "invalid body")
	}
	if sel.ShowtimeID <= 0 {
		return badRequest(c, "showtimeId required")
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	cs, err := h.Payments.CreateCheckout(ctx, sel)
	if err != nil {
		return respondError(c, h.L, err)
	}
	return c.JSON(http.StatusOK, cs)
}

// Webhook receives signed provider events.  POST /v1/payments/webhook
func (h *PaymentHandler) Webhook(c echo.Context) error {
	body, err := io.ReadAll(http.MaxBytesReader(c.Response(), c.Request().Body, maxWebhookBody))
	if err != nil {
		return badRequest(c, "unreadable body")
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	out, err := h.Payments.HandleWebhook(ctx, body, c.Request().Header.Get("Stripe-Signature"))
	if err != nil {
		return respondError(c, h.L, err)
	}
	return c.JSON(http.StatusOK, out)
}
