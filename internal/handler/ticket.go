package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/auditorium-booking/internal/logger"
	"github.com/iliyamo/auditorium-booking/internal/model"
	"github.com/iliyamo/auditorium-booking/internal/utils"
)

type TicketReader interface {
	ListByUser(ctx context.Context, userID string) ([]model.TicketSummary, error)
	GetForUser(ctx context.Context, ticketID int64, userID string) (model.TicketSummary, error)
}

type TicketHandler struct {
	Tickets TicketReader
	L       logger.Logger
}

func NewTicketHandler(t TicketReader, l logger.Logger) *TicketHandler {
	return &TicketHandler{Tickets: t, L: l}
}

func (h *TicketHandler) withQR(ctx context.Context, t model.TicketSummary) model.TicketSummary {
	qr, err := utils.TicketQRDataURL(t.Payload)
	if err != nil {
		h.L.Warnf(ctx, "handler.ticket: qr for ticket %d: %v", t.TicketID, err)
		return t
	}
	t.QRCode = qr
	return t
}

// List returns the caller's tickets.  GET /v1/tickets
func (h *TicketHandler) List(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return respondError(c, h.L, err)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	items, err := h.Tickets.ListByUser(ctx, uid)
	if err != nil {
		return respondError(c, h.L, err)
	}
	for i := range items {
		items[i] = h.withQR(ctx, items[i])
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// Get returns one of the caller's tickets.  GET /v1/tickets/:id
func (h *TicketHandler) Get(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return respondError(c, h.L, err)
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return badRequest(c, "invalid ticket id")
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	t, err := h.Tickets.GetForUser(ctx, id, uid)
	if err != nil {
		return respondError(c, h.L, err)
	}
	return c.JSON(http.StatusOK, h.withQR(ctx, t))
}

// QR renders the ticket payload as a PNG.  GET /v1/tickets/:id/qr
func (h *TicketHandler) QR(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return respondError(c, h.L, err)
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return badRequest(c, "invalid ticket id")
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	t, err := h.Tickets.GetForUser(ctx, id, uid)
	if err != nil {
		return respondError(c, h.L, err)
	}
	png, err := utils.TicketQRPNG(t.Payload)
	if err != nil {
		return respondError(c, h.L, err)
	}
	return c.Blob(http.StatusOK, "image/png", png)
}
