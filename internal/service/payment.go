package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/checkout/session"
	"github.com/stripe/stripe-go/v76/webhook"

	"github.com/iliyamo/auditorium-booking/internal/logger"
	"github.com/iliyamo/auditorium-booking/internal/metrics"
	"github.com/iliyamo/auditorium-booking/internal/model"
)

var (
	ErrInvalidSignature = errors.New("invalid webhook signature")
	ErrInvalidMetadata  = errors.New("invalid checkout metadata")
	ErrPaymentsDisabled = errors.New("payments are not configured")
)

const checkoutCompleted = "checkout.session.completed"

// BookingInfo travels in checkout session metadata under "bookingInfo".
type BookingInfo struct {
	ShowtimeID int64                `json:"showtimeId"`
	ScreenID   int64                `json:"screenId"`
	Seats      []model.SeatPosition `json:"seats"`
}

// CheckoutGateway creates hosted checkout sessions.
type CheckoutGateway interface {
	NewSession(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

type stripeGateway struct {
	c *session.Client
}

// NewStripeGateway talks to the Stripe API with the given secret key.
func NewStripeGateway(secretKey string) CheckoutGateway {
	return &stripeGateway{c: &session.Client{B: stripe.GetBackend(stripe.APIBackend), Key: secretKey}}
}

func (g *stripeGateway) NewSession(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	return g.c.New(params)
}

// Booker is the slice of BookingService payments depend on.
type Booker interface {
	Book(ctx context.Context, sel model.Selection, source string) (model.BookingResult, error)
	Verify(ctx context.Context, sel model.Selection) (model.Availability, error)
}

type PaymentConfig struct {
	WebhookSecret string
	Currency      string
	SuccessURL    string
	CancelURL     string
}

type PaymentService struct {
	booker    Booker
	showtimes ShowtimeReader
	gateway   CheckoutGateway
	cfg       PaymentConfig
	l         logger.Logger
}

func NewPaymentService(booker Booker, showtimes ShowtimeReader, gateway CheckoutGateway, cfg PaymentConfig, l logger.Logger) *PaymentService {
	if cfg.Currency == "" {
		cfg.Currency = "inr"
	}
	return &PaymentService{booker: booker, showtimes: showtimes, gateway: gateway, cfg: cfg, l: l}
}

// CheckoutSession is what the client needs to redirect to payment.
type CheckoutSession struct {
	ID  string `json:"sessionId"`
	URL string `json:"url"`
}

// CreateCheckout checks availability (advisory) and opens a checkout
// session whose metadata lets the webhook replay the booking.
func (p *PaymentService) CreateCheckout(ctx context.Context, sel model.Selection) (CheckoutSession, error) {
	if p.gateway == nil {
		return CheckoutSession{}, ErrPaymentsDisabled
	}
	avail, err := p.booker.Verify(ctx, sel)
	if err != nil {
		return CheckoutSession{}, err
	}
	if !avail.Available {
		return CheckoutSession{}, &model.ConflictError{ShowtimeID: sel.ShowtimeID, Seats: avail.UnavailableSeats}
	}
	detail, err := p.showtimes.GetDetail(ctx, sel.ShowtimeID)
	if err != nil {
		return CheckoutSession{}, err
	}

	info, err := json.Marshal(BookingInfo{ShowtimeID: sel.ShowtimeID, ScreenID: detail.ScreenID, Seats: sel.Seats})
	if err != nil {
		return CheckoutSession{}, err
	}
	labels := make([]string, len(sel.Seats))
	for i, s := range sel.Seats {
		labels[i] = s.Label()
	}

	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency: stripe.String(p.cfg.Currency),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name:        stripe.String(detail.ShowTitle),
					Description: stripe.String(fmt.Sprintf("%s, screen %d, seats %s", detail.AuditoriumName, detail.ScreenNumber, strings.Join(labels, " "))),
				},
				UnitAmount: stripe.Int64(int64(detail.Price) * 100),
			},
			Quantity: stripe.Int64(int64(len(sel.Seats))),
		}},
		SuccessURL: stripe.String(p.cfg.SuccessURL),
		CancelURL:  stripe.String(p.cfg.CancelURL),
		Metadata: map[string]string{
			"userId":      sel.UserID,
			"bookingInfo": string(info),
		},
	}
	params.Context = ctx

	cs, err := p.gateway.NewSession(params)
	if err != nil {
		p.l.Errorf(ctx, "service.payment.CreateCheckout: %v", err)
		return CheckoutSession{}, fmt.Errorf("create checkout session: %w", err)
	}
	return CheckoutSession{ID: cs.ID, URL: cs.URL}, nil
}

// WebhookOutcome tells the handler what happened to an event.  Every
// outcome is acknowledged to the provider.
type WebhookOutcome struct {
	EventID  string               `json:"eventId"`
	Status   string               `json:"status"` // booked | conflict | ignored
	TicketID int64                `json:"ticketId,omitempty"`
	Seats    []model.SeatPosition `json:"unavailableSeats,omitempty"`
}

// HandleWebhook verifies the signature and, for a completed checkout,
// runs the booking guard with the session metadata.  Seats taken since
// checkout started are reported as a conflict outcome rather than an
// error so the provider does not redeliver.  A redelivered session
// reports its existing ticket as booked.
func (p *PaymentService) HandleWebhook(ctx context.Context, payload []byte, signature string) (WebhookOutcome, error) {
	if p.cfg.WebhookSecret == "" {
		return WebhookOutcome{}, ErrPaymentsDisabled
	}
	event, err := webhook.ConstructEventWithOptions(payload, signature, p.cfg.WebhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return WebhookOutcome{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	out := WebhookOutcome{EventID: event.ID, Status: "ignored"}
	if event.Type != checkoutCompleted {
		return out, nil
	}

	var cs stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &cs); err != nil {
		return out, fmt.Errorf("%w: %v", ErrInvalidMetadata, err)
	}
	sel, err := selectionFromMetadata(cs.Metadata)
	if err != nil {
		return out, err
	}
	sel.CheckoutSessionID = cs.ID

	res, err := p.booker.Book(ctx, sel, metrics.SourceWebhook)
	var conflict *model.ConflictError
	if errors.As(err, &conflict) {
		p.l.Warnf(ctx, "service.payment.HandleWebhook: session %s paid but seats taken: %v", cs.ID, conflict.Seats)
		out.Status = "conflict"
		out.Seats = conflict.Seats
		return out, nil
	}
	if err != nil {
		return out, err
	}
	out.Status = "booked"
	out.TicketID = res.TicketID
	return out, nil
}

func selectionFromMetadata(md map[string]string) (model.Selection, error) {
	userID := md["userId"]
	raw := md["bookingInfo"]
	if userID == "" || raw == "" {
		return model.Selection{}, fmt.Errorf("%w: userId and bookingInfo are required", ErrInvalidMetadata)
	}
	var info BookingInfo
	if err := json.Unmarshal([]byte(raw), &info); err != nil {
		return model.Selection{}, fmt.Errorf("%w: %v", ErrInvalidMetadata, err)
	}
	if info.ShowtimeID == 0 || len(info.Seats) == 0 {
		return model.Selection{}, fmt.Errorf("%w: showtimeId and seats are required", ErrInvalidMetadata)
	}
	return model.Selection{ShowtimeID: info.ShowtimeID, UserID: userID, Seats: info.Seats}, nil
}
