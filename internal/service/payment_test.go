package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"

	"github.com/iliyamo/auditorium-booking/internal/logger"
	"github.com/iliyamo/auditorium-booking/internal/metrics"
	"github.com/iliyamo/auditorium-booking/internal/model"
	"github.com/iliyamo/auditorium-booking/internal/queue"
)

const testWebhookSecret = "whsec_test"

type fakeGateway struct {
	params *stripe.CheckoutSessionParams
}

func (g *fakeGateway) NewSession(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	g.params = params
	return &stripe.CheckoutSession{ID: "cs_test_1", URL: "https://checkout.example/cs_test_1"}, nil
}

func newTestPayments(t *testing.T) (*PaymentService, *BookingService, *fakeGateway) {
	t.Helper()
	st := testShowtimes()
	booker := NewBookingService(st, newMemoryStore(st), nil, queue.NopPublisher{}, logger.NewNop())
	gw := &fakeGateway{}
	p := NewPaymentService(booker, st, gw, PaymentConfig{
		WebhookSecret: testWebhookSecret,
		SuccessURL:    "https://example.com/ok",
		CancelURL:     "https://example.com/cancel",
	}, logger.NewNop())
	return p, booker, gw
}

func signedEvent(t *testing.T, eventType string, metadata map[string]string) ([]byte, string) {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"id":          "evt_test_1",
		"object":      "event",
		"type":        eventType,
		"api_version": stripe.APIVersion,
		"data": map[string]any{
			"object": map[string]any{
				"id":       "cs_test_1",
				"object":   "checkout.session",
				"metadata": metadata,
			},
		},
	})
	require.NoError(t, err)
	sp := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   body,
		Secret:    testWebhookSecret,
		Timestamp: time.Now(),
	})
	return sp.Payload, sp.Header
}

func bookingMetadata(t *testing.T, userID string, seats ...model.SeatPosition) map[string]string {
	t.Helper()
	info, err := json.Marshal(BookingInfo{ShowtimeID: 42, ScreenID: 7, Seats: seats})
	require.NoError(t, err)
	return map[string]string{"userId": userID, "bookingInfo": string(info)}
}

func TestCreateCheckout(t *testing.T) {
	p, _, gw := newTestPayments(t)

	cs, err := p.CreateCheckout(context.Background(), model.Selection{
		ShowtimeID: 42, UserID: "u1", Seats: []model.SeatPosition{seat(1, 1), seat(1, 2)},
	})
	require.NoError(t, err)
	assert.Equal(t, "cs_test_1", cs.ID)

	require.NotNil(t, gw.params)
	assert.Equal(t, "u1", gw.params.Metadata["userId"])
	require.Len(t, gw.params.LineItems, 1)
	assert.Equal(t, int64(25000), *gw.params.LineItems[0].PriceData.UnitAmount)
	assert.Equal(t, int64(2), *gw.params.LineItems[0].Quantity)

	sel, err := selectionFromMetadata(gw.params.Metadata)
	require.NoError(t, err)
	assert.Equal(t, []model.SeatPosition{seat(1, 1), seat(1, 2)}, sel.Seats)
}

func TestCreateCheckoutRejectsTakenSeats(t *testing.T) {
	p, booker, gw := newTestPayments(t)
	ctx := context.Background()

	_, err := booker.Book(ctx, model.Selection{ShowtimeID: 42, UserID: "u2", Seats: []model.SeatPosition{seat(1, 2)}}, metrics.SourceAPI)
	require.NoError(t, err)

	_, err = p.CreateCheckout(ctx, model.Selection{ShowtimeID: 42, UserID: "u1", Seats: []model.SeatPosition{seat(1, 1), seat(1, 2)}})
	var conflict *model.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, []model.SeatPosition{seat(1, 2)}, conflict.Seats)
	assert.Nil(t, gw.params)
}

func TestCreateCheckoutWithoutGateway(t *testing.T) {
	st := testShowtimes()
	booker := NewBookingService(st, newMemoryStore(st), nil, nil, logger.NewNop())
	p := NewPaymentService(booker, st, nil, PaymentConfig{}, logger.NewNop())

	_, err := p.CreateCheckout(context.Background(), model.Selection{ShowtimeID: 42, UserID: "u1", Seats: []model.SeatPosition{seat(1, 1)}})
	assert.ErrorIs(t, err, ErrPaymentsDisabled)
}

func TestWebhookBooksSeats(t *testing.T) {
	p, booker, _ := newTestPayments(t)
	ctx := context.Background()

	payload, sig := signedEvent(t, checkoutCompleted, bookingMetadata(t, "u1", seat(2, 3)))
	out, err := p.HandleWebhook(ctx, payload, sig)
	require.NoError(t, err)
	assert.Equal(t, "booked", out.Status)
	assert.NotZero(t, out.TicketID)

	avail, err := booker.Verify(ctx, model.Selection{ShowtimeID: 42, UserID: "u9", Seats: []model.SeatPosition{seat(2, 3)}})
	require.NoError(t, err)
	assert.False(t, avail.Available)
}

func TestWebhookRedeliveryReturnsSameTicket(t *testing.T) {
	st := testShowtimes()
	store := newMemoryStore(st)
	pub := &mockPublisher{}
	pub.On("PublishTicketIssued", mock.Anything, mock.Anything).Return(nil).Once()
	booker := NewBookingService(st, store, nil, pub, logger.NewNop())
	p := NewPaymentService(booker, st, &fakeGateway{}, PaymentConfig{WebhookSecret: testWebhookSecret}, logger.NewNop())
	ctx := context.Background()

	payload, sig := signedEvent(t, checkoutCompleted, bookingMetadata(t, "u1", seat(2, 3)))
	first, err := p.HandleWebhook(ctx, payload, sig)
	require.NoError(t, err)
	require.Equal(t, "booked", first.Status)

	payload, sig = signedEvent(t, checkoutCompleted, bookingMetadata(t, "u1", seat(2, 3)))
	second, err := p.HandleWebhook(ctx, payload, sig)
	require.NoError(t, err)
	assert.Equal(t, "booked", second.Status)
	assert.Equal(t, first.TicketID, second.TicketID)
	assert.Empty(t, second.Seats)

	pub.AssertExpectations(t)
	assert.Equal(t, int64(1), store.nextTID)
}

func TestWebhookConflictIsAcknowledged(t *testing.T) {
	p, booker, _ := newTestPayments(t)
	ctx := context.Background()

	_, err := booker.Book(ctx, model.Selection{ShowtimeID: 42, UserID: "u2", Seats: []model.SeatPosition{seat(2, 3)}}, metrics.SourceAPI)
	require.NoError(t, err)

	payload, sig := signedEvent(t, checkoutCompleted, bookingMetadata(t, "u1", seat(2, 3), seat(2, 4)))
	out, err := p.HandleWebhook(ctx, payload, sig)
	require.NoError(t, err)
	assert.Equal(t, "conflict", out.Status)
	assert.Equal(t, []model.SeatPosition{seat(2, 3)}, out.Seats)
}

func TestWebhookFailures(t *testing.T) {
	p, _, _ := newTestPayments(t)
	ctx := context.Background()

	payload, _ := signedEvent(t, checkoutCompleted, bookingMetadata(t, "u1", seat(1, 1)))
	_, err := p.HandleWebhook(ctx, payload, "t=1,v1=deadbeef")
	assert.ErrorIs(t, err, ErrInvalidSignature)

	payload, sig := signedEvent(t, checkoutCompleted, map[string]string{"userId": "u1"})
	_, err = p.HandleWebhook(ctx, payload, sig)
	assert.ErrorIs(t, err, ErrInvalidMetadata)

	payload, sig = signedEvent(t, "payment_intent.created", nil)
	out, err := p.HandleWebhook(ctx, payload, sig)
	require.NoError(t, err)
	assert.Equal(t, "ignored", out.Status)
}
