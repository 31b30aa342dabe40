package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/auditorium-booking/internal/logger"
)

// Consumer reads ticket.issued and writes one audit log line per event.
type Consumer struct {
	url   string
	queue string
	l     logger.Logger
}

func NewConsumer(url string, l logger.Logger) *Consumer {
	return &Consumer{url: url, queue: TicketIssuedQueue, l: l.With("component", "ticket-consumer")}
}

// Run connects to RabbitMQ and consumes until ctx is cancelled.  Dial
// failures back off exponentially up to 30s; a closed delivery channel
// triggers a reconnect.  It returns nil on cancellation.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(c.url)
		if err != nil {
			c.l.Warnf(ctx, "dial broker failed: %v; retrying in %s", err, backoff)
			if !sleep(ctx, backoff) {
				return nil
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consumeLoop(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return nil
		}
		c.l.Warnf(ctx, "consume loop ended: %v; reconnecting", err)
		if !sleep(ctx, 2*time.Second) {
			return nil
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (c *Consumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		c.l.Warnf(ctx, "set QoS failed: %v", err)
	}
	if _, err := ch.QueueDeclare(c.queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.ConsumeWithContext(ctx, c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := c.Handle(ctx, d.Body); err != nil {
				c.l.Errorf(ctx, "handle message failed: %v", err)
				_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
				continue
			}
			_ = d.Ack(false)
		}
	}
}

// Handle decodes one event body and logs it.
func (c *Consumer) Handle(ctx context.Context, body []byte) error {
	var ev TicketIssuedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.TicketID == 0 || ev.Reference == "" {
		return errors.New("event missing ticket id or reference")
	}
	c.l.Infof(ctx, "ticket issued | ref=%s | ticket_id=%d | user_id=%s | showtime_id=%d | auditorium=%q | show=%q | total=%d | seats=[%s] | source=%s",
		ev.Reference, ev.TicketID, ev.UserID, ev.ShowtimeID, ev.AuditoriumName, ev.ShowTitle, ev.TotalAmount,
		strings.Join(ev.SeatLabels, ","), ev.Source)
	return nil
}
