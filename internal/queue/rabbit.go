package queue

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/auditorium-booking/internal/logger"
)

// RabbitPublisher publishes to the durable ticket.issued queue over the
// default exchange.  It dials per publish so a broker restart never leaves
// a dead connection behind.
type RabbitPublisher struct {
	url   string
	queue string
	l     logger.Logger
}

func NewRabbitPublisher(url string, l logger.Logger) *RabbitPublisher {
	return &RabbitPublisher{url: url, queue: TicketIssuedQueue, l: l}
}

// PublishTicketIssued marshals ev and publishes it as a persistent message.
// Errors are logged and returned so the caller can choose to ignore them.
func (p *RabbitPublisher) PublishTicketIssued(ctx context.Context, ev TicketIssuedEvent) error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		p.l.Errorf(ctx, "queue.rabbit.PublishTicketIssued: dial: %v", err)
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		p.l.Errorf(ctx, "queue.rabbit.PublishTicketIssued: channel: %v", err)
		return err
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		p.l.Errorf(ctx, "queue.rabbit.PublishTicketIssued: queue declare: %v", err)
		return err
	}

	if ev.IssuedAt.IsZero() {
		ev.IssuedAt = time.Now().UTC()
	}
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		MessageId:    ev.Reference,
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", p.queue, false, false, pub); err != nil {
		p.l.Errorf(ctx, "queue.rabbit.PublishTicketIssued: publish: %v", err)
		return err
	}
	return nil
}

func (p *RabbitPublisher) Close() error { return nil }
