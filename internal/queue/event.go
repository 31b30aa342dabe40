// Package queue publishes and consumes ticket events over RabbitMQ or
// Kafka.
package queue

import (
	"context"
	"time"
)

const (
	// TicketIssuedQueue is both the RabbitMQ queue name and the default
	// Kafka topic.
	TicketIssuedQueue = "ticket.issued"
)

// TicketIssuedEvent is published after a booking transaction commits.  It
// carries enough for downstream consumers to log or notify without
// querying the primary database.
type TicketIssuedEvent struct {
	TicketID       int64     `json:"ticket_id"`
	Reference      string    `json:"booking_reference"`
	UserID         string    `json:"user_id"`
	ShowtimeID     int64     `json:"showtime_id"`
	ScreenID       int64     `json:"screen_id"`
	AuditoriumName string    `json:"auditorium_name"`
	ShowTitle      string    `json:"show_title"`
	StartsAt       time.Time `json:"starts_at"`
	BookingIDs     []int64   `json:"booking_ids"`
	SeatLabels     []string  `json:"seats"`
	TotalAmount    int       `json:"total_amount"`
	Source         string    `json:"source"`
	IssuedAt       time.Time `json:"issued_at"`
}

// Publisher delivers ticket events.  Publishing is best effort: callers
// log failures and never undo a committed booking because of them.
type Publisher interface {
	PublishTicketIssued(ctx context.Context, ev TicketIssuedEvent) error
	Close() error
}

// NopPublisher drops every event.  Used when EVENT_BROKER=none.
type NopPublisher struct{}

func (NopPublisher) PublishTicketIssued(context.Context, TicketIssuedEvent) error { return nil }
func (NopPublisher) Close() error { return nil }
