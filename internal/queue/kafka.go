package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/IBM/sarama"

	"github.com/iliyamo/auditorium-booking/internal/logger"
)

type KafkaConfig struct {
	Brokers      []string
	Topic        string
	RetryMax     int
	RequiredAcks int
}

// NewSyncProducer dials the brokers with delivery confirmations enabled.
func NewSyncProducer(cfg KafkaConfig) (sarama.SyncProducer, error) {
	saramaCfg := sarama.NewConfig()
	saramaCfg.Producer.RequiredAcks = sarama.RequiredAcks(cfg.RequiredAcks)
	saramaCfg.Producer.Retry.Max = cfg.RetryMax
	saramaCfg.Producer.Return.Successes = true

	prod, err := sarama.NewSyncProducer(cfg.Brokers, saramaCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}
	return prod, nil
}

// KafkaPublisher writes ticket events to a topic, keyed by showtime so
// events of one showtime stay ordered.
type KafkaPublisher struct {
	prod  sarama.SyncProducer
	topic string
	l     logger.Logger
}

func NewKafkaPublisher(prod sarama.SyncProducer, topic string, l logger.Logger) *KafkaPublisher {
	if topic == "" {
		topic = TicketIssuedQueue
	}
	return &KafkaPublisher{prod: prod, topic: topic, l: l}
}

func (p *KafkaPublisher) PublishTicketIssued(ctx context.Context, ev TicketIssuedEvent) error {
	if ev.IssuedAt.IsZero() {
		ev.IssuedAt = time.Now().UTC()
	}
	val, err := json.Marshal(ev)
	if err != nil {
		p.l.Errorf(ctx, "queue.kafka.PublishTicketIssued: %v", err)
		return err
	}

	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(strconv.FormatInt(ev.ShowtimeID, 10)),
		Value: sarama.ByteEncoder(val),
		Headers: []sarama.RecordHeader{
			{
				Key:   []byte("timestamp"),
				Value: []byte(ev.IssuedAt.Format(time.RFC3339)),
			},
		},
	}

	if _, _, err = p.prod.SendMessage(msg); err != nil {
		p.l.Errorf(ctx, "queue.kafka.PublishTicketIssued: send: %v", err)
		return err
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.prod.Close()
}
