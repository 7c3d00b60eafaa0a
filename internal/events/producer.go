// Package events publishes queue lifecycle events to Kafka.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"

	"printqueue/internal/logger"
	"printqueue/internal/services"
)

type ProducerConfig struct {
	Brokers      []string
	RetryMax     int
	RequiredAcks int
}

func NewSyncProducer(cfg ProducerConfig) (sarama.SyncProducer, error) {
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

// Publisher forwards lifecycle events to one topic per event type. Events
// are buffered so a slow broker never holds up a queue operation; when the
// buffer is full the event is dropped and logged.
type Publisher struct {
	prod   sarama.SyncProducer
	prefix string
	l      logger.Logger
	events chan services.LifecycleEvent
}

func NewPublisher(prod sarama.SyncProducer, topicPrefix string, buffer int, l logger.Logger) *Publisher {
	if buffer <= 0 {
		buffer = 256
	}
	return &Publisher{
		prod:   prod,
		prefix: topicPrefix,
		l:      l,
		events: make(chan services.LifecycleEvent, buffer),
	}
}

func (p *Publisher) Topic(t services.EventType) string {
	if p.prefix == "" {
		return string(t)
	}
	return p.prefix + "." + string(t)
}

// QueueEvent implements services.EventSink.
func (p *Publisher) QueueEvent(ctx context.Context, ev services.LifecycleEvent) {
	select {
	case p.events <- ev:
	default:
		p.l.Warnf(ctx, "events.Publisher.QueueEvent: buffer full, dropping %s", ev.Type)
	}
}

// Run sends buffered events until ctx is done.
func (p *Publisher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-p.events:
			if err := p.Publish(ctx, ev); err != nil {
				p.l.Errorf(ctx, "events.Publisher.Run: %v", err)
			}
		}
	}
}

// Publish sends one event synchronously.
func (p *Publisher) Publish(ctx context.Context, ev services.LifecycleEvent) error {
	val, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", ev.Type, err)
	}

	// Partition by entry so the events of one job stay ordered.
	key := "queue"
	if ev.Entry != nil && ev.Entry.ID != "" {
		key = ev.Entry.ID
	}

	msg := &sarama.ProducerMessage{
		Topic: p.Topic(ev.Type),
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(val),
		Headers: []sarama.RecordHeader{
			{
				Key:   []byte("timestamp"),
				Value: []byte(ev.At.Format(time.RFC3339)),
			},
		},
	}

	if _, _, err := p.prod.SendMessage(msg); err != nil {
		return fmt.Errorf("send %s: %w", ev.Type, err)
	}
	return nil
}

func (p *Publisher) Close() error {
	return p.prod.Close()
}
