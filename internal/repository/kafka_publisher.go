package repository

import (
	"context"

	"SignalSmith/internal/domain/models"
	domrepo "SignalSmith/internal/domain/repository"
	pkgkafka "SignalSmith/pkg/kafka"
)

// KafkaPublisher streams composed signals to a topic keyed by symbol.
type KafkaPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

func NewKafkaPublisher(producer *pkgkafka.Producer, topic string) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, topic: topic}
}

func (p *KafkaPublisher) Publish(ctx context.Context, s models.Signal) error {
	return p.producer.Publish(ctx, p.topic, []byte(s.Symbol), s)
}

func (p *KafkaPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

// NopPublisher is used when kafka is disabled.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, models.Signal) error { return nil }
func (NopPublisher) Close() error                                 { return nil }

var (
	_ domrepo.SignalPublisher = (*KafkaPublisher)(nil)
	_ domrepo.SignalPublisher = NopPublisher{}
)
