package repository

import (
	"context"
	"time"

	"SignalSmith/internal/domain/models"
)

// SignalJournal persists composed signals for later inspection.
type SignalJournal interface {
	Init(ctx context.Context) error // ensure tables
	Store(ctx context.Context, s models.Signal) error
	Query(ctx context.Context, symbol string, from, to time.Time, limit int) ([]models.Signal, error)
	Health(ctx context.Context) error
	Close() error
}

// SignalPublisher streams composed signals to downstream consumers.
type SignalPublisher interface {
	Publish(ctx context.Context, s models.Signal) error
	Close() error
}

type Metrics interface {
	RecordSignal(direction, symbol string)
	RecordCorrections(direction string, n int)
	RecordRegime(regime string)
	RecordError(kind string)
	RecordLastPrice(symbol string, price float64)
	RecordLatency(op string, seconds float64)
}
