package service

import (
	"context"

	"SignalSmith/internal/domain/models"
)

// PriceSource looks up the current spot price of a symbol.
type PriceSource interface {
	Price(ctx context.Context, symbol string) (models.Quote, error)
}

// NewsFetcher returns at most limit recent headlines for a symbol.
type NewsFetcher interface {
	Headlines(ctx context.Context, symbol string, limit int) ([]models.NewsItem, error)
}

// Reasoner turns an indicator bundle and headlines into a signal proposal.
type Reasoner interface {
	Reason(ctx context.Context, req models.ReasoningRequest) (models.Proposal, error)
	Name() string
}

// Notifier delivers a finished signal to subscribers outside the API.
type Notifier interface {
	Notify(ctx context.Context, s models.Signal) error
}

// Broadcaster pushes a finished signal to connected stream clients.
type Broadcaster interface {
	Broadcast(s models.Signal)
}
