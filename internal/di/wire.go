//go:build wireinject
// +build wireinject

package di

import (
	"SignalSmith/pkg/config"
	"SignalSmith/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application with
// a cleanup that releases journal, publisher and cache connections.
func InitializeApp(cfg *config.Config) (*server.App, func(), error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure
		ProvideCache,
		ProvideJournal,
		ProvidePublisher,

		// External services
		ProvidePriceSource,
		ProvideNewsFetcher,
		ProvideReasoner,
		ProvideNotifier,

		// Signal pipeline
		ProvideSynthesizer,
		ProvideComposer,
		ProvideHub,
		ProvideSignalGenerator,

		// Transport
		ProvideSignalsHandler,
		ProvideRateLimiter,
		ProvideHTTPServer,
		ProvideKafkaConsumer,

		ProvideApp,
	)
	return nil, nil, nil
}
