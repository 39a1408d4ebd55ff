package di

import (
	"context"
	"fmt"
	"time"

	domrepo "SignalSmith/internal/domain/repository"
	domsvc "SignalSmith/internal/domain/service"
	"SignalSmith/internal/handler/api"
	"SignalSmith/internal/handler/ws"
	internalrepo "SignalSmith/internal/repository"
	apimetrics "SignalSmith/internal/service/metrics"
	"SignalSmith/internal/service/ratelimit"
	"SignalSmith/internal/services/composer"
	"SignalSmith/internal/services/feeds"
	"SignalSmith/internal/services/notify"
	"SignalSmith/internal/services/reasoning"
	"SignalSmith/internal/services/synth"
	"SignalSmith/internal/usecase"
	"SignalSmith/pkg/cache"
	pkgch "SignalSmith/pkg/clickhouse"
	"SignalSmith/pkg/config"
	xhttp "SignalSmith/pkg/http"
	"SignalSmith/pkg/http/middleware"
	pkgkafka "SignalSmith/pkg/kafka"
	applogger "SignalSmith/pkg/logger"
	"SignalSmith/pkg/metrics"
	"SignalSmith/pkg/server"

	"github.com/prometheus/client_golang/prometheus"
)

const initTimeout = 10 * time.Second

// ProvideLogger builds the application logger from the log section.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Output:  cfg.Log.Output,
		Service: "signalsmith",
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}

// ProvideCache returns an in-memory cache, or a memory-over-redis cache when redis is enabled.
func ProvideCache(cfg *config.Config, log *applogger.Logger) (cache.Service, func(), error) {
	memOpts := []cache.MemoryOption{
		cache.WithMemoryDefaultTTL(cfg.Cache.MemoryTTL),
		cache.WithMemoryMaxSize(cfg.Cache.MaxEntries),
		cache.WithMemoryCleanup(cfg.Cache.CleanupInterval),
	}
	if !cfg.Cache.Redis.Enabled {
		c := cache.NewMemoryCache(memOpts...)
		return c, func() { _ = c.Close() }, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), initTimeout)
	defer cancel()
	rcfg := cfg.Cache.Redis
	rc, err := cache.NewRedisCache(ctx,
		cache.WithRedisAddr(rcfg.Addr),
		cache.WithRedisPassword(rcfg.Password),
		cache.WithRedisDB(rcfg.DB),
		cache.WithRedisPool(rcfg.PoolSize, rcfg.MinIdleConns, rcfg.PoolTimeout),
		cache.WithRedisPrefix(rcfg.Prefix),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("redis cache: %w", err)
	}
	log.Info("redis cache connected", applogger.String("addr", cfg.Cache.Redis.Addr))
	c := cache.NewLayeredCache(rc, cfg.Cache.MemoryTTL, memOpts...)
	return c, func() {
		if err := c.Close(); err != nil {
			log.Warn("cache close error", applogger.Error(err))
		}
	}, nil
}

// ProvideMetrics creates the Prometheus recorder on the default registry and
// registers the API collectors next to it.
func ProvideMetrics() domrepo.Metrics {
	apimetrics.Register()
	return metrics.New(prometheus.DefaultRegisterer)
}

// ProvidePriceSource creates the market data client.
func ProvidePriceSource(cfg *config.Config, c cache.Service, log *applogger.Logger) domsvc.PriceSource {
	base := feeds.NewHTTPServiceBase(cfg.Market.BaseURL, cfg.Market.Timeout,
		feeds.WithRateLimit(cfg.Market.RPS, 1),
	)
	return feeds.NewPriceClient(base, cfg.Market.Currency, c, cfg.Market.CacheTTL,
		log.With(applogger.String("component", "price_feed")))
}

// ProvideNewsFetcher creates the headlines client.
func ProvideNewsFetcher(cfg *config.Config, c cache.Service, log *applogger.Logger) domsvc.NewsFetcher {
	base := feeds.NewHTTPServiceBase(cfg.News.BaseURL, cfg.News.Timeout)
	return feeds.NewNewsClient(base, cfg.News.APIKey, cfg.News.MaxItems, c, cfg.News.CacheTTL,
		log.With(applogger.String("component", "news_feed")))
}

// ProvideReasoner returns the OpenAI-compatible reasoner, or a HOLD-only fallback without an API key.
func ProvideReasoner(cfg *config.Config, log *applogger.Logger) domsvc.Reasoner {
	rl := log.With(applogger.String("component", "reasoning"))
	if cfg.Reasoning.APIKey == "" {
		rl.Warn("reasoning api key not set, every signal will be HOLD")
		return reasoning.NewNoopReasoner(rl)
	}
	rc := reasoning.Config{
		APIKey:      cfg.Reasoning.APIKey,
		BaseURL:     cfg.Reasoning.BaseURL,
		Model:       cfg.Reasoning.Model,
		Temperature: cfg.Reasoning.Temperature,
		MaxTokens:   cfg.Reasoning.MaxTokens,
		Timeout:     cfg.Reasoning.Timeout,
		MaxElapsed:  cfg.Reasoning.MaxElapsed,
		RPS:         cfg.Reasoning.RPS,
	}
	return reasoning.NewOpenAIReasoner(reasoning.NewOpenAIClient(rc), rc, rl)
}

// ProvideJournal opens the configured signal journal and ensures its schema.
func ProvideJournal(cfg *config.Config, log *applogger.Logger) (domrepo.SignalJournal, func(), error) {
	jl := log.With(applogger.String("component", "journal"), applogger.String("backend", cfg.Journal.Backend))

	var j domrepo.SignalJournal
	switch cfg.Journal.Backend {
	case "none":
		return internalrepo.NopJournal{}, func() {}, nil
	case "memory":
		return internalrepo.NewMemoryJournal(cfg.Journal.Capacity), func() {}, nil
	case "clickhouse":
		ctx, cancel := context.WithTimeout(context.Background(), initTimeout)
		defer cancel()
		client, err := pkgch.NewClient(ctx,
			pkgch.WithHost(cfg.ClickHouse.Host),
			pkgch.WithPort(cfg.ClickHouse.Port),
			pkgch.WithDatabase(cfg.ClickHouse.Database),
			pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
			pkgch.WithMaxConnections(10, 5),
			pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
			pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, true),
			pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
			pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecTime),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("clickhouse client: %w", err)
		}
		j = &clickhouseJournal{SQLJournal: internalrepo.NewSQLJournal(client.DB(), internalrepo.DialectClickHouse, cfg.Journal.Table, jl), client: client}
	case "postgres":
		pj, err := internalrepo.OpenPostgresJournal(cfg.Postgres.DSN, cfg.Journal.Table, cfg.Postgres.MaxOpenConns, jl)
		if err != nil {
			return nil, nil, err
		}
		j = pj
	default:
		return nil, nil, fmt.Errorf("unknown journal backend %q", cfg.Journal.Backend)
	}

	ctx, cancel := context.WithTimeout(context.Background(), initTimeout)
	defer cancel()
	if err := j.Init(ctx); err != nil {
		_ = j.Close()
		return nil, nil, fmt.Errorf("journal schema: %w", err)
	}
	jl.Info("journal ready", applogger.String("table", cfg.Journal.Table))
	return j, func() {
		if err := j.Close(); err != nil {
			jl.Warn("journal close error", applogger.Error(err))
		}
	}, nil
}

// clickhouseJournal closes the client it was opened on.
type clickhouseJournal struct {
	*internalrepo.SQLJournal
	client *pkgch.Client
}

func (j *clickhouseJournal) Close() error {
	return j.client.Close()
}

// ProvidePublisher returns the kafka signal stream, or a no-op when kafka is disabled.
func ProvidePublisher(cfg *config.Config, log *applogger.Logger) (domrepo.SignalPublisher, func(), error) {
	if !cfg.Kafka.Enabled {
		return internalrepo.NopPublisher{}, func() {}, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatching(cfg.Kafka.Producer.BatchSize, cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, 0),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
		pkgkafka.WithProducerRegisterer(prometheus.DefaultRegisterer),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("kafka producer: %w", err)
	}
	pub := internalrepo.NewKafkaPublisher(producer, cfg.Kafka.SignalsTopic)
	return pub, func() {
		if err := pub.Close(); err != nil {
			log.Warn("kafka producer close error", applogger.Error(err))
		}
	}, nil
}

// ProvideNotifier returns the telegram notifier, or nil when telegram is disabled.
func ProvideNotifier(cfg *config.Config, log *applogger.Logger) (domsvc.Notifier, error) {
	tg := cfg.Notify.Telegram
	if !tg.Enabled {
		return nil, nil
	}
	bot, err := notify.NewBot(tg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("telegram: %w", err)
	}
	return notify.NewTelegramNotifier(bot, tg.ChatIDs, log.With(applogger.String("component", "telegram"))), nil
}

// ProvideHub creates the websocket signal feed.
func ProvideHub(cfg *config.Config, log *applogger.Logger) *ws.Hub {
	return ws.NewHub(log, cfg.Server.AllowOrigins)
}

// ProvideSynthesizer creates the indicator synthesizer.
func ProvideSynthesizer(cfg *config.Config) *synth.Synthesizer {
	return synth.New(synth.WithMomentumCorrelation(cfg.Synth.CorrelateMomentum))
}

// ProvideComposer creates the signal composer.
func ProvideComposer(cfg *config.Config, log *applogger.Logger) *composer.Composer {
	hw := cfg.Signals.HalfWidth
	return composer.New(log.With(applogger.String("component", "composer")),
		composer.WithEpsilon(cfg.Signals.EpsilonFraction),
		composer.WithHalfWidths(hw.Low, hw.Medium, hw.High),
	)
}

// ProvideSignalGenerator creates the signal pipeline use case.
func ProvideSignalGenerator(
	cfg *config.Config,
	log *applogger.Logger,
	s *synth.Synthesizer,
	c *composer.Composer,
	prices domsvc.PriceSource,
	news domsvc.NewsFetcher,
	reasoner domsvc.Reasoner,
	journal domrepo.SignalJournal,
	publisher domrepo.SignalPublisher,
	m domrepo.Metrics,
	notifier domsvc.Notifier,
	hub *ws.Hub,
) *usecase.SignalGenerator {
	opts := []usecase.GeneratorOption{
		usecase.WithRequestTimeout(cfg.Signals.RequestTimeout),
		usecase.WithNewsLimit(cfg.News.MaxItems),
		usecase.WithHistoryLookback(cfg.Signals.HistoryLookback),
		usecase.WithBroadcaster(hub),
	}
	if notifier != nil {
		opts = append(opts, usecase.WithNotifier(notifier))
	}
	log.Info("signal pipeline ready", applogger.String("reasoner", reasoner.Name()))
	return usecase.NewSignalGenerator(s, c, usecase.Collaborators{
		Prices:    prices,
		News:      news,
		Reasoner:  reasoner,
		Journal:   journal,
		Publisher: publisher,
		Metrics:   m,
	}, log.With(applogger.String("component", "signal_generator")), opts...)
}

// ProvideSignalsHandler creates the REST handler.
func ProvideSignalsHandler(log *applogger.Logger, gen *usecase.SignalGenerator) *api.SignalsEchoHandler {
	return api.NewSignalsEchoHandler(log, gen)
}

// ProvideRateLimiter returns the per-client limiter, or nil when rate limiting is disabled.
func ProvideRateLimiter(cfg *config.Config) middleware.Allower {
	if !cfg.RateLimit.Enabled {
		return nil
	}
	return ratelimit.New(cfg.RateLimit.RPS, cfg.RateLimit.Burst, cfg.RateLimit.IdleTTL)
}

// ProvideHTTPServer assembles the echo server with every route handler.
func ProvideHTTPServer(
	cfg *config.Config,
	log *applogger.Logger,
	signals *api.SignalsEchoHandler,
	hub *ws.Hub,
	limiter middleware.Allower,
) *xhttp.Server {
	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}
	return xhttp.NewServer(log, []xhttp.Handler{signals, hub},
		xhttp.WithHost(cfg.Server.Host),
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithSlowThreshold(cfg.Server.SlowThreshold),
		xhttp.WithCORS(true, cfg.Server.AllowOrigins...),
		xhttp.WithMetricsPath(metricsPath),
		xhttp.WithRateLimiter(limiter),
	)
}

// ProvideKafkaConsumer creates the signal request consumer, or nil when it is disabled.
func ProvideKafkaConsumer(
	cfg *config.Config,
	log *applogger.Logger,
	gen *usecase.SignalGenerator,
	m domrepo.Metrics,
) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled || !cfg.Kafka.Consumer.Enabled {
		return nil, nil
	}
	cc := cfg.Kafka.Consumer
	consumer, err := pkgkafka.NewConsumer(log,
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cc.GroupID),
		pkgkafka.WithConsumerWorkers(cc.Workers),
		pkgkafka.WithConsumerBufferSize(cc.BufferSize),
		pkgkafka.WithConsumerRetry(cc.RetryMax, cc.BackoffMin, cc.BackoffMax),
		pkgkafka.WithConsumerDLQ(cc.DLQTopic),
		pkgkafka.WithConsumerFetch(cc.MinBytes, cc.MaxBytes),
		pkgkafka.WithConsumerRegisterer(prometheus.DefaultRegisterer),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.RegisterHandler(usecase.NewSignalRequestsHandler(cfg.Kafka.RequestsTopic, gen, m, log))
	return consumer, nil
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	log *applogger.Logger,
	srv *xhttp.Server,
	consumer *pkgkafka.Consumer,
	gen *usecase.SignalGenerator,
	hub *ws.Hub,
) *server.App {
	return server.New(cfg, log, srv, consumer, gen, hub)
}
