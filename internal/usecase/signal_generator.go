package usecase

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"SignalSmith/internal/domain/models"
	domrepo "SignalSmith/internal/domain/repository"
	domsvc "SignalSmith/internal/domain/service"
	"SignalSmith/internal/services/composer"
	"SignalSmith/internal/services/feeds"
	"SignalSmith/internal/services/synth"
	applogger "SignalSmith/pkg/logger"
	"SignalSmith/pkg/util"

	"github.com/google/uuid"
)

// Collaborators groups the external services the generator talks to.
type Collaborators struct {
	Prices    domsvc.PriceSource
	News      domsvc.NewsFetcher
	Reasoner  domsvc.Reasoner
	Journal   domrepo.SignalJournal
	Publisher domrepo.SignalPublisher
	Metrics   domrepo.Metrics
}

// GeneratorOption configures SignalGenerator.
type GeneratorOption func(*SignalGenerator)

// WithRequestTimeout bounds one full pipeline run.
func WithRequestTimeout(d time.Duration) GeneratorOption {
	return func(g *SignalGenerator) {
		if d > 0 {
			g.timeout = d
		}
	}
}

func WithNewsLimit(n int) GeneratorOption {
	return func(g *SignalGenerator) {
		if n > 0 {
			g.newsLimit = n
		}
	}
}

// WithHistoryLookback is the window used when a history query gives no from.
func WithHistoryLookback(d time.Duration) GeneratorOption {
	return func(g *SignalGenerator) {
		if d > 0 {
			g.lookback = d
		}
	}
}

func WithBroadcaster(b domsvc.Broadcaster) GeneratorOption {
	return func(g *SignalGenerator) { g.broadcaster = b }
}

func WithNotifier(n domsvc.Notifier) GeneratorOption {
	return func(g *SignalGenerator) { g.notifier = n }
}

// WithSeedSource overrides how seeds are picked when a request carries none.
func WithSeedSource(f func() int64) GeneratorOption {
	return func(g *SignalGenerator) { g.seed = f }
}

func WithNow(now func() time.Time) GeneratorOption {
	return func(g *SignalGenerator) { g.now = now }
}

// SignalGenerator runs price lookup, synthesis, news, reasoning and composition for one
// request and hands the result to the journal, the stream and the notifiers.
type SignalGenerator struct {
	synth    *synth.Synthesizer
	composer *composer.Composer
	deps     Collaborators
	log      *applogger.Logger

	broadcaster domsvc.Broadcaster
	notifier    domsvc.Notifier

	timeout   time.Duration
	newsLimit int
	lookback  time.Duration
	seed      func() int64
	now       func() time.Time

	notifyWG sync.WaitGroup
}

func NewSignalGenerator(s *synth.Synthesizer, c *composer.Composer, deps Collaborators, log *applogger.Logger, opts ...GeneratorOption) *SignalGenerator {
	seeds := rand.New(rand.NewSource(time.Now().UnixNano()))
	var seedMu sync.Mutex
	g := &SignalGenerator{
		synth:     s,
		composer:  c,
		deps:      deps,
		log:       log,
		timeout:   45 * time.Second,
		newsLimit: 5,
		lookback:  24 * time.Hour,
		now:       time.Now,
		seed: func() int64 {
			seedMu.Lock()
			defer seedMu.Unlock()
			return seeds.Int63()
		},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *SignalGenerator) pickSeed(seed *int64) int64 {
	if seed != nil {
		return *seed
	}
	return g.seed()
}

// Indicators synthesizes a bundle for a caller-supplied price.
func (g *SignalGenerator) Indicators(_ context.Context, req models.IndicatorsRequest) (models.IndicatorBundle, error) {
	b, err := g.synth.Generate(req.Price, g.pickSeed(req.Seed), req.Regime)
	if err != nil {
		g.deps.Metrics.RecordError("synthesize")
		return models.IndicatorBundle{}, err
	}
	g.deps.Metrics.RecordRegime(string(b.Regime))
	return b, nil
}

// Generate runs the full pipeline for one symbol.
// A news failure degrades to an empty headline list; market and reasoning failures abort.
func (g *SignalGenerator) Generate(ctx context.Context, req models.SignalRequest) (models.Signal, error) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	req.Symbol = feeds.NormalizeSymbol(req.Symbol)
	if req.Symbol == "" {
		return models.Signal{}, &models.InvalidInputError{Field: "symbol", Reason: "must not be blank"}
	}
	if req.RiskLevel == "" {
		req.RiskLevel = models.RiskMedium
	}

	log := g.log.With(applogger.String("symbol", req.Symbol))

	var (
		wg       sync.WaitGroup
		quote    models.Quote
		priceErr error
		news     []models.NewsItem
		newsErr  error
	)
	if req.Price > 0 {
		quote = models.Quote{Symbol: req.Symbol, Price: req.Price, Timestamp: g.now().UTC()}
	} else {
		wg.Add(1)
		go func() {
			defer wg.Done()
			quote, priceErr = g.deps.Prices.Price(ctx, req.Symbol)
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		news, newsErr = g.deps.News.Headlines(ctx, req.Symbol, g.newsLimit)
	}()
	wg.Wait()

	if priceErr != nil {
		g.deps.Metrics.RecordError("price_feed")
		return models.Signal{}, g.upstream("market data", priceErr)
	}
	if newsErr != nil {
		g.deps.Metrics.RecordError("news_feed")
		log.Warn("news fetch failed, reasoning without headlines", applogger.Error(newsErr))
		news = nil
	}
	if len(news) > g.newsLimit {
		news = news[:g.newsLimit]
	}
	g.deps.Metrics.RecordLastPrice(req.Symbol, quote.Price)

	bundle, err := g.synth.Generate(quote.Price, g.pickSeed(req.Seed), "")
	if err != nil {
		g.deps.Metrics.RecordError("synthesize")
		return models.Signal{}, err
	}
	g.deps.Metrics.RecordRegime(string(bundle.Regime))

	reasonStart := time.Now()
	proposal, err := g.deps.Reasoner.Reason(ctx, models.ReasoningRequest{
		Symbol:    req.Symbol,
		RiskLevel: req.RiskLevel,
		Bundle:    bundle,
		News:      news,
	})
	g.deps.Metrics.RecordLatency("reasoning", time.Since(reasonStart).Seconds())
	if err != nil {
		g.deps.Metrics.RecordError("reasoning")
		return models.Signal{}, g.upstream("reasoning service", err)
	}

	sig, err := g.composer.Compose(composer.Input{
		Symbol:    req.Symbol,
		Proposal:  proposal,
		Bundle:    bundle,
		RiskLevel: req.RiskLevel,
	})
	if err != nil {
		g.deps.Metrics.RecordError("compose")
		log.Warn("proposal rejected",
			applogger.String("reasoner", g.deps.Reasoner.Name()),
			applogger.String("direction", string(proposal.Direction)),
			applogger.Error(err),
		)
		return models.Signal{}, err
	}
	sig.ID = uuid.NewString()

	g.deliver(ctx, sig)
	g.deps.Metrics.RecordLatency("generate", time.Since(start).Seconds())
	log.Info("signal generated",
		applogger.String("id", sig.ID),
		applogger.String("direction", string(sig.Direction)),
		applogger.String("regime", string(sig.Regime)),
		applogger.Int64("seed", sig.Seed),
		applogger.Int("corrections", len(sig.Corrections)),
		applogger.Any("levels", sig.Levels),
		applogger.Duration("took", time.Since(start)),
	)
	return sig, nil
}

// Compose runs the composer alone for a caller that did its own reasoning.
// The result is returned as is; it is not journaled or streamed.
func (g *SignalGenerator) Compose(_ context.Context, req models.ComposeRequest) (models.Signal, error) {
	sig, err := g.composer.Compose(composer.Input{
		Symbol:          req.Symbol,
		Proposal:        req.Proposal(),
		Bundle:          req.Bundle,
		RiskLevel:       req.RiskLevel,
		Sentiment:       req.Sentiment,
		Interpretations: req.Interpretations,
	})
	if err != nil {
		g.deps.Metrics.RecordError("compose")
		return models.Signal{}, err
	}
	g.deps.Metrics.RecordCorrections(string(sig.Direction), len(sig.Corrections))
	return sig, nil
}

// History returns journaled signals for a symbol, newest first.
func (g *SignalGenerator) History(ctx context.Context, req models.HistoryRequest) ([]models.Signal, time.Time, time.Time, error) {
	from, to := util.ResolveWindow(req.From, req.To, g.now(), g.lookback)
	out, err := g.deps.Journal.Query(ctx, feeds.NormalizeSymbol(req.Symbol), from, to, req.Limit)
	if err != nil {
		g.deps.Metrics.RecordError("journal_query")
		return nil, from, to, err
	}
	return out, from, to, nil
}

func (g *SignalGenerator) deliver(ctx context.Context, sig models.Signal) {
	g.deps.Metrics.RecordSignal(string(sig.Direction), sig.Symbol)
	g.deps.Metrics.RecordCorrections(string(sig.Direction), len(sig.Corrections))

	if err := g.deps.Journal.Store(ctx, sig); err != nil {
		g.deps.Metrics.RecordError("journal_store")
		g.log.Error("journal store failed", applogger.String("id", sig.ID), applogger.Error(err))
	}
	if err := g.deps.Publisher.Publish(ctx, sig); err != nil {
		g.deps.Metrics.RecordError("publish")
		g.log.Error("signal publish failed", applogger.String("id", sig.ID), applogger.Error(err))
	}
	if g.broadcaster != nil {
		g.broadcaster.Broadcast(sig)
	}
	if g.notifier != nil {
		g.notifyWG.Add(1)
		go func() {
			defer g.notifyWG.Done()
			nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 15*time.Second)
			defer cancel()
			if err := g.notifier.Notify(nctx, sig); err != nil {
				g.deps.Metrics.RecordError("notify")
				g.log.Warn("signal notification failed", applogger.String("id", sig.ID), applogger.Error(err))
			}
		}()
	}
}

// Wait blocks until pending notifications finish or ctx is done.
func (g *SignalGenerator) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		g.notifyWG.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (g *SignalGenerator) upstream(service string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		g.log.Warn("request timed out", applogger.String("service", service), applogger.Duration("timeout", g.timeout))
	}
	return &models.UpstreamError{Service: service, Err: err}
}
