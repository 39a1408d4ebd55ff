package feeds

import (
	"context"
	"fmt"
	"strings"
	"time"

	"SignalSmith/internal/domain/models"
	domsvc "SignalSmith/internal/domain/service"
	"SignalSmith/pkg/cache"
	applogger "SignalSmith/pkg/logger"
)

// tickerAliases maps common tickers to the market API's coin ids.
var tickerAliases = map[string]string{
	"btc":  "bitcoin",
	"eth":  "ethereum",
	"sol":  "solana",
	"bnb":  "binancecoin",
	"xrp":  "ripple",
	"ada":  "cardano",
	"doge": "dogecoin",
}

// NormalizeSymbol lowercases a symbol and resolves well-known tickers to coin ids.
func NormalizeSymbol(symbol string) string {
	s := strings.ToLower(strings.TrimSpace(symbol))
	if id, ok := tickerAliases[s]; ok {
		return id
	}
	return s
}

// PriceClient fetches spot prices from a CoinGecko-compatible /simple/price endpoint.
type PriceClient struct {
	base     *HTTPServiceBase
	currency string
	cache    cache.Service
	ttl      time.Duration
	log      *applogger.Logger
	now      func() time.Time
}

func NewPriceClient(base *HTTPServiceBase, currency string, c cache.Service, ttl time.Duration, log *applogger.Logger) *PriceClient {
	if currency == "" {
		currency = "usd"
	}
	return &PriceClient{base: base, currency: strings.ToLower(currency), cache: c, ttl: ttl, log: log, now: time.Now}
}

// Price returns the current quote for symbol, served from cache when fresh.
func (p *PriceClient) Price(ctx context.Context, symbol string) (models.Quote, error) {
	id := NormalizeSymbol(symbol)
	if id == "" {
		return models.Quote{}, &models.InvalidInputError{Field: "symbol", Reason: "is required"}
	}

	key := cache.GenerateKeyWithParams("price", p.currency, id)
	q, hit, err := cache.GetOrLoad(ctx, p.cache, key, p.ttl, func(ctx context.Context) (models.Quote, error) {
		return p.fetch(ctx, id)
	})
	if err != nil {
		return models.Quote{}, err
	}
	p.log.Debug("price resolved",
		applogger.String("symbol", id),
		applogger.Float64("price", q.Price),
		applogger.Bool("cache_hit", hit),
	)
	return q, nil
}

func (p *PriceClient) fetch(ctx context.Context, id string) (models.Quote, error) {
	var resp map[string]map[string]float64
	err := p.base.GetJSON(ctx, "/simple/price", map[string][]string{
		"ids":           {id},
		"vs_currencies": {p.currency},
	}, nil, &resp)
	if err != nil {
		return models.Quote{}, fmt.Errorf("fetch price %s: %w", id, err)
	}
	price, ok := resp[id][p.currency]
	if !ok || price <= 0 {
		return models.Quote{}, fmt.Errorf("fetch price %s: no %s quote in response", id, p.currency)
	}
	return models.Quote{Symbol: id, Price: price, Timestamp: p.now().UTC()}, nil
}

var _ domsvc.PriceSource = (*PriceClient)(nil)
