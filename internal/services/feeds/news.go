package feeds

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"SignalSmith/internal/domain/models"
	domsvc "SignalSmith/internal/domain/service"
	"SignalSmith/pkg/cache"
	applogger "SignalSmith/pkg/logger"
	"SignalSmith/pkg/util"
)

const maxDescriptionRunes = 280

// NewsClient fetches recent headlines from a NewsAPI-compatible /everything endpoint.
// Without an API key it returns no headlines instead of failing.
type NewsClient struct {
	base     *HTTPServiceBase
	apiKey   string
	maxItems int
	cache    cache.Service
	ttl      time.Duration
	log      *applogger.Logger
}

func NewNewsClient(base *HTTPServiceBase, apiKey string, maxItems int, c cache.Service, ttl time.Duration, log *applogger.Logger) *NewsClient {
	return &NewsClient{base: base, apiKey: apiKey, maxItems: maxItems, cache: c, ttl: ttl, log: log}
}

type newsResponse struct {
	Status   string `json:"status"`
	Message  string `json:"message"`
	Articles []struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		URL         string `json:"url"`
		Source      struct {
			Name string `json:"name"`
		} `json:"source"`
		PublishedAt time.Time `json:"publishedAt"`
	} `json:"articles"`
}

// Headlines returns at most min(limit, max_items) items for symbol.
func (n *NewsClient) Headlines(ctx context.Context, symbol string, limit int) ([]models.NewsItem, error) {
	if limit <= 0 || limit > n.maxItems {
		limit = n.maxItems
	}
	if n.apiKey == "" {
		return []models.NewsItem{}, nil
	}

	id := NormalizeSymbol(symbol)
	key := cache.GenerateKeyWithParams("news", id, limit)
	items, hit, err := cache.GetOrLoad(ctx, n.cache, key, n.ttl, func(ctx context.Context) ([]models.NewsItem, error) {
		return n.fetch(ctx, id, limit)
	})
	if err != nil {
		return nil, err
	}
	n.log.Debug("news resolved",
		applogger.String("symbol", id),
		applogger.Int("items", len(items)),
		applogger.Bool("cache_hit", hit),
	)
	return items, nil
}

func (n *NewsClient) fetch(ctx context.Context, query string, limit int) ([]models.NewsItem, error) {
	var resp newsResponse
	err := n.base.GetJSON(ctx, "", map[string][]string{
		"q":        {query},
		"pageSize": {strconv.Itoa(limit)},
		"sortBy":   {"publishedAt"},
		"language": {"en"},
	}, map[string]string{"X-Api-Key": n.apiKey}, &resp)
	if err != nil {
		return nil, fmt.Errorf("fetch news %s: %w", query, err)
	}
	if resp.Status != "" && resp.Status != "ok" {
		return nil, fmt.Errorf("fetch news %s: %s", query, resp.Message)
	}

	items := make([]models.NewsItem, 0, limit)
	for _, a := range resp.Articles {
		if len(items) == limit {
			break
		}
		if a.Title == "" || a.URL == "" {
			continue
		}
		items = append(items, models.NewsItem{
			Title:       a.Title,
			Description: util.Truncate(a.Description, maxDescriptionRunes),
			URL:         a.URL,
			Source:      a.Source.Name,
			PublishedAt: a.PublishedAt,
		})
	}
	return items, nil
}

var _ domsvc.NewsFetcher = (*NewsClient)(nil)
