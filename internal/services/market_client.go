package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"coincoach/backend-go/internal/config"
)

type EndpointKind string

const (
	KindMarkets  EndpointKind = "markets"
	KindHistory  EndpointKind = "history"
	KindTrending EndpointKind = "trending"
	KindSimple   EndpointKind = "simple"
	KindDefault  EndpointKind = "default"
)

const lastGoodAnyKey = "market:lastgood:any"

var coinIDPattern = regexp.MustCompile(`^[a-z0-9-]+$`)

// SupportedCoins are the CoinGecko ids the app tracks by default.
var SupportedCoins = []string{
	"bitcoin",
	"ethereum",
	"solana",
	"cardano",
	"binancecoin",
	"ripple",
	"dogecoin",
	"polkadot",
	"avalanche-2",
	"chainlink",
}

// MarketQuery is one logical request against the market-data proxy.
type MarketQuery struct {
	Endpoint string
	Kind     EndpointKind
	CoinID   string
	IDs      []string
	Days     int
}

// FetchMeta tells the caller where the payload came from.
type FetchMeta struct {
	Source string // "cache", "fresh" or "stale"
}

type MarketClient struct {
	hc       *http.Client
	cache    Cache
	ttl      time.Duration
	staleTTL time.Duration
	baseURL  string
	apiKey   string
}

func NewMarketClient(cfg config.Config, cache Cache) *MarketClient {
	staleTTL := cfg.CacheTTLMarketHard
	if staleTTL < cfg.CacheTTLMarket {
		staleTTL = cfg.CacheTTLMarket
	}
	return &MarketClient{
		hc: &http.Client{
			Timeout: cfg.MarketTimeout,
		},
		cache:    cache,
		ttl:      cfg.CacheTTLMarket,
		staleTTL: staleTTL,
		baseURL:  strings.TrimRight(cfg.CoinGeckoBaseURL, "/"),
		apiKey:   cfg.CoinGeckoAPIKey,
	}
}

// ParseMarketQuery turns the proxy's query parameters into a MarketQuery.
// Unknown endpoints fall through to the default market list.
func ParseMarketQuery(endpoint, rawIDs, rawDays string, maxIDs int) (MarketQuery, error) {
	endpoint = strings.TrimSpace(endpoint)
	ids, err := parseCoinIDs(rawIDs, maxIDs)
	if err != nil {
		return MarketQuery{}, err
	}
	days := 30
	if rawDays != "" {
		d, err := strconv.Atoi(rawDays)
		if err != nil {
			return MarketQuery{}, fmt.Errorf("invalid days %q", rawDays)
		}
		days = clampInt(d, 1, 365)
	}

	q := MarketQuery{Endpoint: endpoint, IDs: ids, Days: days}
	switch {
	case endpoint == "markets" || endpoint == "assets":
		q.Kind = KindMarkets
	case strings.HasPrefix(endpoint, "history"):
		q.Kind = KindHistory
		if rest, ok := strings.CutPrefix(endpoint, "history/"); ok && rest != "" {
			q.CoinID = strings.ToLower(rest)
		} else if len(ids) > 0 {
			q.CoinID = ids[0]
		}
		if q.CoinID == "" || !coinIDPattern.MatchString(q.CoinID) {
			return MarketQuery{}, fmt.Errorf("history requires a valid coin id")
		}
	case endpoint == "trending":
		q.Kind = KindTrending
	case endpoint == "simple":
		q.Kind = KindSimple
		if len(ids) == 0 {
			return MarketQuery{}, fmt.Errorf("simple requires ids")
		}
	default:
		q.Kind = KindDefault
	}
	return q, nil
}

func parseCoinIDs(raw string, max int) ([]string, error) {
	out := []string{}
	if strings.TrimSpace(raw) == "" {
		return out, nil
	}
	seen := make(map[string]struct{})
	for _, p := range strings.Split(raw, ",") {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		if !coinIDPattern.MatchString(p) {
			return nil, fmt.Errorf("invalid coin id %q", p)
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
		if max > 0 && len(out) >= max {
			break
		}
	}
	return out, nil
}

// CacheKey identifies the query by endpoint, ids and days.
func (q MarketQuery) CacheKey() string {
	return fmt.Sprintf("market:v1:%s:%s:%d", q.Endpoint, strings.Join(q.IDs, ","), q.Days)
}

func (q MarketQuery) lastGoodKey() string {
	return fmt.Sprintf("market:lastgood:%s:%s:%d", q.Endpoint, strings.Join(q.IDs, ","), q.Days)
}

// UpstreamURL builds the single CoinGecko URL for the query.
func (c *MarketClient) UpstreamURL(q MarketQuery) string {
	v := url.Values{}
	v.Set("vs_currency", "usd")
	switch q.Kind {
	case KindMarkets:
		v.Set("ids", strings.Join(q.IDs, ","))
		v.Set("order", "market_cap_desc")
		v.Set("per_page", "100")
		v.Set("page", "1")
		v.Set("sparkline", "true")
		v.Set("price_change_percentage", "24h,7d")
		return c.baseURL + "/coins/markets?" + v.Encode()
	case KindHistory:
		v.Set("days", strconv.Itoa(q.Days))
		return c.baseURL + "/coins/" + url.PathEscape(q.CoinID) + "/market_chart?" + v.Encode()
	case KindTrending:
		return c.baseURL + "/search/trending"
	case KindSimple:
		s := url.Values{}
		s.Set("ids", strings.Join(q.IDs, ","))
		s.Set("vs_currencies", "usd")
		s.Set("include_24hr_change", "true")
		return c.baseURL + "/simple/price?" + s.Encode()
	default:
		v.Set("order", "market_cap_desc")
		v.Set("per_page", "20")
		v.Set("page", "1")
		v.Set("sparkline", "true")
		return c.baseURL + "/coins/markets?" + v.Encode()
	}
}

// Fetch serves q from the cache or CoinGecko. An upstream 429 is answered
// with the last good payload for the key, or for any key, when one exists.
func (c *MarketClient) Fetch(ctx context.Context, q MarketQuery) (json.RawMessage, FetchMeta, error) {
	key := q.CacheKey()
	if c.cache != nil {
		if b, ok := c.cache.Get(ctx, key); ok {
			log.Printf("market cache hit: %s", key)
			return json.RawMessage(b), FetchMeta{Source: "cache"}, nil
		}
	}

	upstream := c.UpstreamURL(q)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, upstream, nil)
	if err != nil {
		return nil, FetchMeta{}, err
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("x-cg-demo-api-key", c.apiKey)
	}

	res, err := c.hc.Do(req)
	if err != nil {
		return nil, FetchMeta{}, fmt.Errorf("coingecko request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusTooManyRequests {
		_, _ = io.Copy(io.Discard, io.LimitReader(res.Body, 4096))
		if b, ok := c.lastGood(ctx, q); ok {
			log.Printf("coingecko rate limited, serving stale payload for %s", key)
			return b, FetchMeta{Source: "stale"}, nil
		}
		return nil, FetchMeta{}, ErrRateLimited
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		log.Printf("coingecko error %d: %s", res.StatusCode, string(body))
		return nil, FetchMeta{}, &UpstreamError{Service: "coingecko", Status: res.StatusCode, Body: string(body)}
	}

	body, err := io.ReadAll(io.LimitReader(res.Body, 8<<20))
	if err != nil {
		return nil, FetchMeta{}, fmt.Errorf("coingecko read: %w", err)
	}
	if !json.Valid(body) {
		return nil, FetchMeta{}, fmt.Errorf("coingecko returned invalid json")
	}

	if c.cache != nil {
		_ = c.cache.Set(ctx, key, body, c.ttl)
		_ = c.cache.Set(ctx, q.lastGoodKey(), body, c.staleTTL)
		// kept until evicted by the entry bound
		_ = c.cache.Set(ctx, lastGoodAnyKey, body, 0)
	}
	return json.RawMessage(body), FetchMeta{Source: "fresh"}, nil
}

func (c *MarketClient) lastGood(ctx context.Context, q MarketQuery) (json.RawMessage, bool) {
	if c.cache == nil {
		return nil, false
	}
	if b, ok := c.cache.Get(ctx, q.lastGoodKey()); ok {
		return json.RawMessage(b), true
	}
	if b, ok := c.cache.Get(ctx, lastGoodAnyKey); ok {
		return json.RawMessage(b), true
	}
	return nil, false
}

func clampInt(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
