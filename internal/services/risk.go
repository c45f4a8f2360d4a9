package services

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	"coincoach/backend-go/internal/models"
)

type marketCoin struct {
	ID                 string   `json:"id"`
	Symbol             string   `json:"symbol"`
	Name               string   `json:"name"`
	MarketCap          float64  `json:"market_cap"`
	PriceChange24h     *float64 `json:"price_change_percentage_24h"`
	PriceChange7dInCur *float64 `json:"price_change_percentage_7d_in_currency"`
}

// RiskScore rates volatility and size on a 0-10 scale: up to 5 points from
// the 24h move, up to 3 from the 7d move, and 1-2 points for small caps.
func RiskScore(change24h, change7d, marketCap float64) float64 {
	risk := math.Min(math.Abs(change24h)/5, 5)
	risk += math.Min(math.Abs(change7d)/10, 3)
	if marketCap > 0 {
		if marketCap < 1_000_000_000 {
			risk += 2
		} else if marketCap < 10_000_000_000 {
			risk++
		}
	}
	return math.Min(math.Round(risk*10)/10, 10)
}

func RiskLevel(score float64) string {
	switch {
	case score <= 2.5:
		return "low"
	case score <= 5:
		return "medium"
	case score <= 7.5:
		return "high"
	default:
		return "extreme"
	}
}

// CoinRisks fetches market data for ids through the proxy and scores each coin.
func (c *MarketClient) CoinRisks(ctx context.Context, ids []string) ([]models.CoinRisk, FetchMeta, error) {
	q := MarketQuery{Endpoint: "markets", Kind: KindMarkets, IDs: ids, Days: 30}
	raw, meta, err := c.Fetch(ctx, q)
	if err != nil {
		return nil, meta, err
	}
	var coins []marketCoin
	if err := json.Unmarshal(raw, &coins); err != nil {
		return nil, meta, fmt.Errorf("decode markets: %w", err)
	}
	out := make([]models.CoinRisk, 0, len(coins))
	for _, coin := range coins {
		score := RiskScore(deref(coin.PriceChange24h), deref(coin.PriceChange7dInCur), coin.MarketCap)
		out = append(out, models.CoinRisk{
			ID:        coin.ID,
			Symbol:    coin.Symbol,
			Name:      coin.Name,
			RiskScore: score,
			RiskLevel: RiskLevel(score),
		})
	}
	return out, meta, nil
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
