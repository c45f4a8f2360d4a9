package services

import (
	"context"
	"fmt"
	"log"
	"strings"

	"coincoach/backend-go/internal/models"
)

const (
	PatternSourceAI        = "ai"
	PatternSourceHeuristic = "heuristic"
	PatternSourceNone      = "none"

	minTradesForAnalysis = 3
	maxPatterns          = 4
)

var patternGenerationConfig = GenerationConfig{
	Temperature:     0.7,
	MaxOutputTokens: 500,
}

type PatternService struct {
	ai TextGenerator
}

func NewPatternService(ai TextGenerator) *PatternService {
	return &PatternService{ai: ai}
}

// TradeStats summarizes a simulator session for the prompt.
type TradeStats struct {
	Buys         int
	Sells        int
	AvgBuyPrice  float64
	AvgSellPrice float64
	TrendPct     float64
}

func ComputeTradeStats(req models.AnalysisRequest) TradeStats {
	var st TradeStats
	var buySum, sellSum float64
	for _, t := range req.Trades {
		switch t.Type {
		case models.TradeBuy:
			st.Buys++
			buySum += t.Price
		case models.TradeSell:
			st.Sells++
			sellSum += t.Price
		}
	}
	if st.Buys > 0 {
		st.AvgBuyPrice = buySum / float64(st.Buys)
	}
	if st.Sells > 0 {
		st.AvgSellPrice = sellSum / float64(st.Sells)
	}

	recent := req.PriceHistory
	if len(recent) > 20 {
		recent = recent[len(recent)-20:]
	}
	if len(recent) > 1 {
		first := recent[0].Price
		if first == 0 {
			first = 1
		}
		st.TrendPct = (recent[len(recent)-1].Price - recent[0].Price) / first * 100
	}
	return st
}

// Analyze describes the trading behavior in req. It never fails: without a
// usable model reply the heuristic patterns are returned.
func (s *PatternService) Analyze(ctx context.Context, req models.AnalysisRequest) models.PatternAnalysis {
	if req.Trades == nil {
		return models.PatternAnalysis{Patterns: []string{}, Source: PatternSourceNone}
	}
	if len(req.Trades) < minTradesForAnalysis {
		return models.PatternAnalysis{
			Patterns: []string{"Continue trading to identify patterns"},
			Insights: "Make more trades to unlock AI-powered pattern analysis.",
			Source:   PatternSourceNone,
		}
	}
	fallback := models.PatternAnalysis{Patterns: FallbackPatterns(req), Source: PatternSourceHeuristic}
	if s.ai == nil || !s.ai.Configured() {
		return fallback
	}

	text, err := s.ai.Generate(ctx, UserPrompt(patternPrompt(req, ComputeTradeStats(req)), patternGenerationConfig))
	if err != nil {
		log.Printf("pattern analysis failed, using heuristics: %v", err)
		return fallback
	}
	res := ParsePatterns(text)
	if !res.OK() {
		log.Printf("pattern output rejected, using heuristics: %s", res.Reason)
		return fallback
	}
	out := res.Value
	out.Source = PatternSourceAI
	return out
}

// ParsePatterns accepts an object with at least one non-empty pattern.
func ParsePatterns(text string) ParseResult[models.PatternAnalysis] {
	decoded := DecodeJSON[models.PatternAnalysis](StripFences(text))
	if !decoded.OK() {
		return Failed(models.PatternAnalysis{}, decoded.Reason)
	}
	out := decoded.Value
	patterns := make([]string, 0, maxPatterns)
	for _, p := range out.Patterns {
		if p = strings.TrimSpace(p); p != "" {
			patterns = append(patterns, p)
		}
		if len(patterns) == maxPatterns {
			break
		}
	}
	if len(patterns) == 0 {
		return Failed(models.PatternAnalysis{}, "no patterns in reply")
	}
	out.Patterns = patterns
	return Parsed(out)
}

func patternPrompt(req models.AnalysisRequest, st TradeStats) string {
	sign := ""
	if st.TrendPct > 0 {
		sign = "+"
	}
	return fmt.Sprintf(`Analyze this crypto trading session and identify 3-4 specific trading patterns or insights. Be concise and educational.

Trading Data:
- Total trades: %d (%d buys, %d sells)
- Average buy price: $%.2f
- Average sell price: $%.2f
- Current price: $%.2f
- Price trend (last 20 ticks): %s%.2f%%
- Portfolio ROI: %.2f%%
- Current holdings: %.4f BTC
- Cash balance: $%.2f

Return a JSON object with this exact structure (no markdown):
{
  "patterns": ["Pattern 1 description", "Pattern 2 description", "Pattern 3 description"],
  "insights": "A brief 1-2 sentence overall insight about their trading behavior",
  "suggestion": "One actionable tip for improvement"
}

Focus on:
- Buy/sell timing patterns
- Position sizing behavior
- Risk management observations
- Trend recognition ability`,
		len(req.Trades), st.Buys, st.Sells,
		st.AvgBuyPrice, st.AvgSellPrice, req.CurrentPrice,
		sign, st.TrendPct, req.ROI, req.Holdings, req.Balance)
}

// FallbackPatterns derives up to four patterns from trade counts and
// portfolio figures.
func FallbackPatterns(req models.AnalysisRequest) []string {
	st := ComputeTradeStats(req)
	patterns := []string{}

	switch {
	case st.Buys > st.Sells*2:
		patterns = append(patterns, "Heavy accumulation strategy detected - building position")
	case st.Sells > st.Buys*2:
		patterns = append(patterns, "Profit-taking behavior observed - securing gains")
	case st.Buys > 0 && st.Sells > 0:
		patterns = append(patterns, "Balanced trading approach - active position management")
	}

	switch {
	case req.ROI > 5:
		patterns = append(patterns, "Strong positive returns - effective entry timing")
	case req.ROI < -5:
		patterns = append(patterns, "Learning opportunity - consider waiting for dips to buy")
	default:
		patterns = append(patterns, "Steady performance - maintaining capital preservation")
	}

	switch {
	case req.Holdings > 0 && req.Balance > req.PortfolioValue*0.3:
		patterns = append(patterns, "Diversified position - good risk management with cash reserve")
	case req.Holdings > 0 && req.Balance < 1000:
		patterns = append(patterns, "Fully invested - high conviction play, monitor closely")
	}

	if len(req.Trades) > 10 {
		patterns = append(patterns, "Active trader profile - high engagement with market movements")
	}

	if len(patterns) == 0 {
		return []string{"Complete more trades to identify patterns"}
	}
	if len(patterns) > maxPatterns {
		patterns = patterns[:maxPatterns]
	}
	return patterns
}
