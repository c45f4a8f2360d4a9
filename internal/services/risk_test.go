package services

import (
	"context"
	"net/http"
	"testing"
)

func TestRiskScore(t *testing.T) {
	cases := []struct {
		c24, c7, mcap float64
		score         float64
		level         string
	}{
		{10, 20, 5e8, 6.0, "high"},
		{0, 0, 5e11, 0, "low"},
		{-12.5, 5, 2e9, 4.0, "medium"},
		{60, -80, 1e8, 10, "extreme"},
		{1.23, 0, 0, 0.2, "low"},
	}
	for _, tc := range cases {
		got := RiskScore(tc.c24, tc.c7, tc.mcap)
		if got != tc.score {
			t.Fatalf("RiskScore(%v,%v,%v) = %v, want %v", tc.c24, tc.c7, tc.mcap, got, tc.score)
		}
		if lvl := RiskLevel(got); lvl != tc.level {
			t.Fatalf("RiskLevel(%v) = %s, want %s", got, lvl, tc.level)
		}
	}
}

func TestRiskLevelBoundaries(t *testing.T) {
	for score, want := range map[float64]string{2.5: "low", 2.6: "medium", 5: "medium", 7.5: "high", 7.6: "extreme"} {
		if got := RiskLevel(score); got != want {
			t.Fatalf("RiskLevel(%v) = %s, want %s", score, got, want)
		}
	}
}

func TestCoinRisks(t *testing.T) {
	c, _, _ := newTestMarketClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"id":"pepe","symbol":"pepe","name":"Pepe","market_cap":500000000,
			"price_change_percentage_24h":10,"price_change_percentage_7d_in_currency":20}]`))
	})
	risks, meta, err := c.CoinRisks(context.Background(), []string{"pepe"})
	if err != nil {
		t.Fatalf("coin risks: %v", err)
	}
	if meta.Source != "fresh" || len(risks) != 1 {
		t.Fatalf("unexpected result %+v %+v", risks, meta)
	}
	if risks[0].RiskScore != 6 || risks[0].RiskLevel != "high" {
		t.Fatalf("unexpected risk %+v", risks[0])
	}
}
