package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"coincoach/backend-go/internal/config"
)

// TextGenerator produces free-form text from a prompt conversation.
type TextGenerator interface {
	Generate(ctx context.Context, req GenerateRequest) (string, error)
	Configured() bool
}

type Content struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts"`
}

type Part struct {
	Text string `json:"text"`
}

type GenerationConfig struct {
	Temperature     float64 `json:"temperature,omitempty"`
	TopK            int     `json:"topK,omitempty"`
	TopP            float64 `json:"topP,omitempty"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
}

type GenerateRequest struct {
	Contents         []Content        `json:"contents"`
	GenerationConfig GenerationConfig `json:"generationConfig"`
}

// UserPrompt wraps a single prompt as a one-turn request.
func UserPrompt(prompt string, gc GenerationConfig) GenerateRequest {
	return GenerateRequest{
		Contents:         []Content{{Role: "user", Parts: []Part{{Text: prompt}}}},
		GenerationConfig: gc,
	}
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []Part `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

type geminiErrorEnvelope struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

type GeminiClient struct {
	baseURL string
	model   string
	apiKey  string
	hc      *http.Client
	cb      *circuitBreaker
}

type circuitBreaker struct {
	mu        sync.Mutex
	failures  int
	threshold int
	openedAt  time.Time
	cooldown  time.Duration
}

func newCircuitBreaker(threshold int, cooldown time.Duration) *circuitBreaker {
	if threshold <= 0 {
		threshold = 3
	}
	return &circuitBreaker{threshold: threshold, cooldown: cooldown}
}

func (c *circuitBreaker) allow() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failures < c.threshold {
		return true
	}
	if time.Since(c.openedAt) > c.cooldown {
		c.failures = 0
		c.openedAt = time.Time{}
		return true
	}
	return false
}

func (c *circuitBreaker) success() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures = 0
	c.openedAt = time.Time{}
}

func (c *circuitBreaker) fail() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures++
	if c.failures >= c.threshold {
		c.openedAt = time.Now()
	}
}

func NewGeminiClient(cfg config.Config) *GeminiClient {
	return &GeminiClient{
		baseURL: strings.TrimRight(cfg.GeminiBaseURL, "/"),
		model:   cfg.GeminiModel,
		apiKey:  cfg.GeminiAPIKey,
		hc: &http.Client{
			Timeout: cfg.AITimeout,
		},
		cb: newCircuitBreaker(cfg.CircuitFailLimit, cfg.CircuitCooldown),
	}
}

func (c *GeminiClient) Configured() bool {
	return c.apiKey != ""
}

// Generate returns the text of the first candidate.
func (c *GeminiClient) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	if !c.Configured() {
		return "", ErrAIUnconfigured
	}
	if !c.cb.allow() {
		return "", ErrCircuitOpen
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return "", err
	}
	url := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, c.model)
	hreq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	hreq.Header.Set("Content-Type", "application/json")
	hreq.Header.Set("x-goog-api-key", c.apiKey)

	res, err := c.hc.Do(hreq)
	if err != nil {
		c.cb.fail()
		return "", fmt.Errorf("gemini request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		upErr := &UpstreamError{Service: "gemini", Status: res.StatusCode, Body: string(body)}
		var env geminiErrorEnvelope
		if json.Unmarshal(body, &env) == nil {
			upErr.Message = env.Error.Message
		}
		if res.StatusCode >= 500 || res.StatusCode == http.StatusTooManyRequests {
			c.cb.fail()
		}
		return "", upErr
	}

	var out generateResponse
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		c.cb.fail()
		return "", fmt.Errorf("gemini decode: %w", err)
	}
	c.cb.success()

	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return "", ErrEmptyCompletion
	}
	text := out.Candidates[0].Content.Parts[0].Text
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyCompletion
	}
	return text, nil
}
