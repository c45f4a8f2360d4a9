package services

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"coincoach/backend-go/internal/models"
)

const (
	chatHistoryTurns = 10
	chatAcknowledge  = "Understood. I am your trading assistant. How can I help you today?"
)

var chatGenerationConfig = GenerationConfig{
	Temperature:     0.7,
	MaxOutputTokens: 8000,
}

var (
	scriptBlockRe = regexp.MustCompile(`(?is)<script\b[^>]*>.*?</script>`)
	jsSchemeRe    = regexp.MustCompile(`(?i)javascript:`)
)

// ValidationError is a client mistake reported with status 400.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

type ChatService struct {
	ai        TextGenerator
	maxLength int
}

func NewChatService(ai TextGenerator, maxLength int) *ChatService {
	if maxLength <= 0 {
		maxLength = 2000
	}
	return &ChatService{ai: ai, maxLength: maxLength}
}

// SanitizeMessage removes script blocks and javascript: schemes.
func SanitizeMessage(msg string) string {
	msg = scriptBlockRe.ReplaceAllString(msg, "")
	msg = jsSchemeRe.ReplaceAllString(msg, "")
	return strings.TrimSpace(msg)
}

// Reply validates the request and returns the assistant's answer.
func (s *ChatService) Reply(ctx context.Context, req models.ChatRequest) (string, error) {
	if req.Message == nil {
		return "", &ValidationError{Message: "Message is required and must be a string"}
	}
	if utf8.RuneCountInString(*req.Message) > s.maxLength {
		return "", &ValidationError{Message: fmt.Sprintf("Message too long. Maximum %d characters allowed.", s.maxLength)}
	}
	msg := SanitizeMessage(*req.Message)
	if msg == "" {
		return "", &ValidationError{Message: "Message cannot be empty"}
	}
	if s.ai == nil || !s.ai.Configured() {
		return "", ErrAIUnconfigured
	}
	return s.ai.Generate(ctx, GenerateRequest{
		Contents:         chatContents(req, msg),
		GenerationConfig: chatGenerationConfig,
	})
}

func chatContents(req models.ChatRequest, msg string) []Content {
	history := req.ConversationHistory
	if len(history) > chatHistoryTurns {
		history = history[len(history)-chatHistoryTurns:]
	}

	contents := make([]Content, 0, len(history)+3)
	if len(req.ConversationHistory) == 0 {
		contents = append(contents,
			Content{Role: "user", Parts: []Part{{Text: systemPrompt(req.SessionData)}}},
			Content{Role: "model", Parts: []Part{{Text: chatAcknowledge}}},
		)
	}
	for _, turn := range history {
		if turn.Content == "" {
			continue
		}
		role := "model"
		if turn.Type == "user" {
			role = "user"
		}
		contents = append(contents, Content{Role: role, Parts: []Part{{Text: turn.Content}}})
	}
	return append(contents, Content{Role: "user", Parts: []Part{{Text: msg}}})
}

func systemPrompt(sd *models.SessionData) string {
	if sd == nil || sd.IsPlaying == nil {
		return educationPrompt
	}
	status := "Paused"
	if *sd.IsPlaying {
		status = "Active"
	}
	return fmt.Sprintf(`You are an expert crypto trading assistant helping users learn about trading in a simulator.
You have access to their current session data:
- Current BTC Price: $%s
- Cash Balance: $%s
- BTC Holdings: %s BTC
- Portfolio Value: $%s
- ROI: %s%%
- Total Trades Made: %d
- Trading Status: %s

Provide detailed, comprehensive advice about their trades, market analysis, and crypto trading strategies. Include:
- Specific analysis of their current position
- Trading tips and techniques
- Market insights
- Recommendations with reasoning

Be encouraging, educational, and thorough in your responses.`,
		formatThousands(sd.CurrentPrice),
		formatFixed(sd.Balance, 2, "N/A"),
		formatFixed(sd.Holdings, 4, "0"),
		formatFixed(sd.PortfolioValue, 2, "N/A"),
		formatFixed(sd.ROI, 2, "0"),
		len(sd.Trades),
		status)
}

const educationPrompt = `You are CoinCoach, a friendly and knowledgeable crypto education assistant.
You help beginners learn about cryptocurrency safely.

Your expertise includes:
- Explaining crypto concepts in simple terms
- Teaching about different cryptocurrencies and their uses
- Explaining blockchain technology
- Helping users understand market analysis
- Teaching about risk management and safe trading practices
- Warning about common scams and how to avoid them
- Explaining DeFi, NFTs, wallets, and exchanges

Be friendly, encouraging, and educational. Use simple language and examples.
Always emphasize safety and warn about risks when relevant.
If asked about specific investment advice, remind users to do their own research (DYOR).`

func formatFixed(v *float64, decimals int, missing string) string {
	if v == nil {
		return missing
	}
	return fmt.Sprintf("%.*f", decimals, *v)
}

// formatThousands renders a price with comma grouping and up to 3 decimals.
func formatThousands(v *float64) string {
	if v == nil {
		return "N/A"
	}
	s := strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.3f", *v), "0"), ".")
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	intPart, frac, hasFrac := strings.Cut(s, ".")
	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	out := b.String()
	if hasFrac {
		out += "." + frac
	}
	if neg {
		out = "-" + out
	}
	return out
}
