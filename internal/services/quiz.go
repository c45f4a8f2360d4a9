package services

import (
	"context"
	"fmt"
	"log"
	"math"

	"coincoach/backend-go/internal/models"
)

const (
	QuizSourceGenerated = "generated"
	QuizSourceFallback  = "fallback"

	PassingScore = 80
)

const quizPrompt = `Generate 10 multiple choice quiz questions about cryptocurrency and blockchain safety. Each question should test understanding of crypto wallets, market analysis, and risk management.

Return ONLY a valid JSON array with this exact structure (no markdown, no extra text):
[
  {
    "id": "q1",
    "question": "Question text here?",
    "options": ["Option A", "Option B", "Option C", "Option D"],
    "correctAnswer": 0,
    "explanation": "Why this answer is correct"
  }
]

Make questions progressively harder. Ensure questions cover: wallets (q1-q3), market analysis (q4-q7), risk management (q8-q10).`

var quizGenerationConfig = GenerationConfig{
	Temperature:     0.7,
	TopK:            40,
	TopP:            0.95,
	MaxOutputTokens: 2048,
}

type QuizService struct {
	ai TextGenerator
}

func NewQuizService(ai TextGenerator) *QuizService {
	return &QuizService{ai: ai}
}

// Generate asks the model for a quiz. Any failure yields the fixed question set.
func (s *QuizService) Generate(ctx context.Context) ([]models.QuizQuestion, string) {
	if s.ai == nil || !s.ai.Configured() {
		return FallbackQuestions(), QuizSourceFallback
	}
	text, err := s.ai.Generate(ctx, UserPrompt(quizPrompt, quizGenerationConfig))
	if err != nil {
		log.Printf("quiz generation failed, using fallback: %v", err)
		return FallbackQuestions(), QuizSourceFallback
	}
	res := ParseQuiz(text)
	if res.Quality == QualityFailed {
		log.Printf("quiz output rejected, using fallback: %s", res.Reason)
		return FallbackQuestions(), QuizSourceFallback
	}
	return res.Value, QuizSourceGenerated
}

type rawQuestion struct {
	ID            string   `json:"id"`
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer *int     `json:"correctAnswer"`
	Explanation   string   `json:"explanation"`
}

// ParseQuiz decodes a JSON array of questions, keeping only well-formed ones.
func ParseQuiz(text string) ParseResult[[]models.QuizQuestion] {
	decoded := DecodeJSON[[]rawQuestion](StripFences(text))
	if !decoded.OK() {
		return Failed(FallbackQuestions(), decoded.Reason)
	}
	out := make([]models.QuizQuestion, 0, len(decoded.Value))
	dropped := 0
	for i, q := range decoded.Value {
		if len(q.Options) != 4 || q.CorrectAnswer == nil || *q.CorrectAnswer < 0 || *q.CorrectAnswer > 3 {
			dropped++
			continue
		}
		id := q.ID
		if id == "" {
			id = fmt.Sprintf("q%d", i+1)
		}
		out = append(out, models.QuizQuestion{
			ID:            id,
			Question:      q.Question,
			Options:       q.Options,
			CorrectAnswer: *q.CorrectAnswer,
			Explanation:   q.Explanation,
		})
	}
	if len(out) == 0 {
		return Failed(FallbackQuestions(), "no valid questions")
	}
	if dropped > 0 {
		return Degraded(out, fmt.Sprintf("dropped %d malformed questions", dropped))
	}
	return Parsed(out)
}

// CalculateScore counts exact matches; a nil or missing answer is wrong.
func CalculateScore(questions []models.QuizQuestion, answers []*int) models.ScoreResponse {
	total := len(questions)
	if total == 0 {
		return models.ScoreResponse{}
	}
	correct := 0
	for i, q := range questions {
		if i < len(answers) && answers[i] != nil && *answers[i] == q.CorrectAnswer {
			correct++
		}
	}
	score := int(math.Round(float64(correct) / float64(total) * 100))
	return models.ScoreResponse{
		Score:   score,
		Passed:  score >= PassingScore,
		Correct: correct,
		Total:   total,
	}
}

func FallbackQuestions() []models.QuizQuestion {
	return []models.QuizQuestion{
		{
			ID:       "q1",
			Question: "What is a cryptocurrency wallet?",
			Options: []string{
				"A physical wallet to store coins",
				"A digital tool to manage public and private keys",
				"A bank account for crypto",
				"An exchange platform",
			},
			CorrectAnswer: 1,
			Explanation:   "A crypto wallet is a digital tool that stores your public key (for receiving) and private key (for sending).",
		},
		{
			ID:       "q2",
			Question: "What does market cap represent?",
			Options: []string{
				"The price of one token",
				"Total value = current price × circulating supply",
				"The maximum price ever reached",
				"The trading volume per day",
			},
			CorrectAnswer: 1,
			Explanation:   "Market cap is calculated by multiplying the current price by the total circulating supply.",
		},
		{
			ID:       "q3",
			Question: "What is a private key?",
			Options: []string{
				"A public identifier for your wallet",
				"A secret code that grants access to your funds",
				"A transaction ID",
				"A password that changes daily",
			},
			CorrectAnswer: 1,
			Explanation:   "A private key is a secret code that you must never share - it grants full access to your funds.",
		},
		{
			ID:       "q4",
			Question: "How do candlestick charts display price movement?",
			Options: []string{
				"Using only closing prices",
				"With open, high, low, and close prices in time intervals",
				"Using pie charts",
				"With random data points",
			},
			CorrectAnswer: 1,
			Explanation:   "Candlestick charts show open, high, low, and close prices for each time period (e.g., hourly, daily).",
		},
		{
			ID:       "q5",
			Question: "What is a bullish signal in trading?",
			Options: []string{
				"Price moving downward",
				"Price moving upward, indicating buying interest",
				"High trading volume decrease",
				"Portfolio losses",
			},
			CorrectAnswer: 1,
			Explanation:   "A bullish signal indicates an upward price movement and buying interest in the market.",
		},
		{
			ID:       "q6",
			Question: "What does volatility measure?",
			Options: []string{
				"The total amount traded",
				"How quickly prices change up and down",
				"The oldest price history",
				"Exchange transaction fees",
			},
			CorrectAnswer: 1,
			Explanation:   "Volatility measures how rapidly and significantly price changes occur over time.",
		},
		{
			ID:       "q7",
			Question: "How should you assess your risk tolerance?",
			Options: []string{
				"Based on others recommendations",
				"Your financial situation, goals, and comfort with losses",
				"Only market trends",
				"Random selection",
			},
			CorrectAnswer: 1,
			Explanation:   "Risk tolerance is personal and should be based on your financial situation, time horizon, and emotional comfort.",
		},
		{
			ID:       "q8",
			Question: "What is diversification?",
			Options: []string{
				"Investing all money in one asset",
				"Spreading investments across different assets to reduce risk",
				"Trading more frequently",
				"Using only cryptocurrency",
			},
			CorrectAnswer: 1,
			Explanation:   "Diversification reduces risk by spreading your investment across multiple different assets.",
		},
		{
			ID:       "q9",
			Question: "What is FOMO in crypto trading?",
			Options: []string{
				"Fear of Missing Out - making hasty decisions",
				"A type of technical indicator",
				"A blockchain protocol",
				"A mining strategy",
			},
			CorrectAnswer: 0,
			Explanation:   "FOMO is the fear of missing out, which can lead to poor investment decisions based on emotion.",
		},
		{
			ID:       "q10",
			Question: "What should you do with your private keys?",
			Options: []string{
				"Share them with trusted friends",
				"Store them in plain text on your computer",
				"Keep them secure and never share them",
				"Write them on public forums for backup",
			},
			CorrectAnswer: 2,
			Explanation:   "Private keys should be kept secure and never shared. Anyone with your private key can access your funds.",
		},
	}
}
