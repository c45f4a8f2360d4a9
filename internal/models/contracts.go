package models

import "time"

type LessonSection struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

type LessonContent struct {
	ID            int             `json:"id"`
	Content       string          `json:"content"`
	Sections      []LessonSection `json:"sections"`
	KeyPoints     []string        `json:"keyPoints"`
	YoutubeVideos []string        `json:"youtubeVideos"`
	GeneratedAt   string          `json:"generatedAt,omitempty"`
	Error         string          `json:"error,omitempty"`
	Message       string          `json:"message,omitempty"`
}

type LessonSummary struct {
	ID     int    `json:"id"`
	Title  string `json:"title"`
	Cached bool   `json:"cached"`
}

type LessonBatch struct {
	Success     bool            `json:"success"`
	Lessons     []LessonContent `json:"lessons"`
	GeneratedAt string          `json:"generatedAt"`
}

type QuizQuestion struct {
	ID            string   `json:"id"`
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer int      `json:"correctAnswer"`
	Explanation   string   `json:"explanation"`
}

type QuizResponse struct {
	Questions []QuizQuestion `json:"questions"`
	Source    string         `json:"source"`
}

type ScoreRequest struct {
	Questions   []QuizQuestion `json:"questions"`
	UserAnswers []*int         `json:"userAnswers"`
}

type ScoreResponse struct {
	Score   int  `json:"score"`
	Passed  bool `json:"passed"`
	Correct int  `json:"correct"`
	Total   int  `json:"total"`
}

type QuizSession struct {
	ID          string         `json:"id"`
	Questions   []QuizQuestion `json:"questions"`
	UserAnswers []*int         `json:"userAnswers"`
	Score       int            `json:"score"`
	Passed      bool           `json:"passed"`
	Completed   bool           `json:"completed"`
	Source      string         `json:"source"`
	CreatedAt   time.Time      `json:"createdAt"`
	CompletedAt *time.Time     `json:"completedAt,omitempty"`
}

type AnswerRequest struct {
	Index  int  `json:"index"`
	Answer *int `json:"answer"`
}

type TradeKind string

const (
	TradeBuy  TradeKind = "buy"
	TradeSell TradeKind = "sell"
)

type TradeRecord struct {
	Type      TradeKind `json:"type"`
	Price     float64   `json:"price"`
	Amount    float64   `json:"amount"`
	Timestamp int64     `json:"timestamp"`
}

type PricePoint struct {
	Time  int64   `json:"time"`
	Price float64 `json:"price"`
}

type AnalysisRequest struct {
	Trades         []TradeRecord `json:"trades"`
	PriceHistory   []PricePoint  `json:"priceHistory"`
	CurrentPrice   float64       `json:"currentPrice"`
	Balance        float64       `json:"balance"`
	Holdings       float64       `json:"holdings"`
	PortfolioValue float64       `json:"portfolioValue"`
	ROI            float64       `json:"roi"`
}

type PatternAnalysis struct {
	Patterns   []string `json:"patterns"`
	Insights   string   `json:"insights,omitempty"`
	Suggestion string   `json:"suggestion,omitempty"`
	Source     string   `json:"source,omitempty"`
}

type ChatTurn struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

type SessionData struct {
	IsPlaying      *bool         `json:"isPlaying"`
	CurrentPrice   *float64      `json:"currentPrice"`
	Balance        *float64      `json:"balance"`
	Holdings       *float64      `json:"holdings"`
	PortfolioValue *float64      `json:"portfolioValue"`
	ROI            *float64      `json:"roi"`
	Trades         []TradeRecord `json:"trades"`
}

type ChatRequest struct {
	Message             *string      `json:"message"`
	SessionData         *SessionData `json:"sessionData"`
	ConversationHistory []ChatTurn   `json:"conversationHistory"`
}

type ChatResponse struct {
	Response string `json:"response"`
}

type CoinRisk struct {
	ID        string  `json:"id"`
	Symbol    string  `json:"symbol"`
	Name      string  `json:"name"`
	RiskScore float64 `json:"riskScore"`
	RiskLevel string  `json:"riskLevel"`
}

type DepStatus struct {
	Ok      bool   `json:"ok"`
	Backend string `json:"backend,omitempty"`
	Error   string `json:"error,omitempty"`
}

type HealthResponse struct {
	Ok         bool                 `json:"ok"`
	TsISO      string               `json:"tsISO"`
	Service    string               `json:"service"`
	Version    string               `json:"version"`
	DepsStatus map[string]DepStatus `json:"deps_status"`
	Env        map[string]bool      `json:"env"`
}

// QuizQuestionView hides the answer key until the session is completed.
type QuizQuestionView struct {
	ID            string   `json:"id"`
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer *int     `json:"correctAnswer,omitempty"`
	Explanation   string   `json:"explanation,omitempty"`
}

type QuizSessionView struct {
	ID          string             `json:"id"`
	Questions   []QuizQuestionView `json:"questions"`
	UserAnswers []*int             `json:"userAnswers"`
	Score       int                `json:"score"`
	Passed      bool               `json:"passed"`
	Completed   bool               `json:"completed"`
	Source      string             `json:"source"`
	CreatedAt   time.Time          `json:"createdAt"`
	CompletedAt *time.Time         `json:"completedAt,omitempty"`
}

func (s QuizSession) View() QuizSessionView {
	qs := make([]QuizQuestionView, 0, len(s.Questions))
	for _, q := range s.Questions {
		v := QuizQuestionView{ID: q.ID, Question: q.Question, Options: q.Options}
		if s.Completed {
			answer := q.CorrectAnswer
			v.CorrectAnswer = &answer
			v.Explanation = q.Explanation
		}
		qs = append(qs, v)
	}
	return QuizSessionView{
		ID:          s.ID,
		Questions:   qs,
		UserAnswers: s.UserAnswers,
		Score:       s.Score,
		Passed:      s.Passed,
		Completed:   s.Completed,
		Source:      s.Source,
		CreatedAt:   s.CreatedAt,
		CompletedAt: s.CompletedAt,
	}
}
