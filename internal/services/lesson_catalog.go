package services

// Lesson is one entry of the fixed lesson catalog.
type Lesson struct {
	ID     int
	Title  string
	Videos []string
	Prompt string
}

// LessonCatalog lists the lessons the generator knows, in display order.
var LessonCatalog = []Lesson{
	{
		ID:     1,
		Title:  "Cryptocurrency Wallets",
		Videos: []string{"AdXpYGnFhs0"},
		Prompt: `Generate comprehensive educational content about cryptocurrency wallets for beginners. Include:
- A clear, beginner-friendly explanation of what a cryptocurrency wallet is
- Different types of wallets: hot wallets (software, mobile, web) vs cold wallets (hardware, paper)
- How wallets work: public keys (addresses) and private keys
- Security best practices: seed phrases, backups, 2FA
- Common wallet mistakes beginners make and how to avoid them
- Examples of popular wallet options

Provide the response as a JSON object with this exact structure:
{
  "content": "A comprehensive introduction paragraph explaining cryptocurrency wallets in simple terms (3-4 sentences)",
  "sections": [
    {"title": "What is a Cryptocurrency Wallet?", "content": "Detailed explanation here"},
    {"title": "Types of Wallets", "content": "Explain hot vs cold wallets with examples"},
    {"title": "How Wallets Work", "content": "Explain public/private keys, addresses, transactions"},
    {"title": "Security Best Practices", "content": "Important security tips and precautions"},
    {"title": "Common Mistakes to Avoid", "content": "List of mistakes and how to prevent them"}
  ],
  "keyPoints": [
    "A cryptocurrency wallet stores your private keys, not the coins themselves",
    "Cold wallets (hardware/paper) are more secure than hot wallets",
    "Never share your private key or seed phrase with anyone",
    "Always backup your wallet and store backups securely",
    "Research wallet options before choosing one"
  ]
}`,
	},
	{
		ID:     2,
		Title:  "Market Cap vs Price",
		Videos: []string{"KkE3kweQKgE"},
		Prompt: `Generate comprehensive educational content about Market Cap vs Price in cryptocurrency. Include:
- Clear explanation of what market capitalization means in crypto
- How market cap is calculated: price × circulating supply
- Why market cap matters more than price alone (examples: Bitcoin vs Shiba Inu)
- Real-world examples comparing cryptocurrencies with similar market caps but different prices
- How to use market cap for investment decisions
- Common misconceptions about price vs market cap

Provide the response as a JSON object with this exact structure:
{
  "content": "A comprehensive introduction explaining why market cap matters more than price in cryptocurrency (3-4 sentences)",
  "sections": [
    {"title": "Understanding Market Capitalization", "content": "Definition and calculation formula"},
    {"title": "Price vs Market Cap: Why the Difference Matters", "content": "Explain with examples like Bitcoin vs meme coins"},
    {"title": "Real-World Examples", "content": "Compare different cryptocurrencies to illustrate the concept"},
    {"title": "Using Market Cap for Investment Decisions", "content": "Practical guidance on evaluating investments"},
    {"title": "Common Misconceptions", "content": "Debunk myths about price vs market cap"}
  ],
  "keyPoints": [
    "Market cap = Price × Circulating Supply",
    "A lower-priced coin isn't necessarily cheaper to invest in",
    "Market cap shows the total value of a cryptocurrency",
    "Compare market caps, not prices, when evaluating investments",
    "Price alone can be misleading; always consider market cap"
  ]
}`,
	},
	{
		ID:     3,
		Title:  "Reading Candlestick Charts",
		Videos: []string{"AOz1YPOKvEs"},
		Prompt: `Generate comprehensive educational content about candlestick charts in cryptocurrency trading. Include:
- History and origin of candlestick charts (Japanese rice trading)
- Anatomy of a candlestick: open, high, low, close (OHLC)
- Bullish vs bearish candles explained
- Essential candlestick patterns: doji, hammer, engulfing patterns, shooting star
- How to read candlestick patterns for trading signals
- Practical tips for using candlesticks in crypto trading
- Common mistakes when reading candlesticks

Provide the response as a JSON object with this exact structure:
{
  "content": "A comprehensive introduction to candlestick charts and their importance in trading (3-4 sentences)",
  "sections": [
    {"title": "What are Candlestick Charts?", "content": "History and basic explanation"},
    {"title": "Reading a Candlestick", "content": "Explain OHLC and candle anatomy"},
    {"title": "Bullish vs Bearish Patterns", "content": "Green/red candles and what they mean"},
    {"title": "Essential Candlestick Patterns", "content": "Doji, hammer, engulfing, shooting star with examples"},
    {"title": "Trading with Candlesticks", "content": "Practical tips and strategies"},
    {"title": "Common Mistakes", "content": "What to avoid when reading candlestick charts"}
  ],
  "keyPoints": [
    "Candlesticks show open, high, low, and close prices in one visual",
    "Green candles indicate price went up; red candles show price went down",
    "Patterns like doji suggest market indecision",
    "Never rely on candlesticks alone; use with other indicators",
    "Practice reading patterns on historical charts before trading"
  ]
}`,
	},
}

// LookupLesson returns the catalog entry for id.
func LookupLesson(id int) (Lesson, bool) {
	for _, l := range LessonCatalog {
		if l.ID == id {
			return l, true
		}
	}
	return Lesson{}, false
}
