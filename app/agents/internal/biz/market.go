package biz

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-kratos/kratos/v2/log"

	"github.com/iWorld-y/fin_agents/app/agents/pkg/market"
)

const marketSystemPrompt = `You are a professional financial analyst specializing in market analysis.
Provide comprehensive analysis including technical indicators, fundamental analysis,
market sentiment, and actionable recommendations. Format your response as structured JSON.`

const marketPromptTpl = `Analyze the stock %s and provide:
1. Current trend analysis (bullish/bearish/neutral)
2. Key technical indicators
3. Fundamental analysis points
4. Market sentiment
5. Price target and recommendation
6. Risk assessment

Respond in JSON format with fields: trend, confidence, keyPoints, recommendation, targetPrice, riskLevel`

// MarketAnalysis is the market analysis agent reply. View holds the model's
// JSON object as returned; the other fields are filled in by the service and
// take precedence over keys of the same name in View.
type MarketAnalysis struct {
	Symbol     string
	View       map[string]any
	Exchange   string
	MarketOpen bool
	Timestamp  string
}

// MarshalJSON flattens View into the reply object.
func (a MarketAnalysis) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(a.View)+4)
	for k, v := range a.View {
		m[k] = v
	}
	m["symbol"] = a.Symbol
	m["exchange"] = a.Exchange
	m["marketOpen"] = a.MarketOpen
	m["timestamp"] = a.Timestamp
	return json.Marshal(m)
}

// fallbackMarketView is served when the model reply is not a JSON object.
func fallbackMarketView() map[string]any {
	return map[string]any{
		"trend":      "neutral",
		"confidence": 75,
		"keyPoints": []string{
			"Technical analysis shows mixed signals",
			"Market sentiment remains cautious",
			"Fundamental metrics are within normal range",
		},
		"recommendation": "HOLD",
		"targetPrice":    "N/A",
		"riskLevel":      "medium",
	}
}

// MarketUseCase is the market analysis agent.
type MarketUseCase struct {
	gen    Generator
	runs   *RunUseCase
	log    *log.Helper
	fill   filler
	isOpen func(symbol string, t time.Time) (string, bool)
}

// NewMarketUseCase new a market analysis usecase.
func NewMarketUseCase(gen Generator, runs *RunUseCase, logger log.Logger) *MarketUseCase {
	return &MarketUseCase{
		gen:    gen,
		runs:   runs,
		log:    log.NewHelper(log.With(logger, "agent", AgentMarketAnalysis)),
		fill:   newFiller(),
		isOpen: market.IsOpen,
	}
}

// Analyze asks the model for a view on symbol. A reply that cannot be parsed
// yields the fixed neutral fallback instead of an error.
func (uc *MarketUseCase) Analyze(ctx context.Context, symbol string) (out *MarketAnalysis, err error) {
	started := uc.fill.now()
	var (
		cause  error
		status string
	)
	defer func() {
		uc.runs.Record(ctx, AgentMarketAnalysis, map[string]string{"symbol": symbol}, out, started, cause, status)
	}()

	if symbol == "" {
		cause = ErrSymbolRequired
		return nil, ErrSymbolRequired
	}

	text, cause := uc.gen.GenerateText(ctx, marketSystemPrompt, fmt.Sprintf(marketPromptTpl, symbol))
	if cause != nil {
		uc.log.WithContext(ctx).Errorf("market analysis error: %v", cause)
		return nil, ErrMarketAnalysisFailed
	}

	view, perr := parseMarketView(text)
	if perr != nil {
		uc.log.WithContext(ctx).Warnf("model reply for %s is not a JSON object, serving fallback: %v", symbol, perr)
		view = fallbackMarketView()
		status = RunStatusFallback
	}

	now := uc.fill.now()
	mic, open := uc.isOpen(symbol, now)
	return &MarketAnalysis{
		Symbol:     strings.ToUpper(symbol),
		View:       view,
		Exchange:   strings.ToUpper(mic),
		MarketOpen: open,
		Timestamp:  isoTimestamp(now),
	}, nil
}

// parseMarketView accepts any JSON object; field types are not checked.
func parseMarketView(text string) (map[string]any, error) {
	var v map[string]any
	if err := json.Unmarshal([]byte(StripCodeFence(text)), &v); err != nil {
		return nil, err
	}
	if v == nil {
		return nil, errors.New("model reply is null")
	}
	return v, nil
}
