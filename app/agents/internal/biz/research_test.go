package biz

import (
	"context"
	"errors"
	"testing"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const reportJSON = `{
	"company": "Apple Inc.",
	"sector": "Technology",
	"marketCap": "$2.9T",
	"rating": 4,
	"priceTarget": "$210",
	"analystConsensus": "BUY",
	"investmentThesis": "Ecosystem lock-in",
	"keyMetrics": [{"metric": "P/E Ratio", "value": "28.5", "trend": "up", "analysis": "premium"}],
	"strengths": ["brand"],
	"risks": ["china"],
	"catalysts": [{"catalyst": "WWDC", "timeframe": "Q2 2025", "impact": "medium", "probability": 80}],
	"competitivePosition": {"marketShare": 23.5, "competitiveAdvantages": ["ecosystem"], "threats": ["regulation"]},
	"financialHealth": {"revenueGrowth": 8.1, "profitMargin": 25.3, "debtToEquity": 1.4, "returnOnEquity": 30.2, "cashPosition": "$62B"}
}`

type fakeNews struct {
	articles []NewsArticle
	err      error
}

func (f *fakeNews) RecentNews(ctx context.Context, query string) ([]NewsArticle, error) {
	return f.articles, f.err
}

func newTestResearch(gen Generator, news NewsSource) (*ResearchUseCase, *mockRunRepo) {
	runs, repo := newTestRuns()
	uc := NewResearchUseCase(gen, news, runs, log.DefaultLogger)
	uc.fill = testFiller(0.5)
	return uc, repo
}

func TestResearchUseCase_Research(t *testing.T) {
	gen := &fakeGenerator{texts: []string{"solid fundamentals"}, objects: []string{reportJSON}}
	uc, repo := newTestResearch(gen, nil)

	got, err := uc.Research(context.Background(), "Apple Inc.")
	require.NoError(t, err)
	assert.Equal(t, "Apple Inc.", got.Company)
	assert.Equal(t, "BUY", got.AnalystConsensus)
	assert.Equal(t, "AI Research System v3.2", got.AnalystName)
	assert.Equal(t, got.ResearchDate, got.LastUpdated)
	assert.InDelta(t, 91, got.ConfidenceLevel, 1e-9)
	assert.Equal(t, "1000ms", got.ProcessingTime)
	assert.NotNil(t, got.Sources)
	assert.Empty(t, got.Sources)

	require.Len(t, got.FinancialData, 4)
	assert.Equal(t, QuarterResult{Quarter: "Q1 2024", Revenue: 105000, Profit: 27500, EPS: "2.00"}, got.FinancialData[0])
	require.Len(t, got.CompetitorAnalysis, 4)
	assert.Equal(t, "Others", got.CompetitorAnalysis[3].Company)
	require.Len(t, got.Scorecard, 6)
	for _, s := range got.Scorecard {
		assert.Equal(t, 100.0, s.MaxScore)
	}

	assert.NotContains(t, gen.lastPrompt(), "Recent news")
	assert.Equal(t, RunStatusOK, repo.last().Status)
}

func TestResearchUseCase_ResearchWithNews(t *testing.T) {
	gen := &fakeGenerator{texts: []string{"ctx"}, objects: []string{reportJSON}}
	news := &fakeNews{articles: []NewsArticle{
		{Title: "Apple beats estimates", URL: "https://example.com/a", PublishedDate: "2024-10-01", Content: "Revenue up 6%"},
		{Title: "Vision Pro sales slow", URL: "https://example.com/b"},
	}}
	uc, _ := newTestResearch(gen, news)

	got, err := uc.Research(context.Background(), "Apple")
	require.NoError(t, err)
	require.Len(t, got.Sources, 2)
	assert.Equal(t, ResearchSource{Title: "Apple beats estimates", URL: "https://example.com/a", PublishedDate: "2024-10-01"}, got.Sources[0])

	prompt := gen.lastPrompt()
	assert.Contains(t, prompt, "Recent news:")
	assert.Contains(t, prompt, "1. Apple beats estimates (2024-10-01)")
	assert.Contains(t, prompt, "Revenue up 6%")
	assert.Contains(t, prompt, "2. Vision Pro sales slow")
}

func TestResearchUseCase_NewsFailureIgnored(t *testing.T) {
	gen := &fakeGenerator{texts: []string{"ctx"}, objects: []string{reportJSON}}
	uc, _ := newTestResearch(gen, &fakeNews{err: errors.New("search down")})

	got, err := uc.Research(context.Background(), "Apple")
	require.NoError(t, err)
	assert.Empty(t, got.Sources)
}

func TestResearchUseCase_ResearchErrors(t *testing.T) {
	uc, _ := newTestResearch(&fakeGenerator{}, nil)
	_, err := uc.Research(context.Background(), "")
	assert.Equal(t, ErrCompanyRequired, err)

	uc, _ = newTestResearch(&fakeGenerator{textErr: errors.New("timeout")}, nil)
	_, err = uc.Research(context.Background(), "Apple")
	assert.Equal(t, ErrResearchFailed, err)

	uc, _ = newTestResearch(&fakeGenerator{texts: []string{"ctx"}, objErr: errors.New("bad json")}, nil)
	_, err = uc.Research(context.Background(), "Apple")
	assert.Equal(t, ErrResearchFailed, err)
}

func TestResearchUseCase_WhitespaceCompanyIsPresent(t *testing.T) {
	gen := &fakeGenerator{texts: []string{"ctx"}, objects: []string{reportJSON}}
	uc, repo := newTestResearch(gen, nil)

	_, err := uc.Research(context.Background(), " ")
	require.NoError(t, err)
	assert.Contains(t, gen.prompts[0], "research analysis on  .")
	assert.Equal(t, RunStatusOK, repo.last().Status)
}
