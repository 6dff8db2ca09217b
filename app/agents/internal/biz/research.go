package biz

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/go-kratos/kratos/v2/log"
	"golang.org/x/sync/errgroup"
)

const researchContextSystem = `You are an advanced AI research analyst with access to comprehensive financial databases,
news sources, and analytical tools. You use natural language processing and knowledge graphs
to analyze companies across multiple dimensions. You've been trained on billions of financial
documents, earnings calls, and market data.`

const researchContextTpl = `Conduct comprehensive research analysis on %s. Provide detailed analysis covering:

1. Company Overview & Business Model
2. Financial Performance & Metrics
3. Competitive Position & Market Share
4. Growth Drivers & Catalysts
5. Risk Factors & Challenges
6. Valuation Analysis
7. Technical Analysis
8. Analyst Recommendations
9. ESG Considerations
10. Future Outlook & Price Targets

Consider:
- Recent earnings reports and guidance
- Industry trends and competitive dynamics
- Macroeconomic factors affecting the business
- Management quality and strategic initiatives
- Regulatory environment and policy impacts
- Innovation pipeline and R&D investments
- Market sentiment and institutional ownership

Provide specific, actionable insights with supporting data and reasoning.`

const researchObjectSystem = `You are an advanced research system. Based on the research context provided,
generate a comprehensive structured analysis with realistic financial metrics and ratings.

For ratings: 5 = Strong Buy, 4 = Buy, 3 = Hold, 2 = Sell, 1 = Strong Sell
For consensus: Use STRONG_BUY for high conviction positive, BUY for positive, HOLD for neutral, etc.

Make all metrics realistic for the company size and sector.
Provide specific, actionable insights with clear reasoning.`

const researchObjectTpl = `Based on this research analysis: "%s"
%s
Generate comprehensive research report for: %s

Include:
- Realistic financial metrics and valuation
- Specific investment thesis with supporting arguments
- Detailed competitive analysis
- Clear catalysts with timeframes and probabilities
- Balanced view of strengths and risks
- Actionable price target and recommendation

The JSON object must have this shape:
{
  "company": "...",
  "sector": "...",
  "marketCap": "$2.9T",
  "rating": 4,
  "priceTarget": "$210",
  "analystConsensus": "STRONG_BUY|BUY|HOLD|SELL|STRONG_SELL",
  "investmentThesis": "...",
  "keyMetrics": [{"metric": "P/E Ratio", "value": "28.5", "trend": "up|down|stable", "analysis": "..."}],
  "strengths": ["..."],
  "risks": ["..."],
  "catalysts": [{"catalyst": "...", "timeframe": "Q3 2025", "impact": "high|medium|low", "probability": 70}],
  "competitivePosition": {"marketShare": 23.5, "competitiveAdvantages": ["..."], "threats": ["..."]},
  "financialHealth": {"revenueGrowth": 8.1, "profitMargin": 25.3, "debtToEquity": 1.4, "returnOnEquity": 30.2, "cashPosition": "$62B"}
}`

// NewsArticle is a recent article about a company.
type NewsArticle struct {
	Title         string
	URL           string
	PublishedDate string
	Content       string
}

// NewsSource finds recent news. It is optional; a nil source disables news.
type NewsSource interface {
	RecentNews(ctx context.Context, query string) ([]NewsArticle, error)
}

// KeyMetric is one financial metric with its direction.
type KeyMetric struct {
	Metric   string `json:"metric"`
	Value    string `json:"value"`
	Trend    string `json:"trend" validate:"oneof=up down stable"`
	Analysis string `json:"analysis"`
}

// Catalyst is an upcoming event that can move the stock.
type Catalyst struct {
	Catalyst    string  `json:"catalyst"`
	Timeframe   string  `json:"timeframe"`
	Impact      string  `json:"impact" validate:"oneof=high medium low"`
	Probability float64 `json:"probability" validate:"min=0,max=100"`
}

// CompetitivePosition summarises the company's market position.
type CompetitivePosition struct {
	MarketShare           float64  `json:"marketShare"`
	CompetitiveAdvantages []string `json:"competitiveAdvantages" validate:"required"`
	Threats               []string `json:"threats" validate:"required"`
}

// FinancialHealth holds headline ratios.
type FinancialHealth struct {
	RevenueGrowth  float64 `json:"revenueGrowth"`
	ProfitMargin   float64 `json:"profitMargin"`
	DebtToEquity   float64 `json:"debtToEquity"`
	ReturnOnEquity float64 `json:"returnOnEquity"`
	CashPosition   string  `json:"cashPosition"`
}

// ResearchReport is the structured part written by the model.
type ResearchReport struct {
	Company             string              `json:"company"`
	Sector              string              `json:"sector"`
	MarketCap           string              `json:"marketCap"`
	Rating              float64             `json:"rating" validate:"min=1,max=5"`
	PriceTarget         string              `json:"priceTarget"`
	AnalystConsensus    string              `json:"analystConsensus" validate:"oneof=STRONG_BUY BUY HOLD SELL STRONG_SELL"`
	InvestmentThesis    string              `json:"investmentThesis"`
	KeyMetrics          []KeyMetric         `json:"keyMetrics" validate:"required,dive"`
	Strengths           []string            `json:"strengths" validate:"required"`
	Risks               []string            `json:"risks" validate:"required"`
	Catalysts           []Catalyst          `json:"catalysts" validate:"required,dive"`
	CompetitivePosition CompetitivePosition `json:"competitivePosition"`
	FinancialHealth     FinancialHealth     `json:"financialHealth"`
}

// QuarterResult is one quarter of the revenue chart.
type QuarterResult struct {
	Quarter string `json:"quarter"`
	Revenue int64  `json:"revenue"`
	Profit  int64  `json:"profit"`
	EPS     string `json:"eps"`
}

// CompetitorShare is one slice of the competitor chart.
type CompetitorShare struct {
	Company     string  `json:"company"`
	MarketShare float64 `json:"marketShare"`
	Growth      float64 `json:"growth"`
}

// ScoreCategory is one bar of the scorecard.
type ScoreCategory struct {
	Category string  `json:"category"`
	Score    float64 `json:"score"`
	MaxScore float64 `json:"maxScore"`
}

// ResearchSource is a news article the report drew on.
type ResearchSource struct {
	Title         string `json:"title"`
	URL           string `json:"url"`
	PublishedDate string `json:"publishedDate,omitempty"`
}

// ResearchAnalysis is the research agent reply.
type ResearchAnalysis struct {
	ResearchReport
	FinancialData      []QuarterResult   `json:"financialData"`
	CompetitorAnalysis []CompetitorShare `json:"competitorAnalysis"`
	Scorecard          []ScoreCategory   `json:"scorecard"`
	Sources            []ResearchSource  `json:"sources"`
	ResearchDate       string            `json:"researchDate"`
	AnalystName        string            `json:"analystName"`
	ConfidenceLevel    float64           `json:"confidenceLevel"`
	LastUpdated        string            `json:"lastUpdated"`
	ProcessingTime     string            `json:"processingTime"`
}

var quarterRanges = []struct {
	quarter              string
	revenue, profit, eps spread
}{
	{"Q1 2024", spread{80000, 50000}, spread{20000, 15000}, spread{1, 2}},
	{"Q2 2024", spread{85000, 55000}, spread{22000, 18000}, spread{1.2, 2.5}},
	{"Q3 2024", spread{90000, 60000}, spread{25000, 20000}, spread{1.5, 3}},
	{"Q4 2024", spread{95000, 65000}, spread{28000, 25000}, spread{1.8, 3.5}},
}

var competitorRanges = []struct {
	name          string
	share, growth spread
}{
	{"Competitor A", spread{25, 15}, spread{8, 10}},
	{"Competitor B", spread{20, 12}, spread{5, 8}},
	{"Competitor C", spread{15, 10}, spread{12, 15}},
	{"Others", spread{25, 10}, spread{3, 6}},
}

var scorecardRanges = []struct {
	category string
	score    spread
}{
	{"Financial Health", spread{75, 20}},
	{"Market Position", spread{80, 15}},
	{"Growth Potential", spread{70, 25}},
	{"Management Quality", spread{85, 12}},
	{"Innovation", spread{75, 20}},
	{"ESG Score", spread{65, 25}},
}

// ResearchUseCase is the research agent.
type ResearchUseCase struct {
	gen  Generator
	news NewsSource
	runs *RunUseCase
	log  *log.Helper
	fill filler
}

// NewResearchUseCase new a research usecase. news may be nil.
func NewResearchUseCase(gen Generator, news NewsSource, runs *RunUseCase, logger log.Logger) *ResearchUseCase {
	return &ResearchUseCase{
		gen:  gen,
		news: news,
		runs: runs,
		log:  log.NewHelper(log.With(logger, "agent", AgentResearch)),
		fill: newFiller(),
	}
}

// Research builds a report on company. News lookup runs alongside the first
// model stage and never fails the request.
func (uc *ResearchUseCase) Research(ctx context.Context, company string) (out *ResearchAnalysis, err error) {
	started := uc.fill.now()
	var cause error
	defer func() {
		uc.runs.Record(ctx, AgentResearch, map[string]string{"company": company}, out, started, cause, "")
	}()

	if company == "" {
		cause = ErrCompanyRequired
		return nil, ErrCompanyRequired
	}

	var (
		researchContext string
		articles        []NewsArticle
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		text, err := uc.gen.GenerateText(gctx, researchContextSystem, fmt.Sprintf(researchContextTpl, company))
		researchContext = text
		return err
	})
	if uc.news != nil {
		g.Go(func() error {
			found, err := uc.news.RecentNews(gctx, company)
			if err != nil {
				uc.log.WithContext(ctx).Warnf("news lookup for %s failed: %v", company, err)
				return nil
			}
			articles = found
			return nil
		})
	}
	if cause = g.Wait(); cause != nil {
		uc.log.WithContext(ctx).Errorf("research analysis error: %v", cause)
		return nil, ErrResearchFailed
	}

	var report ResearchReport
	prompt := fmt.Sprintf(researchObjectTpl, researchContext, newsDigest(articles), company)
	if cause = uc.gen.GenerateObject(ctx, researchObjectSystem, prompt, &report); cause != nil {
		uc.log.WithContext(ctx).Errorf("research analysis error: %v", cause)
		return nil, ErrResearchFailed
	}

	now := isoTimestamp(uc.fill.now())
	return &ResearchAnalysis{
		ResearchReport:     report,
		FinancialData:      uc.financialData(),
		CompetitorAnalysis: uc.competitors(),
		Scorecard:          uc.scorecard(),
		Sources:            sourcesOf(articles),
		ResearchDate:       now,
		AnalystName:        "AI Research System v3.2",
		ConfidenceLevel:    uc.fill.between(85, 12),
		LastUpdated:        now,
		ProcessingTime:     processingTime(uc.fill.between(500, 1000)),
	}, nil
}

// newsDigest renders articles as extra prompt context; empty when there is no news.
func newsDigest(articles []NewsArticle) string {
	if len(articles) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("\nRecent news:\n")
	for i, a := range articles {
		fmt.Fprintf(&sb, "%d. %s", i+1, a.Title)
		if a.PublishedDate != "" {
			fmt.Fprintf(&sb, " (%s)", a.PublishedDate)
		}
		sb.WriteString("\n")
		if a.Content != "" {
			fmt.Fprintf(&sb, "   %s\n", a.Content)
		}
	}
	return sb.String()
}

func sourcesOf(articles []NewsArticle) []ResearchSource {
	out := make([]ResearchSource, 0, len(articles))
	for _, a := range articles {
		out = append(out, ResearchSource{Title: a.Title, URL: a.URL, PublishedDate: a.PublishedDate})
	}
	return out
}

func (uc *ResearchUseCase) financialData() []QuarterResult {
	out := make([]QuarterResult, 0, len(quarterRanges))
	for _, q := range quarterRanges {
		out = append(out, QuarterResult{
			Quarter: q.quarter,
			Revenue: int64(math.Floor(uc.fill.between(q.revenue.lo, q.revenue.span))),
			Profit:  int64(math.Floor(uc.fill.between(q.profit.lo, q.profit.span))),
			EPS:     fmt.Sprintf("%.2f", uc.fill.between(q.eps.lo, q.eps.span)),
		})
	}
	return out
}

func (uc *ResearchUseCase) competitors() []CompetitorShare {
	out := make([]CompetitorShare, 0, len(competitorRanges))
	for _, c := range competitorRanges {
		out = append(out, CompetitorShare{
			Company:     c.name,
			MarketShare: uc.fill.between(c.share.lo, c.share.span),
			Growth:      uc.fill.between(c.growth.lo, c.growth.span),
		})
	}
	return out
}

func (uc *ResearchUseCase) scorecard() []ScoreCategory {
	out := make([]ScoreCategory, 0, len(scorecardRanges))
	for _, s := range scorecardRanges {
		out = append(out, ScoreCategory{
			Category: s.category,
			Score:    uc.fill.between(s.score.lo, s.score.span),
			MaxScore: 100,
		})
	}
	return out
}
