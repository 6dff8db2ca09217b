package biz

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	"github.com/go-kratos/kratos/v2/log"
)

const (
	projectionYears   = 10
	frontierPoints    = 21
	projectionCapital = 100000.0
)

// allocationPalette colours allocations in order, wrapping after eight.
var allocationPalette = []string{
	"#3b82f6", // blue
	"#10b981", // green
	"#f59e0b", // yellow
	"#ef4444", // red
	"#8b5cf6", // purple
	"#06b6d4", // cyan
	"#f97316", // orange
	"#84cc16", // lime
}

const portfolioContextSystem = `You are an advanced AI portfolio optimizer using genetic algorithms and deep reinforcement learning.
You've been trained on billions of portfolio scenarios and use sophisticated optimization techniques
including modern portfolio theory, Black-Litterman models, and machine learning-based factor models.`

const portfolioContextTpl = `Optimize a portfolio with the following parameters:
- Risk Tolerance: %s/10
- Time Horizon: %s years
- Current Allocation: %s

Consider:
1. Current market conditions and economic outlook
2. Asset class correlations and diversification benefits
3. Risk-adjusted return optimization
4. Rebalancing frequency and transaction costs
5. Tax efficiency and liquidity considerations
6. Factor exposures (value, growth, momentum, quality)
7. Geographic and sector diversification
8. Alternative investments and hedging strategies

Provide specific allocation recommendations with detailed reasoning.
Consider current market volatility, interest rate environment, and geopolitical factors.`

const portfolioObjectSystem = `You are an advanced portfolio optimization system. Based on the optimization context,
generate realistic portfolio allocations and recommendations.

For asset allocations, consider:
- Risk tolerance: Higher risk = more equities, lower risk = more bonds
- Time horizon: Longer = more growth assets, shorter = more conservative
- Current market conditions and valuations

Make allocations realistic and sum to 100%.
Provide specific, actionable recommendations with clear reasoning.`

const portfolioObjectTpl = `Based on this optimization analysis: "%s"

Generate portfolio optimization for:
- Risk Tolerance: %s/10
- Time Horizon: %s years

Provide:
- Optimal asset allocation with specific percentages
- Clear reasoning for each allocation decision
- Specific rebalancing actions and timeline
- Risk adjustments based on current market conditions
- Market outlook and key considerations

The JSON object must have this shape:
{
  "expectedReturn": 7.5,
  "expectedRisk": 12.0,
  "sharpeRatio": 0.85,
  "optimizationScore": 88,
  "currentAllocation": [
    {"asset": "US Equities", "current": 40, "optimal": 45, "change": 5, "reasoning": "..."}
  ],
  "rebalanceActions": ["..."],
  "riskAdjustments": [{"adjustment": "...", "impact": "...", "priority": "high|medium|low"}],
  "marketOutlook": {"timeHorizon": "...", "expectedScenario": "...", "keyRisks": ["..."], "opportunities": ["..."]}
}`

// Allocation is one asset line of a portfolio plan.
type Allocation struct {
	Asset     string  `json:"asset"`
	Current   float64 `json:"current"`
	Optimal   float64 `json:"optimal"`
	Change    float64 `json:"change"`
	Reasoning string  `json:"reasoning"`
	Color     string  `json:"color,omitempty"`
}

// RiskAdjustment is a suggested risk change.
type RiskAdjustment struct {
	Adjustment string `json:"adjustment"`
	Impact     string `json:"impact"`
	Priority   string `json:"priority" validate:"oneof=high medium low"`
}

// MarketOutlook is the model's outlook for the horizon.
type MarketOutlook struct {
	TimeHorizon      string   `json:"timeHorizon"`
	ExpectedScenario string   `json:"expectedScenario"`
	KeyRisks         []string `json:"keyRisks" validate:"required"`
	Opportunities    []string `json:"opportunities" validate:"required"`
}

// PortfolioPlan is the structured part of an optimization written by the model.
type PortfolioPlan struct {
	ExpectedReturn    float64          `json:"expectedReturn"`
	ExpectedRisk      float64          `json:"expectedRisk"`
	SharpeRatio       float64          `json:"sharpeRatio"`
	OptimizationScore float64          `json:"optimizationScore" validate:"min=0,max=100"`
	CurrentAllocation []Allocation     `json:"currentAllocation" validate:"required,dive"`
	RebalanceActions  []string         `json:"rebalanceActions" validate:"required"`
	RiskAdjustments   []RiskAdjustment `json:"riskAdjustments" validate:"required,dive"`
	MarketOutlook     MarketOutlook    `json:"marketOutlook"`
}

// ProjectionPoint is the value of 100k after Year years under three scenarios.
type ProjectionPoint struct {
	Year         int     `json:"year"`
	Conservative float64 `json:"conservative"`
	Moderate     float64 `json:"moderate"`
	Aggressive   float64 `json:"aggressive"`
}

// FrontierPoint is one point of the efficient frontier chart.
type FrontierPoint struct {
	Risk   float64 `json:"risk"`
	Return float64 `json:"return"`
}

// PortfolioOptimization is the portfolio optimizer agent reply.
type PortfolioOptimization struct {
	PortfolioPlan
	PerformanceProjection []ProjectionPoint `json:"performanceProjection"`
	EfficientFrontier     []FrontierPoint   `json:"efficientFrontier"`
	OptimizationMethod    string            `json:"optimizationMethod"`
	BacktestPeriod        string            `json:"backtestPeriod"`
	Timestamp             string            `json:"timestamp"`
	ProcessingTime        string            `json:"processingTime"`
}

// PortfolioRequest is the optimizer input. CurrentAllocation is passed to the
// model verbatim and may have any shape.
type PortfolioRequest struct {
	RiskTolerance     string          `json:"riskTolerance"`
	TimeHorizon       string          `json:"timeHorizon"`
	CurrentAllocation json.RawMessage `json:"currentAllocation,omitempty"`
}

// PortfolioUseCase is the portfolio optimizer agent.
type PortfolioUseCase struct {
	gen  Generator
	runs *RunUseCase
	log  *log.Helper
	fill filler
}

// NewPortfolioUseCase new a portfolio optimizer usecase.
func NewPortfolioUseCase(gen Generator, runs *RunUseCase, logger log.Logger) *PortfolioUseCase {
	return &PortfolioUseCase{
		gen:  gen,
		runs: runs,
		log:  log.NewHelper(log.With(logger, "agent", AgentPortfolioOptimizer)),
		fill: newFiller(),
	}
}

// Optimize produces an allocation plan plus projection and frontier series.
func (uc *PortfolioUseCase) Optimize(ctx context.Context, req *PortfolioRequest) (out *PortfolioOptimization, err error) {
	started := uc.fill.now()
	var cause error
	defer func() {
		uc.runs.Record(ctx, AgentPortfolioOptimizer, req, out, started, cause, "")
	}()

	risk, horizon := req.RiskTolerance, req.TimeHorizon
	if risk == "" || horizon == "" {
		cause = ErrRiskToleranceRequired
		return nil, ErrRiskToleranceRequired
	}

	current := "Not provided"
	if !falsyJSON(req.CurrentAllocation) {
		current = string(req.CurrentAllocation)
	}

	optContext, cause := uc.gen.GenerateText(ctx, portfolioContextSystem, fmt.Sprintf(portfolioContextTpl, risk, horizon, current))
	if cause != nil {
		uc.log.WithContext(ctx).Errorf("portfolio optimization error: %v", cause)
		return nil, ErrPortfolioFailed
	}

	var plan PortfolioPlan
	if cause = uc.gen.GenerateObject(ctx, portfolioObjectSystem, fmt.Sprintf(portfolioObjectTpl, optContext, risk, horizon), &plan); cause != nil {
		uc.log.WithContext(ctx).Errorf("portfolio optimization error: %v", cause)
		return nil, ErrPortfolioFailed
	}

	plan.CurrentAllocation = colorAllocations(plan.CurrentAllocation)

	return &PortfolioOptimization{
		PortfolioPlan:         plan,
		PerformanceProjection: projectPerformance(plan.ExpectedReturn),
		EfficientFrontier:     uc.efficientFrontier(),
		OptimizationMethod:    "Genetic Algorithm + Deep RL",
		BacktestPeriod:        "10 years",
		Timestamp:             isoTimestamp(uc.fill.now()),
		ProcessingTime:        processingTime(uc.fill.between(300, 600)),
	}, nil
}

// colorAllocations returns a copy of items with palette colours assigned by index.
func colorAllocations(items []Allocation) []Allocation {
	out := make([]Allocation, len(items))
	for i, it := range items {
		it.Color = allocationPalette[i%len(allocationPalette)]
		out[i] = it
	}
	return out
}

// projectPerformance compounds 100k over ten years; expectedReturn is a percentage.
func projectPerformance(expectedReturn float64) []ProjectionPoint {
	base := expectedReturn / 100
	conservative := math.Max(0.03, base-0.02)
	aggressive := base + 0.02

	points := make([]ProjectionPoint, 0, projectionYears)
	for year := 1; year <= projectionYears; year++ {
		y := float64(year)
		points = append(points, ProjectionPoint{
			Year:         year,
			Conservative: projectionCapital * math.Pow(1+conservative, y),
			Moderate:     projectionCapital * math.Pow(1+base, y),
			Aggressive:   projectionCapital * math.Pow(1+aggressive, y),
		})
	}
	return points
}

func (uc *PortfolioUseCase) efficientFrontier() []FrontierPoint {
	points := make([]FrontierPoint, 0, frontierPoints)
	for i := 0; i < frontierPoints; i++ {
		risk := float64(i) * 0.5
		ret := math.Sqrt(risk)*2.5 + 2 + (uc.fill.rnd()-0.5)*0.5
		points = append(points, FrontierPoint{Risk: risk, Return: math.Max(0, ret)})
	}
	return points
}
