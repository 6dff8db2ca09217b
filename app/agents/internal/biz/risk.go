package biz

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-kratos/kratos/v2/log"
)

const riskSystemPrompt = `You are a risk management specialist. Analyze portfolio risk metrics and provide
comprehensive risk assessment including VaR calculations, diversification analysis, and
actionable risk management recommendations.`

const riskPromptTpl = `Analyze a portfolio with value $%s%s and provide:
1. Overall risk score (0-100)
2. Risk level classification
3. Value at Risk (95%% and 99%% confidence)
4. Sharpe ratio estimation
5. Maximum drawdown estimate
6. Diversification score
7. Risk management recommendations

Consider current market conditions and provide realistic estimates.

The JSON object must have this shape, with var95, var99 and maxDrawdown as percentages of the portfolio value:
{
  "riskScore": 55,
  "riskLevel": "low|medium|high",
  "var95": 5.2,
  "var99": 8.1,
  "sharpeRatio": 1.1,
  "maxDrawdown": 18.5,
  "diversificationScore": 70,
  "recommendations": ["..."]
}`

// RiskMetrics is the structured reply of the model. VaR and drawdown are percentages.
type RiskMetrics struct {
	RiskScore            float64  `json:"riskScore" validate:"min=0,max=100"`
	RiskLevel            string   `json:"riskLevel" validate:"oneof=low medium high"`
	Var95                float64  `json:"var95"`
	Var99                float64  `json:"var99"`
	SharpeRatio          float64  `json:"sharpeRatio"`
	MaxDrawdown          float64  `json:"maxDrawdown"`
	DiversificationScore float64  `json:"diversificationScore" validate:"min=0,max=100"`
	Recommendations      []string `json:"recommendations" validate:"required"`
}

// RiskAssessment is the risk assessment agent reply.
type RiskAssessment struct {
	PortfolioValue       string   `json:"portfolioValue"`
	Var95                string   `json:"var95"`
	Var99                string   `json:"var99"`
	SharpeRatio          float64  `json:"sharpeRatio"`
	MaxDrawdown          string   `json:"maxDrawdown"`
	RiskScore            float64  `json:"riskScore"`
	RiskLevel            string   `json:"riskLevel"`
	DiversificationScore float64  `json:"diversificationScore"`
	Recommendations      []string `json:"recommendations"`
	Timestamp            string   `json:"timestamp"`
}

// RiskRequest is the risk assessment input. Assets is optional and passed
// to the model verbatim.
type RiskRequest struct {
	PortfolioValue string          `json:"portfolioValue"`
	Assets         json.RawMessage `json:"assets,omitempty"`
}

// RiskUseCase is the risk assessment agent.
type RiskUseCase struct {
	gen  Generator
	runs *RunUseCase
	log  *log.Helper
	fill filler
}

// NewRiskUseCase new a risk assessment usecase.
func NewRiskUseCase(gen Generator, runs *RunUseCase, logger log.Logger) *RiskUseCase {
	return &RiskUseCase{
		gen:  gen,
		runs: runs,
		log:  log.NewHelper(log.With(logger, "agent", AgentRiskAssessment)),
		fill: newFiller(),
	}
}

// Assess scores the risk of a portfolio and converts the percentage metrics
// into dollar amounts.
func (uc *RiskUseCase) Assess(ctx context.Context, req *RiskRequest) (out *RiskAssessment, err error) {
	started := uc.fill.now()
	var cause error
	defer func() {
		uc.runs.Record(ctx, AgentRiskAssessment, req, out, started, cause, "")
	}()

	if req.PortfolioValue == "" {
		cause = ErrPortfolioValueRequired
		return nil, ErrPortfolioValueRequired
	}
	value, perr := ParseAmount(req.PortfolioValue)
	if perr != nil {
		cause = ErrPortfolioValueInvalid
		return nil, ErrPortfolioValueInvalid
	}

	holdings := ""
	if !falsyJSON(req.Assets) {
		holdings = " holding " + string(req.Assets)
	}

	var m RiskMetrics
	if cause = uc.gen.GenerateObject(ctx, riskSystemPrompt, fmt.Sprintf(riskPromptTpl, FormatAmount(value), holdings), &m); cause != nil {
		uc.log.WithContext(ctx).Errorf("risk assessment error: %v", cause)
		return nil, ErrRiskAssessmentFailed
	}

	return &RiskAssessment{
		PortfolioValue:       FormatUSD(value),
		Var95:                FormatUSD(value * m.Var95 / 100),
		Var99:                FormatUSD(value * m.Var99 / 100),
		SharpeRatio:          m.SharpeRatio,
		MaxDrawdown:          formatPlain(m.MaxDrawdown) + "%",
		RiskScore:            m.RiskScore,
		RiskLevel:            m.RiskLevel,
		DiversificationScore: m.DiversificationScore,
		Recommendations:      m.Recommendations,
		Timestamp:            isoTimestamp(uc.fill.now()),
	}, nil
}
