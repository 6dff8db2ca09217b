package biz

import (
	"context"
	"fmt"

	"github.com/go-kratos/kratos/v2/log"
)

const quantumContextSystem = `You are an advanced quantum-enhanced risk assessment AI system. You use quantum computing
principles like superposition and entanglement to model complex risk scenarios that classical
systems cannot handle. You've been trained on billions of risk scenarios and market conditions.`

const quantumContextTpl = `Perform a comprehensive quantum risk analysis for a portfolio worth %s.

Consider:
1. Market risk across different economic scenarios
2. Credit risk and counterparty exposures
3. Liquidity risk in various market conditions
4. Operational and systemic risks
5. Quantum superposition of multiple market states
6. Risk correlations and entanglements
7. Black swan events and tail risks
8. Hedging strategies and risk mitigation

Analyze how quantum computing advantages can provide superior risk assessment compared to classical methods.
Consider current market volatility, geopolitical risks, and economic uncertainties.`

const quantumObjectSystem = `You are a quantum-enhanced risk assessment system. Based on the risk context provided,
generate a comprehensive quantum risk analysis with realistic quantum metrics and superposition states.

For superposition states, consider:
- Bull Market Superposition: Low risk, positive returns
- Bear Market Superposition: High risk, negative returns
- Sideways Market Superposition: Medium risk, low returns
- Volatile Regime Superposition: Very high risk, high potential returns

Make quantum metrics realistic:
- Coherence time: 50-200 microseconds
- Decoherence rate: 0.01-0.1
- Quantum advantage: 60-95%
- Error correction: 90-99%`

const quantumObjectTpl = `Based on this risk analysis: "%s"

Generate quantum risk assessment for portfolio value: %s

Include:
- Realistic quantum superposition states with probabilities
- Quantum entanglement between risk factors
- Specific hedging strategies with costs and effectiveness
- Actionable risk management recommendations
- Overall quantum risk score and assessment

The JSON object must have this shape:
{
  "portfolioValue": "$100,000",
  "quantumRiskScore": 42,
  "quantumEntanglement": 0.63,
  "superpositionStates": [
    {"state": "Bull Market Superposition", "probability": 0.35, "riskLevel": 20, "expectedReturn": 12.5, "description": "..."}
  ],
  "quantumMetrics": {"coherenceTime": 120, "decoherenceRate": 0.04, "quantumAdvantage": 82, "errorCorrection": 97},
  "riskRecommendations": ["..."],
  "overallAssessment": "...",
  "hedgingStrategies": [{"strategy": "...", "effectiveness": 75, "cost": 1.2, "description": "..."}]
}`

// SuperpositionState is one market regime with its probability.
type SuperpositionState struct {
	State          string  `json:"state"`
	Probability    float64 `json:"probability" validate:"min=0,max=1"`
	RiskLevel      float64 `json:"riskLevel" validate:"min=0,max=100"`
	ExpectedReturn float64 `json:"expectedReturn"`
	Description    string  `json:"description"`
}

// QuantumMetrics are the flavour metrics of the quantum processor.
type QuantumMetrics struct {
	CoherenceTime    float64 `json:"coherenceTime"`
	DecoherenceRate  float64 `json:"decoherenceRate"`
	QuantumAdvantage float64 `json:"quantumAdvantage"`
	ErrorCorrection  float64 `json:"errorCorrection"`
}

// HedgingStrategy is a suggested hedge.
type HedgingStrategy struct {
	Strategy      string  `json:"strategy"`
	Effectiveness float64 `json:"effectiveness"`
	Cost          float64 `json:"cost"`
	Description   string  `json:"description"`
}

// QuantumAssessment is the structured part written by the model.
type QuantumAssessment struct {
	PortfolioValue      string               `json:"portfolioValue"`
	QuantumRiskScore    float64              `json:"quantumRiskScore" validate:"min=0,max=100"`
	QuantumEntanglement float64              `json:"quantumEntanglement" validate:"min=0,max=1"`
	SuperpositionStates []SuperpositionState `json:"superpositionStates" validate:"required,dive"`
	QuantumMetrics      QuantumMetrics       `json:"quantumMetrics"`
	RiskRecommendations []string             `json:"riskRecommendations" validate:"required"`
	OverallAssessment   string               `json:"overallAssessment"`
	HedgingStrategies   []HedgingStrategy    `json:"hedgingStrategies" validate:"required,dive"`
}

// RiskDimension compares quantum and classical risk estimates.
type RiskDimension struct {
	Dimension     string  `json:"dimension"`
	QuantumRisk   float64 `json:"quantumRisk"`
	ClassicalRisk float64 `json:"classicalRisk"`
	Advantage     float64 `json:"advantage"`
}

// MonteCarloScenario is a tail scenario with an estimated loss.
type MonteCarloScenario struct {
	Scenario          string  `json:"scenario"`
	Probability       float64 `json:"probability"`
	Loss              float64 `json:"loss"`
	QuantumCorrection float64 `json:"quantumCorrection"`
}

// FusionLayer is one layer of the neural/quantum chart.
type FusionLayer struct {
	Layer        string  `json:"layer"`
	QuantumBits  int     `json:"quantumBits"`
	Entanglement float64 `json:"entanglement"`
	Fidelity     float64 `json:"fidelity"`
}

// QuantumRiskAnalysis is the quantum risk agent reply.
type QuantumRiskAnalysis struct {
	QuantumAssessment
	RiskDimensions      []RiskDimension      `json:"riskDimensions"`
	MonteCarloQuantum   []MonteCarloScenario `json:"monteCarloQuantum"`
	NeuralQuantumFusion []FusionLayer        `json:"neuralQuantumFusion"`
	Var95               string               `json:"var95"`
	Var99               string               `json:"var99"`
	Timestamp           string               `json:"timestamp"`
	QuantumProcessor    string               `json:"quantumProcessor"`
	ProcessingTime      string               `json:"processingTime"`
}

type spread struct{ lo, span float64 }

var riskDimensionRanges = []struct {
	name               string
	quantum, classical spread
}{
	{"Market Risk", spread{15, 20}, spread{25, 25}},
	{"Credit Risk", spread{10, 15}, spread{20, 20}},
	{"Liquidity Risk", spread{8, 12}, spread{15, 18}},
	{"Operational Risk", spread{6, 12}, spread{12, 18}},
	{"Systemic Risk", spread{18, 25}, spread{28, 35}},
}

var monteCarloRanges = []struct {
	name        string
	probability float64
	loss        spread
	correction  spread
}{
	{"Black Swan Event", 0.02, spread{0.3, 0.2}, spread{0.05, 0.15}},
	{"Market Crash", 0.08, spread{0.15, 0.15}, spread{0.08, 0.12}},
	{"Sector Rotation", 0.15, spread{0.05, 0.1}, spread{0.04, 0.08}},
	{"Volatility Spike", 0.25, spread{0.03, 0.08}, spread{0.02, 0.06}},
}

var fusionRanges = []struct {
	name         string
	bits         int
	entanglement spread
	fidelity     spread
}{
	{"Quantum Input Layer", 2048, spread{0.7, 0.25}, spread{0.95, 0.04}},
	{"Quantum Attention", 1024, spread{0.6, 0.35}, spread{0.92, 0.06}},
	{"Quantum LSTM", 512, spread{0.5, 0.45}, spread{0.9, 0.08}},
	{"Quantum Dense", 256, spread{0.4, 0.55}, spread{0.88, 0.1}},
	{"Quantum Output", 64, spread{0.3, 0.65}, spread{0.85, 0.12}},
}

// QuantumUseCase is the quantum risk agent.
type QuantumUseCase struct {
	gen  Generator
	runs *RunUseCase
	log  *log.Helper
	fill filler
}

// NewQuantumUseCase new a quantum risk usecase.
func NewQuantumUseCase(gen Generator, runs *RunUseCase, logger log.Logger) *QuantumUseCase {
	return &QuantumUseCase{
		gen:  gen,
		runs: runs,
		log:  log.NewHelper(log.With(logger, "agent", AgentQuantumRisk)),
		fill: newFiller(),
	}
}

// Assess runs the two-stage quantum risk analysis for portfolioValue.
func (uc *QuantumUseCase) Assess(ctx context.Context, portfolioValue string) (out *QuantumRiskAnalysis, err error) {
	started := uc.fill.now()
	var cause error
	defer func() {
		uc.runs.Record(ctx, AgentQuantumRisk, map[string]string{"portfolioValue": portfolioValue}, out, started, cause, "")
	}()

	if portfolioValue == "" {
		cause = ErrPortfolioValueRequired
		return nil, ErrPortfolioValueRequired
	}
	value, perr := ParseAmount(portfolioValue)
	if perr != nil {
		cause = ErrPortfolioValueInvalid
		return nil, ErrPortfolioValueInvalid
	}
	money := FormatUSD(value)

	riskContext, cause := uc.gen.GenerateText(ctx, quantumContextSystem, fmt.Sprintf(quantumContextTpl, money))
	if cause != nil {
		uc.log.WithContext(ctx).Errorf("quantum risk analysis error: %v", cause)
		return nil, ErrQuantumRiskFailed
	}

	var assessment QuantumAssessment
	if cause = uc.gen.GenerateObject(ctx, quantumObjectSystem, fmt.Sprintf(quantumObjectTpl, riskContext, money), &assessment); cause != nil {
		uc.log.WithContext(ctx).Errorf("quantum risk analysis error: %v", cause)
		return nil, ErrQuantumRiskFailed
	}

	return &QuantumRiskAnalysis{
		QuantumAssessment:   assessment,
		RiskDimensions:      uc.riskDimensions(),
		MonteCarloQuantum:   uc.monteCarlo(value),
		NeuralQuantumFusion: uc.fusionLayers(),
		Var95:               FormatUSD(value * 0.05),
		Var99:               FormatUSD(value * 0.08),
		Timestamp:           isoTimestamp(uc.fill.now()),
		QuantumProcessor:    "IBM Quantum-v5.7B",
		ProcessingTime:      processingTime(uc.fill.between(400, 800)),
	}, nil
}

func (uc *QuantumUseCase) riskDimensions() []RiskDimension {
	out := make([]RiskDimension, 0, len(riskDimensionRanges))
	for _, r := range riskDimensionRanges {
		q := uc.fill.between(r.quantum.lo, r.quantum.span)
		c := uc.fill.between(r.classical.lo, r.classical.span)
		out = append(out, RiskDimension{
			Dimension:     r.name,
			QuantumRisk:   q,
			ClassicalRisk: c,
			Advantage:     (c - q) / c * 100,
		})
	}
	return out
}

func (uc *QuantumUseCase) monteCarlo(value float64) []MonteCarloScenario {
	out := make([]MonteCarloScenario, 0, len(monteCarloRanges))
	for _, r := range monteCarloRanges {
		out = append(out, MonteCarloScenario{
			Scenario:          r.name,
			Probability:       r.probability,
			Loss:              value * uc.fill.between(r.loss.lo, r.loss.span),
			QuantumCorrection: uc.fill.between(r.correction.lo, r.correction.span),
		})
	}
	return out
}

func (uc *QuantumUseCase) fusionLayers() []FusionLayer {
	out := make([]FusionLayer, 0, len(fusionRanges))
	for _, r := range fusionRanges {
		out = append(out, FusionLayer{
			Layer:        r.name,
			QuantumBits:  r.bits,
			Entanglement: uc.fill.between(r.entanglement.lo, r.entanglement.span),
			Fidelity:     uc.fill.between(r.fidelity.lo, r.fidelity.span),
		})
	}
	return out
}
