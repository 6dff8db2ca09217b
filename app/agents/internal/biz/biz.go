package biz

import (
	"context"
	"encoding/json"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/wire"
)

// ProviderSet is biz providers.
var ProviderSet = wire.NewSet(
	NewRunUseCase,
	NewMarketUseCase,
	NewPortfolioUseCase,
	NewQuantumUseCase,
	NewResearchUseCase,
	NewRiskUseCase,
)

// Agent names, used as run history keys.
const (
	AgentMarketAnalysis     = "market-analysis"
	AgentPortfolioOptimizer = "portfolio-optimizer"
	AgentQuantumRisk        = "quantum-risk"
	AgentResearch           = "research"
	AgentRiskAssessment     = "risk-assessment"
)

// Agents lists every agent served by this app.
var Agents = []string{
	AgentMarketAnalysis,
	AgentPortfolioOptimizer,
	AgentQuantumRisk,
	AgentResearch,
	AgentRiskAssessment,
}

// Generator is the external text generation model.
//
// GenerateObject decodes the reply into out and validates its struct tags;
// implementations retry malformed replies before giving up.
type Generator interface {
	GenerateText(ctx context.Context, system, prompt string) (string, error)
	GenerateObject(ctx context.Context, system, prompt string, out any) error
}

// ModelInfo names the provider and model serving the agents.
type ModelInfo interface {
	Provider() string
	Model() string
}

// StripCodeFence removes a surrounding markdown code fence from a model reply.
func StripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```JSON")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// filler produces the locally randomized numbers merged into agent replies.
type filler struct {
	rnd func() float64
	now func() time.Time
}

func newFiller() filler {
	return filler{rnd: rand.Float64, now: time.Now}
}

// between returns a uniform value in [lo, lo+span).
func (f filler) between(lo, span float64) float64 {
	return lo + f.rnd()*span
}

// falsyJSON reports whether raw is absent, null, false, "" or a numeric zero.
func falsyJSON(raw json.RawMessage) bool {
	if len(raw) == 0 {
		return true
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return false
	}
	switch x := v.(type) {
	case nil:
		return true
	case bool:
		return !x
	case string:
		return x == ""
	case float64:
		return x == 0
	}
	return false
}
