package biz

import "github.com/go-kratos/kratos/v2/errors"

var (
	ErrSymbolRequired         = errors.BadRequest("SYMBOL_REQUIRED", "Symbol is required")
	ErrRiskToleranceRequired  = errors.BadRequest("RISK_TOLERANCE_REQUIRED", "Risk tolerance and time horizon are required")
	ErrPortfolioValueRequired = errors.BadRequest("PORTFOLIO_VALUE_REQUIRED", "Portfolio value is required")
	ErrPortfolioValueInvalid  = errors.BadRequest("PORTFOLIO_VALUE_INVALID", "Portfolio value must be a number")
	ErrCompanyRequired        = errors.BadRequest("COMPANY_REQUIRED", "Company name is required")
	ErrMarketAnalysisFailed   = errors.InternalServer("MARKET_ANALYSIS_FAILED", "Failed to analyze market data")
	ErrPortfolioFailed        = errors.InternalServer("PORTFOLIO_OPTIMIZATION_FAILED", "Failed to optimize portfolio")
	ErrQuantumRiskFailed      = errors.InternalServer("QUANTUM_RISK_FAILED", "Failed to perform quantum risk analysis")
	ErrResearchFailed         = errors.InternalServer("RESEARCH_FAILED", "Failed to conduct research analysis")
	ErrRiskAssessmentFailed   = errors.InternalServer("RISK_ASSESSMENT_FAILED", "Failed to assess portfolio risk")
	ErrRunHistoryUnavailable  = errors.InternalServer("RUN_HISTORY_UNAVAILABLE", "Failed to load agent runs")
)

// FailureFor returns the generic failure reported by an agent route.
func FailureFor(agent string) *errors.Error {
	switch agent {
	case AgentMarketAnalysis:
		return ErrMarketAnalysisFailed
	case AgentPortfolioOptimizer:
		return ErrPortfolioFailed
	case AgentQuantumRisk:
		return ErrQuantumRiskFailed
	case AgentResearch:
		return ErrResearchFailed
	case AgentRiskAssessment:
		return ErrRiskAssessmentFailed
	default:
		return errors.InternalServer("UNKNOWN", "unknown request error")
	}
}
