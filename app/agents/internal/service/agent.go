package service

import (
	"context"
	"time"

	"github.com/go-kratos/kratos/v2/log"

	"github.com/iWorld-y/fin_agents/app/agents/internal/biz"
)

// AgentService 实现全部 agent 接口
type AgentService struct {
	market    *biz.MarketUseCase
	portfolio *biz.PortfolioUseCase
	quantum   *biz.QuantumUseCase
	research  *biz.ResearchUseCase
	risk      *biz.RiskUseCase
	runs      *biz.RunUseCase
	model     biz.ModelInfo
	log       *log.Helper
}

func NewAgentService(
	market *biz.MarketUseCase,
	portfolio *biz.PortfolioUseCase,
	quantum *biz.QuantumUseCase,
	research *biz.ResearchUseCase,
	risk *biz.RiskUseCase,
	runs *biz.RunUseCase,
	model biz.ModelInfo,
	logger log.Logger,
) *AgentService {
	return &AgentService{
		market:    market,
		portfolio: portfolio,
		quantum:   quantum,
		research:  research,
		risk:      risk,
		runs:      runs,
		model:     model,
		log:       log.NewHelper(logger),
	}
}

func (s *AgentService) MarketAnalysis(ctx context.Context, req *MarketAnalysisRequest) (*biz.MarketAnalysis, error) {
	return s.market.Analyze(ctx, req.Symbol.String())
}

func (s *AgentService) PortfolioOptimizer(ctx context.Context, req *PortfolioOptimizerRequest) (*biz.PortfolioOptimization, error) {
	return s.portfolio.Optimize(ctx, &biz.PortfolioRequest{
		RiskTolerance:     req.RiskTolerance.String(),
		TimeHorizon:       req.TimeHorizon.String(),
		CurrentAllocation: req.CurrentAllocation,
	})
}

func (s *AgentService) QuantumRisk(ctx context.Context, req *QuantumRiskRequest) (*biz.QuantumRiskAnalysis, error) {
	return s.quantum.Assess(ctx, req.PortfolioValue.String())
}

func (s *AgentService) Research(ctx context.Context, req *ResearchRequest) (*biz.ResearchAnalysis, error) {
	return s.research.Research(ctx, req.Company.String())
}

func (s *AgentService) RiskAssessment(ctx context.Context, req *RiskAssessmentRequest) (*biz.RiskAssessment, error) {
	return s.risk.Assess(ctx, &biz.RiskRequest{
		PortfolioValue: req.PortfolioValue.String(),
		Assets:         req.Assets,
	})
}

func (s *AgentService) ListRuns(ctx context.Context, req *ListRunsRequest) (*ListRunsReply, error) {
	runs, err := s.runs.List(ctx, req.Agent, req.Limit)
	if err != nil {
		return nil, err
	}
	return &ListRunsReply{Runs: runs}, nil
}

func (s *AgentService) Health(ctx context.Context) *HealthReply {
	return &HealthReply{
		Status:   "ok",
		Provider: s.model.Provider(),
		Model:    s.model.Model(),
		Time:     time.Now().UTC().Format(time.RFC3339),
	}
}
