package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strconv"

	"github.com/go-kratos/kratos/v2/encoding"
	"github.com/go-kratos/kratos/v2/encoding/json"
	"github.com/go-kratos/kratos/v2/transport/http"

	"github.com/iWorld-y/fin_agents/app/agents/internal/biz"
)

// Operation names reported to the server middleware for each agent route.
const (
	OperationMarketAnalysis     = "agents.MarketAnalysis"
	OperationPortfolioOptimizer = "agents.PortfolioOptimizer"
	OperationQuantumRisk        = "agents.QuantumRisk"
	OperationResearch           = "agents.Research"
	OperationRiskAssessment     = "agents.RiskAssessment"
	OperationListRuns           = "agents.ListRuns"
)

// AgentHTTPServer is served by RegisterAgentHTTPServer.
type AgentHTTPServer interface {
	MarketAnalysis(context.Context, *MarketAnalysisRequest) (*biz.MarketAnalysis, error)
	PortfolioOptimizer(context.Context, *PortfolioOptimizerRequest) (*biz.PortfolioOptimization, error)
	QuantumRisk(context.Context, *QuantumRiskRequest) (*biz.QuantumRiskAnalysis, error)
	Research(context.Context, *ResearchRequest) (*biz.ResearchAnalysis, error)
	RiskAssessment(context.Context, *RiskAssessmentRequest) (*biz.RiskAssessment, error)
	ListRuns(context.Context, *ListRunsRequest) (*ListRunsReply, error)
	Health(context.Context) *HealthReply
}

// RegisterAgentHTTPServer mounts the agent, run history and health routes on s.
func RegisterAgentHTTPServer(s *http.Server, srv AgentHTTPServer) {
	r := s.Route("/")
	r.POST("/api/agents/market-analysis", agentHandler(biz.AgentMarketAnalysis, OperationMarketAnalysis, srv.MarketAnalysis))
	r.POST("/api/agents/portfolio-optimizer", agentHandler(biz.AgentPortfolioOptimizer, OperationPortfolioOptimizer, srv.PortfolioOptimizer))
	r.POST("/api/agents/quantum-risk", agentHandler(biz.AgentQuantumRisk, OperationQuantumRisk, srv.QuantumRisk))
	r.POST("/api/agents/research", agentHandler(biz.AgentResearch, OperationResearch, srv.Research))
	r.POST("/api/agents/risk-assessment", agentHandler(biz.AgentRiskAssessment, OperationRiskAssessment, srv.RiskAssessment))
	r.GET("/api/agents/runs", listRunsHandler(srv))
	r.GET("/healthz", func(ctx http.Context) error {
		return ctx.JSON(200, srv.Health(ctx))
	})
}

// agentHandler decodes the body into Req and runs call through the server middleware.
// An unreadable body is reported with the route's generic failure.
func agentHandler[Req any, Reply any](agent, operation string, call func(context.Context, *Req) (*Reply, error)) http.HandlerFunc {
	return func(ctx http.Context) error {
		var in Req
		if err := decodeBody(ctx.Request().Body, &in); err != nil {
			return biz.FailureFor(agent).WithCause(err)
		}
		http.SetOperation(ctx, operation)
		h := ctx.Middleware(func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(ctx, req.(*Req))
		})
		out, err := h(ctx, &in)
		if err != nil {
			return err
		}
		return ctx.JSON(200, out)
	}
}

func listRunsHandler(srv AgentHTTPServer) func(ctx http.Context) error {
	return func(ctx http.Context) error {
		q := ctx.Query()
		in := ListRunsRequest{Agent: q.Get("agent")}
		if v := q.Get("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				in.Limit = n
			}
		}
		http.SetOperation(ctx, OperationListRuns)
		h := ctx.Middleware(func(ctx context.Context, req interface{}) (interface{}, error) {
			return srv.ListRuns(ctx, req.(*ListRunsRequest))
		})
		out, err := h(ctx, &in)
		if err != nil {
			return err
		}
		return ctx.JSON(200, out)
	}
}

var errNullBody = errors.New("request body is null")

// decodeBody parses the body as JSON whatever the Content-Type says.
func decodeBody(body io.Reader, v any) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return errNullBody
	}
	return encoding.GetCodec(json.Name).Unmarshal(data, v)
}
