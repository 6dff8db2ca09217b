package server

import (
	"context"
	"encoding/json"
	"errors"
	nethttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/transport/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iWorld-y/fin_agents/app/agents/internal/biz"
	"github.com/iWorld-y/fin_agents/app/agents/internal/conf"
	"github.com/iWorld-y/fin_agents/app/agents/internal/data"
	"github.com/iWorld-y/fin_agents/app/agents/internal/service"
)

// stubGenerator answers every text call with text and every object call with object.
type stubGenerator struct {
	text   string
	object string
	err    error
}

func (g *stubGenerator) GenerateText(ctx context.Context, system, prompt string) (string, error) {
	return g.text, g.err
}

func (g *stubGenerator) GenerateObject(ctx context.Context, system, prompt string, out any) error {
	if g.err != nil {
		return g.err
	}
	return json.Unmarshal([]byte(g.object), out)
}

func newTestServer(t *testing.T, gen biz.Generator) *http.Server {
	t.Helper()
	logger := log.DefaultLogger
	gateway, err := data.NewGateway(&conf.LLM{Provider: "Anthropic", ApiKey: "test"}, logger)
	require.NoError(t, err)
	runs := biz.NewRunUseCase(data.NewRunRepo(&data.Data{}, logger), logger)
	svc := service.NewAgentService(
		biz.NewMarketUseCase(gen, runs, logger),
		biz.NewPortfolioUseCase(gen, runs, logger),
		biz.NewQuantumUseCase(gen, runs, logger),
		biz.NewResearchUseCase(gen, nil, runs, logger),
		biz.NewRiskUseCase(gen, runs, logger),
		runs,
		gateway,
		logger,
	)
	c := &conf.Server{Http: &conf.HTTP{CorsOrigins: []string{"http://localhost:3000"}}}
	return NewHTTPServer(c, svc, logger)
}

func do(t *testing.T, srv *http.Server, method, path, body string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	var out map[string]any
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	}
	return w.Code, out
}

func TestAgentRoutes_MissingFields(t *testing.T) {
	srv := newTestServer(t, &stubGenerator{})

	cases := []struct {
		path, body, msg string
	}{
		{"/api/agents/market-analysis", `{}`, "Symbol is required"},
		{"/api/agents/market-analysis", `{"symbol": ""}`, "Symbol is required"},
		{"/api/agents/market-analysis", `{"symbol": 0}`, "Symbol is required"},
		{"/api/agents/portfolio-optimizer", `{"riskTolerance": 5}`, "Risk tolerance and time horizon are required"},
		{"/api/agents/portfolio-optimizer", `{"timeHorizon": "10"}`, "Risk tolerance and time horizon are required"},
		{"/api/agents/quantum-risk", `{"portfolioValue": null}`, "Portfolio value is required"},
		{"/api/agents/quantum-risk", `{"portfolioValue": "lots"}`, "Portfolio value must be a number"},
		{"/api/agents/research", `{"company": false}`, "Company name is required"},
		{"/api/agents/risk-assessment", `{"assets": []}`, "Portfolio value is required"},
	}
	for _, tc := range cases {
		code, body := do(t, srv, nethttp.MethodPost, tc.path, tc.body)
		assert.Equal(t, nethttp.StatusBadRequest, code, tc.path+" "+tc.body)
		assert.Equal(t, map[string]any{"error": tc.msg}, body, tc.path+" "+tc.body)
	}
}

func TestAgentRoutes_InvalidBody(t *testing.T) {
	srv := newTestServer(t, &stubGenerator{})

	code, body := do(t, srv, nethttp.MethodPost, "/api/agents/market-analysis", `{"symbol":`)
	assert.Equal(t, nethttp.StatusInternalServerError, code)
	assert.Equal(t, "Failed to analyze market data", body["error"])

	code, body = do(t, srv, nethttp.MethodPost, "/api/agents/risk-assessment", ``)
	assert.Equal(t, nethttp.StatusInternalServerError, code)
	assert.Equal(t, "Failed to assess portfolio risk", body["error"])
}

func TestAgentRoutes_ModelFailure(t *testing.T) {
	srv := newTestServer(t, &stubGenerator{err: errors.New("upstream exploded")})

	for path, msg := range map[string]string{
		"/api/agents/market-analysis":     "Failed to analyze market data",
		"/api/agents/portfolio-optimizer": "Failed to optimize portfolio",
		"/api/agents/quantum-risk":        "Failed to perform quantum risk analysis",
		"/api/agents/research":            "Failed to conduct research analysis",
		"/api/agents/risk-assessment":     "Failed to assess portfolio risk",
	} {
		body := `{"symbol":"AAPL","riskTolerance":"5","timeHorizon":"10","portfolioValue":"100000","company":"Apple"}`
		code, out := do(t, srv, nethttp.MethodPost, path, body)
		assert.Equal(t, nethttp.StatusInternalServerError, code, path)
		assert.Equal(t, map[string]any{"error": msg}, out, path)
	}
}

func TestMarketAnalysisRoute(t *testing.T) {
	srv := newTestServer(t, &stubGenerator{text: "```json\n" +
		`{"trend":"bullish","confidence":80,"keyPoints":["a"],"recommendation":"BUY","targetPrice":"$210","riskLevel":"low"}` + "\n```"})

	code, body := do(t, srv, nethttp.MethodPost, "/api/agents/market-analysis", `{"symbol":"aapl"}`)
	require.Equal(t, nethttp.StatusOK, code)
	assert.Equal(t, "AAPL", body["symbol"])
	assert.Equal(t, "bullish", body["trend"])
	assert.Equal(t, "$210", body["targetPrice"])
	assert.Equal(t, "XNYS", body["exchange"])
	for _, k := range []string{"confidence", "keyPoints", "recommendation", "riskLevel", "marketOpen", "timestamp"} {
		assert.Contains(t, body, k)
	}
}

func TestMarketAnalysisRoute_Fallback(t *testing.T) {
	srv := newTestServer(t, &stubGenerator{text: "no json here"})

	code, body := do(t, srv, nethttp.MethodPost, "/api/agents/market-analysis", `{"symbol":"MSFT"}`)
	require.Equal(t, nethttp.StatusOK, code)
	assert.Equal(t, "neutral", body["trend"])
	assert.Equal(t, float64(75), body["confidence"])
	assert.Equal(t, "HOLD", body["recommendation"])
	assert.Equal(t, "N/A", body["targetPrice"])
}

func TestRiskAssessmentRoute(t *testing.T) {
	srv := newTestServer(t, &stubGenerator{object: `{
		"riskScore": 62, "riskLevel": "medium", "var95": 5, "var99": 8,
		"sharpeRatio": 1.05, "maxDrawdown": 21, "diversificationScore": 68,
		"recommendations": ["Rebalance quarterly"]
	}`})

	code, body := do(t, srv, nethttp.MethodPost, "/api/agents/risk-assessment", `{"portfolioValue": 100000}`)
	require.Equal(t, nethttp.StatusOK, code)
	assert.Equal(t, "$100,000", body["portfolioValue"])
	assert.Equal(t, "$5,000", body["var95"])
	assert.Equal(t, "$8,000", body["var99"])
	assert.Equal(t, "21%", body["maxDrawdown"])
	riskScore, ok := body["riskScore"].(float64)
	require.True(t, ok)
	assert.GreaterOrEqual(t, riskScore, 0.0)
	assert.LessOrEqual(t, riskScore, 100.0)

	code, runs := do(t, srv, nethttp.MethodGet, "/api/agents/runs?agent=risk-assessment&limit=5", "")
	require.Equal(t, nethttp.StatusOK, code)
	list, ok := runs["runs"].([]any)
	require.True(t, ok)
	require.Len(t, list, 1)
	run := list[0].(map[string]any)
	assert.Equal(t, "risk-assessment", run["agent"])
	assert.Equal(t, "ok", run["status"])
}

func TestPortfolioOptimizerRoute(t *testing.T) {
	srv := newTestServer(t, &stubGenerator{text: "context", object: `{
		"expectedReturn": 6, "expectedRisk": 10, "sharpeRatio": 0.8, "optimizationScore": 90,
		"currentAllocation": [{"asset":"Stocks","current":60,"optimal":55,"change":-5,"reasoning":"r"},
			{"asset":"Bonds","current":40,"optimal":45,"change":5,"reasoning":"r"}],
		"rebalanceActions": ["sell stocks"],
		"riskAdjustments": [{"adjustment":"a","impact":"i","priority":"low"}],
		"marketOutlook": {"timeHorizon":"10y","expectedScenario":"base","keyRisks":["k"],"opportunities":["o"]}
	}`})

	code, body := do(t, srv, nethttp.MethodPost, "/api/agents/portfolio-optimizer", `{"riskTolerance":7,"timeHorizon":"10"}`)
	require.Equal(t, nethttp.StatusOK, code)
	alloc := body["currentAllocation"].([]any)
	require.Len(t, alloc, 2)
	assert.Equal(t, "#3b82f6", alloc[0].(map[string]any)["color"])
	assert.Equal(t, "#10b981", alloc[1].(map[string]any)["color"])
	assert.Len(t, body["performanceProjection"], 10)
	assert.Len(t, body["efficientFrontier"], 21)
	assert.Equal(t, "Genetic Algorithm + Deep RL", body["optimizationMethod"])
}

func TestRunsRoute_Empty(t *testing.T) {
	srv := newTestServer(t, &stubGenerator{})
	code, body := do(t, srv, nethttp.MethodGet, "/api/agents/runs", "")
	require.Equal(t, nethttp.StatusOK, code)
	assert.Equal(t, []any{}, body["runs"])
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t, &stubGenerator{})
	code, body := do(t, srv, nethttp.MethodGet, "/healthz", "")
	require.Equal(t, nethttp.StatusOK, code)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "anthropic", body["provider"])
	assert.Equal(t, "claude-sonnet-4-5", body["model"])
}

func TestCORS(t *testing.T) {
	srv := newTestServer(t, &stubGenerator{})

	req := httptest.NewRequest(nethttp.MethodOptions, "/api/agents/research", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	assert.Equal(t, nethttp.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "POST")

	req = httptest.NewRequest(nethttp.MethodOptions, "/api/agents/research", nil)
	req.Header.Set("Origin", "https://evil.example")
	w = httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}
