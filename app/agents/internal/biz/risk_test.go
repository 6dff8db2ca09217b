package biz

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const riskJSON = `{
	"riskScore": 58,
	"riskLevel": "medium",
	"var95": 5,
	"var99": 8.25,
	"sharpeRatio": 1.12,
	"maxDrawdown": 18.5,
	"diversificationScore": 72,
	"recommendations": ["Reduce single-stock concentration", "Add short-duration bonds"]
}`

func newTestRisk(gen Generator) (*RiskUseCase, *mockRunRepo) {
	runs, repo := newTestRuns()
	uc := NewRiskUseCase(gen, runs, log.DefaultLogger)
	uc.fill = testFiller(0.5)
	return uc, repo
}

func TestRiskUseCase_Assess(t *testing.T) {
	gen := &fakeGenerator{objects: []string{riskJSON}}
	uc, repo := newTestRisk(gen)

	got, err := uc.Assess(context.Background(), &RiskRequest{PortfolioValue: "100000"})
	require.NoError(t, err)
	assert.Equal(t, "$100,000", got.PortfolioValue)
	assert.Equal(t, "$5,000", got.Var95)
	assert.Equal(t, "$8,250", got.Var99)
	assert.Equal(t, "18.5%", got.MaxDrawdown)
	assert.Equal(t, 58.0, got.RiskScore)
	assert.Equal(t, "medium", got.RiskLevel)
	assert.Equal(t, 1.12, got.SharpeRatio)
	assert.Len(t, got.Recommendations, 2)
	assert.True(t, strings.HasPrefix(got.Var95, "$"))
	assert.Equal(t, "2024-10-07T14:30:00.000Z", got.Timestamp)

	assert.Contains(t, gen.lastPrompt(), "portfolio with value $100,000 and provide")
	assert.Equal(t, RunStatusOK, repo.last().Status)
}

func TestRiskUseCase_AssessWithAssets(t *testing.T) {
	gen := &fakeGenerator{objects: []string{riskJSON}}
	uc, _ := newTestRisk(gen)

	_, err := uc.Assess(context.Background(), &RiskRequest{
		PortfolioValue: "250000",
		Assets:         []byte(`[{"symbol":"AAPL","weight":0.6}]`),
	})
	require.NoError(t, err)
	assert.Contains(t, gen.lastPrompt(), `value $250,000 holding [{"symbol":"AAPL","weight":0.6}] and provide`)
}

func TestRiskUseCase_AssessErrors(t *testing.T) {
	uc, _ := newTestRisk(&fakeGenerator{})
	_, err := uc.Assess(context.Background(), &RiskRequest{})
	assert.Equal(t, ErrPortfolioValueRequired, err)

	_, err = uc.Assess(context.Background(), &RiskRequest{PortfolioValue: "a lot"})
	assert.Equal(t, ErrPortfolioValueInvalid, err)

	uc, repo := newTestRisk(&fakeGenerator{objErr: errors.New("validation failed")})
	_, err = uc.Assess(context.Background(), &RiskRequest{PortfolioValue: "1000"})
	assert.Equal(t, ErrRiskAssessmentFailed, err)
	assert.Equal(t, RunStatusError, repo.last().Status)
}
