package service

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/iWorld-y/fin_agents/app/agents/internal/biz"
)

// FlexString accepts a JSON string, number or bool. Falsy values (null, "",
// 0, false) decode to the empty string so they count as missing.
type FlexString string

func (f *FlexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0, bytes.Equal(b, []byte("null")), bytes.Equal(b, []byte("false")):
		*f = ""
	case b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = FlexString(s)
	case b[0] == '-' || (b[0] >= '0' && b[0] <= '9'):
		v, err := strconv.ParseFloat(string(b), 64)
		if err != nil {
			return err
		}
		if v == 0 {
			*f = ""
			return nil
		}
		*f = FlexString(b)
	default:
		// true, objects and arrays are truthy; keep their JSON text
		*f = FlexString(b)
	}
	return nil
}

func (f FlexString) String() string { return string(f) }

type MarketAnalysisRequest struct {
	Symbol FlexString `json:"symbol"`
}

type PortfolioOptimizerRequest struct {
	RiskTolerance     FlexString      `json:"riskTolerance"`
	TimeHorizon       FlexString      `json:"timeHorizon"`
	CurrentAllocation json.RawMessage `json:"currentAllocation"`
}

type QuantumRiskRequest struct {
	PortfolioValue FlexString `json:"portfolioValue"`
}

type ResearchRequest struct {
	Company FlexString `json:"company"`
}

type RiskAssessmentRequest struct {
	PortfolioValue FlexString      `json:"portfolioValue"`
	Assets         json.RawMessage `json:"assets"`
}

type ListRunsRequest struct {
	Agent string
	Limit int
}

type ListRunsReply struct {
	Runs []*biz.AgentRun `json:"runs"`
}

type HealthReply struct {
	Status   string `json:"status"`
	Provider string `json:"provider"`
	Model    string `json:"model"`
	Time     string `json:"time"`
}
