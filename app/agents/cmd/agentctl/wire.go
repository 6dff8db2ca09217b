//go:build wireinject
// +build wireinject

// The build tag makes sure the stub is not built in the final binary.

package main

import (
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/wire"

	"github.com/iWorld-y/fin_agents/app/agents/internal/biz"
	"github.com/iWorld-y/fin_agents/app/agents/internal/conf"
	"github.com/iWorld-y/fin_agents/app/agents/internal/data"
)

// initAgents init the in-process agents.
func initAgents(*conf.LLM, *conf.Search, *conf.Data, log.Logger) (*agentSet, func(), error) {
	panic(wire.Build(
		data.ProviderSet,
		biz.ProviderSet,
		newAgentSet,
	))
}
