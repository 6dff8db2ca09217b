package server

import (
	"github.com/google/wire"

	"github.com/iWorld-y/fin_agents/app/agents/internal/biz"
	"github.com/iWorld-y/fin_agents/app/agents/internal/data"
	"github.com/iWorld-y/fin_agents/app/agents/internal/service"
)

// ProviderSet 是 agents 服务的依赖注入 Provider 集合
var ProviderSet = wire.NewSet(
	// Server providers
	NewHTTPServer,

	// Data providers
	data.ProviderSet,

	// UseCase providers
	biz.ProviderSet,

	// Service providers
	service.ProviderSet,
)
