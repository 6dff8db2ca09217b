package factory

import (
	"fmt"

	"github.com/iWorld-y/fin_agents/app/agents/pkg/search"
	"github.com/iWorld-y/fin_agents/app/agents/pkg/searxng"
	"github.com/iWorld-y/fin_agents/app/agents/pkg/tavily"
)

// Options 搜索提供方配置
type Options struct {
	Provider       string
	TavilyAPIKey   string
	SearXNGBaseURL string
	SearXNGTimeout int
}

// NewSearcher 根据配置创建搜索实例; Provider 为空时返回 nil, 表示不启用新闻搜索
func NewSearcher(o Options) (search.Searcher, error) {
	switch o.Provider {
	case "":
		return nil, nil
	case "tavily":
		if o.TavilyAPIKey == "" {
			return nil, fmt.Errorf("tavily api key is missing")
		}
		return tavily.NewClient(o.TavilyAPIKey), nil
	case "searxng":
		if o.SearXNGBaseURL == "" {
			return nil, fmt.Errorf("searxng base url is missing")
		}
		return searxng.NewClient(o.SearXNGBaseURL, o.SearXNGTimeout), nil
	default:
		return nil, fmt.Errorf("unknown search provider: %s", o.Provider)
	}
}
