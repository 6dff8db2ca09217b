package data

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-shiori/go-readability"
	"golang.org/x/sync/errgroup"

	"github.com/iWorld-y/fin_agents/app/agents/internal/biz"
	"github.com/iWorld-y/fin_agents/app/agents/internal/conf"
	"github.com/iWorld-y/fin_agents/app/agents/pkg/search"
	"github.com/iWorld-y/fin_agents/app/agents/pkg/search/factory"
)

const (
	defaultMaxArticles = 5
	newsLookbackDays   = 7
	minSnippetLen      = 200
	maxArticleLen      = 1500
	fetchTimeout       = 30 * time.Second
	fetchConcurrency   = 3
)

type newsSource struct {
	searcher    search.Searcher
	maxArticles int
	fetch       func(ctx context.Context, pageURL string) (string, error)
	log         *log.Helper
}

// NewNewsSource 创建新闻来源; 未配置搜索提供方时返回 nil, research agent 将跳过新闻
func NewNewsSource(c *conf.Search, logger log.Logger) (biz.NewsSource, error) {
	if c == nil || c.Provider == "" {
		return nil, nil
	}
	opts := factory.Options{Provider: strings.ToLower(c.Provider)}
	if c.Tavily != nil {
		opts.TavilyAPIKey = c.Tavily.ApiKey
	}
	if c.Searxng != nil {
		opts.SearXNGBaseURL = c.Searxng.BaseUrl
		opts.SearXNGTimeout = int(c.Searxng.Timeout)
	}
	s, err := factory.NewSearcher(opts)
	if err != nil {
		return nil, err
	}
	return newNewsSource(s, int(c.MaxArticles), logger), nil
}

func newNewsSource(s search.Searcher, maxArticles int, logger log.Logger) *newsSource {
	if maxArticles <= 0 {
		maxArticles = defaultMaxArticles
	}
	return &newsSource{
		searcher:    s,
		maxArticles: maxArticles,
		fetch:       fetchAndCleanContent,
		log:         log.NewHelper(log.With(logger, "module", "data/news")),
	}
}

// RecentNews searches recent articles about query. Short snippets are replaced
// by the extracted page text when the page can be fetched. Fetching stops once
// ctx is done and the context error is returned.
func (n *newsSource) RecentNews(ctx context.Context, query string) ([]biz.NewsArticle, error) {
	resp, err := n.searcher.Search(ctx, &search.Request{
		Query:      query + " stock news",
		Topic:      "news",
		MaxResults: n.maxArticles,
		Days:       newsLookbackDays,
	})
	if err != nil {
		return nil, err
	}

	results := resp.Results
	if len(results) > n.maxArticles {
		results = results[:n.maxArticles]
	}
	articles := make([]biz.NewsArticle, len(results))

	g := new(errgroup.Group)
	g.SetLimit(fetchConcurrency)
	for i, r := range results {
		articles[i] = biz.NewsArticle{
			Title:         r.Title,
			URL:           r.URL,
			PublishedDate: r.PublishedDate,
			Content:       r.Content,
		}
		if len(r.Content) >= minSnippetLen || r.URL == "" || ctx.Err() != nil {
			continue
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			text, err := n.fetch(ctx, r.URL)
			if err != nil {
				n.log.WithContext(ctx).Debugf("fetch %s: %v", r.URL, err)
				return nil
			}
			if text != "" {
				articles[i].Content = text
			}
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for i := range articles {
		articles[i].Content = truncate(collapseSpace(articles[i].Content), maxArticleLen)
	}
	return articles, nil
}

var fetchClient = &http.Client{Timeout: fetchTimeout}

func fetchAndCleanContent(ctx context.Context, pageURL string) (string, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; fin-agents/1.0)")
	resp, err := fetchClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch %s: status %d", pageURL, resp.StatusCode)
	}
	article, err := readability.FromReader(resp.Body, u)
	if err != nil {
		return "", err
	}
	return article.TextContent, nil
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
