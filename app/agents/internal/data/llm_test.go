package data

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/iWorld-y/fin_agents/app/agents/internal/conf"
)

type reply struct {
	text string
	err  error
}

// scriptedCompleter returns replies in order.
type scriptedCompleter struct {
	mu       sync.Mutex
	replies  []reply
	calls    int
	prompts  []string
	jsonMode []bool
}

func (s *scriptedCompleter) Complete(ctx context.Context, system, prompt string, jsonMode bool) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.prompts = append(s.prompts, prompt)
	s.jsonMode = append(s.jsonMode, jsonMode)
	if len(s.replies) == 0 {
		return "", errors.New("script exhausted")
	}
	r := s.replies[0]
	s.replies = s.replies[1:]
	return r.text, r.err
}

func testLLMConf() *conf.LLM {
	return &conf.LLM{
		Provider:    "openai",
		Model:       "gpt-4o",
		MaxRetries:  2,
		RetryDelay:  "1ms",
		Concurrency: &conf.Concurrency{Rpm: 60000, Burst: 10},
	}
}

type scored struct {
	Score float64 `json:"score" validate:"min=0,max=100"`
	Level string  `json:"level" validate:"oneof=low medium high"`
}

func TestGateway_GenerateText(t *testing.T) {
	cm := &scriptedCompleter{replies: []reply{{text: "hello"}}}
	g := newGateway(cm, testLLMConf(), log.DefaultLogger)

	got, err := g.GenerateText(context.Background(), "sys", "prompt")
	require.NoError(t, err)
	assert.Equal(t, "hello", got)
	assert.Equal(t, []bool{false}, cm.jsonMode)
	assert.Equal(t, "openai", g.Provider())
	assert.Equal(t, "gpt-4o", g.Model())
}

func TestGateway_RetriesRateLimit(t *testing.T) {
	cm := &scriptedCompleter{replies: []reply{
		{err: errors.New("error, status code: 429, message: Rate limit reached")},
		{err: errors.New("Too Many Requests")},
		{text: "ok"},
	}}
	g := newGateway(cm, testLLMConf(), log.DefaultLogger)

	got, err := g.GenerateText(context.Background(), "sys", "prompt")
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 3, cm.calls)
}

func TestGateway_RateLimitExhausted(t *testing.T) {
	limited := errors.New("429")
	cm := &scriptedCompleter{replies: []reply{{err: limited}, {err: limited}, {err: limited}, {text: "late"}}}
	g := newGateway(cm, testLLMConf(), log.DefaultLogger)

	_, err := g.GenerateText(context.Background(), "sys", "prompt")
	require.Error(t, err)
	assert.ErrorIs(t, err, limited)
	assert.Equal(t, 3, cm.calls)
}

func TestGateway_OtherErrorsNotRetried(t *testing.T) {
	cm := &scriptedCompleter{replies: []reply{{err: errors.New("invalid api key")}, {text: "never"}}}
	g := newGateway(cm, testLLMConf(), log.DefaultLogger)

	_, err := g.GenerateText(context.Background(), "sys", "prompt")
	assert.EqualError(t, err, "invalid api key")
	assert.Equal(t, 1, cm.calls)
}

func TestGateway_GenerateObject(t *testing.T) {
	cm := &scriptedCompleter{replies: []reply{{text: "```json\n{\"score\": 42, \"level\": \"medium\"}\n```"}}}
	g := newGateway(cm, testLLMConf(), log.DefaultLogger)

	var out scored
	require.NoError(t, g.GenerateObject(context.Background(), "sys", "rate it", &out))
	assert.Equal(t, scored{Score: 42, Level: "medium"}, out)
	assert.Equal(t, []bool{true}, cm.jsonMode)
	assert.Contains(t, cm.prompts[0], "rate it")
	assert.Contains(t, cm.prompts[0], "single JSON object")
}

func TestGateway_GenerateObjectRetriesMalformed(t *testing.T) {
	cm := &scriptedCompleter{replies: []reply{
		{text: "sure! here you go"},
		{text: `{"score": 420, "level": "medium"}`},
		{text: `{"score": 12, "level": "low"}`},
	}}
	g := newGateway(cm, testLLMConf(), log.DefaultLogger)

	var out scored
	require.NoError(t, g.GenerateObject(context.Background(), "sys", "rate it", &out))
	assert.Equal(t, scored{Score: 12, Level: "low"}, out)
	assert.Equal(t, 3, cm.calls)
}

func TestGateway_GenerateObjectGivesUp(t *testing.T) {
	cm := &scriptedCompleter{replies: []reply{
		{text: `{"score": 1, "level": "extreme"}`},
		{text: `{"score": 1, "level": "extreme"}`},
		{text: `{"score": 1, "level": "extreme"}`},
	}}
	g := newGateway(cm, testLLMConf(), log.DefaultLogger)

	out := scored{Score: 7, Level: "low"}
	err := g.GenerateObject(context.Background(), "sys", "rate it", &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validate")
	assert.Equal(t, scored{Score: 7, Level: "low"}, out, "rejected replies must not leak into out")

	assert.Error(t, g.GenerateObject(context.Background(), "sys", "p", out))
}

func TestGateway_ContextCancelled(t *testing.T) {
	cm := &scriptedCompleter{replies: []reply{{err: errors.New("429")}, {text: "ok"}}}
	c := testLLMConf()
	c.RetryDelay = "1h"
	g := newGateway(cm, c, log.DefaultLogger)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := g.GenerateText(ctx, "sys", "prompt")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIsRateLimited(t *testing.T) {
	assert.True(t, isRateLimited(&anthropic.Error{StatusCode: http.StatusTooManyRequests}))
	assert.True(t, isRateLimited(fmt.Errorf("wrapped: %w", genai.APIError{Code: 429})))
	assert.True(t, isRateLimited(errors.New("HTTP 429")))
	assert.False(t, isRateLimited(genai.APIError{Code: 500, Message: "internal"}))
	assert.False(t, isRateLimited(errors.New("connection refused")))
}

func TestNewGateway_UnknownProvider(t *testing.T) {
	_, err := NewGateway(&conf.LLM{Provider: "mistral"}, log.DefaultLogger)
	assert.EqualError(t, err, "unknown llm provider: mistral")
}

func TestNewGateway_Defaults(t *testing.T) {
	g := newGateway(&scriptedCompleter{}, &conf.LLM{}, log.DefaultLogger)
	assert.Equal(t, "openai", g.Provider())
	assert.Equal(t, defaultMaxRetries, g.maxRetries)
	assert.Equal(t, defaultRetryDelay, g.baseDelay)
	assert.Equal(t, 1, g.limiter.Burst())
}

func TestNewGateway_ModelDefaults(t *testing.T) {
	cases := []struct {
		provider, model, wantProvider, wantModel string
	}{
		{"", "", "openai", defaultOpenAIModel},
		{"anthropic", "", "anthropic", defaultAnthropicModel},
		{"Gemini", "", "gemini", defaultGeminiModel},
		{"anthropic", "claude-opus-4-1", "anthropic", "claude-opus-4-1"},
	}
	for _, tc := range cases {
		c := &conf.LLM{Provider: tc.provider, Model: tc.model, ApiKey: "test"}
		g, err := NewGateway(c, log.DefaultLogger)
		require.NoError(t, err, tc.provider)
		assert.Equal(t, tc.wantProvider, g.Provider())
		assert.Equal(t, tc.wantModel, g.Model())
		assert.Equal(t, tc.model, c.Model, "config is not modified")
	}
}
