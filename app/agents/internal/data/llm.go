package data

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-playground/validator/v10"
	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/iWorld-y/fin_agents/app/agents/internal/biz"
	"github.com/iWorld-y/fin_agents/app/agents/internal/conf"
)

const (
	providerOpenAI    = "openai"
	providerAnthropic = "anthropic"
	providerGemini    = "gemini"

	defaultOpenAIModel = "gpt-4o"

	defaultRPM        = 60
	defaultMaxRetries = 3
	defaultRetryDelay = 2 * time.Second
	defaultMaxTokens  = 4096
)

const jsonInstruction = "\n\nRespond with a single JSON object only. Do not wrap it in markdown."

var defaultModels = map[string]string{
	providerOpenAI:    defaultOpenAIModel,
	providerAnthropic: defaultAnthropicModel,
	providerGemini:    defaultGeminiModel,
}

// completer sends one system+user exchange to a model provider.
type completer interface {
	Complete(ctx context.Context, system, prompt string, jsonMode bool) (string, error)
}

// Gateway 是所有 agent 共用的模型访问入口，负责限流、429 重试和结构化输出校验
type Gateway struct {
	provider   string
	model      string
	cm         completer
	limiter    *rate.Limiter
	maxRetries int
	baseDelay  time.Duration
	validate   *validator.Validate
	log        *log.Helper
}

// NewGateway 根据配置创建模型网关
func NewGateway(c *conf.LLM, logger log.Logger) (*Gateway, error) {
	cfg := conf.LLM{}
	if c != nil {
		cfg = *c
	}
	c = &cfg
	c.Provider = strings.ToLower(c.Provider)
	if c.Provider == "" {
		c.Provider = providerOpenAI
	}
	if c.Model == "" {
		c.Model = defaultModels[c.Provider]
	}
	ctx := context.Background()

	var (
		cm  completer
		err error
	)
	switch c.Provider {
	case providerOpenAI:
		cm, err = newOpenAICompleter(ctx, c)
	case providerAnthropic:
		cm, err = newAnthropicCompleter(c), nil
	case providerGemini:
		cm, err = newGeminiCompleter(ctx, c)
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", c.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("LLM 初始化失败: %w", err)
	}
	return newGateway(cm, c, logger), nil
}

func newGateway(cm completer, c *conf.LLM, logger log.Logger) *Gateway {
	rpm, burst := defaultRPM, 1
	if c.Concurrency != nil {
		if c.Concurrency.Rpm > 0 {
			rpm = int(c.Concurrency.Rpm)
		}
		if c.Concurrency.Burst > 0 {
			burst = int(c.Concurrency.Burst)
		}
	}
	maxRetries := defaultMaxRetries
	if c.MaxRetries > 0 {
		maxRetries = int(c.MaxRetries)
	}
	delay := defaultRetryDelay
	if c.RetryDelay != "" {
		if d, err := time.ParseDuration(c.RetryDelay); err == nil {
			delay = d
		}
	}
	provider := strings.ToLower(c.Provider)
	if provider == "" {
		provider = providerOpenAI
	}

	return &Gateway{
		provider:   provider,
		model:      c.Model,
		cm:         cm,
		limiter:    rate.NewLimiter(rate.Limit(float64(rpm)/60.0), burst),
		maxRetries: maxRetries,
		baseDelay:  delay,
		validate:   validator.New(validator.WithRequiredStructEnabled()),
		log:        log.NewHelper(log.With(logger, "module", "data/llm")),
	}
}

// Provider returns the provider in use.
func (g *Gateway) Provider() string { return g.provider }

// Model returns the model in use, after provider defaults are applied.
func (g *Gateway) Model() string { return g.model }

// GenerateText returns the raw model reply.
func (g *Gateway) GenerateText(ctx context.Context, system, prompt string) (string, error) {
	return g.call(ctx, system, prompt, false, nil)
}

// GenerateObject decodes the model reply into out and validates it. Replies
// that fail to decode or validate are retried like rate-limited calls.
func (g *Gateway) GenerateObject(ctx context.Context, system, prompt string, out any) error {
	rv := reflect.ValueOf(out)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return fmt.Errorf("generate object: out must be a non-nil pointer, got %T", out)
	}
	_, err := g.call(ctx, system, prompt+jsonInstruction, true, func(text string) error {
		return g.decode(text, rv)
	})
	return err
}

func (g *Gateway) call(ctx context.Context, system, prompt string, jsonMode bool, accept func(string) error) (string, error) {
	var lastErr error
	for i := 0; i <= g.maxRetries; i++ {
		if err := g.limiter.Wait(ctx); err != nil {
			return "", err
		}

		text, err := g.cm.Complete(ctx, system, prompt, jsonMode)
		if err != nil {
			if !isRateLimited(err) {
				return "", err
			}
			lastErr = err
			if i < g.maxRetries {
				delay := g.baseDelay * time.Duration(1<<i)
				g.log.WithContext(ctx).Warnf("model rate limited, retry %d/%d in %s", i+1, g.maxRetries, delay)
				if err := sleep(ctx, delay); err != nil {
					return "", err
				}
			}
			continue
		}

		if accept != nil {
			if err := accept(text); err != nil {
				lastErr = err
				g.log.WithContext(ctx).Warnf("malformed model reply (attempt %d/%d): %v", i+1, g.maxRetries+1, err)
				continue
			}
		}
		return text, nil
	}
	return "", fmt.Errorf("failed after %d attempts: %w", g.maxRetries+1, lastErr)
}

// decode unmarshals into a fresh value so a rejected attempt never leaks into out.
func (g *Gateway) decode(text string, out reflect.Value) error {
	fresh := reflect.New(out.Elem().Type())
	if err := json.Unmarshal([]byte(biz.StripCodeFence(text)), fresh.Interface()); err != nil {
		return fmt.Errorf("json unmarshal: %w", err)
	}
	if fresh.Elem().Kind() == reflect.Struct {
		if err := g.validate.Struct(fresh.Interface()); err != nil {
			return fmt.Errorf("validate: %w", err)
		}
	}
	out.Elem().Set(fresh.Elem())
	return nil
}

func isRateLimited(err error) bool {
	var ae *anthropic.Error
	if errors.As(err, &ae) {
		return ae.StatusCode == http.StatusTooManyRequests
	}
	var ge genai.APIError
	if errors.As(err, &ge) {
		return ge.Code == http.StatusTooManyRequests
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "429") || strings.Contains(msg, "too many requests")
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func maxTokens(c *conf.LLM) int {
	if c.MaxTokens > 0 {
		return int(c.MaxTokens)
	}
	return defaultMaxTokens
}
