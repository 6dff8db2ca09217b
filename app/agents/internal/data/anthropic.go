package data

import (
	"context"
	"errors"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/iWorld-y/fin_agents/app/agents/internal/conf"
)

const defaultAnthropicModel = "claude-sonnet-4-5"

type anthropicCompleter struct {
	client    anthropic.Client
	model     string
	maxTokens int64
}

func newAnthropicCompleter(c *conf.LLM) *anthropicCompleter {
	opts := []option.RequestOption{option.WithAPIKey(c.ApiKey)}
	if c.BaseUrl != "" {
		opts = append(opts, option.WithBaseURL(c.BaseUrl))
	}
	return &anthropicCompleter{
		client:    anthropic.NewClient(opts...),
		model:     c.Model,
		maxTokens: int64(maxTokens(c)),
	}
}

func (a *anthropicCompleter) Complete(ctx context.Context, system, prompt string, jsonMode bool) (string, error) {
	resp, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: a.maxTokens,
		System:    []anthropic.TextBlockParam{{Text: system}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return "", errors.New("anthropic reply has no text content")
	}
	return sb.String(), nil
}
