package data

import (
	"context"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/iWorld-y/fin_agents/app/agents/internal/conf"
)

// openAICompleter talks to any OpenAI compatible endpoint through eino.
// jsonCM is configured with the json_object response format.
type openAICompleter struct {
	cm     model.BaseChatModel
	jsonCM model.BaseChatModel
}

func newOpenAICompleter(ctx context.Context, c *conf.LLM) (*openAICompleter, error) {
	cfg := &openai.ChatModelConfig{
		BaseURL: c.BaseUrl,
		APIKey:  c.ApiKey,
		Model:   c.Model,
	}
	cm, err := openai.NewChatModel(ctx, cfg)
	if err != nil {
		return nil, err
	}

	jsonCfg := *cfg
	jsonCfg.ResponseFormat = &openai.ChatCompletionResponseFormat{
		Type: openai.ChatCompletionResponseFormatTypeJSONObject,
	}
	jsonCM, err := openai.NewChatModel(ctx, &jsonCfg)
	if err != nil {
		return nil, err
	}
	return &openAICompleter{cm: cm, jsonCM: jsonCM}, nil
}

func (o *openAICompleter) Complete(ctx context.Context, system, prompt string, jsonMode bool) (string, error) {
	messages := []*schema.Message{
		{Role: schema.System, Content: system},
		{Role: schema.User, Content: prompt},
	}
	cm := o.cm
	if jsonMode {
		cm = o.jsonCM
	}
	resp, err := cm.Generate(ctx, messages)
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}
