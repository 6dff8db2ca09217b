package data

import (
	"context"
	"errors"

	"google.golang.org/genai"

	"github.com/iWorld-y/fin_agents/app/agents/internal/conf"
)

const defaultGeminiModel = "gemini-2.5-flash"

type geminiCompleter struct {
	client    *genai.Client
	model     string
	maxTokens int32
}

func newGeminiCompleter(ctx context.Context, c *conf.LLM) (*geminiCompleter, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  c.ApiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}
	return &geminiCompleter{client: client, model: c.Model, maxTokens: int32(maxTokens(c))}, nil
}

func (g *geminiCompleter) Complete(ctx context.Context, system, prompt string, jsonMode bool) (string, error) {
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
		MaxOutputTokens:   g.maxTokens,
	}
	if jsonMode {
		cfg.ResponseMIMEType = "application/json"
	}
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), cfg)
	if err != nil {
		return "", err
	}
	text := resp.Text()
	if text == "" {
		return "", errors.New("gemini reply has no text content")
	}
	return text, nil
}
