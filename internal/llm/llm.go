package llm

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/adk/model"
	"google.golang.org/adk/model/gemini"
	"google.golang.org/genai"

	"github.com/vitormoschetta/go-familychat/internal/config"
)

// ErrUnknownProvider é retornado para um provider não suportado
var ErrUnknownProvider = errors.New("unknown llm provider")

const (
	// GroqBaseURL é o endpoint compatível com OpenAI do Groq
	GroqBaseURL = "https://api.groq.com/openai/v1"

	defaultGroqModel   = "llama-3.3-70b-versatile"
	defaultOpenAIModel = "gpt-4o-mini"
	defaultGeminiModel = "gemini-2.5-flash"
)

// New cria o modelo do provider configurado
func New(ctx context.Context, cfg config.LLMConfig) (model.LLM, error) {
	switch cfg.Provider {
	case config.ProviderGroq:
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = GroqBaseURL
		}
		return NewOpenAIModel(modelOr(cfg.Model, defaultGroqModel), cfg.APIKey, baseURL), nil

	case config.ProviderOpenAI:
		return NewOpenAIModel(modelOr(cfg.Model, defaultOpenAIModel), cfg.APIKey, cfg.BaseURL), nil

	case config.ProviderGemini:
		m, err := gemini.NewModel(ctx, modelOr(cfg.Model, defaultGeminiModel), &genai.ClientConfig{
			APIKey: cfg.APIKey,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create gemini model: %w", err)
		}
		return m, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Provider)
}

func modelOr(name, fallback string) string {
	if name == "" {
		return fallback
	}
	return name
}
