package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
	"google.golang.org/adk/model"
	"google.golang.org/genai"
)

var errNoChoices = errors.New("completion returned no choices")

// OpenAIModel implementa model.LLM sobre qualquer endpoint compatível com a
// API de chat completions da OpenAI (OpenAI, Groq, Ollama, vLLM).
type OpenAIModel struct {
	client *openai.Client
	name   string
}

// NewOpenAIModel cria o modelo. baseURL vazio usa o endpoint da OpenAI.
func NewOpenAIModel(name, apiKey, baseURL string) *OpenAIModel {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	client := openai.NewClient(opts...)
	return &OpenAIModel{client: &client, name: name}
}

func (m *OpenAIModel) Name() string { return m.name }

// GenerateContent faz uma única chamada e entrega uma resposta completa,
// mesmo quando stream é solicitado.
func (m *OpenAIModel) GenerateContent(ctx context.Context, req *model.LLMRequest, _ bool) iter.Seq2[*model.LLMResponse, error] {
	return func(yield func(*model.LLMResponse, error) bool) {
		resp, err := m.generate(ctx, req)
		yield(resp, err)
	}
}

func (m *OpenAIModel) generate(ctx context.Context, req *model.LLMRequest) (*model.LLMResponse, error) {
	name := req.Model
	if name == "" {
		name = m.name
	}

	messages, err := toOpenAIMessages(req.Config, req.Contents)
	if err != nil {
		return nil, err
	}
	params := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(name),
		Messages: messages,
	}
	if req.Config != nil {
		tools, err := toOpenAITools(req.Config.Tools)
		if err != nil {
			return nil, err
		}
		if len(tools) > 0 {
			params.Tools = tools
		}
		if req.Config.Temperature != nil {
			params.Temperature = openai.Float(float64(*req.Config.Temperature))
		}
	}

	completion, err := m.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("chat completion failed: %w", err)
	}
	if len(completion.Choices) == 0 {
		return nil, errNoChoices
	}

	content, err := fromOpenAIMessage(completion.Choices[0].Message)
	if err != nil {
		return nil, err
	}
	return &model.LLMResponse{
		Content: content,
		UsageMetadata: &genai.GenerateContentResponseUsageMetadata{
			PromptTokenCount:     int32(completion.Usage.PromptTokens),
			CandidatesTokenCount: int32(completion.Usage.CompletionTokens),
			TotalTokenCount:      int32(completion.Usage.TotalTokens),
		},
	}, nil
}

// toOpenAIMessages converte o histórico do agente em mensagens de chat.
// Respostas de função viram mensagens "tool" ligadas pelo ID da chamada.
func toOpenAIMessages(cfg *genai.GenerateContentConfig, contents []*genai.Content) ([]openai.ChatCompletionMessageParamUnion, error) {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(contents)+1)
	if cfg != nil && cfg.SystemInstruction != nil {
		if system := joinText(cfg.SystemInstruction.Parts); system != "" {
			out = append(out, openai.SystemMessage(system))
		}
	}

	for _, c := range contents {
		if c == nil {
			continue
		}
		if c.Role == genai.RoleModel {
			msg, err := toAssistantMessage(c)
			if err != nil {
				return nil, err
			}
			out = append(out, msg)
			continue
		}

		for _, p := range c.Parts {
			if p == nil || p.FunctionResponse == nil {
				continue
			}
			raw, err := json.Marshal(p.FunctionResponse.Response)
			if err != nil {
				return nil, fmt.Errorf("failed to encode response of %s: %w", p.FunctionResponse.Name, err)
			}
			out = append(out, openai.ToolMessage(string(raw), callID(p.FunctionResponse.ID, p.FunctionResponse.Name)))
		}
		if text := joinText(c.Parts); text != "" {
			out = append(out, openai.UserMessage(text))
		}
	}
	return out, nil
}

func toAssistantMessage(c *genai.Content) (openai.ChatCompletionMessageParamUnion, error) {
	asst := openai.ChatCompletionAssistantMessageParam{}
	if text := joinText(c.Parts); text != "" {
		asst.Content.OfString = openai.String(text)
	}
	for _, p := range c.Parts {
		if p == nil || p.FunctionCall == nil {
			continue
		}
		args := []byte("{}")
		if p.FunctionCall.Args != nil {
			var err error
			if args, err = json.Marshal(p.FunctionCall.Args); err != nil {
				return openai.ChatCompletionMessageParamUnion{}, fmt.Errorf("failed to encode arguments of %s: %w", p.FunctionCall.Name, err)
			}
		}
		asst.ToolCalls = append(asst.ToolCalls, openai.ChatCompletionMessageToolCallParam{
			ID: callID(p.FunctionCall.ID, p.FunctionCall.Name),
			Function: openai.ChatCompletionMessageToolCallFunctionParam{
				Name:      p.FunctionCall.Name,
				Arguments: string(args),
			},
		})
	}
	return openai.ChatCompletionMessageParamUnion{OfAssistant: &asst}, nil
}

// toOpenAITools converte as declarações de função em tools de chat
func toOpenAITools(tools []*genai.Tool) ([]openai.ChatCompletionToolParam, error) {
	var out []openai.ChatCompletionToolParam
	for _, t := range tools {
		if t == nil {
			continue
		}
		for _, fd := range t.FunctionDeclarations {
			if fd == nil {
				continue
			}
			params, err := functionParameters(fd)
			if err != nil {
				return nil, fmt.Errorf("failed to convert parameters of %s: %w", fd.Name, err)
			}
			out = append(out, openai.ChatCompletionToolParam{
				Function: shared.FunctionDefinitionParam{
					Name:        fd.Name,
					Description: openai.String(fd.Description),
					Parameters:  params,
				},
			})
		}
	}
	return out, nil
}

func functionParameters(fd *genai.FunctionDeclaration) (shared.FunctionParameters, error) {
	var source any
	switch {
	case fd.ParametersJsonSchema != nil:
		source = fd.ParametersJsonSchema
	case fd.Parameters != nil:
		source = fd.Parameters
	default:
		return shared.FunctionParameters{"type": "object", "properties": map[string]any{}}, nil
	}

	raw, err := json.Marshal(source)
	if err != nil {
		return nil, err
	}
	var params map[string]any
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, err
	}
	lowerTypes(params)
	return shared.FunctionParameters(params), nil
}

// lowerTypes normaliza os tipos do schema da Gemini ("OBJECT") para JSON Schema
func lowerTypes(v any) {
	switch node := v.(type) {
	case map[string]any:
		for k, child := range node {
			if s, ok := child.(string); ok && k == "type" {
				node[k] = strings.ToLower(s)
				continue
			}
			lowerTypes(child)
		}
	case []any:
		for _, child := range node {
			lowerTypes(child)
		}
	}
}

// fromOpenAIMessage converte a resposta em conteúdo do modelo
func fromOpenAIMessage(msg openai.ChatCompletionMessage) (*genai.Content, error) {
	content := &genai.Content{Role: genai.RoleModel}
	if msg.Content != "" {
		content.Parts = append(content.Parts, &genai.Part{Text: msg.Content})
	}
	for _, tc := range msg.ToolCalls {
		args := map[string]any{}
		if strings.TrimSpace(tc.Function.Arguments) != "" {
			if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
				return nil, fmt.Errorf("invalid arguments for %s: %w", tc.Function.Name, err)
			}
		}
		content.Parts = append(content.Parts, &genai.Part{
			FunctionCall: &genai.FunctionCall{
				ID:   tc.ID,
				Name: tc.Function.Name,
				Args: args,
			},
		})
	}
	return content, nil
}

func joinText(parts []*genai.Part) string {
	var sb strings.Builder
	for _, p := range parts {
		if p == nil || p.Thought || p.Text == "" {
			continue
		}
		sb.WriteString(p.Text)
	}
	return sb.String()
}

func callID(id, name string) string {
	if id != "" {
		return id
	}
	return name
}
