package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/openai/openai-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/adk/model"
	"google.golang.org/genai"

	"github.com/vitormoschetta/go-familychat/internal/config"
)

func TestNewUnknownProvider(t *testing.T) {
	_, err := New(context.Background(), config.LLMConfig{Provider: "anthropic"})
	assert.ErrorIs(t, err, ErrUnknownProvider)
}

func TestNewOpenAICompatibleDefaults(t *testing.T) {
	m, err := New(context.Background(), config.LLMConfig{Provider: config.ProviderGroq, APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, defaultGroqModel, m.Name())

	m, err = New(context.Background(), config.LLMConfig{Provider: config.ProviderOpenAI, APIKey: "k", Model: "gpt-4.1"})
	require.NoError(t, err)
	assert.Equal(t, "gpt-4.1", m.Name())
}

func TestToOpenAIMessages(t *testing.T) {
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText("You answer family tree questions.", genai.RoleUser),
	}
	contents := []*genai.Content{
		genai.NewContentFromText("Who is Arya's father?", genai.RoleUser),
		{
			Role: genai.RoleModel,
			Parts: []*genai.Part{
				{Text: "thinking out loud", Thought: true},
				{FunctionCall: &genai.FunctionCall{ID: "call_1", Name: "neo4j_query_engine", Args: map[string]any{"input": "father of Arya"}}},
			},
		},
		{
			Role: genai.RoleUser,
			Parts: []*genai.Part{
				{FunctionResponse: &genai.FunctionResponse{ID: "call_1", Name: "neo4j_query_engine", Response: map[string]any{"output": "Eddard Stark"}}},
			},
		},
		genai.NewContentFromText("Eddard Stark.", genai.RoleModel),
	}

	msgs, err := toOpenAIMessages(cfg, contents)
	require.NoError(t, err)
	require.Len(t, msgs, 5)

	require.NotNil(t, msgs[0].OfSystem)
	require.NotNil(t, msgs[1].OfUser)

	require.NotNil(t, msgs[2].OfAssistant)
	asst := msgs[2].OfAssistant
	assert.False(t, asst.Content.OfString.Valid())
	require.Len(t, asst.ToolCalls, 1)
	assert.Equal(t, "call_1", asst.ToolCalls[0].ID)
	assert.Equal(t, "neo4j_query_engine", asst.ToolCalls[0].Function.Name)
	assert.JSONEq(t, `{"input":"father of Arya"}`, asst.ToolCalls[0].Function.Arguments)

	require.NotNil(t, msgs[3].OfTool)
	assert.Equal(t, "call_1", msgs[3].OfTool.ToolCallID)

	require.NotNil(t, msgs[4].OfAssistant)
	assert.Equal(t, "Eddard Stark.", msgs[4].OfAssistant.Content.OfString.Value)
}

func TestToOpenAIMessagesFunctionCallArguments(t *testing.T) {
	call := func(args map[string]any) []*genai.Content {
		return []*genai.Content{{
			Role:  genai.RoleModel,
			Parts: []*genai.Part{{FunctionCall: &genai.FunctionCall{ID: "call_1", Name: "neo4j_query_engine", Args: args}}},
		}}
	}

	msgs, err := toOpenAIMessages(nil, call(nil))
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "{}", msgs[0].OfAssistant.ToolCalls[0].Function.Arguments)

	_, err = toOpenAIMessages(nil, call(map[string]any{"input": make(chan int)}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "neo4j_query_engine")
}

func TestToOpenAITools(t *testing.T) {
	tools := []*genai.Tool{{
		FunctionDeclarations: []*genai.FunctionDeclaration{
			{
				Name:        "neo4j_query_engine",
				Description: "Query the family graph",
				Parameters: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"input": {Type: genai.TypeString, Description: "question"},
					},
					Required: []string{"input"},
				},
			},
			{
				Name: "raw_schema",
				ParametersJsonSchema: map[string]any{
					"type":       "object",
					"properties": map[string]any{"q": map[string]any{"type": "string"}},
				},
			},
			{Name: "no_args"},
		},
	}}

	out, err := toOpenAITools(tools)
	require.NoError(t, err)
	require.Len(t, out, 3)

	params := out[0].Function.Parameters
	assert.Equal(t, "object", params["type"])
	input := params["properties"].(map[string]any)["input"].(map[string]any)
	assert.Equal(t, "string", input["type"])
	assert.Equal(t, []any{"input"}, params["required"])

	assert.Equal(t, "raw_schema", out[1].Function.Name)
	assert.Equal(t, "object", out[1].Function.Parameters["type"])

	assert.Equal(t, "object", out[2].Function.Parameters["type"])
}

func TestFromOpenAIMessage(t *testing.T) {
	content, err := fromOpenAIMessage(openai.ChatCompletionMessage{
		Content: "Let me check.",
		ToolCalls: []openai.ChatCompletionMessageToolCall{{
			ID: "call_9",
			Function: openai.ChatCompletionMessageToolCallFunction{
				Name:      "neo4j_query_engine",
				Arguments: `{"input":"Stark family"}`,
			},
		}},
	})
	require.NoError(t, err)
	assert.Equal(t, genai.RoleModel, content.Role)
	require.Len(t, content.Parts, 2)
	assert.Equal(t, "Let me check.", content.Parts[0].Text)
	assert.Equal(t, "call_9", content.Parts[1].FunctionCall.ID)
	assert.Equal(t, map[string]any{"input": "Stark family"}, content.Parts[1].FunctionCall.Args)

	_, err = fromOpenAIMessage(openai.ChatCompletionMessage{
		ToolCalls: []openai.ChatCompletionMessageToolCall{{
			Function: openai.ChatCompletionMessageToolCallFunction{Name: "x", Arguments: "{not json"},
		}},
	})
	assert.Error(t, err)
}

func TestOpenAIModelGenerateContent(t *testing.T) {
	var captured map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 1700000000,
			"model": "llama-3.3-70b-versatile",
			"choices": [{
				"index": 0,
				"finish_reason": "tool_calls",
				"message": {
					"role": "assistant",
					"content": null,
					"tool_calls": [{
						"id": "call_1",
						"type": "function",
						"function": {"name": "neo4j_query_engine", "arguments": "{\"input\":\"children of Ned\"}"}
					}]
				}
			}],
			"usage": {"prompt_tokens": 42, "completion_tokens": 7, "total_tokens": 49}
		}`))
	}))
	defer srv.Close()

	m := NewOpenAIModel("llama-3.3-70b-versatile", "secret", srv.URL)
	req := &model.LLMRequest{
		Contents: []*genai.Content{genai.NewContentFromText("Who are Ned's children?", genai.RoleUser)},
		Config: &genai.GenerateContentConfig{
			Tools: []*genai.Tool{{FunctionDeclarations: []*genai.FunctionDeclaration{{Name: "neo4j_query_engine"}}}},
		},
	}

	var responses []*model.LLMResponse
	for resp, err := range m.GenerateContent(context.Background(), req, true) {
		require.NoError(t, err)
		responses = append(responses, resp)
	}
	require.Len(t, responses, 1)

	resp := responses[0]
	require.Len(t, resp.Content.Parts, 1)
	call := resp.Content.Parts[0].FunctionCall
	require.NotNil(t, call)
	assert.Equal(t, "neo4j_query_engine", call.Name)
	assert.Equal(t, "children of Ned", call.Args["input"])
	assert.Equal(t, int32(49), resp.UsageMetadata.TotalTokenCount)

	assert.Equal(t, "llama-3.3-70b-versatile", captured["model"])
	assert.Len(t, captured["tools"], 1)
}

func TestOpenAIModelPropagatesErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"bad model","type":"invalid_request_error"}}`))
	}))
	defer srv.Close()

	m := NewOpenAIModel("nope", "secret", srv.URL)
	for _, err := range m.GenerateContent(context.Background(), &model.LLMRequest{}, false) {
		assert.Error(t, err)
	}
}
