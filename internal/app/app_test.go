package app

import (
	"context"
	"iter"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"google.golang.org/adk/model"
	"google.golang.org/genai"

	"github.com/vitormoschetta/go-familychat/internal/config"
	"github.com/vitormoschetta/go-familychat/internal/graph"
	"github.com/vitormoschetta/go-familychat/internal/metric"
	"github.com/vitormoschetta/go-familychat/internal/tools"
	"github.com/vitormoschetta/go-familychat/internal/tracing"
)

const (
	nedQuestion = "Who are the children of Ned Stark?"
	nedCypher   = "MATCH (:Person {name: 'Ned Stark'})-[:PARENT_OF]->(c) RETURN c.name AS name"
	nedAnswer   = "Ned Stark's children are Robb and Arya."
	finalReply  = "Ned Stark has two children: Robb and Arya."
)

// familyLLM faz o papel do agente (requisições com tools) e do motor de
// consultas (prompts sem tools)
type familyLLM struct {
	mu            sync.Mutex
	agentCalls    int
	engineCalls   int
	toolResponses []map[string]any
}

func (f *familyLLM) Name() string { return "scripted-family" }

func (f *familyLLM) GenerateContent(_ context.Context, req *model.LLMRequest, _ bool) iter.Seq2[*model.LLMResponse, error] {
	return func(yield func(*model.LLMResponse, error) bool) {
		yield(&model.LLMResponse{Content: f.respond(req)}, nil)
	}
}

func (f *familyLLM) respond(req *model.LLMRequest) *genai.Content {
	f.mu.Lock()
	defer f.mu.Unlock()

	if req.Config == nil || len(req.Config.Tools) == 0 {
		f.engineCalls++
		if strings.HasSuffix(req.Contents[0].Parts[0].Text, "Cypher:") {
			return genai.NewContentFromText("```cypher\n"+nedCypher+"\n```", genai.RoleModel)
		}
		return genai.NewContentFromText(nedAnswer, genai.RoleModel)
	}

	f.agentCalls++
	last := req.Contents[len(req.Contents)-1]
	for _, p := range last.Parts {
		if p.FunctionResponse != nil {
			f.toolResponses = append(f.toolResponses, p.FunctionResponse.Response)
			return genai.NewContentFromText(finalReply, genai.RoleModel)
		}
	}
	return &genai.Content{Role: genai.RoleModel, Parts: []*genai.Part{{
		FunctionCall: &genai.FunctionCall{
			ID:   "call-1",
			Name: tools.GraphQueryToolName,
			Args: map[string]any{"input": nedQuestion},
		},
	}}}
}

type familyGraph struct {
	mu      sync.Mutex
	queries []string
}

func (g *familyGraph) Schema(context.Context) (string, error) {
	return "(:Person {name: STRING})-[:PARENT_OF]->(:Person)", nil
}

func (g *familyGraph) Query(_ context.Context, cypher string, _ int) (*graph.Result, error) {
	g.mu.Lock()
	g.queries = append(g.queries, cypher)
	g.mu.Unlock()
	return &graph.Result{
		Columns: []string{"name"},
		Rows:    []map[string]any{{"name": "Robb Stark"}, {"name": "Arya Stark"}},
	}, nil
}

func TestChatStackAnswersThroughGraphTool(t *testing.T) {
	prev := otel.GetTracerProvider()
	rec := tracetest.NewSpanRecorder()
	tp := tracing.Setup(Version, zap.NewNop(), rec)
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		otel.SetTracerProvider(prev)
	})

	cfg := &config.Config{
		Query:          config.QueryConfig{MaxRows: 10, Synthesize: true},
		SessionIdleTTL: time.Minute,
	}
	llmModel := &familyLLM{}
	g := &familyGraph{}
	metrics := metric.New()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	stack, err := newChatStack(ctx, cfg, g, llmModel, metrics, zap.NewNop())
	require.NoError(t, err)
	require.Len(t, stack.registry.List(), 1)
	assert.Equal(t, tools.GraphQueryToolName, stack.registry.List()[0].Name)

	reply, err := stack.chat.Chat(ctx, "", nedQuestion)
	require.NoError(t, err)
	assert.Equal(t, finalReply, reply)

	assert.Equal(t, []string{nedCypher}, g.queries)
	assert.Equal(t, 2, llmModel.agentCalls)
	assert.Equal(t, 2, llmModel.engineCalls)
	require.Len(t, llmModel.toolResponses, 1)
	assert.Equal(t, nedAnswer, llmModel.toolResponses[0]["output"])

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.ToolCalls.WithLabelValues(tools.GraphQueryToolName, "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.ChatRequests.WithLabelValues("ok")))

	var names []string
	for _, s := range rec.Ended() {
		names = append(names, s.Name())
	}
	assert.Contains(t, names, "chat")
	assert.Contains(t, names, "tool.invoke")
}

func TestNewFailsWhenGraphIsUnreachable(t *testing.T) {
	prev := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	cfg := &config.Config{
		Neo4j: config.Neo4jConfig{
			URI:      "bolt://127.0.0.1:1",
			Username: "neo4j",
			Password: "secret",
			Database: "neo4j",
		},
		LLM: config.LLMConfig{Provider: config.ProviderGroq, APIKey: "k"},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	a, err := New(ctx, cfg, zap.NewNop())
	require.Error(t, err)
	assert.Nil(t, a)
}

func TestPruneInterval(t *testing.T) {
	assert.Equal(t, 15*time.Minute, pruneInterval(30*time.Minute))
	assert.Equal(t, time.Minute, pruneInterval(10*time.Second))
}
