package query

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"google.golang.org/adk/model"
	"google.golang.org/genai"

	"github.com/vitormoschetta/go-familychat/internal/graph"
)

// ErrEmptyCypher é retornado quando o modelo não gera nenhuma consulta
var ErrEmptyCypher = errors.New("model returned an empty cypher statement")

// Graph é o banco de grafos consultado pelo motor
type Graph interface {
	Schema(ctx context.Context) (string, error)
	Query(ctx context.Context, cypher string, limit int) (*graph.Result, error)
}

// Config controla o motor de consultas
type Config struct {
	MaxRows    int
	Synthesize bool
}

// Result é a saída de uma pergunta ao grafo
type Result struct {
	Question string        `json:"question"`
	Cypher   string        `json:"cypher"`
	Data     *graph.Result `json:"data"`
	Answer   string        `json:"answer,omitempty"`
}

// Engine traduz perguntas em linguagem natural para Cypher, executa a
// consulta e sintetiza uma resposta a partir das linhas retornadas
type Engine struct {
	graph  Graph
	llm    model.LLM
	cfg    Config
	logger *zap.Logger

	mu     sync.RWMutex
	schema string
}

// NewEngine cria o motor. O esquema é carregado por Refresh.
func NewEngine(g Graph, llm model.LLM, cfg Config, logger *zap.Logger) *Engine {
	return &Engine{
		graph:  g,
		llm:    llm,
		cfg:    cfg,
		logger: logger,
	}
}

// Refresh recarrega o esquema do grafo usado no prompt
func (e *Engine) Refresh(ctx context.Context) error {
	schema, err := e.graph.Schema(ctx)
	if err != nil {
		return fmt.Errorf("failed to load graph schema: %w", err)
	}

	e.mu.Lock()
	e.schema = schema
	e.mu.Unlock()

	e.logger.Info("Graph schema loaded", zap.Int("bytes", len(schema)))
	return nil
}

// Schema retorna o esquema atualmente carregado
func (e *Engine) Schema() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.schema
}

// Query responde uma pergunta consultando o grafo
func (e *Engine) Query(ctx context.Context, question string) (*Result, error) {
	raw, err := e.generate(ctx, fmt.Sprintf(cypherPrompt, e.Schema(), question))
	if err != nil {
		return nil, fmt.Errorf("failed to generate cypher: %w", err)
	}

	cypher := ExtractCypher(raw)
	if cypher == "" {
		return nil, ErrEmptyCypher
	}
	e.logger.Debug("Generated cypher", zap.String("question", question), zap.String("cypher", cypher))

	data, err := e.graph.Query(ctx, cypher, e.cfg.MaxRows)
	if err != nil {
		return nil, fmt.Errorf("query %q failed: %w", cypher, err)
	}

	result := &Result{
		Question: question,
		Cypher:   cypher,
		Data:     data,
	}
	if !e.cfg.Synthesize {
		return result, nil
	}

	rows, err := json.Marshal(data.Rows)
	if err != nil {
		return nil, fmt.Errorf("failed to encode query rows: %w", err)
	}
	answer, err := e.generate(ctx, fmt.Sprintf(answerPrompt, question, cypher, rows))
	if err != nil {
		return nil, fmt.Errorf("failed to synthesize answer: %w", err)
	}
	result.Answer = strings.TrimSpace(answer)
	return result, nil
}

// generate faz uma chamada simples ao modelo e concatena o texto retornado
func (e *Engine) generate(ctx context.Context, prompt string) (string, error) {
	req := &model.LLMRequest{
		Model:    e.llm.Name(),
		Contents: []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)},
		Config:   &genai.GenerateContentConfig{},
	}

	var text strings.Builder
	for resp, err := range e.llm.GenerateContent(ctx, req, false) {
		if err != nil {
			return "", err
		}
		if resp == nil || resp.Content == nil {
			continue
		}
		for _, part := range resp.Content.Parts {
			if part != nil && !part.Thought {
				text.WriteString(part.Text)
			}
		}
	}
	return text.String(), nil
}

// ExtractCypher remove cercas de código e prefixos que o modelo costuma
// adicionar em volta da consulta
func ExtractCypher(raw string) string {
	s := strings.TrimSpace(raw)

	if start := strings.Index(s, "```"); start >= 0 {
		rest := s[start+3:]
		if end := strings.Index(rest, "```"); end >= 0 {
			rest = rest[:end]
		}
		s = rest
	}

	s = strings.TrimSpace(s)
	for _, prefix := range []string{"cypher:", "cypher", "Cypher:", "Cypher"} {
		if strings.HasPrefix(s, prefix) {
			next := strings.TrimPrefix(s, prefix)
			// "cypher" seguido de quebra/espaço é o rótulo, não parte da consulta
			if next == "" || strings.HasPrefix(next, "\n") || strings.HasPrefix(next, " ") || strings.HasSuffix(prefix, ":") {
				s = next
				break
			}
		}
	}
	return strings.TrimSpace(s)
}
