package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/vitormoschetta/go-familychat/internal/query"
)

// GraphQueryToolName é o nome pelo qual o agente conhece o tool do grafo
const GraphQueryToolName = "neo4j_query_engine"

const graphQueryDescription = `This tool is connected to a Neo4j graph database containing family tree information.
It can be used to answer questions about people, relationships, houses and family structures.
Ask it a question in natural language; it translates the question into a Cypher query and returns what the database holds.
Example queries:
"Who are the children of person X?"
"What is the relationship between person A and person B?"
"List all members of the 'Stark' family."`

// Querier responde perguntas sobre o grafo
type Querier interface {
	Query(ctx context.Context, question string) (*query.Result, error)
}

// GraphQueryTool expõe o motor de consultas ao grafo como Tool
type GraphQueryTool struct {
	engine      Querier
	name        string
	description string
}

// NewGraphQueryTool cria o tool com o nome e a descrição padrão
func NewGraphQueryTool(engine Querier) *GraphQueryTool {
	return &GraphQueryTool{
		engine:      engine,
		name:        GraphQueryToolName,
		description: graphQueryDescription,
	}
}

func (t *GraphQueryTool) Name() string        { return t.name }
func (t *GraphQueryTool) Description() string { return t.description }

// Invoke devolve a resposta sintetizada ou, sem síntese, a consulta e as linhas em JSON
func (t *GraphQueryTool) Invoke(ctx context.Context, input string) (string, error) {
	result, err := t.engine.Query(ctx, input)
	if err != nil {
		return "", err
	}
	if result.Answer != "" {
		return result.Answer, nil
	}

	raw, err := json.Marshal(map[string]any{
		"cypher": result.Cypher,
		"data":   result.Data,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode graph result: %w", err)
	}
	return string(raw), nil
}
