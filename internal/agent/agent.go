package agent

import (
	"fmt"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"
	adkagent "google.golang.org/adk/agent"
	"google.golang.org/adk/agent/llmagent"
	"google.golang.org/adk/model"
	"google.golang.org/adk/tool"
	"google.golang.org/adk/tool/mcptoolset"

	"github.com/vitormoschetta/go-familychat/internal/config"
)

const (
	// Name é o nome do agente no runner e no launcher
	Name = "family_tree_agent"
	// Description aparece na rota de informações e no launcher
	Description = "Answers questions about a family tree stored in a Neo4j graph."
)

const instruction = `You are a helpful assistant that answers questions about a family tree.
The family tree lives in a Neo4j graph database holding people, houses and the relationships between them.
Think step by step. Whenever the question depends on who someone is or how people are related, use the neo4j_query_engine tool: send it a precise question in natural language and read its answer before replying.
You may call the tool more than once to break a question down.
If the tool returns nothing useful, say you could not find the information instead of guessing.
Reply in the same language the user wrote in.`

// New cria o agente LLM com os toolsets dados
func New(llm model.LLM, toolsets ...tool.Toolset) (adkagent.Agent, error) {
	a, err := llmagent.New(llmagent.Config{
		Name:        Name,
		Model:       llm,
		Description: Description,
		Instruction: instruction,
		Toolsets:    toolsets,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create agent: %w", err)
	}
	return a, nil
}

// Toolsets monta o toolset local sobre o transporte em processo e, se
// configurado, o toolset de um servidor MCP remoto
func Toolsets(local mcp.Transport, cfg config.MCPConfig, logger *zap.Logger) ([]tool.Toolset, error) {
	localSet, err := mcptoolset.New(mcptoolset.Config{Transport: local})
	if err != nil {
		return nil, fmt.Errorf("failed to create local MCP tool set: %w", err)
	}
	sets := []tool.Toolset{localSet}

	if cfg.Endpoint == "" {
		return sets, nil
	}

	if cfg.Token == "" {
		logger.Warn("MCP_TOKEN is not set, remote MCP requests may be rejected")
	}
	transport := &mcp.StreamableClientTransport{
		Endpoint: cfg.Endpoint,
		HTTPClient: &http.Client{
			Transport: &AuthenticatedTransport{
				Base:   http.DefaultTransport,
				Token:  cfg.Token,
				Logger: logger,
			},
			Timeout: 30 * time.Second,
		},
	}

	logger.Info("Connecting to remote MCP endpoint", zap.String("endpoint", cfg.Endpoint))
	remoteSet, err := mcptoolset.New(mcptoolset.Config{Transport: transport})
	if err != nil {
		return nil, fmt.Errorf("failed to create remote MCP tool set: %w", err)
	}
	return append(sets, remoteSet), nil
}
