package tools

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"
)

// ToolInput é o argumento aceito por todos os tools expostos via MCP
type ToolInput struct {
	Input string `json:"input" jsonschema:"the question or query to run, in natural language"`
}

// MCPServer publica os tools do registry em um servidor MCP dentro do processo,
// que o agente consome como um toolset comum
type MCPServer struct {
	server   *mcp.Server
	registry *Registry
	logger   *zap.Logger
}

// NewMCPServer registra no servidor MCP todos os tools já presentes no registry
func NewMCPServer(registry *Registry, version string, logger *zap.Logger) *MCPServer {
	s := &MCPServer{
		server: mcp.NewServer(&mcp.Implementation{
			Name:    "familychat-tools",
			Version: version,
		}, nil),
		registry: registry,
		logger:   logger,
	}

	for _, d := range registry.List() {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        d.Name,
			Description: d.Description,
		}, s.handler(d.Name))
	}
	return s
}

func (s *MCPServer) handler(name string) mcp.ToolHandlerFor[ToolInput, any] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, in ToolInput) (*mcp.CallToolResult, any, error) {
		output, err := s.registry.Invoke(ctx, name, in.Input)
		if err != nil {
			// erro do tool vai para o agente, que decide como seguir
			return &mcp.CallToolResult{
				IsError: true,
				Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf("tool %s failed: %v", name, err)}},
			}, nil, nil
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: output}},
		}, nil, nil
	}
}

// Transport retorna um transporte que abre uma nova conexão em memória
// com o servidor a cada Connect
func (s *MCPServer) Transport() mcp.Transport {
	return &inProcessTransport{server: s.server, logger: s.logger}
}

type inProcessTransport struct {
	server *mcp.Server
	logger *zap.Logger
}

func (t *inProcessTransport) Connect(ctx context.Context) (mcp.Connection, error) {
	clientTransport, serverTransport := mcp.NewInMemoryTransports()

	// a sessão do servidor vive enquanto a conexão do cliente estiver aberta
	if _, err := t.server.Connect(context.WithoutCancel(ctx), serverTransport, nil); err != nil {
		return nil, fmt.Errorf("failed to start in-process MCP session: %w", err)
	}
	t.logger.Debug("In-process MCP session opened")
	return clientTransport.Connect(ctx)
}
