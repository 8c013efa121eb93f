package app

import (
	"context"
	"fmt"
	"time"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	adkagent "google.golang.org/adk/agent"
	"google.golang.org/adk/model"
	"google.golang.org/adk/runner"
	"google.golang.org/adk/session"

	"github.com/vitormoschetta/go-familychat/internal/agent"
	"github.com/vitormoschetta/go-familychat/internal/config"
	"github.com/vitormoschetta/go-familychat/internal/graph"
	"github.com/vitormoschetta/go-familychat/internal/handler"
	"github.com/vitormoschetta/go-familychat/internal/llm"
	"github.com/vitormoschetta/go-familychat/internal/metric"
	"github.com/vitormoschetta/go-familychat/internal/query"
	"github.com/vitormoschetta/go-familychat/internal/server"
	"github.com/vitormoschetta/go-familychat/internal/service"
	"github.com/vitormoschetta/go-familychat/internal/tools"
	"github.com/vitormoschetta/go-familychat/internal/tracing"
)

// Version é sobrescrita no build com -ldflags
var Version = "dev"

// App reúne as dependências montadas na inicialização
type App struct {
	Config   *config.Config
	Logger   *zap.Logger
	Metrics  *metric.Metrics
	Store    *graph.Store
	Registry *tools.Registry
	Agent    adkagent.Agent
	Chat     *service.ChatService

	tracer *sdktrace.TracerProvider
}

// New instala o tracing, conecta ao grafo, cria o modelo, os tools e o agente.
// Qualquer falha aqui impede o processo de subir.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	tp := tracing.Setup(Version, logger)
	a, err := build(ctx, cfg, logger)
	if err != nil {
		_ = tp.Shutdown(context.WithoutCancel(ctx))
		return nil, err
	}
	a.tracer = tp
	return a, nil
}

func build(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	metrics := metric.New()

	store, err := graph.NewStore(ctx, cfg.Neo4j, logger)
	if err != nil {
		return nil, err
	}

	llmModel, err := llm.New(ctx, cfg.LLM)
	if err != nil {
		_ = store.Close(ctx)
		return nil, err
	}
	logger.Info("LLM ready", zap.String("provider", cfg.LLM.Provider), zap.String("model", llmModel.Name()))

	stack, err := newChatStack(ctx, cfg, store, llmModel, metrics, logger)
	if err != nil {
		_ = store.Close(ctx)
		return nil, err
	}

	return &App{
		Config:   cfg,
		Logger:   logger,
		Metrics:  metrics,
		Store:    store,
		Registry: stack.registry,
		Agent:    stack.agent,
		Chat:     stack.chat,
	}, nil
}

type chatStack struct {
	registry *tools.Registry
	agent    adkagent.Agent
	chat     *service.ChatService
}

// newChatStack monta motor de consultas, tools, servidor MCP, agente e runner
// sobre o grafo e o modelo recebidos
func newChatStack(ctx context.Context, cfg *config.Config, g query.Graph, llmModel model.LLM, metrics *metric.Metrics, logger *zap.Logger) (*chatStack, error) {
	engine := query.NewEngine(g, llmModel, query.Config{
		MaxRows:    cfg.Query.MaxRows,
		Synthesize: cfg.Query.Synthesize,
	}, logger)
	if err := engine.Refresh(ctx); err != nil {
		return nil, err
	}

	registry := tools.NewRegistry(metrics, logger)
	if err := registry.Register(tools.NewGraphQueryTool(engine)); err != nil {
		return nil, err
	}
	mcpServer := tools.NewMCPServer(registry, Version, logger)

	toolsets, err := agent.Toolsets(mcpServer.Transport(), cfg.MCP, logger)
	if err != nil {
		return nil, err
	}
	a, err := agent.New(llmModel, toolsets...)
	if err != nil {
		return nil, err
	}

	sessionService := session.InMemoryService()
	agentRunner, err := runner.New(runner.Config{
		AppName:        service.AppName,
		Agent:          a,
		SessionService: sessionService,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create runner: %w", err)
	}

	return &chatStack{
		registry: registry,
		agent:    a,
		chat:     service.NewChatService(agentRunner, sessionService, cfg.SessionIdleTTL, metrics, logger),
	}, nil
}

// Serve sobe o servidor HTTP e a limpeza de conversas ociosas até o contexto acabar
func (a *App) Serve(ctx context.Context) error {
	h := handler.NewHandler(a.Chat, a.Registry, a.Logger)

	srv := server.NewServer(a.Config.HTTP, a.Logger)
	srv.SetupRouter(server.Routes{
		Root:    h.HandleRoot,
		Health:  h.HandleHealth,
		Chat:    h.HandleChat,
		Tools:   h.HandleTools,
		Metrics: a.Metrics.Handler(),
	})

	if ttl := a.Config.SessionIdleTTL; ttl > 0 {
		go a.Chat.RunPruner(ctx, pruneInterval(ttl))
	}
	return srv.Start(ctx)
}

// Close libera a conexão com o grafo e descarrega os spans pendentes
func (a *App) Close(ctx context.Context) {
	if err := a.Store.Close(ctx); err != nil {
		a.Logger.Warn("Failed to close graph store", zap.Error(err))
	}
	if a.tracer != nil {
		if err := a.tracer.Shutdown(ctx); err != nil {
			a.Logger.Warn("Failed to shut down tracer provider", zap.Error(err))
		}
	}
}

func pruneInterval(ttl time.Duration) time.Duration {
	interval := ttl / 2
	if interval < time.Minute {
		interval = time.Minute
	}
	return interval
}
