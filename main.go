package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	adkagent "google.golang.org/adk/agent"
	"google.golang.org/adk/cmd/launcher"
	"google.golang.org/adk/cmd/launcher/full"

	"github.com/vitormoschetta/go-familychat/internal/app"
	"github.com/vitormoschetta/go-familychat/internal/config"
	"github.com/vitormoschetta/go-familychat/internal/logging"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found or could not be loaded")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to start", zap.Error(err))
	}
	defer a.Close(context.Background())

	// Verificar se deve executar em modo HTTP ou CLI
	if os.Getenv("RUN_HTTP_SERVER") == "true" {
		if err := a.Serve(ctx); err != nil {
			logger.Error("Server stopped with error", zap.Error(err))
		}
		return
	}
	startCLI(ctx, a)
}

// startCLI abre o agente nos modos do launcher do ADK (console, web, api)
func startCLI(ctx context.Context, a *app.App) {
	cfg := &launcher.Config{
		AgentLoader: adkagent.NewSingleLoader(a.Agent),
	}
	l := full.NewLauncher()
	if err := l.Execute(ctx, cfg, os.Args[1:]); err != nil {
		a.Logger.Error("Run failed", zap.Error(err), zap.String("usage", l.CommandLineSyntax()))
	}
}
