package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/vitormoschetta/go-familychat/internal/config"
)

const shutdownTimeout = 5 * time.Second

// Routes reúne os handlers expostos pelo servidor
type Routes struct {
	Root    http.HandlerFunc
	Health  http.HandlerFunc
	Chat    http.HandlerFunc
	Tools   http.HandlerFunc
	Metrics http.Handler
}

// Server representa o servidor HTTP do gateway
type Server struct {
	Router chi.Router
	cfg    config.HTTPConfig
	logger *zap.Logger
}

// NewServer cria uma nova instância do servidor
func NewServer(cfg config.HTTPConfig, logger *zap.Logger) *Server {
	return &Server{cfg: cfg, logger: logger}
}

// SetupRouter configura as rotas e middlewares do Chi
func (s *Server) SetupRouter(routes Routes) {
	r := chi.NewRouter()

	// Middlewares
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedMethods: []string{
			http.MethodGet, http.MethodHead, http.MethodPost, http.MethodPut,
			http.MethodPatch, http.MethodDelete, http.MethodOptions,
		},
		// qualquer origem é aceita ecoando o Origin, já que "*" com credenciais é recusado pelos navegadores
		AllowOriginFunc:  func(*http.Request, string) bool { return true },
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	if s.cfg.RequestTimeout > 0 {
		r.Use(middleware.Timeout(s.cfg.RequestTimeout))
	}

	// Rotas
	r.Get("/", routes.Root)
	r.Get("/health", routes.Health)
	if routes.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", routes.Metrics)
	}

	// API Routes
	r.Route("/api", func(r chi.Router) {
		r.Post("/chat", routes.Chat)
		r.Get("/tools", routes.Tools)
	})

	s.Router = r
}

// Start serve até o contexto ser cancelado e então encerra com graceful shutdown
func (s *Server) Start(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.Router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  s.cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server started",
			zap.String("addr", s.cfg.Addr),
			zap.Strings("routes", []string{"GET /", "GET /health", "POST /api/chat", "GET /api/tools", "GET /metrics"}),
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	s.logger.Info("Server stopped gracefully")
	return nil
}

// requestLogger registra cada requisição com zap, no lugar do middleware.Logger
func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				logger.Info("HTTP request",
					zap.String("request_id", middleware.GetReqID(r.Context())),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Int("status", ww.Status()),
					zap.Int("bytes", ww.BytesWritten()),
					zap.Duration("elapsed", time.Since(start)),
				)
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
