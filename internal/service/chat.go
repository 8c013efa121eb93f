package service

import (
	"context"
	"fmt"
	"iter"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"google.golang.org/adk/agent"
	"google.golang.org/adk/session"
	"google.golang.org/genai"

	"github.com/vitormoschetta/go-familychat/internal/metric"
)

const (
	// AppName identifica o app no runner e no session service
	AppName = "familychat"

	defaultUserID = "default-user"
)

// Runner executa o agente sobre uma sessão; satisfeito por *runner.Runner
type Runner interface {
	Run(ctx context.Context, userID, sessionID string, msg *genai.Content, cfg agent.RunConfig) iter.Seq2[*session.Event, error]
}

// ChatService entrega mensagens ao agente e devolve a resposta final
type ChatService struct {
	runner        Runner
	sessions      session.Service
	conversations *SessionManager
	idleTTL       time.Duration
	metrics       *metric.Metrics
	logger        *zap.Logger
}

// NewChatService cria o serviço. metrics pode ser nil.
func NewChatService(r Runner, sessions session.Service, idleTTL time.Duration, metrics *metric.Metrics, logger *zap.Logger) *ChatService {
	return &ChatService{
		runner:        r,
		sessions:      sessions,
		conversations: NewSessionManager(metricGauge(metrics)),
		idleTTL:       idleTTL,
		metrics:       metrics,
		logger:        logger,
	}
}

// Chat envia a mensagem ao agente. Sem sessionID a conversa é efêmera:
// uma sessão nova é criada e descartada ao final.
func (s *ChatService) Chat(ctx context.Context, sessionID, message string) (string, error) {
	ctx, span := otel.Tracer("familychat/service").Start(ctx, "chat",
		trace.WithAttributes(attribute.Bool("chat.ephemeral", sessionID == "")),
	)
	defer span.End()

	start := time.Now()
	var (
		reply string
		err   error
	)
	if sessionID == "" {
		reply, err = s.chatEphemeral(ctx, message)
	} else {
		reply, err = s.chatNamed(ctx, sessionID, message)
	}
	elapsed := time.Since(start)

	status := "ok"
	if err != nil {
		status = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	if s.metrics != nil {
		s.metrics.ChatRequests.WithLabelValues(status).Inc()
		s.metrics.ChatDuration.Observe(elapsed.Seconds())
	}
	return reply, err
}

func (s *ChatService) chatEphemeral(ctx context.Context, message string) (string, error) {
	id := uuid.NewString()
	if err := s.createSession(ctx, id); err != nil {
		return "", err
	}
	defer s.deleteSession(context.WithoutCancel(ctx), id)

	return s.run(ctx, id, message)
}

func (s *ChatService) chatNamed(ctx context.Context, sessionID, message string) (string, error) {
	cs := s.conversations.Acquire(sessionID)
	defer s.conversations.Release(cs)

	cs.Mu.Lock()
	defer cs.Mu.Unlock()

	if s.conversations.markCreated(cs) {
		// uma poda concorrente pode ainda estar apagando a sessão anterior com este ID
		err := s.conversations.waitDeleted(ctx, sessionID)
		if err == nil {
			err = s.createSession(ctx, sessionID)
		}
		if err != nil {
			s.conversations.unmarkCreated(cs)
			return "", err
		}
	}
	return s.run(ctx, sessionID, message)
}

func (s *ChatService) createSession(ctx context.Context, id string) error {
	if _, err := s.sessions.Get(ctx, &session.GetRequest{
		AppName:   AppName,
		UserID:    defaultUserID,
		SessionID: id,
	}); err == nil {
		return nil
	}

	if _, err := s.sessions.Create(ctx, &session.CreateRequest{
		AppName:   AppName,
		UserID:    defaultUserID,
		SessionID: id,
	}); err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

func (s *ChatService) deleteSession(ctx context.Context, id string) {
	err := s.sessions.Delete(ctx, &session.DeleteRequest{
		AppName:   AppName,
		UserID:    defaultUserID,
		SessionID: id,
	})
	if err != nil {
		s.logger.Debug("Failed to delete session", zap.String("session_id", id), zap.Error(err))
	}
}

func (s *ChatService) run(ctx context.Context, sessionID, message string) (string, error) {
	s.logger.Info("Processing message", zap.String("session_id", sessionID), zap.Int("length", len(message)))

	var reply string
	content := genai.NewContentFromText(message, genai.RoleUser)
	for event, err := range s.runner.Run(ctx, defaultUserID, sessionID, content, agent.RunConfig{}) {
		if err != nil {
			s.logger.Error("Agent run failed", zap.String("session_id", sessionID), zap.Error(err))
			return "", fmt.Errorf("agent run failed: %w", err)
		}
		if event == nil {
			continue
		}
		if text, final := finalText(event.Content); final {
			reply = text
		}
	}

	s.logger.Info("Agent replied", zap.String("session_id", sessionID), zap.Int("length", len(reply)))
	return reply, nil
}

// finalText retorna o texto de um conteúdo que não carrega chamadas nem
// respostas de função; partes de raciocínio são ignoradas
func finalText(c *genai.Content) (string, bool) {
	if c == nil {
		return "", false
	}
	var sb strings.Builder
	for _, p := range c.Parts {
		if p == nil {
			continue
		}
		if p.FunctionCall != nil || p.FunctionResponse != nil {
			return "", false
		}
		if p.Thought {
			continue
		}
		sb.WriteString(p.Text)
	}
	if sb.Len() == 0 {
		return "", false
	}
	return sb.String(), true
}

// Prune descarta as conversas nomeadas ociosas
func (s *ChatService) Prune(ctx context.Context) int {
	removed := s.conversations.Prune(s.idleTTL, func(id string) {
		s.deleteSession(ctx, id)
	})
	if len(removed) > 0 {
		s.logger.Info("Pruned idle conversations", zap.Int("count", len(removed)))
	}
	return len(removed)
}

// RunPruner chama Prune periodicamente até o contexto ser cancelado
func (s *ChatService) RunPruner(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Prune(ctx)
		}
	}
}

func metricGauge(m *metric.Metrics) prometheus.Gauge {
	if m == nil {
		return nil
	}
	return m.OpenSessions
}
