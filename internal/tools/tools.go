package tools

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/vitormoschetta/go-familychat/internal/metric"
)

var (
	// ErrDuplicateTool é retornado ao registrar dois tools com o mesmo nome
	ErrDuplicateTool = errors.New("tool already registered")
	// ErrUnknownTool é retornado ao invocar um tool não registrado
	ErrUnknownTool = errors.New("tool not found")
)

// Tool é uma capacidade que o agente pode invocar durante o raciocínio
type Tool interface {
	Name() string
	Description() string
	Invoke(ctx context.Context, input string) (string, error)
}

// Descriptor é a metadata pública de um tool
type Descriptor struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Registry mantém os tools registrados na ordem de registro.
// É montado na inicialização e só lido depois disso.
type Registry struct {
	mu      sync.RWMutex
	tools   map[string]Tool
	order   []string
	metrics *metric.Metrics
	logger  *zap.Logger
}

// NewRegistry cria um registry vazio. metrics pode ser nil.
func NewRegistry(metrics *metric.Metrics, logger *zap.Logger) *Registry {
	return &Registry{
		tools:   make(map[string]Tool),
		metrics: metrics,
		logger:  logger,
	}
}

// Register adiciona um tool
func (r *Registry) Register(t Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[t.Name()]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateTool, t.Name())
	}
	r.tools[t.Name()] = t
	r.order = append(r.order, t.Name())

	r.logger.Info("Tool registered", zap.String("tool", t.Name()))
	return nil
}

// Get retorna um tool pelo nome
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// List retorna os descritores na ordem de registro
func (r *Registry) List() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Descriptor, 0, len(r.order))
	for _, name := range r.order {
		t := r.tools[name]
		out = append(out, Descriptor{Name: t.Name(), Description: t.Description()})
	}
	return out
}

// Invoke executa o tool registrando span, métricas e log
func (r *Registry) Invoke(ctx context.Context, name, input string) (string, error) {
	t, ok := r.Get(name)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}

	ctx, span := otel.Tracer("familychat/tools").Start(ctx, "tool.invoke",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.String("tool.name", name)),
	)
	defer span.End()

	start := time.Now()
	output, err := t.Invoke(ctx, input)
	elapsed := time.Since(start)

	status := "ok"
	if err != nil {
		status = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		r.logger.Warn("Tool failed", zap.String("tool", name), zap.Duration("elapsed", elapsed), zap.Error(err))
	} else {
		r.logger.Info("Tool succeeded", zap.String("tool", name), zap.Duration("elapsed", elapsed))
	}

	if r.metrics != nil {
		r.metrics.ToolCalls.WithLabelValues(name, status).Inc()
		r.metrics.ToolDuration.WithLabelValues(name).Observe(elapsed.Seconds())
	}
	return output, err
}
