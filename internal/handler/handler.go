package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/vitormoschetta/go-familychat/internal/agent"
	"github.com/vitormoschetta/go-familychat/internal/model"
	"github.com/vitormoschetta/go-familychat/internal/tools"
)

// Chatter entrega uma mensagem ao agente e devolve a resposta
type Chatter interface {
	Chat(ctx context.Context, sessionID, message string) (string, error)
}

// ToolLister lista os tools disponíveis para o agente
type ToolLister interface {
	List() []tools.Descriptor
}

// Handler contém as dependências necessárias para os handlers HTTP
type Handler struct {
	chat   Chatter
	tools  ToolLister
	logger *zap.Logger
}

// NewHandler cria uma nova instância do Handler
func NewHandler(chat Chatter, tools ToolLister, logger *zap.Logger) *Handler {
	return &Handler{
		chat:   chat,
		tools:  tools,
		logger: logger,
	}
}

// HandleRoot retorna informações sobre o serviço
func (h *Handler) HandleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"service": "Family tree chat gateway",
		"endpoints": map[string]any{
			"chat": map[string]any{
				"path":        "/api/chat",
				"method":      http.MethodPost,
				"description": "Send a message to the agent",
				"example": map[string]string{
					"message":    "Who are the children of Eddard Stark?",
					"session_id": "optional-conversation-id",
				},
			},
			"health": map[string]any{
				"path":        "/health",
				"method":      http.MethodGet,
				"description": "Health check endpoint",
			},
			"tools": map[string]any{
				"path":        "/api/tools",
				"method":      http.MethodGet,
				"description": "List the tools available to the agent",
			},
			"metrics": map[string]any{
				"path":        "/metrics",
				"method":      http.MethodGet,
				"description": "Prometheus metrics",
			},
		},
		"agent": map[string]string{
			"name":        agent.Name,
			"description": agent.Description,
		},
	})
}

// HandleHealth retorna o status de saúde do servidor
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// HandleTools lista os tools registrados
func (h *Handler) HandleTools(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"tools": h.tools.List(),
	})
}

// HandleChat processa mensagens enviadas ao agente
func (h *Handler) HandleChat(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	logger := h.logger.With(zap.String("request_id", middleware.GetReqID(r.Context())))

	var req model.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("Invalid chat request body", zap.Error(err))
		// JSON válido com tipo errado é erro de validação, não de sintaxe
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			writeJSON(w, http.StatusUnprocessableEntity, model.ErrorResponse{Error: typeErrorMessage(typeErr)})
			return
		}
		writeJSON(w, http.StatusBadRequest, model.ErrorResponse{Error: "Invalid JSON format"})
		return
	}
	if req.Message == nil {
		writeJSON(w, http.StatusUnprocessableEntity, model.ErrorResponse{Error: "Field 'message' is required"})
		return
	}

	reply, err := h.chat.Chat(r.Context(), req.SessionID, *req.Message)
	if err != nil {
		logger.Error("Chat failed", zap.String("session_id", req.SessionID), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, model.ErrorResponse{
			Error: http.StatusText(http.StatusInternalServerError),
		})
		return
	}

	writeJSON(w, http.StatusOK, model.ChatResponse{
		Reply:     reply,
		SessionID: req.SessionID,
	})
}

func typeErrorMessage(err *json.UnmarshalTypeError) string {
	if err.Field == "" {
		return "Request body must be a JSON object"
	}
	return fmt.Sprintf("Field '%s' must be a %s", err.Field, err.Type.Kind())
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
