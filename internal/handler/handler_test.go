package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vitormoschetta/go-familychat/internal/agent"
	"github.com/vitormoschetta/go-familychat/internal/model"
	"github.com/vitormoschetta/go-familychat/internal/tools"
)

type fakeChatter struct {
	reply     string
	err       error
	sessionID string
	message   string
	calls     int
}

func (f *fakeChatter) Chat(_ context.Context, sessionID, message string) (string, error) {
	f.calls++
	f.sessionID = sessionID
	f.message = message
	return f.reply, f.err
}

type staticTools []tools.Descriptor

func (s staticTools) List() []tools.Descriptor { return s }

func newHandler(c Chatter) *Handler {
	return NewHandler(c, staticTools{{Name: tools.GraphQueryToolName, Description: "family tree"}}, zap.NewNop())
}

func postChat(h *Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.HandleChat(rec, req)
	return rec
}

func TestHandleChat(t *testing.T) {
	tests := []struct {
		name       string
		chatter    *fakeChatter
		body       string
		wantStatus int
		wantBody   string
		wantCalls  int
	}{
		{
			name:       "reply",
			chatter:    &fakeChatter{reply: "Jon Snow is Ned's nephew."},
			body:       `{"message":"Who is Jon Snow?"}`,
			wantStatus: http.StatusOK,
			wantBody:   `{"reply":"Jon Snow is Ned's nephew."}`,
			wantCalls:  1,
		},
		{
			name:       "empty reply",
			chatter:    &fakeChatter{},
			body:       `{"message":"hi"}`,
			wantStatus: http.StatusOK,
			wantBody:   `{"reply":""}`,
			wantCalls:  1,
		},
		{
			name:       "empty message still reaches the agent",
			chatter:    &fakeChatter{reply: "How can I help?"},
			body:       `{"message":""}`,
			wantStatus: http.StatusOK,
			wantBody:   `{"reply":"How can I help?"}`,
			wantCalls:  1,
		},
		{
			name:       "session id is echoed",
			chatter:    &fakeChatter{reply: "ok"},
			body:       `{"message":"hi","session_id":"abc"}`,
			wantStatus: http.StatusOK,
			wantBody:   `{"reply":"ok","session_id":"abc"}`,
			wantCalls:  1,
		},
		{
			name:       "agent error",
			chatter:    &fakeChatter{err: errors.New("groq: 503 upstream connect error")},
			body:       `{"message":"hi"}`,
			wantStatus: http.StatusInternalServerError,
			wantBody:   `{"error":"Internal Server Error"}`,
			wantCalls:  1,
		},
		{
			name:       "missing message",
			chatter:    &fakeChatter{},
			body:       `{"text":"hi"}`,
			wantStatus: http.StatusUnprocessableEntity,
			wantBody:   `{"error":"Field 'message' is required"}`,
		},
		{
			name:       "null message",
			chatter:    &fakeChatter{},
			body:       `{"message":null}`,
			wantStatus: http.StatusUnprocessableEntity,
			wantBody:   `{"error":"Field 'message' is required"}`,
		},
		{
			name:       "malformed json",
			chatter:    &fakeChatter{},
			body:       `{"message":`,
			wantStatus: http.StatusBadRequest,
			wantBody:   `{"error":"Invalid JSON format"}`,
		},
		{
			name:       "wrong type",
			chatter:    &fakeChatter{},
			body:       `{"message":42}`,
			wantStatus: http.StatusUnprocessableEntity,
			wantBody:   `{"error":"Field 'message' must be a string"}`,
		},
		{
			name:       "wrong session id type",
			chatter:    &fakeChatter{},
			body:       `{"message":"hi","session_id":["a"]}`,
			wantStatus: http.StatusUnprocessableEntity,
			wantBody:   `{"error":"Field 'session_id' must be a string"}`,
		},
		{
			name:       "body is not an object",
			chatter:    &fakeChatter{},
			body:       `["hi"]`,
			wantStatus: http.StatusUnprocessableEntity,
			wantBody:   `{"error":"Request body must be a JSON object"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postChat(newHandler(tt.chatter), tt.body)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			assert.JSONEq(t, tt.wantBody, rec.Body.String())
			assert.Equal(t, tt.wantCalls, tt.chatter.calls)
		})
	}
}

func TestHandleChatPassesMessageUnchanged(t *testing.T) {
	c := &fakeChatter{reply: "  spaced reply\n"}
	rec := postChat(newHandler(c), `{"message":"  Who rules the North?  ","session_id":"s-1"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "  Who rules the North?  ", c.message)
	assert.Equal(t, "s-1", c.sessionID)

	var resp model.ChatResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "  spaced reply\n", resp.Reply)
}

func TestHandleAgentErrorDoesNotLeakDetails(t *testing.T) {
	rec := postChat(newHandler(&fakeChatter{err: errors.New("neo4j: password=hunter2")}), `{"message":"x"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "hunter2")
}

func TestHandleRoot(t *testing.T) {
	rec := httptest.NewRecorder()
	newHandler(&fakeChatter{}).HandleRoot(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, agent.Name, body["agent"].(map[string]any)["name"])
	assert.Contains(t, body["endpoints"], "chat")
}

func TestHandleHealth(t *testing.T) {
	rec := httptest.NewRecorder()
	newHandler(&fakeChatter{}).HandleHealth(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestHandleTools(t *testing.T) {
	rec := httptest.NewRecorder()
	newHandler(&fakeChatter{}).HandleTools(rec, httptest.NewRequest(http.MethodGet, "/api/tools", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"tools":[{"name":"neo4j_query_engine","description":"family tree"}]}`, rec.Body.String())
}
