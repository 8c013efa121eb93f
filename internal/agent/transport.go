package agent

import (
	"net/http"

	"go.uber.org/zap"
)

// AuthenticatedTransport adiciona o token do servidor MCP remoto às requisições HTTP
type AuthenticatedTransport struct {
	Base   http.RoundTripper
	Token  string
	Logger *zap.Logger
}

func (t *AuthenticatedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// a requisição original não pode ser alterada
	reqCopy := req.Clone(req.Context())
	if t.Token != "" {
		reqCopy.Header.Set("Authorization", "Bearer "+t.Token)
	}

	if t.Logger != nil {
		t.Logger.Debug("MCP request", zap.String("method", reqCopy.Method), zap.Stringer("url", reqCopy.URL))
	}

	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(reqCopy)
}
