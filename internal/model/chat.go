package model

// ChatRequest representa a requisição para o endpoint de chat.
// Message é ponteiro para distinguir campo ausente de texto vazio.
type ChatRequest struct {
	Message   *string `json:"message"`
	SessionID string  `json:"session_id,omitempty"`
}

// ChatResponse representa a resposta do endpoint de chat
type ChatResponse struct {
	Reply     string `json:"reply"`
	SessionID string `json:"session_id,omitempty"`
}

// ErrorResponse é o corpo das respostas de erro
type ErrorResponse struct {
	Error string `json:"error"`
}
