package service

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ChatSession representa uma conversa nomeada pelo cliente
type ChatSession struct {
	ID string
	// Mu serializa as mensagens de uma mesma conversa
	Mu sync.Mutex

	// campos abaixo protegidos pelo mutex do SessionManager
	created  bool
	inUse    int
	lastUsed time.Time
}

// SessionManager gerencia as conversas nomeadas em memória
type SessionManager struct {
	sessions map[string]*ChatSession
	// pending guarda as sessões removidas cuja exclusão no runner ainda não terminou
	pending map[string]chan struct{}
	mu      sync.Mutex
	pruneMu sync.Mutex
	gauge   prometheus.Gauge
	now     func() time.Time
}

// NewSessionManager cria o gerenciador. gauge pode ser nil.
func NewSessionManager(gauge prometheus.Gauge) *SessionManager {
	return &SessionManager{
		sessions: make(map[string]*ChatSession),
		pending:  make(map[string]chan struct{}),
		gauge:    gauge,
		now:      time.Now,
	}
}

// Acquire obtém a conversa, criando se necessário, e a marca em uso até Release
func (sm *SessionManager) Acquire(sessionID string) *ChatSession {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	cs, exists := sm.sessions[sessionID]
	if !exists {
		cs = &ChatSession{ID: sessionID}
		sm.sessions[sessionID] = cs
		sm.report()
	}
	cs.inUse++
	cs.lastUsed = sm.now()
	return cs
}

// Release devolve a conversa obtida com Acquire
func (sm *SessionManager) Release(cs *ChatSession) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	cs.inUse--
	cs.lastUsed = sm.now()
}

// markCreated registra que a sessão do runner já existe; retorna false se já estava criada
func (sm *SessionManager) markCreated(cs *ChatSession) bool {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if cs.created {
		return false
	}
	cs.created = true
	return true
}

func (sm *SessionManager) unmarkCreated(cs *ChatSession) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	cs.created = false
}

// Prune remove as conversas sem uso há mais de ttl e retorna seus IDs.
// onRemove, se não for nil, roda sem o lock para cada conversa removida que
// chegou a criar sessão; waitDeleted bloqueia até essa chamada terminar.
func (sm *SessionManager) Prune(ttl time.Duration, onRemove func(id string)) []string {
	sm.pruneMu.Lock()
	defer sm.pruneMu.Unlock()

	sm.mu.Lock()
	cutoff := sm.now().Add(-ttl)
	var removed, created []string
	for id, cs := range sm.sessions {
		if cs.inUse == 0 && cs.lastUsed.Before(cutoff) {
			delete(sm.sessions, id)
			removed = append(removed, id)
			if onRemove != nil && cs.created {
				created = append(created, id)
				sm.pending[id] = make(chan struct{})
			}
		}
	}
	if len(removed) > 0 {
		sm.report()
	}
	sm.mu.Unlock()

	for _, id := range created {
		onRemove(id)
	}

	if len(created) > 0 {
		sm.mu.Lock()
		for _, id := range created {
			close(sm.pending[id])
			delete(sm.pending, id)
		}
		sm.mu.Unlock()
	}
	return removed
}

// waitDeleted espera a exclusão pendente de uma conversa podada com o mesmo ID
func (sm *SessionManager) waitDeleted(ctx context.Context, id string) error {
	sm.mu.Lock()
	done := sm.pending[id]
	sm.mu.Unlock()
	if done == nil {
		return nil
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Len retorna o número de conversas em memória
func (sm *SessionManager) Len() int {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return len(sm.sessions)
}

func (sm *SessionManager) report() {
	if sm.gauge != nil {
		sm.gauge.Set(float64(len(sm.sessions)))
	}
}
