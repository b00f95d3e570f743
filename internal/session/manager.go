package session

import (
	"sync"

	"github.com/KernelAcademy-AICamp/ai-camp-3rd-chatbot-pjt-satiachat/internal/domain"
)

// Manager remembers per-user conversation preferences. A request that
// omits the persona reuses the one from the user's previous turn.
type Manager interface {
	GetPersona(userID string) domain.Persona
	SetPersona(userID string, persona domain.Persona)
}

// MemoryManager keeps sessions in process memory. Suitable for a single
// instance; use the Redis manager when running more than one.
type MemoryManager struct {
	personas map[string]domain.Persona
	mu       sync.RWMutex
}

// NewMemoryManager creates a new in-memory session manager
func NewMemoryManager() *MemoryManager {
	return &MemoryManager{
		personas: make(map[string]domain.Persona),
	}
}

// GetPersona returns the stored persona for a user, or the default.
func (m *MemoryManager) GetPersona(userID string) domain.Persona {
	m.mu.RLock()
	defer m.mu.RUnlock()
	persona, exists := m.personas[userID]
	if !exists {
		return domain.DefaultPersona
	}
	return persona
}

// SetPersona stores the persona for a user.
func (m *MemoryManager) SetPersona(userID string, persona domain.Persona) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.personas[userID] = persona
}
