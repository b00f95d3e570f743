package session

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/KernelAcademy-AICamp/ai-camp-3rd-chatbot-pjt-satiachat/internal/domain"
)

const sessionTTL = 24 * time.Hour

// RedisManager stores sessions in Redis so they survive restarts and are
// shared across instances.
type RedisManager struct {
	client *redis.Client
}

// NewRedisManager creates a new Redis-based session manager
func NewRedisManager(host, port string) (*RedisManager, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%s", host, port),
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return &RedisManager{client: client}, nil
}

func personaKey(userID string) string {
	return fmt.Sprintf("user:%s:persona", userID)
}

// GetPersona returns the stored persona for a user, or the default when the
// key is missing or Redis is unreachable.
func (m *RedisManager) GetPersona(userID string) domain.Persona {
	result := m.client.Get(context.Background(), personaKey(userID))
	if result.Err() != nil {
		return domain.DefaultPersona
	}
	persona, ok := domain.ParsePersona(result.Val())
	if !ok {
		return domain.DefaultPersona
	}
	return persona
}

// SetPersona stores the persona for a user with a TTL so stale sessions
// clean themselves up.
func (m *RedisManager) SetPersona(userID string, persona domain.Persona) {
	m.client.Set(context.Background(), personaKey(userID), string(persona), sessionTTL)
}

// Close closes the Redis connection
func (m *RedisManager) Close() error {
	return m.client.Close()
}
