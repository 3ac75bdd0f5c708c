// Package conversation holds the per-room bounded dialogue history. The log
// is memory-only and resets on restart.
package conversation

import (
	"sync"

	"github.com/ai-linebot-go/internal/models"
	"github.com/sirupsen/logrus"
)

// Store defines conversation history operations.
type Store interface {
	Append(key, role, content string)
	History(key string) []models.Message
	Reset(key string)
	Len(key string) int
}

// MemoryStore keeps one ordered message log per conversation key. All
// mutation goes through a single mutex so concurrent events for the same key
// cannot interleave an eviction step.
type MemoryStore struct {
	mu         sync.Mutex
	logs       map[string][]models.Message
	maxHistory int
	logger     *logrus.Logger
}

// NewMemoryStore creates a store capped at maxHistory entries per key.
func NewMemoryStore(maxHistory int, logger *logrus.Logger) *MemoryStore {
	if maxHistory < 2 {
		maxHistory = 2
	}
	return &MemoryStore{
		logs:       make(map[string][]models.Message),
		maxHistory: maxHistory,
		logger:     logger,
	}
}

// Append adds one entry to the key's log. When the log exceeds the cap, the
// two oldest entries are evicted together; entries arrive in user/assistant
// pairs, so evicting singly would leave a dangling assistant turn at the
// front.
func (s *MemoryStore) Append(key, role, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	log := append(s.logs[key], models.Message{Role: role, Content: content})
	for len(log) > s.maxHistory {
		log = log[2:]
	}
	s.logs[key] = log
}

// History returns a copy of the key's current log in chronological order.
func (s *MemoryStore) History(key string) []models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	log := s.logs[key]
	out := make([]models.Message, len(log))
	copy(out, log)
	return out
}

// Reset deletes the key's conversation entirely.
func (s *MemoryStore) Reset(key string) {
	s.mu.Lock()
	delete(s.logs, key)
	s.mu.Unlock()

	s.logger.WithField("room_id", key).Info("Conversation history cleared")
}

// Len reports the current log length for a key.
func (s *MemoryStore) Len(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.logs[key])
}
