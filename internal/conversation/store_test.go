package conversation

import (
	"fmt"
	"io"
	"testing"

	"github.com/ai-linebot-go/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(maxHistory int) *MemoryStore {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return NewMemoryStore(maxHistory, log)
}

func TestAppendAndHistory(t *testing.T) {
	store := newTestStore(20)

	store.Append("user-a", models.RoleUser, "hello")
	history := store.History("user-a")
	require.Len(t, history, 1)
	assert.Equal(t, models.Message{Role: models.RoleUser, Content: "hello"}, history[0])

	store.Append("user-a", models.RoleAssistant, "hi there")
	history = store.History("user-a")
	require.Len(t, history, 2)
	assert.Equal(t, models.RoleAssistant, history[1].Role)
	assert.Equal(t, "hi there", history[1].Content)
}

func TestCapNeverExceeded(t *testing.T) {
	store := newTestStore(6)

	for i := 0; i < 30; i++ {
		store.Append("k", models.RoleUser, fmt.Sprintf("q%d", i))
		assert.LessOrEqual(t, store.Len("k"), 6)
		store.Append("k", models.RoleAssistant, fmt.Sprintf("a%d", i))
		assert.LessOrEqual(t, store.Len("k"), 6)
	}
}

func TestEvictionRemovesOldestPair(t *testing.T) {
	store := newTestStore(4)

	for i := 0; i < 3; i++ {
		store.Append("k", models.RoleUser, fmt.Sprintf("q%d", i))
		store.Append("k", models.RoleAssistant, fmt.Sprintf("a%d", i))
	}

	history := store.History("k")
	require.Len(t, history, 4)
	// q0/a0 were evicted together; the log still starts on a user turn.
	assert.Equal(t, "q1", history[0].Content)
	assert.Equal(t, models.RoleUser, history[0].Role)
	assert.Equal(t, "a2", history[3].Content)
}

func TestResetClearsOnlyThatKey(t *testing.T) {
	store := newTestStore(20)

	store.Append("a", models.RoleUser, "hello from a")
	store.Append("b", models.RoleUser, "hello from b")

	store.Reset("a")

	assert.Empty(t, store.History("a"))
	require.Len(t, store.History("b"), 1)
	assert.Equal(t, "hello from b", store.History("b")[0].Content)
}

func TestHistoryReturnsCopy(t *testing.T) {
	store := newTestStore(20)
	store.Append("k", models.RoleUser, "original")

	history := store.History("k")
	history[0].Content = "mutated"

	assert.Equal(t, "original", store.History("k")[0].Content)
}

func TestAppendAfterReset(t *testing.T) {
	store := newTestStore(20)
	store.Append("k", models.RoleUser, "one")
	store.Reset("k")
	store.Append("k", models.RoleUser, "two")

	history := store.History("k")
	require.Len(t, history, 1)
	assert.Equal(t, "two", history[0].Content)
}
