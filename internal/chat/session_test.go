package chat

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mahmoud-Al-Jaziri/convo-sage/internal/observability"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(50, 30*time.Minute, observability.DefaultLogger())
}

func TestStore_GetOrCreate_GeneratesIDs(t *testing.T) {
	store := newTestStore(t)

	id := store.GetOrCreate("")
	assert.True(t, strings.HasPrefix(id, "session_"))
	assert.Len(t, id, len("session_")+16)

	other := store.GetOrCreate("")
	assert.NotEqual(t, id, other, "fresh sessions should get distinct IDs")
}

func TestStore_GetOrCreate_HonorsCallerID(t *testing.T) {
	store := newTestStore(t)

	id := store.GetOrCreate("session_client_chosen")
	assert.Equal(t, "session_client_chosen", id)

	// Resuming with the same ID must not reset the session.
	store.Append(id, "hello", "hi there")
	again := store.GetOrCreate(id)
	assert.Equal(t, id, again)

	history, ok := store.History(id)
	require.True(t, ok)
	assert.Len(t, history, 2)
}

func TestStore_Append_RecordsExchange(t *testing.T) {
	store := newTestStore(t)
	id := store.GetOrCreate("")

	count := store.Append(id, "what outlets are in PJ?", "I found 2 outlets.")
	assert.Equal(t, 1, count)

	history, ok := store.History(id)
	require.True(t, ok)
	require.Len(t, history, 2)

	assert.Equal(t, RoleUser, history[0].Role)
	assert.Equal(t, "what outlets are in PJ?", history[0].Content)
	assert.Equal(t, RoleAssistant, history[1].Role)
	assert.Equal(t, "I found 2 outlets.", history[1].Content)
	assert.False(t, history[0].Timestamp.IsZero())

	count = store.Append(id, "thanks", "any time")
	assert.Equal(t, 2, count)
}

func TestStore_Append_TrimsToHistoryLimit(t *testing.T) {
	store := NewStore(4, 30*time.Minute, observability.DefaultLogger())
	id := store.GetOrCreate("")

	store.Append(id, "one", "reply one")
	store.Append(id, "two", "reply two")
	store.Append(id, "three", "reply three")

	history, ok := store.History(id)
	require.True(t, ok)
	require.Len(t, history, 4)

	// The oldest exchange falls off; the counter keeps the full total.
	assert.Equal(t, "two", history[0].Content)
	info, ok := store.Info(id)
	require.True(t, ok)
	assert.Equal(t, 3, info.MessageCount)
}

func TestStore_History_UnknownSession(t *testing.T) {
	store := newTestStore(t)

	_, ok := store.History("session_missing")
	assert.False(t, ok)
}

func TestStore_Clear_KeepsSession(t *testing.T) {
	store := newTestStore(t)
	id := store.GetOrCreate("")
	store.Append(id, "hello", "hi")

	require.True(t, store.Clear(id))

	history, ok := store.History(id)
	assert.True(t, ok, "cleared session should still exist")
	assert.Empty(t, history)

	info, _ := store.Info(id)
	assert.Zero(t, info.MessageCount)

	assert.False(t, store.Clear("session_missing"))
}

func TestStore_Delete(t *testing.T) {
	store := newTestStore(t)
	id := store.GetOrCreate("")

	assert.True(t, store.Delete(id))
	_, ok := store.History(id)
	assert.False(t, ok)

	assert.False(t, store.Delete(id), "second delete reports missing")
}

func TestStore_Stats(t *testing.T) {
	store := newTestStore(t)

	a := store.GetOrCreate("")
	b := store.GetOrCreate("")
	store.Append(a, "hello", "hi")
	store.Append(a, "more", "sure")
	store.Append(b, "hey", "hello")

	stats := store.Stats()
	assert.Equal(t, 2, stats.ActiveSessions)
	assert.Equal(t, 6, stats.TotalMessages)
}

func TestStore_Sessions_MostRecentFirst(t *testing.T) {
	store := newTestStore(t)

	first := store.GetOrCreate("")
	time.Sleep(5 * time.Millisecond)
	second := store.GetOrCreate("")
	time.Sleep(5 * time.Millisecond)
	store.Append(first, "back again", "welcome back")

	sessions := store.Sessions()
	require.Len(t, sessions, 2)
	assert.Equal(t, first, sessions[0].ID)
	assert.Equal(t, second, sessions[1].ID)
}

func TestStore_Sweep_RemovesIdleSessions(t *testing.T) {
	store := NewStore(50, time.Minute, observability.DefaultLogger())

	store.GetOrCreate("")

	removed := store.sweep(time.Now().UTC().Add(2 * time.Minute))
	assert.Equal(t, 1, removed)
	assert.Zero(t, store.Stats().ActiveSessions)
}

func TestHistoryText(t *testing.T) {
	messages := []Message{
		{Role: RoleUser, Content: "My name is Sarah"},
		{Role: RoleAssistant, Content: "Hello Sarah!"},
	}

	text := historyText(messages)
	assert.Contains(t, text, "my name is sarah")
	assert.Contains(t, text, "hello sarah!")
}
