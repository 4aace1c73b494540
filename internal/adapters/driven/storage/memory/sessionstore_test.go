package memory

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

func TestNewSessionStore(t *testing.T) {
	store := NewSessionStore()
	require.NotNil(t, store)
	assert.Equal(t, 0, store.Len())
}

func TestSessionStore_GetOrCreate(t *testing.T) {
	store := NewSessionStore()

	sess := store.GetOrCreate("s1")
	assert.Equal(t, "s1", sess.ID)
	assert.Empty(t, sess.Turns)
	assert.Equal(t, 1, store.Len())

	store.GetOrCreate("s1")
	assert.Equal(t, 1, store.Len(), "second reference must not create a new session")
}

func TestSessionStore_AppendOrder(t *testing.T) {
	store := NewSessionStore()

	store.AppendUser("s1", "Q1")
	store.AppendAssistant("s1", "A1")
	store.AppendExchange("s1", "Q2", "A2")

	sess := store.GetOrCreate("s1")
	assert.Equal(t, []domain.Turn{
		{Role: domain.RoleUser, Text: "Q1"},
		{Role: domain.RoleAssistant, Text: "A1"},
		{Role: domain.RoleUser, Text: "Q2"},
		{Role: domain.RoleAssistant, Text: "A2"},
	}, sess.Turns)
}

func TestSessionStore_SnapshotIsolation(t *testing.T) {
	store := NewSessionStore()
	store.AppendExchange("s1", "Q1", "A1")

	snap := store.GetOrCreate("s1")
	store.AppendExchange("s1", "Q2", "A2")

	assert.Len(t, snap.Turns, 2, "earlier snapshot must not see later turns")

	snap.Turns[0].Text = "mutated"
	assert.Equal(t, "Q1", store.GetOrCreate("s1").Turns[0].Text, "snapshot edits must not leak back")
}

func TestSessionStore_NoCrossSessionVisibility(t *testing.T) {
	store := NewSessionStore()
	store.AppendExchange("alice", "hello", "hi alice")
	store.AppendExchange("bob", "hey", "hi bob")

	alice := store.GetOrCreate("alice")
	bob := store.GetOrCreate("bob")
	require.Len(t, alice.Turns, 2)
	require.Len(t, bob.Turns, 2)
	assert.Equal(t, "hi alice", alice.Turns[1].Text)
	assert.Equal(t, "hi bob", bob.Turns[1].Text)
	assert.Empty(t, store.GetOrCreate("carol").Turns)
}

func TestSessionStore_ConcurrentExchangesStayPaired(t *testing.T) {
	store := NewSessionStore()
	const workers = 16
	const perWorker = 50

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				id := fmt.Sprintf("%d-%d", w, i)
				store.AppendExchange("shared", "Q"+id, "A"+id)
				store.AppendExchange(fmt.Sprintf("own-%d", w), "Q"+id, "A"+id)
				store.GetOrCreate("shared")
			}
		}()
	}
	wg.Wait()

	turns := store.GetOrCreate("shared").Turns
	require.Len(t, turns, workers*perWorker*2)
	for i := 0; i < len(turns); i += 2 {
		require.Equal(t, domain.RoleUser, turns[i].Role)
		require.Equal(t, domain.RoleAssistant, turns[i+1].Role)
		assert.Equal(t, turns[i].Text[1:], turns[i+1].Text[1:], "answer must follow its own question")
	}

	for w := 0; w < workers; w++ {
		own := store.GetOrCreate(fmt.Sprintf("own-%d", w)).Turns
		require.Len(t, own, perWorker*2)
		for i := 0; i < perWorker; i++ {
			assert.Equal(t, fmt.Sprintf("Q%d-%d", w, i), own[2*i].Text, "per-session order must be chronological")
		}
	}
	assert.Equal(t, workers+1, store.Len())
}
