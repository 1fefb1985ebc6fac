package session

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/lorewarden/lorewarden/internal/log"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func openStore(t *testing.T) (*FileStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sessions.json")
	store, err := Open(path, log.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store, path
}

func TestGetOrCreate_NewSession(t *testing.T) {
	store, path := openStore(t)
	ctx := context.Background()

	sess, err := store.GetOrCreate(ctx, "")
	require.NoError(t, err)
	assert.NotEmpty(t, sess.ID)
	assert.Empty(t, sess.Messages)

	// Creation is persisted immediately.
	_, err = os.Stat(path)
	require.NoError(t, err)

	// A second call with the generated id returns the same session.
	again, err := store.GetOrCreate(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, sess.ID, again.ID)
}

func TestGetOrCreate_UnknownID(t *testing.T) {
	store, _ := openStore(t)

	_, err := store.GetOrCreate(context.Background(), "no-such-chat")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGet_UnknownID(t *testing.T) {
	store, _ := openStore(t)

	_, err := store.Get(context.Background(), "unknown-id")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGet_Idempotent(t *testing.T) {
	store, _ := openStore(t)
	ctx := context.Background()

	sess, err := store.GetOrCreate(ctx, "")
	require.NoError(t, err)
	_, err = store.Append(ctx, sess.ID,
		Message{Role: RoleUser, Content: "hello"},
		Message{Role: RoleAssistant, Content: "hi"})
	require.NoError(t, err)

	first, err := store.Get(ctx, sess.ID)
	require.NoError(t, err)
	second, err := store.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestAppend_AssignsContiguousOrdinals(t *testing.T) {
	store, _ := openStore(t)
	ctx := context.Background()

	sess, err := store.GetOrCreate(ctx, "")
	require.NoError(t, err)

	for turn := 0; turn < 3; turn++ {
		_, err = store.Append(ctx, sess.ID,
			Message{Role: RoleUser, Content: fmt.Sprintf("question %d", turn)},
			Message{Role: RoleAssistant, Content: fmt.Sprintf("answer %d", turn)})
		require.NoError(t, err)
	}

	got, err := store.Get(ctx, sess.ID)
	require.NoError(t, err)
	require.Len(t, got.Messages, 6)
	for i, m := range got.Messages {
		assert.Equal(t, i, m.Ordinal)
		if i%2 == 0 {
			assert.Equal(t, RoleUser, m.Role)
		} else {
			assert.Equal(t, RoleAssistant, m.Role)
		}
	}
}

func TestAppend_UnknownID(t *testing.T) {
	store, _ := openStore(t)

	_, err := store.Append(context.Background(), "missing", Message{Role: RoleUser, Content: "hi"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAppend_ReturnedSessionIsCopy(t *testing.T) {
	store, _ := openStore(t)
	ctx := context.Background()

	sess, err := store.GetOrCreate(ctx, "")
	require.NoError(t, err)

	appended, err := store.Append(ctx, sess.ID, Message{Role: RoleUser, Content: "hello"})
	require.NoError(t, err)

	// Mutating the returned copy must not leak into the store.
	appended.Messages[0].Content = "tampered"

	got, err := store.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, "hello", got.Messages[0].Content)
}

func TestRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.json")
	ctx := context.Background()

	store, err := Open(path, log.NewNop())
	require.NoError(t, err)

	a, err := store.GetOrCreate(ctx, "")
	require.NoError(t, err)
	b, err := store.GetOrCreate(ctx, "")
	require.NoError(t, err)

	_, err = store.Append(ctx, a.ID,
		Message{Role: RoleUser, Content: "what is Silverhold?"},
		Message{Role: RoleAssistant, Content: "The capital of Eldoria."})
	require.NoError(t, err)
	_, err = store.Append(ctx, b.ID,
		Message{Role: RoleUser, Content: "unrelated"},
		Message{Role: RoleAssistant, Content: "reply"})
	require.NoError(t, err)

	wantA, err := store.Get(ctx, a.ID)
	require.NoError(t, err)
	wantB, err := store.Get(ctx, b.ID)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	reloaded, err := Open(path, log.NewNop())
	require.NoError(t, err)
	defer reloaded.Close()

	gotA, err := reloaded.Get(ctx, a.ID)
	require.NoError(t, err)
	gotB, err := reloaded.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, wantA, gotA)
	assert.Equal(t, wantB, gotB)
}

func TestOpen_CorruptSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := Open(path, log.NewNop())
	assert.ErrorIs(t, err, ErrCorruptStore)
}

func TestOpen_SecondProcessLockedOut(t *testing.T) {
	first, path := openStore(t)
	require.NotNil(t, first)

	_, err := Open(path, log.NewNop())
	assert.ErrorIs(t, err, ErrLocked)
}

func TestAppend_FlushFailureRollsBack(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "store", "sessions.json")
	ctx := context.Background()

	store, err := Open(path, log.NewNop())
	require.NoError(t, err)
	defer store.Close()

	sess, err := store.GetOrCreate(ctx, "")
	require.NoError(t, err)
	_, err = store.Append(ctx, sess.ID,
		Message{Role: RoleUser, Content: "first"},
		Message{Role: RoleAssistant, Content: "reply"})
	require.NoError(t, err)

	// Make the flush fail by removing the snapshot directory.
	require.NoError(t, os.RemoveAll(filepath.Dir(path)))

	_, err = store.Append(ctx, sess.ID,
		Message{Role: RoleUser, Content: "second"},
		Message{Role: RoleAssistant, Content: "never recorded"})
	assert.ErrorIs(t, err, ErrPersistence)

	// Visible state matches the last durable snapshot: no partial turn.
	got, err := store.Get(ctx, sess.ID)
	require.NoError(t, err)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "first", got.Messages[0].Content)

	assert.Error(t, store.Ping())
}

// A rolled-back append must never reach the snapshot, even when appends to
// other sessions are flushing at the same time, and ordinals continue as if
// the rolled-back messages never existed.
func TestAppend_RollbackStaysAlignedWithSnapshot(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "store", "sessions.json")
	ctx := context.Background()

	store, err := Open(path, log.NewNop())
	require.NoError(t, err)

	a, err := store.GetOrCreate(ctx, "")
	require.NoError(t, err)
	b, err := store.GetOrCreate(ctx, "")
	require.NoError(t, err)
	_, err = store.Append(ctx, a.ID,
		Message{Role: RoleUser, Content: "first"},
		Message{Role: RoleAssistant, Content: "reply"})
	require.NoError(t, err)

	require.NoError(t, os.RemoveAll(filepath.Dir(path)))

	var wg sync.WaitGroup
	for _, id := range []string{a.ID, b.ID} {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, err := store.Append(ctx, id,
				Message{Role: RoleUser, Content: "lost"},
				Message{Role: RoleAssistant, Content: "lost"})
			assert.ErrorIs(t, err, ErrPersistence)
		}(id)
	}
	wg.Wait()

	// Once the directory is back, the next turn picks up the ordinals
	// right where the durable history left off.
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	upd, err := store.Append(ctx, a.ID,
		Message{Role: RoleUser, Content: "second"},
		Message{Role: RoleAssistant, Content: "reply two"})
	require.NoError(t, err)
	require.Len(t, upd.Messages, 4)
	assert.Equal(t, 2, upd.Messages[2].Ordinal)
	require.NoError(t, store.Close())

	reloaded, err := Open(path, log.NewNop())
	require.NoError(t, err)
	defer reloaded.Close()

	gotA, err := reloaded.Get(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, gotA.Messages, 4)
	for _, m := range gotA.Messages {
		assert.NotEqual(t, "lost", m.Content)
	}
	gotB, err := reloaded.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Empty(t, gotB.Messages)
}

func TestAppend_ConcurrentSameSession(t *testing.T) {
	store, _ := openStore(t)
	ctx := context.Background()

	sess, err := store.GetOrCreate(ctx, "")
	require.NoError(t, err)

	const writers = 16
	var wg sync.WaitGroup
	wg.Add(writers)
	for i := 0; i < writers; i++ {
		go func(i int) {
			defer wg.Done()
			_, err := store.Append(ctx, sess.ID,
				Message{Role: RoleUser, Content: fmt.Sprintf("q%d", i)},
				Message{Role: RoleAssistant, Content: fmt.Sprintf("a%d", i)})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	got, err := store.Get(ctx, sess.ID)
	require.NoError(t, err)
	require.Len(t, got.Messages, writers*2)

	seen := make(map[int]bool)
	for i, m := range got.Messages {
		assert.Equal(t, i, m.Ordinal)
		assert.False(t, seen[m.Ordinal], "duplicate ordinal %d", m.Ordinal)
		seen[m.Ordinal] = true
	}
}

func TestAppend_ConcurrentDistinctSessions(t *testing.T) {
	store, _ := openStore(t)
	ctx := context.Background()

	a, err := store.GetOrCreate(ctx, "")
	require.NoError(t, err)
	b, err := store.GetOrCreate(ctx, "")
	require.NoError(t, err)

	const turns = 10
	var wg sync.WaitGroup
	wg.Add(2)
	for _, id := range []string{a.ID, b.ID} {
		go func(id string) {
			defer wg.Done()
			for i := 0; i < turns; i++ {
				_, err := store.Append(ctx, id,
					Message{Role: RoleUser, Content: id},
					Message{Role: RoleAssistant, Content: id})
				assert.NoError(t, err)
			}
		}(id)
	}
	wg.Wait()

	// No cross-talk between sessions.
	for _, id := range []string{a.ID, b.ID} {
		got, err := store.Get(ctx, id)
		require.NoError(t, err)
		require.Len(t, got.Messages, turns*2)
		for _, m := range got.Messages {
			assert.Equal(t, id, m.Content)
		}
	}
}

func TestList(t *testing.T) {
	store, _ := openStore(t)
	ctx := context.Background()

	infos, err := store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, infos)

	sess, err := store.GetOrCreate(ctx, "")
	require.NoError(t, err)
	_, err = store.Append(ctx, sess.ID,
		Message{Role: RoleUser, Content: "q"},
		Message{Role: RoleAssistant, Content: "a"})
	require.NoError(t, err)

	infos, err = store.List(ctx)
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, sess.ID, infos[0].ID)
	assert.Equal(t, 2, infos[0].MessageCount)
}

func TestContextCancelled(t *testing.T) {
	store, _ := openStore(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.GetOrCreate(ctx, "")
	assert.ErrorIs(t, err, context.Canceled)
	_, err = store.Get(ctx, "x")
	assert.ErrorIs(t, err, context.Canceled)
	_, err = store.Append(ctx, "x", Message{Role: RoleUser, Content: "q"})
	assert.ErrorIs(t, err, context.Canceled)
}
