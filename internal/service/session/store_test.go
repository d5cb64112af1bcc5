package session_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/travela2a/concierge/backend/internal/analysis/entity"
	"github.com/travela2a/concierge/backend/internal/analysis/intent"
	"github.com/travela2a/concierge/backend/internal/model/agent"
	"github.com/travela2a/concierge/backend/internal/model/chat"
	"github.com/travela2a/concierge/backend/internal/service/session"
)

type memoryArchive struct {
	mu    sync.Mutex
	saved map[string]session.State
}

func newMemoryArchive() *memoryArchive {
	return &memoryArchive{saved: make(map[string]session.State)}
}

func (a *memoryArchive) Save(_ context.Context, state session.State) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.saved[state.ID] = state
	return nil
}

func (a *memoryArchive) Load(_ context.Context, id string) (session.State, bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	state, ok := a.saved[id]
	return state, ok, nil
}

func (a *memoryArchive) Delete(_ context.Context, id string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.saved, id)
	return nil
}

func TestCreateIsIdempotent(t *testing.T) {
	store := session.NewStore()
	ctx := context.Background()

	first, err := store.Create(ctx, "s1")
	require.NoError(t, err)
	second, err := store.Create(ctx, "s1")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, store.Len())
}

func TestEmptyIDRejected(t *testing.T) {
	store := session.NewStore()
	_, err := store.AppendMessage(context.Background(), "", chat.Message{Role: chat.RoleUser})
	assert.ErrorIs(t, err, session.ErrSessionRequired)
}

func TestUnknownSessionAutoCreated(t *testing.T) {
	store := session.NewStore()
	ctx := context.Background()

	msg, err := store.AppendMessage(ctx, "fresh", chat.Message{Role: chat.RoleUser, Content: "สวัสดี"})
	require.NoError(t, err)
	assert.NotEmpty(t, msg.ID)
	assert.Equal(t, "fresh", msg.SessionID)
	assert.False(t, msg.CreatedAt.IsZero())
	assert.True(t, store.Exists("fresh"))
}

func TestAppendKeepsOrderAndSnapshotWindow(t *testing.T) {
	store := session.NewStore()
	ctx := context.Background()

	for i := 0; i < 6; i++ {
		_, err := store.AppendMessage(ctx, "s", chat.Message{Role: chat.RoleUser, Content: fmt.Sprintf("m%d", i)})
		require.NoError(t, err)
	}

	snap, err := store.Snapshot(ctx, "s", 3)
	require.NoError(t, err)
	require.Len(t, snap.Recent, 3)
	assert.Equal(t, "m3", snap.Recent[0].Content)
	assert.Equal(t, "m5", snap.Recent[2].Content)
	assert.Equal(t, 6, snap.MessageCount)

	all, err := store.Transcript(ctx, "s")
	require.NoError(t, err)
	assert.Len(t, all, 6)
}

func TestSnapshotIsACopy(t *testing.T) {
	store := session.NewStore()
	ctx := context.Background()

	_, err := store.AppendMessage(ctx, "s", chat.Message{Role: chat.RoleUser, Content: "original"})
	require.NoError(t, err)
	_, err = store.MergeEntities(ctx, "s", entity.Set{entity.Destination: "น่าน"})
	require.NoError(t, err)

	snap, err := store.Snapshot(ctx, "s", 10)
	require.NoError(t, err)
	snap.Recent[0].Content = "mutated"
	snap.Entities[entity.Destination] = "mutated"

	again, err := store.Snapshot(ctx, "s", 10)
	require.NoError(t, err)
	assert.Equal(t, "original", again.Recent[0].Content)
	assert.Equal(t, "น่าน", again.Entities[entity.Destination])
}

func TestMergeEntitiesIdempotent(t *testing.T) {
	store := session.NewStore()
	ctx := context.Background()
	set := entity.Set{entity.Destination: "น่าน", entity.Budget: "20000 THB"}

	once, err := store.MergeEntities(ctx, "s", set)
	require.NoError(t, err)
	twice, err := store.MergeEntities(ctx, "s", set)
	require.NoError(t, err)
	assert.Equal(t, once, twice)

	updated, err := store.MergeEntities(ctx, "s", entity.Set{entity.Budget: "5000 THB"})
	require.NoError(t, err)
	assert.Equal(t, "5000 THB", updated[entity.Budget])
	assert.Equal(t, "น่าน", updated[entity.Destination])
}

func TestSetActiveAgentTracksPrevious(t *testing.T) {
	store := session.NewStore()
	ctx := context.Background()

	require.NoError(t, store.SetActiveAgent(ctx, "s", agent.Restaurant, intent.Restaurant))
	require.NoError(t, store.SetActiveAgent(ctx, "s", agent.Restaurant, intent.Restaurant))
	snap, err := store.Snapshot(ctx, "s", 0)
	require.NoError(t, err)
	assert.Equal(t, agent.Restaurant, snap.ActiveAgent)
	assert.Empty(t, snap.PreviousAgent)

	require.NoError(t, store.SetActiveAgent(ctx, "s", agent.Activity, intent.Activity))
	snap, err = store.Snapshot(ctx, "s", 0)
	require.NoError(t, err)
	assert.Equal(t, agent.Activity, snap.ActiveAgent)
	assert.Equal(t, agent.Restaurant, snap.PreviousAgent)
	assert.Equal(t, intent.Activity, snap.ActiveIntent)
}

func TestConcurrentSessionsDoNotInterfere(t *testing.T) {
	store := session.NewStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for s := 0; s < 8; s++ {
		id := fmt.Sprintf("s%d", s)
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				_, err := store.AppendMessage(ctx, id, chat.Message{Role: chat.RoleUser, Content: fmt.Sprint(i)})
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 8, store.Len())
	for s := 0; s < 8; s++ {
		msgs, err := store.Transcript(ctx, fmt.Sprintf("s%d", s))
		require.NoError(t, err)
		require.Len(t, msgs, 50)
		for i, msg := range msgs {
			assert.Equal(t, fmt.Sprint(i), msg.Content)
		}
	}
}

func TestEvictArchivesAndRestores(t *testing.T) {
	archive := newMemoryArchive()
	store := session.NewStore(session.WithArchive(archive))
	ctx := context.Background()

	_, err := store.AppendMessage(ctx, "s", chat.Message{Role: chat.RoleUser, Content: "ไปเที่ยวน่าน"})
	require.NoError(t, err)
	_, err = store.MergeEntities(ctx, "s", entity.Set{entity.Destination: "น่าน"})
	require.NoError(t, err)

	require.NoError(t, store.Evict(ctx, "s"))
	assert.False(t, store.Exists("s"))

	snap, err := store.Snapshot(ctx, "s", 0)
	require.NoError(t, err)
	require.Len(t, snap.Recent, 1)
	assert.Equal(t, "ไปเที่ยวน่าน", snap.Recent[0].Content)
	assert.Equal(t, "น่าน", snap.Entities[entity.Destination])
}

func TestDiscardRemovesArchive(t *testing.T) {
	archive := newMemoryArchive()
	store := session.NewStore(session.WithArchive(archive))
	ctx := context.Background()

	_, err := store.AppendMessage(ctx, "s", chat.Message{Role: chat.RoleUser, Content: "hi"})
	require.NoError(t, err)
	require.NoError(t, store.Evict(ctx, "s"))
	require.NoError(t, store.Discard(ctx, "s"))

	snap, err := store.Snapshot(ctx, "s", 0)
	require.NoError(t, err)
	assert.Empty(t, snap.Recent)
}

func TestSweepSkipsLiveAndFreshSessions(t *testing.T) {
	now := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	store := session.NewStore(session.WithClock(clock))
	ctx := context.Background()

	for _, id := range []string{"idle", "live"} {
		_, err := store.Create(ctx, id)
		require.NoError(t, err)
	}
	now = now.Add(time.Hour)
	_, err := store.Create(ctx, "fresh")
	require.NoError(t, err)

	evicted := store.Sweep(ctx, 30*time.Minute, func(id string) bool { return id == "live" })
	assert.Equal(t, 1, evicted)
	assert.False(t, store.Exists("idle"))
	assert.True(t, store.Exists("live"))
	assert.True(t, store.Exists("fresh"))
}

func TestContextSummary(t *testing.T) {
	long := ""
	for i := 0; i < 150; i++ {
		long += "ก"
	}
	c := session.Context{
		Entities:      entity.Set{entity.Destination: "น่าน"},
		ActiveAgent:   agent.Activity,
		PreviousAgent: agent.Restaurant,
		Recent: []chat.Message{
			{Role: chat.RoleUser, Content: "one"},
			{Role: chat.RoleAgent, Content: "two"},
			{Role: chat.RoleUser, Content: "three"},
			{Role: chat.RoleAgent, Content: "four"},
			{Role: chat.RoleUser, Content: long},
		},
	}
	summary := c.Summary()
	assert.Contains(t, summary, "Trip details: destination=น่าน")
	assert.Contains(t, summary, "Previous agent: restaurant")
	assert.NotContains(t, summary, "- user: one")
	assert.Contains(t, summary, "- agent: two")
	assert.Contains(t, summary, session.Truncate(long, 100))
	assert.NotContains(t, summary, long)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", session.Truncate("abc", 5))
	assert.Equal(t, "ab...", session.Truncate("abcdef", 2))
	assert.Equal(t, "น่...", session.Truncate("น่าน", 2))
}

func TestRedisArchiveRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	archive, err := session.DialRedisArchive(ctx, "redis://"+mr.Addr()+"/0", time.Minute)
	require.NoError(t, err)
	defer archive.Close()

	_, found, err := archive.Load(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, found)

	state := session.State{ID: "s1", Entities: entity.Set{entity.Travelers: "2"}, ActiveAgent: agent.Flight}
	require.NoError(t, archive.Save(ctx, state))
	assert.True(t, mr.Exists("session:s1"))
	assert.Equal(t, time.Minute, mr.TTL("session:s1"))

	got, found, err := archive.Load(ctx, "s1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, agent.Flight, got.ActiveAgent)
	assert.Equal(t, "2", got.Entities[entity.Travelers])

	mr.FastForward(2 * time.Minute)
	_, found, err = archive.Load(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, found, "archived sessions expire with their TTL")
}

func TestRedisArchiveDelete(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()
	archive := session.NewRedisArchive(redis.NewClient(&redis.Options{Addr: mr.Addr()}), 0)
	defer archive.Close()

	require.NoError(t, archive.Save(ctx, session.State{ID: "s1"}))
	assert.Equal(t, 24*time.Hour, mr.TTL("session:s1"))
	require.NoError(t, archive.Delete(ctx, "s1"))
	assert.False(t, mr.Exists("session:s1"))
}

func TestDialRedisArchiveFailsWithoutServer(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := session.DialRedisArchive(context.Background(), "redis://"+addr, time.Minute)
	assert.Error(t, err)
	_, err = session.DialRedisArchive(context.Background(), "not a url", time.Minute)
	assert.Error(t, err)
}

func TestStoreEvictsThroughRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()
	archive := session.NewRedisArchive(redis.NewClient(&redis.Options{Addr: mr.Addr()}), time.Hour)
	defer archive.Close()
	store := session.NewStore(session.WithArchive(archive))

	_, err := store.AppendMessage(ctx, "s", chat.Message{Role: chat.RoleUser, Content: "ไปเที่ยวน่าน"})
	require.NoError(t, err)
	require.NoError(t, store.SetActiveAgent(ctx, "s", agent.Activity, intent.Activity))
	require.NoError(t, store.Evict(ctx, "s"))
	require.True(t, mr.Exists("session:s"))

	snap, err := store.Snapshot(ctx, "s", 0)
	require.NoError(t, err)
	require.Len(t, snap.Recent, 1)
	assert.Equal(t, agent.Activity, snap.ActiveAgent)
	assert.Equal(t, intent.Activity, snap.ActiveIntent)
}

// gatedArchive blocks Save until release is closed.
type gatedArchive struct {
	*memoryArchive
	saving  chan struct{}
	release chan struct{}
}

func (a *gatedArchive) Save(ctx context.Context, state session.State) error {
	close(a.saving)
	<-a.release
	return a.memoryArchive.Save(ctx, state)
}

func TestOperationsDuringEvictionSeeArchivedState(t *testing.T) {
	archive := &gatedArchive{memoryArchive: newMemoryArchive(), saving: make(chan struct{}), release: make(chan struct{})}
	store := session.NewStore(session.WithArchive(archive))
	ctx := context.Background()

	_, err := store.AppendMessage(ctx, "s", chat.Message{Role: chat.RoleUser, Content: "first"})
	require.NoError(t, err)

	evicted := make(chan error, 1)
	go func() { evicted <- store.Evict(ctx, "s") }()
	<-archive.saving

	appended := make(chan error, 1)
	go func() {
		_, err := store.AppendMessage(ctx, "s", chat.Message{Role: chat.RoleUser, Content: "second"})
		appended <- err
	}()

	select {
	case <-appended:
		t.Fatal("append must wait for the archive save")
	case <-time.After(50 * time.Millisecond):
	}

	close(archive.release)
	require.NoError(t, <-evicted)
	require.NoError(t, <-appended)

	transcript, err := store.Transcript(ctx, "s")
	require.NoError(t, err)
	require.Len(t, transcript, 2)
	assert.Equal(t, "first", transcript[0].Content)
	assert.Equal(t, "second", transcript[1].Content)
}

func TestRestoreNormalizesStoredIntent(t *testing.T) {
	archive := newMemoryArchive()
	ctx := context.Background()
	require.NoError(t, archive.Save(ctx, session.State{ID: "a", ActiveIntent: "Restaurant "}))
	require.NoError(t, archive.Save(ctx, session.State{ID: "b", ActiveIntent: "sightseeing"}))
	require.NoError(t, archive.Save(ctx, session.State{ID: "c"}))
	store := session.NewStore(session.WithArchive(archive))

	for id, want := range map[string]intent.Intent{"a": intent.Restaurant, "b": intent.GeneralTravel, "c": ""} {
		snap, err := store.Snapshot(ctx, id, 0)
		require.NoError(t, err)
		assert.Equal(t, want, snap.ActiveIntent, "session=%s", id)
	}
}
