package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gradereport/internal/shared/testutil"
	"gradereport/pkg/contracts/domain"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestStore(t *testing.T, ttl time.Duration, max int) (*SessionStore, *fakeClock) {
	t.Helper()
	logger, _ := testutil.NewTestLogger(nil)
	clock := &fakeClock{now: time.Date(2025, 1, 15, 8, 0, 0, 0, time.UTC)}
	store := NewSessionStore(ttl, max, nil, logger)
	store.now = clock.Now
	return store, clock
}

func dataset(id string) *domain.Dataset {
	return &domain.Dataset{
		ID: id,
		Observations: []domain.GradeObservation{
			{Student: "Jonas", Subject: "Matematika", Score: 8},
		},
	}
}

func TestSessionStore_PutGet(t *testing.T) {
	store, clock := newTestStore(t, time.Hour, 0)
	ctx := context.Background()

	sess, err := store.Put(ctx, dataset("a"))
	require.NoError(t, err)
	assert.Equal(t, "a", sess.ID)
	assert.Equal(t, clock.Now(), sess.CreatedAt)
	assert.Equal(t, clock.Now().Add(time.Hour), sess.ExpiresAt)

	got, err := store.Get(ctx, "a")
	require.NoError(t, err)
	assert.Same(t, sess.Dataset, got.Dataset)

	_, err = store.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionStore_Expiry(t *testing.T) {
	store, clock := newTestStore(t, time.Hour, 0)
	ctx := context.Background()

	_, err := store.Put(ctx, dataset("a"))
	require.NoError(t, err)

	clock.Advance(50 * time.Minute)
	_, err = store.Get(ctx, "a")
	require.NoError(t, err, "access extends expiry")

	clock.Advance(50 * time.Minute)
	_, err = store.Get(ctx, "a")
	require.NoError(t, err)

	clock.Advance(time.Hour)
	_, err = store.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.Equal(t, 0, store.Len())
}

func TestSessionStore_Limit(t *testing.T) {
	store, clock := newTestStore(t, time.Hour, 2)
	ctx := context.Background()

	_, err := store.Put(ctx, dataset("a"))
	require.NoError(t, err)
	_, err = store.Put(ctx, dataset("b"))
	require.NoError(t, err)

	_, err = store.Put(ctx, dataset("c"))
	assert.ErrorIs(t, err, ErrTooManySessions)

	clock.Advance(2 * time.Hour)
	_, err = store.Put(ctx, dataset("c"))
	require.NoError(t, err, "expired sessions free their slots")
	assert.Equal(t, 1, store.Len())
}

func TestSessionStore_DeleteAndSweep(t *testing.T) {
	store, clock := newTestStore(t, time.Minute, 0)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		_, err := store.Put(ctx, dataset(id))
		require.NoError(t, err)
	}

	require.NoError(t, store.Delete(ctx, "a"))
	assert.ErrorIs(t, store.Delete(ctx, "a"), ErrSessionNotFound)

	assert.Equal(t, 0, store.Sweep(ctx))
	clock.Advance(time.Minute)
	assert.Equal(t, 2, store.Sweep(ctx))
	assert.Equal(t, 0, store.Len())
}

func TestSessionStore_OnRemove(t *testing.T) {
	store, clock := newTestStore(t, time.Minute, 0)
	ctx := context.Background()

	var mu sync.Mutex
	var removed []string
	store.OnRemove(func(_ context.Context, id string) {
		mu.Lock()
		defer mu.Unlock()
		removed = append(removed, id)
	})

	for _, id := range []string{"a", "b"} {
		_, err := store.Put(ctx, dataset(id))
		require.NoError(t, err)
	}

	require.NoError(t, store.Delete(ctx, "a"))
	clock.Advance(time.Minute)
	_, err := store.Get(ctx, "b")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	// callbacks may re-enter the store
	store.OnRemove(func(ctx context.Context, _ string) { store.Len() })
	_, err = store.Put(ctx, dataset("c"))
	require.NoError(t, err)
	require.NoError(t, store.Delete(ctx, "c"))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"a", "b", "c"}, removed)
}

func TestSessionStore_RunStopsWithContext(t *testing.T) {
	store, _ := newTestStore(t, time.Minute, 0)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		store.Run(ctx, time.Millisecond)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestSessionStore_Concurrent(t *testing.T) {
	store, _ := newTestStore(t, time.Hour, 0)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := string(rune('a' + i))
			_, err := store.Put(ctx, dataset(id))
			assert.NoError(t, err)
			_, err = store.Get(ctx, id)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 20, store.Len())
}
