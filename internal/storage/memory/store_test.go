package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/IgorGrieder/encurtador-live/internal/auth"
	"github.com/IgorGrieder/encurtador-live/internal/processing/links"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLink(code, owner string) *links.ShortLink {
	return &links.ShortLink{
		ShortCode: code,
		LongURL:   "https://example.com/" + code,
		Owner:     owner,
		CreatedAt: time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC),
	}
}

func TestCreateAndGet(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	require.NoError(t, s.Create(ctx, newLink("abc", "octocat")))

	got, err := s.Get(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, *newLink("abc", "octocat"), *got)

	_, err = s.Get(ctx, "missing")
	assert.ErrorIs(t, err, links.ErrNotFound)
}

func TestCreateConflict(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	require.NoError(t, s.Create(ctx, newLink("abc", "octocat")))
	assert.ErrorIs(t, s.Create(ctx, newLink("abc", "someone")), links.ErrConflict)

	got, err := s.Get(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, "octocat", got.Owner)
}

func TestConcurrentCreateSingleWinner(t *testing.T) {
	s := NewStore()
	const n = 32

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins, conflicts := 0, 0
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.Create(context.Background(), newLink("same", "octocat"))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case errors.Is(err, links.ErrConflict):
				conflicts++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
	assert.Equal(t, n-1, conflicts)
}

func TestReturnedLinkIsACopy(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	require.NoError(t, s.Create(ctx, newLink("abc", "octocat")))

	got, err := s.Get(ctx, "abc")
	require.NoError(t, err)
	got.LongURL = "https://mutated.example"

	again, err := s.Get(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/abc", again.LongURL)
}

func TestListByOwner(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	require.NoError(t, s.Create(ctx, newLink("a1", "alice")))
	require.NoError(t, s.Create(ctx, newLink("a2", "alice")))
	require.NoError(t, s.Create(ctx, newLink("b1", "alice/b")))

	got, err := s.ListByOwner(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a1", got[0].ShortCode)
	assert.Equal(t, "a2", got[1].ShortCode)

	none, err := s.ListByOwner(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestIncrementClick(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	require.NoError(t, s.Create(ctx, newLink("abc", "octocat")))

	n, err := s.IncrementClick(ctx, "abc", links.ClickMetadata{IPAddress: "10.0.0.1", Country: "BR"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	link, err := s.Get(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, int64(1), link.ClickCount)

	event, err := s.GetClickEvent(ctx, "abc", 1)
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.1", event.IPAddress)
	assert.Equal(t, links.UnknownValue, event.UserAgent)
	assert.Equal(t, "BR", event.Country)
	assert.Equal(t, int64(1), event.Ordinal)

	_, err = s.GetClickEvent(ctx, "abc", 2)
	assert.ErrorIs(t, err, links.ErrNotFound)

	_, err = s.IncrementClick(ctx, "missing", links.ClickMetadata{})
	assert.ErrorIs(t, err, links.ErrNotFound)
}

func TestConcurrentIncrementsAssignEveryOrdinalOnce(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	require.NoError(t, s.Create(ctx, newLink("abc", "octocat")))

	const n = 100
	results := make([]int64, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ord, err := s.IncrementClick(ctx, "abc", links.ClickMetadata{})
			assert.NoError(t, err)
			results[i] = ord
		}(i)
	}
	wg.Wait()

	sort.Slice(results, func(i, j int) bool { return results[i] < results[j] })
	for i, ord := range results {
		assert.Equal(t, int64(i+1), ord)
	}

	link, err := s.Get(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, int64(n), link.ClickCount)

	for i := int64(1); i <= n; i++ {
		_, err := s.GetClickEvent(ctx, "abc", i)
		assert.NoError(t, err, "ordinal %d", i)
	}
}

func TestWatchDeliversEachChange(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	require.NoError(t, s.Create(ctx, newLink("abc", "octocat")))

	h, err := s.Watch(ctx, "abc")
	require.NoError(t, err)
	defer h.Cancel()

	for i := 0; i < 3; i++ {
		_, err := s.IncrementClick(ctx, "abc", links.ClickMetadata{})
		require.NoError(t, err)
	}

	for i := 0; i < 3; i++ {
		waitCtx, cancel := context.WithTimeout(ctx, time.Second)
		require.NoError(t, h.Next(waitCtx))
		cancel()
	}

	waitCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, h.Next(waitCtx), context.DeadlineExceeded)
}

func TestWatchIgnoresOtherKeys(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	require.NoError(t, s.Create(ctx, newLink("abc", "octocat")))
	require.NoError(t, s.Create(ctx, newLink("xyz", "octocat")))

	h, err := s.Watch(ctx, "abc")
	require.NoError(t, err)
	defer h.Cancel()

	_, err = s.IncrementClick(ctx, "xyz", links.ClickMetadata{})
	require.NoError(t, err)

	waitCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, h.Next(waitCtx), context.DeadlineExceeded)
}

func TestWatchCancelUnblocksNext(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	require.NoError(t, s.Create(ctx, newLink("abc", "octocat")))

	h, err := s.Watch(ctx, "abc")
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- h.Next(ctx) }()

	time.Sleep(10 * time.Millisecond)
	h.Cancel()
	h.Cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, links.ErrWatchClosed)
	case <-time.After(time.Second):
		t.Fatal("Next did not return after Cancel")
	}

	assert.ErrorIs(t, h.Next(ctx), links.ErrWatchClosed)
	assert.Zero(t, s.kv.watcherCount(linkKey("abc")))

	_, err = s.IncrementClick(ctx, "abc", links.ClickMetadata{})
	assert.NoError(t, err)
}

func TestIdentityStore(t *testing.T) {
	s := NewIdentityStore()
	now := time.Now()
	s.now = func() time.Time { return now }
	ctx := context.Background()

	identity := auth.Identity{Login: "octocat", ProfileURL: "https://github.com/octocat"}
	require.NoError(t, s.SaveIdentity(ctx, "sid", identity, time.Minute))

	got, err := s.GetIdentity(ctx, "sid")
	require.NoError(t, err)
	assert.Equal(t, identity, *got)

	_, err = s.GetIdentity(ctx, "other")
	assert.ErrorIs(t, err, auth.ErrSessionNotFound)

	now = now.Add(2 * time.Minute)
	_, err = s.GetIdentity(ctx, "sid")
	assert.ErrorIs(t, err, auth.ErrSessionNotFound)
}
