package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/csvcleaner/internal/core"
)

// fakeClock is a manually advanced time source.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newTestStore(ttl time.Duration, max int) (*Store, *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	s := NewStore(ttl, max)
	s.now = clock.Now
	return s, clock
}

func TestStore_CreatePreselectsDefaults(t *testing.T) {
	s, _ := newTestStore(time.Minute, 10)

	sess := s.Create("contacts.csv", contactsTable(t), []string{"Email Address", "Website", "Last Name"})

	require.NotEmpty(t, sess.ID)
	assert.Equal(t, "contacts.csv", sess.FileName)
	assert.Equal(t, []string{"Email Address", "Last Name"}, sess.Selection())
	assert.Equal(t, StateReady, sess.State())

	got, err := s.Get(sess.ID)
	require.NoError(t, err)
	assert.Same(t, sess, got)
}

func TestStore_CreateWithoutDefaultMatch(t *testing.T) {
	s, _ := newTestStore(time.Minute, 10)

	sess := s.Create("contacts.csv", contactsTable(t), []string{"Website"})

	assert.Equal(t, StateLoaded, sess.State())
}

func TestStore_GetUnknown(t *testing.T) {
	s, _ := newTestStore(time.Minute, 10)

	_, err := s.Get("nope")
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, "SES001", core.MapError(err).Code)
}

func TestStore_Expiry(t *testing.T) {
	s, clock := newTestStore(time.Minute, 10)
	sess := s.Create("a.csv", contactsTable(t), nil)

	clock.Advance(50 * time.Second)
	_, err := s.Get(sess.ID)
	require.NoError(t, err, "use within TTL")

	clock.Advance(50 * time.Second)
	_, err = s.Get(sess.ID)
	require.NoError(t, err, "Get refreshes the idle timer")

	clock.Advance(61 * time.Second)
	_, err = s.Get(sess.ID)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Zero(t, s.Len())
}

func TestStore_Sweep(t *testing.T) {
	s, clock := newTestStore(time.Minute, 10)
	old := s.Create("old.csv", contactsTable(t), nil)
	clock.Advance(45 * time.Second)
	fresh := s.Create("fresh.csv", contactsTable(t), nil)
	clock.Advance(30 * time.Second)

	assert.Equal(t, 1, s.Sweep())
	assert.Equal(t, 1, s.Len())

	_, err := s.Get(old.ID)
	assert.Error(t, err)
	_, err = s.Get(fresh.ID)
	assert.NoError(t, err)
}

func TestStore_EvictsLeastRecentlyUsed(t *testing.T) {
	s, clock := newTestStore(time.Hour, 2)
	first := s.Create("1.csv", contactsTable(t), nil)
	clock.Advance(time.Second)
	second := s.Create("2.csv", contactsTable(t), nil)
	clock.Advance(time.Second)

	_, err := s.Get(first.ID)
	require.NoError(t, err)
	clock.Advance(time.Second)

	third := s.Create("3.csv", contactsTable(t), nil)

	assert.Equal(t, 2, s.Len())
	_, err = s.Get(second.ID)
	assert.Error(t, err, "least recently used session is evicted")
	_, err = s.Get(first.ID)
	assert.NoError(t, err)
	_, err = s.Get(third.ID)
	assert.NoError(t, err)
}

func TestStore_Delete(t *testing.T) {
	s, _ := newTestStore(time.Minute, 10)
	sess := s.Create("a.csv", contactsTable(t), nil)

	s.Delete(sess.ID)
	s.Delete("unknown")

	_, err := s.Get(sess.ID)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestStore_RunStopsOnCancel(t *testing.T) {
	s := NewStore(time.Millisecond, 10)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		s.Run(ctx, 5*time.Millisecond)
		close(done)
	}()

	s.Create("a.csv", contactsTable(t), nil)
	assert.Eventually(t, func() bool { return s.Len() == 0 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
